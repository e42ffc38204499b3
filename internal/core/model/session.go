// Copyright 2024 Google, LLC
//
// Licensed under the Apache License, Version 2.0 (the "License");
// you may not use this file except in compliance with the License.
// You may obtain a copy of the License at
//
//     https://www.apache.org/licenses/LICENSE-2.0
//
// Unless required by applicable law or agreed to in writing, software
// distributed under the License is distributed on an "AS IS" BASIS,
// WITHOUT WARRANTIES OR CONDITIONS OF ANY KIND, either express or implied.
// See the License for the specific language governing permissions and
// limitations under the License.

package model

import (
	"strings"
	"sync"
	"time"

	"github.com/google/uuid"
)

// Session holds the inputs for captioning one video. The video reference is
// fixed at creation; mood and description may change between triggers.
type Session struct {
	ID        string
	CreatedAt time.Time

	mu          sync.RWMutex
	videoURI    string
	mood        Mood
	description string
}

// Snapshot is an immutable copy of a session's inputs taken when a run starts.
type Snapshot struct {
	SessionID   string
	VideoURI    string
	Mood        Mood
	Description string
}

func NewSession(videoURI string) *Session {
	return &Session{
		ID:        uuid.New().String(),
		CreatedAt: time.Now(),
		videoURI:  strings.TrimSpace(videoURI),
		mood:      DefaultMood,
	}
}

func (s *Session) VideoURI() string {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.videoURI
}

// HasVideo reports whether a video reference was supplied.
func (s *Session) HasVideo() bool {
	return s.VideoURI() != ""
}

func (s *Session) Mood() Mood {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.mood
}

func (s *Session) SetMood(mood Mood) error {
	if !mood.Valid() {
		return ErrInput
	}
	s.mu.Lock()
	defer s.mu.Unlock()
	s.mood = mood
	return nil
}

func (s *Session) Description() string {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.description
}

func (s *Session) SetDescription(description string) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.description = description
}

func (s *Session) Snapshot() Snapshot {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return Snapshot{
		SessionID:   s.ID,
		VideoURI:    s.videoURI,
		Mood:        s.mood,
		Description: s.description,
	}
}

// Validate checks the inputs required before any extraction or model call.
// The video is checked first.
func (s Snapshot) Validate() error {
	if s.VideoURI == "" {
		return NewFailure(ReasonMissingVideo, ErrInput)
	}
	if strings.TrimSpace(s.Description) == "" {
		return NewFailure(ReasonMissingDescription, ErrInput)
	}
	return nil
}
