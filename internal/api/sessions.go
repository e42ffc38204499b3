// Copyright 2024 Google, LLC
//
// Licensed under the Apache License, Version 2.0 (the "License");
// you may not use this file except in compliance with the License.
// You may obtain a copy of the License at
//
//     http://www.apache.org/licenses/LICENSE-2.0
//
// Unless required by applicable law or agreed to in writing, software
// distributed under the License is distributed on an "AS IS" BASIS,
// WITHOUT WARRANTIES OR CONDITIONS OF ANY KIND, either express or implied.
// See the License for the specific language governing permissions and
// limitations under the License.

package api

import (
	"context"
	"sync"
	"time"

	"github.com/jaycherian/gcp-go-video-caption/internal/core/model"
)

// Event names sent on a session's event stream.
const (
	EventState   = "state"
	EventCaption = "caption"
	EventHashtag = "hashtag"
	EventNotice  = "notice"
)

const subscriberBuffer = 16

// Event is one presentation update for a session.
type Event struct {
	Type    string       `json:"type"`
	State   model.State  `json:"state,omitempty"`
	Caption string       `json:"caption,omitempty"`
	Hashtag string       `json:"hashtag,omitempty"`
	Reason  model.Reason `json:"reason,omitempty"`
	Notice  string       `json:"notice,omitempty"`
}

// SessionView is the JSON rendering of a session and what it currently shows.
type SessionView struct {
	ID          string      `json:"id"`
	VideoURI    string      `json:"video_uri"`
	Mood        model.Mood  `json:"mood"`
	Description string      `json:"description"`
	State       model.State `json:"state"`
	Caption     string      `json:"caption"`
	Hashtag     string      `json:"hashtag"`
	Notice      string      `json:"notice,omitempty"`
	RunID       string      `json:"run_id,omitempty"`
	CreatedAt   time.Time   `json:"created_at"`
}

// SessionRecord is the screen of one session: it keeps the last values
// presented by the orchestrator and forwards every update to the event
// stream subscribers. It implements workflow.Presenter.
type SessionRecord struct {
	Session *model.Session

	mu          sync.Mutex
	state       model.State
	caption     string
	hashtag     string
	notice      string
	runID       string
	subscribers map[chan Event]struct{}
	closed      bool
}

func newSessionRecord(session *model.Session) *SessionRecord {
	return &SessionRecord{
		Session:     session,
		state:       model.StateIdle,
		subscribers: make(map[chan Event]struct{}),
	}
}

func (r *SessionRecord) StateChanged(_ context.Context, state model.State) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.state = state
	if state == model.StateSampling {
		r.notice = ""
	}
	r.broadcast(Event{Type: EventState, State: state})
}

func (r *SessionRecord) ShowCaption(_ context.Context, caption string) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.caption = caption
	r.broadcast(Event{Type: EventCaption, Caption: caption})
}

func (r *SessionRecord) ShowHashtag(_ context.Context, hashtag string) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.hashtag = hashtag
	r.broadcast(Event{Type: EventHashtag, Hashtag: hashtag})
}

func (r *SessionRecord) Notify(_ context.Context, reason model.Reason) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.notice = reason.Notice()
	r.broadcast(Event{Type: EventNotice, Reason: reason, Notice: r.notice})
}

func (r *SessionRecord) setRun(id string) {
	r.mu.Lock()
	r.runID = id
	r.mu.Unlock()
}

// broadcast must be called with mu held. Slow subscribers miss events rather
// than stall the run.
func (r *SessionRecord) broadcast(ev Event) {
	for ch := range r.subscribers {
		select {
		case ch <- ev:
		default:
		}
	}
}

// Subscribe registers a new event listener. The returned function
// unregisters it; the channel is closed when the session is deleted.
func (r *SessionRecord) Subscribe() (<-chan Event, func()) {
	r.mu.Lock()
	defer r.mu.Unlock()
	ch := make(chan Event, subscriberBuffer)
	if r.closed {
		close(ch)
		return ch, func() {}
	}
	r.subscribers[ch] = struct{}{}
	return ch, func() {
		r.mu.Lock()
		defer r.mu.Unlock()
		if _, ok := r.subscribers[ch]; ok {
			delete(r.subscribers, ch)
			close(ch)
		}
	}
}

func (r *SessionRecord) close() {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.closed = true
	for ch := range r.subscribers {
		delete(r.subscribers, ch)
		close(ch)
	}
}

// View renders the session's inputs and the values currently on screen.
func (r *SessionRecord) View() SessionView {
	snap := r.Session.Snapshot()
	r.mu.Lock()
	defer r.mu.Unlock()
	return SessionView{
		ID:          snap.SessionID,
		VideoURI:    snap.VideoURI,
		Mood:        snap.Mood,
		Description: snap.Description,
		State:       r.state,
		Caption:     r.caption,
		Hashtag:     r.hashtag,
		Notice:      r.notice,
		RunID:       r.runID,
		CreatedAt:   r.Session.CreatedAt,
	}
}

// SessionStore keeps sessions in process memory for as long as their screen
// is open.
type SessionStore struct {
	mu       sync.RWMutex
	sessions map[string]*SessionRecord
}

func NewSessionStore() *SessionStore {
	return &SessionStore{sessions: make(map[string]*SessionRecord)}
}

// Create opens a session for videoURI, which may be empty.
func (s *SessionStore) Create(videoURI string) *SessionRecord {
	rec := newSessionRecord(model.NewSession(videoURI))
	s.mu.Lock()
	s.sessions[rec.Session.ID] = rec
	s.mu.Unlock()
	return rec
}

func (s *SessionStore) Get(id string) (*SessionRecord, bool) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	rec, ok := s.sessions[id]
	return rec, ok
}

// Delete drops a session and closes its event streams.
func (s *SessionStore) Delete(id string) bool {
	s.mu.Lock()
	rec, ok := s.sessions[id]
	delete(s.sessions, id)
	s.mu.Unlock()
	if ok {
		rec.close()
	}
	return ok
}

func (s *SessionStore) Len() int {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return len(s.sessions)
}
