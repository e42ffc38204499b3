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
	"errors"
	"fmt"
)

// Error classes shared by the frame sampler, the model requests and the
// orchestrator. Use errors.Is against these.
var (
	ErrInput         = errors.New("invalid input")
	ErrExtraction    = errors.New("frame extraction failed")
	ErrResource      = fmt.Errorf("%w: video could not be opened", ErrExtraction)
	ErrEmptyResponse = errors.New("model returned an empty response")
	ErrTransport     = errors.New("model request failed")
)

// State is the orchestrator's position for a single run.
type State int

const (
	StateIdle State = iota
	StateSampling
	StateRequestingCaption
	StateRequestingHashtag
	StateDone
	StateFailed
)

var stateNames = [...]string{"idle", "sampling", "requesting_caption", "requesting_hashtag", "done", "failed"}

func (s State) String() string {
	if s < 0 || int(s) >= len(stateNames) {
		return fmt.Sprintf("State(%d)", int(s))
	}
	return stateNames[s]
}

// Terminal reports whether no further transitions can happen from s.
func (s State) Terminal() bool {
	return s == StateDone || s == StateFailed
}

func (s State) MarshalText() ([]byte, error) {
	return []byte(s.String()), nil
}

// Reason names why a run did not produce a caption.
type Reason int

const (
	ReasonNone Reason = iota
	ReasonMissingVideo
	ReasonMissingDescription
	ReasonNoKeyFrames
	ReasonCaptionFailed
	ReasonCancelled
	// ReasonNoVideoLoaded is reported when a session is opened without a
	// video. It never ends a run.
	ReasonNoVideoLoaded
)

var reasonNames = [...]string{"none", "missing_video", "missing_description", "no_key_frames", "caption_failed", "cancelled", "no_video_loaded"}

func (r Reason) String() string {
	if r < 0 || int(r) >= len(reasonNames) {
		return fmt.Sprintf("Reason(%d)", int(r))
	}
	return reasonNames[r]
}

func (r Reason) MarshalText() ([]byte, error) {
	return []byte(r.String()), nil
}

// Notice is the short message shown to the user for r. Cancelled runs and
// ReasonNone have no notice. Both gate failures share the description notice.
func (r Reason) Notice() string {
	switch r {
	case ReasonNoVideoLoaded:
		return "No video selected"
	case ReasonMissingVideo, ReasonMissingDescription:
		return "Please enter a description of the video"
	case ReasonNoKeyFrames:
		return "No keyframes extracted"
	case ReasonCaptionFailed:
		return "Failed to generate captions"
	default:
		return ""
	}
}

// Failure ties an underlying error to the Reason it is reported as.
type Failure struct {
	Reason Reason
	Err    error
}

func NewFailure(reason Reason, err error) *Failure {
	return &Failure{Reason: reason, Err: err}
}

func (f *Failure) Error() string {
	if f.Err == nil {
		return f.Reason.String()
	}
	return fmt.Sprintf("%s: %v", f.Reason, f.Err)
}

func (f *Failure) Unwrap() error {
	return f.Err
}

// ReasonOf extracts the Reason carried by err, or ReasonNone.
func ReasonOf(err error) Reason {
	var failure *Failure
	if errors.As(err, &failure) {
		return failure.Reason
	}
	return ReasonNone
}
