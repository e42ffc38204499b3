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

package workflow

import (
	"context"
	"errors"
	"sync"
	"time"

	"github.com/google/uuid"

	"github.com/jaycherian/gcp-go-video-caption/internal/core/commands"
	"github.com/jaycherian/gcp-go-video-caption/internal/core/cor"
	"github.com/jaycherian/gcp-go-video-caption/internal/core/model"
)

// Run is one pass of the captioning state machine for a session.
type Run struct {
	ID        string
	SessionID string
	StartedAt time.Time

	snapshot  model.Snapshot
	presenter Presenter
	ctx       context.Context
	cancel    context.CancelFunc
	done      chan struct{}

	mu     sync.Mutex
	result model.RunResult
}

func newRun(ctx context.Context, cancel context.CancelFunc, snap model.Snapshot, presenter Presenter) *Run {
	id := uuid.New().String()
	return &Run{
		ID:        id,
		SessionID: snap.SessionID,
		StartedAt: time.Now(),
		snapshot:  snap,
		presenter: presenter,
		ctx:       ctx,
		cancel:    cancel,
		done:      make(chan struct{}),
		result:    model.RunResult{RunID: id, SessionID: snap.SessionID, State: model.StateIdle},
	}
}

// Done is closed once the run is terminal and its retriever released.
func (r *Run) Done() <-chan struct{} {
	return r.done
}

// Wait blocks until the run is terminal or ctx ends.
func (r *Run) Wait(ctx context.Context) error {
	select {
	case <-r.done:
		return nil
	case <-ctx.Done():
		return ctx.Err()
	}
}

// Cancel stops the run. It ends Failed with ReasonCancelled and presents
// nothing further.
func (r *Run) Cancel() {
	r.cancel()
}

func (r *Run) State() model.State {
	r.mu.Lock()
	defer r.mu.Unlock()
	return r.result.State
}

// Result is a copy of the run's current outcome.
func (r *Run) Result() model.RunResult {
	r.mu.Lock()
	defer r.mu.Unlock()
	return r.result
}

func (r *Run) live() bool {
	return r.ctx.Err() == nil
}

func (r *Run) transition(state model.State) {
	r.mu.Lock()
	r.result.State = state
	r.mu.Unlock()
	if r.live() {
		r.presenter.StateChanged(r.ctx, state)
	}
}

func (r *Run) showCaption(caption string) {
	r.mu.Lock()
	r.result.Caption = caption
	r.mu.Unlock()
	if r.live() {
		r.presenter.ShowCaption(r.ctx, caption)
	}
}

func (r *Run) showHashtag(hashtag string) {
	r.mu.Lock()
	r.result.Hashtag = hashtag
	r.mu.Unlock()
	if r.live() {
		r.presenter.ShowHashtag(r.ctx, hashtag)
	}
}

func (r *Run) setFrameCount(n int) {
	r.mu.Lock()
	r.result.FrameCount = n
	r.mu.Unlock()
}

// finish settles the terminal state from what the chain left behind and
// returns the reason it ended with (ReasonNone when Done).
func (r *Run) finish(chCtx cor.Context) model.Reason {
	if !r.live() {
		r.mu.Lock()
		r.result.State = model.StateFailed
		r.result.Reason = model.ReasonCancelled
		r.result.Error = r.ctx.Err().Error()
		r.mu.Unlock()
		return model.ReasonCancelled
	}

	err := chCtx.Err()
	r.mu.Lock()
	reached := r.result.State
	if err == nil && r.result.Caption == "" {
		err = model.NewFailure(model.ReasonCaptionFailed, model.ErrEmptyResponse)
	}
	if err == nil {
		r.result.State = model.StateDone
		r.mu.Unlock()
		r.presenter.StateChanged(r.ctx, model.StateDone)
		return model.ReasonNone
	}

	reason := model.ReasonOf(err)
	if reason == model.ReasonNone {
		reason = reasonForState(reached, err)
	}
	r.result.State = model.StateFailed
	r.result.Reason = reason
	r.result.Notice = reason.Notice()
	r.result.Error = err.Error()
	r.mu.Unlock()

	r.presenter.StateChanged(r.ctx, model.StateFailed)
	r.presenter.Notify(r.ctx, reason)
	return reason
}

// reasonForState classifies an error that carries no Reason by the stage it
// happened in.
func reasonForState(state model.State, err error) model.Reason {
	switch {
	case errors.Is(err, context.Canceled):
		return model.ReasonCancelled
	case state == model.StateSampling, state == model.StateIdle:
		return model.ReasonNoKeyFrames
	default:
		return model.ReasonCaptionFailed
	}
}

// stage wraps a pipeline command so that entering it moves the run to state,
// and a successful execution presents the command's output.
type stage struct {
	cor.Command
	state   model.State
	present func(run *Run, context cor.Context)
}

func (s *stage) Execute(context cor.Context) {
	run, _ := context.Get(runParam).(*Run)
	if run != nil {
		run.transition(s.state)
	}
	s.Command.Execute(context)
	if run != nil && s.present != nil && !context.HasErrors() {
		s.present(run, context)
	}
}

func presentFrames(run *Run, context cor.Context) {
	frames, _ := context.Get(commands.FramesParam).([]*model.KeyFrame)
	run.setFrameCount(len(frames))
}

func presentCaption(run *Run, context cor.Context) {
	caption, _ := context.Get(commands.CaptionParam).(string)
	run.showCaption(caption)
}

func presentHashtag(run *Run, context cor.Context) {
	hashtag, _ := context.Get(commands.HashtagParam).(string)
	run.showHashtag(hashtag)
}
