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
	"log/slog"

	"github.com/jaycherian/gcp-go-video-caption/internal/core/model"
)

// Presenter is whatever displays a run's progress to the user. Calls for one
// run arrive from a single goroutine, in order. Caption and hashtag replace
// whatever was shown before; notices are transient.
type Presenter interface {
	StateChanged(ctx context.Context, state model.State)
	ShowCaption(ctx context.Context, caption string)
	ShowHashtag(ctx context.Context, hashtag string)
	Notify(ctx context.Context, reason model.Reason)
}

// LogPresenter writes every presentation event to the structured log.
type LogPresenter struct {
	SessionID string
}

func (p LogPresenter) StateChanged(ctx context.Context, state model.State) {
	slog.DebugContext(ctx, "run state changed", "session", p.SessionID, "state", state.String())
}

func (p LogPresenter) ShowCaption(ctx context.Context, caption string) {
	slog.InfoContext(ctx, "caption ready", "session", p.SessionID, "caption", caption)
}

func (p LogPresenter) ShowHashtag(ctx context.Context, hashtag string) {
	slog.InfoContext(ctx, "hashtag ready", "session", p.SessionID, "hashtag", hashtag)
}

func (p LogPresenter) Notify(ctx context.Context, reason model.Reason) {
	slog.WarnContext(ctx, reason.Notice(), "session", p.SessionID, "reason", reason.String())
}
