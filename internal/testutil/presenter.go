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

package test

import (
	"context"
	"fmt"
	"sync"

	"github.com/jaycherian/gcp-go-video-caption/internal/core/model"
)

// RecordingPresenter keeps every presentation call, in order, as a short
// string such as "state:sampling", "caption:...", "hashtag:..." or
// "notice:No keyframes extracted".
type RecordingPresenter struct {
	mu     sync.Mutex
	events []string
}

func (p *RecordingPresenter) record(event string) {
	p.mu.Lock()
	defer p.mu.Unlock()
	p.events = append(p.events, event)
}

func (p *RecordingPresenter) StateChanged(_ context.Context, state model.State) {
	p.record(fmt.Sprintf("state:%s", state))
}

func (p *RecordingPresenter) ShowCaption(_ context.Context, caption string) {
	p.record("caption:" + caption)
}

func (p *RecordingPresenter) ShowHashtag(_ context.Context, hashtag string) {
	p.record("hashtag:" + hashtag)
}

func (p *RecordingPresenter) Notify(_ context.Context, reason model.Reason) {
	p.record("notice:" + reason.Notice())
}

func (p *RecordingPresenter) Events() []string {
	p.mu.Lock()
	defer p.mu.Unlock()
	out := make([]string, len(p.events))
	copy(out, p.events)
	return out
}
