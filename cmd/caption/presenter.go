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

package main

import (
	"context"
	"fmt"
	"io"
	"log/slog"

	"github.com/jaycherian/gcp-go-video-caption/internal/core/model"
)

// ConsolePresenter prints results to out and notices to errOut.
type ConsolePresenter struct {
	out    io.Writer
	errOut io.Writer
}

func NewConsolePresenter(out, errOut io.Writer) *ConsolePresenter {
	return &ConsolePresenter{out: out, errOut: errOut}
}

func (p *ConsolePresenter) StateChanged(ctx context.Context, state model.State) {
	slog.DebugContext(ctx, "state", "state", state.String())
}

func (p *ConsolePresenter) ShowCaption(_ context.Context, caption string) {
	fmt.Fprintf(p.out, "Caption: %s\n", caption)
}

func (p *ConsolePresenter) ShowHashtag(_ context.Context, hashtag string) {
	fmt.Fprintf(p.out, "Hashtag: %s\n", hashtag)
}

func (p *ConsolePresenter) Notify(_ context.Context, reason model.Reason) {
	if notice := reason.Notice(); notice != "" {
		fmt.Fprintln(p.errOut, notice)
	}
}
