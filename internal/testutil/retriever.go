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

	"github.com/jaycherian/gcp-go-video-caption/internal/core/extract"
	"github.com/jaycherian/gcp-go-video-caption/internal/core/model"
)

// FakeOpener hands out FakeRetrievers and counts acquisitions and releases.
type FakeOpener struct {
	DurationMs int64
	OpenErr    error
	// Frame returns the image at timeUs; nil means no frame. A nil Frame
	// returns a small JPEG-looking payload for every position.
	Frame func(ctx context.Context, timeUs int64) ([]byte, error)

	mu        sync.Mutex
	opened    int
	closed    int
	requested []int64
}

var jpegStub = []byte{0xFF, 0xD8, 0xFF, 0xE0, 0x00, 0x10, 'J', 'F', 'I', 'F'}

func (o *FakeOpener) Open(ctx context.Context, videoURI string) (extract.Retriever, error) {
	if o.OpenErr != nil {
		return nil, fmt.Errorf("%w: %v", model.ErrResource, o.OpenErr)
	}
	o.mu.Lock()
	o.opened++
	o.mu.Unlock()
	return &fakeRetriever{opener: o}, nil
}

func (o *FakeOpener) Opened() int {
	o.mu.Lock()
	defer o.mu.Unlock()
	return o.opened
}

func (o *FakeOpener) Closed() int {
	o.mu.Lock()
	defer o.mu.Unlock()
	return o.closed
}

// Requested returns every position asked for, in microseconds.
func (o *FakeOpener) Requested() []int64 {
	o.mu.Lock()
	defer o.mu.Unlock()
	out := make([]int64, len(o.requested))
	copy(out, o.requested)
	return out
}

type fakeRetriever struct {
	opener *FakeOpener
}

func (r *fakeRetriever) DurationMs() int64 {
	return r.opener.DurationMs
}

func (r *fakeRetriever) FrameAt(ctx context.Context, timeUs int64) ([]byte, string, error) {
	r.opener.mu.Lock()
	r.opener.requested = append(r.opener.requested, timeUs)
	r.opener.mu.Unlock()

	if err := ctx.Err(); err != nil {
		return nil, "", err
	}
	if r.opener.Frame == nil {
		return jpegStub, "image/jpeg", nil
	}
	data, err := r.opener.Frame(ctx, timeUs)
	if err != nil || data == nil {
		return nil, "", err
	}
	return data, "image/jpeg", nil
}

func (r *fakeRetriever) Close() error {
	r.opener.mu.Lock()
	defer r.opener.mu.Unlock()
	r.opener.closed++
	return nil
}
