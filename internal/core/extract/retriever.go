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

// Package extract reads still frames out of a video by shelling out to
// ffprobe and ffmpeg.
package extract

import (
	"context"
)

// Retriever gives access to the frames of one opened video. A Retriever is
// owned by a single sampling pass and must be closed by it.
type Retriever interface {
	// DurationMs is the container duration in milliseconds, or 0 when the
	// metadata is missing or unreadable.
	DurationMs() int64

	// FrameAt returns the encoded image of the sync frame at or before the
	// given position in microseconds. A nil image with a nil error means no
	// frame is available there. Errors are reserved for cancellation.
	FrameAt(ctx context.Context, timeUs int64) (data []byte, mimeType string, err error)

	Close() error
}

// Opener acquires a Retriever for a video reference. Failure to open the
// reference wraps model.ErrResource.
type Opener interface {
	Open(ctx context.Context, videoURI string) (Retriever, error)
}
