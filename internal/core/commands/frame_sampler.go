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

package commands

import (
	"context"
	"fmt"
	"log/slog"

	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/metric"

	"github.com/jaycherian/gcp-go-video-caption/internal/core/cor"
	"github.com/jaycherian/gcp-go-video-caption/internal/core/extract"
	"github.com/jaycherian/gcp-go-video-caption/internal/core/model"
)

// FrameSampler opens the session's video and pulls sampleCount evenly spaced
// key frames out of it, one at a time. Positions with no decodable frame are
// skipped. An empty result is recorded as a NoKeyFrames failure.
type FrameSampler struct {
	cor.BaseCommand
	opener       extract.Opener
	sampleCount  int
	frameCounter metric.Int64Counter
}

func NewFrameSampler(name string, opener extract.Opener, sampleCount int) *FrameSampler {
	if sampleCount <= 0 {
		sampleCount = model.DefaultSampleCount
	}
	out := &FrameSampler{
		BaseCommand: *cor.NewBaseCommand(name),
		opener:      opener,
		sampleCount: sampleCount,
	}
	out.InputParamName = SnapshotParam
	out.OutputParamName = FramesParam
	out.frameCounter, _ = out.GetMeter().Int64Counter(fmt.Sprintf("%s.frames.extracted", out.GetName()))
	return out
}

func (c *FrameSampler) Execute(context cor.Context) {
	snap := context.Get(c.GetInputParam()).(model.Snapshot)

	frames, err := c.Sample(context.GetContext(), snap.VideoURI)
	if err != nil {
		c.GetErrorCounter().Add(context.GetContext(), 1)
		if context.GetContext().Err() != nil {
			context.AddError(c.GetName(), err)
			return
		}
		context.AddError(c.GetName(), model.NewFailure(model.ReasonNoKeyFrames, err))
		return
	}
	if len(frames) == 0 {
		c.GetErrorCounter().Add(context.GetContext(), 1)
		context.AddError(c.GetName(), model.NewFailure(model.ReasonNoKeyFrames, fmt.Errorf("%w: no frames decoded from %s", model.ErrExtraction, snap.VideoURI)))
		return
	}

	c.GetSuccessCounter().Add(context.GetContext(), 1)
	c.frameCounter.Add(context.GetContext(), int64(len(frames)), metric.WithAttributes(attribute.Int("requested", c.sampleCount)))
	context.Add(c.GetOutputParam(), frames)
	context.Add(cor.CtxOut, frames)
}

// Sample runs one sampling pass over videoURI. The retriever is released on
// every path. Only cancellation interrupts the pass early.
func (c *FrameSampler) Sample(ctx context.Context, videoURI string) ([]*model.KeyFrame, error) {
	retriever, err := c.opener.Open(ctx, videoURI)
	if err != nil {
		return nil, err
	}
	defer func() {
		if err := retriever.Close(); err != nil {
			slog.WarnContext(ctx, "failed to release frame retriever", "video", videoURI, "error", err)
		}
	}()

	durationMs := retriever.DurationMs()
	frames := make([]*model.KeyFrame, 0, c.sampleCount)
	for i, ts := range model.SampleTimestamps(durationMs, c.sampleCount) {
		data, mimeType, err := retriever.FrameAt(ctx, model.TimestampMicros(ts))
		if err != nil {
			return nil, err
		}
		if len(data) == 0 {
			slog.DebugContext(ctx, "no frame at position", "video", videoURI, "index", i, "timestamp_ms", ts)
			continue
		}
		frames = append(frames, &model.KeyFrame{Index: i, TimestampMs: ts, MIMEType: mimeType, Data: data})
	}

	slog.InfoContext(ctx, "sampled key frames", "video", videoURI, "duration_ms", durationMs, "frames", len(frames), "requested", c.sampleCount)
	return frames, nil
}
