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

package commands_test

import (
	"context"
	"errors"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/jaycherian/gcp-go-video-caption/internal/core/commands"
	"github.com/jaycherian/gcp-go-video-caption/internal/core/cor"
	"github.com/jaycherian/gcp-go-video-caption/internal/core/model"
	test "github.com/jaycherian/gcp-go-video-caption/internal/testutil"
)

func samplerContext(ctx context.Context) cor.Context {
	chCtx := cor.NewBaseContext()
	chCtx.SetContext(ctx)
	chCtx.Add(commands.SnapshotParam, model.Snapshot{SessionID: "s", VideoURI: "clip.mp4", Description: "d"})
	return chCtx
}

func TestFrameSamplerRequestsEvenlySpacedPositions(t *testing.T) {
	opener := &test.FakeOpener{DurationMs: 10_000}
	sampler := commands.NewFrameSampler("sampler", opener, model.DefaultSampleCount)

	chCtx := samplerContext(context.Background())
	sampler.Execute(chCtx)

	require.False(t, chCtx.HasErrors())
	frames := chCtx.Get(commands.FramesParam).([]*model.KeyFrame)
	assert.Len(t, frames, 10)
	assert.Equal(t, []int64{0, 1_000_000, 2_000_000, 3_000_000, 4_000_000, 5_000_000, 6_000_000, 7_000_000, 8_000_000, 9_000_000}, opener.Requested())
	for i, f := range frames {
		assert.Equal(t, i, f.Index)
		assert.Equal(t, int64(i*1000), f.TimestampMs)
		assert.Equal(t, "image/jpeg", f.MIMEType)
	}
	assert.Equal(t, 1, opener.Opened())
	assert.Equal(t, 1, opener.Closed())
}

func TestFrameSamplerSkipsAbsentFrames(t *testing.T) {
	opener := &test.FakeOpener{
		DurationMs: 10_000,
		Frame: func(_ context.Context, timeUs int64) ([]byte, error) {
			if timeUs >= 5_000_000 {
				return nil, nil
			}
			return []byte{0xFF, 0xD8, 0xFF}, nil
		},
	}
	sampler := commands.NewFrameSampler("sampler", opener, 10)

	frames, err := sampler.Sample(context.Background(), "clip.mp4")
	require.NoError(t, err)
	require.Len(t, frames, 5)
	for i := 1; i < len(frames); i++ {
		assert.Greater(t, frames[i].TimestampMs, frames[i-1].TimestampMs)
	}
	assert.Len(t, opener.Requested(), 10)
	assert.Equal(t, 1, opener.Closed())
}

func TestFrameSamplerZeroDuration(t *testing.T) {
	opener := &test.FakeOpener{DurationMs: 0}
	frames, err := commands.NewFrameSampler("sampler", opener, 10).Sample(context.Background(), "clip.mp4")
	require.NoError(t, err)
	assert.Len(t, frames, 10)
	for _, ts := range opener.Requested() {
		assert.Equal(t, int64(0), ts)
	}
}

func TestFrameSamplerNoFrames(t *testing.T) {
	opener := &test.FakeOpener{
		DurationMs: 4_000,
		Frame:      func(context.Context, int64) ([]byte, error) { return nil, nil },
	}
	sampler := commands.NewFrameSampler("sampler", opener, 10)

	chCtx := samplerContext(context.Background())
	sampler.Execute(chCtx)

	err := chCtx.Err()
	require.Error(t, err)
	assert.Equal(t, model.ReasonNoKeyFrames, model.ReasonOf(err))
	assert.ErrorIs(t, err, model.ErrExtraction)
	assert.Nil(t, chCtx.Get(commands.FramesParam))
	assert.Equal(t, 1, opener.Closed())
}

func TestFrameSamplerOpenFailure(t *testing.T) {
	opener := &test.FakeOpener{OpenErr: errors.New("corrupt container")}
	sampler := commands.NewFrameSampler("sampler", opener, 10)

	chCtx := samplerContext(context.Background())
	sampler.Execute(chCtx)

	err := chCtx.Err()
	assert.Equal(t, model.ReasonNoKeyFrames, model.ReasonOf(err))
	assert.ErrorIs(t, err, model.ErrResource)
	assert.Empty(t, opener.Requested())
}

func TestFrameSamplerReleasesOnCancel(t *testing.T) {
	ctx, cancel := context.WithCancel(context.Background())
	opener := &test.FakeOpener{
		DurationMs: 10_000,
		Frame: func(_ context.Context, timeUs int64) ([]byte, error) {
			if timeUs == 2_000_000 {
				cancel()
			}
			return []byte{0xFF, 0xD8, 0xFF}, nil
		},
	}
	sampler := commands.NewFrameSampler("sampler", opener, 10)

	chCtx := samplerContext(ctx)
	sampler.Execute(chCtx)

	assert.ErrorIs(t, chCtx.Err(), context.Canceled)
	assert.Equal(t, model.ReasonNone, model.ReasonOf(chCtx.Err()))
	assert.Equal(t, 1, opener.Closed())
	assert.Len(t, opener.Requested(), 4)
}
