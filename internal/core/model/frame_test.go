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

package model_test

import (
	"testing"

	"github.com/jaycherian/gcp-go-video-caption/internal/core/model"
	"github.com/stretchr/testify/assert"
)

func TestSampleTimestamps(t *testing.T) {
	cases := []struct {
		name     string
		duration int64
		want     []int64
	}{
		{"ten seconds", 10_000, []int64{0, 1000, 2000, 3000, 4000, 5000, 6000, 7000, 8000, 9000}},
		{"uneven", 12_345, []int64{0, 1234, 2468, 3702, 4936, 6170, 7404, 8638, 9872, 11106}},
		{"shorter than count", 7, []int64{0, 0, 0, 0, 0, 0, 0, 0, 0, 0}},
		{"unknown", 0, []int64{0, 0, 0, 0, 0, 0, 0, 0, 0, 0}},
	}
	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			assert.Equal(t, tc.want, model.SampleTimestamps(tc.duration, model.DefaultSampleCount))
		})
	}
}

func TestSampleTimestampsBounds(t *testing.T) {
	for _, duration := range []int64{0, 1, 9, 10, 11, 999, 60_000, 5_400_123} {
		got := model.SampleTimestamps(duration, model.DefaultSampleCount)
		assert.Len(t, got, model.DefaultSampleCount)
		for i, ts := range got {
			assert.LessOrEqual(t, ts, duration)
			assert.GreaterOrEqual(t, ts, int64(0))
			if i > 0 {
				assert.GreaterOrEqual(t, ts, got[i-1])
			}
		}
	}
}

func TestSampleTimestampsNonPositiveCount(t *testing.T) {
	assert.Empty(t, model.SampleTimestamps(10_000, 0))
	assert.Empty(t, model.SampleTimestamps(10_000, -3))
}

func TestTimestampMicros(t *testing.T) {
	assert.Equal(t, int64(1_234_000), model.TimestampMicros(1234))
	assert.Equal(t, int64(0), model.TimestampMicros(0))
}
