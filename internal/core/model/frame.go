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

// DefaultSampleCount is the number of evenly spaced frames taken from a video.
const DefaultSampleCount = 10

// KeyFrame is a still image decoded from the video near TimestampMs.
type KeyFrame struct {
	Index       int
	TimestampMs int64
	MIMEType    string
	Data        []byte
}

// SampleTimestamps returns n requested positions, in milliseconds, spread over
// a video of the given duration. The interval is durationMs / n using integer
// division, so every position is at most durationMs and the sequence never
// decreases. A zero (or unknown) duration yields n zeros.
func SampleTimestamps(durationMs int64, n int) []int64 {
	if n <= 0 {
		return nil
	}
	if durationMs < 0 {
		durationMs = 0
	}
	interval := durationMs / int64(n)
	out := make([]int64, n)
	for i := range out {
		out[i] = int64(i) * interval
	}
	return out
}

// TimestampMicros converts a millisecond position to the microsecond unit the
// frame retriever expects.
func TimestampMicros(ms int64) int64 {
	return ms * 1000
}
