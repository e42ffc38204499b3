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

// CaptionRequest is the JSON body of a queued caption request.
type CaptionRequest struct {
	VideoURI    string `json:"video_uri"`
	Description string `json:"description"`
	Mood        string `json:"mood,omitempty"`
}

// RunResult is the observable outcome of one orchestrator run.
type RunResult struct {
	RunID      string `json:"run_id"`
	SessionID  string `json:"session_id"`
	State      State  `json:"state"`
	Caption    string `json:"caption"`
	Hashtag    string `json:"hashtag"`
	FrameCount int    `json:"frame_count"`
	Reason     Reason `json:"reason"`
	Notice     string `json:"notice,omitempty"`
	Error      string `json:"error,omitempty"`
}
