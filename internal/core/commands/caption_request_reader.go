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
	"encoding/json"
	"fmt"
	"strings"

	"github.com/jaycherian/gcp-go-video-caption/internal/core/cor"
	"github.com/jaycherian/gcp-go-video-caption/internal/core/model"
)

// CaptionRequestReader turns a queued JSON caption request into a session.
// A missing mood selects the default; an unknown mood is rejected.
type CaptionRequestReader struct {
	cor.BaseCommand
}

func NewCaptionRequestReader(name string) *CaptionRequestReader {
	return &CaptionRequestReader{BaseCommand: *cor.NewBaseCommand(name)}
}

func (c *CaptionRequestReader) Execute(context cor.Context) {
	in := context.Get(c.GetInputParam()).(string)

	var req model.CaptionRequest
	if err := json.Unmarshal([]byte(in), &req); err != nil {
		c.GetErrorCounter().Add(context.GetContext(), 1)
		context.AddError(c.GetName(), fmt.Errorf("%w: failed to unmarshal caption request: %v", model.ErrInput, err))
		return
	}

	session := model.NewSession(req.VideoURI)
	session.SetDescription(req.Description)
	if strings.TrimSpace(req.Mood) != "" {
		mood, err := model.ParseMood(req.Mood)
		if err != nil {
			c.GetErrorCounter().Add(context.GetContext(), 1)
			context.AddError(c.GetName(), err)
			return
		}
		_ = session.SetMood(mood)
	}

	c.GetSuccessCounter().Add(context.GetContext(), 1)
	context.Add(c.GetOutputParam(), session)
}
