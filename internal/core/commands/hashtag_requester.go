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
	"fmt"
	"log/slog"
	"text/template"

	"go.opentelemetry.io/otel/metric"

	"github.com/jaycherian/gcp-go-video-caption/internal/cloud"
	"github.com/jaycherian/gcp-go-video-caption/internal/core/cor"
	"github.com/jaycherian/gcp-go-video-caption/internal/core/model"
)

// HashtagRequester asks the model for a single hashtag from the description
// and mood. It never records an error: a failed or empty response yields "".
type HashtagRequester struct {
	cor.BaseCommand
	generator                cloud.ContentGenerator
	template                 *template.Template
	timeout                  cloud.Duration
	geminiInputTokenCounter  metric.Int64Counter
	geminiOutputTokenCounter metric.Int64Counter
}

func NewHashtagRequester(
	name string,
	generator cloud.ContentGenerator,
	template *template.Template,
	timeout cloud.Duration) *HashtagRequester {

	if template == nil {
		template = defaultHashtagTemplate
	}
	out := &HashtagRequester{
		BaseCommand: *cor.NewBaseCommand(name),
		generator:   generator,
		template:    template,
		timeout:     timeout,
	}
	out.InputParamName = SnapshotParam
	out.OutputParamName = HashtagParam

	out.geminiInputTokenCounter, _ = out.GetMeter().Int64Counter(fmt.Sprintf("%s.gemini.token.input", out.GetName()))
	out.geminiOutputTokenCounter, _ = out.GetMeter().Int64Counter(fmt.Sprintf("%s.gemini.token.output", out.GetName()))
	return out
}

func (c *HashtagRequester) Execute(context cor.Context) {
	snap := context.Get(c.GetInputParam()).(model.Snapshot)

	hashtag := ""
	prompt, err := RenderPrompt(c.template, snap.Description, snap.Mood)
	if err == nil {
		var out string
		out, err = cloud.GenerateMultiModalResponse(context.GetContext(), c.geminiInputTokenCounter, c.geminiOutputTokenCounter, c.generator, c.timeout, cloud.NewUserContent(cloud.NewTextPart(prompt)))
		hashtag = ExtractHashtag(out)
	}

	if err != nil {
		c.GetErrorCounter().Add(context.GetContext(), 1)
		slog.WarnContext(context.GetContext(), "hashtag request failed", "session", snap.SessionID, "error", err)
	} else {
		c.GetSuccessCounter().Add(context.GetContext(), 1)
	}
	context.Add(c.GetOutputParam(), hashtag)
	context.Add(cor.CtxOut, hashtag)
}
