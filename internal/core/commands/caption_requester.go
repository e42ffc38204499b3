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
	"google.golang.org/genai"

	"github.com/jaycherian/gcp-go-video-caption/internal/cloud"
	"github.com/jaycherian/gcp-go-video-caption/internal/core/cor"
	"github.com/jaycherian/gcp-go-video-caption/internal/core/model"
)

// CaptionRequester sends the sampled frames, in order, followed by the caption
// prompt to the model in one request. The response text is the caption. An
// empty response or a failed round-trip is recorded as CaptionFailed.
type CaptionRequester struct {
	cor.BaseCommand
	generator                cloud.ContentGenerator
	template                 *template.Template
	timeout                  cloud.Duration
	geminiInputTokenCounter  metric.Int64Counter
	geminiOutputTokenCounter metric.Int64Counter
}

func NewCaptionRequester(
	name string,
	generator cloud.ContentGenerator,
	template *template.Template,
	timeout cloud.Duration) *CaptionRequester {

	if template == nil {
		template = defaultCaptionTemplate
	}
	out := &CaptionRequester{
		BaseCommand: *cor.NewBaseCommand(name),
		generator:   generator,
		template:    template,
		timeout:     timeout,
	}
	out.InputParamName = FramesParam
	out.OutputParamName = CaptionParam

	out.geminiInputTokenCounter, _ = out.GetMeter().Int64Counter(fmt.Sprintf("%s.gemini.token.input", out.GetName()))
	out.geminiOutputTokenCounter, _ = out.GetMeter().Int64Counter(fmt.Sprintf("%s.gemini.token.output", out.GetName()))
	return out
}

// IsExecutable requires at least one frame and the run's inputs.
func (c *CaptionRequester) IsExecutable(context cor.Context) bool {
	if !c.BaseCommand.IsExecutable(context) {
		return false
	}
	frames, ok := context.Get(c.GetInputParam()).([]*model.KeyFrame)
	if !ok || len(frames) == 0 {
		return false
	}
	_, ok = context.Get(SnapshotParam).(model.Snapshot)
	return ok
}

// BuildContents assembles the request: one inline image part per frame
// followed by the prompt text.
func (c *CaptionRequester) BuildContents(frames []*model.KeyFrame, snap model.Snapshot) ([]*genai.Content, error) {
	prompt, err := RenderPrompt(c.template, snap.Description, snap.Mood)
	if err != nil {
		return nil, err
	}
	parts := make([]*genai.Part, 0, len(frames)+1)
	for _, frame := range frames {
		mimeType := frame.MIMEType
		if mimeType == "" {
			mimeType = "image/jpeg"
		}
		parts = append(parts, cloud.NewInlinePart(frame.Data, mimeType))
	}
	parts = append(parts, cloud.NewTextPart(prompt))
	return cloud.NewUserContent(parts...), nil
}

func (c *CaptionRequester) Execute(context cor.Context) {
	frames := context.Get(c.GetInputParam()).([]*model.KeyFrame)
	snap := context.Get(SnapshotParam).(model.Snapshot)

	contents, err := c.BuildContents(frames, snap)
	if err != nil {
		c.GetErrorCounter().Add(context.GetContext(), 1)
		context.AddError(c.GetName(), model.NewFailure(model.ReasonCaptionFailed, err))
		return
	}

	out, err := cloud.GenerateMultiModalResponse(context.GetContext(), c.geminiInputTokenCounter, c.geminiOutputTokenCounter, c.generator, c.timeout, contents)
	if err != nil {
		c.GetErrorCounter().Add(context.GetContext(), 1)
		context.AddError(c.GetName(), model.NewFailure(model.ReasonCaptionFailed, fmt.Errorf("gemini request failed: %w", err)))
		return
	}
	if out == "" {
		c.GetErrorCounter().Add(context.GetContext(), 1)
		context.AddError(c.GetName(), model.NewFailure(model.ReasonCaptionFailed, model.ErrEmptyResponse))
		return
	}

	slog.DebugContext(context.GetContext(), "caption generated", "session", snap.SessionID, "frames", len(frames), "length", len(out))
	c.GetSuccessCounter().Add(context.GetContext(), 1)
	context.Add(c.GetOutputParam(), out)
	context.Add(cor.CtxOut, out)
}
