// Copyright 2024 Google, LLC
//
// Licensed under the Apache License, Version 2.0 (the "License");
// you may not use this file except in compliance with the License.
// You may obtain a copy of the License at
//
//     http://www.apache.org/licenses/LICENSE-2.0
//
// Unless required by applicable law or agreed to in writing, software
// distributed under the License is distributed on an "AS IS" BASIS,
// WITHOUT WARRANTIES OR CONDITIONS OF ANY KIND, either express or implied.
// See the License for the specific language governing permissions and
// limitations under the License.

package cloud_test

import (
	"context"
	"errors"
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/zeebo/assert"
	"google.golang.org/genai"

	"github.com/jaycherian/gcp-go-video-caption/internal/cloud"
	"github.com/jaycherian/gcp-go-video-caption/internal/core/model"
)

func writeFile(t *testing.T, dir, name, body string) {
	t.Helper()
	assert.NoError(t, os.WriteFile(filepath.Join(dir, name), []byte(body), 0o644))
}

func TestLoadConfigLayers(t *testing.T) {
	dir := t.TempDir()
	writeFile(t, dir, ".env.toml", `
[application]
name = "base"
http_addr = ":9000"

[captioning]
request_timeout = "30s"
caption_model = "caption-flash"

[agent_models.caption-flash]
model = "gemini-1.5-flash"
rate_limit = 2
`)
	writeFile(t, dir, ".env.unit.toml", `
[application]
name = "unit"

[topic_subscriptions.CaptionRequests]
name = "caption-requests-sub"
result_topic = "caption-results"
`)
	t.Setenv(cloud.EnvConfigFilePrefix, dir)
	t.Setenv(cloud.EnvConfigRuntime, "unit")
	t.Setenv("GEMINI_API_KEY", "from-env")
	t.Setenv("CAPTION_HTTP_ADDR", ":7000")

	config := cloud.NewConfig()
	assert.NoError(t, cloud.LoadConfig(config))

	assert.Equal(t, "unit", config.Application.Name)
	assert.Equal(t, ":7000", config.Application.HTTPAddr)
	assert.Equal(t, "from-env", config.Application.GeminiAPIKey)
	assert.Equal(t, 30*time.Second, config.Captioning.RequestTimeout.Std())
	assert.Equal(t, "gemini-1.5-flash", config.AgentModels["caption-flash"].Model)
	assert.Equal(t, 2, config.AgentModels["caption-flash"].RateLimit)
	assert.Equal(t, "caption-results", config.TopicSubscriptions["CaptionRequests"].ResultTopic)
	// Untouched defaults survive.
	assert.Equal(t, 10, config.Captioning.SampleCount)
	assert.Equal(t, "ffmpeg", config.Captioning.FFMpegCommand)
}

func TestLoadConfigMissingFiles(t *testing.T) {
	t.Setenv(cloud.EnvConfigFilePrefix, t.TempDir())
	t.Setenv(cloud.EnvConfigRuntime, "")

	config := cloud.NewConfig()
	assert.NoError(t, cloud.LoadConfig(config))
	assert.Equal(t, "video-caption", config.Application.Name)

	base, runtime := cloud.ConfigFiles()
	assert.Equal(t, ".env.toml", filepath.Base(base))
	assert.Equal(t, ".env.local.toml", filepath.Base(runtime))
}

func TestLoadConfigBadDuration(t *testing.T) {
	dir := t.TempDir()
	writeFile(t, dir, ".env.toml", "[captioning]\nrequest_timeout = \"soon\"\n")
	t.Setenv(cloud.EnvConfigFilePrefix, dir)

	assert.Error(t, cloud.LoadConfig(cloud.NewConfig()))
}

type generatorFunc func(ctx context.Context, content []*genai.Content) (*genai.GenerateContentResponse, error)

func (f generatorFunc) GenerateContent(ctx context.Context, content []*genai.Content) (*genai.GenerateContentResponse, error) {
	return f(ctx, content)
}

func textResponse(parts ...string) *genai.GenerateContentResponse {
	content := &genai.Content{Role: "model"}
	for _, p := range parts {
		content.Parts = append(content.Parts, &genai.Part{Text: p})
	}
	return &genai.GenerateContentResponse{
		Candidates:    []*genai.Candidate{{Content: content}},
		UsageMetadata: &genai.GenerateContentResponseUsageMetadata{PromptTokenCount: 12, CandidatesTokenCount: 3},
	}
}

func TestGenerateMultiModalResponse(t *testing.T) {
	ctx := context.Background()
	content := cloud.NewUserContent(cloud.NewInlinePart([]byte{0xFF, 0xD8}, "image/jpeg"), cloud.NewTextPart("describe"))

	var seen []*genai.Content
	gen := generatorFunc(func(_ context.Context, c []*genai.Content) (*genai.GenerateContentResponse, error) {
		seen = c
		return textResponse("Sunny ", "afternoon"), nil
	})
	out, err := cloud.GenerateMultiModalResponse(ctx, nil, nil, gen, 0, content)
	assert.NoError(t, err)
	assert.Equal(t, "Sunny afternoon", out)
	assert.Equal(t, len(seen), 1)
	assert.Equal(t, "user", seen[0].Role)
	assert.Equal(t, len(seen[0].Parts), 2)
	assert.Equal(t, "image/jpeg", seen[0].Parts[0].InlineData.MIMEType)
	assert.Equal(t, "describe", seen[0].Parts[1].Text)

	empty := generatorFunc(func(context.Context, []*genai.Content) (*genai.GenerateContentResponse, error) {
		return &genai.GenerateContentResponse{}, nil
	})
	out, err = cloud.GenerateMultiModalResponse(ctx, nil, nil, empty, 0, content)
	assert.NoError(t, err)
	assert.Equal(t, "", out)
}

func TestGenerateMultiModalResponseFirstCandidate(t *testing.T) {
	two := generatorFunc(func(context.Context, []*genai.Content) (*genai.GenerateContentResponse, error) {
		resp := textResponse("Golden hour ", "glow")
		resp.Candidates = append(resp.Candidates, &genai.Candidate{
			Content: &genai.Content{Role: "model", Parts: []*genai.Part{{Text: "Another take"}}},
		})
		return resp, nil
	})
	out, err := cloud.GenerateMultiModalResponse(context.Background(), nil, nil, two, 0, nil)
	assert.NoError(t, err)
	assert.Equal(t, "Golden hour glow", out)
}

func TestGenerateMultiModalResponseTransport(t *testing.T) {
	ctx := context.Background()
	failing := generatorFunc(func(context.Context, []*genai.Content) (*genai.GenerateContentResponse, error) {
		return nil, errors.New("connection reset")
	})
	_, err := cloud.GenerateMultiModalResponse(ctx, nil, nil, failing, 0, nil)
	assert.That(t, errors.Is(err, model.ErrTransport))

	slow := generatorFunc(func(ctx context.Context, _ []*genai.Content) (*genai.GenerateContentResponse, error) {
		<-ctx.Done()
		return nil, ctx.Err()
	})
	_, err = cloud.GenerateMultiModalResponse(ctx, nil, nil, slow, cloud.Duration(20*time.Millisecond), nil)
	assert.That(t, errors.Is(err, model.ErrTransport))
	assert.That(t, errors.Is(err, context.DeadlineExceeded))
}

func TestNewGenerateContentConfig(t *testing.T) {
	config := cloud.NewGenerateContentConfig(cloud.GenerativeModel{
		Model:              "gemini-1.5-flash",
		SystemInstructions: "be brief",
		Temperature:        0.5,
		TopP:               0.9,
		MaxTokens:          64,
		OutputFormat:       "text/plain",
	})
	assert.Equal(t, float32(0.5), *config.Temperature)
	assert.Equal(t, float32(0.9), *config.TopP)
	assert.That(t, config.TopK == nil)
	assert.Equal(t, "be brief", config.SystemInstruction.Parts[0].Text)
	assert.Equal(t, "text/plain", config.ResponseMIMEType)
}

func TestNewQuotaAwareModelPacing(t *testing.T) {
	assert.That(t, cloud.NewQuotaAwareModel(nil, "m", nil, 0).RateLimit == nil)
	assert.That(t, cloud.NewQuotaAwareModel(nil, "m", nil, 4).RateLimit != nil)
}
