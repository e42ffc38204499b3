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
	"bytes"
	"fmt"
	"strings"
	"text/template"

	"github.com/jaycherian/gcp-go-video-caption/internal/core/model"
)

const (
	// DefaultCaptionPrompt repeats the mood after the description. Deployments
	// that want a single mood phrase override prompt_templates.caption.
	DefaultCaptionPrompt = "Generate a caption for the following video description with a {{.Mood}} mood: {{.Description}} with a {{.Mood}} mood"
	DefaultHashtagPrompt = "Generate a single hashtag for the following video description with a {{.Mood}} mood: {{.Description}}"
)

var (
	defaultCaptionTemplate = template.Must(template.New("caption").Parse(DefaultCaptionPrompt))
	defaultHashtagTemplate = template.Must(template.New("hashtag").Parse(DefaultHashtagPrompt))
)

// PromptParams are the fields available to prompt templates.
type PromptParams struct {
	Mood        string
	Description string
}

// NewPromptTemplate parses text, falling back to the given default when text
// is empty.
func NewPromptTemplate(name, text, fallback string) (*template.Template, error) {
	if strings.TrimSpace(text) == "" {
		text = fallback
	}
	t, err := template.New(name).Option("missingkey=error").Parse(text)
	if err != nil {
		return nil, fmt.Errorf("failed to parse %s prompt template: %w", name, err)
	}
	return t, nil
}

// RenderPrompt executes t with the description and mood.
func RenderPrompt(t *template.Template, description string, mood model.Mood) (string, error) {
	var buffer bytes.Buffer
	if err := t.Execute(&buffer, PromptParams{Mood: mood.String(), Description: description}); err != nil {
		return "", fmt.Errorf("failed to execute prompt template: %w", err)
	}
	return buffer.String(), nil
}

// BuildCaptionPrompt renders the default caption prompt.
func BuildCaptionPrompt(description string, mood model.Mood) string {
	out, _ := RenderPrompt(defaultCaptionTemplate, description, mood)
	return out
}

// BuildHashtagPrompt renders the default hashtag prompt.
func BuildHashtagPrompt(description string, mood model.Mood) string {
	out, _ := RenderPrompt(defaultHashtagTemplate, description, mood)
	return out
}

// ExtractHashtag keeps the first whitespace delimited token of a model
// response, or "" when there is none.
func ExtractHashtag(response string) string {
	fields := strings.Fields(response)
	if len(fields) == 0 {
		return ""
	}
	return fields[0]
}
