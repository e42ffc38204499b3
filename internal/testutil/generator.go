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

package test

import (
	"context"
	"strings"
	"sync"

	"google.golang.org/genai"
)

// FakeGenerator answers model requests from a function and records every
// request it receives.
type FakeGenerator struct {
	mu       sync.Mutex
	requests [][]*genai.Content
	Respond  func(ctx context.Context, prompt string, images int) (string, error)
}

// StaticGenerator always returns text.
func StaticGenerator(text string) *FakeGenerator {
	return &FakeGenerator{Respond: func(context.Context, string, int) (string, error) { return text, nil }}
}

// FailingGenerator always returns err.
func FailingGenerator(err error) *FakeGenerator {
	return &FakeGenerator{Respond: func(context.Context, string, int) (string, error) { return "", err }}
}

// BlockingGenerator waits for ctx to end and returns its error.
func BlockingGenerator() *FakeGenerator {
	return &FakeGenerator{Respond: func(ctx context.Context, _ string, _ int) (string, error) {
		<-ctx.Done()
		return "", ctx.Err()
	}}
}

func (g *FakeGenerator) GenerateContent(ctx context.Context, content []*genai.Content) (*genai.GenerateContentResponse, error) {
	g.mu.Lock()
	g.requests = append(g.requests, content)
	g.mu.Unlock()

	prompt, images := Describe(content)
	text, err := g.Respond(ctx, prompt, images)
	if err != nil {
		return nil, err
	}
	return &genai.GenerateContentResponse{
		Candidates: []*genai.Candidate{{Content: &genai.Content{Role: "model", Parts: []*genai.Part{{Text: text}}}}},
		UsageMetadata: &genai.GenerateContentResponseUsageMetadata{
			PromptTokenCount:     int32(len(prompt)),
			CandidatesTokenCount: int32(len(text)),
		},
	}, nil
}

// Requests returns a copy of the recorded requests.
func (g *FakeGenerator) Requests() [][]*genai.Content {
	g.mu.Lock()
	defer g.mu.Unlock()
	out := make([][]*genai.Content, len(g.requests))
	copy(out, g.requests)
	return out
}

func (g *FakeGenerator) Calls() int {
	g.mu.Lock()
	defer g.mu.Unlock()
	return len(g.requests)
}

// Describe returns the joined text parts and the number of inline images of
// a request.
func Describe(content []*genai.Content) (prompt string, images int) {
	var texts []string
	for _, c := range content {
		for _, p := range c.Parts {
			if p.InlineData != nil {
				images++
			}
			if p.Text != "" {
				texts = append(texts, p.Text)
			}
		}
	}
	return strings.Join(texts, "\n"), images
}
