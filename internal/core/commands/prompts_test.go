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
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/jaycherian/gcp-go-video-caption/internal/core/commands"
	"github.com/jaycherian/gcp-go-video-caption/internal/core/model"
)

func TestBuildCaptionPromptKeepsMoodTwice(t *testing.T) {
	got := commands.BuildCaptionPrompt("a dog catching a frisbee", model.MoodExcited)
	assert.Equal(t,
		"Generate a caption for the following video description with a Excited mood: a dog catching a frisbee with a Excited mood",
		got)
}

func TestBuildHashtagPrompt(t *testing.T) {
	got := commands.BuildHashtagPrompt("sunset over the sea", model.MoodCalm)
	assert.Equal(t, "Generate a single hashtag for the following video description with a Calm mood: sunset over the sea", got)
}

func TestPromptBuildersArePure(t *testing.T) {
	for _, mood := range model.Moods() {
		a := commands.BuildCaptionPrompt("same words", mood)
		b := commands.BuildCaptionPrompt("same words", mood)
		assert.Equal(t, a, b)
		assert.Contains(t, a, mood.String())
	}
}

func TestCustomPromptTemplate(t *testing.T) {
	tmpl, err := commands.NewPromptTemplate("caption", "Caption ({{.Mood}}): {{.Description}}", commands.DefaultCaptionPrompt)
	require.NoError(t, err)
	got, err := commands.RenderPrompt(tmpl, "kids at a park", model.MoodHappy)
	require.NoError(t, err)
	assert.Equal(t, "Caption (Happy): kids at a park", got)

	fallback, err := commands.NewPromptTemplate("caption", "  ", commands.DefaultCaptionPrompt)
	require.NoError(t, err)
	got, err = commands.RenderPrompt(fallback, "kids", model.MoodSad)
	require.NoError(t, err)
	assert.Equal(t, commands.BuildCaptionPrompt("kids", model.MoodSad), got)

	_, err = commands.NewPromptTemplate("caption", "{{.Mood", "")
	assert.Error(t, err)
}

func TestExtractHashtag(t *testing.T) {
	assert.Equal(t, "#SunsetVibes", commands.ExtractHashtag("#SunsetVibes are the best"))
	assert.Equal(t, "#Calm", commands.ExtractHashtag("  #Calm\n"))
	assert.Equal(t, "#Tabbed", commands.ExtractHashtag("#Tabbed\tnext"))
	assert.Equal(t, "", commands.ExtractHashtag(""))
	assert.Equal(t, "", commands.ExtractHashtag(" \n\t "))
}
