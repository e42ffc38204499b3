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
	"errors"
	"testing"

	"github.com/jaycherian/gcp-go-video-caption/internal/core/model"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestMoodsOrder(t *testing.T) {
	assert.Equal(t, []string{"Happy", "Sad", "Excited", "Calm", "Angry"}, model.MoodNames())
	moods := model.Moods()
	require.Len(t, moods, 5)
	assert.Equal(t, model.DefaultMood, moods[0])
	assert.Equal(t, model.MoodHappy, model.Mood(0))
}

func TestParseMood(t *testing.T) {
	m, err := model.ParseMood("  excited ")
	require.NoError(t, err)
	assert.Equal(t, model.MoodExcited, m)

	m, err = model.ParseMood("ANGRY")
	require.NoError(t, err)
	assert.Equal(t, model.MoodAngry, m)

	_, err = model.ParseMood("grumpy")
	assert.True(t, errors.Is(err, model.ErrInput))
}

func TestMoodText(t *testing.T) {
	var m model.Mood
	require.NoError(t, m.UnmarshalText([]byte("calm")))
	assert.Equal(t, model.MoodCalm, m)

	out, err := model.MoodSad.MarshalText()
	require.NoError(t, err)
	assert.Equal(t, "Sad", string(out))

	_, err = model.Mood(42).MarshalText()
	assert.Error(t, err)
	assert.False(t, model.Mood(-1).Valid())
}
