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

import (
	"fmt"
	"strings"
)

// Mood is the tone the generated caption and hashtag should carry. The set is
// closed; the zero value is MoodHappy, which is also the default selection.
type Mood int

const (
	MoodHappy Mood = iota
	MoodSad
	MoodExcited
	MoodCalm
	MoodAngry
)

// DefaultMood is the selection a new session starts with.
const DefaultMood = MoodHappy

var moodNames = [...]string{"Happy", "Sad", "Excited", "Calm", "Angry"}

// Moods returns every selectable mood in display order.
func Moods() []Mood {
	out := make([]Mood, len(moodNames))
	for i := range moodNames {
		out[i] = Mood(i)
	}
	return out
}

// MoodNames returns the display labels of Moods() in the same order.
func MoodNames() []string {
	out := make([]string, len(moodNames))
	copy(out, moodNames[:])
	return out
}

func (m Mood) String() string {
	if !m.Valid() {
		return fmt.Sprintf("Mood(%d)", int(m))
	}
	return moodNames[m]
}

// Valid reports whether m is one of the enumerated moods.
func (m Mood) Valid() bool {
	return m >= 0 && int(m) < len(moodNames)
}

// ParseMood resolves a label, ignoring case and surrounding whitespace.
func ParseMood(label string) (Mood, error) {
	trimmed := strings.TrimSpace(label)
	for i, name := range moodNames {
		if strings.EqualFold(name, trimmed) {
			return Mood(i), nil
		}
	}
	return DefaultMood, fmt.Errorf("%w: unknown mood %q", ErrInput, label)
}

func (m Mood) MarshalText() ([]byte, error) {
	if !m.Valid() {
		return nil, fmt.Errorf("%w: invalid mood %d", ErrInput, int(m))
	}
	return []byte(m.String()), nil
}

func (m *Mood) UnmarshalText(text []byte) error {
	parsed, err := ParseMood(string(text))
	if err != nil {
		return err
	}
	*m = parsed
	return nil
}
