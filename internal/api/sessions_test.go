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

package api

import (
	"context"
	"testing"

	"github.com/zeebo/assert"

	"github.com/jaycherian/gcp-go-video-caption/internal/core/model"
)

func TestSessionRecordKeepsLatestValues(t *testing.T) {
	ctx := context.Background()
	store := NewSessionStore()
	rec := store.Create("/videos/clip.mp4")

	rec.Notify(ctx, model.ReasonMissingDescription)
	assert.Equal(t, "Please enter a description of the video", rec.View().Notice)

	rec.StateChanged(ctx, model.StateSampling)
	rec.ShowCaption(ctx, "first")
	rec.ShowCaption(ctx, "second")
	rec.ShowHashtag(ctx, "#one")

	view := rec.View()
	assert.Equal(t, "", view.Notice)
	assert.Equal(t, model.StateSampling, view.State)
	assert.Equal(t, "second", view.Caption)
	assert.Equal(t, "#one", view.Hashtag)
	assert.Equal(t, "/videos/clip.mp4", view.VideoURI)
}

func TestSessionRecordBroadcast(t *testing.T) {
	ctx := context.Background()
	store := NewSessionStore()
	rec := store.Create("/videos/clip.mp4")

	a, unsubscribeA := rec.Subscribe()
	b, _ := rec.Subscribe()

	rec.ShowCaption(ctx, "hello")
	assert.Equal(t, Event{Type: EventCaption, Caption: "hello"}, <-a)
	assert.Equal(t, Event{Type: EventCaption, Caption: "hello"}, <-b)

	unsubscribeA()
	_, open := <-a
	assert.False(t, open)

	rec.Notify(ctx, model.ReasonNoKeyFrames)
	assert.Equal(t, Event{Type: EventNotice, Reason: model.ReasonNoKeyFrames, Notice: "No keyframes extracted"}, <-b)

	assert.True(t, store.Delete(rec.Session.ID))
	_, open = <-b
	assert.False(t, open)
	assert.Equal(t, 0, store.Len())

	late, _ := rec.Subscribe()
	_, open = <-late
	assert.False(t, open)
}

func TestSessionRecordDropsForSlowSubscribers(t *testing.T) {
	rec := NewSessionStore().Create("/videos/clip.mp4")
	events, _ := rec.Subscribe()
	for i := 0; i < subscriberBuffer+5; i++ {
		rec.ShowHashtag(context.Background(), "#tag")
	}
	assert.Equal(t, subscriberBuffer, len(events))
}
