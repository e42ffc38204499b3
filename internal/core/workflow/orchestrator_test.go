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

package workflow_test

import (
	"context"
	"errors"
	"strings"
	"sync/atomic"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/jaycherian/gcp-go-video-caption/internal/core/commands"
	"github.com/jaycherian/gcp-go-video-caption/internal/core/model"
	"github.com/jaycherian/gcp-go-video-caption/internal/core/workflow"
	test "github.com/jaycherian/gcp-go-video-caption/internal/testutil"
)

const waitTimeout = 5 * time.Second

// splitGenerator answers image requests with caption and text-only requests
// with hashtag.
func splitGenerator(caption, hashtag string) *test.FakeGenerator {
	return &test.FakeGenerator{Respond: func(_ context.Context, _ string, images int) (string, error) {
		if images > 0 {
			return caption, nil
		}
		return hashtag, nil
	}}
}

func newOrchestrator(opener *test.FakeOpener, gen *test.FakeGenerator) *workflow.Orchestrator {
	return workflow.NewOrchestrator(
		commands.NewFrameSampler("sample-key-frames", opener, model.DefaultSampleCount),
		commands.NewCaptionRequester("generate-caption", gen, nil, 0),
		commands.NewHashtagRequester("generate-hashtag", gen, nil, 0),
	)
}

func readySession(description string) *model.Session {
	s := model.NewSession("/videos/clip.mp4")
	s.SetDescription(description)
	return s
}

func waitRun(t *testing.T, run *workflow.Run) model.RunResult {
	t.Helper()
	ctx, cancel := context.WithTimeout(context.Background(), waitTimeout)
	defer cancel()
	require.NoError(t, run.Wait(ctx))
	return run.Result()
}

func TestTriggerGate(t *testing.T) {
	cases := []struct {
		name    string
		session *model.Session
		notice  string
	}{
		{"missing video", func() *model.Session { s := model.NewSession(""); s.SetDescription("waves"); return s }(), "Please enter a description of the video"},
		{"blank description", readySession("   "), "Please enter a description of the video"},
		{"empty description", model.NewSession("/videos/clip.mp4"), "Please enter a description of the video"},
	}
	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			opener := &test.FakeOpener{DurationMs: 10_000}
			gen := splitGenerator("caption", "#tag")
			o := newOrchestrator(opener, gen)
			presenter := &test.RecordingPresenter{}

			run, err := o.Trigger(context.Background(), tc.session, presenter)

			assert.Nil(t, run)
			assert.ErrorIs(t, err, model.ErrInput)
			assert.Equal(t, []string{"notice:" + tc.notice}, presenter.Events())
			assert.Equal(t, 0, opener.Opened())
			assert.Equal(t, 0, gen.Calls())
		})
	}
}

func TestRunHappyPath(t *testing.T) {
	opener := &test.FakeOpener{DurationMs: 10_000}
	gen := splitGenerator("Sunset vibes with the crew", "#GoldenHour tonight")
	o := newOrchestrator(opener, gen)
	presenter := &test.RecordingPresenter{}

	session := readySession("friends watching the sunset")
	require.NoError(t, session.SetMood(model.MoodCalm))

	run, err := o.Trigger(context.Background(), session, presenter)
	require.NoError(t, err)
	result := waitRun(t, run)

	assert.Equal(t, model.StateDone, result.State)
	assert.Equal(t, "Sunset vibes with the crew", result.Caption)
	assert.Equal(t, "#GoldenHour", result.Hashtag)
	assert.Equal(t, 10, result.FrameCount)
	assert.Equal(t, model.ReasonNone, result.Reason)
	assert.Equal(t, []string{
		"state:sampling",
		"state:requesting_caption",
		"caption:Sunset vibes with the crew",
		"state:requesting_hashtag",
		"hashtag:#GoldenHour",
		"state:done",
	}, presenter.Events())

	requests := gen.Requests()
	require.Len(t, requests, 2)
	prompt, images := test.Describe(requests[0])
	assert.Equal(t, 10, images)
	assert.Equal(t, commands.BuildCaptionPrompt("friends watching the sunset", model.MoodCalm), prompt)
	prompt, images = test.Describe(requests[1])
	assert.Equal(t, 0, images)
	assert.Equal(t, commands.BuildHashtagPrompt("friends watching the sunset", model.MoodCalm), prompt)

	assert.Equal(t, opener.Opened(), opener.Closed())
	assert.Nil(t, o.Active(session.ID))
}

func TestRunUsesInputsAtTrigger(t *testing.T) {
	opener := &test.FakeOpener{DurationMs: 10_000}
	release := make(chan struct{})
	opener.Frame = func(context.Context, int64) ([]byte, error) {
		<-release
		return []byte{0xFF, 0xD8, 0xFF}, nil
	}
	gen := splitGenerator("caption", "#tag")
	o := newOrchestrator(opener, gen)

	session := readySession("first words")
	run, err := o.Trigger(context.Background(), session, &test.RecordingPresenter{})
	require.NoError(t, err)

	session.SetDescription("second words")
	require.NoError(t, session.SetMood(model.MoodAngry))
	close(release)
	waitRun(t, run)

	prompt, _ := test.Describe(gen.Requests()[0])
	assert.Equal(t, commands.BuildCaptionPrompt("first words", model.MoodHappy), prompt)
}

func TestRunNoKeyFrames(t *testing.T) {
	for name, opener := range map[string]*test.FakeOpener{
		"no frames decoded": {DurationMs: 10_000, Frame: func(context.Context, int64) ([]byte, error) { return nil, nil }},
		"cannot open":       {OpenErr: errors.New("unsupported codec")},
	} {
		t.Run(name, func(t *testing.T) {
			gen := splitGenerator("caption", "#tag")
			o := newOrchestrator(opener, gen)
			presenter := &test.RecordingPresenter{}

			run, err := o.Trigger(context.Background(), readySession("a quiet street"), presenter)
			require.NoError(t, err)
			result := waitRun(t, run)

			assert.Equal(t, model.StateFailed, result.State)
			assert.Equal(t, model.ReasonNoKeyFrames, result.Reason)
			assert.Equal(t, "No keyframes extracted", result.Notice)
			assert.Equal(t, []string{"state:sampling", "state:failed", "notice:No keyframes extracted"}, presenter.Events())
			assert.Equal(t, 0, gen.Calls())
			assert.Equal(t, opener.Opened(), opener.Closed())
		})
	}
}

func TestRunCaptionFailureSkipsHashtag(t *testing.T) {
	for name, gen := range map[string]*test.FakeGenerator{
		"empty":     splitGenerator("", "#tag"),
		"transport": test.FailingGenerator(errors.New("503 unavailable")),
	} {
		t.Run(name, func(t *testing.T) {
			o := newOrchestrator(&test.FakeOpener{DurationMs: 3_000}, gen)
			presenter := &test.RecordingPresenter{}

			run, err := o.Trigger(context.Background(), readySession("a parade"), presenter)
			require.NoError(t, err)
			result := waitRun(t, run)

			assert.Equal(t, model.StateFailed, result.State)
			assert.Equal(t, model.ReasonCaptionFailed, result.Reason)
			assert.Equal(t, []string{
				"state:sampling",
				"state:requesting_caption",
				"state:failed",
				"notice:Failed to generate captions",
			}, presenter.Events())
			assert.Equal(t, 1, gen.Calls())
			assert.Empty(t, result.Caption)
			assert.Empty(t, result.Hashtag)
		})
	}
}

func TestRunEmptyHashtagStillDone(t *testing.T) {
	o := newOrchestrator(&test.FakeOpener{DurationMs: 3_000}, splitGenerator("A caption", " "))
	presenter := &test.RecordingPresenter{}

	run, err := o.Trigger(context.Background(), readySession("a parade"), presenter)
	require.NoError(t, err)
	result := waitRun(t, run)

	assert.Equal(t, model.StateDone, result.State)
	assert.Equal(t, "", result.Hashtag)
	events := presenter.Events()
	assert.Equal(t, "hashtag:", events[len(events)-2])
	assert.Equal(t, "state:done", events[len(events)-1])
}

func TestRetriggerCancelsPreviousRun(t *testing.T) {
	opener := &test.FakeOpener{DurationMs: 10_000}
	var calls atomic.Int32
	started := make(chan struct{})
	gen := &test.FakeGenerator{Respond: func(ctx context.Context, _ string, images int) (string, error) {
		if images > 0 && calls.Add(1) == 1 {
			close(started)
			<-ctx.Done()
			return "", ctx.Err()
		}
		if images > 0 {
			return "second caption", nil
		}
		return "#second", nil
	}}
	o := newOrchestrator(opener, gen)
	session := readySession("a marathon")

	firstPresenter := &test.RecordingPresenter{}
	first, err := o.Trigger(context.Background(), session, firstPresenter)
	require.NoError(t, err)
	<-started

	secondPresenter := &test.RecordingPresenter{}
	second, err := o.Trigger(context.Background(), session, secondPresenter)
	require.NoError(t, err)

	firstResult := waitRun(t, first)
	secondResult := waitRun(t, second)

	assert.Equal(t, model.StateFailed, firstResult.State)
	assert.Equal(t, model.ReasonCancelled, firstResult.Reason)
	assert.Equal(t, []string{"state:sampling", "state:requesting_caption"}, firstPresenter.Events())

	assert.Equal(t, model.StateDone, secondResult.State)
	assert.Equal(t, "second caption", secondResult.Caption)
	assert.Equal(t, "#second", secondResult.Hashtag)
	assert.Equal(t, "state:sampling", secondPresenter.Events()[0])

	assert.Equal(t, 2, opener.Opened())
	assert.Equal(t, 2, opener.Closed())
}

func TestSessionsRunIndependently(t *testing.T) {
	opener := &test.FakeOpener{DurationMs: 2_000}
	gen := &test.FakeGenerator{Respond: func(_ context.Context, prompt string, images int) (string, error) {
		if images == 0 {
			return "#tag", nil
		}
		if strings.Contains(prompt, "alpha") {
			return "alpha caption", nil
		}
		return "beta caption", nil
	}}
	o := newOrchestrator(opener, gen)

	a, err := o.Trigger(context.Background(), readySession("alpha"), nil)
	require.NoError(t, err)
	b, err := o.Trigger(context.Background(), readySession("beta"), nil)
	require.NoError(t, err)

	assert.Equal(t, "alpha caption", waitRun(t, a).Caption)
	assert.Equal(t, "beta caption", waitRun(t, b).Caption)
}

func TestCancelAndShutdown(t *testing.T) {
	o := newOrchestrator(&test.FakeOpener{DurationMs: 2_000}, test.BlockingGenerator())
	session := readySession("a long wait")

	run, err := o.Trigger(context.Background(), session, &test.RecordingPresenter{})
	require.NoError(t, err)

	ctx, cancel := context.WithTimeout(context.Background(), waitTimeout)
	defer cancel()
	require.NoError(t, o.Cancel(ctx, session.ID))
	assert.Equal(t, model.ReasonCancelled, run.Result().Reason)

	other, err := o.Trigger(context.Background(), readySession("another wait"), nil)
	require.NoError(t, err)
	require.NoError(t, o.Shutdown(ctx))
	assert.Equal(t, model.StateFailed, other.Result().State)
	assert.Equal(t, model.ReasonCancelled, other.Result().Reason)

	_, err = o.Trigger(context.Background(), readySession("too late"), nil)
	assert.ErrorIs(t, err, workflow.ErrShuttingDown)
}

func TestStatsByOutcome(t *testing.T) {
	o := newOrchestrator(&test.FakeOpener{DurationMs: 1_000}, splitGenerator("caption", "#tag"))

	run, err := o.Trigger(context.Background(), readySession("stats"), nil)
	require.NoError(t, err)
	waitRun(t, run)
	_, err = o.Trigger(context.Background(), model.NewSession(""), nil)
	require.Error(t, err)

	assert.Equal(t, []workflow.OutcomeCount{
		{Outcome: "done", Count: 1},
		{Outcome: "missing_video", Count: 1},
	}, o.Stats())
}
