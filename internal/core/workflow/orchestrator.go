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

// Package workflow drives the captioning state machine: sample key frames,
// request a caption, present it, request a hashtag, present it.
package workflow

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"sort"
	"sync"

	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/metric"

	"github.com/jaycherian/gcp-go-video-caption/internal/cloud"
	"github.com/jaycherian/gcp-go-video-caption/internal/core/commands"
	"github.com/jaycherian/gcp-go-video-caption/internal/core/cor"
	"github.com/jaycherian/gcp-go-video-caption/internal/core/extract"
	"github.com/jaycherian/gcp-go-video-caption/internal/core/model"
)

const (
	runParam         = "__RUN__"
	OutcomeDone      = "done"
	OrchestratorName = "caption-orchestrator"
)

var ErrShuttingDown = errors.New("orchestrator is shutting down")

// Orchestrator runs the captioning pipeline for sessions. Each session has at
// most one run in flight: a new trigger cancels the previous run of the same
// session and waits for it to release its resources before starting. Runs of
// different sessions are independent.
type Orchestrator struct {
	chain      cor.Chain
	runCounter metric.Int64Counter

	mu       sync.Mutex
	inflight map[string]*Run
	closed   bool
	wg       sync.WaitGroup

	statsMu sync.Mutex
	stats   map[string]int64
}

// NewOrchestrator assembles the pipeline from its three stages.
func NewOrchestrator(sampler cor.Command, captioner cor.Command, hashtagger cor.Command) *Orchestrator {
	chain := cor.NewBaseChain(OrchestratorName + "-chain")
	chain.AddCommand(&stage{Command: sampler, state: model.StateSampling, present: presentFrames})
	chain.AddCommand(&stage{Command: captioner, state: model.StateRequestingCaption, present: presentCaption})
	chain.AddCommand(&stage{Command: hashtagger, state: model.StateRequestingHashtag, present: presentHashtag})

	runCounter, err := otel.Meter(cor.MeterName).Int64Counter(fmt.Sprintf("%s.runs", OrchestratorName))
	if err != nil {
		slog.Error("error creating run counter", "error", err)
	}

	return &Orchestrator{
		chain:      chain,
		runCounter: runCounter,
		inflight:   make(map[string]*Run),
		stats:      make(map[string]int64),
	}
}

// NewCaptionOrchestrator wires the ffmpeg sampler and the configured Gemini
// models into an Orchestrator.
func NewCaptionOrchestrator(config *cloud.Config, serviceClients *cloud.ServiceClients) (*Orchestrator, error) {
	captionModel, err := serviceClients.Generator(config.Captioning.CaptionModel)
	if err != nil {
		return nil, err
	}
	hashtagModel, err := serviceClients.Generator(config.Captioning.HashtagModel)
	if err != nil {
		return nil, err
	}
	captionTemplate, err := commands.NewPromptTemplate("caption", config.PromptTemplates.CaptionPrompt, commands.DefaultCaptionPrompt)
	if err != nil {
		return nil, err
	}
	hashtagTemplate, err := commands.NewPromptTemplate("hashtag", config.PromptTemplates.HashtagPrompt, commands.DefaultHashtagPrompt)
	if err != nil {
		return nil, err
	}

	opener := extract.NewFFMpegOpener(
		config.Captioning.FFMpegCommand,
		config.Captioning.FFProbeCommand,
		serviceClients.StorageClient,
		config.Storage.DownloadDirectory)

	return NewOrchestrator(
		commands.NewFrameSampler("sample-key-frames", opener, config.Captioning.SampleCount),
		commands.NewCaptionRequester("generate-caption", captionModel, captionTemplate, config.Captioning.RequestTimeout),
		commands.NewHashtagRequester("generate-hashtag", hashtagModel, hashtagTemplate, config.Captioning.RequestTimeout),
	), nil
}

// Trigger validates the session's inputs and, when they are complete, starts
// a run in the background and returns it immediately. Missing inputs are
// reported to the presenter and returned as a *model.Failure wrapping
// model.ErrInput; no run is started and nothing is extracted or requested.
//
// The run outlives ctx: only Cancel, a later Trigger for the same session or
// Shutdown stop it. Values carried by ctx, such as the active span, are kept.
func (o *Orchestrator) Trigger(ctx context.Context, session *model.Session, presenter Presenter) (*Run, error) {
	if presenter == nil {
		presenter = LogPresenter{SessionID: session.ID}
	}

	snap := session.Snapshot()
	if err := snap.Validate(); err != nil {
		reason := model.ReasonOf(err)
		o.record(ctx, reason.String())
		presenter.Notify(ctx, reason)
		return nil, err
	}

	o.mu.Lock()
	if o.closed {
		o.mu.Unlock()
		return nil, ErrShuttingDown
	}
	previous := o.inflight[snap.SessionID]
	runCtx, cancel := context.WithCancel(context.WithoutCancel(ctx))
	run := newRun(runCtx, cancel, snap, presenter)
	o.inflight[snap.SessionID] = run
	o.wg.Add(1)
	o.mu.Unlock()

	if previous != nil {
		slog.InfoContext(ctx, "restarting caption run", "session", snap.SessionID, "cancelled_run", previous.ID, "run", run.ID)
		previous.Cancel()
	}

	go o.execute(run, previous)
	return run, nil
}

func (o *Orchestrator) execute(run *Run, previous *Run) {
	defer o.wg.Done()
	defer close(run.done)
	defer o.release(run)
	defer run.cancel()

	if previous != nil {
		<-previous.done
	}

	chCtx := cor.NewBaseContext()
	defer chCtx.Close()
	chCtx.SetContext(run.ctx)
	chCtx.Add(cor.CtxIn, run.snapshot)
	chCtx.Add(commands.SnapshotParam, run.snapshot)
	chCtx.Add(runParam, run)

	if run.live() {
		o.chain.Execute(chCtx)
	}

	reason := run.finish(chCtx)
	outcome := OutcomeDone
	if reason != model.ReasonNone {
		outcome = reason.String()
	}
	o.record(context.WithoutCancel(run.ctx), outcome)

	result := run.Result()
	slog.InfoContext(run.ctx, "caption run finished",
		"session", run.SessionID,
		"run", run.ID,
		"state", result.State.String(),
		"reason", result.Reason.String(),
		"frames", result.FrameCount)
}

func (o *Orchestrator) release(run *Run) {
	o.mu.Lock()
	defer o.mu.Unlock()
	if o.inflight[run.SessionID] == run {
		delete(o.inflight, run.SessionID)
	}
}

// Active returns the in-flight run of a session, if any.
func (o *Orchestrator) Active(sessionID string) *Run {
	o.mu.Lock()
	defer o.mu.Unlock()
	return o.inflight[sessionID]
}

// Cancel stops the session's in-flight run and waits for it to finish.
func (o *Orchestrator) Cancel(ctx context.Context, sessionID string) error {
	run := o.Active(sessionID)
	if run == nil {
		return nil
	}
	run.Cancel()
	return run.Wait(ctx)
}

// Shutdown refuses new triggers, cancels every in-flight run and waits for
// all of them to finish or for ctx to end.
func (o *Orchestrator) Shutdown(ctx context.Context) error {
	o.mu.Lock()
	o.closed = true
	for _, run := range o.inflight {
		run.Cancel()
	}
	o.mu.Unlock()

	finished := make(chan struct{})
	go func() {
		o.wg.Wait()
		close(finished)
	}()
	select {
	case <-finished:
		return nil
	case <-ctx.Done():
		return ctx.Err()
	}
}

func (o *Orchestrator) record(ctx context.Context, outcome string) {
	if o.runCounter != nil {
		o.runCounter.Add(ctx, 1, metric.WithAttributes(attribute.String("outcome", outcome)))
	}
	o.statsMu.Lock()
	o.stats[outcome]++
	o.statsMu.Unlock()
}

// OutcomeCount is the number of runs or triggers that ended one way.
type OutcomeCount struct {
	Outcome string `json:"outcome"`
	Count   int64  `json:"count"`
}

// Stats returns per-outcome counts sorted by outcome name. Outcomes are
// "done" or a model.Reason name.
func (o *Orchestrator) Stats() []OutcomeCount {
	o.statsMu.Lock()
	defer o.statsMu.Unlock()
	out := make([]OutcomeCount, 0, len(o.stats))
	for k, v := range o.stats {
		out = append(out, OutcomeCount{Outcome: k, Count: v})
	}
	sort.Slice(out, func(i, j int) bool { return out[i].Outcome < out[j].Outcome })
	return out
}
