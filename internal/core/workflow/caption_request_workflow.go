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

package workflow

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"

	"github.com/jaycherian/gcp-go-video-caption/internal/cloud"
	"github.com/jaycherian/gcp-go-video-caption/internal/core/commands"
	"github.com/jaycherian/gcp-go-video-caption/internal/core/cor"
	"github.com/jaycherian/gcp-go-video-caption/internal/core/model"
)

// CaptionRequestWorkflow handles one queued caption request: it reads the
// JSON request, runs it through the orchestrator to a terminal state and
// leaves the JSON encoded model.RunResult under cloud.PublishParam.
type CaptionRequestWorkflow struct {
	cor.BaseCommand
	chain cor.Chain
}

func NewCaptionRequestWorkflow(orchestrator *Orchestrator) *CaptionRequestWorkflow {
	out := cor.NewBaseChain("caption-request-workflow")
	out.AddCommand(commands.NewCaptionRequestReader("read-caption-request"))
	out.AddCommand(&captionRunner{BaseCommand: *cor.NewBaseCommand("run-caption-request"), orchestrator: orchestrator})

	return &CaptionRequestWorkflow{
		BaseCommand: *cor.NewBaseCommand("caption-request-workflow"),
		chain:       out,
	}
}

func (w *CaptionRequestWorkflow) Execute(context cor.Context) {
	w.chain.Execute(context)
}

// captionRunner triggers a run for the session in CtxIn and blocks until it
// is terminal. If the surrounding context ends first the run is cancelled.
// A request refused by a closing orchestrator, or cut off because the
// receiver is stopping, is left for redelivery instead of being reported.
type captionRunner struct {
	cor.BaseCommand
	orchestrator *Orchestrator
}

func (c *captionRunner) Execute(context cor.Context) {
	session := context.Get(c.GetInputParam()).(*model.Session)
	ctx := context.GetContext()

	var result model.RunResult
	run, err := c.orchestrator.Trigger(ctx, session, LogPresenter{SessionID: session.ID})
	if errors.Is(err, ErrShuttingDown) {
		context.AddError(c.GetName(), fmt.Errorf("%w: %w", cloud.ErrRedeliver, err))
		return
	}
	if err != nil {
		reason := model.ReasonOf(err)
		result = model.RunResult{
			SessionID: session.ID,
			State:     model.StateIdle,
			Reason:    reason,
			Notice:    reason.Notice(),
			Error:     err.Error(),
		}
	} else {
		if err := run.Wait(ctx); err != nil {
			run.Cancel()
			<-run.Done()
			if interrupted(err) {
				context.AddError(c.GetName(), fmt.Errorf("%w: run %s interrupted: %w", cloud.ErrRedeliver, run.ID, err))
				return
			}
		}
		result = run.Result()
	}

	payload, merr := json.Marshal(result)
	if merr != nil {
		c.GetErrorCounter().Add(ctx, 1)
		context.AddError(c.GetName(), fmt.Errorf("failed to marshal caption result: %w", merr))
		return
	}
	context.Add(cloud.PublishParam, payload)

	if result.State != model.StateDone {
		c.GetErrorCounter().Add(ctx, 1)
		context.AddError(c.GetName(), model.NewFailure(result.Reason, fmt.Errorf("caption request ended %s", result.State)))
		return
	}
	c.GetSuccessCounter().Add(ctx, 1)
	context.Add(c.GetOutputParam(), result)
}

// interrupted separates a receiver that is stopping from a request that ran
// out of time. Only the former is worth redelivering.
func interrupted(err error) bool {
	return errors.Is(err, context.Canceled)
}
