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

// Package cor (Chain of Responsibility) provides the building blocks the
// captioning pipeline is assembled from. This file defines `BaseCommand`, the
// foundation every concrete command embeds.
//
// Embedding `BaseCommand` gives a command:
//   - A name used in logs and telemetry.
//   - A tracer, a meter and success and error counters.
//   - Default input and output keys (`CtxIn` and `CtxOut`) so the command
//     takes part in a `BaseChain`'s piping without extra wiring.
package cor

import (
	"fmt"
	"log/slog"

	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/metric"
	"go.opentelemetry.io/otel/trace"
)

// MeterName is the instrumentation scope shared by every command.
const MeterName = "github.com/jaycherian/gcp-go-video-caption"

// BaseCommand is the default implementation of the Command interface.
// Concrete commands embed it and supply Execute.
type BaseCommand struct {
	Name            string              // Identifies the command in logs and telemetry.
	InputParamName  string              // Context key of the primary input, CtxIn when empty.
	OutputParamName string              // Context key of the primary output, CtxOut when empty.
	Tracer          trace.Tracer        // Tracer named after the command.
	Meter           metric.Meter        // Meter shared by all commands.
	SuccessCounter  metric.Int64Counter // Incremented when Execute succeeds.
	ErrorCounter    metric.Int64Counter // Incremented when Execute records an error.
}

// NewBaseCommand is the constructor for BaseCommand. It sets up the command's
// instruments from the global OpenTelemetry providers. A counter that cannot
// be created is logged and left nil.
//
// Inputs:
//   - name: The command's name. Counters are named "<name>.counter.success"
//     and "<name>.counter.error".
//
// Outputs:
//   - *BaseCommand: The command, reading CtxIn and writing CtxOut.
func NewBaseCommand(name string) *BaseCommand {
	meter := otel.Meter(MeterName)

	successCounter, err := meter.Int64Counter(fmt.Sprintf("%s.counter.success", name))
	if err != nil {
		slog.Error("error creating success counter", "command", name, "error", err)
	}
	errorCounter, err := meter.Int64Counter(fmt.Sprintf("%s.counter.error", name))
	if err != nil {
		slog.Error("error creating error counter", "command", name, "error", err)
	}

	return &BaseCommand{
		Name:           name,
		Tracer:         otel.Tracer(name),
		Meter:          meter,
		SuccessCounter: successCounter,
		ErrorCounter:   errorCounter,
	}
}

func (c *BaseCommand) GetName() string {
	return c.Name
}

// IsExecutable is the default precondition: the context must carry a Go
// context and a value under the input key.
//
// Inputs:
//   - context: The chain's shared context.
//
// Outputs:
//   - bool: True when Execute can run.
func (c *BaseCommand) IsExecutable(context Context) bool {
	return context != nil && context.GetContext() != nil && context.Get(c.GetInputParam()) != nil
}

// GetInputParam defaults to CtxIn so the chain can pipe values.
func (c *BaseCommand) GetInputParam() string {
	if len(c.InputParamName) == 0 {
		return CtxIn
	}
	return c.InputParamName
}

// GetOutputParam defaults to CtxOut.
func (c *BaseCommand) GetOutputParam() string {
	if len(c.OutputParamName) == 0 {
		return CtxOut
	}
	return c.OutputParamName
}

func (c *BaseCommand) GetTracer() trace.Tracer {
	return c.Tracer
}

func (c *BaseCommand) GetMeter() metric.Meter {
	return c.Meter
}

func (c *BaseCommand) GetSuccessCounter() metric.Int64Counter {
	return c.SuccessCounter
}

func (c *BaseCommand) GetErrorCounter() metric.Int64Counter {
	return c.ErrorCounter
}
