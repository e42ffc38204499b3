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

package main

import (
	"context"
	"fmt"
	"log"
	"log/slog"
	"os"

	"github.com/jaycherian/gcp-go-video-caption/internal/cloud"
	"github.com/jaycherian/gcp-go-video-caption/internal/core/services"
	"github.com/jaycherian/gcp-go-video-caption/internal/core/workflow"
)

type StateManager struct {
	config       *cloud.Config
	cloud        *cloud.ServiceClients
	orchestrator *workflow.Orchestrator
	videoService *services.VideoService
}

var state = &StateManager{}

// SetupOS defaults the configuration directory and runtime unless the
// environment already names them.
func SetupOS() (err error) {
	if os.Getenv(cloud.EnvConfigFilePrefix) == "" {
		if err = os.Setenv(cloud.EnvConfigFilePrefix, "configs"); err != nil {
			return err
		}
	}
	if os.Getenv(cloud.EnvConfigRuntime) == "" {
		err = os.Setenv(cloud.EnvConfigRuntime, cloud.DefaultRuntime)
	}
	return err
}

func GetConfig() *cloud.Config {
	if state.config == nil {
		err := SetupOS()
		if err != nil {
			log.Fatalf("failed to setup os for configuration: %v\n", err)
		}
		config := cloud.NewConfig()
		if err = cloud.LoadConfig(config); err != nil {
			log.Fatalf("failed to load configuration: %v\n", err)
		}
		state.config = config
	}
	return state.config
}

// InitState connects the cloud clients and builds the orchestrator and the
// video service.
func InitState(ctx context.Context) error {
	config := GetConfig()

	cloudClients, err := cloud.NewCloudServiceClients(ctx, config)
	if err != nil {
		return err
	}
	state.cloud = cloudClients

	state.orchestrator, err = workflow.NewCaptionOrchestrator(config, cloudClients)
	if err != nil {
		cloudClients.Close()
		return fmt.Errorf("failed to build caption orchestrator: %w", err)
	}
	state.videoService = services.NewVideoService(config, cloudClients)
	return nil
}

// SetupListeners binds every configured subscription to the caption request
// workflow and starts receiving. The returned channels close once each
// receiver has stopped.
func SetupListeners(ctx context.Context) []<-chan struct{} {
	done := make([]<-chan struct{}, 0, len(state.cloud.PubSubListeners))
	for name, listener := range state.cloud.PubSubListeners {
		slog.Info("starting caption request listener", "subscription_key", name)
		listener.SetCommand(workflow.NewCaptionRequestWorkflow(state.orchestrator))
		done = append(done, listener.Listen(ctx))
	}
	return done
}
