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

// Command caption captions one video from the terminal: it samples key
// frames, asks Gemini for a caption in the chosen mood and then for a
// hashtag, printing both to stdout.
package main

import (
	"context"
	"fmt"
	"log/slog"
	"os"
	"os/signal"
	"strings"
	"syscall"
	"time"

	"github.com/spf13/cobra"

	"github.com/jaycherian/gcp-go-video-caption/internal/cloud"
	"github.com/jaycherian/gcp-go-video-caption/internal/core/model"
	"github.com/jaycherian/gcp-go-video-caption/internal/core/workflow"
	"github.com/jaycherian/gcp-go-video-caption/internal/telemetry"
)

var (
	videoURI    string
	description string
	moodLabel   string
	wait        time.Duration
	verbose     bool
)

func main() {
	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	if err := rootCmd.ExecuteContext(ctx); err != nil {
		os.Exit(1)
	}
}

var rootCmd = &cobra.Command{
	Use:          "caption",
	Short:        "Generate a caption and hashtag for a video",
	Long:         "Samples ten evenly spaced frames from a video and asks Gemini for a caption in the chosen mood, then for a matching hashtag.",
	SilenceUsage: true,
	RunE: func(cmd *cobra.Command, args []string) error {
		mood, err := model.ParseMood(moodLabel)
		if err != nil {
			return err
		}

		config, err := loadConfig()
		if err != nil {
			return err
		}
		level := telemetry.ParseLevel(config.Telemetry.LogLevel)
		if verbose {
			level = slog.LevelDebug
		}
		slog.SetDefault(telemetry.NewLogger(cmd.ErrOrStderr(), level))

		ctx := cmd.Context()
		orchestrator, closeClients, err := newOrchestrator(ctx, config)
		if err != nil {
			return err
		}
		defer closeClients()

		session := model.NewSession(videoURI)
		if err = session.SetMood(mood); err != nil {
			return err
		}
		session.SetDescription(description)

		presenter := NewConsolePresenter(cmd.OutOrStdout(), cmd.ErrOrStderr())
		if !session.HasVideo() {
			presenter.Notify(ctx, model.ReasonNoVideoLoaded)
		}
		return captionVideo(ctx, orchestrator, session, presenter, wait)
	},
}

var moodsCmd = &cobra.Command{
	Use:   "moods",
	Short: "List the selectable moods",
	Args:  cobra.NoArgs,
	Run: func(cmd *cobra.Command, args []string) {
		for _, m := range model.Moods() {
			marker := ""
			if m == model.DefaultMood {
				marker = " (default)"
			}
			fmt.Fprintf(cmd.OutOrStdout(), "%s%s\n", m, marker)
		}
	},
}

func init() {
	rootCmd.Flags().StringVar(&videoURI, "video", "", "video to caption: local path, file://, gs:// or http(s) URL")
	rootCmd.Flags().StringVar(&description, "description", "", "what happens in the video")
	rootCmd.Flags().StringVar(&moodLabel, "mood", model.DefaultMood.String(), "caption mood: "+strings.Join(model.MoodNames(), ", "))
	rootCmd.Flags().DurationVar(&wait, "wait", 5*time.Minute, "how long to wait for the result, 0 waits until interrupted")
	rootCmd.PersistentFlags().BoolVarP(&verbose, "verbose", "v", false, "verbose output")

	rootCmd.AddCommand(moodsCmd)
}

func loadConfig() (*cloud.Config, error) {
	if os.Getenv(cloud.EnvConfigFilePrefix) == "" {
		if err := os.Setenv(cloud.EnvConfigFilePrefix, "configs"); err != nil {
			return nil, err
		}
	}
	config := cloud.NewConfig()
	if err := cloud.LoadConfig(config); err != nil {
		return nil, err
	}
	return config, nil
}

// newOrchestrator connects only what a single local run needs: the genai
// client, plus Cloud Storage when the video lives in a bucket.
func newOrchestrator(ctx context.Context, config *cloud.Config) (*workflow.Orchestrator, func(), error) {
	clients := &cloud.ServiceClients{}
	var err error
	clients.GenAIClient, err = cloud.NewGenAIClient(ctx, config)
	if err != nil {
		return nil, nil, fmt.Errorf("failed to create genai client: %w", err)
	}
	clients.RegisterAgentModels(config)

	if cloud.IsGCSURI(videoURI) {
		clients.StorageClient, err = cloud.NewStorageClient(ctx, config)
		if err != nil {
			return nil, nil, err
		}
	}

	orchestrator, err := workflow.NewCaptionOrchestrator(config, clients)
	if err != nil {
		clients.Close()
		return nil, nil, err
	}
	return orchestrator, clients.Close, nil
}

// captionVideo triggers one run and blocks until it is terminal. If wait
// elapses or ctx ends first, the run is cancelled.
func captionVideo(ctx context.Context, orchestrator *workflow.Orchestrator, session *model.Session, presenter workflow.Presenter, wait time.Duration) error {
	run, err := orchestrator.Trigger(ctx, session, presenter)
	if err != nil {
		return err
	}

	waitCtx := ctx
	if wait > 0 {
		var cancel context.CancelFunc
		waitCtx, cancel = context.WithTimeout(ctx, wait)
		defer cancel()
	}
	if err = run.Wait(waitCtx); err != nil {
		run.Cancel()
		<-run.Done()
		return fmt.Errorf("stopped waiting for caption: %w", err)
	}

	result := run.Result()
	if result.State != model.StateDone {
		return fmt.Errorf("captioning failed: %s", result.Reason)
	}
	return nil
}
