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

// Package cloud holds configuration and the Google Cloud clients used by the
// captioning service: Cloud Storage, Pub/Sub, IAM credentials and the
// generative model endpoints reached through google.golang.org/genai.
package cloud

import (
	"time"

	"google.golang.org/genai"
)

// DefaultSafetySettings relaxes the Gemini safety filters so that ordinary
// home videos are not refused. Captions are still reviewed by the user.
var DefaultSafetySettings = []*genai.SafetySetting{
	{
		Category:  genai.HarmCategoryDangerousContent,
		Threshold: genai.HarmBlockThresholdBlockNone,
	},
	{
		Category:  genai.HarmCategoryHarassment,
		Threshold: genai.HarmBlockThresholdBlockNone,
	},
	{
		Category:  genai.HarmCategoryHateSpeech,
		Threshold: genai.HarmBlockThresholdBlockNone,
	},
	{
		Category:  genai.HarmCategorySexuallyExplicit,
		Threshold: genai.HarmBlockThresholdBlockNone,
	},
}

const (
	BackendGeminiAPI = "gemini"
	BackendVertexAI  = "vertex"
)

// PromptTemplates are text/template sources rendered with the fields
// Mood and Description.
type PromptTemplates struct {
	CaptionPrompt string `toml:"caption"`
	HashtagPrompt string `toml:"hashtag"`
}

// GenerativeModel describes one configured Gemini model.
type GenerativeModel struct {
	Model              string  `toml:"model"`
	SystemInstructions string  `toml:"system_instructions"`
	Temperature        float32 `toml:"temperature"`
	TopP               float32 `toml:"top_p"`
	TopK               float32 `toml:"top_k"`
	MaxTokens          int32   `toml:"max_tokens"`
	OutputFormat       string  `toml:"output_format"`
	RateLimit          int     `toml:"rate_limit"` // requests per second, 0 disables pacing
}

type TopicSubscription struct {
	Name             string `toml:"name"`
	ResultTopic      string `toml:"result_topic"` // optional topic receiving the run outcome
	TimeoutInSeconds int    `toml:"timeout_in_seconds"`
}

type Storage struct {
	UploadBucket      string `toml:"upload_bucket" env:"CAPTION_UPLOAD_BUCKET"`
	SignedURLMinutes  int    `toml:"signed_url_minutes"`
	DownloadDirectory string `toml:"download_directory"` // temp dir for gs:// videos, empty uses os.TempDir
	MaxUploadBytes    int64  `toml:"max_upload_bytes"`
}

type Captioning struct {
	SampleCount    int      `toml:"sample_count"`
	RequestTimeout Duration `toml:"request_timeout"`
	CaptionModel   string   `toml:"caption_model"` // key into AgentModels
	HashtagModel   string   `toml:"hashtag_model"` // key into AgentModels
	FFMpegCommand  string   `toml:"ffmpeg_command" env:"FFMPEG_COMMAND"`
	FFProbeCommand string   `toml:"ffprobe_command" env:"FFPROBE_COMMAND"`
}

type Telemetry struct {
	Enabled  bool   `toml:"enabled" env:"CAPTION_TELEMETRY_ENABLED"`
	LogFile  string `toml:"log_file"`
	LogLevel string `toml:"log_level" env:"CAPTION_LOG_LEVEL"`
}

type Config struct {
	Application struct {
		Name                      string   `toml:"name"`
		GoogleProjectId           string   `toml:"google_project_id" env:"GOOGLE_CLOUD_PROJECT"`
		GoogleLocation            string   `toml:"location" env:"GOOGLE_CLOUD_LOCATION"`
		Backend                   string   `toml:"backend" env:"CAPTION_GENAI_BACKEND"`
		GeminiAPIKey              string   `toml:"gemini_api_key" env:"GEMINI_API_KEY"`
		CredentialsFile           string   `toml:"credentials_file" env:"GOOGLE_APPLICATION_CREDENTIALS"`
		SignerServiceAccountEmail string   `toml:"signer_service_account_email" env:"CAPTION_SIGNER_EMAIL"`
		HTTPAddr                  string   `toml:"http_addr" env:"CAPTION_HTTP_ADDR"`
		ShutdownTimeout           Duration `toml:"shutdown_timeout"`
	} `toml:"application"`
	Storage            Storage                      `toml:"storage"`
	Captioning         Captioning                   `toml:"captioning"`
	PromptTemplates    PromptTemplates              `toml:"prompt_templates"`
	TopicSubscriptions map[string]TopicSubscription `toml:"topic_subscriptions"`
	AgentModels        map[string]GenerativeModel   `toml:"agent_models"`
	Telemetry          Telemetry                    `toml:"telemetry"`
}

// NewConfig returns a Config populated with defaults that the TOML files and
// environment may override.
func NewConfig() *Config {
	c := &Config{
		TopicSubscriptions: make(map[string]TopicSubscription),
		AgentModels:        make(map[string]GenerativeModel),
	}
	c.Application.Name = "video-caption"
	c.Application.Backend = BackendGeminiAPI
	c.Application.HTTPAddr = ":8080"
	c.Application.ShutdownTimeout = Duration(5 * time.Second)
	c.Storage.SignedURLMinutes = 60
	c.Storage.MaxUploadBytes = 512 << 20
	c.Captioning.SampleCount = 10
	c.Captioning.RequestTimeout = Duration(60 * time.Second)
	c.Captioning.CaptionModel = "caption-flash"
	c.Captioning.HashtagModel = "caption-flash"
	c.Captioning.FFMpegCommand = "ffmpeg"
	c.Captioning.FFProbeCommand = "ffprobe"
	c.Telemetry.LogLevel = "info"
	return c
}

// Duration decodes TOML strings such as "45s" into a time.Duration.
type Duration time.Duration

func (d *Duration) UnmarshalText(text []byte) error {
	parsed, err := time.ParseDuration(string(text))
	if err != nil {
		return err
	}
	*d = Duration(parsed)
	return nil
}

func (d Duration) MarshalText() ([]byte, error) {
	return []byte(time.Duration(d).String()), nil
}

func (d Duration) Std() time.Duration {
	return time.Duration(d)
}
