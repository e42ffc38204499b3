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

package cloud

import (
	"context"
	"fmt"
	"log/slog"

	credentials "cloud.google.com/go/iam/credentials/apiv1"
	"cloud.google.com/go/pubsub"
	"cloud.google.com/go/storage"
	"google.golang.org/api/option"
	"google.golang.org/genai"
)

// ServiceClients bundles every external client the service talks to. Clients
// that are not configured are left nil.
type ServiceClients struct {
	StorageClient   *storage.Client
	PubsubClient    *pubsub.Client
	GenAIClient     *genai.Client
	IAMClient       *credentials.IamCredentialsClient
	PubSubListeners map[string]*PubSubListener
	AgentModels     map[string]*QuotaAwareGenerativeAIModel
}

func (c *ServiceClients) Close() {
	if c.StorageClient != nil {
		_ = c.StorageClient.Close()
	}
	if c.PubsubClient != nil {
		_ = c.PubsubClient.Close()
	}
	if c.IAMClient != nil {
		_ = c.IAMClient.Close()
	}
}

// Generator returns the configured model registered under name.
func (c *ServiceClients) Generator(name string) (*QuotaAwareGenerativeAIModel, error) {
	m, ok := c.AgentModels[name]
	if !ok {
		return nil, fmt.Errorf("no agent model configured with name %q", name)
	}
	return m, nil
}

// RegisterAgentModels wraps every model in config.AgentModels around the
// genai client. GenAIClient must be set.
func (c *ServiceClients) RegisterAgentModels(config *Config) {
	if c.AgentModels == nil {
		c.AgentModels = make(map[string]*QuotaAwareGenerativeAIModel)
	}
	for amKey, values := range config.AgentModels {
		slog.Debug("registering agent model", "key", amKey, "model", values.Model)
		c.AgentModels[amKey] = NewQuotaAwareModel(NewGenerateContentConfig(values), values.Model, c.GenAIClient.Models, values.RateLimit)
	}
}

// NewStorageClient connects to Cloud Storage with the configured credentials.
func NewStorageClient(ctx context.Context, config *Config) (*storage.Client, error) {
	client, err := storage.NewClient(ctx, clientOptions(config)...)
	if err != nil {
		return nil, fmt.Errorf("failed to create storage client: %w", err)
	}
	return client, nil
}

func clientOptions(config *Config) []option.ClientOption {
	if config.Application.CredentialsFile == "" {
		return nil
	}
	return []option.ClientOption{option.WithCredentialsFile(config.Application.CredentialsFile)}
}

// NewGenAIClient builds a genai client for the configured backend. The Gemini
// API backend needs an API key; Vertex AI uses the project and location.
func NewGenAIClient(ctx context.Context, config *Config) (*genai.Client, error) {
	cc := &genai.ClientConfig{}
	switch config.Application.Backend {
	case BackendVertexAI:
		cc.Backend = genai.BackendVertexAI
		cc.Project = config.Application.GoogleProjectId
		cc.Location = config.Application.GoogleLocation
	case BackendGeminiAPI, "":
		if config.Application.GeminiAPIKey == "" {
			return nil, fmt.Errorf("gemini backend selected but no API key configured")
		}
		cc.Backend = genai.BackendGeminiAPI
		cc.APIKey = config.Application.GeminiAPIKey
	default:
		return nil, fmt.Errorf("unknown generative backend %q", config.Application.Backend)
	}
	return genai.NewClient(ctx, cc)
}

// NewCloudServiceClients connects to the services named in config. Cloud
// Storage and IAM are always created; Pub/Sub only when subscriptions are
// configured.
func NewCloudServiceClients(ctx context.Context, config *Config) (cloud *ServiceClients, err error) {
	opts := clientOptions(config)

	cloud = &ServiceClients{
		PubSubListeners: make(map[string]*PubSubListener),
		AgentModels:     make(map[string]*QuotaAwareGenerativeAIModel),
	}
	defer func() {
		if err != nil {
			cloud.Close()
			cloud = nil
		}
	}()

	cloud.StorageClient, err = NewStorageClient(ctx, config)
	if err != nil {
		return cloud, err
	}

	cloud.IAMClient, err = credentials.NewIamCredentialsClient(ctx, opts...)
	if err != nil {
		return cloud, fmt.Errorf("failed to create iam credentials client: %w", err)
	}

	if len(config.TopicSubscriptions) > 0 {
		cloud.PubsubClient, err = pubsub.NewClient(ctx, config.Application.GoogleProjectId, opts...)
		if err != nil {
			return cloud, fmt.Errorf("failed to create pubsub client: %w", err)
		}
		for subKey, values := range config.TopicSubscriptions {
			listener, err := NewPubSubListener(cloud.PubsubClient, values, nil)
			if err != nil {
				return cloud, err
			}
			cloud.PubSubListeners[subKey] = listener
		}
	}

	cloud.GenAIClient, err = NewGenAIClient(ctx, config)
	if err != nil {
		return cloud, fmt.Errorf("failed to create genai client: %w", err)
	}

	cloud.RegisterAgentModels(config)

	return cloud, nil
}
