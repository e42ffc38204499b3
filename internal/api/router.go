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

// Package api exposes captioning sessions over HTTP. A session plays the role
// of the caption screen: the client picks a video, edits the description and
// mood, triggers generation and follows the results on an event stream.
package api

import (
	"context"
	"io"

	"github.com/gin-contrib/cors"
	"github.com/gin-gonic/gin"
	"go.opentelemetry.io/contrib/instrumentation/github.com/gin-gonic/gin/otelgin"

	"github.com/jaycherian/gcp-go-video-caption/internal/cloud"
	"github.com/jaycherian/gcp-go-video-caption/internal/core/workflow"
)

const ServiceName = "video-caption-server"

// Videos is the storage side of the API: playback URLs and uploads.
type Videos interface {
	PlaybackURL(ctx context.Context, videoURI string) (string, error)
	Upload(ctx context.Context, in io.Reader) (*cloud.GCSObject, error)
}

// Server holds the dependencies shared by the handlers.
type Server struct {
	Sessions       *SessionStore
	Orchestrator   *workflow.Orchestrator
	Videos         Videos
	MaxUploadBytes int64
}

func NewServer(orchestrator *workflow.Orchestrator, videos Videos, maxUploadBytes int64) *Server {
	return &Server{
		Sessions:       NewSessionStore(),
		Orchestrator:   orchestrator,
		Videos:         videos,
		MaxUploadBytes: maxUploadBytes,
	}
}

// NewRouter builds the gin engine with tracing, CORS and the /api/v1 routes.
func NewRouter(s *Server) *gin.Engine {
	r := gin.New()
	r.Use(gin.Logger(), gin.Recovery())
	r.Use(otelgin.Middleware(ServiceName))
	r.Use(cors.Default())

	apiV1 := r.Group("/api/v1")
	{
		MoodRouter(apiV1)
		SessionRouter(apiV1, s)
		UploadRouter(apiV1, s)
		DashboardRouter(apiV1, s)
	}
	return r
}
