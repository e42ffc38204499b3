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
	"errors"
	"io"
	"log/slog"
	"net/http"

	"github.com/gin-gonic/gin"

	"github.com/jaycherian/gcp-go-video-caption/internal/core/model"
	"github.com/jaycherian/gcp-go-video-caption/internal/core/services"
	"github.com/jaycherian/gcp-go-video-caption/internal/core/workflow"
)

type createSessionRequest struct {
	VideoURI string `json:"video_uri"`
}

// sessionUpdate carries the editable inputs. Absent fields are left as they
// are.
type sessionUpdate struct {
	Mood        *string `json:"mood"`
	Description *string `json:"description"`
}

func (u sessionUpdate) apply(session *model.Session) error {
	if u.Mood != nil {
		mood, err := model.ParseMood(*u.Mood)
		if err != nil {
			return err
		}
		if err = session.SetMood(mood); err != nil {
			return err
		}
	}
	if u.Description != nil {
		session.SetDescription(*u.Description)
	}
	return nil
}

// bindOptionalJSON decodes the body into obj; an empty body is not an error.
func bindOptionalJSON(c *gin.Context, obj interface{}) error {
	if err := c.ShouldBindJSON(obj); err != nil && !errors.Is(err, io.EOF) {
		return err
	}
	return nil
}

func badRequest(c *gin.Context, err error) {
	c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
}

// MoodRouter lists the selectable moods.
func MoodRouter(r *gin.RouterGroup) {
	r.GET("/moods", func(c *gin.Context) {
		c.JSON(http.StatusOK, gin.H{
			"moods":   model.MoodNames(),
			"default": model.DefaultMood,
		})
	})
}

// SessionRouter sets up the routes for opening, editing, triggering and
// following captioning sessions.
func SessionRouter(r *gin.RouterGroup, s *Server) {
	sessions := r.Group("/sessions")
	{
		sessions.POST("", func(c *gin.Context) {
			var req createSessionRequest
			if err := bindOptionalJSON(c, &req); err != nil {
				badRequest(c, err)
				return
			}
			rec := s.Sessions.Create(req.VideoURI)
			if !rec.Session.HasVideo() {
				rec.Notify(c.Request.Context(), model.ReasonNoVideoLoaded)
			}
			c.JSON(http.StatusCreated, rec.View())
		})

		sessions.GET("/:id", func(c *gin.Context) {
			rec, ok := s.lookup(c)
			if !ok {
				return
			}
			c.JSON(http.StatusOK, rec.View())
		})

		sessions.PATCH("/:id", func(c *gin.Context) {
			rec, ok := s.lookup(c)
			if !ok {
				return
			}
			var req sessionUpdate
			if err := bindOptionalJSON(c, &req); err != nil {
				badRequest(c, err)
				return
			}
			if err := req.apply(rec.Session); err != nil {
				badRequest(c, err)
				return
			}
			c.JSON(http.StatusOK, rec.View())
		})

		sessions.DELETE("/:id", func(c *gin.Context) {
			id := c.Param("id")
			if _, ok := s.Sessions.Get(id); !ok {
				c.Status(http.StatusNotFound)
				return
			}
			if err := s.Orchestrator.Cancel(c.Request.Context(), id); err != nil {
				slog.WarnContext(c.Request.Context(), "cancelled run did not finish", "session", id, "error", err)
			}
			s.Sessions.Delete(id)
			c.Status(http.StatusNoContent)
		})

		sessions.POST("/:id/generate", func(c *gin.Context) {
			rec, ok := s.lookup(c)
			if !ok {
				return
			}
			var req sessionUpdate
			if err := bindOptionalJSON(c, &req); err != nil {
				badRequest(c, err)
				return
			}
			if err := req.apply(rec.Session); err != nil {
				badRequest(c, err)
				return
			}

			run, err := s.Orchestrator.Trigger(c.Request.Context(), rec.Session, rec)
			if errors.Is(err, workflow.ErrShuttingDown) {
				c.JSON(http.StatusServiceUnavailable, gin.H{"error": err.Error()})
				return
			}
			if err != nil {
				reason := model.ReasonOf(err)
				c.JSON(http.StatusBadRequest, gin.H{
					"error":  err.Error(),
					"reason": reason,
					"notice": reason.Notice(),
				})
				return
			}
			rec.setRun(run.ID)
			c.JSON(http.StatusAccepted, gin.H{"run_id": run.ID, "session_id": run.SessionID})
		})

		sessions.GET("/:id/events", func(c *gin.Context) {
			rec, ok := s.lookup(c)
			if !ok {
				return
			}
			events, unsubscribe := rec.Subscribe()
			defer unsubscribe()

			ctx := c.Request.Context()
			sentView := false
			c.Stream(func(w io.Writer) bool {
				if !sentView {
					sentView = true
					c.SSEvent("session", rec.View())
					return true
				}
				select {
				case ev, open := <-events:
					if !open {
						return false
					}
					c.SSEvent(ev.Type, ev)
					return true
				case <-ctx.Done():
					return false
				}
			})
		})

		sessions.GET("/:id/stream", func(c *gin.Context) {
			rec, ok := s.lookup(c)
			if !ok {
				return
			}
			if !rec.Session.HasVideo() {
				c.JSON(http.StatusNotFound, gin.H{"error": model.ReasonNoVideoLoaded.Notice()})
				return
			}
			url, err := s.Videos.PlaybackURL(c.Request.Context(), rec.Session.VideoURI())
			if errors.Is(err, services.ErrNotStreamable) || errors.Is(err, model.ErrInput) {
				c.JSON(http.StatusUnprocessableEntity, gin.H{"error": err.Error()})
				return
			}
			if err != nil {
				slog.ErrorContext(c.Request.Context(), "could not generate streaming url", "session", rec.Session.ID, "error", err)
				c.JSON(http.StatusInternalServerError, gin.H{"error": "Could not generate streaming URL"})
				return
			}
			c.JSON(http.StatusOK, gin.H{"url": url})
		})
	}
}

func (s *Server) lookup(c *gin.Context) (*SessionRecord, bool) {
	rec, ok := s.Sessions.Get(c.Param("id"))
	if !ok {
		c.JSON(http.StatusNotFound, gin.H{"error": "session not found"})
	}
	return rec, ok
}

// UploadRouter sets up the route that stores a new video in the upload
// bucket. The multipart field is "file".
func UploadRouter(r *gin.RouterGroup, s *Server) {
	upload := r.Group("/uploads")
	{
		upload.POST("", func(c *gin.Context) {
			file, err := c.FormFile("file")
			if err != nil {
				c.String(http.StatusBadRequest, "get form err: %s", err.Error())
				return
			}
			if s.MaxUploadBytes > 0 && file.Size > s.MaxUploadBytes {
				c.JSON(http.StatusRequestEntityTooLarge, gin.H{"error": "video is too large"})
				return
			}
			in, err := file.Open()
			if err != nil {
				c.String(http.StatusBadRequest, "upload file err: %s", err.Error())
				return
			}
			defer in.Close()

			obj, err := s.Videos.Upload(c.Request.Context(), in)
			switch {
			case errors.Is(err, services.ErrNotVideo):
				c.JSON(http.StatusUnsupportedMediaType, gin.H{"error": err.Error()})
				return
			case errors.Is(err, services.ErrNoBucket):
				c.JSON(http.StatusServiceUnavailable, gin.H{"error": err.Error()})
				return
			case err != nil:
				slog.ErrorContext(c.Request.Context(), "failed to store upload", "file", file.Filename, "error", err)
				c.JSON(http.StatusInternalServerError, gin.H{"error": "failed to store video"})
				return
			}
			c.JSON(http.StatusCreated, gin.H{"video_uri": obj.URI(), "mime_type": obj.MIMEType})
		})
	}
}
