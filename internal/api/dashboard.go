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

package api

import (
	"net/http"

	"github.com/gin-gonic/gin"
)

// DashboardRouter configures the statistics routes.
//
// GET /stats returns the number of open sessions and how many runs ended
// each way, keyed by outcome ("done" or a failure reason such as
// "no_key_frames").
func DashboardRouter(r *gin.RouterGroup, s *Server) {
	stats := r.Group("/stats")
	{
		stats.GET("", func(c *gin.Context) {
			c.JSON(http.StatusOK, gin.H{
				"sessions": s.Sessions.Len(),
				"runs":     s.Orchestrator.Stats(),
			})
		})
	}
}
