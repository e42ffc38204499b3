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

package cloud_test

import (
	"errors"
	"fmt"
	"testing"

	"github.com/zeebo/assert"

	"github.com/jaycherian/gcp-go-video-caption/internal/cloud"
	"github.com/jaycherian/gcp-go-video-caption/internal/core/cor"
)

func TestRedeliver(t *testing.T) {
	chCtx := cor.NewBaseContext()
	defer chCtx.Close()
	assert.False(t, cloud.Redeliver(chCtx))

	chCtx.AddError("parse", errors.New("bad json"))
	assert.False(t, cloud.Redeliver(chCtx))

	chCtx.AddError("run", fmt.Errorf("%w: closing", cloud.ErrRedeliver))
	assert.True(t, cloud.Redeliver(chCtx))
}
