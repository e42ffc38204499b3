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

package extract

import (
	"bytes"
	"context"
	"fmt"
	"log/slog"
	"math"
	"os/exec"
	"strconv"
	"strings"

	"cloud.google.com/go/storage"
	"github.com/h2non/filetype"

	"github.com/jaycherian/gcp-go-video-caption/internal/core/model"
)

const DefaultFrameMIMEType = "image/jpeg"

// FFMpegOpener opens videos for frame extraction with the ffprobe and ffmpeg
// binaries. StorageClient is only needed for gs:// references.
type FFMpegOpener struct {
	FFMpegPath    string
	FFProbePath   string
	StorageClient *storage.Client
	TempDir       string
}

func NewFFMpegOpener(ffmpegPath, ffprobePath string, client *storage.Client, tempDir string) *FFMpegOpener {
	if ffmpegPath == "" {
		ffmpegPath = "ffmpeg"
	}
	if ffprobePath == "" {
		ffprobePath = "ffprobe"
	}
	return &FFMpegOpener{
		FFMpegPath:    ffmpegPath,
		FFProbePath:   ffprobePath,
		StorageClient: client,
		TempDir:       tempDir,
	}
}

// Open resolves the reference and probes its duration. A reference ffprobe
// cannot read is reported as model.ErrResource; a readable container without
// a usable duration opens with duration 0.
func (o *FFMpegOpener) Open(ctx context.Context, videoURI string) (Retriever, error) {
	src, err := resolve(ctx, o.StorageClient, o.TempDir, videoURI)
	if err != nil {
		return nil, err
	}

	cmd := exec.CommandContext(ctx, o.FFProbePath,
		"-v", "error",
		"-show_entries", "format=duration",
		"-of", "default=noprint_wrappers=1:nokey=1",
		src.path)
	var stdout, stderr bytes.Buffer
	cmd.Stdout = &stdout
	cmd.Stderr = &stderr

	if err := cmd.Run(); err != nil {
		_ = src.Close()
		if ctx.Err() != nil {
			return nil, ctx.Err()
		}
		return nil, fmt.Errorf("%w: ffprobe %s: %v: %s", model.ErrResource, videoURI, err, strings.TrimSpace(stderr.String()))
	}

	return &ffmpegRetriever{
		ffmpegPath: o.FFMpegPath,
		src:        src,
		durationMs: parseDurationMs(stdout.String()),
	}, nil
}

type ffmpegRetriever struct {
	ffmpegPath string
	src        *source
	durationMs int64
}

func (r *ffmpegRetriever) DurationMs() int64 {
	return r.durationMs
}

// FrameAt seeks on the input, which lands on the nearest preceding key frame,
// and pipes out one MJPEG image.
func (r *ffmpegRetriever) FrameAt(ctx context.Context, timeUs int64) ([]byte, string, error) {
	cmd := exec.CommandContext(ctx, r.ffmpegPath,
		"-hide_banner",
		"-loglevel", "error",
		"-noaccurate_seek",
		"-ss", formatSeek(timeUs),
		"-i", r.src.path,
		"-frames:v", "1",
		"-f", "image2pipe",
		"-vcodec", "mjpeg",
		"-")
	var stdout, stderr bytes.Buffer
	cmd.Stdout = &stdout
	cmd.Stderr = &stderr

	if err := cmd.Run(); err != nil {
		if ctx.Err() != nil {
			return nil, "", ctx.Err()
		}
		slog.DebugContext(ctx, "no frame extracted", "time_us", timeUs, "error", err, "stderr", strings.TrimSpace(stderr.String()))
		return nil, "", nil
	}
	if stdout.Len() == 0 {
		return nil, "", nil
	}

	data := stdout.Bytes()
	return data, detectMIME(data), nil
}

func (r *ffmpegRetriever) Close() error {
	return r.src.Close()
}

// formatSeek renders microseconds as the seconds value ffmpeg's -ss expects.
func formatSeek(timeUs int64) string {
	if timeUs < 0 {
		timeUs = 0
	}
	return fmt.Sprintf("%d.%06d", timeUs/1_000_000, timeUs%1_000_000)
}

// parseDurationMs reads ffprobe's duration in seconds. "N/A" and other
// unparsable output yield 0.
func parseDurationMs(out string) int64 {
	seconds, err := strconv.ParseFloat(strings.TrimSpace(out), 64)
	if err != nil || math.IsNaN(seconds) || math.IsInf(seconds, 0) || seconds <= 0 {
		return 0
	}
	return int64(seconds * 1000)
}

func detectMIME(data []byte) string {
	kind, err := filetype.Match(data)
	if err != nil || kind == filetype.Unknown {
		return DefaultFrameMIMEType
	}
	return kind.MIME.Value
}
