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
	"context"
	"fmt"
	"io"
	"log/slog"
	"net/url"
	"os"
	"strings"

	"cloud.google.com/go/storage"
	"github.com/h2non/filetype"

	"github.com/jaycherian/gcp-go-video-caption/internal/cloud"
	"github.com/jaycherian/gcp-go-video-caption/internal/core/model"
)

const TempFilePrefix = "caption-video-"

// source is a reference ffmpeg can read directly, plus whatever must be
// released once the frames have been taken.
type source struct {
	path    string
	cleanup func() error
}

func (s *source) Close() error {
	if s.cleanup == nil {
		return nil
	}
	err := s.cleanup()
	s.cleanup = nil
	return err
}

// resolve turns a video reference into something ffmpeg can open. Local
// files must exist, gs:// objects are downloaded and http(s) URLs are passed
// through unchanged.
func resolve(ctx context.Context, client *storage.Client, tempDir string, videoURI string) (*source, error) {
	videoURI = strings.TrimSpace(videoURI)
	if videoURI == "" {
		return nil, fmt.Errorf("%w: empty video reference", model.ErrResource)
	}

	switch {
	case cloud.IsGCSURI(videoURI):
		return download(ctx, client, tempDir, videoURI)
	case strings.HasPrefix(videoURI, "http://"), strings.HasPrefix(videoURI, "https://"):
		return &source{path: videoURI}, nil
	case strings.HasPrefix(videoURI, "file://"):
		u, err := url.Parse(videoURI)
		if err != nil {
			return nil, fmt.Errorf("%w: %v", model.ErrResource, err)
		}
		return local(u.Path)
	default:
		return local(videoURI)
	}
}

func local(path string) (*source, error) {
	info, err := os.Stat(path)
	if err != nil {
		return nil, fmt.Errorf("%w: %v", model.ErrResource, err)
	}
	if info.IsDir() {
		return nil, fmt.Errorf("%w: %s is a directory", model.ErrResource, path)
	}
	return &source{path: path}, nil
}

// download copies a Cloud Storage object into a temp file which is removed
// when the source is closed.
func download(ctx context.Context, client *storage.Client, tempDir string, videoURI string) (*source, error) {
	if client == nil {
		return nil, fmt.Errorf("%w: no storage client for %s", model.ErrResource, videoURI)
	}
	obj, err := cloud.ParseGCSURI(videoURI)
	if err != nil {
		return nil, fmt.Errorf("%w: %v", model.ErrResource, err)
	}

	reader, err := client.Bucket(obj.Bucket).Object(obj.Name).NewReader(ctx)
	if err != nil {
		return nil, fmt.Errorf("%w: failed to create reader for %s: %v", model.ErrResource, videoURI, err)
	}
	defer func() {
		if err := reader.Close(); err != nil {
			slog.Warn("failed to close storage reader", "uri", videoURI, "error", err)
		}
	}()

	tempFile, err := os.CreateTemp(tempDir, TempFilePrefix)
	if err != nil {
		return nil, fmt.Errorf("%w: could not create temp file: %v", model.ErrResource, err)
	}
	remove := func() error { return os.Remove(tempFile.Name()) }

	written, err := io.Copy(tempFile, reader)
	_ = tempFile.Close()
	if err != nil {
		_ = remove()
		return nil, fmt.Errorf("%w: copied %d bytes of %s: %v", model.ErrResource, written, videoURI, err)
	}

	if err := checkVideo(tempFile.Name()); err != nil {
		_ = remove()
		return nil, err
	}

	slog.Debug("downloaded video", "uri", videoURI, "file", tempFile.Name(), "bytes", written)
	return &source{path: tempFile.Name(), cleanup: remove}, nil
}

// checkVideo sniffs the file header and rejects anything that is not a video
// container.
func checkVideo(path string) error {
	f, err := os.Open(path)
	if err != nil {
		return fmt.Errorf("%w: %v", model.ErrResource, err)
	}
	defer f.Close()

	head := make([]byte, 261)
	n, err := io.ReadFull(f, head)
	if err != nil && err != io.ErrUnexpectedEOF {
		return fmt.Errorf("%w: %v", model.ErrResource, err)
	}
	if !filetype.IsVideo(head[:n]) {
		return fmt.Errorf("%w: %s is not a video", model.ErrResource, path)
	}
	return nil
}
