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

// Package services contains the video-facing operations used by the HTTP
// layer: turning a video reference into something a player can stream, and
// storing uploaded videos in Cloud Storage.
package services

import (
	"bufio"
	"context"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"strings"
	"time"

	credentials "cloud.google.com/go/iam/credentials/apiv1"
	"cloud.google.com/go/iam/credentials/apiv1/credentialspb"
	"cloud.google.com/go/storage"
	"github.com/google/uuid"
	"github.com/h2non/filetype"
	"github.com/h2non/filetype/types"

	"github.com/jaycherian/gcp-go-video-caption/internal/cloud"
	"github.com/jaycherian/gcp-go-video-caption/internal/core/model"
)

const (
	// UploadPrefix is the object folder uploaded videos are written to.
	UploadPrefix = "uploads"
	// sniffLen is how many leading bytes filetype needs to recognise a container.
	sniffLen = 262
)

var (
	ErrNotVideo      = errors.New("uploaded file is not a recognised video format")
	ErrNotStreamable = errors.New("video reference cannot be streamed by a remote player")
	ErrNoBucket      = errors.New("no upload bucket configured")
)

// VideoService is a struct that encapsulates the clients and configuration
// needed to hand videos to a player and to accept new ones.
type VideoService struct {
	StorageClient  *storage.Client                   // Client for interacting with Google Cloud Storage.
	IAMClient      *credentials.IamCredentialsClient // Client for interacting with IAM, used for signing URLs.
	SignerEmail    string                            // The service account email used to sign URLs.
	UploadBucket   string                            // Bucket receiving uploaded videos.
	SignedURLTTL   time.Duration                     // Lifetime of generated playback URLs.
	MaxUploadBytes int64                             // Upper bound on an upload, 0 disables the check.
}

// NewVideoService builds the service from configuration and connected clients.
func NewVideoService(config *cloud.Config, clients *cloud.ServiceClients) *VideoService {
	return &VideoService{
		StorageClient:  clients.StorageClient,
		IAMClient:      clients.IAMClient,
		SignerEmail:    config.Application.SignerServiceAccountEmail,
		UploadBucket:   config.Storage.UploadBucket,
		SignedURLTTL:   time.Duration(config.Storage.SignedURLMinutes) * time.Minute,
		MaxUploadBytes: config.Storage.MaxUploadBytes,
	}
}

// PlaybackURL returns a URL a remote player can stream the video from.
//
// Inputs:
//   - ctx: The context for the request, used for cancellation and tracing.
//   - videoURI: The session's video reference.
//
// Outputs:
//   - string: A V4 signed URL for gs:// objects, or the reference itself
//     for http(s) URLs.
//   - error: ErrNotStreamable for local paths, or a signing error.
func (s *VideoService) PlaybackURL(ctx context.Context, videoURI string) (string, error) {
	switch {
	case cloud.IsGCSURI(videoURI):
		obj, err := cloud.ParseGCSURI(videoURI)
		if err != nil {
			return "", fmt.Errorf("%w: %w", model.ErrInput, err)
		}
		return s.GenerateSignedURL(ctx, obj, s.SignedURLTTL)
	case strings.HasPrefix(videoURI, "http://"), strings.HasPrefix(videoURI, "https://"):
		return videoURI, nil
	default:
		return "", ErrNotStreamable
	}
}

// GenerateSignedURL creates a GET-only V4 signed URL for obj. When a signer
// service account is configured, the signature is produced by the IAM
// credentials API so that no private key has to live on the host.
func (s *VideoService) GenerateSignedURL(ctx context.Context, obj *cloud.GCSObject, expires time.Duration) (string, error) {
	if expires <= 0 {
		expires = 15 * time.Minute
	}
	opts := &storage.SignedURLOptions{
		Scheme:  storage.SigningSchemeV4,
		Method:  "GET",
		Expires: time.Now().Add(expires),
	}
	if s.SignerEmail != "" && s.IAMClient != nil {
		opts.GoogleAccessID = s.SignerEmail
		opts.SignBytes = func(payload []byte) ([]byte, error) {
			resp, err := s.IAMClient.SignBlob(ctx, &credentialspb.SignBlobRequest{
				Name:    fmt.Sprintf("projects/-/serviceAccounts/%s", s.SignerEmail),
				Payload: payload,
			})
			if err != nil {
				return nil, err
			}
			return resp.SignedBlob, nil
		}
	}

	u, err := s.StorageClient.Bucket(obj.Bucket).SignedURL(obj.Name, opts)
	if err != nil {
		return "", fmt.Errorf("Bucket(%q).SignedURL(%q): %w", obj.Bucket, obj.Name, err)
	}
	slog.DebugContext(ctx, "generated signed url", "bucket", obj.Bucket, "object", obj.Name, "expires", opts.Expires)
	return u, nil
}

// SniffVideo inspects the leading bytes of a file and reports its video type.
func SniffVideo(header []byte) (types.Type, error) {
	kind, err := filetype.Match(header)
	if err != nil {
		return types.Unknown, fmt.Errorf("%w: %v", ErrNotVideo, err)
	}
	if kind == filetype.Unknown || !filetype.IsVideo(header) {
		return types.Unknown, ErrNotVideo
	}
	return kind, nil
}

// UploadObjectName names an uploaded video: a random id under UploadPrefix
// with the detected extension.
func UploadObjectName(kind types.Type) string {
	return fmt.Sprintf("%s/%s.%s", UploadPrefix, uuid.New().String(), kind.Extension)
}

// Upload stores a video in the upload bucket and returns its location. The
// content must be a recognised video container; anything else is rejected
// before a byte reaches Cloud Storage.
func (s *VideoService) Upload(ctx context.Context, in io.Reader) (*cloud.GCSObject, error) {
	if s.UploadBucket == "" {
		return nil, ErrNoBucket
	}

	reader := bufio.NewReaderSize(in, sniffLen)
	header, err := reader.Peek(sniffLen)
	if err != nil && !errors.Is(err, io.EOF) {
		return nil, fmt.Errorf("failed to read upload: %w", err)
	}
	kind, err := SniffVideo(header)
	if err != nil {
		return nil, err
	}

	obj := &cloud.GCSObject{Bucket: s.UploadBucket, Name: UploadObjectName(kind), MIMEType: kind.MIME.Value}
	wctx, cancel := context.WithCancel(ctx)
	defer cancel()
	writer := s.StorageClient.Bucket(obj.Bucket).Object(obj.Name).NewWriter(wctx)
	writer.ContentType = obj.MIMEType

	var src io.Reader = reader
	if s.MaxUploadBytes > 0 {
		src = io.LimitReader(reader, s.MaxUploadBytes+1)
	}
	written, err := io.Copy(writer, src)
	if err != nil {
		cancel()
		_ = writer.Close()
		return nil, fmt.Errorf("failed to write %s: %w", obj.URI(), err)
	}
	if s.MaxUploadBytes > 0 && written > s.MaxUploadBytes {
		// Cancelling the writer's context before Close abandons the object.
		cancel()
		_ = writer.Close()
		return nil, fmt.Errorf("upload exceeds %d bytes", s.MaxUploadBytes)
	}
	if err = writer.Close(); err != nil {
		return nil, fmt.Errorf("failed to close %s: %w", obj.URI(), err)
	}
	slog.InfoContext(ctx, "stored uploaded video", "uri", obj.URI(), "bytes", written, "mime", obj.MIMEType)
	return obj, nil
}
