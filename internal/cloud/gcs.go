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
	"fmt"
	"net/url"
	"strings"
)

const GCSScheme = "gs"

// GCSObject identifies one object in Cloud Storage.
type GCSObject struct {
	Bucket   string
	Name     string
	MIMEType string
}

// URI renders the object as gs://bucket/name.
func (o GCSObject) URI() string {
	return fmt.Sprintf("%s://%s/%s", GCSScheme, o.Bucket, o.Name)
}

// IsGCSURI reports whether in uses the gs:// scheme.
func IsGCSURI(in string) bool {
	return strings.HasPrefix(in, GCSScheme+"://")
}

// ParseGCSURI splits gs://bucket/path/to/object into its bucket and object
// name.
func ParseGCSURI(in string) (*GCSObject, error) {
	u, err := url.Parse(in)
	if err != nil {
		return nil, fmt.Errorf("invalid storage uri %q: %w", in, err)
	}
	if u.Scheme != GCSScheme {
		return nil, fmt.Errorf("invalid storage uri %q: scheme must be %s", in, GCSScheme)
	}
	name := strings.TrimPrefix(u.Path, "/")
	if u.Host == "" || name == "" {
		return nil, fmt.Errorf("invalid storage uri %q: bucket and object are required", in)
	}
	return &GCSObject{Bucket: u.Host, Name: name}, nil
}
