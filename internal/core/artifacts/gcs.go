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

package artifacts

import (
	"context"
	"fmt"
	"path"
	"time"

	credentials "cloud.google.com/go/iam/credentials/apiv1"
	"cloud.google.com/go/iam/credentials/apiv1/credentialspb"
	"cloud.google.com/go/storage"
	"github.com/cockroachdb/errors"
)

// GCSStore writes artifacts to a bucket. When a signer is configured Put
// returns a V4 signed GET URL; otherwise it returns the gs:// URI.
type GCSStore struct {
	client      *storage.Client
	bucket      string
	prefix      string
	iamClient   *credentials.IamCredentialsClient
	signerEmail string
	urlTTL      time.Duration
}

// NewGCSStore creates a store writing to bucket under prefix.
//
// Inputs:
//   - client: An authenticated storage client.
//   - bucket: The artifact bucket.
//   - prefix: The object prefix. May be empty.
func NewGCSStore(client *storage.Client, bucket string, prefix string) *GCSStore {
	return &GCSStore{client: client, bucket: bucket, prefix: prefix}
}

// WithSignedURLs makes Put return signed URLs valid for ttl. The URLs are
// signed by the IAM Credentials API on behalf of signerEmail, so the process
// never needs a private key.
func (s *GCSStore) WithSignedURLs(iamClient *credentials.IamCredentialsClient, signerEmail string, ttl time.Duration) *GCSStore {
	s.iamClient = iamClient
	s.signerEmail = signerEmail
	s.urlTTL = ttl
	return s
}

// ObjectName returns the object an artifact called name is written to.
func (s *GCSStore) ObjectName(name string) string {
	return path.Join(s.prefix, name)
}

// Put uploads data and returns its reference.
func (s *GCSStore) Put(ctx context.Context, name string, contentType string, data []byte) (string, error) {
	object := s.ObjectName(name)
	w := s.client.Bucket(s.bucket).Object(object).NewWriter(ctx)
	w.ContentType = contentType
	if _, err := w.Write(data); err != nil {
		_ = w.Close()
		return "", errors.Wrapf(err, "write gs://%s/%s", s.bucket, object)
	}
	if err := w.Close(); err != nil {
		return "", errors.Wrapf(err, "close gs://%s/%s", s.bucket, object)
	}

	if s.iamClient == nil || s.signerEmail == "" || s.urlTTL <= 0 {
		return fmt.Sprintf("gs://%s/%s", s.bucket, object), nil
	}
	return s.signedURL(ctx, object)
}

func (s *GCSStore) signedURL(ctx context.Context, object string) (string, error) {
	opts := &storage.SignedURLOptions{
		Scheme:         storage.SigningSchemeV4,
		Method:         "GET",
		Expires:        time.Now().Add(s.urlTTL),
		GoogleAccessID: s.signerEmail,
		SignBytes: func(b []byte) ([]byte, error) {
			req := &credentialspb.SignBlobRequest{
				Name:    fmt.Sprintf("projects/-/serviceAccounts/%s", s.signerEmail),
				Payload: b,
			}
			resp, err := s.iamClient.SignBlob(ctx, req)
			if err != nil {
				return nil, errors.Wrap(err, "IAMClient.SignBlob")
			}
			return resp.SignedBlob, nil
		},
	}
	u, err := s.client.Bucket(s.bucket).SignedURL(object, opts)
	if err != nil {
		return "", errors.Wrapf(err, "Bucket(%q).SignedURL(%q)", s.bucket, object)
	}
	return u, nil
}
