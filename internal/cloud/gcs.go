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

// Package cloud contains data structures and utilities for interacting with Google Cloud services.
// This file defines the payload of a GCS object notification delivered over
// Pub/Sub, and the simplified object reference the bucket verification
// workflow passes between its commands.
package cloud

// WalletMetadataKey is the custom object metadata key that overrides the
// wallet searched for an uploaded object.
const WalletMetadataKey = "wallet"

// GetGCSObjectName returns the context key under which the GCSObject being
// processed is stored.
func GetGCSObjectName() string {
	return "__GCS__OBJ__"
}

// GCSPubSubNotification maps to the JSON message published by GCS when an
// object is finalized in a monitored bucket. Only the fields the
// verification workflow reads are declared.
type GCSPubSubNotification struct {
	Kind        string                 `json:"kind"`        // Typically "storage#object".
	ID          string                 `json:"id"`          // The full ID of the object, including bucket and generation.
	Name        string                 `json:"name"`        // The name of the object within the bucket.
	Bucket      string                 `json:"bucket"`      // The name of the bucket containing the object.
	Generation  string                 `json:"generation"`  // The generation number of the object's content.
	ContentType string                 `json:"contentType"` // The MIME type of the object's content.
	Size        string                 `json:"size"`        // The size of the object in bytes.
	MD5Hash     string                 `json:"md5Hash"`     // The MD5 hash of the object's content.
	MetaData    map[string]interface{} `json:"metadata"`    // User-provided metadata, if any.
}

// Wallet returns the wallet override stored in the object metadata, if any.
func (n *GCSPubSubNotification) Wallet() string {
	if v, ok := n.MetaData[WalletMetadataKey].(string); ok {
		return v
	}
	return ""
}

// GCSObject is the reference to an uploaded object that is being verified.
type GCSObject struct {
	Bucket   string // The name of the GCS bucket.
	Name     string // The name of the object.
	MIMEType string // The MIME type of the object (e.g., "video/mp4").
	Wallet   string // The wallet override from object metadata. Empty uses the default wallet.
}
