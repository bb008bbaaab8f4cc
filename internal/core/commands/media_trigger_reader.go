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

// Package commands provides the concrete implementations of the Chain of
// Responsibility (COR) pattern's Command interface. This file defines the
// first command of the bucket verification workflow.
//
// Logic Flow:
// GCS publishes a notification to a Pub/Sub topic when an object is
// finalized. This command parses that message.
//
//  1. The command receives the raw Pub/Sub message data as a JSON string from the context.
//  2. It unmarshals the string into a `cloud.GCSPubSubNotification`.
//  3. It builds a `cloud.GCSObject` holding the bucket, object name, content
//     type and the wallet override from the object's custom metadata.
//  4. The object is stored under `cloud.GetGCSObjectName()` and output for the
//     next command. A wallet override is also stored under ParamWallet.
package commands

import (
	"encoding/json"

	"github.com/cockroachdb/errors"
	"github.com/jaycherian/gcp-go-media-verify/internal/cloud"
	"github.com/jaycherian/gcp-go-media-verify/internal/core/cor"
)

// MediaTriggerToGCSObject is a command that parses a GCS Pub/Sub notification
// and extracts key file information into a simplified GCSObject.
type MediaTriggerToGCSObject struct {
	cor.BaseCommand // Embeds the BaseCommand for common functionality.
}

// NewMediaTriggerToGCSObject is the constructor for the MediaTriggerToGCSObject command.
//
// Inputs:
//   - name: A string name for this command instance.
//
// Outputs:
//   - *MediaTriggerToGCSObject: A pointer to the newly instantiated command.
func NewMediaTriggerToGCSObject(name string) *MediaTriggerToGCSObject {
	return &MediaTriggerToGCSObject{BaseCommand: *cor.NewBaseCommand(name)}
}

// Execute contains the core logic for parsing the GCS notification message.
//
// Inputs:
//   - context: The shared `cor.Context` for this workflow execution, containing
//     the raw message data in the input parameter.
func (c *MediaTriggerToGCSObject) Execute(context cor.Context) {
	in, ok := context.Get(c.GetInputParam()).(string)
	if !ok {
		c.GetErrorCounter().Add(context.GetContext(), 1)
		context.AddError(c.GetName(), errors.New("notification payload is not a string"))
		return
	}

	var out cloud.GCSPubSubNotification
	if err := json.Unmarshal([]byte(in), &out); err != nil {
		c.GetErrorCounter().Add(context.GetContext(), 1)
		context.AddError(c.GetName(), errors.Wrap(err, "failed to unmarshal GCS notification"))
		return
	}
	if out.Bucket == "" || out.Name == "" {
		c.GetErrorCounter().Add(context.GetContext(), 1)
		context.AddError(c.GetName(), errors.Newf("notification %q names no object", out.ID))
		return
	}

	c.GetSuccessCounter().Add(context.GetContext(), 1)

	msg := &cloud.GCSObject{Bucket: out.Bucket, Name: out.Name, MIMEType: out.ContentType, Wallet: out.Wallet()}
	if msg.Wallet != "" {
		context.Add(ParamWallet, msg.Wallet)
	}
	context.Add(cloud.GetGCSObjectName(), msg)
	context.Add(c.GetOutputParam(), msg)
}
