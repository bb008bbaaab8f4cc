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

package main

import (
	"context"
	"log/slog"

	"github.com/jaycherian/gcp-go-media-verify/internal/cloud"
	"github.com/jaycherian/gcp-go-media-verify/internal/core/workflow"
)

// VerifyTopic is the subscription key of the bucket verification listener.
const VerifyTopic = "VerifyTopic"

// SetupListeners attaches the bucket verification workflow to its Pub/Sub
// listener and starts it.
//
// Inputs:
//   - config: The application's configuration.
//   - cloudClients: The initialized service clients holding the listeners.
//   - ctx: The application's root context, used to manage the lifecycle of the listeners.
func SetupListeners(config *cloud.Config, cloudClients *cloud.ServiceClients, ctx context.Context) {
	listener, ok := cloudClients.PubSubListeners[VerifyTopic]
	if !ok {
		slog.Info("no bucket verification subscription configured", "key", VerifyTopic)
		return
	}
	listener.SetCommand(workflow.NewBucketVerifyWorkflow(config, cloudClients))
	listener.Listen(ctx)
}
