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

package workflow

import (
	"log/slog"

	"github.com/jaycherian/gcp-go-media-verify/internal/cloud"
	"github.com/jaycherian/gcp-go-media-verify/internal/core/commands"
	"github.com/jaycherian/gcp-go-media-verify/internal/core/cor"
	"github.com/jaycherian/gcp-go-media-verify/internal/core/ledger"
	"github.com/jaycherian/gcp-go-media-verify/internal/core/model"
	"github.com/jaycherian/gcp-go-media-verify/internal/core/repository"
)

// BucketVerifyWorkflow verifies objects dropped into a GCS bucket. It is
// attached to a Pub/Sub listener and receives the raw GCS notification as its
// input. The digest is appended to the fingerprint repository before the
// ledger is searched, so every processed object is recorded whatever the
// verdict.
type BucketVerifyWorkflow struct {
	cor.BaseCommand
	config         *cloud.Config
	serviceClients *cloud.ServiceClients
	matcher        *ledger.Matcher
	repo           repository.FingerprintRepository
	chain          cor.Chain
}

// Execute runs the chain and logs the verdict.
func (m *BucketVerifyWorkflow) Execute(context cor.Context) {
	m.chain.Execute(context)

	obj, _ := context.Get(cloud.GetGCSObjectName()).(*cloud.GCSObject)
	match, _ := context.Get(commands.ParamMatch).(*model.LedgerMatch)
	switch {
	case match != nil:
		slog.InfoContext(context.GetContext(), "bucket object verified", "object", obj, "tx", match.TxHash, "key", match.Key)
	case context.HasErrors():
		slog.WarnContext(context.GetContext(), "bucket object not verified", "object", obj, "error", context.Err())
	}
}

func (m *BucketVerifyWorkflow) initializeChain() {
	out := cor.NewBaseChain(m.GetName())

	// Step 1: Parse the GCS notification. A wallet in the object metadata
	// overrides the default wallet.
	out.AddCommand(commands.NewMediaTriggerToGCSObject("media-trigger-to-gcs-object"))

	// Step 2: Download the object to a temp file the decoders can open.
	out.AddCommand(commands.NewGCSToTempFile("gcs-to-temp-file", m.serviceClients.StorageClient, m.config.Storage.UploadDir))

	// Step 3: Fingerprint it.
	out.AddCommand(commands.NewMediaFingerprint("media-fingerprint", m.config.Fingerprint))

	// Step 4: Record the digest.
	out.AddCommand(commands.NewFingerprintPersist("fingerprint-persist", m.repo))

	// Step 5: Search the wallet.
	out.AddCommand(commands.NewLedgerSearch("ledger-search", m.matcher, m.config.Ledger.DefaultWallet))

	m.chain = out
}

// NewBucketVerifyWorkflow is the constructor for the BucketVerifyWorkflow.
//
// Inputs:
//   - config: The application's overall configuration.
//   - serviceClients: Provides the storage client, ledger client and repository.
//
// Returns:
//   - A pointer to a newly created and fully initialized BucketVerifyWorkflow.
func NewBucketVerifyWorkflow(config *cloud.Config, serviceClients *cloud.ServiceClients) *BucketVerifyWorkflow {
	workflow := &BucketVerifyWorkflow{
		BaseCommand:    *cor.NewBaseCommand("bucket-verify-workflow"),
		config:         config,
		serviceClients: serviceClients,
		matcher:        ledger.NewMatcher(serviceClients.LedgerClient, config.Ledger.MaxPages),
		repo:           serviceClients.Repository,
	}
	workflow.initializeChain()
	return workflow
}
