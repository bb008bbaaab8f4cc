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

// Package workflow defines the high-level business logic orchestrations,
// combining various commands into coherent pipelines. This file implements the
// primary verification workflow: an uploaded image or video is fingerprinted
// and its digest looked up in the wallet's transaction metadata.
package workflow

import (
	"github.com/jaycherian/gcp-go-media-verify/internal/cloud"
	"github.com/jaycherian/gcp-go-media-verify/internal/core/commands"
	"github.com/jaycherian/gcp-go-media-verify/internal/core/cor"
	"github.com/jaycherian/gcp-go-media-verify/internal/core/ledger"
	"github.com/jaycherian/gcp-go-media-verify/internal/core/model"
)

// MediaVerifyWorkflow runs upload → fingerprint → ledger search.
//
// The context's input is either a `*model.MediaUpload`, which runs the full
// chain, or a `model.Digest`, which skips straight to the ledger search. The
// wallet override, when any, is read from commands.ParamWallet and progress
// is reported to the sink under commands.ParamProgress.
type MediaVerifyWorkflow struct {
	cor.BaseCommand
	config      *cloud.Config
	matcher     *ledger.Matcher
	chain       cor.Chain // Upload, fingerprint and search.
	searchChain cor.Chain // Search only, for a pre-computed digest.
}

// Execute picks the chain that fits the input and runs it.
//
// Inputs:
//   - context: The chain of responsibility context for this execution.
func (m *MediaVerifyWorkflow) Execute(context cor.Context) {
	if _, ok := context.Get(m.GetInputParam()).(model.Digest); ok {
		m.searchChain.Execute(context)
		return
	}
	m.chain.Execute(context)
}

// initializeChain builds both command sequences. This method is called by
// the constructor.
func (m *MediaVerifyWorkflow) initializeChain() {
	out := cor.NewBaseChain(m.GetName())

	// Step 1: Sniff the upload and write it to a temp file the decoders can
	// open. Unsupported files stop here.
	out.AddCommand(commands.NewMediaUploadToTempFile("media-upload-to-temp-file", m.config.Storage.UploadDir))

	// Step 2: Quantize every frame and hash the concatenated bit string.
	out.AddCommand(commands.NewMediaFingerprint("media-fingerprint", m.config.Fingerprint))

	// Step 3: Page through the wallet's transactions looking for the digest.
	out.AddCommand(commands.NewLedgerSearch("ledger-search", m.matcher, m.config.Ledger.DefaultWallet))
	m.chain = out

	search := cor.NewBaseChain(m.GetName() + "-search")
	search.AddCommand(commands.NewLedgerSearch("ledger-search", m.matcher, m.config.Ledger.DefaultWallet))
	m.searchChain = search
}

// NewMediaVerifyWorkflow is the constructor for the MediaVerifyWorkflow.
//
// Inputs:
//   - config: The application's overall configuration.
//   - serviceClients: A struct containing the initialized ledger client.
//
// Returns:
//   - A pointer to a newly created and fully initialized MediaVerifyWorkflow.
func NewMediaVerifyWorkflow(config *cloud.Config, serviceClients *cloud.ServiceClients) *MediaVerifyWorkflow {
	workflow := &MediaVerifyWorkflow{
		BaseCommand: *cor.NewBaseCommand("media-verify-workflow"),
		config:      config,
		matcher:     ledger.NewMatcher(serviceClients.LedgerClient, config.Ledger.MaxPages),
	}
	workflow.initializeChain()
	return workflow
}
