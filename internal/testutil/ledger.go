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

package test

import (
	"context"
	"sync"

	"github.com/jaycherian/gcp-go-media-verify/internal/core/model"
)

// FakeLedger is an in-memory ledger.Client. Pages hold transaction hashes,
// one slice per page; Metadata maps a hash to its entries.
type FakeLedger struct {
	Pages    [][]string
	Metadata map[string][]model.MetadataEntry
	// Err, when set, is returned by every call.
	Err error

	mu    sync.Mutex
	calls int
}

// NewFakeLedger returns a ledger whose second page holds tx_9f1, whose
// list-valued certHash metadata contains digest.
func NewFakeLedger(digest model.Digest) *FakeLedger {
	return &FakeLedger{
		Pages: [][]string{{"tx_001"}, {"tx_9f1"}},
		Metadata: map[string][]model.MetadataEntry{
			"tx_001": {{Label: "721"}},
			"tx_9f1": {{
				Label: "674",
				Fields: map[string]model.MetadataValue{
					"certHash": model.ListValue("0000", string(digest)),
				},
				HasMetadata: true,
			}},
		},
	}
}

// ListTransactions returns page (1-based), or nothing past the last page.
func (f *FakeLedger) ListTransactions(ctx context.Context, _ string, page int) ([]model.LedgerTransaction, error) {
	if err := f.record(ctx); err != nil {
		return nil, err
	}
	if page < 1 || page > len(f.Pages) {
		return nil, nil
	}
	out := make([]model.LedgerTransaction, 0, len(f.Pages[page-1]))
	for _, h := range f.Pages[page-1] {
		out = append(out, model.LedgerTransaction{TxHash: h})
	}
	return out, nil
}

// GetMetadata returns the entries registered for txHash.
func (f *FakeLedger) GetMetadata(ctx context.Context, txHash string) ([]model.MetadataEntry, error) {
	if err := f.record(ctx); err != nil {
		return nil, err
	}
	return f.Metadata[txHash], nil
}

// Calls returns the number of calls made so far.
func (f *FakeLedger) Calls() int {
	f.mu.Lock()
	defer f.mu.Unlock()
	return f.calls
}

func (f *FakeLedger) record(ctx context.Context) error {
	f.mu.Lock()
	f.calls++
	f.mu.Unlock()
	if err := ctx.Err(); err != nil {
		return err
	}
	return f.Err
}
