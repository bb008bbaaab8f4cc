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

// Package ledger searches a wallet's transaction metadata for a digest.
//
// Logic Flow:
//  1. Request page 1, 2, ... of the wallet's transactions.
//  2. An empty page ends the search: the digest is verified absent.
//  3. For every transaction, in the order received, fetch its metadata entries.
//  4. For every entry with a json metadata object, test each key (in lexical
//     order) with the match predicate: the value equals the digest, or the
//     value is a list holding the digest.
//  5. The first hit wins. There is no ranking.
//
// Every call is made sequentially. A failed call aborts the search with an
// error marked model.ErrNetworkFailure, which callers must not confuse with
// model.ErrDigestNotFound. Reaching the page limit before an empty page gives
// model.ErrSearchIncomplete: the rest of the wallet was never read.
package ledger

import (
	"context"
	"log/slog"

	"github.com/cockroachdb/errors"
	"github.com/jaycherian/gcp-go-media-verify/internal/core/model"
)

// Client is the ledger service the matcher reads from.
type Client interface {
	// ListTransactions returns one page (1-based) of the wallet's
	// transactions. An empty slice means there are no more pages.
	ListTransactions(ctx context.Context, address string, page int) ([]model.LedgerTransaction, error)
	// GetMetadata returns the metadata entries attached to a transaction.
	GetMetadata(ctx context.Context, txHash string) ([]model.MetadataEntry, error)
}

// Matcher walks a wallet's history looking for a digest.
type Matcher struct {
	client   Client
	maxPages int
}

// NewMatcher creates a Matcher. maxPages bounds the number of pages read; 0
// means no bound.
func NewMatcher(client Client, maxPages int) *Matcher {
	return &Matcher{client: client, maxPages: maxPages}
}

// Find returns the first transaction whose metadata carries digest.
//
// Inputs:
//   - ctx: Cancels the search between calls.
//   - wallet: The address whose transactions are scanned.
//   - digest: The exact value to look for.
//
// Outputs:
//   - *model.LedgerMatch: The transaction, entry, key and page of the first hit.
//   - error: ErrDigestNotFound when every page was read without a hit,
//     ErrSearchIncomplete when the page limit stopped the search,
//     ErrNetworkFailure when a ledger call failed.
func (m *Matcher) Find(ctx context.Context, wallet string, digest model.Digest) (*model.LedgerMatch, error) {
	if wallet == "" {
		return nil, errors.Mark(errors.New("wallet address is required"), model.ErrInvalidParams)
	}
	if digest == "" {
		return nil, errors.WithStack(model.ErrEmptyFingerprint)
	}

	for page := 1; m.maxPages == 0 || page <= m.maxPages; page++ {
		if err := ctx.Err(); err != nil {
			return nil, model.MarkNetworkFailure(err, "search of %s cancelled at page %d", wallet, page)
		}

		txs, err := m.client.ListTransactions(ctx, wallet, page)
		if err != nil {
			return nil, model.MarkNetworkFailure(err, "list transactions of %s page %d", wallet, page)
		}
		if len(txs) == 0 {
			slog.DebugContext(ctx, "ledger pagination exhausted", "wallet", wallet, "pages", page-1)
			return nil, errors.Wrapf(model.ErrDigestNotFound, "wallet %s, %d pages", wallet, page-1)
		}

		for _, tx := range txs {
			entries, err := m.client.GetMetadata(ctx, tx.TxHash)
			if err != nil {
				return nil, model.MarkNetworkFailure(err, "get metadata of %s", tx.TxHash)
			}
			for _, entry := range entries {
				if key, ok := entry.FindDigest(digest); ok {
					slog.InfoContext(ctx, "digest found in ledger metadata", "tx", tx.TxHash, "key", key, "page", page)
					return &model.LedgerMatch{TxHash: tx.TxHash, Entry: entry, Key: key, Page: page}, nil
				}
			}
		}
	}
	slog.WarnContext(ctx, "ledger page limit reached", "wallet", wallet, "pages", m.maxPages)
	return nil, errors.Wrapf(model.ErrSearchIncomplete, "wallet %s, page limit %d reached", wallet, m.maxPages)
}
