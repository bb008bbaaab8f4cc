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

package commands

import (
	"log/slog"

	"github.com/cockroachdb/errors"
	"github.com/jaycherian/gcp-go-media-verify/internal/core/cor"
	"github.com/jaycherian/gcp-go-media-verify/internal/core/ledger"
	"github.com/jaycherian/gcp-go-media-verify/internal/core/model"
)

// LedgerSearch looks the input digest up in a wallet's transaction metadata.
// The wallet comes from ParamWallet, falling back to the default wallet.
//
// A miss is recorded as an error marked ErrDigestNotFound. An unreachable
// ledger is marked ErrNetworkFailure and a search cut short by the page limit
// ErrSearchIncomplete, so callers can tell them apart.
type LedgerSearch struct {
	cor.BaseCommand
	matcher       *ledger.Matcher
	defaultWallet string
}

// NewLedgerSearch is the constructor for the LedgerSearch command.
//
// Inputs:
//   - name: A string name for this command instance.
//   - matcher: The matcher that pages through the wallet.
//   - defaultWallet: The wallet searched when the context carries none.
//
// Outputs:
//   - *LedgerSearch: A pointer to the newly instantiated command.
func NewLedgerSearch(name string, matcher *ledger.Matcher, defaultWallet string) *LedgerSearch {
	return &LedgerSearch{BaseCommand: *cor.NewBaseCommand(name), matcher: matcher, defaultWallet: defaultWallet}
}

// Execute runs the search and stores the match under ParamMatch.
func (c *LedgerSearch) Execute(context cor.Context) {
	digest, ok := context.Get(c.GetInputParam()).(model.Digest)
	if !ok || digest == "" {
		c.GetErrorCounter().Add(context.GetContext(), 1)
		context.AddError(c.GetName(), errors.WithStack(model.ErrEmptyFingerprint))
		return
	}

	wallet := GetString(context, ParamWallet)
	if wallet == "" {
		wallet = c.defaultWallet
		context.Add(ParamWallet, wallet)
	}

	match, err := c.matcher.Find(context.GetContext(), wallet, digest)
	if err != nil {
		if !errors.Is(err, model.ErrDigestNotFound) {
			c.GetErrorCounter().Add(context.GetContext(), 1)
			slog.WarnContext(context.GetContext(), "ledger search failed", "wallet", wallet, "hash", digest, "error", err)
		}
		context.AddError(c.GetName(), err)
		return
	}

	c.GetSuccessCounter().Add(context.GetContext(), 1)
	context.Add(ParamMatch, match)
	context.Add(c.GetOutputParam(), match)
}
