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

// Package cloud provides components for interacting with external services.
// This file implements the ledger client against the Blockfrost REST API.
//
// Endpoints used:
//   - GET {base}/addresses/{address}/transactions?page=N -> [{"tx_hash": ...}]
//   - GET {base}/txs/{hash}/metadata -> [{"label": ..., "json_metadata": ...}]
//
// Every request carries the `project_id` header and is traced through an
// otelhttp transport. A 404 on the address listing means the address has no
// history and is reported as an empty page. Any other non-2xx status is an error.
package cloud

import (
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"strconv"
	"strings"

	"github.com/cockroachdb/errors"
	"github.com/jaycherian/gcp-go-media-verify/internal/core/model"
	"go.opentelemetry.io/contrib/instrumentation/net/http/otelhttp"
)

// DefaultBlockfrostURL is the Cardano mainnet API root.
const DefaultBlockfrostURL = "https://cardano-mainnet.blockfrost.io/api/v0"

const maxErrorBody = 512

// BlockfrostClient reads transactions and metadata from the Blockfrost API.
type BlockfrostClient struct {
	baseURL    string
	projectID  string
	httpClient *http.Client
}

// NewBlockfrostClient creates a client from the ledger configuration.
//
// Inputs:
//   - config: The ledger section of the application configuration.
//   - transport: The round tripper to wrap. nil uses http.DefaultTransport.
//
// Outputs:
//   - *BlockfrostClient: A client whose calls are traced and time-limited.
func NewBlockfrostClient(config Ledger, transport http.RoundTripper) *BlockfrostClient {
	if transport == nil {
		transport = http.DefaultTransport
	}
	base := strings.TrimRight(config.BaseURL, "/")
	if base == "" {
		base = DefaultBlockfrostURL
	}
	return &BlockfrostClient{
		baseURL:   base,
		projectID: config.ProjectID,
		httpClient: &http.Client{
			Transport: otelhttp.NewTransport(transport),
			Timeout:   config.Timeout(),
		},
	}
}

// ListTransactions returns one page of the address's transactions.
func (c *BlockfrostClient) ListTransactions(ctx context.Context, address string, page int) ([]model.LedgerTransaction, error) {
	path := fmt.Sprintf("/addresses/%s/transactions", url.PathEscape(address))
	query := url.Values{"page": []string{strconv.Itoa(page)}}

	var out []model.LedgerTransaction
	found, err := c.get(ctx, path, query, &out)
	if err != nil {
		return nil, err
	}
	if !found {
		return nil, nil
	}
	return out, nil
}

// GetMetadata returns the metadata entries of a transaction.
func (c *BlockfrostClient) GetMetadata(ctx context.Context, txHash string) ([]model.MetadataEntry, error) {
	path := fmt.Sprintf("/txs/%s/metadata", url.PathEscape(txHash))

	var out []model.MetadataEntry
	found, err := c.get(ctx, path, nil, &out)
	if err != nil {
		return nil, err
	}
	if !found {
		return nil, errors.Newf("transaction %s not found", txHash)
	}
	return out, nil
}

// get performs a GET and decodes a JSON body into out. It returns false
// without error on 404.
func (c *BlockfrostClient) get(ctx context.Context, path string, query url.Values, out interface{}) (bool, error) {
	target := c.baseURL + path
	if len(query) > 0 {
		target += "?" + query.Encode()
	}
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, target, nil)
	if err != nil {
		return false, errors.Wrapf(err, "build request %s", path)
	}
	req.Header.Set("project_id", c.projectID)
	req.Header.Set("Accept", "application/json")

	resp, err := c.httpClient.Do(req)
	if err != nil {
		return false, errors.Wrapf(err, "GET %s", path)
	}
	defer func() { _ = resp.Body.Close() }()

	if resp.StatusCode == http.StatusNotFound {
		_, _ = io.Copy(io.Discard, resp.Body)
		return false, nil
	}
	if resp.StatusCode < 200 || resp.StatusCode > 299 {
		body, _ := io.ReadAll(io.LimitReader(resp.Body, maxErrorBody))
		return false, errors.Newf("GET %s: status %d: %s", path, resp.StatusCode, strings.TrimSpace(string(body)))
	}
	if err := json.NewDecoder(resp.Body).Decode(out); err != nil {
		return false, errors.Wrapf(err, "decode response of %s", path)
	}
	return true, nil
}
