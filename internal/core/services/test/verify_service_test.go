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

// Package services_test contains the test suite for the services package.
// The services run the real workflows against an in-memory ledger.
package services_test

import (
	"bytes"
	"context"
	"testing"

	"github.com/cockroachdb/errors"
	"github.com/jaycherian/gcp-go-media-verify/internal/cloud"
	"github.com/jaycherian/gcp-go-media-verify/internal/core/fingerprint"
	"github.com/jaycherian/gcp-go-media-verify/internal/core/media"
	"github.com/jaycherian/gcp-go-media-verify/internal/core/model"
	"github.com/jaycherian/gcp-go-media-verify/internal/core/progress"
	"github.com/jaycherian/gcp-go-media-verify/internal/core/services"
	"github.com/jaycherian/gcp-go-media-verify/internal/core/workflow"
	test "github.com/jaycherian/gcp-go-media-verify/internal/testutil"
	"github.com/stretchr/testify/require"
	"github.com/zeebo/assert"
)

func newVerifyService(t *testing.T, fake *test.FakeLedger) (*services.VerifyService, *progress.Registry) {
	t.Helper()
	config := cloud.NewConfig()
	config.Ledger.DefaultWallet = test.TestWallet
	config.Storage.UploadDir = t.TempDir()

	registry := progress.NewRegistry(0)
	return &services.VerifyService{
		Workflow: workflow.NewMediaVerifyWorkflow(config, &cloud.ServiceClients{LedgerClient: fake}),
		Registry: registry,
	}, registry
}

func pngUpload(name string, data []byte) *model.MediaUpload {
	return &model.MediaUpload{Name: name, Body: bytes.NewReader(data)}
}

func digestOf(t *testing.T, data []byte) model.Digest {
	t.Helper()
	img, err := fingerprint.DecodeImage(bytes.NewReader(data))
	require.NoError(t, err)
	_, digest, err := fingerprint.FingerprintImage(img, model.DefaultNumColors)
	require.NoError(t, err)
	return digest
}

// TestVerifyServiceMatch follows the upload of a still whose digest sits in a
// list-valued metadata field on the second page of the wallet.
func TestVerifyServiceMatch(t *testing.T) {
	data := test.PNGBytes(48, 32, 11)
	digest := digestOf(t, data)
	svc, registry := newVerifyService(t, test.NewFakeLedger(digest))

	result, err := svc.Verify(context.Background(), model.VerifyRequest{Upload: pngUpload("proof.png", data)})
	assert.NoError(t, err)
	assert.Equal(t, result.Verdict, model.VerdictMatch)
	assert.Equal(t, result.Message, services.MsgMatch)
	assert.Equal(t, result.Digest, digest)
	assert.Equal(t, result.Wallet, test.TestWallet)
	assert.Equal(t, result.TxHash, "tx_9f1")
	assert.Equal(t, result.MatchedKey, "certHash")
	assert.Equal(t, result.Page, 2)
	assert.Equal(t, result.ProcessedFrames, int64(1))

	tracker, err := registry.Get(result.JobID)
	assert.NoError(t, err)
	assert.Equal(t, tracker.Snapshot().State, model.JobStateCompleted)
}

func TestVerifyServiceNoMatch(t *testing.T) {
	svc, _ := newVerifyService(t, test.NewFakeLedger("ff"))

	result, err := svc.Verify(context.Background(), model.VerifyRequest{Upload: pngUpload("a.png", test.PNGBytes(8, 8, 0)), Wallet: "addr_custom"})
	assert.NoError(t, err)
	assert.Equal(t, result.Verdict, model.VerdictNoMatch)
	assert.Equal(t, result.Message, services.MsgNoMatch)
	assert.Equal(t, result.Wallet, "addr_custom")
	assert.NotEqual(t, result.Digest, model.Digest(""))
	assert.Equal(t, result.TxHash, "")
}

func TestVerifyServiceNetworkFailureIsInconclusive(t *testing.T) {
	fake := test.NewFakeLedger("ff")
	fake.Err = errors.New("read: connection reset by peer")
	svc, registry := newVerifyService(t, fake)

	result, err := svc.Verify(context.Background(), model.VerifyRequest{Digest: "ff"})
	assert.Error(t, err)
	assert.True(t, errors.Is(err, model.ErrNetworkFailure))
	assert.Equal(t, result.Verdict, model.VerdictInconclusive)
	assert.Equal(t, result.Message, services.MsgInconclusive)

	tracker, _ := registry.Get(result.JobID)
	snap := tracker.Snapshot()
	assert.Equal(t, snap.State, model.JobStateFailed)
	assert.Equal(t, snap.Error, services.MsgInconclusive)
}

// TestVerifyServicePageLimitIsInconclusive stops the search one page short of
// the attested transaction.
func TestVerifyServicePageLimitIsInconclusive(t *testing.T) {
	config := cloud.NewConfig()
	config.Ledger.DefaultWallet = test.TestWallet
	config.Ledger.MaxPages = 1
	registry := progress.NewRegistry(0)
	svc := &services.VerifyService{
		Workflow: workflow.NewMediaVerifyWorkflow(config, &cloud.ServiceClients{LedgerClient: test.NewFakeLedger("ff")}),
		Registry: registry,
	}

	result, err := svc.Verify(context.Background(), model.VerifyRequest{Digest: "ff"})
	assert.True(t, errors.Is(err, model.ErrSearchIncomplete))
	assert.False(t, errors.Is(err, model.ErrDigestNotFound))
	assert.True(t, services.IsInconclusive(err))
	assert.Equal(t, result.Verdict, model.VerdictInconclusive)
	assert.Equal(t, result.Message, services.MsgInconclusive)
}

func TestVerifyServiceCancelledRequestIsInconclusive(t *testing.T) {
	svc, _ := newVerifyService(t, test.NewFakeLedger("ff"))
	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	result, err := svc.Verify(ctx, model.VerifyRequest{Digest: "ff"})
	assert.True(t, services.IsInconclusive(err))
	assert.Equal(t, result.Verdict, model.VerdictInconclusive)
}

func TestVerifyServiceRejections(t *testing.T) {
	cases := []struct {
		name    string
		req     model.VerifyRequest
		kind    error
		message string
	}{
		{"no file", model.VerifyRequest{}, model.ErrInvalidParams, services.MsgNoFile},
		{"unsupported", model.VerifyRequest{Upload: pngUpload("clip.avi", []byte("RIFF"))}, model.ErrUnsupportedMediaType, media.UnsupportedTypeHint},
		{"unidentified image", model.VerifyRequest{Upload: pngUpload("x.png", []byte("garbage"))}, model.ErrDecodeFailure, fingerprint.UnidentifiedImageHint},
	}
	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			fake := test.NewFakeLedger("ff")
			svc, _ := newVerifyService(t, fake)

			result, err := svc.Verify(context.Background(), tc.req)
			assert.True(t, errors.Is(err, tc.kind))
			assert.Equal(t, result.Verdict, model.VerdictRejected)
			assert.Equal(t, result.Message, tc.message)
			assert.Equal(t, fake.Calls(), 0)
		})
	}
}

func TestVerifyServiceReusesReservedJob(t *testing.T) {
	svc, registry := newVerifyService(t, test.NewFakeLedger("ff"))
	reserved := registry.Reserve()

	result, err := svc.Verify(context.Background(), model.VerifyRequest{Digest: "ff", JobID: reserved.JobID()})
	assert.NoError(t, err)
	assert.Equal(t, result.JobID, reserved.JobID())
	assert.True(t, reserved.Snapshot().Done())

	// A finished job cannot be run again.
	_, err = svc.Verify(context.Background(), model.VerifyRequest{Digest: "ff", JobID: reserved.JobID()})
	assert.True(t, errors.Is(err, model.ErrInvalidParams))
}

func TestVerifyServiceRejectsRunningJob(t *testing.T) {
	svc, registry := newVerifyService(t, test.NewFakeLedger("ff"))
	running, err := registry.Start("job-busy")
	require.NoError(t, err)

	result, err := svc.Verify(context.Background(), model.VerifyRequest{Digest: "ff", JobID: "job-busy"})
	assert.Nil(t, result)
	assert.True(t, errors.Is(err, model.ErrInvalidParams))
	assert.Equal(t, running.Snapshot().State, model.JobStateRunning)
	assert.Equal(t, running.Snapshot().ProcessedFrames, int64(0))
}
