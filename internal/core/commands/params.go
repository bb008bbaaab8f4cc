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
// Responsibility (COR) pattern's Command interface. This file holds the
// context keys the commands share. Values that flow from one command to the
// next use cor.CtxIn / cor.CtxOut; values that several commands or the calling
// service need are stored under the keys below.
package commands

import (
	"github.com/jaycherian/gcp-go-media-verify/internal/core/cor"
	"github.com/jaycherian/gcp-go-media-verify/internal/core/media"
)

// Context keys.
const (
	ParamAsset       = "__ASSET__"        // *model.MediaAsset being verified.
	ParamLeftUpload  = "__LEFT_UPLOAD__"  // *model.MediaUpload, left side of a comparison.
	ParamRightUpload = "__RIGHT_UPLOAD__" // *model.MediaUpload, right side of a comparison.
	ParamLeftAsset   = "__LEFT_ASSET__"   // *model.MediaAsset, left side of a comparison.
	ParamRightAsset  = "__RIGHT_ASSET__"  // *model.MediaAsset, right side of a comparison.
	ParamProgress    = "__PROGRESS__"     // media.ProgressSink for the job.
	ParamWallet      = "__WALLET__"       // string wallet address to search.
	ParamDigest      = "__DIGEST__"       // model.Digest of the asset.
	ParamFrames      = "__FRAMES__"       // int number of frames fingerprinted.
	ParamMatch       = "__MATCH__"        // *model.LedgerMatch when the digest was found.
	ParamDiffReport  = "__DIFF_REPORT__"  // *model.DiffReport of a comparison.
	ParamArtifactKey = "__ARTIFACT_KEY__" // string prefix for comparison artifacts.
)

// GetProgress returns the progress sink stored in the context, or nil.
func GetProgress(context cor.Context) media.ProgressSink {
	if sink, ok := context.Get(ParamProgress).(media.ProgressSink); ok {
		return sink
	}
	return nil
}

// GetString returns the string stored under key, or "".
func GetString(context cor.Context, key string) string {
	if s, ok := context.Get(key).(string); ok {
		return s
	}
	return ""
}
