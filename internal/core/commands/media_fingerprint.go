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
// command that computes the digest of a local media file.
//
// Logic Flow:
//  1. Reads a `*model.MediaAsset` from the input parameter.
//  2. Images are decoded and fingerprinted as a single frame at their native
//     size. Videos are streamed frame by frame through a FrameExtractor.
//  3. The job's progress sink, when present under ParamProgress, learns the
//     frame count and is advanced once per frame.
//  4. Stores the digest under ParamDigest, the frame count under ParamFrames,
//     and outputs the digest.
package commands

import (
	"log/slog"

	"github.com/cockroachdb/errors"
	"github.com/jaycherian/gcp-go-media-verify/internal/core/cor"
	"github.com/jaycherian/gcp-go-media-verify/internal/core/fingerprint"
	"github.com/jaycherian/gcp-go-media-verify/internal/core/media"
	"github.com/jaycherian/gcp-go-media-verify/internal/core/model"
)

// MediaFingerprint computes the digest of an image or video.
type MediaFingerprint struct {
	cor.BaseCommand
	params model.FingerprintParams
}

// NewMediaFingerprint is the constructor for the MediaFingerprint command.
//
// Inputs:
//   - name: A string name for this command instance.
//   - params: Palette size and the target resolution of video frames.
//
// Outputs:
//   - *MediaFingerprint: A pointer to the newly instantiated command.
func NewMediaFingerprint(name string, params model.FingerprintParams) *MediaFingerprint {
	return &MediaFingerprint{BaseCommand: *cor.NewBaseCommand(name), params: params}
}

// Execute fingerprints the asset and stores its digest.
func (c *MediaFingerprint) Execute(context cor.Context) {
	asset, ok := context.Get(c.GetInputParam()).(*model.MediaAsset)
	if !ok || asset == nil {
		c.GetErrorCounter().Add(context.GetContext(), 1)
		context.AddError(c.GetName(), errors.Mark(errors.New("no media asset in context"), model.ErrInvalidParams))
		return
	}
	context.Add(ParamAsset, asset)

	sink := GetProgress(context)
	var digest model.Digest
	var frames int
	var err error
	switch asset.Kind {
	case model.MediaKindImage:
		digest, err = c.fingerprintImage(asset, sink)
		frames = 1
	case model.MediaKindVideo:
		digest, frames, err = c.fingerprintVideo(context, asset, sink)
	default:
		err = errors.WithHint(errors.Mark(errors.Newf("unknown media kind %q", asset.Kind), model.ErrUnsupportedMediaType), media.UnsupportedTypeHint)
	}
	if err != nil {
		c.GetErrorCounter().Add(context.GetContext(), 1)
		context.AddError(c.GetName(), err)
		return
	}

	c.GetSuccessCounter().Add(context.GetContext(), 1)
	slog.InfoContext(context.GetContext(), "media fingerprinted", "name", asset.Name, "kind", asset.Kind, "frames", frames, "hash", digest)
	context.Add(ParamDigest, digest)
	context.Add(ParamFrames, frames)
	context.Add(c.GetOutputParam(), digest)
}

func (c *MediaFingerprint) fingerprintImage(asset *model.MediaAsset, sink media.ProgressSink) (model.Digest, error) {
	if sink != nil {
		sink.SetTotal(1)
	}
	img, err := fingerprint.DecodeImageFile(asset.Path)
	if err != nil {
		return "", err
	}
	_, digest, err := fingerprint.FingerprintImage(img, c.params.NumColors)
	if err != nil {
		return "", err
	}
	if sink != nil {
		sink.Advance()
	}
	return digest, nil
}

func (c *MediaFingerprint) fingerprintVideo(context cor.Context, asset *model.MediaAsset, sink media.ProgressSink) (model.Digest, int, error) {
	extractor, err := media.NewFrameExtractor(c.params)
	if err != nil {
		return "", 0, err
	}
	asm := fingerprint.NewAssembler(false)
	frames, err := extractor.Extract(context.GetContext(), asset.Path, asm, sink)
	if err != nil {
		return "", frames, err
	}
	digest, err := asm.Digest()
	if err != nil {
		return "", 0, errors.WithHint(errors.Mark(errors.Wrapf(err, "video %s has no frames", asset.Name), model.ErrDecodeFailure), media.FailedToProcessHint)
	}
	return digest, frames, nil
}
