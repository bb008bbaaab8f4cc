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

package fingerprint

import (
	"image"
	_ "image/jpeg"
	_ "image/png"
	"io"
	"os"

	"github.com/cockroachdb/errors"
	"github.com/jaycherian/gcp-go-media-verify/internal/core/model"
)

// UnidentifiedImageHint is the user-facing message for an undecodable image.
const UnidentifiedImageHint = "Failed to process image: Unidentified image format."

// DecodeImage decodes a PNG or JPEG stream.
func DecodeImage(r io.Reader) (image.Image, error) {
	img, format, err := image.Decode(r)
	if err != nil {
		return nil, errors.WithHint(model.MarkDecodeFailure(err, "decode image"), UnidentifiedImageHint)
	}
	if img.Bounds().Empty() {
		return nil, errors.WithHint(errors.Mark(errors.Newf("decoded %s image has no pixels", format), model.ErrDecodeFailure), UnidentifiedImageHint)
	}
	return img, nil
}

// DecodeImageFile opens and decodes the image at path.
func DecodeImageFile(path string) (image.Image, error) {
	f, err := os.Open(path)
	if err != nil {
		return nil, errors.WithHint(model.MarkDecodeFailure(err, "open image %s", path), UnidentifiedImageHint)
	}
	defer func() { _ = f.Close() }()
	return DecodeImage(f)
}

// FingerprintImage quantizes img at its native resolution and returns the
// single-frame bit string and its digest.
func FingerprintImage(img image.Image, numColors int) (model.Fingerprint, model.Digest, error) {
	q, err := NewQuantizer(numColors)
	if err != nil {
		return "", "", err
	}
	code, err := q.Encode(img)
	if err != nil {
		return "", "", err
	}
	asm := NewAssembler(true)
	if err := asm.Append(code); err != nil {
		return "", "", err
	}
	digest, err := asm.Digest()
	if err != nil {
		return "", "", err
	}
	return asm.Fingerprint(), digest, nil
}
