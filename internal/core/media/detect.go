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

// Package media turns uploaded files into frames. It decides whether an upload
// is an image or a video, streams video frames through the quantizer, and
// compares two frame sequences pixel by pixel.
//
// The video paths use OpenCV through gocv; images are decoded with the Go
// image packages so a still never needs cgo on the verify path.
package media

import (
	"path/filepath"
	"strings"

	"github.com/cockroachdb/errors"
	"github.com/h2non/filetype"
	"github.com/jaycherian/gcp-go-media-verify/internal/core/model"
)

// UnsupportedTypeHint is the user-facing message for a rejected upload.
const UnsupportedTypeHint = "Unsupported file type."

// SniffLength is the number of leading bytes DetectKind needs.
const SniffLength = 262

var extensions = map[string]struct {
	kind model.MediaKind
	mime string
}{
	".png":  {model.MediaKindImage, "image/png"},
	".jpg":  {model.MediaKindImage, "image/jpeg"},
	".jpeg": {model.MediaKindImage, "image/jpeg"},
	".mp4":  {model.MediaKindVideo, "video/mp4"},
}

// DetectKind classifies an upload by its file name and leading bytes.
//
// The extension decides the kind. The content is sniffed as well, and an
// upload whose bytes are recognized as a different kind (a video named
// .png, say) is rejected. Content that cannot be identified is left to the
// decoder.
//
// Inputs:
//   - name: The original file name.
//   - head: Up to SniffLength leading bytes of the file. May be empty.
//
// Outputs:
//   - model.MediaKind: Image or video.
//   - string: The MIME type, preferring the sniffed one.
//   - error: ErrUnsupportedMediaType, with UnsupportedTypeHint attached.
func DetectKind(name string, head []byte) (model.MediaKind, string, error) {
	ext := strings.ToLower(filepath.Ext(name))
	known, ok := extensions[ext]
	if !ok {
		return "", "", unsupported(errors.Newf("extension %q is not accepted", ext))
	}
	if len(head) == 0 {
		return known.kind, known.mime, nil
	}

	sniffed, err := filetype.Match(head)
	if err != nil || sniffed == filetype.Unknown {
		return known.kind, known.mime, nil
	}
	var kind model.MediaKind
	switch {
	case filetype.IsImage(head):
		kind = model.MediaKindImage
	case filetype.IsVideo(head):
		kind = model.MediaKindVideo
	default:
		return "", "", unsupported(errors.Newf("%s content named %q", sniffed.MIME.Value, name))
	}
	if kind != known.kind {
		return "", "", unsupported(errors.Newf("%s content named %q", sniffed.MIME.Value, name))
	}
	return kind, sniffed.MIME.Value, nil
}

func unsupported(err error) error {
	return errors.WithHint(errors.Mark(err, model.ErrUnsupportedMediaType), UnsupportedTypeHint)
}
