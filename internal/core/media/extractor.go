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

package media

import (
	"context"
	"image"

	"github.com/cockroachdb/errors"
	"github.com/jaycherian/gcp-go-media-verify/internal/core/fingerprint"
	"github.com/jaycherian/gcp-go-media-verify/internal/core/model"
	"gocv.io/x/gocv"
)

// FailedToProcessHint is the user-facing message for a video that cannot be read.
const FailedToProcessHint = "Failed to process file."

// ProgressSink receives frame counts while a video is fingerprinted.
// *progress.Tracker satisfies it.
type ProgressSink interface {
	SetTotal(total int64) bool
	Advance() int64
}

type discardProgress struct{}

func (discardProgress) SetTotal(int64) bool { return false }
func (discardProgress) Advance() int64      { return 0 }

// FrameExtractor decodes a video frame by frame and feeds every quantized
// frame into an Assembler.
type FrameExtractor struct {
	params    model.FingerprintParams
	quantizer *fingerprint.Quantizer
}

// NewFrameExtractor validates params and builds the quantizer shared by every
// frame.
func NewFrameExtractor(params model.FingerprintParams) (*FrameExtractor, error) {
	if err := params.Validate(); err != nil {
		return nil, err
	}
	q, err := fingerprint.NewQuantizer(params.NumColors)
	if err != nil {
		return nil, err
	}
	return &FrameExtractor{params: params, quantizer: q}, nil
}

// Params returns the parameters every frame is quantized with.
func (e *FrameExtractor) Params() model.FingerprintParams {
	return e.params
}

// Extract reads the video at path in decode order. Each frame is resized to
// the target resolution without preserving the aspect ratio, converted to
// grayscale, quantized and appended to asm. The sink learns the container's
// frame count before the first frame and is advanced once per frame.
//
// Cancellation is checked between frames; a cancelled extraction leaves asm
// holding the frames read so far and returns ctx.Err().
//
// Inputs:
//   - ctx: Cancels the extraction.
//   - path: A local video file.
//   - asm: Receives one code per frame.
//   - sink: Progress receiver. May be nil.
//
// Outputs:
//   - int: The number of frames appended.
//   - error: ErrDecodeFailure when the file cannot be opened or a frame cannot
//     be converted.
func (e *FrameExtractor) Extract(ctx context.Context, path string, asm *fingerprint.Assembler, sink ProgressSink) (int, error) {
	if sink == nil {
		sink = discardProgress{}
	}

	vc, err := gocv.VideoCaptureFile(path)
	if err != nil {
		return 0, errors.WithHint(model.MarkDecodeFailure(err, "open video %s", path), FailedToProcessHint)
	}
	defer func() { _ = vc.Close() }()
	if !vc.IsOpened() {
		return 0, errors.WithHint(errors.Mark(errors.Newf("video %s could not be opened", path), model.ErrDecodeFailure), FailedToProcessHint)
	}

	if total := int64(vc.Get(gocv.VideoCaptureFrameCount)); total > 0 {
		sink.SetTotal(total)
	}

	frame := gocv.NewMat()
	defer func() { _ = frame.Close() }()
	resized := gocv.NewMat()
	defer func() { _ = resized.Close() }()
	gray := gocv.NewMat()
	defer func() { _ = gray.Close() }()

	size := image.Pt(e.params.Width, e.params.Height)
	frames := 0
	for {
		if err := ctx.Err(); err != nil {
			return frames, err
		}
		if ok := vc.Read(&frame); !ok || frame.Empty() {
			return frames, nil
		}

		gocv.Resize(frame, &resized, size, 0, 0, gocv.InterpolationLinear)
		toGray(resized, &gray)

		img, err := gray.ToImage()
		if err != nil {
			return frames, model.MarkDecodeFailure(err, "convert frame %d", frames)
		}
		code, err := e.quantizer.Encode(img)
		if err != nil {
			return frames, errors.Wrapf(err, "quantize frame %d", frames)
		}
		if err := asm.Append(code); err != nil {
			return frames, err
		}
		frames++
		sink.Advance()
	}
}

// toGray writes a single-channel copy of src into dst.
func toGray(src gocv.Mat, dst *gocv.Mat) {
	switch src.Channels() {
	case 1:
		src.CopyTo(dst)
	case 4:
		gocv.CvtColor(src, dst, gocv.ColorBGRAToGray)
	default:
		gocv.CvtColor(src, dst, gocv.ColorBGRToGray)
	}
}
