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
	"fmt"
	"image/color"
	"log/slog"

	"github.com/cockroachdb/errors"
	"github.com/jaycherian/gcp-go-media-verify/internal/core/artifacts"
	"github.com/jaycherian/gcp-go-media-verify/internal/core/fingerprint"
	"github.com/jaycherian/gcp-go-media-verify/internal/core/model"
	"gocv.io/x/gocv"
)

// Comparator defaults.
const (
	DefaultDiffThreshold = 15
	DefaultMinRegionArea = 500
)

var regionColor = color.RGBA{R: 255, A: 255}

// Comparator measures pixel differences between two frame sequences and
// outlines the regions that changed.
type Comparator struct {
	threshold     float32
	minRegionArea float64
}

// NewComparator creates a comparator. A pixel counts as different when its
// grayscale absolute difference exceeds threshold; a changed region is
// outlined when its contour area exceeds minRegionArea. Non-positive values
// select the defaults.
func NewComparator(threshold float32, minRegionArea float64) *Comparator {
	if threshold <= 0 {
		threshold = DefaultDiffThreshold
	}
	if minRegionArea <= 0 {
		minRegionArea = DefaultMinRegionArea
	}
	return &Comparator{threshold: threshold, minRegionArea: minRegionArea}
}

// Compare loads both files fully and compares them frame by frame. Either
// side may be a still image, which is treated as a one-frame sequence.
//
// Inputs:
//   - ctx: Cancels loading and comparison between frames.
//   - leftPath, rightPath: Local media files.
//   - store: Receives the annotated frames as PNG. May be nil.
//
// Outputs:
//   - *model.DiffReport: One entry per index up to the longer sequence.
//   - error: ErrDecodeFailure, ErrIncompatibleFrames, or a store error.
func (c *Comparator) Compare(ctx context.Context, leftPath, rightPath string, store artifacts.Store) (*model.DiffReport, error) {
	left, err := LoadFrames(ctx, leftPath)
	if err != nil {
		return nil, errors.Wrap(err, "left")
	}
	defer closeAll(left)
	right, err := LoadFrames(ctx, rightPath)
	if err != nil {
		return nil, errors.Wrap(err, "right")
	}
	defer closeAll(right)

	return c.CompareFrames(ctx, left, right, store)
}

// CompareFrames compares two in-memory sequences. The shorter one is padded
// with all-zero frames of the other side's size and type. The input frames
// are not modified.
func (c *Comparator) CompareFrames(ctx context.Context, left, right []gocv.Mat, store artifacts.Store) (*model.DiffReport, error) {
	report := &model.DiffReport{LeftFrames: len(left), RightFrames: len(right)}
	n := max(len(left), len(right))
	report.Pairs = make([]model.FramePairDiff, 0, n)

	for i := 0; i < n; i++ {
		if err := ctx.Err(); err != nil {
			return nil, err
		}
		pair, err := c.comparePair(ctx, i, left, right, store)
		if err != nil {
			return nil, err
		}
		report.Pairs = append(report.Pairs, pair)
	}
	slog.DebugContext(ctx, "frames compared", "left", len(left), "right", len(right), "max_percent", report.MaxPercentDifference())
	return report, nil
}

func (c *Comparator) comparePair(ctx context.Context, index int, left, right []gocv.Mat, store artifacts.Store) (model.FramePairDiff, error) {
	pair := model.FramePairDiff{Index: index, Regions: []model.Region{}}

	var a, b gocv.Mat
	switch {
	case index >= len(left):
		pair.LeftPadded = true
		b = right[index].Clone()
		a = gocv.Zeros(b.Rows(), b.Cols(), b.Type())
	case index >= len(right):
		pair.RightPadded = true
		a = left[index].Clone()
		b = gocv.Zeros(a.Rows(), a.Cols(), a.Type())
	default:
		a = left[index].Clone()
		b = right[index].Clone()
	}
	defer func() { _ = a.Close() }()
	defer func() { _ = b.Close() }()

	if a.Rows() != b.Rows() || a.Cols() != b.Cols() || a.Type() != b.Type() {
		return pair, errors.Mark(errors.Newf("frame %d: %dx%d (%v) vs %dx%d (%v)",
			index, a.Cols(), a.Rows(), a.Type(), b.Cols(), b.Rows(), b.Type()), model.ErrIncompatibleFrames)
	}

	diff := gocv.NewMat()
	defer func() { _ = diff.Close() }()
	gocv.AbsDiff(a, b, &diff)

	gray := gocv.NewMat()
	defer func() { _ = gray.Close() }()
	toGray(diff, &gray)

	mask := gocv.NewMat()
	defer func() { _ = mask.Close() }()
	gocv.Threshold(gray, &mask, c.threshold, 255, gocv.ThresholdBinary)

	contours := gocv.FindContours(mask, gocv.RetrievalExternal, gocv.ChainApproxSimple)
	defer contours.Close()
	for j := 0; j < contours.Size(); j++ {
		contour := contours.At(j)
		if gocv.ContourArea(contour) <= c.minRegionArea {
			continue
		}
		rect := gocv.BoundingRect(contour)
		gocv.Rectangle(&a, rect, regionColor, 2)
		gocv.Rectangle(&b, rect, regionColor, 2)
		pair.Regions = append(pair.Regions, model.RegionFromRectangle(rect))
	}

	if pixels := mask.Rows() * mask.Cols(); pixels > 0 {
		pair.PercentDifference = float64(gocv.CountNonZero(mask)) / float64(pixels) * 100
	}

	if store != nil {
		var err error
		if pair.LeftArtifact, err = putPNG(ctx, store, fmt.Sprintf("pair_%04d_left.png", index), a); err != nil {
			return pair, err
		}
		if pair.RightArtifact, err = putPNG(ctx, store, fmt.Sprintf("pair_%04d_right.png", index), b); err != nil {
			return pair, err
		}
	}
	return pair, nil
}

func putPNG(ctx context.Context, store artifacts.Store, name string, frame gocv.Mat) (string, error) {
	buf, err := gocv.IMEncode(gocv.PNGFileExt, frame)
	if err != nil {
		return "", errors.Wrapf(err, "encode %s", name)
	}
	data := append([]byte(nil), buf.GetBytes()...)
	buf.Close()
	return store.Put(ctx, name, "image/png", data)
}

// LoadFrames decodes every frame of the file at path. Stills (by extension)
// load as a single frame. The caller closes the returned Mats.
func LoadFrames(ctx context.Context, path string) ([]gocv.Mat, error) {
	kind, _, err := DetectKind(path, nil)
	if err != nil {
		return nil, err
	}
	if kind == model.MediaKindImage {
		img := gocv.IMRead(path, gocv.IMReadColor)
		if img.Empty() {
			_ = img.Close()
			return nil, errors.WithHint(errors.Mark(errors.Newf("image %s could not be decoded", path), model.ErrDecodeFailure), fingerprint.UnidentifiedImageHint)
		}
		return []gocv.Mat{img}, nil
	}

	vc, err := gocv.VideoCaptureFile(path)
	if err != nil {
		return nil, errors.WithHint(model.MarkDecodeFailure(err, "open video %s", path), FailedToProcessHint)
	}
	defer func() { _ = vc.Close() }()
	if !vc.IsOpened() {
		return nil, errors.WithHint(errors.Mark(errors.Newf("video %s could not be opened", path), model.ErrDecodeFailure), FailedToProcessHint)
	}

	var frames []gocv.Mat
	for {
		if err := ctx.Err(); err != nil {
			closeAll(frames)
			return nil, err
		}
		frame := gocv.NewMat()
		if ok := vc.Read(&frame); !ok || frame.Empty() {
			_ = frame.Close()
			break
		}
		frames = append(frames, frame)
	}
	if len(frames) == 0 {
		return nil, errors.WithHint(errors.Mark(errors.Newf("video %s has no frames", path), model.ErrDecodeFailure), FailedToProcessHint)
	}
	return frames, nil
}

func closeAll(frames []gocv.Mat) {
	for i := range frames {
		_ = frames[i].Close()
	}
}
