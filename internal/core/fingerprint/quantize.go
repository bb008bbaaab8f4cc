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

// Package fingerprint turns decoded pixels into the deterministic bit string
// that identifies a recording, and condenses that bit string into a digest.
//
// The flow for a single image is:
//  1. Convert to single-channel luminance (ITU-R 601 weights).
//  2. Build a palette of at most NumColors levels with median-cut quantization.
//  3. Sort the palette by luminance so index assignment never depends on the
//     order in which the quantizer discovered the levels.
//  4. Emit each pixel's palette index as a fixed-width, zero-padded binary
//     code, row-major from the top-left corner.
//
// Videos repeat the same steps for every frame and feed the per-frame codes to
// an Assembler, which streams them into SHA-256.
package fingerprint

import (
	"fmt"
	"image"
	"image/color"
	"image/draw"
	"math/bits"
	"sort"

	"github.com/cockroachdb/errors"
	"github.com/ericpauley/go-quantize/quantize"
	"github.com/jaycherian/gcp-go-media-verify/internal/core/model"
)

// BitsNeeded returns the width of one pixel code for a palette of numColors
// entries: the bit length of numColors-1 (8 -> 3, 2 -> 1, 9 -> 4).
func BitsNeeded(numColors int) int {
	if numColors < model.MinNumColors {
		return 0
	}
	return bits.Len(uint(numColors - 1))
}

// Quantizer reduces a frame to a luminance palette and encodes every pixel
// as its palette index.
type Quantizer struct {
	numColors int
	bits      int
	codes     [][]byte
}

// NewQuantizer creates a Quantizer for the given palette size.
//
// Inputs:
//   - numColors: The maximum number of palette entries, between 2 and 256.
//
// Outputs:
//   - *Quantizer: The ready-to-use quantizer.
//   - error: ErrInvalidParams when numColors is out of range.
func NewQuantizer(numColors int) (*Quantizer, error) {
	if numColors < model.MinNumColors || numColors > model.MaxNumColors {
		return nil, errors.Mark(errors.Newf("num_colors must be between %d and %d, got %d",
			model.MinNumColors, model.MaxNumColors, numColors), model.ErrInvalidParams)
	}
	width := BitsNeeded(numColors)
	codes := make([][]byte, numColors)
	for i := range codes {
		codes[i] = []byte(fmt.Sprintf("%0*b", width, i))
	}
	return &Quantizer{numColors: numColors, bits: width, codes: codes}, nil
}

// NumColors returns the configured palette size.
func (q *Quantizer) NumColors() int {
	return q.numColors
}

// BitsPerPixel returns the width of one pixel code.
func (q *Quantizer) BitsPerPixel() int {
	return q.bits
}

// Encode quantizes img and returns its bit string. The result is exactly
// width*height*BitsPerPixel bytes of ASCII '0' and '1'.
func (q *Quantizer) Encode(img image.Image) ([]byte, error) {
	if img == nil {
		return nil, errors.Mark(errors.New("no image to quantize"), model.ErrDecodeFailure)
	}
	gray := ToGray(img)
	b := gray.Bounds()
	if b.Empty() {
		return nil, errors.Mark(errors.Newf("image has no pixels (%dx%d)", b.Dx(), b.Dy()), model.ErrDecodeFailure)
	}

	lookup := q.levelLookup(gray)

	out := make([]byte, 0, b.Dx()*b.Dy()*q.bits)
	for y := b.Min.Y; y < b.Max.Y; y++ {
		row := gray.Pix[(y-b.Min.Y)*gray.Stride : (y-b.Min.Y)*gray.Stride+b.Dx()]
		for _, level := range row {
			out = append(out, q.codes[lookup[level]]...)
		}
	}
	return out, nil
}

// Palette returns the sorted luminance levels chosen for img.
func (q *Quantizer) Palette(img image.Image) []uint8 {
	return q.palette(ToGray(img))
}

func (q *Quantizer) palette(gray *image.Gray) []uint8 {
	quantizer := quantize.MedianCutQuantizer{}
	found := quantizer.Quantize(make(color.Palette, 0, q.numColors), gray)

	seen := make(map[uint8]struct{}, len(found))
	levels := make([]uint8, 0, len(found))
	for _, c := range found {
		y := color.GrayModel.Convert(c).(color.Gray).Y
		if _, ok := seen[y]; ok {
			continue
		}
		seen[y] = struct{}{}
		levels = append(levels, y)
	}
	sort.Slice(levels, func(i, j int) bool { return levels[i] < levels[j] })
	return levels
}

// levelLookup maps every possible luminance to the index of its nearest
// palette entry. Ties resolve to the lower index.
func (q *Quantizer) levelLookup(gray *image.Gray) [256]int {
	var lookup [256]int
	levels := q.palette(gray)
	if len(levels) == 0 {
		return lookup
	}
	for v := 0; v < 256; v++ {
		best, bestDist := 0, 256
		for i, l := range levels {
			d := v - int(l)
			if d < 0 {
				d = -d
			}
			if d < bestDist {
				best, bestDist = i, d
			}
		}
		lookup[v] = best
	}
	return lookup
}

// ToGray converts any image to an 8-bit luminance image with the same
// bounds origin at (0,0). *image.Gray inputs at the origin are returned as-is.
func ToGray(img image.Image) *image.Gray {
	if g, ok := img.(*image.Gray); ok && g.Rect.Min == (image.Point{}) {
		return g
	}
	b := img.Bounds()
	gray := image.NewGray(image.Rect(0, 0, b.Dx(), b.Dy()))
	draw.Draw(gray, gray.Bounds(), img, b.Min, draw.Src)
	return gray
}
