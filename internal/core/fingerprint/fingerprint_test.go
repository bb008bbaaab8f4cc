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
	"bytes"
	"image"
	"image/color"
	"image/png"
	"strings"
	"testing"

	"github.com/cockroachdb/errors"
	"github.com/jaycherian/gcp-go-media-verify/internal/core/model"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func gradient(w, h int, shift uint8) *image.RGBA {
	img := image.NewRGBA(image.Rect(0, 0, w, h))
	for y := 0; y < h; y++ {
		for x := 0; x < w; x++ {
			v := uint8((x*255)/w) + shift
			img.Set(x, y, color.RGBA{R: v, G: uint8(y * 7), B: 255 - v, A: 255})
		}
	}
	return img
}

func TestBitsNeeded(t *testing.T) {
	assert.Equal(t, 3, BitsNeeded(8))
	assert.Equal(t, 1, BitsNeeded(2))
	assert.Equal(t, 4, BitsNeeded(9))
	assert.Equal(t, 8, BitsNeeded(256))
	assert.Equal(t, 0, BitsNeeded(1))
}

func TestNewQuantizerRejectsBadPaletteSize(t *testing.T) {
	_, err := NewQuantizer(1)
	assert.True(t, errors.Is(err, model.ErrInvalidParams))
	_, err = NewQuantizer(300)
	assert.True(t, errors.Is(err, model.ErrInvalidParams))
}

func TestEncodeLengthMatchesBitWidth(t *testing.T) {
	img := gradient(16, 8, 0)
	for _, n := range []int{2, 8, 9} {
		q, err := NewQuantizer(n)
		require.NoError(t, err)
		code, err := q.Encode(img)
		require.NoError(t, err)
		assert.Len(t, code, 16*8*BitsNeeded(n), "numColors=%d", n)
		assert.Empty(t, strings.Trim(string(code), "01"))
	}
}

func TestEncodeTwoLevels(t *testing.T) {
	img := image.NewGray(image.Rect(0, 0, 2, 2))
	img.Pix = []uint8{0, 255, 0, 255}

	fp, digest, err := FingerprintImage(img, 2)
	require.NoError(t, err)
	assert.Equal(t, model.Fingerprint("0101"), fp)
	assert.Equal(t, model.Digest("07334386287751ba02a4588c1a0875dbd074a61bd9e6ab7c48d244eacd0c99e0"), digest)
}

// TestEncodeOrdersPaletteByLuminance checks that darker pixels always get a
// lower or equal code than brighter ones.
func TestEncodeOrdersPaletteByLuminance(t *testing.T) {
	img := image.NewGray(image.Rect(0, 0, 3, 1))
	img.Pix = []uint8{200, 10, 120}
	q, err := NewQuantizer(8)
	require.NoError(t, err)

	code, err := q.Encode(img)
	require.NoError(t, err)
	require.Len(t, code, 9)
	bright, dark, mid := string(code[0:3]), string(code[3:6]), string(code[6:9])
	assert.Less(t, dark, mid)
	assert.Less(t, mid, bright)
}

func TestEncodeDeterministic(t *testing.T) {
	img := gradient(32, 24, 0)
	_, first, err := FingerprintImage(img, 8)
	require.NoError(t, err)
	for i := 0; i < 3; i++ {
		_, again, err := FingerprintImage(img, 8)
		require.NoError(t, err)
		assert.Equal(t, first, again)
	}
}

func TestEncodeSensitive(t *testing.T) {
	a := gradient(32, 24, 0)
	b := gradient(32, 24, 0)
	for y := 0; y < 12; y++ {
		for x := 0; x < 16; x++ {
			b.Set(x, y, color.RGBA{A: 255})
		}
	}
	_, da, err := FingerprintImage(a, 8)
	require.NoError(t, err)
	_, db, err := FingerprintImage(b, 8)
	require.NoError(t, err)
	assert.NotEqual(t, da, db)
}

func TestEncodeNilImage(t *testing.T) {
	q, err := NewQuantizer(8)
	require.NoError(t, err)
	_, err = q.Encode(nil)
	assert.True(t, errors.Is(err, model.ErrDecodeFailure))
}

func TestEncodeSubImage(t *testing.T) {
	full := gradient(20, 20, 0)
	sub := full.SubImage(image.Rect(5, 5, 15, 15))
	q, err := NewQuantizer(8)
	require.NoError(t, err)
	code, err := q.Encode(sub)
	require.NoError(t, err)
	assert.Len(t, code, 10*10*3)
}

func TestAssemblerMatchesHash(t *testing.T) {
	asm := NewAssembler(true)
	require.NoError(t, asm.Append([]byte("0101")))
	require.NoError(t, asm.Append([]byte("0101")))
	assert.Equal(t, 2, asm.Frames())
	assert.Equal(t, int64(8), asm.Len())

	streamed, err := asm.Digest()
	require.NoError(t, err)
	direct, err := Hash(asm.Fingerprint())
	require.NoError(t, err)
	assert.Equal(t, direct, streamed)
	assert.Equal(t, model.Digest("6a666c5dfe7d280371fab68093ec92cfa6009ece184f2bb36c747acf6eb5f213"), streamed)
}

func TestAssemblerOrderSensitive(t *testing.T) {
	a := NewAssembler(false)
	require.NoError(t, a.Append([]byte("01")))
	require.NoError(t, a.Append([]byte("10")))
	b := NewAssembler(false)
	require.NoError(t, b.Append([]byte("10")))
	require.NoError(t, b.Append([]byte("01")))
	da, _ := a.Digest()
	db, _ := b.Digest()
	assert.NotEqual(t, da, db)
	assert.Empty(t, a.Fingerprint())
}

func TestEmptyFingerprint(t *testing.T) {
	_, err := NewAssembler(false).Digest()
	assert.True(t, errors.Is(err, model.ErrEmptyFingerprint))
	_, err = Hash("")
	assert.True(t, errors.Is(err, model.ErrEmptyFingerprint))
}

func TestInvalidFingerprint(t *testing.T) {
	_, err := Hash("0120")
	assert.True(t, errors.Is(err, model.ErrInvalidFingerprint))
	err = NewAssembler(false).Append([]byte("01x"))
	assert.True(t, errors.Is(err, model.ErrInvalidFingerprint))
}

func TestHashSingleBit(t *testing.T) {
	d, err := Hash("0")
	require.NoError(t, err)
	assert.Equal(t, model.Digest("5feceb66ffc86f38d952786c6d696c79c2dbc239dd4e91b46729d73a27fb57e9"), d)
}

func TestDecodeImage(t *testing.T) {
	var buf bytes.Buffer
	require.NoError(t, png.Encode(&buf, gradient(4, 4, 0)))
	img, err := DecodeImage(&buf)
	require.NoError(t, err)
	assert.Equal(t, 4, img.Bounds().Dx())

	_, err = DecodeImage(strings.NewReader("definitely not an image"))
	assert.True(t, errors.Is(err, model.ErrDecodeFailure))
	assert.Equal(t, UnidentifiedImageHint, model.UserMessage(err, ""))
}

func TestDecodeImageFileMissing(t *testing.T) {
	_, err := DecodeImageFile("/nonexistent/file.png")
	assert.True(t, errors.Is(err, model.ErrDecodeFailure))
}
