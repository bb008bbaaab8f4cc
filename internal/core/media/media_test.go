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
	"image/color"
	"path/filepath"
	"sync"
	"testing"

	"github.com/cockroachdb/errors"
	"github.com/jaycherian/gcp-go-media-verify/internal/core/fingerprint"
	"github.com/jaycherian/gcp-go-media-verify/internal/core/model"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"gocv.io/x/gocv"
)

var pngHeader = []byte{0x89, 'P', 'N', 'G', 0x0d, 0x0a, 0x1a, 0x0a, 0, 0, 0, 0x0d, 'I', 'H', 'D', 'R'}

func TestDetectKind(t *testing.T) {
	kind, mime, err := DetectKind("photo.PNG", pngHeader)
	require.NoError(t, err)
	assert.Equal(t, model.MediaKindImage, kind)
	assert.Equal(t, "image/png", mime)

	kind, mime, err = DetectKind("clip.mp4", nil)
	require.NoError(t, err)
	assert.Equal(t, model.MediaKindVideo, kind)
	assert.Equal(t, "video/mp4", mime)

	kind, _, err = DetectKind("still.jpeg", []byte("not sniffable"))
	require.NoError(t, err)
	assert.Equal(t, model.MediaKindImage, kind)
}

func TestDetectKindRejects(t *testing.T) {
	for _, name := range []string{"notes.txt", "clip.mov", "noext"} {
		_, _, err := DetectKind(name, nil)
		assert.True(t, errors.Is(err, model.ErrUnsupportedMediaType), name)
		assert.Equal(t, UnsupportedTypeHint, model.UserMessage(err, ""), name)
	}

	// PNG bytes behind a video extension.
	_, _, err := DetectKind("clip.mp4", pngHeader)
	assert.True(t, errors.Is(err, model.ErrUnsupportedMediaType))
}

func solidFrame(rows, cols int, v float64) gocv.Mat {
	return gocv.NewMatWithSizeFromScalar(gocv.NewScalar(v, v, v, 0), rows, cols, gocv.MatTypeCV8UC3)
}

func frames(n, rows, cols int, v float64) []gocv.Mat {
	out := make([]gocv.Mat, n)
	for i := range out {
		out[i] = solidFrame(rows, cols, v)
	}
	return out
}

type memoryStore struct {
	mu    sync.Mutex
	names []string
}

func (s *memoryStore) Put(_ context.Context, name string, contentType string, data []byte) (string, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.names = append(s.names, name)
	return "mem://" + name, nil
}

func TestCompareIdentityIsZero(t *testing.T) {
	seq := frames(3, 48, 64, 120)
	defer closeAll(seq)

	report, err := NewComparator(0, 0).CompareFrames(context.Background(), seq, seq, nil)
	require.NoError(t, err)
	require.Len(t, report.Pairs, 3)
	for _, p := range report.Pairs {
		assert.Zero(t, p.PercentDifference)
		assert.Empty(t, p.Regions)
		assert.False(t, p.LeftPadded || p.RightPadded)
	}
}

func TestComparePadsShorterSequence(t *testing.T) {
	left := frames(5, 48, 64, 200)
	right := frames(3, 48, 64, 200)
	defer closeAll(left)
	defer closeAll(right)

	store := &memoryStore{}
	report, err := NewComparator(15, 500).CompareFrames(context.Background(), left, right, store)
	require.NoError(t, err)
	require.Len(t, report.Pairs, 5)
	assert.Equal(t, 5, report.LeftFrames)
	assert.Equal(t, 3, report.RightFrames)

	for i, p := range report.Pairs {
		assert.Equal(t, i, p.Index)
		if i < 3 {
			assert.False(t, p.RightPadded)
			assert.Zero(t, p.PercentDifference)
		} else {
			assert.True(t, p.RightPadded)
			// A solid 200 frame against black differs everywhere.
			assert.InDelta(t, 100, p.PercentDifference, 0.001)
		}
	}
	assert.Len(t, store.names, 10)
	assert.Equal(t, "mem://pair_0004_right.png", report.Pairs[4].RightArtifact)
}

func TestCompareOutlinesChangedRegion(t *testing.T) {
	left := solidFrame(120, 160, 0)
	right := solidFrame(120, 160, 0)
	defer left.Close()
	defer right.Close()
	// A 40x30 bright block: 1200 of 19200 pixels.
	gocv.Rectangle(&right, image.Rect(20, 10, 60, 40), color.RGBA{R: 255, G: 255, B: 255, A: 255}, -1)
	// A 5x5 speck stays below the region area but still counts in the percentage.
	gocv.Rectangle(&right, image.Rect(100, 100, 105, 105), color.RGBA{R: 255, G: 255, B: 255, A: 255}, -1)

	report, err := NewComparator(15, 500).CompareFrames(context.Background(), []gocv.Mat{left}, []gocv.Mat{right}, nil)
	require.NoError(t, err)
	pair := report.Pairs[0]
	require.Len(t, pair.Regions, 1)
	assert.Equal(t, 20, pair.Regions[0].X)
	assert.Equal(t, 10, pair.Regions[0].Y)
	assert.Greater(t, pair.PercentDifference, 6.0)
	assert.Less(t, pair.PercentDifference, 7.0)
}

func TestCompareIncompatibleFrames(t *testing.T) {
	left := []gocv.Mat{solidFrame(48, 64, 0)}
	right := []gocv.Mat{solidFrame(48, 32, 0)}
	defer closeAll(left)
	defer closeAll(right)

	_, err := NewComparator(0, 0).CompareFrames(context.Background(), left, right, nil)
	assert.True(t, errors.Is(err, model.ErrIncompatibleFrames))
}

func TestCompareStillImages(t *testing.T) {
	dir := t.TempDir()
	a := solidFrame(30, 40, 10)
	defer a.Close()
	leftPath := filepath.Join(dir, "left.png")
	rightPath := filepath.Join(dir, "right.png")
	require.True(t, gocv.IMWrite(leftPath, a))
	require.True(t, gocv.IMWrite(rightPath, a))

	report, err := NewComparator(0, 0).Compare(context.Background(), leftPath, rightPath, nil)
	require.NoError(t, err)
	require.Len(t, report.Pairs, 1)
	assert.Zero(t, report.Pairs[0].PercentDifference)
}

func TestExtractUnopenableVideo(t *testing.T) {
	e, err := NewFrameExtractor(model.DefaultFingerprintParams())
	require.NoError(t, err)

	asm := fingerprint.NewAssembler(false)
	n, err := e.Extract(context.Background(), filepath.Join(t.TempDir(), "missing.mp4"), asm, nil)
	assert.Zero(t, n)
	assert.True(t, errors.Is(err, model.ErrDecodeFailure))
	assert.Equal(t, 0, asm.Frames())
}

type countingSink struct {
	total    int64
	advanced int64
}

func (s *countingSink) SetTotal(total int64) bool { s.total = total; return true }
func (s *countingSink) Advance() int64            { s.advanced++; return s.advanced }

// writeVideo writes n solid frames; the test is skipped when the local OpenCV
// build has no mp4 encoder.
func writeVideo(t *testing.T, n int) string {
	path := filepath.Join(t.TempDir(), "clip.mp4")
	w, err := gocv.VideoWriterFile(path, "mp4v", 10, 64, 48, true)
	if err != nil || !w.IsOpened() {
		t.Skip("no mp4 encoder available")
	}
	for i := 0; i < n; i++ {
		f := solidFrame(48, 64, float64(i*40))
		require.NoError(t, w.Write(f))
		f.Close()
	}
	require.NoError(t, w.Close())
	return path
}

func TestExtractFingerprintsEveryFrame(t *testing.T) {
	path := writeVideo(t, 4)
	params := model.FingerprintParams{NumColors: 8, Width: 16, Height: 12}
	e, err := NewFrameExtractor(params)
	require.NoError(t, err)

	asm := fingerprint.NewAssembler(true)
	sink := &countingSink{}
	n, err := e.Extract(context.Background(), path, asm, sink)
	require.NoError(t, err)
	assert.Equal(t, 4, n)
	assert.Equal(t, int64(4), sink.advanced)
	assert.Equal(t, int64(16*12*3*4), asm.Len())

	// Same input, same digest.
	again := fingerprint.NewAssembler(false)
	_, err = e.Extract(context.Background(), path, again, nil)
	require.NoError(t, err)
	d1, err := asm.Digest()
	require.NoError(t, err)
	d2, err := again.Digest()
	require.NoError(t, err)
	assert.Equal(t, d1, d2)
}

func TestExtractHonorsCancellation(t *testing.T) {
	path := writeVideo(t, 3)
	e, err := NewFrameExtractor(model.DefaultFingerprintParams())
	require.NoError(t, err)

	ctx, cancel := context.WithCancel(context.Background())
	cancel()
	n, err := e.Extract(ctx, path, fingerprint.NewAssembler(false), nil)
	assert.Zero(t, n)
	assert.ErrorIs(t, err, context.Canceled)
}
