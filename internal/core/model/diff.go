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

package model

import "image"

// Region is the bounding box of one contiguous difference area.
type Region struct {
	X      int `json:"x"`
	Y      int `json:"y"`
	Width  int `json:"width"`
	Height int `json:"height"`
}

// RegionFromRectangle converts an image.Rectangle to a Region.
func RegionFromRectangle(r image.Rectangle) Region {
	return Region{X: r.Min.X, Y: r.Min.Y, Width: r.Dx(), Height: r.Dy()}
}

// FramePairDiff is the comparison result for one index of the aligned sequences.
type FramePairDiff struct {
	Index             int      `json:"index"`
	PercentDifference float64  `json:"percent_difference"`
	Regions           []Region `json:"regions"`
	LeftPadded        bool     `json:"left_padded,omitempty"`
	RightPadded       bool     `json:"right_padded,omitempty"`
	LeftArtifact      string   `json:"left_artifact,omitempty"`
	RightArtifact     string   `json:"right_artifact,omitempty"`
}

// DiffReport holds one FramePairDiff per index, in index order.
type DiffReport struct {
	LeftFrames  int             `json:"left_frames"`
	RightFrames int             `json:"right_frames"`
	Pairs       []FramePairDiff `json:"pairs"`
}

// MaxPercentDifference returns the largest per-pair difference, or 0 for an empty report.
func (d *DiffReport) MaxPercentDifference() float64 {
	var out float64
	for _, p := range d.Pairs {
		if p.PercentDifference > out {
			out = p.PercentDifference
		}
	}
	return out
}
