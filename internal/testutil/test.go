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

// Package test holds the fixtures shared by the workflow and service tests:
// the test configuration, a sample bucket notification and generated images.
package test

import (
	"bytes"
	"image"
	"image/color"
	"image/png"
	"log"
	"os"
	"path/filepath"
	"sync"

	"github.com/jaycherian/gcp-go-media-verify/internal/cloud"
)

// TestWallet is the wallet address used by the test configuration and fakes.
const TestWallet = "addr_test1qz0ledgerwallet"

var (
	configOnce sync.Once
	config     *cloud.Config
)

// GetTestVerifyMessageText is the OBJECT_FINALIZE notification for
// clip-001.mp4 in the verification inbox. Its metadata overrides the wallet.
func GetTestVerifyMessageText() string {
	return `{
  "kind": "storage#object",
  "id": "media_verify_inbox/clip-001.mp4/1728615848664286",
  "selfLink": "https://www.googleapis.com/storage/v1/b/media_verify_inbox/o/clip-001.mp4",
  "name": "clip-001.mp4",
  "bucket": "media_verify_inbox",
  "generation": "1728615848664286",
  "metageneration": "1",
  "contentType": "video/mp4",
  "timeCreated": "2024-10-11T03:04:08.672Z",
  "updated": "2024-10-11T03:04:08.672Z",
  "storageClass": "STANDARD",
  "size": "259348",
  "md5Hash": "67c1rAU+1RYZzK5zp8iBkA==",
  "metadata": { "wallet": "` + TestWallet + `" },
  "crc32c": "IYeSTw==",
  "etag": "CN658+yrhYkDEAE="
}
`
}

// PNGBytes encodes a w x h grayscale gradient as PNG. Different seeds give
// different images.
func PNGBytes(w, h int, seed uint8) []byte {
	img := image.NewGray(image.Rect(0, 0, w, h))
	for y := 0; y < h; y++ {
		for x := 0; x < w; x++ {
			img.SetGray(x, y, color.Gray{Y: uint8(x*255/max(w-1, 1)) ^ seed})
		}
	}
	var buf bytes.Buffer
	if err := png.Encode(&buf, img); err != nil {
		panic(err)
	}
	return buf.Bytes()
}

// configDir walks up from the working directory to the module root and
// returns its configs directory.
func configDir() string {
	dir, err := os.Getwd()
	if err != nil {
		return "configs"
	}
	for {
		if _, err := os.Stat(filepath.Join(dir, "go.mod")); err == nil {
			return filepath.Join(dir, "configs")
		}
		parent := filepath.Dir(dir)
		if parent == dir {
			return "configs"
		}
		dir = parent
	}
}

// SetupOS points the configuration loader at the module's test files.
func SetupOS() error {
	if err := os.Setenv(cloud.EnvConfigFilePrefix, configDir()); err != nil {
		return err
	}
	return os.Setenv(cloud.EnvConfigRuntime, "test")
}

// GetConfig loads configs/.env.test.toml once per test binary.
func GetConfig() *cloud.Config {
	configOnce.Do(func() {
		if err := SetupOS(); err != nil {
			log.Fatalf("failed to setup environment for test: %v\n", err)
		}
		loaded := cloud.NewConfig()
		if err := cloud.LoadConfig(loaded); err != nil {
			log.Fatalf("failed to load test configuration: %v\n", err)
		}
		loaded.ApplyEnvOverrides()
		config = loaded
	})
	return config
}
