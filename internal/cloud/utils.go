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

package cloud

import (
	"log/slog"
	"os"
	"path/filepath"

	"github.com/BurntSushi/toml"
	"github.com/cockroachdb/errors"
)

// Configuration file naming. The base file is <prefix>/.env.toml and the
// runtime overlay is <prefix>/.env.<runtime>.toml.
const (
	ConfigFileBaseName  = ".env"
	ConfigFileExtension = ".toml"
	ConfigSeparator     = "."
	EnvConfigFilePrefix = "GCP_CONFIG_PREFIX"
	EnvConfigRuntime    = "GCP_RUNTIME"
	defaultRuntime      = "test"
)

// ConfigFiles returns the base and runtime file paths selected by the
// environment. The runtime defaults to "test".
func ConfigFiles() (base string, overlay string) {
	prefix := os.Getenv(EnvConfigFilePrefix)
	runtime := os.Getenv(EnvConfigRuntime)
	if runtime == "" {
		runtime = defaultRuntime
	}
	base = filepath.Join(prefix, ConfigFileBaseName+ConfigFileExtension)
	overlay = filepath.Join(prefix, ConfigFileBaseName+ConfigSeparator+runtime+ConfigFileExtension)
	return base, overlay
}

// LoadConfig decodes the base file and then the runtime overlay into target.
// Keys present in the overlay win; a missing file is skipped.
func LoadConfig(target any) error {
	base, overlay := ConfigFiles()
	slog.Debug("loading configuration", "base", base, "runtime", overlay)
	for _, name := range []string{base, overlay} {
		if err := decodeIfPresent(name, target); err != nil {
			return err
		}
	}
	return nil
}

func decodeIfPresent(name string, target any) error {
	if _, err := os.Stat(name); errors.Is(err, os.ErrNotExist) {
		return nil
	}
	if _, err := toml.DecodeFile(name, target); err != nil {
		return errors.WithHint(
			errors.Wrapf(err, "decode configuration file %s", name),
			"check the TOML syntax and that values match the configuration field types")
	}
	return nil
}
