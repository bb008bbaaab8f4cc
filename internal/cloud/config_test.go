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
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestLoadConfigLayersRuntimeFile(t *testing.T) {
	dir := t.TempDir()
	base := `
[application]
name = "media-verify"
log_format = "json"

[fingerprint]
num_colors = 8
width = 640
height = 480

[ledger]
base_url = "https://cardano-mainnet.blockfrost.io/api/v0"
default_wallet = "addr_default"
requests_per_second = 10

[topic_subscriptions.VerifyTopic]
name = "verify-uploads-sub"
`
	runtime := `
[application]
log_format = "text"

[ledger]
default_wallet = "addr_override"
`
	require.NoError(t, os.WriteFile(filepath.Join(dir, ".env.toml"), []byte(base), 0o600))
	require.NoError(t, os.WriteFile(filepath.Join(dir, ".env.unit.toml"), []byte(runtime), 0o600))
	t.Setenv(EnvConfigFilePrefix, dir)
	t.Setenv(EnvConfigRuntime, "unit")
	t.Setenv(EnvBlockfrostProjectID, "from-env")

	config := NewConfig()
	require.NoError(t, LoadConfig(config))
	config.ApplyEnvOverrides()

	assert.Equal(t, "media-verify", config.Application.Name)
	assert.Equal(t, "text", config.Application.LogFormat)
	assert.Equal(t, "addr_override", config.Ledger.DefaultWallet)
	assert.Equal(t, 10, config.Ledger.RequestsPerSecond)
	assert.Equal(t, "from-env", config.Ledger.ProjectID)
	assert.Equal(t, 8, config.Fingerprint.NumColors)
	assert.Equal(t, "verify-uploads-sub", config.TopicSubscriptions["VerifyTopic"].Name)
	assert.Equal(t, BackendMemory, config.Repository.Backend)
}

func TestConfigDefaults(t *testing.T) {
	config := NewConfig()
	assert.NoError(t, config.Fingerprint.Validate())
	assert.Equal(t, float32(15), config.Comparator.Threshold)
	assert.Equal(t, float64(500), config.Comparator.MinRegionArea)
	assert.Equal(t, time.Second, config.Progress.Interval())
	assert.Equal(t, 30*time.Second, config.Ledger.Timeout())
	assert.Equal(t, 8080, config.Server.Port)
}

func TestLoadConfigRejectsMalformedFile(t *testing.T) {
	dir := t.TempDir()
	require.NoError(t, os.WriteFile(filepath.Join(dir, ".env.toml"), []byte("[application\nname = 1"), 0o600))
	t.Setenv(EnvConfigFilePrefix, dir)
	t.Setenv(EnvConfigRuntime, "unit")

	err := LoadConfig(NewConfig())
	require.Error(t, err)
	assert.Contains(t, err.Error(), ".env.toml")
}

func TestConfigFilesDefaultsToTestRuntime(t *testing.T) {
	t.Setenv(EnvConfigFilePrefix, "configs")
	t.Setenv(EnvConfigRuntime, "")

	base, overlay := ConfigFiles()
	assert.Equal(t, filepath.Join("configs", ".env.toml"), base)
	assert.Equal(t, filepath.Join("configs", ".env.test.toml"), overlay)
}
