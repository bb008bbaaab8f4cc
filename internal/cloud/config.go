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

// Package cloud provides components for interacting with Google Cloud services
// and the ledger REST API. This file defines the configuration structs that
// map to the TOML files in `configs/`. The layout follows the sections of
// `.env.toml`; each runtime file (`.env.local.toml`, `.env.test.toml`) only
// overrides what differs.
//
// Structs:
//   - Config: The root configuration object.
//   - Ledger, Storage, Repository, BigQueryDataSource, Postgres, Progress,
//     Comparator, Telemetry, TopicSubscription: One struct per section.
//
// Functions:
//   - NewConfig: A constructor that initializes a Config with defaults.
//   - ApplyEnvOverrides: Reads secrets that must not live in TOML files.
package cloud

import (
	"os"
	"time"

	"github.com/jaycherian/gcp-go-media-verify/internal/core/model"
)

// Environment variables that override secrets in the TOML files.
const (
	EnvBlockfrostProjectID = "BLOCKFROST_PROJECT_ID"
	EnvPostgresDSN         = "POSTGRES_DSN"
)

// Repository and artifact backends.
const (
	BackendMemory   = "memory"
	BackendPostgres = "postgres"
	BackendBigQuery = "bigquery"
	BackendLocal    = "local"
	BackendGCS      = "gcs"
)

// Ledger represents the configuration of the Blockfrost REST endpoint.
type Ledger struct {
	BaseURL           string `toml:"base_url"`            // The Blockfrost API root, e.g. https://cardano-mainnet.blockfrost.io/api/v0.
	ProjectID         string `toml:"project_id"`          // The Blockfrost project id sent in the project_id header.
	DefaultWallet     string `toml:"default_wallet"`      // The wallet searched when a request carries no override.
	RequestsPerSecond int    `toml:"requests_per_second"` // The sustained request rate allowed against the API.
	Burst             int    `toml:"burst"`               // The number of requests allowed in a burst.
	TimeoutInSeconds  int    `toml:"timeout_in_seconds"`  // The timeout of a single HTTP call.
	MaxPages          int    `toml:"max_pages"`           // An upper bound on pages read per search. 0 means unbounded.
}

// Timeout returns the per-call timeout as a duration.
func (l Ledger) Timeout() time.Duration {
	if l.TimeoutInSeconds <= 0 {
		return 30 * time.Second
	}
	return time.Duration(l.TimeoutInSeconds) * time.Second
}

// TopicSubscription represents the configuration for a Pub/Sub topic subscription.
type TopicSubscription struct {
	Name             string `toml:"name"`               // The name of the Pub/Sub subscription.
	DeadLetterTopic  string `toml:"dead_letter_topic"`  // The name of the dead-letter topic for the subscription.
	TimeoutInSeconds int    `toml:"timeout_in_seconds"` // The timeout for the subscription in seconds.
}

// Storage represents the configuration for uploaded media and comparison artifacts.
type Storage struct {
	UploadDir         string `toml:"upload_dir"`          // The local directory uploads are written to. Empty uses the OS temp dir.
	ArtifactBackend   string `toml:"artifact_backend"`    // "local" or "gcs".
	ArtifactDir       string `toml:"artifact_dir"`        // The local directory for annotated frames.
	ArtifactBucket    string `toml:"artifact_bucket"`     // The GCS bucket for annotated frames.
	ArtifactPrefix    string `toml:"artifact_prefix"`     // The object prefix inside the artifact bucket.
	SignedURLMinutes  int    `toml:"signed_url_minutes"`  // Lifetime of signed artifact URLs. 0 disables signing.
	VerifyInputBucket string `toml:"verify_input_bucket"` // The bucket whose uploads are verified through Pub/Sub.
}

// Repository selects the fingerprint repository implementation.
type Repository struct {
	Backend string `toml:"backend"` // "memory", "postgres" or "bigquery".
}

// BigQueryDataSource represents the configuration for a BigQuery data source.
type BigQueryDataSource struct {
	DatasetName      string `toml:"dataset"`           // The name of the BigQuery dataset.
	FingerprintTable string `toml:"fingerprint_table"` // The table holding fingerprint records.
}

// Postgres represents the connection settings of the Postgres repository.
type Postgres struct {
	DSN          string `toml:"dsn"`            // The connection string. Overridden by POSTGRES_DSN.
	MaxOpenConns int    `toml:"max_open_conns"` // The maximum number of open connections.
}

// Progress configures the per-job progress stream.
type Progress struct {
	IntervalInMillis   int `toml:"interval_in_millis"`   // The cadence of progress lines.
	RetentionInMinutes int `toml:"retention_in_minutes"` // How long finished jobs stay queryable.
}

// Interval returns the stream cadence as a duration.
func (p Progress) Interval() time.Duration {
	if p.IntervalInMillis <= 0 {
		return time.Second
	}
	return time.Duration(p.IntervalInMillis) * time.Millisecond
}

// Retention returns the retention window as a duration.
func (p Progress) Retention() time.Duration {
	return time.Duration(p.RetentionInMinutes) * time.Minute
}

// Comparator configures the frame difference comparator.
type Comparator struct {
	Threshold     float32 `toml:"threshold"`       // Per-pixel intensity above which a pixel counts as different.
	MinRegionArea float64 `toml:"min_region_area"` // Contours with an area at or below this are not annotated.
}

// Telemetry selects where traces and metrics are exported.
type Telemetry struct {
	Exporter string `toml:"exporter"` // "gcp" or "none".
}

// Config represents the overall configuration for the application, loaded from TOML files.
// It acts as the root container for all other configuration structs.
type Config struct {
	// Application holds general application settings.
	Application struct {
		Name                      string `toml:"name"`                         // The name of the application.
		GoogleProjectId           string `toml:"google_project_id"`            // The Google Cloud project ID.
		GoogleLocation            string `toml:"location"`                     // The Google Cloud location.
		SignerServiceAccountEmail string `toml:"signer_service_account_email"` // The service account email used for signing GCS URLs.
		LogFormat                 string `toml:"log_format"`                   // "json" for Cloud Logging, "text" for a colored console.
		LogLevel                  string `toml:"log_level"`                    // "debug", "info", "warn" or "error".
	} `toml:"application"`
	// Server holds the HTTP listener settings.
	Server struct {
		Port                  int   `toml:"port"`                     // The TCP port to listen on.
		ReadTimeoutInSeconds  int   `toml:"read_timeout_in_seconds"`  // The HTTP read timeout.
		WriteTimeoutInSeconds int   `toml:"write_timeout_in_seconds"` // The HTTP write timeout. 0 disables it, which progress streams need.
		MaxUploadInMegabytes  int64 `toml:"max_upload_in_megabytes"`  // The multipart memory limit.
	} `toml:"server"`
	Fingerprint        model.FingerprintParams      `toml:"fingerprint"`           // Palette size and target resolution.
	Ledger             Ledger                       `toml:"ledger"`                // Ledger API configuration.
	Storage            Storage                      `toml:"storage"`               // Storage configuration.
	Repository         Repository                   `toml:"repository"`            // Fingerprint repository selection.
	BigQueryDataSource BigQueryDataSource           `toml:"big_query_data_source"` // BigQuery data source configuration.
	Postgres           Postgres                     `toml:"postgres"`              // Postgres configuration.
	Progress           Progress                     `toml:"progress"`              // Progress stream configuration.
	Comparator         Comparator                   `toml:"comparator"`            // Frame comparator configuration.
	Telemetry          Telemetry                    `toml:"telemetry"`             // Telemetry exporter configuration.
	TopicSubscriptions map[string]TopicSubscription `toml:"topic_subscriptions"`   // A map of Pub/Sub topic subscriptions, keyed by a logical name (e.g., "VerifyTopic").
}

// NewConfig is a constructor function that creates a new, initialized Config instance.
// The maps are initialized so the TOML decoder can populate them, and the
// fingerprint and comparator sections start from their documented defaults.
//
// Outputs:
//   - *Config: A pointer to a new Config struct.
func NewConfig() *Config {
	c := &Config{
		Fingerprint:        model.DefaultFingerprintParams(),
		Comparator:         Comparator{Threshold: 15, MinRegionArea: 500},
		Repository:         Repository{Backend: BackendMemory},
		Progress:           Progress{IntervalInMillis: 1000, RetentionInMinutes: 30},
		Telemetry:          Telemetry{Exporter: "none"},
		TopicSubscriptions: make(map[string]TopicSubscription),
	}
	c.Application.LogFormat = "json"
	c.Application.LogLevel = "info"
	c.Server.Port = 8080
	c.Server.ReadTimeoutInSeconds = 60
	c.Server.MaxUploadInMegabytes = 512
	c.Storage.ArtifactBackend = BackendLocal
	return c
}

// ApplyEnvOverrides replaces secrets with values from the environment when set.
func (c *Config) ApplyEnvOverrides() {
	if v := os.Getenv(EnvBlockfrostProjectID); v != "" {
		c.Ledger.ProjectID = v
	}
	if v := os.Getenv(EnvPostgresDSN); v != "" {
		c.Postgres.DSN = v
	}
}
