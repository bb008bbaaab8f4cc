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

// Package cloud provides components for interacting with Google Cloud services.
// This file is responsible for initializing and holding all the client objects
// needed to communicate with external services. It acts as a dependency
// injection container, creating a single, shared `ServiceClients` struct that
// can be passed throughout the application.
//
// Logic Flow:
//  1. The `NewCloudServiceClients` function is called at application startup.
//  2. It always builds the ledger client (Blockfrost, rate limited).
//  3. Google Cloud clients are only created when the configuration needs them:
//     Storage for GCS artifacts or bucket verification, Pub/Sub for topic
//     subscriptions, BigQuery for the BigQuery repository, IAM for URL signing.
//     A local run with the memory repository and local artifacts therefore
//     needs no Google credentials.
//  4. The fingerprint repository (memory, Postgres or BigQuery) and the
//     comparison artifact store (local directory or GCS) are built from the
//     same configuration.
//  5. All initialized clients are bundled into a single `ServiceClients` struct.
package cloud

import (
	"context"
	"log/slog"
	"time"

	"cloud.google.com/go/bigquery"
	credentials "cloud.google.com/go/iam/credentials/apiv1"
	"cloud.google.com/go/pubsub"
	"cloud.google.com/go/storage"
	"github.com/cockroachdb/errors"
	"github.com/jaycherian/gcp-go-media-verify/internal/core/artifacts"
	"github.com/jaycherian/gcp-go-media-verify/internal/core/ledger"
	"github.com/jaycherian/gcp-go-media-verify/internal/core/repository"
)

// ServiceClients is a struct that acts as a central container for all the clients
// that interact with external services. Google Cloud clients are nil when the
// configuration does not use them.
type ServiceClients struct {
	StorageClient   *storage.Client                   // Client for Google Cloud Storage (GCS).
	PubsubClient    *pubsub.Client                    // Client for Google Cloud Pub/Sub.
	BigQueryClient  *bigquery.Client                  // Client for Google Cloud BigQuery.
	IAMClient       *credentials.IamCredentialsClient // Client for IAM to sign GCS URLs.
	PubSubListeners map[string]*PubSubListener        // Active Pub/Sub listeners, keyed by a logical name from the config.
	LedgerClient    ledger.Client                     // The rate-limited ledger client.
	Repository      repository.FingerprintRepository  // The fingerprint accumulation list.
	ArtifactStore   artifacts.Store                   // Receives annotated comparison frames.
	postgres        *repository.PostgresRepository
}

// Close is a utility method to gracefully shut down all the active client connections.
func (c *ServiceClients) Close() {
	if c.StorageClient != nil {
		_ = c.StorageClient.Close()
	}
	if c.PubsubClient != nil {
		_ = c.PubsubClient.Close()
	}
	if c.BigQueryClient != nil {
		_ = c.BigQueryClient.Close()
	}
	if c.IAMClient != nil {
		_ = c.IAMClient.Close()
	}
	if c.postgres != nil {
		_ = c.postgres.Close()
	}
}

// NewCloudServiceClients is a factory function that initializes the service
// clients the provided configuration requires.
//
// Inputs:
//   - ctx: The root context.Context for the application, used to manage the lifecycle of the clients.
//   - config: A pointer to the loaded application configuration (`Config`).
//
// Outputs:
//   - *ServiceClients: A pointer to the initialized ServiceClients struct.
//   - error: An error if any of the clients fail to initialize.
func NewCloudServiceClients(ctx context.Context, config *Config) (cloud *ServiceClients, err error) {
	cloud = &ServiceClients{PubSubListeners: make(map[string]*PubSubListener)}

	blockfrost := NewBlockfrostClient(config.Ledger, nil)
	cloud.LedgerClient = NewQuotaAwareLedgerClient(blockfrost, config.Ledger.RequestsPerSecond, config.Ledger.Burst)

	needsStorage := config.Storage.ArtifactBackend == BackendGCS || len(config.TopicSubscriptions) > 0
	if needsStorage {
		if cloud.StorageClient, err = storage.NewClient(ctx); err != nil {
			return nil, err
		}
	}

	if len(config.TopicSubscriptions) > 0 {
		if cloud.PubsubClient, err = pubsub.NewClient(ctx, config.Application.GoogleProjectId); err != nil {
			cloud.Close()
			return nil, err
		}
		// The command is attached later, once the workflows are built.
		for subKey, values := range config.TopicSubscriptions {
			listener, err := NewPubSubListener(cloud.PubsubClient, values.Name, nil)
			if err != nil {
				cloud.Close()
				return nil, err
			}
			cloud.PubSubListeners[subKey] = listener
		}
	}

	if config.Repository.Backend == BackendBigQuery {
		if cloud.BigQueryClient, err = bigquery.NewClient(ctx, config.Application.GoogleProjectId); err != nil {
			cloud.Close()
			return nil, err
		}
	}

	if needsStorage && config.Application.SignerServiceAccountEmail != "" {
		if cloud.IAMClient, err = credentials.NewIamCredentialsClient(ctx); err != nil {
			cloud.Close()
			return nil, err
		}
	}

	if err = cloud.initRepository(ctx, config); err != nil {
		cloud.Close()
		return nil, err
	}
	if err = cloud.initArtifactStore(config); err != nil {
		cloud.Close()
		return nil, err
	}

	slog.Info("service clients initialized",
		"storage", cloud.StorageClient != nil,
		"pubsub", cloud.PubsubClient != nil,
		"bigquery", cloud.BigQueryClient != nil,
		"iam", cloud.IAMClient != nil,
		"listeners", len(cloud.PubSubListeners),
		"repository", config.Repository.Backend,
		"artifacts", config.Storage.ArtifactBackend)
	return cloud, nil
}

func (c *ServiceClients) initRepository(ctx context.Context, config *Config) error {
	switch config.Repository.Backend {
	case "", BackendMemory:
		c.Repository = repository.NewMemoryRepository()
	case BackendPostgres:
		repo, err := repository.OpenPostgres(ctx, config.Postgres.DSN, config.Postgres.MaxOpenConns)
		if err != nil {
			return err
		}
		c.postgres = repo
		c.Repository = repo
	case BackendBigQuery:
		c.Repository = repository.NewBigQueryRepository(c.BigQueryClient,
			config.BigQueryDataSource.DatasetName, config.BigQueryDataSource.FingerprintTable)
	default:
		return errors.Newf("unknown repository backend %q", config.Repository.Backend)
	}
	return nil
}

func (c *ServiceClients) initArtifactStore(config *Config) error {
	switch config.Storage.ArtifactBackend {
	case "", BackendLocal:
		store, err := artifacts.NewLocalStore(config.Storage.ArtifactDir)
		if err != nil {
			return err
		}
		c.ArtifactStore = store
	case BackendGCS:
		store := artifacts.NewGCSStore(c.StorageClient, config.Storage.ArtifactBucket, config.Storage.ArtifactPrefix)
		if c.IAMClient != nil && config.Storage.SignedURLMinutes > 0 {
			ttl := time.Duration(config.Storage.SignedURLMinutes) * time.Minute
			store = store.WithSignedURLs(c.IAMClient, config.Application.SignerServiceAccountEmail, ttl)
		}
		c.ArtifactStore = store
	default:
		return errors.Newf("unknown artifact backend %q", config.Storage.ArtifactBackend)
	}
	return nil
}
