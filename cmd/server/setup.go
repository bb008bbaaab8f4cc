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

package main

import (
	"context"
	"log"
	"log/slog"
	"os"
	"time"

	"github.com/jaycherian/gcp-go-media-verify/internal/api"
	"github.com/jaycherian/gcp-go-media-verify/internal/cloud"
	"github.com/jaycherian/gcp-go-media-verify/internal/core/progress"
	"github.com/jaycherian/gcp-go-media-verify/internal/core/services"
	"github.com/jaycherian/gcp-go-media-verify/internal/core/workflow"
)

// StateManager holds the shared components of the server.
type StateManager struct {
	config   *cloud.Config
	cloud    *cloud.ServiceClients
	registry *progress.Registry
	api      *api.State
}

var state = &StateManager{}

// SetupOS points the configuration loader at the local runtime files unless
// the environment already says otherwise.
func SetupOS() (err error) {
	if _, ok := os.LookupEnv(cloud.EnvConfigFilePrefix); !ok {
		if err = os.Setenv(cloud.EnvConfigFilePrefix, "configs"); err != nil {
			return err
		}
	}
	if _, ok := os.LookupEnv(cloud.EnvConfigRuntime); !ok {
		err = os.Setenv(cloud.EnvConfigRuntime, "local")
	}
	return err
}

// GetConfig loads the configuration once.
func GetConfig() *cloud.Config {
	if state.config == nil {
		if err := SetupOS(); err != nil {
			log.Fatalf("failed to setup os: %v\n", err)
		}
		config := cloud.NewConfig()
		if err := cloud.LoadConfig(config); err != nil {
			log.Fatalf("failed to load configuration: %v\n", err)
		}
		config.ApplyEnvOverrides()
		state.config = config
	}
	return state.config
}

// InitState builds the service clients, the workflows and the services, then
// starts the Pub/Sub listeners and the job registry sweeper.
func InitState(ctx context.Context) {
	config := GetConfig()

	cloudClients, err := cloud.NewCloudServiceClients(ctx, config)
	if err != nil {
		panic(err)
	}
	state.cloud = cloudClients

	state.registry = progress.NewRegistry(config.Progress.Retention())

	state.api = &api.State{
		Registry: state.registry,
		VerifyService: &services.VerifyService{
			Workflow: workflow.NewMediaVerifyWorkflow(config, cloudClients),
			Registry: state.registry,
		},
		CompareService: &services.CompareService{
			Workflow: workflow.NewMediaCompareWorkflow(config, cloudClients),
		},
		FingerprintStore: &services.FingerprintService{
			Repository: cloudClients.Repository,
		},
		ProgressInterval: config.Progress.Interval(),
	}

	go sweepJobs(ctx, state.registry, config.Progress.Retention())

	SetupListeners(config, cloudClients, ctx)
}

// sweepJobs drops finished jobs once their retention has elapsed.
func sweepJobs(ctx context.Context, registry *progress.Registry, retention time.Duration) {
	period := retention / 2
	if period < time.Second {
		period = time.Second
	}
	ticker := time.NewTicker(period)
	defer ticker.Stop()
	for {
		select {
		case <-ctx.Done():
			return
		case now := <-ticker.C:
			before := registry.Len()
			registry.Sweep(now)
			if swept := before - registry.Len(); swept > 0 {
				slog.Debug("swept finished jobs", "count", swept)
			}
		}
	}
}
