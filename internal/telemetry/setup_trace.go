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

package telemetry

import (
	"context"
	"log/slog"
	"strings"

	mexporter "github.com/GoogleCloudPlatform/opentelemetry-operations-go/exporter/metric"
	texporter "github.com/GoogleCloudPlatform/opentelemetry-operations-go/exporter/trace"
	"github.com/cockroachdb/errors"
	"go.opentelemetry.io/contrib/detectors/gcp"
	"go.opentelemetry.io/contrib/propagators/autoprop"
	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/sdk/metric"
	"go.opentelemetry.io/otel/sdk/resource"
	sdktrace "go.opentelemetry.io/otel/sdk/trace"
	semconv "go.opentelemetry.io/otel/semconv/v1.4.0"

	"github.com/jaycherian/gcp-go-media-verify/internal/cloud"
)

// ExporterGCP selects Cloud Trace and Cloud Monitoring as telemetry backends.
const ExporterGCP = "gcp"

// ShutdownFunc flushes and stops the telemetry providers.
type ShutdownFunc func(context.Context) error

func noShutdown(context.Context) error { return nil }

// SetupOpenTelemetry installs the global tracer and meter providers.
//
// Only the "gcp" exporter installs real providers; anything else keeps the
// global no-op providers so commands can still open spans and bump counters.
// The returned function must run before the process exits.
func SetupOpenTelemetry(ctx context.Context, config *cloud.Config) (ShutdownFunc, error) {
	if !strings.EqualFold(config.Telemetry.Exporter, ExporterGCP) {
		slog.Debug("telemetry export disabled", "exporter", config.Telemetry.Exporter)
		return noShutdown, nil
	}

	res, err := newResource(ctx, config.Application.Name)
	if err != nil {
		return nil, err
	}
	otel.SetTextMapPropagator(autoprop.NewTextMapPropagator())

	tp, err := newTracerProvider(config.Application.GoogleProjectId, res)
	if err != nil {
		return nil, err
	}
	mp, err := newMeterProvider(config.Application.GoogleProjectId, res)
	if err != nil {
		_ = tp.Shutdown(ctx)
		return nil, err
	}

	otel.SetTracerProvider(tp)
	otel.SetMeterProvider(mp)

	return func(ctx context.Context) error {
		return errors.CombineErrors(tp.Shutdown(ctx), mp.Shutdown(ctx))
	}, nil
}

// newResource describes this service. Partial GCP detection is logged and
// tolerated since it is the normal case off Google Cloud.
func newResource(ctx context.Context, serviceName string) (*resource.Resource, error) {
	res, err := resource.New(ctx,
		resource.WithDetectors(gcp.NewDetector()),
		resource.WithTelemetrySDK(),
		resource.WithAttributes(semconv.ServiceNameKey.String(serviceName)),
	)
	switch {
	case errors.Is(err, resource.ErrPartialResource), errors.Is(err, resource.ErrSchemaURLConflict):
		slog.Warn("partial resource detection", "error", err)
	case err != nil:
		return nil, errors.Wrap(err, "detect telemetry resource")
	}
	return res, nil
}

func newTracerProvider(projectID string, res *resource.Resource) (*sdktrace.TracerProvider, error) {
	exporter, err := texporter.New(texporter.WithProjectID(projectID))
	if err != nil {
		return nil, errors.Wrap(err, "create cloud trace exporter")
	}
	return sdktrace.NewTracerProvider(
		sdktrace.WithBatcher(exporter),
		sdktrace.WithResource(res),
	), nil
}

func newMeterProvider(projectID string, res *resource.Resource) (*metric.MeterProvider, error) {
	exporter, err := mexporter.New(mexporter.WithProjectID(projectID))
	if err != nil {
		return nil, errors.Wrap(err, "create cloud monitoring exporter")
	}
	return metric.NewMeterProvider(
		metric.WithReader(metric.NewPeriodicReader(exporter)),
		metric.WithResource(res),
	), nil
}
