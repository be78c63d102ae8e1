package worker_test

import (
	"context"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/airlens/airlens/internal/satellite"
	"github.com/airlens/airlens/internal/worker"
)

func newProcessor(stations *fakeStations) *worker.Processor {
	job := worker.NewProbeJob(worker.ProbeJobConfig{
		Config:    worker.DefaultProbeConfig(),
		Logger:    testLogger(),
		Stations:  stations,
		Weather:   &fakeWeather{},
		Satellite: &fakeSatellite{source: satellite.SourceLive},
	})
	return worker.NewProcessor(job, testLogger())
}

func TestProcessor_ProviderProbe(t *testing.T) {
	stations := &fakeStations{}
	processor := newProcessor(stations)

	err := processor.Process(context.Background(), []byte(`{"job_type":"provider_probe"}`))

	require.NoError(t, err)
	assert.Equal(t, int32(5), stations.calls.Load())
}

func TestProcessor_ProviderProbe_MostlyFailing(t *testing.T) {
	// Everything but Sacramento fails.
	processor := newProcessor(&fakeStations{failBelowLat: 38})

	err := processor.Process(context.Background(), []byte(`{"job_type":"provider_probe"}`))

	assert.Error(t, err)
}

func TestProcessor_HealthCheck(t *testing.T) {
	stations := &fakeStations{}
	processor := newProcessor(stations)

	err := processor.Process(context.Background(), []byte(`{"job_type":"health_check"}`))

	require.NoError(t, err)
	assert.Equal(t, int32(1), stations.calls.Load())
}

func TestProcessor_HealthCheck_Failing(t *testing.T) {
	processor := newProcessor(&fakeStations{failBelowLat: 90})

	err := processor.Process(context.Background(), []byte(`{"job_type":"health_check"}`))

	assert.Error(t, err)
}

func TestProcessor_AcksUnknownAndMalformed(t *testing.T) {
	for _, payload := range []string{`{"job_type":"alert_evaluation"}`, `not json`, `{}`} {
		t.Run(payload, func(t *testing.T) {
			stations := &fakeStations{}
			processor := newProcessor(stations)

			err := processor.Process(context.Background(), []byte(payload))

			assert.NoError(t, err)
			assert.Zero(t, stations.calls.Load())
		})
	}
}
