package airquality_test

import (
	"context"
	"io"
	"math"
	"testing"

	"github.com/rs/zerolog"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/airlens/airlens/internal/airquality"
)

func newService(src airquality.StationSource, ladder []float64) *airquality.Service {
	return airquality.NewService(airquality.ServiceConfig{
		Source: src,
		Ladder: ladder,
		Logger: zerolog.New(io.Discard),
	})
}

func TestService_Current_AveragesResolvedRung(t *testing.T) {
	src := &scriptedSource{
		results: map[float64][]airquality.Observation{
			25: {
				obs(airquality.ParameterPM25, 20, "Fresno"),
				obs(airquality.ParameterO3, 35, "Fresno"),
				obs(airquality.ParameterPM25, 31, "Clovis"),
			},
		},
	}

	got, err := newService(src, nil).Current(context.Background(), fresno, 0)

	require.NoError(t, err)
	require.Len(t, got, 2)
	assert.Equal(t, 26, got[0].AQI) // 25.5 rounds up
	assert.Equal(t, "Average of 2 stations", got[0].ReportingArea)
	assert.Equal(t, "Average of 1 stations", got[1].ReportingArea)
	assert.Equal(t, []float64{10, 25}, src.calls)
}

func TestService_Current_ExplicitDistanceIsSingleRung(t *testing.T) {
	src := &scriptedSource{}

	got, err := newService(src, nil).Current(context.Background(), fresno, 25)

	require.NoError(t, err)
	assert.Empty(t, got)
	assert.Equal(t, []float64{25}, src.calls)
}

func TestService_Current_InvalidDistance(t *testing.T) {
	svc := newService(&scriptedSource{}, nil)

	_, err := svc.Current(context.Background(), fresno, -1)
	assert.ErrorIs(t, err, airquality.ErrInvalidDistance)

	_, err = svc.Current(context.Background(), fresno, math.Inf(1))
	assert.ErrorIs(t, err, airquality.ErrInvalidDistance)
}

func TestNewService_InvalidLadderFallsBack(t *testing.T) {
	svc := newService(&scriptedSource{}, []float64{50, 10})
	assert.Equal(t, airquality.DefaultLadder, svc.Ladder())

	svc = newService(&scriptedSource{}, []float64{5, 15})
	assert.Equal(t, []float64{5, 15}, svc.Ladder())
}
