package predictions

import (
	"context"
	"errors"
	"fmt"
	"regexp"
	"strings"

	"github.com/airlens/airlens/internal/provider"
)

// MaxResults caps the number of features in one response.
const MaxResults = 10000

// StoreName is the provider name used for health reporting and errors.
const StoreName = "predictions"

// ErrInvalidIdentifier is returned for table or column names that cannot be
// safely interpolated into SQL.
var ErrInvalidIdentifier = errors.New("invalid identifier")

var identifierPattern = regexp.MustCompile(`^[A-Za-z0-9_.-]+$`)

// ValidateIdentifier checks a configured table or column name.
func ValidateIdentifier(name string) error {
	if !identifierPattern.MatchString(name) || strings.Contains(name, "..") {
		return fmt.Errorf("%w: %q", ErrInvalidIdentifier, name)
	}
	return nil
}

// Point is one grid cell prediction.
type Point struct {
	CellLat float64
	CellLon float64
	PM25    float64
}

// Store returns prediction cells matching a query, at most limit rows.
type Store interface {
	Predictions(ctx context.Context, q Query, limit int) ([]Point, error)
}

// Unavailable is the store used when no backend is configured.
// Every query fails with provider.ErrNotConfigured.
type Unavailable struct{}

// Predictions implements Store.
func (Unavailable) Predictions(context.Context, Query, int) ([]Point, error) {
	return nil, provider.NotConfigured(StoreName)
}
