package handler

import (
	"math"
	"net/http"
	"time"

	"github.com/paulmach/orb/geojson"

	"github.com/airlens/airlens/internal/airquality"
	"github.com/airlens/airlens/internal/api/models"
	"github.com/airlens/airlens/internal/api/response"
	"github.com/airlens/airlens/internal/geo"
	"github.com/airlens/airlens/internal/panel"
	"github.com/airlens/airlens/internal/provider"
	"github.com/airlens/airlens/pkg/polyline"
)

// metadataMaxAge applies to static metadata responses.
const metadataMaxAge = 24 * time.Hour

// MetadataHandler handles metadata endpoints.
type MetadataHandler struct {
	region *geo.Region
	center geo.Point
	ladder []float64
}

// NewMetadataHandler creates a new MetadataHandler for region.
func NewMetadataHandler(region *geo.Region, center geo.Point, ladder []float64) *MetadataHandler {
	if region == nil {
		region = geo.California
		center = geo.CaliforniaCenter
	}
	if len(ladder) == 0 {
		ladder = airquality.DefaultLadder
	}
	return &MetadataHandler{
		region: region,
		center: center,
		ladder: ladder,
	}
}

// GetRegion handles GET /v1/metadata/region - the service region outline.
func (h *MetadataHandler) GetRegion(w http.ResponseWriter, r *http.Request) {
	polygon := h.region.Polygon()
	feature := geojson.NewFeature(polygon)
	feature.Properties["name"] = h.region.Name()

	bounds := h.region.Bound()
	region := models.Region{
		Name:   h.region.Name(),
		Center: models.Point{Lat: h.center.Lat, Lon: h.center.Lon},
		Bounds: models.GeoBox{
			MinLat: bounds.MinLat,
			MinLon: bounds.MinLng,
			MaxLat: bounds.MaxLat,
			MaxLon: bounds.MaxLng,
		},
		Outline:       feature,
		Polyline:      polyline.EncodeRing(polygon[0]),
		StationLadder: h.ladder,
	}

	response.CacheFor(w, metadataMaxAge)
	response.JSON(w, r, http.StatusOK, region)
}

// GetEnums handles GET /v1/metadata/enums - enum values used by the API.
func (h *MetadataHandler) GetEnums(w http.ResponseWriter, r *http.Request) {
	enums := models.Enums{
		Parameters: []string{string(airquality.ParameterPM25), string(airquality.ParameterO3)},
		Policies:   []string{string(provider.Fail), string(provider.Degrade)},
		PanelStatuses: []string{
			string(panel.StatusOK),
			string(panel.StatusEmpty),
			string(panel.StatusFailed),
			string(panel.StatusDegraded),
			string(panel.StatusNotConfigured),
			panel.RegionOutside,
		},
	}
	for _, bp := range airquality.Breakpoints {
		category := models.Category{Number: bp.Category.Number, Name: bp.Category.Name}
		if bp.Max != math.MaxInt {
			category.MaxAQI = bp.Max
		}
		enums.Categories = append(enums.Categories, category)
	}
	for _, d := range provider.Domains {
		enums.Domains = append(enums.Domains, string(d))
	}

	response.CacheFor(w, metadataMaxAge)
	response.JSON(w, r, http.StatusOK, enums)
}
