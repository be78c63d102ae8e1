package airquality_test

import (
	"testing"

	"github.com/stretchr/testify/assert"

	"github.com/airlens/airlens/internal/airquality"
)

func TestCategoryName(t *testing.T) {
	tests := []struct {
		aqi  int
		want string
	}{
		{aqi: 0, want: "Good"},
		{aqi: 50, want: "Good"},
		{aqi: 51, want: "Moderate"},
		{aqi: 100, want: "Moderate"},
		{aqi: 101, want: "Unhealthy for Sensitive Groups"},
		{aqi: 150, want: "Unhealthy for Sensitive Groups"},
		{aqi: 151, want: "Unhealthy"},
		{aqi: 200, want: "Unhealthy"},
		{aqi: 201, want: "Very Unhealthy"},
		{aqi: 300, want: "Very Unhealthy"},
		{aqi: 301, want: "Hazardous"},
		{aqi: 999, want: "Hazardous"},
	}

	for _, tt := range tests {
		t.Run(tt.want, func(t *testing.T) {
			assert.Equal(t, tt.want, airquality.CategoryName(tt.aqi))
		})
	}
}

func TestCategoryFor_Numbers(t *testing.T) {
	assert.Equal(t, 1, airquality.CategoryFor(50).Number)
	assert.Equal(t, 2, airquality.CategoryFor(51).Number)
	assert.Equal(t, 3, airquality.CategoryFor(150).Number)
	assert.Equal(t, 4, airquality.CategoryFor(151).Number)
	assert.Equal(t, 5, airquality.CategoryFor(300).Number)
	assert.Equal(t, 6, airquality.CategoryFor(301).Number)
}
