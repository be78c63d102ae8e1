package airquality

import (
	"fmt"
	"math"
)

// Breakpoint is the upper AQI bound (inclusive) of one category.
type Breakpoint struct {
	Max      int
	Category Category
}

// Breakpoints is the AQI category table in ascending order.
var Breakpoints = []Breakpoint{
	{Max: 50, Category: Category{Number: 1, Name: "Good"}},
	{Max: 100, Category: Category{Number: 2, Name: "Moderate"}},
	{Max: 150, Category: Category{Number: 3, Name: "Unhealthy for Sensitive Groups"}},
	{Max: 200, Category: Category{Number: 4, Name: "Unhealthy"}},
	{Max: 300, Category: Category{Number: 5, Name: "Very Unhealthy"}},
	{Max: math.MaxInt, Category: Category{Number: 6, Name: "Hazardous"}},
}

// CategoryFor returns the category an AQI value falls in.
func CategoryFor(aqi int) Category {
	for _, bp := range Breakpoints {
		if aqi <= bp.Max {
			return bp.Category
		}
	}
	return Breakpoints[len(Breakpoints)-1].Category
}

// CategoryName returns the category name for an AQI value.
func CategoryName(aqi int) string {
	return CategoryFor(aqi).Name
}

// AverageLabel is the synthetic reporting area of an averaged observation.
func AverageLabel(count int) string {
	return fmt.Sprintf("Average of %d stations", count)
}
