package formulas

import (
	"math"

	"github.com/shopspring/decimal"
)

// PresentationPlaces is the number of decimal places used in reports.
const PresentationPlaces = 4

// Round rounds half away from zero to the given number of places.
// NaN and infinities are returned unchanged.
func Round(value float64, places int32) float64 {
	if math.IsNaN(value) || math.IsInf(value, 0) {
		return value
	}
	rounded, _ := decimal.NewFromFloat(value).Round(places).Float64()
	return rounded
}

// Round4 rounds to PresentationPlaces.
func Round4(value float64) float64 {
	return Round(value, PresentationPlaces)
}
