package airquality

import "math"

// reducedParameters are the pollutants Reduce keeps, in output order.
var reducedParameters = []Parameter{ParameterPM25, ParameterO3}

// Reduce collapses observations into one averaged observation per recognized
// pollutant. Parameters other than PM2.5 and O3 are dropped.
//
// The AQI is the arithmetic mean rounded half away from zero. Fields that are
// not averaged are taken from the first member of each group.
func Reduce(observations []Observation) []Observation {
	groups := make(map[Parameter][]Observation, len(reducedParameters))
	for _, o := range observations {
		groups[o.Parameter] = append(groups[o.Parameter], o)
	}

	out := make([]Observation, 0, len(reducedParameters))
	for _, param := range reducedParameters {
		members := groups[param]
		if len(members) == 0 {
			continue
		}

		sum := 0
		for _, m := range members {
			sum += m.AQI
		}
		avg := int(math.Round(float64(sum) / float64(len(members))))

		averaged := members[0]
		averaged.AQI = avg
		averaged.Category = CategoryFor(avg)
		averaged.ReportingArea = AverageLabel(len(members))
		out = append(out, averaged)
	}

	return out
}

// SelectResult prefers the averaged set when it has entries and passes the raw
// input through unchanged otherwise.
func SelectResult(raw, averaged []Observation) []Observation {
	if len(averaged) > 0 {
		return averaged
	}
	return raw
}
