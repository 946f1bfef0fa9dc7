package prices

import "time"

// SynthesizeQuarterHours derives a quarter-hour series from an hourly one by
// splitting every hourly point into four 15 minute points with the same price.
// Series that are not hourly are returned unchanged.
func SynthesizeQuarterHours(hourly *DaySeries) *DaySeries {
	if hourly == nil || hourly.Granularity != Hour {
		return hourly
	}

	step := QuarterHour.Step()
	points := make([]PricePoint, 0, len(hourly.Points)*4)
	for _, p := range hourly.Points {
		for q := 0; q < 4; q++ {
			start := p.Start.Add(time.Duration(q) * step)
			points = append(points, PricePoint{
				Start: start,
				End:   start.Add(step),
				Price: p.Price,
			})
		}
	}

	return &DaySeries{
		Market:      hourly.Market,
		Granularity: QuarterHour,
		Points:      points,
		PublishedAt: hourly.PublishedAt,
	}
}
