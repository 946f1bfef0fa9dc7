package entsoe

import (
	"encoding/xml"
	"fmt"
	"sort"
	"strconv"
	"strings"
	"time"

	"github.com/vuorinet/spot/pkg/prices"
)

type publicationDocument struct {
	XMLName    xml.Name
	TimeSeries []timeSeries `xml:"TimeSeries"`
	Reasons    []reason     `xml:"Reason"`
}

type reason struct {
	Code string `xml:"code"`
	Text string `xml:"text"`
}

type timeSeries struct {
	Periods []period `xml:"Period"`
}

type period struct {
	Resolution string `xml:"resolution"`
	Interval   struct {
		Start string `xml:"start"`
		End   string `xml:"end"`
	} `xml:"timeInterval"`
	Points []point `xml:"Point"`
}

type point struct {
	Position string `xml:"position"`
	Amount   string `xml:"price.amount"`
}

// ParsePublication decodes a publication document into a gap-free series for market.
// Acknowledgement documents and documents without TimeSeries yield *NotAvailableError;
// structural problems yield *DecodeError.
func ParsePublication(body []byte, market string) (*prices.DaySeries, error) {
	var doc publicationDocument
	if err := xml.Unmarshal(body, &doc); err != nil {
		return nil, &DecodeError{Message: "parse xml", Err: err}
	}

	if strings.HasSuffix(doc.XMLName.Local, "Acknowledgement_MarketDocument") {
		return nil, &NotAvailableError{Reason: acknowledgementReason(doc.Reasons)}
	}
	if len(doc.TimeSeries) == 0 {
		return nil, &NotAvailableError{Reason: "No TimeSeries in response"}
	}

	var (
		points      []prices.PricePoint
		granularity prices.Granularity
	)
	for i, ts := range doc.TimeSeries {
		if len(ts.Periods) == 0 {
			continue
		}
		p := ts.Periods[0]

		g, err := prices.ParseResolution(strings.TrimSpace(p.Resolution))
		if err != nil {
			return nil, &DecodeError{Message: fmt.Sprintf("time series %d", i+1), Err: err}
		}
		if granularity == "" {
			granularity = g
		}

		start, err := parseInstant(p.Interval.Start)
		if err != nil {
			return nil, &DecodeError{Message: fmt.Sprintf("time series %d: interval start", i+1), Err: err}
		}
		end, err := parseInstant(p.Interval.End)
		if err != nil {
			return nil, &DecodeError{Message: fmt.Sprintf("time series %d: interval end", i+1), Err: err}
		}
		if !end.After(start) {
			return nil, &DecodeError{Message: fmt.Sprintf("time series %d: interval end %s not after start %s", i+1, end, start)}
		}

		explicit, err := p.explicitPrices()
		if err != nil {
			return nil, &DecodeError{Message: fmt.Sprintf("time series %d", i+1), Err: err}
		}

		points = fillPeriod(points, start, end, g.Step(), explicit)
	}

	if granularity == "" {
		return nil, &DecodeError{Message: "could not determine granularity"}
	}

	return &prices.DaySeries{
		Market:      market,
		Granularity: granularity,
		Points:      points,
	}, nil
}

// fillPeriod appends one point per ordinal position of [start, end) to out.
// A missing position repeats the last emitted price; when nothing has been emitted
// yet it takes the nearest explicit price at or after it, or 0.
func fillPeriod(out []prices.PricePoint, start, end time.Time, step time.Duration, explicit map[int]float64) []prices.PricePoint {
	positions := make([]int, 0, len(explicit))
	for pos := range explicit {
		positions = append(positions, pos)
	}
	sort.Ints(positions)

	idx := 1
	for cur := start; cur.Before(end); cur = cur.Add(step) {
		price, ok := explicit[idx]
		if !ok {
			if len(out) == 0 {
				price = firstAtOrAfter(positions, explicit, idx)
			} else {
				price = out[len(out)-1].Price
			}
		}
		out = append(out, prices.PricePoint{Start: cur, End: cur.Add(step), Price: price})
		idx++
	}
	return out
}

func firstAtOrAfter(sorted []int, explicit map[int]float64, idx int) float64 {
	i := sort.SearchInts(sorted, idx)
	if i < len(sorted) {
		return explicit[sorted[i]]
	}
	return 0
}

func (p period) explicitPrices() (map[int]float64, error) {
	out := make(map[int]float64, len(p.Points))
	for _, pt := range p.Points {
		pos, err := strconv.Atoi(strings.TrimSpace(pt.Position))
		if err != nil {
			return nil, fmt.Errorf("point position %q: %w", pt.Position, err)
		}
		if pos < 1 {
			return nil, fmt.Errorf("point position %d out of range", pos)
		}
		amount, err := strconv.ParseFloat(strings.TrimSpace(pt.Amount), 64)
		if err != nil {
			return nil, fmt.Errorf("price at position %d: %w", pos, err)
		}
		out[pos] = amount
	}
	return out, nil
}

// ENTSO-E writes interval boundaries without seconds, e.g. 2025-08-13T00:00Z.
var instantLayouts = []string{
	"2006-01-02T15:04Z07:00",
	time.RFC3339,
}

func parseInstant(value string) (time.Time, error) {
	value = strings.TrimSpace(value)
	if value == "" {
		return time.Time{}, fmt.Errorf("missing timestamp")
	}
	for _, layout := range instantLayouts {
		if t, err := time.Parse(layout, value); err == nil {
			return t.UTC(), nil
		}
	}
	return time.Time{}, fmt.Errorf("malformed timestamp %q", value)
}

func acknowledgementReason(reasons []reason) string {
	texts := make([]string, 0, len(reasons))
	for _, r := range reasons {
		if text := strings.TrimSpace(r.Text); text != "" {
			texts = append(texts, text)
		}
	}
	if len(texts) == 0 {
		return "No TimeSeries (acknowledgement)"
	}
	return strings.Join(texts, "; ")
}
