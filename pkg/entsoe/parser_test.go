package entsoe

import (
	"errors"
	"strings"
	"testing"
	"time"

	"github.com/vuorinet/spot/pkg/prices"
)

const publicationHeader = `<?xml version="1.0" encoding="UTF-8"?>
<Publication_MarketDocument xmlns="urn:iec62325.351:tc57wg16:451-3:publicationdocument:7:3">
  <mRID>1</mRID>
  <createdDateTime>2025-08-12T12:00:00Z</createdDateTime>`

func publication(series ...string) []byte {
	return []byte(publicationHeader + strings.Join(series, "") + `</Publication_MarketDocument>`)
}

func timeSeriesXML(start, end, resolution string, points ...string) string {
	return `<TimeSeries><Period><timeInterval><start>` + start + `</start><end>` + end +
		`</end></timeInterval><resolution>` + resolution + `</resolution>` +
		strings.Join(points, "") + `</Period></TimeSeries>`
}

func pointXML(position, amount string) string {
	return `<Point><position>` + position + `</position><price.amount>` + amount + `</price.amount></Point>`
}

func pricesOf(s *prices.DaySeries) []float64 {
	out := make([]float64, len(s.Points))
	for i, p := range s.Points {
		out[i] = p.Price
	}
	return out
}

func equalPrices(a, b []float64) bool {
	if len(a) != len(b) {
		return false
	}
	for i := range a {
		if a[i] != b[i] {
			return false
		}
	}
	return true
}

func TestParsePublication_GapFill(t *testing.T) {
	tests := []struct {
		name   string
		start  string
		end    string
		points []string
		want   []float64
	}{
		{
			name:   "carry forward missing middle position",
			start:  "2025-08-13T00:00Z",
			end:    "2025-08-13T03:00Z",
			points: []string{pointXML("1", "50"), pointXML("3", "55")},
			want:   []float64{50, 50, 55},
		},
		{
			name:   "leading gap takes first later explicit price",
			start:  "2025-08-13T00:00Z",
			end:    "2025-08-13T04:00Z",
			points: []string{pointXML("3", "42.5"), pointXML("4", "40")},
			want:   []float64{42.5, 42.5, 42.5, 40},
		},
		{
			name:   "trailing gap carries last price",
			start:  "2025-08-13T00:00Z",
			end:    "2025-08-13T04:00Z",
			points: []string{pointXML("1", "10"), pointXML("2", "-1.25")},
			want:   []float64{10, -1.25, -1.25, -1.25},
		},
		{
			name:   "no points yields zeros",
			start:  "2025-08-13T00:00Z",
			end:    "2025-08-13T02:00Z",
			points: nil,
			want:   []float64{0, 0},
		},
		{
			name:   "positions beyond interval are ignored",
			start:  "2025-08-13T00:00Z",
			end:    "2025-08-13T02:00Z",
			points: []string{pointXML("1", "1"), pointXML("2", "2"), pointXML("3", "3")},
			want:   []float64{1, 2},
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			body := publication(timeSeriesXML(tt.start, tt.end, "PT60M", tt.points...))

			series, err := ParsePublication(body, "FI")
			if err != nil {
				t.Fatalf("ParsePublication() error = %v", err)
			}
			if got := pricesOf(series); !equalPrices(got, tt.want) {
				t.Errorf("prices = %v, want %v", got, tt.want)
			}
		})
	}
}

func TestParsePublication_PointTimes(t *testing.T) {
	body := publication(timeSeriesXML("2025-08-12T21:00Z", "2025-08-12T22:00Z", "PT15M",
		pointXML("1", "5"), pointXML("2", "6"), pointXML("3", "7"), pointXML("4", "8")))

	series, err := ParsePublication(body, "FI")
	if err != nil {
		t.Fatalf("ParsePublication() error = %v", err)
	}

	if series.Market != "FI" {
		t.Errorf("Market = %q, want FI", series.Market)
	}
	if series.Granularity != prices.QuarterHour {
		t.Errorf("Granularity = %q, want %q", series.Granularity, prices.QuarterHour)
	}
	if series.PublishedAt != nil {
		t.Errorf("PublishedAt = %v, want nil", series.PublishedAt)
	}
	if len(series.Points) != 4 {
		t.Fatalf("len(Points) = %d, want 4", len(series.Points))
	}

	start := time.Date(2025, 8, 12, 21, 0, 0, 0, time.UTC)
	for i, p := range series.Points {
		wantStart := start.Add(time.Duration(i) * 15 * time.Minute)
		if !p.Start.Equal(wantStart) {
			t.Errorf("Points[%d].Start = %v, want %v", i, p.Start, wantStart)
		}
		if !p.End.Equal(wantStart.Add(15 * time.Minute)) {
			t.Errorf("Points[%d].End = %v, want %v", i, p.End, wantStart.Add(15*time.Minute))
		}
	}
}

func TestParsePublication_MultipleSeries(t *testing.T) {
	body := publication(
		`<TimeSeries><mRID>skipped</mRID></TimeSeries>`,
		timeSeriesXML("2025-08-13T00:00Z", "2025-08-13T02:00Z", "PT60M", pointXML("1", "30"), pointXML("2", "31")),
		timeSeriesXML("2025-08-13T02:00Z", "2025-08-13T02:30Z", "PT15M", pointXML("2", "40")),
	)

	series, err := ParsePublication(body, "FI")
	if err != nil {
		t.Fatalf("ParsePublication() error = %v", err)
	}

	if series.Granularity != prices.Hour {
		t.Errorf("Granularity = %q, want first series granularity %q", series.Granularity, prices.Hour)
	}
	// The leading gap of the second series carries the last emitted price.
	want := []float64{30, 31, 31, 40}
	if got := pricesOf(series); !equalPrices(got, want) {
		t.Errorf("prices = %v, want %v", got, want)
	}
}

func TestParsePublication_NotAvailable(t *testing.T) {
	tests := []struct {
		name       string
		body       string
		wantReason string
	}{
		{
			name: "acknowledgement with reason",
			body: `<?xml version="1.0" encoding="UTF-8"?>
<Acknowledgement_MarketDocument xmlns="urn:iec62325.351:tc57wg16:451-1:acknowledgementdocument:7:0">
  <mRID>x</mRID>
  <Reason><code>999</code><text>No matching data found</text></Reason>
</Acknowledgement_MarketDocument>`,
			wantReason: "No matching data found",
		},
		{
			name:       "acknowledgement without reason",
			body:       `<Acknowledgement_MarketDocument><mRID>x</mRID></Acknowledgement_MarketDocument>`,
			wantReason: "No TimeSeries (acknowledgement)",
		},
		{
			name:       "publication without time series",
			body:       string(publication()),
			wantReason: "No TimeSeries in response",
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, err := ParsePublication([]byte(tt.body), "FI")

			var notAvailable *NotAvailableError
			if !errors.As(err, &notAvailable) {
				t.Fatalf("error = %v, want *NotAvailableError", err)
			}
			if notAvailable.Reason != tt.wantReason {
				t.Errorf("Reason = %q, want %q", notAvailable.Reason, tt.wantReason)
			}
			if !errors.Is(err, ErrDataNotAvailable) {
				t.Error("errors.Is(err, ErrDataNotAvailable) = false")
			}
			if errors.Is(err, ErrDecode) {
				t.Error("acknowledgement must not be a decode error")
			}
			if got := Classify(err); got != OutcomeNotAvailable {
				t.Errorf("Classify() = %v, want %v", got, OutcomeNotAvailable)
			}
		})
	}
}

func TestParsePublication_DecodeErrors(t *testing.T) {
	tests := []struct {
		name string
		body []byte
	}{
		{
			name: "malformed xml",
			body: []byte(`<Publication_MarketDocument><TimeSeries>`),
		},
		{
			name: "unsupported resolution",
			body: publication(timeSeriesXML("2025-08-13T00:00Z", "2025-08-13T01:00Z", "PT30M", pointXML("1", "1"))),
		},
		{
			name: "missing start",
			body: publication(timeSeriesXML("", "2025-08-13T01:00Z", "PT60M", pointXML("1", "1"))),
		},
		{
			name: "malformed end",
			body: publication(timeSeriesXML("2025-08-13T00:00Z", "tomorrow", "PT60M", pointXML("1", "1"))),
		},
		{
			name: "end before start",
			body: publication(timeSeriesXML("2025-08-13T01:00Z", "2025-08-13T00:00Z", "PT60M")),
		},
		{
			name: "non-numeric price",
			body: publication(timeSeriesXML("2025-08-13T00:00Z", "2025-08-13T01:00Z", "PT60M", pointXML("1", "n/a"))),
		},
		{
			name: "missing position",
			body: publication(timeSeriesXML("2025-08-13T00:00Z", "2025-08-13T01:00Z", "PT60M", pointXML("", "1"))),
		},
		{
			name: "position zero",
			body: publication(timeSeriesXML("2025-08-13T00:00Z", "2025-08-13T01:00Z", "PT60M", pointXML("0", "1"))),
		},
		{
			name: "no period in any series",
			body: publication(`<TimeSeries><mRID>1</mRID></TimeSeries>`),
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, err := ParsePublication(tt.body, "FI")

			var decodeErr *DecodeError
			if !errors.As(err, &decodeErr) {
				t.Fatalf("error = %v, want *DecodeError", err)
			}
			if !errors.Is(err, ErrDecode) {
				t.Error("errors.Is(err, ErrDecode) = false")
			}
			if got := Classify(err); got != OutcomeFailure {
				t.Errorf("Classify() = %v, want %v", got, OutcomeFailure)
			}
		})
	}
}

func TestParseInstant(t *testing.T) {
	tests := []struct {
		value   string
		want    time.Time
		wantErr bool
	}{
		{value: "2025-08-13T00:00Z", want: time.Date(2025, 8, 13, 0, 0, 0, 0, time.UTC)},
		{value: " 2025-08-13T00:00:00Z ", want: time.Date(2025, 8, 13, 0, 0, 0, 0, time.UTC)},
		{value: "2025-08-13T03:00+03:00", want: time.Date(2025, 8, 13, 0, 0, 0, 0, time.UTC)},
		{value: "", wantErr: true},
		{value: "13.08.2025", wantErr: true},
	}

	for _, tt := range tests {
		t.Run(tt.value, func(t *testing.T) {
			got, err := parseInstant(tt.value)
			if (err != nil) != tt.wantErr {
				t.Fatalf("parseInstant(%q) error = %v, wantErr %v", tt.value, err, tt.wantErr)
			}
			if !tt.wantErr && !got.Equal(tt.want) {
				t.Errorf("parseInstant(%q) = %v, want %v", tt.value, got, tt.want)
			}
		})
	}
}
