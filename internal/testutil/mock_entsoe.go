// Package testutil provides testing utilities for the spot price cache.
package testutil

import (
	"fmt"
	"net/http"
	"net/http/httptest"
	"net/url"
	"sort"
	"strings"
	"sync"
	"time"

	"cloud.google.com/go/civil"

	"github.com/vuorinet/spot/pkg/prices"
)

// MockResponse defines the behavior for one mock ENTSO-E response.
type MockResponse struct {
	StatusCode int
	Body       string
	Delay      time.Duration
}

// MockENTSOE is a configurable mock ENTSO-E API server for testing.
//
// Responses are served from the queue first, then from the per-day table keyed
// by periodStart, and otherwise as an acknowledgement without data.
type MockENTSOE struct {
	server *httptest.Server
	mu     sync.RWMutex
	queue  []MockResponse
	days   map[string]MockResponse

	// Tracking
	RequestCount int
	LastQuery    url.Values
}

// NewMockENTSOE creates a new mock ENTSO-E server.
func NewMockENTSOE() *MockENTSOE {
	mock := &MockENTSOE{
		days: make(map[string]MockResponse),
	}

	mock.server = httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		query := r.URL.Query()

		mock.mu.Lock()
		mock.RequestCount++
		mock.LastQuery = query
		resp, ok := mock.next(query.Get("periodStart"))
		mock.mu.Unlock()

		if !ok {
			resp = NewAcknowledgementResponse("No matching data found for Data item Day-ahead Prices")
		}

		if resp.Delay > 0 {
			time.Sleep(resp.Delay)
		}
		w.Header().Set("Content-Type", "application/xml")
		w.WriteHeader(resp.StatusCode)
		if resp.Body != "" {
			_, _ = w.Write([]byte(resp.Body))
		}
	}))

	return mock
}

// next must be called with mu held.
func (m *MockENTSOE) next(periodStart string) (MockResponse, bool) {
	if len(m.queue) > 0 {
		resp := m.queue[0]
		m.queue = m.queue[1:]
		return resp, true
	}
	resp, ok := m.days[periodStart]
	return resp, ok
}

// URL returns the mock server URL.
func (m *MockENTSOE) URL() string {
	return m.server.URL
}

// Close shuts down the mock server.
func (m *MockENTSOE) Close() {
	m.server.Close()
}

// Reset clears queued responses and tracking counters. Day responses are kept.
func (m *MockENTSOE) Reset() {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.queue = nil
	m.RequestCount = 0
	m.LastQuery = nil
}

// Enqueue adds responses served in order before any day response.
func (m *MockENTSOE) Enqueue(responses ...MockResponse) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.queue = append(m.queue, responses...)
}

// SetDay configures the response for requests covering day in loc.
func (m *MockENTSOE) SetDay(day civil.Date, loc *time.Location, resp MockResponse) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.days[PeriodKey(day, loc)] = resp
}

// ClearDay removes the configured response for day.
func (m *MockENTSOE) ClearDay(day civil.Date, loc *time.Location) {
	m.mu.Lock()
	defer m.mu.Unlock()
	delete(m.days, PeriodKey(day, loc))
}

// GetRequestCount returns the number of requests made to the server.
func (m *MockENTSOE) GetRequestCount() int {
	m.mu.RLock()
	defer m.mu.RUnlock()
	return m.RequestCount
}

// GetLastQuery returns the query of the most recent request.
func (m *MockENTSOE) GetLastQuery() url.Values {
	m.mu.RLock()
	defer m.mu.RUnlock()
	return m.LastQuery
}

// PeriodKey returns the periodStart parameter sent for day in loc.
func PeriodKey(day civil.Date, loc *time.Location) string {
	start, _ := prices.DayWindow(day, loc)
	return start.Format("200601021504")
}

// PublicationDocument renders a publication document with one TimeSeries.
// Only the positions present in points are written.
func PublicationDocument(start, end time.Time, resolution string, points map[int]float64) string {
	positions := make([]int, 0, len(points))
	for pos := range points {
		positions = append(positions, pos)
	}
	sort.Ints(positions)

	var b strings.Builder
	b.WriteString(`<?xml version="1.0" encoding="UTF-8"?>`)
	b.WriteString(`<Publication_MarketDocument xmlns="urn:iec62325.351:tc57wg16:451-3:publicationdocument:7:3">`)
	b.WriteString(`<mRID>mock</mRID><type>A44</type>`)
	b.WriteString(`<TimeSeries><mRID>1</mRID><currency_Unit.name>EUR</currency_Unit.name>`)
	b.WriteString(`<price_Measure_Unit.name>MWH</price_Measure_Unit.name><curveType>A03</curveType>`)
	fmt.Fprintf(&b, `<Period><timeInterval><start>%s</start><end>%s</end></timeInterval><resolution>%s</resolution>`,
		start.UTC().Format("2006-01-02T15:04Z"), end.UTC().Format("2006-01-02T15:04Z"), resolution)
	for _, pos := range positions {
		fmt.Fprintf(&b, `<Point><position>%d</position><price.amount>%g</price.amount></Point>`, pos, points[pos])
	}
	b.WriteString(`</Period></TimeSeries></Publication_MarketDocument>`)
	return b.String()
}

// DayDocument renders a complete publication for day in loc. price maps the
// 1-based position to its price.
func DayDocument(day civil.Date, loc *time.Location, g prices.Granularity, price func(pos int) float64) string {
	start, end := prices.DayWindow(day, loc)
	n := prices.ExpectedIntervals(g, day, loc)

	points := make(map[int]float64, n)
	for pos := 1; pos <= n; pos++ {
		points[pos] = price(pos)
	}
	return PublicationDocument(start, end, resolutionTag(g), points)
}

// PartialDayDocument renders the first count intervals of day in loc.
func PartialDayDocument(day civil.Date, loc *time.Location, g prices.Granularity, count int, price func(pos int) float64) string {
	start, _ := prices.DayWindow(day, loc)
	end := start.Add(time.Duration(count) * g.Step())

	points := make(map[int]float64, count)
	for pos := 1; pos <= count; pos++ {
		points[pos] = price(pos)
	}
	return PublicationDocument(start, end, resolutionTag(g), points)
}

// AcknowledgementDocument renders an acknowledgement carrying reason text.
func AcknowledgementDocument(text string) string {
	return `<?xml version="1.0" encoding="UTF-8"?>` +
		`<Acknowledgement_MarketDocument xmlns="urn:iec62325.351:tc57wg16:451-1:acknowledgementdocument:7:0">` +
		`<mRID>ack</mRID><Reason><code>999</code><text>` + text + `</text></Reason>` +
		`</Acknowledgement_MarketDocument>`
}

// FlatPrice returns a price function yielding the same value for every position.
func FlatPrice(value float64) func(int) float64 {
	return func(int) float64 { return value }
}

// NewOKResponse creates a 200 OK response with body.
func NewOKResponse(body string) MockResponse {
	return MockResponse{StatusCode: http.StatusOK, Body: body}
}

// NewAcknowledgementResponse creates a 200 OK acknowledgement response.
func NewAcknowledgementResponse(text string) MockResponse {
	return MockResponse{StatusCode: http.StatusOK, Body: AcknowledgementDocument(text)}
}

// NewRateLimitResponse creates a 429 Too Many Requests response.
func NewRateLimitResponse() MockResponse {
	return MockResponse{StatusCode: http.StatusTooManyRequests, Body: "Too many requests"}
}

// NewServerErrorResponse creates a 500 Internal Server Error response.
func NewServerErrorResponse() MockResponse {
	return MockResponse{StatusCode: http.StatusInternalServerError, Body: "Internal server error"}
}

// NewUnauthorizedResponse creates a 401 Unauthorized response.
func NewUnauthorizedResponse() MockResponse {
	return MockResponse{StatusCode: http.StatusUnauthorized, Body: "Unauthorized"}
}

func resolutionTag(g prices.Granularity) string {
	if g == prices.QuarterHour {
		return "PT15M"
	}
	return "PT60M"
}
