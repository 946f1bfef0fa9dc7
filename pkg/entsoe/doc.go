// Package entsoe acquires day-ahead prices from the ENTSO-E Transparency Platform.
//
// The package has two halves:
//
//   - ParsePublication decodes a Publication_MarketDocument into a gap-free
//     prices.DaySeries. ENTSO-E omits a position when its price equals the
//     previous one, so the parser walks every ordinal position of the period and
//     fills the gaps.
//   - Client issues the A44/A01 request for one civil day of the configured
//     market, retries once on 429 Too Many Requests and hands the body to the parser.
//
// # Basic Usage
//
//	loc, _ := time.LoadLocation("Europe/Helsinki")
//	c, err := entsoe.New(entsoe.DefaultConfig(token, loc))
//	if err != nil {
//		return err
//	}
//
//	series, err := c.Acquire(ctx, civil.DateOf(time.Now().In(loc)))
//	switch entsoe.Classify(err) {
//	case entsoe.OutcomeOK:
//		// use series
//	case entsoe.OutcomeNotAvailable:
//		// nothing published yet, try again later
//	case entsoe.OutcomeFailure:
//		// request or decode failure
//	}
//
// # Errors
//
//   - *NotAvailableError (errors.Is ErrDataNotAvailable): acknowledgement or empty
//     document. Expected before the daily publication.
//   - *DecodeError (errors.Is ErrDecode): malformed document.
//   - *RequestError: transport failure or non-2xx status after the single 429 retry.
//
// # Metrics
//
//   - spot_upstream_requests_total{status}
//   - spot_upstream_request_duration_seconds
//   - spot_upstream_errors_total{class}
//   - spot_upstream_retries_total{class}
//   - spot_upstream_not_available_total
package entsoe
