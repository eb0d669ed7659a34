// Package apis contains small clients for the third-party HTTP APIs the bot
// proxies: Imgur gallery search, API Ninjas and WeatherAPI.
//
// Every call runs under a per-call timeout (DefaultTimeout unless the client
// sets Timeout) and is never retried. Responses are read with gjson so a
// missing field falls back to a default instead of failing the whole call.
// A non-200 status, a network failure or a body that is not JSON is returned
// as a *TransportError.
package apis

import (
	"context"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"net/http"
	"time"

	"github.com/tidwall/gjson"

	"github.com/onnwee/memebot/telemetry"
)

// DefaultTimeout bounds one upstream call.
const DefaultTimeout = 10 * time.Second

// maxBody caps how much of an upstream response is read.
const maxBody = 2 << 20

var (
	// ErrMissingKey is returned when a client has no credentials configured.
	ErrMissingKey = errors.New("api key not configured")
	// ErrNoData is returned when a 200 response carries nothing usable.
	ErrNoData = errors.New("no data in response")
)

// TransportError reports a failed upstream call.
type TransportError struct {
	API    string
	Status int
	Err    error
}

func (e *TransportError) Error() string {
	if e.Status != 0 {
		return fmt.Sprintf("%s: unexpected status %d", e.API, e.Status)
	}
	return fmt.Sprintf("%s: %v", e.API, e.Err)
}

func (e *TransportError) Unwrap() error { return e.Err }

// httpConfig is embedded by each client.
type httpConfig struct {
	HTTPClient *http.Client
	Timeout    time.Duration
}

func (c httpConfig) http() *http.Client {
	if c.HTTPClient != nil {
		return c.HTTPClient
	}
	return http.DefaultClient
}

func (c httpConfig) timeout() time.Duration {
	if c.Timeout > 0 {
		return c.Timeout
	}
	return DefaultTimeout
}

// getJSON performs a GET and returns the parsed body.
func (c httpConfig) getJSON(ctx context.Context, api, rawURL string, header http.Header) (result gjson.Result, err error) {
	ctx, cancel := context.WithTimeout(ctx, c.timeout())
	defer cancel()
	ctx, span := telemetry.StartSpan(ctx, "memebot/apis", api+" GET", telemetry.UpstreamAttr(api), telemetry.HTTPMethodAttr(http.MethodGet))
	defer span.End()

	start := time.Now()
	defer func() {
		outcome := "ok"
		if err != nil {
			outcome = "error"
			telemetry.RecordError(span, err)
			telemetry.LoggerWithCorr(ctx).Warn("upstream call failed", slog.String("api", api), slog.Any("err", err), slog.String("component", "apis"))
		} else {
			telemetry.SetSpanSuccess(span)
		}
		telemetry.ObserveUpstream(api, outcome, time.Since(start))
	}()

	req, err := http.NewRequestWithContext(ctx, http.MethodGet, rawURL, nil)
	if err != nil {
		return gjson.Result{}, &TransportError{API: api, Err: err}
	}
	for k, vs := range header {
		for _, v := range vs {
			req.Header.Add(k, v)
		}
	}
	resp, err := c.http().Do(req)
	if err != nil {
		return gjson.Result{}, &TransportError{API: api, Err: err}
	}
	defer func() {
		if err := resp.Body.Close(); err != nil {
			slog.Warn("failed to close response body", slog.Any("err", err))
		}
	}()
	telemetry.SetSpanHTTPStatus(span, resp.StatusCode)
	if resp.StatusCode != http.StatusOK {
		_, _ = io.Copy(io.Discard, io.LimitReader(resp.Body, maxBody))
		return gjson.Result{}, &TransportError{API: api, Status: resp.StatusCode}
	}
	body, err := io.ReadAll(io.LimitReader(resp.Body, maxBody))
	if err != nil {
		return gjson.Result{}, &TransportError{API: api, Err: err}
	}
	if !gjson.ValidBytes(body) {
		return gjson.Result{}, &TransportError{API: api, Err: errors.New("response is not valid JSON")}
	}
	return gjson.ParseBytes(body), nil
}

// stringOr returns r as a string, or def when r is absent or empty.
func stringOr(r gjson.Result, def string) string {
	if !r.Exists() || r.String() == "" {
		return def
	}
	return r.String()
}
