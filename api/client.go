package api

import (
	"bytes"
	"context"
	"fmt"
	"io"
	"net/http"
	"strings"
	"time"

	"github.com/cenkalti/backoff/v4"
	"github.com/goccy/go-json"
	"github.com/pkg/errors"
	"github.com/relloyd/obspipe/constants"
	"github.com/relloyd/obspipe/helper"
	"github.com/relloyd/obspipe/logger"
	"github.com/relloyd/obspipe/metrics"
	"github.com/relloyd/obspipe/stream"
	"github.com/sony/gobreaker/v2"
	"golang.org/x/net/context/ctxhttp"
	"golang.org/x/time/rate"
)

const (
	EndpointAuthenticate = "authenticate"
	EndpointSummary      = "observation_summary"
	EndpointDetails      = "observation_details"
)

// ClientConfig configures the transport used by the Authenticator and Client.
// The zero values of the optional fields give one attempt per call, no rate limit and the transport default timeout.
type ClientConfig struct {
	Log                    logger.Logger
	BaseURL                string        `errorTxt:"API base URL" mandatory:"yes"`
	Timeout                time.Duration // 0 means no client timeout.
	MaxRetries             int           // extra attempts after the first for transport errors, 429 and 5xx.
	RetryInitialInterval   time.Duration
	RequestsPerSecond      float64 // 0 disables the limiter.
	CircuitBreaker         bool
	CircuitBreakerFailures uint32        // consecutive failures that open the breaker.
	CircuitBreakerTimeout  time.Duration // time spent open before trying again.
	HTTPClient             *http.Client  // optional, used by tests.
}

// transport sends requests to the API and returns raw response bodies.
type transport struct {
	log           logger.Logger
	baseURL       string
	httpClient    *http.Client
	limiter       *rate.Limiter
	breaker       *gobreaker.CircuitBreaker[[]byte]
	maxRetries    int
	retryInterval time.Duration
}

func newTransport(cfg *ClientConfig) (*transport, error) {
	if err := helper.ValidateStructIsPopulated(cfg); err != nil {
		return nil, err
	}
	if cfg.Log == nil {
		return nil, errors.New("missing logger in API client config")
	}
	if cfg.MaxRetries < 0 {
		return nil, fmt.Errorf("max retries must be zero or more, got %v", cfg.MaxRetries)
	}
	t := &transport{
		log:           cfg.Log,
		baseURL:       strings.TrimRight(cfg.BaseURL, "/"),
		httpClient:    cfg.HTTPClient,
		maxRetries:    cfg.MaxRetries,
		retryInterval: cfg.RetryInitialInterval,
	}
	if t.httpClient == nil {
		t.httpClient = &http.Client{Timeout: cfg.Timeout}
	}
	if t.retryInterval <= 0 {
		t.retryInterval = 500 * time.Millisecond
	}
	if cfg.RequestsPerSecond > 0 {
		burst := int(cfg.RequestsPerSecond)
		if burst < 1 {
			burst = 1
		}
		t.limiter = rate.NewLimiter(rate.Limit(cfg.RequestsPerSecond), burst)
	}
	if cfg.CircuitBreaker {
		t.breaker = newBreaker(cfg.Log, cfg.CircuitBreakerFailures, cfg.CircuitBreakerTimeout)
	}
	return t, nil
}

func newBreaker(log logger.Logger, failures uint32, timeout time.Duration) *gobreaker.CircuitBreaker[[]byte] {
	if failures == 0 {
		failures = 5
	}
	if timeout <= 0 {
		timeout = 60 * time.Second
	}
	metrics.CircuitBreakerState.WithLabelValues(constants.ServiceName).Set(float64(gobreaker.StateClosed))
	return gobreaker.NewCircuitBreaker[[]byte](gobreaker.Settings{
		Name:        constants.ServiceName,
		MaxRequests: 1,
		Timeout:     timeout,
		ReadyToTrip: func(counts gobreaker.Counts) bool {
			return counts.ConsecutiveFailures >= failures
		},
		OnStateChange: func(name string, from gobreaker.State, to gobreaker.State) {
			log.Warn("API circuit breaker ", name, " changed from ", from.String(), " to ", to.String())
			metrics.CircuitBreakerState.WithLabelValues(name).Set(float64(to))
		},
		// Only server side trouble should trip the breaker.
		IsSuccessful: func(err error) bool {
			var se *statusError
			if errors.As(err, &se) {
				return !se.retryable()
			}
			return err == nil
		},
	})
}

// call sends one logical request, applying the limiter, retries and breaker when configured.
// A non-200 response is returned as *statusError.
func (t *transport) call(ctx context.Context, endpoint string, method string, path string, headers http.Header, body interface{}, retry bool) ([]byte, error) {
	var payload []byte
	if body != nil {
		var err error
		if payload, err = json.Marshal(body); err != nil {
			return nil, errors.Wrapf(err, "error encoding %v request", endpoint)
		}
	}
	attempt := func() ([]byte, error) {
		if t.breaker == nil {
			return t.send(ctx, endpoint, method, path, headers, payload)
		}
		return t.breaker.Execute(func() ([]byte, error) {
			return t.send(ctx, endpoint, method, path, headers, payload)
		})
	}
	if !retry || t.maxRetries == 0 {
		return attempt()
	}
	var retval []byte
	op := func() error {
		b, err := attempt()
		if err == nil {
			retval = b
			return nil
		}
		var se *statusError
		if errors.As(err, &se) && !se.retryable() {
			return backoff.Permanent(err)
		}
		if errors.Is(err, gobreaker.ErrOpenState) || errors.Is(err, gobreaker.ErrTooManyRequests) {
			return backoff.Permanent(err)
		}
		return err
	}
	eb := backoff.NewExponentialBackOff()
	eb.InitialInterval = t.retryInterval
	eb.MaxElapsedTime = 0
	b := backoff.WithContext(backoff.WithMaxRetries(eb, uint64(t.maxRetries)), ctx)
	err := backoff.RetryNotify(op, b, func(err error, wait time.Duration) {
		t.log.Warn("retrying ", endpoint, " in ", wait, " after error: ", err)
	})
	return retval, err
}

// send performs a single HTTP round trip.
func (t *transport) send(ctx context.Context, endpoint string, method string, path string, headers http.Header, payload []byte) ([]byte, error) {
	if t.limiter != nil {
		if err := t.limiter.Wait(ctx); err != nil {
			return nil, err
		}
	}
	var rdr io.Reader
	if payload != nil {
		rdr = bytes.NewReader(payload)
	}
	req, err := http.NewRequest(method, t.baseURL+path, rdr)
	if err != nil {
		return nil, err
	}
	for k, v := range headers {
		req.Header[k] = v
	}
	if req.Header.Get("Content-Type") == "" {
		req.Header.Set("Content-Type", constants.ApiContentType)
	}
	start := time.Now()
	resp, err := ctxhttp.Do(ctx, t.httpClient, req)
	metrics.ApiCallDurationSeconds.WithLabelValues(endpoint).Observe(time.Since(start).Seconds())
	if err != nil {
		metrics.ApiCallsTotal.WithLabelValues(endpoint, metrics.StatusFailure).Inc()
		return nil, err
	}
	defer resp.Body.Close()
	b, err := io.ReadAll(resp.Body)
	if err != nil {
		metrics.ApiCallsTotal.WithLabelValues(endpoint, metrics.StatusFailure).Inc()
		return nil, errors.Wrapf(err, "error reading %v response", endpoint)
	}
	if resp.StatusCode != http.StatusOK {
		metrics.ApiCallsTotal.WithLabelValues(endpoint, metrics.StatusFailure).Inc()
		return nil, &statusError{StatusCode: resp.StatusCode, Body: truncate(string(b), 200)}
	}
	metrics.ApiCallsTotal.WithLabelValues(endpoint, metrics.StatusSuccess).Inc()
	t.log.Debug(endpoint, " responded in ", time.Since(start))
	return b, nil
}

func truncate(s string, n int) string {
	if len(s) <= n {
		return s
	}
	return s[:n] + "..."
}

// Client fetches observation data using an explicit Session.
type Client struct {
	t *transport
}

// NewClient returns a Client for the API at cfg.BaseURL.
func NewClient(cfg *ClientConfig) (*Client, error) {
	t, err := newTransport(cfg)
	if err != nil {
		return nil, err
	}
	return &Client{t: t}, nil
}

// FetchSummary fetches the observation summary for all sites visible to the session.
func (c *Client) FetchSummary(ctx context.Context, s Session) (*SummaryPayload, error) {
	if !s.valid() {
		return nil, &FetchError{Endpoint: EndpointSummary, Err: ErrNotAuthenticated}
	}
	b, err := c.t.call(ctx, EndpointSummary, http.MethodGet, constants.ApiPathObservationSummary, s.Headers(), nil, true)
	if err != nil {
		return nil, newFetchError(EndpointSummary, err)
	}
	p, err := DecodeSummary(b)
	if err != nil {
		return nil, &FetchError{Endpoint: EndpointSummary, Err: err}
	}
	c.t.log.Info("fetched observation summary with ", len(p.Records), " rows")
	return p, nil
}

// FetchDetails fetches the detail collections for the comma separated siteIDs over [from, to].
func (c *Client) FetchDetails(ctx context.Context, s Session, siteIDs string, from time.Time, to time.Time) (*DetailBundle, error) {
	if !s.valid() {
		return nil, &FetchError{Endpoint: EndpointDetails, Err: ErrNotAuthenticated}
	}
	req := detailsRequest{
		SiteID:   siteIDs,
		FromDate: FormatDate(from),
		ThruDate: FormatDate(to),
	}
	c.t.log.Debug("fetching details for sites ", siteIDs, " from ", req.FromDate, " to ", req.ThruDate)
	b, err := c.t.call(ctx, EndpointDetails, http.MethodPost, constants.ApiPathObservationDetails, s.Headers(), req, true)
	if err != nil {
		return nil, newFetchError(EndpointDetails, err)
	}
	bundle, err := DecodeDetails(b)
	if err != nil {
		return nil, &FetchError{Endpoint: EndpointDetails, Err: err}
	}
	return bundle, nil
}

func newFetchError(endpoint string, err error) *FetchError {
	var se *statusError
	if errors.As(err, &se) {
		return &FetchError{Endpoint: endpoint, StatusCode: se.StatusCode, Err: err}
	}
	return &FetchError{Endpoint: endpoint, Err: err}
}

// FormatDate renders t the way the details endpoint expects, e.g. "03/15/2024 02:05 PM".
func FormatDate(t time.Time) string {
	return t.Format(constants.ApiDateFormat)
}

// decodeObject decodes a JSON object keeping numbers as json.Number so ids survive intact.
func decodeObject(b []byte) (map[string]json.RawMessage, error) {
	var m map[string]json.RawMessage
	if err := json.Unmarshal(b, &m); err != nil {
		return nil, errors.Wrap(err, "response is not a JSON object")
	}
	return m, nil
}

func decodeRecords(raw json.RawMessage) ([]stream.Record, error) {
	if len(bytes.TrimSpace(raw)) == 0 || bytes.Equal(bytes.TrimSpace(raw), []byte("null")) {
		return []stream.Record{}, nil
	}
	dec := json.NewDecoder(bytes.NewReader(raw))
	dec.UseNumber()
	var rows []map[string]interface{}
	if err := dec.Decode(&rows); err != nil {
		return nil, err
	}
	return stream.RecordsFromMaps(rows), nil
}

// DecodeSummary decodes a summary response body.
// A body without the observation_summary key gives a payload that is not Present.
func DecodeSummary(b []byte) (*SummaryPayload, error) {
	m, err := decodeObject(b)
	if err != nil {
		return nil, err
	}
	p := &SummaryPayload{Raw: b, Records: []stream.Record{}}
	raw, ok := m[constants.SummaryPayloadKey]
	if !ok {
		return p, nil
	}
	if p.Records, err = decodeRecords(raw); err != nil {
		return nil, errors.Wrapf(err, "error decoding %v", constants.SummaryPayloadKey)
	}
	p.Present = true
	return p, nil
}

// DecodeDetails decodes a details response body.
// Keys other than the known collections are ignored.
func DecodeDetails(b []byte) (*DetailBundle, error) {
	m, err := decodeObject(b)
	if err != nil {
		return nil, err
	}
	bundle := NewDetailBundle(nil)
	bundle.Raw = b
	for _, name := range constants.DetailCollections {
		raw, ok := m[name]
		if !ok {
			continue
		}
		if bundle.collections[name], err = decodeRecords(raw); err != nil {
			return nil, errors.Wrapf(err, "error decoding collection %v", name)
		}
	}
	return bundle, nil
}
