package ephemeris

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net"
	"net/http"
	"net/url"
	"strconv"
	"strings"
	"time"
)

// DefaultURL is the sunrise-sunset.org JSON API.
const DefaultURL = "https://api.sunrise-sunset.org/json"

const (
	DefaultConnectTimeout = 3 * time.Second
	DefaultReadTimeout    = 10 * time.Second
)

// Fetcher downloads the solar events of one date. Returned event times are
// absolute; the caller picks the zone.
type Fetcher interface {
	Fetch(ctx context.Context, at Coordinate, date time.Time) (Record, error)
}

// HTTPFetcher talks to a sunrise-sunset.org compatible endpoint.
type HTTPFetcher struct {
	URL    string
	Client *http.Client
}

// NewHTTPFetcher bounds the dial with connectTimeout and the response with
// readTimeout, so a dead provider stalls the control loop for at most their sum.
func NewHTTPFetcher(rawURL string, connectTimeout, readTimeout time.Duration) *HTTPFetcher {
	if strings.TrimSpace(rawURL) == "" {
		rawURL = DefaultURL
	}
	if connectTimeout <= 0 {
		connectTimeout = DefaultConnectTimeout
	}
	if readTimeout <= 0 {
		readTimeout = DefaultReadTimeout
	}
	tr := &http.Transport{
		Proxy:                 http.ProxyFromEnvironment,
		DialContext:           (&net.Dialer{Timeout: connectTimeout}).DialContext,
		TLSHandshakeTimeout:   connectTimeout,
		ResponseHeaderTimeout: readTimeout,
	}
	return &HTTPFetcher{
		URL:    rawURL,
		Client: &http.Client{Transport: tr, Timeout: connectTimeout + readTimeout},
	}
}

type apiResponse struct {
	Results map[string]json.RawMessage `json:"results"`
	Status  string                     `json:"status"`
}

func (f *HTTPFetcher) Fetch(ctx context.Context, at Coordinate, date time.Time) (Record, error) {
	q := url.Values{}
	q.Set("lat", strconv.FormatFloat(at.Latitude, 'f', -1, 64))
	q.Set("lng", strconv.FormatFloat(at.Longitude, 'f', -1, 64))
	q.Set("formatted", "0")
	q.Set("date", date.Format("2006-01-02"))

	req, err := http.NewRequestWithContext(ctx, http.MethodGet, f.URL+"?"+q.Encode(), nil)
	if err != nil {
		return Record{}, err
	}
	resp, err := f.Client.Do(req)
	if err != nil {
		return Record{}, err
	}
	defer resp.Body.Close()

	body, err := io.ReadAll(io.LimitReader(resp.Body, 1<<20))
	if err != nil {
		return Record{}, err
	}
	if resp.StatusCode != http.StatusOK {
		return Record{}, fmt.Errorf("%w: http status %d", ErrMalformed, resp.StatusCode)
	}
	rec, err := decodeResponse(body)
	if err != nil {
		return Record{}, err
	}
	rec.Date = date.Format("2006-01-02")
	return rec, nil
}

// decodeResponse turns the provider payload into a Record. Every result
// except day_length must be an ISO-8601 timestamp.
func decodeResponse(body []byte) (Record, error) {
	var ar apiResponse
	if err := json.Unmarshal(body, &ar); err != nil {
		return Record{}, fmt.Errorf("%w: %v", ErrMalformed, err)
	}
	if ar.Status != "" && ar.Status != "OK" {
		return Record{}, fmt.Errorf("%w: status %q", ErrMalformed, ar.Status)
	}
	if len(ar.Results) == 0 {
		return Record{}, fmt.Errorf("%w: no results", ErrMalformed)
	}

	rec := Record{Events: make(map[string]time.Time, len(ar.Results))}
	for key, raw := range ar.Results {
		if key == DayLengthKey {
			rec.DayLength = string(bytes.Trim(bytes.TrimSpace(raw), `"`))
			continue
		}
		var s string
		if err := json.Unmarshal(raw, &s); err != nil {
			return Record{}, fmt.Errorf("%w: %s: %v", ErrMalformed, key, err)
		}
		t, err := time.Parse(time.RFC3339, s)
		if err != nil {
			return Record{}, fmt.Errorf("%w: %s: %v", ErrMalformed, key, err)
		}
		rec.Events[key] = t
	}
	return rec, nil
}
