package api

import (
	"bytes"
	"context"
	"encoding/json"
	"io"
	"net/http"
	"strconv"
	"time"

	"github.com/rs/zerolog"
)

const maxResponseBytes = 8 << 20

// Document is a decoded JSON response body. Endpoints of the CPLUS API
// respond with JSON objects; callers pick out the fields they need.
type Document map[string]any

// Transport executes HTTP verbs against the CPLUS and Trends.Earth APIs.
// Any received response, regardless of status class, yields the decoded
// body and the literal status code; a body that is not valid JSON is
// substituted with an empty Document rather than treated as an error, since
// error pages from misconfigured servers are advisory only. Only the
// absence of a response is an error, reported as *TransportError.
type Transport struct {
	HTTPClient *http.Client
	Logger     zerolog.Logger
}

func NewTransport(logger zerolog.Logger) *Transport {
	return &Transport{
		HTTPClient: &http.Client{Timeout: 60 * time.Second},
		Logger:     logger,
	}
}

func (t *Transport) Get(ctx context.Context, url string, headers map[string]string) (Document, int, error) {
	return t.do(ctx, http.MethodGet, url, nil, headers)
}

func (t *Transport) Post(ctx context.Context, url string, payload any, headers map[string]string) (Document, int, error) {
	body, err := json.Marshal(payload)
	if err != nil {
		return nil, 0, &TransportError{URL: url, Err: err}
	}
	return t.do(ctx, http.MethodPost, url, body, headers)
}

func (t *Transport) Put(ctx context.Context, url string, payload any, headers map[string]string) (Document, int, error) {
	body, err := json.Marshal(payload)
	if err != nil {
		return nil, 0, &TransportError{URL: url, Err: err}
	}
	return t.do(ctx, http.MethodPut, url, body, headers)
}

// PutBytes uploads a raw chunk to a pre-signed location and returns the
// response headers and status. The chunk is sent verbatim with an explicit
// Content-Length; no JSON framing applies.
func (t *Transport) PutBytes(ctx context.Context, url string, chunk []byte, contentType string) (http.Header, int, error) {
	req, err := http.NewRequestWithContext(ctx, http.MethodPut, url, bytes.NewReader(chunk))
	if err != nil {
		return nil, 0, &TransportError{URL: url, Err: err}
	}
	req.Header.Set("Content-Type", contentType)
	req.Header.Set("Content-Length", strconv.Itoa(len(chunk)))
	req.ContentLength = int64(len(chunk))

	resp, err := t.httpClient().Do(req)
	if err != nil {
		t.Logger.Debug().Str("url", url).Err(err).Msg("chunk upload failed")
		return nil, 0, &TransportError{URL: url, Err: err}
	}
	defer func() { _ = resp.Body.Close() }()
	_, _ = io.Copy(io.Discard, io.LimitReader(resp.Body, maxResponseBytes))

	return resp.Header, resp.StatusCode, nil
}

func (t *Transport) do(ctx context.Context, method, url string, body []byte, headers map[string]string) (Document, int, error) {
	var reader io.Reader
	if body != nil {
		reader = bytes.NewReader(body)
	}

	req, err := http.NewRequestWithContext(ctx, method, url, reader)
	if err != nil {
		return nil, 0, &TransportError{URL: url, Err: err}
	}
	if headers == nil {
		headers = map[string]string{"Content-Type": "application/json"}
	}
	for key, value := range headers {
		req.Header.Set(key, value)
	}

	t.Logger.Debug().Str("method", method).Str("url", url).Msg("request")

	resp, err := t.httpClient().Do(req)
	if err != nil {
		t.Logger.Warn().Str("url", url).Err(err).Msg("network error")
		return nil, 0, &TransportError{URL: url, Err: err}
	}
	defer func() { _ = resp.Body.Close() }()

	raw, err := io.ReadAll(io.LimitReader(resp.Body, maxResponseBytes))
	if err != nil {
		t.Logger.Debug().Str("url", url).Err(err).Msg("error reading response body")
		return Document{}, resp.StatusCode, nil
	}

	doc := Document{}
	if len(raw) > 0 {
		if err := json.Unmarshal(raw, &doc); err != nil {
			t.Logger.Debug().Str("url", url).Err(err).Msg("error parsing response body")
			doc = Document{}
		}
	}

	if resp.StatusCode < 200 || resp.StatusCode >= 300 {
		t.Logger.Debug().
			Str("url", url).
			Int("status", resp.StatusCode).
			Msg("http error response")
	}

	return doc, resp.StatusCode, nil
}

func (t *Transport) httpClient() *http.Client {
	if t.HTTPClient != nil {
		return t.HTTPClient
	}
	return http.DefaultClient
}
