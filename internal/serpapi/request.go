package serpapi

import (
	"compress/gzip"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"
	"net/url"

	"go.uber.org/zap"
)

const (
	contentType     = "application/json"
	contentEncoding = "gzip"

	// errorBodyLimit bounds how much of a failed response ends up in the error.
	errorBodyLimit = 512
)

func (c *Client) getJSON(ctx context.Context, url string, q url.Values, target any) error {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, url, nil)
	if err != nil {
		return err
	}

	req.Header.Set("User-Agent", c.UserAgent)
	req.Header.Set("Accept", contentType)
	req.Header.Set("Accept-Encoding", contentEncoding)
	req.URL.RawQuery = q.Encode()

	resp, err := c.request(req)
	if err != nil {
		return err
	}
	defer resp.Body.Close()

	var reader io.Reader = resp.Body
	if resp.Header.Get("Content-Encoding") == "gzip" {
		gzipReader, err := gzip.NewReader(resp.Body)
		if err != nil {
			return err
		}
		defer gzipReader.Close()
		reader = gzipReader
	}

	data, err := io.ReadAll(reader)
	if err != nil {
		return err
	}

	if resp.StatusCode != http.StatusOK {
		if len(data) > errorBodyLimit {
			data = data[:errorBodyLimit]
		}
		return fmt.Errorf("bad status: %s: %s", resp.Status, data)
	}

	if err := json.Unmarshal(data, target); err != nil {
		return fmt.Errorf("decode search response: %w", err)
	}

	return nil
}

func (c *Client) request(req *http.Request) (*http.Response, error) {
	// api_key is part of the query, so only the redacted form is logged.
	c.logger.Debug("make request", zap.String("url", redact(req.URL)))

	resp, err := c.HTTPClient.Do(req)
	if err != nil {
		// Transport errors quote the full request URL.
		var urlErr *url.Error
		if errors.As(err, &urlErr) {
			return nil, &url.Error{Op: urlErr.Op, URL: redact(req.URL), Err: urlErr.Err}
		}
		return nil, err
	}
	return resp, nil
}

func redact(u *url.URL) string {
	clone := *u
	q := clone.Query()
	if q.Has("api_key") {
		q.Set("api_key", "REDACTED")
	}
	clone.RawQuery = q.Encode()
	return clone.String()
}
