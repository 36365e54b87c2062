// Package remote talks to the products and users services over HTTP.
// It classifies responses only; timeouts, breaking and fallbacks live in
// the resilience package.
package remote

import (
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"strings"

	"github.com/TemirB/orders-enrichment/internal/domain"
)

// TransportError is any failure that says nothing about the requested id:
// connection errors, 5xx, unexpected statuses and undecodable bodies.
type TransportError struct {
	Status int // 0 when no response was received
	Err    error
}

func (e *TransportError) Error() string {
	if e.Status == 0 {
		return fmt.Sprintf("transport: %v", e.Err)
	}
	return fmt.Sprintf("transport: status %d: %v", e.Status, e.Err)
}

func (e *TransportError) Unwrap() error { return e.Err }

// Client fetches one resource kind by id from {base}/{resource}/{id}.
type Client[T any] struct {
	base     string
	resource string
	http     *http.Client
}

func New[T any](baseURL, resource string, hc *http.Client) *Client[T] {
	if hc == nil {
		hc = http.DefaultClient
	}
	return &Client[T]{
		base:     strings.TrimRight(baseURL, "/"),
		resource: resource,
		http:     hc,
	}
}

func NewProducts(baseURL string, hc *http.Client) *Client[domain.Product] {
	return New[domain.Product](baseURL, "products", hc)
}

func NewUsers(baseURL string, hc *http.Client) *Client[domain.User] {
	return New[domain.User](baseURL, "users", hc)
}

// Fetch returns domain.ErrNotFound on 404 and domain.ErrCallerFault on 400.
// Context errors are returned as is.
func (c *Client[T]) Fetch(ctx context.Context, id string) (T, error) {
	var zero T

	u := c.base + "/" + c.resource + "/" + url.PathEscape(id)
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, u, nil)
	if err != nil {
		return zero, &TransportError{Err: err}
	}
	req.Header.Set("Accept", "application/json")

	resp, err := c.http.Do(req)
	if err != nil {
		if ctx.Err() != nil {
			return zero, ctx.Err()
		}
		return zero, &TransportError{Err: err}
	}
	defer resp.Body.Close()

	switch {
	case resp.StatusCode == http.StatusNotFound:
		_, _ = io.Copy(io.Discard, resp.Body)
		return zero, fmt.Errorf("%s %q: %w", c.resource, id, domain.ErrNotFound)
	case resp.StatusCode == http.StatusBadRequest:
		_, _ = io.Copy(io.Discard, resp.Body)
		return zero, fmt.Errorf("%s %q: %w", c.resource, id, domain.ErrCallerFault)
	case resp.StatusCode < 200 || resp.StatusCode > 299:
		_, _ = io.Copy(io.Discard, resp.Body)
		return zero, &TransportError{Status: resp.StatusCode, Err: fmt.Errorf("unexpected status from %s", c.resource)}
	}

	var out *T
	if err := json.NewDecoder(resp.Body).Decode(&out); err != nil {
		if ctx.Err() != nil {
			return zero, ctx.Err()
		}
		return zero, &TransportError{Status: resp.StatusCode, Err: fmt.Errorf("decode %s: %w", c.resource, err)}
	}
	// a null body leaves out nil; treat it like any other broken reply
	if out == nil {
		return zero, &TransportError{Status: resp.StatusCode, Err: fmt.Errorf("empty %s body", c.resource)}
	}
	return *out, nil
}
