package api

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"net/http"
	"net/url"
	"time"

	"github.com/google/uuid"

	"github.com/go-ports/storefront/internal/redaction"
)

// request describes one API call. route is the path template used as the
// metrics label; path is the concrete path.
type request struct {
	method string
	route  string
	path   string
	query  url.Values
	body   any
	auth   bool
}

// doJSON executes req, marshalling body as JSON and unmarshalling the response
// into out. Pass nil out to discard the response body. A 401 on an
// authenticated request triggers one token refresh and one retry.
func (c *Client) doJSON(ctx context.Context, req request, out any) error {
	var payload []byte
	if req.body != nil {
		b, err := json.Marshal(req.body)
		if err != nil {
			return fmt.Errorf("api: %s %s: marshal: %w", req.method, req.path, err)
		}
		payload = b
	}

	access := ""
	if req.auth && c.tokens != nil {
		access, _ = c.tokens.Tokens()
	}

	err := c.send(ctx, req, payload, access, out)
	if !req.auth || !errors.Is(err, ErrUnauthorized) || c.tokens == nil {
		return err
	}

	refreshed, rerr := c.refreshAfter(ctx, access)
	if rerr != nil {
		c.logger.Warn("token refresh failed", "err", rerr)
		if c.onAuthFailure != nil {
			c.onAuthFailure(ctx)
		}
		return err
	}
	return c.send(ctx, req, payload, refreshed, out)
}

// send performs a single HTTP round trip.
func (c *Client) send(ctx context.Context, req request, payload []byte, access string, out any) error {
	if c.limiter != nil {
		if err := c.limiter.Wait(ctx); err != nil {
			return fmt.Errorf("api: %s %s: rate limit: %w", req.method, req.path, err)
		}
	}

	u := c.baseURL + req.path
	if len(req.query) > 0 {
		u += "?" + req.query.Encode()
	}

	var bodyReader io.Reader
	if payload != nil {
		bodyReader = bytes.NewReader(payload)
	}
	httpReq, err := http.NewRequestWithContext(ctx, req.method, u, bodyReader)
	if err != nil {
		return fmt.Errorf("api: %s %s: new request: %w", req.method, req.path, err)
	}
	requestID := uuid.NewString()
	httpReq.Header.Set("Accept", "application/json")
	httpReq.Header.Set("User-Agent", c.userAgent)
	httpReq.Header.Set("X-Request-ID", requestID)
	if payload != nil {
		httpReq.Header.Set("Content-Type", "application/json")
	}
	if access != "" {
		httpReq.Header.Set("Authorization", "Bearer "+access)
	}

	start := time.Now()
	resp, err := c.http.Do(httpReq) // #nosec G704 -- SSRF risk accepted; URL is the user-configured storefront API
	if err != nil {
		c.metrics.RecordRequest(req.method, req.route, 0, time.Since(start))
		return fmt.Errorf("api: %s %s: %w", req.method, req.path, err)
	}
	defer resp.Body.Close()
	c.metrics.RecordRequest(req.method, req.route, resp.StatusCode, time.Since(start))

	if resp.StatusCode < 200 || resp.StatusCode >= 300 {
		snippet, _ := io.ReadAll(io.LimitReader(resp.Body, 4096))
		apiErr := &Error{
			Method:    req.method,
			Path:      req.path,
			Status:    resp.StatusCode,
			Detail:    parseDetail(snippet),
			RequestID: requestID,
		}
		c.logger.Debug("api error",
			slog.String("method", req.method),
			slog.String("path", req.path),
			slog.Int("status", resp.StatusCode),
			slog.String("request_id", requestID),
			slog.String("body", redaction.Redact(string(bytes.TrimSpace(snippet)))),
		)
		return apiErr
	}

	if out != nil && resp.StatusCode != http.StatusNoContent {
		if err := json.NewDecoder(resp.Body).Decode(out); err != nil {
			return fmt.Errorf("api: %s %s: decode: %w", req.method, req.path, err)
		}
	}
	return nil
}

// refreshAfter rotates the token pair after `stale` was rejected. When another
// caller already rotated it, the current token is returned without a new
// refresh.
func (c *Client) refreshAfter(ctx context.Context, stale string) (string, error) {
	c.refreshMu.Lock()
	defer c.refreshMu.Unlock()

	access, refresh := c.tokens.Tokens()
	if access != "" && access != stale {
		return access, nil
	}
	if refresh == "" {
		return "", errors.New("no refresh token")
	}
	pair, err := c.Refresh(ctx, refresh)
	if err != nil {
		return "", err
	}
	if err := c.tokens.UpdateTokens(ctx, pair.AccessToken, pair.RefreshToken); err != nil {
		c.logger.Warn("persisting refreshed tokens failed", "err", err)
	}
	return pair.AccessToken, nil
}
