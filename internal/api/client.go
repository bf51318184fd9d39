// Package api is the HTTP client for the training-center REST API. It is the
// single place where the bearer token is attached and where session expiry is
// handled: any 401 clears the session through a registered hook. The client
// performs no retries and no backoff; every failure is surfaced once.
package api

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net"
	"net/http"
	"net/url"
	"strings"
	"time"

	"github.com/lkpmandiri/backoffice/model"
)

// UnauthorizedHook is invoked when the backend answers 401 to an
// authenticated call, before the error is returned to the caller.
type UnauthorizedHook func(ctx context.Context, rctx *model.RequestContext)

// MultipartBody wraps a prepared multipart payload. The content type carries
// the boundary chosen by mime/multipart, so the client passes it through
// verbatim instead of setting application/json.
type MultipartBody struct {
	Reader      io.Reader
	ContentType string
}

// Client wraps HTTP access to the training-center API.
type Client struct {
	baseURL        string
	http           *http.Client
	onUnauthorized UnauthorizedHook
}

// NewClient creates a client for the API at baseURL. The timeout is a
// generous ceiling so slow uploads complete; exceeding it yields a
// BACKEND_TIMEOUT error.
func NewClient(baseURL string, timeout time.Duration) *Client {
	if timeout <= 0 {
		timeout = 90 * time.Second
	}
	transport := &http.Transport{
		MaxIdleConns:        100,
		MaxConnsPerHost:     50,
		IdleConnTimeout:     90 * time.Second,
		TLSHandshakeTimeout: 10 * time.Second,
	}
	return &Client{
		baseURL: strings.TrimRight(baseURL, "/"),
		http: &http.Client{
			Timeout:   timeout,
			Transport: transport,
		},
	}
}

// SetUnauthorizedHook registers the hook fired on 401 responses. The hook is
// unconditional: by the time the caller sees ErrUnauthorized the session is
// already gone.
func (c *Client) SetUnauthorizedHook(hook UnauthorizedHook) {
	c.onUnauthorized = hook
}

// Do executes one request and returns the raw response body. The bearer token
// is taken from the RequestContext on ctx when present. body may be nil, a
// JSON-marshalable value, or a *MultipartBody.
func (c *Client) Do(ctx context.Context, method, path string, query url.Values, body any) (json.RawMessage, error) {
	reqURL := c.baseURL + path
	if len(query) > 0 {
		reqURL += "?" + query.Encode()
	}

	var reader io.Reader
	contentType := ""
	switch b := body.(type) {
	case nil:
	case *MultipartBody:
		reader = b.Reader
		contentType = b.ContentType
	default:
		raw, err := json.Marshal(b)
		if err != nil {
			return nil, fmt.Errorf("api: marshal body: %w", err)
		}
		reader = bytes.NewReader(raw)
		contentType = "application/json"
	}

	req, err := http.NewRequestWithContext(ctx, method, reqURL, reader)
	if err != nil {
		return nil, fmt.Errorf("api: build request: %w", err)
	}

	req.Header.Set("Accept", "application/json")
	if contentType != "" {
		req.Header.Set("Content-Type", contentType)
	}

	rctx := model.RequestContextFrom(ctx)
	if rctx != nil {
		if rctx.Token != "" {
			req.Header.Set("Authorization", "Bearer "+sanitizeHeader(rctx.Token))
		}
		if rctx.CorrelationID != "" {
			req.Header.Set("X-Correlation-Id", sanitizeHeader(rctx.CorrelationID))
		}
	}

	resp, err := c.http.Do(req)
	if err != nil {
		return nil, classifyTransportError(ctx, err)
	}
	defer resp.Body.Close()

	respBody, err := io.ReadAll(io.LimitReader(resp.Body, 10<<20)) // 10MB limit
	if err != nil {
		return nil, fmt.Errorf("api: read response: %w", err)
	}

	if resp.StatusCode >= 400 {
		return nil, c.classifyStatus(ctx, rctx, resp.StatusCode, respBody)
	}

	if len(respBody) == 0 {
		return nil, nil
	}
	return json.RawMessage(respBody), nil
}

// classifyStatus maps an error response to the envelope taxonomy. 401 fires
// the unauthorized hook first.
func (c *Client) classifyStatus(ctx context.Context, rctx *model.RequestContext, status int, body []byte) error {
	switch status {
	case http.StatusUnauthorized:
		if c.onUnauthorized != nil {
			c.onUnauthorized(ctx, rctx)
		}
		return model.NewUnauthorizedError("Session expired, please sign in again")
	case http.StatusNotFound:
		return model.NewNotFoundError(serverMessage(body, "The requested record was not found"))
	case http.StatusConflict:
		return model.NewConflictError(serverMessage(body, "The request conflicts with existing data"))
	case http.StatusRequestEntityTooLarge:
		return &model.ErrorEnvelope{
			Code:    model.ErrUploadTooLarge,
			Message: serverMessage(body, "The uploaded file is too large"),
		}
	case http.StatusUnprocessableEntity:
		return parseValidationBody(body)
	case http.StatusGatewayTimeout:
		return model.NewBackendTimeoutError()
	case http.StatusBadGateway, http.StatusServiceUnavailable:
		return model.NewBackendUnavailableError()
	default:
		if status >= 500 {
			return &model.ErrorEnvelope{
				Code:    model.ErrInternalError,
				Message: serverMessage(body, "An unexpected error occurred"),
			}
		}
		return model.NewBadRequestError(serverMessage(body, "The request was rejected"))
	}
}

// parseValidationBody decodes the backend's 422 shape:
// {"message": "...", "errors": {"field": ["msg", ...]}}.
func parseValidationBody(body []byte) *model.ErrorEnvelope {
	var payload struct {
		Message string              `json:"message"`
		Errors  map[string][]string `json:"errors"`
	}
	if err := json.Unmarshal(body, &payload); err != nil || len(payload.Errors) == 0 {
		return &model.ErrorEnvelope{
			Code:    model.ErrValidationError,
			Message: serverMessage(body, "One or more fields are invalid"),
		}
	}
	env := model.NewValidationError(payload.Errors)
	if payload.Message != "" {
		env.Message = payload.Message
	}
	return env
}

// serverMessage extracts a "message" field from an error body, falling back
// to the given default.
func serverMessage(body []byte, fallback string) string {
	var payload struct {
		Message string `json:"message"`
		Error   string `json:"error"`
	}
	if err := json.Unmarshal(body, &payload); err == nil {
		if payload.Message != "" {
			return payload.Message
		}
		if payload.Error != "" {
			return payload.Error
		}
	}
	return fallback
}

func classifyTransportError(ctx context.Context, err error) error {
	if ctx.Err() != nil {
		return model.NewBackendTimeoutError()
	}
	var urlErr *url.Error
	if errors.As(err, &urlErr) && urlErr.Timeout() {
		return model.NewBackendTimeoutError()
	}
	if isConnectionError(err) {
		return model.NewBackendUnavailableError()
	}
	return fmt.Errorf("api: request failed: %w", err)
}

func isConnectionError(err error) bool {
	var opErr *net.OpError
	if errors.As(err, &opErr) {
		return true
	}
	var dnsErr *net.DNSError
	return errors.As(err, &dnsErr)
}

// sanitizeHeader strips newlines and carriage returns to prevent header
// injection.
func sanitizeHeader(s string) string {
	s = strings.ReplaceAll(s, "\r", "")
	return strings.ReplaceAll(s, "\n", "")
}
