package builtin

import (
	"bytes"
	"context"
	"fmt"
	"io"
	"net/http"
	"strings"

	"github.com/flowforge/flowforge/activity"
)

// HTTP performs a GET or POST request and returns the status code, response
// headers, and body. A non-2xx response is a successful Result carrying
// the status for the workflow to branch on, not a handler error.
//
// Input:
//   - method: "GET" or "POST" (default "GET")
//   - url: target URL (required)
//   - headers: optional map of header name -> string value
//   - body: optional request body (POST only)
type HTTP struct{}

func (h HTTP) Execute(ctx context.Context, actx *activity.Context) (activity.Result, error) {
	urlStr, ok := actx.Input["url"].(string)
	if !ok || urlStr == "" {
		return activity.Fail("INVALID_INPUT", "http_request: url is required", false), nil
	}

	method := "GET"
	if m, ok := actx.Input["method"].(string); ok && m != "" {
		method = strings.ToUpper(m)
	}
	if method != "GET" && method != "POST" {
		return activity.Fail("INVALID_INPUT", fmt.Sprintf("http_request: unsupported method %q", method), false), nil
	}

	var body io.Reader
	if bodyStr, ok := actx.Input["body"].(string); ok && bodyStr != "" {
		body = bytes.NewBufferString(bodyStr)
	}

	req, err := http.NewRequestWithContext(ctx, method, urlStr, body)
	if err != nil {
		return activity.Fail("INVALID_INPUT", fmt.Sprintf("http_request: %v", err), false), nil
	}
	if headers, ok := actx.Input["headers"].(map[string]any); ok {
		for key, value := range headers {
			if valueStr, ok := value.(string); ok {
				req.Header.Set(key, valueStr)
			}
		}
	}

	resp, err := actx.Services.HTTPClient.Do(req)
	if err != nil {
		return activity.Fail("HTTP_ERROR", err.Error(), true), nil
	}
	defer func() { _ = resp.Body.Close() }()

	respBody, err := io.ReadAll(resp.Body)
	if err != nil {
		return activity.Fail("HTTP_ERROR", fmt.Sprintf("reading response body: %v", err), true), nil
	}

	respHeaders := make(map[string]any, len(resp.Header))
	for key, values := range resp.Header {
		if len(values) == 1 {
			respHeaders[key] = values[0]
		} else {
			respHeaders[key] = values
		}
	}

	return activity.Ok(map[string]any{
		"status_code": resp.StatusCode,
		"headers":     respHeaders,
		"body":        string(respBody),
	}), nil
}
