package builtin

import (
	"context"
	"io"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/flowforge/flowforge/activity"
)

func TestHTTP_GETReturnsStatusAndBody(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("X-Custom", "yes")
		w.WriteHeader(http.StatusCreated)
		_, _ = w.Write([]byte("hello"))
	}))
	defer srv.Close()

	actx := testContext(map[string]any{"url": srv.URL}, map[string]any{})
	res, err := HTTP{}.Execute(context.Background(), actx)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if res.Kind != activity.KindOk {
		t.Fatalf("got %+v, want Ok", res)
	}
	if res.Output["status_code"] != http.StatusCreated {
		t.Fatalf("status_code = %v, want 201", res.Output["status_code"])
	}
	if res.Output["body"] != "hello" {
		t.Fatalf("body = %v, want hello", res.Output["body"])
	}
	headers, ok := res.Output["headers"].(map[string]any)
	if !ok || headers["X-Custom"] != "yes" {
		t.Fatalf("headers = %+v, want X-Custom: yes", res.Output["headers"])
	}
}

func TestHTTP_POSTSendsBodyAndHeaders(t *testing.T) {
	var gotBody string
	var gotHeader string
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		b, _ := io.ReadAll(r.Body)
		gotBody = string(b)
		gotHeader = r.Header.Get("X-Token")
		w.WriteHeader(http.StatusOK)
	}))
	defer srv.Close()

	actx := testContext(map[string]any{
		"method":  "post",
		"url":     srv.URL,
		"body":    "payload",
		"headers": map[string]any{"X-Token": "abc"},
	}, map[string]any{})
	res, err := HTTP{}.Execute(context.Background(), actx)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if res.Kind != activity.KindOk {
		t.Fatalf("got %+v, want Ok", res)
	}
	if gotBody != "payload" || gotHeader != "abc" {
		t.Fatalf("server saw body=%q header=%q", gotBody, gotHeader)
	}
}

func TestHTTP_NonOKStatusIsStillOk(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusInternalServerError)
	}))
	defer srv.Close()

	actx := testContext(map[string]any{"url": srv.URL}, map[string]any{})
	res, err := HTTP{}.Execute(context.Background(), actx)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if res.Kind != activity.KindOk || res.Output["status_code"] != http.StatusInternalServerError {
		t.Fatalf("got %+v, want Ok carrying 500 status for the workflow to branch on", res)
	}
}

func TestHTTP_MissingURLFails(t *testing.T) {
	actx := testContext(map[string]any{}, map[string]any{})
	res, err := HTTP{}.Execute(context.Background(), actx)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if res.Kind != activity.KindFail {
		t.Fatalf("got %+v, want Fail", res)
	}
}

func TestHTTP_UnsupportedMethodFails(t *testing.T) {
	actx := testContext(map[string]any{"url": "http://example.invalid", "method": "DELETE"}, map[string]any{})
	res, err := HTTP{}.Execute(context.Background(), actx)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if res.Kind != activity.KindFail {
		t.Fatalf("got %+v, want Fail", res)
	}
}
