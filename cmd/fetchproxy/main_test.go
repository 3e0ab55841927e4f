package main

import (
	"encoding/json"
	"io"
	"net/http/httptest"
	"net/url"
	"testing"
	"time"

	"github.com/webgrab/webgrab/internal/testutil"
	"github.com/webgrab/webgrab/pkg/client"
)

func newTestFetcher(t *testing.T) *client.Client {
	t.Helper()

	cfg := client.DefaultConfig()
	cfg.MaxRetries = 1
	cfg.Backoff = 10 * time.Millisecond

	c, err := client.New(cfg)
	if err != nil {
		t.Fatalf("client.New() failed: %v", err)
	}
	t.Cleanup(func() { c.Close() })

	return c
}

func TestHealthEndpoint(t *testing.T) {
	req := httptest.NewRequest("GET", "/health", nil)
	w := httptest.NewRecorder()

	healthHandler(w, req)

	if w.Code != 200 {
		t.Errorf("Status = %d, want 200", w.Code)
	}
	if w.Body.String() != "OK" {
		t.Errorf("Body = %q, want OK", w.Body.String())
	}
}

func TestFetchHandler_MissingURL(t *testing.T) {
	handler := fetchHandler(newTestFetcher(t))

	req := httptest.NewRequest("GET", "/fetch", nil)
	w := httptest.NewRecorder()
	handler(w, req)

	if w.Code != 400 {
		t.Errorf("Status = %d, want 400", w.Code)
	}
}

func TestFetchHandler_ProxiesBody(t *testing.T) {
	mock := testutil.NewMockServer()
	defer mock.Close()
	mock.SetResponse("/page", 200, "<html><body>hi</body></html>")

	handler := fetchHandler(newTestFetcher(t))

	req := httptest.NewRequest("GET", "/fetch?url="+url.QueryEscape(mock.URL("/page")), nil)
	w := httptest.NewRecorder()
	handler(w, req)

	if w.Code != 200 {
		t.Fatalf("Status = %d, want 200", w.Code)
	}
	body, _ := io.ReadAll(w.Result().Body)
	if string(body) != "<html><body>hi</body></html>" {
		t.Errorf("Body = %q, want the upstream HTML", body)
	}
}

func TestFetchHandler_AppliesSelector(t *testing.T) {
	mock := testutil.NewMockServer()
	defer mock.Close()
	mock.SetResponse("/page", 200, "<ul><li>a</li><li>b</li></ul>")

	handler := fetchHandler(newTestFetcher(t))

	target := "/fetch?selector=li&url=" + url.QueryEscape(mock.URL("/page"))
	req := httptest.NewRequest("GET", target, nil)
	w := httptest.NewRecorder()
	handler(w, req)

	if w.Code != 200 {
		t.Fatalf("Status = %d, want 200", w.Code)
	}

	var values []string
	if err := json.NewDecoder(w.Result().Body).Decode(&values); err != nil {
		t.Fatalf("Response is not JSON: %v", err)
	}
	if len(values) != 2 || values[0] != "a" || values[1] != "b" {
		t.Errorf("Values = %v, want [a b]", values)
	}
}

func TestFetchHandler_InvalidSelector(t *testing.T) {
	mock := testutil.NewMockServer()
	defer mock.Close()
	mock.SetResponse("/page", 200, "<p>x</p>")

	handler := fetchHandler(newTestFetcher(t))

	target := "/fetch?selector=" + url.QueryEscape("p[") + "&url=" + url.QueryEscape(mock.URL("/page"))
	req := httptest.NewRequest("GET", target, nil)
	w := httptest.NewRecorder()
	handler(w, req)

	if w.Code != 400 {
		t.Errorf("Status = %d, want 400 for a bad selector", w.Code)
	}
}

func TestFetchHandler_UpstreamStatusPreserved(t *testing.T) {
	mock := testutil.NewMockServer()
	defer mock.Close()
	mock.SetResponse("/missing", 404, "")

	handler := fetchHandler(newTestFetcher(t))

	req := httptest.NewRequest("GET", "/fetch?url="+url.QueryEscape(mock.URL("/missing")), nil)
	w := httptest.NewRecorder()
	handler(w, req)

	if w.Code != 404 {
		t.Errorf("Status = %d, want the upstream 404", w.Code)
	}
}

func TestGetEnvInt(t *testing.T) {
	t.Setenv("WEBGRAB_TEST_INT", "42")
	if got := getEnvInt("WEBGRAB_TEST_INT", 7); got != 42 {
		t.Errorf("getEnvInt = %d, want 42", got)
	}
	if got := getEnvInt("WEBGRAB_TEST_UNSET", 7); got != 7 {
		t.Errorf("getEnvInt = %d, want default 7", got)
	}
	t.Setenv("WEBGRAB_TEST_INT", "not-a-number")
	if got := getEnvInt("WEBGRAB_TEST_INT", 7); got != 7 {
		t.Errorf("getEnvInt = %d, want default 7 for garbage", got)
	}
}
