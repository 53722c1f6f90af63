package logpoint

import (
	"context"
	"encoding/json"
	"errors"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/kailas-cloud/logdex/internal/domain"
)

func newTestClient(url string) *Client {
	return New(&Config{
		BaseURL:   url + "/", // trailing slash must be stripped
		Account:   "partner",
		SecretKey: "s3cret",
	})
}

func mustRequest(t *testing.T, query string, limit int, repos []string) domain.Request {
	t.Helper()
	req, err := domain.NewRequest(query, "Last 1 hour", limit, repos)
	if err != nil {
		t.Fatalf("NewRequest: %v", err)
	}
	return req
}

func TestStartSearch_ReturnsHandle(t *testing.T) {
	var gotForm map[string]string
	var gotData map[string]any

	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if r.Method != http.MethodPost {
			t.Errorf("expected POST, got %s", r.Method)
		}
		if r.URL.Path != "/getsearchlogs" {
			t.Errorf("unexpected path %s", r.URL.Path)
		}
		if err := r.ParseForm(); err != nil {
			t.Fatalf("parse form: %v", err)
		}
		gotForm = map[string]string{
			"username":   r.PostFormValue("username"),
			"secret_key": r.PostFormValue("secret_key"),
		}
		if err := json.Unmarshal([]byte(r.PostFormValue("requestData")), &gotData); err != nil {
			t.Fatalf("parse requestData: %v", err)
		}
		_, _ = w.Write([]byte(`{"search_id": "abc"}`))
	}))
	defer srv.Close()

	c := newTestClient(srv.URL)
	id, err := c.StartSearch(context.Background(), mustRequest(t, `"device_name" = "fw1"`, 10, nil))
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if id != "abc" {
		t.Errorf("expected handle %q, got %q", "abc", id)
	}
	if gotForm["username"] != "partner" || gotForm["secret_key"] != "s3cret" {
		t.Errorf("credentials not sent: %v", gotForm)
	}
	if gotData["query"] != `"device_name" = "fw1"` {
		t.Errorf("query not sent: %v", gotData["query"])
	}
	if gotData["time_range"] != "Last 1 hour" {
		t.Errorf("time_range not sent: %v", gotData["time_range"])
	}
	if gotData["limit"] != float64(10) {
		t.Errorf("limit not sent: %v", gotData["limit"])
	}
	if repos, ok := gotData["repos"].([]any); !ok || len(repos) != 0 {
		t.Errorf("expected explicit empty repos list, got %v", gotData["repos"])
	}
}

func TestStartSearch_NoHandle_Rejected(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, _ *http.Request) {
		_, _ = w.Write([]byte(`{}`))
	}))
	defer srv.Close()

	c := newTestClient(srv.URL)
	_, err := c.StartSearch(context.Background(), mustRequest(t, "bad ===", 10, nil))
	if !errors.Is(err, domain.ErrSearchRejected) {
		t.Errorf("expected ErrSearchRejected, got %v", err)
	}
}

func TestFetchPage_ParsesRowsAndFinal(t *testing.T) {
	var gotData map[string]any

	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		_ = r.ParseForm()
		if err := json.Unmarshal([]byte(r.PostFormValue("requestData")), &gotData); err != nil {
			t.Fatalf("parse requestData: %v", err)
		}
		_, _ = w.Write([]byte(`{"rows":[{"a":1},{"a":2}], "final": false, "total_pages": 3}`))
	}))
	defer srv.Close()

	c := newTestClient(srv.URL)
	page, err := c.FetchPage(context.Background(), "abc")
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if len(page.Rows) != 2 {
		t.Fatalf("expected 2 rows, got %d", len(page.Rows))
	}
	if page.Final {
		t.Error("expected final=false")
	}
	if page.TotalPages != 3 {
		t.Errorf("expected total_pages=3, got %d", page.TotalPages)
	}
	if gotData["search_id"] != "abc" {
		t.Errorf("search_id not sent: %v", gotData["search_id"])
	}
	if gotData["waiter_id"] != waiterID {
		t.Errorf("waiter_id not sent: %v", gotData["waiter_id"])
	}
	if v, present := gotData["seen_version"]; !present || v != nil {
		t.Errorf("expected seen_version null, got %v (present=%v)", v, present)
	}
}

func TestListRepositories_OrderPreserved(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if r.URL.Path != "/getalloweddata" {
			t.Errorf("unexpected path %s", r.URL.Path)
		}
		_ = r.ParseForm()
		if r.PostFormValue("type") != "logpoint_repos" {
			t.Errorf("expected type=logpoint_repos, got %q", r.PostFormValue("type"))
		}
		_, _ = w.Write([]byte(`{"allowed_repos":[{"repo":"windows"},{"repo":"linux"}]}`))
	}))
	defer srv.Close()

	c := newTestClient(srv.URL)
	repos, err := c.ListRepositories(context.Background())
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if len(repos) != 2 || repos[0] != "windows" || repos[1] != "linux" {
		t.Errorf("unexpected repos: %v", repos)
	}
}

func TestPostForm_NonSuccessStatus(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, _ *http.Request) {
		http.Error(w, "nope", http.StatusForbidden)
	}))
	defer srv.Close()

	c := newTestClient(srv.URL)
	_, err := c.FetchPage(context.Background(), "abc")
	if !errors.Is(err, domain.ErrTransport) {
		t.Fatalf("expected ErrTransport, got %v", err)
	}
	var se *domain.StatusError
	if !errors.As(err, &se) || se.Code != http.StatusForbidden {
		t.Errorf("expected StatusError 403, got %v", err)
	}
}

func TestPostForm_NetworkFailure_Unavailable(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(http.ResponseWriter, *http.Request) {}))
	srv.Close() // connection refused from here on

	c := newTestClient(srv.URL)
	_, err := c.ListRepositories(context.Background())
	if !errors.Is(err, domain.ErrUnavailable) {
		t.Errorf("expected ErrUnavailable, got %v", err)
	}
}

func TestPostForm_ContextCancelled(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		<-r.Context().Done()
	}))
	defer srv.Close()

	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	c := newTestClient(srv.URL)
	_, err := c.FetchPage(ctx, "abc")
	if !errors.Is(err, context.Canceled) {
		t.Errorf("expected context.Canceled, got %v", err)
	}
}
