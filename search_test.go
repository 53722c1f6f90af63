package logdex

import (
	"context"
	"encoding/json"
	"errors"
	"net/http"
	"net/http/httptest"
	"reflect"
	"sync/atomic"
	"testing"
	"time"
)

// fakeLogpoint mimics the service end to end: one start, paged polls, and
// the allowed-data listing.
type fakeLogpoint struct {
	pages    []string // JSON poll responses, served in order
	startRes string
	pollSeen atomic.Int64
}

func (f *fakeLogpoint) handler(t *testing.T) http.Handler {
	t.Helper()
	mux := http.NewServeMux()
	mux.HandleFunc("/getsearchlogs", func(w http.ResponseWriter, r *http.Request) {
		_ = r.ParseForm()
		var data map[string]any
		if err := json.Unmarshal([]byte(r.PostFormValue("requestData")), &data); err != nil {
			t.Errorf("bad requestData: %v", err)
		}
		if _, isStart := data["query"]; isStart {
			_, _ = w.Write([]byte(f.startRes))
			return
		}
		i := f.pollSeen.Add(1) - 1
		if int(i) >= len(f.pages) {
			i = int64(len(f.pages) - 1)
		}
		_, _ = w.Write([]byte(f.pages[i]))
	})
	mux.HandleFunc("/getalloweddata", func(w http.ResponseWriter, _ *http.Request) {
		_, _ = w.Write([]byte(`{"allowed_repos":[{"repo":"windows"},{"repo":"linux"}]}`))
	})
	return mux
}

type captureReporter struct {
	reports []Report
}

func (c *captureReporter) Report(r Report) { c.reports = append(c.reports, r) }

func newTestClient(t *testing.T, srv *httptest.Server, opts ...Option) *Client {
	t.Helper()
	opts = append([]Option{
		WithService(srv.URL),
		WithCredentials("partner", StaticSecret("key")),
		WithPolling(time.Millisecond, time.Second),
	}, opts...)
	c, err := New(opts...)
	if err != nil {
		t.Fatalf("New: %v", err)
	}
	t.Cleanup(c.Close)
	return c
}

func TestExecute_FixedSchema_EndToEnd(t *testing.T) {
	fake := &fakeLogpoint{
		startRes: `{"search_id": "abc"}`,
		pages: []string{
			`{"rows":[{"device_name":"fw1","col_ts":100}], "final": false}`,
			`{"rows":[{"device_name":"fw2"}], "final": true}`,
		},
	}
	srv := httptest.NewServer(fake.handler(t))
	defer srv.Close()

	rep := &captureReporter{}
	c := newTestClient(t, srv, WithReporter(rep))

	res, err := c.Execute(context.Background(), Search{
		Query: `"device_name" = *`,
		Limit: 10,
		Paths: []string{"device_name", "col_ts"},
	})
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}

	if len(res.Records) != 2 {
		t.Fatalf("expected 2 records, got %d", len(res.Records))
	}
	want0 := [][]string{{"fw1"}, {"100"}}
	if !reflect.DeepEqual(res.Records[0].Values, want0) {
		t.Errorf("record 0: expected %v, got %v", want0, res.Records[0].Values)
	}
	want1 := [][]string{{"fw2"}, {""}}
	if !reflect.DeepEqual(res.Records[1].Values, want1) {
		t.Errorf("record 1: expected %v, got %v", want1, res.Records[1].Values)
	}
	if !res.Warning {
		t.Error("expected warning for missing col_ts")
	}

	if len(rep.reports) != 1 {
		t.Fatalf("expected 1 report, got %d", len(rep.reports))
	}
	r := rep.reports[0]
	if r.Rows != 2 || r.Pages != 2 {
		t.Errorf("report rows/pages: %d/%d", r.Rows, r.Pages)
	}
	if len(r.Warnings) != 1 || r.Warnings[0].Category != "KeyError" {
		t.Errorf("expected KeyError warning, got %+v", r.Warnings)
	}
}

func TestExecute_InferredSchema_NoPaths(t *testing.T) {
	fake := &fakeLogpoint{
		startRes: `{"search_id": "abc"}`,
		pages:    []string{`{"rows":[{"b":"2","a":"1"}], "final": true}`},
	}
	srv := httptest.NewServer(fake.handler(t))
	defer srv.Close()

	c := newTestClient(t, srv)
	res, err := c.Execute(context.Background(), Search{Limit: 10})
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if !reflect.DeepEqual(res.Fields, []string{"a", "b"}) {
		t.Errorf("expected inferred sorted fields, got %v", res.Fields)
	}
	if res.Warning {
		t.Error("no warning expected for inference")
	}
}

func TestExecute_InvalidLimit_NoNetworkCall(t *testing.T) {
	var hits atomic.Int64
	srv := httptest.NewServer(http.HandlerFunc(func(http.ResponseWriter, *http.Request) {
		hits.Add(1)
	}))
	defer srv.Close()

	c := newTestClient(t, srv)
	_, err := c.Execute(context.Background(), Search{Limit: 0})
	if !errors.Is(err, ErrInvalidLimit) {
		t.Fatalf("expected ErrInvalidLimit, got %v", err)
	}
	if hits.Load() != 0 {
		t.Errorf("expected zero network calls, got %d", hits.Load())
	}
}

func TestExecute_Rejected(t *testing.T) {
	fake := &fakeLogpoint{startRes: `{}`}
	srv := httptest.NewServer(fake.handler(t))
	defer srv.Close()

	c := newTestClient(t, srv)
	_, err := c.Execute(context.Background(), Search{Query: "bad ===", Limit: 10})
	if !errors.Is(err, ErrSearchRejected) {
		t.Errorf("expected ErrSearchRejected, got %v", err)
	}
}

func TestPreviewPaths_FirstRowKeysSorted(t *testing.T) {
	fake := &fakeLogpoint{
		startRes: `{"search_id": "abc"}`,
		pages:    []string{`{"rows":[{"zulu":1,"alpha":2,"mike":3}], "final": true}`},
	}
	srv := httptest.NewServer(fake.handler(t))
	defer srv.Close()

	c := newTestClient(t, srv)
	paths, err := c.PreviewPaths(context.Background(), "", "", nil)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if !reflect.DeepEqual(paths, []string{"alpha", "mike", "zulu"}) {
		t.Errorf("unexpected paths: %v", paths)
	}
}

func TestPreviewPaths_ZeroRows_EmptyNotError(t *testing.T) {
	fake := &fakeLogpoint{
		startRes: `{"search_id": "abc"}`,
		pages:    []string{`{"rows":[], "final": true}`},
	}
	srv := httptest.NewServer(fake.handler(t))
	defer srv.Close()

	c := newTestClient(t, srv)
	paths, err := c.PreviewPaths(context.Background(), "", "", nil)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if len(paths) != 0 {
		t.Errorf("expected empty preview, got %v", paths)
	}
}

func TestPreviewRepositories(t *testing.T) {
	fake := &fakeLogpoint{startRes: `{"search_id": "abc"}`}
	srv := httptest.NewServer(fake.handler(t))
	defer srv.Close()

	c := newTestClient(t, srv)
	repos, err := c.PreviewRepositories(context.Background())
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if !reflect.DeepEqual(repos, []string{"windows", "linux"}) {
		t.Errorf("unexpected repos: %v", repos)
	}
}
