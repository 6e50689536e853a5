package main

import (
	"context"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"
)

func newTestClient(baseURL string) *DatadogClient {
	return &DatadogClient{
		baseURL:    baseURL,
		apiKey:     "test-api-key",
		appKey:     "test-app-key",
		httpClient: &http.Client{Timeout: 2 * time.Second},
	}
}

func TestListMonitors(t *testing.T) {
	s := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if r.URL.Path != "/api/v1/monitor" {
			t.Errorf("path = %q", r.URL.Path)
		}
		if r.Header.Get("DD-API-KEY") != "test-api-key" || r.Header.Get("DD-APPLICATION-KEY") != "test-app-key" {
			t.Errorf("auth headers missing: %v", r.Header)
		}
		if r.URL.Query().Get("with_downtimes") != "true" {
			t.Errorf("with_downtimes not requested: %v", r.URL.Query())
		}
		w.Header().Set("Content-Type", "application/json")
		w.Write([]byte(`[
			{"id": 1, "name": "cpu", "tags": ["env:prod"], "options": {"thresholds": {"critical": 90}}},
			{"id": 2, "name": "disk", "overall_state": "OK"}
		]`))
	}))
	defer s.Close()

	monitors, err := newTestClient(s.URL).ListMonitors(context.Background(), 0)
	if err != nil {
		t.Fatalf("ListMonitors: %v", err)
	}
	if len(monitors) != 2 {
		t.Fatalf("want 2 monitors, got %d", len(monitors))
	}
	if monitors[0].ID != 1 || monitors[0].Tags[0] != "env:prod" {
		t.Errorf("monitor 0 = %+v", monitors[0])
	}
	if !strings.Contains(string(monitors[0].Options), "critical") {
		t.Errorf("options blob not kept verbatim: %s", monitors[0].Options)
	}
}

func TestListMonitors_CapEnforcedClientSide(t *testing.T) {
	s := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if r.URL.Query().Get("page_size") != "2" {
			t.Errorf("page_size hint not sent: %v", r.URL.Query())
		}
		// Ignore the hint, like a server that pages differently.
		w.Write([]byte(`[{"id": 1}, {"id": 2}, {"id": 3}]`))
	}))
	defer s.Close()

	monitors, err := newTestClient(s.URL).ListMonitors(context.Background(), 2)
	if err != nil {
		t.Fatalf("ListMonitors: %v", err)
	}
	if len(monitors) != 2 {
		t.Errorf("cap not enforced, got %d monitors", len(monitors))
	}
}

func TestGetMonitorDetail(t *testing.T) {
	s := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if r.URL.Path != "/api/v1/monitor/42" {
			t.Errorf("path = %q", r.URL.Path)
		}
		w.Write([]byte(`{"id": 42, "name": "api 5xx", "matching_downtimes": [{"id": 7, "scope": ["*"]}]}`))
	}))
	defer s.Close()

	monitor, err := newTestClient(s.URL).GetMonitorDetail(context.Background(), 42)
	if err != nil {
		t.Fatalf("GetMonitorDetail: %v", err)
	}
	if monitor.ID != 42 || monitor.Name != "api 5xx" {
		t.Errorf("monitor = %+v", monitor)
	}
	if len(monitor.MatchingDowntimes) != 1 || !strings.Contains(string(monitor.MatchingDowntimes[0]), `"scope"`) {
		t.Errorf("downtimes not kept verbatim: %v", monitor.MatchingDowntimes)
	}
}

func TestGet_ErrorStatusIncludesBody(t *testing.T) {
	s := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		http.Error(w, `{"errors": ["Forbidden"]}`, http.StatusForbidden)
	}))
	defer s.Close()

	_, err := newTestClient(s.URL).ListMonitors(context.Background(), 0)
	if err == nil {
		t.Fatal("want error on 403")
	}
	if !strings.Contains(err.Error(), "403") || !strings.Contains(err.Error(), "Forbidden") {
		t.Errorf("error should carry status and body excerpt: %v", err)
	}
}

func TestListMetricNames(t *testing.T) {
	s := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if r.URL.Path != "/api/v1/metrics" {
			t.Errorf("path = %q", r.URL.Path)
		}
		if r.URL.Query().Get("from") == "" {
			t.Errorf("from parameter missing")
		}
		w.Write([]byte(`{"from": "123", "metrics": ["system.cpu.user", "system.mem.used"]}`))
	}))
	defer s.Close()

	names, err := newTestClient(s.URL).ListMetricNames(context.Background())
	if err != nil {
		t.Fatalf("ListMetricNames: %v", err)
	}
	if len(names) != 2 || names[0] != "system.cpu.user" {
		t.Errorf("names = %v", names)
	}
}
