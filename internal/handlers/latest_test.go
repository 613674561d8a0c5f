package handlers

import (
	"encoding/json"
	"net/http"
	"strings"
	"testing"

	"github.com/stockyard-ci/stockyard/internal/services"
)

func TestLatest_RoundTrip(t *testing.T) {
	payloads := map[string]string{
		"linesofcode":      "{\"languages\": [ {\"language\":\"Go\", \"codeLines\": 800} ],\n \"extra\": true}",
		"codecoverage":     `{"codeCoverage":{"lineCoverage":0.42,"targets":[{"name":"App","files":[{"path":"a","name":"a","lineCoverage":0.42}]}]}}`,
		"unittest":         `{"testClasses":[{"id":"A","testCases":[{"id":"t","status":"success"}]}]}`,
		"imagecapture":     `{"imageCaptures":[{"title":"Home","url":"https://img/1.png"}]}`,
		"imagecapturediff": `{"new":["https://img/n.png"],"changed":[],"removed":[]}`,
	}

	ts := newTestServer(t)
	for kind, body := range payloads {
		ts.upload(t, kind, mainScope, body)
	}
	for kind, body := range payloads {
		t.Run(kind, func(t *testing.T) {
			w := ts.do(http.MethodGet, "/api/latest/"+kind+"?"+mainScope, nil, "")
			if w.Code != http.StatusOK {
				t.Fatalf("status = %d", w.Code)
			}
			if w.Body.String() != body {
				t.Errorf("body = %s, want %s", w.Body.String(), body)
			}
		})
	}
}

func TestLatest_EmptyIsEmptyObject(t *testing.T) {
	ts := newTestServer(t)
	for _, target := range []string{
		"/api/latest/linesofcode?" + mainScope,
		"/api/latest/codecoverage?" + mainScope,
		"/api/latest/unittest?owner=acme",
		"/api/latest/imagecapture?" + mainScope,
		"/api/latest/imagecapturediff?" + mainScope,
	} {
		w := ts.do(http.MethodGet, target, nil, "")
		if w.Code != http.StatusOK || w.Body.String() != "{}" {
			t.Errorf("%s = %d %s, want 200 {}", target, w.Code, w.Body.String())
		}
	}
}

func TestLatest_NewestUploadWins(t *testing.T) {
	ts := newTestServer(t)
	ts.upload(t, "unittest", mainScope, `{"testClasses":[],"run":1}`)
	ts.upload(t, "unittest", mainScope, `{"testClasses":[],"run":2}`)

	w := ts.do(http.MethodGet, "/api/latest/unittest?"+mainScope, nil, "")
	if !strings.Contains(w.Body.String(), `"run":2`) {
		t.Errorf("latest = %s", w.Body.String())
	}
}

func TestCoverageHistory(t *testing.T) {
	ts := newTestServer(t)
	for _, ratio := range []string{"0.1", "0.2", "0.3"} {
		ts.upload(t, "codecoverage", mainScope, `{"codeCoverage":{"lineCoverage":`+ratio+`}}`)
	}

	tests := []struct {
		query string
		want  int
	}{
		{mainScope, 3},
		{mainScope + "&limit=2", 2},
		{mainScope + "&limit=abc", 3},
		{"owner=acme&repository=app", 0},
	}
	for _, tt := range tests {
		w := ts.do(http.MethodGet, "/api/history/codecoverage?"+tt.query, nil, "")
		var points []services.CoveragePoint
		if err := json.Unmarshal(w.Body.Bytes(), &points); err != nil {
			t.Fatalf("%s: decode %v", tt.query, err)
		}
		if len(points) != tt.want {
			t.Errorf("%s: %d points, want %d", tt.query, len(points), tt.want)
		}
	}
}

func TestOwnersRepositoriesBranches(t *testing.T) {
	ts := newTestServer(t)
	ts.upload(t, "unittest", "owner=zeta&repository=api&branch=main", `{}`)
	ts.upload(t, "unittest", "owner=acme&repository=app&branch=main", `{}`)
	ts.upload(t, "unittest", "owner=acme&repository=app&branch=topic", `{}`)

	var owners []string
	_ = json.Unmarshal(ts.do(http.MethodGet, "/api/owners", nil, "").Body.Bytes(), &owners)
	if strings.Join(owners, ",") != "acme,zeta" {
		t.Errorf("owners = %v", owners)
	}

	var repos []map[string]interface{}
	_ = json.Unmarshal(ts.do(http.MethodGet, "/api/repositories?owner=acme", nil, "").Body.Bytes(), &repos)
	if len(repos) != 1 || repos[0]["repository"] != "app" {
		t.Errorf("repositories = %v", repos)
	}

	var branches []map[string]interface{}
	_ = json.Unmarshal(ts.do(http.MethodGet, "/api/branches?owner=acme&repository=app", nil, "").Body.Bytes(), &branches)
	if len(branches) != 2 {
		t.Errorf("branches = %v", branches)
	}

	if body := ts.do(http.MethodGet, "/api/branches?owner=acme", nil, "").Body.String(); body != "[]" {
		t.Errorf("branches without repository = %s", body)
	}
}
