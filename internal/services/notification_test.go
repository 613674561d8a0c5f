package services

import (
	"context"
	"encoding/json"
	"io"
	"net/http"
	"net/http/httptest"
	"strings"
	"sync"
	"testing"

	"github.com/stockyard-ci/stockyard/internal/config"
	"github.com/stockyard-ci/stockyard/internal/models"
	"github.com/stockyard-ci/stockyard/internal/testutil"
)

var testRenderer = messageRenderer{
	webURL:        "https://ci.example.com",
	moreInfoURL:   "https://ci.example.com",
	prMoreInfoURL: "https://pr.example.com",
}

func completedEvent(conclusions ...string) *BuildEvent {
	e := &BuildEvent{
		Notification: NotificationBuildCompleted,
		BuildID:      "b-1",
		Owner:        "acme",
		Repository:   "app",
		BuildKey:     "pullrequest-42",
		BuildNumber:  7,
	}
	for i, c := range conclusions {
		e.Tasks = append(e.Tasks, BuildTask{
			TaskID:     "t" + string(rune('1'+i)),
			Title:      "Task " + string(rune('A'+i)),
			Conclusion: c,
		})
	}
	return e
}

func TestBuildEvent_PullRequestNumber(t *testing.T) {
	tests := []struct {
		key    string
		want   string
		wantOK bool
	}{
		{"pullrequest-42", "42", true},
		{"pullrequest-42-retry", "42", true},
		{"branch-main", "", false},
		{"pullrequest", "", false},
		{"pullrequest-4a2", "", false},
		{"pullrequest-1/../../pulls", "", false},
		{"", "", false},
	}
	for _, tt := range tests {
		t.Run(tt.key, func(t *testing.T) {
			e := &BuildEvent{BuildKey: tt.key}
			got, ok := e.PullRequestNumber()
			if got != tt.want || ok != tt.wantOK {
				t.Errorf("PullRequestNumber() = %q, %v; want %q, %v", got, ok, tt.want, tt.wantOK)
			}
		})
	}
}

func TestMatchesFilter(t *testing.T) {
	passed := completedEvent("success", "success")
	failed := completedEvent("success", "failure")

	tests := []struct {
		filter string
		event  *BuildEvent
		want   bool
	}{
		{models.FilterAll, passed, true},
		{models.FilterAll, failed, true},
		{"", failed, true},
		{models.FilterSuccess, passed, true},
		{models.FilterSuccess, failed, false},
		{models.FilterFailure, passed, false},
		{models.FilterFailure, failed, true},
		{"bogus", passed, false},
	}
	for _, tt := range tests {
		if got := matchesFilter(tt.filter, tt.event); got != tt.want {
			t.Errorf("matchesFilter(%q, failed=%v) = %v, want %v", tt.filter, tt.event.Failed(), got, tt.want)
		}
	}
}

func TestArtifactURL(t *testing.T) {
	tests := []struct {
		artifact Artifact
		want     string
	}{
		{Artifact{Title: "App", Type: "download", URL: "https://cdn/app.zip"}, "https://cdn/app.zip"},
		{Artifact{Title: "Docs", Type: "link", URL: "https://docs"}, "https://docs"},
		{Artifact{Title: "Install", Type: "installplist", URL: "https://cdn/m.plist"},
			"itms-services://?action=download-manifest&url=https%3A%2F%2Fcdn%2Fm.plist"},
		{Artifact{Title: "Lines of code", Type: "cloc"},
			"https://ci.example.com/artifacts/viewCloc?taskID=t1&artifact=Lines%20of%20code"},
		{Artifact{Title: "xc", Type: "xcodebuild"}, "https://ci.example.com/artifacts/viewXcodebuild?taskID=t1&artifact=xc"},
		{Artifact{Title: "g", Type: "imagegallery"}, "https://ci.example.com/artifacts/viewImageGallery?taskID=t1&artifact=g"},
		{Artifact{Title: "d", Type: "imagediff"}, "https://ci.example.com/artifacts/viewImageGalleryDiff?taskID=t1&artifact=d"},
		{Artifact{Title: "x", Type: "mystery"}, "https://ci.example.com/artifacts/viewUnknown?taskID=t1&artifact=x"},
	}
	for _, tt := range tests {
		t.Run(tt.artifact.Type, func(t *testing.T) {
			if got := testRenderer.artifactURL("t1", tt.artifact); got != tt.want {
				t.Errorf("artifactURL() = %q, want %q", got, tt.want)
			}
		})
	}
}

func TestMarkdown(t *testing.T) {
	t.Run("failure", func(t *testing.T) {
		msg := testRenderer.Markdown(completedEvent("success", "failure"))
		for _, want := range []string{
			":scream: Oh no! Some of the stampede tasks have failed:",
			"- :white_check_mark: Task A\n",
			"- :x: Task B\n",
		} {
			if !strings.Contains(msg, want) {
				t.Errorf("message missing %q:\n%s", want, msg)
			}
		}
		if !strings.HasSuffix(msg, "[More Info...](https://pr.example.com/repositories/buildDetails?buildID=b-1)") {
			t.Errorf("message does not end with More Info link:\n%s", msg)
		}
	})

	t.Run("success with summaries and artifacts", func(t *testing.T) {
		e := completedEvent("success")
		summary := "12 tests passed"
		e.Tasks[0].Summary = &summary
		e.Tasks[0].Artifacts = []Artifact{{Title: "App", Type: "download", URL: "https://cdn/app.zip"}}

		msg := testRenderer.Markdown(e)
		for _, want := range []string{
			":racehorse: Sweet! All your stampede tasks have passed...",
			"*Task A*:\n12 tests passed\n\n",
			"*Artifacts*:\n- [App](https://cdn/app.zip)\n",
		} {
			if !strings.Contains(msg, want) {
				t.Errorf("message missing %q:\n%s", want, msg)
			}
		}
	})
}

func TestTaskSummaries_SkipsOnlyMissing(t *testing.T) {
	empty := ""
	passed := "3 passed"
	e := completedEvent("success", "success", "success")
	e.Tasks[0].Summary = &passed
	e.Tasks[1].Summary = &empty

	got := taskSummaries(e)
	want := "*Task A*:\n3 passed\n\n*Task B*:\n\n\n"
	if got != want {
		t.Errorf("taskSummaries() = %q, want %q", got, want)
	}
}

func slackText(t *testing.T, payload map[string]interface{}) string {
	t.Helper()
	blocks := payload["blocks"].([]map[string]interface{})
	return blocks[0]["text"].(map[string]string)["text"]
}

func TestSlackMessages(t *testing.T) {
	started := completedEvent()
	started.Notification = NotificationBuildStarted
	text := slackText(t, testRenderer.SlackStarted(started))
	if !strings.HasPrefix(text, ":racehorse: *Build started:* acme/app pullrequest-42 #7 ") {
		t.Errorf("started text = %q", text)
	}

	text = slackText(t, testRenderer.SlackCompleted(completedEvent("failure")))
	if !strings.HasPrefix(text, "@channel :scream: Oh no! Some of the stampede tasks have failed for build acme/app pullrequest-42 #7:") {
		t.Errorf("failure text = %q", text)
	}

	e := completedEvent("success")
	e.Tasks[0].Artifacts = []Artifact{{Title: "App", Type: "link", URL: "https://x"}}
	text = slackText(t, testRenderer.SlackCompleted(e))
	if !strings.HasPrefix(text, ":racehorse: *Build completed successfully!* acme/app pullrequest-42 #7") {
		t.Errorf("success text = %q", text)
	}
	if !strings.Contains(text, "- *<https://x|App>*") {
		t.Errorf("success text missing slack artifact link: %q", text)
	}
}

type recordedRequest struct {
	Path          string
	Authorization string
	Body          map[string]interface{}
}

type recorder struct {
	mu       sync.Mutex
	requests []recordedRequest
}

func (r *recorder) handler(w http.ResponseWriter, req *http.Request) {
	raw, _ := io.ReadAll(req.Body)
	var body map[string]interface{}
	_ = json.Unmarshal(raw, &body)

	r.mu.Lock()
	r.requests = append(r.requests, recordedRequest{
		Path:          req.URL.Path,
		Authorization: req.Header.Get("Authorization"),
		Body:          body,
	})
	r.mu.Unlock()
	w.WriteHeader(http.StatusOK)
}

func (r *recorder) byPath(path string) []recordedRequest {
	r.mu.Lock()
	defer r.mu.Unlock()
	var out []recordedRequest
	for _, req := range r.requests {
		if req.Path == path {
			out = append(out, req)
		}
	}
	return out
}

func TestNotificationService_Dispatch(t *testing.T) {
	ctx := context.Background()
	rec := &recorder{}
	srv := httptest.NewServer(http.HandlerFunc(rec.handler))
	defer srv.Close()

	db := testutil.OpenDB(t)
	channels := NewNotificationChannelService(db)

	inactive := false
	notifyStarted := true
	for _, req := range []*CreateChannelRequest{
		{Name: "slack", Type: models.ChannelSlack, Webhook: srv.URL + "/slack", NotifyStarted: notifyStarted},
		{Name: "failures only", Type: models.ChannelDiscord, Webhook: srv.URL + "/discord", Filter: models.FilterFailure},
		{Name: "pr", Type: models.ChannelPRComment, Webhook: srv.URL + "/api", Token: "gh-token"},
		{Name: "off", Type: models.ChannelTeams, Webhook: srv.URL + "/teams", IsActive: &inactive},
	} {
		if _, err := channels.Create(ctx, req); err != nil {
			t.Fatalf("Create(%s) error = %v", req.Name, err)
		}
	}

	cfg := config.DefaultConfig()
	cfg.Server.WebURL = "https://ci.example.com"
	svc := NewNotificationService(cfg, channels)

	started := completedEvent()
	started.Notification = NotificationBuildStarted
	if err := svc.Dispatch(ctx, started); err != nil {
		t.Fatalf("Dispatch(started) error = %v", err)
	}
	if err := svc.Dispatch(ctx, completedEvent("success")); err != nil {
		t.Fatalf("Dispatch(completed) error = %v", err)
	}

	if got := len(rec.byPath("/slack")); got != 2 {
		t.Errorf("slack requests = %d, want 2", got)
	}
	if got := len(rec.byPath("/discord")); got != 0 {
		t.Errorf("discord requests = %d, want 0 for a passing build", got)
	}
	if got := len(rec.byPath("/teams")); got != 0 {
		t.Errorf("inactive teams channel received %d requests", got)
	}

	comments := rec.byPath("/api/repos/acme/app/issues/42/comments")
	if len(comments) != 1 {
		t.Fatalf("pr comment requests = %d, want 1", len(comments))
	}
	if comments[0].Authorization != "token gh-token" {
		t.Errorf("Authorization = %q", comments[0].Authorization)
	}
	body, _ := comments[0].Body["body"].(string)
	if !strings.Contains(body, "Sweet! All your stampede tasks have passed") {
		t.Errorf("comment body = %q", body)
	}
}

func TestPRComment_EscapesPathSegments(t *testing.T) {
	ctx := context.Background()
	rec := &recorder{}
	srv := httptest.NewServer(http.HandlerFunc(rec.handler))
	defer srv.Close()

	db := testutil.OpenDB(t)
	channels := NewNotificationChannelService(db)
	if _, err := channels.Create(ctx, &CreateChannelRequest{Name: "pr", Type: models.ChannelPRComment, Webhook: srv.URL, Token: "secret"}); err != nil {
		t.Fatal(err)
	}
	svc := NewNotificationService(config.DefaultConfig(), channels)

	e := completedEvent("success")
	e.Owner = "victim"
	e.Repository = "other/pulls/1/reviews?x="
	e.BuildKey = "pullrequest-1"
	if err := svc.Dispatch(ctx, e); err != nil {
		t.Fatalf("Dispatch() error = %v", err)
	}

	rec.mu.Lock()
	defer rec.mu.Unlock()
	if len(rec.requests) != 1 {
		t.Fatalf("requests = %d, want 1", len(rec.requests))
	}
	want := "/repos/victim/other%2Fpulls%2F1%2Freviews%3Fx=/issues/1/comments"
	if got := rec.requests[0].Path; got != want {
		t.Errorf("path = %q, want %q", got, want)
	}
}

func TestPRComment_SkipsNonNumericPullRequest(t *testing.T) {
	ctx := context.Background()
	rec := &recorder{}
	srv := httptest.NewServer(http.HandlerFunc(rec.handler))
	defer srv.Close()

	db := testutil.OpenDB(t)
	channels := NewNotificationChannelService(db)
	if _, err := channels.Create(ctx, &CreateChannelRequest{Name: "pr", Type: models.ChannelPRComment, Webhook: srv.URL, Token: "secret"}); err != nil {
		t.Fatal(err)
	}
	svc := NewNotificationService(config.DefaultConfig(), channels)

	e := completedEvent("success")
	e.BuildKey = "pullrequest-1%2F..%2Fpulls"
	if err := svc.Dispatch(ctx, e); err != nil {
		t.Fatalf("Dispatch() error = %v", err)
	}
	rec.mu.Lock()
	defer rec.mu.Unlock()
	if len(rec.requests) != 0 {
		t.Errorf("requests = %+v, want none", rec.requests)
	}
}

func TestNotificationService_DispatchContinuesAfterFailure(t *testing.T) {
	ctx := context.Background()
	rec := &recorder{}
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if r.URL.Path == "/broken" {
			w.WriteHeader(http.StatusInternalServerError)
			return
		}
		rec.handler(w, r)
	}))
	defer srv.Close()

	db := testutil.OpenDB(t)
	channels := NewNotificationChannelService(db)
	for _, path := range []string{"/broken", "/ok"} {
		if _, err := channels.Create(ctx, &CreateChannelRequest{Name: path, Type: models.ChannelWebhook, Webhook: srv.URL + path}); err != nil {
			t.Fatal(err)
		}
	}

	svc := NewNotificationService(config.DefaultConfig(), channels)
	if err := svc.Dispatch(ctx, completedEvent("failure")); err != nil {
		t.Fatalf("Dispatch() error = %v", err)
	}
	if got := len(rec.byPath("/ok")); got != 1 {
		t.Errorf("second channel requests = %d, want 1", got)
	}
}

func TestSplitMessage(t *testing.T) {
	msg := strings.Repeat("line of text\n", 300)
	parts := splitMessage(msg, 2000)
	if len(parts) < 2 {
		t.Fatalf("expected several parts, got %d", len(parts))
	}
	if strings.Join(parts, "") != msg {
		t.Error("parts do not reassemble into the original message")
	}
	for i, p := range parts {
		if len(p) > 2000 {
			t.Errorf("part %d length %d exceeds limit", i, len(p))
		}
	}
}
