package services

import (
	"context"
	"fmt"
	"net/http"
	"net/url"
	"strings"
	"time"

	"github.com/stockyard-ci/stockyard/internal/config"
	"github.com/stockyard-ci/stockyard/internal/models"
	"github.com/stockyard-ci/stockyard/pkg/logger"
)

const (
	NotificationBuildStarted   = "buildStarted"
	NotificationBuildCompleted = "buildCompleted"

	conclusionFailure = "failure"
)

// BuildEvent is a build lifecycle notification posted by the CI runner.
type BuildEvent struct {
	Notification string      `json:"notification" binding:"required,oneof=buildStarted buildCompleted"`
	BuildID      string      `json:"buildID" binding:"required"`
	Owner        string      `json:"owner" binding:"required"`
	Repository   string      `json:"repository" binding:"required"`
	BuildKey     string      `json:"buildKey"`
	BuildNumber  int         `json:"buildNumber"`
	Tasks        []BuildTask `json:"tasks"`
}

type BuildTask struct {
	TaskID     string     `json:"taskID"`
	Title      string     `json:"title"`
	Conclusion string     `json:"conclusion"`
	Summary    *string    `json:"summary,omitempty"`
	Artifacts  []Artifact `json:"artifacts,omitempty"`
}

type Artifact struct {
	Title string `json:"title"`
	Type  string `json:"type"`
	URL   string `json:"url"`
}

// Failed reports whether any task concluded with a failure.
func (e *BuildEvent) Failed() bool {
	for _, t := range e.Tasks {
		if t.Conclusion == conclusionFailure {
			return true
		}
	}
	return false
}

func (e *BuildEvent) label() string {
	return fmt.Sprintf("%s/%s %s #%d", e.Owner, e.Repository, e.BuildKey, e.BuildNumber)
}

// PullRequestNumber extracts the PR number from keys like "pullrequest-42".
// The number must be all digits.
func (e *BuildEvent) PullRequestNumber() (string, bool) {
	if !strings.HasPrefix(e.BuildKey, "pullrequest") {
		return "", false
	}
	parts := strings.Split(e.BuildKey, "-")
	if len(parts) < 2 || !isDigits(parts[1]) {
		return "", false
	}
	return parts[1], true
}

func isDigits(s string) bool {
	if s == "" {
		return false
	}
	for _, r := range s {
		if r < '0' || r > '9' {
			return false
		}
	}
	return true
}

// matchesFilter applies a channel's all/success/failure filter to an event.
func matchesFilter(filter string, e *BuildEvent) bool {
	switch filter {
	case "", models.FilterAll:
		return true
	case models.FilterSuccess:
		return !e.Failed()
	case models.FilterFailure:
		return e.Failed()
	default:
		return false
	}
}

// messageRenderer turns build events into chat and comment text.
type messageRenderer struct {
	webURL        string
	moreInfoURL   string
	prMoreInfoURL string
}

func (r messageRenderer) buildDetailsURL(base, buildID string) string {
	return base + "/repositories/buildDetails?buildID=" + url.QueryEscape(buildID)
}

// artifactURL resolves where an artifact link should point.
func (r messageRenderer) artifactURL(taskID string, a Artifact) string {
	viewer := ""
	switch a.Type {
	case "download", "link":
		return a.URL
	case "installplist":
		return "itms-services://?action=download-manifest&url=" + url.QueryEscape(a.URL)
	case "cloc":
		viewer = "viewCloc"
	case "xcodebuild":
		viewer = "viewXcodebuild"
	case "imagegallery":
		viewer = "viewImageGallery"
	case "imagediff":
		viewer = "viewImageGalleryDiff"
	default:
		viewer = "viewUnknown"
	}
	return fmt.Sprintf("%s/artifacts/%s?taskID=%s&artifact=%s",
		r.webURL, viewer, url.QueryEscape(taskID), url.PathEscape(a.Title))
}

// artifactList renders one bullet per artifact. slack selects the
// <url|title> link syntax over Markdown.
func (r messageRenderer) artifactList(e *BuildEvent, slack bool) string {
	var sb strings.Builder
	for _, t := range e.Tasks {
		for _, a := range t.Artifacts {
			link := r.artifactURL(t.TaskID, a)
			if slack {
				fmt.Fprintf(&sb, "- *<%s|%s>*\n", link, a.Title)
			} else {
				fmt.Fprintf(&sb, "- [%s](%s)\n", a.Title, link)
			}
		}
	}
	return sb.String()
}

func taskChecklist(e *BuildEvent) string {
	var sb strings.Builder
	for _, t := range e.Tasks {
		if t.Conclusion == conclusionFailure {
			sb.WriteString("- :x: " + t.Title + "\n")
		} else {
			sb.WriteString("- :white_check_mark: " + t.Title + "\n")
		}
	}
	return sb.String()
}

func taskSummaries(e *BuildEvent) string {
	var sb strings.Builder
	for _, t := range e.Tasks {
		// an empty summary still gets its heading; only a missing one is skipped
		if t.Summary == nil {
			continue
		}
		sb.WriteString("*" + t.Title + "*:\n")
		sb.WriteString(*t.Summary + "\n\n")
	}
	return sb.String()
}

func slackSection(text string) map[string]interface{} {
	return map[string]interface{}{
		"blocks": []map[string]interface{}{
			{
				"type": "section",
				"text": map[string]string{
					"type": "mrkdwn",
					"text": text,
				},
			},
		},
	}
}

// SlackStarted renders the build-started block message.
func (r messageRenderer) SlackStarted(e *BuildEvent) map[string]interface{} {
	text := fmt.Sprintf(":racehorse: *Build started:* %s *<%s|More info...>*",
		e.label(), r.buildDetailsURL(r.webURL, e.BuildID))
	return slackSection(text)
}

// SlackCompleted renders the build-completed block message.
func (r messageRenderer) SlackCompleted(e *BuildEvent) map[string]interface{} {
	var msg string
	if e.Failed() {
		msg = "@channel :scream: Oh no! Some of the stampede tasks have failed for build " +
			e.label() + ":\n\n" + taskChecklist(e) + "\n"
	} else {
		msg = ":racehorse: *Build completed successfully!* " + e.label() + "\n\n" + taskSummaries(e)
		if artifacts := r.artifactList(e, true); artifacts != "" {
			msg += "*Artifacts*:\n" + artifacts + "\n\n"
		}
	}
	msg += fmt.Sprintf(" *<%s|More info...>* ", r.buildDetailsURL(r.moreInfoURL, e.BuildID))
	return slackSection(msg)
}

// Markdown renders the completed-build text used for pull request comments
// and the Markdown chat channels.
func (r messageRenderer) Markdown(e *BuildEvent) string {
	var msg string
	if e.Failed() {
		msg = ":scream: Oh no! Some of the stampede tasks have failed:\n\n" + taskChecklist(e) + "\n"
	} else {
		msg = ":racehorse: Sweet! All your stampede tasks have passed...\n\n" + taskSummaries(e)
		if artifacts := r.artifactList(e, false); artifacts != "" {
			msg += "*Artifacts*:\n" + artifacts + "\n\n"
		}
	}
	return msg + "[More Info...](" + r.buildDetailsURL(r.prMoreInfoURL, e.BuildID) + ")"
}

// NotificationService delivers build events to the configured channels.
type NotificationService struct {
	channels *NotificationChannelService
	render   messageRenderer
	adapters map[string]NotificationAdapter
}

func NewNotificationService(cfg *config.Config, channels *NotificationChannelService) *NotificationService {
	timeout := cfg.Notification.Timeout
	if timeout <= 0 {
		timeout = 10 * time.Second
	}
	client := &http.Client{Timeout: timeout}

	render := messageRenderer{
		webURL:        cfg.Server.WebURL,
		moreInfoURL:   cfg.MoreInfoURL(),
		prMoreInfoURL: cfg.PRCommentMoreInfoURL(),
	}

	return &NotificationService{
		channels: channels,
		render:   render,
		adapters: newAdapters(client, render, cfg.Notification.GitHubAPIURL),
	}
}

// Dispatch sends the event to every active channel whose filter matches.
// Delivery errors are logged and do not stop the fan-out.
func (s *NotificationService) Dispatch(ctx context.Context, e *BuildEvent) error {
	channels, err := s.channels.GetAllActive(ctx)
	if err != nil {
		return fmt.Errorf("load notification channels: %w", err)
	}

	for i := range channels {
		ch := &channels[i]
		if !matchesFilter(ch.Filter, e) {
			continue
		}
		adapter, ok := s.adapters[ch.Type]
		if !ok {
			logger.Warnf("[Notification] Unknown channel type %q on channel %d", ch.Type, ch.ID)
			continue
		}
		if err := adapter.Send(ctx, ch, e); err != nil {
			logger.Error().Err(err).
				Uint("channel_id", ch.ID).
				Str("type", ch.Type).
				Str("build_id", e.BuildID).
				Msg("[Notification] Delivery failed")
			continue
		}
		logger.Debug().Uint("channel_id", ch.ID).Str("build_id", e.BuildID).Msg("[Notification] Delivered")
	}
	return nil
}
