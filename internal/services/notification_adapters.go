package services

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"strings"

	"github.com/stockyard-ci/stockyard/internal/models"
	"github.com/stockyard-ci/stockyard/pkg/logger"
)

// NotificationAdapter delivers a build event to one kind of channel.
// Adapters decide for themselves which events they care about.
type NotificationAdapter interface {
	Send(ctx context.Context, ch *models.NotificationChannel, e *BuildEvent) error
}

func newAdapters(client *http.Client, render messageRenderer, githubAPIURL string) map[string]NotificationAdapter {
	return map[string]NotificationAdapter{
		models.ChannelSlack:     &slackAdapter{client: client, render: render},
		models.ChannelPRComment: &prCommentAdapter{client: client, render: render, apiURL: githubAPIURL},
		models.ChannelDiscord:   &discordAdapter{client: client, render: render},
		models.ChannelTeams:     &teamsAdapter{client: client, render: render},
		models.ChannelWebhook:   &webhookAdapter{client: client, render: render},
	}
}

func postJSONWithClient(ctx context.Context, client *http.Client, target string, payload interface{}, headers map[string]string) error {
	body, err := json.Marshal(payload)
	if err != nil {
		return err
	}

	logger.Debugf("[Notification] POST %s, payload length: %d", target, len(body))

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, target, bytes.NewReader(body))
	if err != nil {
		return err
	}
	req.Header.Set("Content-Type", "application/json")
	for k, v := range headers {
		req.Header.Set(k, v)
	}

	resp, err := client.Do(req)
	if err != nil {
		return err
	}
	defer resp.Body.Close()

	respBody, _ := io.ReadAll(io.LimitReader(resp.Body, 4096))
	if resp.StatusCode >= 400 {
		return fmt.Errorf("webhook returned status %d: %s", resp.StatusCode, string(respBody))
	}
	return nil
}

func splitMessage(msg string, maxLen int) []string {
	if len(msg) <= maxLen {
		return []string{msg}
	}

	var parts []string
	remaining := msg

	for len(remaining) > 0 {
		if len(remaining) <= maxLen {
			parts = append(parts, remaining)
			break
		}

		breakPoint := maxLen
		for i := maxLen - 1; i > maxLen/2; i-- {
			if remaining[i] == '\n' {
				breakPoint = i + 1
				break
			}
		}

		parts = append(parts, remaining[:breakPoint])
		remaining = remaining[breakPoint:]
	}

	return parts
}

type slackAdapter struct {
	client *http.Client
	render messageRenderer
}

func (a *slackAdapter) Send(ctx context.Context, ch *models.NotificationChannel, e *BuildEvent) error {
	var payload map[string]interface{}
	switch e.Notification {
	case NotificationBuildStarted:
		if !ch.NotifyStarted {
			return nil
		}
		payload = a.render.SlackStarted(e)
	case NotificationBuildCompleted:
		payload = a.render.SlackCompleted(e)
	default:
		return nil
	}
	return postJSONWithClient(ctx, a.client, ch.Webhook, payload, nil)
}

// prCommentAdapter comments on the pull request a build ran for.
type prCommentAdapter struct {
	client *http.Client
	render messageRenderer
	apiURL string
}

func (a *prCommentAdapter) commentsURL(ch *models.NotificationChannel, e *BuildEvent, pr string) string {
	base := a.apiURL
	if ch.Webhook != "" {
		base = ch.Webhook
	}
	return fmt.Sprintf("%s/repos/%s/%s/issues/%s/comments", strings.TrimRight(base, "/"),
		url.PathEscape(e.Owner), url.PathEscape(e.Repository), url.PathEscape(pr))
}

func (a *prCommentAdapter) Send(ctx context.Context, ch *models.NotificationChannel, e *BuildEvent) error {
	if e.Notification != NotificationBuildCompleted {
		return nil
	}
	pr, ok := e.PullRequestNumber()
	if !ok {
		return nil
	}

	var headers map[string]string
	if ch.Token != "" {
		headers = map[string]string{"Authorization": "token " + ch.Token}
	}
	payload := map[string]string{"body": a.render.Markdown(e)}
	return postJSONWithClient(ctx, a.client, a.commentsURL(ch, e, pr), payload, headers)
}

type discordAdapter struct {
	client *http.Client
	render messageRenderer
}

func (a *discordAdapter) Send(ctx context.Context, ch *models.NotificationChannel, e *BuildEvent) error {
	if e.Notification != NotificationBuildCompleted {
		return nil
	}
	const maxLen = 2000
	for _, part := range splitMessage(a.render.Markdown(e), maxLen) {
		if err := postJSONWithClient(ctx, a.client, ch.Webhook, map[string]string{"content": part}, nil); err != nil {
			return err
		}
	}
	return nil
}

type teamsAdapter struct {
	client *http.Client
	render messageRenderer
}

func buildAdaptiveCard(text string) map[string]interface{} {
	return map[string]interface{}{
		"type": "message",
		"attachments": []map[string]interface{}{
			{
				"contentType": "application/vnd.microsoft.card.adaptive",
				"content": map[string]interface{}{
					"type":    "AdaptiveCard",
					"$schema": "http://adaptivecards.io/schemas/adaptive-card.json",
					"version": "1.5",
					"body": []map[string]interface{}{
						{
							"type": "TextBlock",
							"text": text,
							"wrap": true,
						},
					},
				},
			},
		},
	}
}

func (a *teamsAdapter) Send(ctx context.Context, ch *models.NotificationChannel, e *BuildEvent) error {
	if e.Notification != NotificationBuildCompleted {
		return nil
	}
	return postJSONWithClient(ctx, a.client, ch.Webhook, buildAdaptiveCard(a.render.Markdown(e)), nil)
}

// webhookAdapter posts the raw event plus the rendered text to any endpoint.
type webhookAdapter struct {
	client *http.Client
	render messageRenderer
}

func (a *webhookAdapter) Send(ctx context.Context, ch *models.NotificationChannel, e *BuildEvent) error {
	if e.Notification == NotificationBuildStarted && !ch.NotifyStarted {
		return nil
	}
	payload := map[string]interface{}{
		"event":   e,
		"failed":  e.Failed(),
		"message": "",
	}
	if e.Notification == NotificationBuildCompleted {
		payload["message"] = a.render.Markdown(e)
	}
	var headers map[string]string
	if ch.Token != "" {
		headers = map[string]string{"Authorization": "Bearer " + ch.Token}
	}
	return postJSONWithClient(ctx, a.client, ch.Webhook, payload, headers)
}
