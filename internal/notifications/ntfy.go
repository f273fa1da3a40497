package notifications

import (
	"context"
	"fmt"
	"io"
	"net/http"
	"strings"
	"time"

	"golang.org/x/text/cases"
	"golang.org/x/text/language"

	"fastchannels/internal/playback"
)

const userAgent = "fastchannels/0.1.0"

type payload struct {
	title    string
	message  string
	tags     []string
	priority string
}

type ntfyService struct {
	endpoint string
	stack    string
	errors   bool
	client   *http.Client
}

func newNtfyService(endpoint, stack string, timeout time.Duration, notifyErrors bool) *ntfyService {
	if timeout <= 0 {
		timeout = 10 * time.Second
	}
	return &ntfyService{
		endpoint: endpoint,
		stack:    stack,
		errors:   notifyErrors,
		client:   &http.Client{Timeout: timeout},
	}
}

func title(label string) string {
	label = strings.TrimSpace(label)
	if label == "" {
		return "Pipeline"
	}
	return cases.Title(language.English).String(label)
}

func (n *ntfyService) NotifyPlaybackURLs(ctx context.Context, urls []playback.URL) error {
	if len(urls) == 0 {
		return nil
	}
	var builder strings.Builder
	fmt.Fprintf(&builder, "Asset %s is ready", urls[0].AssetID)
	for _, u := range urls {
		fmt.Fprintf(&builder, "\n%s: %s", u.PackagingConfigurationID, u.VodPlaybackURL)
	}
	return n.send(ctx, payload{
		title:   n.stack + " - Playback URLs",
		message: builder.String(),
		tags:    []string{"fastchannels", "playback", "ready"},
	})
}

func (n *ntfyService) NotifyError(ctx context.Context, err error, label string) error {
	if !n.errors {
		return nil
	}
	var builder strings.Builder
	builder.WriteString("Error")
	if label = strings.TrimSpace(label); label != "" {
		builder.WriteString(" in ")
		builder.WriteString(label)
	}
	builder.WriteString(": ")
	if err != nil {
		builder.WriteString(strings.TrimSpace(err.Error()))
	} else {
		builder.WriteString("unknown")
	}
	return n.send(ctx, payload{
		title:    n.stack + " - " + title(label) + " Error",
		message:  builder.String(),
		tags:     []string{"fastchannels", "error", "alert"},
		priority: "high",
	})
}

func (n *ntfyService) TestNotification(ctx context.Context) error {
	return n.send(ctx, payload{
		title:    n.stack + " - Test",
		message:  "Notification system test",
		tags:     []string{"fastchannels", "test"},
		priority: "low",
	})
}

func (n *ntfyService) send(ctx context.Context, data payload) error {
	if n == nil || n.client == nil {
		return nil
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, n.endpoint, strings.NewReader(data.message))
	if err != nil {
		return fmt.Errorf("build ntfy request: %w", err)
	}
	req.Header.Set("User-Agent", userAgent)
	req.Header.Set("Content-Type", "text/plain; charset=utf-8")
	if data.title != "" {
		req.Header.Set("Title", data.title)
	}
	if len(data.tags) > 0 {
		req.Header.Set("Tags", strings.Join(data.tags, ","))
	}
	if data.priority != "" && data.priority != "default" {
		req.Header.Set("Priority", data.priority)
	}

	resp, err := n.client.Do(req)
	if err != nil {
		return fmt.Errorf("send ntfy notification: %w", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode >= 300 {
		body, _ := io.ReadAll(io.LimitReader(resp.Body, 2048))
		return fmt.Errorf("ntfy returned %d: %s", resp.StatusCode, strings.TrimSpace(string(body)))
	}
	_, _ = io.Copy(io.Discard, resp.Body)
	return nil
}
