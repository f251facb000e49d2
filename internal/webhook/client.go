// Package webhook delivers new subscriptions to the external automation
// workflow that generates the daily news feeds. Delivery is a single JSON
// POST; any 2xx response counts as success.
package webhook

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"
	"strings"
	"time"

	"github.com/keyxmakerx/newsdigest/internal/validate"
)

// Defaults applied when the corresponding Config field is empty.
const (
	DefaultSchedule = "8AM_UTC"
	DefaultTimeout  = 10 * time.Second
	clientName      = "web"
	sourceMethod    = "GET"
)

// ErrNotConfigured is returned by Send when no webhook URL is set.
var ErrNotConfigured = errors.New("webhook URL not configured")

// noWWWSites are hosts that must not get a "www." prefix.
var noWWWSites = []string{"github.com", "twitter.com", "reddit.com", "medium.com"}

// Source is one feed source in the payload.
type Source struct {
	URL    string `json:"url"`
	Method string `json:"method"`
}

// Subscription is the "subscription" object of the payload.
type Subscription struct {
	Email        string   `json:"email"`
	Sources      []Source `json:"sources"`
	Topics       []string `json:"topics"`
	Language     string   `json:"language"`
	Schedule     string   `json:"schedule"`
	Date         string   `json:"date"`
	SubmissionID string   `json:"submission_id,omitempty"`
}

// Metadata is the "metadata" object of the payload.
type Metadata struct {
	Timestamp string `json:"timestamp"`
	Client    string `json:"client"`
	Version   string `json:"version"`
}

// Payload is the JSON body posted to the webhook.
type Payload struct {
	Subscription Subscription `json:"subscription"`
	Metadata     Metadata     `json:"metadata"`
}

// Config holds the client settings loaded from the environment.
type Config struct {
	URL      string
	Timeout  time.Duration
	Schedule string
	Version  string
}

// Client posts subscriptions to the configured webhook.
type Client struct {
	url      string
	schedule string
	version  string
	timeout  time.Duration
	http     *http.Client
	now      func() time.Time
}

// NewClient creates a webhook client. A zero Timeout falls back to
// DefaultTimeout so a hung endpoint can never block a submit forever.
func NewClient(cfg Config) *Client {
	timeout := cfg.Timeout
	if timeout <= 0 {
		timeout = DefaultTimeout
	}
	schedule := cfg.Schedule
	if schedule == "" {
		schedule = DefaultSchedule
	}
	return &Client{
		url:      cfg.URL,
		schedule: schedule,
		version:  cfg.Version,
		timeout:  timeout,
		http:     &http.Client{Timeout: timeout},
		now:      time.Now,
	}
}

// Send posts sub to the webhook. Empty Schedule and Date fields are filled
// with the configured schedule and yesterday's UTC date.
func (c *Client) Send(ctx context.Context, sub Subscription) error {
	if c.url == "" {
		return ErrNotConfigured
	}

	now := c.now().UTC()
	if sub.Schedule == "" {
		sub.Schedule = c.schedule
	}
	if sub.Date == "" {
		sub.Date = YesterdayUTC(now)
	}
	if sub.Sources == nil {
		sub.Sources = []Source{}
	}
	if sub.Topics == nil {
		sub.Topics = []string{}
	}

	body, err := json.Marshal(Payload{
		Subscription: sub,
		Metadata: Metadata{
			Timestamp: now.Format("2006-01-02T15:04:05.000Z"),
			Client:    clientName,
			Version:   c.version,
		},
	})
	if err != nil {
		return fmt.Errorf("marshaling webhook payload: %w", err)
	}

	ctx, cancel := context.WithTimeout(ctx, c.timeout)
	defer cancel()

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, c.url, bytes.NewReader(body))
	if err != nil {
		return fmt.Errorf("building webhook request: %w", err)
	}
	req.Header.Set("Content-Type", "application/json")

	resp, err := c.http.Do(req)
	if err != nil {
		return fmt.Errorf("posting webhook: %w", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode < 200 || resp.StatusCode > 299 {
		snippet, _ := io.ReadAll(io.LimitReader(resp.Body, 512))
		return &StatusError{Code: resp.StatusCode, Body: strings.TrimSpace(string(snippet))}
	}
	_, _ = io.Copy(io.Discard, resp.Body)
	return nil
}

// StatusError reports a non-2xx webhook response.
type StatusError struct {
	Code int
	Body string
}

func (e *StatusError) Error() string {
	if e.Body == "" {
		return fmt.Sprintf("webhook returned status %d", e.Code)
	}
	return fmt.Sprintf("webhook returned status %d: %s", e.Code, e.Body)
}

// SourcesFromDomains converts stored source domains to payload sources.
func SourcesFromDomains(domains []string) []Source {
	out := make([]Source, 0, len(domains))
	for _, d := range domains {
		if u := FormatSourceURL(d); u != "" {
			out = append(out, Source{URL: u, Method: sourceMethod})
		}
	}
	return out
}

// FormatSourceURL turns a domain (or a pasted URL) into the https URL the
// workflow fetches. Most sites get a "www." prefix; noWWWSites do not.
func FormatSourceURL(raw string) string {
	domain := validate.NormalizeDomain(raw)
	if domain == "" {
		return ""
	}
	for _, site := range noWWWSites {
		if strings.HasSuffix(domain, site) {
			return "https://" + domain
		}
	}
	return "https://www." + domain
}

// YesterdayUTC returns the UTC calendar day before now as YYYY-MM-DD.
func YesterdayUTC(now time.Time) string {
	return now.UTC().AddDate(0, 0, -1).Format("2006-01-02")
}
