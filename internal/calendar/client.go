// Package calendar creates calendar events (and video links) for remote
// consultations through an external sync service.
package calendar

import (
	"context"
	"fmt"
	"strings"
	"time"

	"consulta_backend/platform/config"

	"github.com/go-resty/resty/v2"
)

const defaultDuration = time.Hour

// Request describes the event to create.
type Request struct {
	ConsultationID string    `json:"consultaId"`
	DoctorID       string    `json:"doctorId"`
	PatientName    string    `json:"patientName"`
	Type           string    `json:"consultationType"`
	Start          time.Time `json:"start"`
	End            time.Time `json:"end"`
}

// Result is what the sync service returns.
type Result struct {
	EventID  string `json:"eventId"`
	MeetLink string `json:"meetLink"`
	HTMLLink string `json:"htmlLink"`
}

// Client calls the calendar-sync service. A nil *Client is valid and does
// nothing, which is what NewClient returns when sync is not configured.
type Client struct {
	http    *resty.Client
	url     string
	timeout time.Duration
}

// NewClient returns nil when CALENDAR_SYNC_URL is unset.
func NewClient(cfg config.CalendarConfig) *Client {
	if !cfg.IsCalendarSyncEnabled() {
		return nil
	}
	timeout := cfg.GetCalendarSyncTimeout()
	if timeout <= 0 {
		timeout = 8 * time.Second
	}
	return &Client{
		http: resty.New().
			SetHeader("Content-Type", "application/json").
			SetHeader("Accept", "application/json"),
		url:     strings.TrimRight(cfg.GetCalendarSyncURL(), "/"),
		timeout: timeout,
	}
}

// Enabled reports whether calls will reach a service.
func (c *Client) Enabled() bool {
	return c != nil
}

// Sync creates the event. It makes exactly one attempt bounded by the
// configured timeout.
func (c *Client) Sync(ctx context.Context, req Request) (Result, error) {
	if c == nil {
		return Result{}, nil
	}
	if req.End.IsZero() {
		req.End = req.Start.Add(defaultDuration)
	}

	ctx, cancel := context.WithTimeout(ctx, c.timeout)
	defer cancel()

	var out Result
	resp, err := c.http.R().
		SetContext(ctx).
		SetBody(req).
		SetResult(&out).
		Post(c.url)
	if err != nil {
		return Result{}, fmt.Errorf("calendar sync: %w", err)
	}
	if !resp.IsSuccess() {
		return Result{}, fmt.Errorf("calendar sync: status %d", resp.StatusCode())
	}
	return out, nil
}
