package alexa

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"strings"
	"time"
)

// RemindersPermission is the scope a skill needs to create reminders.
const RemindersPermission = "alexa::alerts:reminders:skill:readwrite"

// Credentials are the per-request values the platform sends in context.System.
type Credentials struct {
	APIEndpoint    string
	APIAccessToken string
	DeviceID       string
	ConsentToken   string
}

// CanCall reports whether the platform APIs are reachable for this device.
func (c Credentials) CanCall() bool {
	return c.APIEndpoint != "" && c.APIAccessToken != "" && c.DeviceID != ""
}

// CanRemind additionally requires the user's reminder consent.
func (c Credentials) CanRemind() bool {
	return c.CanCall() && c.ConsentToken != ""
}

// APIError is a non-2xx answer from the platform.
type APIError struct {
	Op     string
	Status int
	Body   string
}

func (e *APIError) Error() string {
	msg := e.Body
	if msg == "" {
		msg = http.StatusText(e.Status)
	}
	return fmt.Sprintf("alexa %s: status %d: %s", e.Op, e.Status, msg)
}

// IsPermissionDenied reports whether err is a 401/403 from the platform.
func IsPermissionDenied(err error) bool {
	var ae *APIError
	if !errors.As(err, &ae) {
		return false
	}
	return ae.Status == http.StatusUnauthorized || ae.Status == http.StatusForbidden
}

type Client struct {
	Client *http.Client
}

func NewClient(timeout time.Duration) *Client {
	if timeout <= 0 {
		timeout = 10 * time.Second
	}
	return &Client{Client: &http.Client{Timeout: timeout}}
}

// TimeZone returns the device's IANA zone name.
func (c *Client) TimeZone(ctx context.Context, creds Credentials) (string, error) {
	if !creds.CanCall() {
		return "", errors.New("alexa: missing endpoint, token or device id")
	}
	u := fmt.Sprintf("%s/v2/devices/%s/settings/System.timeZone",
		strings.TrimRight(creds.APIEndpoint, "/"), url.PathEscape(creds.DeviceID))
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, u, nil)
	if err != nil {
		return "", err
	}
	req.Header.Set("Authorization", "Bearer "+creds.APIAccessToken)
	req.Header.Set("Accept", "application/json")

	body, err := c.do(req, "timezone")
	if err != nil {
		return "", err
	}
	tz := strings.TrimSpace(strings.ReplaceAll(string(body), `"`, ""))
	if tz == "" {
		return "", errors.New("alexa timezone: empty response")
	}
	return tz, nil
}

type Trigger struct {
	Type          string `json:"type"`
	ScheduledTime string `json:"scheduledTime"`
	TimeZoneID    string `json:"timeZoneId"`
}

type SpokenContent struct {
	Locale string `json:"locale"`
	Text   string `json:"text"`
}

type AlertInfo struct {
	SpokenInfo struct {
		Content []SpokenContent `json:"content"`
	} `json:"spokenInfo"`
}

type PushNotification struct {
	Status string `json:"status"`
}

// ReminderRequest is the body of POST /v1/alerts/reminders.
type ReminderRequest struct {
	RequestTime      string           `json:"requestTime"`
	Trigger          Trigger          `json:"trigger"`
	AlertInfo        AlertInfo        `json:"alertInfo"`
	PushNotification PushNotification `json:"pushNotification"`
}

// NewReminderRequest builds an absolute reminder at the wall-clock time of at.
func NewReminderRequest(now, at time.Time, zone, locale, text string) ReminderRequest {
	r := ReminderRequest{
		RequestTime: now.UTC().Format("2006-01-02T15:04:05.000Z"),
		Trigger: Trigger{
			Type:          "SCHEDULED_ABSOLUTE",
			ScheduledTime: at.Format("2006-01-02T15:04:05"),
			TimeZoneID:    zone,
		},
		PushNotification: PushNotification{Status: "ENABLED"},
	}
	r.AlertInfo.SpokenInfo.Content = []SpokenContent{{Locale: locale, Text: text}}
	return r
}

type reminderResp struct {
	AlertToken string `json:"alertToken"`
}

// CreateReminder returns the platform's alert token.
func (c *Client) CreateReminder(ctx context.Context, creds Credentials, r ReminderRequest) (string, error) {
	if creds.APIEndpoint == "" || creds.APIAccessToken == "" {
		return "", errors.New("alexa: missing endpoint or token")
	}
	b, err := json.Marshal(r)
	if err != nil {
		return "", err
	}
	u := strings.TrimRight(creds.APIEndpoint, "/") + "/v1/alerts/reminders"
	req, err := http.NewRequestWithContext(ctx, http.MethodPost, u, bytes.NewReader(b))
	if err != nil {
		return "", err
	}
	req.Header.Set("Content-Type", "application/json")
	req.Header.Set("Authorization", "Bearer "+creds.APIAccessToken)

	body, err := c.do(req, "reminders")
	if err != nil {
		return "", err
	}
	var decoded reminderResp
	if len(bytes.TrimSpace(body)) > 0 {
		// token is informational; a body we cannot read is not a failure
		_ = json.Unmarshal(body, &decoded)
	}
	return decoded.AlertToken, nil
}

func (c *Client) do(req *http.Request, op string) ([]byte, error) {
	if c.Client == nil {
		return nil, errors.New("alexa: http client is nil")
	}
	resp, err := c.Client.Do(req)
	if err != nil {
		return nil, err
	}
	defer resp.Body.Close()

	body, err := io.ReadAll(io.LimitReader(resp.Body, 64*1024))
	if err != nil {
		return nil, err
	}
	if resp.StatusCode < 200 || resp.StatusCode >= 300 {
		msg := strings.TrimSpace(string(body))
		if len(msg) > 512 {
			msg = msg[:512]
		}
		return nil, &APIError{Op: op, Status: resp.StatusCode, Body: msg}
	}
	return body, nil
}
