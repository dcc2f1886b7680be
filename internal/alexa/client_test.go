package alexa

import (
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"
)

func TestTimeZone(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if r.URL.Path != "/v2/devices/dev-1/settings/System.timeZone" {
			t.Errorf("path = %s", r.URL.Path)
		}
		if got := r.Header.Get("Authorization"); got != "Bearer tok" {
			t.Errorf("authorization = %q", got)
		}
		_, _ = w.Write([]byte(`"America/Mexico_City"`))
	}))
	defer srv.Close()

	c := NewClient(time.Second)
	tz, err := c.TimeZone(context.Background(), Credentials{APIEndpoint: srv.URL + "/", APIAccessToken: "tok", DeviceID: "dev-1"})
	if err != nil {
		t.Fatalf("timezone: %v", err)
	}
	if tz != "America/Mexico_City" {
		t.Fatalf("tz = %q", tz)
	}
}

func TestCreateReminder(t *testing.T) {
	var got ReminderRequest
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if r.Method != http.MethodPost || r.URL.Path != "/v1/alerts/reminders" {
			t.Errorf("%s %s", r.Method, r.URL.Path)
		}
		if err := json.NewDecoder(r.Body).Decode(&got); err != nil {
			t.Errorf("decode: %v", err)
		}
		w.WriteHeader(http.StatusCreated)
		_, _ = w.Write([]byte(`{"alertToken":"a-1"}`))
	}))
	defer srv.Close()

	at := time.Date(2026, 4, 2, 9, 30, 0, 0, time.FixedZone("EDT", -4*3600))
	req := NewReminderRequest(time.Now(), at, "America/New_York", "es-US", "Vuelve")

	token, err := NewClient(time.Second).CreateReminder(context.Background(),
		Credentials{APIEndpoint: srv.URL, APIAccessToken: "tok", DeviceID: "d"}, req)
	if err != nil {
		t.Fatalf("create: %v", err)
	}
	if token != "a-1" {
		t.Fatalf("token = %q", token)
	}
	if got.Trigger.ScheduledTime != "2026-04-02T09:30:00" || got.Trigger.TimeZoneID != "America/New_York" {
		t.Fatalf("trigger = %+v", got.Trigger)
	}
	if got.Trigger.Type != "SCHEDULED_ABSOLUTE" || got.PushNotification.Status != "ENABLED" {
		t.Fatalf("payload = %+v", got)
	}
	if len(got.AlertInfo.SpokenInfo.Content) != 1 || got.AlertInfo.SpokenInfo.Content[0].Locale != "es-US" {
		t.Fatalf("spoken = %+v", got.AlertInfo.SpokenInfo)
	}
}

func TestCreateReminder_PermissionDenied(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		http.Error(w, `{"code":"UNAUTHORIZED"}`, http.StatusUnauthorized)
	}))
	defer srv.Close()

	_, err := NewClient(time.Second).CreateReminder(context.Background(),
		Credentials{APIEndpoint: srv.URL, APIAccessToken: "tok"}, ReminderRequest{})
	if !IsPermissionDenied(err) {
		t.Fatalf("err = %v, want permission denied", err)
	}
}

func TestCreateReminder_ServerError(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusServiceUnavailable)
	}))
	defer srv.Close()

	_, err := NewClient(time.Second).CreateReminder(context.Background(),
		Credentials{APIEndpoint: srv.URL, APIAccessToken: "tok"}, ReminderRequest{})
	if err == nil || IsPermissionDenied(err) {
		t.Fatalf("err = %v, want non-permission failure", err)
	}
}

func TestCredentials(t *testing.T) {
	c := Credentials{APIEndpoint: "e", APIAccessToken: "t", DeviceID: "d"}
	if !c.CanCall() || c.CanRemind() {
		t.Fatalf("without consent: call=%v remind=%v", c.CanCall(), c.CanRemind())
	}
	c.ConsentToken = "c"
	if !c.CanRemind() {
		t.Fatalf("with consent: remind=false")
	}
}
