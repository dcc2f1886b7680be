package reminder

import (
	"context"
	"errors"
	"regexp"
	"testing"
	"time"

	gormsqlite "github.com/glebarez/sqlite"
	"github.com/suPer8Hu/storyvoice/internal/alexa"
	"gorm.io/gorm"

	_ "time/tzdata"
)

var nonWord = regexp.MustCompile(`[^A-Za-z0-9_]+`)

func openTestDB(t *testing.T) *gorm.DB {
	t.Helper()
	name := nonWord.ReplaceAllString(t.Name(), "_")
	db, err := gorm.Open(gormsqlite.Open("file:"+name+"?mode=memory&cache=shared"), &gorm.Config{})
	if err != nil {
		t.Fatalf("open sqlite: %v", err)
	}
	sqlDB, _ := db.DB()
	sqlDB.SetMaxOpenConns(1)
	t.Cleanup(func() { _ = sqlDB.Close() })
	if err := db.AutoMigrate(&Reminder{}); err != nil {
		t.Fatalf("automigrate: %v", err)
	}
	return db
}

type fakeZones struct {
	zone string
	err  error
}

func (f fakeZones) TimeZone(ctx context.Context, creds alexa.Credentials) (string, error) {
	return f.zone, f.err
}

type fakeCreator struct {
	err  error
	last *alexa.ReminderRequest
}

func (f *fakeCreator) CreateReminder(ctx context.Context, creds alexa.Credentials, r alexa.ReminderRequest) (string, error) {
	f.last = &r
	if f.err != nil {
		return "", f.err
	}
	return "alert-1", nil
}

type brokenLog struct{}

func (brokenLog) Save(ctx context.Context, r *Reminder) error { return errors.New("db down") }
func (brokenLog) MarkCreated(ctx context.Context, id, tok string) error {
	return errors.New("db down")
}
func (brokenLog) MarkFailed(ctx context.Context, id string, st Status, msg string) error {
	return errors.New("db down")
}

var fixedNow = time.Date(2026, 3, 9, 15, 0, 0, 0, time.UTC)

func newTestScheduler(zones TimezoneResolver, c Creator, l Log) *Scheduler {
	return NewScheduler(zones, c, l, time.UTC, "es-US").WithClock(func() time.Time { return fixedNow })
}

func TestSchedule_Created(t *testing.T) {
	db := openTestDB(t)
	creator := &fakeCreator{}
	s := newTestScheduler(fakeZones{zone: "America/Mexico_City"}, creator, NewRepo(db))

	res := s.Schedule(context.Background(), Request{Pseudonym: "luna", SessionID: "s-1", When: ParseWhen("mañana a las 10", 9)})
	if res.Outcome != Created {
		t.Fatalf("outcome = %v", res.Outcome)
	}
	if res.Zone != "America/Mexico_City" {
		t.Fatalf("zone = %q", res.Zone)
	}
	if creator.last.Trigger.ScheduledTime != "2026-03-10T10:00:00" || creator.last.Trigger.TimeZoneID != "America/Mexico_City" {
		t.Fatalf("trigger = %+v", creator.last.Trigger)
	}
	if creator.last.AlertInfo.SpokenInfo.Content[0].Text != DefaultSpokenText {
		t.Fatalf("spoken = %+v", creator.last.AlertInfo.SpokenInfo)
	}

	var rec Reminder
	if err := db.First(&rec, "reminder_id = ?", res.ReminderID).Error; err != nil {
		t.Fatalf("local record: %v", err)
	}
	if rec.Status != StatusCreated || rec.Pseudonym != "luna" || rec.SessionID != "s-1" {
		t.Fatalf("record = %+v", rec)
	}
	if rec.AlertToken == nil || *rec.AlertToken != "alert-1" {
		t.Fatalf("alert token = %v", rec.AlertToken)
	}
}

func TestSchedule_TimezoneFailureUsesDefault(t *testing.T) {
	db := openTestDB(t)
	creator := &fakeCreator{}
	s := newTestScheduler(fakeZones{err: errors.New("timeout")}, creator, NewRepo(db))

	res := s.Schedule(context.Background(), Request{When: ParseWhen("", 9)})
	if res.Zone != "UTC" || creator.last.Trigger.TimeZoneID != "UTC" {
		t.Fatalf("zone = %q / %q", res.Zone, creator.last.Trigger.TimeZoneID)
	}
	if creator.last.Trigger.ScheduledTime != "2026-03-10T09:00:00" {
		t.Fatalf("scheduled = %q", creator.last.Trigger.ScheduledTime)
	}

	bogus := newTestScheduler(fakeZones{zone: "Mars/Olympus"}, &fakeCreator{}, NewRepo(db))
	if r := bogus.Schedule(context.Background(), Request{When: ParseWhen("", 9)}); r.Zone != "UTC" {
		t.Fatalf("bogus zone = %q", r.Zone)
	}
}

func TestSchedule_PermissionDenied(t *testing.T) {
	db := openTestDB(t)
	creator := &fakeCreator{err: &alexa.APIError{Op: "reminders", Status: 403}}
	s := newTestScheduler(nil, creator, NewRepo(db))

	res := s.Schedule(context.Background(), Request{When: ParseWhen("hoy", 9)})
	if res.Outcome != PermissionRequired {
		t.Fatalf("outcome = %v", res.Outcome)
	}
	var rec Reminder
	db.First(&rec, "reminder_id = ?", res.ReminderID)
	if rec.Status != StatusDenied {
		t.Fatalf("status = %q", rec.Status)
	}
}

func TestSchedule_PlatformFailureKeepsLocalRecord(t *testing.T) {
	db := openTestDB(t)
	s := newTestScheduler(nil, &fakeCreator{err: errors.New("connection reset")}, NewRepo(db))

	res := s.Schedule(context.Background(), Request{Pseudonym: "luna", When: ParseWhen("", 9)})
	if res.Outcome != SavedLocally {
		t.Fatalf("outcome = %v", res.Outcome)
	}
	rs, err := NewRepo(db).ListByPseudonym(context.Background(), "luna")
	if err != nil || len(rs) != 1 {
		t.Fatalf("records = %v, %v", rs, err)
	}
	if rs[0].Status != StatusLocalOnly || rs[0].Error == nil {
		t.Fatalf("record = %+v", rs[0])
	}
}

func TestSchedule_BothFail(t *testing.T) {
	s := newTestScheduler(nil, &fakeCreator{err: errors.New("boom")}, brokenLog{})
	if res := s.Schedule(context.Background(), Request{When: ParseWhen("", 9)}); res.Outcome != Failed {
		t.Fatalf("outcome = %v", res.Outcome)
	}
	s = newTestScheduler(nil, &fakeCreator{}, brokenLog{})
	if res := s.Schedule(context.Background(), Request{When: ParseWhen("", 9)}); res.Outcome != Created {
		t.Fatalf("outcome = %v", res.Outcome)
	}
}
