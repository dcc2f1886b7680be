package reminder

import (
	"context"
	"log/slog"
	"time"

	"github.com/suPer8Hu/storyvoice/internal/alexa"
	"github.com/suPer8Hu/storyvoice/internal/common"
)

// TimezoneResolver looks up the caller's zone name.
type TimezoneResolver interface {
	TimeZone(ctx context.Context, creds alexa.Credentials) (string, error)
}

// Creator creates the reminder on the platform.
type Creator interface {
	CreateReminder(ctx context.Context, creds alexa.Credentials, r alexa.ReminderRequest) (string, error)
}

// Log is the durable fallback record.
type Log interface {
	Save(ctx context.Context, r *Reminder) error
	MarkCreated(ctx context.Context, id, alertToken string) error
	MarkFailed(ctx context.Context, id string, status Status, errMsg string) error
}

type Outcome int

const (
	// Created on the platform.
	Created Outcome = iota
	// SavedLocally only; the platform call failed.
	SavedLocally
	// PermissionRequired means the platform refused for lack of consent.
	PermissionRequired
	// Failed means neither the platform nor the local log took it.
	Failed
)

func (o Outcome) String() string {
	switch o {
	case Created:
		return "created"
	case SavedLocally:
		return "saved_locally"
	case PermissionRequired:
		return "permission_required"
	default:
		return "failed"
	}
}

type Request struct {
	Pseudonym   string
	SessionID   string
	When        When
	Credentials alexa.Credentials
}

type Result struct {
	Outcome    Outcome
	ReminderID string
	At         time.Time // in Zone
	Zone       string
}

type Scheduler struct {
	zones       TimezoneResolver
	creator     Creator
	log         Log
	defaultZone *time.Location
	locale      string
	text        string
	now         func() time.Time
}

const DefaultSpokenText = "Vuelve a Escoge tu Historia para continuar."

func NewScheduler(zones TimezoneResolver, creator Creator, log Log, defaultZone *time.Location, locale string) *Scheduler {
	if defaultZone == nil {
		defaultZone = time.UTC
	}
	if locale == "" {
		locale = "es-US"
	}
	return &Scheduler{
		zones:       zones,
		creator:     creator,
		log:         log,
		defaultZone: defaultZone,
		locale:      locale,
		text:        DefaultSpokenText,
		now:         time.Now,
	}
}

func (s *Scheduler) WithClock(now func() time.Time) *Scheduler {
	s.now = now
	return s
}

// Schedule resolves the zone, records the reminder locally and then asks the
// platform to create it. Platform failures never lose the local record.
func (s *Scheduler) Schedule(ctx context.Context, req Request) Result {
	now := s.now()
	loc := s.resolveZone(ctx, req.Credentials)
	at := req.When.In(now, loc)
	res := Result{At: at, Zone: loc.String()}

	id, err := common.NewULID()
	if err != nil {
		id = common.MustULID()
	}
	res.ReminderID = id

	rec := &Reminder{
		ReminderID:    id,
		Pseudonym:     req.Pseudonym,
		SessionID:     req.SessionID,
		RemindAt:      at.UTC(),
		TimeZone:      loc.String(),
		ScheduledTime: at.Format("2006-01-02T15:04:05"),
		Status:        StatusPending,
	}
	saved := true
	if err := s.log.Save(ctx, rec); err != nil {
		saved = false
		slog.ErrorContext(ctx, "reminder local save failed", "reminder_id", id, "err", err)
	}

	payload := alexa.NewReminderRequest(now, at, loc.String(), s.locale, s.text)
	token, err := s.creator.CreateReminder(ctx, req.Credentials, payload)
	switch {
	case err == nil:
		res.Outcome = Created
		if saved {
			s.mark(ctx, func() error { return s.log.MarkCreated(ctx, id, token) })
		}
	case alexa.IsPermissionDenied(err):
		slog.WarnContext(ctx, "reminder permission denied", "reminder_id", id, "err", err)
		res.Outcome = PermissionRequired
		if saved {
			s.mark(ctx, func() error { return s.log.MarkFailed(ctx, id, StatusDenied, err.Error()) })
		}
	default:
		slog.WarnContext(ctx, "reminder create failed, kept locally", "reminder_id", id, "err", err)
		res.Outcome = SavedLocally
		if saved {
			s.mark(ctx, func() error { return s.log.MarkFailed(ctx, id, StatusLocalOnly, err.Error()) })
		} else {
			res.Outcome = Failed
		}
	}
	return res
}

func (s *Scheduler) resolveZone(ctx context.Context, creds alexa.Credentials) *time.Location {
	if s.zones == nil {
		return s.defaultZone
	}
	name, err := s.zones.TimeZone(ctx, creds)
	if err != nil {
		slog.WarnContext(ctx, "timezone lookup failed, using default", "default", s.defaultZone.String(), "err", err)
		return s.defaultZone
	}
	loc, err := time.LoadLocation(name)
	if err != nil {
		slog.WarnContext(ctx, "unknown timezone, using default", "zone", name, "err", err)
		return s.defaultZone
	}
	return loc
}

func (s *Scheduler) mark(ctx context.Context, f func() error) {
	if err := f(); err != nil {
		slog.WarnContext(ctx, "reminder status update failed", "err", err)
	}
}
