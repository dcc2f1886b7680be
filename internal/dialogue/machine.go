package dialogue

import (
	"context"
	"fmt"
	"log/slog"
	"time"

	"github.com/suPer8Hu/storyvoice/internal/content"
	"github.com/suPer8Hu/storyvoice/internal/reminder"
	"github.com/suPer8Hu/storyvoice/internal/telemetry"
)

// Pipeline persists sessions and decisions.
type Pipeline interface {
	Process(ctx context.Context, p *telemetry.Payload, token string) (*telemetry.Result, error)
}

// SessionLookup answers the history questions the conversation asks.
type SessionLookup interface {
	LatestSessionByPseudonym(ctx context.Context, pseudonym string) (*telemetry.Session, error)
	HasConsented(ctx context.Context, pseudonym string) (bool, error)
	HasDecision(ctx context.Context, sessionID, sceneID, optionID string) (bool, error)
}

type Scheduler interface {
	Schedule(ctx context.Context, req reminder.Request) reminder.Result
}

// Content is the read side of the chapter store.
type Content interface {
	FirstScene(chapterID string) (*content.Scene, bool)
	Scene(chapterID, sceneID string) (*content.Scene, bool)
	Option(chapterID, sceneID, optionID string) (*content.Option, bool)
}

type Config struct {
	StartChapter string
	// Location decides what "today" means for the one-chapter-a-day rule.
	Location            *time.Location
	ReminderDefaultHour int
}

type Machine struct {
	pipeline  Pipeline
	sessions  SessionLookup
	scheduler Scheduler
	content   Content
	cfg       Config
	stages    *Stages
	now       func() time.Time
}

func NewMachine(pipeline Pipeline, sessions SessionLookup, scheduler Scheduler, c Content, cfg Config) *Machine {
	if cfg.Location == nil {
		cfg.Location = time.UTC
	}
	if cfg.StartChapter == "" {
		cfg.StartChapter = "c01"
	}
	if cfg.ReminderDefaultHour < 0 || cfg.ReminderDefaultHour > 23 {
		cfg.ReminderDefaultHour = 10
	}
	m := &Machine{
		pipeline:  pipeline,
		sessions:  sessions,
		scheduler: scheduler,
		content:   c,
		cfg:       cfg,
		now:       time.Now,
	}
	m.stages = NewStages()
	m.stages.Register(StageLogin, m.login)
	m.stages.Register(StageConsent, m.consent)
	m.stages.Register(StageScene, m.scene)
	m.stages.Register(StageScheduleReminder, m.scheduleReminder)
	m.stages.Register(StageReminderTime, m.reminderTime)
	return m
}

func (m *Machine) WithClock(now func() time.Time) *Machine {
	m.now = now
	return m
}

// Handle runs one turn. Errors are returned only for requests that are not
// launch, intent or session-ended events; every other failure becomes speech.
func (m *Machine) Handle(ctx context.Context, env *RequestEnvelope) (*ResponseEnvelope, error) {
	if env == nil || env.Request == nil {
		return nil, ErrNotAlexaRequest
	}
	t := &Turn{Env: env, Now: m.now()}
	if env.Session != nil {
		t.Attrs = parseAttributes(env.Session.Attributes)
	}

	switch env.Request.Type {
	case LaunchRequest:
		return say(msgWelcome, Attributes{Stage: StageLogin}, false), nil
	case SessionEndedRequest:
		return &ResponseEnvelope{Version: "1.0", SessionAttributes: Attributes{}, Response: ResponseBody{ShouldEndSession: true}}, nil
	case IntentRequest:
	default:
		return nil, fmt.Errorf("%w: %s", ErrUnsupportedRequest, env.Request.Type)
	}

	intent := env.intentName()
	switch intent {
	case "AMAZON.StopIntent", "AMAZON.CancelIntent":
		return say(msgGoodbye, Attributes{}, true), nil
	}

	h, ok := m.stages.Get(t.Attrs.Stage)
	if !ok {
		return say(fmt.Sprintf(msgFallback, intent), t.Attrs, false), nil
	}
	resp := h(ctx, t)
	slog.DebugContext(ctx, "turn",
		"stage", string(t.Attrs.Stage),
		"next_stage", string(resp.SessionAttributes.Stage),
		"intent", intent,
		"end", resp.Response.ShouldEndSession,
	)
	return resp, nil
}
