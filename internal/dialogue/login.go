package dialogue

import (
	"context"
	"fmt"
	"log/slog"
	"strconv"
	"strings"
	"time"

	"github.com/suPer8Hu/storyvoice/internal/telemetry"
)

func (m *Machine) login(ctx context.Context, t *Turn) *ResponseEnvelope {
	pseudonym := t.Env.slotValue("pseudonym")
	if pseudonym == "" {
		pseudonym = t.Env.transcript()
	}
	pseudonym = truncate(strings.TrimSpace(pseudonym), telemetry.MaxPseudonymLen)
	if pseudonym == "" {
		return say(msgLoginRetry, t.Attrs, false)
	}

	consented, err := m.sessions.HasConsented(ctx, pseudonym)
	if err != nil {
		slog.WarnContext(ctx, "consent lookup failed", "err", err)
	}
	if consented {
		return m.startStory(ctx, t, pseudonym)
	}

	attrs := t.Attrs
	attrs.Stage = StageConsent
	attrs.Pseudonym = pseudonym
	return say(fmt.Sprintf(msgConsentAsk, pseudonym), attrs, false)
}

func (m *Machine) consent(ctx context.Context, t *Turn) *ResponseEnvelope {
	switch t.answer() {
	case answerYes:
		pseudonym := t.Attrs.Pseudonym
		if pseudonym == "" {
			pseudonym = truncate(t.Env.userID(), telemetry.MaxPseudonymLen)
		}
		if pseudonym == "" {
			pseudonym = "anon_" + strconv.FormatInt(t.Now.UnixMilli(), 10)
		}
		return m.startStory(ctx, t, pseudonym)
	case answerNo:
		return say(msgConsentNo, Attributes{}, true)
	default:
		return say(msgConsentRetry, t.Attrs, false)
	}
}

// startStory applies the daily limit, opens a consented session and presents
// the first scene of the start chapter.
func (m *Machine) startStory(ctx context.Context, t *Turn, pseudonym string) *ResponseEnvelope {
	latest, err := m.sessions.LatestSessionByPseudonym(ctx, pseudonym)
	if err != nil {
		slog.WarnContext(ctx, "latest session lookup failed", "err", err)
	} else if latest != nil && latest.StartedAt != nil && sameDay(*latest.StartedAt, t.Now, m.cfg.Location) {
		return say(msgPlayedToday, Attributes{}, true)
	}

	first, ok := m.content.FirstScene(m.cfg.StartChapter)
	if !ok {
		slog.ErrorContext(ctx, "start chapter has no scenes", "chapter_id", m.cfg.StartChapter)
		return say(msgNoFirstScene, Attributes{}, true)
	}

	consent := true
	res, err := m.pipeline.Process(ctx, &telemetry.Payload{
		Pseudonym:    pseudonym,
		ConsentGiven: &consent,
		ChapterID:    m.cfg.StartChapter,
		Source:       "alexa",
	}, "")
	if err != nil {
		slog.ErrorContext(ctx, "session create failed", "err", err)
		return say(msgSessionError, Attributes{}, true)
	}

	attrs := Attributes{
		Stage:        StageScene,
		Pseudonym:    pseudonym,
		SessionID:    res.SessionID,
		ConsentGiven: true,
	}
	text := presentScene(&attrs, m.cfg.StartChapter, first, t.Now)
	return say(text, attrs, false)
}

func sameDay(a, b time.Time, loc *time.Location) bool {
	ay, am, ad := a.In(loc).Date()
	by, bm, bd := b.In(loc).Date()
	return ay == by && am == bm && ad == bd
}
