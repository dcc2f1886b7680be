package dialogue

import (
	"context"
	"fmt"
	"log/slog"
	"time"

	"github.com/suPer8Hu/storyvoice/internal/content"
	"github.com/suPer8Hu/storyvoice/internal/telemetry"
)

// presentScene offers sc and records it as the current scene.
func presentScene(attrs *Attributes, chapterID string, sc *content.Scene, now time.Time) string {
	opts := make([]OfferedOption, 0, len(sc.Options))
	for _, o := range sc.Options {
		opts = append(opts, OfferedOption{OptionID: o.OptionID, OptionText: o.OptionText, NextChapterID: o.NextChapterID})
	}
	attrs.ChapterID = chapterID
	attrs.CurrentSceneID = sc.SceneID
	attrs.CurrentOptions = offerOptions(opts)
	attrs.ScenePresentedAt = now.UnixMilli()
	return sceneSpeech(sc.Text, attrs.CurrentOptions)
}

func (m *Machine) scene(ctx context.Context, t *Turn) *ResponseEnvelope {
	attrs := t.Attrs
	if attrs.SessionID == "" {
		return say(msgRestart, Attributes{Stage: StageLogin}, false)
	}

	sc, ok := m.content.Scene(attrs.ChapterID, attrs.CurrentSceneID)
	if !ok {
		// state points at content that no longer exists; re-offer a scene we have
		chapterID := attrs.ChapterID
		first, ok := m.content.FirstScene(chapterID)
		if !ok {
			chapterID = m.cfg.StartChapter
			first, ok = m.content.FirstScene(chapterID)
		}
		if !ok {
			return say(msgNoFirstScene, Attributes{}, true)
		}
		return say(presentScene(&attrs, chapterID, first, t.Now), attrs, false)
	}
	if len(attrs.CurrentOptions) == 0 {
		presented := attrs.ScenePresentedAt
		presentScene(&attrs, attrs.ChapterID, sc, t.Now)
		if presented > 0 {
			attrs.ScenePresentedAt = presented
		}
	}

	raw := t.Env.slotValue("option")
	if raw == "" {
		raw = t.Env.transcript()
	}

	chosen, ok := Resolve(raw, t.Env.intentName(), attrs.CurrentOptions)
	if !ok {
		hint := choiceHint(len(attrs.CurrentOptions))
		if raw == "" {
			return elicit(msgElicitOption+" "+hint, attrs, "option")
		}
		return say(msgNoMatch+" "+hint, attrs, false)
	}

	optionText := chosen.OptionText
	nextChapter := chosen.NextChapterID
	consequence := ""
	if opt, ok := m.content.Option(attrs.ChapterID, sc.SceneID, chosen.OptionID); ok {
		optionText = opt.OptionText
		nextChapter = opt.NextChapterID
		consequence = opt.ConsequenceText()
	}

	if m.isDuplicate(ctx, attrs, sc.SceneID, chosen.OptionID) {
		return say(msgDuplicate, attrs, false)
	}

	rec := telemetry.DecisionRecord{
		Timestamp:  &t.Now,
		ChapterID:  attrs.ChapterID,
		SceneID:    sc.SceneID,
		OptionID:   chosen.OptionID,
		OptionText: optionText,
	}
	if attrs.ScenePresentedAt > 0 {
		if ms := t.Now.UnixMilli() - attrs.ScenePresentedAt; ms >= 0 {
			rec.TimeToDecisionMS = &ms
		}
	}
	res, err := m.pipeline.Process(ctx, &telemetry.Payload{
		SessionID: attrs.SessionID,
		Pseudonym: attrs.Pseudonym,
		ChapterID: attrs.ChapterID,
		Source:    "alexa",
		Decisions: []telemetry.DecisionRecord{rec},
	}, "")
	if err != nil {
		slog.ErrorContext(ctx, "decision persist failed", "session_id", attrs.SessionID, "err", err)
		return say(msgDecisionFailed, attrs, false)
	}
	attrs.SessionID = res.SessionID
	attrs.LastDecision = chosen.OptionID
	attrs.LastDecisionScene = sc.SceneID

	if nextChapter == "" {
		attrs.Stage = StageScheduleReminder
		attrs.CurrentOptions = nil
		text := consequence
		if text == "" {
			text = fmt.Sprintf(msgChapterEnd, optionText)
		}
		return say(text+msgOfferReminder, attrs, false)
	}

	next, ok := m.content.FirstScene(nextChapter)
	if !ok {
		attrs.Stage = StageScheduleReminder
		attrs.CurrentOptions = nil
		return say(fmt.Sprintf(msgNoMoreScenes, optionText)+msgOfferReminder, attrs, false)
	}
	attrs.Stage = StageScene
	return say(presentScene(&attrs, nextChapter, next, t.Now), attrs, false)
}

// isDuplicate reports a repeat of the option last recorded in this scene.
func (m *Machine) isDuplicate(ctx context.Context, attrs Attributes, sceneID, optionID string) bool {
	if attrs.LastDecision == optionID && attrs.LastDecisionScene == sceneID {
		return true
	}
	seen, err := m.sessions.HasDecision(ctx, attrs.SessionID, sceneID, optionID)
	if err != nil {
		slog.WarnContext(ctx, "decision lookup failed", "err", err)
		return false
	}
	return seen
}
