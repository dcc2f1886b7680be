package telemetry

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"log/slog"
	"strings"
	"time"

	"github.com/google/uuid"
	"github.com/suPer8Hu/storyvoice/internal/common"
	"github.com/suPer8Hu/storyvoice/internal/content"
	"gorm.io/datatypes"
)

var ErrUnauthorized = errors.New("unauthorized")

// TokenResolver maps a bearer token to the pseudonym it was issued for.
type TokenResolver interface {
	Resolve(ctx context.Context, token string) (string, error)
}

// Notifier is told about every session the pipeline wrote.
type Notifier interface {
	PublishSessionUpdated(ctx context.Context, sessionID string) error
}

type Service struct {
	store    Store
	tokens   TokenResolver
	notifier Notifier
	now      func() time.Time
}

func NewService(store Store, tokens TokenResolver, notifier Notifier) *Service {
	return &Service{store: store, tokens: tokens, notifier: notifier, now: time.Now}
}

// WithClock replaces the clock used for defaults. Tests only.
func (s *Service) WithClock(now func() time.Time) *Service {
	s.now = now
	return s
}

type Result struct {
	OK                       bool   `json:"ok"`
	SessionID                string `json:"session_id"`
	DecisionsInserted        int    `json:"decisions_inserted"`
	ClinicalMappingsInserted int    `json:"clinical_mappings_inserted"`
}

// Process persists one payload. Writes are independent statements: a failure
// aborts the call and returns the error, leaving earlier rows in place.
func (s *Service) Process(ctx context.Context, p *Payload, token string) (*Result, error) {
	if p == nil {
		p = &Payload{}
	}
	if err := p.Validate(); err != nil {
		return nil, err
	}

	if token == "" {
		token = strings.TrimSpace(p.UserToken)
	}
	pseudonym := strings.TrimSpace(p.Pseudonym)
	if token != "" {
		if s.tokens == nil {
			return nil, fmt.Errorf("%w: token lookup unavailable", ErrUnauthorized)
		}
		ps, err := s.tokens.Resolve(ctx, token)
		if err != nil {
			return nil, fmt.Errorf("%w: %v", ErrUnauthorized, err)
		}
		pseudonym = ps
	}

	now := s.now().UTC()
	sess, update := s.sessionRow(p, pseudonym, now)
	if err := s.store.UpsertSession(ctx, sess, update); err != nil {
		return nil, fmt.Errorf("upsert session: %w", err)
	}

	decisions := make([]Decision, 0, len(p.Decisions))
	var mappings []ClinicalMapping
	ensured := map[string]bool{}
	for _, rec := range p.Decisions {
		d, err := decisionRow(rec, sess.SessionID, p.ChapterID, now)
		if err != nil {
			return nil, err
		}
		if d.SceneID != "" && !ensured[d.SceneID] {
			if err := s.store.EnsureScene(ctx, d.SceneID, d.ChapterID); err != nil {
				return nil, fmt.Errorf("ensure scene %s: %w", d.SceneID, err)
			}
			ensured[d.SceneID] = true
		}
		ms, err := s.collectMappings(ctx, rec, d)
		if err != nil {
			return nil, err
		}
		decisions = append(decisions, d)
		mappings = append(mappings, ms...)
	}

	if err := s.store.InsertDecisions(ctx, decisions); err != nil {
		return nil, fmt.Errorf("insert decisions: %w", err)
	}
	if err := s.store.InsertMappings(ctx, mappings); err != nil {
		return nil, fmt.Errorf("insert clinical mappings: %w", err)
	}

	if present(p.LLMRequest) || present(p.LLMResponse) {
		if err := s.insertAudit(ctx, p, sess, decisions); err != nil {
			return nil, fmt.Errorf("insert audit: %w", err)
		}
	}

	if s.notifier != nil {
		if err := s.notifier.PublishSessionUpdated(ctx, sess.SessionID); err != nil {
			slog.WarnContext(ctx, "publish session update failed", "session_id", sess.SessionID, "err", err)
		}
	}

	return &Result{
		OK:                       true,
		SessionID:                sess.SessionID,
		DecisionsInserted:        len(decisions),
		ClinicalMappingsInserted: len(mappings),
	}, nil
}

// sessionRow builds the insert row and the columns an existing row should take
// from this payload. Fields the payload did not carry are never overwritten.
func (s *Service) sessionRow(p *Payload, pseudonym string, now time.Time) (*Session, []string) {
	sess := &Session{
		SessionID:   validID(p.SessionID),
		Pseudonym:   pseudonym,
		PrivacyMode: "anonymous",
		Source:      "alexa",
		StartedAt:   &now,
	}
	var update []string
	if pseudonym != "" {
		update = append(update, "pseudonym")
	} else {
		sess.Pseudonym = "anon_" + sess.SessionID[:8]
	}
	if p.StartedAt != nil {
		t := p.StartedAt.UTC()
		sess.StartedAt = &t
		update = append(update, "started_at")
	}
	if p.EndedAt != nil {
		t := p.EndedAt.UTC()
		sess.EndedAt = &t
		update = append(update, "ended_at")
	}
	if p.SessionLengthSeconds != nil {
		sess.SessionLengthSeconds = p.SessionLengthSeconds
		update = append(update, "session_length_seconds")
	}
	if p.ConsentGiven != nil {
		sess.ConsentGiven = *p.ConsentGiven
		update = append(update, "consent_given")
	}
	if p.PrivacyMode != "" {
		sess.PrivacyMode = p.PrivacyMode
		update = append(update, "privacy_mode")
	}
	if p.AbandonmentFlag != nil {
		sess.AbandonmentFlag = *p.AbandonmentFlag
		update = append(update, "abandonment_flag")
	}
	if p.ChapterID != "" {
		sess.ChapterID = p.ChapterID
		update = append(update, "chapter_id")
	}
	if present(p.Metadata) {
		sess.Metadata = datatypes.JSON(p.Metadata)
		update = append(update, "metadata")
	}
	if p.Source != "" {
		sess.Source = p.Source
		update = append(update, "source")
	}
	if p.IngestBatchID != "" {
		sess.IngestBatchID = p.IngestBatchID
		update = append(update, "ingest_batch_id")
	}
	if p.NormalizedScoreGDS != nil {
		sess.NormalizedScoreGDS = p.NormalizedScoreGDS
		update = append(update, "normalized_emotional_score_gds")
	}
	if p.NormalizedScorePHQ != nil {
		sess.NormalizedScorePHQ = p.NormalizedScorePHQ
		update = append(update, "normalized_emotional_score_phq")
	}
	return sess, update
}

func decisionRow(rec DecisionRecord, sessionID, chapterID string, now time.Time) (Decision, error) {
	d := Decision{
		DecisionID:        validID(rec.DecisionID),
		SessionID:         sessionID,
		Timestamp:         now,
		ChapterID:         rec.ChapterID,
		SceneID:           rec.SceneID,
		OptionID:          rec.OptionID,
		OptionText:        rec.OptionText,
		TimeToDecisionMS:  rec.TimeToDecisionMS,
		MappingConfidence: rec.mappingConfidence(),
	}
	if d.ChapterID == "" {
		d.ChapterID = chapterID
	}
	if rec.Timestamp != nil {
		d.Timestamp = rec.Timestamp.UTC()
	}
	if present(rec.ValidationSteps) {
		d.ValidationSteps = datatypes.JSON(rec.ValidationSteps)
	}
	if len(rec.RiskFlags) > 0 {
		b, err := json.Marshal(rec.RiskFlags)
		if err != nil {
			return d, fmt.Errorf("%w: risk_flags: %v", ErrInvalidPayload, err)
		}
		d.RiskFlags = datatypes.JSON(b)
	}
	if env := rec.rawMapping(); env != nil {
		b, err := json.Marshal(env)
		if err != nil {
			return d, fmt.Errorf("%w: raw_mapping: %v", ErrInvalidPayload, err)
		}
		d.RawMapping = datatypes.JSON(b)
	}
	return d, nil
}

// collectMappings gathers designer, generator and option-store mappings for
// one decision. Each source contributes every one of its rows.
func (s *Service) collectMappings(ctx context.Context, rec DecisionRecord, d Decision) ([]ClinicalMapping, error) {
	var out []ClinicalMapping
	for _, m := range rec.designerMappings() {
		out = append(out, mappingRow(m, d.DecisionID, SourceDesigner))
	}
	for _, m := range rec.generatorMappings() {
		src := m.MappingSource
		if src == "" {
			src = SourceLLM
		}
		out = append(out, mappingRow(m, d.DecisionID, src))
	}
	if d.SceneID != "" && d.OptionID != "" {
		stored, err := s.store.OptionMappings(ctx, d.SceneID, d.OptionID)
		if err != nil {
			return nil, fmt.Errorf("option mappings %s/%s: %w", d.SceneID, d.OptionID, err)
		}
		for _, om := range stored {
			rationale := om.Rationale
			if rationale == "" {
				rationale = "mapped from option_mappings"
			}
			out = append(out, ClinicalMapping{
				MappingID:        uuid.NewString(),
				DecisionID:       d.DecisionID,
				Scale:            om.Scale,
				Item:             om.Item,
				Weight:           om.Weight,
				Confidence:       om.Confidence,
				PrimaryConstruct: om.PrimaryConstruct,
				Rationale:        rationale,
				MappingSource:    SourceDesigner,
				Validated:        true,
			})
		}
	}
	return out, nil
}

func mappingRow(m MappingRecord, decisionID, source string) ClinicalMapping {
	return ClinicalMapping{
		MappingID:        validID(m.MappingID),
		DecisionID:       decisionID,
		Scale:            content.NormalizeScale(m.Scale),
		Item:             m.Item,
		Weight:           m.Weight,
		Confidence:       m.Confidence,
		PrimaryConstruct: m.PrimaryConstruct,
		Rationale:        m.Rationale,
		MappingSource:    source,
		SourceConfidence: m.SourceConfidence,
		Validated:        m.Validated,
	}
}

func (s *Service) insertAudit(ctx context.Context, p *Payload, sess *Session, decisions []Decision) error {
	id, err := common.NewULID()
	if err != nil {
		return err
	}
	decisionID := ""
	if _, err := uuid.Parse(p.DecisionID); err == nil {
		decisionID = p.DecisionID
	} else if len(decisions) == 1 {
		decisionID = decisions[0].DecisionID
	}
	a := &DecisionAudit{
		ID:         id,
		SessionID:  sess.SessionID,
		DecisionID: decisionID,
		Pseudonym:  sess.Pseudonym,
	}
	if present(p.LLMRequest) {
		a.LLMRequest = datatypes.JSON(p.LLMRequest)
	}
	if present(p.LLMResponse) {
		a.LLMResponse = datatypes.JSON(p.LLMResponse)
	}
	if present(p.ValidationResult) {
		a.ValidationResult = datatypes.JSON(p.ValidationResult)
	}
	if present(p.RiskFlags) {
		a.RiskFlags = datatypes.JSON(p.RiskFlags)
	}
	return s.store.InsertAudit(ctx, a)
}

// validID keeps a well-formed UUID and replaces anything else.
func validID(id string) string {
	if u, err := uuid.Parse(strings.TrimSpace(id)); err == nil {
		return u.String()
	}
	return uuid.NewString()
}
