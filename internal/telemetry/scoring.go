package telemetry

import (
	"context"
	"encoding/json"
	"fmt"
	"sort"
	"time"

	"github.com/suPer8Hu/storyvoice/internal/content"
)

// NormalizedScore folds a session's mappings into [0,1] for one scale. Each
// item counts once, at its strongest weight*confidence; a nil confidence is 1.
// Unknown scales score nil.
func NormalizedScore(ms []ClinicalMapping, scale string) *float64 {
	n, ok := content.ScaleItems[scale]
	if !ok {
		return nil
	}
	best := map[int]float64{}
	for _, m := range ms {
		if content.NormalizeScale(m.Scale) != scale || m.Item < 1 || m.Item > n || m.Weight == nil {
			continue
		}
		v := *m.Weight
		if m.Confidence != nil {
			v *= *m.Confidence
		}
		if cur, seen := best[m.Item]; !seen || v > cur {
			best[m.Item] = v
		}
	}
	var sum float64
	for _, v := range best {
		sum += v
	}
	score := sum / float64(n)
	if score > 1 {
		score = 1
	}
	return &score
}

// Rescore recomputes and stores both scale scores for a session.
func (s *Service) Rescore(ctx context.Context, sessionID string) (*Session, error) {
	if _, err := s.store.GetSession(ctx, sessionID); err != nil {
		return nil, err
	}
	ms, err := s.store.ListSessionMappings(ctx, sessionID)
	if err != nil {
		return nil, fmt.Errorf("list mappings: %w", err)
	}
	fields := map[string]any{
		"normalized_emotional_score_gds": NormalizedScore(ms, content.ScaleGDS),
		"normalized_emotional_score_phq": NormalizedScore(ms, content.ScalePHQ),
	}
	if err := s.store.UpdateSession(ctx, sessionID, fields); err != nil {
		return nil, fmt.Errorf("store scores: %w", err)
	}
	return s.store.GetSession(ctx, sessionID)
}

type CloseRequest struct {
	SessionLengthSeconds *int       `json:"session_length_seconds"`
	AbandonmentFlag      *bool      `json:"abandonment_flag"`
	EndedAt              *time.Time `json:"ended_at"`
}

// Close records the end of a session and rescores it.
func (s *Service) Close(ctx context.Context, sessionID string, req CloseRequest) (*Session, error) {
	if req.SessionLengthSeconds != nil && *req.SessionLengthSeconds < 0 {
		return nil, fmt.Errorf("%w: session_length_seconds must not be negative", ErrInvalidPayload)
	}
	ended := s.now().UTC()
	if req.EndedAt != nil {
		ended = req.EndedAt.UTC()
	}
	fields := map[string]any{"ended_at": ended}
	if req.SessionLengthSeconds != nil {
		fields["session_length_seconds"] = *req.SessionLengthSeconds
	}
	if req.AbandonmentFlag != nil {
		fields["abandonment_flag"] = *req.AbandonmentFlag
	}
	if err := s.store.UpdateSession(ctx, sessionID, fields); err != nil {
		return nil, err
	}
	return s.Rescore(ctx, sessionID)
}

type Summary struct {
	SessionID             string     `json:"session_id"`
	Pseudonym             string     `json:"pseudonym"`
	ChapterID             string     `json:"chapter_id"`
	StartedAt             *time.Time `json:"started_at"`
	EndedAt               *time.Time `json:"ended_at"`
	DecisionsCount        int        `json:"decisions_count"`
	ClinicalMappingsCount int        `json:"clinical_mappings_count"`
	RiskFlags             []string   `json:"risk_flags"`
	ScoreGDS              *float64   `json:"normalized_emotional_score_gds"`
	ScorePHQ              *float64   `json:"normalized_emotional_score_phq"`
}

// Summary reports a session with scores computed from its current mappings.
func (s *Service) Summary(ctx context.Context, sessionID string) (*Summary, error) {
	sess, err := s.store.GetSession(ctx, sessionID)
	if err != nil {
		return nil, err
	}
	ds, err := s.store.ListDecisions(ctx, sessionID)
	if err != nil {
		return nil, fmt.Errorf("list decisions: %w", err)
	}
	ms, err := s.store.ListSessionMappings(ctx, sessionID)
	if err != nil {
		return nil, fmt.Errorf("list mappings: %w", err)
	}

	flags := map[string]bool{}
	for _, d := range ds {
		if len(d.RiskFlags) == 0 {
			continue
		}
		var fs []string
		if err := json.Unmarshal(d.RiskFlags, &fs); err != nil {
			continue
		}
		for _, f := range fs {
			flags[f] = true
		}
	}
	riskFlags := make([]string, 0, len(flags))
	for f := range flags {
		riskFlags = append(riskFlags, f)
	}
	sort.Strings(riskFlags)

	return &Summary{
		SessionID:             sess.SessionID,
		Pseudonym:             sess.Pseudonym,
		ChapterID:             sess.ChapterID,
		StartedAt:             sess.StartedAt,
		EndedAt:               sess.EndedAt,
		DecisionsCount:        len(ds),
		ClinicalMappingsCount: len(ms),
		RiskFlags:             riskFlags,
		ScoreGDS:              NormalizedScore(ms, content.ScaleGDS),
		ScorePHQ:              NormalizedScore(ms, content.ScalePHQ),
	}, nil
}
