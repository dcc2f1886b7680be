package telemetry

import (
	"bytes"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"strings"
	"time"
	"unicode/utf8"

	"github.com/suPer8Hu/storyvoice/internal/content"
)

var ErrInvalidPayload = errors.New("invalid payload")

// MaxPseudonymLen is the longest handle, in characters, a session may carry.
const MaxPseudonymLen = 64

// Payload is one ingestion: a session record plus its decisions.
// Optional session fields are pointers so an upsert only touches what the
// caller actually sent.
type Payload struct {
	SessionID            string          `json:"session_id,omitempty"`
	Pseudonym            string          `json:"pseudonym,omitempty"`
	UserToken            string          `json:"user_token,omitempty"`
	StartedAt            *time.Time      `json:"started_at,omitempty"`
	EndedAt              *time.Time      `json:"ended_at,omitempty"`
	SessionLengthSeconds *int            `json:"session_length_seconds,omitempty"`
	ConsentGiven         *bool           `json:"consent_given,omitempty"`
	PrivacyMode          string          `json:"privacy_mode,omitempty"`
	AbandonmentFlag      *bool           `json:"abandonment_flag,omitempty"`
	ChapterID            string          `json:"chapter_id,omitempty"`
	Metadata             json.RawMessage `json:"metadata,omitempty"`
	Source               string          `json:"source,omitempty"`
	IngestBatchID        string          `json:"ingest_batch_id,omitempty"`
	NormalizedScoreGDS   *float64        `json:"normalized_emotional_score_gds,omitempty"`
	NormalizedScorePHQ   *float64        `json:"normalized_emotional_score_phq,omitempty"`

	Decisions []DecisionRecord `json:"decisions,omitempty"`

	// generator audit pair
	DecisionID       string          `json:"decision_id,omitempty"`
	LLMRequest       json.RawMessage `json:"llm_request,omitempty"`
	LLMResponse      json.RawMessage `json:"llm_response,omitempty"`
	ValidationResult json.RawMessage `json:"validation_result,omitempty"`
	RiskFlags        json.RawMessage `json:"risk_flags,omitempty"`
}

type DecisionRecord struct {
	DecisionID        string           `json:"decision_id,omitempty"`
	Timestamp         *time.Time       `json:"timestamp,omitempty"`
	ChapterID         string           `json:"chapter_id,omitempty"`
	SceneID           string           `json:"scene_id,omitempty"`
	OptionID          string           `json:"option_id,omitempty"`
	OptionText        string           `json:"option_text,omitempty"`
	TimeToDecisionMS  *int64           `json:"time_to_decision_ms,omitempty"`
	MappingConfidence *float64         `json:"mapping_confidence,omitempty"`
	ValidationSteps   json.RawMessage  `json:"validation_steps,omitempty"`
	RiskFlags         []string         `json:"risk_flags,omitempty"`
	DesignerMapping   []MappingRecord  `json:"designer_mapping,omitempty"`
	ParsedMapping     *MappingEnvelope `json:"parsed_mapping,omitempty"`
	RawMapping        *MappingEnvelope `json:"raw_mapping,omitempty"`
}

// MappingEnvelope is the generator's mapping block. Raw keeps the exact
// bytes so the decision row stores what the client sent.
type MappingEnvelope struct {
	MappingConfidence *float64        `json:"mapping_confidence,omitempty"`
	ClinicalMapping   []MappingRecord `json:"clinical_mapping,omitempty"`
	DesignerMapping   []MappingRecord `json:"designer_mapping,omitempty"`
	Raw               json.RawMessage `json:"-"`
}

func (e *MappingEnvelope) UnmarshalJSON(b []byte) error {
	type plain MappingEnvelope
	var p plain
	if err := json.Unmarshal(b, &p); err != nil {
		return err
	}
	*e = MappingEnvelope(p)
	e.Raw = append(json.RawMessage(nil), b...)
	return nil
}

func (e MappingEnvelope) MarshalJSON() ([]byte, error) {
	if len(e.Raw) > 0 {
		return e.Raw, nil
	}
	type plain MappingEnvelope
	return json.Marshal(plain(e))
}

type MappingRecord struct {
	MappingID        string   `json:"mapping_id,omitempty"`
	Scale            string   `json:"scale,omitempty"`
	Item             int      `json:"item"`
	Weight           *float64 `json:"weight,omitempty"`
	Confidence       *float64 `json:"confidence,omitempty"`
	SourceConfidence *float64 `json:"source_confidence,omitempty"`
	PrimaryConstruct string   `json:"primary_construct,omitempty"`
	Rationale        string   `json:"rationale,omitempty"`
	MappingSource    string   `json:"mapping_source,omitempty"`
	Validated        bool     `json:"validated,omitempty"`
}

// DecodePayload parses an ingestion body. An empty body is an empty payload.
// Values of the wrong shape are rejected here rather than deeper in the pipeline.
func DecodePayload(r io.Reader) (*Payload, error) {
	b, err := io.ReadAll(r)
	if err != nil {
		return nil, fmt.Errorf("%w: %v", ErrInvalidPayload, err)
	}
	var p Payload
	if len(bytes.TrimSpace(b)) == 0 {
		return &p, nil
	}
	if err := json.Unmarshal(b, &p); err != nil {
		return nil, fmt.Errorf("%w: %v", ErrInvalidPayload, err)
	}
	if err := p.Validate(); err != nil {
		return nil, err
	}
	return &p, nil
}

func (p *Payload) Validate() error {
	if p.SessionLengthSeconds != nil && *p.SessionLengthSeconds < 0 {
		return fmt.Errorf("%w: session_length_seconds must not be negative", ErrInvalidPayload)
	}
	if err := checkScore(p.NormalizedScoreGDS); err != nil {
		return fmt.Errorf("%w: normalized_emotional_score_gds %v", ErrInvalidPayload, err)
	}
	if err := checkScore(p.NormalizedScorePHQ); err != nil {
		return fmt.Errorf("%w: normalized_emotional_score_phq %v", ErrInvalidPayload, err)
	}
	if utf8.RuneCountInString(p.Pseudonym) > MaxPseudonymLen {
		return fmt.Errorf("%w: pseudonym longer than 64 characters", ErrInvalidPayload)
	}
	for i, d := range p.Decisions {
		if d.TimeToDecisionMS != nil && *d.TimeToDecisionMS < 0 {
			return fmt.Errorf("%w: decisions[%d].time_to_decision_ms must not be negative", ErrInvalidPayload, i)
		}
		for j, m := range d.designerMappings() {
			if err := m.validate(); err != nil {
				return fmt.Errorf("%w: decisions[%d] designer mapping [%d]: %v", ErrInvalidPayload, i, j, err)
			}
		}
		for j, m := range d.generatorMappings() {
			if err := m.validate(); err != nil {
				return fmt.Errorf("%w: decisions[%d] clinical mapping [%d]: %v", ErrInvalidPayload, i, j, err)
			}
		}
	}
	return nil
}

func checkScore(v *float64) error {
	if v != nil && (*v < 0 || *v > 1) {
		return fmt.Errorf("must be within [0,1], got %v", *v)
	}
	return nil
}

func (m MappingRecord) validate() error {
	if strings.TrimSpace(m.Scale) == "" {
		return errors.New("scale is required")
	}
	if err := checkScore(m.SourceConfidence); err != nil {
		return fmt.Errorf("source_confidence %v", err)
	}
	return content.CheckMapping(m.Scale, m.Item, m.Weight, m.Confidence)
}

func (d DecisionRecord) designerMappings() []MappingRecord {
	if len(d.DesignerMapping) > 0 {
		return d.DesignerMapping
	}
	if d.RawMapping != nil {
		return d.RawMapping.DesignerMapping
	}
	return nil
}

func (d DecisionRecord) generatorMappings() []MappingRecord {
	if d.ParsedMapping != nil && len(d.ParsedMapping.ClinicalMapping) > 0 {
		return d.ParsedMapping.ClinicalMapping
	}
	if d.RawMapping != nil {
		return d.RawMapping.ClinicalMapping
	}
	return nil
}

func (d DecisionRecord) mappingConfidence() *float64 {
	if d.MappingConfidence != nil {
		return d.MappingConfidence
	}
	if d.ParsedMapping != nil {
		return d.ParsedMapping.MappingConfidence
	}
	return nil
}

func (d DecisionRecord) rawMapping() *MappingEnvelope {
	if d.ParsedMapping != nil {
		return d.ParsedMapping
	}
	return d.RawMapping
}

func present(raw json.RawMessage) bool {
	t := bytes.TrimSpace(raw)
	return len(t) > 0 && !bytes.Equal(t, []byte("null"))
}
