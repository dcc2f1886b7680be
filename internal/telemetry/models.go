package telemetry

import (
	"time"

	"gorm.io/datatypes"
)

type Session struct {
	SessionID            string         `gorm:"primaryKey;type:varchar(36)" json:"session_id"`
	Pseudonym            string         `gorm:"type:varchar(64);index;not null" json:"pseudonym"`
	StartedAt            *time.Time     `gorm:"index" json:"started_at"`
	EndedAt              *time.Time     `json:"ended_at"`
	SessionLengthSeconds *int           `json:"session_length_seconds"`
	ConsentGiven         bool           `gorm:"not null;default:false" json:"consent_given"`
	PrivacyMode          string         `gorm:"type:varchar(32);not null;default:anonymous" json:"privacy_mode"`
	AbandonmentFlag      bool           `gorm:"not null;default:false" json:"abandonment_flag"`
	ChapterID            string         `gorm:"type:varchar(64)" json:"chapter_id"`
	Metadata             datatypes.JSON `json:"metadata,omitempty"`
	Source               string         `gorm:"type:varchar(32);not null;default:alexa" json:"source"`
	IngestBatchID        string         `gorm:"type:varchar(64)" json:"ingest_batch_id,omitempty"`
	NormalizedScoreGDS   *float64       `gorm:"column:normalized_emotional_score_gds" json:"normalized_emotional_score_gds"`
	NormalizedScorePHQ   *float64       `gorm:"column:normalized_emotional_score_phq" json:"normalized_emotional_score_phq"`
	CreatedAt            time.Time      `json:"created_at"`
	UpdatedAt            time.Time      `json:"updated_at"`
}

func (Session) TableName() string { return "sessions" }

// Decision is immutable once inserted.
type Decision struct {
	DecisionID        string         `gorm:"primaryKey;type:varchar(36)" json:"decision_id"`
	SessionID         string         `gorm:"type:varchar(36);index;not null" json:"session_id"`
	Timestamp         time.Time      `gorm:"not null" json:"timestamp"`
	ChapterID         string         `gorm:"type:varchar(64)" json:"chapter_id"`
	SceneID           string         `gorm:"type:varchar(64);index" json:"scene_id"`
	OptionID          string         `gorm:"type:varchar(64);index" json:"option_id"`
	OptionText        string         `gorm:"type:text" json:"option_text"`
	TimeToDecisionMS  *int64         `gorm:"column:time_to_decision_ms" json:"time_to_decision_ms"`
	MappingConfidence *float64       `json:"mapping_confidence"`
	ValidationSteps   datatypes.JSON `json:"validation_steps,omitempty"`
	RiskFlags         datatypes.JSON `json:"risk_flags,omitempty"`
	RawMapping        datatypes.JSON `json:"raw_mapping,omitempty"`
	CreatedAt         time.Time      `json:"created_at"`
}

func (Decision) TableName() string { return "decisions" }

// Mapping provenance values.
const (
	SourceDesigner = "designer"
	SourceLLM      = "llm"
)

type ClinicalMapping struct {
	MappingID        string    `gorm:"primaryKey;type:varchar(36)" json:"mapping_id"`
	DecisionID       string    `gorm:"type:varchar(36);index;not null" json:"decision_id"`
	Scale            string    `gorm:"type:varchar(16);index" json:"scale"`
	Item             int       `json:"item"`
	Weight           *float64  `json:"weight"`
	Confidence       *float64  `json:"confidence"`
	PrimaryConstruct string    `gorm:"type:varchar(128)" json:"primary_construct,omitempty"`
	Rationale        string    `gorm:"type:text" json:"rationale,omitempty"`
	MappingSource    string    `gorm:"type:varchar(32);not null" json:"mapping_source"`
	SourceConfidence *float64  `json:"source_confidence"`
	Validated        bool      `gorm:"not null;default:false" json:"validated"`
	CreatedAt        time.Time `json:"created_at"`
}

func (ClinicalMapping) TableName() string { return "clinical_mappings" }

type Chapter struct {
	ChapterID string    `gorm:"primaryKey;type:varchar(64)" json:"chapter_id"`
	Title     string    `gorm:"type:varchar(255)" json:"title"`
	CreatedAt time.Time `json:"created_at"`
	UpdatedAt time.Time `json:"updated_at"`
}

func (Chapter) TableName() string { return "chapters" }

type Scene struct {
	SceneID   string    `gorm:"primaryKey;type:varchar(64)" json:"scene_id"`
	ChapterID string    `gorm:"type:varchar(64);index" json:"chapter_id"`
	Title     string    `gorm:"type:varchar(255)" json:"title"`
	CreatedAt time.Time `json:"created_at"`
	UpdatedAt time.Time `json:"updated_at"`
}

func (Scene) TableName() string { return "scenes" }

type Option struct {
	SceneID       string         `gorm:"primaryKey;type:varchar(64)" json:"scene_id"`
	OptionID      string         `gorm:"primaryKey;type:varchar(64)" json:"option_id"`
	ChapterID     string         `gorm:"type:varchar(64);index" json:"chapter_id"`
	OptionText    string         `gorm:"type:text" json:"option_text"`
	NextChapterID string         `gorm:"type:varchar(64)" json:"next_chapter_id,omitempty"`
	Metadata      datatypes.JSON `json:"metadata,omitempty"`
	CreatedAt     time.Time      `json:"created_at"`
	UpdatedAt     time.Time      `json:"updated_at"`
}

func (Option) TableName() string { return "options" }

// OptionMapping is a mapping pre-associated with an option by the content.
type OptionMapping struct {
	MappingID        string    `gorm:"primaryKey;type:varchar(36)" json:"mapping_id"`
	SceneID          string    `gorm:"type:varchar(64);index:idx_option_mapping,priority:1;not null" json:"scene_id"`
	OptionID         string    `gorm:"type:varchar(64);index:idx_option_mapping,priority:2;not null" json:"option_id"`
	Scale            string    `gorm:"type:varchar(16)" json:"scale"`
	Item             int       `json:"item"`
	Weight           *float64  `json:"weight"`
	Confidence       *float64  `json:"confidence"`
	PrimaryConstruct string    `gorm:"type:varchar(128)" json:"primary_construct,omitempty"`
	Rationale        string    `gorm:"type:text" json:"rationale,omitempty"`
	CreatedAt        time.Time `json:"created_at"`
}

func (OptionMapping) TableName() string { return "option_mappings" }

// DecisionAudit keeps the generator request/response pair that produced a mapping.
type DecisionAudit struct {
	ID               string         `gorm:"primaryKey;size:26"` // ULID length
	SessionID        string         `gorm:"type:varchar(36);index;not null"`
	DecisionID       string         `gorm:"type:varchar(36)"`
	LLMRequest       datatypes.JSON `gorm:"column:llm_request"`
	LLMResponse      datatypes.JSON `gorm:"column:llm_response"`
	ValidationResult datatypes.JSON
	RiskFlags        datatypes.JSON
	Pseudonym        string `gorm:"type:varchar(64)"`
	CreatedAt        time.Time
}

func (DecisionAudit) TableName() string { return "decision_audit" }

// Models lists the tables this package owns, parents first.
func Models() []any {
	return []any{
		&Chapter{}, &Scene{}, &Option{}, &OptionMapping{},
		&Session{}, &Decision{}, &ClinicalMapping{}, &DecisionAudit{},
	}
}
