package dialogue

import "encoding/json"

type Stage string

const (
	StageLogin            Stage = "login"
	StageConsent          Stage = "consent"
	StageScene            Stage = "scene"
	StageScheduleReminder Stage = "schedule_reminder"
	StageReminderTime     Stage = "reminder_time"
)

// Attributes is the conversation state round-tripped through the platform
// between turns. Nothing else is kept between requests.
type Attributes struct {
	Stage             Stage           `json:"stage,omitempty"`
	Pseudonym         string          `json:"pseudonym,omitempty"`
	SessionID         string          `json:"session_id,omitempty"`
	ConsentGiven      bool            `json:"consent_given,omitempty"`
	ChapterID         string          `json:"chapter_id,omitempty"`
	CurrentSceneID    string          `json:"current_scene_id,omitempty"`
	CurrentOptions    []OfferedOption `json:"current_options,omitempty"`
	LastDecision      string          `json:"last_decision,omitempty"`
	LastDecisionScene string          `json:"last_decision_scene,omitempty"`
	ScenePresentedAt  int64           `json:"scene_presented_at,omitempty"`
}

// parseAttributes never fails; unreadable state starts over.
func parseAttributes(raw json.RawMessage) Attributes {
	var a Attributes
	if len(raw) == 0 {
		return a
	}
	if err := json.Unmarshal(raw, &a); err != nil {
		return Attributes{}
	}
	return a
}
