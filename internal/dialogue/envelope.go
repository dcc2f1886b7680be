package dialogue

import (
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"sort"
	"strings"

	"github.com/suPer8Hu/storyvoice/internal/alexa"
)

var (
	ErrNotAlexaRequest    = errors.New("not an Alexa request")
	ErrUnsupportedRequest = errors.New("unsupported request type")
)

const (
	LaunchRequest       = "LaunchRequest"
	IntentRequest       = "IntentRequest"
	SessionEndedRequest = "SessionEndedRequest"
)

type RequestEnvelope struct {
	Version string       `json:"version"`
	Session *SessionInfo `json:"session,omitempty"`
	Context *ContextInfo `json:"context,omitempty"`
	Request *Request     `json:"request"`
}

type SessionInfo struct {
	SessionID  string          `json:"sessionId"`
	New        bool            `json:"new"`
	Attributes json.RawMessage `json:"attributes,omitempty"`
	User       struct {
		UserID string `json:"userId"`
	} `json:"user"`
}

type ContextInfo struct {
	System struct {
		APIAccessToken string `json:"apiAccessToken"`
		APIEndpoint    string `json:"apiEndpoint"`
		Device         struct {
			DeviceID string `json:"deviceId"`
		} `json:"device"`
		User struct {
			UserID      string `json:"userId"`
			Permissions struct {
				ConsentToken string `json:"consentToken"`
			} `json:"permissions"`
		} `json:"user"`
	} `json:"System"`
}

type Request struct {
	Type            string  `json:"type"`
	RequestID       string  `json:"requestId,omitempty"`
	Locale          string  `json:"locale,omitempty"`
	Intent          *Intent `json:"intent,omitempty"`
	InputTranscript string  `json:"inputTranscript,omitempty"`
}

type Intent struct {
	Name  string          `json:"name"`
	Slots map[string]Slot `json:"slots,omitempty"`
}

type Slot struct {
	Name        string `json:"name"`
	Value       string `json:"value"`
	Resolutions *struct {
		ResolutionsPerAuthority []struct {
			Values []struct {
				Value struct {
					Name string `json:"name"`
					ID   string `json:"id"`
				} `json:"value"`
			} `json:"values"`
		} `json:"resolutionsPerAuthority"`
	} `json:"resolutions,omitempty"`
}

// Resolved prefers the first entity-resolution name over the raw value.
func (s Slot) Resolved() string {
	if s.Resolutions != nil {
		for _, a := range s.Resolutions.ResolutionsPerAuthority {
			for _, v := range a.Values {
				if n := strings.TrimSpace(v.Value.Name); n != "" {
					return n
				}
			}
		}
	}
	return strings.TrimSpace(s.Value)
}

// DecodeRequest reads an envelope; a body without a request object is rejected.
func DecodeRequest(r io.Reader) (*RequestEnvelope, error) {
	var env RequestEnvelope
	if err := json.NewDecoder(r).Decode(&env); err != nil {
		return nil, fmt.Errorf("%w: %v", ErrNotAlexaRequest, err)
	}
	if env.Request == nil || env.Request.Type == "" {
		return nil, ErrNotAlexaRequest
	}
	return &env, nil
}

func (e *RequestEnvelope) intentName() string {
	if e.Request == nil || e.Request.Intent == nil {
		return ""
	}
	return e.Request.Intent.Name
}

// slotValue returns the named slot, else the first non-empty slot in name order.
func (e *RequestEnvelope) slotValue(name string) string {
	if e.Request == nil || e.Request.Intent == nil {
		return ""
	}
	slots := e.Request.Intent.Slots
	if s, ok := slots[name]; ok {
		if v := s.Resolved(); v != "" {
			return v
		}
	}
	for _, k := range sortedSlotNames(slots) {
		if v := slots[k].Resolved(); v != "" {
			return v
		}
	}
	return ""
}

// slotValues joins every non-empty slot in name order.
func (e *RequestEnvelope) slotValues() string {
	if e.Request == nil || e.Request.Intent == nil {
		return ""
	}
	slots := e.Request.Intent.Slots
	var parts []string
	for _, k := range sortedSlotNames(slots) {
		if v := slots[k].Resolved(); v != "" {
			parts = append(parts, v)
		}
	}
	return strings.Join(parts, " ")
}

func sortedSlotNames(slots map[string]Slot) []string {
	names := make([]string, 0, len(slots))
	for k := range slots {
		names = append(names, k)
	}
	sort.Strings(names)
	return names
}

func (e *RequestEnvelope) transcript() string {
	if e.Request == nil {
		return ""
	}
	return strings.TrimSpace(e.Request.InputTranscript)
}

func (e *RequestEnvelope) userID() string {
	if e.Session != nil && e.Session.User.UserID != "" {
		return e.Session.User.UserID
	}
	if e.Context != nil {
		return e.Context.System.User.UserID
	}
	return ""
}

func (e *RequestEnvelope) credentials() alexa.Credentials {
	if e.Context == nil {
		return alexa.Credentials{}
	}
	sys := e.Context.System
	return alexa.Credentials{
		APIEndpoint:    sys.APIEndpoint,
		APIAccessToken: sys.APIAccessToken,
		DeviceID:       sys.Device.DeviceID,
		ConsentToken:   sys.User.Permissions.ConsentToken,
	}
}

type ResponseEnvelope struct {
	Version           string       `json:"version"`
	SessionAttributes Attributes   `json:"sessionAttributes"`
	Response          ResponseBody `json:"response"`
}

type ResponseBody struct {
	OutputSpeech     *OutputSpeech `json:"outputSpeech,omitempty"`
	Card             *Card         `json:"card,omitempty"`
	Directives       []Directive   `json:"directives,omitempty"`
	ShouldEndSession bool          `json:"shouldEndSession"`
}

type OutputSpeech struct {
	Type string `json:"type"`
	Text string `json:"text"`
}

type Card struct {
	Type        string   `json:"type"`
	Permissions []string `json:"permissions,omitempty"`
}

type Directive struct {
	Type         string `json:"type"`
	SlotToElicit string `json:"slotToElicit,omitempty"`
}

func say(text string, attrs Attributes, end bool) *ResponseEnvelope {
	return &ResponseEnvelope{
		Version:           "1.0",
		SessionAttributes: attrs,
		Response: ResponseBody{
			OutputSpeech:     &OutputSpeech{Type: "PlainText", Text: text},
			ShouldEndSession: end,
		},
	}
}

func elicit(text string, attrs Attributes, slot string) *ResponseEnvelope {
	r := say(text, attrs, false)
	r.Response.Directives = []Directive{{Type: "Dialog.ElicitSlot", SlotToElicit: slot}}
	return r
}

// askPermission ends the session with a reminders consent card.
func askPermission(text string) *ResponseEnvelope {
	r := say(text, Attributes{}, true)
	r.Response.Card = &Card{Type: "AskForPermissionsConsent", Permissions: []string{alexa.RemindersPermission}}
	return r
}
