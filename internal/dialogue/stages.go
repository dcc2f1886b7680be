package dialogue

import (
	"context"
	"strings"
	"sync"
	"time"
)

// Turn is one request as seen by a stage handler.
type Turn struct {
	Env   *RequestEnvelope
	Attrs Attributes
	Now   time.Time
}

type StageFunc func(ctx context.Context, t *Turn) *ResponseEnvelope

// Stages maps a stage name to its handler.
type Stages struct {
	mu       sync.RWMutex
	handlers map[Stage]StageFunc
}

func NewStages() *Stages {
	return &Stages{handlers: make(map[Stage]StageFunc)}
}

func (s *Stages) Register(stage Stage, f StageFunc) {
	stage = Stage(strings.ToLower(strings.TrimSpace(string(stage))))
	s.mu.Lock()
	defer s.mu.Unlock()
	s.handlers[stage] = f
}

func (s *Stages) Get(stage Stage) (StageFunc, bool) {
	stage = Stage(strings.ToLower(strings.TrimSpace(string(stage))))
	s.mu.RLock()
	f, ok := s.handlers[stage]
	s.mu.RUnlock()
	return f, ok
}

type answer int

const (
	answerUnknown answer = iota
	answerYes
	answerNo
)

var (
	yesWords = map[string]bool{"si": true, "yes": true, "y": true, "claro": true, "vale": true, "de acuerdo": true, "si por favor": true}
	noWords  = map[string]bool{"no": true, "nop": true, "nope": true, "no gracias": true}
)

// answer reads a yes/no from the intent name, then slot values, then the transcript.
func (t *Turn) answer() answer {
	name := strings.ToLower(t.Env.intentName())
	switch {
	case strings.HasSuffix(name, "yesintent"):
		return answerYes
	case strings.HasSuffix(name, "nointent"):
		return answerNo
	}
	for _, raw := range []string{t.Env.slotValues(), t.Env.transcript()} {
		v := Normalize(raw)
		if yesWords[v] {
			return answerYes
		}
		if noWords[v] {
			return answerNo
		}
	}
	return answerUnknown
}
