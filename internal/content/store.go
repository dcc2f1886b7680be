package content

import (
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"
	"strings"

	"gopkg.in/yaml.v3"
)

// Store is the read-only narrative content. It is safe for concurrent use
// because nothing mutates it after construction.
type Store struct {
	chapters []Chapter
	byID     map[string]int
}

func New(chapters []Chapter) *Store {
	s := &Store{chapters: chapters, byID: make(map[string]int, len(chapters))}
	for i, ch := range chapters {
		s.byID[ch.ChapterID] = i
	}
	return s
}

// Load reads a chapters document. Files ending in .yaml/.yml are parsed as
// YAML, everything else as JSON.
func Load(path string) (*Store, error) {
	b, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("read content: %w", err)
	}
	doc, err := Parse(b, filepath.Ext(path))
	if err != nil {
		return nil, fmt.Errorf("parse %s: %w", path, err)
	}
	if err := doc.Validate(); err != nil {
		return nil, err
	}
	return New(doc.Chapters), nil
}

func Parse(b []byte, ext string) (*Document, error) {
	var doc Document
	switch strings.ToLower(ext) {
	case ".yaml", ".yml":
		if err := yaml.Unmarshal(b, &doc); err != nil {
			return nil, err
		}
	default:
		if err := json.Unmarshal(b, &doc); err != nil {
			return nil, err
		}
	}
	return &doc, nil
}

func (s *Store) Chapters() []Chapter {
	return s.chapters
}

func (s *Store) Chapter(id string) (*Chapter, bool) {
	i, ok := s.byID[id]
	if !ok {
		return nil, false
	}
	return &s.chapters[i], true
}

// FirstScene returns the opening scene of a chapter.
func (s *Store) FirstScene(chapterID string) (*Scene, bool) {
	ch, ok := s.Chapter(chapterID)
	if !ok || len(ch.Scenes) == 0 {
		return nil, false
	}
	return &ch.Scenes[0], true
}

func (s *Store) Scene(chapterID, sceneID string) (*Scene, bool) {
	ch, ok := s.Chapter(chapterID)
	if !ok {
		return nil, false
	}
	for i := range ch.Scenes {
		if ch.Scenes[i].SceneID == sceneID {
			return &ch.Scenes[i], true
		}
	}
	return nil, false
}

func (s *Store) Option(chapterID, sceneID, optionID string) (*Option, bool) {
	sc, ok := s.Scene(chapterID, sceneID)
	if !ok {
		return nil, false
	}
	for i := range sc.Options {
		if sc.Options[i].OptionID == optionID {
			return &sc.Options[i], true
		}
	}
	return nil, false
}
