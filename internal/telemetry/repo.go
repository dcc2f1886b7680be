package telemetry

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"

	"github.com/google/uuid"
	"github.com/suPer8Hu/storyvoice/internal/content"
	"gorm.io/datatypes"
	"gorm.io/gorm"
	"gorm.io/gorm/clause"
)

var (
	ErrSessionNotFound = errors.New("session not found")

	// ErrDuplicate is a decision or mapping id that is already stored.
	ErrDuplicate = errors.New("duplicate record")
)

// Store is the datastore capability the pipeline needs: upsert-by-key,
// select-by-key and insert. Repo is the gorm implementation.
type Store interface {
	UpsertSession(ctx context.Context, s *Session, update []string) error
	GetSession(ctx context.Context, sessionID string) (*Session, error)
	UpdateSession(ctx context.Context, sessionID string, fields map[string]any) error
	LatestSessionByPseudonym(ctx context.Context, pseudonym string) (*Session, error)
	HasConsented(ctx context.Context, pseudonym string) (bool, error)

	EnsureChapter(ctx context.Context, chapterID string) error
	EnsureScene(ctx context.Context, sceneID, chapterID string) error
	OptionMappings(ctx context.Context, sceneID, optionID string) ([]OptionMapping, error)

	InsertDecisions(ctx context.Context, ds []Decision) error
	InsertMappings(ctx context.Context, ms []ClinicalMapping) error
	InsertAudit(ctx context.Context, a *DecisionAudit) error

	ListDecisions(ctx context.Context, sessionID string) ([]Decision, error)
	ListSessionMappings(ctx context.Context, sessionID string) ([]ClinicalMapping, error)
}

type Repo struct {
	db *gorm.DB
}

func NewRepo(db *gorm.DB) *Repo {
	return &Repo{db: db}
}

var (
	_ Store           = (*Repo)(nil)
	_ content.Catalog = (*Repo)(nil)
)

// UpsertSession inserts s, or on a session_id conflict overwrites only the
// named columns. An empty update list leaves an existing row untouched.
func (r *Repo) UpsertSession(ctx context.Context, s *Session, update []string) error {
	onConflict := clause.OnConflict{Columns: []clause.Column{{Name: "session_id"}}}
	if len(update) == 0 {
		onConflict.DoNothing = true
	} else {
		onConflict.DoUpdates = clause.AssignmentColumns(append(update, "updated_at"))
	}
	return r.db.WithContext(ctx).Clauses(onConflict).Create(s).Error
}

func (r *Repo) GetSession(ctx context.Context, sessionID string) (*Session, error) {
	var s Session
	if err := r.db.WithContext(ctx).
		Where("session_id = ?", sessionID).
		First(&s).Error; err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, ErrSessionNotFound
		}
		return nil, err
	}
	return &s, nil
}

func (r *Repo) UpdateSession(ctx context.Context, sessionID string, fields map[string]any) error {
	res := r.db.WithContext(ctx).Model(&Session{}).
		Where("session_id = ?", sessionID).
		Updates(fields)
	if res.Error != nil {
		return res.Error
	}
	if res.RowsAffected > 0 {
		return nil
	}
	// mysql reports zero affected rows when values are unchanged
	_, err := r.GetSession(ctx, sessionID)
	return err
}

// LatestSessionByPseudonym returns nil, nil when the pseudonym has no sessions.
func (r *Repo) LatestSessionByPseudonym(ctx context.Context, pseudonym string) (*Session, error) {
	var s Session
	err := r.db.WithContext(ctx).
		Where("pseudonym = ? AND started_at IS NOT NULL", pseudonym).
		Order("started_at DESC").
		Limit(1).
		Find(&s).Error
	if err != nil {
		return nil, err
	}
	if s.SessionID == "" {
		return nil, nil
	}
	return &s, nil
}

func (r *Repo) HasConsented(ctx context.Context, pseudonym string) (bool, error) {
	var n int64
	err := r.db.WithContext(ctx).Model(&Session{}).
		Where("pseudonym = ? AND consent_given = ?", pseudonym, true).
		Count(&n).Error
	return n > 0, err
}

func (r *Repo) EnsureChapter(ctx context.Context, chapterID string) error {
	return r.db.WithContext(ctx).
		Clauses(clause.OnConflict{DoNothing: true}).
		Create(&Chapter{ChapterID: chapterID, Title: chapterID}).Error
}

// EnsureScene creates a minimal scene row (and its chapter) when missing.
func (r *Repo) EnsureScene(ctx context.Context, sceneID, chapterID string) error {
	if chapterID != "" {
		if err := r.EnsureChapter(ctx, chapterID); err != nil {
			return err
		}
	}
	return r.db.WithContext(ctx).
		Clauses(clause.OnConflict{DoNothing: true}).
		Create(&Scene{SceneID: sceneID, ChapterID: chapterID, Title: sceneID}).Error
}

func (r *Repo) OptionMappings(ctx context.Context, sceneID, optionID string) ([]OptionMapping, error) {
	var ms []OptionMapping
	if err := r.db.WithContext(ctx).
		Where("scene_id = ? AND option_id = ?", sceneID, optionID).
		Order("created_at ASC, mapping_id ASC").
		Find(&ms).Error; err != nil {
		return nil, err
	}
	return ms, nil
}

func (r *Repo) InsertDecisions(ctx context.Context, ds []Decision) error {
	if len(ds) == 0 {
		return nil
	}
	return duplicate(r.db.WithContext(ctx).Create(&ds).Error)
}

func (r *Repo) InsertMappings(ctx context.Context, ms []ClinicalMapping) error {
	if len(ms) == 0 {
		return nil
	}
	return duplicate(r.db.WithContext(ctx).Create(&ms).Error)
}

// duplicate needs a gorm.DB opened with TranslateError.
func duplicate(err error) error {
	if errors.Is(err, gorm.ErrDuplicatedKey) {
		return fmt.Errorf("%w: %v", ErrDuplicate, err)
	}
	return err
}

func (r *Repo) InsertAudit(ctx context.Context, a *DecisionAudit) error {
	return r.db.WithContext(ctx).Create(a).Error
}

// ListDecisions returns a session's decisions oldest first.
func (r *Repo) ListDecisions(ctx context.Context, sessionID string) ([]Decision, error) {
	var ds []Decision
	if err := r.db.WithContext(ctx).
		Where("session_id = ?", sessionID).
		Order("timestamp ASC").
		Find(&ds).Error; err != nil {
		return nil, err
	}
	return ds, nil
}

func (r *Repo) ListSessionMappings(ctx context.Context, sessionID string) ([]ClinicalMapping, error) {
	var ms []ClinicalMapping
	if err := r.db.WithContext(ctx).
		Joins("JOIN decisions ON decisions.decision_id = clinical_mappings.decision_id").
		Where("decisions.session_id = ?", sessionID).
		Find(&ms).Error; err != nil {
		return nil, err
	}
	return ms, nil
}

// content catalog

func (r *Repo) UpsertChapter(ctx context.Context, chapterID, title string) error {
	return r.db.WithContext(ctx).
		Clauses(clause.OnConflict{
			Columns:   []clause.Column{{Name: "chapter_id"}},
			DoUpdates: clause.AssignmentColumns([]string{"title", "updated_at"}),
		}).
		Create(&Chapter{ChapterID: chapterID, Title: title}).Error
}

func (r *Repo) UpsertScene(ctx context.Context, sceneID, chapterID, title string) error {
	return r.db.WithContext(ctx).
		Clauses(clause.OnConflict{
			Columns:   []clause.Column{{Name: "scene_id"}},
			DoUpdates: clause.AssignmentColumns([]string{"chapter_id", "title", "updated_at"}),
		}).
		Create(&Scene{SceneID: sceneID, ChapterID: chapterID, Title: title}).Error
}

func (r *Repo) UpsertOption(ctx context.Context, chapterID, sceneID string, opt content.Option) error {
	row := Option{
		SceneID:       sceneID,
		OptionID:      opt.OptionID,
		ChapterID:     chapterID,
		OptionText:    opt.OptionText,
		NextChapterID: opt.NextChapterID,
	}
	if len(opt.Metadata) > 0 {
		b, err := json.Marshal(opt.Metadata)
		if err != nil {
			return err
		}
		row.Metadata = datatypes.JSON(b)
	}
	return r.db.WithContext(ctx).
		Clauses(clause.OnConflict{
			Columns:   []clause.Column{{Name: "scene_id"}, {Name: "option_id"}},
			DoUpdates: clause.AssignmentColumns([]string{"chapter_id", "option_text", "next_chapter_id", "metadata", "updated_at"}),
		}).
		Create(&row).Error
}

// ReplaceOptionMappings swaps the option's mapping set in one transaction.
func (r *Repo) ReplaceOptionMappings(ctx context.Context, sceneID, optionID string, mappings []content.Mapping) error {
	return r.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		if err := tx.Where("scene_id = ? AND option_id = ?", sceneID, optionID).
			Delete(&OptionMapping{}).Error; err != nil {
			return err
		}
		if len(mappings) == 0 {
			return nil
		}
		rows := make([]OptionMapping, 0, len(mappings))
		for _, m := range mappings {
			id := m.MappingID
			if _, err := uuid.Parse(id); err != nil {
				id = uuid.NewString()
			}
			rows = append(rows, OptionMapping{
				MappingID:        id,
				SceneID:          sceneID,
				OptionID:         optionID,
				Scale:            m.Scale,
				Item:             m.Item,
				Weight:           m.Weight,
				Confidence:       m.Confidence,
				PrimaryConstruct: m.PrimaryConstruct,
				Rationale:        m.Rationale,
			})
		}
		return tx.Create(&rows).Error
	})
}

// HasDecision reports whether the session already recorded optionID in sceneID.
func (r *Repo) HasDecision(ctx context.Context, sessionID, sceneID, optionID string) (bool, error) {
	var n int64
	err := r.db.WithContext(ctx).Model(&Decision{}).
		Where("session_id = ? AND scene_id = ? AND option_id = ?", sessionID, sceneID, optionID).
		Count(&n).Error
	return n > 0, err
}
