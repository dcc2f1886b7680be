package reminder

import (
	"context"

	"gorm.io/gorm"
)

type Repo struct {
	db *gorm.DB
}

func NewRepo(db *gorm.DB) *Repo {
	return &Repo{db: db}
}

func (r *Repo) Save(ctx context.Context, rem *Reminder) error {
	return r.db.WithContext(ctx).Create(rem).Error
}

func (r *Repo) MarkCreated(ctx context.Context, id, alertToken string) error {
	fields := map[string]any{"status": StatusCreated, "error": nil}
	if alertToken != "" {
		fields["alert_token"] = alertToken
	}
	return r.db.WithContext(ctx).Model(&Reminder{}).
		Where("reminder_id = ?", id).
		Updates(fields).Error
}

func (r *Repo) MarkFailed(ctx context.Context, id string, status Status, errMsg string) error {
	return r.db.WithContext(ctx).Model(&Reminder{}).
		Where("reminder_id = ?", id).
		Updates(map[string]any{
			"status": status,
			"error":  errMsg,
		}).Error
}

// ListByPseudonym returns reminders newest first.
func (r *Repo) ListByPseudonym(ctx context.Context, pseudonym string) ([]Reminder, error) {
	var rs []Reminder
	if err := r.db.WithContext(ctx).
		Where("pseudonym = ?", pseudonym).
		Order("created_at DESC").
		Find(&rs).Error; err != nil {
		return nil, err
	}
	return rs, nil
}
