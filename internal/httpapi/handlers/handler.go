package handlers

import (
	"errors"
	"log/slog"
	"net/http"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/suPer8Hu/storyvoice/internal/alexa"
	"github.com/suPer8Hu/storyvoice/internal/auth"
	"github.com/suPer8Hu/storyvoice/internal/common"
	"github.com/suPer8Hu/storyvoice/internal/config"
	"github.com/suPer8Hu/storyvoice/internal/content"
	"github.com/suPer8Hu/storyvoice/internal/dialogue"
	"github.com/suPer8Hu/storyvoice/internal/reminder"
	"github.com/suPer8Hu/storyvoice/internal/store/redisstore"
	"github.com/suPer8Hu/storyvoice/internal/telemetry"
	"gorm.io/gorm"
)

type Handler struct {
	DB        *gorm.DB
	Cfg       config.Config
	Content   *content.Store
	Catalog   content.Catalog
	Tokens    *auth.TokenService
	Telemetry *telemetry.Service
	Reminders *reminder.Repo
	Dialogue  *dialogue.Machine
	Started   time.Time
}

// NewHandler wires the services behind the HTTP surface. rds and notifier may
// be nil; the token cache and session events are then disabled.
func NewHandler(db *gorm.DB, cfg config.Config, rds *redisstore.Store, notifier telemetry.Notifier, cs *content.Store) *Handler {
	var cache auth.Cache
	if rds != nil {
		cache = rds
	}
	tokens := auth.NewTokenService(db, cache, cfg.JWTSecret, cfg.TokenTTL)

	repo := telemetry.NewRepo(db)
	svc := telemetry.NewService(repo, tokens, notifier)

	client := alexa.NewClient(cfg.AlexaTimeout)
	reminders := reminder.NewRepo(db)
	sched := reminder.NewScheduler(client, client, reminders, cfg.Location(), cfg.ReminderLocale)

	machine := dialogue.NewMachine(svc, repo, sched, cs, dialogue.Config{
		StartChapter:        cfg.StartChapter,
		Location:            cfg.Location(),
		ReminderDefaultHour: cfg.ReminderDefaultHour,
	})

	return &Handler{
		DB:        db,
		Cfg:       cfg,
		Content:   cs,
		Catalog:   repo,
		Tokens:    tokens,
		Telemetry: svc,
		Reminders: reminders,
		Dialogue:  machine,
		Started:   time.Now(),
	}
}

// writeError maps service errors onto status codes.
func writeError(c *gin.Context, err error) {
	switch {
	case errors.Is(err, telemetry.ErrInvalidPayload), errors.Is(err, auth.ErrPseudonymRequired):
		common.Fail(c, http.StatusBadRequest, 40001, err.Error())
	case errors.Is(err, telemetry.ErrUnauthorized), errors.Is(err, auth.ErrInvalidToken), errors.Is(err, auth.ErrTokenExpired):
		common.Fail(c, http.StatusUnauthorized, 40101, err.Error())
	case errors.Is(err, telemetry.ErrSessionNotFound):
		common.Fail(c, http.StatusNotFound, 40401, err.Error())
	case errors.Is(err, telemetry.ErrDuplicate):
		common.Fail(c, http.StatusConflict, 40901, err.Error())
	default:
		slog.ErrorContext(c.Request.Context(), "request failed", "path", c.FullPath(), "err", err)
		common.Fail(c, http.StatusInternalServerError, 50001, "internal error")
	}
}

func (h *Handler) Health(c *gin.Context) {
	common.OK(c, http.StatusOK, gin.H{
		"ok":             true,
		"uptime_seconds": int64(time.Since(h.Started).Seconds()),
	})
}
