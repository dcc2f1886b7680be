package auth

import (
	"context"
	"errors"
	"log/slog"
	"strings"
	"time"

	"github.com/google/uuid"
	"gorm.io/gorm"
)

var ErrPseudonymRequired = errors.New("pseudonym required")

// maxPseudonym matches the pseudonym column width, in characters.
const maxPseudonym = 64

// AuthToken is the server-side record of an issued token, keyed by its jti.
type AuthToken struct {
	Token     string    `gorm:"primaryKey;type:varchar(36)"`
	Pseudonym string    `gorm:"type:varchar(64);index;not null"`
	ExpiresAt time.Time `gorm:"index;not null"`
	CreatedAt time.Time
}

func (AuthToken) TableName() string { return "auth_tokens" }

// Cache is an optional read-through cache in front of the token table.
type Cache interface {
	GetToken(ctx context.Context, jti string) (string, bool, error)
	SetToken(ctx context.Context, jti, pseudonym string, ttl time.Duration) error
}

type TokenService struct {
	db     *gorm.DB
	cache  Cache
	secret string
	ttl    time.Duration
	now    func() time.Time
}

func NewTokenService(db *gorm.DB, cache Cache, secret string, ttl time.Duration) *TokenService {
	return &TokenService{db: db, cache: cache, secret: secret, ttl: ttl, now: time.Now}
}

func (s *TokenService) WithClock(now func() time.Time) *TokenService {
	s.now = now
	return s
}

type Issued struct {
	Token     string    `json:"token"`
	ExpiresAt time.Time `json:"expires_at"`
}

// Issue signs a token for pseudonym and records it.
func (s *TokenService) Issue(ctx context.Context, pseudonym string) (*Issued, error) {
	pseudonym = strings.TrimSpace(pseudonym)
	if pseudonym == "" {
		return nil, ErrPseudonymRequired
	}
	if r := []rune(pseudonym); len(r) > maxPseudonym {
		pseudonym = string(r[:maxPseudonym])
	}
	now := s.now().UTC()
	jti := uuid.NewString()
	signed, err := SignToken(pseudonym, jti, s.secret, now, s.ttl)
	if err != nil {
		return nil, err
	}
	row := &AuthToken{Token: jti, Pseudonym: pseudonym, ExpiresAt: now.Add(s.ttl)}
	if err := s.db.WithContext(ctx).Create(row).Error; err != nil {
		return nil, err
	}
	if s.cache != nil {
		if err := s.cache.SetToken(ctx, jti, pseudonym, s.ttl); err != nil {
			slog.WarnContext(ctx, "token cache set failed", "err", err)
		}
	}
	return &Issued{Token: signed, ExpiresAt: row.ExpiresAt}, nil
}

// Resolve returns the pseudonym a live token was issued for.
func (s *TokenService) Resolve(ctx context.Context, token string) (string, error) {
	claims, err := ParseToken(token, s.secret, s.now)
	if err != nil {
		return "", err
	}
	jti := claims.ID

	if s.cache != nil {
		p, ok, err := s.cache.GetToken(ctx, jti)
		if err != nil {
			slog.WarnContext(ctx, "token cache get failed", "err", err)
		} else if ok {
			return p, nil
		}
	}

	var row AuthToken
	if err := s.db.WithContext(ctx).First(&row, "token = ?", jti).Error; err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return "", ErrInvalidToken
		}
		return "", err
	}
	now := s.now()
	if !row.ExpiresAt.After(now) {
		return "", ErrTokenExpired
	}
	if s.cache != nil {
		if err := s.cache.SetToken(ctx, jti, row.Pseudonym, row.ExpiresAt.Sub(now)); err != nil {
			slog.WarnContext(ctx, "token cache set failed", "err", err)
		}
	}
	return row.Pseudonym, nil
}
