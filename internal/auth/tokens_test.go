package auth

import (
	"context"
	"errors"
	"regexp"
	"strings"
	"testing"
	"time"
	"unicode/utf8"

	gormsqlite "github.com/glebarez/sqlite"
	"gorm.io/gorm"
)

var nonWord = regexp.MustCompile(`[^A-Za-z0-9_]+`)

func openTestDB(t *testing.T) *gorm.DB {
	t.Helper()
	name := nonWord.ReplaceAllString(t.Name(), "_")
	db, err := gorm.Open(gormsqlite.Open("file:"+name+"?mode=memory&cache=shared"), &gorm.Config{})
	if err != nil {
		t.Fatalf("open sqlite: %v", err)
	}
	sqlDB, _ := db.DB()
	sqlDB.SetMaxOpenConns(1)
	t.Cleanup(func() { _ = sqlDB.Close() })
	if err := db.AutoMigrate(&AuthToken{}); err != nil {
		t.Fatalf("automigrate: %v", err)
	}
	return db
}

type mapCache struct {
	m    map[string]string
	gets int
}

func (c *mapCache) GetToken(ctx context.Context, jti string) (string, bool, error) {
	c.gets++
	p, ok := c.m[jti]
	return p, ok, nil
}

func (c *mapCache) SetToken(ctx context.Context, jti, pseudonym string, ttl time.Duration) error {
	c.m[jti] = pseudonym
	return nil
}

func TestIssueAndResolve(t *testing.T) {
	db := openTestDB(t)
	svc := NewTokenService(db, nil, "secret", time.Hour)
	ctx := context.Background()

	iss, err := svc.Issue(ctx, "  luna ")
	if err != nil {
		t.Fatalf("issue: %v", err)
	}
	p, err := svc.Resolve(ctx, iss.Token)
	if err != nil {
		t.Fatalf("resolve: %v", err)
	}
	if p != "luna" {
		t.Fatalf("pseudonym = %q", p)
	}
}

func TestIssue_TruncatesByCharacter(t *testing.T) {
	db := openTestDB(t)
	svc := NewTokenService(db, nil, "secret", time.Hour)
	ctx := context.Background()

	iss, err := svc.Issue(ctx, "a"+strings.Repeat("ñ", 70))
	if err != nil {
		t.Fatalf("issue: %v", err)
	}
	p, err := svc.Resolve(ctx, iss.Token)
	if err != nil {
		t.Fatalf("resolve: %v", err)
	}
	if want := "a" + strings.Repeat("ñ", 63); p != want {
		t.Fatalf("pseudonym = %q, want %q", p, want)
	}
	if !utf8.ValidString(p) {
		t.Fatal("pseudonym split a character")
	}
}

func TestResolve_Expired(t *testing.T) {
	db := openTestDB(t)
	now := time.Date(2026, 5, 1, 12, 0, 0, 0, time.UTC)
	svc := NewTokenService(db, nil, "secret", time.Hour).WithClock(func() time.Time { return now })
	ctx := context.Background()

	iss, err := svc.Issue(ctx, "luna")
	if err != nil {
		t.Fatalf("issue: %v", err)
	}
	now = now.Add(2 * time.Hour)
	if _, err := svc.Resolve(ctx, iss.Token); !errors.Is(err, ErrTokenExpired) {
		t.Fatalf("err = %v, want ErrTokenExpired", err)
	}
}

func TestResolve_RowMissing(t *testing.T) {
	db := openTestDB(t)
	svc := NewTokenService(db, nil, "secret", time.Hour)

	// validly signed but never recorded
	tok, err := SignToken("luna", "8a1c6a9e-4f7b-4f43-9d55-0d0b8c1e2f00", "secret", time.Now(), time.Hour)
	if err != nil {
		t.Fatalf("sign: %v", err)
	}
	if _, err := svc.Resolve(context.Background(), tok); !errors.Is(err, ErrInvalidToken) {
		t.Fatalf("err = %v, want ErrInvalidToken", err)
	}
}

func TestResolve_BadSignature(t *testing.T) {
	db := openTestDB(t)
	svc := NewTokenService(db, nil, "secret", time.Hour)
	iss, err := svc.Issue(context.Background(), "luna")
	if err != nil {
		t.Fatalf("issue: %v", err)
	}
	other := NewTokenService(db, nil, "other-secret", time.Hour)
	if _, err := other.Resolve(context.Background(), iss.Token); !errors.Is(err, ErrInvalidToken) {
		t.Fatalf("err = %v, want ErrInvalidToken", err)
	}
	if _, err := svc.Resolve(context.Background(), "garbage"); !errors.Is(err, ErrInvalidToken) {
		t.Fatalf("garbage err = %v", err)
	}
}

func TestResolve_UsesCache(t *testing.T) {
	db := openTestDB(t)
	cache := &mapCache{m: map[string]string{}}
	svc := NewTokenService(db, cache, "secret", time.Hour)
	ctx := context.Background()

	iss, err := svc.Issue(ctx, strings.Repeat("x", 80))
	if err != nil {
		t.Fatalf("issue: %v", err)
	}
	// drop the row; the cache alone must answer
	db.Where("1 = 1").Delete(&AuthToken{})
	p, err := svc.Resolve(ctx, iss.Token)
	if err != nil {
		t.Fatalf("resolve: %v", err)
	}
	if len(p) != 64 {
		t.Fatalf("pseudonym length = %d, want 64", len(p))
	}
	if cache.gets != 1 {
		t.Fatalf("cache gets = %d", cache.gets)
	}
}

func TestCheckAdminKey(t *testing.T) {
	hash, err := HashAdminKey("s3cret")
	if err != nil {
		t.Fatalf("hash: %v", err)
	}
	if !CheckAdminKey(hash, "s3cret") {
		t.Fatalf("correct key rejected")
	}
	if CheckAdminKey(hash, "wrong") || CheckAdminKey("", "s3cret") || CheckAdminKey(hash, "") {
		t.Fatalf("bad key accepted")
	}
}
