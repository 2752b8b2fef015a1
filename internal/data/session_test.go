package data

import (
	"testing"
	"time"

	"go.uber.org/zap"

	"github.com/cloudstok/mines-game-backend/internal/conf"
)

func TestNewSessionRepoCarriesExpiry(t *testing.T) {
	repo := NewSessionRepo(&Data{}, &conf.Game{SessionTTL: 1800}, zap.NewNop())
	r, ok := repo.(*sessionRepo)
	if !ok {
		t.Fatalf("repo type = %T", repo)
	}
	if r.ttl != 30*time.Minute {
		t.Fatalf("ttl = %v, want 30m", r.ttl)
	}
}

func TestKeyLayout(t *testing.T) {
	if got := sessionKey("abc"); got != "PL:abc" {
		t.Fatalf("sessionKey = %q", got)
	}
	if got := roundKey("user42:op1"); got != "GM:user42:op1" {
		t.Fatalf("roundKey = %q", got)
	}
}
