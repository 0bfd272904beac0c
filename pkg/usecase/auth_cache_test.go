package usecase

import (
	"testing"
	"time"

	"github.com/m-mizutani/gt"
	"github.com/secmon-lab/claimdesk/pkg/domain/model/auth"
	"github.com/secmon-lab/claimdesk/pkg/domain/types"
)

func TestSessionCache(t *testing.T) {
	now := time.Date(2026, 3, 1, 12, 0, 0, 0, time.UTC)
	clock := func() time.Time { return now }

	t.Run("entry expires after ttl", func(t *testing.T) {
		c := newSessionCache(time.Minute, clock)
		token := auth.NewToken("u1", "u1@example.com", "U1", types.UserRoleClaimant, time.Hour)
		token.ExpiresAt = now.Add(time.Hour)
		c.store(token)

		got, ok := c.load(token.ID)
		gt.Bool(t, ok).True()
		gt.Value(t, got.Sub).Equal("u1")

		c.now = func() time.Time { return now.Add(2 * time.Minute) }
		_, ok = c.load(token.ID)
		gt.Bool(t, ok).False()
	})

	t.Run("entry never outlives the session", func(t *testing.T) {
		c := newSessionCache(time.Hour, clock)
		token := auth.NewToken("u2", "u2@example.com", "U2", types.UserRoleClaimant, time.Hour)
		token.ExpiresAt = now.Add(time.Minute)
		c.store(token)

		c.now = func() time.Time { return now.Add(90 * time.Second) }
		_, ok := c.load(token.ID)
		gt.Bool(t, ok).False()
	})

	t.Run("evict", func(t *testing.T) {
		c := newSessionCache(time.Hour, clock)
		token := auth.NewToken("u3", "u3@example.com", "U3", types.UserRoleClaimant, time.Hour)
		c.store(token)
		c.evict(token.ID)
		_, ok := c.load(token.ID)
		gt.Bool(t, ok).False()
	})
}
