package blacklist

import (
	"context"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"

	"github.com/liac-group/outreach-cli/internal/memory"
	"github.com/liac-group/outreach-cli/internal/model"
)

func init() {
	zap.ReplaceGlobals(zap.NewNop())
}

func TestAddAndCheck(t *testing.T) {
	ctx := context.Background()
	r := NewRegistry(memory.NewMapKV(), 0)

	blocked, _, err := r.IsBlacklisted(ctx, "Acme")
	require.NoError(t, err)
	assert.False(t, blocked)

	require.NoError(t, r.Add(ctx, "Acme", model.ReasonTooLarge, "bracket 500+"))

	blocked, entry, err := r.IsBlacklisted(ctx, "Acme")
	require.NoError(t, err)
	assert.True(t, blocked)
	assert.Equal(t, model.ReasonTooLarge, entry.Reason)
	assert.Equal(t, "bracket 500+", entry.Detail)
}

func TestLookupUsesNormalizedKey(t *testing.T) {
	ctx := context.Background()
	r := NewRegistry(memory.NewMapKV(), 0)

	require.NoError(t, r.Add(ctx, "Acme, Inc.", model.ReasonExplicit, ""))

	blocked, _, err := r.IsBlacklisted(ctx, "acme")
	require.NoError(t, err)
	assert.True(t, blocked)
}

func TestRemove(t *testing.T) {
	ctx := context.Background()
	r := NewRegistry(memory.NewMapKV(), 0)

	require.NoError(t, r.Add(ctx, "Globex", model.ReasonHasTATeam, ""))
	require.NoError(t, r.Remove(ctx, "Globex"))

	blocked, _, err := r.IsBlacklisted(ctx, "Globex")
	require.NoError(t, err)
	assert.False(t, blocked)

	require.NoError(t, r.Remove(ctx, "Globex"), "removing absent entry is fine")
}

func TestRecheckWindow(t *testing.T) {
	ctx := context.Background()
	r := NewRegistry(memory.NewMapKV(), time.Hour)
	now := time.Unix(1000, 0)
	r.nowFunc = func() time.Time { return now }

	require.NoError(t, r.Add(ctx, "Acme", model.ReasonTooLarge, ""))

	blocked, _, err := r.IsBlacklisted(ctx, "Acme")
	require.NoError(t, err)
	assert.True(t, blocked)

	now = now.Add(2 * time.Hour)
	blocked, entry, err := r.IsBlacklisted(ctx, "Acme")
	require.NoError(t, err)
	assert.False(t, blocked, "stale entry no longer blocks")
	assert.Equal(t, model.ReasonTooLarge, entry.Reason, "stale entry still returned for context")
}

func TestPermanentByDefault(t *testing.T) {
	ctx := context.Background()
	r := NewRegistry(memory.NewMapKV(), 0)
	now := time.Unix(1000, 0)
	r.nowFunc = func() time.Time { return now }

	require.NoError(t, r.Add(ctx, "Acme", model.ReasonExplicit, ""))

	now = now.Add(365 * 24 * time.Hour)
	blocked, _, err := r.IsBlacklisted(ctx, "Acme")
	require.NoError(t, err)
	assert.True(t, blocked)
}

func TestListSortedAndStats(t *testing.T) {
	ctx := context.Background()
	r := NewRegistry(memory.NewMapKV(), 0)

	require.NoError(t, r.Add(ctx, "Globex", model.ReasonTooLarge, ""))
	require.NoError(t, r.Add(ctx, "Acme", model.ReasonTooLarge, ""))
	require.NoError(t, r.Add(ctx, "Initech", model.ReasonHasTATeam, ""))

	entries, err := r.List(ctx)
	require.NoError(t, err)
	require.Len(t, entries, 3)
	assert.Equal(t, "Acme", entries[0].Company)
	assert.Equal(t, "Globex", entries[1].Company)
	assert.Equal(t, "Initech", entries[2].Company)

	stats, err := r.Stats(ctx)
	require.NoError(t, err)
	assert.Equal(t, 3, stats.Total)
	assert.Equal(t, 2, stats.ByReason[model.ReasonTooLarge])
	assert.Equal(t, 1, stats.ByReason[model.ReasonHasTATeam])
}

func TestReAddRefreshesEntry(t *testing.T) {
	ctx := context.Background()
	r := NewRegistry(memory.NewMapKV(), 0)

	require.NoError(t, r.Add(ctx, "Acme", model.ReasonTooLarge, ""))
	require.NoError(t, r.Add(ctx, "Acme", model.ReasonExplicit, "manual"))

	_, entry, err := r.IsBlacklisted(ctx, "Acme")
	require.NoError(t, err)
	assert.Equal(t, model.ReasonExplicit, entry.Reason)

	entries, err := r.List(ctx)
	require.NoError(t, err)
	assert.Len(t, entries, 1)
}
