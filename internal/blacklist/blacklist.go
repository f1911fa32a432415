// Package blacklist maintains the set of companies excluded from contact
// discovery and campaign creation.
package blacklist

import (
	"context"
	"encoding/json"
	"sort"
	"strings"
	"time"

	"github.com/rotisserie/eris"
	"go.uber.org/zap"

	"github.com/liac-group/outreach-cli/internal/memory"
	"github.com/liac-group/outreach-cli/internal/model"
)

const keyPrefix = "bl:"

// Entry is one blacklisted company.
type Entry struct {
	Company string                `json:"company"`
	Reason  model.BlacklistReason `json:"reason"`
	Detail  string                `json:"detail,omitempty"`
	AddedAt time.Time             `json:"added_at"`
}

// Stats summarizes the registry contents by reason.
type Stats struct {
	Total    int                           `json:"total"`
	ByReason map[model.BlacklistReason]int `json:"by_reason"`
}

// Registry stores blacklist entries in a KV. Entries are durable by default;
// a non-zero RecheckAfter lets a fresh batch re-evaluate companies whose
// entries have gone stale.
type Registry struct {
	kv memory.KV

	// RecheckAfter > 0 makes entries older than the window invisible to
	// IsBlacklisted. Zero keeps entries permanent.
	recheckAfter time.Duration

	nowFunc func() time.Time
}

// NewRegistry creates a registry over kv. recheckAfter of zero means entries
// never go stale.
func NewRegistry(kv memory.KV, recheckAfter time.Duration) *Registry {
	return &Registry{
		kv:           kv,
		recheckAfter: recheckAfter,
		nowFunc:      time.Now,
	}
}

// IsBlacklisted reports whether company is excluded, with the stored entry
// when it is. Staleness is evaluated at read time so a config change applies
// to existing entries.
func (r *Registry) IsBlacklisted(ctx context.Context, company string) (bool, Entry, error) {
	key := keyPrefix + memory.NormalizeCompany(company)
	raw, ok, err := r.kv.Get(ctx, key)
	if err != nil {
		return false, Entry{}, eris.Wrapf(err, "reading blacklist entry for %q", company)
	}
	if !ok {
		return false, Entry{}, nil
	}

	var entry Entry
	if err := json.Unmarshal(raw, &entry); err != nil {
		return false, Entry{}, eris.Wrapf(err, "decoding blacklist entry for %q", company)
	}

	if r.recheckAfter > 0 && r.nowFunc().Sub(entry.AddedAt) > r.recheckAfter {
		return false, entry, nil
	}
	return true, entry, nil
}

// Add records company as blacklisted. Re-adding refreshes the entry's
// timestamp and reason.
func (r *Registry) Add(ctx context.Context, company string, reason model.BlacklistReason, detail string) error {
	entry := Entry{
		Company: strings.TrimSpace(company),
		Reason:  reason,
		Detail:  detail,
		AddedAt: r.nowFunc(),
	}
	raw, err := json.Marshal(entry)
	if err != nil {
		return eris.Wrap(err, "encoding blacklist entry")
	}

	key := keyPrefix + memory.NormalizeCompany(company)
	if err := r.kv.Set(ctx, key, raw, 0); err != nil {
		return eris.Wrapf(err, "writing blacklist entry for %q", company)
	}

	zap.L().Info("company blacklisted",
		zap.String("company", entry.Company),
		zap.String("reason", string(reason)),
	)
	return nil
}

// Remove deletes company's entry. Removing an absent company is not an error.
func (r *Registry) Remove(ctx context.Context, company string) error {
	key := keyPrefix + memory.NormalizeCompany(company)
	if err := r.kv.Delete(ctx, key); err != nil {
		return eris.Wrapf(err, "removing blacklist entry for %q", company)
	}
	return nil
}

// List returns all entries sorted by company name.
func (r *Registry) List(ctx context.Context) ([]Entry, error) {
	keys, err := r.kv.Keys(ctx, keyPrefix)
	if err != nil {
		return nil, eris.Wrap(err, "listing blacklist keys")
	}

	entries := make([]Entry, 0, len(keys))
	for _, key := range keys {
		raw, ok, err := r.kv.Get(ctx, key)
		if err != nil {
			return nil, eris.Wrapf(err, "reading blacklist key %s", key)
		}
		if !ok {
			continue
		}
		var entry Entry
		if err := json.Unmarshal(raw, &entry); err != nil {
			return nil, eris.Wrapf(err, "decoding blacklist key %s", key)
		}
		entries = append(entries, entry)
	}

	sort.Slice(entries, func(i, j int) bool {
		return entries[i].Company < entries[j].Company
	})
	return entries, nil
}

// Stats counts entries by reason.
func (r *Registry) Stats(ctx context.Context) (Stats, error) {
	entries, err := r.List(ctx)
	if err != nil {
		return Stats{}, err
	}
	stats := Stats{
		Total:    len(entries),
		ByReason: make(map[model.BlacklistReason]int),
	}
	for _, e := range entries {
		stats.ByReason[e.Reason]++
	}
	return stats, nil
}
