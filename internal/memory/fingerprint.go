package memory

import (
	"context"
	"crypto/sha256"
	"encoding/hex"
	"encoding/json"
	"time"

	"github.com/rotisserie/eris"
)

// ClaimStatus is the result of a TryClaim attempt.
type ClaimStatus string

const (
	// Claimed means this caller now owns the unit and must Complete or
	// Release it.
	Claimed ClaimStatus = "claimed"
	// AlreadyInFlight means another worker holds a live claim.
	AlreadyInFlight ClaimStatus = "already-in-flight"
	// AlreadyComplete means the unit finished within the retention window.
	AlreadyComplete ClaimStatus = "already-complete"
)

// Scope controls whether dedup applies within one batch or across all
// batches.
type Scope string

const (
	ScopeBatch  Scope = "batch"
	ScopeGlobal Scope = "global"
)

// Policy configures fingerprinting behavior.
type Policy struct {
	// Scope selects batch-local or global dedup. Default: global.
	Scope Scope

	// Staleness bounds how long an in-flight claim survives before it is
	// treated as abandoned and becomes reclaimable. Default: 15m.
	Staleness time.Duration

	// Retention bounds how long a completed unit suppresses reprocessing.
	// Zero means forever.
	Retention time.Duration
}

func (p Policy) withDefaults() Policy {
	if p.Scope == "" {
		p.Scope = ScopeGlobal
	}
	if p.Staleness <= 0 {
		p.Staleness = 15 * time.Minute
	}
	return p
}

// Fingerprint derives the dedup key for one (company, title) unit. Batch
// scope folds the batch ID in so a new batch starts clean; global scope
// dedups across batches.
func Fingerprint(policy Policy, batchID, company, title string) string {
	h := sha256.New()
	if policy.Scope == ScopeBatch {
		h.Write([]byte(batchID))
		h.Write([]byte{0})
	}
	h.Write([]byte(NormalizeCompany(company)))
	h.Write([]byte{0})
	h.Write([]byte(NormalizeTitle(title)))
	return hex.EncodeToString(h.Sum(nil))
}

type claimRecord struct {
	Status    string    `json:"status"` // "in-flight" | "complete"
	Outcome   string    `json:"outcome,omitempty"`
	ClaimedAt time.Time `json:"claimed_at"`
}

const fingerprintPrefix = "fp:"

// FingerprintStore tracks unit claims on top of a KV. In-flight claims carry
// the staleness TTL, so an abandoned worker's claim expires and the unit
// becomes reclaimable without explicit recovery.
type FingerprintStore struct {
	kv     KV
	policy Policy

	nowFunc func() time.Time
}

// NewFingerprintStore creates a store over kv with the given policy.
func NewFingerprintStore(kv KV, policy Policy) *FingerprintStore {
	return &FingerprintStore{
		kv:      kv,
		policy:  policy.withDefaults(),
		nowFunc: time.Now,
	}
}

// Policy returns the effective policy after defaults.
func (s *FingerprintStore) Policy() Policy { return s.policy }

// FingerprintFor derives the dedup key for a unit under this store's policy.
func (s *FingerprintStore) FingerprintFor(batchID, company, title string) string {
	return Fingerprint(s.policy, batchID, company, title)
}

// TryClaim attempts to take ownership of fp. Exactly one concurrent caller
// gets Claimed for an absent key; the rest observe the in-flight or complete
// state.
func (s *FingerprintStore) TryClaim(ctx context.Context, fp string) (ClaimStatus, error) {
	record, err := json.Marshal(claimRecord{Status: "in-flight", ClaimedAt: s.nowFunc()})
	if err != nil {
		return "", eris.Wrap(err, "encoding claim record")
	}

	// The claim carries the staleness TTL: if the owner dies, the key
	// expires and the next TryClaim wins. Loop once in case the key expires
	// between the failed SetNX and the Get.
	for attempt := 0; attempt < 2; attempt++ {
		set, err := s.kv.SetNX(ctx, fingerprintPrefix+fp, record, s.policy.Staleness)
		if err != nil {
			return "", eris.Wrapf(err, "claiming fingerprint %s", fp)
		}
		if set {
			return Claimed, nil
		}

		raw, ok, err := s.kv.Get(ctx, fingerprintPrefix+fp)
		if err != nil {
			return "", eris.Wrapf(err, "reading fingerprint %s", fp)
		}
		if !ok {
			continue
		}

		var existing claimRecord
		if err := json.Unmarshal(raw, &existing); err != nil {
			return "", eris.Wrapf(err, "decoding fingerprint %s", fp)
		}
		if existing.Status == "complete" {
			return AlreadyComplete, nil
		}
		return AlreadyInFlight, nil
	}

	return AlreadyInFlight, nil
}

// Complete marks fp finished with the given outcome, suppressing reclaims
// for the retention window.
func (s *FingerprintStore) Complete(ctx context.Context, fp, outcome string) error {
	record, err := json.Marshal(claimRecord{
		Status:    "complete",
		Outcome:   outcome,
		ClaimedAt: s.nowFunc(),
	})
	if err != nil {
		return eris.Wrap(err, "encoding completion record")
	}
	if err := s.kv.Set(ctx, fingerprintPrefix+fp, record, s.policy.Retention); err != nil {
		return eris.Wrapf(err, "completing fingerprint %s", fp)
	}
	return nil
}

// Release abandons a claim so another worker can take the unit immediately.
func (s *FingerprintStore) Release(ctx context.Context, fp string) error {
	if err := s.kv.Delete(ctx, fingerprintPrefix+fp); err != nil {
		return eris.Wrapf(err, "releasing fingerprint %s", fp)
	}
	return nil
}

// Outcome returns the recorded outcome for a completed fingerprint, or
// ok=false when the unit is absent or still in flight.
func (s *FingerprintStore) Outcome(ctx context.Context, fp string) (string, bool, error) {
	raw, ok, err := s.kv.Get(ctx, fingerprintPrefix+fp)
	if err != nil {
		return "", false, eris.Wrapf(err, "reading fingerprint %s", fp)
	}
	if !ok {
		return "", false, nil
	}
	var record claimRecord
	if err := json.Unmarshal(raw, &record); err != nil {
		return "", false, eris.Wrapf(err, "decoding fingerprint %s", fp)
	}
	if record.Status != "complete" {
		return "", false, nil
	}
	return record.Outcome, true, nil
}
