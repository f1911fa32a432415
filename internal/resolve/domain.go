// Package resolve turns company names into web domains and LinkedIn
// identities. Not-found is a value here, never an error: only transport and
// auth failures surface as errors.
package resolve

import (
	"context"
	"strings"
	"time"

	"go.uber.org/zap"

	"github.com/liac-group/outreach-cli/internal/memory"
	"github.com/liac-group/outreach-cli/pkg/clearout"
)

// Gate paces outbound provider calls. Satisfied by ratelimit.Limiter.
type Gate interface {
	Acquire(ctx context.Context, providerKey string) (time.Time, error)
}

// DomainResolver maps a company name to its web domain via Clearout
// autocomplete.
type DomainResolver struct {
	clearout      clearout.Client
	gate          Gate
	minConfidence float64

	// synthFallback turns unresolved names into a guessed <name>.com. Off
	// by default: the guesses are low quality.
	synthFallback bool
}

// NewDomainResolver creates a resolver over the Clearout client.
func NewDomainResolver(client clearout.Client, gate Gate, minConfidence float64, synthFallback bool) *DomainResolver {
	if minConfidence <= 0 {
		minConfidence = 50
	}
	return &DomainResolver{
		clearout:      client,
		gate:          gate,
		minConfidence: minConfidence,
		synthFallback: synthFallback,
	}
}

// Resolve returns the best-confidence domain for name, or found=false when
// no candidate clears the confidence threshold.
func (r *DomainResolver) Resolve(ctx context.Context, name string) (domain string, found bool, err error) {
	if _, err := r.gate.Acquire(ctx, "clearout"); err != nil {
		return "", false, err
	}

	resp, err := r.clearout.Autocomplete(ctx, name)
	if err != nil {
		return "", false, err
	}

	var best clearout.Match
	for _, m := range resp.Data {
		if m.Domain == "" || m.Confidence < r.minConfidence {
			continue
		}
		if m.Confidence > best.Confidence {
			best = m
		}
	}

	if best.Domain != "" {
		zap.L().Debug("domain resolved",
			zap.String("company", name),
			zap.String("domain", best.Domain),
			zap.Float64("confidence", best.Confidence),
		)
		return best.Domain, true, nil
	}

	if r.synthFallback {
		if synth := SynthesizeDomain(name); synth != "" {
			zap.L().Debug("domain synthesized", zap.String("company", name), zap.String("domain", synth))
			return synth, true, nil
		}
	}

	return "", false, nil
}

// SynthesizeDomain guesses <name>.com from a company name. Returns "" when
// nothing usable remains after normalization.
func SynthesizeDomain(name string) string {
	base := strings.ReplaceAll(memory.NormalizeCompany(name), " ", "")
	if base == "" {
		return ""
	}
	return base + ".com"
}
