// Package contacts finds outreach-ready decision makers at a qualified
// company: LinkedIn people ranked by title authority, then email addresses
// resolved and filtered through Hunter.
package contacts

import (
	"context"
	"sort"
	"strings"
	"time"

	"github.com/google/uuid"
	"go.uber.org/zap"

	"github.com/liac-group/outreach-cli/internal/model"
	"github.com/liac-group/outreach-cli/pkg/hunter"
	"github.com/liac-group/outreach-cli/pkg/linkedin"
)

// Gate paces outbound provider calls. Satisfied by ratelimit.Limiter.
type Gate interface {
	Acquire(ctx context.Context, providerKey string) (time.Time, error)
}

// titleWeights rank decision-making authority. First match wins, so the
// strongest signals come first.
var titleWeights = []struct {
	keywords []string
	weight   float64
}{
	{[]string{"chief", "cto", "ceo", "coo", "founder"}, 10},
	{[]string{"vp", "vice president"}, 8},
	{[]string{"director", "head"}, 6},
	{[]string{"manager", "lead", "principal"}, 4},
	{[]string{"senior", "sr"}, 2},
}

// TitleScore returns the decision-maker weight for a job title, 0 when the
// title carries no authority signal.
func TitleScore(title string) float64 {
	t := strings.ToLower(title)
	for _, tw := range titleWeights {
		for _, kw := range tw.keywords {
			if strings.Contains(t, kw) {
				return tw.weight
			}
		}
	}
	return 0
}

// genericPrefixes are mailbox names that never belong to a person.
var genericPrefixes = map[string]struct{}{
	"info": {}, "hello": {}, "contact": {}, "support": {}, "help": {},
	"admin": {}, "webmaster": {}, "postmaster": {}, "abuse": {},
	"security": {}, "noreply": {}, "no-reply": {}, "donotreply": {},
	"mail": {}, "email": {}, "sales": {}, "marketing": {}, "press": {},
	"media": {}, "pr": {}, "hr": {}, "jobs": {}, "careers": {},
	"recruiting": {}, "talent": {}, "hiring": {}, "apply": {},
	"feedback": {}, "billing": {}, "accounts": {}, "finance": {},
	"legal": {}, "privacy": {}, "office": {}, "reception": {},
	"team": {}, "general": {}, "main": {},
}

var fakePatterns = []string{"test", "demo", "example", "sample", "fake", "dummy"}

// personalMailbox reports whether the address plausibly belongs to a real
// person rather than a shared mailbox.
func personalMailbox(email string) bool {
	at := strings.IndexByte(email, '@')
	if at <= 0 {
		return false
	}
	user := strings.ToLower(email[:at])

	if _, ok := genericPrefixes[user]; ok {
		return false
	}
	if len(user) < 3 {
		return false
	}
	if strings.Trim(user, "0123456789") == "" {
		return false
	}
	for _, p := range fakePatterns {
		if strings.Contains(user, p) {
			return false
		}
	}
	return true
}

// Discoverer finds contacts for one company at a time.
type Discoverer struct {
	linkedin linkedin.Client
	hunter   hunter.Client
	gate     Gate

	minScore float64
	topK     int
	maxPages int
	verify   bool

	now func() time.Time
}

// Config tunes a Discoverer.
type Config struct {
	MinDecisionMakerScore float64 // title weight floor for LinkedIn prospects
	TopContacts           int
	MaxPeoplePages        int
	VerifyEmails          bool
}

// New creates a Discoverer over the LinkedIn and Hunter clients.
func New(li linkedin.Client, hc hunter.Client, gate Gate, cfg Config) *Discoverer {
	if cfg.MinDecisionMakerScore <= 0 {
		cfg.MinDecisionMakerScore = 4
	}
	if cfg.TopContacts <= 0 {
		cfg.TopContacts = 3
	}
	if cfg.MaxPeoplePages <= 0 {
		cfg.MaxPeoplePages = 3
	}
	return &Discoverer{
		linkedin: li,
		hunter:   hc,
		gate:     gate,
		minScore: cfg.MinDecisionMakerScore,
		topK:     cfg.TopContacts,
		maxPages: cfg.MaxPeoplePages,
		verify:   cfg.VerifyEmails,
		now:      time.Now,
	}
}

// Discover returns the top contacts for the company, best first. An empty
// slice is a valid outcome: a company with no reachable decision makers is
// done, not failed. linkedInID and domain may each be empty, skipping the
// corresponding phase.
func (d *Discoverer) Discover(ctx context.Context, company, linkedInID, domain string) ([]model.Contact, error) {
	prospects, err := d.decisionMakers(ctx, linkedInID)
	if err != nil {
		return nil, err
	}

	contacts, err := d.resolveEmails(ctx, company, domain, prospects)
	if err != nil {
		return nil, err
	}

	// Prospects whose email never resolved still rank on title alone.
	matched := make(map[string]struct{}, len(contacts))
	for _, c := range contacts {
		matched[nameKey(c.FullName())] = struct{}{}
	}
	for _, p := range prospects {
		if _, ok := matched[nameKey(p.Name)]; ok {
			continue
		}
		contacts = append(contacts, model.Contact{
			ID:          uuid.NewString(),
			Company:     company,
			FirstName:   firstName(p.Name),
			LastName:    lastName(p.Name),
			Title:       p.Title,
			Score:       combinedScore(TitleScore(p.Title), 0),
			LinkedInURL: p.URL,
			CreatedAt:   d.now(),
		})
	}

	sortContacts(contacts)
	if len(contacts) > d.topK {
		contacts = contacts[:d.topK]
	}

	zap.L().Info("contacts discovered",
		zap.String("company", company),
		zap.Int("prospects", len(prospects)),
		zap.Int("contacts", len(contacts)),
	)
	return contacts, nil
}

// decisionMakers pages through company employees keeping titles at or above
// the score floor.
func (d *Discoverer) decisionMakers(ctx context.Context, linkedInID string) ([]linkedin.Person, error) {
	if linkedInID == "" {
		return nil, nil
	}

	var prospects []linkedin.Person
	for page := 1; page <= d.maxPages; page++ {
		if _, err := d.gate.Acquire(ctx, "linkedin"); err != nil {
			return nil, err
		}
		people, err := d.linkedin.CompanyPeople(ctx, linkedInID, page)
		if err != nil {
			return nil, err
		}
		if len(people) == 0 {
			break
		}
		for _, p := range people {
			if TitleScore(p.Title) >= d.minScore {
				prospects = append(prospects, p)
			}
		}
	}
	return prospects, nil
}

// resolveEmails queries Hunter for senior and executive addresses on the
// domain, drops shared mailboxes, and blends title weight with Hunter's
// confidence. Prospect LinkedIn URLs are carried over on a name match.
func (d *Discoverer) resolveEmails(ctx context.Context, company, domain string, prospects []linkedin.Person) ([]model.Contact, error) {
	if domain == "" {
		return nil, nil
	}

	if _, err := d.gate.Acquire(ctx, "hunter"); err != nil {
		return nil, err
	}
	res, err := d.hunter.DomainSearch(ctx, hunter.DomainSearchRequest{
		Domain:    domain,
		Limit:     10,
		Seniority: "senior,executive",
	})
	if err != nil {
		return nil, err
	}

	byName := make(map[string]linkedin.Person, len(prospects))
	for _, p := range prospects {
		byName[nameKey(p.Name)] = p
	}

	var contacts []model.Contact
	for _, e := range res.Emails {
		if e.Value == "" || e.Type == "generic" || !personalMailbox(e.Value) {
			zap.L().Debug("filtered mailbox", zap.String("email", e.Value))
			continue
		}

		if d.verify {
			ok, err := d.verifyEmail(ctx, e.Value)
			if err != nil {
				return nil, err
			}
			if !ok {
				continue
			}
		}

		c := model.Contact{
			ID:          uuid.NewString(),
			Company:     company,
			FirstName:   e.FirstName,
			LastName:    e.LastName,
			Title:       e.Position,
			Email:       e.Value,
			Confidence:  float64(e.Confidence),
			Score:       combinedScore(TitleScore(e.Position), float64(e.Confidence)),
			LinkedInURL: e.LinkedIn,
			CreatedAt:   d.now(),
		}
		if p, ok := byName[nameKey(e.FirstName+" "+e.LastName)]; ok {
			if c.Title == "" {
				c.Title = p.Title
				c.Score = combinedScore(TitleScore(p.Title), float64(e.Confidence))
			}
			if c.LinkedInURL == "" {
				c.LinkedInURL = p.URL
			}
		}
		contacts = append(contacts, c)
	}
	return contacts, nil
}

func (d *Discoverer) verifyEmail(ctx context.Context, email string) (bool, error) {
	if _, err := d.gate.Acquire(ctx, "hunter"); err != nil {
		return false, err
	}
	v, err := d.hunter.VerifyEmail(ctx, email)
	if err != nil {
		return false, err
	}
	if v.Status == "invalid" || v.Result == "undeliverable" {
		zap.L().Debug("undeliverable address dropped", zap.String("email", email))
		return false, nil
	}
	return true, nil
}

// combinedScore blends normalized title weight with provider confidence.
// Title dominates: a confident address for a nobody is still a nobody.
func combinedScore(titleWeight, confidence float64) float64 {
	return 0.6*(titleWeight/10) + 0.4*(confidence/100)
}

func sortContacts(contacts []model.Contact) {
	sort.SliceStable(contacts, func(i, j int) bool {
		return contacts[i].Score > contacts[j].Score
	})
}

func nameKey(name string) string {
	return strings.ToLower(strings.Join(strings.Fields(name), " "))
}

func firstName(full string) string {
	parts := strings.Fields(full)
	if len(parts) == 0 {
		return ""
	}
	return parts[0]
}

func lastName(full string) string {
	parts := strings.Fields(full)
	if len(parts) < 2 {
		return ""
	}
	return strings.Join(parts[1:], " ")
}
