// Package campaign enrolls discovered contacts into Instantly outreach
// campaigns. Campaigns are created in draft status and never launched from
// here. Dispatch is idempotent per (batch, company): re-dispatch reuses the
// recorded campaign and enrolls only addresses not yet in it.
package campaign

import (
	"context"
	"strings"
	"sync/atomic"
	"time"

	"go.uber.org/zap"

	"github.com/liac-group/outreach-cli/internal/model"
	"github.com/liac-group/outreach-cli/pkg/instantly"
)

// Gate paces outbound provider calls. Satisfied by ratelimit.Limiter.
type Gate interface {
	Acquire(ctx context.Context, providerKey string) (time.Time, error)
}

// RecordStore persists campaign records. Satisfied by store.Store.
type RecordStore interface {
	CampaignRecord(ctx context.Context, batchID, company string) (*model.CampaignRecord, bool, error)
	SaveCampaignRecord(ctx context.Context, rec model.CampaignRecord) error
}

// Dispatcher creates campaigns and enrolls leads.
type Dispatcher struct {
	instantly instantly.Client
	records   RecordStore
	gate      Gate
	tmpl      Template
	senders   []string

	nextSender atomic.Uint64
	now        func() time.Time
}

// New creates a Dispatcher. senders are rotated round-robin across campaigns;
// an empty list leaves sender selection to the provider.
func New(client instantly.Client, records RecordStore, gate Gate, tmpl Template, senders []string) *Dispatcher {
	return &Dispatcher{
		instantly: client,
		records:   records,
		gate:      gate,
		tmpl:      tmpl,
		senders:   senders,
		now:       time.Now,
	}
}

// Dispatch enrolls the company's contacts into its campaign, creating the
// campaign on first dispatch. Contacts without an email address are skipped.
// Returns nil when no contact is enrollable.
func (d *Dispatcher) Dispatch(ctx context.Context, batchID string, co *model.Company, contacts []model.Contact) (*model.CampaignRecord, error) {
	enrollable := make([]model.Contact, 0, len(contacts))
	for _, c := range contacts {
		if c.Email != "" {
			enrollable = append(enrollable, c)
		}
	}
	if len(enrollable) == 0 {
		zap.L().Info("no enrollable contacts", zap.String("company", co.Name))
		return nil, nil
	}

	jobTitle := ""
	if len(co.Jobs) > 0 {
		jobTitle = co.Jobs[0].Title
	}

	rec, found, err := d.records.CampaignRecord(ctx, batchID, co.Key)
	if err != nil {
		return nil, err
	}
	if !found {
		created, err := d.createCampaign(ctx, batchID, co, jobTitle)
		if err != nil {
			return nil, err
		}
		rec = created
	}

	leads := make([]instantly.Lead, 0, len(enrollable))
	for _, c := range enrollable {
		if rec.Enrolled(c.Email) {
			continue
		}
		leads = append(leads, instantly.Lead{
			Email:     c.Email,
			FirstName: c.FirstName,
			LastName:  c.LastName,
			Company:   co.Name,
			JobTitle:  c.Title,
			CustomFields: map[string]string{
				"open_role": jobTitle,
			},
		})
	}

	if len(leads) > 0 {
		if _, err := d.gate.Acquire(ctx, "instantly"); err != nil {
			return nil, err
		}
		res, err := d.instantly.AddLeads(ctx, rec.CampaignID, leads)
		if err != nil {
			return nil, err
		}
		for _, l := range leads {
			rec.EnrolledEmails = append(rec.EnrolledEmails, l.Email)
		}
		zap.L().Info("leads enrolled",
			zap.String("company", co.Name),
			zap.String("campaign_id", rec.CampaignID),
			zap.Int("added", res.AddedCount),
			zap.Int("skipped", res.SkippedCount),
		)
	}

	rec.Outcome = "enrolled"
	if err := d.records.SaveCampaignRecord(ctx, *rec); err != nil {
		return nil, err
	}
	return rec, nil
}

func (d *Dispatcher) createCampaign(ctx context.Context, batchID string, co *model.Company, jobTitle string) (*model.CampaignRecord, error) {
	sender := d.pickSender()
	subject, body := d.tmpl.Render(map[string]string{
		"company":     co.Name,
		"job_title":   jobTitle,
		"first_name":  "{{first_name}}", // resolved per lead by the provider
		"sender_name": senderName(sender),
	})

	if _, err := d.gate.Acquire(ctx, "instantly"); err != nil {
		return nil, err
	}
	campaign, err := d.instantly.CreateCampaign(ctx, instantly.CreateCampaignRequest{
		Name:            "Outreach - " + co.Name + " - " + shortID(batchID),
		SubjectLine:     subject,
		MessageTemplate: body,
		SenderEmail:     sender,
		SenderName:      senderName(sender),
	})
	if err != nil {
		return nil, err
	}

	zap.L().Info("campaign created",
		zap.String("company", co.Name),
		zap.String("campaign_id", campaign.ID),
		zap.String("sender", sender),
	)
	return &model.CampaignRecord{
		CampaignID: campaign.ID,
		BatchID:    batchID,
		Company:    co.Key,
		CreatedAt:  d.now(),
	}, nil
}

func (d *Dispatcher) pickSender() string {
	if len(d.senders) == 0 {
		return ""
	}
	n := d.nextSender.Add(1) - 1
	return d.senders[n%uint64(len(d.senders))]
}

// senderName derives a display name from the mailbox part of an address.
func senderName(email string) string {
	at := strings.IndexByte(email, '@')
	if at <= 0 {
		return ""
	}
	parts := strings.FieldsFunc(email[:at], func(r rune) bool {
		return r == '.' || r == '_' || r == '-'
	})
	for i, p := range parts {
		if p != "" {
			parts[i] = strings.ToUpper(p[:1]) + p[1:]
		}
	}
	return strings.Join(parts, " ")
}

func shortID(id string) string {
	if len(id) > 8 {
		return id[:8]
	}
	return id
}
