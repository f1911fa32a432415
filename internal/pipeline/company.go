package pipeline

import (
	"context"

	"go.uber.org/zap"

	"github.com/liac-group/outreach-cli/internal/analyze"
	"github.com/liac-group/outreach-cli/internal/memory"
	"github.com/liac-group/outreach-cli/internal/model"
	"github.com/liac-group/outreach-cli/internal/resolve"
)

// FilterSalaried drops postings that carry no salary text.
func FilterSalaried(jobs []model.JobPosting) []model.JobPosting {
	kept := make([]model.JobPosting, 0, len(jobs))
	for _, j := range jobs {
		if j.HasSalary() {
			kept = append(kept, j)
		}
	}
	return kept
}

// GroupCompanies buckets postings by normalized company name, preserving
// first-appearance order. Postings with an empty company name are dropped.
func GroupCompanies(jobs []model.JobPosting) []*model.Company {
	byKey := make(map[string]*model.Company)
	var ordered []*model.Company
	for _, j := range jobs {
		key := memory.NormalizeCompany(j.Company)
		if key == "" {
			continue
		}
		co, ok := byKey[key]
		if !ok {
			co = &model.Company{Name: j.Company, Key: key, State: model.StateNew}
			byKey[key] = co
			ordered = append(ordered, co)
		}
		co.Jobs = append(co.Jobs, j)
	}
	return ordered
}

// claimedUnit is one (company, title) unit this worker owns.
type claimedUnit struct {
	fp  string
	job model.JobPosting
}

// claimUnits tries to claim every posting of the company. Units already in
// flight or already complete are skipped silently; claim-store errors skip
// the unit with a warning rather than failing the company.
func (o *Orchestrator) claimUnits(ctx context.Context, batchID string, co *model.Company) (claimed []claimedUnit, duplicates int) {
	for _, job := range co.Jobs {
		fp := o.deps.Claims.FingerprintFor(batchID, co.Name, job.Title)
		status, err := o.deps.Claims.TryClaim(ctx, fp)
		if err != nil {
			zap.L().Warn("unit claim failed",
				zap.String("company", co.Key),
				zap.String("title", job.Title),
				zap.Error(err),
			)
			continue
		}
		if status != memory.Claimed {
			duplicates++
			continue
		}
		claimed = append(claimed, claimedUnit{fp: fp, job: job})
	}
	return claimed, duplicates
}

// processCompany runs one company through the state machine. Returned errors
// are store failures only; everything else lands in the summary and outcome
// rows.
func (o *Orchestrator) processCompany(ctx context.Context, batchID string, co *model.Company, opts model.Options, rs *runState) error {
	claimed, duplicates := o.claimUnits(ctx, batchID, co)
	if duplicates > 0 {
		rs.bump(func(s *model.BatchStats) { s.DuplicatesSkipped += duplicates })
	}
	if len(claimed) == 0 {
		zap.L().Debug("company skipped, all units claimed elsewhere", zap.String("company", co.Key))
		return nil
	}

	summary := model.CompanySummary{BatchID: batchID, Company: co.Key}

	// Record keeping must outlive cancellation: a cancelled company still
	// gets its summary row and its claims released.
	finCtx := context.WithoutCancel(ctx)

	finish := func() error {
		summary.State = co.State
		if err := o.deps.Store.UpsertCompanySummary(finCtx, summary); err != nil {
			return storeFailure(err, "saving company summary", co.Key)
		}
		switch co.State {
		case model.StateFailed, model.StateCancelled:
			for _, u := range claimed {
				if err := o.deps.Claims.Release(finCtx, u.fp); err != nil {
					zap.L().Warn("releasing claim", zap.String("company", co.Key), zap.Error(err))
				}
			}
		default:
			for _, u := range claimed {
				if err := o.deps.Claims.Complete(finCtx, u.fp, string(co.State)); err != nil {
					zap.L().Warn("completing claim", zap.String("company", co.Key), zap.Error(err))
				}
			}
		}
		if co.State != model.StateCancelled {
			for _, u := range claimed {
				rs.emit(model.UnitResult{
					BatchID:         batchID,
					Company:         co.Key,
					JobTitle:        u.job.Title,
					StageReached:    co.State,
					Blacklisted:     co.State == model.StateBlacklisted,
					BlacklistReason: summary.BlacklistReason,
					ContactsFound:   summary.ContactsFound,
					CampaignID:      summary.CampaignID,
				})
			}
		}
		return nil
	}

	fail := func(stageErr error) error {
		if isCanceled(ctx, stageErr) {
			co.State = model.StateCancelled
			return finish()
		}
		co.State = model.StateFailed
		summary.Error = stageErr.Error()
		rs.bump(func(s *model.BatchStats) { s.CompaniesFailed++ })
		return finish()
	}

	// Blacklist gate runs before any provider call.
	listed, entry, err := o.deps.Blacklist.IsBlacklisted(ctx, co.Name)
	if err != nil {
		zap.L().Warn("blacklist lookup failed, proceeding", zap.String("company", co.Key), zap.Error(err))
	}
	if listed {
		co.State = model.StateBlacklisted
		summary.BlacklistReason = entry.Reason
		rs.bump(func(s *model.BatchStats) { s.CompaniesBlacklisted++ })
		return finish()
	}

	// Stage: domain.
	stageErr := o.runStage(ctx, batchID, co.Key, model.StageDomain, func(ctx context.Context) (map[string]any, error) {
		domain, found, err := o.deps.Domains.Resolve(ctx, co.Name)
		if err != nil {
			return nil, err
		}
		if found {
			co.Domain = domain
		}
		return map[string]any{"domain": domain, "found": found}, nil
	})
	if stageErr != nil {
		if isStoreError(stageErr) {
			return stageErr
		}
		return fail(stageErr)
	}
	co.State = model.StateDomainResolved
	summary.Domain = co.Domain

	// Stage: identity. Not-found is a value; analysis can still classify by
	// name alone.
	var ident resolve.Identity
	stageErr = o.runStage(ctx, batchID, co.Key, model.StageIdentity, func(ctx context.Context) (map[string]any, error) {
		id, found, err := o.deps.Identities.Resolve(ctx, co.Name, co.Domain)
		if err != nil {
			return nil, err
		}
		if found {
			ident = id
			co.LinkedInID = id.LinkedInID
		}
		return map[string]any{"linkedin_id": co.LinkedInID, "found": found}, nil
	})
	if stageErr != nil {
		if isStoreError(stageErr) {
			return stageErr
		}
		return fail(stageErr)
	}
	co.State = model.StateIdentityResolved
	summary.LinkedInID = co.LinkedInID

	// Stage: analyze.
	var res analyze.Result
	stageErr = o.runStage(ctx, batchID, co.Key, model.StageAnalyze, func(ctx context.Context) (map[string]any, error) {
		r, err := o.deps.Analyzer.Analyze(ctx, co.Name, co.LinkedInID, ident.EmployeeCount)
		if err != nil {
			return nil, err
		}
		res = r
		return map[string]any{"bracket": string(r.Bracket), "blacklist": string(r.Blacklist)}, nil
	})
	if stageErr != nil {
		if isStoreError(stageErr) {
			return stageErr
		}
		return fail(stageErr)
	}
	co.Bracket = res.Bracket
	co.HasTATeam = res.HasTATeam
	co.State = model.StateAnalyzed
	summary.Bracket = co.Bracket

	if res.Blacklist != "" {
		if err := o.deps.Blacklist.Add(finCtx, co.Name, res.Blacklist, res.Detail); err != nil {
			zap.L().Warn("recording blacklist entry", zap.String("company", co.Key), zap.Error(err))
		}
		co.State = model.StateBlacklisted
		summary.BlacklistReason = res.Blacklist
		rs.bump(func(s *model.BatchStats) { s.CompaniesBlacklisted++ })
		return finish()
	}
	co.State = model.StateQualified

	// Stage: contacts.
	var found []model.Contact
	stageErr = o.runStage(ctx, batchID, co.Key, model.StageContacts, func(ctx context.Context) (map[string]any, error) {
		contacts, err := o.deps.Contacts.Discover(ctx, co.Name, co.LinkedInID, co.Domain)
		if err != nil {
			return nil, err
		}
		found = contacts
		return map[string]any{"contacts": len(contacts)}, nil
	})
	if stageErr != nil {
		if isStoreError(stageErr) {
			return stageErr
		}
		return fail(stageErr)
	}
	summary.ContactsFound = len(found)
	if len(found) > 0 {
		co.State = model.StateContactsFound
		if err := o.deps.Store.SaveContacts(finCtx, batchID, found); err != nil {
			return storeFailure(err, "saving contacts", co.Key)
		}
		rs.bump(func(s *model.BatchStats) { s.ContactsFound += len(found) })
	}

	// Stage: campaign. Zero contacts is a valid terminal outcome.
	if opts.CreateCampaigns && len(found) > 0 {
		var rec *model.CampaignRecord
		stageErr = o.runStage(ctx, batchID, co.Key, model.StageCampaign, func(ctx context.Context) (map[string]any, error) {
			r, err := o.deps.Campaigns.Dispatch(ctx, batchID, co, found)
			if err != nil {
				return nil, err
			}
			rec = r
			detail := map[string]any{"enrolled": 0}
			if r != nil {
				detail["enrolled"] = len(r.EnrolledEmails)
				detail["campaign_id"] = r.CampaignID
			}
			return detail, nil
		})
		if stageErr != nil {
			if isStoreError(stageErr) {
				return stageErr
			}
			return fail(stageErr)
		}
		if rec != nil {
			summary.CampaignID = rec.CampaignID
			co.State = model.StateCampaignCreated
			rs.bump(func(s *model.BatchStats) { s.CampaignsCreated++ })
		} else {
			co.State = model.StateDone
		}
	} else {
		co.State = model.StateDone
	}

	// Processed companies go on the blacklist so later batches skip them even
	// for job titles the fingerprints have not seen.
	if err := o.deps.Blacklist.Add(finCtx, co.Name, model.ReasonAlreadyProcessed, "processed in batch "+batchID); err != nil {
		zap.L().Warn("recording processed company", zap.String("company", co.Key), zap.Error(err))
	}

	rs.bump(func(s *model.BatchStats) { s.CompaniesProcessed++ })
	return finish()
}
