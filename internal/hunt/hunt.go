package hunt

import (
	"context"
	"time"

	"github.com/rotisserie/eris"
	"go.uber.org/zap"

	"github.com/liac-group/outreach-cli/internal/model"
	"github.com/liac-group/outreach-cli/internal/store"
	"github.com/liac-group/outreach-cli/pkg/jobsearch"
)

// BatchProcessor runs a batch's postings through the pipeline. Satisfied by
// pipeline.Orchestrator.
type BatchProcessor interface {
	Run(ctx context.Context, batchID string, jobs []model.JobPosting, opts model.Options) (model.BatchStats, error)
}

// Runner executes one hunt end to end.
type Runner struct {
	search jobsearch.Client
	parser *Parser
	store  store.Store
	orch   BatchProcessor
	gate   Gate

	sites []string
}

// NewRunner creates a hunt runner. sites overrides the boards searched when
// the parsed query names none; nil keeps the parser's default.
func NewRunner(search jobsearch.Client, parser *Parser, st store.Store, orch BatchProcessor, gate Gate, sites []string) *Runner {
	return &Runner{
		search: search,
		parser: parser,
		store:  st,
		orch:   orch,
		gate:   gate,
		sites:  sites,
	}
}

// Hunt parses rawQuery, searches the job boards, persists the postings and
// processes the batch. The batch record exists even when the search fails,
// carrying the failed status.
func (r *Runner) Hunt(ctx context.Context, rawQuery string, opts model.Options) (*model.Batch, model.BatchStats, error) {
	q := r.parser.Parse(ctx, rawQuery)
	if len(r.sites) > 0 {
		q.Sites = r.sites
	}
	if opts.HoursOld > 0 && q.HoursOld == 0 {
		q.HoursOld = opts.HoursOld
	}

	batch, err := r.store.CreateBatch(ctx, rawQuery)
	if err != nil {
		return nil, model.BatchStats{}, eris.Wrap(err, "creating batch")
	}

	jobs, err := r.searchJobs(ctx, q)
	if err != nil {
		if serr := r.store.UpdateBatchStatus(context.WithoutCancel(ctx), batch.ID, model.BatchStatusFailed); serr != nil {
			zap.L().Error("marking batch failed", zap.String("batch_id", batch.ID), zap.Error(serr))
		}
		return batch, model.BatchStats{}, eris.Wrap(err, "searching jobs")
	}

	if err := r.store.SaveJobPostings(ctx, batch.ID, jobs); err != nil {
		return batch, model.BatchStats{}, eris.Wrap(err, "saving job postings")
	}

	zap.L().Info("hunt search complete",
		zap.String("batch_id", batch.ID),
		zap.String("search_term", q.SearchTerm),
		zap.Int("jobs", len(jobs)),
	)

	stats, err := r.orch.Run(ctx, batch.ID, jobs, opts)
	return batch, stats, err
}

func (r *Runner) searchJobs(ctx context.Context, q Query) ([]model.JobPosting, error) {
	if _, err := r.gate.Acquire(ctx, "jobsearch"); err != nil {
		return nil, err
	}

	resp, err := r.search.Search(ctx, jobsearch.SearchRequest{
		SearchTerm:    q.SearchTerm,
		Location:      q.Location,
		Sites:         q.Sites,
		ResultsWanted: q.ResultsWanted,
		HoursOld:      q.HoursOld,
		IsRemote:      q.IsRemote,
	})
	if err != nil {
		return nil, err
	}

	jobs := make([]model.JobPosting, 0, len(resp.Jobs))
	for _, j := range resp.Jobs {
		jobs = append(jobs, model.JobPosting{
			Title:    j.Title,
			Company:  j.Company,
			Location: j.Location,
			URL:      j.JobURL,
			PostedAt: parsePostedAt(j.DatePosted),
			Remote:   j.IsRemote,
			Salary:   j.Salary,
		})
	}
	return jobs, nil
}

// parsePostedAt accepts the date formats the boards actually send. Unparsable
// dates become the zero time rather than an error.
func parsePostedAt(s string) time.Time {
	for _, layout := range []string{time.RFC3339, "2006-01-02", "2006-01-02 15:04:05"} {
		if t, err := time.Parse(layout, s); err == nil {
			return t
		}
	}
	return time.Time{}
}
