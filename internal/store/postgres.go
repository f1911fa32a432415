package store

import (
	"context"
	"encoding/json"
	"errors"
	"time"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"
	"github.com/rotisserie/eris"

	"github.com/liac-group/outreach-cli/internal/db"
	"github.com/liac-group/outreach-cli/internal/model"
)

// PostgresStore implements Store using pgxpool.
type PostgresStore struct {
	pool    db.Pool
	closeFn func()
}

// PoolConfig holds optional connection pool tuning parameters.
type PoolConfig struct {
	MaxConns int32 `yaml:"max_conns" mapstructure:"max_conns"`
	MinConns int32 `yaml:"min_conns" mapstructure:"min_conns"`
}

// preparedStatements lists queries to prepare on each new connection for
// faster execution of the most frequently used store operations.
var preparedStatements = map[string]string{
	"insert_outcome":  `INSERT INTO stage_outcomes (id, batch_id, company, stage, success, error, detail, ts) VALUES ($1, $2, $3, $4, $5, $6, $7, $8)`,
	"upsert_summary":  `INSERT INTO company_summaries (batch_id, company, state, domain, linkedin_id, employee_bracket, blacklist_reason, contacts_found, campaign_id, error, updated_at) VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10, $11) ON CONFLICT (batch_id, company) DO UPDATE SET state = $3, domain = $4, linkedin_id = $5, employee_bracket = $6, blacklist_reason = $7, contacts_found = $8, campaign_id = $9, error = $10, updated_at = $11`,
	"get_batch":       `SELECT id, query, status, stats, created_at, updated_at FROM batches WHERE id = $1`,
	"update_status":   `UPDATE batches SET status = $1, updated_at = $2 WHERE id = $3`,
	"update_stats":    `UPDATE batches SET stats = $1, updated_at = $2 WHERE id = $3`,
	"get_campaign":    `SELECT campaign_id, enrolled_emails, outcome, created_at FROM campaign_records WHERE batch_id = $1 AND company = $2`,
	"upsert_campaign": `INSERT INTO campaign_records (batch_id, company, campaign_id, enrolled_emails, outcome, created_at) VALUES ($1, $2, $3, $4, $5, $6) ON CONFLICT (batch_id, company) DO UPDATE SET enrolled_emails = $4, outcome = $5`,
}

// NewPostgres creates a PostgresStore with a connection pool.
func NewPostgres(ctx context.Context, connString string, poolCfg *PoolConfig) (*PostgresStore, error) {
	pgxCfg, err := pgxpool.ParseConfig(connString)
	if err != nil {
		return nil, eris.Wrap(err, "postgres: parse config")
	}

	maxConns := int32(10)
	minConns := int32(2)
	if poolCfg != nil {
		if poolCfg.MaxConns > 0 {
			maxConns = poolCfg.MaxConns
		}
		if poolCfg.MinConns > 0 {
			minConns = poolCfg.MinConns
		}
	}
	pgxCfg.MaxConns = maxConns
	pgxCfg.MinConns = minConns
	pgxCfg.MaxConnLifetime = 30 * time.Minute
	pgxCfg.MaxConnIdleTime = 5 * time.Minute

	// Prepare frequently-used statements on each new connection.
	pgxCfg.AfterConnect = func(ctx context.Context, conn *pgx.Conn) error {
		for name, sql := range preparedStatements {
			if _, err := conn.Prepare(ctx, name, sql); err != nil {
				return eris.Wrapf(err, "postgres: prepare %s", name)
			}
		}
		return nil
	}

	pool, err := pgxpool.NewWithConfig(ctx, pgxCfg)
	if err != nil {
		return nil, eris.Wrap(err, "postgres: create pool")
	}
	if err := pool.Ping(ctx); err != nil {
		pool.Close()
		return nil, eris.Wrap(err, "postgres: ping")
	}
	return &PostgresStore{pool: pool, closeFn: pool.Close}, nil
}

// NewPostgresWithPool wraps an existing pool. Used by tests with pgxmock.
func NewPostgresWithPool(pool db.Pool) *PostgresStore {
	return &PostgresStore{pool: pool}
}

// Pool returns the underlying database pool for subsystems that need direct
// query access.
func (s *PostgresStore) Pool() db.Pool {
	return s.pool
}

const postgresMigration = `
CREATE TABLE IF NOT EXISTS batches (
	id         TEXT PRIMARY KEY,
	query      TEXT NOT NULL,
	status     TEXT NOT NULL DEFAULT 'processing',
	stats      JSONB NOT NULL DEFAULT '{}'::jsonb,
	created_at TIMESTAMPTZ NOT NULL DEFAULT now(),
	updated_at TIMESTAMPTZ NOT NULL DEFAULT now()
);

CREATE TABLE IF NOT EXISTS job_postings (
	id        TEXT PRIMARY KEY DEFAULT gen_random_uuid()::text,
	batch_id  TEXT NOT NULL REFERENCES batches(id),
	title     TEXT NOT NULL,
	company   TEXT NOT NULL,
	location  TEXT NOT NULL DEFAULT '',
	url       TEXT NOT NULL DEFAULT '',
	posted_at TIMESTAMPTZ,
	remote    BOOLEAN NOT NULL DEFAULT false,
	salary    TEXT NOT NULL DEFAULT ''
);

CREATE TABLE IF NOT EXISTS stage_outcomes (
	id       TEXT PRIMARY KEY,
	batch_id TEXT NOT NULL,
	company  TEXT NOT NULL,
	stage    TEXT NOT NULL,
	success  BOOLEAN NOT NULL,
	error    TEXT NOT NULL DEFAULT '',
	detail   JSONB,
	ts       TIMESTAMPTZ NOT NULL DEFAULT now()
);

CREATE TABLE IF NOT EXISTS company_summaries (
	batch_id         TEXT NOT NULL,
	company          TEXT NOT NULL,
	state            TEXT NOT NULL,
	domain           TEXT NOT NULL DEFAULT '',
	linkedin_id      TEXT NOT NULL DEFAULT '',
	employee_bracket TEXT NOT NULL DEFAULT '',
	blacklist_reason TEXT NOT NULL DEFAULT '',
	contacts_found   INTEGER NOT NULL DEFAULT 0,
	campaign_id      TEXT NOT NULL DEFAULT '',
	error            TEXT NOT NULL DEFAULT '',
	updated_at       TIMESTAMPTZ NOT NULL DEFAULT now(),
	PRIMARY KEY (batch_id, company)
);

CREATE TABLE IF NOT EXISTS contacts (
	id           TEXT PRIMARY KEY,
	batch_id     TEXT NOT NULL,
	company      TEXT NOT NULL,
	first_name   TEXT NOT NULL DEFAULT '',
	last_name    TEXT NOT NULL DEFAULT '',
	title        TEXT NOT NULL DEFAULT '',
	email        TEXT NOT NULL DEFAULT '',
	confidence   DOUBLE PRECISION NOT NULL DEFAULT 0,
	score        DOUBLE PRECISION NOT NULL DEFAULT 0,
	linkedin_url TEXT NOT NULL DEFAULT '',
	created_at   TIMESTAMPTZ NOT NULL DEFAULT now()
);

CREATE TABLE IF NOT EXISTS campaign_records (
	batch_id        TEXT NOT NULL,
	company         TEXT NOT NULL,
	campaign_id     TEXT NOT NULL,
	enrolled_emails JSONB NOT NULL DEFAULT '[]'::jsonb,
	outcome         TEXT NOT NULL DEFAULT '',
	created_at      TIMESTAMPTZ NOT NULL DEFAULT now(),
	PRIMARY KEY (batch_id, company)
);

CREATE INDEX IF NOT EXISTS idx_batches_status ON batches(status);
CREATE INDEX IF NOT EXISTS idx_job_postings_batch ON job_postings(batch_id);
CREATE INDEX IF NOT EXISTS idx_stage_outcomes_batch ON stage_outcomes(batch_id);
CREATE INDEX IF NOT EXISTS idx_stage_outcomes_company ON stage_outcomes(batch_id, company);
CREATE INDEX IF NOT EXISTS idx_contacts_batch ON contacts(batch_id);
CREATE INDEX IF NOT EXISTS idx_contacts_company ON contacts(batch_id, company);
`

func (s *PostgresStore) Ping(ctx context.Context) error {
	_, err := s.pool.Exec(ctx, "SELECT 1")
	return eris.Wrap(err, "postgres: ping")
}

func (s *PostgresStore) Migrate(ctx context.Context) error {
	_, err := s.pool.Exec(ctx, postgresMigration)
	return eris.Wrap(err, "postgres: migrate")
}

func (s *PostgresStore) Close() error {
	if s.closeFn != nil {
		s.closeFn()
	}
	return nil
}

func (s *PostgresStore) CreateBatch(ctx context.Context, query string) (*model.Batch, error) {
	id := uuid.New().String()
	now := time.Now().UTC()

	_, err := s.pool.Exec(ctx,
		`INSERT INTO batches (id, query, status, stats, created_at, updated_at) VALUES ($1, $2, $3, $4, $5, $6)`,
		id, query, string(model.BatchStatusProcessing), []byte("{}"), now, now,
	)
	if err != nil {
		return nil, eris.Wrap(err, "postgres: insert batch")
	}

	return &model.Batch{
		ID:        id,
		Query:     query,
		Status:    model.BatchStatusProcessing,
		CreatedAt: now,
		UpdatedAt: now,
	}, nil
}

func (s *PostgresStore) UpdateBatchStatus(ctx context.Context, batchID string, status model.BatchStatus) error {
	tag, err := s.pool.Exec(ctx,
		`UPDATE batches SET status = $1, updated_at = $2 WHERE id = $3`,
		string(status), time.Now().UTC(), batchID,
	)
	if err != nil {
		return eris.Wrapf(err, "postgres: update batch status %s", batchID)
	}
	if tag.RowsAffected() == 0 {
		return eris.Errorf("batch not found: %s", batchID)
	}
	return nil
}

func (s *PostgresStore) UpdateBatchStats(ctx context.Context, batchID string, stats model.BatchStats) error {
	statsJSON, err := json.Marshal(stats)
	if err != nil {
		return eris.Wrap(err, "postgres: marshal stats")
	}

	tag, err := s.pool.Exec(ctx,
		`UPDATE batches SET stats = $1, updated_at = $2 WHERE id = $3`,
		statsJSON, time.Now().UTC(), batchID,
	)
	if err != nil {
		return eris.Wrapf(err, "postgres: update batch stats %s", batchID)
	}
	if tag.RowsAffected() == 0 {
		return eris.Errorf("batch not found: %s", batchID)
	}
	return nil
}

func (s *PostgresStore) GetBatch(ctx context.Context, batchID string) (*model.Batch, error) {
	var b model.Batch
	var statsJSON []byte

	err := s.pool.QueryRow(ctx,
		`SELECT id, query, status, stats, created_at, updated_at FROM batches WHERE id = $1`,
		batchID,
	).Scan(&b.ID, &b.Query, &b.Status, &statsJSON, &b.CreatedAt, &b.UpdatedAt)
	if err != nil {
		return nil, eris.Wrapf(err, "postgres: get batch %s", batchID)
	}

	if len(statsJSON) > 0 {
		if err := json.Unmarshal(statsJSON, &b.Stats); err != nil {
			return nil, eris.Wrap(err, "postgres: unmarshal stats")
		}
	}
	return &b, nil
}

func (s *PostgresStore) ListBatches(ctx context.Context, limit int) ([]model.Batch, error) {
	if limit <= 0 {
		limit = 100
	}

	rows, err := s.pool.Query(ctx,
		`SELECT id, query, status, stats, created_at, updated_at FROM batches ORDER BY created_at DESC LIMIT $1`,
		limit,
	)
	if err != nil {
		return nil, eris.Wrap(err, "postgres: list batches")
	}
	defer rows.Close()

	var batches []model.Batch
	for rows.Next() {
		var b model.Batch
		var statsJSON []byte
		if err := rows.Scan(&b.ID, &b.Query, &b.Status, &statsJSON, &b.CreatedAt, &b.UpdatedAt); err != nil {
			return nil, eris.Wrap(err, "postgres: scan batch")
		}
		if len(statsJSON) > 0 {
			if err := json.Unmarshal(statsJSON, &b.Stats); err != nil {
				return nil, eris.Wrap(err, "postgres: unmarshal stats")
			}
		}
		batches = append(batches, b)
	}
	return batches, eris.Wrap(rows.Err(), "postgres: list batches iterate")
}

func (s *PostgresStore) SaveJobPostings(ctx context.Context, batchID string, jobs []model.JobPosting) error {
	rows := make([][]any, len(jobs))
	for i, j := range jobs {
		rows[i] = []any{batchID, j.Title, j.Company, j.Location, j.URL, j.PostedAt, j.Remote, j.Salary}
	}

	_, err := db.CopyFrom(ctx, s.pool, "job_postings",
		[]string{"batch_id", "title", "company", "location", "url", "posted_at", "remote", "salary"},
		rows,
	)
	return eris.Wrap(err, "postgres: save job postings")
}

func (s *PostgresStore) JobPostings(ctx context.Context, batchID string) ([]model.JobPosting, error) {
	rows, err := s.pool.Query(ctx,
		`SELECT title, company, location, url, posted_at, remote, salary FROM job_postings WHERE batch_id = $1`,
		batchID,
	)
	if err != nil {
		return nil, eris.Wrap(err, "postgres: job postings")
	}
	defer rows.Close()

	var jobs []model.JobPosting
	for rows.Next() {
		var j model.JobPosting
		var postedAt *time.Time
		if err := rows.Scan(&j.Title, &j.Company, &j.Location, &j.URL, &postedAt, &j.Remote, &j.Salary); err != nil {
			return nil, eris.Wrap(err, "postgres: scan job posting")
		}
		if postedAt != nil {
			j.PostedAt = *postedAt
		}
		jobs = append(jobs, j)
	}
	return jobs, eris.Wrap(rows.Err(), "postgres: job postings iterate")
}

func (s *PostgresStore) AppendStageOutcome(ctx context.Context, out model.StageOutcome) error {
	var detailJSON []byte
	if out.Detail != nil {
		var err error
		detailJSON, err = json.Marshal(out.Detail)
		if err != nil {
			return eris.Wrap(err, "postgres: marshal outcome detail")
		}
	}

	ts := out.Timestamp
	if ts.IsZero() {
		ts = time.Now().UTC()
	}

	_, err := s.pool.Exec(ctx,
		`INSERT INTO stage_outcomes (id, batch_id, company, stage, success, error, detail, ts) VALUES ($1, $2, $3, $4, $5, $6, $7, $8)`,
		uuid.New().String(), out.BatchID, out.Company, string(out.Stage), out.Success, out.Error, detailJSON, ts,
	)
	return eris.Wrap(err, "postgres: append stage outcome")
}

func (s *PostgresStore) StageOutcomes(ctx context.Context, batchID string) ([]model.StageOutcome, error) {
	rows, err := s.pool.Query(ctx,
		`SELECT batch_id, company, stage, success, error, detail, ts FROM stage_outcomes WHERE batch_id = $1 ORDER BY ts ASC`,
		batchID,
	)
	if err != nil {
		return nil, eris.Wrap(err, "postgres: stage outcomes")
	}
	defer rows.Close()

	var outs []model.StageOutcome
	for rows.Next() {
		var o model.StageOutcome
		var detailJSON []byte
		if err := rows.Scan(&o.BatchID, &o.Company, &o.Stage, &o.Success, &o.Error, &detailJSON, &o.Timestamp); err != nil {
			return nil, eris.Wrap(err, "postgres: scan stage outcome")
		}
		if len(detailJSON) > 0 {
			if err := json.Unmarshal(detailJSON, &o.Detail); err != nil {
				return nil, eris.Wrap(err, "postgres: unmarshal outcome detail")
			}
		}
		outs = append(outs, o)
	}
	return outs, eris.Wrap(rows.Err(), "postgres: stage outcomes iterate")
}

func (s *PostgresStore) UpsertCompanySummary(ctx context.Context, sum model.CompanySummary) error {
	_, err := s.pool.Exec(ctx,
		`INSERT INTO company_summaries (batch_id, company, state, domain, linkedin_id, employee_bracket, blacklist_reason, contacts_found, campaign_id, error, updated_at)
		 VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10, $11)
		 ON CONFLICT (batch_id, company) DO UPDATE SET state = $3, domain = $4, linkedin_id = $5, employee_bracket = $6, blacklist_reason = $7, contacts_found = $8, campaign_id = $9, error = $10, updated_at = $11`,
		sum.BatchID, sum.Company, string(sum.State), sum.Domain, sum.LinkedInID,
		string(sum.Bracket), string(sum.BlacklistReason), sum.ContactsFound,
		sum.CampaignID, sum.Error, time.Now().UTC(),
	)
	return eris.Wrap(err, "postgres: upsert company summary")
}

func (s *PostgresStore) CompanySummaries(ctx context.Context, batchID string) ([]model.CompanySummary, error) {
	rows, err := s.pool.Query(ctx,
		`SELECT batch_id, company, state, domain, linkedin_id, employee_bracket, blacklist_reason, contacts_found, campaign_id, error
		 FROM company_summaries WHERE batch_id = $1 ORDER BY company ASC`,
		batchID,
	)
	if err != nil {
		return nil, eris.Wrap(err, "postgres: company summaries")
	}
	defer rows.Close()

	var sums []model.CompanySummary
	for rows.Next() {
		var sum model.CompanySummary
		if err := rows.Scan(&sum.BatchID, &sum.Company, &sum.State, &sum.Domain, &sum.LinkedInID,
			&sum.Bracket, &sum.BlacklistReason, &sum.ContactsFound, &sum.CampaignID, &sum.Error); err != nil {
			return nil, eris.Wrap(err, "postgres: scan company summary")
		}
		sums = append(sums, sum)
	}
	return sums, eris.Wrap(rows.Err(), "postgres: company summaries iterate")
}

func (s *PostgresStore) SaveContacts(ctx context.Context, batchID string, contacts []model.Contact) error {
	rows := make([][]any, len(contacts))
	for i, c := range contacts {
		id := c.ID
		if id == "" {
			id = uuid.New().String()
		}
		createdAt := c.CreatedAt
		if createdAt.IsZero() {
			createdAt = time.Now().UTC()
		}
		rows[i] = []any{id, batchID, c.Company, c.FirstName, c.LastName, c.Title, c.Email, c.Confidence, c.Score, c.LinkedInURL, createdAt}
	}

	// Re-runs may rediscover the same contact IDs; the upsert keeps them
	// single-rowed.
	_, err := db.BulkUpsert(ctx, s.pool, db.UpsertConfig{
		Table:        "contacts",
		Columns:      []string{"id", "batch_id", "company", "first_name", "last_name", "title", "email", "confidence", "score", "linkedin_url", "created_at"},
		ConflictKeys: []string{"id"},
	}, rows)
	return eris.Wrap(err, "postgres: save contacts")
}

func (s *PostgresStore) ContactsByBatch(ctx context.Context, batchID string) ([]model.Contact, error) {
	rows, err := s.pool.Query(ctx,
		`SELECT id, company, first_name, last_name, title, email, confidence, score, linkedin_url, created_at
		 FROM contacts WHERE batch_id = $1 ORDER BY company ASC, score DESC`,
		batchID,
	)
	if err != nil {
		return nil, eris.Wrap(err, "postgres: contacts by batch")
	}
	defer rows.Close()

	var contacts []model.Contact
	for rows.Next() {
		var c model.Contact
		if err := rows.Scan(&c.ID, &c.Company, &c.FirstName, &c.LastName, &c.Title, &c.Email,
			&c.Confidence, &c.Score, &c.LinkedInURL, &c.CreatedAt); err != nil {
			return nil, eris.Wrap(err, "postgres: scan contact")
		}
		contacts = append(contacts, c)
	}
	return contacts, eris.Wrap(rows.Err(), "postgres: contacts iterate")
}

func (s *PostgresStore) CampaignRecord(ctx context.Context, batchID, company string) (*model.CampaignRecord, bool, error) {
	var rec model.CampaignRecord
	var emailsJSON []byte

	err := s.pool.QueryRow(ctx,
		`SELECT campaign_id, enrolled_emails, outcome, created_at FROM campaign_records WHERE batch_id = $1 AND company = $2`,
		batchID, company,
	).Scan(&rec.CampaignID, &emailsJSON, &rec.Outcome, &rec.CreatedAt)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, false, nil
		}
		return nil, false, eris.Wrap(err, "postgres: get campaign record")
	}

	rec.BatchID = batchID
	rec.Company = company
	if len(emailsJSON) > 0 {
		if err := json.Unmarshal(emailsJSON, &rec.EnrolledEmails); err != nil {
			return nil, false, eris.Wrap(err, "postgres: unmarshal enrolled emails")
		}
	}
	return &rec, true, nil
}

func (s *PostgresStore) SaveCampaignRecord(ctx context.Context, rec model.CampaignRecord) error {
	emailsJSON, err := json.Marshal(rec.EnrolledEmails)
	if err != nil {
		return eris.Wrap(err, "postgres: marshal enrolled emails")
	}

	createdAt := rec.CreatedAt
	if createdAt.IsZero() {
		createdAt = time.Now().UTC()
	}

	_, err = s.pool.Exec(ctx,
		`INSERT INTO campaign_records (batch_id, company, campaign_id, enrolled_emails, outcome, created_at)
		 VALUES ($1, $2, $3, $4, $5, $6)
		 ON CONFLICT (batch_id, company) DO UPDATE SET enrolled_emails = $4, outcome = $5`,
		rec.BatchID, rec.Company, rec.CampaignID, emailsJSON, rec.Outcome, createdAt,
	)
	return eris.Wrap(err, "postgres: save campaign record")
}
