package store

import (
	"context"
	"database/sql"
	"encoding/json"
	"errors"
	"time"

	"github.com/google/uuid"
	"github.com/rotisserie/eris"
	_ "modernc.org/sqlite"

	"github.com/liac-group/outreach-cli/internal/model"
)

// SQLiteStore implements Store using modernc.org/sqlite.
type SQLiteStore struct {
	db *sql.DB
}

// NewSQLite opens a SQLite database at the given path and configures WAL mode.
func NewSQLite(dsn string) (*SQLiteStore, error) {
	db, err := sql.Open("sqlite", dsn)
	if err != nil {
		return nil, eris.Wrap(err, "sqlite: open")
	}
	for _, pragma := range []string{
		"PRAGMA journal_mode=WAL",
		"PRAGMA busy_timeout=5000",
		"PRAGMA synchronous=NORMAL",
	} {
		if _, err := db.Exec(pragma); err != nil {
			db.Close()
			return nil, eris.Wrapf(err, "sqlite: exec %s", pragma)
		}
	}
	return &SQLiteStore{db: db}, nil
}

const sqliteMigration = `
CREATE TABLE IF NOT EXISTS batches (
	id         TEXT PRIMARY KEY,
	query      TEXT NOT NULL,
	status     TEXT NOT NULL DEFAULT 'processing',
	stats      TEXT NOT NULL DEFAULT '{}',
	created_at DATETIME NOT NULL DEFAULT (datetime('now')),
	updated_at DATETIME NOT NULL DEFAULT (datetime('now'))
);

CREATE TABLE IF NOT EXISTS job_postings (
	id        TEXT PRIMARY KEY,
	batch_id  TEXT NOT NULL REFERENCES batches(id),
	title     TEXT NOT NULL,
	company   TEXT NOT NULL,
	location  TEXT NOT NULL DEFAULT '',
	url       TEXT NOT NULL DEFAULT '',
	posted_at DATETIME,
	remote    INTEGER NOT NULL DEFAULT 0,
	salary    TEXT NOT NULL DEFAULT ''
);

CREATE TABLE IF NOT EXISTS stage_outcomes (
	id       TEXT PRIMARY KEY,
	batch_id TEXT NOT NULL,
	company  TEXT NOT NULL,
	stage    TEXT NOT NULL,
	success  INTEGER NOT NULL,
	error    TEXT NOT NULL DEFAULT '',
	detail   TEXT,
	ts       DATETIME NOT NULL DEFAULT (datetime('now'))
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
	updated_at       DATETIME NOT NULL DEFAULT (datetime('now')),
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
	confidence   REAL NOT NULL DEFAULT 0,
	score        REAL NOT NULL DEFAULT 0,
	linkedin_url TEXT NOT NULL DEFAULT '',
	created_at   DATETIME NOT NULL DEFAULT (datetime('now'))
);

CREATE TABLE IF NOT EXISTS campaign_records (
	batch_id        TEXT NOT NULL,
	company         TEXT NOT NULL,
	campaign_id     TEXT NOT NULL,
	enrolled_emails TEXT NOT NULL DEFAULT '[]',
	outcome         TEXT NOT NULL DEFAULT '',
	created_at      DATETIME NOT NULL DEFAULT (datetime('now')),
	PRIMARY KEY (batch_id, company)
);

CREATE INDEX IF NOT EXISTS idx_batches_status ON batches(status);
CREATE INDEX IF NOT EXISTS idx_job_postings_batch ON job_postings(batch_id);
CREATE INDEX IF NOT EXISTS idx_stage_outcomes_batch ON stage_outcomes(batch_id);
CREATE INDEX IF NOT EXISTS idx_contacts_batch ON contacts(batch_id);
`

func (s *SQLiteStore) Migrate(ctx context.Context) error {
	_, err := s.db.ExecContext(ctx, sqliteMigration)
	return eris.Wrap(err, "sqlite: migrate")
}

func (s *SQLiteStore) Close() error {
	return s.db.Close()
}

func (s *SQLiteStore) CreateBatch(ctx context.Context, query string) (*model.Batch, error) {
	id := uuid.New().String()
	now := time.Now().UTC()

	_, err := s.db.ExecContext(ctx,
		`INSERT INTO batches (id, query, status, stats, created_at, updated_at) VALUES (?, ?, ?, ?, ?, ?)`,
		id, query, string(model.BatchStatusProcessing), "{}", now, now,
	)
	if err != nil {
		return nil, eris.Wrap(err, "sqlite: insert batch")
	}

	return &model.Batch{
		ID:        id,
		Query:     query,
		Status:    model.BatchStatusProcessing,
		CreatedAt: now,
		UpdatedAt: now,
	}, nil
}

func (s *SQLiteStore) UpdateBatchStatus(ctx context.Context, batchID string, status model.BatchStatus) error {
	res, err := s.db.ExecContext(ctx,
		`UPDATE batches SET status = ?, updated_at = ? WHERE id = ?`,
		string(status), time.Now().UTC(), batchID,
	)
	if err != nil {
		return eris.Wrapf(err, "sqlite: update batch status %s", batchID)
	}
	return checkRowsAffected(res, "batch", batchID)
}

func (s *SQLiteStore) UpdateBatchStats(ctx context.Context, batchID string, stats model.BatchStats) error {
	statsJSON, err := json.Marshal(stats)
	if err != nil {
		return eris.Wrap(err, "sqlite: marshal stats")
	}

	res, err := s.db.ExecContext(ctx,
		`UPDATE batches SET stats = ?, updated_at = ? WHERE id = ?`,
		string(statsJSON), time.Now().UTC(), batchID,
	)
	if err != nil {
		return eris.Wrapf(err, "sqlite: update batch stats %s", batchID)
	}
	return checkRowsAffected(res, "batch", batchID)
}

func (s *SQLiteStore) GetBatch(ctx context.Context, batchID string) (*model.Batch, error) {
	var b model.Batch
	var statsJSON string

	err := s.db.QueryRowContext(ctx,
		`SELECT id, query, status, stats, created_at, updated_at FROM batches WHERE id = ?`,
		batchID,
	).Scan(&b.ID, &b.Query, &b.Status, &statsJSON, &b.CreatedAt, &b.UpdatedAt)
	if err != nil {
		return nil, eris.Wrapf(err, "sqlite: get batch %s", batchID)
	}

	if statsJSON != "" {
		if err := json.Unmarshal([]byte(statsJSON), &b.Stats); err != nil {
			return nil, eris.Wrap(err, "sqlite: unmarshal stats")
		}
	}
	return &b, nil
}

func (s *SQLiteStore) ListBatches(ctx context.Context, limit int) ([]model.Batch, error) {
	if limit <= 0 {
		limit = 100
	}

	rows, err := s.db.QueryContext(ctx,
		`SELECT id, query, status, stats, created_at, updated_at FROM batches ORDER BY created_at DESC LIMIT ?`,
		limit,
	)
	if err != nil {
		return nil, eris.Wrap(err, "sqlite: list batches")
	}
	defer rows.Close()

	var batches []model.Batch
	for rows.Next() {
		var b model.Batch
		var statsJSON string
		if err := rows.Scan(&b.ID, &b.Query, &b.Status, &statsJSON, &b.CreatedAt, &b.UpdatedAt); err != nil {
			return nil, eris.Wrap(err, "sqlite: scan batch")
		}
		if statsJSON != "" {
			if err := json.Unmarshal([]byte(statsJSON), &b.Stats); err != nil {
				return nil, eris.Wrap(err, "sqlite: unmarshal stats")
			}
		}
		batches = append(batches, b)
	}
	return batches, eris.Wrap(rows.Err(), "sqlite: list batches iterate")
}

func (s *SQLiteStore) SaveJobPostings(ctx context.Context, batchID string, jobs []model.JobPosting) error {
	if len(jobs) == 0 {
		return nil
	}

	tx, err := s.db.BeginTx(ctx, nil)
	if err != nil {
		return eris.Wrap(err, "sqlite: begin tx")
	}
	defer tx.Rollback()

	stmt, err := tx.PrepareContext(ctx,
		`INSERT INTO job_postings (id, batch_id, title, company, location, url, posted_at, remote, salary) VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?)`,
	)
	if err != nil {
		return eris.Wrap(err, "sqlite: prepare insert posting")
	}
	defer stmt.Close()

	for _, j := range jobs {
		var postedAt any
		if !j.PostedAt.IsZero() {
			postedAt = j.PostedAt
		}
		if _, err := stmt.ExecContext(ctx, uuid.New().String(), batchID, j.Title, j.Company, j.Location, j.URL, postedAt, j.Remote, j.Salary); err != nil {
			return eris.Wrap(err, "sqlite: insert posting")
		}
	}
	return eris.Wrap(tx.Commit(), "sqlite: commit postings")
}

func (s *SQLiteStore) JobPostings(ctx context.Context, batchID string) ([]model.JobPosting, error) {
	rows, err := s.db.QueryContext(ctx,
		`SELECT title, company, location, url, posted_at, remote, salary FROM job_postings WHERE batch_id = ?`,
		batchID,
	)
	if err != nil {
		return nil, eris.Wrap(err, "sqlite: job postings")
	}
	defer rows.Close()

	var jobs []model.JobPosting
	for rows.Next() {
		var j model.JobPosting
		var postedAt sql.NullTime
		if err := rows.Scan(&j.Title, &j.Company, &j.Location, &j.URL, &postedAt, &j.Remote, &j.Salary); err != nil {
			return nil, eris.Wrap(err, "sqlite: scan job posting")
		}
		if postedAt.Valid {
			j.PostedAt = postedAt.Time
		}
		jobs = append(jobs, j)
	}
	return jobs, eris.Wrap(rows.Err(), "sqlite: job postings iterate")
}

func (s *SQLiteStore) AppendStageOutcome(ctx context.Context, out model.StageOutcome) error {
	var detailJSON any
	if out.Detail != nil {
		encoded, err := json.Marshal(out.Detail)
		if err != nil {
			return eris.Wrap(err, "sqlite: marshal outcome detail")
		}
		detailJSON = string(encoded)
	}

	ts := out.Timestamp
	if ts.IsZero() {
		ts = time.Now().UTC()
	}

	_, err := s.db.ExecContext(ctx,
		`INSERT INTO stage_outcomes (id, batch_id, company, stage, success, error, detail, ts) VALUES (?, ?, ?, ?, ?, ?, ?, ?)`,
		uuid.New().String(), out.BatchID, out.Company, string(out.Stage), out.Success, out.Error, detailJSON, ts,
	)
	return eris.Wrap(err, "sqlite: append stage outcome")
}

func (s *SQLiteStore) StageOutcomes(ctx context.Context, batchID string) ([]model.StageOutcome, error) {
	rows, err := s.db.QueryContext(ctx,
		`SELECT batch_id, company, stage, success, error, detail, ts FROM stage_outcomes WHERE batch_id = ? ORDER BY ts ASC, rowid ASC`,
		batchID,
	)
	if err != nil {
		return nil, eris.Wrap(err, "sqlite: stage outcomes")
	}
	defer rows.Close()

	var outs []model.StageOutcome
	for rows.Next() {
		var o model.StageOutcome
		var detailJSON sql.NullString
		if err := rows.Scan(&o.BatchID, &o.Company, &o.Stage, &o.Success, &o.Error, &detailJSON, &o.Timestamp); err != nil {
			return nil, eris.Wrap(err, "sqlite: scan stage outcome")
		}
		if detailJSON.Valid && detailJSON.String != "" {
			if err := json.Unmarshal([]byte(detailJSON.String), &o.Detail); err != nil {
				return nil, eris.Wrap(err, "sqlite: unmarshal outcome detail")
			}
		}
		outs = append(outs, o)
	}
	return outs, eris.Wrap(rows.Err(), "sqlite: stage outcomes iterate")
}

func (s *SQLiteStore) UpsertCompanySummary(ctx context.Context, sum model.CompanySummary) error {
	_, err := s.db.ExecContext(ctx,
		`INSERT INTO company_summaries (batch_id, company, state, domain, linkedin_id, employee_bracket, blacklist_reason, contacts_found, campaign_id, error, updated_at)
		 VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?)
		 ON CONFLICT (batch_id, company) DO UPDATE SET state = excluded.state, domain = excluded.domain, linkedin_id = excluded.linkedin_id,
		   employee_bracket = excluded.employee_bracket, blacklist_reason = excluded.blacklist_reason, contacts_found = excluded.contacts_found,
		   campaign_id = excluded.campaign_id, error = excluded.error, updated_at = excluded.updated_at`,
		sum.BatchID, sum.Company, string(sum.State), sum.Domain, sum.LinkedInID,
		string(sum.Bracket), string(sum.BlacklistReason), sum.ContactsFound,
		sum.CampaignID, sum.Error, time.Now().UTC(),
	)
	return eris.Wrap(err, "sqlite: upsert company summary")
}

func (s *SQLiteStore) CompanySummaries(ctx context.Context, batchID string) ([]model.CompanySummary, error) {
	rows, err := s.db.QueryContext(ctx,
		`SELECT batch_id, company, state, domain, linkedin_id, employee_bracket, blacklist_reason, contacts_found, campaign_id, error
		 FROM company_summaries WHERE batch_id = ? ORDER BY company ASC`,
		batchID,
	)
	if err != nil {
		return nil, eris.Wrap(err, "sqlite: company summaries")
	}
	defer rows.Close()

	var sums []model.CompanySummary
	for rows.Next() {
		var sum model.CompanySummary
		if err := rows.Scan(&sum.BatchID, &sum.Company, &sum.State, &sum.Domain, &sum.LinkedInID,
			&sum.Bracket, &sum.BlacklistReason, &sum.ContactsFound, &sum.CampaignID, &sum.Error); err != nil {
			return nil, eris.Wrap(err, "sqlite: scan company summary")
		}
		sums = append(sums, sum)
	}
	return sums, eris.Wrap(rows.Err(), "sqlite: company summaries iterate")
}

func (s *SQLiteStore) SaveContacts(ctx context.Context, batchID string, contacts []model.Contact) error {
	if len(contacts) == 0 {
		return nil
	}

	tx, err := s.db.BeginTx(ctx, nil)
	if err != nil {
		return eris.Wrap(err, "sqlite: begin tx")
	}
	defer tx.Rollback()

	stmt, err := tx.PrepareContext(ctx,
		`INSERT INTO contacts (id, batch_id, company, first_name, last_name, title, email, confidence, score, linkedin_url, created_at)
		 VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?)
		 ON CONFLICT (id) DO UPDATE SET email = excluded.email, confidence = excluded.confidence, score = excluded.score`,
	)
	if err != nil {
		return eris.Wrap(err, "sqlite: prepare insert contact")
	}
	defer stmt.Close()

	for _, c := range contacts {
		id := c.ID
		if id == "" {
			id = uuid.New().String()
		}
		createdAt := c.CreatedAt
		if createdAt.IsZero() {
			createdAt = time.Now().UTC()
		}
		if _, err := stmt.ExecContext(ctx, id, batchID, c.Company, c.FirstName, c.LastName, c.Title, c.Email, c.Confidence, c.Score, c.LinkedInURL, createdAt); err != nil {
			return eris.Wrap(err, "sqlite: insert contact")
		}
	}
	return eris.Wrap(tx.Commit(), "sqlite: commit contacts")
}

func (s *SQLiteStore) ContactsByBatch(ctx context.Context, batchID string) ([]model.Contact, error) {
	rows, err := s.db.QueryContext(ctx,
		`SELECT id, company, first_name, last_name, title, email, confidence, score, linkedin_url, created_at
		 FROM contacts WHERE batch_id = ? ORDER BY company ASC, score DESC`,
		batchID,
	)
	if err != nil {
		return nil, eris.Wrap(err, "sqlite: contacts by batch")
	}
	defer rows.Close()

	var contacts []model.Contact
	for rows.Next() {
		var c model.Contact
		if err := rows.Scan(&c.ID, &c.Company, &c.FirstName, &c.LastName, &c.Title, &c.Email,
			&c.Confidence, &c.Score, &c.LinkedInURL, &c.CreatedAt); err != nil {
			return nil, eris.Wrap(err, "sqlite: scan contact")
		}
		contacts = append(contacts, c)
	}
	return contacts, eris.Wrap(rows.Err(), "sqlite: contacts iterate")
}

func (s *SQLiteStore) CampaignRecord(ctx context.Context, batchID, company string) (*model.CampaignRecord, bool, error) {
	var rec model.CampaignRecord
	var emailsJSON string

	err := s.db.QueryRowContext(ctx,
		`SELECT campaign_id, enrolled_emails, outcome, created_at FROM campaign_records WHERE batch_id = ? AND company = ?`,
		batchID, company,
	).Scan(&rec.CampaignID, &emailsJSON, &rec.Outcome, &rec.CreatedAt)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, false, nil
		}
		return nil, false, eris.Wrap(err, "sqlite: get campaign record")
	}

	rec.BatchID = batchID
	rec.Company = company
	if emailsJSON != "" {
		if err := json.Unmarshal([]byte(emailsJSON), &rec.EnrolledEmails); err != nil {
			return nil, false, eris.Wrap(err, "sqlite: unmarshal enrolled emails")
		}
	}
	return &rec, true, nil
}

func (s *SQLiteStore) SaveCampaignRecord(ctx context.Context, rec model.CampaignRecord) error {
	emailsJSON, err := json.Marshal(rec.EnrolledEmails)
	if err != nil {
		return eris.Wrap(err, "sqlite: marshal enrolled emails")
	}

	createdAt := rec.CreatedAt
	if createdAt.IsZero() {
		createdAt = time.Now().UTC()
	}

	_, err = s.db.ExecContext(ctx,
		`INSERT INTO campaign_records (batch_id, company, campaign_id, enrolled_emails, outcome, created_at)
		 VALUES (?, ?, ?, ?, ?, ?)
		 ON CONFLICT (batch_id, company) DO UPDATE SET enrolled_emails = excluded.enrolled_emails, outcome = excluded.outcome`,
		rec.BatchID, rec.Company, rec.CampaignID, string(emailsJSON), rec.Outcome, createdAt,
	)
	return eris.Wrap(err, "sqlite: save campaign record")
}

func checkRowsAffected(res sql.Result, kind, id string) error {
	n, err := res.RowsAffected()
	if err != nil {
		return eris.Wrapf(err, "sqlite: rows affected for %s", kind)
	}
	if n == 0 {
		return eris.Errorf("%s not found: %s", kind, id)
	}
	return nil
}
