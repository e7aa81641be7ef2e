package storage

import (
	"context"
	"database/sql"
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"
	"time"

	_ "modernc.org/sqlite"

	"jobscout/pkg/models"
)

// Store persists scored jobs plus the audit records for everything the
// pipeline rejected along the way.
type Store interface {
	// SaveScoredJob inserts a job keyed by URL; false means duplicate
	SaveScoredJob(ctx context.Context, job models.ScoredJob) (bool, error)

	// SaveUnextracted records a URL every extraction strategy failed on
	SaveUnextracted(ctx context.Context, rec UnextractedJob) error

	// SavePreFiltered records a posting the pre-parse filter rejected
	SavePreFiltered(ctx context.Context, rec PreFilteredJob) error

	// ListUnextracted returns failed extractions for later retry
	ListUnextracted(ctx context.Context, limit int) ([]UnextractedJob, error)

	// Stats reports row counts per table
	Stats(ctx context.Context) (Stats, error)

	Close() error
}

// UnextractedJob is the audit record for a URL no strategy could extract
type UnextractedJob struct {
	URL              string
	Title            string
	Snippet          string
	SourceDomain     string
	MethodsAttempted []string
	ErrorMessage     string
	RetryCount       int
}

// PreFilteredJob is the audit record for a pre-parse filter rejection
type PreFilteredJob struct {
	URL            string
	Reason         models.FilterReason
	Details        string
	ContentPreview string
}

// Stats summarizes persisted row counts
type Stats struct {
	Jobs        int
	Unextracted int
	PreFiltered int
}

// SQLiteStore implements Store on an embedded SQLite database
type SQLiteStore struct {
	db *sql.DB
}

// Open creates the database file if needed, applies pragmas suited to
// a single-writer workload, and runs migrations.
func Open(path string) (*SQLiteStore, error) {
	if dir := filepath.Dir(path); dir != "." && dir != "" {
		if err := os.MkdirAll(dir, 0o755); err != nil {
			return nil, fmt.Errorf("failed to create database directory: %w", err)
		}
	}

	dsn := fmt.Sprintf("file:%s?_pragma=busy_timeout(5000)", path)
	db, err := sql.Open("sqlite", dsn)
	if err != nil {
		return nil, err
	}

	// sqlite wants a single writer
	db.SetMaxOpenConns(1)
	db.SetConnMaxLifetime(5 * time.Minute)

	ctx, cancel := context.WithTimeout(context.Background(), 2*time.Second)
	defer cancel()
	if err := db.PingContext(ctx); err != nil {
		_ = db.Close()
		return nil, err
	}

	store := &SQLiteStore{db: db}
	if err := store.migrate(); err != nil {
		_ = db.Close()
		return nil, err
	}

	return store, nil
}

func (s *SQLiteStore) migrate() error {
	statements := []string{
		`CREATE TABLE IF NOT EXISTS jobs (
			id INTEGER PRIMARY KEY AUTOINCREMENT,
			url TEXT UNIQUE NOT NULL,
			title TEXT NOT NULL,
			company TEXT NOT NULL,
			location TEXT,
			remote BOOLEAN,
			employment_type TEXT,
			salary_range TEXT,
			yoe_required INTEGER DEFAULT 0,
			required_skills TEXT NOT NULL DEFAULT '[]',
			nice_to_have_skills TEXT NOT NULL DEFAULT '[]',
			responsibilities TEXT NOT NULL DEFAULT '[]',
			job_summary TEXT,
			source_domain TEXT,
			relevance_score INTEGER DEFAULT 0,
			created_at TIMESTAMP DEFAULT CURRENT_TIMESTAMP
		)`,
		`CREATE TABLE IF NOT EXISTS unextracted_jobs (
			id INTEGER PRIMARY KEY AUTOINCREMENT,
			url TEXT UNIQUE NOT NULL,
			title TEXT,
			snippet TEXT,
			source_domain TEXT,
			extraction_methods_attempted TEXT NOT NULL DEFAULT '[]',
			error_message TEXT,
			retry_count INTEGER DEFAULT 0,
			created_at TIMESTAMP DEFAULT CURRENT_TIMESTAMP
		)`,
		`CREATE TABLE IF NOT EXISTS prefiltered_jobs (
			id INTEGER PRIMARY KEY AUTOINCREMENT,
			url TEXT NOT NULL,
			reason TEXT NOT NULL,
			details TEXT,
			content_preview TEXT,
			created_at TIMESTAMP DEFAULT CURRENT_TIMESTAMP
		)`,
		`CREATE INDEX IF NOT EXISTS idx_jobs_score ON jobs(relevance_score)`,
		`CREATE INDEX IF NOT EXISTS idx_jobs_company ON jobs(company)`,
		`CREATE INDEX IF NOT EXISTS idx_unextracted_retry ON unextracted_jobs(retry_count)`,
		`CREATE INDEX IF NOT EXISTS idx_prefiltered_reason ON prefiltered_jobs(reason)`,
	}

	for _, stmt := range statements {
		if _, err := s.db.Exec(stmt); err != nil {
			return fmt.Errorf("migration failed: %w", err)
		}
	}
	return nil
}

// SaveScoredJob inserts one job. Duplicate URLs return (false, nil);
// the posting was already saved by a previous run.
func (s *SQLiteStore) SaveScoredJob(ctx context.Context, scored models.ScoredJob) (bool, error) {
	job := scored.Job

	requiredSkills, err := json.Marshal(job.RequiredSkills)
	if err != nil {
		return false, fmt.Errorf("failed to encode required skills: %w", err)
	}
	niceToHave, err := json.Marshal(job.NiceToHaveSkills)
	if err != nil {
		return false, fmt.Errorf("failed to encode nice-to-have skills: %w", err)
	}
	responsibilities, err := json.Marshal(job.Responsibilities)
	if err != nil {
		return false, fmt.Errorf("failed to encode responsibilities: %w", err)
	}

	result, err := s.db.ExecContext(ctx, `
		INSERT INTO jobs (
			url, title, company, location, remote, employment_type,
			salary_range, yoe_required, required_skills, nice_to_have_skills,
			responsibilities, job_summary, source_domain, relevance_score
		) VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?)
		ON CONFLICT(url) DO NOTHING`,
		job.URL, job.Title, job.Company, job.Location, job.Remote,
		job.EmploymentType, job.SalaryRange, job.YearsOfExperience,
		string(requiredSkills), string(niceToHave), string(responsibilities),
		job.Summary, job.SourceDomain, scored.Score,
	)
	if err != nil {
		return false, fmt.Errorf("failed to save job: %w", err)
	}

	affected, err := result.RowsAffected()
	if err != nil {
		return false, err
	}
	return affected > 0, nil
}

// SaveUnextracted records or refreshes a failed extraction, bumping
// the retry counter when the URL was already recorded.
func (s *SQLiteStore) SaveUnextracted(ctx context.Context, rec UnextractedJob) error {
	methods, err := json.Marshal(rec.MethodsAttempted)
	if err != nil {
		return fmt.Errorf("failed to encode methods: %w", err)
	}

	_, err = s.db.ExecContext(ctx, `
		INSERT INTO unextracted_jobs (
			url, title, snippet, source_domain,
			extraction_methods_attempted, error_message
		) VALUES (?, ?, ?, ?, ?, ?)
		ON CONFLICT(url) DO UPDATE SET
			extraction_methods_attempted = excluded.extraction_methods_attempted,
			error_message = excluded.error_message,
			retry_count = retry_count + 1`,
		rec.URL, rec.Title, rec.Snippet, rec.SourceDomain,
		string(methods), rec.ErrorMessage,
	)
	if err != nil {
		return fmt.Errorf("failed to save unextracted job: %w", err)
	}
	return nil
}

// SavePreFiltered records one pre-parse filter rejection
func (s *SQLiteStore) SavePreFiltered(ctx context.Context, rec PreFilteredJob) error {
	_, err := s.db.ExecContext(ctx, `
		INSERT INTO prefiltered_jobs (url, reason, details, content_preview)
		VALUES (?, ?, ?, ?)`,
		rec.URL, string(rec.Reason), rec.Details, rec.ContentPreview,
	)
	if err != nil {
		return fmt.Errorf("failed to save prefiltered job: %w", err)
	}
	return nil
}

// ListUnextracted returns failed extractions ordered by retry count so
// fresh failures come back first.
func (s *SQLiteStore) ListUnextracted(ctx context.Context, limit int) ([]UnextractedJob, error) {
	if limit <= 0 {
		limit = 100
	}

	rows, err := s.db.QueryContext(ctx, `
		SELECT url, title, snippet, source_domain,
			extraction_methods_attempted, error_message, retry_count
		FROM unextracted_jobs
		ORDER BY retry_count ASC, id ASC
		LIMIT ?`, limit)
	if err != nil {
		return nil, fmt.Errorf("failed to list unextracted jobs: %w", err)
	}
	defer rows.Close()

	var records []UnextractedJob
	for rows.Next() {
		var rec UnextractedJob
		var title, snippet, domain, errMsg sql.NullString
		var methods string

		if err := rows.Scan(&rec.URL, &title, &snippet, &domain, &methods, &errMsg, &rec.RetryCount); err != nil {
			return nil, err
		}

		rec.Title = title.String
		rec.Snippet = snippet.String
		rec.SourceDomain = domain.String
		rec.ErrorMessage = errMsg.String
		if err := json.Unmarshal([]byte(methods), &rec.MethodsAttempted); err != nil {
			rec.MethodsAttempted = nil
		}

		records = append(records, rec)
	}
	return records, rows.Err()
}

// Stats reports row counts per table
func (s *SQLiteStore) Stats(ctx context.Context) (Stats, error) {
	var stats Stats

	queries := []struct {
		query string
		dest  *int
	}{
		{`SELECT COUNT(*) FROM jobs`, &stats.Jobs},
		{`SELECT COUNT(*) FROM unextracted_jobs`, &stats.Unextracted},
		{`SELECT COUNT(*) FROM prefiltered_jobs`, &stats.PreFiltered},
	}

	for _, q := range queries {
		if err := s.db.QueryRowContext(ctx, q.query).Scan(q.dest); err != nil {
			return Stats{}, err
		}
	}
	return stats, nil
}

// Close closes the underlying database
func (s *SQLiteStore) Close() error {
	if s == nil || s.db == nil {
		return nil
	}
	return s.db.Close()
}
