package members

import (
	"context"
	"database/sql"
	"time"

	directoryscraper "cpaintel-backend/lib/scrapers/directory"
)

type JobStatus string

const (
	JobRunning   JobStatus = "running"
	JobCompleted JobStatus = "completed"
	JobFailed    JobStatus = "failed"
)

type Job struct {
	ID          string
	Source      string
	Status      JobStatus
	Found       int
	Inserted    int
	Skipped     int
	Error       string
	Note        string
	StartedAt   time.Time
	CompletedAt time.Time
}

func (s Store) CreateJob(ctx context.Context, id, source string) error {
	_, err := s.db.ExecContext(ctx,
		`INSERT INTO scrape_job (id, source, status, started_at)
		 VALUES (?, ?, ?, ?)`,
		id, source, string(JobRunning), time.Now().Unix(),
	)
	return err
}

func (s Store) CompleteJob(ctx context.Context, id string, counts directoryscraper.Counts) error {
	_, err := s.db.ExecContext(ctx,
		`UPDATE scrape_job
		 SET status = ?, found = ?, inserted = ?, skipped = ?, note = ?,
		     completed_at = ?
		 WHERE id = ?`,
		string(JobCompleted), counts.Found, counts.Inserted, counts.Skipped,
		counts.Note, time.Now().Unix(), id,
	)
	return err
}

func (s Store) FailJob(ctx context.Context, id, errMsg string) error {
	_, err := s.db.ExecContext(ctx,
		`UPDATE scrape_job
		 SET status = ?, error = ?, completed_at = ?
		 WHERE id = ?`,
		string(JobFailed), errMsg, time.Now().Unix(), id,
	)
	return err
}

func (s Store) GetJob(ctx context.Context, id string) (Job, error) {
	row := s.db.QueryRowContext(ctx,
		`SELECT id, source, status, found, inserted, skipped, error, note,
			started_at, completed_at
		 FROM scrape_job WHERE id = ?`, id)
	return scanJob(row.Scan)
}

// RecentJobs returns the latest runs, most recent first.
func (s Store) RecentJobs(ctx context.Context, limit int) ([]Job, error) {
	if limit <= 0 {
		limit = 20
	}
	rows, err := s.db.QueryContext(ctx,
		`SELECT id, source, status, found, inserted, skipped, error, note,
			started_at, completed_at
		 FROM scrape_job ORDER BY started_at DESC, id DESC LIMIT ?`,
		limit,
	)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var jobs []Job
	for rows.Next() {
		job, err := scanJob(rows.Scan)
		if err != nil {
			return nil, err
		}
		jobs = append(jobs, job)
	}
	return jobs, rows.Err()
}

func scanJob(scan func(...any) error) (Job, error) {
	var job Job
	var status string
	var startedAt int64
	var completedAt sql.NullInt64
	err := scan(
		&job.ID, &job.Source, &status, &job.Found, &job.Inserted,
		&job.Skipped, &job.Error, &job.Note, &startedAt, &completedAt,
	)
	if err != nil {
		return Job{}, err
	}
	job.Status = JobStatus(status)
	job.StartedAt = time.Unix(startedAt, 0)
	if completedAt.Valid {
		job.CompletedAt = time.Unix(completedAt.Int64, 0)
	}
	return job, nil
}
