package members

import (
	"context"
	"database/sql"
	"fmt"
	"strings"
	"time"

	"cpaintel-backend/lib/enrichment"
	directoryscraper "cpaintel-backend/lib/scrapers/directory"
)

// Store wraps the persons + jobs tables. It implements the scraper's
// dedup/insert surface and the enrichment pipeline's selection
// surface.
type Store struct {
	db *sql.DB
}

func NewStore(database *sql.DB) Store {
	return Store{db: database}
}

func (s Store) DB() *sql.DB { return s.db }

type PersonStatus string

const (
	StatusRaw       PersonStatus = "raw"
	StatusEnriched  PersonStatus = "enriched"
	StatusContacted PersonStatus = "contacted"
	StatusConverted PersonStatus = "converted"
)

type PersonRecord struct {
	ID           int64
	Source       string
	FirstName    string
	LastName     string
	FullName     string
	Designation  string
	Province     string
	City         string
	Firm         string
	Phone        string
	Email        string
	IdentityHash string
	Status       PersonStatus
	JobID        string
	CreatedAt    time.Time
}

func (s Store) HasPerson(ctx context.Context, identityHash string) (bool, error) {
	var one int
	err := s.db.QueryRowContext(ctx,
		`SELECT 1 FROM scraped_person WHERE identity_hash = ?`,
		identityHash,
	).Scan(&one)
	if err == sql.ErrNoRows {
		return false, nil
	}
	if err != nil {
		return false, err
	}
	return true, nil
}

// InsertPerson persists a newly-discovered person. The UNIQUE
// constraint on identity_hash backs the scraper's check-then-insert
// sequence; a concurrent duplicate is silently dropped rather than
// failing the run.
func (s Store) InsertPerson(ctx context.Context, p directoryscraper.Person, jobID string) error {
	_, err := s.db.ExecContext(ctx,
		`INSERT OR IGNORE INTO scraped_person
			(source, first_name, last_name, full_name, designation,
			 province, city, identity_hash, status, job_id, created_at)
		 VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?)`,
		p.Source, p.FirstName, p.LastName, p.FullName, p.Designation,
		p.Province, p.City, p.IdentityHash, string(StatusRaw), jobID,
		time.Now().Unix(),
	)
	return err
}

// PurgeSource hard-deletes every record for a source ahead of an
// administrative re-scrape. Irreversible.
func (s Store) PurgeSource(ctx context.Context, source string) (int64, error) {
	res, err := s.db.ExecContext(ctx,
		`DELETE FROM scraped_person WHERE source = ?`, source)
	if err != nil {
		return 0, err
	}
	return res.RowsAffected()
}

type PersonFilter struct {
	Province string
	City     string
	Source   string
	Status   PersonStatus
	Page     int
	Limit    int
}

const maxPageLimit = 100

func (f PersonFilter) where() (string, []any) {
	var clauses []string
	var args []any
	if f.Province != "" {
		clauses = append(clauses, "province = ?")
		args = append(args, f.Province)
	}
	if f.City != "" {
		clauses = append(clauses, "city = ?")
		args = append(args, f.City)
	}
	if f.Source != "" {
		clauses = append(clauses, "source = ?")
		args = append(args, f.Source)
	}
	if f.Status != "" {
		clauses = append(clauses, "status = ?")
		args = append(args, string(f.Status))
	}
	if len(clauses) == 0 {
		return "", nil
	}
	return " WHERE " + strings.Join(clauses, " AND "), args
}

func (s Store) CountPersons(ctx context.Context, filter PersonFilter) (int, error) {
	where, args := filter.where()
	var count int
	err := s.db.QueryRowContext(ctx,
		"SELECT COUNT(*) FROM scraped_person"+where, args...,
	).Scan(&count)
	return count, err
}

func (s Store) ListPersons(ctx context.Context, filter PersonFilter) ([]PersonRecord, error) {
	limit := filter.Limit
	if limit <= 0 {
		limit = 20
	}
	if limit > maxPageLimit {
		limit = maxPageLimit
	}
	page := filter.Page
	if page < 1 {
		page = 1
	}

	where, args := filter.where()
	args = append(args, limit, (page-1)*limit)

	rows, err := s.db.QueryContext(ctx,
		`SELECT id, source, first_name, last_name, full_name, designation,
			province, city, firm, phone, email, identity_hash, status,
			job_id, created_at
		 FROM scraped_person`+where+`
		 ORDER BY id LIMIT ? OFFSET ?`,
		args...,
	)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var people []PersonRecord
	for rows.Next() {
		var p PersonRecord
		var status string
		var createdAt int64
		err := rows.Scan(
			&p.ID, &p.Source, &p.FirstName, &p.LastName, &p.FullName,
			&p.Designation, &p.Province, &p.City, &p.Firm, &p.Phone,
			&p.Email, &p.IdentityHash, &status, &p.JobID, &createdAt,
		)
		if err != nil {
			return nil, err
		}
		p.Status = PersonStatus(status)
		p.CreatedAt = time.Unix(createdAt, 0)
		people = append(people, p)
	}
	return people, rows.Err()
}

func (s Store) SelectUnenriched(ctx context.Context, limit int) ([]enrichment.Record, error) {
	rows, err := s.db.QueryContext(ctx,
		`SELECT id, first_name, last_name, firm
		 FROM scraped_person
		 WHERE firm != '' AND email = '' AND status = ?
		 ORDER BY id LIMIT ?`,
		string(StatusRaw), limit,
	)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var records []enrichment.Record
	for rows.Next() {
		var r enrichment.Record
		if err := rows.Scan(&r.ID, &r.FirstName, &r.LastName, &r.Firm); err != nil {
			return nil, err
		}
		records = append(records, r)
	}
	return records, rows.Err()
}

func (s Store) SetEmail(ctx context.Context, id int64, email string) error {
	res, err := s.db.ExecContext(ctx,
		`UPDATE scraped_person SET email = ?, status = ? WHERE id = ?`,
		email, string(StatusEnriched), id)
	if err != nil {
		return err
	}
	affected, err := res.RowsAffected()
	if err != nil {
		return err
	}
	if affected == 0 {
		return fmt.Errorf("no person with id %d", id)
	}
	return nil
}
