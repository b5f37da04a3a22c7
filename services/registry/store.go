package registry

import (
	"context"
	"database/sql"
	"strings"
	"time"

	registryscraper "cpaintel-backend/lib/scrapers/registry"
)

// Store wraps the businesses + jobs tables and implements the
// scraper-facing persistence surface.
type Store struct {
	db *sql.DB
}

func NewStore(database *sql.DB) Store {
	return Store{db: database}
}

func (s Store) DB() *sql.DB { return s.db }

type BusinessRecord struct {
	ID              int64
	RegistryNumber  string
	Name            string
	Province        string
	City            string
	Industry        string
	Employees       string
	OperatingStatus string
	Source          string
	JobID           string
	CreatedAt       time.Time
}

func (s Store) HasBusiness(ctx context.Context, registryNumber string) (bool, error) {
	if registryNumber == "" {
		return false, nil
	}
	var one int
	err := s.db.QueryRowContext(ctx,
		`SELECT 1 FROM scraped_business WHERE registry_number = ?`,
		registryNumber,
	).Scan(&one)
	if err == sql.ErrNoRows {
		return false, nil
	}
	if err != nil {
		return false, err
	}
	return true, nil
}

// InsertBusinesses lands one batch inside a transaction. Registry
// number conflicts are dropped; the returned count is how many rows
// actually landed.
func (s Store) InsertBusinesses(ctx context.Context, businesses []registryscraper.Business, jobID string) (int, error) {
	tx, err := s.db.BeginTx(ctx, nil)
	if err != nil {
		return 0, err
	}
	defer tx.Rollback()

	statement, err := tx.PrepareContext(ctx,
		`INSERT OR IGNORE INTO scraped_business
			(registry_number, name, province, city, industry, employees,
			 status, source, job_id, created_at)
		 VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?)`)
	if err != nil {
		return 0, err
	}
	defer statement.Close()

	now := time.Now().Unix()
	inserted := 0
	for _, business := range businesses {
		res, err := statement.ExecContext(ctx,
			business.RegistryNumber, business.Name, business.Province,
			business.City, business.Industry, business.Employees,
			business.OperatingStatus, business.Source, jobID, now,
		)
		if err != nil {
			return inserted, err
		}
		affected, err := res.RowsAffected()
		if err != nil {
			return inserted, err
		}
		inserted += int(affected)
	}
	return inserted, tx.Commit()
}

func (s Store) PurgeSource(ctx context.Context, source string) (int64, error) {
	res, err := s.db.ExecContext(ctx,
		`DELETE FROM scraped_business WHERE source = ?`, source)
	if err != nil {
		return 0, err
	}
	return res.RowsAffected()
}

type BusinessFilter struct {
	Province string
	City     string
	Industry string
	Source   string
	Page     int
	Limit    int
}

const maxPageLimit = 100

func (f BusinessFilter) where() (string, []any) {
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
	if f.Industry != "" {
		clauses = append(clauses, "industry = ?")
		args = append(args, f.Industry)
	}
	if f.Source != "" {
		clauses = append(clauses, "source = ?")
		args = append(args, f.Source)
	}
	if len(clauses) == 0 {
		return "", nil
	}
	return " WHERE " + strings.Join(clauses, " AND "), args
}

func (s Store) CountBusinesses(ctx context.Context, filter BusinessFilter) (int, error) {
	where, args := filter.where()
	var count int
	err := s.db.QueryRowContext(ctx,
		"SELECT COUNT(*) FROM scraped_business"+where, args...,
	).Scan(&count)
	return count, err
}

func (s Store) ListBusinesses(ctx context.Context, filter BusinessFilter) ([]BusinessRecord, error) {
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
		`SELECT id, registry_number, name, province, city, industry,
			employees, status, source, job_id, created_at
		 FROM scraped_business`+where+`
		 ORDER BY id LIMIT ? OFFSET ?`,
		args...,
	)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var businesses []BusinessRecord
	for rows.Next() {
		var b BusinessRecord
		var createdAt int64
		err := rows.Scan(
			&b.ID, &b.RegistryNumber, &b.Name, &b.Province, &b.City,
			&b.Industry, &b.Employees, &b.OperatingStatus, &b.Source,
			&b.JobID, &createdAt,
		)
		if err != nil {
			return nil, err
		}
		b.CreatedAt = time.Unix(createdAt, 0)
		businesses = append(businesses, b)
	}
	return businesses, rows.Err()
}
