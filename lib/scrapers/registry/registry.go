// Package registry ingests government business-register data. Two
// modes exist: a bulk loader that downloads and streams a full open
// extract, and a form-driven scraper for registries that only expose
// keyword search. Businesses dedup on the registry's own assigned
// number, which is authoritative, unlike the name hashes the member
// directories need.
package registry

import (
	"context"

	"go.opentelemetry.io/otel"
)

var tracer = otel.Tracer("lib/scrapers/registry")

type Business struct {
	RegistryNumber string
	Name           string
	Province       string
	City           string
	// human label derived from the classification code
	Industry string
	// raw employee-count band, empty when the extract withholds it
	Employees       string
	OperatingStatus string
	Source          string
}

// Store is the persistence surface both ingestion modes share. Batch
// inserts report how many rows actually landed, so callers can count
// registry-number conflicts as skips.
type Store interface {
	HasBusiness(ctx context.Context, registryNumber string) (bool, error)
	InsertBusinesses(ctx context.Context, businesses []Business, jobID string) (inserted int, err error)
}

type Counts struct {
	Found    int
	Inserted int
	Skipped  int
	// rows or entities that could not be parsed; logged, never fatal
	Failed int
	Note   string
}
