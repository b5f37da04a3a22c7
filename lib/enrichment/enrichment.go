// Package enrichment fills in missing contact addresses for scraped
// professional records by probabilistically guessing their firm's web
// domain, fetching it and extracting a plausible email address.
package enrichment

import (
	"context"
	"fmt"
	"log/slog"
	"regexp"
	"strings"
	"time"

	"github.com/go-resty/resty/v2"
	"go.opentelemetry.io/otel"

	"cpaintel-backend/lib/telemetry"
)

var tracer = otel.Tracer("lib/enrichment")

var emailRegex = regexp.MustCompile(`[a-zA-Z0-9._%+\-]+@[a-zA-Z0-9.\-]+\.[a-zA-Z]{2,}`)

var genericPrefixes = []string{
	"info", "contact", "admin", "office", "hello", "support",
	"mail", "webmaster", "noreply", "no-reply", "reception", "sales",
}

var legalSuffixes = []string{
	"chartered professional accountants",
	"professional corporation",
	"and company",
	"& company",
	"& co",
	// longer forms listed before their prefixes
	"incorporated", "corporation", "limited", "cpas",
	"llp", "llc", "ltd", "inc", "corp", "cpa",
}

var nonAlnumRegex = regexp.MustCompile(`[^a-z0-9]`)

// Record is the slice of a scraped person the pipeline needs.
type Record struct {
	ID        int64
	FirstName string
	LastName  string
	Firm      string
}

// Store selects enrichment-eligible records (firm present, no email,
// status raw) and writes back successful results.
type Store interface {
	SelectUnenriched(ctx context.Context, limit int) ([]Record, error)
	SetEmail(ctx context.Context, id int64, email string) error
}

type Options struct {
	// records per run, defaults to 200
	BatchSize int
	// delay between fetch attempts, defaults to 1s
	Delay time.Duration
	// per-domain fetch timeout, defaults to 5s
	Timeout time.Duration
	// overridable in tests
	Sleep func(time.Duration)
}

type Stats struct {
	Processed int
	Enriched  int
}

type Pipeline struct {
	store Store
	http  *resty.Client
	opts  Options
	// overridden in tests to point guessed domains at a local server
	fetchURL func(domain string) string
}

func NewPipeline(store Store, opts Options) *Pipeline {
	if opts.BatchSize == 0 {
		opts.BatchSize = 200
	}
	if opts.Delay == 0 {
		opts.Delay = time.Second
	}
	if opts.Timeout == 0 {
		opts.Timeout = time.Second * 5
	}
	if opts.Sleep == nil {
		opts.Sleep = time.Sleep
	}

	client := resty.New()
	client.SetTimeout(opts.Timeout)
	client.SetHeader("user-agent", "CPAIntelCollector/1.0 (contact enrichment; ops@cpaintel.ca)")
	telemetry.InstrumentResty(client, "enrichment/http")

	return &Pipeline{
		store:    store,
		http:     client,
		opts:     opts,
		fetchURL: func(domain string) string { return "https://" + domain },
	}
}

// Run processes one bounded daily batch. Records that cannot be
// enriched are left untouched and stay eligible for a later run.
func (p *Pipeline) Run(ctx context.Context) (Stats, error) {
	ctx, span := tracer.Start(ctx, "pipeline:Run")
	defer span.End()

	records, err := p.store.SelectUnenriched(ctx, p.opts.BatchSize)
	if err != nil {
		return Stats{}, fmt.Errorf("select unenriched records: %w", err)
	}

	stats := Stats{}
	for _, record := range records {
		stats.Processed++

		email := p.enrichOne(ctx, record)
		if email != "" {
			err := p.store.SetEmail(ctx, record.ID, email)
			if err != nil {
				slog.WarnContext(ctx, "failed to save enriched email",
					"id", record.ID, "err", err)
			} else {
				stats.Enriched++
			}
		}

		// throttle outbound load on third-party sites
		p.opts.Sleep(p.opts.Delay)
	}

	slog.InfoContext(ctx, "enrichment batch done",
		"processed", stats.Processed,
		"enriched", stats.Enriched,
	)
	return stats, nil
}

func (p *Pipeline) enrichOne(ctx context.Context, record Record) string {
	for _, domain := range CandidateDomains(record.Firm) {
		res, err := p.http.R().
			SetContext(ctx).
			Get(p.fetchURL(domain))
		if err != nil {
			continue
		}
		emails := emailRegex.FindAllString(res.String(), -1)
		if len(emails) == 0 {
			continue
		}
		picked := pickEmail(emails, record.FirstName, record.LastName)
		if picked != "" {
			slog.DebugContext(ctx, "found contact address",
				"id", record.ID, "domain", domain)
			return picked
		}
	}
	return ""
}

// CandidateDomains derives the plausible web domains for a firm name:
// legal suffixes stripped, lower-cased, non-alphanumerics removed,
// tried against .ca and .com with www. variants.
func CandidateDomains(firm string) []string {
	base := strings.ToLower(strings.TrimSpace(firm))
	if base == "" {
		return nil
	}
	for _, suffix := range legalSuffixes {
		base = strings.ReplaceAll(base, suffix, " ")
	}
	base = nonAlnumRegex.ReplaceAllString(base, "")
	if base == "" {
		return nil
	}

	return []string{
		base + ".ca",
		base + ".com",
		"www." + base + ".ca",
		"www." + base + ".com",
	}
}

// prefer an address carrying the person's name over generic role
// addresses, then any non-generic address, then anything at all
func pickEmail(emails []string, firstName, lastName string) string {
	firstName = strings.ToLower(firstName)
	lastName = strings.ToLower(lastName)

	for _, email := range emails {
		local := strings.ToLower(strings.Split(email, "@")[0])
		if firstName != "" && strings.Contains(local, firstName) {
			return email
		}
		if lastName != "" && strings.Contains(local, lastName) {
			return email
		}
	}
	for _, email := range emails {
		if !isGeneric(email) {
			return email
		}
	}
	if len(emails) > 0 {
		return emails[0]
	}
	return ""
}

func isGeneric(email string) bool {
	local := strings.ToLower(strings.Split(email, "@")[0])
	for _, prefix := range genericPrefixes {
		if local == prefix || strings.HasPrefix(local, prefix+".") {
			return true
		}
	}
	return false
}
