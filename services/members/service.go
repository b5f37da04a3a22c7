package members

import (
	"context"
	"fmt"
	"log/slog"
	"sort"
	"strings"
	"time"

	"github.com/google/uuid"
	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/codes"

	directoryscraper "cpaintel-backend/lib/scrapers/directory"
	"cpaintel-backend/lib/sessionform"
)

var tracer = otel.Tracer("services/members")

// Service orchestrates the provincial directory scrapers against a
// shared store. Scrapers run one at a time; a failure in one source
// never aborts the sweep.
type Service struct {
	store    Store
	opts     sessionform.Options
	scrapers map[string]directoryscraper.Config
	order    []string
}

func NewService(store Store, opts sessionform.Options, configs []directoryscraper.Config) (*Service, error) {
	service := &Service{
		store:    store,
		opts:     opts,
		scrapers: map[string]directoryscraper.Config{},
	}
	for _, cfg := range configs {
		if _, ok := service.scrapers[cfg.Source]; ok {
			return nil, fmt.Errorf("duplicate scraper source %q", cfg.Source)
		}
		service.scrapers[cfg.Source] = cfg
		service.order = append(service.order, cfg.Source)
	}
	return service, nil
}

func (s *Service) Sources() []string {
	sources := make([]string, len(s.order))
	copy(sources, s.order)
	return sources
}

// Outcome is the per-source result of a sweep.
type Outcome struct {
	JobID  string
	Counts directoryscraper.Counts
	Err    error
}

// RunAll sweeps every configured source sequentially and reports each
// source's outcome.
func (s *Service) RunAll(ctx context.Context) map[string]Outcome {
	ctx, span := tracer.Start(ctx, "members.RunAll")
	defer span.End()

	outcomes := map[string]Outcome{}
	for _, source := range s.order {
		jobID, counts, err := s.runOne(ctx, source)
		outcomes[source] = Outcome{JobID: jobID, Counts: counts, Err: err}
		if err != nil {
			slog.ErrorContext(ctx, "scrape failed",
				"source", source, "job", jobID, "err", err)
			continue
		}
		slog.InfoContext(ctx, "scrape completed",
			"source", source, "job", jobID,
			"found", counts.Found, "inserted", counts.Inserted,
			"skipped", counts.Skipped)
	}
	return outcomes
}

// RunSingle runs one source to completion and returns its job ID and
// counts.
func (s *Service) RunSingle(ctx context.Context, source string) (string, directoryscraper.Counts, error) {
	if _, ok := s.scrapers[source]; !ok {
		return "", directoryscraper.Counts{}, s.unknownSource(source)
	}
	return s.runOne(ctx, source)
}

// Rescrape purges every record for a source and immediately runs it
// again.
func (s *Service) Rescrape(ctx context.Context, source string) (string, directoryscraper.Counts, error) {
	if _, ok := s.scrapers[source]; !ok {
		return "", directoryscraper.Counts{}, s.unknownSource(source)
	}
	purged, err := s.store.PurgeSource(ctx, source)
	if err != nil {
		return "", directoryscraper.Counts{}, fmt.Errorf("purge %v: %w", source, err)
	}
	slog.InfoContext(ctx, "purged source", "source", source, "records", purged)
	return s.runOne(ctx, source)
}

// StartRun creates the job record synchronously, so the caller can
// poll it, then runs the scrape in the background. The job is
// guaranteed to leave the running state even if the scraper panics.
func (s *Service) StartRun(ctx context.Context, source string) (string, error) {
	if _, ok := s.scrapers[source]; !ok {
		return "", s.unknownSource(source)
	}
	jobID := uuid.NewString()
	if err := s.store.CreateJob(ctx, jobID, source); err != nil {
		return "", fmt.Errorf("create job: %w", err)
	}
	go func() {
		// independent lifetime from the request that started it
		runCtx, cancel := context.WithTimeout(context.Background(), 4*time.Hour)
		defer cancel()
		s.runScraper(runCtx, source, jobID)
	}()
	return jobID, nil
}

func (s *Service) runOne(ctx context.Context, source string) (string, directoryscraper.Counts, error) {
	jobID := uuid.NewString()
	if err := s.store.CreateJob(ctx, jobID, source); err != nil {
		return "", directoryscraper.Counts{}, fmt.Errorf("create job: %w", err)
	}
	counts, err := s.runScraper(ctx, source, jobID)
	return jobID, counts, err
}

func (s *Service) runScraper(ctx context.Context, source, jobID string) (counts directoryscraper.Counts, err error) {
	ctx, span := tracer.Start(ctx, "members.runScraper")
	defer span.End()

	defer func() {
		if r := recover(); r != nil {
			err = fmt.Errorf("scraper %v panicked: %v", source, r)
		}
		if err != nil {
			span.SetStatus(codes.Error, err.Error())
			if failErr := s.store.FailJob(ctx, jobID, err.Error()); failErr != nil {
				slog.ErrorContext(ctx, "could not mark job failed",
					"job", jobID, "err", failErr)
			}
			return
		}
		if completeErr := s.store.CompleteJob(ctx, jobID, counts); completeErr != nil {
			slog.ErrorContext(ctx, "could not mark job completed",
				"job", jobID, "err", completeErr)
		}
	}()

	scraper, err := directoryscraper.New(s.scrapers[source], s.store, s.opts)
	if err != nil {
		return directoryscraper.Counts{}, err
	}
	return scraper.Run(ctx, jobID)
}

func (s *Service) unknownSource(source string) error {
	known := s.Sources()
	sort.Strings(known)
	return fmt.Errorf("unknown source %q, expected one of: %v",
		source, strings.Join(known, ", "))
}
