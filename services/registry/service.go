package registry

import (
	"context"
	"fmt"
	"log/slog"
	"sort"
	"strings"

	"github.com/google/uuid"
	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/codes"

	registryscraper "cpaintel-backend/lib/scrapers/registry"
	"cpaintel-backend/lib/sessionform"
)

var tracer = otel.Tracer("services/registry")

// runner is either ingestion mode: the bulk extract loader or the
// keyword-search scraper.
type runner interface {
	Source() string
	Run(ctx context.Context, jobID string) (registryscraper.Counts, error)
}

// Service orchestrates registry ingestion runs against a shared
// store, mirroring the member-directory orchestrator: sequential
// runs, per-source failure isolation, a terminal job state always.
type Service struct {
	store   Store
	runners map[string]runner
	order   []string
}

func NewService(store Store, opts sessionform.Options,
	bulkConfigs []registryscraper.BulkConfig,
	searchConfigs []registryscraper.SearchConfig,
) (*Service, error) {
	service := &Service{store: store, runners: map[string]runner{}}

	register := func(r runner) error {
		if _, ok := service.runners[r.Source()]; ok {
			return fmt.Errorf("duplicate registry source %q", r.Source())
		}
		service.runners[r.Source()] = r
		service.order = append(service.order, r.Source())
		return nil
	}

	for _, cfg := range bulkConfigs {
		loader, err := registryscraper.NewBulkLoader(cfg, store)
		if err != nil {
			return nil, err
		}
		if err := register(loader); err != nil {
			return nil, err
		}
	}
	for _, cfg := range searchConfigs {
		scraper, err := registryscraper.NewSearchScraper(cfg, store, opts)
		if err != nil {
			return nil, err
		}
		if err := register(scraper); err != nil {
			return nil, err
		}
	}
	return service, nil
}

func (s *Service) Sources() []string {
	sources := make([]string, len(s.order))
	copy(sources, s.order)
	return sources
}

type Outcome struct {
	JobID  string
	Counts registryscraper.Counts
	Err    error
}

func (s *Service) RunAll(ctx context.Context) map[string]Outcome {
	ctx, span := tracer.Start(ctx, "registry.RunAll")
	defer span.End()

	outcomes := map[string]Outcome{}
	for _, source := range s.order {
		jobID, counts, err := s.runOne(ctx, source)
		outcomes[source] = Outcome{JobID: jobID, Counts: counts, Err: err}
		if err != nil {
			slog.ErrorContext(ctx, "registry ingest failed",
				"source", source, "job", jobID, "err", err)
			continue
		}
		slog.InfoContext(ctx, "registry ingest completed",
			"source", source, "job", jobID,
			"found", counts.Found, "inserted", counts.Inserted,
			"skipped", counts.Skipped, "failed", counts.Failed)
	}
	return outcomes
}

func (s *Service) RunSingle(ctx context.Context, source string) (string, registryscraper.Counts, error) {
	if _, ok := s.runners[source]; !ok {
		return "", registryscraper.Counts{}, s.unknownSource(source)
	}
	return s.runOne(ctx, source)
}

func (s *Service) runOne(ctx context.Context, source string) (string, registryscraper.Counts, error) {
	jobID := uuid.NewString()
	if err := s.store.CreateJob(ctx, jobID, source); err != nil {
		return "", registryscraper.Counts{}, fmt.Errorf("create job: %w", err)
	}
	counts, err := s.run(ctx, source, jobID)
	return jobID, counts, err
}

func (s *Service) run(ctx context.Context, source, jobID string) (counts registryscraper.Counts, err error) {
	ctx, span := tracer.Start(ctx, "registry.run")
	defer span.End()

	defer func() {
		if r := recover(); r != nil {
			err = fmt.Errorf("registry runner %v panicked: %v", source, r)
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

	return s.runners[source].Run(ctx, jobID)
}

func (s *Service) unknownSource(source string) error {
	known := s.Sources()
	sort.Strings(known)
	return fmt.Errorf("unknown source %q, expected one of: %v",
		source, strings.Join(known, ", "))
}
