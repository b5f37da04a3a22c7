package directory

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"net/url"

	"github.com/PuerkitoBio/goquery"
	"github.com/antzucaro/matchr"
	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/codes"

	"cpaintel-backend/lib/directoryparse"
	"cpaintel-backend/lib/identity"
	"cpaintel-backend/lib/sessionform"
	"cpaintel-backend/lib/textutil"
)

var tracer = otel.Tracer("scrapers/directory")

type Scraper struct {
	cfg    Config
	client *sessionform.Client
	store  Store

	// normalized names inserted during this run, for the
	// near-duplicate warning
	seenNames []string
}

func New(cfg Config, store Store, opts sessionform.Options) (*Scraper, error) {
	if err := cfg.validate(); err != nil {
		return nil, err
	}
	if opts.EntryURL == "" {
		opts.EntryURL = cfg.EntryURL
	}
	client, err := sessionform.NewClient(opts)
	if err != nil {
		return nil, err
	}
	return &Scraper{cfg: cfg, client: client, store: store}, nil
}

func (s *Scraper) Source() string { return s.cfg.Source }

// Run executes one full enumeration of the directory. Individual term
// failures are logged and skipped; only a lost session or a structural
// failure ends the run early.
func (s *Scraper) Run(ctx context.Context, jobID string) (Counts, error) {
	ctx, span := tracer.Start(ctx, "scraper:Run")
	defer span.End()
	span.SetAttributes(attribute.String("source", s.cfg.Source))

	counts := Counts{}

	if s.cfg.CaptchaGated {
		if err := s.probeCaptcha(ctx); err != nil {
			span.SetStatus(codes.Error, err.Error())
			return counts, err
		}
	}

	if s.cfg.Strategy != StrategySPA {
		if err := s.checkSearchForm(ctx); err != nil {
			span.SetStatus(codes.Error, err.Error())
			return counts, err
		}
	}

	var err error
	switch s.cfg.Strategy {
	case StrategyPrefix:
		err = s.runPrefixSweep(ctx, jobID, &counts)
	case StrategyExactList:
		err = s.runExactList(ctx, jobID, &counts)
	case StrategyNarrow:
		err = s.runNarrowing(ctx, jobID, &counts)
	case StrategySPA:
		err = s.runSPAFallback(ctx, jobID, &counts)
	default:
		err = fmt.Errorf("%s: unknown enumeration strategy %q", s.cfg.Source, s.cfg.Strategy)
	}
	if err != nil {
		span.SetStatus(codes.Error, err.Error())
		return counts, err
	}

	slog.InfoContext(ctx, "directory run complete",
		"source", s.cfg.Source,
		"found", counts.Found,
		"inserted", counts.Inserted,
		"skipped", counts.Skipped,
	)
	return counts, nil
}

// cheap probe before investing in a full enumeration
func (s *Scraper) probeCaptcha(ctx context.Context) error {
	doc, err := s.client.Get(ctx, s.cfg.EntryURL)
	if err != nil {
		return fmt.Errorf("%s: captcha probe failed: %w", s.cfg.Source, err)
	}
	if DetectCaptcha(doc) {
		return fmt.Errorf("%s: %w", s.cfg.Source, ErrCaptchaDetected)
	}
	return nil
}

// guessing a layout wrong would silently produce zero or garbage
// results, so a missing search field is fatal for the run
func (s *Scraper) checkSearchForm(ctx context.Context) error {
	if err := s.client.EstablishSession(ctx); err != nil {
		return fmt.Errorf("%s: establish session: %w", s.cfg.Source, err)
	}
	doc, err := s.client.Get(ctx, s.cfg.EntryURL)
	if err != nil {
		return fmt.Errorf("%s: fetch entry form: %w", s.cfg.Source, err)
	}
	selector := fmt.Sprintf("input[name=%q], select[name=%q]", s.cfg.SearchField, s.cfg.SearchField)
	if doc.Find(selector).Length() == 0 {
		return fmt.Errorf(
			"%s: expected search field %q not found on entry page, directory layout changed",
			s.cfg.Source, s.cfg.SearchField,
		)
	}
	return nil
}

func (s *Scraper) runPrefixSweep(ctx context.Context, jobID string, counts *Counts) error {
	term := 0
	for a := 'a'; a <= 'z'; a++ {
		for b := 'a'; b <= 'z'; b++ {
			prefix := string(a) + string(b)
			if err := s.searchAndCollect(ctx, jobID, prefix, "", counts); err != nil {
				return err
			}
			term++
		}
		slog.InfoContext(ctx, "prefix sweep progress",
			"source", s.cfg.Source,
			"completed", term,
			"of", 26*26,
			"found", counts.Found,
		)
	}
	return nil
}

func (s *Scraper) runExactList(ctx context.Context, jobID string, counts *Counts) error {
	for _, surname := range commonSurnames {
		if err := s.searchAndCollect(ctx, jobID, surname, "", counts); err != nil {
			return err
		}
	}
	return nil
}

// search by surname alone; when the directory refuses for matching too
// many members, re-issue narrowed by each first-name initial
func (s *Scraper) runNarrowing(ctx context.Context, jobID string, counts *Counts) error {
	for _, surname := range commonSurnames {
		s.client.Throttle()
		people, err := s.searchOnce(ctx, surname, "")
		if errors.Is(err, directoryparse.ErrTooManyResults) {
			slog.DebugContext(ctx, "narrowing refused surname",
				"source", s.cfg.Source, "surname", surname)
			for initial := 'A'; initial <= 'Z'; initial++ {
				if err := s.searchAndCollect(ctx, jobID, surname, string(initial), counts); err != nil {
					return err
				}
			}
			continue
		}
		if err != nil {
			if errors.Is(err, sessionform.ErrSessionLost) {
				return err
			}
			slog.WarnContext(ctx, "search term failed",
				"source", s.cfg.Source, "term", surname, "err", err)
			continue
		}
		s.collect(ctx, jobID, people, counts)
	}
	return nil
}

// script-rendered SPAs expose no server-rendered results; a
// query-string GET is attempted in case of partial pre-rendering, and
// a fully empty sweep is recorded as a known limitation rather than a
// silent zero
func (s *Scraper) runSPAFallback(ctx context.Context, jobID string, counts *Counts) error {
	for _, surname := range commonSurnames {
		s.client.Throttle()

		link := fmt.Sprintf("%s?search=%s", s.cfg.searchURL(), url.QueryEscape(surname))
		doc, err := s.client.Get(ctx, link)
		if err != nil {
			if errors.Is(err, sessionform.ErrSessionLost) {
				return err
			}
			slog.WarnContext(ctx, "spa fallback fetch failed",
				"source", s.cfg.Source, "term", surname, "err", err)
			continue
		}
		s.collect(ctx, jobID, directoryparse.ParseScriptArray(doc), counts)
	}

	if counts.Found == 0 {
		counts.Note = "script-rendered directory returned no server-side results; requires a browser-automation integration"
		slog.WarnContext(ctx, "spa fallback found nothing",
			"source", s.cfg.Source, "note", counts.Note)
	}
	return nil
}

// searchAndCollect runs one throttled search term, isolating per-term
// failures so one bad term never aborts the sweep.
func (s *Scraper) searchAndCollect(ctx context.Context, jobID, lastName, initial string, counts *Counts) error {
	s.client.Throttle()

	people, err := s.searchOnce(ctx, lastName, initial)
	if err != nil {
		if errors.Is(err, sessionform.ErrSessionLost) {
			return err
		}
		slog.WarnContext(ctx, "search term failed",
			"source", s.cfg.Source,
			"term", lastName,
			"initial", initial,
			"err", err,
		)
		return nil
	}
	s.collect(ctx, jobID, people, counts)
	return nil
}

func (s *Scraper) searchOnce(ctx context.Context, lastName, initial string) ([]directoryparse.Person, error) {
	params := map[string]string{s.cfg.SearchField: lastName}
	if initial != "" && s.cfg.InitialField != "" {
		params[s.cfg.InitialField] = initial
	}

	doc, err := s.client.SubmitSearch(ctx, s.cfg.searchURL(), params, s.cfg.ClearFields)
	if err != nil {
		return nil, err
	}
	return s.parse(doc)
}

func (s *Scraper) parse(doc *goquery.Document) ([]directoryparse.Person, error) {
	switch s.cfg.Parser {
	case ParserDetail:
		p, err := directoryparse.ParseDetail(doc)
		if err != nil {
			return nil, err
		}
		if p == nil {
			return nil, nil
		}
		return []directoryparse.Person{*p}, nil
	case ParserScriptArray:
		return directoryparse.ParseScriptArray(doc), nil
	}
	people := directoryparse.ParseGrid(doc, s.cfg.Columns)
	// Grid directories refuse overly-broad queries with a sentinel
	// message instead of a result table. Surface that as the same
	// error the detail parser uses so narrowing can kick in.
	if len(people) == 0 && directoryparse.DetectRefusal(doc) {
		return nil, directoryparse.ErrTooManyResults
	}
	return people, nil
}

// collect hashes each parsed candidate, runs the dedup check and
// persists new people. Persistence failure on a single record skips
// that record, never the batch.
func (s *Scraper) collect(ctx context.Context, jobID string, people []directoryparse.Person, counts *Counts) {
	for _, parsed := range people {
		counts.Found++

		hash := identity.Hash(parsed.FullName, s.cfg.Province)
		exists, err := s.store.HasPerson(ctx, hash)
		if err != nil {
			slog.WarnContext(ctx, "dedup lookup failed",
				"source", s.cfg.Source, "name", parsed.FullName, "err", err)
			continue
		}
		if exists {
			counts.Skipped++
			continue
		}

		person := Person{
			Source:       s.cfg.Source,
			FirstName:    parsed.FirstName,
			LastName:     parsed.LastName,
			FullName:     parsed.FullName,
			Designation:  parsed.Designation,
			Province:     s.cfg.Province,
			City:         parsed.City,
			IdentityHash: hash,
		}
		if err := s.store.InsertPerson(ctx, person, jobID); err != nil {
			slog.WarnContext(ctx, "insert failed",
				"source", s.cfg.Source, "name", parsed.FullName, "err", err)
			continue
		}
		counts.Inserted++
		s.warnNearDuplicate(ctx, parsed.FullName)
	}
}

// flags likely typo-variants of the same person for operators; the
// identity hash intentionally treats them as distinct
func (s *Scraper) warnNearDuplicate(ctx context.Context, fullName string) {
	normalized := textutil.NormalizeName(fullName)
	for _, seen := range s.seenNames {
		if seen == normalized {
			continue
		}
		if matchr.Levenshtein(seen, normalized) <= 2 {
			slog.DebugContext(ctx, "possible near-duplicate name",
				"source", s.cfg.Source, "name", fullName)
			break
		}
	}
	s.seenNames = append(s.seenNames, normalized)
}
