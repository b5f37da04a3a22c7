package registry

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"log/slog"
	"net/url"

	"github.com/PuerkitoBio/goquery"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/codes"

	"cpaintel-backend/lib/htmlutil"
	"cpaintel-backend/lib/sessionform"
)

// SearchConfig declares a keyword-search registry: a legacy form that
// returns result links, each resolving to a per-entity JSON detail
// resource.
type SearchConfig struct {
	Source   string
	Province string
	EntryURL string
	// form POST target, defaults to EntryURL
	SearchURL string
	// form field carrying the keyword
	KeywordField string
	// query parameter on result anchors holding the opaque entity id
	IDParam string
	// per-entity JSON resource, %s substitutes the entity id
	DetailURLFormat string
	// enumeration vocabulary, defaults to SearchTerms()
	Terms []string
}

func (c SearchConfig) searchURL() string {
	if c.SearchURL != "" {
		return c.SearchURL
	}
	return c.EntryURL
}

func (c SearchConfig) validate() error {
	if c.Source == "" || c.Province == "" || c.EntryURL == "" {
		return fmt.Errorf("search registry config requires source, province and entry url")
	}
	if c.KeywordField == "" || c.IDParam == "" || c.DetailURLFormat == "" {
		return fmt.Errorf("%s: keyword field, id param and detail url are required", c.Source)
	}
	return nil
}

type SearchScraper struct {
	cfg    SearchConfig
	client *sessionform.Client
	store  Store
}

func NewSearchScraper(cfg SearchConfig, store Store, opts sessionform.Options) (*SearchScraper, error) {
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
	return &SearchScraper{cfg: cfg, client: client, store: store}, nil
}

func (s *SearchScraper) Source() string { return s.cfg.Source }

// Run walks the term vocabulary, resolving each search hit to its
// detail record. Terms fail independently; only a lost session ends
// the run.
func (s *SearchScraper) Run(ctx context.Context, jobID string) (Counts, error) {
	ctx, span := tracer.Start(ctx, "search:Run")
	defer span.End()
	span.SetAttributes(attribute.String("source", s.cfg.Source))

	terms := s.cfg.Terms
	if terms == nil {
		terms = SearchTerms()
	}

	counts := Counts{}
	seenIDs := map[string]bool{}

	for _, term := range terms {
		s.client.Throttle()

		doc, err := s.client.SubmitSearch(ctx, s.cfg.searchURL(),
			map[string]string{s.cfg.KeywordField: term}, nil)
		if err != nil {
			if errors.Is(err, sessionform.ErrSessionLost) {
				span.SetStatus(codes.Error, "session lost")
				return counts, err
			}
			slog.WarnContext(ctx, "registry search failed",
				"source", s.cfg.Source, "term", term, "err", err)
			continue
		}

		for _, id := range s.entityIDs(doc.Find("a")) {
			if seenIDs[id] {
				continue
			}
			seenIDs[id] = true
			if err := s.collectEntity(ctx, jobID, id, &counts); err != nil {
				counts.Failed++
				slog.WarnContext(ctx, "entity fetch failed",
					"source", s.cfg.Source, "entity", id, "err", err)
			}
		}
	}
	return counts, nil
}

func (s *SearchScraper) entityIDs(links *goquery.Selection) []string {
	var ids []string
	for _, anchor := range htmlutil.GetAnchors(links) {
		href, err := url.Parse(anchor.Href)
		if err != nil {
			continue
		}
		if id := href.Query().Get(s.cfg.IDParam); id != "" {
			ids = append(ids, id)
		}
	}
	return ids
}

// entityDetail is the per-entity JSON resource shape.
type entityDetail struct {
	RegistryNumber string `json:"registryNumber"`
	Name           string `json:"name"`
	City           string `json:"city"`
	Province       string `json:"province"`
	Status         string `json:"status"`
	NAICSCode      string `json:"naicsCode"`
}

func (s *SearchScraper) collectEntity(ctx context.Context, jobID, id string, counts *Counts) error {
	s.client.Throttle()

	res, err := s.client.Http.R().
		SetContext(ctx).
		Get(fmt.Sprintf(s.cfg.DetailURLFormat, url.QueryEscape(id)))
	if err != nil {
		return err
	}
	if res.IsError() {
		return fmt.Errorf("detail resource returned %v", res.Status())
	}

	var detail entityDetail
	if err := json.Unmarshal(res.Body(), &detail); err != nil {
		return fmt.Errorf("decode detail: %w", err)
	}
	if detail.Name == "" {
		return fmt.Errorf("detail record has no name")
	}
	if detail.RegistryNumber == "" {
		detail.RegistryNumber = id
	}
	if detail.Province == "" {
		detail.Province = s.cfg.Province
	}
	counts.Found++

	exists, err := s.store.HasBusiness(ctx, detail.RegistryNumber)
	if err != nil {
		return err
	}
	if exists {
		counts.Skipped++
		return nil
	}

	business := Business{
		RegistryNumber:  detail.RegistryNumber,
		Name:            detail.Name,
		Province:        detail.Province,
		City:            detail.City,
		Industry:        IndustryLabel(detail.NAICSCode),
		OperatingStatus: detail.Status,
		Source:          s.cfg.Source,
	}
	inserted, err := s.store.InsertBusinesses(ctx, []Business{business}, jobID)
	if err != nil {
		return err
	}
	counts.Inserted += inserted
	counts.Skipped += 1 - inserted
	return nil
}
