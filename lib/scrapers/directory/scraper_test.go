package directory

import (
	"context"
	"fmt"
	"net/http"
	"net/http/httptest"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/require"

	"cpaintel-backend/lib/directoryparse"
	"cpaintel-backend/lib/sessionform"
	"cpaintel-backend/lib/telemetry"
)

type memStore struct {
	mu      sync.Mutex
	people  map[string]Person
	inserts int
}

func newMemStore() *memStore {
	return &memStore{people: map[string]Person{}}
}

func (s *memStore) HasPerson(_ context.Context, hash string) (bool, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	_, ok := s.people[hash]
	return ok, nil
}

func (s *memStore) InsertPerson(_ context.Context, p Person, _ string) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.people[p.IdentityHash] = p
	s.inserts++
	return nil
}

func testOptions() sessionform.Options {
	return sessionform.Options{
		Delay: time.Millisecond,
		Sleep: func(time.Duration) {},
	}
}

func withSurnames(t *testing.T, surnames []string) {
	original := commonSurnames
	commonSurnames = surnames
	t.Cleanup(func() { commonSurnames = original })
}

func gridConfig(serverURL string) Config {
	columns := directoryparse.NewColumnMap()
	columns.FullName = 0
	columns.City = 1
	columns.DesignationInName = true

	return Config{
		Source:      "cpa-test",
		Province:    "SK",
		EntryURL:    serverURL,
		SearchField: "LastName",
		Strategy:    StrategyExactList,
		Parser:      ParserGrid,
		Columns:     columns,
	}
}

func TestDedupIdempotence(t *testing.T) {
	cleanup := telemetry.SetupForTesting(t, "test:scrapers/directory")
	defer cleanup()
	withSurnames(t, []string{"Smith"})

	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if r.Method == http.MethodGet {
			fmt.Fprint(w, `<form>
				<input type="hidden" name="__VIEWSTATE" value="v1" />
				<input type="text" name="LastName" />
			</form>`)
			return
		}
		fmt.Fprint(w, `<table>
			<tr class="header"><td>Name</td><td>City</td></tr>
			<tr><td>Smith, John CPA, CA</td><td>Regina</td></tr>
			<tr><td>Smith, Jane CPA</td><td>Saskatoon</td></tr>
		</table>`)
	}))
	defer server.Close()

	store := newMemStore()
	ctx := context.Background()

	first, err := mustScraper(t, gridConfig(server.URL), store).Run(ctx, "job-1")
	require.NoError(t, err)
	require.Equal(t, 2, first.Found)
	require.Equal(t, 2, first.Inserted)
	require.Equal(t, 0, first.Skipped)

	second, err := mustScraper(t, gridConfig(server.URL), store).Run(ctx, "job-2")
	require.NoError(t, err)
	require.Equal(t, 2, second.Found)
	require.Equal(t, 0, second.Inserted)
	require.Equal(t, first.Inserted, second.Skipped)
	require.Equal(t, 2, store.inserts)
}

func mustScraper(t *testing.T, cfg Config, store Store) *Scraper {
	s, err := New(cfg, store, testOptions())
	require.NoError(t, err)
	return s
}

func TestNarrowingAggregatesAcrossInitials(t *testing.T) {
	cleanup := telemetry.SetupForTesting(t, "test:scrapers/directory")
	defer cleanup()
	withSurnames(t, []string{"Smith"})

	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if r.Method == http.MethodGet {
			fmt.Fprint(w, `<form><input type="text" name="txtLastName" /><input type="text" name="txtFirstName" /></form>`)
			return
		}
		require.NoError(t, r.ParseForm())
		initial := r.PostForm.Get("txtFirstName")
		switch initial {
		case "":
			fmt.Fprint(w, `<h2>Too many results were found. Please refine your search.</h2>`)
		case "A":
			fmt.Fprint(w, `<table>
				<tr><td>Member Name:</td><td>Adam Smith</td></tr>
				<tr><td>City:</td><td>Calgary</td></tr>
			</table>`)
		case "B":
			fmt.Fprint(w, `<table>
				<tr><td>Member Name:</td><td>Beth Smith</td></tr>
				<tr><td>City:</td><td>Edmonton</td></tr>
			</table>`)
		default:
			fmt.Fprint(w, `<h2>No results matched your search.</h2>`)
		}
	}))
	defer server.Close()

	cfg := Config{
		Source:       "cpa-ab-test",
		Province:     "AB",
		EntryURL:     server.URL,
		SearchField:  "txtLastName",
		InitialField: "txtFirstName",
		Strategy:     StrategyNarrow,
		Parser:       ParserDetail,
	}

	store := newMemStore()
	counts, err := mustScraper(t, cfg, store).Run(context.Background(), "job-1")
	require.NoError(t, err)
	require.Equal(t, 2, counts.Found, "results must be aggregated across narrowed sub-searches")
	require.Equal(t, 2, counts.Inserted)
}

func TestGridRefusalTriggersNarrowing(t *testing.T) {
	cleanup := telemetry.SetupForTesting(t, "test:scrapers/directory")
	defer cleanup()
	withSurnames(t, []string{"Tremblay"})

	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if r.Method == http.MethodGet {
			fmt.Fprint(w, `<form><input type="text" name="txtLastName" /><input type="text" name="txtFirstName" /></form>`)
			return
		}
		require.NoError(t, r.ParseForm())
		switch r.PostForm.Get("txtFirstName") {
		case "":
			fmt.Fprint(w, `<h2>Too many results were found. Please refine your search.</h2>`)
		case "A":
			fmt.Fprint(w, `<table>
				<tr class="header"><td>Name</td><td>City</td></tr>
				<tr><td>Tremblay, Alice CPA</td><td>Montreal</td></tr>
			</table>`)
		default:
			fmt.Fprint(w, `<p>No records were found.</p>`)
		}
	}))
	defer server.Close()

	columns := directoryparse.NewColumnMap()
	columns.FullName = 0
	columns.City = 1
	columns.DesignationInName = true

	cfg := Config{
		Source:       "cpa-qc-test",
		Province:     "QC",
		EntryURL:     server.URL,
		SearchField:  "txtLastName",
		InitialField: "txtFirstName",
		Strategy:     StrategyNarrow,
		Parser:       ParserGrid,
		Columns:      columns,
	}

	store := newMemStore()
	counts, err := mustScraper(t, cfg, store).Run(context.Background(), "job-1")
	require.NoError(t, err)
	require.Equal(t, 1, counts.Found, "grid refusal pages must narrow instead of reading as empty")
	require.Equal(t, 1, counts.Inserted)
}

func TestCaptchaProbeFailsFast(t *testing.T) {
	cleanup := telemetry.SetupForTesting(t, "test:scrapers/directory")
	defer cleanup()

	requests := 0
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		requests++
		fmt.Fprint(w, `<html><body><div class="g-recaptcha" data-sitekey="x"></div></body></html>`)
	}))
	defer server.Close()

	cfg := gridConfig(server.URL)
	cfg.CaptchaGated = true

	_, err := mustScraper(t, cfg, newMemStore()).Run(context.Background(), "job-1")
	require.ErrorIs(t, err, ErrCaptchaDetected)
	require.Equal(t, 1, requests, "must fail before enumerating")
}

func TestMissingSearchFieldIsFatal(t *testing.T) {
	cleanup := telemetry.SetupForTesting(t, "test:scrapers/directory")
	defer cleanup()

	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		fmt.Fprint(w, `<html><body><p>site redesign, no form here</p></body></html>`)
	}))
	defer server.Close()

	_, err := mustScraper(t, gridConfig(server.URL), newMemStore()).Run(context.Background(), "job-1")
	require.Error(t, err)
	require.Contains(t, err.Error(), "LastName")
}

func TestSPAFallbackRecordsLimitation(t *testing.T) {
	cleanup := telemetry.SetupForTesting(t, "test:scrapers/directory")
	defer cleanup()
	withSurnames(t, []string{"Smith"})

	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		fmt.Fprint(w, `<html><body><div id="app"></div></body></html>`)
	}))
	defer server.Close()

	cfg := Config{
		Source:   "cpa-on-test",
		Province: "ON",
		EntryURL: server.URL,
		Strategy: StrategySPA,
		Parser:   ParserScriptArray,
	}

	counts, err := mustScraper(t, cfg, newMemStore()).Run(context.Background(), "job-1")
	require.NoError(t, err)
	require.Zero(t, counts.Found)
	require.NotEmpty(t, counts.Note, "empty SPA sweep must be operator-visible")
}

func TestJurisdictionConfigsValid(t *testing.T) {
	sources := map[string]bool{}
	for _, cfg := range Jurisdictions() {
		require.NoError(t, cfg.validate(), cfg.Source)
		require.False(t, sources[cfg.Source], "duplicate source tag")
		sources[cfg.Source] = true
	}
	require.Len(t, sources, 10)
}
