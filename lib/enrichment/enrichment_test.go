package enrichment

import (
	"context"
	"fmt"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/stretchr/testify/require"

	"cpaintel-backend/lib/telemetry"
)

func TestCandidateDomains(t *testing.T) {
	domains := CandidateDomains("Smith & Jones Chartered Professional Accountants LLP")
	require.Equal(t, []string{
		"smithjones.ca",
		"smithjones.com",
		"www.smithjones.ca",
		"www.smithjones.com",
	}, domains)

	require.Nil(t, CandidateDomains(""))
	require.Nil(t, CandidateDomains("LLP Inc."))
}

func TestPickEmail(t *testing.T) {
	emails := []string{"info@acme.ca", "jsmith@acme.ca", "pat@acme.ca"}
	require.Equal(t, "jsmith@acme.ca", pickEmail(emails, "John", "Smith"))

	emails = []string{"info@acme.ca", "pat@acme.ca"}
	require.Equal(t, "pat@acme.ca", pickEmail(emails, "John", "Smith"))

	emails = []string{"info@acme.ca", "contact@acme.ca"}
	require.Equal(t, "info@acme.ca", pickEmail(emails, "John", "Smith"))

	require.Equal(t, "", pickEmail(nil, "John", "Smith"))
}

type fakeStore struct {
	records []Record
	emails  map[int64]string
}

func (s *fakeStore) SelectUnenriched(_ context.Context, limit int) ([]Record, error) {
	if len(s.records) > limit {
		return s.records[:limit], nil
	}
	return s.records, nil
}

func (s *fakeStore) SetEmail(_ context.Context, id int64, email string) error {
	if s.emails == nil {
		s.emails = map[int64]string{}
	}
	s.emails[id] = email
	return nil
}

func TestPipelineRun(t *testing.T) {
	cleanup := telemetry.SetupForTesting(t, "test:enrichment")
	defer cleanup()

	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		fmt.Fprint(w, `<html><body>
			Reach us at info@acmeaccounting.ca or jane.doe@acmeaccounting.ca
		</body></html>`)
	}))
	defer server.Close()

	store := &fakeStore{records: []Record{
		{ID: 1, FirstName: "Jane", LastName: "Doe", Firm: "ACME Accounting Ltd"},
	}}

	pipeline := NewPipeline(store, Options{
		Delay: time.Millisecond,
		Sleep: func(time.Duration) {},
	})
	pipeline.fetchURL = func(domain string) string { return server.URL + "/?d=" + domain }

	stats, err := pipeline.Run(context.Background())
	require.NoError(t, err)
	require.Equal(t, 1, stats.Processed)
	require.Equal(t, 1, stats.Enriched)
	require.Equal(t, "jane.doe@acmeaccounting.ca", store.emails[1])
}

func TestPipelineLeavesFailuresUntouched(t *testing.T) {
	cleanup := telemetry.SetupForTesting(t, "test:enrichment")
	defer cleanup()

	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		fmt.Fprint(w, `<html><body>no contact details here</body></html>`)
	}))
	defer server.Close()

	store := &fakeStore{records: []Record{
		{ID: 7, FirstName: "Sam", LastName: "Lee", Firm: "Lee & Partners"},
	}}

	pipeline := NewPipeline(store, Options{Sleep: func(time.Duration) {}})
	pipeline.fetchURL = func(domain string) string { return server.URL }

	stats, err := pipeline.Run(context.Background())
	require.NoError(t, err)
	require.Equal(t, 1, stats.Processed)
	require.Zero(t, stats.Enriched)
	require.Empty(t, store.emails)
}
