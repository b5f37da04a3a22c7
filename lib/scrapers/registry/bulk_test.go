package registry

import (
	"archive/zip"
	"bytes"
	"context"
	"net/http"
	"net/http/httptest"
	"sync"
	"testing"

	"github.com/stretchr/testify/require"

	"cpaintel-backend/lib/telemetry"
)

type memStore struct {
	mu         sync.Mutex
	numbered   map[string]Business
	unnumbered []Business
	batches    int
}

func newMemStore() *memStore {
	return &memStore{numbered: map[string]Business{}}
}

func (s *memStore) HasBusiness(_ context.Context, registryNumber string) (bool, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	_, ok := s.numbered[registryNumber]
	return ok, nil
}

func (s *memStore) InsertBusinesses(_ context.Context, businesses []Business, _ string) (int, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.batches++
	inserted := 0
	for _, business := range businesses {
		if business.RegistryNumber == "" {
			s.unnumbered = append(s.unnumbered, business)
			inserted++
			continue
		}
		if _, ok := s.numbered[business.RegistryNumber]; ok {
			continue
		}
		s.numbered[business.RegistryNumber] = business
		inserted++
	}
	return inserted, nil
}

func (s *memStore) all() []Business {
	s.mu.Lock()
	defer s.mu.Unlock()
	all := append([]Business{}, s.unnumbered...)
	for _, business := range s.numbered {
		all = append(all, business)
	}
	return all
}

// zipArchive builds an in-memory zip with the given name → csv body
// entries.
func zipArchive(t *testing.T, entries map[string]string) []byte {
	t.Helper()
	var buffer bytes.Buffer
	writer := zip.NewWriter(&buffer)
	for name, body := range entries {
		entry, err := writer.Create(name)
		require.NoError(t, err)
		_, err = entry.Write([]byte(body))
		require.NoError(t, err)
	}
	require.NoError(t, writer.Close())
	return buffer.Bytes()
}

func serveArchive(t *testing.T, archive []byte) *httptest.Server {
	t.Helper()
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("Content-Type", "application/zip")
		w.Write(archive)
	}))
	t.Cleanup(server.Close)
	return server
}

const extractCSV = `"Registry Number","Business Name","City","Province","NAICS Code","Number of Employees","Status"
"BC0001","Acme Accounting Ltd.","Vancouver","BC","541212","12","Active"
"BC0002","Fraser Valley Farms, Inc.","Abbotsford","BC","111419","..","Active"
"BC0003","Mystery Holdings","Victoria","BC","99","5","Dissolved"
"BC0004","No Code Corp","Burnaby","BC","","3","Active"
"","","","","","",""
`

func TestBulkLoadExtract(t *testing.T) {
	cleanup := telemetry.SetupForTesting(t, "test:scrapers/registry")
	defer cleanup()

	archive := zipArchive(t, map[string]string{
		// the readme decoy is smaller than the data file
		"readme.csv":  "note\nsee main file\n",
		"extract.csv": extractCSV,
	})
	server := serveArchive(t, archive)

	store := newMemStore()
	loader, err := NewBulkLoader(BulkConfig{
		Source:      "reg-bc",
		DownloadURL: server.URL,
	}, store)
	require.NoError(t, err)

	counts, err := loader.Run(context.Background(), "job-1")
	require.NoError(t, err)
	require.Equal(t, 4, counts.Found)
	require.Equal(t, 4, counts.Inserted)
	// the all-empty trailer row has no name
	require.Equal(t, 1, counts.Failed)

	byNumber := map[string]Business{}
	for _, business := range store.all() {
		byNumber[business.RegistryNumber] = business
	}

	acme := byNumber["BC0001"]
	require.Equal(t, "Acme Accounting Ltd.", acme.Name)
	require.Equal(t, "Professional, Scientific and Technical Services", acme.Industry)
	require.Equal(t, "12", acme.Employees)
	require.Equal(t, "reg-bc", acme.Source)

	// the ".." withheld-value sentinel is stored as empty
	require.Equal(t, "", byNumber["BC0002"].Employees)
	require.Equal(t, "Agriculture, Forestry, Fishing and Hunting", byNumber["BC0002"].Industry)

	require.Equal(t, "Other", byNumber["BC0003"].Industry)
	require.Equal(t, "Unknown", byNumber["BC0004"].Industry)
}

func TestBulkLoadBatchesAndDedups(t *testing.T) {
	cleanup := telemetry.SetupForTesting(t, "test:scrapers/registry")
	defer cleanup()

	archive := zipArchive(t, map[string]string{
		"extract.csv": `"Business Name","Registry Number"
"One","R1"
"Two","R2"
"Three","R3"
"One Again","R1"
"Four","R4"
`,
	})
	server := serveArchive(t, archive)

	store := newMemStore()
	loader, err := NewBulkLoader(BulkConfig{
		Source:      "reg-bc",
		DownloadURL: server.URL,
		BatchSize:   2,
	}, store)
	require.NoError(t, err)

	counts, err := loader.Run(context.Background(), "job-1")
	require.NoError(t, err)
	require.Equal(t, 5, counts.Found)
	require.Equal(t, 4, counts.Inserted)
	require.Equal(t, 1, counts.Skipped)
	require.Equal(t, 3, store.batches)
}

func TestBulkLoadRequiresCSVEntry(t *testing.T) {
	cleanup := telemetry.SetupForTesting(t, "test:scrapers/registry")
	defer cleanup()

	archive := zipArchive(t, map[string]string{"readme.txt": "nothing here"})
	server := serveArchive(t, archive)

	loader, err := NewBulkLoader(BulkConfig{
		Source:      "reg-bc",
		DownloadURL: server.URL,
	}, newMemStore())
	require.NoError(t, err)

	_, err = loader.Run(context.Background(), "job-1")
	require.ErrorContains(t, err, "no csv entry")
}

func TestIndustryLabel(t *testing.T) {
	require.Equal(t, "Construction", IndustryLabel("236110"))
	require.Equal(t, "Manufacturing", IndustryLabel("31"))
	require.Equal(t, "Other", IndustryLabel("99999"))
	require.Equal(t, "Other", IndustryLabel("7"))
	require.Equal(t, "Unknown", IndustryLabel(""))
	require.Equal(t, "Unknown", IndustryLabel("  "))
}
