package members

import (
	"context"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/require"

	configsqlite "cpaintel-backend/lib/configutil/sqlite"
	"cpaintel-backend/lib/identity"
	directoryscraper "cpaintel-backend/lib/scrapers/directory"
	"cpaintel-backend/services/members/db"
)

func newTestStore(t *testing.T) Store {
	t.Helper()
	database, err := configsqlite.Struct{
		File: filepath.Join(t.TempDir(), "members.db"),
	}.OpenDB(db.Schema)
	require.NoError(t, err)
	t.Cleanup(func() { database.Close() })
	return NewStore(database)
}

func testPerson(fullName, province string) directoryscraper.Person {
	return directoryscraper.Person{
		Source:       "cpa-bc",
		FullName:     fullName,
		Province:     province,
		City:         "Vancouver",
		Designation:  "CPA, CA",
		IdentityHash: identity.Hash(fullName, province),
	}
}

func TestInsertAndDedup(t *testing.T) {
	ctx := context.Background()
	store := newTestStore(t)
	person := testPerson("Jane Chen", "BC")

	found, err := store.HasPerson(ctx, person.IdentityHash)
	require.NoError(t, err)
	require.False(t, found)

	require.NoError(t, store.InsertPerson(ctx, person, "job-1"))

	found, err = store.HasPerson(ctx, person.IdentityHash)
	require.NoError(t, err)
	require.True(t, found)

	// a duplicate insert is dropped, not an error
	require.NoError(t, store.InsertPerson(ctx, person, "job-2"))

	count, err := store.CountPersons(ctx, PersonFilter{})
	require.NoError(t, err)
	require.Equal(t, 1, count)
}

func TestListPersonsFilters(t *testing.T) {
	ctx := context.Background()
	store := newTestStore(t)

	bc := testPerson("Jane Chen", "BC")
	require.NoError(t, store.InsertPerson(ctx, bc, "job-1"))
	on := testPerson("Omar Haddad", "ON")
	on.Source = "cpa-on"
	on.City = "Toronto"
	require.NoError(t, store.InsertPerson(ctx, on, "job-1"))

	people, err := store.ListPersons(ctx, PersonFilter{Province: "ON"})
	require.NoError(t, err)
	require.Len(t, people, 1)
	require.Equal(t, "Omar Haddad", people[0].FullName)
	require.Equal(t, StatusRaw, people[0].Status)

	people, err = store.ListPersons(ctx, PersonFilter{City: "Vancouver", Source: "cpa-bc"})
	require.NoError(t, err)
	require.Len(t, people, 1)
	require.Equal(t, "Jane Chen", people[0].FullName)

	people, err = store.ListPersons(ctx, PersonFilter{Province: "QC"})
	require.NoError(t, err)
	require.Empty(t, people)
}

func TestListPersonsPaging(t *testing.T) {
	ctx := context.Background()
	store := newTestStore(t)

	names := []string{"Amy Adams", "Ben Brown", "Cara Cole"}
	for _, name := range names {
		require.NoError(t, store.InsertPerson(ctx, testPerson(name, "BC"), "job-1"))
	}

	first, err := store.ListPersons(ctx, PersonFilter{Limit: 2, Page: 1})
	require.NoError(t, err)
	require.Len(t, first, 2)

	second, err := store.ListPersons(ctx, PersonFilter{Limit: 2, Page: 2})
	require.NoError(t, err)
	require.Len(t, second, 1)
	require.Equal(t, "Cara Cole", second[0].FullName)
}

func TestPurgeSource(t *testing.T) {
	ctx := context.Background()
	store := newTestStore(t)

	require.NoError(t, store.InsertPerson(ctx, testPerson("Jane Chen", "BC"), "job-1"))
	other := testPerson("Omar Haddad", "ON")
	other.Source = "cpa-on"
	require.NoError(t, store.InsertPerson(ctx, other, "job-1"))

	purged, err := store.PurgeSource(ctx, "cpa-bc")
	require.NoError(t, err)
	require.EqualValues(t, 1, purged)

	count, err := store.CountPersons(ctx, PersonFilter{})
	require.NoError(t, err)
	require.Equal(t, 1, count)
}

func TestEnrichmentSelection(t *testing.T) {
	ctx := context.Background()
	store := newTestStore(t)

	withFirm := testPerson("Jane Chen", "BC")
	withFirm.FirstName = "Jane"
	withFirm.LastName = "Chen"
	require.NoError(t, store.InsertPerson(ctx, withFirm, "job-1"))
	_, err := store.db.ExecContext(ctx,
		`UPDATE scraped_person SET firm = 'Chen & Partners LLP' WHERE full_name = 'Jane Chen'`)
	require.NoError(t, err)

	// no firm, never eligible
	require.NoError(t, store.InsertPerson(ctx, testPerson("Omar Haddad", "BC"), "job-1"))

	records, err := store.SelectUnenriched(ctx, 10)
	require.NoError(t, err)
	require.Len(t, records, 1)
	require.Equal(t, "Chen & Partners LLP", records[0].Firm)

	require.NoError(t, store.SetEmail(ctx, records[0].ID, "jane.chen@chenpartners.ca"))

	// enriched records drop out of the selection
	records, err = store.SelectUnenriched(ctx, 10)
	require.NoError(t, err)
	require.Empty(t, records)

	people, err := store.ListPersons(ctx, PersonFilter{Status: StatusEnriched})
	require.NoError(t, err)
	require.Len(t, people, 1)
	require.Equal(t, "jane.chen@chenpartners.ca", people[0].Email)

	require.Error(t, store.SetEmail(ctx, 9999, "nobody@example.com"))
}

func TestJobLifecycle(t *testing.T) {
	ctx := context.Background()
	store := newTestStore(t)

	require.NoError(t, store.CreateJob(ctx, "job-1", "cpa-bc"))

	job, err := store.GetJob(ctx, "job-1")
	require.NoError(t, err)
	require.Equal(t, JobRunning, job.Status)
	require.True(t, job.CompletedAt.IsZero())

	counts := directoryscraper.Counts{Found: 10, Inserted: 7, Skipped: 3, Note: "partial"}
	require.NoError(t, store.CompleteJob(ctx, "job-1", counts))

	job, err = store.GetJob(ctx, "job-1")
	require.NoError(t, err)
	require.Equal(t, JobCompleted, job.Status)
	require.Equal(t, 10, job.Found)
	require.Equal(t, 7, job.Inserted)
	require.Equal(t, 3, job.Skipped)
	require.Equal(t, "partial", job.Note)
	require.False(t, job.CompletedAt.IsZero())

	require.NoError(t, store.CreateJob(ctx, "job-2", "cpa-on"))
	require.NoError(t, store.FailJob(ctx, "job-2", "session could not be re-established"))

	job, err = store.GetJob(ctx, "job-2")
	require.NoError(t, err)
	require.Equal(t, JobFailed, job.Status)
	require.Equal(t, "session could not be re-established", job.Error)

	jobs, err := store.RecentJobs(ctx, 10)
	require.NoError(t, err)
	require.Len(t, jobs, 2)
	// most recent first; same-second starts fall back to id order
	require.Equal(t, "job-2", jobs[0].ID)
}
