package pgstore_test

import (
	"context"
	"os"
	"sync"
	"testing"

	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"studioflow/internal/config"
	"studioflow/internal/jobs"
	"studioflow/internal/jobs/pgstore"
	"studioflow/internal/testsupport"
)

// openStore connects to STUDIOFLOW_TEST_POSTGRES_URL and skips otherwise.
// Every test works under fresh ids so runs against a shared database do not
// collide.
func openStore(t *testing.T) *pgstore.Store {
	t.Helper()
	url := os.Getenv("STUDIOFLOW_TEST_POSTGRES_URL")
	if url == "" {
		t.Skip("STUDIOFLOW_TEST_POSTGRES_URL not set")
	}
	cfg := testsupport.NewConfig(t)
	cfg.Store.Driver = config.DriverPostgres
	cfg.Store.PostgresURL = url

	store, err := pgstore.Open(context.Background(), cfg)
	require.NoError(t, err)
	t.Cleanup(func() { _ = store.Close() })
	return store
}

func TestCommitTransitionConflict(t *testing.T) {
	store := openStore(t)
	ctx := context.Background()

	job := &jobs.Job{
		ID: uuid.NewString(), Title: "pg job", Type: jobs.TypeConsultation,
		Status: jobs.StatusPending, CreatorID: "admin", ClientID: "client",
	}
	require.NoError(t, store.InsertJobs(ctx, []*jobs.Job{job}, nil))

	loaded, err := store.GetJob(ctx, job.ID)
	require.NoError(t, err)
	require.NotNil(t, loaded)
	pre := loaded.Precondition()

	first := loaded.Clone()
	first.Status = jobs.StatusReview
	require.NoError(t, store.CommitTransition(ctx, first, pre, nil))

	second := loaded.Clone()
	second.Status = jobs.StatusCompleted
	require.ErrorIs(t, store.CommitTransition(ctx, second, pre, nil), jobs.ErrConflict)

	require.NoError(t, store.DeleteJob(ctx, job.ID, 0))
	require.ErrorIs(t, store.DeleteJob(ctx, job.ID, 0), jobs.ErrJobNotFound)
}

func TestCommitTransitionGatesOnPredecessor(t *testing.T) {
	store := openStore(t)
	ctx := context.Background()

	pred := &jobs.Job{
		ID: uuid.NewString(), Title: "pg pred", Type: jobs.TypeConsultation,
		Status: jobs.StatusPending, CreatorID: "admin", ClientID: "client",
	}
	dep := &jobs.Job{
		ID: uuid.NewString(), Title: "pg dependent", Type: jobs.TypeConsultation,
		Status: jobs.StatusPending, CreatorID: "admin", ClientID: "client", DependsOn: pred.ID,
	}
	require.NoError(t, store.InsertJobs(ctx, []*jobs.Job{pred, dep}, nil))

	loaded, err := store.GetJob(ctx, dep.ID)
	require.NoError(t, err)
	next := loaded.Clone()
	next.Status = jobs.StatusCompleted
	require.ErrorIs(t, store.CommitTransition(ctx, next, loaded.GatedPrecondition(), nil), jobs.ErrPredecessorPending)

	predLoaded, err := store.GetJob(ctx, pred.ID)
	require.NoError(t, err)
	finished := predLoaded.Clone()
	finished.Status = jobs.StatusCompleted
	require.NoError(t, store.CommitTransition(ctx, finished, predLoaded.Precondition(), nil))
	require.NoError(t, store.CommitTransition(ctx, next, loaded.GatedPrecondition(), nil))

	require.NoError(t, store.DeleteJob(ctx, dep.ID, 0))
	require.NoError(t, store.DeleteJob(ctx, pred.ID, 0))
}

func TestClientPackageReads(t *testing.T) {
	store := openStore(t)
	ctx := context.Background()

	clientID := "client-" + uuid.NewString()
	tmpl := jobs.PackageTemplate{ID: uuid.NewString(), Name: "Silver", Items: map[jobs.ServiceType]int{jobs.ServiceCapture: 3}}
	require.NoError(t, store.UpsertPackageTemplate(ctx, tmpl))
	for _, a := range []jobs.Assignment{
		{ID: uuid.NewString(), ClientID: clientID, TemplateID: tmpl.ID,
			StartDate: testsupport.MustDate(t, "2026-01-01"), EndDate: testsupport.MustDate(t, "2026-12-31"), Active: true},
		{ID: uuid.NewString(), ClientID: clientID, TemplateID: tmpl.ID,
			StartDate: testsupport.MustDate(t, "2026-01-01"), EndDate: testsupport.MustDate(t, "2026-03-31"), Active: false},
	} {
		require.NoError(t, store.UpsertAssignment(ctx, a))
	}

	list, err := store.ListAssignments(ctx, clientID)
	require.NoError(t, err)
	require.Len(t, list, 2)
	assert.Equal(t, "2026-03-31", list[0].EndDate.Format(jobs.DateLayout))
	assert.False(t, list[0].Active)

	got, err := store.GetPackageTemplate(ctx, tmpl.ID)
	require.NoError(t, err)
	assert.Equal(t, &tmpl, got)

	missing, err := store.GetPackageTemplate(ctx, uuid.NewString())
	require.NoError(t, err)
	assert.Nil(t, missing)
}

func TestConcurrentDebitsRespectGrant(t *testing.T) {
	store := openStore(t)
	ctx := context.Background()

	clientID := "client-" + uuid.NewString()
	tmpl := jobs.PackageTemplate{ID: uuid.NewString(), Name: "pg", Items: map[jobs.ServiceType]int{jobs.ServiceCapture: 2}}
	require.NoError(t, store.UpsertPackageTemplate(ctx, tmpl))
	asg := jobs.Assignment{
		ID: uuid.NewString(), ClientID: clientID, TemplateID: tmpl.ID,
		StartDate: testsupport.MustDate(t, "2026-01-01"), EndDate: testsupport.MustDate(t, "2026-12-31"), Active: true,
	}
	require.NoError(t, store.UpsertAssignment(ctx, asg))
	day := testsupport.MustDate(t, "2026-05-05")

	var (
		wg      sync.WaitGroup
		mu      sync.Mutex
		written int
	)
	for i := 0; i < 6; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			err := store.Debit(ctx, func(ctx context.Context, tx jobs.LedgerTx) error {
				candidates, err := tx.EligibleAssignments(ctx, clientID, jobs.ServiceCapture, day)
				if err != nil || len(candidates) == 0 || candidates[0].Remaining() < 1 {
					return err
				}
				ok, err := tx.InsertUsage(ctx, jobs.UsageRecord{
					ID: uuid.NewString(), AssignmentID: candidates[0].ID,
					ServiceType: jobs.ServiceCapture, Quantity: 1, JobID: uuid.NewString(),
				})
				if ok {
					mu.Lock()
					written++
					mu.Unlock()
				}
				return err
			})
			assert.NoError(t, err)
		}()
	}
	wg.Wait()
	assert.Equal(t, 2, written)

	summary, err := store.UsageSummary(ctx, asg.ID)
	require.NoError(t, err)
	require.Len(t, summary.Lines, 1)
	assert.Equal(t, 0, summary.Lines[0].Remaining)
}
