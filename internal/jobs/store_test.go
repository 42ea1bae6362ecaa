package jobs_test

import (
	"context"
	"errors"
	"sync"
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"studioflow/internal/jobs"
	"studioflow/internal/services"
	"studioflow/internal/testsupport"
)

func newJob(id string) *jobs.Job {
	return &jobs.Job{
		ID:        id,
		Title:     "Job " + id,
		Type:      jobs.TypeConsultation,
		Status:    jobs.StatusPending,
		CreatorID: "admin-1",
		ClientID:  "client-1",
	}
}

func TestOpenRecordsSchemaVersion(t *testing.T) {
	cfg := testsupport.NewConfig(t)
	store := testsupport.MustOpenStore(t, cfg)

	version, err := store.SchemaVersion(context.Background())
	require.NoError(t, err)
	assert.Equal(t, 1, version)
	assert.Equal(t, cfg.Store.SQLitePath, store.Path())

	require.NoError(t, store.Close())
	reopened, err := jobs.Open(cfg)
	require.NoError(t, err)
	require.NoError(t, reopened.Close())
}

func TestInsertAndGetJobRoundTrip(t *testing.T) {
	store := testsupport.MustOpenStore(t, testsupport.NewConfig(t))
	ctx := context.Background()

	job := newJob("job-1")
	job.PriceCents = 12500
	job.ExtraCostCents = 300
	job.ExtraCostReason = "travel"
	job.CountsAgainstPackage = true
	job.AssigneeID = "worker-1"
	job.History = []jobs.HistoryEntry{{
		ToStatus: jobs.StatusPending,
		At:       time.Date(2026, 3, 1, 9, 0, 0, 0, time.UTC),
		ActorID:  "admin-1",
		Note:     "created",
	}}
	require.NoError(t, store.InsertJobs(ctx, []*jobs.Job{job}, nil))

	got, err := store.GetJob(ctx, "job-1")
	require.NoError(t, err)
	require.NotNil(t, got)
	assert.Equal(t, 1, got.Version)
	assert.Equal(t, "travel", got.ExtraCostReason)
	assert.Equal(t, int64(12500), got.PriceCents)
	assert.True(t, got.CountsAgainstPackage)
	assert.Equal(t, "worker-1", got.AssigneeID)
	require.Len(t, got.History, 1)
	assert.Equal(t, "created", got.History[0].Note)
	assert.False(t, got.CreatedAt.IsZero())

	missing, err := store.GetJob(ctx, "nope")
	require.NoError(t, err)
	assert.Nil(t, missing)
}

func TestCommitTransitionDetectsStaleWriter(t *testing.T) {
	store := testsupport.MustOpenStore(t, testsupport.NewConfig(t))
	ctx := context.Background()
	require.NoError(t, store.InsertJobs(ctx, []*jobs.Job{newJob("job-1")}, nil))

	loaded, err := store.GetJob(ctx, "job-1")
	require.NoError(t, err)
	pre := loaded.Precondition()

	first := loaded.Clone()
	first.Status = jobs.StatusInProgress
	require.NoError(t, store.CommitTransition(ctx, first, pre, nil))
	assert.Equal(t, 2, first.Version)

	second := loaded.Clone()
	second.Status = jobs.StatusReview
	err = store.CommitTransition(ctx, second, pre, nil)
	require.ErrorIs(t, err, jobs.ErrConflict)
	assert.Equal(t, services.KindConflict, services.KindOf(err))

	current, err := store.GetJob(ctx, "job-1")
	require.NoError(t, err)
	assert.Equal(t, jobs.StatusInProgress, current.Status)
	assert.Equal(t, 2, current.Version)

	ghost := newJob("ghost")
	err = store.CommitTransition(ctx, ghost, jobs.Precondition{Version: 1, Status: jobs.StatusPending}, nil)
	require.ErrorIs(t, err, jobs.ErrJobNotFound)
}

func TestCommitTransitionGatesOnPredecessor(t *testing.T) {
	store := testsupport.MustOpenStore(t, testsupport.NewConfig(t))
	ctx := context.Background()
	a := newJob("a")
	b := newJob("b")
	b.DependsOn = "a"
	require.NoError(t, store.InsertJobs(ctx, []*jobs.Job{a, b}, nil))

	loaded, err := store.GetJob(ctx, "b")
	require.NoError(t, err)
	next := loaded.Clone()
	next.Status = jobs.StatusCompleted

	err = store.CommitTransition(ctx, next, loaded.GatedPrecondition(), nil)
	require.ErrorIs(t, err, jobs.ErrPredecessorPending)
	assert.Equal(t, services.KindValidation, services.KindOf(err))
	current, err := store.GetJob(ctx, "b")
	require.NoError(t, err)
	assert.Equal(t, loaded, current)

	pred, err := store.GetJob(ctx, "a")
	require.NoError(t, err)
	finished := pred.Clone()
	finished.Status = jobs.StatusDelivered
	require.NoError(t, store.CommitTransition(ctx, finished, pred.Precondition(), nil))

	require.NoError(t, store.CommitTransition(ctx, next, loaded.GatedPrecondition(), nil))
	assert.Equal(t, 2, next.Version)
}

func TestCommitTransitionRollsBackWhenDebitFails(t *testing.T) {
	store := testsupport.MustOpenStore(t, testsupport.NewConfig(t))
	ctx := context.Background()
	require.NoError(t, store.InsertJobs(ctx, []*jobs.Job{newJob("job-1")}, nil))

	loaded, err := store.GetJob(ctx, "job-1")
	require.NoError(t, err)
	next := loaded.Clone()
	next.Status = jobs.StatusCompleted

	boom := errors.New("boom")
	err = store.CommitTransition(ctx, next, loaded.Precondition(), func(context.Context, jobs.LedgerTx) error {
		return boom
	})
	require.ErrorIs(t, err, boom)

	current, err := store.GetJob(ctx, "job-1")
	require.NoError(t, err)
	assert.Equal(t, jobs.StatusPending, current.Status)
	assert.Equal(t, 1, current.Version)
}

func TestChainOrderIsUnique(t *testing.T) {
	store := testsupport.MustOpenStore(t, testsupport.NewConfig(t))
	ctx := context.Background()

	a := newJob("a")
	a.ChainID, a.WorkflowOrder, a.Stage = "chain-1", 1, jobs.StageCapture
	b := newJob("b")
	b.ChainID, b.WorkflowOrder, b.Stage, b.DependsOn = "chain-1", 1, jobs.StageCapture, "a"
	require.Error(t, store.InsertJobs(ctx, []*jobs.Job{a, b}, nil))

	got, err := store.GetJob(ctx, "a")
	require.NoError(t, err)
	assert.Nil(t, got, "failed batch must not leave partial rows")

	b.WorkflowOrder = 2
	require.NoError(t, store.InsertJobs(ctx, []*jobs.Job{a, b}, nil))
	chain, err := store.ChainJobs(ctx, "chain-1")
	require.NoError(t, err)
	require.Len(t, chain, 2)
	assert.Equal(t, "a", chain[0].ID)
	assert.Equal(t, "a", chain[1].DependsOn)
}

func TestDeleteJobReleasesDependents(t *testing.T) {
	store := testsupport.MustOpenStore(t, testsupport.NewConfig(t))
	ctx := context.Background()

	a := newJob("a")
	b := newJob("b")
	b.DependsOn = "a"
	require.NoError(t, store.InsertJobs(ctx, []*jobs.Job{a, b}, nil))

	require.ErrorIs(t, store.DeleteJob(ctx, "a", 7), jobs.ErrConflict)
	require.NoError(t, store.DeleteJob(ctx, "a", 0))
	require.ErrorIs(t, store.DeleteJob(ctx, "a", 0), jobs.ErrJobNotFound)

	got, err := store.GetJob(ctx, "b")
	require.NoError(t, err)
	assert.Empty(t, got.DependsOn)
}

func TestListJobsFilters(t *testing.T) {
	store := testsupport.MustOpenStore(t, testsupport.NewConfig(t))
	ctx := context.Background()

	a := newJob("a")
	a.AssigneeID = "w1"
	b := newJob("b")
	b.Status = jobs.StatusReview
	b.ClientID = "client-2"
	require.NoError(t, store.InsertJobs(ctx, []*jobs.Job{a, b}, nil))

	byAssignee, err := store.ListJobs(ctx, jobs.JobFilter{AssigneeID: "w1"})
	require.NoError(t, err)
	require.Len(t, byAssignee, 1)
	assert.Equal(t, "a", byAssignee[0].ID)

	byStatus, err := store.ListJobs(ctx, jobs.JobFilter{Statuses: []jobs.Status{jobs.StatusReview}})
	require.NoError(t, err)
	require.Len(t, byStatus, 1)
	assert.Equal(t, "client-2", byStatus[0].ClientID)

	all, err := store.ListJobs(ctx, jobs.JobFilter{Limit: 1})
	require.NoError(t, err)
	assert.Len(t, all, 1)
}

// takeOne debits a single unit from the first eligible assignment.
func takeOne(clientID, jobID string, day time.Time, wrote *bool) jobs.Debiter {
	return func(ctx context.Context, tx jobs.LedgerTx) error {
		candidates, err := tx.EligibleAssignments(ctx, clientID, jobs.ServiceCapture, day)
		if err != nil {
			return err
		}
		for _, c := range candidates {
			if c.Remaining() < 1 {
				continue
			}
			ok, err := tx.InsertUsage(ctx, jobs.UsageRecord{
				ID:           uuid.NewString(),
				AssignmentID: c.ID,
				ServiceType:  jobs.ServiceCapture,
				Quantity:     1,
				JobID:        jobID,
			})
			if err != nil {
				return err
			}
			*wrote = ok
			return nil
		}
		return nil
	}
}

func TestInsertUsageNeverExceedsGrant(t *testing.T) {
	store := testsupport.MustOpenStore(t, testsupport.NewConfig(t))
	testsupport.SeedPackage(t, store, "asg-1", "client-1",
		map[jobs.ServiceType]int{jobs.ServiceCapture: 3}, "2026-01-01", "2026-12-31")
	day := testsupport.MustDate(t, "2026-06-01")

	var (
		wg      sync.WaitGroup
		mu      sync.Mutex
		written int
	)
	for i := 0; i < 8; i++ {
		wg.Add(1)
		go func(i int) {
			defer wg.Done()
			var wrote bool
			err := store.Debit(context.Background(), takeOne("client-1", uuid.NewString(), day, &wrote))
			assert.NoError(t, err)
			if wrote {
				mu.Lock()
				written++
				mu.Unlock()
			}
		}(i)
	}
	wg.Wait()
	assert.Equal(t, 3, written)

	summary, err := store.UsageSummary(context.Background(), "asg-1")
	require.NoError(t, err)
	require.Len(t, summary.Lines, 1)
	assert.Equal(t, 3, summary.Lines[0].Consumed)
	assert.Equal(t, 0, summary.Lines[0].Remaining)
}

func TestEligibleAssignmentsWindowIsInclusive(t *testing.T) {
	store := testsupport.MustOpenStore(t, testsupport.NewConfig(t))
	testsupport.SeedPackage(t, store, "late", "client-1",
		map[jobs.ServiceType]int{jobs.ServiceCapture: 1}, "2026-01-01", "2026-12-31")
	testsupport.SeedPackage(t, store, "early", "client-1",
		map[jobs.ServiceType]int{jobs.ServiceCapture: 1}, "2026-01-01", "2026-06-30")

	cases := []struct {
		day  string
		want []string
	}{
		{"2025-12-31", nil},
		{"2026-01-01", []string{"early", "late"}},
		{"2026-06-30", []string{"early", "late"}},
		{"2026-07-01", []string{"late"}},
		{"2026-12-31", []string{"late"}},
		{"2027-01-01", nil},
	}
	for _, tc := range cases {
		t.Run(tc.day, func(t *testing.T) {
			var got []string
			err := store.Debit(context.Background(), func(ctx context.Context, tx jobs.LedgerTx) error {
				candidates, err := tx.EligibleAssignments(ctx, "client-1", jobs.ServiceCapture, testsupport.MustDate(t, tc.day))
				for _, c := range candidates {
					got = append(got, c.ID)
				}
				return err
			})
			require.NoError(t, err)
			assert.Equal(t, tc.want, got)
		})
	}
}

func TestUsageSurvivesJobDeletion(t *testing.T) {
	store := testsupport.MustOpenStore(t, testsupport.NewConfig(t))
	ctx := context.Background()
	testsupport.SeedPackage(t, store, "asg-1", "client-1",
		map[jobs.ServiceType]int{jobs.ServiceCapture: 2}, "2026-01-01", "2026-12-31")

	var wrote bool
	require.NoError(t, store.InsertJobs(ctx, []*jobs.Job{newJob("job-1")},
		takeOne("client-1", "job-1", testsupport.MustDate(t, "2026-02-02"), &wrote)))
	require.True(t, wrote)
	require.NoError(t, store.DeleteJob(ctx, "job-1", 0))

	usage, err := store.ListUsage(ctx, "asg-1")
	require.NoError(t, err)
	require.Len(t, usage, 1)
	assert.Equal(t, "job-1", usage[0].JobID)
}

func TestWorkersAndNotifications(t *testing.T) {
	store := testsupport.MustOpenStore(t, testsupport.NewConfig(t))
	ctx := context.Background()

	testsupport.SeedWorker(t, store, "w1", "Ada", jobs.RoleCaptureSpecialist)
	testsupport.SeedWorker(t, store, "w2", "Bo", jobs.RoleCaptureSpecialist)
	inactive := testsupport.SeedWorker(t, store, "w3", "Cy", jobs.RoleCaptureSpecialist)
	inactive.Active = false
	require.NoError(t, store.UpsertWorker(ctx, inactive))

	active, err := store.ListWorkers(ctx, jobs.WorkerFilter{Roles: []jobs.Role{jobs.RoleCaptureSpecialist}, ActiveOnly: true})
	require.NoError(t, err)
	assert.Len(t, active, 2)

	w, err := store.GetWorker(ctx, "w3")
	require.NoError(t, err)
	assert.False(t, w.Active)

	require.NoError(t, store.InsertNotification(ctx, &jobs.Notification{
		ID: "n1", RecipientID: "w1", Kind: "assigned", Title: "Assigned", Body: "You have a job", JobID: "job-1",
	}))
	require.NoError(t, store.InsertNotification(ctx, &jobs.Notification{
		ID: "n2", RecipientID: "w1", Kind: "deleted", Title: "Deleted", Body: "gone",
	}))
	list, err := store.ListNotifications(ctx, "w1", 10)
	require.NoError(t, err)
	require.Len(t, list, 2)
	ids := []string{list[0].ID, list[1].ID}
	assert.ElementsMatch(t, []string{"n1", "n2"}, ids)
}
