package assignment_test

import (
	"context"
	"errors"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"studioflow/internal/assignment"
	"studioflow/internal/jobs"
	"studioflow/internal/testsupport"
)

type staticWorkers struct {
	workers []*jobs.Worker
	err     error
	calls   int
}

func (s *staticWorkers) ListWorkers(_ context.Context, filter jobs.WorkerFilter) ([]*jobs.Worker, error) {
	s.calls++
	return s.workers, s.err
}

func TestResolveOrdersByNameThenID(t *testing.T) {
	src := &staticWorkers{workers: []*jobs.Worker{
		{ID: "w3", Name: "zed", Role: jobs.RoleFinishingSpecialist, Active: true},
		{ID: "w2", Name: "Amy", Role: jobs.RoleFinishingSpecialist, Active: true},
		{ID: "w1", Name: "amy", Role: jobs.RoleFinishingSpecialist, Active: true},
		{ID: "w0", Name: "Aaron", Role: jobs.RoleFinishingSpecialist, Active: false},
		{ID: "w9", Name: "Abe", Role: jobs.RoleCaptureSpecialist, Active: true},
	}}
	id, ok, err := assignment.NewResolver(src).Resolve(context.Background(), jobs.RoleFinishingSpecialist)
	require.NoError(t, err)
	assert.True(t, ok)
	assert.Equal(t, "w1", id)
}

func TestResolveNoneEligible(t *testing.T) {
	src := &staticWorkers{}
	id, ok, err := assignment.NewResolver(src).Resolve(context.Background(), jobs.RolePostProductionSpecialist)
	require.NoError(t, err)
	assert.False(t, ok)
	assert.Empty(t, id)

	_, ok, err = assignment.NewResolver(src).Resolve(context.Background(), "")
	require.NoError(t, err)
	assert.False(t, ok)
	assert.Equal(t, 1, src.calls, "empty role never queries")
}

func TestResolvePropagatesStoreError(t *testing.T) {
	src := &staticWorkers{err: errors.New("db down")}
	_, _, err := assignment.NewResolver(src).Resolve(context.Background(), jobs.RoleCaptureSpecialist)
	require.Error(t, err)
	assert.Equal(t, 1, src.calls)
}

func TestResolveAgainstStore(t *testing.T) {
	store := testsupport.MustOpenStore(t, testsupport.NewConfig(t))
	testsupport.SeedWorker(t, store, "p2", "Quinn", jobs.RolePostProductionSpecialist)
	testsupport.SeedWorker(t, store, "p1", "Morgan", jobs.RolePostProductionSpecialist)
	testsupport.SeedWorker(t, store, "c1", "Avery", jobs.RoleCaptureSpecialist)

	id, ok, err := assignment.NewResolver(store).Resolve(context.Background(), assignment.RoleForStage(jobs.StagePostProduction))
	require.NoError(t, err)
	require.True(t, ok)
	assert.Equal(t, "p1", id)
}
