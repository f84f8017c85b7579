package repository

import (
	"context"
	"errors"
	"fmt"
	"sync"
	"testing"
	"time"

	"github.com/okian/dropout/internal/domain/model"
)

func ok(i int) model.RowResult     { return model.RowResult{Index: i, Probability: 0.1} }
func failed(i int) model.RowResult { return model.RowResult{Index: i, Error: "boom"} }

func TestInMemoryStore_Lifecycle(t *testing.T) {
	ctx := context.Background()
	store := NewInMemoryStore()

	if n := store.Count(ctx); n != 0 {
		t.Fatalf("expected count 0, got %d", n)
	}

	job, err := store.Create(ctx, "job1", 3)
	if err != nil {
		t.Fatalf("create: %v", err)
	}
	if job.Status != model.JobPending || job.Total != 3 || len(job.Results) != 0 {
		t.Errorf("unexpected new job %+v", job)
	}

	if err := store.Record(ctx, "job1", ok(2)); err != nil {
		t.Fatalf("record: %v", err)
	}
	job, _ = store.Get(ctx, "job1")
	if job.Status != model.JobRunning || job.Completed != 1 {
		t.Errorf("expected running with 1 completed, got %+v", job)
	}

	_ = store.Record(ctx, "job1", failed(0))
	_ = store.Record(ctx, "job1", ok(1))
	job, _ = store.Get(ctx, "job1")
	if job.Status != model.JobDone {
		t.Errorf("expected done, got %s", job.Status)
	}
	if job.Completed != 2 || job.Failed != 1 {
		t.Errorf("expected 2 completed and 1 failed, got %d/%d", job.Completed, job.Failed)
	}
	for i, r := range job.Results {
		if r.Index != i {
			t.Errorf("results not ordered by row: position %d holds row %d", i, r.Index)
		}
	}
}

func TestInMemoryStore_RecordTwice(t *testing.T) {
	ctx := context.Background()
	store := NewInMemoryStore()
	_, _ = store.Create(ctx, "job", 2)

	_ = store.Record(ctx, "job", failed(0))
	_ = store.Record(ctx, "job", ok(0))
	job, _ := store.Get(ctx, "job")
	if job.Completed != 1 || job.Failed != 0 {
		t.Errorf("expected the retry to replace the failure, got %d/%d", job.Completed, job.Failed)
	}
	if job.Status != model.JobRunning {
		t.Errorf("expected running, got %s", job.Status)
	}
}

func TestInMemoryStore_Errors(t *testing.T) {
	ctx := context.Background()
	store := NewInMemoryStore()
	_, _ = store.Create(ctx, "job", 1)

	if _, err := store.Create(ctx, "job", 1); !errors.Is(err, ErrExists) {
		t.Errorf("expected ErrExists, got %v", err)
	}
	if _, err := store.Get(ctx, "missing"); !errors.Is(err, ErrNotFound) {
		t.Errorf("expected ErrNotFound, got %v", err)
	}
	if err := store.Record(ctx, "missing", ok(0)); !errors.Is(err, ErrNotFound) {
		t.Errorf("expected ErrNotFound, got %v", err)
	}
	if err := store.Record(ctx, "job", ok(1)); !errors.Is(err, ErrRowRange) {
		t.Errorf("expected ErrRowRange, got %v", err)
	}
	if err := store.Discard(ctx, "job"); err != nil {
		t.Errorf("discard: %v", err)
	}
	if err := store.Discard(ctx, "job"); !errors.Is(err, ErrNotFound) {
		t.Errorf("expected ErrNotFound on second discard, got %v", err)
	}
	if n := store.Count(ctx); n != 0 {
		t.Errorf("expected count 0, got %d", n)
	}
}

func TestInMemoryStore_EmptyJobIsDone(t *testing.T) {
	store := NewInMemoryStore()
	job, err := store.Create(context.Background(), "empty", 0)
	if err != nil {
		t.Fatal(err)
	}
	if job.Status != model.JobDone {
		t.Errorf("expected done, got %s", job.Status)
	}
}

func TestInMemoryStore_Eviction(t *testing.T) {
	ctx := context.Background()
	clock := time.Unix(0, 0)
	store := NewInMemoryStore(WithMaxJobs(2), WithClock(func() time.Time {
		clock = clock.Add(time.Second)
		return clock
	}))

	_, _ = store.Create(ctx, "running", 1)
	_, _ = store.Create(ctx, "done", 1)
	_ = store.Record(ctx, "done", ok(0))
	_, _ = store.Create(ctx, "new", 1)

	if _, err := store.Get(ctx, "done"); !errors.Is(err, ErrNotFound) {
		t.Errorf("expected the finished job to be evicted, got %v", err)
	}
	if _, err := store.Get(ctx, "running"); err != nil {
		t.Errorf("unfinished job must survive eviction: %v", err)
	}
	if _, err := store.Get(ctx, "new"); err != nil {
		t.Errorf("new job must survive eviction: %v", err)
	}

	// nothing finished: the store grows past its bound
	_, _ = store.Create(ctx, "another", 1)
	if n := store.Count(ctx); n != 3 {
		t.Errorf("expected 3 jobs, got %d", n)
	}
}

func TestInMemoryStore_ConcurrentRecords(t *testing.T) {
	ctx := context.Background()
	store := NewInMemoryStore()
	const rows = 500
	_, _ = store.Create(ctx, "job", rows)

	var wg sync.WaitGroup
	for w := 0; w < 10; w++ {
		wg.Add(1)
		go func(w int) {
			defer wg.Done()
			for i := w; i < rows; i += 10 {
				if err := store.Record(ctx, "job", ok(i)); err != nil {
					panic(fmt.Sprintf("record %d: %v", i, err))
				}
				_, _ = store.Get(ctx, "job")
			}
		}(w)
	}
	wg.Wait()

	job, _ := store.Get(ctx, "job")
	if job.Status != model.JobDone || job.Completed != rows || len(job.Results) != rows {
		t.Errorf("expected %d completed rows, got %+v", rows, job.Status)
	}
}
