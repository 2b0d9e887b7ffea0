package loansvc

import (
	"context"
	"sync"
	"testing"
	"time"

	"booklending/model"

	"github.com/stretchr/testify/require"
)

// Launching N concurrent borrows against k copies must yield exactly k
// successes and N-k conflicts, and the counter must stay within bounds.
func TestConcurrentCreate_NoOversell(t *testing.T) {
	const (
		copies  = 5
		workers = 40
	)
	ctx := context.Background()
	r := newMemRepo(testBook(1, copies, copies))
	svc := newTestService(r)

	var wg sync.WaitGroup
	results := make(chan error, workers)
	for i := 0; i < workers; i++ {
		wg.Add(1)
		go func(userID int64) {
			defer wg.Done()
			_, err := svc.Create(ctx, Caller{ID: userID, Role: model.RoleUser}, CreateReq{BookID: 1})
			results <- err
		}(int64(i + 1))
	}
	wg.Wait()
	close(results)

	var ok, conflicts int
	for err := range results {
		switch Code(err) {
		case "":
			ok++
		case ErrNoCopies:
			conflicts++
		default:
			t.Fatalf("unexpected error: %v", err)
		}
	}

	require.Equal(t, copies, ok)
	require.Equal(t, workers-copies, conflicts)
	require.EqualValues(t, 0, r.availableCopies(1))
	require.EqualValues(t, copies, r.openLoanCount(1))
}

// Interleaved borrows and returns keep available = total - open at every
// quiescent point.
func TestConcurrentBorrowReturn_CounterConsistent(t *testing.T) {
	const (
		copies = 3
		rounds = 30
	)
	ctx := context.Background()
	r := newMemRepo(testBook(1, copies, copies))
	svc := newTestService(r)

	var wg sync.WaitGroup
	for i := 0; i < rounds; i++ {
		wg.Add(1)
		go func(userID int64) {
			defer wg.Done()
			l, err := svc.Create(ctx, Caller{ID: userID, Role: model.RoleUser}, CreateReq{BookID: 1})
			if err != nil {
				return
			}
			_, err = svc.Return(ctx, Caller{ID: userID, Role: model.RoleUser}, l.ID, nil)
			require.NoError(t, err)
		}(int64(i + 1))
	}
	wg.Wait()

	avail := r.availableCopies(1)
	open := r.openLoanCount(1)
	require.EqualValues(t, 0, open)
	require.EqualValues(t, copies, avail)
}

// A concurrent sweep cannot resurrect a loan that was returned in the
// meantime: the transition guard only touches BORROWED records.
func TestSweepConcurrentWithReturn(t *testing.T) {
	ctx := context.Background()
	r := newMemRepo(testBook(1, 1, 1))
	svc := newTestService(r)

	past := time.Now().UTC().Add(-72 * time.Hour)
	due := past.Add(24 * time.Hour)
	l, err := svc.Create(ctx, Caller{ID: 1, Role: model.RoleUser}, CreateReq{
		BookID: 1, BorrowDate: &past, DueDate: &due,
	})
	require.NoError(t, err)

	_, err = svc.Return(ctx, Caller{ID: 1, Role: model.RoleUser}, l.ID, nil)
	require.NoError(t, err)

	n, err := svc.Sweep(ctx, time.Now().UTC())
	require.NoError(t, err)
	require.EqualValues(t, 0, n)

	got, err := svc.Get(ctx, l.ID)
	require.NoError(t, err)
	require.Equal(t, model.LoanReturned, got.Status)
}
