package leaselock

import (
	"context"
	"errors"
	"regexp"
	"strings"
	"testing"
	"time"

	"github.com/jackc/pgx/v5"
	"github.com/pashagolub/pgxmock/v4"
)

func TestNormalizeDefaults(t *testing.T) {
	opts := normalize(Options{})
	if opts.TTL != 5*time.Minute {
		t.Fatalf("expected 5m TTL, got %s", opts.TTL)
	}
	if opts.RenewEvery != 150*time.Second {
		t.Fatalf("expected renew every 2m30s, got %s", opts.RenewEvery)
	}

	opts = normalize(Options{TTL: time.Minute, RenewEvery: 2 * time.Minute})
	if opts.RenewEvery != 30*time.Second {
		t.Fatalf("expected renew interval below TTL, got %s", opts.RenewEvery)
	}
}

func TestAcquireBusyWithoutWait(t *testing.T) {
	mock, err := pgxmock.NewPool()
	if err != nil {
		t.Fatalf("expected nil error, got %v", err)
	}
	defer mock.Close()

	mock.ExpectQuery(regexp.QuoteMeta(tryAcquireSQL)).
		WithArgs(DispatchRunKey, pgxmock.AnyArg(), int64(60000)).
		WillReturnError(pgx.ErrNoRows)

	_, err = New(mock).Acquire(context.Background(), DispatchRunKey, Options{TTL: time.Minute})
	if !errors.Is(err, ErrBusy) {
		t.Fatalf("expected ErrBusy, got %v", err)
	}
}

func TestWithLeaseReleases(t *testing.T) {
	mock, err := pgxmock.NewPool()
	if err != nil {
		t.Fatalf("expected nil error, got %v", err)
	}
	defer mock.Close()

	mock.ExpectQuery(regexp.QuoteMeta(tryAcquireSQL)).
		WithArgs(DispatchRunKey, pgxmock.AnyArg(), int64(60000)).
		WillReturnRows(pgxmock.NewRows([]string{"lock_key"}).AddRow(DispatchRunKey))
	mock.ExpectExec(regexp.QuoteMeta(releaseSQL)).
		WithArgs(DispatchRunKey, pgxmock.AnyArg()).
		WillReturnResult(pgxmock.NewResult("DELETE", 1))

	ran := false
	err = New(mock).WithLease(context.Background(), DispatchRunKey, Options{TTL: time.Minute, TokenPrefix: "cron-"}, func(ctx context.Context) error {
		ran = true
		return nil
	})
	if err != nil {
		t.Fatalf("expected nil error, got %v", err)
	}
	if !ran {
		t.Fatal("expected fn to run under the lease")
	}
	if err := mock.ExpectationsWereMet(); err != nil {
		t.Fatalf("unmet expectations: %v", err)
	}
}

func TestAcquireTokenPrefix(t *testing.T) {
	mock, err := pgxmock.NewPool()
	if err != nil {
		t.Fatalf("expected nil error, got %v", err)
	}
	defer mock.Close()

	mock.ExpectQuery(regexp.QuoteMeta(tryAcquireSQL)).
		WithArgs("k", pgxmock.AnyArg(), pgxmock.AnyArg()).
		WillReturnRows(pgxmock.NewRows([]string{"lock_key"}).AddRow("k"))
	mock.ExpectExec(regexp.QuoteMeta(releaseSQL)).
		WithArgs("k", pgxmock.AnyArg()).
		WillReturnResult(pgxmock.NewResult("DELETE", 1))

	lease, err := New(mock).Acquire(context.Background(), "k", Options{TokenPrefix: "worker-"})
	if err != nil {
		t.Fatalf("expected nil error, got %v", err)
	}
	if !strings.HasPrefix(lease.Token, "worker-") {
		t.Fatalf("expected worker- prefix, got %q", lease.Token)
	}
	if err := lease.Release(context.Background()); err != nil {
		t.Fatalf("expected nil error, got %v", err)
	}
	if lease.Context.Err() == nil {
		t.Fatal("expected lease context to be cancelled after release")
	}
}

func TestHolderFree(t *testing.T) {
	mock, err := pgxmock.NewPool()
	if err != nil {
		t.Fatalf("expected nil error, got %v", err)
	}
	defer mock.Close()

	mock.ExpectQuery(regexp.QuoteMeta(holderSQL)).
		WithArgs(DispatchRunKey).
		WillReturnError(pgx.ErrNoRows)

	h, err := New(mock).Holder(context.Background(), DispatchRunKey)
	if err != nil || h != nil {
		t.Fatalf("expected free lock, got %+v, %v", h, err)
	}
}

func TestAcquireEmptyKey(t *testing.T) {
	if _, err := New(nil).Acquire(context.Background(), "", Options{}); err == nil {
		t.Fatal("expected error for empty key")
	}
}
