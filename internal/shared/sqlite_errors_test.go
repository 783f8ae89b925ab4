package shared

import (
	"context"
	"errors"
	"testing"
	"time"
)

func TestIsSQLiteConflictError(t *testing.T) {
	tests := []struct {
		err  error
		want bool
	}{
		{nil, false},
		{errors.New("SQLITE_BUSY: database busy"), true},
		{errors.New("database is locked (5)"), true},
		{errors.New("no such table: patterns"), false},
	}
	for _, tt := range tests {
		if got := IsSQLiteConflictError(tt.err); got != tt.want {
			t.Errorf("IsSQLiteConflictError(%v) = %v, want %v", tt.err, got, tt.want)
		}
	}
}

func TestRetryOnConflict(t *testing.T) {
	busy := errors.New("SQLITE_BUSY")
	other := errors.New("constraint failed")

	tests := []struct {
		name      string
		results   []error
		attempts  int
		wantErr   error
		wantCalls int
	}{
		{"succeeds first time", []error{nil}, 3, nil, 1},
		{"succeeds after conflicts", []error{busy, busy, nil}, 3, nil, 3},
		{"gives up after attempts", []error{busy, busy, busy, busy}, 3, busy, 3},
		{"other errors are not retried", []error{other, nil}, 3, other, 1},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			calls := 0
			err := RetryOnConflict(context.Background(), "test", tt.attempts, time.Millisecond, func() error {
				err := tt.results[calls]
				calls++
				return err
			})
			if !errors.Is(err, tt.wantErr) && err != tt.wantErr {
				t.Errorf("err = %v, want %v", err, tt.wantErr)
			}
			if calls != tt.wantCalls {
				t.Errorf("calls = %d, want %d", calls, tt.wantCalls)
			}
		})
	}
}

func TestRetryOnConflictHonoursContext(t *testing.T) {
	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	err := RetryOnConflict(ctx, "test", 5, time.Hour, func() error {
		return errors.New("database is locked")
	})
	if !errors.Is(err, context.Canceled) {
		t.Fatalf("err = %v, want context.Canceled", err)
	}
}
