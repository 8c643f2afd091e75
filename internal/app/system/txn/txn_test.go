package txn

import (
	"errors"
	"fmt"
	"testing"

	"go.mongodb.org/mongo-driver/mongo"
)

func TestIsNotSupported(t *testing.T) {
	tests := []struct {
		name string
		err  error
		want bool
	}{
		{"nil", nil, false},
		{"plain error", errors.New("connection reset by peer"), false},
		{"illegal operation code", mongo.CommandError{Code: 20, Message: "Transaction numbers are only allowed on a replica set member or mongos"}, true},
		{"no replication code", mongo.CommandError{Code: 51, Message: "no replication has been enabled"}, true},
		{"not in transaction code", mongo.CommandError{Code: 263, Message: "operation not allowed in a transaction"}, true},
		{"unrelated code", mongo.CommandError{Code: 11000, Message: "E11000 duplicate key"}, false},
		{"wrapped code", fmt.Errorf("join: %w", mongo.CommandError{Code: 20}), true},
		{"replica set wording", errors.New("transaction failed: this is not a replica set member"), true},
		{"session not supported wording", errors.New("sessions are not supported by the server"), true},
		{"transaction alone", errors.New("transaction aborted"), false},
		{"transaction and session", errors.New("cannot start a transaction in this session"), true},
		{"illegal operation wording", errors.New("Illegal Operation inside Transaction"), true},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if got := IsNotSupported(tt.err); got != tt.want {
				t.Errorf("IsNotSupported(%v) = %v, want %v", tt.err, got, tt.want)
			}
		})
	}
}

func TestCommit_Nil(t *testing.T) {
	if Commit(nil) != nil {
		t.Error("Commit(nil) should be nil")
	}
}

func TestSplit(t *testing.T) {
	refused := errors.New("code expired")
	failed := errors.New("write failed")

	tests := []struct {
		name       string
		in         error
		wantAbort  error
		wantReport error
	}{
		{"success", nil, nil, nil},
		{"plain failure aborts", failed, failed, failed},
		{"committed refusal", Commit(refused), nil, refused},
		{"wrapped committed refusal", fmt.Errorf("redeem: %w", Commit(refused)), nil, refused},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			abort, report := split(tt.in)
			if abort != tt.wantAbort {
				t.Errorf("abort: got %v, want %v", abort, tt.wantAbort)
			}
			if report != tt.wantReport {
				t.Errorf("report: got %v, want %v", report, tt.wantReport)
			}
		})
	}
}

func TestCommitted_IsUnwraps(t *testing.T) {
	refused := errors.New("code expired")
	if !errors.Is(Commit(refused), refused) {
		t.Error("expected errors.Is to see through Commit")
	}
}
