package gcs

import (
	"context"
	"errors"
	"testing"

	"dailyledger/internal/remote"
)

func TestObjectName(t *testing.T) {
	doc := remote.Document{UserID: "uid-1", ID: "tx-9"}
	cases := map[string]string{
		"":       "users/uid-1/transactions/tx-9.json",
		"mirror": "mirror/users/uid-1/transactions/tx-9.json",
		"a/b":    "a/b/users/uid-1/transactions/tx-9.json",
	}
	for prefix, want := range cases {
		if got := objectName(prefix, doc); got != want {
			t.Fatalf("objectName(%q) = %q, want %q", prefix, got, want)
		}
	}
}

func TestNewRequiresBucket(t *testing.T) {
	if _, err := New(context.Background(), " ", "", nil); err == nil {
		t.Fatalf("expected error for empty bucket")
	}
}

func TestPutValidatesFirst(t *testing.T) {
	c := &Client{}
	err := c.Put(context.Background(), remote.Document{UserID: "u", Type: "EXPENSE", Amount: "1"})
	if !errors.Is(err, remote.ErrMissingKey) {
		t.Fatalf("expected ErrMissingKey, got %v", err)
	}
	err = c.Put(context.Background(), remote.Document{UserID: "u", ID: "t", Type: "EXPENSE", Amount: "1"})
	if err == nil || err.Error() != "storage client not initialized" {
		t.Fatalf("unexpected error: %v", err)
	}
}
