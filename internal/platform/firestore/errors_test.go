package firestore

import (
	"context"
	"errors"
	"testing"

	"google.golang.org/grpc/codes"
	"google.golang.org/grpc/status"

	"github.com/skm-mango/storefront/internal/platform/config"
)

func TestWrapErrorClassification(t *testing.T) {
	cases := []struct {
		code        codes.Code
		notFound    bool
		conflict    bool
		unavailable bool
	}{
		{code: codes.NotFound, notFound: true},
		{code: codes.Aborted, conflict: true},
		{code: codes.FailedPrecondition, conflict: true},
		{code: codes.Unavailable, unavailable: true},
		{code: codes.InvalidArgument},
	}
	for _, tc := range cases {
		err := WrapError("orders.get", status.Error(tc.code, "x"))
		var fsErr *Error
		if !errors.As(err, &fsErr) {
			t.Fatalf("%s: expected *Error, got %T", tc.code, err)
		}
		if fsErr.IsNotFound() != tc.notFound || fsErr.IsConflict() != tc.conflict || fsErr.IsUnavailable() != tc.unavailable {
			t.Fatalf("%s: unexpected classification %+v", tc.code, fsErr)
		}
	}
}

func TestWrapErrorPassesCancellation(t *testing.T) {
	if err := WrapError("op", status.Error(codes.Canceled, "gone")); !errors.Is(err, context.Canceled) {
		t.Fatalf("expected context.Canceled, got %v", err)
	}
	if err := WrapError("op", context.DeadlineExceeded); !errors.Is(err, context.DeadlineExceeded) {
		t.Fatalf("expected deadline passthrough, got %v", err)
	}
	if WrapError("op", nil) != nil {
		t.Fatalf("nil should stay nil")
	}
}

func TestConflictHelper(t *testing.T) {
	base := errors.New("insufficient stock")
	err := Conflict("orders.place", base)
	var fsErr *Error
	if !errors.As(err, &fsErr) || !fsErr.IsConflict() || !errors.Is(err, base) {
		t.Fatalf("unexpected conflict error %v", err)
	}
	if wrapped := WrapError("outer", err); wrapped != err {
		t.Fatalf("expected classified error to pass through unchanged")
	}
}

func TestProviderClosed(t *testing.T) {
	p := NewProvider(configForTest())
	if err := p.Close(); err != nil {
		t.Fatalf("close: %v", err)
	}
	if _, err := p.Client(context.Background()); !errors.Is(err, ErrProviderClosed) {
		t.Fatalf("expected ErrProviderClosed, got %v", err)
	}
}

func configForTest() config.FirestoreConfig {
	return config.FirestoreConfig{ProjectID: "skm-test"}
}
