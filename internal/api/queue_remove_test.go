package api

import (
	"context"
	"errors"
	"testing"
)

type removeStub struct {
	present map[int64]bool
	err     error
}

func (s *removeStub) Remove(_ context.Context, ids []int64) (int64, error) {
	if s.err != nil {
		return 0, s.err
	}
	var removed int64
	for _, id := range ids {
		if s.present[id] {
			removed++
			delete(s.present, id)
		}
	}
	return removed, nil
}

func TestRemoveItemsByIDOutcomes(t *testing.T) {
	stub := &removeStub{present: map[int64]bool{5: true}}

	result, err := RemoveItemsByID(context.Background(), stub, []int64{5, 6})
	if err != nil {
		t.Fatalf("RemoveItemsByID: %v", err)
	}
	if result.RemovedCount != 1 {
		t.Fatalf("RemovedCount = %d, want 1", result.RemovedCount)
	}
	if result.Items[0].Outcome != RemoveItemRemoved {
		t.Fatalf("item 5 outcome = %s, want %s", result.Items[0].Outcome, RemoveItemRemoved)
	}
	if result.Items[1].Outcome != RemoveItemNotFound {
		t.Fatalf("item 6 outcome = %s, want %s", result.Items[1].Outcome, RemoveItemNotFound)
	}
}

func TestRemoveItemsByIDError(t *testing.T) {
	errSentinel := errors.New("locked")
	stub := &removeStub{err: errSentinel}
	if _, err := RemoveItemsByID(context.Background(), stub, []int64{1}); !errors.Is(err, errSentinel) {
		t.Fatalf("expected error %v, got %v", errSentinel, err)
	}
}
