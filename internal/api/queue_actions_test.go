package api

import (
	"context"
	"errors"
	"testing"
)

type queueActionStub struct {
	items map[int64]*QueueItem
}

func (s *queueActionStub) Describe(_ context.Context, id int64) (*QueueItem, error) {
	if item, ok := s.items[id]; ok {
		return item, nil
	}
	return nil, nil
}

func (s *queueActionStub) Retry(_ context.Context, ids []int64) (int64, error) {
	if len(ids) != 1 {
		return 0, errors.New("expected one id")
	}
	return 1, nil
}

func TestRetryFailedItemsByIDOutcomes(t *testing.T) {
	stub := &queueActionStub{
		items: map[int64]*QueueItem{
			1: {ID: 1, Status: "failed"},
			2: {ID: 2, Status: "pending"},
			3: {ID: 3, Status: "review"},
		},
	}

	result, err := RetryFailedItemsByID(context.Background(), stub, []int64{1, 2, 3, 4})
	if err != nil {
		t.Fatalf("RetryFailedItemsByID: %v", err)
	}
	if result.UpdatedCount != 1 {
		t.Fatalf("UpdatedCount = %d, want 1", result.UpdatedCount)
	}
	if len(result.Items) != 4 {
		t.Fatalf("len(Items) = %d, want 4", len(result.Items))
	}

	want := []RetryItemOutcome{RetryItemUpdated, RetryItemNotFailed, RetryItemNotFailed, RetryItemNotFound}
	for i, outcome := range want {
		if result.Items[i].Outcome != outcome {
			t.Fatalf("item %d outcome = %s, want %s", result.Items[i].ID, result.Items[i].Outcome, outcome)
		}
	}
}
