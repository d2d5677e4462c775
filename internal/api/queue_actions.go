package api

import (
	"context"
	"errors"
)

// QueueMaintainer captures the poison-table operations operators may trigger.
type QueueMaintainer interface {
	RetryJobs(ctx context.Context) (int, error)
	PurgeBad(ctx context.Context, id int64) (bool, error)
	PurgeAllBad(ctx context.Context) (int, error)
}

type PurgeItemOutcome string

const (
	PurgeItemRemoved  PurgeItemOutcome = "removed"
	PurgeItemNotFound PurgeItemOutcome = "not_found"
)

type PurgeItemResult struct {
	ID      int64            `json:"id"`
	Outcome PurgeItemOutcome `json:"outcome"`
}

type PurgeItemsResult struct {
	Removed int               `json:"removed"`
	Items   []PurgeItemResult `json:"items"`
}

// ErrNoPurgeTarget is returned when neither ids nor the all flag were given.
var ErrNoPurgeTarget = errors.New("purge requires at least one id or all")

// RetryBad moves every decodable quarantined record back to the pending queue.
func RetryBad(ctx context.Context, service QueueMaintainer) (RetryResponse, error) {
	moved, err := service.RetryJobs(ctx)
	if err != nil {
		return RetryResponse{}, err
	}
	return RetryResponse{Moved: moved}, nil
}

// PurgeBadByID removes the listed quarantined records, reporting per id
// whether it existed.
func PurgeBadByID(ctx context.Context, service QueueMaintainer, ids []int64) (PurgeItemsResult, error) {
	if len(ids) == 0 {
		return PurgeItemsResult{}, ErrNoPurgeTarget
	}
	result := PurgeItemsResult{Items: make([]PurgeItemResult, 0, len(ids))}
	for _, id := range ids {
		removed, err := service.PurgeBad(ctx, id)
		if err != nil {
			return PurgeItemsResult{}, err
		}
		if !removed {
			result.Items = append(result.Items, PurgeItemResult{ID: id, Outcome: PurgeItemNotFound})
			continue
		}
		result.Removed++
		result.Items = append(result.Items, PurgeItemResult{ID: id, Outcome: PurgeItemRemoved})
	}
	return result, nil
}

// PurgeAllBad empties the poison table.
func PurgeAllBad(ctx context.Context, service QueueMaintainer) (PurgeResponse, error) {
	removed, err := service.PurgeAllBad(ctx)
	if err != nil {
		return PurgeResponse{}, err
	}
	return PurgeResponse{Removed: removed}, nil
}
