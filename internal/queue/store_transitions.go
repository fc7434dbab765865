package queue

import (
	"context"
	"fmt"
	"strings"
	"time"
)

// rollbackClauses renders a set of stage rollback transitions as the CASE
// pairs and IN-list placeholders used by the recovery updates below.
func rollbackClauses(transitions []statusTransition) (caseSQL, inSQL string, caseArgs, inArgs []any) {
	var builder strings.Builder
	for _, transition := range transitions {
		builder.WriteString(" WHEN ? THEN ?")
		caseArgs = append(caseArgs, transition.from, transition.to)
		inArgs = append(inArgs, transition.from)
	}
	return builder.String(), makePlaceholders(len(transitions)), caseArgs, inArgs
}

// ResetStuckProcessing resets items in processing states back to the start of their current stage.
func (s *Store) ResetStuckProcessing(ctx context.Context) (int64, error) {
	caseSQL, inSQL, caseArgs, inArgs := rollbackClauses(stageRollbackTransitions)
	query := `UPDATE queue_items
         SET status = CASE status` + caseSQL + ` ELSE status END,
             progress_stage = 'Reset from stuck processing',
             progress_percent = 0, progress_message = NULL, last_heartbeat = NULL, updated_at = ?
         WHERE status IN (` + inSQL + `)`

	args := make([]any, 0, len(caseArgs)+len(inArgs)+1)
	args = append(args, caseArgs...)
	args = append(args, time.Now().UTC().Format(time.RFC3339Nano))
	args = append(args, inArgs...)

	res, err := s.execWithRetry(ctx, query, args...)
	if err != nil {
		return 0, fmt.Errorf("reset stuck items: %w", err)
	}
	return res.RowsAffected()
}

// UpdateHeartbeat updates the last heartbeat timestamp for an in-flight item.
func (s *Store) UpdateHeartbeat(ctx context.Context, id int64) error {
	now := time.Now().UTC()
	if err := s.execWithoutResultRetry(
		ctx,
		`UPDATE queue_items SET last_heartbeat = ?, updated_at = ? WHERE id = ?`,
		now.Format(time.RFC3339Nano),
		now.Format(time.RFC3339Nano),
		id,
	); err != nil {
		return fmt.Errorf("update heartbeat: %w", err)
	}
	return nil
}

// ReclaimStaleProcessing returns items stuck in processing back to the start
// of their current stage when heartbeats expire. When statuses are provided,
// only transitions for those statuses are considered; callers use this to
// scope the reclaim to the stages a single lane owns.
func (s *Store) ReclaimStaleProcessing(ctx context.Context, cutoff time.Time, statuses ...Status) (int64, error) {
	transitions := stageRollbackTransitions
	if len(statuses) > 0 {
		allowed := make(map[Status]struct{}, len(statuses))
		for _, status := range statuses {
			allowed[status] = struct{}{}
		}
		filtered := make([]statusTransition, 0, len(transitions))
		for _, transition := range transitions {
			if _, ok := allowed[transition.from]; ok {
				filtered = append(filtered, transition)
			}
		}
		transitions = filtered
	}
	if len(transitions) == 0 {
		return 0, nil
	}

	caseSQL, inSQL, caseArgs, inArgs := rollbackClauses(transitions)
	query := `UPDATE queue_items
        SET status = CASE status` + caseSQL + ` ELSE status END,
            progress_stage = 'Reclaimed from stale processing',
            progress_percent = 0, progress_message = NULL, last_heartbeat = NULL, updated_at = ?
        WHERE status IN (` + inSQL + `) AND last_heartbeat IS NOT NULL AND last_heartbeat < ?`

	args := make([]any, 0, len(caseArgs)+len(inArgs)+2)
	args = append(args, caseArgs...)
	args = append(args, time.Now().UTC().Format(time.RFC3339Nano))
	args = append(args, inArgs...)
	args = append(args, cutoff.UTC().Format(time.RFC3339Nano))

	res, err := s.execWithRetry(ctx, query, args...)
	if err != nil {
		return 0, fmt.Errorf("reclaim stale items: %w", err)
	}
	return res.RowsAffected()
}

// RetryFailed moves failed items back to pending for reprocessing.
func (s *Store) RetryFailed(ctx context.Context, ids ...int64) (int64, error) {
	if len(ids) == 0 {
		res, err := s.execWithRetry(
			ctx,
			`UPDATE queue_items
            SET status = ?, progress_stage = 'Retry requested', progress_percent = 0,
                progress_message = NULL, error_message = NULL, updated_at = ?
            WHERE status = ?`,
			StatusPending,
			time.Now().UTC().Format(time.RFC3339Nano),
			StatusFailed,
		)
		if err != nil {
			return 0, fmt.Errorf("retry failed items: %w", err)
		}
		return res.RowsAffected()
	}

	placeholders := makePlaceholders(len(ids))
	args := make([]any, 0, len(ids)+2)
	args = append(args, StatusPending, time.Now().UTC().Format(time.RFC3339Nano))
	for _, id := range ids {
		args = append(args, id)
	}
	query := `UPDATE queue_items
        SET status = ?, progress_stage = 'Retry requested', progress_percent = 0,
            progress_message = NULL, error_message = NULL, updated_at = ?
        WHERE id IN (` + placeholders + `) AND status = '` + string(StatusFailed) + `'`
	res, err := s.execWithRetry(ctx, query, args...)
	if err != nil {
		return 0, fmt.Errorf("retry selected items: %w", err)
	}
	return res.RowsAffected()
}
