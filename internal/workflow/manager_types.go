package workflow

import (
	"log/slog"

	"cinefuse/internal/queue"
	"cinefuse/internal/stage"
)

// StageSet bundles the concrete aggregation handlers the manager orchestrates.
// A nil handler removes its stage from the pipeline and the next configured
// stage picks up at the previous stage's done status.
type StageSet struct {
	Fetch   stage.Handler
	Resolve stage.Handler
	Collect stage.Handler
	Score   stage.Handler
	Publish stage.Handler
}

// pipelineStage couples a handler with the queue statuses that frame its
// execution: items enter at startStatus, hold processingStatus while the
// handler runs, and land on doneStatus on success.
type pipelineStage struct {
	name             string
	handler          stage.Handler
	startStatus      queue.Status
	processingStatus queue.Status
	doneStatus       queue.Status
}

// laneState is the runtime view of one processing lane. Each lane drains the
// queue independently so provider-bound network stages never hold up local
// scoring and publishing of items that already have their ratings.
type laneState struct {
	kind                 queue.ProcessingLane
	stages               []pipelineStage
	statusOrder          []queue.Status
	stageByStart         map[queue.Status]pipelineStage
	processingStatuses   []queue.Status
	logger               *slog.Logger
	notificationsEnabled bool
	runReclaimer         bool
}

// index rebuilds the status lookup tables after the stage list changes.
func (l *laneState) index() {
	if l == nil {
		return
	}
	l.stageByStart = make(map[queue.Status]pipelineStage, len(l.stages))
	l.statusOrder = make([]queue.Status, 0, len(l.stages))
	l.processingStatuses = l.processingStatuses[:0]
	seenProcessing := make(map[queue.Status]struct{})
	for _, stg := range l.stages {
		l.stageByStart[stg.startStatus] = stg
		l.statusOrder = append(l.statusOrder, stg.startStatus)
		if stg.processingStatus == "" {
			continue
		}
		if _, ok := seenProcessing[stg.processingStatus]; ok {
			continue
		}
		l.processingStatuses = append(l.processingStatuses, stg.processingStatus)
		seenProcessing[stg.processingStatus] = struct{}{}
	}
}

func (l *laneState) stageForStatus(status queue.Status) (pipelineStage, bool) {
	if l == nil {
		return pipelineStage{}, false
	}
	stg, ok := l.stageByStart[status]
	return stg, ok
}

func (l *laneState) name() string {
	return string(l.kind)
}
