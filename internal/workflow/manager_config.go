package workflow

import "cinefuse/internal/queue"

// ConfigureStages registers the concrete stage handlers the workflow will run.
// Fetch, resolve and collect drain in the network lane; score and publish run
// locally in the finalize lane.
func (m *Manager) ConfigureStages(set StageSet) {
	network := &laneState{kind: queue.LaneNetwork, notificationsEnabled: true}
	finalize := &laneState{kind: queue.LaneFinalize, notificationsEnabled: false}

	cursor := queue.StatusPending
	if set.Fetch != nil {
		network.stages = append(network.stages, pipelineStage{
			name:             "fetch",
			handler:          set.Fetch,
			startStatus:      cursor,
			processingStatus: queue.StatusFetching,
			doneStatus:       queue.StatusFetched,
		})
		cursor = queue.StatusFetched
	}
	if set.Resolve != nil {
		network.stages = append(network.stages, pipelineStage{
			name:             "resolve",
			handler:          set.Resolve,
			startStatus:      cursor,
			processingStatus: queue.StatusResolving,
			doneStatus:       queue.StatusResolved,
		})
		cursor = queue.StatusResolved
	}
	if set.Collect != nil {
		network.stages = append(network.stages, pipelineStage{
			name:             "collect",
			handler:          set.Collect,
			startStatus:      cursor,
			processingStatus: queue.StatusCollecting,
			doneStatus:       queue.StatusCollected,
		})
		cursor = queue.StatusCollected
	}
	if set.Score != nil {
		finalize.stages = append(finalize.stages, pipelineStage{
			name:             "score",
			handler:          set.Score,
			startStatus:      cursor,
			processingStatus: queue.StatusScoring,
			doneStatus:       queue.StatusScored,
		})
		cursor = queue.StatusScored
	}
	if set.Publish != nil {
		finalize.stages = append(finalize.stages, pipelineStage{
			name:             "publish",
			handler:          set.Publish,
			startStatus:      cursor,
			processingStatus: queue.StatusPublishing,
			doneStatus:       queue.StatusCompleted,
		})
	}

	lanes := make(map[queue.ProcessingLane]*laneState)
	order := make([]queue.ProcessingLane, 0, 2)

	for _, lane := range []*laneState{network, finalize} {
		if len(lane.stages) == 0 {
			continue
		}
		lane.index()
		lane.logger = m.laneLogger(lane)
		lane.runReclaimer = len(lane.processingStatuses) > 0
		lanes[lane.kind] = lane
		order = append(order, lane.kind)
	}

	m.mu.Lock()
	m.lanes = lanes
	m.laneOrder = order
	m.mu.Unlock()
}
