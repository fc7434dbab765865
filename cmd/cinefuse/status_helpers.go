package main

import (
	"fmt"
	"strings"

	"cinefuse/internal/api"
	"cinefuse/internal/ipc"
)

func systemStatusLines(resp *ipc.StatusResponse, colorize bool) []string {
	lines := make([]string, 0, 6)
	if resp.Running {
		detail := "Running"
		if resp.PID > 0 {
			detail = fmt.Sprintf("Running (pid %d)", resp.PID)
		}
		lines = append(lines, renderStatusLine("Daemon", statusOK, detail, colorize))
	} else {
		lines = append(lines, renderStatusLine("Daemon", statusError, "Not running", colorize))
	}
	if last := strings.TrimSpace(resp.LastError); last != "" {
		lines = append(lines, renderStatusLine("Last Error", statusWarn, last, colorize))
	}
	if resp.LastItem != nil {
		detail := fmt.Sprintf("#%d %s (%s)", resp.LastItem.ID, resp.LastItem.Title, formatStatusLabel(resp.LastItem.Status))
		lines = append(lines, renderStatusLine("Last Item", statusInfo, detail, colorize))
	}
	if path := strings.TrimSpace(resp.QueueDBPath); path != "" {
		lines = append(lines, renderStatusLine("Queue DB", statusInfo, path, colorize))
	}
	if path := strings.TrimSpace(resp.CatalogDBPath); path != "" {
		lines = append(lines, renderStatusLine("Catalog DB", statusInfo, path, colorize))
	}
	if path := strings.TrimSpace(resp.LockPath); path != "" {
		lines = append(lines, renderStatusLine("Lock File", statusInfo, path, colorize))
	}
	return lines
}

func providerStatusLine(provider api.ProviderStatus, colorize bool) string {
	detail := strings.TrimSpace(provider.Detail)
	switch {
	case !provider.Enabled:
		if detail == "" {
			detail = "Disabled"
		}
		return renderStatusLine(provider.Name, statusInfo, detail, colorize)
	case provider.Healthy:
		if detail == "" {
			detail = "Ready"
		}
		return renderStatusLine(provider.Name, statusOK, detail, colorize)
	default:
		if detail == "" {
			detail = "Unreachable"
		}
		return renderStatusLine(provider.Name, statusWarn, detail, colorize)
	}
}

func stageStatusLine(stage api.StageHealth, colorize bool) string {
	detail := strings.TrimSpace(stage.Detail)
	if stage.Ready {
		if detail == "" {
			detail = "Ready"
		}
		return renderStatusLine(formatStatusLabel(stage.Name), statusOK, detail, colorize)
	}
	if detail == "" {
		detail = "Not ready"
	}
	return renderStatusLine(formatStatusLabel(stage.Name), statusWarn, detail, colorize)
}

func catalogStatusLines(stats api.CatalogStats, colorize bool) []string {
	lines := []string{
		renderStatusLine("Films", statusInfo, fmt.Sprintf("%d (%d rated)", stats.Films, stats.Rated), colorize),
		renderStatusLine("Ratings", statusInfo, fmt.Sprintf("%d", stats.Ratings), colorize),
	}
	if newest := strings.TrimSpace(stats.NewestAggregatedAt); newest != "" {
		lines = append(lines, renderStatusLine("Last Aggregated", statusInfo, formatDisplayTime(newest), colorize))
	}
	if oldest := strings.TrimSpace(stats.OldestAggregatedAt); oldest != "" {
		lines = append(lines, renderStatusLine("Oldest Aggregated", statusInfo, formatDisplayTime(oldest), colorize))
	}
	return lines
}

func buildSchedulerRows(jobs []api.SchedulerJob) [][]string {
	rows := make([][]string, 0, len(jobs))
	for _, job := range jobs {
		next := strings.TrimSpace(job.NextRun)
		if next == "" {
			next = "-"
		} else {
			next = formatDisplayTime(next)
		}
		rows = append(rows, []string{formatStatusLabel(job.Name), job.Spec, next})
	}
	return rows
}
