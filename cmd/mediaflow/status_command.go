package main

import (
	"fmt"
	"strings"

	"github.com/spf13/cobra"

	"mediaflow/internal/api"
	"mediaflow/internal/apiclient"
)

func newStatusCommand(ctx *commandContext) *cobra.Command {
	return &cobra.Command{
		Use:   "status",
		Short: "Show daemon, scheduler, and dependency health",
		RunE: func(cmd *cobra.Command, args []string) error {
			client, err := ctx.client()
			if err != nil {
				return err
			}
			status, err := client.Status(cmd.Context())
			out := cmd.OutOrStdout()
			colorize := shouldColorize(out)
			if err != nil {
				if !apiclient.IsUnavailable(err) || ctx.jsonMode() {
					return wrapClientError(err, client)
				}
				fmt.Fprintln(out, renderStatusLine("Daemon", statusError, "not running ("+client.BaseURL()+")", colorize))
				return nil
			}
			if ctx.jsonMode() {
				return writeJSON(cmd, status)
			}
			fmt.Fprintln(out, strings.Join(statusLines(status, client.BaseURL(), colorize), "\n"))
			return nil
		},
	}
}

func statusLines(status *api.DaemonStatus, baseURL string, colorize bool) []string {
	var lines []string
	add := func(label string, kind statusKind, msg string) {
		lines = append(lines, renderStatusLine(label, kind, msg, colorize))
	}

	lines = append(lines, renderSectionHeader("Daemon", colorize)...)
	if status.Running && status.Workflow.Running {
		add("Daemon", statusOK, fmt.Sprintf("running (pid %d)", status.PID))
	} else {
		add("Daemon", statusWarn, fmt.Sprintf("reachable but not processing (pid %d)", status.PID))
	}
	add("API", statusInfo, baseURL)
	add("Database", statusInfo, status.DatabasePath)
	add("Subscribers", statusInfo, fmt.Sprintf("%d", status.Subscriptions))
	if status.Workflow.LastError != "" {
		add("Last error", statusWarn, fmt.Sprintf("%s (item %s)", status.Workflow.LastError, status.Workflow.LastItemID))
	}

	sched := status.Workflow.Scheduler
	lines = append(lines, renderSectionHeader("Scheduler", colorize)...)
	add("Workers", statusInfo, fmt.Sprintf("%d active of %d (peak %d)", sched.Active, sched.Workers, sched.Peak))
	add("Queued", statusInfo, fmt.Sprintf("%d", sched.Queued))

	counts := status.Workflow.ItemCounts
	lines = append(lines, renderSectionHeader("Items", colorize)...)
	add("Total", statusInfo, fmt.Sprintf("%d", counts["total"]))
	add("Pending", statusInfo, fmt.Sprintf("%d", counts["pending"]))
	add("Processing", statusInfo, fmt.Sprintf("%d", counts["processing"]))
	add("Completed", statusOK, fmt.Sprintf("%d", counts["completed"]))
	failedKind := statusOK
	if counts["failed"] > 0 {
		failedKind = statusWarn
	}
	add("Failed", failedKind, fmt.Sprintf("%d", counts["failed"]))

	if len(status.Workflow.StageHealth) > 0 {
		lines = append(lines, renderSectionHeader("Stages", colorize)...)
		for _, stage := range status.Workflow.StageHealth {
			kind := statusOK
			if !stage.Ready {
				kind = statusWarn
			}
			add(stage.Name, kind, stage.Detail)
		}
	}

	if len(status.Dependencies) > 0 {
		lines = append(lines, renderSectionHeader("Dependencies", colorize)...)
		for _, dep := range status.Dependencies {
			switch {
			case dep.Available:
				add(dep.Name, statusOK, dep.Command)
			case dep.Optional:
				add(dep.Name, statusWarn, "missing, fallback in use: "+dep.Detail)
			default:
				add(dep.Name, statusError, dep.Detail)
			}
		}
	}

	if len(status.Preflight) > 0 {
		lines = append(lines, renderSectionHeader("Preflight", colorize)...)
		for _, check := range status.Preflight {
			kind := statusOK
			if !check.Passed {
				kind = statusError
			}
			add(check.Name, kind, check.Detail)
		}
	}
	return lines
}
