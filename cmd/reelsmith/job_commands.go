package main

import (
	"fmt"
	"strconv"
	"time"

	"github.com/spf13/cobra"

	"reelsmith/internal/api"
)

func newJobsCommand(ctx *commandContext) *cobra.Command {
	var limit int

	cmd := &cobra.Command{
		Use:   "jobs",
		Short: "List queued and finished jobs",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			client, err := ctx.apiClient()
			if err != nil {
				return err
			}
			jobs, err := client.Jobs(cmd.Context(), limit)
			if err != nil {
				return err
			}
			out := cmd.OutOrStdout()
			if len(jobs) == 0 {
				fmt.Fprintln(out, "No jobs found.")
				return nil
			}

			rows := make([][]string, 0, len(jobs))
			for _, job := range jobs {
				rows = append(rows, []string{
					shortJobID(job.ID),
					job.Status,
					job.Stage,
					strconv.Itoa(job.Progress) + "%",
					formatJobTime(job.CreatedAt),
				})
			}
			fmt.Fprintln(out, renderTable(
				[]string{"ID", "Status", "Stage", "Progress", "Created"},
				rows, 3))
			return nil
		},
	}

	cmd.Flags().IntVarP(&limit, "limit", "n", 20, "Maximum number of jobs to list (0 for all)")
	return cmd
}

func newStatusCommand(ctx *commandContext) *cobra.Command {
	return &cobra.Command{
		Use:   "status [job-id]",
		Short: "Show daemon health or the progress of one job",
		Args:  cobra.MaximumNArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			client, err := ctx.apiClient()
			if err != nil {
				return err
			}
			if len(args) == 1 {
				job, err := client.Job(cmd.Context(), args[0])
				if err != nil {
					return err
				}
				printJobDetail(cmd, job)
				return nil
			}

			status, err := client.Status(cmd.Context())
			if err != nil {
				return err
			}
			printDaemonStatus(cmd, status)
			return nil
		},
	}
}

func newFetchCommand(ctx *commandContext) *cobra.Command {
	var outputDir string

	cmd := &cobra.Command{
		Use:   "fetch <job-id>",
		Short: "Download the rendered video of a completed job",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			client, err := ctx.apiClient()
			if err != nil {
				return err
			}
			path, err := client.FetchResult(cmd.Context(), args[0], outputDir)
			if err != nil {
				return err
			}
			fmt.Fprintf(cmd.OutOrStdout(), "Saved %s\n", path)
			return nil
		},
	}

	cmd.Flags().StringVarP(&outputDir, "output", "o", ".", "Directory to save the video into")
	return cmd
}

func newCancelCommand(ctx *commandContext) *cobra.Command {
	return &cobra.Command{
		Use:   "cancel <job-id>",
		Short: "Request cooperative cancellation of a job",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			client, err := ctx.apiClient()
			if err != nil {
				return err
			}
			resp, err := client.Cancel(cmd.Context(), args[0])
			if err != nil {
				return err
			}
			out := cmd.OutOrStdout()
			if resp.Cancelled {
				fmt.Fprintf(out, "Cancelled job %s\n", shortJobID(resp.JobID))
			} else {
				fmt.Fprintf(out, "Job %s is already finished; nothing to cancel\n", shortJobID(resp.JobID))
			}
			return nil
		},
	}
}

func printJobDetail(cmd *cobra.Command, job api.Job) {
	out := cmd.OutOrStdout()
	colorize := shouldColorize(out)

	for _, line := range renderSectionHeader("Job "+shortJobID(job.ID), colorize) {
		fmt.Fprintln(out, line)
	}
	fmt.Fprintln(out, renderStatusLine("Status", jobStatusKind(job.Status), job.Status, colorize))
	if job.Stage != "" {
		fmt.Fprintln(out, renderStatusLine("Stage", statusInfo, job.Stage, colorize))
	}
	fmt.Fprintln(out, renderStatusLine("Progress", statusInfo, strconv.Itoa(job.Progress)+"%", colorize))
	if job.SceneCount > 0 {
		fmt.Fprintln(out, renderStatusLine("Scenes", statusInfo, strconv.Itoa(job.SceneCount), colorize))
	}
	if job.Error != "" {
		fmt.Fprintln(out, renderStatusLine("Error", statusError, job.Error, colorize))
	}
	if job.OutputPath != "" {
		fmt.Fprintln(out, renderStatusLine("Output", statusOK, job.OutputPath, colorize))
	}
	fmt.Fprintln(out, renderStatusLine("Created", statusInfo, formatJobTime(job.CreatedAt), colorize))
	fmt.Fprintln(out, renderStatusLine("Updated", statusInfo, formatJobTime(job.UpdatedAt), colorize))
}

func printDaemonStatus(cmd *cobra.Command, status api.DaemonStatus) {
	out := cmd.OutOrStdout()
	colorize := shouldColorize(out)

	for _, line := range renderSectionHeader("Daemon", colorize) {
		fmt.Fprintln(out, line)
	}
	runningKind := statusError
	runningText := "stopped"
	if status.Running {
		runningKind = statusOK
		runningText = fmt.Sprintf("pid %d", status.PID)
	}
	fmt.Fprintln(out, renderStatusLine("Running", runningKind, runningText, colorize))
	if status.DatabasePath != "" {
		fmt.Fprintln(out, renderStatusLine("Database", statusInfo, status.DatabasePath, colorize))
	}

	for _, line := range renderSectionHeader("Jobs", colorize) {
		fmt.Fprintln(out, line)
	}
	counts := status.Jobs
	summary := fmt.Sprintf("%d total / %d pending / %d processing / %d completed / %d failed / %d cancelled",
		counts.Total, counts.Pending, counts.Processing, counts.Completed, counts.Failed, counts.Cancelled)
	fmt.Fprintln(out, renderStatusLine("Queue", statusInfo, summary, colorize))

	if len(status.Dependencies) > 0 {
		for _, line := range renderSectionHeader("Dependencies", colorize) {
			fmt.Fprintln(out, line)
		}
		for _, dep := range status.Dependencies {
			kind := statusOK
			message := "available"
			if !dep.Available {
				message = dep.Detail
				if dep.Optional {
					kind = statusWarn
				} else {
					kind = statusError
				}
			}
			fmt.Fprintln(out, renderStatusLine(dep.Name, kind, message, colorize))
		}
	}
}

func jobStatusKind(status string) statusKind {
	switch status {
	case "completed":
		return statusOK
	case "failed":
		return statusError
	case "cancelled":
		return statusWarn
	default:
		return statusInfo
	}
}

func shortJobID(id string) string {
	if len(id) > 8 {
		return id[:8]
	}
	return id
}

func formatJobTime(value time.Time) string {
	if value.IsZero() {
		return ""
	}
	return value.Local().Format("2006-01-02 15:04:05")
}
