package cli

import (
	"context"
	"fmt"
	"io"

	"github.com/PreetShah25/arbitra-AI/internal/capture"
	"github.com/PreetShah25/arbitra-AI/internal/frames"
	"github.com/PreetShah25/arbitra-AI/internal/schedule"
	"github.com/PreetShah25/arbitra-AI/internal/task"
	"github.com/PreetShah25/arbitra-AI/internal/upload"
	"github.com/PreetShah25/arbitra-AI/internal/workspace"
	"github.com/spf13/cobra"
)

var extractCmd = &cobra.Command{
	Use:   "extract <id> <video-file>",
	Short: "Attach a recording to a task and extract its screenshots",
	Long:  `Uploads the video file to the task, samples screenshots from it and drafts the task understanding. Existing screenshots are replaced.`,
	Args:  cobra.ExactArgs(2),
	RunE: withWorkspace(func(cmd *cobra.Command, ws *workspace.Workspace, args []string) error {
		return runExtract(cmd.Context(), cmd.OutOrStdout(), ws, schedule.Ticker{}, args[0], args[1])
	}),
}

func runExtract(ctx context.Context, out io.Writer, ws *workspace.Workspace, sched schedule.Scheduler, id, path string) error {
	t, ok := ws.Store.Get(id)
	if !ok {
		return fmt.Errorf("task %s: %w", id, task.ErrNotFound)
	}

	rec, err := ws.CaptureSource(nil).SupplyFile(path)
	if err != nil {
		return err
	}

	if err := waitForUpload(ctx, out, ws.Uploader(sched), id, rec); err != nil {
		return err
	}

	company := ws.Config.CompanyName(t.Ticker)
	if company == "" {
		company = t.Ticker
	}
	fmt.Fprintln(out, "Extracting screenshots...")
	shots, err := ws.Extractor().Extract(ctx, frames.Request{
		Ref:         rec.Ref(),
		TaskID:      id,
		Description: t.Desc,
		CompanyName: company,
	})
	if err != nil {
		return err
	}
	if err := ws.Store.Apply(ctx, id, task.SetStatus{Status: task.StatusReviewing}); err != nil {
		return err
	}

	fmt.Fprintf(out, "Extracted %d screenshots. Run `arbitra task show %s` to review.\n", len(shots), id)
	return nil
}

// waitForUpload runs one upload attempt to completion, printing progress.
func waitForUpload(ctx context.Context, out io.Writer, up *upload.Simulator, id string, rec capture.Recording) error {
	done := make(chan error, 1)
	progress := make(chan int, 8)
	up.Start(ctx, id, rec, func(p upload.Progress) {
		if p.Done {
			done <- p.Err
			return
		}
		select {
		case progress <- p.Percent:
		default:
		}
	})

	for {
		select {
		case <-ctx.Done():
			up.Cancel(id)
			return ctx.Err()
		case pct := <-progress:
			fmt.Fprintf(out, "Uploading... %d%%\n", pct)
		case err := <-done:
			if err != nil {
				return fmt.Errorf("upload failed: %w", err)
			}
			fmt.Fprintln(out, "Uploading... 100%")
			return nil
		}
	}
}
