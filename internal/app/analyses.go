package app

import (
	"context"
	"fmt"
	"os"

	"github.com/samber/lo"

	"pipeline-builder/internal/client"
	"pipeline-builder/internal/common/errors"
	"pipeline-builder/internal/common/logging"
	"pipeline-builder/internal/common/pagination"
	"pipeline-builder/internal/controller"
	"pipeline-builder/internal/pipeline"
)

// analysisReport is what show and watch print
type analysisReport struct {
	Analysis *client.Analysis        `json:"analysis"`
	Previews map[string][]client.Row `json:"previews"`
}

func (a *App) run(ctx context.Context, args []string) error {
	const usage = "run [-wait] <dataset_id> <file>"
	fs := a.flags("run")
	wait := fs.Bool("wait", false, "poll until the analysis finishes and print its artifacts")
	if err := fs.Parse(args); err != nil {
		return err
	}
	if err := needArgs(fs, 2, usage); err != nil {
		return err
	}

	p, err := pipeline.LoadFile(fs.Arg(1))
	if err != nil {
		return err
	}

	exec := controller.NewExecution(a.Client)
	id, err := exec.Submit(ctx, fs.Arg(0), p.Steps)
	if err != nil {
		return err
	}
	fmt.Fprintln(a.out, id)

	if !*wait {
		return nil
	}
	return a.watch(ctx, id)
}

func (a *App) analyses(ctx context.Context, args []string) error {
	const usage = "analyses list [-page N]|show [-csv KEY -out FILE] <id>|watch <id>"
	sub, rest, err := subcommand(args, usage)
	if err != nil {
		return err
	}

	switch sub {
	case "list":
		fs := a.flags("analyses list")
		params := pageFlags(fs)
		if err := fs.Parse(rest); err != nil {
			return err
		}
		monitor := a.newMonitor(nil)
		if err := monitor.Refresh(ctx); err != nil {
			return err
		}
		page := pagination.Paginate(monitor.Analyses(), params())
		rows := lo.Map(page.Results, func(v controller.AnalysisView, _ int) []string {
			return []string{v.ID, v.DatasetName, string(v.Status), v.CreatedAt, v.FinishedAt}
		})
		if err := a.printTable([]string{"ID", "DATASET", "STATUS", "CREATED", "FINISHED"}, rows); err != nil {
			return err
		}
		a.printFooter(page.Footer())
		return nil

	case "show":
		fs := a.flags("analyses show")
		csvKey := fs.String("csv", "", "download this artifact as CSV")
		out := fs.String("out", "", "file for -csv, stdout when empty")
		if err := fs.Parse(rest); err != nil {
			return err
		}
		if err := needArgs(fs, 1, usage); err != nil {
			return err
		}
		monitor := a.newMonitor(nil)
		if *csvKey != "" {
			return a.downloadArtifact(ctx, monitor, fs.Arg(0), *csvKey, *out)
		}
		selected, err := monitor.Select(ctx, fs.Arg(0))
		if err != nil {
			return err
		}
		return a.printJSON(analysisReport{Analysis: selected, Previews: monitor.Previews()})

	case "watch":
		fs := a.flags("analyses watch")
		if err := fs.Parse(rest); err != nil {
			return err
		}
		if err := needArgs(fs, 1, usage); err != nil {
			return err
		}
		return a.watch(ctx, fs.Arg(0))

	default:
		return errors.ValidationError("usage: pipeline-builder " + usage)
	}
}

func (a *App) newMonitor(onChange func(*client.Analysis)) *controller.AnalysisMonitor {
	return controller.NewAnalysisMonitor(a.Client, controller.MonitorOptions{
		Interval:     a.Config.PollInterval,
		PreviewRows:  a.Config.ArtifactPreviewRows,
		MaxCellChars: a.Config.ArtifactMaxCellChars,
		OnChange:     onChange,
	})
}

// watch prints each status change of an analysis until it finishes, then
// prints the final report
func (a *App) watch(ctx context.Context, id string) error {
	finished := make(chan struct{})
	monitor := a.newMonitor(func(an *client.Analysis) {
		fmt.Fprintf(a.out, "%s\t%s\n", an.ID, an.Status)
		if an.Status.IsTerminal() {
			close(finished)
		}
	})

	selected, err := monitor.Select(ctx, id)
	if err != nil {
		return err
	}
	fmt.Fprintf(a.out, "%s\t%s\n", selected.ID, selected.Status)

	if !selected.Status.IsTerminal() {
		if err := monitor.Start(); err != nil {
			return err
		}
		select {
		case <-finished:
			monitor.Stop()
		case <-ctx.Done():
			monitor.Stop()
			return ctx.Err()
		}
	}

	report := analysisReport{Analysis: monitor.Selected(), Previews: monitor.Previews()}
	if report.Analysis.Status == client.StatusFailed {
		a.Logger.Warn("Analysis failed",
			logging.String("analysis_id", id),
			logging.String("error", report.Analysis.Error))
	}
	return a.printJSON(report)
}

func (a *App) downloadArtifact(ctx context.Context, monitor *controller.AnalysisMonitor, id, key, path string) error {
	data, err := monitor.ArtifactCSV(ctx, id, key)
	if err != nil {
		return err
	}
	if path == "" {
		_, err = a.out.Write(data)
		return err
	}
	if err := os.WriteFile(path, data, 0o644); err != nil {
		return errors.InternalError("failed to write artifact", err)
	}
	fmt.Fprintf(a.out, "wrote %s\n", path)
	return nil
}
