package app

import (
	"context"
	"fmt"
	"os"
	"path/filepath"
	"sort"
	"strconv"

	"github.com/samber/lo"

	"pipeline-builder/internal/client"
	"pipeline-builder/internal/common/errors"
	"pipeline-builder/internal/controller"
)

func (a *App) datasets(ctx context.Context, args []string) error {
	const usage = "datasets list|upload <file>|preview [-rows N] [-max-chars N] <id>|delete [-yes] <id>"
	sub, rest, err := subcommand(args, usage)
	if err != nil {
		return err
	}

	switch sub {
	case "list":
		return a.listDatasets(ctx)
	case "upload":
		return a.uploadDataset(ctx, rest, usage)
	case "preview":
		return a.previewDataset(ctx, rest, usage)
	case "delete":
		return a.deleteDataset(ctx, rest, usage)
	default:
		return errors.ValidationError("usage: pipeline-builder " + usage)
	}
}

func (a *App) listDatasets(ctx context.Context) error {
	items, err := controller.NewDatasets(a.Client, a, a).List(ctx)
	if err != nil {
		return err
	}
	rows := lo.Map(items, func(d client.Dataset, _ int) []string {
		return []string{d.ID, d.OriginalFilename, strconv.Itoa(d.NumRows), d.CreatedAt}
	})
	return a.printTable([]string{"ID", "NAME", "ROWS", "CREATED"}, rows)
}

func (a *App) uploadDataset(ctx context.Context, args []string, usage string) error {
	fs := a.flags("datasets upload")
	if err := fs.Parse(args); err != nil {
		return err
	}
	if err := needArgs(fs, 1, usage); err != nil {
		return err
	}

	path := fs.Arg(0)
	f, err := os.Open(path)
	if err != nil {
		return errors.NotFoundError("dataset file "+path).WithContext("cause", err.Error())
	}
	defer f.Close()

	id, err := controller.NewDatasets(a.Client, a, a).Upload(ctx, filepath.Base(path), f)
	if err != nil {
		return err
	}
	fmt.Fprintln(a.out, id)
	return nil
}

func (a *App) previewDataset(ctx context.Context, args []string, usage string) error {
	fs := a.flags("datasets preview")
	rows := fs.Int("rows", 10, "rows to show")
	maxChars := fs.Int("max-chars", a.Config.ArtifactMaxCellChars, "truncate cells longer than this")
	if err := fs.Parse(args); err != nil {
		return err
	}
	if err := needArgs(fs, 1, usage); err != nil {
		return err
	}

	datasets := controller.NewDatasets(a.Client, a, a)
	datasets.SetPreviewLimits(*rows, *maxChars)
	if _, err := datasets.List(ctx); err != nil {
		return err
	}
	preview, err := datasets.Select(ctx, fs.Arg(0))
	if err != nil {
		return err
	}

	fmt.Fprintf(a.out, "%s (%s, %d rows)\n", preview.OriginalFilename, preview.ID, preview.NumRows)
	return a.printRows(preview.Head)
}

func (a *App) deleteDataset(ctx context.Context, args []string, usage string) error {
	fs := a.flags("datasets delete")
	yes := fs.Bool("yes", false, "do not ask for confirmation")
	if err := fs.Parse(args); err != nil {
		return err
	}
	if err := needArgs(fs, 1, usage); err != nil {
		return err
	}

	var confirmer controller.Confirmer = a
	if *yes {
		confirmer = controller.ConfirmFunc(func(string) bool { return true })
	}
	datasets := controller.NewDatasets(a.Client, confirmer, a)
	if _, err := datasets.List(ctx); err != nil {
		return err
	}

	id := fs.Arg(0)
	deleted, err := datasets.Delete(ctx, id)
	if err != nil {
		return err
	}
	if !deleted {
		fmt.Fprintln(a.out, "cancelled")
		return nil
	}
	fmt.Fprintf(a.out, "deleted %s\n", id)
	return nil
}

// printRows prints records as a table with columns in name order
func (a *App) printRows(records []client.Row) error {
	columns := lo.Uniq(lo.FlatMap(records, func(r client.Row, _ int) []string {
		return lo.Keys(r)
	}))
	sort.Strings(columns)

	rows := lo.Map(records, func(r client.Row, _ int) []string {
		return lo.Map(columns, func(col string, _ int) string {
			if v, ok := r[col]; ok && v != nil {
				return fmt.Sprint(v)
			}
			return ""
		})
	})
	return a.printTable(columns, rows)
}
