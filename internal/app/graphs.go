package app

import (
	"context"
	"fmt"

	"github.com/samber/lo"

	"pipeline-builder/internal/client"
	"pipeline-builder/internal/common/errors"
	"pipeline-builder/internal/common/pagination"
	"pipeline-builder/internal/controller"
	"pipeline-builder/internal/pipeline"
)

func (a *App) graphs(ctx context.Context, args []string) error {
	const usage = "graphs list [-page N]|show [-out FILE] <id>|save <name> <file>"
	sub, rest, err := subcommand(args, usage)
	if err != nil {
		return err
	}

	graphs := controller.NewSavedGraphs(a.Client, a.Config.SaveRefreshDelay)
	defer graphs.Close()

	switch sub {
	case "list":
		fs := a.flags("graphs list")
		params := pageFlags(fs)
		if err := fs.Parse(rest); err != nil {
			return err
		}
		summaries, err := graphs.List(ctx)
		if err != nil {
			return err
		}
		page := pagination.Paginate(summaries, params())
		rows := lo.Map(page.Results, func(g client.SavedGraphSummary, _ int) []string {
			return []string{g.ID, g.Name, g.CreatedAt}
		})
		if err := a.printTable([]string{"ID", "NAME", "CREATED"}, rows); err != nil {
			return err
		}
		a.printFooter(page.Footer())
		return nil

	case "show":
		fs := a.flags("graphs show")
		out := fs.String("out", "", "write the pipeline to this file instead of stdout")
		if err := fs.Parse(rest); err != nil {
			return err
		}
		if err := needArgs(fs, 1, usage); err != nil {
			return err
		}
		p, err := graphs.Load(ctx, fs.Arg(0), nil)
		if err != nil {
			return err
		}
		return a.writePipeline(p, *out)

	case "save":
		fs := a.flags("graphs save")
		if err := fs.Parse(rest); err != nil {
			return err
		}
		if err := needArgs(fs, 2, usage); err != nil {
			return err
		}
		p, err := pipeline.LoadFile(fs.Arg(1))
		if err != nil {
			return err
		}
		id, err := graphs.Save(ctx, fs.Arg(0), p.Steps)
		if err != nil {
			return err
		}
		fmt.Fprintln(a.out, id)
		return nil

	default:
		return errors.ValidationError("usage: pipeline-builder " + usage)
	}
}

// writePipeline saves p to path, or prints it as YAML when path is empty
func (a *App) writePipeline(p pipeline.Pipeline, path string) error {
	if path != "" {
		if err := pipeline.SaveFile(path, p); err != nil {
			return err
		}
		fmt.Fprintf(a.out, "wrote %s\n", path)
		return nil
	}
	data, err := pipeline.MarshalYAML(p)
	if err != nil {
		return err
	}
	_, err = a.out.Write(data)
	return err
}
