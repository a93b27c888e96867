package app

import (
	"context"
	"fmt"
	"strconv"
	"time"

	"github.com/samber/lo"

	"pipeline-builder/internal/common/errors"
	"pipeline-builder/internal/pipeline"
	"pipeline-builder/internal/storage"
)

func (a *App) draftsCommand(ctx context.Context, args []string) error {
	const usage = "drafts list|save <name> <file>|show [-out FILE] <name>|delete <name>"
	sub, rest, err := subcommand(args, usage)
	if err != nil {
		return err
	}

	store, err := a.draftStore()
	if err != nil {
		return err
	}

	fs := a.flags("drafts " + sub)
	out := fs.String("out", "", "write the pipeline to this file instead of stdout")
	if err := fs.Parse(rest); err != nil {
		return err
	}

	switch sub {
	case "list":
		drafts, err := store.ListDrafts(ctx)
		if err != nil {
			return err
		}
		rows := lo.Map(drafts, func(d storage.DraftSummary, _ int) []string {
			return []string{d.Name, strconv.Itoa(d.Steps), d.UpdatedAt.Format(time.RFC3339)}
		})
		return a.printTable([]string{"NAME", "STEPS", "UPDATED"}, rows)

	case "save":
		if err := needArgs(fs, 2, usage); err != nil {
			return err
		}
		p, err := pipeline.LoadFile(fs.Arg(1))
		if err != nil {
			return err
		}
		if err := store.SaveDraft(ctx, fs.Arg(0), p); err != nil {
			return err
		}
		fmt.Fprintf(a.out, "saved draft %s (%d step(s))\n", fs.Arg(0), len(p.Steps))
		return nil

	case "show":
		if err := needArgs(fs, 1, usage); err != nil {
			return err
		}
		draft, err := store.GetDraft(ctx, fs.Arg(0))
		if err != nil {
			return err
		}
		return a.writePipeline(draft.Pipeline, *out)

	case "delete":
		if err := needArgs(fs, 1, usage); err != nil {
			return err
		}
		if err := store.DeleteDraft(ctx, fs.Arg(0)); err != nil {
			return err
		}
		fmt.Fprintf(a.out, "deleted draft %s\n", fs.Arg(0))
		return nil

	default:
		return errors.ValidationError("usage: pipeline-builder " + usage)
	}
}
