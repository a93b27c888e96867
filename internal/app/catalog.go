package app

import (
	"context"
	"fmt"
	"strconv"
	"strings"

	"github.com/samber/lo"
	"gopkg.in/yaml.v3"

	"pipeline-builder/internal/common/errors"
	"pipeline-builder/internal/editor"
	"pipeline-builder/internal/functions"
	"pipeline-builder/internal/pipeline"
)

func (a *App) listFunctions(ctx context.Context, args []string) error {
	fs := a.flags("functions")
	refresh := fs.Bool("refresh", false, "bypass the registry cache")
	if err := fs.Parse(args); err != nil {
		return err
	}

	fetch := a.Client.Functions
	if *refresh {
		fetch = a.Client.RefreshFunctions
	}
	reg, err := fetch(ctx)
	if err != nil {
		return err
	}

	rows := lo.Map(reg.Names(), func(name string, _ int) []string {
		spec := reg[name]
		return []string{name, describeArgs(spec), spec.Doc}
	})
	return a.printTable([]string{"FUNCTION", "ARGUMENTS", "DESCRIPTION"}, rows)
}

func describeArgs(spec functions.FunctionSpec) string {
	if spec.Args == nil {
		return "?"
	}
	return strings.Join(lo.Map(spec.Args, func(arg functions.ArgumentDescriptor, _ int) string {
		desc := arg.Name
		if arg.Type != "" {
			desc += ":" + arg.Type
		}
		if !arg.Required {
			desc += "?"
		}
		return desc
	}), ", ")
}

func (a *App) template(ctx context.Context, args []string) error {
	const usage = "template <function>"
	fs := a.flags("template")
	if err := fs.Parse(args); err != nil {
		return err
	}
	if err := needArgs(fs, 1, usage); err != nil {
		return err
	}

	reg, err := a.Client.Functions(ctx)
	if err != nil {
		return err
	}
	name := fs.Arg(0)
	if _, err := reg.Lookup(name); err != nil {
		return err
	}

	out, err := yaml.Marshal(functions.BuildTemplate(name, reg))
	if err != nil {
		return errors.InternalError("failed to encode template", err)
	}
	_, err = a.out.Write(out)
	return err
}

// newPipeline writes a pipeline with one step per function. Each step reads
// the previous step's output.
func (a *App) newPipeline(ctx context.Context, args []string) error {
	const usage = "new [-name NAME] <file> [function...]"
	fs := a.flags("new")
	name := fs.String("name", pipeline.DefaultName, "pipeline name")
	if err := fs.Parse(args); err != nil {
		return err
	}
	if fs.NArg() < 1 {
		return errors.ValidationError("usage: pipeline-builder " + usage)
	}
	path, fns := fs.Arg(0), fs.Args()[1:]

	var reg functions.Registry
	if len(fns) > 0 {
		var err error
		if reg, err = a.Client.Functions(ctx); err != nil {
			return err
		}
	}

	doc := pipeline.NewDocument(*name)
	for _, fn := range fns {
		if _, err := reg.Lookup(fn); err != nil {
			return err
		}
		i := doc.AddDefaultStep()
		if err := doc.SelectFunction(i, fn, reg); err != nil {
			return err
		}
		if i > 0 {
			prev, _ := doc.Step(i - 1)
			if err := doc.EditStep(i, pipeline.StepUpdate{InputDFName: &prev.OutputDFName}); err != nil {
				return err
			}
		}
	}

	if err := pipeline.SaveFile(path, doc.Snapshot()); err != nil {
		return err
	}
	fmt.Fprintf(a.out, "wrote %d step(s) to %s\n", doc.Len(), path)
	return nil
}

// set edits one argument of a pipeline file through the argument editor.
// Scalars take the raw text; lists and mappings take a YAML value.
func (a *App) set(ctx context.Context, args []string) error {
	const usage = "set <file> <step> <argument> <value>"
	fs := a.flags("set")
	if err := fs.Parse(args); err != nil {
		return err
	}
	if err := needArgs(fs, 4, usage); err != nil {
		return err
	}
	path, argName, text := fs.Arg(0), fs.Arg(2), fs.Arg(3)
	index, err := strconv.Atoi(fs.Arg(1))
	if err != nil {
		return errors.ValidationError(fmt.Sprintf("step must be a number, got %q", fs.Arg(1)))
	}

	p, err := pipeline.LoadFile(path)
	if err != nil {
		return err
	}
	reg, err := a.Client.Functions(ctx)
	if err != nil {
		return err
	}

	doc := pipeline.FromPipeline(p)
	form, err := editor.NewForm(doc, index, reg, editor.DefaultOverrides())
	if err != nil {
		return err
	}
	field := form.Field(argName)
	if field == nil {
		step, _ := doc.Step(index)
		return errors.NotFoundError(fmt.Sprintf("argument %s of %s", argName, step.Function))
	}

	switch f := field.(type) {
	case *editor.TextField:
		f.Input(text)
	case *editor.NumberField:
		f.Input(text)
	case *editor.BooleanField:
		if _, err := strconv.ParseBool(text); err != nil {
			return errors.ValidationError(fmt.Sprintf("%s expects true or false", argName))
		}
		f.Select(text)
	default:
		var value interface{}
		if err := yaml.Unmarshal([]byte(text), &value); err != nil {
			return errors.ValidationError(fmt.Sprintf("invalid value for %s: %v", argName, err))
		}
		field.Sync(value)
		if err := doc.SetArg(index, argName, field.Value()); err != nil {
			return err
		}
	}

	if err := pipeline.SaveFile(path, doc.Snapshot()); err != nil {
		return err
	}
	step, _ := doc.Step(index)
	fmt.Fprintf(a.out, "%s = %v\n", argName, step.Args[argName])
	return nil
}
