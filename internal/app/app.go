// Package app wires configuration, the backend client, the controllers and
// the draft store into the pipeline-builder command line tool.
package app

import (
	"bufio"
	"context"
	"encoding/json"
	"flag"
	"fmt"
	"io"
	"strings"
	"text/tabwriter"

	"pipeline-builder/internal/client"
	"pipeline-builder/internal/common/errors"
	"pipeline-builder/internal/common/logging"
	"pipeline-builder/internal/common/pagination"
	"pipeline-builder/internal/config"
	"pipeline-builder/internal/storage"
	_ "pipeline-builder/internal/storage/postgres"
	_ "pipeline-builder/internal/storage/sqlite"
)

// Streams are the process's standard streams
type Streams struct {
	In  io.Reader
	Out io.Writer
	Err io.Writer
}

// App holds the dependencies shared by all commands
type App struct {
	Config *config.Config
	Client *client.Client
	Logger logging.Logger

	in     *bufio.Reader
	out    io.Writer
	errOut io.Writer
	drafts storage.Store
}

// New creates an application for cfg. The draft store is opened on first use.
func New(cfg *config.Config, streams Streams) (*App, error) {
	c, err := client.FromConfig(cfg)
	if err != nil {
		return nil, err
	}
	if streams.In == nil {
		streams.In = strings.NewReader("")
	}

	return &App{
		Config: cfg,
		Client: c,
		Logger: logging.Component("app"),
		in:     bufio.NewReader(streams.In),
		out:    streams.Out,
		errOut: streams.Err,
	}, nil
}

// Cleanup releases the draft store
func (a *App) Cleanup() {
	if a.drafts == nil {
		return
	}
	if err := a.drafts.Close(); err != nil {
		a.Logger.Warn("Failed to close draft store", logging.Err(err))
	}
	a.drafts = nil
}

type command struct {
	name    string
	usage   string
	summary string
	run     func(a *App, ctx context.Context, args []string) error
}

func commands() []command {
	return []command{
		{"functions", "functions [-refresh]", "list the backend's functions and their arguments", (*App).listFunctions},
		{"template", "template <function>", "print the default argument template of a function", (*App).template},
		{"new", "new [-name NAME] <file> [function...]", "write a pipeline file with one templated step per function", (*App).newPipeline},
		{"set", "set <file> <step> <argument> <value>", "edit one argument of a pipeline file", (*App).set},
		{"datasets", "datasets list|upload <file>|preview [-rows N] <id>|delete [-yes] <id>", "manage uploaded datasets", (*App).datasets},
		{"graphs", "graphs list [-page N]|show [-out FILE] <id>|save <name> <file>", "manage saved graphs", (*App).graphs},
		{"run", "run [-wait] <dataset_id> <file>", "submit a pipeline file for execution", (*App).run},
		{"analyses", "analyses list [-page N]|show [-csv KEY -out FILE] <id>|watch <id>", "inspect analyses and their artifacts", (*App).analyses},
		{"drafts", "drafts list|save <name> <file>|show [-out FILE] <name>|delete <name>", "manage local pipeline drafts", (*App).draftsCommand},
		{"serve-mock", "serve-mock [-port PORT] [-seed FILE]", "run an in-memory backend for local development", (*App).serveMock},
	}
}

// Execute runs the command named by args[0]
func (a *App) Execute(ctx context.Context, args []string) error {
	if len(args) == 0 || args[0] == "help" || args[0] == "-h" || args[0] == "--help" {
		a.usage()
		return nil
	}

	for _, cmd := range commands() {
		if cmd.name == args[0] {
			a.Logger.Debug("Running command", logging.String("command", cmd.name))
			return cmd.run(a, ctx, args[1:])
		}
	}

	a.usage()
	return errors.ValidationError(fmt.Sprintf("unknown command %q", args[0]))
}

func (a *App) usage() {
	w := tabwriter.NewWriter(a.out, 0, 4, 2, ' ', 0)
	fmt.Fprintln(w, "usage: pipeline-builder <command> [arguments]")
	fmt.Fprintln(w)
	for _, cmd := range commands() {
		fmt.Fprintf(w, "  %s\t%s\n", cmd.usage, cmd.summary)
	}
	_ = w.Flush()
}

func (a *App) flags(name string) *flag.FlagSet {
	fs := flag.NewFlagSet(name, flag.ContinueOnError)
	fs.SetOutput(a.errOut)
	return fs
}

// subcommand splits "list", "show <id>" style arguments
func subcommand(args []string, usage string) (string, []string, error) {
	if len(args) == 0 {
		return "", nil, errors.ValidationError("usage: pipeline-builder " + usage)
	}
	return args[0], args[1:], nil
}

func needArgs(fs *flag.FlagSet, n int, usage string) error {
	if fs.NArg() != n {
		return errors.ValidationError("usage: pipeline-builder " + usage)
	}
	return nil
}

// pageFlags registers -page and -per-page on fs
func pageFlags(fs *flag.FlagSet) func() pagination.Params {
	page := fs.Int("page", 1, "page to show")
	perPage := fs.Int("per-page", pagination.DefaultPerPage, "entries per page")
	return func() pagination.Params {
		return pagination.NewParams(*page, *perPage)
	}
}

func (a *App) printFooter(footer string) {
	if footer != "" {
		fmt.Fprintln(a.out, footer)
	}
}

func (a *App) printJSON(v interface{}) error {
	enc := json.NewEncoder(a.out)
	enc.SetIndent("", "  ")
	return enc.Encode(v)
}

func (a *App) printTable(header []string, rows [][]string) error {
	w := tabwriter.NewWriter(a.out, 0, 4, 2, ' ', 0)
	fmt.Fprintln(w, strings.Join(header, "\t"))
	for _, row := range rows {
		fmt.Fprintln(w, strings.Join(row, "\t"))
	}
	return w.Flush()
}

// Confirm asks on the terminal; anything but y/yes declines
func (a *App) Confirm(prompt string) bool {
	fmt.Fprintf(a.errOut, "%s [y/N] ", prompt)
	line, _ := a.in.ReadString('\n')
	answer := strings.ToLower(strings.TrimSpace(line))
	return answer == "y" || answer == "yes"
}

// Alert prints a message for the user
func (a *App) Alert(message string) {
	fmt.Fprintln(a.errOut, "error:", message)
}

func (a *App) draftStore() (storage.Store, error) {
	if a.drafts != nil {
		return a.drafts, nil
	}
	store, err := storage.NewStore(a.Config)
	if err != nil {
		return nil, err
	}
	a.drafts = store
	return store, nil
}
