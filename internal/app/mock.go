package app

import (
	"context"
	"fmt"
	"io"
	"os"
	"path/filepath"
	"strings"
	"time"

	"pipeline-builder/internal/common/errors"
	"pipeline-builder/internal/common/logging"
	"pipeline-builder/internal/mockserver"
	"pipeline-builder/internal/server"
)

const sampleDataset = `caller,transcript,duration
alice,"Hello, I would like to cancel my subscription",42
bob,"Can you tell me my balance?",18
carol,"The app keeps crashing when I open it",65
`

func (a *App) serveMock(ctx context.Context, args []string) error {
	fs := a.flags("serve-mock")
	port := fs.String("port", a.Config.MockPort, "listen port")
	seed := fs.String("seed", "", "CSV file to preload, a small sample when empty")
	if err := fs.Parse(args); err != nil {
		return err
	}

	backend := mockserver.New(mockserver.Options{AutoComplete: a.Config.MockAutoComplete})
	defer backend.Close()

	if err := a.seedMock(backend, *seed); err != nil {
		return err
	}

	srv := server.New(backend, ":"+*port)
	if err := srv.Start(); err != nil {
		return errors.ConfigError(fmt.Sprintf("cannot listen on port %s: %v", *port, err))
	}
	a.Logger.Info("Mock backend listening", logging.String("address", srv.Addr()))
	fmt.Fprintf(a.out, "mock backend listening on %s\n", srv.Addr())

	var serveErr error
	select {
	case <-ctx.Done():
		a.Logger.Info("Shutting down mock backend")
	case serveErr = <-srv.Done():
	}

	shutdownCtx, cancel := context.WithTimeout(context.Background(), 30*time.Second)
	defer cancel()
	if err := srv.Shutdown(shutdownCtx); err != nil {
		a.Logger.Error("Mock backend forced to shutdown", err)
		return err
	}
	return serveErr
}

func (a *App) seedMock(backend *mockserver.Server, path string) error {
	var (
		name              = "sample_calls.csv"
		content io.Reader = strings.NewReader(sampleDataset)
	)
	if path != "" {
		f, err := os.Open(path)
		if err != nil {
			return errors.NotFoundError("seed file "+path).WithContext("cause", err.Error())
		}
		defer f.Close()
		name, content = filepath.Base(path), f
	}

	id, err := backend.SeedDataset(name, content)
	if err != nil {
		return err
	}
	a.Logger.Info("Seeded dataset", logging.String("dataset_id", id), logging.String("filename", name))
	return nil
}
