package main

import (
	"fmt"
	"io"
	"strings"

	cmsreplace "github.com/goliatone/go-cms-replace"
	"github.com/goliatone/go-cms-replace/internal/di"
	"github.com/goliatone/go-cms-replace/internal/jobs"
)

// moduleOptions are the persistent flags shared by every sub-command.
type moduleOptions struct {
	ConfigPath string
	Driver     string
	DSN        string
	Progress   io.Writer
}

var moduleBuilder = buildModule

func buildModule(opts moduleOptions) (*cmsreplace.Module, error) {
	cfg, err := cmsreplace.LoadConfig(strings.TrimSpace(opts.ConfigPath))
	if err != nil {
		return nil, fmt.Errorf("load config: %w", err)
	}
	if dsn := strings.TrimSpace(opts.DSN); dsn != "" {
		cfg.Storage.Provider = "bun"
		cfg.Storage.DSN = dsn
	}
	if driver := strings.TrimSpace(opts.Driver); driver != "" {
		cfg.Storage.Driver = driver
	}

	diOpts := []di.Option{}
	if opts.Progress != nil {
		out := opts.Progress
		diOpts = append(diOpts, di.WithProgress(func(p jobs.Progress) {
			fmt.Fprintf(out, "processed %d/%d records (replaced %d, errors %d)\n", p.Processed, p.Total, p.Replaced, p.Errors)
		}))
	}

	module, err := cmsreplace.New(cfg, diOpts...)
	if err != nil {
		return nil, fmt.Errorf("initialise module: %w", err)
	}
	return module, nil
}
