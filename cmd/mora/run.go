// SPDX-License-Identifier: MIT

package main

import (
	"context"
	"errors"
	"flag"
	"fmt"
	"os"
	"path/filepath"

	"github.com/morahq/mora/internal/config"
	"github.com/morahq/mora/internal/log"
	"github.com/morahq/mora/internal/sandbox"
	"github.com/morahq/mora/internal/store"
)

// runExec executes code in the configured sandbox: either the code archived
// for a session, or a file given directly.
func runExec(ctx context.Context, cfg config.Config, args []string) error {
	fs := flag.NewFlagSet("run", flag.ContinueOnError)
	sessionID := fs.String("session", "", "execute the code archived for this session")
	file := fs.String("file", "", "execute this file instead of an archived session")
	runnerName := fs.String("runner", cfg.Runner, "execution backend: e2b or local")
	if err := fs.Parse(args); err != nil {
		return err
	}

	code, err := loadCode(ctx, cfg, *sessionID, *file)
	if err != nil {
		return err
	}

	runner, err := buildRunner(cfg, *runnerName)
	if err != nil {
		return err
	}

	if *sessionID != "" {
		ctx = log.ContextWithSessionID(ctx, *sessionID)
	}

	result := sandbox.NewBridge(runner).Execute(ctx, code)

	for _, line := range result.Logs {
		fmt.Println(line)
	}
	if result.Success {
		if result.Output != "" {
			fmt.Println(result.Output)
		}
		return nil
	}
	return fmt.Errorf("run: execution failed: %s", result.Error)
}

func loadCode(ctx context.Context, cfg config.Config, sessionID, file string) (string, error) {
	switch {
	case sessionID != "" && file != "":
		return "", errors.New("run: -session and -file are mutually exclusive")
	case file != "":
		data, err := os.ReadFile(file)
		if err != nil {
			return "", fmt.Errorf("run: read %s: %w", file, err)
		}
		return string(data), nil
	case sessionID != "":
		st, err := store.Open(filepath.Join(cfg.DataDir, "history.db"))
		if err != nil {
			return "", err
		}
		defer func() { _ = st.Close() }()

		rec, err := st.Get(ctx, sessionID)
		if err != nil {
			return "", err
		}
		return rec.Code, nil
	default:
		return "", errors.New("run: one of -session or -file is required")
	}
}

func buildRunner(cfg config.Config, name string) (sandbox.Runner, error) {
	switch name {
	case config.RunnerE2B:
		return sandbox.NewRemoteRunner(config.ParseString("MORA_E2B_API_URL", "https://api.e2b.dev"), cfg.E2BAPIKey), nil
	case config.RunnerLocal:
		return sandbox.NewLocalRunner(cfg.PythonBin), nil
	default:
		return nil, fmt.Errorf("run: unknown runner %q", name)
	}
}
