// Command grocery is a CLI client for the grocery store API.
package main

import (
	"context"
	"encoding/json"
	"fmt"
	"io"
	"os"
	"os/signal"
	"syscall"

	"github.com/urfave/cli/v2"

	"github.com/and161185/grocery-keeper/internal/app"
	"github.com/and161185/grocery-keeper/internal/config"
)

var (
	version   = "dev"
	buildDate = "unknown"
)

func main() {
	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	code := run(ctx, os.Args, os.Stdout, os.Stderr)
	stop()
	os.Exit(code)
}

// run executes one command and returns the process exit code.
func run(ctx context.Context, args []string, stdout, stderr io.Writer) int {
	if err := newApp(stdout, stderr).RunContext(ctx, args); err != nil {
		fmt.Fprintln(stderr, err)
		return 1
	}
	return 0
}

func newApp(stdout, stderr io.Writer) *cli.App {
	return &cli.App{
		Name:      "grocery",
		Usage:     "grocery store API client",
		Version:   fmt.Sprintf("%s (%s)", version, buildDate),
		Writer:    stdout,
		ErrWriter: stderr,
		Flags: []cli.Flag{
			&cli.StringFlag{Name: "env", Value: ".env", Usage: "dotenv file to load"},
			&cli.StringFlag{Name: "api-url", Usage: "API base URL (overrides GROCERY_API_URL)"},
			&cli.StringFlag{Name: "store", Usage: "session store: file, postgres or redis (overrides GROCERY_STORE)"},
			&cli.StringFlag{Name: "data-dir", Usage: "file store directory (overrides GROCERY_DATA_DIR)"},
			&cli.StringFlag{Name: "log-level", Usage: "log level (overrides GROCERY_LOG_LEVEL)"},
		},
		Commands: append(authCommands(), productCommands()...),
		// errors are printed once by run
		ExitErrHandler: func(*cli.Context, error) {},
		HideVersion:    true,
	}
}

func loadConfig(c *cli.Context) (*config.Config, error) {
	cfg, err := config.Load(c.String("env"))
	if err != nil {
		return nil, err
	}
	if v := c.String("api-url"); v != "" {
		cfg.APIURL = v
	}
	if v := c.String("store"); v != "" {
		cfg.Store = v
	}
	if v := c.String("data-dir"); v != "" {
		cfg.DataDir = v
	}
	if v := c.String("log-level"); v != "" {
		cfg.LogLevel = v
	}
	return cfg, cfg.Validate()
}

// withApp opens the configured client around fn and closes it afterwards.
func withApp(fn func(c *cli.Context, a *app.App) error) cli.ActionFunc {
	return func(c *cli.Context) error {
		cfg, err := loadConfig(c)
		if err != nil {
			return err
		}
		log, err := config.NewLogger(cfg.LogLevel)
		if err != nil {
			return err
		}
		defer func() { _ = log.Sync() }()

		a, err := app.Open(c.Context, cfg, log)
		if err != nil {
			return err
		}
		defer a.Close()
		return fn(c, a)
	}
}

func printJSON(w io.Writer, v any) error {
	enc := json.NewEncoder(w)
	enc.SetIndent("", "  ")
	return enc.Encode(v)
}

func versionCommand() *cli.Command {
	return &cli.Command{
		Name:  "version",
		Usage: "print version",
		Action: func(c *cli.Context) error {
			_, err := fmt.Fprintf(c.App.Writer, "grocery %s (%s)\n", version, buildDate)
			return err
		},
	}
}
