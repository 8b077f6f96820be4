package cli

import (
	"context"
	"fmt"
	"os"

	"github.com/Grazulex/servermark/internal/config"
	"github.com/Grazulex/servermark/internal/driver"
	"github.com/Grazulex/servermark/internal/errors"
	"github.com/Grazulex/servermark/internal/input"
	"github.com/Grazulex/servermark/internal/output"
	"github.com/Grazulex/servermark/internal/reconcile"
	"github.com/Grazulex/servermark/internal/site"
	"github.com/spf13/cobra"
)

// app is what a command needs once config is loaded.
type app struct {
	cfg     *config.Config
	drivers driver.Set
	svc     *reconcile.Service
}

// loadApp loads config and wires the drivers and the reconcile service
func loadApp() (*app, error) {
	cfg, err := deps.ConfigLoader.Load()
	if err != nil {
		return nil, fmt.Errorf("failed to load config: %w", err)
	}
	dir, err := deps.ConfigLoader.StateDir()
	if err != nil {
		return nil, err
	}

	drivers := deps.DriverFactory.Create(cfg.Paths)
	svc, err := deps.ServiceFactory.Create(cfg, drivers, dir)
	if err != nil {
		return nil, err
	}
	return &app{cfg: cfg, drivers: drivers, svc: svc}, nil
}

// commandContext returns the command's context, or Background when the
// command was not started through Execute.
func commandContext(cmd *cobra.Command) context.Context {
	if cmd != nil && cmd.Context() != nil {
		return cmd.Context()
	}
	return context.Background()
}

// outputResult handles JSON or human-readable output
func outputResult(data interface{}, successMsg string, args ...interface{}) error {
	if jsonOutput {
		return output.JSON(data)
	}
	output.Success(successMsg, args...)
	return nil
}

// confirm asks a yes/no question on the configured reader.
func confirm(format string, args ...interface{}) bool {
	return input.Confirm(deps.StdinReader, os.Stdout, fmt.Sprintf(format, args...))
}

// printHint explains what to do after a failed command.
func printHint(err error) {
	if jsonOutput {
		return
	}
	switch errors.KindOf(err) {
	case errors.KindScriptFailure:
		output.Info("The registry was saved. Fix the problem above, then run 'servermark sync'.")
	case errors.KindElevationDenied:
		output.Info("Administrative privileges are needed to change the web server configuration.")
	}
}

// CommandResult represents a common result structure for CLI commands
type CommandResult struct {
	Success bool       `json:"success"`
	Action  string     `json:"action"`
	Site    *site.Site `json:"site,omitempty"`
	Message string     `json:"message,omitempty"`
}

// newSuccessResult creates a success result
func newSuccessResult(action string, s *site.Site) CommandResult {
	return CommandResult{
		Success: true,
		Action:  action,
		Site:    s,
	}
}

// yesNo renders a flag for tables.
func yesNo(b bool) string {
	if b {
		return "yes"
	}
	return "no"
}
