// Package elevate runs a reconciliation script with administrative
// privileges, prompting at most once per script.
//
// The script is prefixed with a marker echo. If the process fails before
// the marker reaches stdout the user (or policy) refused elevation; once
// the marker is out, any failure belongs to the script itself and its
// stderr is surfaced unchanged. Nothing is retried, and a started script
// is never interrupted: cancelling the caller's context does not reach it.
package elevate

import (
	"context"
	"fmt"
	"os"
	"strings"

	"github.com/mattn/go-isatty"

	"github.com/Grazulex/servermark/internal/config"
	"github.com/Grazulex/servermark/internal/errors"
	"github.com/Grazulex/servermark/internal/executor"
	"github.com/Grazulex/servermark/internal/logger"
	"github.com/Grazulex/servermark/internal/shell"
)

// Marker is echoed as the first command of every elevated script.
const Marker = "servermark-elevated"

// Runner executes scripts through the configured elevation helper.
type Runner struct {
	mode string
	exec executor.CommandExecutor

	// replaced in tests
	geteuid    func() int
	isTerminal func() bool
}

// New returns a Runner for mode (one of the config.Elevation* values).
func New(mode string, exec executor.CommandExecutor) *Runner {
	return &Runner{
		mode:    mode,
		exec:    exec,
		geteuid: os.Geteuid,
		isTerminal: func() bool {
			fd := os.Stdin.Fd()
			return isatty.IsTerminal(fd) || isatty.IsCygwinTerminal(fd)
		},
	}
}

// Mode resolves "auto" to the helper that will actually be used: none when
// already root, sudo on an interactive terminal, pkexec otherwise.
func (r *Runner) Mode() string {
	if r.mode != config.ElevationAuto && r.mode != "" {
		return r.mode
	}
	switch {
	case r.geteuid() == 0:
		return config.ElevationNone
	case r.isTerminal():
		return config.ElevationSudo
	default:
		return config.ElevationPkexec
	}
}

// Command returns the invocation used to run script.
func (r *Runner) Command(script string) executor.Command {
	args := []string{"bash", "-c", withMarker(script)}
	switch mode := r.Mode(); mode {
	case config.ElevationPkexec, config.ElevationSudo:
		return executor.Command{Name: mode, Args: args}
	default:
		return executor.Command{Name: args[0], Args: args[1:]}
	}
}

// Run executes script to completion and classifies failures as elevation
// denials or script failures. ctx carries values only: its cancellation
// does not reach the script.
func (r *Runner) Run(ctx context.Context, script string) error {
	cmd := r.Command(script)
	log := logger.With("helper", cmd.Name)
	log.Debug("running privileged script", "bytes", len(script))

	res, err := r.exec.Run(context.WithoutCancel(ctx), cmd)
	if err != nil {
		return errors.ElevationDenied("could not start "+cmd.Name, err)
	}
	if res.Success() {
		log.Debug("privileged script finished")
		return nil
	}

	cause := fmt.Errorf("exit status %d", res.ExitCode)
	if !strings.Contains(res.Stdout, Marker) {
		log.Warn("elevation refused", "exit", res.ExitCode)
		return errors.ElevationDenied(cmd.Name+" did not grant administrative privileges", cause)
	}
	log.Warn("privileged script failed", "exit", res.ExitCode)
	return errors.ScriptFailure(res.Stderr, cause)
}

// withMarker inserts the marker echo right after the script header.
func withMarker(script string) string {
	body := strings.TrimPrefix(script, shell.Header)
	return shell.Header + "echo " + Marker + "\n" + body
}
