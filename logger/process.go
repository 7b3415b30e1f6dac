package logger

import (
	"bufio"
	"bytes"
	"context"
	"errors"
	"fmt"
	"io"
	"os/exec"
	"strings"

	"github.com/rs/zerolog"
)

// Process describes an external command whose stderr is forwarded to the log.
type Process struct {
	Executable string
	Args       []string
	Dir        string
	Stdin      io.Reader
}

// Run executes the process and returns its stdout. Every stderr line of the
// child is logged at debug level; a non zero exit code is returned as an
// error carrying the last stderr lines.
func (p Process) Run(ctx context.Context, log zerolog.Logger) ([]byte, error) {
	cmd := exec.CommandContext(ctx, p.Executable, p.Args...)
	cmd.Dir = p.Dir
	cmd.Stdin = p.Stdin

	var stdout bytes.Buffer
	cmd.Stdout = &stdout

	r, err := cmd.StderrPipe()
	if err != nil {
		return nil, fmt.Errorf("could not create pipe for %s: %w", p.Executable, err)
	}

	if err = cmd.Start(); err != nil {
		return nil, fmt.Errorf("could not launch %s: %w", p.Executable, err)
	}

	procLogger := log.With().Str("executable", p.Executable).Logger()
	tail := collectLogs(r, procLogger)

	err = cmd.Wait()
	if err == nil {
		return stdout.Bytes(), nil
	}

	var exitErr *exec.ExitError
	if errors.As(err, &exitErr) {
		procLogger.Error().
			Int("exit_code", exitErr.ExitCode()).
			Msg("Process exited with error")
		return nil, fmt.Errorf("%s exited with code %d: %s", p.Executable, exitErr.ExitCode(), tail)
	}
	return nil, err
}

const stderrTailLines = 5

func collectLogs(r io.Reader, log zerolog.Logger) string {
	scanner := bufio.NewScanner(r)
	lines := make([]string, 0, stderrTailLines)
	for scanner.Scan() {
		line := scanner.Text()
		if len(line) == 0 {
			continue
		}
		log.Debug().Msg(line)
		if len(lines) == stderrTailLines {
			lines = lines[1:]
		}
		lines = append(lines, line)
	}
	if err := scanner.Err(); err != nil {
		log.Err(err).Msg("Error scanning process stderr")
	}
	return strings.Join(lines, "\n")
}
