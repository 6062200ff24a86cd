package settings

import (
	"bytes"
	"context"
	"errors"
	"fmt"
	"os/exec"
	"strings"
	"time"

	"github.com/sirupsen/logrus"
)

const (
	// Maximum output size to prevent memory exhaustion.
	maxOutputSize = 10 * 1024
	// Maximum log output length for readability.
	maxLogLength = 200
)

// Output is the captured result of one lookup command.
type Output struct {
	Command  string
	Stdout   string
	Stderr   string
	ExitCode int
}

// RunFunc executes a lookup command.
type RunFunc func(ctx context.Context, command string) Output

// shellRunner executes a command and captures stdout/stderr separately.
// Commands come from sources.yaml, which is embedded at build time or supplied by the administrator.
// Bash restricted mode (-r) prevents cd, PATH changes, output redirection and running programs with / in the name.
func shellRunner(log logrus.FieldLogger) RunFunc {
	return func(ctx context.Context, command string) Output {
		start := time.Now()
		log.Debugf("Executing command: %s", command)

		cmd := exec.CommandContext(ctx, "bash", "-r", "-c", command)

		var stdoutBuf, stderrBuf bytes.Buffer
		cmd.Stdout = &stdoutBuf
		cmd.Stderr = &stderrBuf

		err := cmd.Run()
		duration := time.Since(start)

		stdout := limitOutput(stdoutBuf.Bytes(), maxOutputSize)
		stderr := limitOutput(stderrBuf.Bytes(), maxOutputSize)

		exitCode := 0
		if err != nil {
			var exitErr *exec.ExitError
			if errors.As(err, &exitErr) && exitErr.ExitCode() >= 0 {
				exitCode = exitErr.ExitCode()
			} else {
				exitCode = -1
				stderr += fmt.Sprintf("\nCommand error: %v", err)
			}
		}

		if trimmed := strings.TrimSpace(stderr); trimmed != "" {
			log.Infof("stderr (%d bytes): %s", len(stderr), truncate(trimmed))
		}
		log.Debugf("Command completed in %v (exit: %d, stdout: %d bytes, stderr: %d bytes): %s",
			duration, exitCode, len(stdout), len(stderr), command)

		return Output{
			Command:  command,
			Stdout:   stdout,
			Stderr:   stderr,
			ExitCode: exitCode,
		}
	}
}

// limitOutput truncates output if it exceeds maxSize.
func limitOutput(data []byte, maxSize int) string {
	if len(data) > maxSize {
		return string(data[:maxSize]) + "\n[Output truncated to 10KB]..."
	}
	return string(data)
}

func truncate(s string) string {
	if len(s) > maxLogLength {
		return s[:maxLogLength] + "..."
	}
	return s
}
