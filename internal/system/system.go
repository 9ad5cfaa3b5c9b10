package system

import (
	"bytes"
	"context"
	"fmt"
	"os/exec"
	"runtime"
)

type logger interface {
	Infof(string, string, ...interface{})
	Errorf(string, string, ...interface{})
}

type Runner interface {
	Run(ctx context.Context, cmd string, args ...string) (stdout, stderr string, err error)
}

// ExecRunner executes commands directly, resolving them through PATH.
// It returns stdout, stderr, and an error if the command exits non-zero.
type ExecRunner struct{}

func (ExecRunner) Run(ctx context.Context, cmd string, args ...string) (string, string, error) {
	c := exec.CommandContext(ctx, cmd, args...)
	var outBuf, errBuf bytes.Buffer
	c.Stdout = &outBuf
	c.Stderr = &errBuf
	err := c.Run()
	if err != nil {
		// Include exit status if available
		if exitErr, ok := err.(*exec.ExitError); ok {
			return outBuf.String(), errBuf.String(), fmt.Errorf("exit %d: %w", exitErr.ExitCode(), err)
		}
		return outBuf.String(), errBuf.String(), err
	}
	return outBuf.String(), errBuf.String(), nil
}

// openCommand returns the desktop opener for goos.
func openCommand(goos string) (string, []string) {
	switch goos {
	case "darwin":
		return "open", nil
	case "windows":
		return "rundll32", []string{"url.dll,FileProtocolHandler"}
	default:
		return "xdg-open", nil
	}
}

// OpenBrowser opens url in the user's default browser.
func OpenBrowser(ctx context.Context, r Runner, url string) error {
	cmd, args := openCommand(runtime.GOOS)
	_, stderr, err := r.Run(ctx, cmd, append(args, url)...)
	if err != nil {
		return fmt.Errorf("%s %s failed: %v: %s", cmd, url, err, stderr)
	}
	return nil
}
