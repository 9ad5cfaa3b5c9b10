//go:build !unix

package main

import "os"

// Without dup2 only writes that go through os.Stdout and os.Stderr are
// captured; runtime panics still reach the original stderr.
func redirectStdIO(path string) error {
	f, err := openStdioLog(path)
	if err != nil || f == nil {
		return err
	}
	os.Stdout, os.Stderr = f, f
	return nil
}
