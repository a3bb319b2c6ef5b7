// Package hooks runs the pre_commit_hook and post_commit_hook scripts.
package hooks

import (
	"bufio"
	"context"
	"fmt"
	"io"
	"os"
	"path/filepath"
	"sync"

	"github.com/datawire/dlib/dexec"
	"github.com/datawire/dlib/dlog"
)

// Run executes the hook script at path with BUMPVER_OLD_VERSION and
// BUMPVER_NEW_VERSION in its environment, logging its output line by line.
func Run(ctx context.Context, path, oldVersion, newVersion string) error {
	absPath, err := filepath.Abs(path)
	if err != nil {
		return err
	}

	cmd := dexec.CommandContext(ctx, absPath)
	cmd.Env = append(os.Environ(),
		"BUMPVER_OLD_VERSION="+oldVersion,
		"BUMPVER_NEW_VERSION="+newVersion,
	)

	stdout, err := cmd.StdoutPipe()
	if err != nil {
		return err
	}
	stderr, err := cmd.StderrPipe()
	if err != nil {
		return err
	}

	if err := cmd.Start(); err != nil {
		return fmt.Errorf("hook %s: %w", path, err)
	}

	var wg sync.WaitGroup
	logLines := func(r io.Reader, logLine func(ctx context.Context, format string, args ...interface{})) {
		defer wg.Done()
		scanner := bufio.NewScanner(r)
		for scanner.Scan() {
			logLine(ctx, "\t%s", scanner.Text())
		}
	}
	wg.Add(2)
	go logLines(stdout, dlog.Infof)
	go logLines(stderr, dlog.Errorf)
	wg.Wait()

	if err := cmd.Wait(); err != nil {
		return fmt.Errorf("hook %s: %w", path, err)
	}
	return nil
}
