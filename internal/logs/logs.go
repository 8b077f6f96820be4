// Package logs prints and follows web server log files.
package logs

import (
	"bufio"
	"context"
	"fmt"
	"io"
	"os"
	"path/filepath"
	"sync"

	"github.com/hpcloud/tail"
)

// Options selects what Show prints.
type Options struct {
	Paths  []string
	Lines  int  // last N lines of each file
	Follow bool // keep printing new lines until ctx ends
}

// Last returns the final n lines of the file at path.
func Last(path string, n int) ([]string, error) {
	f, err := os.Open(path)
	if err != nil {
		return nil, err
	}
	defer f.Close()

	if n <= 0 {
		return []string{}, nil
	}
	ring := make([]string, 0, n)
	scanner := bufio.NewScanner(f)
	scanner.Buffer(make([]byte, 64*1024), 1024*1024)
	for scanner.Scan() {
		if len(ring) == n {
			copy(ring, ring[1:])
			ring = ring[:n-1]
		}
		ring = append(ring, scanner.Text())
	}
	return ring, scanner.Err()
}

// Show writes the tail of every file to w, then optionally follows them.
// With several files each line is prefixed by the file's base name.
func Show(ctx context.Context, opts Options, w io.Writer) error {
	if len(opts.Paths) == 0 {
		return fmt.Errorf("no log files to show")
	}
	out := &lineWriter{w: w, prefixed: len(opts.Paths) > 1}

	for _, path := range opts.Paths {
		lines, err := Last(path, opts.Lines)
		if err != nil {
			return err
		}
		for _, line := range lines {
			out.write(path, line)
		}
	}
	if !opts.Follow {
		return nil
	}

	errs := make(chan error, len(opts.Paths))
	var wg sync.WaitGroup
	for _, path := range opts.Paths {
		wg.Add(1)
		go func(path string) {
			defer wg.Done()
			errs <- Follow(ctx, path, func(line string) { out.write(path, line) })
		}(path)
	}
	wg.Wait()
	close(errs)
	for err := range errs {
		if err != nil {
			return err
		}
	}
	return nil
}

// Follow calls fn for each line appended to path until ctx ends. Rotated
// files are reopened.
func Follow(ctx context.Context, path string, fn func(string)) error {
	t, err := tail.TailFile(path, tail.Config{
		Follow: true,
		ReOpen: true,
		Poll:   true,
		Logger: tail.DiscardingLogger,
		Location: &tail.SeekInfo{
			Offset: 0,
			Whence: io.SeekEnd,
		},
	})
	if err != nil {
		return fmt.Errorf("failed to tail %s: %w", path, err)
	}
	defer t.Cleanup()

	for {
		select {
		case <-ctx.Done():
			t.Stop()
			return nil
		case line, ok := <-t.Lines:
			if !ok {
				return t.Err()
			}
			if line.Err != nil {
				return line.Err
			}
			fn(line.Text)
		}
	}
}

type lineWriter struct {
	mu       sync.Mutex
	w        io.Writer
	prefixed bool
}

func (lw *lineWriter) write(path, line string) {
	lw.mu.Lock()
	defer lw.mu.Unlock()
	if lw.prefixed {
		fmt.Fprintf(lw.w, "%s | %s\n", filepath.Base(path), line)
		return
	}
	fmt.Fprintln(lw.w, line)
}
