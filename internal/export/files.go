package export

import (
	"context"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"os"
	"path/filepath"
	"runtime"
	"strings"
	"sync"

	"github.com/jchantrell/bfstool/internal/bfs"
	"github.com/woozymasta/pathrules"
)

// copyBufferSize is the per-worker buffer used to copy file contents to disk
const copyBufferSize = 64 * 1024

// ErrUnsafePath is returned for archive paths that would escape the output directory
var ErrUnsafePath = errors.New("unsafe extraction path")

// Options configures an Exporter
type Options struct {
	// Workers is the number of files extracted concurrently. Defaults to GOMAXPROCS
	Workers int
	// Include and Exclude are gitignore-style patterns. When Include is empty every
	// file is selected unless excluded
	Include []string
	Exclude []string
}

// Entry is one file selected for extraction
type Entry struct {
	// Path is the archive path without a leading slash
	Path string
	Info bfs.FileInfo
}

// ProgressCallback is called after each extracted file. It may be called from
// several goroutines at once
type ProgressCallback func(path string, written int64)

// Exporter writes archive files below an output directory
type Exporter struct {
	archive   *bfs.Archive
	outputDir string
	workers   int
	matcher   *pathrules.Matcher
}

// NewExporter creates an exporter for archive
func NewExporter(archive *bfs.Archive, outputDir string, opts Options) (*Exporter, error) {
	workers := opts.Workers
	if workers <= 0 {
		workers = runtime.GOMAXPROCS(0)
	}

	matcher, err := newMatcher(opts.Include, opts.Exclude)
	if err != nil {
		return nil, err
	}

	return &Exporter{
		archive:   archive,
		outputDir: outputDir,
		workers:   workers,
		matcher:   matcher,
	}, nil
}

// newMatcher compiles include and exclude patterns; later rules win
func newMatcher(include, exclude []string) (*pathrules.Matcher, error) {
	rules := make([]pathrules.Rule, 0, len(include)+len(exclude))
	for _, pattern := range include {
		if pattern = strings.TrimSpace(pattern); pattern != "" {
			rules = append(rules, pathrules.Rule{Action: pathrules.ActionInclude, Pattern: pattern})
		}
	}

	defaultAction := pathrules.ActionInclude
	if len(rules) > 0 {
		defaultAction = pathrules.ActionExclude
	}

	for _, pattern := range exclude {
		if pattern = strings.TrimSpace(pattern); pattern != "" {
			rules = append(rules, pathrules.Rule{Action: pathrules.ActionExclude, Pattern: pattern})
		}
	}

	if len(rules) == 0 {
		return nil, nil
	}

	matcher, err := pathrules.NewMatcher(rules, pathrules.MatcherOptions{
		CaseInsensitive: true,
		DefaultAction:   defaultAction,
	})
	if err != nil {
		return nil, fmt.Errorf("compile path rules: %w", err)
	}

	return matcher, nil
}

// Select returns the files under prefix that pass the include and exclude rules, in
// archive walk order. An empty prefix selects the whole archive
func (e *Exporter) Select(prefix string) ([]Entry, error) {
	prefix = strings.Trim(prefix, "/")

	var entries []Entry
	err := e.archive.Walk(func(path string, fi bfs.FileInfo) error {
		if prefix != "" && path != prefix && !strings.HasPrefix(path, prefix+"/") {
			return nil
		}
		if e.matcher != nil && !e.matcher.Included(path, false) {
			return nil
		}

		entries = append(entries, Entry{Path: path, Info: fi})
		return nil
	})
	if err != nil {
		return nil, err
	}

	return entries, nil
}

// ExportFiles extracts entries using a pool of workers, each with its own archive
// file handle. It stops at the first failure and returns that error
func (e *Exporter) ExportFiles(ctx context.Context, entries []Entry, progressCallback ProgressCallback) error {
	if len(entries) == 0 {
		return nil
	}

	root, err := filepath.Abs(e.outputDir)
	if err != nil {
		return fmt.Errorf("resolving output directory: %w", err)
	}

	targets := make([]string, len(entries))
	for i, entry := range entries {
		if targets[i], err = outputPath(root, entry.Path); err != nil {
			return err
		}
	}

	if err := createDirs(root, targets); err != nil {
		return err
	}

	ctx, cancel := context.WithCancel(ctx)
	defer cancel()

	tasks := make(chan int)
	var (
		wg       sync.WaitGroup
		errOnce  sync.Once
		firstErr error
	)
	fail := func(err error) {
		errOnce.Do(func() {
			firstErr = err
			cancel()
		})
	}

	for range min(e.workers, len(entries)) {
		wg.Add(1)
		go func() {
			defer wg.Done()

			buf := make([]byte, copyBufferSize)
			for i := range tasks {
				written, err := e.exportFile(entries[i].Path, targets[i], buf)
				if err != nil {
					fail(err)
					return
				}

				slog.Debug("Extracted file", "path", entries[i].Path, "output", targets[i], "bytes", written)
				if progressCallback != nil {
					progressCallback(entries[i].Path, written)
				}
			}
		}()
	}

feed:
	for i := range entries {
		select {
		case <-ctx.Done():
			break feed
		case tasks <- i:
		}
	}
	close(tasks)
	wg.Wait()

	if firstErr != nil {
		return firstErr
	}

	return ctx.Err()
}

// exportFile copies one archive file to target
func (e *Exporter) exportFile(path, target string, buf []byte) (int64, error) {
	f, err := e.archive.OpenFile(path)
	if err != nil {
		return 0, err
	}
	defer f.Close()

	out, err := os.OpenFile(target, os.O_WRONLY|os.O_CREATE|os.O_TRUNC, 0o644)
	if err != nil {
		return 0, fmt.Errorf("creating %s: %w", target, err)
	}

	written, err := io.CopyBuffer(out, f, buf)
	closeErr := out.Close()
	if err != nil {
		return written, fmt.Errorf("extracting %s: %w", path, err)
	}
	if closeErr != nil {
		return written, fmt.Errorf("closing %s: %w", target, closeErr)
	}

	if written != f.Size() {
		return written, fmt.Errorf("extracting %s: wrote %d of %d bytes", path, written, f.Size())
	}

	return written, nil
}

// outputPath maps an archive path below root, rejecting anything that is not a plain
// relative path
func outputPath(root, archivePath string) (string, error) {
	if strings.ContainsAny(archivePath, "\\\x00") {
		return "", fmt.Errorf("%w: %q", ErrUnsafePath, archivePath)
	}

	rel := filepath.FromSlash(archivePath)
	if !filepath.IsLocal(rel) {
		return "", fmt.Errorf("%w: %q", ErrUnsafePath, archivePath)
	}

	return filepath.Join(root, rel), nil
}

// createDirs creates every distinct parent directory of targets
func createDirs(root string, targets []string) error {
	seen := map[string]struct{}{root: {}}
	if err := os.MkdirAll(root, 0o755); err != nil {
		return fmt.Errorf("creating output directory: %w", err)
	}

	for _, target := range targets {
		dir := filepath.Dir(target)
		if _, ok := seen[dir]; ok {
			continue
		}

		seen[dir] = struct{}{}
		if err := os.MkdirAll(dir, 0o755); err != nil {
			return fmt.Errorf("creating directory %s: %w", dir, err)
		}
	}

	return nil
}
