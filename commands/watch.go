package commands

import (
	"context"
	"fmt"
	"log/slog"
	"os"
	"path/filepath"
	"sort"
	"strings"
	"sync"
	"time"

	"github.com/bmatcuk/doublestar/v4"
	"github.com/fsnotify/fsnotify"
	"github.com/spf13/cobra"
)

// doneSuffix marks keyword files that have already been run.
const doneSuffix = ".done"

func newWatchCmd(root *rootOptions) *cobra.Command {
	flags := &runFlags{}
	var (
		pattern  string
		debounce time.Duration
	)

	cmd := &cobra.Command{
		Use:   "watch <dir>",
		Short: "Watch a drop directory and run batches for keyword files",
		Long: `Watch a directory for keyword files. Files matching --pattern are
parsed like batch files once writes settle, run through the pipeline,
and renamed with a .done suffix. Files already in the directory are
processed on startup.`,
		Args: cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			if !doublestar.ValidatePattern(pattern) {
				return fmt.Errorf("invalid pattern %q", pattern)
			}

			ctx := cmd.Context()
			env, err := buildEnv(ctx, root)
			if err != nil {
				return err
			}
			defer env.Close()

			w := &dropWatcher{
				dir:      args[0],
				pattern:  pattern,
				debounce: debounce,
				logger:   env.Logger,
				pending:  make(map[string]struct{}),
				run: func(ctx context.Context, keywords []string) {
					items := env.Pipeline.RunBatch(ctx, keywords, flags.options())
					renderBatch(items)
				},
			}
			return w.watch(ctx)
		},
	}
	flags.register(cmd)
	cmd.Flags().StringVar(&pattern, "pattern", "*.txt", "glob for keyword files (doublestar syntax)")
	cmd.Flags().DurationVar(&debounce, "debounce", 2*time.Second, "settle time before a dropped file is processed")
	return cmd
}

// dropWatcher turns files dropped into a directory into batch runs.
// Events accumulate in pending and are flushed on a debounce tick, so a
// file being copied in is only read once its writes have settled.
type dropWatcher struct {
	dir      string
	pattern  string
	debounce time.Duration
	logger   *slog.Logger
	run      func(ctx context.Context, keywords []string)

	pendingMu sync.Mutex
	pending   map[string]struct{}
}

// watch blocks until the context is cancelled.
func (w *dropWatcher) watch(ctx context.Context) error {
	fsw, err := fsnotify.NewWatcher()
	if err != nil {
		return fmt.Errorf("create watcher: %w", err)
	}
	defer fsw.Close()

	if err := os.MkdirAll(w.dir, 0755); err != nil {
		return err
	}
	if err := fsw.Add(w.dir); err != nil {
		return fmt.Errorf("watch %s: %w", w.dir, err)
	}

	// Drain files already sitting in the directory.
	entries, err := os.ReadDir(w.dir)
	if err != nil {
		return err
	}
	for _, entry := range entries {
		if !entry.IsDir() {
			w.enqueue(filepath.Join(w.dir, entry.Name()))
		}
	}

	w.logger.Info("watching drop directory",
		"dir", w.dir,
		"pattern", w.pattern,
		"debounce", w.debounce)

	ticker := time.NewTicker(w.debounce)
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			return nil

		case event, ok := <-fsw.Events:
			if !ok {
				return nil
			}
			if event.Has(fsnotify.Create) || event.Has(fsnotify.Write) {
				w.enqueue(event.Name)
			}

		case err, ok := <-fsw.Errors:
			if !ok {
				return nil
			}
			w.logger.Error("watcher error", "error", err)

		case <-ticker.C:
			w.flush(ctx)
		}
	}
}

// enqueue marks a path pending if its name matches the pattern.
func (w *dropWatcher) enqueue(path string) {
	name := filepath.Base(path)
	if strings.HasSuffix(name, doneSuffix) {
		return
	}
	if ok, err := doublestar.Match(w.pattern, name); err != nil || !ok {
		return
	}

	w.pendingMu.Lock()
	w.pending[path] = struct{}{}
	w.pendingMu.Unlock()

	w.logger.Debug("keyword file queued", "file", name)
}

// flush processes accumulated files in name order.
func (w *dropWatcher) flush(ctx context.Context) {
	w.pendingMu.Lock()
	if len(w.pending) == 0 {
		w.pendingMu.Unlock()
		return
	}
	batch := make([]string, 0, len(w.pending))
	for path := range w.pending {
		batch = append(batch, path)
	}
	w.pending = make(map[string]struct{})
	w.pendingMu.Unlock()

	sort.Strings(batch)
	for _, path := range batch {
		select {
		case <-ctx.Done():
			return
		default:
		}
		w.process(ctx, path)
	}
}

// process runs one keyword file and renames it so a restart does not
// replay it. A file deleted between queue and flush is not an error.
func (w *dropWatcher) process(ctx context.Context, path string) {
	f, err := os.Open(path)
	if err != nil {
		if !os.IsNotExist(err) {
			w.logger.Warn("open keyword file", "file", path, "error", err)
		}
		return
	}
	keywords, err := readKeywords(f)
	f.Close()
	if err != nil {
		w.logger.Warn("read keyword file", "file", path, "error", err)
		return
	}

	if len(keywords) == 0 {
		w.logger.Warn("keyword file empty, skipping", "file", filepath.Base(path))
	} else {
		w.logger.Info("processing keyword file",
			"file", filepath.Base(path),
			"keywords", len(keywords))
		w.run(ctx, keywords)
	}

	if err := os.Rename(path, path+doneSuffix); err != nil {
		w.logger.Warn("mark keyword file done", "file", path, "error", err)
	}
}
