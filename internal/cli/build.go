package cli

import (
	"context"
	"fmt"
	"log/slog"
	"os"
	"path/filepath"
	"time"

	"github.com/fsnotify/fsnotify"
	"github.com/spf13/cobra"

	"github.com/dgallion1/notemark/internal/config"
	"github.com/dgallion1/notemark/internal/pipeline"
	"github.com/dgallion1/notemark/internal/source"
)

var buildCmd = &cobra.Command{
	Use:   "build [file...]",
	Short: "Convert documents to HTML pages",
	Long: `Converts each file to a standalone HTML page written next to it (or
into --out). Files are converted concurrently. With --watch, notemark keeps
running and rebuilds a file whenever it changes.`,
	Args: cobra.MinimumNArgs(1),
	RunE: runBuild,
}

var (
	buildOut     string
	buildWorkers int
	buildWatch   bool
)

func init() {
	buildCmd.Flags().StringVarP(&buildOut, "out", "o", "", "Output directory (default: next to each source file)")
	buildCmd.Flags().IntVarP(&buildWorkers, "workers", "w", 4, "Number of concurrent conversions")
	buildCmd.Flags().BoolVar(&buildWatch, "watch", false, "Rebuild files when they change")

	rootCmd.AddCommand(buildCmd)
}

// builder converts files through an orchestrator.
type builder struct {
	orch *pipeline.Orchestrator
	out  string
	log  *slog.Logger
}

func runBuild(cmd *cobra.Command, args []string) error {
	if buildWorkers < 1 {
		return fmt.Errorf("--workers must be at least 1")
	}
	for _, path := range args {
		if !source.IsSupportedExtension(path) {
			return fmt.Errorf("%s: unsupported file type %q", path, filepath.Ext(path))
		}
	}
	if buildOut != "" {
		if err := os.MkdirAll(buildOut, 0o755); err != nil {
			return err
		}
	}

	log := logger(cmd)
	stats := pipeline.NewRenderStats(time.Hour)
	conv, err := newConverter(stats)
	if err != nil {
		return err
	}
	cfg := config.Config{
		WorkerCount:          buildWorkers,
		MaxQueueSize:         len(args) + 16,
		JobTTL:               time.Hour,
		PDFFallbackPdftotext: pdfFallback,
	}
	orch := pipeline.NewOrchestrator(cfg, conv, stats, log)

	ctx, cancel := context.WithCancel(cmd.Context())
	defer cancel()
	orch.Start(ctx)
	defer orch.Stop()

	b := &builder{orch: orch, out: buildOut, log: log}
	failed := b.build(ctx, cmd, args)

	if !buildWatch {
		s := orch.Stats()
		log.Info("build finished", "files", len(args), "failed", failed, "blocks", s.Blocks, "p50_ms", s.P50Ms)
		if failed > 0 {
			return fmt.Errorf("%d of %d files failed", failed, len(args))
		}
		return nil
	}
	return b.watch(ctx, cmd, args)
}

// outputPath returns where the page for path is written.
func (b *builder) outputPath(path string) string {
	out := source.OutputName(path)
	if b.out != "" {
		out = filepath.Join(b.out, filepath.Base(out))
	}
	return out
}

// build converts paths and returns the number of failures.
func (b *builder) build(ctx context.Context, cmd *cobra.Command, paths []string) int {
	jobs := make([]*pipeline.Job, 0, len(paths))
	failed := 0
	for _, path := range paths {
		data, err := os.ReadFile(path)
		if err != nil {
			cmd.PrintErrf("%s: %v\n", path, err)
			failed++
			continue
		}
		job := pipeline.NewJob(path, data)
		job.OutputPath = b.outputPath(path)
		if err := b.orch.Submit(job); err != nil {
			cmd.PrintErrf("%s: %v\n", path, err)
			failed++
			continue
		}
		jobs = append(jobs, job)
	}

	for _, job := range jobs {
		if err := job.Wait(ctx); err != nil {
			cmd.PrintErrf("%s: %v\n", job.Filename, err)
			failed++
			continue
		}
		snap := job.Snapshot()
		if snap.Status != pipeline.StatusCompleted {
			for _, e := range snap.Progress.Errors {
				cmd.PrintErrf("%s: %s\n", job.Filename, e)
			}
			failed++
			continue
		}
		fmt.Fprintf(cmd.OutOrStdout(), "%s -> %s (%d blocks, %d numbered)\n", job.Filename, snap.OutputPath, snap.Progress.Blocks, snap.Progress.Numbered)
	}
	return failed
}

// watch rebuilds paths on change until ctx is done.
func (b *builder) watch(ctx context.Context, cmd *cobra.Command, paths []string) error {
	watcher, err := fsnotify.NewWatcher()
	if err != nil {
		return fmt.Errorf("create watcher: %w", err)
	}
	defer watcher.Close()

	// Editors often replace files on save, so watch directories.
	tracked := make(map[string]bool, len(paths))
	dirs := make(map[string]bool)
	for _, path := range paths {
		abs, err := filepath.Abs(path)
		if err != nil {
			return err
		}
		tracked[abs] = true
		dirs[filepath.Dir(abs)] = true
	}
	for dir := range dirs {
		if err := watcher.Add(dir); err != nil {
			return fmt.Errorf("watch %s: %w", dir, err)
		}
	}
	b.log.Info("watching for changes", "files", len(tracked))

	for {
		select {
		case <-ctx.Done():
			return nil
		case event, ok := <-watcher.Events:
			if !ok {
				return nil
			}
			if path, ok := changedFile(event, tracked); ok {
				b.log.Debug("file changed", "path", path, "op", event.Op.String())
				b.build(ctx, cmd, []string{path})
			}
		case err, ok := <-watcher.Errors:
			if !ok {
				return nil
			}
			b.log.Warn("watcher error", "error", err)
		}
	}
}

// changedFile reports whether event rewrote one of the tracked files.
func changedFile(event fsnotify.Event, tracked map[string]bool) (string, bool) {
	if !event.Has(fsnotify.Write) && !event.Has(fsnotify.Create) {
		return "", false
	}
	abs, err := filepath.Abs(event.Name)
	if err != nil || !tracked[abs] {
		return "", false
	}
	return abs, true
}
