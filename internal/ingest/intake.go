package ingest

import (
	"context"
	"io/fs"
	"log/slog"
	"path/filepath"
	"strings"

	"github.com/servibot/docindex/internal/watcher"
)

// UploadFunc receives a document discovered on disk and admits it to
// the engine. It owns assigning a file ID and copying into the upload
// area; intake only reports candidates.
type UploadFunc func(ctx context.Context, path string) error

// Intake feeds externally dropped documents into the system, either a
// one-shot directory walk or continuous watching.
type Intake struct {
	validator Validator
	upload    UploadFunc
}

// NewIntake builds an Intake that admits files through upload.
func NewIntake(validator Validator, upload UploadFunc) *Intake {
	return &Intake{validator: validator, upload: upload}
}

// IndexDir walks root and submits every admissible file. It returns
// the number of submitted files and the first walk error.
func (in *Intake) IndexDir(ctx context.Context, root string) (int, error) {
	submitted := 0
	err := filepath.WalkDir(root, func(path string, d fs.DirEntry, err error) error {
		if err != nil {
			return err
		}
		if ctx.Err() != nil {
			return ctx.Err()
		}
		if d.IsDir() {
			if path != root && strings.HasPrefix(d.Name(), ".") {
				return filepath.SkipDir
			}
			return nil
		}
		if strings.HasPrefix(d.Name(), ".") {
			return nil
		}
		if in.validator.CheckFile(path) != nil {
			return nil
		}
		if err := in.upload(ctx, path); err != nil {
			slog.Warn("failed to admit file", "path", path, "error", err)
			return nil
		}
		submitted++
		return nil
	})
	return submitted, err
}

// Watch runs a directory watcher until ctx is cancelled, admitting
// created and modified files as they settle.
func (in *Intake) Watch(ctx context.Context, root string, opts watcher.Options) error {
	opts.Extensions = in.validator.AllowedExtensions
	w, err := watcher.NewHybridWatcher(opts)
	if err != nil {
		return err
	}
	// Start runs the fsnotify loop until cancellation, so it gets its
	// own goroutine; the channel forwards its setup or exit error.
	startErr := make(chan error, 1)
	go func() {
		startErr <- w.Start(ctx, root)
	}()
	defer w.Stop()

	slog.Info("watching for documents", "dir", root, "backend", w.WatcherType())

	for {
		select {
		case <-ctx.Done():
			return ctx.Err()
		case err := <-startErr:
			return err
		case batch, ok := <-w.Events():
			if !ok {
				return nil
			}
			in.handleBatch(ctx, root, batch)
		case werr, ok := <-w.Errors():
			if !ok {
				return nil
			}
			slog.Warn("watcher error", "error", werr)
		}
	}
}

func (in *Intake) handleBatch(ctx context.Context, root string, batch []watcher.FileEvent) {
	for _, ev := range batch {
		if ev.IsDir {
			continue
		}
		if ev.Operation != watcher.OpCreate && ev.Operation != watcher.OpModify {
			continue
		}
		path := filepath.Join(root, ev.Path)
		if in.validator.CheckFile(path) != nil {
			continue
		}
		if err := in.upload(ctx, path); err != nil {
			slog.Warn("failed to admit watched file", "path", path, "error", err)
		}
	}
}
