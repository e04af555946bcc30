// Package loader keeps the course table in step with a course file.
package loader

import (
	"context"
	"fmt"
	"os"
	"path/filepath"
	"strings"

	"go.uber.org/zap"

	"coursebook/internal/service"
	"coursebook/internal/watcher"
)

// FormatFromPath picks the codec format from a file extension.
// Anything that is not .yaml or .yml is read as JSON.
func FormatFromPath(path string) string {
	switch strings.ToLower(filepath.Ext(path)) {
	case ".yaml", ".yml":
		return "yaml"
	default:
		return "json"
	}
}

// Loader replaces every course with the contents of a file
type Loader struct {
	path string
	svc  *service.CourseService
	log  *zap.Logger
}

// New creates a loader for path
func New(path string, svc *service.CourseService, log *zap.Logger) *Loader {
	if log == nil {
		log = zap.NewNop()
	}
	return &Loader{path: path, svc: svc, log: log}
}

// Load reads the file and replaces the stored courses with it
func (l *Loader) Load(ctx context.Context) (*service.ImportResult, error) {
	f, err := os.Open(l.path)
	if err != nil {
		return nil, fmt.Errorf("open %s: %w", l.path, err)
	}
	defer f.Close()

	result, err := l.svc.Import(ctx, FormatFromPath(l.path), f, service.StrategyReplace)
	if err != nil {
		return nil, fmt.Errorf("load %s: %w", l.path, err)
	}

	l.log.Info("loaded course file",
		zap.String("path", l.path),
		zap.Int("courses", result.Created))
	return result, nil
}

// Watch reloads the file after every change until ctx ends. A file that
// fails to load is logged and the stored courses are left as the failed
// load found them.
func (l *Loader) Watch(ctx context.Context) error {
	w := watcher.New(l.path, func() {
		if _, err := l.Load(ctx); err != nil {
			l.log.Error("failed to reload course file", zap.Error(err))
		}
	}, l.log)
	return w.Watch(ctx)
}

// Sync loads the file once, then keeps watching it in the background.
// A failed first load is returned directly. Otherwise the returned channel
// receives the watch result once ctx ends or the watch fails.
func (l *Loader) Sync(ctx context.Context) (<-chan error, error) {
	if _, err := l.Load(ctx); err != nil {
		return nil, err
	}

	done := make(chan error, 1)
	go func() {
		done <- l.Watch(ctx)
	}()
	return done, nil
}
