// SPDX-License-Identifier: MPL-2.0

package lifecycle

import (
	"context"
	"errors"
	"sync"

	"tsforge/internal/manifest"
	"tsforge/internal/plan"
	"tsforge/internal/watch"
)

// Dev reverts every package in pkgDirs to development shape. All packages
// are processed even when some fail; the failures come back joined. With
// watchMode set, Dev then keeps watching each package and re-reverts on
// every source or manifest change, relying on the byte-compare write skip
// to make the self-triggered follow-up event converge.
func (m *Manager) Dev(ctx context.Context, pkgDirs []string, watchMode bool) error {
	var errs []error
	for _, dir := range pkgDirs {
		if err := m.ToDev(dir); err != nil {
			m.Logger.Error("could not revert package", "pkg", dir, "error", err)
			errs = append(errs, err)
		}
	}
	if len(errs) > 0 {
		return errors.Join(errs...)
	}
	if !watchMode {
		return nil
	}
	return m.watchDev(ctx, pkgDirs)
}

// watchDev runs one immediate-mode watcher per package until ctx is
// cancelled. Each event re-runs the dev revert for its package.
func (m *Manager) watchDev(ctx context.Context, pkgDirs []string) error {
	watchers := make([]*watch.Watcher, 0, len(pkgDirs))
	for _, dir := range pkgDirs {
		pkgDir := dir
		w, err := watch.New(watch.Config{
			BaseDir:  pkgDir,
			Patterns: []string{"src/**", "package.json"},
			Stderr:   m.Stderr,
			OnChange: func(_ context.Context, changed []string) error {
				m.Logger.Info("change detected", "pkg", pkgDir, "paths", changed)
				return m.ToDev(pkgDir)
			},
		})
		if err != nil {
			return err
		}
		watchers = append(watchers, w)
	}

	var (
		wg   sync.WaitGroup
		mu   sync.Mutex
		errs []error
	)
	for _, w := range watchers {
		wg.Add(1)
		go func(w *watch.Watcher) {
			defer wg.Done()
			if err := w.Run(ctx); err != nil {
				mu.Lock()
				errs = append(errs, err)
				mu.Unlock()
			}
		}(w)
	}
	wg.Wait()
	return errors.Join(errs...)
}

// BuildWatch builds the package, then rebuilds on every coalesced batch of
// source changes until ctx is cancelled. The watch set excludes the build
// output directories and the manifest itself so a finished build never
// retriggers the next one.
func (m *Manager) BuildWatch(ctx context.Context, pkgDir string) error {
	if err := m.Build(ctx, pkgDir); err != nil {
		m.Logger.Error("initial build failed, watching for changes", "pkg", pkgDir, "error", err)
	}

	ignore, err := outputIgnores(pkgDir)
	if err != nil {
		return err
	}
	debounce := m.WatchDebounce
	if debounce <= 0 {
		debounce = watch.DefaultDebounce
	}
	w, err := watch.New(watch.Config{
		BaseDir:  pkgDir,
		Patterns: []string{"src/**", "tsconfig*.json"},
		Ignore:   ignore,
		Coalesce: true,
		Debounce: debounce,
		Stderr:   m.Stderr,
		OnChange: func(cctx context.Context, changed []string) error {
			m.Logger.Info("rebuilding", "pkg", pkgDir, "paths", changed)
			return m.Build(cctx, pkgDir)
		},
	})
	if err != nil {
		return err
	}
	return w.Run(ctx)
}

// outputIgnores lists the package's build output directories as glob
// patterns, when the manifest can be read at all.
func outputIgnores(pkgDir string) ([]string, error) {
	doc, err := manifest.Load(pkgDir)
	if err != nil {
		return nil, err
	}
	pkg, err := manifest.Parse(doc)
	if err != nil {
		return nil, err
	}
	buildPlan, err := plan.Derive(pkg)
	if err != nil {
		return nil, err
	}
	dirs := buildPlan.OutDirs()
	patterns := make([]string, 0, len(dirs))
	for _, dir := range dirs {
		patterns = append(patterns, dir+"/**")
	}
	return patterns, nil
}
