// SPDX-License-Identifier: MPL-2.0

// Package lifecycle orchestrates the clean/build/publish sequencing around
// the manifest transformer. The invariant it maintains: the manifest rests
// in development shape, and only a fully successful build may leave it in
// production shape. Any failure on the way triggers a compensating revert to
// development shape before the error propagates.
package lifecycle

import (
	"context"
	"fmt"
	"io"
	"os"
	"path/filepath"
	"time"

	"github.com/charmbracelet/log"

	"tsforge/internal/classify"
	"tsforge/internal/gitignore"
	"tsforge/internal/issue"
	"tsforge/internal/manifest"
	"tsforge/internal/plan"
	"tsforge/internal/proxy"
	"tsforge/internal/registry"
	"tsforge/internal/toolchain"
	"tsforge/internal/transform"
)

// State names one phase of the artifact lifecycle, for logging.
type State string

const (
	// StateDev is the resting state: manifest in development shape.
	StateDev State = "dev"
	// StateCleaning covers build-output removal.
	StateCleaning State = "cleaning"
	// StateBuilding covers compilation and finalization.
	StateBuilding State = "building"
	// StateProd is reached only at the end of a fully successful build.
	StateProd State = "prod"
)

// typesConfigCandidates are checked in order; the first existing file
// configures declaration compilation.
var typesConfigCandidates = []string{"tsconfig.build.json", "tsconfig.json"}

// buildInfoFile is the type compiler's incremental cache, removed before
// every declaration run.
const buildInfoFile = "tsconfig.tsbuildinfo"

type (
	// Manager runs lifecycle operations for one package directory at a time.
	Manager struct {
		Bundler toolchain.Bundler
		Types   toolchain.TypeCompiler
		Logger  *log.Logger
		Stdout  io.Writer
		Stderr  io.Writer

		// RegistryOptions are applied to the staging registry client on top
		// of the defaults.
		RegistryOptions []registry.Option

		// WatchDebounce is the coalescing window for rebuild watchers. Zero
		// falls back to the watcher default.
		WatchDebounce time.Duration
	}

	// PublishOptions configures a staging publish. Registry settings are
	// passed explicitly rather than through process environment.
	PublishOptions struct {
		PkgDir      string
		RegistryURL string
		Port        int
	}
)

// New creates a Manager with the standard streams and the virtual shell
// runner behind the default bundler and type compiler.
func New(logger *log.Logger) *Manager {
	runner := toolchain.VirtualRunner{}
	return &Manager{
		Bundler: &toolchain.TsupBundler{Runner: runner, Stdout: os.Stdout, Stderr: os.Stderr},
		Types:   &toolchain.TscCompiler{Runner: runner, Stdout: os.Stdout, Stderr: os.Stderr},
		Logger:  logger,
		Stdout:  os.Stdout,
		Stderr:  os.Stderr,
	}
}

// setState logs a lifecycle transition.
func (m *Manager) setState(pkgDir string, s State) {
	m.Logger.Debug("lifecycle state", "pkg", pkgDir, "state", s)
}

// ToDev reverts the manifest at pkgDir to development shape, logging any
// bin-path warnings.
func (m *Manager) ToDev(pkgDir string) error {
	res, err := transform.ToDev(pkgDir)
	if err != nil {
		return err
	}
	m.logTransform(pkgDir, res, StateDev)
	return nil
}

// Clean reverts the manifest to development shape, then removes the build
// output directories and proxy packages. Directory removal failures are
// warnings; clean succeeds as long as the manifest revert did.
func (m *Manager) Clean(pkgDir string) error {
	if err := m.ToDev(pkgDir); err != nil {
		return err
	}
	m.setState(pkgDir, StateCleaning)

	doc, err := manifest.Load(pkgDir)
	if err != nil {
		return err
	}
	pkg, err := manifest.Parse(doc)
	if err != nil {
		return err
	}
	buildPlan, err := plan.Derive(pkg)
	if err != nil {
		return err
	}

	for _, dir := range buildPlan.OutDirs() {
		abs := filepath.Join(pkgDir, dir)
		if err := os.RemoveAll(abs); err != nil {
			m.Logger.Warn("could not remove build directory", "dir", abs, "error", err)
		}
	}
	proxy.Remove(pkgDir, m.Logger)

	m.setState(pkgDir, StateDev)
	return nil
}

// Build runs the full build pipeline: clean, classify, compile declarations
// when configured, bundle each format sequentially, maintain the ignore
// file, generate proxy packages, and finally commit the manifest to
// production shape. On any failure the manifest is forced back to
// development shape before the error propagates, so repeated failed builds
// never strand it half-prod.
func (m *Manager) Build(ctx context.Context, pkgDir string) error {
	if err := m.Clean(pkgDir); err != nil {
		return err
	}
	m.setState(pkgDir, StateBuilding)

	if err := m.runBuild(ctx, pkgDir); err != nil {
		m.compensate(pkgDir)
		return err
	}

	if err := m.toProd(pkgDir); err != nil {
		m.compensate(pkgDir)
		return err
	}
	m.setState(pkgDir, StateProd)
	return nil
}

// runBuild performs every build step between the dev revert and the final
// prod commit.
func (m *Manager) runBuild(ctx context.Context, pkgDir string) error {
	doc, err := manifest.Load(pkgDir)
	if err != nil {
		return err
	}
	pkg, err := manifest.Parse(doc)
	if err != nil {
		return err
	}
	classified, err := classify.Classify(pkgDir, pkg)
	if err != nil {
		return err
	}
	buildPlan, err := plan.Derive(pkg)
	if err != nil {
		return err
	}

	for _, dir := range buildPlan.OutDirs() {
		if err := os.MkdirAll(filepath.Join(pkgDir, dir), 0o755); err != nil {
			return issuePackage(err, "create output directory", pkgDir)
		}
	}

	if pkg.HadTypes {
		if cfg, ok := typesConfig(pkgDir); ok {
			if err := m.Types.Compile(ctx, toolchain.TypesRequest{
				Dir:           pkgDir,
				ConfigPath:    cfg,
				OutDir:        buildPlan.TypesDir(),
				BuildInfoFile: buildInfoFile,
			}); err != nil {
				return err
			}
		} else {
			m.Logger.Warn("types field set but no compiler config found", "pkg", pkgDir)
		}
	}

	entries := make(map[string]string, len(classified.Build))
	for key, abs := range classified.Build {
		rel, relErr := filepath.Rel(pkgDir, abs)
		if relErr != nil {
			return issuePackage(relErr, "relativize entry point", pkgDir)
		}
		entries[key] = "./" + filepath.ToSlash(rel)
	}

	// Formats build one at a time: later steps observe the completed state
	// of every prior format build.
	for _, format := range buildPlan.Formats() {
		if err := m.Bundler.Build(ctx, toolchain.BuildRequest{
			Dir:       pkgDir,
			Entries:   entries,
			Format:    format,
			OutDir:    buildPlan[format],
			Splitting: true,
		}); err != nil {
			return err
		}
	}

	created, err := proxy.Generate(pkgDir, m.Logger)
	if err != nil {
		return err
	}
	ignored := append(buildPlan.OutDirs(), created...)
	if err := gitignore.Update(pkgDir, ignored); err != nil {
		return err
	}
	return nil
}

// toProd commits the manifest to production shape.
func (m *Manager) toProd(pkgDir string) error {
	res, err := transform.ToProd(pkgDir)
	if err != nil {
		return err
	}
	m.logTransform(pkgDir, res, StateProd)
	return nil
}

// compensate forces the manifest back to development shape after a failed
// build. A secondary failure here is logged; the original error is the one
// callers see.
func (m *Manager) compensate(pkgDir string) {
	if _, err := transform.ToDev(pkgDir); err != nil {
		m.Logger.Error("could not revert manifest to dev after failure", "pkg", pkgDir, "error", err)
		return
	}
	m.setState(pkgDir, StateDev)
}

// PublishStaging builds the package and publishes it to the local staging
// registry, starting one when none is running. A previous version is
// best-effort unpublished first.
func (m *Manager) PublishStaging(ctx context.Context, opts PublishOptions) error {
	if opts.Port == 0 {
		opts.Port = registry.DefaultPort
	}
	if opts.RegistryURL == "" {
		opts.RegistryURL = fmt.Sprintf("http://localhost:%d", opts.Port)
	}

	clientOpts := append([]registry.Option{
		registry.WithLogger(m.Logger),
		registry.WithOutput(m.Stdout, m.Stderr),
	}, m.RegistryOptions...)
	client := registry.New(opts.RegistryURL, clientOpts...)

	stagingDir, err := os.MkdirTemp("", "tsforge-staging-*")
	if err != nil {
		return issuePackage(err, "create staging directory", opts.PkgDir)
	}
	defer os.RemoveAll(stagingDir) //nolint:errcheck // best-effort cleanup

	if !client.Ping(ctx) {
		cfgPath, cfgErr := writeRegistryConfig(stagingDir)
		if cfgErr != nil {
			return cfgErr
		}
		if err := client.Start(ctx, cfgPath, opts.Port); err != nil {
			return err
		}
	}

	authConfig, err := registry.WriteAuthConfig(stagingDir, hostOf(opts.RegistryURL))
	if err != nil {
		return err
	}

	doc, err := manifest.Load(opts.PkgDir)
	if err != nil {
		return err
	}
	pkg, err := manifest.Parse(doc)
	if err != nil {
		return err
	}
	client.Unpublish(ctx, opts.PkgDir, pkg.Name, pkg.Version, authConfig)

	if err := m.Build(ctx, opts.PkgDir); err != nil {
		return err
	}

	if err := client.Publish(ctx, opts.PkgDir, authConfig); err != nil {
		// The manifest is in prod shape after a successful build; restore
		// the resting state before surfacing the publish failure.
		m.compensate(opts.PkgDir)
		return err
	}

	fmt.Fprintf(m.Stdout, "\nPublished %s to %s\nInstall with:\n  npm install %s --registry %s\n",
		pkg.Name, opts.RegistryURL, pkg.Name, opts.RegistryURL)
	return nil
}

// typesConfig returns the first existing type-compiler config in pkgDir.
func typesConfig(pkgDir string) (string, bool) {
	for _, name := range typesConfigCandidates {
		if _, err := os.Stat(filepath.Join(pkgDir, name)); err == nil {
			return name, true
		}
	}
	return "", false
}

// writeRegistryConfig materializes a minimal disposable registry config
// whose storage lives next to it.
func writeRegistryConfig(dir string) (string, error) {
	path := filepath.Join(dir, "verdaccio.yaml")
	content := "storage: " + filepath.Join(dir, "storage") + "\n" +
		"packages:\n" +
		"  '**':\n" +
		"    access: $all\n" +
		"    publish: $all\n"
	if err := os.WriteFile(path, []byte(content), 0o644); err != nil {
		return "", issuePackage(err, "write registry config", dir)
	}
	return path, nil
}

// hostOf strips the scheme from a registry URL for npm auth config lines.
func hostOf(url string) string {
	for _, prefix := range []string{"http://", "https://"} {
		if len(url) > len(prefix) && url[:len(prefix)] == prefix {
			return url[len(prefix):]
		}
	}
	return url
}

// issuePackage wraps err as a package-scoped failure.
func issuePackage(err error, op, pkgDir string) error {
	return issue.NewPackageError(err, op, pkgDir)
}

// logTransform reports a transform's outcome at debug level and its
// warnings at warn level.
func (m *Manager) logTransform(pkgDir string, res *transform.Result, target State) {
	for _, w := range res.Warnings {
		m.Logger.Warn(w, "pkg", pkgDir)
	}
	if res.Wrote {
		m.Logger.Debug("manifest rewritten", "pkg", pkgDir, "shape", target)
	} else {
		m.Logger.Debug("manifest already in shape", "pkg", pkgDir, "shape", target)
	}
}
