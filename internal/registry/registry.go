// SPDX-License-Identifier: MPL-2.0

// Package registry talks to the disposable local package registry used for
// pre-release testing. The registry itself is an external collaborator: this
// client can start one, check liveness, and publish or unpublish through the
// package manager CLI. Unpublish is best effort; the target version may
// simply not exist yet.
package registry

import (
	"context"
	"fmt"
	"io"
	"net/http"
	"os"
	"path/filepath"
	"time"

	"github.com/charmbracelet/log"

	"tsforge/internal/issue"
	"tsforge/internal/toolchain"
)

// DefaultPort is the conventional local registry port.
const DefaultPort = 4873

// startupTimeout bounds how long Start waits for the registry to answer
// pings after launching it.
const startupTimeout = 30 * time.Second

type (
	// Client drives one local registry instance.
	Client struct {
		url        string
		httpClient *http.Client
		runner     toolchain.Runner
		logger     *log.Logger
		stdout     io.Writer
		stderr     io.Writer
	}

	// Option configures a Client during construction.
	Option func(*Client)
)

// WithHTTPClient sets a custom HTTP client, useful for tests.
func WithHTTPClient(c *http.Client) Option {
	return func(r *Client) {
		r.httpClient = c
	}
}

// WithRunner sets the shell runner used for registry and publish commands.
func WithRunner(runner toolchain.Runner) Option {
	return func(r *Client) {
		r.runner = runner
	}
}

// WithLogger sets the logger for best-effort failures.
func WithLogger(logger *log.Logger) Option {
	return func(r *Client) {
		r.logger = logger
	}
}

// WithOutput sets the writers that receive external tool output.
func WithOutput(stdout, stderr io.Writer) Option {
	return func(r *Client) {
		r.stdout = stdout
		r.stderr = stderr
	}
}

// New creates a Client for the registry at url (e.g.,
// "http://localhost:4873"). Defaults: http.DefaultClient, the virtual shell
// runner, the standard streams, and the default logger.
func New(url string, opts ...Option) *Client {
	c := &Client{
		url:        url,
		httpClient: http.DefaultClient,
		runner:     toolchain.VirtualRunner{},
		logger:     log.Default(),
		stdout:     os.Stdout,
		stderr:     os.Stderr,
	}
	for _, opt := range opts {
		opt(c)
	}
	return c
}

// URL returns the registry base URL.
func (c *Client) URL() string {
	return c.url
}

// Ping reports whether the registry answers its liveness endpoint.
func (c *Client) Ping(ctx context.Context) bool {
	ctx, cancel := context.WithTimeout(ctx, 2*time.Second)
	defer cancel()

	req, err := http.NewRequestWithContext(ctx, http.MethodGet, c.url+"/-/ping", http.NoBody)
	if err != nil {
		return false
	}
	resp, err := c.httpClient.Do(req)
	if err != nil {
		return false
	}
	defer resp.Body.Close() //nolint:errcheck // liveness probe, body unused
	return resp.StatusCode == http.StatusOK
}

// Start launches the registry process with the given config and port, then
// waits for it to answer pings. The process inherits ctx: cancelling the
// context terminates the registry.
func (c *Client) Start(ctx context.Context, configPath string, port int) error {
	if c.Ping(ctx) {
		c.logger.Debug("registry already running", "url", c.url)
		return nil
	}

	cmd := fmt.Sprintf("npx verdaccio --config %q --listen %d", configPath, port)
	errCh := make(chan error, 1)
	go func() {
		errCh <- c.runner.Run(ctx, filepath.Dir(configPath), cmd, c.stdout, c.stderr)
	}()

	deadline := time.Now().Add(startupTimeout)
	for time.Now().Before(deadline) {
		select {
		case err := <-errCh:
			// A clean exit here still means the registry never came up.
			if err == nil {
				err = fmt.Errorf("registry process exited before answering ping")
			}
			return issue.NewPackageError(err, "start local registry", "")
		case <-ctx.Done():
			return ctx.Err()
		case <-time.After(500 * time.Millisecond):
			if c.Ping(ctx) {
				return nil
			}
		}
	}
	return issue.NewPackageError(
		fmt.Errorf("registry did not answer within %s", startupTimeout),
		"start local registry", "")
}

// Publish pushes the package at pkgDir to the registry using the given auth
// config file.
func (c *Client) Publish(ctx context.Context, pkgDir, authConfig string) error {
	cmd := fmt.Sprintf("npm publish --registry %q --userconfig %q", c.url, authConfig)
	if err := c.runner.Run(ctx, pkgDir, cmd, c.stdout, c.stderr); err != nil {
		return issue.NewPackageError(err, "publish package", pkgDir)
	}
	return nil
}

// Unpublish removes a package version from the registry. Failures are
// swallowed after logging: the version may not have been published yet.
func (c *Client) Unpublish(ctx context.Context, pkgDir, name, version, authConfig string) {
	spec := name
	if version != "" {
		spec = name + "@" + version
	}
	cmd := fmt.Sprintf("npm unpublish %q --force --registry %q --userconfig %q", spec, c.url, authConfig)
	if err := c.runner.Run(ctx, pkgDir, cmd, c.stdout, c.stderr); err != nil {
		c.logger.Debug("unpublish skipped", "package", spec, "error", err)
	}
}

// WriteAuthConfig writes a throwaway npm user config inside dir that
// authenticates against the local registry with a placeholder token, and
// returns its path. The local registry accepts any token.
func WriteAuthConfig(dir, registryHost string) (string, error) {
	path := filepath.Join(dir, ".npmrc-staging")
	content := fmt.Sprintf("//%s/:_authToken=tsforge-staging\n", registryHost)
	if err := os.WriteFile(path, []byte(content), 0o600); err != nil {
		return "", issue.NewPackageError(err, "write registry auth config", dir)
	}
	return path, nil
}
