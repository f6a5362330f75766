// Package updatecheck tells users when a newer moldflow release is published.
//
// Hosts call CheckForUpdatesOnImport once, early in startup:
//
//	if err := updatecheck.CheckForUpdatesOnImport(); err != nil {
//		// the build is missing its version metadata
//	}
//
// The check makes at most one short HTTP request and emits at most one
// advisory. Network and registry problems are swallowed; only a missing
// installed version is reported, because that points at a broken build.
// Setting MOLDFLOW_API_NO_UPDATE_CHECK to any non-empty value disables it.
package updatecheck

import (
	"context"
	"sync"

	"go.uber.org/zap"

	"github.com/moldflow/mfupdate/internal/advisory"
	"github.com/moldflow/mfupdate/internal/classifier"
	"github.com/moldflow/mfupdate/internal/config"
	"github.com/moldflow/mfupdate/internal/installed"
	"github.com/moldflow/mfupdate/internal/logging"
	"github.com/moldflow/mfupdate/internal/registry"
	"github.com/moldflow/mfupdate/internal/release"
	"github.com/moldflow/mfupdate/internal/version"
)

// State is the outcome of the most recent check.
type State int

const (
	// StateIdle means no check has run yet.
	StateIdle State = iota
	// StateDisabled means the opt-out switch was set.
	StateDisabled
	// StateChecked means the pipeline ran to completion or stopped early on a
	// soft failure.
	StateChecked
)

func (s State) String() string {
	switch s {
	case StateDisabled:
		return "disabled"
	case StateChecked:
		return "checked"
	default:
		return "idle"
	}
}

// VersionSource reports the installed version.
type VersionSource interface {
	Version() (string, error)
}

// Checker runs the update check pipeline.
type Checker struct {
	cfg        config.Config
	lookup     config.LookupFunc
	versions   VersionSource
	fetcher    registry.Fetcher
	classifier *classifier.Classifier
	notifier   advisory.Notifier
	logger     *zap.Logger

	mu    sync.Mutex
	state State
}

// Option customizes a Checker.
type Option func(*Checker)

// WithLogger sets the logger used for soft failures.
func WithLogger(l *zap.Logger) Option {
	return func(c *Checker) { c.logger = logging.OrNop(l) }
}

// WithNotifier sets where advisories go. The default writes to stderr.
func WithNotifier(n advisory.Notifier) Option {
	return func(c *Checker) { c.notifier = n }
}

// WithFetcher replaces the registry client.
func WithFetcher(f registry.Fetcher) Option {
	return func(c *Checker) { c.fetcher = f }
}

// WithVersionSource replaces the installed version lookup.
func WithVersionSource(v VersionSource) Option {
	return func(c *Checker) { c.versions = v }
}

// WithEnvLookup replaces os.LookupEnv.
func WithEnvLookup(fn config.LookupFunc) Option {
	return func(c *Checker) { c.lookup = fn }
}

// New creates a Checker for cfg.
func New(cfg config.Config, opts ...Option) *Checker {
	c := &Checker{
		cfg:    cfg,
		logger: logging.Nop(),
	}
	for _, opt := range opts {
		opt(c)
	}
	if c.versions == nil {
		c.versions = installed.NewResolver(cfg.ModulePath, cfg.DescriptorDir)
	}
	if c.fetcher == nil {
		c.fetcher = registry.NewPyPI(cfg.RegistryURL, cfg.Distribution, cfg.Timeout, c.logger)
	}
	if c.notifier == nil {
		c.notifier = advisory.NewWriterNotifier(nil)
	}
	c.classifier = classifier.New(c.logger)
	return c
}

// Check runs the full pipeline and emits at most one advisory. The only
// error returned is a failure to determine the installed version.
func (c *Checker) Check(ctx context.Context) error {
	env := config.ReadEnv(c.cfg, c.lookup)

	cands, err := c.candidates(ctx, env)
	if err != nil {
		return err
	}
	if cands.Any() {
		c.compose(env, cands)
	}
	return nil
}

// Candidates runs the pipeline without emitting anything and returns the
// upgrade candidates. Opt-out and soft failures yield empty candidates.
func (c *Checker) Candidates(ctx context.Context) (release.Candidates, error) {
	return c.candidates(ctx, config.ReadEnv(c.cfg, c.lookup))
}

// LastState reports the outcome of the most recent Check or Candidates call.
func (c *Checker) LastState() State {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.state
}

func (c *Checker) setState(s State) {
	c.mu.Lock()
	c.state = s
	c.mu.Unlock()
}

func (c *Checker) candidates(ctx context.Context, env config.Env) (release.Candidates, error) {
	if env.Disabled() {
		c.setState(StateDisabled)
		c.logger.Debug("update check disabled", zap.String("env", c.cfg.OptOutEnv))
		return release.Candidates{}, nil
	}
	c.setState(StateChecked)

	current, err := c.versions.Version()
	if err != nil {
		return release.Candidates{}, err
	}

	return c.classify(ctx, current), nil
}

// classify fetches and classifies. Panics are logged and treated as no data.
func (c *Checker) classify(ctx context.Context, current string) (cands release.Candidates) {
	defer func() {
		if r := recover(); r != nil {
			c.logger.Debug("update check aborted", zap.Any("panic", r))
			cands = release.Candidates{}
		}
	}()

	catalog, ok := c.fetcher.FetchReleases(ctx)
	if !ok {
		return release.Candidates{}
	}

	cands = c.classifier.Classify(catalog, version.Parse(current))
	c.logger.Debug("classified releases",
		zap.String("installed", current),
		zap.String("minor", cands.Minor),
		zap.String("major", cands.Major))
	return cands
}

func (c *Checker) compose(env config.Env, cands release.Candidates) {
	if !advisory.NewComposer(c.cfg, env, c.notifier).Compose(cands) {
		c.logger.Debug("advisory not delivered")
	}
}

var (
	importOnce sync.Once
	importErr  error
)

// CheckForUpdatesOnImport runs the check with the default configuration the
// first time it is called. Later calls return the first result and do
// nothing else.
func CheckForUpdatesOnImport() error {
	importOnce.Do(func() {
		importErr = New(config.Default()).Check(context.Background())
	})
	return importErr
}
