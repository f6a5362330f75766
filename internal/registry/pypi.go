package registry

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"strings"
	"time"

	"go.uber.org/zap"

	"github.com/moldflow/mfupdate/internal/logging"
	"github.com/moldflow/mfupdate/internal/release"
)

const (
	// DefaultURL is the public Python package index.
	DefaultURL = "https://pypi.org"

	// DefaultTimeout bounds the whole request so host startup is never held up.
	DefaultTimeout = 2 * time.Second

	maxBodyBytes = 8 << 20
)

var errNoReleases = errors.New("response has no releases object")

// PyPI fetches release metadata from a PyPI-compatible JSON API.
type PyPI struct {
	apiURL       string
	distribution string
	timeout      time.Duration
	client       *http.Client
	logger       *zap.Logger
}

// NewPyPI creates a fetcher for distribution on the registry at apiURL.
// Zero values select DefaultURL and DefaultTimeout.
func NewPyPI(apiURL, distribution string, timeout time.Duration, logger *zap.Logger) *PyPI {
	if apiURL == "" {
		apiURL = DefaultURL
	}
	if timeout <= 0 {
		timeout = DefaultTimeout
	}
	return &PyPI{
		apiURL:       strings.TrimSuffix(apiURL, "/"),
		distribution: distribution,
		timeout:      timeout,
		client:       &http.Client{Timeout: timeout},
		logger:       logging.OrNop(logger),
	}
}

// URL returns the metadata endpoint queried by FetchReleases.
func (p *PyPI) URL() string {
	return fmt.Sprintf("%s/pypi/%s/json", p.apiURL, url.PathEscape(p.distribution))
}

// FetchReleases issues one GET for the distribution metadata. Any network,
// status or decoding problem is logged at debug level and reported as !ok.
func (p *PyPI) FetchReleases(ctx context.Context) (catalog release.Catalog, ok bool) {
	defer func() {
		if r := recover(); r != nil {
			p.logger.Debug("release fetch panicked", zap.Any("panic", r))
			catalog, ok = nil, false
		}
	}()

	catalog, err := p.lookup(ctx)
	if err != nil {
		p.logger.Debug("release catalog unavailable", zap.String("url", p.URL()), zap.Error(err))
		return nil, false
	}
	return catalog, true
}

func (p *PyPI) lookup(ctx context.Context) (release.Catalog, error) {
	ctx, cancel := context.WithTimeout(ctx, p.timeout)
	defer cancel()

	req, err := http.NewRequestWithContext(ctx, http.MethodGet, p.URL(), nil)
	if err != nil {
		return nil, fmt.Errorf("creating request: %w", err)
	}
	req.Header.Set("Accept", "application/json")

	start := time.Now()
	resp, err := p.client.Do(req)
	if err != nil {
		return nil, fmt.Errorf("querying registry: %w", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode < 200 || resp.StatusCode > 299 {
		return nil, fmt.Errorf("registry error: HTTP %d", resp.StatusCode)
	}

	body, err := io.ReadAll(io.LimitReader(resp.Body, maxBodyBytes))
	if err != nil {
		return nil, fmt.Errorf("reading response: %w", err)
	}

	catalog, err := decodeReleases(body)
	if err != nil {
		return nil, err
	}
	p.logger.Debug("fetched release catalog",
		zap.String("distribution", p.distribution),
		zap.Int("releases", len(catalog)),
		zap.Duration("elapsed", time.Since(start)))
	return catalog, nil
}

// decodeReleases extracts the "releases" object. A release whose file list
// is malformed is kept with no files, which leaves it unavailable, instead of
// rejecting the whole payload.
func decodeReleases(body []byte) (release.Catalog, error) {
	var payload struct {
		Releases map[string]json.RawMessage `json:"releases"`
	}
	if err := json.Unmarshal(body, &payload); err != nil {
		return nil, fmt.Errorf("parsing response: %w", err)
	}
	if payload.Releases == nil {
		return nil, errNoReleases
	}

	catalog := make(release.Catalog, len(payload.Releases))
	for ver, raw := range payload.Releases {
		var files []release.FileEntry
		if err := json.Unmarshal(raw, &files); err != nil {
			files = nil
		}
		catalog[ver] = files
	}
	return catalog, nil
}
