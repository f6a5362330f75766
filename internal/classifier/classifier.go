// Package classifier picks upgrade candidates from a release catalog.
package classifier

import (
	"errors"
	"fmt"

	"go.uber.org/zap"

	"github.com/moldflow/mfupdate/internal/logging"
	"github.com/moldflow/mfupdate/internal/release"
	"github.com/moldflow/mfupdate/internal/version"
)

// Reasons a catalog entry is skipped.
var (
	ErrUnparsable = errors.New("no numeric version core")
	ErrPreRelease = errors.New("pre-release")
	ErrYanked     = errors.New("all files yanked")
	ErrNotNewer   = errors.New("not newer than installed")
)

// tagged is a release that survived every filter.
type tagged struct {
	key   string
	tuple version.Tuple
}

// better reports whether t should replace cur as the pick within a group.
// Equal tuples fall back to the smaller key so map order never matters.
func (t tagged) better(cur *tagged) bool {
	if cur == nil {
		return true
	}
	if c := t.tuple.Compare(cur.tuple); c != 0 {
		return c > 0
	}
	return t.key < cur.key
}

// Classifier wraps Classify with a trace of skipped entries.
type Classifier struct {
	logger *zap.Logger
}

// New creates a classifier logging to logger; nil discards the trace.
func New(logger *zap.Logger) *Classifier {
	return &Classifier{logger: logging.OrNop(logger)}
}

// Classify returns the best same-major upgrade and the best upgrade within
// the smallest higher major present in catalog.
func (c *Classifier) Classify(catalog release.Catalog, current version.Tuple) release.Candidates {
	return classify(catalog, current, func(key string, err error) {
		c.logger.Debug("skipping release", zap.String("version", key), zap.Error(err))
	})
}

// Classify is the pure form of (*Classifier).Classify.
func Classify(catalog release.Catalog, current version.Tuple) release.Candidates {
	return classify(catalog, current, nil)
}

func classify(catalog release.Catalog, current version.Tuple, skip func(string, error)) release.Candidates {
	var minor, major *tagged

	for key, files := range catalog {
		entry, err := evaluate(key, files, current)
		if err != nil {
			if skip != nil {
				skip(key, err)
			}
			continue
		}

		switch {
		case entry.tuple.Major == current.Major:
			if entry.better(minor) {
				minor = &entry
			}
		case entry.tuple.Major > current.Major:
			// Nearest major first, then the newest release inside it.
			if major == nil || entry.tuple.Major < major.tuple.Major {
				major = &entry
			} else if entry.tuple.Major == major.tuple.Major && entry.better(major) {
				major = &entry
			}
		}
	}

	var out release.Candidates
	if minor != nil {
		out.Minor = minor.key
	}
	if major != nil {
		out.Major = major.key
	}
	return out
}

// evaluate runs the filters for one entry. Any failure, including a panic
// while parsing, only rejects this entry.
func evaluate(key string, files []release.FileEntry, current version.Tuple) (entry tagged, err error) {
	defer func() {
		if r := recover(); r != nil {
			entry, err = tagged{}, fmt.Errorf("%w: %v", ErrUnparsable, r)
		}
	}()

	if !version.HasNumericCore(key) {
		return tagged{}, ErrUnparsable
	}
	tuple := version.Parse(key)

	if !version.IsFinal(key) {
		return tagged{}, ErrPreRelease
	}
	if !release.Available(files) {
		return tagged{}, ErrYanked
	}
	if !tuple.GreaterThan(current) {
		return tagged{}, ErrNotNewer
	}
	return tagged{key: key, tuple: tuple}, nil
}
