package classifier

import (
	"errors"
	"testing"

	"go.uber.org/zap"
	"go.uber.org/zap/zapcore"
	"go.uber.org/zap/zaptest/observer"

	"github.com/moldflow/mfupdate/internal/release"
	"github.com/moldflow/mfupdate/internal/version"
)

var current = version.Tuple{Major: 26}

func files(yanked ...bool) []release.FileEntry {
	out := make([]release.FileEntry, len(yanked))
	for i, y := range yanked {
		out[i] = release.FileEntry{Yanked: y}
	}
	return out
}

func TestClassify(t *testing.T) {
	ok := files(false)

	tests := []struct {
		name      string
		catalog   release.Catalog
		wantMinor string
		wantMajor string
	}{
		{
			name:      "newer minor and major",
			catalog:   release.Catalog{"26.0.0": ok, "26.1.0": ok, "25.9.9": ok, "27.0.0": ok},
			wantMinor: "26.1.0",
			wantMajor: "27.0.0",
		},
		{
			name:    "pre-releases ignored",
			catalog: release.Catalog{"26.0.0": ok, "26.1.0a1": ok, "27.0.0b1": ok},
		},
		{
			name:    "alpha and rc markers ignored",
			catalog: release.Catalog{"26.1.0alpha": ok, "26.2.0rc1": ok, "27.0.0-beta": ok, "28.0.0.dev0": ok},
		},
		{
			name:    "yanked ignored",
			catalog: release.Catalog{"26.0.0": ok, "26.1.0": files(true), "27.0.0": files(true)},
		},
		{
			name:      "mixed yanked files stay eligible",
			catalog:   release.Catalog{"26.0.0": ok, "26.1.0": files(true, false), "27.0.0": files(false, true)},
			wantMinor: "26.1.0",
			wantMajor: "27.0.0",
		},
		{
			name:    "empty file list excluded",
			catalog: release.Catalog{"26.1.0": {}, "27.0.0": nil},
		},
		{
			name:    "invalid keys",
			catalog: release.Catalog{"invalid": ok, "": ok, "..": ok, "invalid.version.format": ok},
		},
		{
			name:    "empty catalog",
			catalog: release.Catalog{},
		},
		{
			name:    "nil catalog",
			catalog: nil,
		},
		{
			name:      "only major updates",
			catalog:   release.Catalog{"26.0.0": ok, "27.0.0": ok, "28.0.0": ok},
			wantMajor: "27.0.0",
		},
		{
			name:    "current is latest",
			catalog: release.Catalog{"26.0.0": ok, "25.0.0": ok},
		},
		{
			name:      "no higher major",
			catalog:   release.Catalog{"26.0.0": ok, "26.1.0": ok, "25.9.9": ok, "24.5.0": ok},
			wantMinor: "26.1.0",
		},
		{
			name:      "nearest major wins over newest",
			catalog:   release.Catalog{"26.0.0": ok, "27.0.0": ok, "27.1.0": ok, "28.0.0": ok, "29.0.0": ok},
			wantMajor: "27.1.0",
		},
		{
			name: "latest patch in same major",
			catalog: release.Catalog{
				"26.0.0": ok, "26.1.0": ok, "26.2.5": ok,
				"27.0.0": ok, "27.1.0": ok, "28.0.0": ok,
			},
			wantMinor: "26.2.5",
			wantMajor: "27.1.0",
		},
		{
			name:      "yanked minor with available major",
			catalog:   release.Catalog{"26.0.0": ok, "26.1.0": files(true), "26.2.0": files(true, true), "27.0.0": ok},
			wantMajor: "27.0.0",
		},
		{
			name:    "invalid, pre-release and yanked together",
			catalog: release.Catalog{"invalid": ok, "26.1.0a1": ok, "26.2.0": files(true)},
		},
		{
			name:      "numeric not lexical ordering",
			catalog:   release.Catalog{"26.9.0": ok, "26.10.0": ok, "26.2.0": ok},
			wantMinor: "26.10.0",
		},
		{
			name:      "short keys",
			catalog:   release.Catalog{"26.1": ok, "27": ok},
			wantMinor: "26.1",
			wantMajor: "27",
		},
		{
			name:      "yanked nearest major falls through to next major",
			catalog:   release.Catalog{"27.0.0": files(true), "28.0.0": ok},
			wantMajor: "28.0.0",
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got := Classify(tt.catalog, current)
			if got.Minor != tt.wantMinor {
				t.Errorf("minor = %q, want %q", got.Minor, tt.wantMinor)
			}
			if got.Major != tt.wantMajor {
				t.Errorf("major = %q, want %q", got.Major, tt.wantMajor)
			}
		})
	}
}

func TestClassify_EqualTuplesAreOrderIndependent(t *testing.T) {
	catalog := release.Catalog{
		"27.0":   files(false),
		"27.0.0": files(false),
		"26.1":   files(false),
		"26.1.0": files(false),
	}

	want := Classify(catalog, current)
	for i := 0; i < 50; i++ {
		if got := Classify(catalog, current); got != want {
			t.Fatalf("run %d: Classify() = %+v, want %+v", i, got, want)
		}
	}
	if want.Major != "27.0" || want.Minor != "26.1" {
		t.Errorf("Classify() = %+v, want the lexically smaller key on ties", want)
	}
}

func TestClassify_PreReleaseNeverReturned(t *testing.T) {
	catalog := release.Catalog{
		"26.0.1":    files(false),
		"26.99.0a1": files(false),
		"27.0.0":    files(false),
		"27.5.0rc2": files(false),
	}

	got := Classify(catalog, current)
	if got.Minor != "26.0.1" {
		t.Errorf("minor = %q, want %q", got.Minor, "26.0.1")
	}
	if got.Major != "27.0.0" {
		t.Errorf("major = %q, want %q", got.Major, "27.0.0")
	}
}

func TestEvaluate(t *testing.T) {
	tests := []struct {
		key     string
		files   []release.FileEntry
		wantErr error
	}{
		{"26.1.0", files(false), nil},
		{"", files(false), ErrUnparsable},
		{"..", files(false), ErrUnparsable},
		{"invalid", files(false), ErrUnparsable},
		{"26.1.0a1", files(false), ErrPreRelease},
		{"1.alpha.2", files(false), ErrPreRelease},
		{"26.1.0", files(true), ErrYanked},
		{"26.1.0", nil, ErrYanked},
		{"26.0.0", files(false), ErrNotNewer},
		{"25.9.9", files(false), ErrNotNewer},
	}

	for _, tt := range tests {
		t.Run(tt.key, func(t *testing.T) {
			entry, err := evaluate(tt.key, tt.files, current)
			if !errors.Is(err, tt.wantErr) {
				t.Fatalf("evaluate(%q) error = %v, want %v", tt.key, err, tt.wantErr)
			}
			if err == nil && entry.key != tt.key {
				t.Errorf("entry.key = %q, want %q", entry.key, tt.key)
			}
		})
	}
}

func TestClassifier_LogsSkippedEntries(t *testing.T) {
	core, logs := observer.New(zapcore.DebugLevel)
	c := New(zap.New(core))

	got := c.Classify(release.Catalog{
		"26.1.0":   files(false),
		"26.2.0a1": files(false),
		"invalid":  files(false),
	}, current)

	if got.Minor != "26.1.0" {
		t.Errorf("minor = %q, want %q", got.Minor, "26.1.0")
	}
	if n := logs.FilterMessage("skipping release").Len(); n != 2 {
		t.Errorf("logged %d skipped releases, want 2", n)
	}
}

func TestClassifier_NilLogger(t *testing.T) {
	got := New(nil).Classify(release.Catalog{"27.0.0": files(false)}, current)
	if got.Major != "27.0.0" {
		t.Errorf("major = %q, want %q", got.Major, "27.0.0")
	}
}
