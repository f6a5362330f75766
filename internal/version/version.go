package version

import (
	"fmt"
	"math"
	"regexp"
	"strconv"
	"strings"

	"github.com/Masterminds/semver/v3"
)

// Tuple is a parsed major.minor.patch triple. All parts are non-negative.
type Tuple struct {
	Major int
	Minor int
	Patch int
}

var (
	finalRe   = regexp.MustCompile(`^\d+(\.\d+)*$`)
	numericRe = regexp.MustCompile(`^\d+(\.\d+)*`)
)

// Parse converts a version string into a Tuple. It never fails: segments that
// do not start with a digit are dropped, trailing non-digits inside a segment
// are ignored, and missing parts are padded with zeros.
func Parse(s string) Tuple {
	parts := make([]int, 0, 3)
	for _, seg := range strings.Split(s, ".") {
		if len(parts) == 3 {
			break
		}
		end := 0
		for end < len(seg) && seg[end] >= '0' && seg[end] <= '9' {
			end++
		}
		if end == 0 {
			continue
		}
		n, err := strconv.Atoi(seg[:end])
		if err != nil {
			// Only ErrRange is possible here.
			n = math.MaxInt
		}
		parts = append(parts, n)
	}
	for len(parts) < 3 {
		parts = append(parts, 0)
	}
	return Tuple{Major: parts[0], Minor: parts[1], Patch: parts[2]}
}

// HasNumericCore reports whether s starts with a digit.
func HasNumericCore(s string) bool {
	return len(s) > 0 && s[0] >= '0' && s[0] <= '9'
}

// IsFinal reports whether s is a plain dotted numeric release such as
// "26.1.0", with no pre-release or other trailing marker.
func IsFinal(s string) bool {
	return finalRe.MatchString(s)
}

// IsPreRelease reports whether s has a numeric core followed by a trailing
// marker, e.g. "26.1.0a1", "27.0.0rc1", "1.0.0-beta" or "26.1.0alpha".
func IsPreRelease(s string) bool {
	core := numericRe.FindString(s)
	return core != "" && len(core) < len(s)
}

func (t Tuple) semver() *semver.Version {
	return semver.New(uint64(t.Major), uint64(t.Minor), uint64(t.Patch), "", "")
}

// Compare returns -1, 0 or 1 comparing t to o lexicographically.
func (t Tuple) Compare(o Tuple) int {
	return t.semver().Compare(o.semver())
}

// GreaterThan reports whether t sorts strictly after o.
func (t Tuple) GreaterThan(o Tuple) bool {
	return t.Compare(o) > 0
}

// Less reports whether t sorts strictly before o.
func (t Tuple) Less(o Tuple) bool {
	return t.Compare(o) < 0
}

func (t Tuple) String() string {
	return fmt.Sprintf("%d.%d.%d", t.Major, t.Minor, t.Patch)
}
