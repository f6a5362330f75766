// Package advisory turns upgrade candidates into a single user-facing
// notification.
package advisory

import (
	"fmt"
	"strings"

	"github.com/moldflow/mfupdate/internal/config"
	"github.com/moldflow/mfupdate/internal/release"
)

// Advisory is the notification emitted when an upgrade is available.
type Advisory struct {
	Minor   string
	Major   string
	Mode    release.InstallMode
	Message string
}

// Composer builds advisories and hands them to a Notifier.
type Composer struct {
	distribution string
	optOutEnv    string
	mode         release.InstallMode
	notifier     Notifier
}

// ModeFor derives the install mode from an environment snapshot.
func ModeFor(env config.Env) release.InstallMode {
	if env.InVirtualEnv() {
		return release.ModeVirtualEnv
	}
	return release.ModeGlobal
}

// NewComposer creates a composer for cfg.Distribution. The install mode is
// taken from env; a nil notifier writes to stderr.
func NewComposer(cfg config.Config, env config.Env, n Notifier) *Composer {
	if n == nil {
		n = NewWriterNotifier(nil)
	}
	return &Composer{
		distribution: cfg.Distribution,
		optOutEnv:    cfg.OptOutEnv,
		mode:         ModeFor(env),
		notifier:     n,
	}
}

// Compose emits at most one advisory for cands and reports whether it did.
// A panicking notifier counts as not emitted.
func (c *Composer) Compose(cands release.Candidates) (emitted bool) {
	if !cands.Any() {
		return false
	}
	defer func() {
		if recover() != nil {
			emitted = false
		}
	}()
	c.notifier.Notify(Advisory{
		Minor:   cands.Minor,
		Major:   cands.Major,
		Mode:    c.mode,
		Message: c.Message(cands),
	})
	return true
}

// Message renders the advisory text for cands. It returns "" when there is
// nothing to report.
func (c *Composer) Message(cands release.Candidates) string {
	var b strings.Builder

	switch {
	case cands.Major != "":
		fmt.Fprintf(&b, "A major update of %s is available: %s.\n", c.distribution, cands.Major)
		b.WriteString("Major releases may contain breaking changes; review the release notes before upgrading.\n")
		fmt.Fprintf(&b, "To upgrade, run: %s", c.command(cands.Major))
		if cands.Minor != "" {
			fmt.Fprintf(&b, "\nTo stay on your current major version, upgrade to %s instead: %s",
				cands.Minor, c.command(cands.Minor))
		}
	case cands.Minor != "":
		fmt.Fprintf(&b, "A newer version of %s is available: %s.\n", c.distribution, cands.Minor)
		fmt.Fprintf(&b, "To upgrade, run: %s", c.command(""))
	default:
		return ""
	}

	if c.optOutEnv != "" {
		fmt.Fprintf(&b, "\nSet %s=1 to disable this check.", c.optOutEnv)
	}
	return b.String()
}

// command returns the pip invocation, pinned when pin is set.
func (c *Composer) command(pin string) string {
	args := []string{"pip", "install", "--upgrade"}
	if c.mode == release.ModeGlobal {
		args = append(args, "--user")
	}
	target := c.distribution
	if pin != "" {
		target += "==" + pin
	}
	return strings.Join(append(args, target), " ")
}
