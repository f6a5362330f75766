package release

import "encoding/json"

// FileEntry represents one published artifact of a release.
type FileEntry struct {
	Yanked bool `json:"yanked"`
}

// UnmarshalJSON decodes a registry file descriptor. Only the yanked flag is
// significant; a missing or non-boolean value counts as not yanked.
func (f *FileEntry) UnmarshalJSON(data []byte) error {
	var raw map[string]json.RawMessage
	if err := json.Unmarshal(data, &raw); err != nil {
		// Not an object; keep the zero value rather than failing the catalog.
		*f = FileEntry{}
		return nil
	}

	var yanked bool
	if v, ok := raw["yanked"]; ok {
		if err := json.Unmarshal(v, &yanked); err != nil {
			yanked = false
		}
	}
	*f = FileEntry{Yanked: yanked}
	return nil
}

// Catalog maps a published version string to its file entries.
// Keys come straight from the registry and are not validated.
type Catalog map[string][]FileEntry

// Available reports whether at least one file of the release is not yanked.
func Available(files []FileEntry) bool {
	for _, f := range files {
		if !f.Yanked {
			return true
		}
	}
	return false
}

// Candidates holds the best upgrade within the installed major line and the
// best upgrade within the nearest higher major line. Empty means none.
type Candidates struct {
	Minor string
	Major string
}

// Any reports whether at least one candidate is present.
func (c Candidates) Any() bool {
	return c.Minor != "" || c.Major != ""
}

// InstallMode distinguishes an isolated interpreter from a global one.
type InstallMode string

const (
	// ModeVirtualEnv means VIRTUAL_ENV is set; pip installs into the env.
	ModeVirtualEnv InstallMode = "virtualenv"
	// ModeGlobal means no virtual environment; pip needs --user.
	ModeGlobal InstallMode = "global"
)
