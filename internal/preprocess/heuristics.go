package preprocess

import (
	"bufio"
	"io"
	"strings"

	"github.com/cdtdelta/4n6time-core/internal/pathspec"
	"github.com/cdtdelta/4n6time-core/internal/vfs"
)

// readFile opens child at the given location under root's filesystem
// root and returns its full contents, or an error if it does not exist
// or cannot be opened.
func readFile(fs vfs.VFS, location string) (string, error) {
	ps := pathspec.New(location)
	f, _, err := fs.Open(ps)
	if err != nil {
		return "", err
	}
	defer f.Close()
	data, err := io.ReadAll(f)
	if err != nil {
		return "", err
	}
	return string(data), nil
}

// HostnameHeuristic reads the target's hostname file. Weight 0: runs
// first, since later heuristics (none currently) may want Hostname set.
type HostnameHeuristic struct{}

func (HostnameHeuristic) Name() string       { return "hostname" }
func (HostnameHeuristic) Weight() int        { return 0 }
func (HostnameHeuristic) SupportedOS() []OS  { return []OS{OSLinux, OSMacOS, OSWindows} }

func (HostnameHeuristic) Run(fs vfs.VFS, root *pathspec.PathSpec, obj *Object) error {
	var candidates []string
	switch obj.OS {
	case OSWindows:
		candidates = []string{`/Windows/System32/drivers/etc/hosts`}
	default:
		candidates = []string{`/etc/hostname`, `/etc/HOSTNAME`}
	}

	for _, c := range candidates {
		content, err := readFile(fs, c)
		if err != nil {
			continue
		}
		line := strings.TrimSpace(firstNonCommentLine(content))
		if line == "" {
			continue
		}
		fields := strings.Fields(line)
		obj.Hostname = fields[len(fields)-1]
		return nil
	}
	return nil
}

func firstNonCommentLine(content string) string {
	sc := bufio.NewScanner(strings.NewReader(content))
	for sc.Scan() {
		line := strings.TrimSpace(sc.Text())
		if line == "" || strings.HasPrefix(line, "#") {
			continue
		}
		return line
	}
	return ""
}

// PosixUsersHeuristic enumerates local user accounts from /etc/passwd.
// Weight 1: runs after hostname so Attributes already reflects the host
// the users belong to.
type PosixUsersHeuristic struct{}

func (PosixUsersHeuristic) Name() string      { return "posix_users" }
func (PosixUsersHeuristic) Weight() int       { return 1 }
func (PosixUsersHeuristic) SupportedOS() []OS { return []OS{OSLinux, OSMacOS} }

func (PosixUsersHeuristic) Run(fs vfs.VFS, root *pathspec.PathSpec, obj *Object) error {
	content, err := readFile(fs, "/etc/passwd")
	if err != nil {
		return err
	}
	sc := bufio.NewScanner(strings.NewReader(content))
	var users []string
	for sc.Scan() {
		line := strings.TrimSpace(sc.Text())
		if line == "" || strings.HasPrefix(line, "#") {
			continue
		}
		fields := strings.Split(line, ":")
		if len(fields) > 0 && fields[0] != "" {
			users = append(users, fields[0])
		}
	}
	obj.Users = users
	return nil
}

// TimezoneHeuristic reads the target's configured timezone name. Weight
// 2: runs last among these three; it does not depend on hostname/users
// but is kept low-priority since it is informational only.
type TimezoneHeuristic struct{}

func (TimezoneHeuristic) Name() string      { return "timezone" }
func (TimezoneHeuristic) Weight() int       { return 2 }
func (TimezoneHeuristic) SupportedOS() []OS { return []OS{OSLinux, OSMacOS} }

func (TimezoneHeuristic) Run(fs vfs.VFS, root *pathspec.PathSpec, obj *Object) error {
	content, err := readFile(fs, "/etc/timezone")
	if err == nil {
		if zone := strings.TrimSpace(content); zone != "" {
			obj.Timezone = zone
			return nil
		}
	}
	// /etc/localtime is a symlink to a zoneinfo file on most distros; the
	// VFS contract does not expose symlink targets, so this repository
	// cannot recover the zone name from it without a dedicated resolver.
	return nil
}

// DefaultManager returns a Manager pre-registered with the three worked
// heuristics (§4.G [SUPPLEMENT]).
func DefaultManager() *Manager {
	m := NewManager()
	m.Register(HostnameHeuristic{})
	m.Register(PosixUsersHeuristic{})
	m.Register(TimezoneHeuristic{})
	return m
}
