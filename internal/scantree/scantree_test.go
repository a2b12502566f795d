package scantree

import (
	"testing"

	"github.com/stretchr/testify/assert"
)

// registryPaths is a representative slice of Windows Registry key paths,
// grounded in spec scenario S5.
var registryPaths = []string{
	`HKEY_LOCAL_MACHINE\System\CurrentControlSet\Control\Session Manager\AppCompatCache`,
	`HKEY_LOCAL_MACHINE\System\CurrentControlSet\Control\ComputerName\ComputerName`,
	`HKEY_LOCAL_MACHINE\System\CurrentControlSet\Services\Tcpip\Parameters`,
	`HKEY_LOCAL_MACHINE\System\CurrentControlSet\Control\TimeZoneInformation`,
	`HKEY_LOCAL_MACHINE\System\MountedDevices`,
	`HKEY_LOCAL_MACHINE\Software\Microsoft\Windows\CurrentVersion\Run`,
	`HKEY_LOCAL_MACHINE\Software\Microsoft\Windows\CurrentVersion\RunOnce`,
	`HKEY_LOCAL_MACHINE\Software\Microsoft\Windows NT\CurrentVersion\Winlogon`,
	`HKEY_LOCAL_MACHINE\Software\Microsoft\Windows\CurrentVersion\Explorer\UserAssist`,
	`HKEY_LOCAL_MACHINE\Software\Microsoft\Windows\CurrentVersion\Uninstall`,
	`HKEY_USERS\.DEFAULT\Software\Microsoft\Windows\CurrentVersion\Explorer\RecentDocs`,
	`HKEY_USERS\.DEFAULT\Software\Microsoft\Windows\CurrentVersion\Explorer\RunMRU`,
	`HKEY_USERS\.DEFAULT\Software\Microsoft\Internet Explorer\TypedURLs`,
	`HKEY_USERS\.DEFAULT\Network\OptionalComponents`,
	`HKEY_LOCAL_MACHINE\System\CurrentControlSet\Control\Network`,
	`HKEY_LOCAL_MACHINE\System\CurrentControlSet\Enum\USBSTOR`,
	`HKEY_LOCAL_MACHINE\System\CurrentControlSet\Enum\USB`,
	`HKEY_LOCAL_MACHINE\System\CurrentControlSet\Control\Class`,
	`HKEY_LOCAL_MACHINE\Software\Microsoft\Windows\CurrentVersion\Policies\Explorer`,
	`HKEY_LOCAL_MACHINE\Software\Microsoft\Windows\CurrentVersion\Explorer\MountPoints2`,
	`HKEY_LOCAL_MACHINE\Software\Microsoft\Windows\CurrentVersion\Explorer\ComDlg32\LastVisitedPidlMRU`,
	`HKEY_LOCAL_MACHINE\Software\Microsoft\Windows\CurrentVersion\Explorer\ComDlg32\OpenSavePidlMRU`,
	`HKEY_LOCAL_MACHINE\Software\Microsoft\Windows\CurrentVersion\Explorer\Shell Folders`,
	`HKEY_LOCAL_MACHINE\Software\Microsoft\Windows\CurrentVersion\Explorer\User Shell Folders`,
	`HKEY_LOCAL_MACHINE\System\CurrentControlSet\Control\Session Manager\Environment`,
}

func TestCheckPath_NonMatchingQuery(t *testing.T) {
	tree := Build(registryPaths, false, `\`)
	assert.False(t, tree.CheckPath(`HKLM\System\CurrentControlSet\Control\Windows`, ""))
}

func TestCheckPath_ExactRegisteredPathCaseInsensitive(t *testing.T) {
	tree := Build(registryPaths, false, `\`)
	assert.True(t, tree.CheckPath(
		`hkey_local_machine\system\currentcontrolset\control\session manager\appcompatcache`, ""))
}

func TestCheckPath_SeparatorOverride(t *testing.T) {
	tree := Build(registryPaths, false, `\`)
	query := `HKEY_LOCAL_MACHINE/System/CurrentControlSet/Control/Session Manager/AppCompatCache`
	assert.True(t, tree.CheckPath(query, "/"))
}

func TestCheckPath_EveryRegisteredPathMatches(t *testing.T) {
	tree := Build(registryPaths, false, `\`)
	for _, p := range registryPaths {
		assert.True(t, tree.CheckPath(p, ""), "expected registered path to match: %s", p)
	}
}

// TestInvariant6 exercises invariant 6 directly: every registered path
// matches, and a representative set of unregistered paths does not.
func TestInvariant6(t *testing.T) {
	paths := []string{
		`a\b\c`,
		`a\b\d`,
		`a\x\c`,
		`z\q\r`,
	}
	tree := Build(paths, true, `\`)

	for _, p := range paths {
		assert.True(t, tree.CheckPath(p, ""), "registered path must match: %s", p)
	}

	unregistered := []string{
		`a\b\e`,
		`a\y\c`,
		`q\q\q`,
		`a\b`,
		`a\b\c\d`,
	}
	for _, p := range unregistered {
		assert.False(t, tree.CheckPath(p, ""), "unregistered path must not match: %s", p)
	}
}

func TestCheckPath_EmptyTreeNeverMatches(t *testing.T) {
	tree := Build(nil, false, `\`)
	assert.False(t, tree.CheckPath(`a\b\c`, ""))
}

func TestCheckPath_SinglePathTree(t *testing.T) {
	tree := Build([]string{`a\b\c`}, true, `\`)
	assert.True(t, tree.CheckPath(`a\b\c`, ""))
	assert.False(t, tree.CheckPath(`a\b\d`, ""))
}
