//go:build linux

package osfs

import (
	"os"
	"syscall"
	"time"

	"github.com/cdtdelta/4n6time-core/internal/vfs"
)

// statTimes fills in atime/ctime/mtime from the platform-specific
// syscall.Stat_t embedded in os.FileInfo.Sys(). crtime (birth time) is not
// portably available via syscall.Stat_t on Linux and is left unset there.
func statTimes(fi os.FileInfo, info *vfs.FileInfo) {
	st, ok := fi.Sys().(*syscall.Stat_t)
	if !ok {
		return
	}
	info.Inode = st.Ino
	info.MTime = fi.ModTime()
	info.HasMTime = true
	info.ATime = time.Unix(st.Atim.Sec, st.Atim.Nsec)
	info.HasATime = true
	info.CTime = time.Unix(st.Ctim.Sec, st.Ctim.Nsec)
	info.HasCTime = true
}
