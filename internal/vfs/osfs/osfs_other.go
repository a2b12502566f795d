//go:build !linux

package osfs

import (
	"os"

	"github.com/cdtdelta/4n6time-core/internal/vfs"
)

// statTimes falls back to ModTime only on platforms without a portable
// syscall.Stat_t layout for atime/ctime.
func statTimes(fi os.FileInfo, info *vfs.FileInfo) {
	info.MTime = fi.ModTime()
	info.HasMTime = true
}
