//go:build !linux

package backup

import (
	"os"
	"time"
)

// accessTime falls back to the modification time where Stat_t differs.
func accessTime(info os.FileInfo) time.Time {
	return info.ModTime()
}
