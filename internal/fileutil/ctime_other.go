//go:build !windows

package fileutil

import (
	"os"
	"time"
)

// Creation time is not portable outside Windows.
func creationTime(os.FileInfo) time.Time {
	return time.Time{}
}
