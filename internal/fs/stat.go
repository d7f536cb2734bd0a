package fs

import (
	"io/fs"
	"os"
)

// StatFunc returns file information for a real file system path.
type StatFunc func(name string) (fs.FileInfo, error)

// OSStat stats files on the local file system.
var OSStat StatFunc = os.Stat

// FileExists reports whether name is an existing regular file (or a
// non-directory). Any failure of the probe, including a panic inside stat,
// counts as "does not exist".
func FileExists(stat StatFunc, name string) (exists bool) {
	if stat == nil {
		stat = OSStat
	}

	defer func() {
		if recover() != nil {
			exists = false
		}
	}()

	fi, err := stat(name)
	if err != nil || fi == nil {
		return false
	}
	return !fi.IsDir()
}
