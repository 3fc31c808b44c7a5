// Package walk lists the content of a directory and its subdirectories,
// including only directories and regular files, and feeds the entries to a
// generation stream. Symbolic links and special files are skipped; the
// archive format carries neither.
package walk

import (
	"io/fs"
	"path/filepath"
)

// Entry describes one filesystem object found during a walk.
type Entry struct {
	Path  string
	Dir   bool
	Size  int64
	Mode  int64
	Mtime int64
}

// ToFunc walks dir recursively and gives every directory and regular file
// to entryFunc for processing. Entries below dir that cannot be read are
// skipped, while an error on dir itself is returned; an error from
// entryFunc stops the walk and is returned.
func ToFunc(dir string, entryFunc func(*Entry) error) error {
	dir = filepath.Clean(dir)
	return filepath.WalkDir(dir, func(name string, d fs.DirEntry, err error) error {
		if err != nil {
			if name == dir {
				return err
			}
			return nil
		}
		fi, err := d.Info()
		if err != nil {
			return nil
		}
		e := &Entry{
			Path:  name,
			Mode:  int64(fi.Mode().Perm()),
			Mtime: fi.ModTime().Unix(),
		}
		switch {
		case d.IsDir():
			e.Dir = true
		case fi.Mode().IsRegular():
			e.Size = fi.Size()
		default:
			return nil
		}
		return entryFunc(e)
	})
}
