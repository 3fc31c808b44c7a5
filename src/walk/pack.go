package walk

import (
	"os"

	"github.com/pkg/errors"

	"github.com/aurora-is-near/tarstream/src/tarfmt"
	"github.com/aurora-is-near/tarstream/src/targen"
)

// Pack walks dir and adds every directory and regular file to s. File
// contents are read lazily when s emits the entry; the stream closes each
// file once consumed. Pack does not finalize s.
func Pack(dir string, s *targen.Stream) error {
	return ToFunc(dir, func(e *Entry) error {
		stat := &tarfmt.Stat{
			Size:  e.Size,
			Mode:  e.Mode,
			Mtime: e.Mtime,
		}
		if e.Dir {
			return s.AddDirectory(e.Path, stat)
		}
		f, err := os.Open(e.Path)
		if err != nil {
			return errors.Wrapf(err, "open %q", e.Path)
		}
		if err := s.AddFile(e.Path, stat, f); err != nil {
			_ = f.Close()
			return err
		}
		return nil
	})
}
