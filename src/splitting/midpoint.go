// Package splitting locates entry boundaries in tar archives and splits
// them into independently valid halves. It also produces per-entry content
// digest listings.
package splitting

import (
	"io"
	"os"

	"github.com/aurora-is-near/tarstream/src/tarfmt"
	"github.com/aurora-is-near/tarstream/src/tarparse"
)

// Midpoint returns the offset of the first entry boundary at or past the
// byte middle of the archive. Extended headers are never separated from
// the entry they modify.
func Midpoint(filename string) (int64, error) {
	f, err := os.Open(filename)
	if err != nil {
		return 0, err
	}
	defer func() { _ = f.Close() }()
	stat, err := f.Stat()
	if err != nil {
		return 0, err
	}
	stop := stat.Size() / 2
	p := tarparse.NewParser()
	buf := make([]byte, tarfmt.BlockSize)
	var off int64
	for {
		if _, err := io.ReadFull(f, buf); err != nil {
			return 0, io.ErrShortBuffer
		}
		tok, err := p.Write(buf)
		if err != nil {
			return 0, err
		}
		off += tarfmt.BlockSize
		switch t := tok.(type) {
		case tarparse.HeaderToken:
			if t.Type == tarfmt.TypeExtended {
				continue
			}
			if end := off + tarfmt.NumBlocks(t.Size)*tarfmt.BlockSize; end >= stop {
				return end, nil
			}
		case tarparse.EndToken:
			return 0, io.ErrShortBuffer
		}
	}
}

// Split cuts tarfile at its block-aligned midpoint, truncating it in place
// and writing the remainder to "<tarfile>.part2". Both halves are left as
// valid archives: the first half is re-terminated with two zero blocks,
// the second keeps the original terminator.
func Split(tarfile string) error {
	mid, err := Midpoint(tarfile)
	if err != nil {
		return err
	}
	return splitFile(tarfile, mid)
}

func splitFile(filename string, midpoint int64) error {
	destF, err := os.Create(filename + ".part2")
	if err != nil {
		return err
	}
	defer func() { _ = destF.Close() }()
	sourceF, err := os.OpenFile(filename, os.O_RDWR, 0)
	if err != nil {
		return err
	}
	defer func() { _ = sourceF.Close() }()
	pos, err := sourceF.Seek(midpoint, io.SeekStart)
	if err != nil {
		return err
	}
	if pos != midpoint {
		panic("Seek failure")
	}
	if _, err = io.Copy(destF, sourceF); err != nil {
		return err
	}
	if err := os.Truncate(filename, midpoint); err != nil {
		return err
	}
	footer := make([]byte, tarfmt.FooterSize)
	_, err = sourceF.WriteAt(footer, midpoint)
	return err
}
