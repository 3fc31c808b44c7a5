// Package targen turns a sequence of archive entries into a stream of
// 512-byte USTAR blocks. Generator is the synchronous state machine;
// Stream re-chunks arbitrary payloads and frames over-long paths in PAX
// extended headers.
package targen

import (
	"strings"

	"github.com/pkg/errors"

	"github.com/aurora-is-near/tarstream/src/tarfmt"
)

// ErrInvalidState is returned when an operation is illegal in the
// generator's current state.
var ErrInvalidState = errors.New("invalid generator state")

type state int

const (
	stateHeader state = iota // ready for the next header
	stateData                // expects more data blocks
	stateNull                // one zero block emitted
	stateEnded
)

// Generator emits one 512-byte block per operation. It is not safe for
// concurrent use.
type Generator struct {
	state     state
	remaining int64
	extended  bool // an extended header carrying the path preceded
}

// NewGenerator returns a Generator ready for its first header.
func NewGenerator() *Generator {
	return new(Generator)
}

func (g *Generator) checkPath(path string) error {
	if len(path) > tarfmt.MaxPath {
		return errors.Wrapf(tarfmt.ErrInvalidFileName, "path is %d bytes, frame it in an extended header", len(path))
	}
	if len(path) == 0 && !g.extended {
		return errors.Wrap(tarfmt.ErrInvalidFileName, "empty path")
	}
	return nil
}

func (g *Generator) header(typ byte, path string, stat *tarfmt.Stat) (*tarfmt.Block, error) {
	if stat == nil {
		stat = new(tarfmt.Stat)
	}
	return tarfmt.EncodeHeader(&tarfmt.Header{
		Type:  typ,
		Path:  path,
		Size:  stat.Size,
		Mode:  stat.Mode,
		Mtime: stat.Mtime,
		UID:   stat.UID,
		GID:   stat.GID,
		Uname: stat.Uname,
		Gname: stat.Gname,
	})
}

// File emits the header block of a regular file holding stat.Size bytes of
// content. A non-zero size moves the generator into the data state; the
// caller must follow with Data calls covering exactly that many bytes.
// The path may be empty only when an Extended header carrying it preceded.
func (g *Generator) File(path string, stat *tarfmt.Stat) (*tarfmt.Block, error) {
	if g.state != stateHeader {
		return nil, errors.Wrap(ErrInvalidState, "file header while not ready for headers")
	}
	if err := g.checkPath(path); err != nil {
		return nil, err
	}
	b, err := g.header(tarfmt.TypeFile, path, stat)
	if err != nil {
		return nil, err
	}
	g.extended = false
	if stat != nil && stat.Size > 0 {
		g.state = stateData
		g.remaining = stat.Size
	}
	return b, nil
}

// Directory emits a directory header. The stored path is slash-terminated
// and the stored size is 0 regardless of stat.
func (g *Generator) Directory(path string, stat *tarfmt.Stat) (*tarfmt.Block, error) {
	if g.state != stateHeader {
		return nil, errors.Wrap(ErrInvalidState, "directory header while not ready for headers")
	}
	if path != "" && !strings.HasSuffix(path, "/") {
		path += "/"
	}
	if err := g.checkPath(path); err != nil {
		return nil, err
	}
	var dirStat tarfmt.Stat
	if stat != nil {
		dirStat = *stat
	}
	dirStat.Size = 0
	b, err := g.header(tarfmt.TypeDirectory, path, &dirStat)
	if err != nil {
		return nil, err
	}
	g.extended = false
	return b, nil
}

// Extended emits a PAX extended header announcing size bytes of records.
// The records follow as data blocks and apply to the immediately next
// file or directory header.
func (g *Generator) Extended(size int64) (*tarfmt.Block, error) {
	if g.state != stateHeader {
		return nil, errors.Wrap(ErrInvalidState, "extended header while not ready for headers")
	}
	if size <= 0 || size > tarfmt.MaxSize {
		return nil, errors.Wrapf(tarfmt.ErrInvalidStat, "extended header size %d out of range", size)
	}
	b, err := g.header(tarfmt.TypeExtended, tarfmt.PaxHeaderName, &tarfmt.Stat{Size: size})
	if err != nil {
		return nil, err
	}
	g.state = stateData
	g.remaining = size
	g.extended = true
	return b, nil
}

// Data emits one data block carrying chunk, zero-padded to 512 bytes.
// Chunks must be 512 bytes until fewer remain; the final chunk must match
// the remaining byte count exactly.
func (g *Generator) Data(chunk []byte) (*tarfmt.Block, error) {
	if g.state != stateData {
		return nil, errors.Wrap(ErrInvalidState, "data without a preceding sized header")
	}
	if len(chunk) == 0 || len(chunk) > tarfmt.BlockSize {
		return nil, errors.Wrapf(ErrInvalidState, "data chunk of %d bytes", len(chunk))
	}
	if g.remaining < tarfmt.BlockSize && int64(len(chunk)) != g.remaining {
		return nil, errors.Wrapf(ErrInvalidState, "final chunk is %d bytes, %d remain", len(chunk), g.remaining)
	}
	if int64(len(chunk)) < g.remaining && len(chunk) < tarfmt.BlockSize {
		return nil, errors.Wrapf(ErrInvalidState, "short chunk of %d bytes with %d remaining", len(chunk), g.remaining)
	}
	b := new(tarfmt.Block)
	copy(b[:], chunk)
	g.remaining -= tarfmt.BlockSize
	if g.remaining <= 0 {
		g.state = stateHeader
		g.remaining = 0
	}
	return b, nil
}

// End emits one zero block. The second call terminates the archive; any
// operation after that fails.
func (g *Generator) End() (*tarfmt.Block, error) {
	switch g.state {
	case stateHeader:
		g.state = stateNull
	case stateNull:
		g.state = stateEnded
	default:
		return nil, errors.Wrap(ErrInvalidState, "end while data is outstanding or archive is ended")
	}
	return new(tarfmt.Block), nil
}
