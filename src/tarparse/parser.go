// Package tarparse turns a stream of 512-byte USTAR blocks into tokens and
// dispatches parsed entries to callbacks. Parser is the synchronous state
// machine; Stream re-chunks arbitrary input, reassembles PAX metadata and
// hands file data to callbacks lazily.
package tarparse

import (
	"github.com/pkg/errors"

	"github.com/aurora-is-near/tarstream/src/tarfmt"
)

var (
	// ErrBlockSize is returned when Write receives anything but exactly 512
	// bytes.
	ErrBlockSize = errors.New("block size mismatch")
	// ErrEndOfArchive is returned for writes after the archive terminator,
	// or for a non-zero block following the first zero block.
	ErrEndOfArchive = errors.New("end of archive")
)

// Token is one parser result: HeaderToken, DataToken or EndToken.
type Token interface {
	isToken()
}

// HeaderToken announces the next entry of the archive.
type HeaderToken struct {
	tarfmt.Header
}

// DataToken carries the payload bytes of one block of the current entry.
// Bytes aliases the parser's block buffer and is only valid until the next
// Write; End is true on the entry's last data block.
type DataToken struct {
	Bytes []byte
	End   bool
}

// EndToken marks the archive terminator.
type EndToken struct{}

func (HeaderToken) isToken() {}
func (DataToken) isToken()   {}
func (EndToken) isToken()    {}

type state int

const (
	stateHeader state = iota
	stateData
	stateNull
	stateEnded
)

// Parser consumes one 512-byte block per Write and returns at most one
// token. It is not safe for concurrent use.
type Parser struct {
	state     state
	remaining int64
	block     tarfmt.Block // reused; data tokens alias it
}

// NewParser returns a Parser expecting the first header block.
func NewParser() *Parser {
	return new(Parser)
}

// Write consumes the next block. It returns a nil Token for the first zero
// terminator block, a HeaderToken, DataToken or EndToken otherwise.
func (p *Parser) Write(block []byte) (Token, error) {
	if len(block) != tarfmt.BlockSize {
		return nil, errors.Wrapf(ErrBlockSize, "got %d bytes", len(block))
	}
	copy(p.block[:], block)
	switch p.state {
	case stateHeader:
		return p.header()
	case stateData:
		return p.data(), nil
	case stateNull:
		if !p.block.IsZero() {
			return nil, errors.Wrap(ErrEndOfArchive, "data after first terminator block")
		}
		p.state = stateEnded
		return EndToken{}, nil
	case stateEnded:
		return nil, errors.Wrap(ErrEndOfArchive, "write after terminator")
	}
	panic("tarparse: unreachable parser state")
}

func (p *Parser) header() (Token, error) {
	if p.block.IsZero() {
		p.state = stateNull
		return nil, nil
	}
	hdr, err := tarfmt.DecodeHeader(&p.block)
	if err != nil {
		return nil, err
	}
	switch hdr.Type {
	case tarfmt.TypeFile, tarfmt.TypeExtended:
		if hdr.Size > 0 {
			p.state = stateData
			p.remaining = hdr.Size
		}
	case tarfmt.TypeDirectory:
		// directories never carry data
	}
	return HeaderToken{Header: *hdr}, nil
}

func (p *Parser) data() Token {
	useful := p.remaining
	if useful > tarfmt.BlockSize {
		useful = tarfmt.BlockSize
	}
	tok := DataToken{
		Bytes: p.block[:useful],
		End:   p.remaining <= tarfmt.BlockSize,
	}
	p.remaining -= tarfmt.BlockSize
	if p.remaining <= 0 {
		p.state = stateHeader
		p.remaining = 0
	}
	return tok
}
