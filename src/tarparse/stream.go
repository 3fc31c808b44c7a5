package tarparse

import (
	"io"
	"sync"

	"github.com/pkg/errors"

	"github.com/aurora-is-near/tarstream/src/tarfmt"
)

const (
	jobQueueDepth  = 8
	dataQueueDepth = 16
)

// Entry is a parsed archive entry with any PAX records that applied to it.
// A PAX path record overrides Path; other records are retained verbatim.
type Entry struct {
	tarfmt.Header
	Pax map[string]string
}

// Callbacks receive entries in archive order. Nil callbacks are no-ops; a
// nil OnFile additionally makes the stream drop file data unread. OnFile's
// data reader must be consumed (or the callback returned from) before the
// stream can advance past the entry.
type Callbacks struct {
	OnFile      func(e *Entry, data io.Reader) error
	OnDirectory func(e *Entry) error
	OnEnd       func() error
}

type fileState struct {
	ch      chan []byte
	discard bool
}

// Stream feeds arbitrary-sized input to a Parser and dispatches entries to
// callbacks. It is not safe for concurrent use.
type Stream struct {
	parser *Parser
	cb     Callbacks

	acc   []byte // partial input block
	pax   map[string]string
	ext   []byte // extended payload being collected
	inExt bool
	cur   *fileState

	jobs       chan func() error
	jobsClosed bool

	mu     sync.Mutex
	cond   *sync.Cond
	active int
	cbErr  error
	err    error
}

// NewStream returns a Stream dispatching to cb.
func NewStream(cb Callbacks) *Stream {
	s := &Stream{
		parser: NewParser(),
		cb:     cb,
		acc:    make([]byte, 0, tarfmt.BlockSize),
		jobs:   make(chan func() error, jobQueueDepth),
	}
	s.cond = sync.NewCond(&s.mu)
	go s.dispatchLoop()
	return s
}

// dispatchLoop runs callbacks one at a time, in submission order.
func (s *Stream) dispatchLoop() {
	for job := range s.jobs {
		err := job()
		s.mu.Lock()
		if err != nil && s.cbErr == nil {
			s.cbErr = err
		}
		s.active--
		s.cond.Broadcast()
		s.mu.Unlock()
	}
}

func (s *Stream) dispatch(job func() error) {
	s.mu.Lock()
	s.active++
	s.mu.Unlock()
	s.jobs <- job
}

func (s *Stream) closeJobs() {
	if !s.jobsClosed {
		s.jobsClosed = true
		close(s.jobs)
	}
}

func (s *Stream) failed() error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.err != nil {
		return s.err
	}
	return s.cbErr
}

// fail records err as the stream's fatal error and releases the current
// file reader, if any.
func (s *Stream) fail(err error) error {
	s.mu.Lock()
	if s.err == nil {
		s.err = err
	}
	s.mu.Unlock()
	if s.cur != nil && !s.cur.discard {
		close(s.cur.ch)
	}
	s.cur = nil
	s.closeJobs()
	return err
}

// Write feeds the next chunk of archive bytes, of any length, into the
// parser. Callback errors surface here on the following call at the
// latest.
func (s *Stream) Write(chunk []byte) error {
	if err := s.failed(); err != nil {
		return s.fail(err)
	}
	for len(chunk) > 0 {
		if len(s.acc) == 0 && len(chunk) >= tarfmt.BlockSize {
			if err := s.feed(chunk[:tarfmt.BlockSize]); err != nil {
				return err
			}
			chunk = chunk[tarfmt.BlockSize:]
			continue
		}
		need := tarfmt.BlockSize - len(s.acc)
		if need > len(chunk) {
			need = len(chunk)
		}
		s.acc = append(s.acc, chunk[:need]...)
		chunk = chunk[need:]
		if len(s.acc) == tarfmt.BlockSize {
			err := s.feed(s.acc)
			s.acc = s.acc[:0]
			if err != nil {
				return err
			}
		}
	}
	return nil
}

func (s *Stream) feed(block []byte) error {
	tok, err := s.parser.Write(block)
	if err != nil {
		return s.fail(err)
	}
	if tok == nil {
		return nil
	}
	switch t := tok.(type) {
	case HeaderToken:
		return s.onHeader(t)
	case DataToken:
		return s.onData(t)
	case EndToken:
		if s.cb.OnEnd != nil {
			s.dispatch(s.cb.OnEnd)
		}
		s.closeJobs()
		return nil
	}
	panic("tarparse: unreachable token kind")
}

// mergedEntry applies and clears pending PAX metadata.
func (s *Stream) mergedEntry(hdr tarfmt.Header) *Entry {
	e := &Entry{Header: hdr}
	if s.pax != nil {
		if p, ok := s.pax[tarfmt.PaxPath]; ok {
			e.Path = p
		}
		e.Pax = s.pax
		s.pax = nil
	}
	return e
}

func (s *Stream) onHeader(t HeaderToken) error {
	switch t.Type {
	case tarfmt.TypeExtended:
		s.inExt = t.Size > 0
		s.ext = make([]byte, 0, t.Size)
	case tarfmt.TypeDirectory:
		e := s.mergedEntry(t.Header)
		if s.cb.OnDirectory != nil {
			s.dispatch(func() error { return s.cb.OnDirectory(e) })
		}
	case tarfmt.TypeFile:
		e := s.mergedEntry(t.Header)
		if s.cb.OnFile == nil {
			if t.Size > 0 {
				s.cur = &fileState{discard: true}
			}
			return nil
		}
		ch := make(chan []byte, dataQueueDepth)
		if t.Size > 0 {
			s.cur = &fileState{ch: ch}
		} else {
			close(ch)
		}
		r := &entryReader{ch: ch}
		s.dispatch(func() error {
			err := s.cb.OnFile(e, r)
			for range ch {
				// release the writer if the callback left data unread
			}
			return err
		})
	}
	return nil
}

func (s *Stream) onData(t DataToken) error {
	if s.inExt {
		s.ext = append(s.ext, t.Bytes...)
		if t.End {
			s.inExt = false
			records, err := tarfmt.DecodePax(s.ext)
			if err != nil {
				return s.fail(err)
			}
			s.pax = records
			s.ext = nil
		}
		return nil
	}
	if s.cur == nil {
		panic("tarparse: data token without an open entry")
	}
	if !s.cur.discard {
		b := make([]byte, len(t.Bytes))
		copy(b, t.Bytes)
		s.cur.ch <- b
	}
	if t.End {
		if !s.cur.discard {
			close(s.cur.ch)
		}
		s.cur = nil
	}
	return nil
}

// Settled blocks until every dispatched callback has completed, returning
// the first callback error.
func (s *Stream) Settled() error {
	s.mu.Lock()
	defer s.mu.Unlock()
	for s.active > 0 {
		s.cond.Wait()
	}
	return s.cbErr
}

// Close abandons the stream. Pending file readers are released; further
// writes fail.
func (s *Stream) Close() error {
	_ = s.fail(errors.Wrap(ErrEndOfArchive, "stream closed"))
	return nil
}

// entryReader delivers one file's data chunks to a callback, suspending
// while none are buffered.
type entryReader struct {
	ch  chan []byte
	buf []byte
}

func (r *entryReader) Read(p []byte) (int, error) {
	for len(r.buf) == 0 {
		b, ok := <-r.ch
		if !ok {
			return 0, io.EOF
		}
		r.buf = b
	}
	n := copy(p, r.buf)
	r.buf = r.buf[n:]
	return n, nil
}
