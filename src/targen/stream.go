package targen

import (
	"bytes"
	"io"
	"strings"
	"sync"

	"github.com/pkg/errors"

	"github.com/aurora-is-near/tarstream/src/tarfmt"
)

const opQueueDepth = 10

type op interface {
	run(s *Stream, pw *io.PipeWriter) error
}

// Stream assembles archive entries into a lazy block stream. It implements
// io.Reader: Read suspends while the operation queue is empty and resumes
// when entries are added or Finalize is called. One Stream produces one
// archive; it is not safe for concurrent producers.
type Stream struct {
	gen *Generator
	cfg config
	ops chan op
	pr  *io.PipeReader

	mu      sync.Mutex
	cond    *sync.Cond
	pending int
	ended   bool
	err     error
}

// NewStream returns a Stream with options applied to every added entry.
func NewStream(options ...Option) *Stream {
	s := &Stream{
		gen: NewGenerator(),
		ops: make(chan op, opQueueDepth),
	}
	s.cond = sync.NewCond(&s.mu)
	for _, opt := range options {
		opt.applyOption(&s.cfg)
	}
	pr, pw := io.Pipe()
	s.pr = pr
	go s.pump(pw)
	return s
}

func (s *Stream) pump(pw *io.PipeWriter) {
	for o := range s.ops {
		err := o.run(s, pw)
		s.opDone(err)
		if err != nil {
			pw.CloseWithError(err)
			for o := range s.ops {
				_ = o
				s.opDone(nil)
			}
			return
		}
	}
	pw.Close()
}

func (s *Stream) opDone(err error) {
	s.mu.Lock()
	s.pending--
	if err != nil && s.err == nil {
		s.err = err
	}
	s.cond.Broadcast()
	s.mu.Unlock()
}

func (s *Stream) enqueue(o op) error {
	s.mu.Lock()
	if s.ended {
		s.mu.Unlock()
		return errors.Wrap(ErrInvalidState, "add after finalize")
	}
	if s.err != nil {
		err := s.err
		s.mu.Unlock()
		return err
	}
	s.pending++
	s.mu.Unlock()
	s.ops <- o
	return nil
}

// AddFile queues a regular file whose content is read lazily from payload.
// stat.Size bytes are consumed; a shorter payload fails the stream. If
// payload is an io.Closer it is closed once consumed.
func (s *Stream) AddFile(path string, stat *tarfmt.Stat, payload io.Reader) error {
	var st tarfmt.Stat
	if stat != nil {
		st = *stat
	}
	path = s.cfg.fix(path, &st)
	return s.enqueue(&fileOp{path: path, stat: st, payload: payload})
}

// AddFileBytes queues a regular file holding content. The size is taken
// from the content itself.
func (s *Stream) AddFileBytes(path string, stat *tarfmt.Stat, content []byte) error {
	var st tarfmt.Stat
	if stat != nil {
		st = *stat
	}
	st.Size = int64(len(content))
	return s.AddFile(path, &st, bytes.NewReader(content))
}

// AddFileString queues a regular file holding the UTF-8 bytes of content.
func (s *Stream) AddFileString(path string, stat *tarfmt.Stat, content string) error {
	var st tarfmt.Stat
	if stat != nil {
		st = *stat
	}
	st.Size = int64(len(content))
	return s.AddFile(path, &st, strings.NewReader(content))
}

// AddDirectory queues a directory entry.
func (s *Stream) AddDirectory(path string, stat *tarfmt.Stat) error {
	var st tarfmt.Stat
	if stat != nil {
		st = *stat
	}
	path = s.cfg.fix(path, &st)
	return s.enqueue(&dirOp{path: path, stat: st})
}

// Finalize queues the end-of-archive marker. No entries may be added
// afterwards; Read returns io.EOF once the marker has been consumed.
func (s *Stream) Finalize() error {
	s.mu.Lock()
	if s.ended {
		s.mu.Unlock()
		return errors.Wrap(ErrInvalidState, "finalize twice")
	}
	s.ended = true
	err := s.err
	if err == nil {
		s.pending++
	}
	s.mu.Unlock()
	if err != nil {
		close(s.ops)
		return err
	}
	s.ops <- endOp{}
	close(s.ops)
	return nil
}

// Read yields the next archive bytes, suspending until entries are queued.
func (s *Stream) Read(p []byte) (int, error) {
	return s.pr.Read(p)
}

// Settled blocks until the operation queue has drained. The stream may
// still accept further entries unless Finalize was called.
func (s *Stream) Settled() error {
	s.mu.Lock()
	defer s.mu.Unlock()
	for s.pending > 0 {
		s.cond.Wait()
	}
	return s.err
}

func emit(pw *io.PipeWriter, b *tarfmt.Block) error {
	_, err := pw.Write(b[:])
	return err
}

// writeExtended frames path in a PAX extended header followed by its
// record payload.
func (s *Stream) writeExtended(pw *io.PipeWriter, path string) error {
	payload := tarfmt.EncodePax(map[string]string{tarfmt.PaxPath: path})
	b, err := s.gen.Extended(int64(len(payload)))
	if err != nil {
		return err
	}
	if err := emit(pw, b); err != nil {
		return err
	}
	for len(payload) > 0 {
		n := tarfmt.BlockSize
		if len(payload) < n {
			n = len(payload)
		}
		b, err := s.gen.Data(payload[:n])
		if err != nil {
			return err
		}
		if err := emit(pw, b); err != nil {
			return err
		}
		payload = payload[n:]
	}
	return nil
}

type fileOp struct {
	path    string
	stat    tarfmt.Stat
	payload io.Reader
}

func (o *fileOp) run(s *Stream, pw *io.PipeWriter) error {
	if c, ok := o.payload.(io.Closer); ok {
		defer func() { _ = c.Close() }()
	}
	path := o.path
	if len(path) > tarfmt.MaxPath {
		if err := s.writeExtended(pw, path); err != nil {
			return err
		}
		path = ""
	}
	b, err := s.gen.File(path, &o.stat)
	if err != nil {
		return err
	}
	if err := emit(pw, b); err != nil {
		return err
	}
	remaining := o.stat.Size
	buf := make([]byte, tarfmt.BlockSize)
	for remaining > 0 {
		n := tarfmt.BlockSize
		if remaining < int64(n) {
			n = int(remaining)
		}
		if _, err := io.ReadFull(o.payload, buf[:n]); err != nil {
			return errors.Wrapf(err, "payload of %q ended before %d bytes", o.path, o.stat.Size)
		}
		b, err := s.gen.Data(buf[:n])
		if err != nil {
			return err
		}
		if err := emit(pw, b); err != nil {
			return err
		}
		remaining -= int64(n)
	}
	return nil
}

type dirOp struct {
	path string
	stat tarfmt.Stat
}

func (o *dirOp) run(s *Stream, pw *io.PipeWriter) error {
	path := o.path
	if path != "" && !strings.HasSuffix(path, "/") {
		path += "/"
	}
	if len(path) > tarfmt.MaxPath {
		if err := s.writeExtended(pw, path); err != nil {
			return err
		}
		path = ""
	}
	b, err := s.gen.Directory(path, &o.stat)
	if err != nil {
		return err
	}
	return emit(pw, b)
}

type endOp struct{}

func (o endOp) run(s *Stream, pw *io.PipeWriter) error {
	for i := 0; i < 2; i++ {
		b, err := s.gen.End()
		if err != nil {
			return err
		}
		if err := emit(pw, b); err != nil {
			return err
		}
	}
	return nil
}
