package splitting

import (
	"fmt"
	"io"
	"os"

	"github.com/opencontainers/go-digest"
	"github.com/pkg/errors"
	"lukechampine.com/blake3"

	"github.com/aurora-is-near/tarstream/src/tarparse"
)

// Digest algorithms accepted by ReadDigests.
const (
	AlgorithmSHA256 = "sha256"
	AlgorithmBlake3 = "blake3"
)

// ErrUnknownAlgorithm is returned for digest algorithms other than sha256
// and blake3.
var ErrUnknownAlgorithm = errors.New("unknown digest algorithm")

// ReadDigests parses tarfile and writes one "<digest>  <path>" line per
// file entry to w.
func ReadDigests(tarfile, algorithm string, w io.Writer) error {
	switch algorithm {
	case AlgorithmSHA256, AlgorithmBlake3:
	default:
		return errors.Wrapf(ErrUnknownAlgorithm, "%q", algorithm)
	}
	f, err := os.Open(tarfile)
	if err != nil {
		return err
	}
	defer func() { _ = f.Close() }()
	stream := tarparse.NewStream(tarparse.Callbacks{
		OnFile: func(e *tarparse.Entry, data io.Reader) error {
			line, err := digestLine(algorithm, e.Path, data)
			if err != nil {
				return err
			}
			_, err = io.WriteString(w, line)
			return err
		},
	})
	buf := make([]byte, 32*1024)
	for {
		n, err := f.Read(buf)
		if n > 0 {
			if werr := stream.Write(buf[:n]); werr != nil {
				return werr
			}
		}
		if err == io.EOF {
			break
		}
		if err != nil {
			return err
		}
	}
	return stream.Settled()
}

func digestLine(algorithm, path string, data io.Reader) (string, error) {
	if algorithm == AlgorithmBlake3 {
		h := blake3.New(32, nil)
		if _, err := io.Copy(h, data); err != nil {
			return "", err
		}
		return fmt.Sprintf("blake3:%x  %s\n", h.Sum(nil), path), nil
	}
	d := digest.SHA256.Digester()
	if _, err := io.Copy(d.Hash(), data); err != nil {
		return "", err
	}
	return fmt.Sprintf("%s  %s\n", d.Digest(), path), nil
}
