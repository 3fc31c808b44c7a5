package tarfmt

import (
	"bytes"
	"fmt"
	"strconv"

	"github.com/pkg/errors"
)

// putOctal right-justifies v as zero-padded octal ASCII in the first
// len(field)-1 bytes and terminates with a NUL.
func putOctal(field []byte, v int64) {
	s := strconv.FormatInt(v, 8)
	pad := len(field) - 1 - len(s)
	for i := 0; i < pad; i++ {
		field[i] = '0'
	}
	copy(field[pad:], s)
	field[len(field)-1] = 0
}

// putChecksum writes sum into the checksum field with the "\x00 " suffix.
func putChecksum(b *Block, sum int64) {
	copy(b[chksumOff:chksumOff+chksumLen], fmt.Sprintf("%06o\x00 ", sum))
}

// parseOctal reads an octal numeric field, trimming leading and trailing
// NULs and spaces. An empty field decodes to 0.
func parseOctal(field []byte) (int64, error) {
	s := string(bytes.Trim(field, " \x00"))
	if s == "" {
		return 0, nil
	}
	v, err := strconv.ParseInt(s, 8, 64)
	if err != nil {
		return 0, errors.Wrapf(ErrInvalidHeader, "malformed octal %q", field)
	}
	return v, nil
}

// parseChecksum reads the stored checksum up to the first NUL or space,
// accepting both termination conventions.
func parseChecksum(field []byte) (int64, error) {
	s := bytes.TrimLeft(field, " \x00")
	if end := bytes.IndexAny(s, " \x00"); end >= 0 {
		s = s[:end]
	}
	return parseOctal(s)
}

// putString writes s NUL-padded, truncating at the field boundary.
func putString(field []byte, s string) {
	copy(field, s)
}

// getString reads a NUL-padded string field.
func getString(field []byte) string {
	if i := bytes.IndexByte(field, 0); i >= 0 {
		field = field[:i]
	}
	return string(field)
}
