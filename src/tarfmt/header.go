package tarfmt

import (
	"bytes"

	"github.com/pkg/errors"
)

var (
	// ErrInvalidHeader is returned when a header block fails checksum, magic,
	// version, typeflag or numeric-field validation, or when a PAX record is
	// malformed.
	ErrInvalidHeader = errors.New("invalid header")
	// ErrInvalidStat is returned when a stat field exceeds what its header
	// field can carry.
	ErrInvalidStat = errors.New("invalid stat")
	// ErrInvalidFileName is returned when a path does not fit the name and
	// prefix fields.
	ErrInvalidFileName = errors.New("invalid file name")
)

// Field offsets and lengths of the USTAR header block.
const (
	nameOff    = 0
	nameLen    = 100
	modeOff    = 100
	modeLen    = 8
	uidOff     = 108
	uidLen     = 8
	gidOff     = 116
	gidLen     = 8
	sizeOff    = 124
	sizeLen    = 12
	mtimeOff   = 136
	mtimeLen   = 12
	chksumOff  = 148
	chksumLen  = 8
	typeOff    = 156
	magicOff   = 257
	versionOff = 263
	unameOff   = 265
	unameLen   = 32
	gnameOff   = 297
	gnameLen   = 32
	prefixOff  = 345
	prefixLen  = 155
)

const (
	magic   = "ustar\x00"
	version = "00"
)

// Entry type flags as stored in the header.
const (
	TypeFile      byte = '0'
	TypeDirectory byte = '5'
	TypeExtended  byte = 'x'
)

// Field limits imposed by the octal encodings.
const (
	// MaxSize is the largest entry size: 11 octal digits.
	MaxSize int64 = 1<<33 - 1
	// MaxMtime is the largest modification time in seconds: 11 octal digits.
	MaxMtime int64 = 1<<33 - 1
	// MaxID is the largest uid/gid: 7 octal digits.
	MaxID int64 = 1<<21 - 1
	// MaxMode is the largest mode: 7 octal digits.
	MaxMode int64 = 1<<21 - 1
	// MaxName is the longest name stored in the 32-byte owner fields.
	MaxName = 32
	// MaxPath is the longest path representable without a PAX record.
	MaxPath = nameLen + prefixLen
)

// Stat carries the optional metadata of an entry. Omitted fields stay zero
// and are written as such.
type Stat struct {
	Size  int64
	Mode  int64
	Mtime int64 // seconds since the Unix epoch
	UID   int64
	GID   int64
	Uname string
	Gname string
}

// Header holds the decoded metadata fields of a single archive entry.
type Header struct {
	Type  byte
	Path  string
	Size  int64
	Mode  int64
	Mtime int64 // seconds since the Unix epoch
	UID   int64
	GID   int64
	Uname string
	Gname string
}

// SplitPath splits path into the name and prefix fields. Paths up to 100
// bytes live entirely in name; up to 255 bytes the trailing 100 bytes go to
// name and the rest to prefix; longer paths need a PAX record.
func SplitPath(path string) (name, prefix string, err error) {
	switch {
	case len(path) <= nameLen:
		return path, "", nil
	case len(path) <= MaxPath:
		return path[len(path)-nameLen:], path[:len(path)-nameLen], nil
	default:
		return "", "", errors.Wrapf(ErrInvalidFileName, "path is %d bytes, max %d without extension", len(path), MaxPath)
	}
}

// JoinPath reassembles a path from the name and prefix fields.
func JoinPath(name, prefix string) string {
	if prefix == "" {
		return name
	}
	return prefix + name
}

func checkStat(hdr *Header) error {
	switch {
	case hdr.Size < 0 || hdr.Size > MaxSize:
		return errors.Wrapf(ErrInvalidStat, "size %d out of range", hdr.Size)
	case hdr.Mode < 0 || hdr.Mode > MaxMode:
		return errors.Wrapf(ErrInvalidStat, "mode %#o out of range", hdr.Mode)
	case hdr.Mtime < 0 || hdr.Mtime > MaxMtime:
		return errors.Wrapf(ErrInvalidStat, "mtime %d out of range", hdr.Mtime)
	case hdr.UID < 0 || hdr.UID > MaxID:
		return errors.Wrapf(ErrInvalidStat, "uid %d out of range", hdr.UID)
	case hdr.GID < 0 || hdr.GID > MaxID:
		return errors.Wrapf(ErrInvalidStat, "gid %d out of range", hdr.GID)
	case len(hdr.Uname) > MaxName:
		return errors.Wrapf(ErrInvalidStat, "uname is %d bytes, max %d", len(hdr.Uname), MaxName)
	case len(hdr.Gname) > MaxName:
		return errors.Wrapf(ErrInvalidStat, "gname is %d bytes, max %d", len(hdr.Gname), MaxName)
	}
	return nil
}

// EncodeHeader writes hdr into a fresh block and stamps the checksum.
// An empty path is written as-is; callers carrying paths beyond MaxPath
// must frame them in a preceding extended header.
func EncodeHeader(hdr *Header) (*Block, error) {
	if err := checkStat(hdr); err != nil {
		return nil, err
	}
	name, prefix, err := SplitPath(hdr.Path)
	if err != nil {
		return nil, err
	}
	b := new(Block)
	putString(b[nameOff:nameOff+nameLen], name)
	putOctal(b[modeOff:modeOff+modeLen], hdr.Mode)
	putOctal(b[uidOff:uidOff+uidLen], hdr.UID)
	putOctal(b[gidOff:gidOff+gidLen], hdr.GID)
	putOctal(b[sizeOff:sizeOff+sizeLen], hdr.Size)
	putOctal(b[mtimeOff:mtimeOff+mtimeLen], hdr.Mtime)
	b[typeOff] = hdr.Type
	copy(b[magicOff:], magic)
	copy(b[versionOff:], version)
	putString(b[unameOff:unameOff+unameLen], hdr.Uname)
	putString(b[gnameOff:gnameOff+gnameLen], hdr.Gname)
	putString(b[prefixOff:prefixOff+prefixLen], prefix)
	putChecksum(b, Checksum(b))
	return b, nil
}

// DecodeHeader parses b, verifying checksum, magic and version.
func DecodeHeader(b *Block) (*Header, error) {
	stored, err := parseChecksum(b[chksumOff : chksumOff+chksumLen])
	if err != nil {
		return nil, err
	}
	if sum := Checksum(b); sum != stored {
		return nil, errors.Wrapf(ErrInvalidHeader, "checksum %d does not match stored %d", sum, stored)
	}
	if !bytes.Equal(b[magicOff:magicOff+len(magic)], []byte(magic)) {
		return nil, errors.Wrapf(ErrInvalidHeader, "bad magic %q", b[magicOff:magicOff+len(magic)])
	}
	if !bytes.Equal(b[versionOff:versionOff+len(version)], []byte(version)) {
		return nil, errors.Wrapf(ErrInvalidHeader, "bad version %q", b[versionOff:versionOff+len(version)])
	}
	hdr := &Header{Type: b[typeOff]}
	switch hdr.Type {
	case TypeFile, TypeDirectory, TypeExtended:
	default:
		return nil, errors.Wrapf(ErrInvalidHeader, "unknown typeflag %q", hdr.Type)
	}
	hdr.Path = JoinPath(getString(b[nameOff:nameOff+nameLen]), getString(b[prefixOff:prefixOff+prefixLen]))
	fields := []struct {
		dst   *int64
		field []byte
		name  string
	}{
		{&hdr.Mode, b[modeOff : modeOff+modeLen], "mode"},
		{&hdr.UID, b[uidOff : uidOff+uidLen], "uid"},
		{&hdr.GID, b[gidOff : gidOff+gidLen], "gid"},
		{&hdr.Size, b[sizeOff : sizeOff+sizeLen], "size"},
		{&hdr.Mtime, b[mtimeOff : mtimeOff+mtimeLen], "mtime"},
	}
	for _, f := range fields {
		v, err := parseOctal(f.field)
		if err != nil {
			return nil, errors.Wrapf(err, "field %s", f.name)
		}
		*f.dst = v
	}
	hdr.Uname = getString(b[unameOff : unameOff+unameLen])
	hdr.Gname = getString(b[gnameOff : gnameOff+gnameLen])
	return hdr, nil
}

// Checksum computes the USTAR checksum of b: the unsigned sum of all 512
// bytes with the checksum field read as ASCII spaces.
func Checksum(b *Block) int64 {
	var sum int64
	for i, c := range b {
		if i >= chksumOff && i < chksumOff+chksumLen {
			c = ' '
		}
		sum += int64(c)
	}
	return sum
}
