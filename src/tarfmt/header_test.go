package tarfmt

import (
	"fmt"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestEncodeHeaderFile(t *testing.T) {
	b, err := EncodeHeader(&Header{Type: TypeFile, Path: "a", Size: 3, Mode: 0o777})
	require.NoError(t, err)
	assert.Equal(t, "a", getString(b[nameOff:nameOff+nameLen]))
	assert.Equal(t, []byte("0000777\x00"), b[modeOff:modeOff+modeLen])
	assert.Equal(t, []byte("00000000003\x00"), b[sizeOff:sizeOff+sizeLen])
	assert.Equal(t, TypeFile, b[typeOff])
	assert.Equal(t, []byte("ustar\x00"), b[magicOff:magicOff+6])
	assert.Equal(t, []byte("00"), b[versionOff:versionOff+2])
	sum, err := parseChecksum(b[chksumOff : chksumOff+chksumLen])
	require.NoError(t, err)
	assert.Equal(t, Checksum(b), sum)
	assert.Equal(t, byte(0), b[chksumOff+6])
	assert.Equal(t, byte(' '), b[chksumOff+7])
}

func TestHeaderRoundTrip(t *testing.T) {
	in := &Header{
		Type:  TypeFile,
		Path:  "some/dir/file.txt",
		Size:  1234567,
		Mode:  0o640,
		Mtime: 1500000000,
		UID:   1000,
		GID:   100,
		Uname: "operator",
		Gname: "staff",
	}
	b, err := EncodeHeader(in)
	require.NoError(t, err)
	out, err := DecodeHeader(b)
	require.NoError(t, err)
	assert.Equal(t, in, out)
}

func TestPathBoundaries(t *testing.T) {
	for _, tc := range []struct {
		length  int
		nameLen int
	}{
		{length: 1, nameLen: 1},
		{length: 100, nameLen: 100},
		{length: 101, nameLen: 100},
		{length: 155, nameLen: 100},
		{length: 255, nameLen: 100},
	} {
		p := strings.Repeat("p", tc.length)
		name, prefix, err := SplitPath(p)
		require.NoError(t, err, "length %d", tc.length)
		assert.Len(t, name, tc.nameLen, "length %d", tc.length)
		assert.Len(t, prefix, tc.length-tc.nameLen, "length %d", tc.length)
		assert.Equal(t, p, JoinPath(name, prefix), "length %d", tc.length)

		b, err := EncodeHeader(&Header{Type: TypeFile, Path: p})
		require.NoError(t, err, "length %d", tc.length)
		if tc.length <= nameLen {
			assert.Equal(t, make([]byte, prefixLen), b[prefixOff:prefixOff+prefixLen], "prefix not empty for length %d", tc.length)
		}
		hdr, err := DecodeHeader(b)
		require.NoError(t, err, "length %d", tc.length)
		assert.Equal(t, p, hdr.Path, "length %d", tc.length)
	}
	_, _, err := SplitPath(strings.Repeat("p", 256))
	assert.ErrorIs(t, err, ErrInvalidFileName)
	_, err = EncodeHeader(&Header{Type: TypeFile, Path: strings.Repeat("p", 256)})
	assert.ErrorIs(t, err, ErrInvalidFileName)
}

func TestStatLimits(t *testing.T) {
	for _, tc := range []struct {
		name string
		hdr  Header
	}{
		{name: "size", hdr: Header{Type: TypeFile, Path: "a", Size: MaxSize + 1}},
		{name: "negative size", hdr: Header{Type: TypeFile, Path: "a", Size: -1}},
		{name: "mtime", hdr: Header{Type: TypeFile, Path: "a", Mtime: MaxMtime + 1}},
		{name: "uid", hdr: Header{Type: TypeFile, Path: "a", UID: MaxID + 1}},
		{name: "gid", hdr: Header{Type: TypeFile, Path: "a", GID: MaxID + 1}},
		{name: "uname", hdr: Header{Type: TypeFile, Path: "a", Uname: strings.Repeat("u", 33)}},
		{name: "gname", hdr: Header{Type: TypeFile, Path: "a", Gname: strings.Repeat("g", 33)}},
	} {
		_, err := EncodeHeader(&tc.hdr)
		assert.ErrorIs(t, err, ErrInvalidStat, tc.name)
	}
	b, err := EncodeHeader(&Header{Type: TypeFile, Path: "a", Size: MaxSize, Mtime: MaxMtime, UID: MaxID, GID: MaxID})
	require.NoError(t, err)
	hdr, err := DecodeHeader(b)
	require.NoError(t, err)
	assert.Equal(t, MaxSize, hdr.Size)
	assert.Equal(t, MaxMtime, hdr.Mtime)
	assert.Equal(t, MaxID, hdr.UID)
	assert.Equal(t, MaxID, hdr.GID)
}

func TestDecodeCorruptHeader(t *testing.T) {
	b, err := EncodeHeader(&Header{Type: TypeFile, Path: "a", Size: 3})
	require.NoError(t, err)
	b[0] ^= 0xff
	_, err = DecodeHeader(b)
	assert.ErrorIs(t, err, ErrInvalidHeader)
}

func TestDecodeBadMagic(t *testing.T) {
	b, err := EncodeHeader(&Header{Type: TypeFile, Path: "a"})
	require.NoError(t, err)
	copy(b[magicOff:], "gnutar")
	putChecksum(b, Checksum(b))
	_, err = DecodeHeader(b)
	assert.ErrorIs(t, err, ErrInvalidHeader)
}

func TestDecodeUnknownTypeflag(t *testing.T) {
	b, err := EncodeHeader(&Header{Type: TypeFile, Path: "a"})
	require.NoError(t, err)
	b[typeOff] = '7'
	putChecksum(b, Checksum(b))
	_, err = DecodeHeader(b)
	assert.ErrorIs(t, err, ErrInvalidHeader)
}

func TestChecksumSpaceTerminated(t *testing.T) {
	b, err := EncodeHeader(&Header{Type: TypeFile, Path: "a", Size: 3})
	require.NoError(t, err)
	copy(b[chksumOff:chksumOff+chksumLen], fmt.Sprintf("%06o \x00", Checksum(b)))
	hdr, err := DecodeHeader(b)
	require.NoError(t, err)
	assert.Equal(t, "a", hdr.Path)
}

func TestParseOctalMalformed(t *testing.T) {
	_, err := parseOctal([]byte("12q4\x00"))
	assert.ErrorIs(t, err, ErrInvalidHeader)
	v, err := parseOctal([]byte("\x00\x00\x00"))
	require.NoError(t, err)
	assert.Equal(t, int64(0), v)
}

func TestPadding(t *testing.T) {
	assert.Equal(t, int64(0), Padding(0))
	assert.Equal(t, int64(509), Padding(3))
	assert.Equal(t, int64(0), Padding(512))
	assert.Equal(t, int64(511), Padding(513))
	assert.Equal(t, int64(1), NumBlocks(1))
	assert.Equal(t, int64(1), NumBlocks(512))
	assert.Equal(t, int64(2), NumBlocks(513))
	assert.Equal(t, int64(0), NumBlocks(0))
}
