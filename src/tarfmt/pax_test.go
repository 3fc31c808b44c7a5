package tarfmt

import (
	"strconv"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestPaxLineSelfReferential(t *testing.T) {
	for _, n := range []int{0, 1, 10, 85, 88, 89, 90, 91, 92, 500, 985, 990, 995, 1000, 9980, 10000} {
		line := paxLine("path", strings.Repeat("x", n))
		sp := strings.IndexByte(line, ' ')
		require.Greater(t, sp, 0, "value length %d", n)
		size, err := strconv.Atoi(line[:sp])
		require.NoError(t, err, "value length %d", n)
		assert.Equal(t, len(line), size, "value length %d", n)
	}
}

func TestPaxRoundTrip(t *testing.T) {
	in := map[string]string{
		"path":    strings.Repeat("d/", 150) + "file",
		"comment": "free-form text",
		"mtime":   "1500000000.5",
	}
	out, err := DecodePax(EncodePax(in))
	require.NoError(t, err)
	assert.Equal(t, in, out)
}

func TestPaxEmptyValue(t *testing.T) {
	out, err := DecodePax(EncodePax(map[string]string{"path": ""}))
	require.NoError(t, err)
	assert.Equal(t, map[string]string{"path": ""}, out)
}

func TestDecodePaxMalformed(t *testing.T) {
	for _, payload := range []string{
		"99 path=x\n",
		"8 path=x",
		"abc path=x\n",
		"11 pathvalue\n",
		"path=x\n",
	} {
		_, err := DecodePax([]byte(payload))
		assert.ErrorIs(t, err, ErrInvalidHeader, "payload %q", payload)
	}
}
