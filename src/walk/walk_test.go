package walk

import (
	"io"
	"os"
	"path"
	"sort"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/aurora-is-near/tarstream/src/targen"
	"github.com/aurora-is-near/tarstream/src/tarparse"
)

func mkTree(t *testing.T) string {
	t.Helper()
	dir := t.TempDir()
	require.NoError(t, os.MkdirAll(path.Join(dir, "sub"), 0o755))
	require.NoError(t, os.WriteFile(path.Join(dir, "a"), []byte("alpha"), 0o644))
	require.NoError(t, os.WriteFile(path.Join(dir, "sub", "b"), []byte("bravo"), 0o644))
	return dir
}

func TestToFunc(t *testing.T) {
	dir := mkTree(t)
	var dirs, files []string
	err := ToFunc(dir, func(e *Entry) error {
		if e.Dir {
			dirs = append(dirs, e.Path)
		} else {
			files = append(files, e.Path)
		}
		return nil
	})
	require.NoError(t, err)
	sort.Strings(dirs)
	sort.Strings(files)
	assert.Equal(t, []string{dir, path.Join(dir, "sub")}, dirs)
	assert.Equal(t, []string{path.Join(dir, "a"), path.Join(dir, "sub", "b")}, files)
}

func TestToFuncStopsOnError(t *testing.T) {
	dir := mkTree(t)
	calls := 0
	err := ToFunc(dir, func(e *Entry) error {
		calls++
		return os.ErrClosed
	})
	assert.ErrorIs(t, err, os.ErrClosed)
	assert.Equal(t, 1, calls)
}

func TestPackRoundTrip(t *testing.T) {
	dir := mkTree(t)
	stream := targen.NewStream(targen.OptRewrite(Relative(dir)))
	go func() {
		defer func() { _ = stream.Finalize() }()
		if err := Pack(dir, stream); err != nil {
			t.Error(err)
		}
	}()
	archive, err := io.ReadAll(stream)
	require.NoError(t, err)

	got := map[string]string{}
	parse := tarparse.NewStream(tarparse.Callbacks{
		OnFile: func(e *tarparse.Entry, data io.Reader) error {
			content, err := io.ReadAll(data)
			if err != nil {
				return err
			}
			got[e.Path] = string(content)
			return nil
		},
		OnDirectory: func(e *tarparse.Entry) error {
			got[e.Path] = ""
			return nil
		},
	})
	require.NoError(t, parse.Write(archive))
	require.NoError(t, parse.Settled())
	assert.Equal(t, map[string]string{
		"./":      "",
		"./a":     "alpha",
		"./sub/":  "",
		"./sub/b": "bravo",
	}, got)
}

func TestRewrites(t *testing.T) {
	rel := Relative("/data/tree")
	assert.Equal(t, "./", rel("/data/tree"))
	assert.Equal(t, "./x/y", rel("/data/tree/x/y"))

	reb := Rebase("/data/tree", "backup/")
	assert.Equal(t, "backup", reb("/data/tree"))
	assert.Equal(t, "backup/x", reb("/data/tree/x"))
}
