// Package deliver serves directories as streamed tar archives over HTTP.
package deliver

import (
	"io"
	"net/http"
	"os"
	"path"

	"github.com/sirupsen/logrus"
	"golang.org/x/sync/errgroup"

	"github.com/aurora-is-near/tarstream/src/targen"
	"github.com/aurora-is-near/tarstream/src/walk"
)

// TarHandler streams sub-directories of SourceDir as tar archives. Entry
// paths are rewritten relative to the requested directory and ownership is
// normalized to uid/gid 0.
type TarHandler struct {
	SourceDir string
}

func (handler *TarHandler) ServeHTTP(w http.ResponseWriter, r *http.Request) {
	handler.Handler(w, r)
}

func (handler *TarHandler) Handler(w http.ResponseWriter, r *http.Request) {
	if len(r.URL.Path) == 0 {
		w.WriteHeader(http.StatusForbidden)
		return
	}
	dir := path.Join(handler.SourceDir, r.URL.Path)
	stat, err := os.Stat(dir)
	if err != nil || !stat.IsDir() {
		w.WriteHeader(http.StatusNotFound)
		return
	}
	w.Header().Add("Content-Type", "application/tar")
	w.Header().Add("Content-Disposition", "inline; filename=\"data.tar\"")
	stream := targen.NewStream(
		targen.OptRewrite(walk.Relative(dir)),
		targen.OptNumericIDs,
		targen.OptUID(0),
		targen.OptGID(0),
	)
	g := new(errgroup.Group)
	g.Go(func() error {
		defer func() { _ = stream.Finalize() }()
		return walk.Pack(dir, stream)
	})
	g.Go(func() error {
		_, err := io.Copy(w, stream)
		return err
	})
	if err := g.Wait(); err != nil {
		logrus.WithError(err).Errorf("streaming %s", dir)
	}
}

// Serve runs an HTTP server delivering sourceDir below prefix.
func Serve(address, prefix, sourceDir string) error {
	handler := &TarHandler{SourceDir: sourceDir}
	mux := http.NewServeMux()
	mux.Handle(prefix, http.StripPrefix(prefix, handler))
	return http.ListenAndServe(address, mux)
}
