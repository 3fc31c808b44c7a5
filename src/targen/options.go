package targen

import "github.com/aurora-is-near/tarstream/src/tarfmt"

// Option modifies entries as they are added to a Stream.
type Option interface {
	applyOption(*config)
}

type config struct {
	fixes []func(path string, stat *tarfmt.Stat) string
}

func (c *config) fix(path string, stat *tarfmt.Stat) string {
	for _, f := range c.fixes {
		path = f(path, stat)
	}
	return path
}

type uidOption struct{ uid int64 }

func (opt uidOption) applyOption(c *config) {
	c.fixes = append(c.fixes, func(path string, stat *tarfmt.Stat) string {
		stat.UID = opt.uid
		return path
	})
}

// OptUID returns an Option that forces the uid of every entry.
func OptUID(uid int64) Option {
	return uidOption{uid: uid}
}

type gidOption struct{ gid int64 }

func (opt gidOption) applyOption(c *config) {
	c.fixes = append(c.fixes, func(path string, stat *tarfmt.Stat) string {
		stat.GID = opt.gid
		return path
	})
}

// OptGID returns an Option that forces the gid of every entry.
func OptGID(gid int64) Option {
	return gidOption{gid: gid}
}

// OptNumericIDs strips the symbolic owner and group names so only uid/gid
// remain.
var OptNumericIDs = new(optNumericIDs)

type optNumericIDs struct{}

func (opt optNumericIDs) applyOption(c *config) {
	c.fixes = append(c.fixes, func(path string, stat *tarfmt.Stat) string {
		stat.Uname = ""
		stat.Gname = ""
		return path
	})
}

type mtimeOption struct{ mtime int64 }

func (opt mtimeOption) applyOption(c *config) {
	c.fixes = append(c.fixes, func(path string, stat *tarfmt.Stat) string {
		stat.Mtime = opt.mtime
		return path
	})
}

// OptMtime returns an Option that forces the modification time of every
// entry to mtime seconds since the epoch.
func OptMtime(mtime int64) Option {
	return mtimeOption{mtime: mtime}
}

type rewriteOption struct{ rewrite func(string) string }

func (opt rewriteOption) applyOption(c *config) {
	c.fixes = append(c.fixes, func(path string, stat *tarfmt.Stat) string {
		return opt.rewrite(path)
	})
}

// OptRewrite returns an Option that rewrites every entry path.
func OptRewrite(rewrite func(string) string) Option {
	return rewriteOption{rewrite: rewrite}
}
