package walk

import (
	"path"
	"strings"
)

// Relative returns a rewrite that rebases paths under base to "./"-relative
// archive paths.
func Relative(base string) func(string) string {
	base = path.Clean(base)
	l := len(base)
	return func(d string) string {
		if len(d) == l {
			return "./"
		}
		return "." + d[l:]
	}
}

// Rebase returns a rewrite that replaces base with dir.
func Rebase(base, dir string) func(string) string {
	base = path.Clean(base)
	if dir != "/" {
		dir = strings.TrimSuffix(dir, "/")
	}
	return func(d string) string {
		if strings.HasPrefix(d, base) {
			if len(d) == len(base) {
				return dir
			}
			return dir + d[len(base):]
		}
		return path.Join(dir, d)
	}
}
