package descriptor

import (
	"io/fs"
	"path"
	"path/filepath"
	"regexp"
	"sort"
	"strings"
)

// StaticFiles lists the files under root that static handlers can serve, as sorted
// slash-separated paths relative to root. Handlers whose directory escapes root or
// whose upload pattern does not compile are skipped.
func (d *Descriptor) StaticFiles(root string) ([]string, error) {
	var dirs []string
	var uploads []*regexp.Regexp
	for _, h := range d.Handlers {
		switch h.Kind() {
		case KindStaticDir:
			dir := path.Clean(h.StaticDir)
			if !escapesRoot(dir) {
				dirs = append(dirs, dir)
			}
		case KindStaticFiles:
			if re, err := regexp.Compile(anchor(h.Upload)); err == nil && h.Upload != "" {
				uploads = append(uploads, re)
			}
		}
	}
	if len(dirs) == 0 && len(uploads) == 0 {
		return nil, nil
	}

	var out []string
	err := filepath.WalkDir(root, func(p string, entry fs.DirEntry, err error) error {
		if err != nil {
			return err
		}
		if entry.IsDir() {
			return nil
		}
		rel, err := filepath.Rel(root, p)
		if err != nil {
			return err
		}
		rel = filepath.ToSlash(rel)
		if servable(rel, dirs, uploads) {
			out = append(out, rel)
		}
		return nil
	})
	if err != nil {
		return nil, err
	}
	sort.Strings(out)
	return out, nil
}

func servable(rel string, dirs []string, uploads []*regexp.Regexp) bool {
	for _, dir := range dirs {
		if dir == "." || strings.HasPrefix(rel, dir+"/") {
			return true
		}
	}
	for _, re := range uploads {
		if re.MatchString(rel) {
			return true
		}
	}
	return false
}
