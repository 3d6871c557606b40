package gitstore

import (
	"fmt"
	"os"
	"path"
	"path/filepath"
	"sort"
	"strings"

	"wikigit/internal/wiki"
)

// ListArticles walks the working tree and returns the relative paths of all
// markdown files, sorted, honoring the ignore rules.
func (s *Store) ListArticles() ([]string, error) {
	var articles []string
	err := filepath.WalkDir(s.root, func(p string, d os.DirEntry, err error) error {
		if err != nil {
			return err
		}
		rel, relErr := filepath.Rel(s.root, p)
		if relErr != nil {
			return relErr
		}
		rel = filepath.ToSlash(rel)
		if rel == "." {
			return nil
		}
		if d.IsDir() {
			if s.ignore.Match(rel) {
				return filepath.SkipDir
			}
			return nil
		}
		if s.ignore.Match(rel) || !strings.HasSuffix(d.Name(), ".md") {
			return nil
		}
		articles = append(articles, rel)
		return nil
	})
	if err != nil {
		return nil, fmt.Errorf("walking %s: %w", s.root, err)
	}
	sort.Strings(articles)
	return articles, nil
}

// ListTree returns the navigable directory tree: markdown files and
// directories only. Within each directory files come before subdirectories,
// each group sorted case-insensitively. File node paths drop the .md suffix
// since that is how articles are addressed.
func (s *Store) ListTree() ([]*wiki.DirectoryNode, error) {
	return s.listTree("")
}

func (s *Store) listTree(rel string) ([]*wiki.DirectoryNode, error) {
	entries, err := os.ReadDir(filepath.Join(s.root, filepath.FromSlash(rel)))
	if err != nil {
		return nil, fmt.Errorf("reading %s: %w", rel, err)
	}

	var files, dirs []*wiki.DirectoryNode
	for _, e := range entries {
		childRel := path.Join(rel, e.Name())
		if s.ignore.Match(childRel) {
			continue
		}
		if e.IsDir() {
			children, err := s.listTree(childRel)
			if err != nil {
				return nil, err
			}
			dirs = append(dirs, &wiki.DirectoryNode{
				Type:     "directory",
				Name:     e.Name(),
				Path:     childRel,
				Children: children,
			})
			continue
		}
		if !strings.HasSuffix(e.Name(), ".md") {
			continue
		}
		files = append(files, &wiki.DirectoryNode{
			Type: "file",
			Name: strings.TrimSuffix(e.Name(), ".md"),
			Path: strings.TrimSuffix(childRel, ".md"),
		})
	}

	byName := func(nodes []*wiki.DirectoryNode) func(i, j int) bool {
		return func(i, j int) bool {
			return strings.ToLower(nodes[i].Name) < strings.ToLower(nodes[j].Name)
		}
	}
	sort.SliceStable(files, byName(files))
	sort.SliceStable(dirs, byName(dirs))
	return append(files, dirs...), nil
}

// ListFiles returns the regular files directly inside dir, sorted by name.
// Hidden entries and the tracking placeholder are skipped. A directory that
// does not exist yet lists as empty.
func (s *Store) ListFiles(dir string) ([]wiki.FileInfo, error) {
	entries, err := os.ReadDir(filepath.Join(s.root, filepath.FromSlash(dir)))
	if err != nil {
		if os.IsNotExist(err) {
			return nil, nil
		}
		return nil, fmt.Errorf("reading %s: %w", dir, err)
	}

	var files []wiki.FileInfo
	for _, e := range entries {
		if e.IsDir() || e.Name() == placeholderFile || s.ignore.Match(path.Join(dir, e.Name())) {
			continue
		}
		info, err := e.Info()
		if err != nil {
			return nil, fmt.Errorf("reading %s: %w", path.Join(dir, e.Name()), err)
		}
		files = append(files, wiki.FileInfo{Name: e.Name(), Size: info.Size()})
	}
	sort.Slice(files, func(i, j int) bool { return files[i].Name < files[j].Name })
	return files, nil
}
