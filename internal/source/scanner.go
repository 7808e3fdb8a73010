package source

import (
	"os"
	"path/filepath"
	"sort"
	"strings"
)

// ScanDir walks an inbox directory and discovers every terms file in it.
// A missing directory yields no files and no error.
func ScanDir(dir string) ([]DiscoveredFile, error) {
	info, err := os.Stat(dir)
	if err != nil {
		if os.IsNotExist(err) {
			return nil, nil
		}
		return nil, err
	}
	if !info.IsDir() {
		return nil, nil
	}

	var files []DiscoveredFile

	err = filepath.WalkDir(dir, func(path string, d os.DirEntry, err error) error {
		if err != nil {
			return nil //nolint:nilerr // intentionally skip unreadable entries
		}
		if d.IsDir() {
			if path != dir && strings.HasPrefix(d.Name(), ".") {
				return filepath.SkipDir
			}
			return nil
		}
		name := d.Name()
		if strings.HasPrefix(name, ".") {
			return nil
		}

		format := formatOf(path)
		if format == "" {
			return nil
		}
		files = append(files, DiscoveredFile{
			Path:   path,
			Name:   strings.TrimSuffix(name, filepath.Ext(name)),
			Format: format,
		})
		return nil
	})

	sort.Slice(files, func(i, j int) bool { return files[i].Path < files[j].Path })
	return files, err
}

// Discover returns the file at path as a DiscoveredFile, or false when its
// extension is not a terms format.
func Discover(path string) (DiscoveredFile, bool) {
	format := formatOf(path)
	if format == "" {
		return DiscoveredFile{}, false
	}
	name := filepath.Base(path)
	return DiscoveredFile{
		Path:   path,
		Name:   strings.TrimSuffix(name, filepath.Ext(name)),
		Format: format,
	}, true
}

func formatOf(path string) string {
	switch strings.ToLower(filepath.Ext(path)) {
	case ".yaml", ".yml":
		return "yaml"
	case ".json":
		return "json"
	}
	return ""
}
