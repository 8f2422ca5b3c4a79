package maintenance

import (
	"os"
	"sort"
	"strings"
	"time"

	"winfp/internal/fileutil"
)

// Files is the filesystem access used by the orchestrator.
type Files interface {
	Exists(path string) (bool, error)
	Remove(path string) error
	// List returns the names of regular files in dir. A missing dir is not an
	// error.
	List(dir string) ([]string, error)
	Backup(path, dir string) (string, error)
}

type osFiles struct {
	now func() time.Time
}

// OSFiles returns the real filesystem.
func OSFiles() Files { return osFiles{now: time.Now} }

func (osFiles) Exists(path string) (bool, error) {
	_, err := os.Stat(path)
	if err == nil {
		return true, nil
	}
	if os.IsNotExist(err) {
		return false, nil
	}
	return false, err
}

func (osFiles) Remove(path string) error {
	return os.Remove(path)
}

func (osFiles) List(dir string) ([]string, error) {
	entries, err := os.ReadDir(dir)
	if err != nil {
		if os.IsNotExist(err) {
			return nil, nil
		}
		return nil, err
	}
	names := make([]string, 0, len(entries))
	for _, entry := range entries {
		if entry.Type().IsRegular() {
			names = append(names, entry.Name())
		}
	}
	return names, nil
}

func (f osFiles) Backup(path, dir string) (string, error) {
	return fileutil.BackupFile(path, dir, f.now())
}

// FindOrphans returns files in dir with the given extension that no
// registered database points at. Absolute registered paths match only the
// file at that exact location; bare or relative names match by file name.
// Comparisons ignore case and separator style.
func FindOrphans(files Files, dir, ext string, registered []string) ([]string, error) {
	if strings.TrimSpace(dir) == "" {
		return nil, nil
	}
	names, err := files.List(dir)
	if err != nil {
		return nil, err
	}
	root := normalizePath(dir)
	knownPaths := make(map[string]struct{}, len(registered))
	knownNames := make(map[string]struct{})
	for _, path := range registered {
		if path == "" {
			continue
		}
		norm := normalizePath(path)
		if isAbsolutePath(norm) {
			knownPaths[norm] = struct{}{}
		} else {
			knownNames[strings.ToLower(baseName(path))] = struct{}{}
		}
	}
	var orphans []string
	for _, name := range names {
		if !strings.EqualFold(extension(name), ext) {
			continue
		}
		if _, ok := knownPaths[root+`\`+strings.ToLower(name)]; ok {
			continue
		}
		if _, ok := knownNames[strings.ToLower(name)]; ok {
			continue
		}
		orphans = append(orphans, joinPath(dir, name))
	}
	sort.Strings(orphans)
	return orphans, nil
}

// normalizePath lower-cases path, uses backslashes and drops trailing
// separators.
func normalizePath(path string) string {
	path = strings.ReplaceAll(strings.TrimSpace(path), "/", `\`)
	return strings.ToLower(strings.TrimRight(path, `\`))
}

// isAbsolutePath recognizes drive-letter, rooted and UNC forms of a
// normalized path.
func isAbsolutePath(norm string) bool {
	if strings.HasPrefix(norm, `\`) {
		return true
	}
	return len(norm) >= 3 && norm[1] == ':' && norm[2] == '\\'
}

// Database paths come from the subsystem as Windows paths, so separators are
// handled explicitly instead of through path/filepath.
func baseName(path string) string {
	if i := strings.LastIndexAny(path, `\/`); i >= 0 {
		return path[i+1:]
	}
	return path
}

func extension(name string) string {
	if i := strings.LastIndex(name, "."); i >= 0 {
		return name[i:]
	}
	return ""
}

func joinPath(dir, name string) string {
	sep := string(os.PathSeparator)
	if strings.Contains(dir, `\`) {
		sep = `\`
	}
	return strings.TrimRight(dir, `\/`) + sep + name
}
