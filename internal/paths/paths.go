// Package paths holds the filesystem rules shared by the detector and the pipeline:
// which files are eligible, how outputs are named, and how originals are archived.
package paths

import (
	"errors"
	"fmt"
	"io"
	"os"
	"path/filepath"
	"sort"
	"strings"
	"syscall"
	"time"

	"github.com/Grabemic/Screenshot-wizard/internal/domain"
)

// TimestampLayout is appended to a stem when the preferred name is taken.
const TimestampLayout = "20060102_150405"

// Allowed extensions (lowercase, with '.').
var eligibleExts = map[string]domain.Kind{
	".png":  domain.KindImage,
	".jpg":  domain.KindImage,
	".jpeg": domain.KindImage,
	".pdf":  domain.KindPagedDocument,
}

// Classify returns the kind of path based on its extension.
func Classify(path string) (domain.Kind, bool) {
	kind, ok := eligibleExts[strings.ToLower(filepath.Ext(path))]
	return kind, ok
}

// IsEligible reports whether path has an allowed extension.
func IsEligible(path string) bool {
	_, ok := Classify(path)
	return ok
}

// Eligible classifies path, failing with domain.ErrUnsupportedFile otherwise.
func Eligible(path string) (domain.EligiblePath, error) {
	kind, ok := Classify(path)
	if !ok {
		return domain.EligiblePath{}, fmt.Errorf("%s: %w", filepath.Base(path), domain.ErrUnsupportedFile)
	}
	return domain.EligiblePath{Path: path, Kind: kind}, nil
}

// MimeType returns the image MIME type for path.
func MimeType(path string) string {
	switch strings.ToLower(filepath.Ext(path)) {
	case ".jpg", ".jpeg":
		return "image/jpeg"
	case ".pdf":
		return "application/pdf"
	default:
		return "image/png"
	}
}

// Stem returns the file name without directory and extension.
func Stem(path string) string {
	base := filepath.Base(path)
	return strings.TrimSuffix(base, filepath.Ext(base))
}

// OutputName is the source stem with the output extension.
func OutputName(source, ext string) string {
	return Stem(source) + ext
}

// UniquePath returns dir/name when free. Otherwise it appends the timestamp
// now to the stem, and a numeric suffix after that if still taken.
func UniquePath(dir, name string, now time.Time) string {
	candidate := filepath.Join(dir, name)
	if !exists(candidate) {
		return candidate
	}

	ext := filepath.Ext(name)
	stem := strings.TrimSuffix(name, ext) + "_" + now.Format(TimestampLayout)
	candidate = filepath.Join(dir, stem+ext)
	for n := 1; exists(candidate); n++ {
		candidate = filepath.Join(dir, fmt.Sprintf("%s_%d%s", stem, n, ext))
	}
	return candidate
}

// Move relocates src to dst. Renames across filesystems fall back to copy then remove.
func Move(src, dst string) error {
	if err := os.MkdirAll(filepath.Dir(dst), 0o755); err != nil {
		return domain.FilesystemError("create destination directory", err)
	}
	err := os.Rename(src, dst)
	if err == nil {
		return nil
	}
	if !errors.Is(err, syscall.EXDEV) {
		return domain.FilesystemError(fmt.Sprintf("move %s", filepath.Base(src)), err)
	}
	if err := copyFile(src, dst); err != nil {
		return domain.FilesystemError(fmt.Sprintf("copy %s", filepath.Base(src)), err)
	}
	if err := os.Remove(src); err != nil {
		return domain.FilesystemError(fmt.Sprintf("remove %s after copy", filepath.Base(src)), err)
	}
	return nil
}

// Archive moves src into archiveDir under a collision-free name and returns the new path.
func Archive(src, archiveDir string, now time.Time) (string, error) {
	dst := UniquePath(archiveDir, filepath.Base(src), now)
	if err := Move(src, dst); err != nil {
		return "", err
	}
	return dst, nil
}

// ListEligible returns the eligible regular files in dir, oldest modification first.
func ListEligible(dir string) ([]string, error) {
	entries, err := os.ReadDir(dir)
	if err != nil {
		return nil, domain.FilesystemError("list "+dir, err)
	}

	type candidate struct {
		path    string
		modTime time.Time
	}
	var found []candidate
	for _, e := range entries {
		if !e.Type().IsRegular() || strings.HasPrefix(e.Name(), ".") || !IsEligible(e.Name()) {
			continue
		}
		info, err := e.Info()
		if err != nil {
			continue // removed since ReadDir
		}
		found = append(found, candidate{path: filepath.Join(dir, e.Name()), modTime: info.ModTime()})
	}

	sort.Slice(found, func(i, j int) bool {
		if found[i].modTime.Equal(found[j].modTime) {
			return found[i].path < found[j].path
		}
		return found[i].modTime.Before(found[j].modTime)
	})

	out := make([]string, len(found))
	for i, c := range found {
		out[i] = c.path
	}
	return out, nil
}

// CleanupEmptyDirs removes empty subdirectories of dir, deepest first. dir itself is kept.
func CleanupEmptyDirs(dir string) (int, error) {
	var dirs []string
	err := filepath.WalkDir(dir, func(p string, d os.DirEntry, err error) error {
		if err != nil {
			return err
		}
		if d.IsDir() && p != dir {
			dirs = append(dirs, p)
		}
		return nil
	})
	if err != nil {
		return 0, domain.FilesystemError("walk "+dir, err)
	}

	removed := 0
	for i := len(dirs) - 1; i >= 0; i-- {
		entries, err := os.ReadDir(dirs[i])
		if err != nil || len(entries) > 0 {
			continue
		}
		if os.Remove(dirs[i]) == nil {
			removed++
		}
	}
	return removed, nil
}

func exists(path string) bool {
	_, err := os.Lstat(path)
	return err == nil
}

func copyFile(src, dst string) error {
	in, err := os.Open(src)
	if err != nil {
		return err
	}
	defer in.Close()

	info, err := in.Stat()
	if err != nil {
		return err
	}

	out, err := os.OpenFile(dst, os.O_WRONLY|os.O_CREATE|os.O_EXCL, info.Mode().Perm())
	if err != nil {
		return err
	}
	if _, err := io.Copy(out, in); err != nil {
		out.Close()
		os.Remove(dst)
		return err
	}
	if err := out.Sync(); err != nil {
		out.Close()
		os.Remove(dst)
		return err
	}
	return out.Close()
}
