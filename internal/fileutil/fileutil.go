// Package fileutil copies and describes database files.
package fileutil

import (
	"bytes"
	"crypto/sha256"
	"fmt"
	"io"
	"os"
	"path/filepath"
	"strings"
	"time"
)

// CopyFileVerified copies src to dst through a ".partial" sibling, then reads
// the copy back and compares its SHA-256 with the bytes read from src. dst
// only appears once the check passes.
func CopyFileVerified(src, dst string) error {
	in, err := os.Open(src)
	if err != nil {
		return err
	}
	defer in.Close()

	partial := dst + ".partial"
	out, err := os.OpenFile(partial, os.O_CREATE|os.O_WRONLY|os.O_TRUNC, 0o644)
	if err != nil {
		return err
	}
	srcSum := sha256.New()
	written, copyErr := io.Copy(out, io.TeeReader(in, srcSum))
	if copyErr == nil {
		copyErr = out.Sync()
	}
	if closeErr := out.Close(); copyErr == nil {
		copyErr = closeErr
	}
	if copyErr != nil {
		_ = os.Remove(partial)
		return copyErr
	}

	copySum, size, err := hashFile(partial)
	if err != nil {
		_ = os.Remove(partial)
		return err
	}
	if size != written || !bytes.Equal(copySum, srcSum.Sum(nil)) {
		_ = os.Remove(partial)
		return fmt.Errorf("verify copy of %s: read back %d of %d bytes with a different digest", src, size, written)
	}
	return os.Rename(partial, dst)
}

func hashFile(path string) ([]byte, int64, error) {
	f, err := os.Open(path)
	if err != nil {
		return nil, 0, err
	}
	defer f.Close()
	h := sha256.New()
	n, err := io.Copy(h, f)
	if err != nil {
		return nil, 0, err
	}
	return h.Sum(nil), n, nil
}

// BackupFile copies src into dir under a timestamped name and returns the
// backup path. dir is created if needed.
func BackupFile(src, dir string, now time.Time) (string, error) {
	if err := os.MkdirAll(dir, 0o755); err != nil {
		return "", fmt.Errorf("create backup directory: %w", err)
	}
	base := baseName(src)
	ext := filepath.Ext(base)
	name := fmt.Sprintf("%s-%s%s", strings.TrimSuffix(base, ext), now.UTC().Format("20060102T150405Z"), ext)
	dst := filepath.Join(dir, name)
	if err := CopyFileVerified(src, dst); err != nil {
		return "", fmt.Errorf("backup %s: %w", src, err)
	}
	return dst, nil
}

// baseName handles both separators so Windows paths reported by the
// subsystem resolve on any host.
func baseName(path string) string {
	if i := strings.LastIndexAny(path, `\/`); i >= 0 {
		return path[i+1:]
	}
	return path
}

// Metadata describes a file on disk.
type Metadata struct {
	Path     string
	Exists   bool
	Size     int64
	Created  time.Time
	Modified time.Time
}

// Describe stats path. A missing file is reported with Exists false and no
// error.
func Describe(path string) (Metadata, error) {
	meta := Metadata{Path: path}
	info, err := os.Stat(path)
	if err != nil {
		if os.IsNotExist(err) {
			return meta, nil
		}
		return meta, err
	}
	meta.Exists = true
	meta.Size = info.Size()
	meta.Modified = info.ModTime()
	meta.Created = creationTime(info)
	return meta, nil
}
