package internal

import (
	"fmt"
	"os"
	"path/filepath"
	"strings"
	"time"

	"github.com/dustin/go-humanize"
)

// Disk stores uploaded files in a single flat directory.
type Disk struct {
	Root string
}

func NewDisk(root string) (*Disk, error) {
	abs, err := filepath.Abs(root)
	if err != nil {
		return nil, err
	}
	if err := os.MkdirAll(abs, 0o750); err != nil {
		return nil, fmt.Errorf("create storage dir '%s': %w", abs, err)
	}
	return &Disk{Root: abs}, nil
}

// Path returns where a generated file name lives on disk.
func (d *Disk) Path(name string) string {
	return filepath.Join(d.Root, name)
}

// Remove unlinks a stored file. The caller decides whether a failure matters.
func (d *Disk) Remove(path string) error {
	if err := os.Remove(path); err != nil {
		return fmt.Errorf("unlink '%s': %w", path, err)
	}
	return nil
}

// Exists reports whether a stored file is still present and regular.
func (d *Disk) Exists(path string) bool {
	info, err := os.Stat(path)
	return err == nil && info.Mode().IsRegular()
}

// GenerateFileName builds <base>_<M-D-YYYY>_<ms><ext> from the client file name.
// ms is the millisecond-of-second, so two uploads of the same name within the
// same day can collide.
func GenerateFileName(original string, at time.Time) string {
	base := filepath.Base(strings.ReplaceAll(original, `\`, "/"))
	if base == "." || base == "/" || base == ".." {
		base = "upload"
	}

	ext := filepath.Ext(base)
	name := strings.TrimSuffix(base, ext)
	if name == "" {
		// dotfiles like ".env" have no extension
		name, ext = base, ""
	}

	date := at.Format("1-2-2006")
	ms := at.UTC().Nanosecond() / int(time.Millisecond)

	return fmt.Sprintf("%s_%s_%d%s", name, date, ms, ext)
}

// FormatSize renders a byte count with SI units, e.g. "1.5 kB".
func FormatSize(size int64) string {
	if size < 0 {
		size = 0
	}
	return humanize.Bytes(uint64(size))
}
