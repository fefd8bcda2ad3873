package validation

import (
	"fmt"
	"log/slog"
	"os"
	"path/filepath"
	"strings"
)

// FileValidator checks extract files and output locations before a run
// touches them, so path problems surface as clear errors instead of
// mid-pipeline failures.
type FileValidator struct {
	logger *slog.Logger
}

// NewFileValidator creates a new file validator
func NewFileValidator(logger *slog.Logger) *FileValidator {
	if logger == nil {
		logger = slog.Default()
	}
	return &FileValidator{
		logger: logger,
	}
}

// ValidateExtractFile checks that an extract exists, is a regular file,
// is not empty, and carries the expected extension.
func (v *FileValidator) ValidateExtractFile(path, wantExt string) error {
	info, err := os.Stat(path)
	if os.IsNotExist(err) {
		return fmt.Errorf("extract file does not exist: %s", path)
	}
	if err != nil {
		return fmt.Errorf("cannot access extract file %s: %w", path, err)
	}
	if info.IsDir() {
		return fmt.Errorf("extract path is a directory, not a file: %s", path)
	}
	if info.Size() == 0 {
		return fmt.Errorf("extract file is empty: %s", path)
	}
	if ext := strings.ToLower(filepath.Ext(path)); ext != wantExt {
		return fmt.Errorf("extract file %s has extension %q, expected %q", path, ext, wantExt)
	}

	v.logger.Debug("extract file validated",
		"path", path,
		"size_bytes", info.Size())
	return nil
}

// ValidateOutputDirectory ensures the output directory exists and is
// writable, creating it when missing.
func (v *FileValidator) ValidateOutputDirectory(dir string) error {
	info, err := os.Stat(dir)
	if os.IsNotExist(err) {
		if err := os.MkdirAll(dir, 0755); err != nil {
			return fmt.Errorf("cannot create output directory %s: %w", dir, err)
		}
		v.logger.Info("created output directory", "dir", dir)
		return v.checkWritable(dir)
	}
	if err != nil {
		return fmt.Errorf("cannot access output directory %s: %w", dir, err)
	}
	if !info.IsDir() {
		return fmt.Errorf("output path is not a directory: %s", dir)
	}
	return v.checkWritable(dir)
}

func (v *FileValidator) checkWritable(dir string) error {
	probe := filepath.Join(dir, ".write_probe")
	f, err := os.Create(probe)
	if err != nil {
		return fmt.Errorf("output directory %s is not writable: %w", dir, err)
	}
	f.Close()
	os.Remove(probe)
	return nil
}
