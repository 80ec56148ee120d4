package importer

import (
	"io"
	"os"
	"path/filepath"
	"sort"

	apperrors "parking-report-importer/pkg/errors"
	"parking-report-importer/pkg/logger"
)

// DefaultFilePattern matches the operator's merchant report exports.
const DefaultFilePattern = "Servis__MicropaymentMerchantReport_*mParking*.xls*"

// DiscoverReports returns the report files in dir matching pattern, sorted
// for a stable walk order. Results must not depend on that order; entity
// resolution is keyed by natural names, not file identity.
func DiscoverReports(dir, pattern string) ([]string, error) {
	matches, err := filepath.Glob(filepath.Join(dir, pattern))
	if err != nil {
		return nil, apperrors.FileError(apperrors.CodeDirectoryError, dir, err)
	}

	sort.Strings(matches)
	return matches, nil
}

// EnsureDirs creates the pending/processed/error directories if absent.
func EnsureDirs(dirs ...string) error {
	for _, dir := range dirs {
		if dir == "" {
			continue
		}
		if err := os.MkdirAll(dir, 0o755); err != nil {
			return apperrors.FileError(apperrors.CodeDirectoryError, dir, err)
		}
	}
	return nil
}

// MoveFile relocates a processed or failed report into destDir, falling
// back to copy-and-remove when rename crosses filesystems. Move failures
// are logged and swallowed; they must not fail the run.
func MoveFile(path, destDir string) {
	log := logger.GetGlobalLogger().WithComponent("files")

	dest := filepath.Join(destDir, filepath.Base(path))
	if err := os.Rename(path, dest); err == nil {
		log.WithFields(logger.Fields{"file": filepath.Base(path), "dest": destDir}).Info("File moved")
		return
	}

	if err := copyFile(path, dest); err != nil {
		log.WithError(err).WithField("file", path).Error("Failed to move file")
		return
	}
	if err := os.Remove(path); err != nil {
		log.WithError(err).WithField("file", path).Warn("Failed to remove source after copy")
	}
	log.WithFields(logger.Fields{"file": filepath.Base(path), "dest": destDir}).Info("File moved")
}

func copyFile(src, dest string) error {
	in, err := os.Open(src)
	if err != nil {
		return err
	}
	defer in.Close()

	out, err := os.Create(dest)
	if err != nil {
		return err
	}

	if _, err := io.Copy(out, in); err != nil {
		out.Close()
		return err
	}
	return out.Close()
}
