package installer

import (
	"archive/zip"
	"errors"
	"fmt"
	"io"
	"os"
	"path/filepath"
	"strings"
)

// ExtractZip extracts every entry of zipPath below dest and returns the
// number of files written. Entries whose path would resolve outside dest
// are rejected with ErrUnsafePath.
func ExtractZip(zipPath, dest string) (int, error) {
	zipReader, err := zip.OpenReader(zipPath)
	if errors.Is(err, zip.ErrInsecurePath) {
		zipReader.Close()
		return 0, fmt.Errorf("%w: %v", ErrUnsafePath, err)
	}
	if err != nil {
		if errors.Is(err, zip.ErrFormat) || errors.Is(err, zip.ErrAlgorithm) || errors.Is(err, io.ErrUnexpectedEOF) {
			return 0, fmt.Errorf("%w: %v", ErrBadZip, err)
		}
		return 0, fmt.Errorf("failed to open zip: %w", err)
	}
	defer zipReader.Close()

	root, err := filepath.Abs(dest)
	if err != nil {
		return 0, err
	}

	files := 0
	for _, file := range zipReader.File {
		destPath, err := safeJoin(root, file.Name)
		if err != nil {
			return files, err
		}

		if file.FileInfo().IsDir() {
			if err := os.MkdirAll(destPath, 0755); err != nil {
				return files, fmt.Errorf("failed to create directory: %w", err)
			}
			continue
		}

		if err := os.MkdirAll(filepath.Dir(destPath), 0755); err != nil {
			return files, fmt.Errorf("failed to create parent directory: %w", err)
		}

		if err := extractFile(file, destPath); err != nil {
			return files, err
		}
		files++
	}

	return files, nil
}

func safeJoin(root, name string) (string, error) {
	destPath := filepath.Join(root, filepath.FromSlash(name))
	rel, err := filepath.Rel(root, destPath)
	if err != nil || rel == ".." || strings.HasPrefix(rel, ".."+string(filepath.Separator)) || filepath.IsAbs(name) {
		return "", fmt.Errorf("%w: %s", ErrUnsafePath, name)
	}
	return destPath, nil
}

func extractFile(file *zip.File, destPath string) error {
	srcFile, err := file.Open()
	if err != nil {
		return fmt.Errorf("%w: failed to open %s: %v", ErrBadZip, file.Name, err)
	}
	defer srcFile.Close()

	mode := file.Mode().Perm()
	if mode == 0 {
		mode = 0644
	}
	dstFile, err := os.OpenFile(destPath, os.O_WRONLY|os.O_CREATE|os.O_TRUNC, mode)
	if err != nil {
		return fmt.Errorf("failed to create file: %w", err)
	}

	_, copyErr := io.Copy(dstFile, srcFile)
	closeErr := dstFile.Close()
	if copyErr != nil {
		if errors.Is(copyErr, zip.ErrChecksum) || errors.Is(copyErr, io.ErrUnexpectedEOF) || errors.Is(copyErr, zip.ErrFormat) {
			return fmt.Errorf("%w: %s: %v", ErrBadZip, file.Name, copyErr)
		}
		return fmt.Errorf("failed to extract %s: %w", file.Name, copyErr)
	}
	if closeErr != nil {
		return fmt.Errorf("failed to extract %s: %w", file.Name, closeErr)
	}
	return nil
}
