package archive

import (
	"archive/tar"
	"compress/gzip"
	"fmt"
	"io"
	"os"
	"path/filepath"
	"strings"
)

// TarGz packs a flat staging directory into a .tar.gz and back. The archive
// member names are relative to the staging directory root, so an extracted
// archive reproduces the staging layout exactly.
type TarGz struct{}

func NewTarGz() *TarGz {
	return &TarGz{}
}

// Pack writes the archive to destPath + ".partial" first and renames it into
// place, so a readable archive at destPath always represents a complete pack.
func (t *TarGz) Pack(sourceDir, destPath string) error {
	partialPath := destPath + ".partial"

	if err := t.packTo(sourceDir, partialPath); err != nil {
		os.Remove(partialPath)
		return err
	}

	if err := os.Rename(partialPath, destPath); err != nil {
		os.Remove(partialPath)
		return fmt.Errorf("failed to finalize archive: %w", err)
	}

	return nil
}

func (t *TarGz) packTo(sourceDir, destPath string) error {
	destFile, err := os.Create(destPath)
	if err != nil {
		return fmt.Errorf("failed to create archive file: %w", err)
	}
	defer destFile.Close()

	gzipWriter, err := gzip.NewWriterLevel(destFile, gzip.BestCompression)
	if err != nil {
		return fmt.Errorf("failed to create gzip writer: %w", err)
	}

	tarWriter := tar.NewWriter(gzipWriter)

	entries, err := os.ReadDir(sourceDir)
	if err != nil {
		return fmt.Errorf("failed to read staging directory: %w", err)
	}

	for _, entry := range entries {
		if entry.IsDir() {
			continue
		}
		if err := t.addFile(tarWriter, sourceDir, entry.Name()); err != nil {
			return err
		}
	}

	if err := tarWriter.Close(); err != nil {
		return fmt.Errorf("failed to close tar writer: %w", err)
	}
	if err := gzipWriter.Close(); err != nil {
		return fmt.Errorf("failed to close gzip writer: %w", err)
	}
	return destFile.Close()
}

func (t *TarGz) addFile(tarWriter *tar.Writer, sourceDir, name string) error {
	path := filepath.Join(sourceDir, name)

	info, err := os.Stat(path)
	if err != nil {
		return fmt.Errorf("failed to stat %s: %w", name, err)
	}

	header, err := tar.FileInfoHeader(info, "")
	if err != nil {
		return fmt.Errorf("failed to build tar header for %s: %w", name, err)
	}
	header.Name = name

	if err := tarWriter.WriteHeader(header); err != nil {
		return fmt.Errorf("failed to write tar header for %s: %w", name, err)
	}

	file, err := os.Open(path)
	if err != nil {
		return fmt.Errorf("failed to open %s: %w", name, err)
	}
	defer file.Close()

	if _, err := io.Copy(tarWriter, file); err != nil {
		return fmt.Errorf("failed to archive %s: %w", name, err)
	}

	return nil
}

// Unpack extracts an archive into destDir, rejecting member names that would
// escape it.
func (t *TarGz) Unpack(sourcePath, destDir string) error {
	sourceFile, err := os.Open(sourcePath)
	if err != nil {
		return fmt.Errorf("failed to open archive: %w", err)
	}
	defer sourceFile.Close()

	gzipReader, err := gzip.NewReader(sourceFile)
	if err != nil {
		return fmt.Errorf("failed to create gzip reader: %w", err)
	}
	defer gzipReader.Close()

	if err := os.MkdirAll(destDir, 0o755); err != nil {
		return fmt.Errorf("failed to create destination directory: %w", err)
	}

	tarReader := tar.NewReader(gzipReader)
	for {
		header, err := tarReader.Next()
		if err == io.EOF {
			return nil
		}
		if err != nil {
			return fmt.Errorf("failed to read tar entry: %w", err)
		}

		if filepath.IsAbs(header.Name) || strings.Contains(header.Name, "..") {
			return fmt.Errorf("archive member %q escapes destination", header.Name)
		}

		switch header.Typeflag {
		case tar.TypeDir:
			if err := os.MkdirAll(filepath.Join(destDir, header.Name), 0o755); err != nil {
				return fmt.Errorf("failed to create directory %s: %w", header.Name, err)
			}
		case tar.TypeReg:
			if err := t.extractFile(tarReader, filepath.Join(destDir, header.Name), header); err != nil {
				return err
			}
		default:
			return fmt.Errorf("unsupported archive member type for %q", header.Name)
		}
	}
}

func (t *TarGz) extractFile(tarReader *tar.Reader, path string, header *tar.Header) error {
	if err := os.MkdirAll(filepath.Dir(path), 0o755); err != nil {
		return fmt.Errorf("failed to create parent directory for %s: %w", header.Name, err)
	}

	destFile, err := os.OpenFile(path, os.O_CREATE|os.O_TRUNC|os.O_WRONLY, os.FileMode(header.Mode).Perm())
	if err != nil {
		return fmt.Errorf("failed to create %s: %w", header.Name, err)
	}
	defer destFile.Close()

	if _, err := io.Copy(destFile, tarReader); err != nil {
		return fmt.Errorf("failed to extract %s: %w", header.Name, err)
	}

	return destFile.Close()
}
