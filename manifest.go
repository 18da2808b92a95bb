package cocoyolo

// Image list manifests.

import (
	"fmt"
	"os"
	"path/filepath"
)

// ManifestWriter appends dataset relative image paths to a split's manifest file.
type ManifestWriter struct {
	baseDir string
	file    *os.File
	path    string
	count   int
}

// OpenManifest opens the manifest at path for appending, creating it if necessary. Paths written to
// it are made relative to baseDir.
//
// Existing content is kept, so running a conversion twice lists every image twice.
func OpenManifest(path, baseDir string) (*ManifestWriter, error) {
	absBase, err := filepath.Abs(baseDir)
	if err != nil {
		return nil, err
	}

	f, err := os.OpenFile(path, os.O_WRONLY|os.O_CREATE|os.O_APPEND, 0644)
	if err != nil {
		return nil, fmt.Errorf("cannot open manifest %q: %w", path, err)
	}

	return &ManifestWriter{baseDir: absBase, file: f, path: path}, nil
}

// ManifestLine returns the manifest entry for imagePath: the path relative to baseDir, with forward
// slashes and a "./" prefix.
func ManifestLine(baseDir, imagePath string) (string, error) {
	absImage, err := filepath.Abs(imagePath)
	if err != nil {
		return "", err
	}
	rel, err := filepath.Rel(baseDir, absImage)
	if err != nil {
		return "", fmt.Errorf("cannot make %q relative to %q: %w", imagePath, baseDir, err)
	}
	return "./" + filepath.ToSlash(rel), nil
}

// Append writes the entry for imagePath.
func (m *ManifestWriter) Append(imagePath string) error {
	line, err := ManifestLine(m.baseDir, imagePath)
	if err != nil {
		return err
	}
	if _, err := m.file.WriteString(line + "\n"); err != nil {
		return fmt.Errorf("cannot write manifest %q: %w", m.path, err)
	}
	m.count++
	return nil
}

// Count returns the number of lines appended since the manifest was opened.
func (m *ManifestWriter) Count() int {
	return m.count
}

// Close closes the manifest file.
func (m *ManifestWriter) Close() error {
	return m.file.Close()
}
