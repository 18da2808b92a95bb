package cocoyolo

// Output layout of a YOLO dataset.

import (
	"fmt"
	"os"
	"path/filepath"
)

// Split is a partition of the dataset.
type Split string

// The known splits, in processing order.
const (
	Train Split = "train"
	Val   Split = "val"
	Test  Split = "test"
)

// Splits lists all splits in processing order.
var Splits = []Split{Train, Val, Test}

// PathOverrides replace the default per split output locations. Empty fields keep the default.
// Relative paths are relative to the dataset directory.
type PathOverrides struct {
	ImageDir string
	LabelDir string
	Manifest string
}

// SplitPaths are the absolute output locations of one split.
type SplitPaths struct {
	ImageDir string
	LabelDir string
	Manifest string
}

// PlanSplitPaths computes the output locations of split below baseDir. The defaults are
// images/<split>, labels/<split> and <split>.txt.
func PlanSplitPaths(baseDir string, split Split, o PathOverrides) (SplitPaths, error) {
	if baseDir == "" {
		return SplitPaths{}, fmt.Errorf("missing dataset directory")
	}

	resolve := func(override, def string) (string, error) {
		p := override
		if p == "" {
			p = def
		}
		if !filepath.IsAbs(p) {
			p = filepath.Join(baseDir, p)
		}
		return filepath.Abs(p)
	}

	var p SplitPaths
	var err error
	if p.ImageDir, err = resolve(o.ImageDir, filepath.Join("images", string(split))); err != nil {
		return SplitPaths{}, err
	}
	if p.LabelDir, err = resolve(o.LabelDir, filepath.Join("labels", string(split))); err != nil {
		return SplitPaths{}, err
	}
	if p.Manifest, err = resolve(o.Manifest, string(split)+".txt"); err != nil {
		return SplitPaths{}, err
	}

	return p, nil
}

// Ensure creates the image and label directories and the manifest's parent directory. Existing
// directories are left untouched.
func (p SplitPaths) Ensure() error {
	for _, dir := range []string{p.ImageDir, p.LabelDir, filepath.Dir(p.Manifest)} {
		if err := os.MkdirAll(dir, 0755); err != nil {
			return fmt.Errorf("cannot create directory %q: %w", dir, err)
		}
	}
	return nil
}

// ImagePath returns the local path for the image file fileName.
func (p SplitPaths) ImagePath(fileName string) string {
	return filepath.Join(p.ImageDir, filepath.FromSlash(fileName))
}

// LabelPath returns the label file path for the image file fileName: the image name with a .txt
// extension, in the label directory.
func (p SplitPaths) LabelPath(fileName string) string {
	return filepath.Join(p.LabelDir, replaceExt(filepath.FromSlash(fileName), ".txt"))
}
