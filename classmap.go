package cocoyolo

// Output class IDs and the dataset descriptor.

import (
	"fmt"
	"os"
	"path/filepath"
	"sort"

	"gopkg.in/yaml.v3"
)

// ClassMap assigns the output class ID for each COCO category.
type ClassMap struct {
	ids   map[int64]int64
	names map[int64]string // Output ID to category name.
}

// NewClassMap collects the categories of all splits. If contiguous is true, categories are
// numbered from zero in order of their COCO IDs; otherwise the COCO IDs are kept.
//
// Categories with the same ID in several splits are expected to share their name; the first name
// seen wins.
func NewClassMap(categories []COCOCategory, contiguous bool) *ClassMap {
	names := make(map[int64]string)
	for _, c := range categories {
		if _, ok := names[c.ID]; !ok {
			names[c.ID] = c.Name
		}
	}

	cocoIDs := make([]int64, 0, len(names))
	for id := range names {
		cocoIDs = append(cocoIDs, id)
	}
	sort.Slice(cocoIDs, func(i, j int) bool { return cocoIDs[i] < cocoIDs[j] })

	m := &ClassMap{
		ids:   make(map[int64]int64, len(cocoIDs)),
		names: make(map[int64]string, len(cocoIDs)),
	}
	for i, id := range cocoIDs {
		out := id
		if contiguous {
			out = int64(i)
		}
		m.ids[id] = out
		m.names[out] = names[id]
	}

	return m
}

// ClassID returns the output ID for a COCO category ID. Unknown categories keep their ID.
func (m *ClassMap) ClassID(categoryID int64) int64 {
	if id, ok := m.ids[categoryID]; ok {
		return id
	}
	return categoryID
}

// Names returns the category names keyed by output ID.
func (m *ClassMap) Names() map[int64]string {
	return m.names
}

// NC returns the number of classes a trainer has to expect: one more than the highest output ID.
// Without remapping, COCO IDs have gaps and NC exceeds the number of categories.
func (m *ClassMap) NC() int {
	nc := 0
	for id := range m.names {
		if int(id)+1 > nc {
			nc = int(id) + 1
		}
	}
	return nc
}

// unusedClassName names the output IDs no category maps to.
func unusedClassName(id int64) string {
	return fmt.Sprintf("unused%d", id)
}

// DatasetDescriptor is the data.yaml file read by YOLO training tools.
type DatasetDescriptor struct {
	Path  string           `yaml:"path"`
	Train string           `yaml:"train,omitempty"`
	Val   string           `yaml:"val,omitempty"`
	Test  string           `yaml:"test,omitempty"`
	NC    int              `yaml:"nc"`
	Names map[int64]string `yaml:"names"`
}

// NewDatasetDescriptor describes the dataset at baseDir with the given split manifests and classes.
// Manifest paths are stored relative to baseDir where possible. Names covers every ID below nc;
// IDs without a category get a placeholder name.
func NewDatasetDescriptor(baseDir string, manifests map[Split]string, classes *ClassMap) (
	DatasetDescriptor, error) {

	absBase, err := filepath.Abs(baseDir)
	if err != nil {
		return DatasetDescriptor{}, err
	}

	d := DatasetDescriptor{
		Path:  absBase,
		NC:    classes.NC(),
		Names: make(map[int64]string, classes.NC()),
	}
	for id := int64(0); id < int64(d.NC); id++ {
		name, ok := classes.Names()[id]
		if !ok {
			name = unusedClassName(id)
		}
		d.Names[id] = name
	}

	for split, manifest := range manifests {
		p := manifest
		if rel, err := filepath.Rel(absBase, manifest); err == nil {
			p = filepath.ToSlash(rel)
		}
		switch split {
		case Train:
			d.Train = p
		case Val:
			d.Val = p
		case Test:
			d.Test = p
		}
	}

	return d, nil
}

// WriteDatasetDescriptor writes d as YAML to path.
func WriteDatasetDescriptor(path string, d DatasetDescriptor) error {
	enc, err := yaml.Marshal(d)
	if err != nil {
		return err
	}
	if err := os.WriteFile(path, enc, 0644); err != nil {
		return fmt.Errorf("cannot write file %q: %w", path, err)
	}
	return nil
}
