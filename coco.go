package cocoyolo

// COCO specific functionality.

import (
	"encoding/json"
	"fmt"
	"log"
	"os"
)

// COCOCategory is a single entry of the "categories" array.
type COCOCategory struct {
	ID            int64  `json:"id"`
	Name          string `json:"name"`
	Supercategory string `json:"supercategory,omitempty"`
}

// COCOImage is a single entry of the "images" array.
type COCOImage struct {
	ID        int64  `json:"id"`
	FileName  string `json:"file_name"`
	CocoURL   string `json:"coco_url,omitempty"`
	FlickrURL string `json:"flickr_url,omitempty"`
	Width     int    `json:"width"`
	Height    int    `json:"height"`
}

// URL returns the source URL of the image, preferring coco_url over flickr_url.
func (img COCOImage) URL() string {
	if img.CocoURL != "" {
		return img.CocoURL
	}
	return img.FlickrURL
}

// COCOAnnotation is a single entry of the "annotations" array. Only the bounding box related fields
// are decoded.
type COCOAnnotation struct {
	ID         int64     `json:"id"`
	ImageID    int64     `json:"image_id"`
	CategoryID int64     `json:"category_id"`
	BBox       []float64 `json:"bbox"` // x, y, width, height in pixels.
}

// Box returns the bounding box as an array. It must only be called on validated annotations.
func (a COCOAnnotation) Box() [4]float64 {
	return [4]float64{a.BBox[0], a.BBox[1], a.BBox[2], a.BBox[3]}
}

// COCODataset is the top-level structure of a COCO annotation file.
type COCODataset struct {
	Images      []COCOImage      `json:"images"`
	Annotations []COCOAnnotation `json:"annotations"`
	Categories  []COCOCategory   `json:"categories"`
}

// COCOIndex is the in-memory index of one COCO annotation file.
type COCOIndex struct {
	Categories []COCOCategory // The categories, restricted to the filter if one is active.
	Images     []COCOImage    // The images in source order.
	Dropped    int            // The number of annotations removed while loading.

	byImage map[int64][]COCOAnnotation
}

// Annotations returns the annotations of the image with the given ID, in source order.
func (idx *COCOIndex) Annotations(imageID int64) []COCOAnnotation {
	return idx.byImage[imageID]
}

// NumAnnotations returns the number of retained annotations.
func (idx *COCOIndex) NumAnnotations() int {
	n := 0
	for _, a := range idx.byImage {
		n += len(a)
	}
	return n
}

// Category returns the category with the given ID.
func (idx *COCOIndex) Category(id int64) (COCOCategory, bool) {
	for _, c := range idx.Categories {
		if c.ID == id {
			return c, true
		}
	}
	return COCOCategory{}, false
}

// LoadCOCO reads and parses the COCO annotations from the file at path and indexes them by image.
//
// If filter is active, annotations of categories not named by the filter are removed. Images are
// never removed, even if none of their annotations remain.
func LoadCOCO(path string, filter CategoryFilter) (*COCOIndex, error) {
	var data COCODataset
	if err := readCOCO(path, &data); err != nil {
		return nil, err
	}

	idx, err := indexCOCO(data, filter)
	if err != nil {
		return nil, fmt.Errorf("invalid COCO input in %q: %w", path, err)
	}

	return idx, nil
}

// LoadCOCOCategories reads only the categories of the COCO file at path, restricted to filter.
func LoadCOCOCategories(path string, filter CategoryFilter) ([]COCOCategory, error) {
	var data struct {
		Categories []COCOCategory `json:"categories"`
	}
	if err := readCOCO(path, &data); err != nil {
		return nil, err
	}
	return filterCategories(data.Categories, filter), nil
}

func readCOCO(path string, v interface{}) error {
	enc, err := os.ReadFile(path)
	if err != nil {
		return err
	}
	if err := json.Unmarshal(enc, v); err != nil {
		return fmt.Errorf("failed to parse COCO input from %q: %w", path, err)
	}
	return nil
}

// filterCategories returns the categories named by filter, or all of them if it is inactive.
func filterCategories(categories []COCOCategory, filter CategoryFilter) []COCOCategory {
	if !filter.Active() {
		return categories
	}
	keep := filter.CategoryIDs(categories)
	cats := make([]COCOCategory, 0, len(keep))
	for _, c := range categories {
		if keep[c.ID] {
			cats = append(cats, c)
		}
	}
	return cats
}

// indexCOCO validates data and builds the per image lookup, applying filter.
//
// Only a bbox without four values is an error. Annotations of unknown images or categories are
// dropped, and of several images with the same ID only the first is kept.
func indexCOCO(data COCODataset, filter CategoryFilter) (*COCOIndex, error) {
	idx := &COCOIndex{
		Categories: filterCategories(data.Categories, filter),
		Images:     make([]COCOImage, 0, len(data.Images)),
		byImage:    make(map[int64][]COCOAnnotation, len(data.Images)),
	}

	images := make(map[int64]bool, len(data.Images))
	for _, img := range data.Images {
		if images[img.ID] {
			log.Printf("Ignoring image %q: duplicate image id %d", img.FileName, img.ID)
			continue
		}
		images[img.ID] = true
		idx.Images = append(idx.Images, img)
	}

	known := make(map[int64]bool, len(data.Categories))
	for _, c := range data.Categories {
		known[c.ID] = true
	}
	keep := make(map[int64]bool, len(idx.Categories))
	for _, c := range idx.Categories {
		keep[c.ID] = true
	}

	var unknownCategory, unknownImage int
	for _, a := range data.Annotations {
		if len(a.BBox) != 4 {
			return nil, fmt.Errorf("annotation %d: bbox has %d values, want 4", a.ID, len(a.BBox))
		}

		switch {
		case !images[a.ImageID]:
			unknownImage++
			idx.Dropped++
		case !known[a.CategoryID]:
			unknownCategory++
			idx.Dropped++
		case !keep[a.CategoryID]:
			idx.Dropped++
		default:
			idx.byImage[a.ImageID] = append(idx.byImage[a.ImageID], a)
		}
	}
	if unknownImage > 0 {
		log.Printf("Dropped %d annotations with an unknown image id", unknownImage)
	}
	if unknownCategory > 0 {
		log.Printf("Dropped %d annotations with an unknown category id", unknownCategory)
	}

	return idx, nil
}
