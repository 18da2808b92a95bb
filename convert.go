package cocoyolo

// Conversion of COCO splits to a YOLO dataset.

import (
	"fmt"
	"log"
	"path/filepath"
)

// SplitConfig configures the input and output locations of one split.
type SplitConfig struct {
	Split          Split
	AnnotationPath string // The COCO annotation file. The split is skipped if empty.
	Paths          PathOverrides
}

// Config holds everything a conversion run needs. It is built once at startup.
type Config struct {
	DatasetDir string // The output root.
	Splits     []SplitConfig
	Filter     CategoryFilter // Empty keeps all categories.

	Fetcher Fetcher       // Used for images missing locally. Nil disables downloads.
	Resize  ResizeOptions // Applied to downloaded images.

	RemapIDs     bool   // Number the output classes contiguously from zero.
	DataYAML     bool   // Write <DatasetDir>/data.yaml.
	PreviewDir   string // Where to write preview images; empty disables previews.
	PreviewLimit int    // The max. number of previews per split.

	Metrics *Metrics    // Optional run counters.
	Logger  *log.Logger // Defaults to the standard logger.
}

// Validate checks the configuration for errors that must stop the run before it starts.
func (c *Config) Validate() error {
	if c.DatasetDir == "" {
		return fmt.Errorf("missing dataset directory")
	}

	seen := make(map[Split]bool, len(c.Splits))
	for _, s := range c.Splits {
		switch s.Split {
		case Train, Val, Test:
		default:
			return fmt.Errorf("unknown split %q", s.Split)
		}
		if seen[s.Split] {
			return fmt.Errorf("split %q configured more than once", s.Split)
		}
		seen[s.Split] = true
	}

	if c.PreviewLimit < 0 {
		return fmt.Errorf("invalid preview limit %d", c.PreviewLimit)
	}
	return nil
}

// SplitSummary reports the outcome for one split.
type SplitSummary struct {
	Split           Split
	Skipped         bool  // The annotations could not be loaded or no file was configured.
	Err             error // The reason the split was skipped, if any.
	Images          int   // Manifest lines written.
	Existing        int
	Downloaded      int
	FailedDownloads int
	Labels          int // Label files written.
	Annotations     int // Label lines written.
	Dropped         int // Annotations removed while loading.
	Manifest        string
}

// Summary reports the outcome of a run, in split order.
type Summary []SplitSummary

// Converter turns the COCO splits of a Config into a YOLO dataset.
type Converter struct {
	cfg          Config
	log          *log.Logger
	materializer *ImageMaterializer
}

// NewConverter validates cfg and returns a converter for it.
func NewConverter(cfg Config) (*Converter, error) {
	if err := cfg.Validate(); err != nil {
		return nil, err
	}

	logger := cfg.Logger
	if logger == nil {
		logger = log.Default()
	}

	return &Converter{
		cfg:          cfg,
		log:          logger,
		materializer: &ImageMaterializer{Fetcher: cfg.Fetcher, Resize: cfg.Resize},
	}, nil
}

// plannedSplit is a split whose categories were loaded successfully.
type plannedSplit struct {
	SplitConfig
	paths   SplitPaths
	summary *SplitSummary
}

// Run converts all configured splits, one after the other.
//
// The categories of all splits are read first, since the output class IDs depend on all of them.
// The full annotations of a split are only loaded while it is converted. A split whose annotations
// cannot be loaded is logged and skipped. Images that cannot be fetched are logged and left
// missing; their labels and manifest entries are still written. Errors writing labels or manifests
// end the run and are returned along with the summary so far.
func (c *Converter) Run() (Summary, error) {
	summary := make(Summary, len(c.cfg.Splits))

	var planned []plannedSplit
	var categories []COCOCategory
	for i, sc := range c.cfg.Splits {
		s := &summary[i]
		s.Split = sc.Split

		if sc.AnnotationPath == "" {
			s.Skipped = true
			continue
		}

		paths, err := PlanSplitPaths(c.cfg.DatasetDir, sc.Split, sc.Paths)
		if err != nil {
			return summary, err
		}

		cats, err := LoadCOCOCategories(sc.AnnotationPath, c.cfg.Filter)
		if err != nil {
			c.skip(s, err)
			continue
		}

		categories = append(categories, cats...)
		planned = append(planned, plannedSplit{SplitConfig: sc, paths: paths, summary: s})
	}

	classes := NewClassMap(categories, c.cfg.RemapIDs)
	var classID func(int64) int64
	if c.cfg.RemapIDs {
		classID = classes.ClassID
	}

	manifests := make(map[Split]string, len(planned))
	for _, ps := range planned {
		c.log.Printf("Loading %s annotations from %q", ps.Split, ps.AnnotationPath)
		idx, err := LoadCOCO(ps.AnnotationPath, c.cfg.Filter)
		if err != nil {
			c.skip(ps.summary, err)
			continue
		}
		ps.summary.Dropped = idx.Dropped

		if err := c.convertSplit(ps, idx, classID); err != nil {
			return summary, err
		}
		manifests[ps.Split] = ps.paths.Manifest
	}

	if c.cfg.DataYAML && len(manifests) > 0 {
		d, err := NewDatasetDescriptor(c.cfg.DatasetDir, manifests, classes)
		if err != nil {
			return summary, err
		}
		path := filepath.Join(c.cfg.DatasetDir, "data.yaml")
		if err := WriteDatasetDescriptor(path, d); err != nil {
			return summary, err
		}
		c.log.Printf("Wrote the dataset descriptor to %q", path)
	}

	return summary, nil
}

func (c *Converter) skip(s *SplitSummary, err error) {
	c.log.Printf("Failed to load the %s annotations, skipping the split: %v", s.Split, err)
	s.Skipped = true
	s.Err = err
	if c.cfg.Metrics != nil {
		c.cfg.Metrics.skipped()
	}
}

// convertSplit processes every image of a loaded split in source order.
func (c *Converter) convertSplit(ps plannedSplit, idx *COCOIndex, classID func(int64) int64) (err error) {
	s := ps.summary
	s.Manifest = ps.paths.Manifest

	if err := ps.paths.Ensure(); err != nil {
		return err
	}

	manifest, err := OpenManifest(ps.paths.Manifest, c.cfg.DatasetDir)
	if err != nil {
		return err
	}
	defer closeWithErrCheck(manifest, &err)
	defer func() { s.Images = manifest.Count() }()

	c.log.Printf("Converting %d %s images with %d annotations", len(idx.Images), ps.Split,
		idx.NumAnnotations())

	metrics := c.cfg.Metrics
	if metrics != nil {
		metrics.dropped(ps.Split, idx.Dropped)
	}

	previews := 0
	for _, img := range idx.Images {
		imagePath := ps.paths.ImagePath(img.FileName)

		status, err := c.materializer.Materialize(img, imagePath)
		switch status {
		case ImageExisting:
			s.Existing++
		case ImageDownloaded:
			s.Downloaded++
		case ImageFailed:
			s.FailedDownloads++
			c.log.Printf("Failed to fetch %q: %v", img.FileName, err)
		}
		if metrics != nil {
			metrics.image(ps.Split, status)
		}

		labels, ok := c.convertImage(img, imagePath, idx.Annotations(img.ID), classID)
		if err := WriteYOLOLabel(ps.paths.LabelPath(img.FileName), labels); err != nil {
			return err
		}
		s.Labels++
		s.Annotations += len(labels.Annotations)
		if metrics != nil {
			metrics.written(ps.Split, len(labels.Annotations))
		}

		if ok && c.cfg.PreviewDir != "" && previews < c.cfg.PreviewLimit && status != ImageFailed {
			previews++
			out := filepath.Join(c.cfg.PreviewDir, string(ps.Split), replaceExt(img.FileName, ".jpg"))
			if err := DrawPreview(imagePath, out, labels); err != nil {
				c.log.Printf("Failed to draw the preview for %q: %v", img.FileName, err)
			}
		}

		// Missing images are listed too.
		if err := manifest.Append(imagePath); err != nil {
			return err
		}
	}

	c.log.Printf("Wrote %d labels for %d images of split %s (%d downloaded, %d failed)",
		s.Annotations, manifest.Count(), ps.Split, s.Downloaded, s.FailedDownloads)
	return nil
}

// convertImage converts the annotations of img. If the annotation file lacks the image dimensions,
// they are read from the local image file. If they are still unknown, the result has no
// annotations and false is returned.
func (c *Converter) convertImage(img COCOImage, imagePath string, annotations []COCOAnnotation,
	classID func(int64) int64) (YOLOAnnotatedFile, bool) {

	width, height := img.Width, img.Height
	if width <= 0 || height <= 0 {
		config, _, err := decodeImageConfig(imagePath)
		if err != nil || config.Width <= 0 || config.Height <= 0 {
			c.log.Printf("Unknown dimensions for %q, writing an empty label file instead of %d labels: %v",
				img.FileName, len(annotations), err)
			return YOLOAnnotatedFile{FilePath: img.FileName}, false
		}
		width, height = config.Width, config.Height
	}

	return ToYOLO(img, annotations, width, height, classID), true
}
