// Converts COCO object detection annotations into the YOLO dataset layout, downloading missing
// images from their COCO URLs.
package main

import (
	"fmt"
	"io"
	"log"
	"os"
	"strings"
	"time"

	"github.com/sensorable/cocoyolo"
	"github.com/spf13/cobra"
	"github.com/spf13/pflag"
)

const version = "0.1.0"

// splitOptions are the per split flag values.
type splitOptions struct {
	annotations string
	imageDir    string
	labelDir    string
	manifest    string
}

// options are the parsed command line flags.
type options struct {
	configPath string
	datasetDir string
	splits     map[cocoyolo.Split]*splitOptions

	cats    string
	catFile string

	timeout       time.Duration
	resizeLonger  int
	resizeShorter int
	jpegQuality   int

	remapIDs     bool
	dataYAML     bool
	previewDir   string
	previewLimit int
	metricsFile  string
	quiet        bool
}

func main() {
	if err := rootCmd().Execute(); err != nil {
		os.Exit(1)
	}
}

func rootCmd() *cobra.Command {
	opts := &options{splits: make(map[cocoyolo.Split]*splitOptions, len(cocoyolo.Splits))}

	cmd := &cobra.Command{
		Use:   "cocoyolo --train-ann <file> --val-ann <file> --dataset-dir <dir>",
		Short: "Convert COCO annotations to a YOLO dataset",
		Long: `Converts COCO object detection annotations (one JSON file per split) into the
YOLO layout: images/<split>, labels/<split> with one label file per image, and a
<split>.txt manifest per split. Images missing from the image directory are
downloaded from the coco_url of the annotation file.`,
		Args: cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			if opts.configPath != "" {
				if err := applyConfigFile(cmd.Flags(), opts.configPath); err != nil {
					return err
				}
			}
			if err := opts.validate(); err != nil {
				return err
			}
			cmd.SilenceUsage = true
			return run(opts)
		},
	}

	flags := cmd.Flags()
	flags.SetNormalizeFunc(normalizeFlagName)

	flags.StringVarP(&opts.configPath, "config", "c", "",
		"YAML `file` with option values; flags given on the command line take precedence")
	flags.StringVar(&opts.datasetDir, "dataset-dir", "", "The output `dir` of the YOLO dataset")

	for _, split := range cocoyolo.Splits {
		so := &splitOptions{}
		opts.splits[split] = so
		s := string(split)

		required := ""
		if split != cocoyolo.Test {
			required = " (required)"
		}
		flags.StringVar(&so.annotations, s+"-ann", "",
			"The COCO annotation `file` of the "+s+" split"+required)
		flags.StringVar(&so.imageDir, s+"-img-dir", "",
			"The image `dir` of the "+s+" split (default images/"+s+")")
		flags.StringVar(&so.labelDir, s+"-label-dir", "",
			"The label `dir` of the "+s+" split (default labels/"+s+")")
		flags.StringVar(&so.manifest, s+"-txt", "",
			"The manifest `file` of the "+s+" split (default "+s+".txt)")
	}

	flags.StringVar(&opts.cats, "cats", "",
		"Space-separated category `names` to keep (empty keeps all)")
	flags.StringVar(&opts.catFile, "cat-file", "",
		"A `file` with one category name per line to keep; takes precedence over --cats")

	flags.DurationVar(&opts.timeout, "timeout", cocoyolo.DefaultFetchTimeout,
		"The timeout for downloading a single image")
	flags.IntVar(&opts.resizeLonger, "resize-longer", 0,
		"The target `length` for the longer side of downloaded images (zero keeps the aspect ratio)")
	flags.IntVar(&opts.resizeShorter, "resize-shorter", 0,
		"The target `length` for the shorter side of downloaded images (zero keeps the aspect ratio)")
	flags.IntVar(&opts.jpegQuality, "jpeg-quality", cocoyolo.DefaultJPEGQuality,
		"The quality to use when re-encoding resized JPEGs [1, 100]")

	flags.BoolVar(&opts.remapIDs, "remap-ids", false,
		"Number the output classes from zero in order of their COCO IDs instead of keeping the IDs")
	flags.BoolVar(&opts.dataYAML, "data-yaml", false,
		"Write a data.yaml dataset descriptor to the dataset directory")
	flags.StringVar(&opts.previewDir, "preview-dir", "",
		"The `dir` to write preview images with the converted boxes to")
	flags.IntVar(&opts.previewLimit, "preview-limit", 10,
		"The max. number of preview images per split (with --preview-dir)")
	flags.StringVar(&opts.metricsFile, "metrics-file", "",
		"Write run counters in the Prometheus text format to this `file`")
	flags.BoolVarP(&opts.quiet, "quiet", "q", false, "Only log the final summary")

	cmd.AddCommand(&cobra.Command{
		Use:   "version",
		Short: "Print version information",
		Run: func(cmd *cobra.Command, args []string) {
			fmt.Printf("cocoyolo version %s\n", version)
		},
	})

	return cmd
}

// normalizeFlagName makes "dataset_dir" and "dataset-dir" equivalent.
func normalizeFlagName(_ *pflag.FlagSet, name string) pflag.NormalizedName {
	return pflag.NormalizedName(strings.ReplaceAll(name, "_", "-"))
}

// validate checks the flag values before any processing begins.
func (o *options) validate() error {
	switch {
	case o.splits[cocoyolo.Train].annotations == "":
		return fmt.Errorf("missing required option --train-ann")
	case o.splits[cocoyolo.Val].annotations == "":
		return fmt.Errorf("missing required option --val-ann")
	case o.datasetDir == "":
		return fmt.Errorf("missing required option --dataset-dir")
	case o.timeout <= 0:
		return fmt.Errorf("invalid --timeout %v", o.timeout)
	case o.resizeLonger < 0 || o.resizeShorter < 0:
		return fmt.Errorf("invalid resize length")
	case o.previewLimit < 0:
		return fmt.Errorf("invalid --preview-limit %d", o.previewLimit)
	}

	if o.jpegQuality < 1 || o.jpegQuality > 100 {
		o.jpegQuality = cocoyolo.DefaultJPEGQuality
		log.Print("Invalid JPEG quality, setting it to ", o.jpegQuality)
	}
	return nil
}

// config builds the conversion config from the flag values.
func (o *options) config() (cocoyolo.Config, error) {
	filter, err := cocoyolo.LoadCategoryFilter(o.cats, o.catFile)
	if err != nil {
		return cocoyolo.Config{}, fmt.Errorf("failed to load the category filter: %w", err)
	}
	if filter.Active() {
		log.Printf("Keeping %d categories: %s", len(filter), strings.Join(filter.Names(), ", "))
	}

	cfg := cocoyolo.Config{
		DatasetDir: o.datasetDir,
		Filter:     filter,
		Fetcher:    cocoyolo.NewHTTPFetcher(o.timeout),
		Resize: cocoyolo.ResizeOptions{
			LongerSide:  o.resizeLonger,
			ShorterSide: o.resizeShorter,
			JPEGQuality: o.jpegQuality,
		},
		RemapIDs:     o.remapIDs,
		DataYAML:     o.dataYAML,
		PreviewDir:   o.previewDir,
		PreviewLimit: o.previewLimit,
		Logger:       log.Default(),
	}
	if o.previewDir == "" {
		cfg.PreviewLimit = 0
	}
	if o.quiet {
		cfg.Logger = log.New(io.Discard, "", 0)
	}
	if o.metricsFile != "" {
		cfg.Metrics = cocoyolo.NewMetrics()
	}

	for _, split := range cocoyolo.Splits {
		so := o.splits[split]
		if so.annotations == "" {
			continue
		}
		cfg.Splits = append(cfg.Splits, cocoyolo.SplitConfig{
			Split:          split,
			AnnotationPath: so.annotations,
			Paths: cocoyolo.PathOverrides{
				ImageDir: so.imageDir,
				LabelDir: so.labelDir,
				Manifest: so.manifest,
			},
		})
	}

	return cfg, nil
}

func run(o *options) error {
	cfg, err := o.config()
	if err != nil {
		return err
	}

	converter, err := cocoyolo.NewConverter(cfg)
	if err != nil {
		return err
	}

	summary, err := converter.Run()
	logSummary(summary)
	if err != nil {
		return fmt.Errorf("conversion failed: %w", err)
	}

	if cfg.Metrics != nil {
		if err := cfg.Metrics.WriteTextfile(o.metricsFile); err != nil {
			return fmt.Errorf("failed to write the metrics to %q: %w", o.metricsFile, err)
		}
	}

	return nil
}

func logSummary(summary cocoyolo.Summary) {
	total := 0
	for _, s := range summary {
		if s.Skipped {
			if s.Err != nil {
				log.Printf("Split %s: skipped (%v)", s.Split, s.Err)
			}
			continue
		}
		log.Printf("Split %s: %d images (%d existing, %d downloaded, %d failed), %d labels with"+
			" %d annotations, %d annotations dropped, manifest %q", s.Split, s.Images, s.Existing,
			s.Downloaded, s.FailedDownloads, s.Labels, s.Annotations, s.Dropped, s.Manifest)
		total += s.Images
	}

	log.Print("Total number of converted images: ", total)
}
