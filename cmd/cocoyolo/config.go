package main

import (
	"fmt"
	"os"
	"sort"
	"strings"

	"github.com/spf13/pflag"
	"gopkg.in/yaml.v3"
)

// applyConfigFile reads the YAML mapping at path and sets each key as the flag of the same name,
// unless that flag was given on the command line. Keys may use '_' or '-' as separator.
//
// Example:
//
//	dataset_dir: /data/coco-yolo
//	train-ann: annotations/instances_train2017.json
//	val-ann: annotations/instances_val2017.json
//	cats: [person, dog]
//	timeout: 10s
func applyConfigFile(flags *pflag.FlagSet, path string) error {
	enc, err := os.ReadFile(path)
	if err != nil {
		return fmt.Errorf("cannot read config file %q: %w", path, err)
	}

	var values map[string]interface{}
	if err := yaml.Unmarshal(enc, &values); err != nil {
		return fmt.Errorf("failed to parse config file %q: %w", path, err)
	}

	// Apply in a fixed order so that errors are reproducible.
	keys := make([]string, 0, len(values))
	for k := range values {
		keys = append(keys, k)
	}
	sort.Strings(keys)

	for _, k := range keys {
		f := flags.Lookup(k)
		if f == nil || f.Name == "config" {
			return fmt.Errorf("unknown option %q in config file %q", k, path)
		}
		if f.Changed {
			continue
		}

		if err := flags.Set(f.Name, configValue(values[k])); err != nil {
			return fmt.Errorf("invalid value for %q in config file %q: %w", k, path, err)
		}
	}

	return nil
}

// configValue formats a decoded YAML value as a flag value. Lists become space-separated strings,
// which is the format of --cats.
func configValue(v interface{}) string {
	switch v := v.(type) {
	case nil:
		return ""
	case []interface{}:
		parts := make([]string, len(v))
		for i, e := range v {
			parts[i] = fmt.Sprint(e)
		}
		return strings.Join(parts, " ")
	default:
		return fmt.Sprint(v)
	}
}
