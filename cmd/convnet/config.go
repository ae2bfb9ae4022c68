package main

import (
	"flag"
	"fmt"
	"os"

	"gopkg.in/yaml.v3"
)

// applyConfig reads a YAML file whose keys are flag names, e.g.
//
//	data: data_batch_1.bin
//	arch: lenet5
//	epochs: 20
//	lr: 0.05
//
// and sets every flag that was not given on the command line.
func applyConfig(fs *flag.FlagSet, filename string) error {
	b, err := os.ReadFile(filename)
	if err != nil {
		return fmt.Errorf("failed to read config: %w", err)
	}
	var values map[string]any
	if err := yaml.Unmarshal(b, &values); err != nil {
		return fmt.Errorf("failed to parse config %s: %w", filename, err)
	}

	explicit := map[string]bool{}
	fs.Visit(func(f *flag.Flag) { explicit[f.Name] = true })

	for name, v := range values {
		if fs.Lookup(name) == nil {
			return fmt.Errorf("config %s: unknown setting %q", filename, name)
		}
		if explicit[name] {
			continue
		}
		if err := fs.Set(name, fmt.Sprint(v)); err != nil {
			return fmt.Errorf("config %s: %s: %w", filename, name, err)
		}
	}
	return nil
}
