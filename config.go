package screengrab

import (
	"fmt"
	"os"

	"gopkg.in/yaml.v3"
)

// optionsFile is the YAML shape of an options defaults file.
type optionsFile struct {
	Cursor  bool   `yaml:"cursor"`
	NoCrop  bool   `yaml:"nocrop"`
	FPS     uint32 `yaml:"fps"`
	Restore string `yaml:"restore"`
}

// LoadOptionsFile reads session defaults from a YAML file. Fields left out
// of the file keep their DefaultOptions values. The same keys as the option
// string are accepted:
//
//	cursor: true
//	nocrop: false
//	fps: 30
//	restore: /var/lib/screengrab/token
func LoadOptionsFile(path string) (Options, error) {
	opts := DefaultOptions()

	data, err := os.ReadFile(path)
	if err != nil {
		return opts, fmt.Errorf("screengrab: read options file: %w", err)
	}

	var f optionsFile
	if err := yaml.Unmarshal(data, &f); err != nil {
		return opts, fmt.Errorf("screengrab: parse options file %s: %w", path, err)
	}

	opts.ShowCursor = f.Cursor
	opts.Crop = !f.NoCrop
	opts.FPS = f.FPS
	opts.RestoreFile = f.Restore
	return opts, nil
}
