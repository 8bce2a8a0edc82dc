package main

import (
	"errors"
	"flag"
	"fmt"

	"github.com/BurntSushi/toml"
	"github.com/benbjohnson/ntbounds/ast"
)

// ErrInvalidConfig is returned when a configuration value is out of range.
var ErrInvalidConfig = errors.New("invalid config")

// Config represents the settings read from an ntbounds.toml file.
type Config struct {
	IntWidth     uint   `toml:"int_width"`
	PointerWidth uint   `toml:"pointer_width"`
	Format       string `toml:"format"`
	Color        bool   `toml:"color"`
	DumpPreorder bool   `toml:"dump_preorder"`

	meta toml.MetaData
}

// DefaultConfig returns the configuration used when no file is given.
func DefaultConfig() Config {
	return Config{
		IntWidth:     ast.Width32,
		PointerWidth: ast.Width64,
		Format:       "text",
	}
}

// LoadConfig reads the configuration at path on top of the defaults. An
// empty path returns the defaults.
func LoadConfig(path string) (Config, error) {
	config := DefaultConfig()
	if path == "" {
		return config, nil
	}

	meta, err := toml.DecodeFile(path, &config)
	if err != nil {
		return config, fmt.Errorf("config: %w", err)
	}
	config.meta = meta

	if err := config.Validate(); err != nil {
		return config, err
	}
	return config, nil
}

// Validate returns an error if any setting is out of range.
func (c Config) Validate() error {
	for _, width := range []uint{c.IntWidth, c.PointerWidth} {
		switch width {
		case ast.Width8, ast.Width16, ast.Width32, ast.Width64:
		default:
			return fmt.Errorf("%w: unsupported width: %d", ErrInvalidConfig, width)
		}
	}

	switch c.Format {
	case "text", "yaml":
	default:
		return fmt.Errorf("%w: unsupported format: %q", ErrInvalidConfig, c.Format)
	}
	return nil
}

// IsDefined returns true if key was set in the configuration file.
func (c Config) IsDefined(key string) bool {
	return c.meta.IsDefined(key)
}

// Context returns the target description used for evaluation.
func (c Config) Context() *ast.Context {
	ctx := ast.NewContext()
	ctx.IntWidth = c.IntWidth
	ctx.PointerWidth = c.PointerWidth
	if ctx.LongWidth < c.IntWidth {
		ctx.LongWidth = c.IntWidth
	}
	return ctx
}

// explicitFlags returns the names of the flags set on the command line.
func explicitFlags(fs *flag.FlagSet) map[string]bool {
	m := make(map[string]bool)
	fs.Visit(func(f *flag.Flag) { m[f.Name] = true })
	return m
}
