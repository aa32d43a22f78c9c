// Package config loads project settings from a .bfc.yaml file.
package config

import (
	"bytes"
	"errors"
	"fmt"
	"io"
	"io/fs"
	"os"
	"path/filepath"

	"github.com/praetorian-inc/bfc/pkg/codegen"
	"github.com/praetorian-inc/bfc/pkg/x86"
	"gopkg.in/yaml.v3"
)

// FileName is the config file looked up in the working directory.
const FileName = ".bfc.yaml"

// Defaults.
const (
	DefaultArch   = "amd64"
	DefaultFormat = "elf"
	DefaultOutput = "a.out"
)

// Config holds the settings a compile run starts from. Command-line flags
// override individual fields.
type Config struct {
	Arch      string    `yaml:"arch"`
	Format    string    `yaml:"format"`
	Output    string    `yaml:"output"`
	Toolchain Toolchain `yaml:"toolchain"`
}

// Toolchain names the external assembler and linker.
type Toolchain struct {
	Assembler      string   `yaml:"assembler"`
	Linker         string   `yaml:"linker"`
	AssemblerFlags []string `yaml:"assembler_flags,omitempty"`
	LinkerFlags    []string `yaml:"linker_flags,omitempty"`
}

// Default returns the built-in settings.
func Default() *Config {
	return &Config{
		Arch:   DefaultArch,
		Format: DefaultFormat,
		Output: DefaultOutput,
		Toolchain: Toolchain{
			Assembler: codegen.DefaultAssembler,
			Linker:    codegen.DefaultLinker,
		},
	}
}

// Parse decodes YAML on top of the defaults. Unknown keys are rejected.
func Parse(data []byte) (*Config, error) {
	cfg := Default()
	dec := yaml.NewDecoder(bytes.NewReader(data))
	dec.KnownFields(true)
	if err := dec.Decode(cfg); err != nil && !errors.Is(err, io.EOF) {
		return nil, fmt.Errorf("failed to parse YAML: %w", err)
	}
	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	return cfg, nil
}

// Load reads and parses the config file at path.
func Load(path string) (*Config, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("failed to read config %s: %w", path, err)
	}
	cfg, err := Parse(data)
	if err != nil {
		return nil, fmt.Errorf("%s: %w", path, err)
	}
	return cfg, nil
}

// LoadDefault loads FileName from dir, falling back to Default when the
// file does not exist.
func LoadDefault(dir string) (*Config, error) {
	cfg, err := Load(filepath.Join(dir, FileName))
	if errors.Is(err, fs.ErrNotExist) {
		return Default(), nil
	}
	return cfg, err
}

// Validate checks that every field names something the compiler supports.
func (c *Config) Validate() error {
	if _, err := c.Mode(); err != nil {
		return err
	}
	if _, err := c.OutputFormat(); err != nil {
		return err
	}
	if c.Output == "" {
		return fmt.Errorf("output path is empty")
	}
	return nil
}

// Mode returns the configured architecture.
func (c *Config) Mode() (x86.Mode, error) {
	return x86.ParseMode(c.Arch)
}

// OutputFormat returns the configured output format.
func (c *Config) OutputFormat() (codegen.Format, error) {
	return codegen.ParseFormat(c.Format)
}

// Tools builds a codegen.Toolchain from the config, with the given streams
// for the tools' output.
func (c *Config) Tools(stdout, stderr io.Writer) codegen.Toolchain {
	return codegen.Toolchain{
		Assembler:      c.Toolchain.Assembler,
		Linker:         c.Toolchain.Linker,
		AssemblerFlags: c.Toolchain.AssemblerFlags,
		LinkerFlags:    c.Toolchain.LinkerFlags,
		Stdout:         stdout,
		Stderr:         stderr,
	}
}
