/*
	Package config loads the engine's TOML configuration and exposes its settings.
	Nothing here needs to be loaded: every accessor returns a usable default.
*/
package config

import (
	"encoding/binary"
	"fmt"
	"path/filepath"
	"sort"
	"strings"

	"github.com/BurntSushi/toml"
	"github.com/janelia-flyem/nifti/extension"
	"github.com/janelia-flyem/nifti/layout"
	"github.com/janelia-flyem/nifti/nifti"
	"github.com/klauspost/compress/gzip"
)

var (
	// the parsed TOML configuration data
	tc tomlConfig

	// the TOML config file location
	tcLocation string
)

type tomlConfig struct {
	MinVersion string `toml:"min_version"`
	Logging    nifti.LogConfig
	Output     outputConfig
	Cache      map[string]sizeConfig
	Extensions extensionConfig
}

// outputConfig sets how new datasets are written.
type outputConfig struct {
	Layout      string // NIFTI, NIFTI_GZ, NIFTI_PAIR or NIFTI_PAIR_GZ
	ByteOrder   string `toml:"byte_order"` // little or big
	Compression *int   // gzip level, -1 for the library default
}

type sizeConfig struct {
	Size int // in MB
}

// extensionConfig maps extension codes, by name or number, to JSON schema files.
type extensionConfig struct {
	Schemas map[string]string
}

// Some settings in the TOML can be given as relative paths.
// This function converts them in-place to absolute paths,
// assuming the given paths were relative to the TOML file's own directory.
func (c *tomlConfig) convertPathsToAbsolute(configPath string) error {
	var err error

	configDir := filepath.Dir(configPath)

	// [logging].logfile
	if c.Logging.Logfile != "" {
		c.Logging.Logfile, err = nifti.ConvertToAbsolute(c.Logging.Logfile, configDir)
		if err != nil {
			return fmt.Errorf("Error converting logfile setting to absolute path")
		}
	}

	// [extensions.schemas]
	for code, path := range c.Extensions.Schemas {
		absPath, err := nifti.ConvertToAbsolute(path, configDir)
		if err != nil {
			return fmt.Errorf("Error converting schema for extension %q to absolute path: %q", code, path)
		}
		c.Extensions.Schemas[code] = absPath
	}
	return nil
}

func (c *tomlConfig) validate() error {
	if c.Output.Layout != "" {
		if _, err := layout.ParseKind(c.Output.Layout); err != nil {
			return err
		}
	}
	if c.Output.ByteOrder != "" {
		if _, err := parseByteOrder(c.Output.ByteOrder); err != nil {
			return err
		}
	}
	if c.Output.Compression != nil {
		if *c.Output.Compression < gzip.DefaultCompression || *c.Output.Compression > gzip.BestCompression {
			return fmt.Errorf("compression level %d must be -1 through 9", *c.Output.Compression)
		}
	}
	for id, setting := range c.Cache {
		if setting.Size < 0 {
			return fmt.Errorf("cache %q has negative size %d MB", id, setting.Size)
		}
	}
	for code := range c.Extensions.Schemas {
		if _, err := extension.ParseCode(code); err != nil {
			return err
		}
	}
	if c.MinVersion != "" {
		if err := nifti.CheckVersion(c.MinVersion); err != nil {
			return err
		}
	}
	return nil
}

func parseByteOrder(s string) (binary.ByteOrder, error) {
	switch strings.ToLower(strings.TrimSpace(s)) {
	case "little", "le", "little-endian", "littleendian":
		return binary.LittleEndian, nil
	case "big", "be", "big-endian", "bigendian":
		return binary.BigEndian, nil
	default:
		return nil, fmt.Errorf("unknown byte order %q", s)
	}
}

// LoadConfig loads the configuration from a TOML file.  The previous configuration
// is kept if the file cannot be loaded.
func LoadConfig(filename string) error {
	if filename == "" {
		return fmt.Errorf("no TOML configuration file provided")
	}
	var c tomlConfig
	if _, err := toml.DecodeFile(filename, &c); err != nil {
		return fmt.Errorf("could not decode TOML config: %v", err)
	}
	if err := c.validate(); err != nil {
		return fmt.Errorf("bad TOML config %q: %v", filename, err)
	}
	if err := c.convertPathsToAbsolute(filename); err != nil {
		return fmt.Errorf("could not convert relative paths to absolute paths in TOML config: %v", err)
	}
	tc = c
	tcLocation = filename
	nifti.Infof("tomlConfig: %v\n", tc)
	return nil
}

// Reset discards any loaded configuration.
func Reset() {
	tc = tomlConfig{}
	tcLocation = ""
}

// ConfigLocation returns the file the configuration was loaded from, if any.
func ConfigLocation() string {
	return tcLocation
}

// Logging returns the [logging] settings.
func Logging() *nifti.LogConfig {
	lc := tc.Logging
	return &lc
}

// CacheSize returns the number of bytes reserved for the given identifier.
// If unset, will return 0.
func CacheSize(id string) int {
	if tc.Cache == nil {
		return 0
	}
	setting, found := tc.Cache[id]
	if !found {
		return 0
	}
	return setting.Size * nifti.Mega
}

// DefaultLayout returns the layout used when a dataset is written to a name without
// extension.
func DefaultLayout() layout.Kind {
	kind, err := layout.ParseKind(tc.Output.Layout)
	if err != nil {
		return layout.KindCombined
	}
	return kind
}

// DefaultByteOrder returns the byte order of newly created datasets.
func DefaultByteOrder() binary.ByteOrder {
	order, err := parseByteOrder(tc.Output.ByteOrder)
	if err != nil {
		return binary.LittleEndian
	}
	return order
}

// CompressionLevel returns the gzip level for compressed datasets.
func CompressionLevel() int {
	if tc.Output.Compression == nil {
		return gzip.DefaultCompression
	}
	return *tc.Output.Compression
}

// ExtensionSchemas returns the JSON schema file for each extension code with one.
func ExtensionSchemas() map[int32]string {
	schemas := make(map[int32]string, len(tc.Extensions.Schemas))
	for name, path := range tc.Extensions.Schemas {
		code, err := extension.ParseCode(name)
		if err != nil {
			continue
		}
		schemas[code] = path
	}
	return schemas
}

// CacheIDs returns the identifiers of configured caches in sorted order.
func CacheIDs() []string {
	ids := make([]string, 0, len(tc.Cache))
	for id := range tc.Cache {
		ids = append(ids, id)
	}
	sort.Strings(ids)
	return ids
}
