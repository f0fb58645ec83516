package main

import (
	"amlkit/compress/lzma"
	"amlkit/device/acpi"
	"amlkit/device/acpi/aml/entity"
	"amlkit/device/acpi/aml/vm"
	"amlkit/device/acpi/osl"
	"amlkit/device/acpi/osl/hosted"
	"amlkit/device/acpi/table"
	"errors"
	"fmt"
	"io"
	"os"
	"path/filepath"
	"strings"

	"gopkg.in/yaml.v3"
)

// config is the YAML host description read by -config.
type config struct {
	Tables      tableSource    `yaml:"tables"`
	Store       string         `yaml:"store"`
	OSI         []string       `yaml:"osi"`
	OSName      string         `yaml:"os_name"`
	DebugPrefix string         `yaml:"debug_prefix"`
	MaxLoops    uint64         `yaml:"max_loop_iterations"`
	Regions     []regionConfig `yaml:"regions"`
	LZMA        lzmaConfig     `yaml:"lzma"`
}

type regionConfig struct {
	Space   string `yaml:"space"`
	Backend string `yaml:"backend"`
	Base    uint64 `yaml:"base"`
	Length  uint64 `yaml:"length"`
}

type lzmaConfig struct {
	DictSize    uint32 `yaml:"dict_size"`
	LC          *int   `yaml:"lc"`
	LP          *int   `yaml:"lp"`
	PB          *int   `yaml:"pb"`
	FastBytes   int    `yaml:"fast_bytes"`
	MatchFinder string `yaml:"match_finder"`
	EndMarker   bool   `yaml:"end_marker"`
	Footer      bool   `yaml:"footer"`
}

// tableSource is either a single directory or a list of table files.
type tableSource []string

// UnmarshalYAML accepts a scalar or a sequence of scalars.
func (ts *tableSource) UnmarshalYAML(node *yaml.Node) error {
	switch node.Kind {
	case yaml.ScalarNode:
		*ts = tableSource{node.Value}
		return nil
	case yaml.SequenceNode:
		var paths []string
		if err := node.Decode(&paths); err != nil {
			return err
		}
		*ts = paths
		return nil
	}
	return fmt.Errorf("line %d: tables must be a path or a list of paths", node.Line)
}

func defaultConfig() *config {
	return &config{Tables: tableSource{acpi.SysfsTablesDir}}
}

// loadConfig reads the configuration at path. An empty path selects the
// defaults.
func loadConfig(path string) (*config, error) {
	cfg := defaultConfig()
	if path == "" {
		return cfg, nil
	}

	data, err := os.ReadFile(path)
	if err != nil {
		return nil, err
	}
	if err := yaml.Unmarshal(data, cfg); err != nil {
		return nil, fmt.Errorf("%s: %s", path, err)
	}

	// Relative table and store paths are relative to the config file.
	base := filepath.Dir(path)
	for i, p := range cfg.Tables {
		if !filepath.IsAbs(p) {
			cfg.Tables[i] = filepath.Join(base, p)
		}
	}
	if cfg.Store != "" && !filepath.IsAbs(cfg.Store) {
		cfg.Store = filepath.Join(base, cfg.Store)
	}
	return cfg, nil
}

// resolver returns the tables named by the config. A single directory is
// read like the sysfs table directory; otherwise every path is a table file.
func (cfg *config) resolver() (table.Resolver, error) {
	if len(cfg.Tables) == 0 {
		return nil, errors.New("no table source configured")
	}

	if len(cfg.Tables) == 1 {
		if fi, err := os.Stat(cfg.Tables[0]); err == nil && fi.IsDir() {
			r, kerr := table.NewDirResolver(cfg.Tables[0])
			if kerr != nil {
				return nil, kerr
			}
			return r, nil
		}
	}

	var tables [][]byte
	for _, p := range cfg.Tables {
		data, err := os.ReadFile(p)
		if err != nil {
			return nil, err
		}
		tables = append(tables, data)
	}
	return table.NewMapResolver(tables...), nil
}

var spaceAliases = map[string]entity.RegionSpace{
	"cmos": entity.RegionSpaceCMOS,
	"pci":  entity.RegionSpacePCIConfig,
	"io":   entity.RegionSpaceSystemIO,
}

func parseRegionSpace(name string) (entity.RegionSpace, error) {
	if space, ok := spaceAliases[strings.ToLower(name)]; ok {
		return space, nil
	}
	for space := entity.RegionSpaceSystemMemory; space <= entity.RegionSpacePCC; space++ {
		if strings.EqualFold(space.String(), name) {
			return space, nil
		}
	}
	return 0, fmt.Errorf("unknown region space %q", name)
}

// regions builds the region back-ends. The "memory" back-end keeps region
// contents in process memory; the others reach the hardware.
func (cfg *config) regions() (map[entity.RegionSpace]osl.RegionHandler, error) {
	handlers := make(map[entity.RegionSpace]osl.RegionHandler)
	for _, rc := range cfg.Regions {
		space, err := parseRegionSpace(rc.Space)
		if err != nil {
			return nil, err
		}
		if _, dup := handlers[space]; dup {
			return nil, fmt.Errorf("region space %s configured twice", space)
		}

		if rc.Backend == "memory" {
			handlers[space] = osl.NewMemoryRegions()
			continue
		}
		h, kerr := hosted.NewBackend(rc.Backend, hosted.Window{Base: rc.Base, Length: rc.Length})
		if kerr != nil {
			return nil, kerr
		}
		handlers[space] = h
	}
	return handlers, nil
}

// vmConfig returns the interpreter configuration. The host logs to log and
// sends AML Debug output to debug.
func (cfg *config) vmConfig(log, debug io.Writer) (vm.Config, error) {
	regions, err := cfg.regions()
	if err != nil {
		return vm.Config{}, err
	}
	return vm.Config{
		Host:              hosted.NewHost(log, debug, cfg.DebugPrefix),
		Regions:           regions,
		OSIStrings:        cfg.OSI,
		OSName:            cfg.OSName,
		MaxLoopIterations: cfg.MaxLoops,
	}, nil
}

func (cfg *config) lzmaOptions() (lzma.Options, error) {
	lc := cfg.LZMA
	opts := lzma.Options{
		DictSize:  lc.DictSize,
		FastBytes: lc.FastBytes,
		EndMarker: lc.EndMarker,
	}
	if lc.LC != nil || lc.LP != nil || lc.PB != nil {
		props := lzma.DefaultProps
		if lc.LC != nil {
			props.LC = *lc.LC
		}
		if lc.LP != nil {
			props.LP = *lc.LP
		}
		if lc.PB != nil {
			props.PB = *lc.PB
		}
		if err := props.Validate(); err != nil {
			return opts, err
		}
		opts.Props = &props
	}
	if lc.MatchFinder != "" {
		mf, err := lzma.ParseMatchFinder(lc.MatchFinder)
		if err != nil {
			return opts, err
		}
		opts.MatchFinder = mf
	}
	return opts, nil
}
