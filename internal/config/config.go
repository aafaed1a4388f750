// Package config loads the optional sdfviz.hcl settings file.
//
// Example:
//
//	output {
//	  indent = "  "
//	}
//	cache {
//	  enabled = true
//	  dir     = ".sdfviz-cache"
//	}
//	watch {
//	  debounce_ms = 250
//	}
//	propagation {
//	  cell_delay_ps = 0
//	}
//	log {
//	  level = "debug"
//	}
//
// Expressions may read the process environment through env, for example
// dir = "${env.HOME}/.cache/sdfviz".
package config

import (
	"errors"
	"fmt"
	"os"
	"strings"
	"time"

	"github.com/hashicorp/hcl/v2"
	"github.com/hashicorp/hcl/v2/gohcl"
	"github.com/hashicorp/hcl/v2/hclparse"
	"github.com/hashicorp/hcl/v2/hclsyntax"
	"github.com/zclconf/go-cty/cty"
)

// DefaultFile is looked up in the working directory when no path is given.
const DefaultFile = "sdfviz.hcl"

// Config holds every setting with its defaults applied.
type Config struct {
	Indent       string
	CacheEnabled bool
	CacheDir     string
	Debounce     time.Duration
	CellDelay    *float64 // nil: use each cell's SDF delay
	LogLevel     string
}

// Default returns the settings used when no file exists.
func Default() *Config {
	return &Config{
		Indent:   "  ",
		CacheDir: ".sdfviz-cache",
		Debounce: 250 * time.Millisecond,
		LogLevel: "info",
	}
}

type hclFile struct {
	Output      *hclOutput      `hcl:"output,block"`
	Cache       *hclCache       `hcl:"cache,block"`
	Watch       *hclWatch       `hcl:"watch,block"`
	Propagation *hclPropagation `hcl:"propagation,block"`
	Log         *hclLog         `hcl:"log,block"`
}

type hclOutput struct {
	Indent *string `hcl:"indent,optional"`
}

type hclCache struct {
	Enabled *bool   `hcl:"enabled,optional"`
	Dir     *string `hcl:"dir,optional"`
}

type hclWatch struct {
	DebounceMS *int `hcl:"debounce_ms,optional"`
}

type hclPropagation struct {
	CellDelayPS *float64 `hcl:"cell_delay_ps,optional"`
}

type hclLog struct {
	Level *string `hcl:"level,optional"`
}

// Load reads path, or DefaultFile when path is empty. A missing
// DefaultFile yields the defaults; a missing explicit path is an error.
func Load(path string) (*Config, error) {
	explicit := path != ""
	if !explicit {
		path = DefaultFile
	}
	src, err := os.ReadFile(path)
	if err != nil {
		if !explicit && errors.Is(err, os.ErrNotExist) {
			return Default(), nil
		}
		return nil, fmt.Errorf("failed to read config: %w", err)
	}
	return Parse(src, path)
}

// Parse decodes HCL source; filename is used in error messages.
func Parse(src []byte, filename string) (*Config, error) {
	parser := hclparse.NewParser()
	file, diags := parser.ParseHCL(src, filename)
	if diags.HasErrors() {
		return nil, fmt.Errorf("failed to parse config %s: %w", filename, diags)
	}

	var raw hclFile
	if diags := gohcl.DecodeBody(file.Body, evalContext(), &raw); diags.HasErrors() {
		return nil, fmt.Errorf("failed to decode config %s: %w", filename, diags)
	}

	cfg := Default()
	if o := raw.Output; o != nil && o.Indent != nil {
		cfg.Indent = *o.Indent
	}
	if c := raw.Cache; c != nil {
		if c.Enabled != nil {
			cfg.CacheEnabled = *c.Enabled
		}
		if c.Dir != nil {
			cfg.CacheDir = *c.Dir
		}
	}
	if w := raw.Watch; w != nil && w.DebounceMS != nil {
		if *w.DebounceMS < 0 {
			return nil, invalid(filename, "watch.debounce_ms must not be negative")
		}
		cfg.Debounce = time.Duration(*w.DebounceMS) * time.Millisecond
	}
	if p := raw.Propagation; p != nil && p.CellDelayPS != nil {
		if *p.CellDelayPS < 0 {
			return nil, invalid(filename, "propagation.cell_delay_ps must not be negative")
		}
		delay := *p.CellDelayPS
		cfg.CellDelay = &delay
	}
	if l := raw.Log; l != nil && l.Level != nil {
		cfg.LogLevel = *l.Level
	}
	return cfg, nil
}

// evalContext exposes the environment as the env object.
func evalContext() *hcl.EvalContext {
	env := map[string]cty.Value{}
	for _, kv := range os.Environ() {
		if name, value, ok := strings.Cut(kv, "="); ok && hclsyntax.ValidIdentifier(name) {
			env[name] = cty.StringVal(value)
		}
	}
	return &hcl.EvalContext{
		Variables: map[string]cty.Value{"env": cty.ObjectVal(env)},
	}
}

func invalid(filename, detail string) error {
	return fmt.Errorf("invalid config %s: %w", filename, hcl.Diagnostics{{
		Severity: hcl.DiagError,
		Summary:  "Invalid value",
		Detail:   detail,
	}})
}
