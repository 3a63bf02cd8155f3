package project

import (
	"path"
	"strings"

	"github.com/hashicorp/hcl/v2"
	"github.com/hashicorp/hcl/v2/gohcl"
	"github.com/hashicorp/hcl/v2/hclparse"
	"github.com/spf13/afero"
	"github.com/zclconf/go-cty/cty"
	"gitlab.com/tozd/go/errors"
)

// ConfigFileName is looked up in the project root when no explicit
// config path is given.
const ConfigFileName = "hyperc.hcl"

// Config is the decoded hyperc.hcl project file. Every block is
// optional; zero values fall back to the defaults applied by Load.
type Config struct {
	Templates *TemplatesBlock `hcl:"templates,block"`
	Output    *OutputBlock    `hcl:"output,block"`
	Generate  *GenerateBlock  `hcl:"generate,block"`
}

// TemplatesBlock selects which template files belong to the project.
type TemplatesBlock struct {
	Include []string `hcl:"include,optional"`
	Exclude []string `hcl:"exclude,optional"`
}

// OutputBlock controls where compiled modules are written.
type OutputBlock struct {
	Dir    string `hcl:"dir,optional"`
	Suffix string `hcl:"suffix,optional"`
}

// GenerateBlock carries compiler defaults for the whole project.
type GenerateBlock struct {
	Indent     string `hcl:"indent,optional"`
	Injections bool   `hcl:"injections,optional"`
	// Runtime overrides the Python module the generated code imports its
	// helpers from.
	Runtime string `hcl:"runtime,optional"`
}

// DefaultConfig is what Load returns when the project has no
// hyperc.hcl at all.
func DefaultConfig() *Config {
	return &Config{
		Templates: &TemplatesBlock{Include: []string{"**/*.hyper"}},
		Output:    &OutputBlock{Suffix: ".py"},
		Generate:  &GenerateBlock{},
	}
}

// Load reads and decodes path from fs. A missing file is not an error;
// the defaults apply.
func Load(fs afero.Fs, path string) (*Config, error) {
	exists, err := afero.Exists(fs, path)
	if err != nil {
		return nil, errors.Errorf("checking config file: %w", err)
	}
	if !exists {
		return DefaultConfig(), nil
	}

	data, err := afero.ReadFile(fs, path)
	if err != nil {
		return nil, errors.Errorf("reading config file: %w", err)
	}

	parser := hclparse.NewParser()
	hclFile, diags := parser.ParseHCL(data, path)
	if diags.HasErrors() {
		return nil, errors.Errorf("parsing %s: %s", path, diags.Error())
	}

	ctx := &hcl.EvalContext{
		Variables: map[string]cty.Value{},
	}

	var cfg Config
	diags = gohcl.DecodeBody(hclFile.Body, ctx, &cfg)
	if diags.HasErrors() {
		return nil, errors.Errorf("decoding %s: %s", path, diags.Error())
	}

	applyDefaults(&cfg)
	return &cfg, nil
}

func applyDefaults(cfg *Config) {
	if cfg.Templates == nil {
		cfg.Templates = &TemplatesBlock{}
	}
	if len(cfg.Templates.Include) == 0 {
		cfg.Templates.Include = []string{"**/*.hyper"}
	}
	if cfg.Output == nil {
		cfg.Output = &OutputBlock{}
	}
	if cfg.Output.Suffix == "" {
		cfg.Output.Suffix = ".py"
	}
	if cfg.Generate == nil {
		cfg.Generate = &GenerateBlock{}
	}
}

// OutputPath maps a template path (relative to the project root) to its
// compiled module path. With an output dir set the relative layout is
// preserved under it; otherwise the module sits next to its template.
func (c *Config) OutputPath(template string) string {
	base := strings.TrimSuffix(template, path.Ext(template)) + c.Output.Suffix
	if c.Output.Dir == "" {
		return base
	}
	return path.Join(c.Output.Dir, base)
}
