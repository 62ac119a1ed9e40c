package baseline

import (
	"fmt"
	"os"
	"path/filepath"
	"sort"
	"strings"

	"github.com/hashicorp/hcl/v2"
	"github.com/hashicorp/hcl/v2/hclparse"
	"github.com/hashicorp/hcl/v2/hclsyntax"
	"github.com/zclconf/go-cty/cty"
	"gopkg.in/yaml.v3"
)

type yamlDocument struct {
	Baselines []Record `yaml:"baselines"`
}

// LoadYAML decodes a `baselines:` list.
func LoadYAML(data []byte) (*MemoryStore, error) {
	var doc yamlDocument
	if err := yaml.Unmarshal(data, &doc); err != nil {
		return nil, fmt.Errorf("%w: %v", ErrInvalidBaseline, err)
	}
	return NewMemoryStore(doc.Baselines...)
}

// hclFields maps HCL attribute names onto record fields.
var hclFields = map[string]func(*Record) *string{
	"version":         func(r *Record) *string { return &r.Version },
	"config_checksum": func(r *Record) *string { return &r.ConfigChecksum },
	"ip_address":      func(r *Record) *string { return &r.IPAddress },
	"security_zone":   func(r *Record) *string { return &r.SecurityZone },
	"status":          func(r *Record) *string { return &r.Status },
	"git_repo":        func(r *Record) *string { return &r.GitRepo },
	"git_path":        func(r *Record) *string { return &r.GitPath },
	"last_commit":     func(r *Record) *string { return &r.LastCommit },
}

var hclSchema = &hcl.BodySchema{
	Blocks: []hcl.BlockHeaderSchema{
		{Type: "asset", LabelNames: []string{"id"}},
	},
}

// LoadHCL decodes `asset "<id>" { ... }` blocks. Attribute values must be
// literal strings.
func LoadHCL(name string, data []byte) (*MemoryStore, error) {
	parser := hclparse.NewParser()
	f, diags := parser.ParseHCL(data, name)
	if diags.HasErrors() {
		return nil, fmt.Errorf("%w: %s", ErrInvalidBaseline, diags.Error())
	}

	// Reject unknown top-level blocks and attributes up front.
	if _, diags := f.Body.Content(hclSchema); diags.HasErrors() {
		return nil, fmt.Errorf("%w: %s", ErrInvalidBaseline, diags.Error())
	}

	body, ok := f.Body.(*hclsyntax.Body)
	if !ok {
		return nil, fmt.Errorf("%w: %s is not native HCL syntax", ErrInvalidBaseline, name)
	}

	var records []Record
	for _, block := range body.Blocks {
		r := Record{AssetID: block.Labels[0]}

		// Attribute order in the map is random; sort for stable errors.
		names := make([]string, 0, len(block.Body.Attributes))
		for n := range block.Body.Attributes {
			names = append(names, n)
		}
		sort.Strings(names)

		for _, n := range names {
			attr := block.Body.Attributes[n]
			field, known := hclFields[n]
			if !known {
				return nil, fmt.Errorf("%w: %s: asset %q: unknown attribute %q",
					ErrInvalidBaseline, attr.SrcRange.String(), r.AssetID, n)
			}
			v, diags := attr.Expr.Value(nil)
			if diags.HasErrors() {
				return nil, fmt.Errorf("%w: %s", ErrInvalidBaseline, diags.Error())
			}
			if v.IsNull() {
				continue
			}
			if v.Type() != cty.String {
				return nil, fmt.Errorf("%w: %s: asset %q: %s must be a string",
					ErrInvalidBaseline, attr.SrcRange.String(), r.AssetID, n)
			}
			*field(&r) = v.AsString()
		}
		records = append(records, r)
	}
	return NewMemoryStore(records...)
}

// Load picks a decoder from the file extension: .hcl and .tf are HCL,
// everything else YAML.
func Load(name string, data []byte) (*MemoryStore, error) {
	switch strings.ToLower(filepath.Ext(name)) {
	case ".hcl", ".tf":
		return LoadHCL(name, data)
	default:
		return LoadYAML(data)
	}
}

// LoadFile reads and decodes a baseline file.
func LoadFile(path string) (*MemoryStore, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("failed to read baseline %s: %w", path, err)
	}
	return Load(path, data)
}
