package domain

import (
	_ "embed"
	"fmt"
	"strings"

	"consulta_backend/platform/apperr"

	"gopkg.in/yaml.v3"
)

// Category groups domains by the documentation phase that owns them. It
// also selects the webhook endpoint for edit notifications.
type Category string

const (
	CategoryAnamnese    Category = "anamnese"
	CategoryDiagnostico Category = "diagnostico"
	CategorySolucao     Category = "solucao"
)

// FieldDef is one declared field of a domain sub-document.
type FieldDef struct {
	Key   string `yaml:"key" json:"key"`
	Label string `yaml:"label" json:"label"`
}

// Entry maps a field-path prefix to its owning domain and table.
type Entry struct {
	Prefix        string        `yaml:"prefix" json:"prefix"`
	Domain        string        `yaml:"domain" json:"domain"`
	Category      Category      `yaml:"category" json:"category"`
	Table         string        `yaml:"table" json:"-"`
	Stage         Stage         `yaml:"stage" json:"stage"`
	SolutionStage SolutionStage `yaml:"solution_stage" json:"solutionStage,omitempty"`
	Fields        []FieldDef    `yaml:"fields" json:"fields"`
}

func (e Entry) field(key string) (FieldDef, bool) {
	for _, f := range e.Fields {
		if f.Key == key {
			return f, true
		}
	}
	return FieldDef{}, false
}

// Resolution is the result of routing a field path.
type Resolution struct {
	Entry Entry
	Field FieldDef
	Path  FieldPath
}

// Registry is the immutable prefix → domain table. Safe for concurrent use.
type Registry struct {
	entries  []Entry
	byPrefix map[string]int
}

//go:embed registry.yaml
var registryYAML []byte

var defaultRegistry = MustLoadRegistry(registryYAML)

// DefaultRegistry returns the registry compiled into the binary.
func DefaultRegistry() *Registry {
	return defaultRegistry
}

// MustLoadRegistry is LoadRegistry for package initialization.
func MustLoadRegistry(data []byte) *Registry {
	r, err := LoadRegistry(data)
	if err != nil {
		panic(fmt.Sprintf("field registry: %v", err))
	}
	return r
}

// LoadRegistry parses and checks a registry document. Prefixes and tables
// must be unique, and a solution stage is declared exactly for solucao entries.
func LoadRegistry(data []byte) (*Registry, error) {
	var doc struct {
		Domains []Entry `yaml:"domains"`
	}
	if err := yaml.Unmarshal(data, &doc); err != nil {
		return nil, err
	}

	r := &Registry{entries: doc.Domains, byPrefix: make(map[string]int, len(doc.Domains))}
	tables := make(map[string]string, len(doc.Domains))
	for i, e := range doc.Domains {
		if e.Prefix == "" || e.Table == "" {
			return nil, fmt.Errorf("entry %d: prefix and table are required", i)
		}
		if strings.Contains(e.Prefix, ".") {
			return nil, fmt.Errorf("%s: prefix must not contain a dot", e.Prefix)
		}
		if _, dup := r.byPrefix[e.Prefix]; dup {
			return nil, fmt.Errorf("%s: duplicate prefix", e.Prefix)
		}
		if other, dup := tables[e.Table]; dup {
			return nil, fmt.Errorf("%s: table %s already owned by %s", e.Prefix, e.Table, other)
		}
		switch e.Category {
		case CategoryAnamnese, CategoryDiagnostico, CategorySolucao:
		default:
			return nil, fmt.Errorf("%s: unknown category %q", e.Prefix, e.Category)
		}
		if !IsKnownStage(e.Stage) {
			return nil, fmt.Errorf("%s: unknown stage %q", e.Prefix, e.Stage)
		}
		if (e.Category == CategorySolucao) != (e.SolutionStage != SolutionNone) {
			return nil, fmt.Errorf("%s: solution_stage is required for solucao entries only", e.Prefix)
		}
		if e.SolutionStage != SolutionNone && !IsKnownSolutionStage(e.SolutionStage) {
			return nil, fmt.Errorf("%s: unknown solution_stage %q", e.Prefix, e.SolutionStage)
		}
		if len(e.Fields) == 0 {
			return nil, fmt.Errorf("%s: no fields declared", e.Prefix)
		}
		r.byPrefix[e.Prefix] = i
		tables[e.Table] = e.Prefix
	}
	return r, nil
}

// Resolve routes a dotted field path to its domain entry.
// Unknown prefixes fail with DomainNotFound; undeclared fields with Validation.
func (r *Registry) Resolve(fieldPath string) (Resolution, error) {
	path, err := ParseFieldPath(fieldPath)
	if err != nil {
		return Resolution{}, err
	}
	entry, ok := r.Lookup(path.Prefix)
	if !ok {
		return Resolution{}, apperr.DomainNotFound(path.Prefix)
	}
	field, ok := entry.field(path.Field)
	if !ok {
		return Resolution{}, apperr.Validation(fmt.Sprintf("campo %q não existe no domínio %s", path.Field, entry.Prefix))
	}
	return Resolution{Entry: entry, Field: field, Path: path}, nil
}

// Lookup returns the entry for a prefix.
func (r *Registry) Lookup(prefix string) (Entry, bool) {
	i, ok := r.byPrefix[prefix]
	if !ok {
		return Entry{}, false
	}
	return r.entries[i], true
}

// Entries returns every entry in declaration order.
func (r *Registry) Entries() []Entry {
	out := make([]Entry, len(r.entries))
	copy(out, r.entries)
	return out
}

// ByCategory returns the entries owned by one category.
func (r *Registry) ByCategory(c Category) []Entry {
	var out []Entry
	for _, e := range r.entries {
		if e.Category == c {
			out = append(out, e)
		}
	}
	return out
}
