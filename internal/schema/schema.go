// Package schema loads the entity schemas that describe which properties a content
// object has, their types, whether they are multilingual, and how they are validated.
//
// Schemas are shipped as JSON documents and may be extended at runtime with YAML
// documents adding properties.
package schema

import (
	"embed"
	"encoding/json"
	"errors"
	"fmt"
	"maps"
	"path"
	"slices"
	"strings"
	"sync"

	"github.com/santhosh-tekuri/jsonschema/v6"
	"gopkg.in/yaml.v3"
)

// Names of the shipped schemas.
const (
	Publication        = "publication"
	Context            = "context"
	Site               = "site"
	NavigationMenuItem = "navigationMenuItem"
)

// Property types.
const (
	TypeString  = "string"
	TypeInteger = "integer"
	TypeNumber  = "number"
	TypeBoolean = "boolean"
	TypeObject  = "object"
	TypeArray   = "array"
)

var (
	// ErrSchemaNotFound is returned when no schema with the requested name is loaded.
	ErrSchemaNotFound = errors.New("schema not found")
	// ErrInvalidSchema is returned when a schema document can not be decoded.
	ErrInvalidSchema = errors.New("invalid schema")

	//go:embed schemas/*.json
	embedded embed.FS
)

// Property describes one property of an entity.
type Property struct {
	Type               string               `json:"type"                         yaml:"type"`
	Description        string               `json:"description,omitempty"        yaml:"description"`
	Multilingual       bool                 `json:"multilingual,omitempty"       yaml:"multilingual"`
	ReadOnly           bool                 `json:"readOnly,omitempty"           yaml:"readOnly"`
	WriteDisabledInAPI bool                 `json:"writeDisabledInApi,omitempty" yaml:"writeDisabledInApi"`
	APISummary         bool                 `json:"apiSummary,omitempty"         yaml:"apiSummary"`
	Default            any                  `json:"default,omitempty"            yaml:"default"`
	Validation         string               `json:"validation,omitempty"         yaml:"validation"`
	Format             string               `json:"format,omitempty"             yaml:"format"`
	Enum               []any                `json:"enum,omitempty"               yaml:"enum"`
	Minimum            *float64             `json:"minimum,omitempty"            yaml:"minimum"`
	MaxLength          *int                 `json:"maxLength,omitempty"          yaml:"maxLength"`
	Items              *Property            `json:"items,omitempty"              yaml:"items"`
	Properties         map[string]*Property `json:"properties,omitempty"         yaml:"properties"`
}

// Schema describes an entity.
type Schema struct {
	Name        string               `json:"-"`
	Title       string               `json:"title"`
	Description string               `json:"description"`
	Required    []string             `json:"required"`
	Properties  map[string]*Property `json:"properties"`

	mu       sync.Mutex
	compiled *jsonschema.Schema
}

// Extension is the YAML document accepted by Service.Extend.
type Extension struct {
	Required   []string             `yaml:"required"`
	Properties map[string]*Property `yaml:"properties"`
}

// Service holds the loaded schemas.
type Service struct {
	mu      sync.RWMutex
	schemas map[string]*Schema
}

// NewService loads the shipped schemas.
func NewService() (*Service, error) {
	s := &Service{schemas: map[string]*Schema{}}

	entries, err := embedded.ReadDir("schemas")
	if err != nil {
		return nil, fmt.Errorf("read embedded schemas: %w", err)
	}

	for _, e := range entries {
		b, err := embedded.ReadFile(path.Join("schemas", e.Name()))
		if err != nil {
			return nil, fmt.Errorf("read schema %s: %w", e.Name(), err)
		}

		if err = s.Add(strings.TrimSuffix(e.Name(), ".json"), b); err != nil {
			return nil, err
		}
	}

	return s, nil
}

// Add registers a schema from its JSON document, replacing one of the same name.
func (s *Service) Add(name string, doc []byte) error {
	sch := &Schema{}
	if err := json.Unmarshal(doc, sch); err != nil {
		return fmt.Errorf("%w %s: %w", ErrInvalidSchema, name, err)
	}

	if sch.Properties == nil {
		sch.Properties = map[string]*Property{}
	}

	sch.Name = name

	s.mu.Lock()
	s.schemas[name] = sch
	s.mu.Unlock()

	return nil
}

// Get returns the named schema.
func (s *Service) Get(name string) (*Schema, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	sch, ok := s.schemas[name]
	if !ok {
		return nil, fmt.Errorf("%w: %s", ErrSchemaNotFound, name)
	}

	return sch, nil
}

// MustGet is Get for the shipped schemas, which are always present.
func (s *Service) MustGet(name string) *Schema {
	sch, err := s.Get(name)
	if err != nil {
		panic(err)
	}

	return sch
}

// Extend adds the properties of a YAML extension document to the named schema.
// Existing properties are replaced.
func (s *Service) Extend(name string, doc []byte) error {
	sch, err := s.Get(name)
	if err != nil {
		return err
	}

	var ext Extension
	if err = yaml.Unmarshal(doc, &ext); err != nil {
		return fmt.Errorf("%w extension for %s: %w", ErrInvalidSchema, name, err)
	}

	sch.mu.Lock()
	defer sch.mu.Unlock()

	maps.Copy(sch.Properties, ext.Properties)

	for _, r := range ext.Required {
		if !slices.Contains(sch.Required, r) {
			sch.Required = append(sch.Required, r)
		}
	}

	sch.compiled = nil

	return nil
}

// Property returns a property or nil.
func (sc *Schema) Property(name string) *Property {
	return sc.Properties[name]
}

// PropertyNames returns all property names in sorted order.
func (sc *Schema) PropertyNames() []string {
	return slices.Sorted(maps.Keys(sc.Properties))
}

// MultilingualProps returns the multilingual property names in sorted order.
func (sc *Schema) MultilingualProps() []string {
	return sc.filter(func(p *Property) bool { return p.Multilingual })
}

// SummaryProps returns the properties included in summary representations.
func (sc *Schema) SummaryProps() []string {
	return sc.filter(func(p *Property) bool { return p.APISummary })
}

// ReadOnlyProps returns the properties that can not be written through the api.
func (sc *Schema) ReadOnlyProps() []string {
	return sc.filter(func(p *Property) bool { return p.ReadOnly || p.WriteDisabledInAPI })
}

// RequiredProps returns the required property names.
func (sc *Schema) RequiredProps() []string {
	return slices.Clone(sc.Required)
}

func (sc *Schema) filter(keep func(*Property) bool) []string {
	var out []string

	for _, name := range sc.PropertyNames() {
		if keep(sc.Properties[name]) {
			out = append(out, name)
		}
	}

	return out
}
