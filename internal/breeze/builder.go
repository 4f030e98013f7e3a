package breeze

import (
	"fmt"
	"reflect"
	"strings"
	"sync"

	"gorm.io/gorm/schema"
)

// Builder builds the data structure containing the metadata required by Breeze
// from the schemas GORM parses out of model structs.
// See http://www.breezejs.com/documentation/breeze-metadata-format
type Builder struct {
	namespace  string
	pluralize  Pluralizer
	comparison string
	namer      schema.Namer
	cache      *sync.Map
}

// Option configures a Builder
type Option func(*Builder)

// WithNamespace uses a fixed namespace instead of the Go package path of each model
func WithNamespace(namespace string) Option {
	return func(b *Builder) {
		b.namespace = namespace
	}
}

// WithPluralizer sets the function used to derive default resource names
func WithPluralizer(p Pluralizer) Option {
	return func(b *Builder) {
		if p != nil {
			b.pluralize = p
		}
	}
}

// WithLocalQueryComparisonOptions overrides the document header value
func WithLocalQueryComparisonOptions(value string) Option {
	return func(b *Builder) {
		if value != "" {
			b.comparison = value
		}
	}
}

// WithNamer sets the naming strategy used to derive column names. It should match the one
// the gorm.DB serving the models is configured with.
func WithNamer(namer schema.Namer) Option {
	return func(b *Builder) {
		if namer != nil {
			b.namer = namer
		}
	}
}

// NewBuilder creates a metadata builder
func NewBuilder(opts ...Option) *Builder {
	b := &Builder{
		pluralize:  Pluralize,
		comparison: DefaultLocalQueryComparisonOptions,
		namer:      schema.NamingStrategy{},
		cache:      &sync.Map{},
	}
	for _, opt := range opts {
		opt(b)
	}
	return b
}

// build holds the state of a single Build call
type build struct {
	*Builder
	doc       *Metadata
	typeNames map[string]struct{}
	entities  map[reflect.Type]*schema.Schema
}

// Build describes the given models, in order. Models are pointers to (or values of) GORM model structs.
func (b *Builder) Build(models ...interface{}) (*Metadata, error) {
	if len(models) == 0 {
		return nil, ErrNoModels
	}

	bs := &build{
		Builder:   b,
		doc:       newMetadata(b.comparison),
		typeNames: make(map[string]struct{}),
		entities:  make(map[reflect.Type]*schema.Schema),
	}

	schemas := make([]*schema.Schema, 0, len(models))
	for _, m := range models {
		s, err := schema.Parse(m, b.cache, b.namer)
		if err != nil {
			return nil, fmt.Errorf("failed to parse model %T: %w", m, err)
		}
		schemas = append(schemas, s)
		bs.entities[s.ModelType] = s
	}

	for _, s := range schemas {
		if err := bs.addClass(s); err != nil {
			return nil, err
		}
	}
	return bs.doc, nil
}

// addClass adds the metadata for an entity
func (b *build) addClass(s *schema.Schema) error {
	t := s.ModelType
	typeName := b.entityTypeName(t)

	st := &StructuralType{
		ShortName: t.Name(),
		Namespace: b.namespaceOf(t),
	}
	b.doc.StructuralTypes = append(b.doc.StructuralTypes, st)

	baseField, base := b.baseEntity(s)
	if base != nil {
		st.BaseTypeName = b.entityTypeName(base.ModelType)
	}

	st.AutoGeneratedKeyType = autoGeneratedKeyType(s)

	resourceName := b.resourceName(t, base)
	st.DefaultResourceName = resourceName
	b.doc.ResourceEntityTypeMap[resourceName] = typeName

	return b.addClassProperties(s, st, baseField)
}

// addClassProperties adds the data and navigation properties of an entity.
// Navigation properties are added last so their foreign keys can be looked up.
func (b *build) addClassProperties(s *schema.Schema, st *StructuralType, baseField string) error {
	// maps column names to their data properties, used to convert fk column names to property names
	columns := make(map[string]*DataProperty)

	keys := make([]*DataProperty, 0, len(s.PrimaryFields))
	data := make([]*DataProperty, 0, len(s.Fields))
	components := make(map[string]struct{})

	for _, f := range s.Fields {
		if f.DBName == "" {
			continue // associations and ignored fields
		}

		if owner, embedded := b.embeddingField(s, f); embedded {
			if owner.Name == baseField {
				// defined on the base entity; only needed for fk lookups
				if name, ok := jsonName(f.StructField); ok {
					columns[ColumnKey([]string{f.DBName})] = b.makeDataProperty(name, f, isNullable(f), f.PrimaryKey, false)
				}
				continue
			}
			if !owner.Anonymous {
				if _, done := components[owner.Name]; done {
					continue
				}
				components[owner.Name] = struct{}{}
				if cp := b.complexProperty(s, owner); cp != nil {
					data = append(data, cp)
				}
				continue
			}
			// anonymous non-entity structs such as gorm.Model are flattened into the entity
		}

		name, ok := jsonName(f.StructField)
		if !ok {
			continue
		}

		var dp *DataProperty
		if f.PrimaryKey {
			dp = b.makeDataProperty(name, f, false, true, false)
			keys = append(keys, dp)
		} else {
			dp = b.makeDataProperty(name, f, isNullable(f), false, hasBreezeOption(f.StructField, "concurrency"))
			data = append(data, dp)
		}
		columns[ColumnKey([]string{f.DBName})] = dp
	}

	st.DataProperties = append(keys, data...)

	for _, f := range s.Fields {
		if f.DBName != "" || len(f.BindNames) > 1 {
			continue
		}
		rel, ok := s.Relationships.Relations[f.Name]
		if !ok || rel.FieldSchema == nil {
			continue
		}
		name, ok := jsonName(f.StructField)
		if !ok {
			continue
		}
		np, err := b.makeAssociationProperty(s, rel, name, columns)
		if err != nil {
			return err
		}
		st.NavigationProperties = append(st.NavigationProperties, np)
	}
	return nil
}

// complexProperty describes a named embedded struct as a complex-typed property
func (b *build) complexProperty(s *schema.Schema, owner reflect.StructField) *DataProperty {
	name, ok := jsonName(owner)
	if !ok {
		return nil
	}

	var members []*schema.Field
	for _, f := range s.Fields {
		if f.DBName != "" && len(f.BindNames) > 1 && f.BindNames[0] == owner.Name {
			members = append(members, f)
		}
	}

	complexTypeName := b.addComponent(indirectType(owner.Type), members, 1)
	return &DataProperty{
		NameOnServer:    name,
		ComplexTypeName: complexTypeName,
		IsNullable:      owner.Type.Kind() == reflect.Ptr,
	}
}

// embeddingField returns the top-level struct field a flattened embedded field came from
func (b *build) embeddingField(s *schema.Schema, f *schema.Field) (reflect.StructField, bool) {
	if len(f.BindNames) < 2 {
		return reflect.StructField{}, false
	}
	owner, ok := s.ModelType.FieldByName(f.BindNames[0])
	return owner, ok
}

// baseEntity finds an anonymously embedded struct that is itself a described entity
func (b *build) baseEntity(s *schema.Schema) (string, *schema.Schema) {
	t := s.ModelType
	for i := 0; i < t.NumField(); i++ {
		sf := t.Field(i)
		if !sf.Anonymous {
			continue
		}
		if base, ok := b.entities[indirectType(sf.Type)]; ok && base != s {
			return sf.Name, base
		}
	}
	return "", nil
}

// resourceName asks the model for its resource name, ignoring a name promoted from the base entity
func (b *build) resourceName(t reflect.Type, base *schema.Schema) string {
	name := declaredResourceName(t)
	if name != "" && base != nil && name == declaredResourceName(base.ModelType) {
		name = ""
	}
	if name == "" {
		return b.pluralize(t.Name())
	}
	return name
}

func declaredResourceName(t reflect.Type) string {
	if rn, ok := reflect.New(t).Interface().(ResourceNamer); ok {
		return rn.BreezeResourceName()
	}
	return ""
}

// entityTypeName returns the type name in the form "Order:#northwind.model"
func (b *Builder) entityTypeName(t reflect.Type) string {
	return qualifiedName(t.Name(), b.namespaceOf(t))
}

func (b *Builder) namespaceOf(t reflect.Type) string {
	if b.namespace != "" {
		return b.namespace
	}
	return strings.ReplaceAll(t.PkgPath(), "/", ".")
}

// autoGeneratedKeyType maps the key generation of the primary key onto Breeze's key types
func autoGeneratedKeyType(s *schema.Schema) string {
	pk := s.PrioritizedPrimaryField
	if pk == nil && len(s.PrimaryFields) == 1 {
		pk = s.PrimaryFields[0]
	}
	switch {
	case pk == nil:
		return KeyTypeNone
	case pk.AutoIncrement:
		return KeyTypeIdentity
	case pk.HasDefaultValue && (pk.DefaultValue != "" || pk.DefaultValueInterface != nil):
		return KeyTypeKeyGenerator
	default:
		return KeyTypeNone
	}
}

func indirectType(t reflect.Type) reflect.Type {
	for t.Kind() == reflect.Ptr {
		t = t.Elem()
	}
	return t
}
