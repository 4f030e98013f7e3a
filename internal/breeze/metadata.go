package breeze

// DefaultLocalQueryComparisonOptions is the comparison mode announced to the client
// when no other value is configured.
const DefaultLocalQueryComparisonOptions = "caseInsensitiveSQL"

// Key generation strategies understood by the Breeze client
const (
	KeyTypeIdentity     = "Identity"
	KeyTypeNone         = "None"
	KeyTypeKeyGenerator = "KeyGenerator"
)

// ConcurrencyModeFixed marks the property holding the entity version
const ConcurrencyModeFixed = "Fixed"

// Metadata is the root of the Breeze metadata document.
// The result can be converted to JSON and sent to the Breeze client.
type Metadata struct {
	LocalQueryComparisonOptions string            `json:"localQueryComparisonOptions"`
	StructuralTypes             []*StructuralType `json:"structuralTypes"`
	ResourceEntityTypeMap       map[string]string `json:"resourceEntityTypeMap"`
	FKMap                       map[string]string `json:"fkMap"`
}

// StructuralType describes either an entity type or a complex type
type StructuralType struct {
	ShortName            string                `json:"shortName"`
	Namespace            string                `json:"namespace"`
	BaseTypeName         string                `json:"baseTypeName,omitempty"`
	IsComplexType        bool                  `json:"isComplexType,omitempty"`
	AutoGeneratedKeyType string                `json:"autoGeneratedKeyType,omitempty"`
	DefaultResourceName  string                `json:"defaultResourceName,omitempty"`
	DataProperties       []*DataProperty       `json:"dataProperties"`
	NavigationProperties []*NavigationProperty `json:"navigationProperties,omitempty"`
}

// TypeName returns the qualified name in the form "Order:#northwind.model"
func (st *StructuralType) TypeName() string {
	return qualifiedName(st.ShortName, st.Namespace)
}

// DataProperty describes a scalar or complex-valued property
type DataProperty struct {
	NameOnServer    string      `json:"nameOnServer"`
	DataType        string      `json:"dataType,omitempty"`
	ComplexTypeName string      `json:"complexTypeName,omitempty"`
	IsNullable      bool        `json:"isNullable"`
	DefaultValue    interface{} `json:"defaultValue,omitempty"`
	IsPartOfKey     bool        `json:"isPartOfKey,omitempty"`
	ConcurrencyMode string      `json:"concurrencyMode,omitempty"`
	MaxLength       int         `json:"maxLength,omitempty"`
	Validators      []Validator `json:"validators,omitempty"`
}

// NavigationProperty describes one end of an association
type NavigationProperty struct {
	NameOnServer               string   `json:"nameOnServer"`
	EntityTypeName             string   `json:"entityTypeName"`
	IsScalar                   bool     `json:"isScalar"`
	AssociationName            string   `json:"associationName"`
	ForeignKeyNamesOnServer    []string `json:"foreignKeyNamesOnServer,omitempty"`
	InvForeignKeyNamesOnServer []string `json:"invForeignKeyNamesOnServer,omitempty"`
}

// Validator is a client-side validator definition, e.g. {"name": "required"}
type Validator map[string]string

// Name returns the validator name
func (v Validator) Name() string {
	return v["name"]
}

func newMetadata(comparison string) *Metadata {
	return &Metadata{
		LocalQueryComparisonOptions: comparison,
		StructuralTypes:             []*StructuralType{},
		ResourceEntityTypeMap:       make(map[string]string),
		FKMap:                       make(map[string]string),
	}
}

// EntityType finds a structural type by short name
func (m *Metadata) EntityType(shortName string) (*StructuralType, bool) {
	for _, st := range m.StructuralTypes {
		if st.ShortName == shortName {
			return st, true
		}
	}
	return nil, false
}

// DataProperty finds a data property by its server name
func (st *StructuralType) DataProperty(name string) (*DataProperty, bool) {
	for _, dp := range st.DataProperties {
		if dp.NameOnServer == name {
			return dp, true
		}
	}
	return nil, false
}

// NavigationProperty finds a navigation property by its server name
func (st *StructuralType) NavigationProperty(name string) (*NavigationProperty, bool) {
	for _, np := range st.NavigationProperties {
		if np.NameOnServer == name {
			return np, true
		}
	}
	return nil, false
}

// HasValidator reports whether a validator with the given name is attached
func (dp *DataProperty) HasValidator(name string) bool {
	for _, v := range dp.Validators {
		if v.Name() == name {
			return true
		}
	}
	return false
}
