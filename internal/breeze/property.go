package breeze

import (
	"fmt"
	"reflect"
	"strconv"
	"strings"

	"gorm.io/gorm/schema"
)

// makeDataProperty makes data property metadata for a field.
// isKey marks the property as part of the entity key, isVersion as the concurrency token.
func (b *build) makeDataProperty(name string, f *schema.Field, nullable, isKey, isVersion bool) *DataProperty {
	dataType := DataTypeOf(f)

	dp := &DataProperty{
		NameOnServer: name,
		DataType:     dataType,
		IsNullable:   nullable,
	}

	if !isKey {
		if dv := defaultValueOf(f); dv != nil {
			dp.DefaultValue = dv
		}
	}
	if isKey {
		dp.IsPartOfKey = true
	}
	if isVersion {
		dp.ConcurrencyMode = ConcurrencyModeFixed
	}

	var validators []Validator
	if !nullable {
		validators = append(validators, Validator{"name": "required"})
	}
	if dataType == TypeString || dataType == TypeBinary {
		if length := columnLength(f); length > 0 {
			dp.MaxLength = length
			validators = append(validators, Validator{"maxLength": strconv.Itoa(length), "name": "maxLength"})
		}
	}
	if validationType, ok := ValidationTypeOf(dataType); ok {
		validators = append(validators, Validator{"name": validationType})
	}
	if len(validators) > 0 {
		dp.Validators = validators
	}
	return dp
}

// addComponent adds a complex type definition and returns its qualified name.
// fields are the flattened members of the embedded struct; depth is the index of the
// member's own name in their bind names.
func (b *build) addComponent(t reflect.Type, fields []*schema.Field, depth int) string {
	typeName := b.entityTypeName(t)
	if _, ok := b.typeNames[typeName]; ok {
		// only add a complex type definition once
		return typeName
	}
	b.typeNames[typeName] = struct{}{}

	ct := &StructuralType{
		ShortName:      t.Name(),
		Namespace:      b.namespaceOf(t),
		IsComplexType:  true,
		DataProperties: []*DataProperty{},
	}
	b.doc.StructuralTypes = append([]*StructuralType{ct}, b.doc.StructuralTypes...)

	nested := make(map[string]struct{})
	for _, f := range fields {
		if len(f.BindNames) > depth+1 {
			// nested complex type
			inner := f.BindNames[depth]
			if _, done := nested[inner]; done {
				continue
			}
			nested[inner] = struct{}{}

			sf, ok := t.FieldByName(inner)
			if !ok {
				continue
			}
			name, ok := jsonName(sf)
			if !ok {
				continue
			}
			var members []*schema.Field
			for _, m := range fields {
				if len(m.BindNames) > depth+1 && m.BindNames[depth] == inner {
					members = append(members, m)
				}
			}
			ct.DataProperties = append(ct.DataProperties, &DataProperty{
				NameOnServer:    name,
				ComplexTypeName: b.addComponent(indirectType(sf.Type), members, depth+1),
				IsNullable:      sf.Type.Kind() == reflect.Ptr,
			})
			continue
		}

		name, ok := jsonName(f.StructField)
		if !ok {
			continue
		}
		ct.DataProperties = append(ct.DataProperties, b.makeDataProperty(name, f, isNullable(f), false, false))
	}
	return typeName
}

// makeAssociationProperty makes navigation property metadata for a relationship.
// It also populates the fkMap which is used for related-entity fixup when saving.
func (b *build) makeAssociationProperty(s *schema.Schema, rel *schema.Relationship, name string, columns map[string]*DataProperty) (*NavigationProperty, error) {
	related := rel.FieldSchema

	np := &NavigationProperty{
		NameOnServer:    name,
		EntityTypeName:  b.entityTypeName(related.ModelType),
		IsScalar:        rel.Type == schema.BelongsTo || rel.Type == schema.HasOne,
		AssociationName: AssociationName(s.ModelType.Name(), related.ModelType.Name(), isOneToOne(s, rel)),
	}

	switch rel.Type {
	case schema.BelongsTo:
		var fkColumns []string
		isKey := true
		for _, ref := range rel.References {
			if ref.PrimaryKey == nil || ref.OwnPrimaryKey || ref.ForeignKey == nil {
				continue
			}
			fkColumns = append(fkColumns, ref.ForeignKey.DBName)
			isKey = isKey && ref.ForeignKey.PrimaryKey
		}

		relationship := b.namespaceOf(s.ModelType) + "." + s.ModelType.Name() + "." + name
		fkProps, ok := lookupColumns(columns, fkColumns)
		if !ok {
			return nil, fmt.Errorf("%w for property %s", ErrUnmatchedForeignKey, relationship)
		}

		fkNames := make([]string, 0, len(fkProps))
		for _, dp := range fkProps {
			fkNames = append(fkNames, dp.NameOnServer)
			if isKey && !dp.IsPartOfKey {
				dp.IsPartOfKey = true
			}
		}
		np.ForeignKeyNamesOnServer = fkNames
		b.doc.FKMap[relationship] = strings.Join(fkNames, ",")

	case schema.HasOne, schema.HasMany:
		var invNames []string
		for _, ref := range rel.References {
			if ref.PrimaryKey == nil || !ref.OwnPrimaryKey || ref.ForeignKey == nil {
				continue
			}
			if fk, ok := jsonName(ref.ForeignKey.StructField); ok {
				invNames = append(invNames, fk)
			}
		}
		if len(invNames) > 0 {
			np.InvForeignKeyNamesOnServer = invNames
		}
	}
	return np, nil
}

// lookupColumns matches fk columns against data properties, first as a whole and then column by column
func lookupColumns(columns map[string]*DataProperty, fkColumns []string) ([]*DataProperty, bool) {
	if len(fkColumns) == 0 {
		return nil, false
	}
	if dp, ok := columns[ColumnKey(fkColumns)]; ok {
		return []*DataProperty{dp}, true
	}
	if len(fkColumns) == 1 {
		return nil, false
	}
	found := make([]*DataProperty, 0, len(fkColumns))
	for _, c := range fkColumns {
		dp, ok := columns[ColumnKey([]string{c})]
		if !ok {
			return nil, false
		}
		found = append(found, dp)
	}
	return found, true
}

// isOneToOne reports whether rel is one end of a one-to-one association.
// A belongs-to is one-to-one when the related entity has a has-one back over the same foreign key.
func isOneToOne(s *schema.Schema, rel *schema.Relationship) bool {
	switch rel.Type {
	case schema.HasOne:
		return true
	case schema.BelongsTo:
		own := foreignKeyColumns(rel)
		for _, back := range rel.FieldSchema.Relationships.HasOne {
			if back.FieldSchema != nil && back.FieldSchema.ModelType == s.ModelType && foreignKeyColumns(back) == own {
				return true
			}
		}
	}
	return false
}

func foreignKeyColumns(rel *schema.Relationship) string {
	var cols []string
	for _, ref := range rel.References {
		if ref.PrimaryKey != nil && ref.ForeignKey != nil {
			cols = append(cols, ref.ForeignKey.DBName)
		}
	}
	return ColumnKey(cols)
}
