package breeze

import (
	"path"
	"reflect"
	"strconv"
	"strings"

	"gorm.io/gorm/schema"
)

// Breeze data type names
const (
	TypeBinary         = "Binary"
	TypeBoolean        = "Boolean"
	TypeByte           = "Byte"
	TypeDateTime       = "DateTime"
	TypeDateTimeOffset = "DateTimeOffset"
	TypeDecimal        = "Decimal"
	TypeDouble         = "Double"
	TypeGuid           = "Guid"
	TypeInt16          = "Int16"
	TypeInt32          = "Int32"
	TypeInt64          = "Int64"
	TypeSByte          = "SByte"
	TypeSingle         = "Single"
	TypeString         = "String"
	TypeTime           = "Time"
	TypeUndefined      = "Undefined"
)

// Map of Go type name to Breeze data type
var breezeTypeMap = map[string]string{
	"bool":            TypeBoolean,
	"int8":            TypeSByte,
	"uint8":           TypeByte,
	"int16":           TypeInt16,
	"uint16":          TypeInt32,
	"int32":           TypeInt32,
	"uint32":          TypeInt64,
	"int":             TypeInt64,
	"int64":           TypeInt64,
	"uint":            TypeInt64,
	"uint64":          TypeInt64,
	"float32":         TypeSingle,
	"float64":         TypeDouble,
	"string":          TypeString,
	"[]byte":          TypeBinary,
	"time.Time":       TypeDateTime,
	"time.Duration":   TypeTime,
	"uuid.UUID":       TypeGuid,
	"uuid.NullUUID":   TypeGuid,
	"decimal.Decimal": TypeDecimal,
	"sql.NullBool":    TypeBoolean,
	"sql.NullByte":    TypeByte,
	"sql.NullInt16":   TypeInt16,
	"sql.NullInt32":   TypeInt32,
	"sql.NullInt64":   TypeInt64,
	"sql.NullFloat64": TypeDouble,
	"sql.NullString":  TypeString,
	"sql.NullTime":    TypeDateTime,
	"gorm.DeletedAt":  TypeDateTime,
}

// Map of declared column type to Breeze data type, consulted before the Go type
var columnTypeMap = map[string]string{
	"timestamptz":              TypeDateTimeOffset,
	"timestamp with time zone": TypeDateTimeOffset,
	"datetimeoffset":           TypeDateTimeOffset,
	"decimal":                  TypeDecimal,
	"numeric":                  TypeDecimal,
	"money":                    TypeDecimal,
	"uuid":                     TypeGuid,
	"uniqueidentifier":         TypeGuid,
	"blob":                     TypeBinary,
	"longblob":                 TypeBinary,
	"bytea":                    TypeBinary,
	"varbinary":                TypeBinary,
}

// Map of GORM's generic data type, the last resort
var gormTypeMap = map[schema.DataType]string{
	schema.Bool:   TypeBoolean,
	schema.Int:    TypeInt64,
	schema.Uint:   TypeInt64,
	schema.Float:  TypeDouble,
	schema.String: TypeString,
	schema.Time:   TypeDateTime,
	schema.Bytes:  TypeBinary,
}

// Map of Breeze data type to Breeze validation type
var validationTypeMap = map[string]string{
	TypeBoolean:        "bool",
	TypeByte:           "byte",
	TypeDateTime:       "date",
	TypeDateTimeOffset: "date",
	TypeDecimal:        "number",
	TypeGuid:           "guid",
	TypeInt16:          "int16",
	TypeInt32:          "int32",
	TypeInt64:          "integer",
	TypeSingle:         "number",
	TypeDouble:         "number",
	TypeTime:           "duration",
}

// DataTypeOf resolves the Breeze data type of a field
func DataTypeOf(f *schema.Field) string {
	if base := columnBaseType(f); base != "" {
		if t, ok := columnTypeMap[base]; ok {
			return t
		}
	}
	if f.IndirectFieldType != nil {
		if t, ok := breezeTypeMap[goTypeName(f.IndirectFieldType)]; ok {
			return t
		}
		if t, ok := breezeTypeMap[f.IndirectFieldType.Kind().String()]; ok {
			return t
		}
	}
	if t, ok := gormTypeMap[f.GORMDataType]; ok {
		return t
	}
	if t, ok := gormTypeMap[f.DataType]; ok {
		return t
	}
	return TypeUndefined
}

// ValidationTypeOf returns the validator name for a Breeze data type, if any
func ValidationTypeOf(dataType string) (string, bool) {
	v, ok := validationTypeMap[dataType]
	return v, ok
}

// goTypeName names a type as it is written in source: "time.Time", "[]byte", "int64"
func goTypeName(t reflect.Type) string {
	if t.Kind() == reflect.Slice && t.Elem().Kind() == reflect.Uint8 && t.Name() == "" {
		return "[]byte"
	}
	if t.PkgPath() == "" {
		return t.Name()
	}
	return path.Base(t.PkgPath()) + "." + t.Name()
}

// columnBaseType returns the lowercase declared column type without its size, e.g. "varchar"
func columnBaseType(f *schema.Field) string {
	declared := strings.ToLower(strings.TrimSpace(f.TagSettings["TYPE"]))
	if i := strings.IndexByte(declared, '('); i >= 0 {
		declared = strings.TrimSpace(declared[:i])
	}
	return declared
}

// columnLength returns the declared size, falling back to the size in a type like varchar(40)
func columnLength(f *schema.Field) int {
	if f.Size > 0 {
		return f.Size
	}
	declared := f.TagSettings["TYPE"]
	open := strings.IndexByte(declared, '(')
	end := strings.IndexByte(declared, ')')
	if open < 0 || end < open {
		return 0
	}
	n, err := strconv.Atoi(strings.TrimSpace(declared[open+1 : end]))
	if err != nil {
		return 0
	}
	return n
}

// isNullable reports whether a field can hold a null value on the client
func isNullable(f *schema.Field) bool {
	if f.PrimaryKey || f.NotNull {
		return false
	}
	if f.FieldType == nil {
		return false
	}
	switch f.FieldType.Kind() {
	case reflect.Ptr, reflect.Slice, reflect.Map, reflect.Interface:
		return true
	case reflect.Struct:
		// sql.NullString, gorm.DeletedAt and friends
		valid, ok := f.FieldType.FieldByName("Valid")
		return ok && valid.Type.Kind() == reflect.Bool
	}
	return false
}

// defaultValueOf returns the literal column default, ignoring database functions
func defaultValueOf(f *schema.Field) interface{} {
	if f.AutoIncrement || !f.HasDefaultValue {
		return nil
	}
	return f.DefaultValueInterface
}
