package breeze

import (
	"reflect"
	"strings"

	"github.com/jinzhu/inflection"
)

const (
	associationPrefix = "AN_"
	oneToOneSuffix    = "_1to1"
)

// Pluralizer turns an entity short name into its default resource name
type Pluralizer func(string) string

// ResourceNamer lets a model choose its own resource name instead of the pluralized type name
type ResourceNamer interface {
	BreezeResourceName() string
}

// Pluralize is a lame pluralizer. It assumes we just need to add a suffix.
func Pluralize(s string) string {
	if s == "" {
		return s
	}
	last := len(s) - 1
	switch s[last] {
	case 'y':
		return s[:last] + "ies"
	default:
		return s + "s"
	}
}

// InflectionPluralize pluralizes using English inflection rules
func InflectionPluralize(s string) string {
	if s == "" {
		return s
	}
	return inflection.Plural(s)
}

// PluralizerByName resolves a configured pluralizer name. Unknown names fall back to Pluralize.
func PluralizerByName(name string) Pluralizer {
	switch strings.ToLower(name) {
	case "inflection":
		return InflectionPluralize
	default:
		return Pluralize
	}
}

// AssociationName creates an association name from two entity names.
// The names are put in alphabetical order so both ends of the association agree.
func AssociationName(name1, name2 string, oneToOne bool) string {
	suffix := ""
	if oneToOne {
		suffix = oneToOneSuffix
	}
	if name1 < name2 {
		return associationPrefix + name1 + "_" + name2 + suffix
	}
	return associationPrefix + name2 + "_" + name1 + suffix
}

// UnBracket strips square brackets, quotes or backticks around a column name. E.g. "[OrderID]" -> OrderID
func UnBracket(name string) string {
	if len(name) >= 2 && name[0] == '[' {
		name = name[1 : len(name)-1]
	}
	if len(name) >= 2 && (name[0] == '"' || name[0] == '`') {
		name = name[1 : len(name)-1]
	}
	return name
}

// ColumnKey joins column names into the comma-delimited, unbracketed, lowercase form
// used to match foreign key columns against data properties.
func ColumnKey(columns []string) string {
	var sb strings.Builder
	for _, c := range columns {
		if sb.Len() > 0 {
			sb.WriteByte(',')
		}
		sb.WriteString(UnBracket(c))
	}
	return strings.ToLower(sb.String())
}

// jsonName returns the name the field is serialized under, and false when it is not serialized at all
func jsonName(sf reflect.StructField) (string, bool) {
	tag := sf.Tag.Get("json")
	if tag == "-" {
		return "", false
	}
	name, _, _ := strings.Cut(tag, ",")
	if name == "" {
		name = sf.Name
	}
	return name, true
}

func qualifiedName(shortName, namespace string) string {
	return shortName + ":#" + namespace
}

func hasBreezeOption(sf reflect.StructField, option string) bool {
	for _, opt := range strings.Split(sf.Tag.Get("breeze"), ",") {
		if strings.EqualFold(strings.TrimSpace(opt), option) {
			return true
		}
	}
	return false
}
