package explang

import (
	"reflect"
	"strings"
	"sync"
	"unicode"
	"unicode/utf8"

	"golang.org/x/text/cases"
	"golang.org/x/text/language"
)

var lowerCaser = cases.Lower(language.Und)

// PropertyName converts an exported Go field name into a bean-style property
// name: UserName becomes userName, while names starting with two upper-case
// letters such as URL or IDCard are kept as they are.
func PropertyName(fieldName string) string {
	first, size := utf8.DecodeRuneInString(fieldName)
	if size == 0 || !unicode.IsUpper(first) {
		return fieldName
	}

	if second, _ := utf8.DecodeRuneInString(fieldName[size:]); unicode.IsUpper(second) {
		return fieldName
	}

	return lowerCaser.String(fieldName[:size]) + fieldName[size:]
}

// StructProperty describes a struct field visible as a property.
type StructProperty struct {
	// Name is the primary property name: the param/db tag or the bean-style name.
	Name  string
	Field reflect.StructField
	Index []int
}

type structInfo struct {
	properties []StructProperty
	byName     map[string]int
	byFold     map[string]int
}

var structCache sync.Map // reflect.Type -> *structInfo

// StructProperties lists the properties of struct type t in field order,
// including fields promoted from embedded structs.
func StructProperties(t reflect.Type) []StructProperty {
	return lookupStruct(t).properties
}

func lookupStruct(t reflect.Type) *structInfo {
	if cached, ok := structCache.Load(t); ok {
		return cached.(*structInfo)
	}

	info := &structInfo{byName: make(map[string]int), byFold: make(map[string]int)}

	for _, field := range reflect.VisibleFields(t) {
		if !field.IsExported() || field.Anonymous {
			continue
		}

		name := tagName(field)
		if name == "-" {
			continue
		}

		if name == "" {
			name = PropertyName(field.Name)
		}

		idx := len(info.properties)
		info.properties = append(info.properties, StructProperty{Name: name, Field: field, Index: field.Index})

		// Tag and bean names win over Go field names of other fields.
		info.byName[name] = idx
		if _, exists := info.byName[field.Name]; !exists {
			info.byName[field.Name] = idx
		}

		if _, exists := info.byFold[strings.ToLower(name)]; !exists {
			info.byFold[strings.ToLower(name)] = idx
		}
	}

	actual, _ := structCache.LoadOrStore(t, info)

	return actual.(*structInfo)
}

func tagName(field reflect.StructField) string {
	for _, key := range []string{"param", "db"} {
		if tag, ok := field.Tag.Lookup(key); ok {
			name, _, _ := strings.Cut(tag, ",")
			if name != "" {
				return name
			}
		}
	}

	return ""
}

// structField finds the property called name on struct type t. Exact names
// win; otherwise a case-insensitive match lets #{id} reach a field named ID.
func structField(t reflect.Type, name string) (StructProperty, bool) {
	info := lookupStruct(t)

	idx, ok := info.byName[name]
	if !ok {
		idx, ok = info.byFold[strings.ToLower(name)]
		if !ok {
			return StructProperty{}, false
		}
	}

	return info.properties[idx], true
}
