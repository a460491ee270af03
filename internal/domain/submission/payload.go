package submission

import (
	"fmt"
	"sort"
	"strings"

	"github.com/tidwall/gjson"
)

// Field is one submitted form field in posting order.
type Field struct {
	Name   string
	Values []string
	Multi  bool
}

// Upload lists the stored file paths of one file field.
type Upload struct {
	Field string
	Paths []string
}

// Payload is the "submission accepted" event body.
type Payload struct {
	FormID     string
	FormTitle  string
	DeliveryID string
	Fields     []Field
	Uploads    []Upload
}

// ParsePayload decodes an event body of the form
//
//	{"form_id": "...", "form_title": "...", "delivery_id": "...",
//	 "fields": {"name": "v" | ["a", "b"]}, "files": {"cv": "/p" | ["/p"]}}
//
// keeping field order. ok is false when the body is not JSON, is not an
// object, or carries no "fields" object; such events are dropped.
func ParsePayload(data []byte) (Payload, bool) {
	if !gjson.ValidBytes(data) {
		return Payload{}, false
	}
	root := gjson.ParseBytes(data)
	if !root.IsObject() {
		return Payload{}, false
	}
	fields := root.Get("fields")
	if !fields.IsObject() {
		return Payload{}, false
	}

	p := Payload{
		FormID:     scalarString(root.Get("form_id")),
		FormTitle:  scalarString(root.Get("form_title")),
		DeliveryID: strings.TrimSpace(scalarString(root.Get("delivery_id"))),
		Fields:     []Field{},
	}

	fields.ForEach(func(key, value gjson.Result) bool {
		if field, ok := fieldFromJSON(key.String(), value); ok {
			p.Fields = append(p.Fields, field)
		}
		return true
	})

	if files := root.Get("files"); files.IsObject() {
		files.ForEach(func(key, value gjson.Result) bool {
			upload := Upload{Field: key.String()}
			if value.IsArray() {
				for _, item := range value.Array() {
					if item.Type == gjson.String {
						upload.Paths = append(upload.Paths, item.String())
					}
				}
			} else if value.Type == gjson.String {
				upload.Paths = []string{value.String()}
			}
			p.Uploads = append(p.Uploads, upload)
			return true
		})
	}

	return p, true
}

func fieldFromJSON(name string, value gjson.Result) (Field, bool) {
	if value.IsArray() {
		values := make([]string, 0, len(value.Array()))
		for _, item := range value.Array() {
			if s, ok := scalar(item); ok {
				values = append(values, s)
			}
		}
		return Field{Name: name, Values: values, Multi: true}, true
	}

	s, ok := scalar(value)
	if !ok {
		return Field{}, false
	}
	return Field{Name: name, Values: []string{s}}, true
}

// scalar renders strings, numbers and booleans; null, objects and arrays
// have no text form.
func scalar(value gjson.Result) (string, bool) {
	switch value.Type {
	case gjson.String:
		return value.String(), true
	case gjson.Number:
		return value.Raw, true
	case gjson.True, gjson.False:
		return value.String(), true
	default:
		return "", false
	}
}

func scalarString(value gjson.Result) string {
	s, _ := scalar(value)
	return s
}

// FieldsFromMap converts a decoded map into fields sorted by name, since Go
// maps carry no posting order. Unsupported value types are skipped.
func FieldsFromMap(values map[string]any) []Field {
	names := make([]string, 0, len(values))
	for name := range values {
		names = append(names, name)
	}
	sort.Strings(names)

	fields := make([]Field, 0, len(names))
	for _, name := range names {
		switch v := values[name].(type) {
		case string:
			fields = append(fields, Field{Name: name, Values: []string{v}})
		case []string:
			fields = append(fields, Field{Name: name, Values: append([]string(nil), v...), Multi: true})
		case []any:
			items := make([]string, 0, len(v))
			for _, item := range v {
				if s, ok := anyScalar(item); ok {
					items = append(items, s)
				}
			}
			fields = append(fields, Field{Name: name, Values: items, Multi: true})
		default:
			if s, ok := anyScalar(v); ok {
				fields = append(fields, Field{Name: name, Values: []string{s}})
			}
		}
	}
	return fields
}

func anyScalar(v any) (string, bool) {
	switch t := v.(type) {
	case string:
		return t, true
	case bool, int, int32, int64, uint, uint32, uint64, float32, float64:
		return fmt.Sprint(t), true
	default:
		return "", false
	}
}
