package cloudevents

import (
	"fmt"
	"mime"
	"strings"
	"time"
)

// Context attribute names shared by every binding.
const (
	AttrSpecVersion     = "specversion"
	AttrID              = "id"
	AttrSource          = "source"
	AttrType            = "type"
	AttrSubject         = "subject"
	AttrTime            = "time"
	AttrDataContentType = "datacontenttype"
	AttrDataSchema      = "dataschema"

	// attrSchemaURL is the 0.3 name of dataschema.
	attrSchemaURL = "schemaurl"
)

// setAttribute assigns a context attribute from its string form. Unknown
// names become extensions.
func (e *Event) setAttribute(name, value string) error {
	switch name {
	case AttrSpecVersion:
		e.SpecVersion = value
	case AttrID:
		e.ID = value
	case AttrSource:
		e.Source = value
	case AttrType:
		e.Type = value
	case AttrSubject:
		e.Subject = stringPtr(value)
	case AttrTime:
		t, err := time.Parse(time.RFC3339Nano, value)
		if err != nil {
			return fmt.Errorf("invalid time attribute %q: %w", value, err)
		}
		e.Time = t
	case AttrDataContentType:
		e.DataContentType = stringPtr(value)
	case AttrDataSchema, attrSchemaURL:
		e.DataSchema = stringPtr(value)
	default:
		e.SetExtension(name, value)
	}
	return nil
}

// attributes returns every set context attribute and extension in string form.
// datacontenttype is left out because each binding carries it in its own
// content type header.
func (e *Event) attributes() map[string]string {
	specVersion := e.SpecVersion
	if specVersion == "" {
		specVersion = SpecVersion
	}
	attrs := map[string]string{
		AttrSpecVersion: specVersion,
		AttrID:          e.ID,
		AttrSource:      e.Source,
		AttrType:        e.Type,
	}
	if e.Subject != nil {
		attrs[AttrSubject] = *e.Subject
	}
	if !e.Time.IsZero() {
		attrs[AttrTime] = e.Time.UTC().Format(time.RFC3339Nano)
	}
	if e.DataSchema != nil {
		attrs[AttrDataSchema] = *e.DataSchema
	}
	for name, value := range e.Extensions {
		attrs[name] = value
	}
	return attrs
}

// mediaType returns the lower-cased media type of a Content-Type value
// without parameters.
func mediaType(contentType string) string {
	if contentType == "" {
		return ""
	}
	mt, _, err := mime.ParseMediaType(contentType)
	if err != nil {
		mt, _, _ = strings.Cut(contentType, ";")
	}
	return strings.ToLower(strings.TrimSpace(mt))
}

func isJSONMediaType(mt string) bool {
	return mt == "" || mt == "application/json" || mt == "text/json" || strings.HasSuffix(mt, "+json")
}
