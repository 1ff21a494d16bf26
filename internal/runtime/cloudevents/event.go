// Package cloudevents implements the CloudEvents attributes model and the
// HTTP and Kafka protocol bindings replyflow needs to turn sink responses
// into broker messages.
package cloudevents

import (
	"fmt"
	"maps"
	"time"
)

const (
	// SpecVersion is the CloudEvents specification version written by default.
	SpecVersion = "1.0"

	// SpecVersion03 is the legacy version still accepted on decode.
	SpecVersion03 = "0.3"
)

// Event is a CloudEvent whose payload is kept as the raw bytes received so it
// can be forwarded without re-encoding.
type Event struct {
	// Required attributes.
	SpecVersion string
	ID          string
	Source      string
	Type        string

	// Optional attributes.
	Subject         *string
	Time            time.Time
	DataContentType *string
	DataSchema      *string

	// Extensions holds extension attributes in their string form, which is
	// how both binary bindings carry them.
	Extensions map[string]string

	// Data is the event payload. Nil means the event has no data, which is
	// valid for header-only binary events.
	Data []byte
}

// New creates an Event with the required attributes set.
func New(id, eventType, source string) *Event {
	return &Event{
		SpecVersion: SpecVersion,
		ID:          id,
		Type:        eventType,
		Source:      source,
	}
}

// SetExtension sets an extension attribute, allocating the map when needed.
func (e *Event) SetExtension(name, value string) {
	if e.Extensions == nil {
		e.Extensions = make(map[string]string)
	}
	e.Extensions[name] = value
}

// Extension returns an extension value and whether it was present.
func (e *Event) Extension(name string) (string, bool) {
	v, ok := e.Extensions[name]
	return v, ok
}

// ContentType returns the data content type or an empty string.
func (e *Event) ContentType() string {
	if e.DataContentType == nil {
		return ""
	}
	return *e.DataContentType
}

// Validate checks the required attributes and extension names.
func (e *Event) Validate() error {
	switch e.SpecVersion {
	case SpecVersion, SpecVersion03:
	case "":
		return fmt.Errorf("specversion is required")
	default:
		return fmt.Errorf("specversion must be %q or %q, got %q", SpecVersion, SpecVersion03, e.SpecVersion)
	}
	if e.ID == "" {
		return fmt.Errorf("id is required")
	}
	if e.Source == "" {
		return fmt.Errorf("source is required")
	}
	if e.Type == "" {
		return fmt.Errorf("type is required")
	}
	for name := range e.Extensions {
		if !validExtensionName(name) {
			return fmt.Errorf("invalid extension name %q: only lowercase letters and digits are allowed", name)
		}
	}
	return nil
}

// Clone returns a deep copy of the event.
func (e *Event) Clone() *Event {
	cloned := *e
	if e.Subject != nil {
		v := *e.Subject
		cloned.Subject = &v
	}
	if e.DataContentType != nil {
		v := *e.DataContentType
		cloned.DataContentType = &v
	}
	if e.DataSchema != nil {
		v := *e.DataSchema
		cloned.DataSchema = &v
	}
	if e.Extensions != nil {
		cloned.Extensions = maps.Clone(e.Extensions)
	}
	if e.Data != nil {
		cloned.Data = append([]byte(nil), e.Data...)
	}
	return &cloned
}

func (e *Event) String() string {
	return fmt.Sprintf("cloudevent{specversion=%s id=%s source=%s type=%s datalen=%d}",
		e.SpecVersion, e.ID, e.Source, e.Type, len(e.Data))
}

func validExtensionName(name string) bool {
	if name == "" {
		return false
	}
	for _, r := range name {
		if (r < 'a' || r > 'z') && (r < '0' || r > '9') {
			return false
		}
	}
	return true
}

func stringPtr(s string) *string {
	return &s
}
