package catalog

import (
	"net/http"
	"strings"
)

// recognized HTTP verbs; descriptors with anything else are dropped rather
// than defaulted to GET.
var knownMethods = map[string]struct{}{
	http.MethodGet:    {},
	http.MethodPost:   {},
	http.MethodPut:    {},
	http.MethodDelete: {},
	http.MethodPatch:  {},
}

// Manifest is the statically registered route table the discovery engine
// reads. Each handler package contributes its descriptors when routes are
// mounted, so the manifest always mirrors what the router actually serves.
type Manifest struct {
	descriptors []Descriptor
	seen        map[string]struct{}
}

// NewManifest returns an empty manifest.
func NewManifest() *Manifest {
	return &Manifest{seen: make(map[string]struct{})}
}

// Add registers descriptors. Controller names are normalized by trimming the
// conventional "Handler" suffix, methods are upper-cased, and descriptors
// with an unrecognized HTTP verb or a duplicate triple are skipped.
func (m *Manifest) Add(descs ...Descriptor) {
	for _, d := range descs {
		d.Controller = TrimHandlerSuffix(strings.TrimSpace(d.Controller))
		d.Action = strings.TrimSpace(d.Action)
		d.Method = strings.ToUpper(strings.TrimSpace(d.Method))
		if d.Controller == "" || d.Action == "" {
			continue
		}
		if _, ok := knownMethods[d.Method]; !ok {
			continue
		}
		key := d.Triple()
		if _, dup := m.seen[key]; dup {
			continue
		}
		m.seen[key] = struct{}{}
		m.descriptors = append(m.descriptors, d)
	}
}

// Descriptors returns a copy of the registered descriptors.
func (m *Manifest) Descriptors() []Descriptor {
	out := make([]Descriptor, len(m.descriptors))
	copy(out, m.descriptors)
	return out
}

// TrimHandlerSuffix strips the conventional handler type suffix from a
// controller name ("UsersHandler" -> "Users").
func TrimHandlerSuffix(name string) string {
	if strings.HasSuffix(name, "Handler") && len(name) > len("Handler") {
		return name[:len(name)-len("Handler")]
	}
	return name
}
