package model

import (
	"github.com/conduit-lang/halstore/pkg/schema"
)

// Payload builds the full write payload keyed by wire name.
// Attributes contribute their write-transformed value unless excluded; relations
// contribute href references only when declared IncludeInPayload.
func (m *Model) Payload() map[string]interface{} {
	payload := make(map[string]interface{})
	values := m.tracker.Snapshot()

	for _, p := range m.schema.PropertiesOfKind(schema.KindAttribute) {
		if p.ExcludeFromPayload {
			continue
		}
		if v, ok := values[p.Name]; ok {
			payload[p.ExternalName] = writeValue(p, v)
		}
	}

	for _, p := range m.schema.Relationships() {
		if !p.IncludeInPayload {
			continue
		}
		if ref, ok := m.relationReference(p); ok {
			payload[p.ExternalName] = ref
		}
	}
	return payload
}

// ChangedPayload builds a partial-update payload holding only attributes whose value
// differs from the baseline, plus payload-included relations assigned since the last
// save. A non-empty fields list restricts the payload to those local names.
// The result may be empty.
func (m *Model) ChangedPayload(fields ...string) map[string]interface{} {
	payload := make(map[string]interface{})

	for name, v := range m.tracker.ChangedData(fields...) {
		p, ok := m.schema.Property(name)
		if !ok || p.Kind != schema.KindAttribute || p.ExcludeFromPayload {
			continue
		}
		payload[p.ExternalName] = writeValue(p, v)
	}

	allowed := make(map[string]bool, len(fields))
	for _, f := range fields {
		allowed[f] = true
	}

	m.mu.RLock()
	assigned := make([]string, 0, len(m.dirty))
	for name := range m.dirty {
		assigned = append(assigned, name)
	}
	m.mu.RUnlock()

	for _, name := range assigned {
		if len(fields) > 0 && !allowed[name] {
			continue
		}
		p, ok := m.schema.Property(name)
		if !ok || !p.IncludeInPayload {
			continue
		}
		if ref, ok := m.relationReference(p); ok {
			payload[p.ExternalName] = ref
		}
	}
	return payload
}

func (m *Model) relationReference(p schema.Property) (interface{}, bool) {
	rel, ok := m.GetRelationship(p.Name)
	if !ok {
		return nil, false
	}

	if p.Kind == schema.KindHasOne {
		return map[string]interface{}{"href": rel.Model().UniqueIdentifier()}, true
	}

	items := rel.Document().Models()
	refs := make([]interface{}, 0, len(items))
	for _, item := range items {
		refs = append(refs, map[string]interface{}{"href": item.UniqueIdentifier()})
	}
	return refs, true
}

func writeValue(p schema.Property, v interface{}) interface{} {
	switch boxed := v.(type) {
	case *Model:
		if boxed != nil {
			v = boxed.Payload()
		}
	case []*Model:
		items := make([]interface{}, 0, len(boxed))
		for _, item := range boxed {
			items = append(items, item.Payload())
		}
		v = items
	}
	if p.TransformBeforeSave != nil {
		v = p.TransformBeforeSave(v)
	}
	return v
}
