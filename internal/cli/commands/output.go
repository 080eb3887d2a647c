package commands

import (
	"encoding/json"
	"fmt"
	"io"
	"sort"
	"strings"

	"github.com/conduit-lang/halstore/internal/cli/ui"
	"github.com/conduit-lang/halstore/pkg/model"
	"github.com/conduit-lang/halstore/pkg/relationships"
)

// Output formats
const (
	FormatJSON  = "json"
	FormatTable = "table"
)

// renderedModel is the printable form of a model and its included relations
type renderedModel struct {
	ID            string                 `json:"id"`
	Type          string                 `json:"type"`
	Attributes    map[string]interface{} `json:"attributes"`
	Relationships map[string]interface{} `json:"relationships,omitempty"`
}

// renderedDocument is the printable form of a collection
type renderedDocument struct {
	ID    string           `json:"id"`
	Type  string           `json:"type"`
	Page  *renderedPage    `json:"page,omitempty"`
	Items []*renderedModel `json:"items"`
}

type renderedPage struct {
	Number     int  `json:"number"`
	Size       int  `json:"size"`
	TotalItems int  `json:"totalItems"`
	TotalPages int  `json:"totalPages"`
	HasNext    bool `json:"hasNext"`
}

// render walks the included relationship paths of an entity. Only requested paths are
// followed, so cyclic graphs terminate.
func render(entity model.Entity, include []relationships.Descriptor) interface{} {
	nodes := relationships.BuildTree(include)
	switch e := entity.(type) {
	case *model.Model:
		return renderModel(e, nodes)
	case *model.Document:
		return renderDocument(e, nodes)
	default:
		return nil
	}
}

func renderModel(m *model.Model, nodes []*relationships.Node) *renderedModel {
	out := &renderedModel{
		ID:         m.UniqueIdentifier(),
		Type:       m.Type(),
		Attributes: make(map[string]interface{}),
	}
	for name, v := range m.Attributes() {
		out.Attributes[name] = renderValue(v)
	}

	for _, node := range nodes {
		rel, ok := m.GetRelationship(node.Name)
		if !ok {
			continue
		}
		if out.Relationships == nil {
			out.Relationships = make(map[string]interface{})
		}
		children := relationships.BuildTree(node.Children)
		if rel.IsMany() {
			out.Relationships[node.Name] = renderDocument(rel.Document(), children)
		} else {
			out.Relationships[node.Name] = renderModel(rel.Model(), children)
		}
	}
	return out
}

func renderDocument(d *model.Document, nodes []*relationships.Node) *renderedDocument {
	out := &renderedDocument{
		ID:    d.UniqueIdentifier(),
		Type:  d.Type(),
		Items: make([]*renderedModel, 0, d.Len()),
	}
	if p := d.Pagination(); p != nil {
		out.Page = &renderedPage{
			Number:     p.CurrentPage(),
			Size:       p.PageSize(),
			TotalItems: p.TotalItems(),
			TotalPages: p.TotalPages(),
			HasNext:    p.HasNext(),
		}
	}
	for _, item := range d.Models() {
		out.Items = append(out.Items, renderModel(item, nodes))
	}
	return out
}

// renderValue replaces boxed models with their printable form
func renderValue(v interface{}) interface{} {
	switch value := v.(type) {
	case *model.Model:
		if value == nil {
			return nil
		}
		return renderModel(value, nil)
	case []*model.Model:
		items := make([]interface{}, 0, len(value))
		for _, item := range value {
			items = append(items, renderModel(item, nil))
		}
		return items
	default:
		return v
	}
}

// writeJSON encodes v indented
func writeJSON(w io.Writer, v interface{}) error {
	encoder := json.NewEncoder(w)
	encoder.SetIndent("", "  ")
	return encoder.Encode(v)
}

// writeModelTable prints one attribute per row
func writeModelTable(w io.Writer, m *renderedModel, noColor bool) {
	table := ui.NewTable(w, noColor, "FIELD", "VALUE")
	table.AddRow("id", m.ID)
	table.AddRow("type", m.Type)
	for _, name := range sortedNames(m.Attributes) {
		table.AddRow(name, formatCell(m.Attributes[name]))
	}
	for _, name := range sortedNames(m.Relationships) {
		table.AddRow(name, relationSummary(m.Relationships[name]))
	}
	table.Render()
}

// writeDocumentTable prints one item per row with the given attribute columns
func writeDocumentTable(w io.Writer, d *renderedDocument, columns []string, noColor bool) {
	headers := append([]string{"ID"}, upper(columns)...)
	table := ui.NewTable(w, noColor, headers...)
	for _, item := range d.Items {
		row := []string{item.ID}
		for _, c := range columns {
			row = append(row, formatCell(item.Attributes[c]))
		}
		table.AddRow(row...)
	}
	table.Render()

	if d.Page != nil {
		fmt.Fprintf(w, "\npage %d of %d (%d items)\n", d.Page.Number+1, d.Page.TotalPages, d.Page.TotalItems)
	}
}

func relationSummary(v interface{}) string {
	switch rel := v.(type) {
	case *renderedModel:
		return rel.ID
	case *renderedDocument:
		return fmt.Sprintf("%s (%d items)", rel.ID, len(rel.Items))
	default:
		return ""
	}
}

func formatCell(v interface{}) string {
	switch value := v.(type) {
	case nil:
		return ""
	case string:
		return value
	case map[string]interface{}, []interface{}, *renderedModel:
		data, err := json.Marshal(value)
		if err != nil {
			return fmt.Sprint(value)
		}
		return string(data)
	default:
		return fmt.Sprint(value)
	}
}

func sortedNames[V any](m map[string]V) []string {
	names := make([]string, 0, len(m))
	for name := range m {
		names = append(names, name)
	}
	sort.Strings(names)
	return names
}

func upper(values []string) []string {
	out := make([]string, len(values))
	for i, v := range values {
		out[i] = strings.ToUpper(v)
	}
	return out
}
