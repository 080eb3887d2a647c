// Package relationships resolves dot-delimited relationship paths on materialized
// models, using embedded data where present and fetching through links otherwise.
package relationships

import (
	"strings"

	"github.com/conduit-lang/halstore/pkg/transport"
)

// Descriptor requests one relationship path, optionally with its own request options.
// The options apply to the fetch of the path's last segment.
type Descriptor struct {
	Name    string
	Options *transport.RequestOptions
}

// Paths builds descriptors from dot-delimited paths
func Paths(paths ...string) []Descriptor {
	descriptors := make([]Descriptor, 0, len(paths))
	for _, p := range paths {
		p = strings.TrimSpace(p)
		if p == "" {
			continue
		}
		descriptors = append(descriptors, Descriptor{Name: p})
	}
	return descriptors
}

// Node groups the descriptors sharing a top-level segment
type Node struct {
	// Name is the top-level segment
	Name string
	// Descriptor is set when a requested path ends at this segment
	Descriptor *Descriptor
	// Children are the remaining path suffixes
	Children []Descriptor
}

// Options returns the request options of the terminal descriptor, nil when none
func (n *Node) Options() *transport.RequestOptions {
	if n.Descriptor == nil {
		return nil
	}
	return n.Descriptor.Options
}

// BuildTree groups descriptors by top-level segment, in first-seen order
func BuildTree(descriptors []Descriptor) []*Node {
	var nodes []*Node
	index := make(map[string]*Node)

	for _, d := range descriptors {
		head, rest, nested := strings.Cut(d.Name, ".")
		if head == "" {
			continue
		}

		node, ok := index[head]
		if !ok {
			node = &Node{Name: head}
			index[head] = node
			nodes = append(nodes, node)
		}

		if !nested {
			terminal := d
			node.Descriptor = &terminal
			continue
		}
		if rest != "" {
			node.Children = append(node.Children, Descriptor{Name: rest, Options: d.Options})
		}
	}
	return nodes
}

func depth(name string) int {
	return strings.Count(name, ".") + 1
}
