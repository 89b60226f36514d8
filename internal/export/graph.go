// Package export renders a topology graph as vis-network nodes and edges.
package export

import (
	"encoding/json"
	"fmt"
	"os"
	"strings"

	"meshtopo/internal/topology"
)

// Graph is the vis-network document.
type Graph struct {
	Nodes []Node `json:"nodes"`
	Edges []Edge `json:"edges"`
}

type Node struct {
	ID    string `json:"id"`
	Label string `json:"label"`
	Group string `json:"group"` // device kind
	Title string `json:"title"` // tooltip
}

type Edge struct {
	ID    string `json:"id"`
	From  string `json:"from"`
	To    string `json:"to"`
	Label string `json:"label"`
	Title string `json:"title,omitempty"`
}

// Derive converts g into a vis-network graph. Devices keep registry order,
// edges keep link order. Incomplete links have no edge.
func Derive(g *topology.Graph) *Graph {
	out := &Graph{
		Nodes: make([]Node, 0, g.Registry.Len()),
		Edges: make([]Edge, 0, len(g.Links)),
	}
	for _, d := range g.Registry.Devices() {
		out.Nodes = append(out.Nodes, Node{
			ID:    d.Name,
			Label: d.Name,
			Group: d.Kind.String(),
			Title: tooltip(d),
		})
	}
	for _, l := range g.Links {
		if !l.Complete() {
			continue
		}
		a, b := l.Endpoints[0], l.Endpoints[1]
		edge := Edge{
			ID:    l.Name(),
			From:  a.Device,
			To:    b.Device,
			Label: a.Interface + " - " + b.Interface,
		}
		if a.HasAddr() || b.HasAddr() {
			edge.Title = addrOrDash(a) + " - " + addrOrDash(b)
		}
		out.Edges = append(out.Edges, edge)
	}
	return out
}

// Write derives the graph of g and stores it as indented JSON at path.
func Write(path string, g *topology.Graph) error {
	data, err := json.MarshalIndent(Derive(g), "", "  ")
	if err != nil {
		return fmt.Errorf("marshal graph: %w", err)
	}
	if err := os.WriteFile(path, append(data, '\n'), 0o644); err != nil {
		return fmt.Errorf("write graph %s: %w", path, err)
	}
	return nil
}

func tooltip(d *topology.Device) string {
	var sb strings.Builder
	fmt.Fprintf(&sb, "%s\n%s", d.Name, d.Kind)
	for _, intf := range d.InterfaceNames() {
		if p, ok := d.IPs[intf]; ok && p.IsValid() {
			fmt.Fprintf(&sb, "\n%s %s", intf, p)
		}
	}
	return sb.String()
}

func addrOrDash(ep topology.Endpoint) string {
	if !ep.HasAddr() {
		return "-"
	}
	return ep.AddrString()
}
