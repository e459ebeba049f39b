// Copyright Consensys Software Inc.
//
// Licensed under the Apache License, Version 2.0 (the "License"); you may not use this file except in compliance with
// the License. You may obtain a copy of the License at
//
// http://www.apache.org/licenses/LICENSE-2.0
//
// Unless required by applicable law or agreed to in writing, software distributed under the License is distributed on
// an "AS IS" BASIS, WITHOUT WARRANTIES OR CONDITIONS OF ANY KIND, either express or implied. See the License for the
// specific language governing permissions and limitations under the License.
//
// SPDX-License-Identifier: Apache-2.0
package graph

import (
	"fmt"
	"slices"

	"github.com/consensys/go-als/pkg/als/netlist"
)

// VertexKind distinguishes the four kinds of circuit vertex.
type VertexKind uint8

const (
	// ConstantZero is a vertex producing a constant false.
	ConstantZero VertexKind = iota
	// ConstantOne is a vertex producing a constant true.
	ConstantOne
	// PrimaryInput is a vertex fed by one bit of the input vector.
	PrimaryInput
	// Cell is a vertex computing the function of a netlist cell.
	Cell
)

// Vertex is a node of a circuit graph.  Vertices are stored in an arena and
// referred to by index.
type Vertex struct {
	// Kind of this vertex.
	Kind VertexKind
	// Name of the originating cell or wire.
	Name string
	// Cell behind this vertex, or nil for non-cell vertices.
	Cell *netlist.Cell
	// InputIndex is the position of this vertex within the input vector.
	// Only meaningful for PrimaryInput vertices.
	InputIndex uint
	// In holds the handles of all incoming edges.
	In []uint
	// Out holds the handles of all outgoing edges.
	Out []uint
}

// Edge connects a driving vertex to a consuming vertex.  Connection and
// Signal locate the driven bit within the consumer: Connection is the index
// of the connection on the consuming cell, and Signal the bit offset within
// that connection.
type Edge struct {
	// From is the handle of the driving vertex.
	From uint
	// To is the handle of the consuming vertex.
	To uint
	// Connection index on the consuming cell.
	Connection uint
	// Signal bit offset within the connection.
	Signal uint
}

// Graph is a circuit DAG extracted from a netlist module.
type Graph struct {
	// Vertices arena.
	Vertices []Vertex
	// Edges arena.
	Edges []Edge
	// NumInputs is the number of primary-input vertices.
	NumInputs uint
	// sources caches, per vertex, the feeding vertices ordered by
	// (connection, signal).
	sources [][]uint
}

// Build extracts the circuit graph of a module.  Cell vertices are created
// first, in cell order; primary-input and constant vertices are created
// lazily as their first reference is encountered.  An error is returned when
// the module contains a combinational cycle or a multiply-driven net.
func Build(module *netlist.Module) (*Graph, error) {
	var (
		g = &Graph{}
		// driver maps each net onto the handle of the vertex driving it.
		driver = make(map[netlist.SigBit]uint)
		// shared maps wire names (and constants) onto lazily created
		// source vertices.
		shared = make(map[string]uint)
	)
	// First pass: allocate one vertex per cell and index drivers.
	for _, cell := range module.Cells {
		handle := g.addVertex(Vertex{Kind: Cell, Name: cell.Name, Cell: cell})
		//
		for _, conn := range cell.Connections {
			if conn.Input {
				continue
			}
			//
			for _, bit := range conn.Bits {
				if _, ok := driver[bit]; ok {
					return nil, fmt.Errorf("net %d driven more than once", bit)
				}
				//
				driver[bit] = handle
			}
		}
	}
	// Second pass: resolve cell inputs into edges.
	for handle, vertex := range g.Vertices {
		for ci, conn := range vertex.Cell.Connections {
			if !conn.Input {
				continue
			}
			//
			for si, bit := range conn.Bits {
				source, err := g.resolve(module, bit, driver, shared)
				if err != nil {
					return nil, err
				}
				//
				g.addEdge(Edge{
					From:       source,
					To:         uint(handle),
					Connection: uint(ci),
					Signal:     uint(si),
				})
			}
		}
	}
	//
	g.indexSources()
	//
	return g, nil
}

// resolve maps a signal bit onto the handle of the vertex driving it,
// creating a constant or primary-input vertex on first encounter.
func (g *Graph) resolve(module *netlist.Module, bit netlist.SigBit,
	driver map[netlist.SigBit]uint, shared map[string]uint) (uint, error) {
	//
	switch {
	case bit == netlist.Const0:
		return g.sharedVertex(shared, "$false", Vertex{Kind: ConstantZero, Name: "$false"}), nil
	case bit == netlist.Const1:
		return g.sharedVertex(shared, "$true", Vertex{Kind: ConstantOne, Name: "$true"}), nil
	case !bit.IsNet():
		return 0, fmt.Errorf("unknown constant signal %d", bit)
	}
	//
	if handle, ok := driver[bit]; ok {
		return handle, nil
	}
	// Undriven net, hence a primary input.
	wire, offset := module.WireOf(bit)
	if wire == nil {
		return 0, fmt.Errorf("net %d not allocated to any wire", bit)
	}
	//
	name := wire.Name
	if len(wire.Bits) > 1 {
		name = fmt.Sprintf("%s[%d]", wire.Name, offset)
	}
	//
	if handle, ok := shared[name]; ok {
		return handle, nil
	}
	//
	handle := g.addVertex(Vertex{Kind: PrimaryInput, Name: name, InputIndex: g.NumInputs})
	shared[name] = handle
	driver[bit] = handle
	g.NumInputs++
	//
	return handle, nil
}

func (g *Graph) sharedVertex(shared map[string]uint, key string, vertex Vertex) uint {
	if handle, ok := shared[key]; ok {
		return handle
	}
	//
	handle := g.addVertex(vertex)
	shared[key] = handle
	//
	return handle
}

func (g *Graph) addVertex(vertex Vertex) uint {
	g.Vertices = append(g.Vertices, vertex)
	return uint(len(g.Vertices) - 1)
}

func (g *Graph) addEdge(edge Edge) {
	handle := uint(len(g.Edges))
	g.Edges = append(g.Edges, edge)
	g.Vertices[edge.From].Out = append(g.Vertices[edge.From].Out, handle)
	g.Vertices[edge.To].In = append(g.Vertices[edge.To].In, handle)
}

// Sources returns the handles of the vertices feeding a given vertex, ordered
// by (connection, signal).  For LUT cells this reproduces the bit order of
// the truth table, least significant variable first.  The result is cached at
// build time and must not be mutated.
func (g *Graph) Sources(handle uint) []uint {
	return g.sources[handle]
}

// indexSources caches the ordered source list of every vertex, which
// evaluation walks once per vertex per input vector.
func (g *Graph) indexSources() {
	g.sources = make([][]uint, len(g.Vertices))
	//
	for handle := range g.Vertices {
		edges := slices.Clone(g.Vertices[handle].In)
		//
		slices.SortFunc(edges, func(l, r uint) int {
			el, er := g.Edges[l], g.Edges[r]
			//
			if el.Connection != er.Connection {
				return int(el.Connection) - int(er.Connection)
			}
			//
			return int(el.Signal) - int(er.Signal)
		})
		//
		sources := make([]uint, len(edges))
		for i, e := range edges {
			sources[i] = g.Edges[e].From
		}
		//
		g.sources[handle] = sources
	}
}

// TopologicalOrder returns the vertex handles in a deterministic topological
// order.  Ready vertices are always taken in ascending handle order, so the
// result depends only on the structure of the graph.
func (g *Graph) TopologicalOrder() ([]uint, error) {
	var (
		order   = make([]uint, 0, len(g.Vertices))
		degree  = make([]uint, len(g.Vertices))
		pending []uint
	)
	//
	for handle, vertex := range g.Vertices {
		degree[handle] = uint(len(vertex.In))
		//
		if degree[handle] == 0 {
			pending = append(pending, uint(handle))
		}
	}
	//
	for len(pending) > 0 {
		// Pop smallest ready handle.
		i := slices.Index(pending, slices.Min(pending))
		handle := pending[i]
		pending = slices.Delete(pending, i, i+1)
		order = append(order, handle)
		//
		for _, e := range g.Vertices[handle].Out {
			to := g.Edges[e].To
			degree[to]--
			//
			if degree[to] == 0 {
				pending = append(pending, to)
			}
		}
	}
	//
	if len(order) != len(g.Vertices) {
		return nil, fmt.Errorf("netlist contains a combinational cycle")
	}
	//
	return order, nil
}

// Outputs returns the handles of all output vertices (those without fanout)
// in topological order.
func (g *Graph) Outputs(order []uint) []uint {
	var outputs []uint
	//
	for _, handle := range order {
		if len(g.Vertices[handle].Out) == 0 && g.Vertices[handle].Kind == Cell {
			outputs = append(outputs, handle)
		}
	}
	//
	return outputs
}
