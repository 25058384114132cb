/*
Copyright © 2020 the lumos authors.
This file is part of lumos.

lumos is free software: you can redistribute it and/or modify
it under the terms of the GNU General Public License as published by
the Free Software Foundation, either version 3 of the License, or
(at your option) any later version.

lumos is distributed in the hope that it will be useful,
but WITHOUT ANY WARRANTY; without even the implied warranty of
MERCHANTABILITY or FITNESS FOR A PARTICULAR PURPOSE.  See the
GNU General Public License for more details.

You should have received a copy of the GNU General Public License
along with lumos.  If not, see <http://www.gnu.org/licenses/>.
*/

package lumos

import (
	"bytes"
	"context"
	"fmt"

	"github.com/goccy/go-graphviz"
)

// DOT returns the graph in Graphviz DOT format. Leader segments are
// drawn thick and side branches are shaded by intensity.
func (g *Graph) DOT() string {
	var buf bytes.Buffer
	buf.WriteString("digraph lightning {\n")
	buf.WriteString("  rankdir=TB;\n")
	buf.WriteString("  bgcolor=\"black\";\n")
	buf.WriteString("  node [shape=point, color=white, width=0.05];\n")
	buf.WriteString("  edge [arrowhead=none];\n\n")
	for _, n := range g.Nodes {
		x, y := g.cellXY(n.Index)
		fmt.Fprintf(&buf, "  n%d [tooltip=\"(%d, %d) depth %d\"];\n", n.Index, x, y, n.Depth)
	}
	buf.WriteString("\n")
	for _, s := range g.Edges() {
		gray := int(min(max(s.Intensity, 0), 1) * 255)
		width := 1.0
		if s.Leader {
			width = 3
		}
		fmt.Fprintf(&buf, "  n%d -> n%d [color=\"#%02x%02x%02x\", penwidth=%g];\n",
			s.From, s.To, gray, gray, gray, width)
	}
	buf.WriteString("}\n")
	return buf.String()
}

// RenderSVG renders DOT source to SVG with Graphviz.
func RenderSVG(ctx context.Context, dot string) ([]byte, error) {
	gv, err := graphviz.New(ctx)
	if err != nil {
		return nil, fmt.Errorf("lumos: starting graphviz: %w", err)
	}
	defer gv.Close()

	g, err := graphviz.ParseBytes([]byte(dot))
	if err != nil {
		return nil, fmt.Errorf("lumos: parsing DOT: %w", err)
	}
	defer g.Close()

	var buf bytes.Buffer
	if err := gv.Render(ctx, g, graphviz.SVG, &buf); err != nil {
		return nil, fmt.Errorf("lumos: rendering SVG: %w", err)
	}
	return buf.Bytes(), nil
}
