package main

import (
	"fmt"
	"io"
	"text/tabwriter"

	"github.com/Faultbox/plyview/internal/pipeline"
	"github.com/Faultbox/plyview/pkg/mesh"
	"github.com/Faultbox/plyview/pkg/ply"
)

func writeInfo(w io.Writer, name string, m *ply.Model) {
	h := m.Header
	fmt.Fprintf(w, "%s\n", name)
	fmt.Fprintf(w, "  format:  %s %s\n", h.Format, h.Version)
	fmt.Fprintf(w, "  header:  %d bytes\n", m.HeaderLength)
	for _, c := range h.Comments {
		fmt.Fprintf(w, "  %s\n", c)
	}

	for _, en := range m.Order {
		e := m.Elements[en]
		fmt.Fprintf(w, "\nelement %s (%d)\n", e.Name, e.Count)

		tw := tabwriter.NewWriter(w, 0, 0, 2, ' ', 0)
		fmt.Fprintln(tw, "  property\ttype\tmin\tmax\tmid\tdelta\tlengths\ttriangles")
		for _, pn := range e.Order {
			col := e.Columns[pn]
			p := col.PropertyInfo
			typ, lengths, tris := p.Type.String(), "-", "-"
			if p.IsList {
				typ = fmt.Sprintf("list %s %s", p.CountType, p.Type)
				lengths = fmt.Sprintf("%d..%d", p.MinLength, p.MaxLength)
				tris = fmt.Sprintf("%d", p.TriangleCount)
			}
			fmt.Fprintf(tw, "  %s\t%s\t%g\t%g\t%g\t%g\t%s\t%s\n",
				p.Name, typ, p.Min, p.Max, p.Mid, p.Delta, lengths, tris)
		}
		tw.Flush()
	}
}

func writeAttributes(w io.Writer, res *pipeline.Result) {
	a := res.Attributes
	c := a.Counts
	fmt.Fprintf(w, "%s (%s layout)\n", res.Name, a.Layout)
	fmt.Fprintf(w, "  faces:       %d (%d skipped)\n", c.Faces, a.SkippedFaces)
	fmt.Fprintf(w, "  triangles:   %d\n", c.Triangles)
	fmt.Fprintf(w, "  vertices:    %d\n", c.Vertices)
	if c.UVVertices != c.Vertices {
		fmt.Fprintf(w, "  uv vertices: %d\n", c.UVVertices)
	}
	fmt.Fprintf(w, "  slots:       %d\n", c.Attributes)
	fmt.Fprintf(w, "  normals:     %s\n", yesNo(a.Has.Normals, "from file", "computed"))
	fmt.Fprintf(w, "  uvs:         %s\n", yesNo(a.Has.UVs, "yes", "no"))
	fmt.Fprintf(w, "  colors:      %s\n", yesNo(a.Has.Colors, "yes", "no"))
	b := a.Bounds
	fmt.Fprintf(w, "  mids:        %g %g %g\n", b.Mids[0], b.Mids[1], b.Mids[2])
	fmt.Fprintf(w, "  deltas:      %g %g %g\n", b.Deltas[0], b.Deltas[1], b.Deltas[2])
	fmt.Fprintf(w, "  parse:       %s\n", res.ParseTime)
	fmt.Fprintf(w, "  generate:    %s\n", res.GenerateTime)
}

func yesNo(b bool, yes, no string) string {
	if b {
		return yes
	}
	return no
}

// writeDump prints the first n vertex slots, one per line.
func writeDump(w io.Writer, a *mesh.Attributes, n int) {
	n = min(n, a.Counts.Attributes)
	tw := tabwriter.NewWriter(w, 0, 0, 2, ' ', 0)
	fmt.Fprintln(tw, "slot\txyz\tnormal\tuv\tcolor")
	for i := 0; i < n; i++ {
		uv, col := "-", "-"
		if a.Has.UVs {
			uv = fmt.Sprintf("%.4g %.4g", a.UVs.Vert[2*i], a.UVs.Vert[2*i+1])
		}
		if a.Has.Colors {
			col = vec3(a.Colors.Vert, i)
		}
		fmt.Fprintf(tw, "%d\t%s\t%s\t%s\t%s\n", i, vec3(a.XYZ.Vert, i), vec3(a.Normals.Vert, i), uv, col)
	}
	tw.Flush()
}

func vec3(buf []float32, i int) string {
	return fmt.Sprintf("%.4g %.4g %.4g", buf[3*i], buf[3*i+1], buf[3*i+2])
}
