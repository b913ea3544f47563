// Package export renders layouts to static formats.
package export

import (
	"bufio"
	"fmt"
	"html"
	"io"

	"github.com/san-kum/forcelayout/internal/dynamo"
	"github.com/san-kum/forcelayout/internal/viz"
)

const (
	svgPadding    = 20
	svgNodeRadius = 4.0
)

// LayoutSVG draws snap as an SVG image of width x height pixels, scaled to
// fit. Nodes take their theme color from their category in order of first
// appearance; pinned nodes are outlined.
func LayoutSVG(w io.Writer, snap dynamo.Snapshot, theme viz.Theme, width, height int) error {
	bw := bufio.NewWriter(w)
	vp := viz.Fit(snap.Nodes, width, height, svgPadding)

	fmt.Fprintf(bw, `<?xml version="1.0" encoding="UTF-8"?>
<svg xmlns="http://www.w3.org/2000/svg" width="%d" height="%d" viewBox="0 0 %d %d">
<rect width="100%%" height="100%%" fill="#0a0a0a"/>
`, width, height, width, height)

	index := make(map[string]int, len(snap.Nodes))
	for i, n := range snap.Nodes {
		index[n.ID] = i
	}

	fmt.Fprintf(bw, "<g stroke=\"%s\" stroke-width=\"1\">\n", theme.Link)
	for _, l := range snap.Links {
		si, ok1 := index[l.Source]
		ti, ok2 := index[l.Target]
		if !ok1 || !ok2 {
			continue
		}
		x1, y1 := vp.Project(snap.Nodes[si].X, snap.Nodes[si].Y)
		x2, y2 := vp.Project(snap.Nodes[ti].X, snap.Nodes[ti].Y)
		fmt.Fprintf(bw, "<line x1=\"%d\" y1=\"%d\" x2=\"%d\" y2=\"%d\"/>\n", x1, y1, x2, y2)
	}
	bw.WriteString("</g>\n<g>\n")

	colors := make(map[string]string)
	for _, n := range snap.Nodes {
		fill, ok := colors[n.Category]
		if !ok {
			fill = string(theme.Primary)
			if len(theme.Categories) > 0 {
				fill = string(theme.Categories[len(colors)%len(theme.Categories)])
			}
			colors[n.Category] = fill
		}
		x, y := vp.Project(n.X, n.Y)
		stroke := ""
		if n.Pinned {
			stroke = fmt.Sprintf(` stroke="%s" stroke-width="2"`, theme.Selected)
		}
		fmt.Fprintf(bw, "<circle cx=\"%d\" cy=\"%d\" r=\"%.1f\" fill=\"%s\"%s><title>%s</title></circle>\n",
			x, y, svgNodeRadius, fill, stroke, html.EscapeString(n.ID))
	}
	bw.WriteString("</g>\n</svg>\n")
	return bw.Flush()
}
