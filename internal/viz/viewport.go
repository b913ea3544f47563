package viz

import (
	"math"

	"github.com/san-kum/forcelayout/internal/dynamo"
)

// Viewport maps layout coordinates onto canvas sub-pixels with one uniform
// scale, so the layout keeps its aspect ratio.
type Viewport struct {
	minX, minY float64
	scale      float64
	offX, offY float64
}

// Fit returns a viewport that shows every node on a canvas of w x h
// sub-pixels, leaving pad sub-pixels on each side.
func Fit(nodes []dynamo.NodeState, w, h, pad int) Viewport {
	if len(nodes) == 0 {
		return Viewport{scale: 1}
	}
	minX, minY := math.Inf(1), math.Inf(1)
	maxX, maxY := math.Inf(-1), math.Inf(-1)
	for _, n := range nodes {
		minX, maxX = math.Min(minX, n.X), math.Max(maxX, n.X)
		minY, maxY = math.Min(minY, n.Y), math.Max(maxY, n.Y)
	}

	availW := float64(max(w-2*pad-1, 1))
	availH := float64(max(h-2*pad-1, 1))
	spanX, spanY := maxX-minX, maxY-minY
	scale := math.Inf(1)
	if spanX > 0 {
		scale = availW / spanX
	}
	if spanY > 0 {
		scale = math.Min(scale, availH/spanY)
	}
	if math.IsInf(scale, 1) {
		scale = 1
	}

	return Viewport{
		minX:  minX,
		minY:  minY,
		scale: scale,
		offX:  float64(pad) + (availW-spanX*scale)/2,
		offY:  float64(pad) + (availH-spanY*scale)/2,
	}
}

func (v Viewport) Project(x, y float64) (int, int) {
	px := v.offX + (x-v.minX)*v.scale
	py := v.offY + (y-v.minY)*v.scale
	return int(math.Round(px)), int(math.Round(py))
}
