package imaging

import (
	"fmt"
	"image"
	"image/color"
	"image/draw"

	"github.com/disintegration/imaging"
	"github.com/lucasb-eyer/go-colorful"
	"golang.org/x/image/font"
	"golang.org/x/image/font/basicfont"
	"golang.org/x/image/math/fixed"

	"github.com/ironsheep/nightguide-mcp/internal/catalog"
)

// Style controls how a matched constellation is drawn.
type Style struct {
	// LineColor and LineWidth apply to the pattern's connecting edges.
	LineColor color.Color
	LineWidth int

	// MarkerColor and MarkerRadius apply to the filled dot at every star.
	MarkerColor  color.Color
	MarkerRadius int

	// LabelColor is the display name color. The label's baseline-left corner
	// is placed at the first star plus LabelOffset, and the 7x13 glyphs are
	// enlarged LabelScale times.
	LabelColor  color.Color
	LabelOffset image.Point
	LabelScale  int
}

// DefaultStyle returns purple edges, orange markers and a cyan label.
func DefaultStyle() Style {
	return Style{
		LineColor:    color.NRGBA{128, 0, 128, 255},
		LineWidth:    3,
		MarkerColor:  color.NRGBA{255, 165, 0, 255},
		MarkerRadius: 5,
		LabelColor:   color.NRGBA{0, 255, 255, 255},
		LabelOffset:  image.Pt(-20, -30),
		LabelScale:   2,
	}
}

// ParseColor parses a "#RRGGBB" hex color.
func ParseColor(hex string) (color.Color, error) {
	c, err := colorful.Hex(hex)
	if err != nil {
		return nil, fmt.Errorf("invalid color %q: %w", hex, err)
	}
	r, g, b := c.RGB255()
	return color.NRGBA{R: r, G: g, B: b, A: 255}, nil
}

// DrawConstellation renders a matched pattern onto dst in place: a line for
// every edge, a marker at every star, and the display name near the first
// star. stars[i] must be the image position of pattern point i.
//
// Nothing is drawn when stars is empty. Edges that reference a missing star
// are skipped. Only pixels covered by the drawn primitives change.
func DrawConstellation(dst draw.Image, stars []image.Point, p *catalog.Pattern, style Style) {
	if len(stars) == 0 || p == nil {
		return
	}

	for _, e := range p.Edges {
		if e.From >= len(stars) || e.To >= len(stars) {
			continue
		}
		drawLine(dst, stars[e.From], stars[e.To], style.LineWidth, style.LineColor)
	}
	for _, s := range stars {
		fillCircle(dst, s, style.MarkerRadius, style.MarkerColor)
	}
	drawText(dst, stars[0].Add(style.LabelOffset), p.Name, style.LabelScale, style.LabelColor)
}

// drawLine plots a Bresenham line stamped with a square brush of the given width.
func drawLine(dst draw.Image, a, b image.Point, width int, c color.Color) {
	half := width / 2
	dx := abs(b.X - a.X)
	dy := -abs(b.Y - a.Y)
	sx, sy := 1, 1
	if a.X > b.X {
		sx = -1
	}
	if a.Y > b.Y {
		sy = -1
	}
	e := dx + dy

	x, y := a.X, a.Y
	for {
		for oy := -half; oy <= half; oy++ {
			for ox := -half; ox <= half; ox++ {
				setClipped(dst, x+ox, y+oy, c)
			}
		}
		if x == b.X && y == b.Y {
			return
		}
		e2 := 2 * e
		if e2 >= dy {
			e += dy
			x += sx
		}
		if e2 <= dx {
			e += dx
			y += sy
		}
	}
}

// fillCircle draws a filled disc centered on p.
func fillCircle(dst draw.Image, p image.Point, radius int, c color.Color) {
	for oy := -radius; oy <= radius; oy++ {
		for ox := -radius; ox <= radius; ox++ {
			if ox*ox+oy*oy <= radius*radius {
				setClipped(dst, p.X+ox, p.Y+oy, c)
			}
		}
	}
}

// drawText renders s with its baseline-left corner at origin. The glyphs are
// rasterized into an alpha mask, enlarged with nearest-neighbor sampling, and
// composited so that only glyph pixels are touched.
func drawText(dst draw.Image, origin image.Point, s string, scale int, c color.Color) {
	if s == "" {
		return
	}
	if scale < 1 {
		scale = 1
	}

	face := basicfont.Face7x13
	width := font.MeasureString(face, s).Ceil()
	height := face.Metrics().Height.Ceil()
	ascent := face.Metrics().Ascent.Ceil()

	mask := image.NewAlpha(image.Rect(0, 0, width, height))
	d := &font.Drawer{
		Dst:  mask,
		Src:  image.Opaque,
		Face: face,
		Dot:  fixed.P(0, ascent),
	}
	d.DrawString(s)

	scaled := imaging.Resize(mask, width*scale, height*scale, imaging.NearestNeighbor)
	top := image.Pt(origin.X, origin.Y-ascent*scale)
	r := image.Rectangle{Min: top, Max: top.Add(scaled.Bounds().Size())}
	draw.DrawMask(dst, r, image.NewUniform(c), image.Point{}, scaled, image.Point{}, draw.Over)
}

func setClipped(dst draw.Image, x, y int, c color.Color) {
	if (image.Point{X: x, Y: y}).In(dst.Bounds()) {
		dst.Set(x, y, c)
	}
}

func abs(v int) int {
	if v < 0 {
		return -v
	}
	return v
}
