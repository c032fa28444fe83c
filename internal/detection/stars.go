package detection

import (
	"image"
	"sort"

	"github.com/ironsheep/nightguide-mcp/internal/imaging"
)

// StarThresholds are the brightness cuts tried in order, strictest first.
var StarThresholds = []uint8{150, 130, 110, 90, 70, 50}

// MinStarArea is the smallest blob, in pixels, accepted as a star.
const MinStarArea = 5

// Point represents a 2D coordinate in pixel space.
type Point struct {
	X int `json:"x"` // Horizontal position (0 = leftmost)
	Y int `json:"y"` // Vertical position (0 = topmost)
}

// Star is a bright blob found inside a search region.
type Star struct {
	// X and Y are the truncated blob centroid in full-image coordinates.
	X int `json:"x"`
	Y int `json:"y"`

	// Area is the number of pixels in the blob.
	Area int `json:"area"`
}

// Point returns the star position as an image.Point.
func (s Star) Point() image.Point {
	return image.Pt(s.X, s.Y)
}

// StarsResult contains the outcome of a star search.
type StarsResult struct {
	// Stars are the brightest blobs, largest area first. The list is either
	// empty or holds exactly the requested count.
	Stars []Star `json:"stars"`

	// Threshold is the brightness cut that produced Stars, or 0 when no cut
	// yielded enough blobs.
	Threshold int `json:"threshold"`

	// Region is the searched rectangle after clipping to the image.
	Region imaging.PixelRect `json:"region"`
}

// Points returns the star positions in result order.
func (r *StarsResult) Points() []image.Point {
	pts := make([]image.Point, len(r.Stars))
	for i, s := range r.Stars {
		pts[i] = s.Point()
	}
	return pts
}

// Tracef, when set, receives one line per threshold tried.
var Tracef func(format string, args ...interface{})

// FindStars searches rect for exactly expected bright blobs.
//
// The region is converted to luminance and binarized at each of
// StarThresholds in turn (pixel on when gray > cut). Blobs are 8-connected
// components of at least MinStarArea pixels. The first cut that yields at
// least expected blobs wins: blobs are ordered by area, largest first with
// ties kept in raster order, and the first expected are returned. When no
// cut yields enough blobs the result holds no stars.
//
// rect may extend past the image; only the overlapping part is searched.
func FindStars(img image.Image, rect imaging.PixelRect, expected int) *StarsResult {
	result := &StarsResult{Stars: []Star{}}
	if expected <= 0 {
		return result
	}

	crop, origin, ok := imaging.CropRegion(img, rect)
	if !ok {
		return result
	}
	b := crop.Bounds()
	result.Region = imaging.PixelRect{X: origin.X, Y: origin.Y, Width: b.Dx(), Height: b.Dy()}

	gray := luminance(crop)
	for _, cut := range StarThresholds {
		blobs := findBlobs(gray, cut, b.Dx(), b.Dy())
		if Tracef != nil {
			Tracef("threshold %d: %d blobs (want %d)", cut, len(blobs), expected)
		}
		if len(blobs) < expected {
			continue
		}

		sort.SliceStable(blobs, func(i, j int) bool {
			return blobs[i].Area > blobs[j].Area
		})
		for _, s := range blobs[:expected] {
			s.X += origin.X
			s.Y += origin.Y
			result.Stars = append(result.Stars, s)
		}
		result.Threshold = int(cut)
		return result
	}
	return result
}

// FindStarsWithinBox returns the positions of exactly expected bright blobs
// inside rect, or an empty slice when the region cannot supply that many.
func FindStarsWithinBox(img image.Image, rect imaging.PixelRect, expected int) []image.Point {
	return FindStars(img, rect, expected).Points()
}

// luminance returns the BT.601 gray level of every pixel, row-major.
func luminance(crop *image.NRGBA) [][]uint8 {
	g := imaging.Grayscale(crop)
	b := g.Bounds()
	out := make([][]uint8, b.Dy())
	for y := 0; y < b.Dy(); y++ {
		row := make([]uint8, b.Dx())
		off := y * g.Stride
		for x := range row {
			row[x] = g.Pix[off+x*4]
		}
		out[y] = row
	}
	return out
}

// findBlobs labels the 8-connected components of pixels brighter than cut
// and returns those of at least MinStarArea pixels with their truncated
// centroids, in raster order of each component's first pixel.
func findBlobs(gray [][]uint8, cut uint8, width, height int) []Star {
	mask := make([][]bool, height)
	for y := 0; y < height; y++ {
		mask[y] = make([]bool, width)
		for x := 0; x < width; x++ {
			mask[y][x] = gray[y][x] > cut
		}
	}

	visited := make([][]bool, height)
	for y := 0; y < height; y++ {
		visited[y] = make([]bool, width)
	}

	blobs := make([]Star, 0)
	for y := 0; y < height; y++ {
		for x := 0; x < width; x++ {
			if !mask[y][x] || visited[y][x] {
				continue
			}
			component := make([]Point, 0)
			floodFill(mask, visited, x, y, width, height, &component)
			if len(component) < MinStarArea {
				continue
			}

			var sumX, sumY int
			for _, p := range component {
				sumX += p.X
				sumY += p.Y
			}
			n := len(component)
			blobs = append(blobs, Star{
				X:    int(float64(sumX) / float64(n)),
				Y:    int(float64(sumY) / float64(n)),
				Area: n,
			})
		}
	}
	return blobs
}

// floodFill performs iterative flood-fill from a starting point.
//
// Uses a stack-based approach (not recursive) to avoid stack overflow
// on large blobs. Marks visited pixels and appends them to the component.
// Uses 8-connectivity (includes diagonal neighbors).
func floodFill(mask, visited [][]bool, startX, startY, width, height int, component *[]Point) {
	stack := []Point{{X: startX, Y: startY}}

	for len(stack) > 0 {
		p := stack[len(stack)-1]
		stack = stack[:len(stack)-1]

		if p.X < 0 || p.X >= width || p.Y < 0 || p.Y >= height {
			continue
		}
		if visited[p.Y][p.X] || !mask[p.Y][p.X] {
			continue
		}

		visited[p.Y][p.X] = true
		*component = append(*component, p)

		for dy := -1; dy <= 1; dy++ {
			for dx := -1; dx <= 1; dx++ {
				if dx == 0 && dy == 0 {
					continue
				}
				stack = append(stack, Point{X: p.X + dx, Y: p.Y + dy})
			}
		}
	}
}
