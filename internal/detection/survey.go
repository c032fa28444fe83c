package detection

import (
	"image"
	"math"
	"sort"

	"github.com/ironsheep/nightguide-mcp/internal/imaging"
)

// SkyStar is one bright spot found by SurveyStars.
type SkyStar struct {
	// Center is the truncated blob centroid in pixels.
	Center Point `json:"center"`

	// RelX and RelY are Center as fractions of the image width and height.
	RelX float64 `json:"rel_x"`
	RelY float64 `json:"rel_y"`

	// Radius is the radius of a disc with the blob's area, rounded.
	Radius int `json:"radius"`

	// Brightness is the unblurred gray level at Center.
	Brightness uint8 `json:"brightness"`

	Area int `json:"area"`
}

// SurveyResult contains the stars found across a whole image.
type SurveyResult struct {
	// Stars are sorted by brightness, brightest first.
	Stars []SkyStar `json:"stars"`

	Count  int `json:"count"`
	Width  int `json:"width"`
	Height int `json:"height"`
}

// SurveyOptions tunes SurveyStars.
type SurveyOptions struct {
	// Threshold is the blurred gray level a pixel must exceed.
	Threshold uint8 `json:"threshold"`

	// MinRadius and MaxRadius bound the accepted blob radius. Large glows
	// such as the moon or streetlights fall above MaxRadius.
	MinRadius int `json:"min_radius"`
	MaxRadius int `json:"max_radius"`

	// MinDistance is the closest two reported stars may be, in pixels.
	MinDistance float64 `json:"min_distance"`
}

// DefaultSurveyOptions returns the settings used by the sky_survey_stars tool.
func DefaultSurveyOptions() SurveyOptions {
	return SurveyOptions{
		Threshold:   128,
		MinRadius:   1,
		MaxRadius:   20,
		MinDistance: 20,
	}
}

// SurveyStars finds bright spots across the whole image without a detector
// box or an expected count. Positions are relative to the image's top-left
// corner and transparent pixels read as dark sky.
//
// # Algorithm
//
//  1. Luminance: BT.601 gray level of every pixel
//  2. Noise Reduction: 5x5 Gaussian blur
//  3. Segmentation: 8-connected components of blurred pixels above
//     Threshold, at least MinStarArea pixels each
//  4. Size Filter: keep components whose equivalent radius is within
//     [MinRadius, MaxRadius]
//  5. Duplicate Removal: brightest first, drop any star closer than
//     MinDistance to one already kept
//
// Unlike FindStars there is no threshold ladder: the survey reports what
// is there rather than searching for a fixed count.
func SurveyStars(img image.Image, opts SurveyOptions) *SurveyResult {
	b := img.Bounds()
	width, height := b.Dx(), b.Dy()

	result := &SurveyResult{Stars: []SkyStar{}, Width: width, Height: height}
	crop, _, ok := imaging.CropRegion(img, imaging.PixelRect{X: b.Min.X, Y: b.Min.Y, Width: width, Height: height})
	if !ok {
		return result
	}

	gray := luminance(crop)
	blurred := gaussianBlur(gray, width, height)

	candidates := make([]SkyStar, 0)
	for _, blob := range findBlobs(blurred, opts.Threshold, width, height) {
		radius := int(math.Round(math.Sqrt(float64(blob.Area) / math.Pi)))
		if radius < opts.MinRadius || (opts.MaxRadius > 0 && radius > opts.MaxRadius) {
			continue
		}
		candidates = append(candidates, SkyStar{
			Center:     Point{X: blob.X, Y: blob.Y},
			RelX:       float64(blob.X) / float64(width),
			RelY:       float64(blob.Y) / float64(height),
			Radius:     radius,
			Brightness: gray[blob.Y][blob.X],
			Area:       blob.Area,
		})
	}

	sort.SliceStable(candidates, func(i, j int) bool {
		if candidates[i].Brightness != candidates[j].Brightness {
			return candidates[i].Brightness > candidates[j].Brightness
		}
		return candidates[i].Area > candidates[j].Area
	})

	result.Stars = filterCrowdedStars(candidates, opts.MinDistance)
	result.Count = len(result.Stars)
	return result
}

// gaussianBlur applies a 5x5 Gaussian blur (sigma ≈ 1.4):
//
//	1  4  7  4  1
//	4 16 26 16  4
//	7 26 41 26  7
//	4 16 26 16  4
//	1  4  7  4  1
//
// normalized by the kernel sum of 273. Border pixels use replicated edge
// values. Results are rounded to the nearest level.
func gaussianBlur(gray [][]uint8, width, height int) [][]uint8 {
	kernel := [5][5]int{
		{1, 4, 7, 4, 1},
		{4, 16, 26, 16, 4},
		{7, 26, 41, 26, 7},
		{4, 16, 26, 16, 4},
		{1, 4, 7, 4, 1},
	}
	const kernelSum = 273

	result := make([][]uint8, height)
	for y := 0; y < height; y++ {
		result[y] = make([]uint8, width)
		for x := 0; x < width; x++ {
			sum := 0
			for ky := -2; ky <= 2; ky++ {
				for kx := -2; kx <= 2; kx++ {
					py := clamp(y+ky, 0, height-1)
					px := clamp(x+kx, 0, width-1)
					sum += int(gray[py][px]) * kernel[ky+2][kx+2]
				}
			}
			result[y][x] = uint8((sum + kernelSum/2) / kernelSum)
		}
	}
	return result
}

// clamp constrains val to [lo, hi].
func clamp(val, lo, hi int) int {
	if val < lo {
		return lo
	}
	if val > hi {
		return hi
	}
	return val
}

// filterCrowdedStars keeps each star only if no star kept before it lies
// within minDistance. stars must already be in priority order.
func filterCrowdedStars(stars []SkyStar, minDistance float64) []SkyStar {
	filtered := make([]SkyStar, 0, len(stars))
	for _, s := range stars {
		crowded := false
		for _, f := range filtered {
			dx := float64(s.Center.X - f.Center.X)
			dy := float64(s.Center.Y - f.Center.Y)
			if math.Hypot(dx, dy) < minDistance {
				crowded = true
				break
			}
		}
		if !crowded {
			filtered = append(filtered, s)
		}
	}
	return filtered
}
