package matching

import (
	"errors"
	"fmt"
	"image"
	"math"

	"gonum.org/v1/gonum/mat"
)

// ErrShapeMismatch is returned when the detected and canonical point sets
// differ in size.
var ErrShapeMismatch = errors.New("detected and canonical point counts differ")

// degenerate is the squared radius below which a centered point is treated
// as sitting on the centroid.
const degenerate = 1e-12

// Alignment is the result of registering a detected point set onto a
// canonical pattern.
type Alignment struct {
	// Ordered holds the detected pixel coordinates reordered so that
	// Ordered[i] corresponds to canonical point i.
	Ordered []image.Point `json:"ordered"`

	// Assignment[i] is the index into the detected input matched to
	// canonical point i.
	Assignment []int `json:"assignment"`

	// Rotation is the 2×2 proper rotation taking centered detected points
	// into the canonical frame. Its determinant is +1.
	Rotation *mat.Dense `json:"-"`

	// Reflected reports that the unconstrained least-squares solution was a
	// mirror image and had to be corrected to a rotation.
	Reflected bool `json:"reflected"`

	// Cost is the summed Euclidean distance between canonical points and
	// their aligned matches, both centered.
	Cost float64 `json:"cost"`
}

// Angle returns the rotation angle in degrees, in (-180, 180].
func (a *Alignment) Angle() float64 {
	return math.Atan2(a.Rotation.At(1, 0), a.Rotation.At(0, 0)) * 180 / math.Pi
}

// MapAndOrderStars returns detected reordered so that element i matches
// canonical point i. See Align.
func MapAndOrderStars(canonical, detected []image.Point) ([]image.Point, error) {
	a, err := Align(canonical, detected)
	if err != nil {
		return nil, err
	}
	return a.Ordered, nil
}

// Align finds the one-to-one correspondence between an unordered detected
// point set and an ordered canonical pattern that is consistent with a single
// rigid motion (rotation and translation, no scaling or mirroring).
//
// Both sets are centered on their own centroids. A first correspondence is
// seeded by turning each detected point onto the canonical point farthest
// from the centroid and keeping the turn with the cheapest optimal
// assignment. The rotation is then refined by orthogonal Procrustes: the
// cross-covariance H = Dᵀ·C of the paired points is decomposed as U·S·Vᵀ
// and R = V·Uᵀ, with the last column of V negated when det(R) < 0. The
// detected points are rotated into the canonical frame and the final
// pairing is the minimum-cost perfect matching on Euclidean distance.
//
// The only error is ErrShapeMismatch. Degenerate inputs such as collinear
// or coincident points still produce a bijection.
func Align(canonical, detected []image.Point) (*Alignment, error) {
	if len(canonical) != len(detected) {
		return nil, fmt.Errorf("%w: %d canonical, %d detected", ErrShapeMismatch, len(canonical), len(detected))
	}

	n := len(canonical)
	if n == 0 {
		return &Alignment{
			Ordered:    []image.Point{},
			Assignment: []int{},
			Rotation:   rotation(0),
		}, nil
	}

	c := centered(canonical)
	d := centered(detected)

	seed := seedAssignment(c, d)
	r, reflected := procrustes(c, d, seed)

	assign, cost := hungarian(distances(c, rotate(d, r)))

	ordered := make([]image.Point, n)
	for i, j := range assign {
		ordered[i] = detected[j]
	}
	return &Alignment{
		Ordered:    ordered,
		Assignment: assign,
		Rotation:   r,
		Reflected:  reflected,
		Cost:       cost,
	}, nil
}

// seedAssignment returns a first canonical→detected pairing. Each detected
// point in turn is assumed to be the match of the canonical anchor (the
// point farthest from the centroid, lowest index on ties); the implied turn
// is applied and the cheapest optimal assignment wins.
func seedAssignment(c, d *mat.Dense) []int {
	n, _ := c.Dims()

	anchor, best := 0, -1.0
	for i := 0; i < n; i++ {
		if r2 := sq(c.At(i, 0)) + sq(c.At(i, 1)); r2 > best {
			anchor, best = i, r2
		}
	}

	angles := make([]float64, 0, n)
	if best > degenerate {
		ca := math.Atan2(c.At(anchor, 1), c.At(anchor, 0))
		for j := 0; j < n; j++ {
			if sq(d.At(j, 0))+sq(d.At(j, 1)) <= degenerate {
				continue
			}
			angles = append(angles, ca-math.Atan2(d.At(j, 1), d.At(j, 0)))
		}
	}
	if len(angles) == 0 {
		angles = append(angles, 0)
	}

	var seed []int
	bestCost := math.Inf(1)
	for _, theta := range angles {
		assign, cost := hungarian(distances(c, rotate(d, rotation(theta))))
		if cost < bestCost {
			seed, bestCost = assign, cost
		}
	}
	return seed
}

// procrustes returns the proper rotation R minimizing Σ|R·d[pairs[i]] - c[i]|²
// and whether the unconstrained optimum was a reflection.
func procrustes(c, d *mat.Dense, pairs []int) (*mat.Dense, bool) {
	n, _ := c.Dims()

	paired := mat.NewDense(n, 2, nil)
	for i, j := range pairs {
		paired.SetRow(i, d.RawRowView(j))
	}

	var h mat.Dense
	h.Mul(paired.T(), c)

	var svd mat.SVD
	if !svd.Factorize(&h, mat.SVDFull) {
		return rotation(0), false
	}
	var u, v mat.Dense
	svd.UTo(&u)
	svd.VTo(&v)

	r := mat.NewDense(2, 2, nil)
	r.Mul(&v, u.T())
	if mat.Det(r) >= 0 {
		return r, false
	}

	// Negate the last column of V (the last row of Vᵀ).
	v.Set(0, 1, -v.At(0, 1))
	v.Set(1, 1, -v.At(1, 1))
	r.Mul(&v, u.T())
	return r, true
}

// centered returns pts as an n×2 matrix with the centroid subtracted.
func centered(pts []image.Point) *mat.Dense {
	n := len(pts)
	var mx, my float64
	for _, p := range pts {
		mx += float64(p.X)
		my += float64(p.Y)
	}
	mx /= float64(n)
	my /= float64(n)

	m := mat.NewDense(n, 2, nil)
	for i, p := range pts {
		m.Set(i, 0, float64(p.X)-mx)
		m.Set(i, 1, float64(p.Y)-my)
	}
	return m
}

// rotate applies r to every row of pts (row form: pts·rᵀ).
func rotate(pts *mat.Dense, r mat.Matrix) *mat.Dense {
	var out mat.Dense
	out.Mul(pts, r.T())
	return &out
}

// rotation returns the 2×2 counter-clockwise rotation by theta radians.
func rotation(theta float64) *mat.Dense {
	s, c := math.Sincos(theta)
	return mat.NewDense(2, 2, []float64{c, -s, s, c})
}

// distances returns the n×n Euclidean distance matrix between the rows of a
// and the rows of b.
func distances(a, b *mat.Dense) [][]float64 {
	n, _ := a.Dims()
	out := make([][]float64, n)
	for i := 0; i < n; i++ {
		out[i] = make([]float64, n)
		for j := 0; j < n; j++ {
			out[i][j] = math.Hypot(a.At(i, 0)-b.At(j, 0), a.At(i, 1)-b.At(j, 1))
		}
	}
	return out
}

func sq(v float64) float64 { return v * v }
