package reduce

import (
	"errors"
	"math"

	"gonum.org/v1/gonum/mat"
	"gonum.org/v1/gonum/stat"
)

// pca projects the centered data onto its first two principal components.
// Components that do not exist (fewer than two observations or dimensions)
// are reported as zero.
func pca(data [][]float64) ([]Point, error) {
	n, d := len(data), len(data[0])
	points := make([]Point, n)
	if n < 2 || d == 0 {
		return points, nil
	}

	x := mat.NewDense(n, d, nil)
	for i, row := range data {
		x.SetRow(i, row)
	}
	for j := 0; j < d; j++ {
		col := mat.Col(nil, j, x)
		mean := stat.Mean(col, nil)
		for i := 0; i < n; i++ {
			x.Set(i, j, col[i]-mean)
		}
	}

	var pc stat.PC
	if ok := pc.PrincipalComponents(x, nil); !ok {
		return nil, errors.New("pca: singular value decomposition failed")
	}
	var vecs mat.Dense
	pc.VectorsTo(&vecs)

	_, k := vecs.Dims()
	if k > 2 {
		k = 2
	}
	basis := mat.DenseCopyOf(vecs.Slice(0, d, 0, k))
	orientSigns(basis)

	var proj mat.Dense
	proj.Mul(x, basis)
	for i := range points {
		points[i].X = proj.At(i, 0)
		if k > 1 {
			points[i].Y = proj.At(i, 1)
		}
	}
	return points, nil
}

// orientSigns flips each component so its largest-magnitude loading is
// positive, removing the sign ambiguity of the decomposition.
func orientSigns(basis *mat.Dense) {
	rows, cols := basis.Dims()
	for j := 0; j < cols; j++ {
		best := 0.0
		for i := 0; i < rows; i++ {
			if v := basis.At(i, j); math.Abs(v) > math.Abs(best) {
				best = v
			}
		}
		if best < 0 {
			for i := 0; i < rows; i++ {
				basis.Set(i, j, -basis.At(i, j))
			}
		}
	}
}
