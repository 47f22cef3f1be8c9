package difficulty

import (
	"math"

	"gonum.org/v1/gonum/mat"
	"gonum.org/v1/gonum/stat"
)

// project fits one principal direction over vectors and returns each
// vector's coordinate along it. The fit is local to the call.
//
// The sign of a principal direction is arbitrary, so the result is oriented
// so that scores grow with the summed operands; when that is undecidable the
// largest-magnitude loading is made positive.
func project(vectors []FeatureVector) []float64 {
	n := len(vectors)
	scores := make([]float64, n)
	if n < 2 {
		return scores
	}

	data := mat.NewDense(n, NumFeatures, nil)
	for i, v := range vectors {
		data.SetRow(i, v[:])
	}

	var pc stat.PC
	if ok := pc.PrincipalComponents(data, nil); !ok {
		return scores
	}
	var vecs mat.Dense
	pc.VectorsTo(&vecs)
	if _, c := vecs.Dims(); c == 0 {
		return scores
	}
	direction := mat.Col(nil, 0, &vecs)

	means := columnMeans(vectors)
	for i, v := range vectors {
		var s float64
		for j := range NumFeatures {
			s += (v[j] - means[j]) * direction[j]
		}
		scores[i] = s
	}

	if orientation(vectors, scores, direction) < 0 {
		for i := range scores {
			scores[i] = -scores[i]
		}
	}
	return scores
}

func columnMeans(vectors []FeatureVector) [NumFeatures]float64 {
	var means [NumFeatures]float64
	for _, v := range vectors {
		for j := range NumFeatures {
			means[j] += v[j]
		}
	}
	for j := range NumFeatures {
		means[j] /= float64(len(vectors))
	}
	return means
}

// orientation returns +1 when scores already point the canonical way and -1
// when they must be flipped.
func orientation(vectors []FeatureVector, scores, direction []float64) float64 {
	sums := make([]float64, len(vectors))
	for i, v := range vectors {
		sums[i] = v[FeatSum]
	}
	if cov := stat.Covariance(scores, sums, nil); math.Abs(cov) > 1e-9 {
		return math.Copysign(1, cov)
	}

	best := 0
	for j := range direction {
		if math.Abs(direction[j]) > math.Abs(direction[best]) {
			best = j
		}
	}
	if direction[best] < 0 {
		return -1
	}
	return 1
}
