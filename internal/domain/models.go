// Package domain provides core domain models and types.
package domain

import (
	"fmt"
	"math"
	"strings"

	"gonum.org/v1/gonum/mat"
)

// symmetryTolerance is the largest |Σij - Σji| accepted when building a
// covariance matrix from rows.
const symmetryTolerance = 1e-12

// AssetIndex is the canonical ordered list of asset identifiers for one run.
// Every positional structure of the run (mean vector, covariance matrix,
// weight allocation) is indexed by position into the same AssetIndex.
type AssetIndex struct {
	ids      []string
	position map[string]int
}

// NormalizeAssetID trims and upper-cases an identifier.
func NormalizeAssetID(id string) string {
	return strings.ToUpper(strings.TrimSpace(id))
}

// NewAssetIndex builds an index from identifiers in the given order.
// Identifiers are normalized; empty and duplicate identifiers are rejected.
func NewAssetIndex(ids []string) (*AssetIndex, error) {
	if len(ids) == 0 {
		return nil, fmt.Errorf("%w: no assets provided", ErrInvalidParameter)
	}

	idx := &AssetIndex{
		ids:      make([]string, 0, len(ids)),
		position: make(map[string]int, len(ids)),
	}
	for _, raw := range ids {
		id := NormalizeAssetID(raw)
		if id == "" {
			return nil, fmt.Errorf("%w: empty asset identifier", ErrInvalidParameter)
		}
		if _, dup := idx.position[id]; dup {
			return nil, fmt.Errorf("%w: duplicate asset identifier %s", ErrInvalidParameter, id)
		}
		idx.position[id] = len(idx.ids)
		idx.ids = append(idx.ids, id)
	}
	return idx, nil
}

// Len returns the number of assets.
func (ix *AssetIndex) Len() int {
	if ix == nil {
		return 0
	}
	return len(ix.ids)
}

// ID returns the identifier at position i.
func (ix *AssetIndex) ID(i int) string {
	return ix.ids[i]
}

// IDs returns a copy of the identifiers in index order.
func (ix *AssetIndex) IDs() []string {
	out := make([]string, len(ix.ids))
	copy(out, ix.ids)
	return out
}

// Position returns the position of an identifier.
func (ix *AssetIndex) Position(id string) (int, bool) {
	i, ok := ix.position[NormalizeAssetID(id)]
	return i, ok
}

// Equal reports whether both indexes hold the same identifiers in the same order.
func (ix *AssetIndex) Equal(other *AssetIndex) bool {
	if ix == other {
		return true
	}
	if ix == nil || other == nil || len(ix.ids) != len(other.ids) {
		return false
	}
	for i := range ix.ids {
		if ix.ids[i] != other.ids[i] {
			return false
		}
	}
	return true
}

// MeanVector holds the periodic (not annualized) mean return per asset.
type MeanVector struct {
	index  *AssetIndex
	values []float64
}

// NewMeanVector builds a mean vector aligned to the index.
func NewMeanVector(index *AssetIndex, values []float64) (MeanVector, error) {
	if index.Len() == 0 {
		return MeanVector{}, fmt.Errorf("%w: mean vector needs a non-empty asset index", ErrInvalidParameter)
	}
	if len(values) != index.Len() {
		return MeanVector{}, fmt.Errorf("%w: mean vector has %d values for %d assets", ErrInvalidAllocation, len(values), index.Len())
	}
	v := make([]float64, len(values))
	copy(v, values)
	return MeanVector{index: index, values: v}, nil
}

// Index returns the asset index the vector is aligned to.
func (m MeanVector) Index() *AssetIndex { return m.index }

// Len returns the number of entries.
func (m MeanVector) Len() int { return len(m.values) }

// At returns the mean return at position i.
func (m MeanVector) At(i int) float64 { return m.values[i] }

// Values returns a copy of the raw values.
func (m MeanVector) Values() []float64 {
	out := make([]float64, len(m.values))
	copy(out, m.values)
	return out
}

// Vec returns the values as a fresh gonum vector.
func (m MeanVector) Vec() *mat.VecDense {
	return mat.NewVecDense(len(m.values), m.Values())
}

// CovarianceMatrix holds the periodic covariance of asset returns.
type CovarianceMatrix struct {
	index *AssetIndex
	sym   *mat.SymDense
}

// NewCovarianceMatrix wraps a symmetric matrix aligned to the index.
// The matrix is copied.
func NewCovarianceMatrix(index *AssetIndex, sym *mat.SymDense) (CovarianceMatrix, error) {
	if index.Len() == 0 || sym == nil {
		return CovarianceMatrix{}, fmt.Errorf("%w: covariance matrix needs an index and values", ErrInvalidParameter)
	}
	if n := sym.SymmetricDim(); n != index.Len() {
		return CovarianceMatrix{}, fmt.Errorf("%w: covariance matrix size %d doesn't match asset count %d", ErrInvalidAllocation, n, index.Len())
	}
	cp := mat.NewSymDense(index.Len(), nil)
	cp.CopySym(sym)
	return CovarianceMatrix{index: index, sym: cp}, nil
}

// NewCovarianceMatrixFromRows builds a covariance matrix from a square,
// symmetric row-major slice.
func NewCovarianceMatrixFromRows(index *AssetIndex, rows [][]float64) (CovarianceMatrix, error) {
	n := index.Len()
	if len(rows) != n {
		return CovarianceMatrix{}, fmt.Errorf("%w: covariance matrix size %d doesn't match asset count %d", ErrInvalidAllocation, len(rows), n)
	}
	sym := mat.NewSymDense(n, nil)
	for i := range rows {
		if len(rows[i]) != n {
			return CovarianceMatrix{}, fmt.Errorf("%w: covariance matrix row %d has size %d, expected %d", ErrInvalidAllocation, i, len(rows[i]), n)
		}
		for j := i; j < n; j++ {
			if math.Abs(rows[i][j]-rows[j][i]) > symmetryTolerance {
				return CovarianceMatrix{}, fmt.Errorf("%w: covariance matrix is not symmetric at (%d,%d)", ErrInvalidAllocation, i, j)
			}
			sym.SetSym(i, j, rows[i][j])
		}
	}
	return CovarianceMatrix{index: index, sym: sym}, nil
}

// Index returns the asset index the matrix is aligned to.
func (c CovarianceMatrix) Index() *AssetIndex { return c.index }

// Len returns the matrix dimension.
func (c CovarianceMatrix) Len() int {
	if c.sym == nil {
		return 0
	}
	return c.sym.SymmetricDim()
}

// At returns Σij.
func (c CovarianceMatrix) At(i, j int) float64 { return c.sym.At(i, j) }

// Sym returns a copy of the matrix.
func (c CovarianceMatrix) Sym() *mat.SymDense {
	cp := mat.NewSymDense(c.Len(), nil)
	cp.CopySym(c.sym)
	return cp
}

// Rows returns the matrix as a row-major slice.
func (c CovarianceMatrix) Rows() [][]float64 {
	n := c.Len()
	rows := make([][]float64, n)
	for i := 0; i < n; i++ {
		rows[i] = make([]float64, n)
		for j := 0; j < n; j++ {
			rows[i][j] = c.sym.At(i, j)
		}
	}
	return rows
}

// Clone returns an independent copy sharing the same index.
func (c CovarianceMatrix) Clone() CovarianceMatrix {
	return CovarianceMatrix{index: c.index, sym: c.Sym()}
}

// WeightAllocation holds one weight per asset, aligned to the index.
// Sum-to-one is not enforced here.
type WeightAllocation struct {
	index  *AssetIndex
	values []float64
}

// NewWeightAllocation builds an allocation from positional weights.
func NewWeightAllocation(index *AssetIndex, values []float64) (WeightAllocation, error) {
	if index.Len() == 0 {
		return WeightAllocation{}, fmt.Errorf("%w: allocation needs a non-empty asset index", ErrInvalidParameter)
	}
	if len(values) != index.Len() {
		return WeightAllocation{}, fmt.Errorf("%w: allocation has %d weights for %d assets", ErrInvalidAllocation, len(values), index.Len())
	}
	v := make([]float64, len(values))
	copy(v, values)
	return WeightAllocation{index: index, values: v}, nil
}

// NewWeightAllocationFromMap projects identifier-keyed weights onto the index.
// Assets absent from the map get weight 0; unknown identifiers are rejected.
func NewWeightAllocationFromMap(index *AssetIndex, weights map[string]float64) (WeightAllocation, error) {
	if index.Len() == 0 {
		return WeightAllocation{}, fmt.Errorf("%w: allocation needs a non-empty asset index", ErrInvalidParameter)
	}
	values := make([]float64, index.Len())
	for id, w := range weights {
		i, ok := index.Position(id)
		if !ok {
			return WeightAllocation{}, fmt.Errorf("%w: weight for unknown asset %s", ErrInvalidAllocation, id)
		}
		values[i] = w
	}
	return WeightAllocation{index: index, values: values}, nil
}

// Index returns the asset index the allocation is aligned to.
func (w WeightAllocation) Index() *AssetIndex { return w.index }

// Len returns the number of weights.
func (w WeightAllocation) Len() int { return len(w.values) }

// At returns the weight at position i.
func (w WeightAllocation) At(i int) float64 { return w.values[i] }

// Values returns a copy of the weights.
func (w WeightAllocation) Values() []float64 {
	out := make([]float64, len(w.values))
	copy(out, w.values)
	return out
}

// Vec returns the weights as a fresh gonum vector.
func (w WeightAllocation) Vec() *mat.VecDense {
	return mat.NewVecDense(len(w.values), w.Values())
}

// Map renders an identifier-keyed view of the weights.
func (w WeightAllocation) Map() map[string]float64 {
	out := make(map[string]float64, len(w.values))
	for i, v := range w.values {
		out[w.index.ID(i)] = v
	}
	return out
}

// Sum returns the sum of all weights.
func (w WeightAllocation) Sum() float64 {
	var sum float64
	for _, v := range w.values {
		sum += v
	}
	return sum
}

// NonZero returns the number of non-zero weights.
func (w WeightAllocation) NonZero() int {
	count := 0
	for _, v := range w.values {
		if v != 0 {
			count++
		}
	}
	return count
}
