// Package dtype defines the closed element-type tag set of spec.md
// §3, the way gonum's blas.Uplo/blas.Diag (blas64/blas64.go) are
// small closed enums driving a switch at each BLAS entry point rather
// than an open interface hierarchy.
package dtype

// Dtype tags the concrete element type stored in a Variable's buffer.
// The set is closed: a dtype-dispatch switch anywhere in nscipp may
// assume exhaustiveness over these values (spec.md §9, "Dynamic dtype
// dispatch").
type Dtype int

const (
	Invalid Dtype = iota
	Float64
	Float32
	Int64
	Int32
	Bool
	String
	TimePoint
	Vector3
	Matrix3
	Affine3
	Rotation
	Translation
	IndexPair
	BinVariable
	BinDataArray
	BinDataset
	DataArrayType
	DatasetType
)

var names = [...]string{
	Invalid:       "invalid",
	Float64:       "float64",
	Float32:       "float32",
	Int64:         "int64",
	Int32:         "int32",
	Bool:          "bool",
	String:        "string",
	TimePoint:     "time_point",
	Vector3:       "vector3",
	Matrix3:       "matrix3",
	Affine3:       "affine3",
	Rotation:      "rotation",
	Translation:   "translation",
	IndexPair:     "index_pair",
	BinVariable:   "bin<Variable>",
	BinDataArray:  "bin<DataArray>",
	BinDataset:    "bin<Dataset>",
	DataArrayType: "DataArray",
	DatasetType:   "Dataset",
}

func (d Dtype) String() string {
	if int(d) < 0 || int(d) >= len(names) || names[d] == "" {
		return "unknown"
	}
	return names[d]
}

// IsFloat reports whether d is one of the floating-point element
// types, i.e. a legal dtype for a variances buffer (spec.md §3).
func (d Dtype) IsFloat() bool { return d == Float64 || d == Float32 }

// IsNumeric reports whether d supports arithmetic transforms.
func (d Dtype) IsNumeric() bool {
	switch d {
	case Float64, Float32, Int64, Int32:
		return true
	default:
		return false
	}
}

// IsBinned reports whether d is one of the recursive bin<T> element
// types.
func (d Dtype) IsBinned() bool {
	return d == BinVariable || d == BinDataArray || d == BinDataset
}
