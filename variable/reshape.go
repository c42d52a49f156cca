package variable

import (
	"github.com/nscipp/nscipp/dimensions"
	"github.com/nscipp/nscipp/errs"
)

// Reshape relabels v's storage under nd, a Dimensions of equal
// volume, the primitive shapeops.Fold and shapeops.Flatten build on
// (spec.md §4.7): v must be dense (canonical strides, zero offset,
// not binned) since folding/flattening only reinterprets a
// contiguous backing slice under a different dim layout. Callers
// typically Copy() first to guarantee this.
func (v *Variable) Reshape(nd dimensions.Dimensions) (*Variable, error) {
	if nd.Volume() != v.dims.Volume() {
		return nil, &errs.DimensionError{Op: "Reshape", Reason: "volume mismatch reinterpreting dims"}
	}
	if v.IsBinned() {
		return nil, &errs.TypeError{Op: "Reshape", Dtype: v.dtype.String()}
	}
	if v.offset != 0 || !isCanonical(v.strd, v.dims.Shape()) {
		return nil, &errs.DimensionError{Op: "Reshape", Reason: "Reshape requires contiguous, canonically-strided storage; call Copy first"}
	}
	out := v.shallowCopy()
	out.dims = nd
	out.strd = canonicalStrides(nd.Shape())
	return out, nil
}
