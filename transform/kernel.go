package transform

import (
	"fmt"

	"github.com/nscipp/nscipp/buffer"
	"github.com/nscipp/nscipp/dimensions"
	"github.com/nscipp/nscipp/dtype"
	"github.com/nscipp/nscipp/errs"
	"github.com/nscipp/nscipp/variable"
	"golang.org/x/sync/errgroup"
)

// ElemBinary computes a single (value, variance) result from two
// (value, variance) operands, the per-element kernel body step 7 of
// spec.md §4.4 dispatches into.
type ElemBinary func(a, b ValueAndVariance) ValueAndVariance

// ElemUnary is the per-element kernel body for a unary op.
type ElemUnary func(x ValueAndVariance) ValueAndVariance

// elemDtype returns the dtype the type-check allow-list should see: a
// binned Variable's own dtype tag is always dtype.IndexPair (it names
// the indices buffer, see variable.Variable), so an op's allow-list
// must be checked against the bin buffer's element dtype instead.
func elemDtype(v *variable.Variable) dtype.Dtype {
	if v.IsBinned() {
		return v.BinBuffer().Dtype()
	}
	return v.Dtype()
}

// resultFloatDtype picks the output dtype for a binary op over two
// float-like operands: dtype.Float64 if either side is double
// precision, dtype.Float32 if both are single precision. Non-float
// dtype pairs (e.g. a comparison's bool-valued operands) fall back to
// dtype.Float64; callers that produce a non-float output pick their
// own dtype instead of using this helper.
func resultFloatDtype(a, b dtype.Dtype) dtype.Dtype {
	if a == dtype.Float32 && b == dtype.Float32 {
		return dtype.Float32
	}
	return dtype.Float64
}

// Binary runs op(a, b) end to end (spec.md §4.4 steps 1–7) and returns
// a freshly allocated output Variable. op.Allow gates which dtype
// combinations reach the element loop; resultFloatDtype picks the
// output precision among those the loop supports (dtype.Float64 and
// dtype.Float32).
func Binary(op Op, a, b *variable.Variable, elem ElemBinary) (*variable.Variable, error) {
	if !op.Allows(elemDtype(a), elemDtype(b)) {
		return nil, &errs.TypeError{Op: op.Name, Dtype: fmt.Sprintf("(%s,%s)", elemDtype(a), elemDtype(b))}
	}
	outUnit, err := op.Unit(a.Unit(), b.Unit())
	if err != nil {
		return nil, err
	}
	outDims, err := dimensions.Union(a.Dims(), b.Dims())
	if err != nil {
		return nil, err
	}
	if err := checkVariancePolicyBinary(op, a, b); err != nil {
		return nil, err
	}
	aB, err := broadcastTo(a, outDims)
	if err != nil {
		return nil, err
	}
	bB, err := broadcastTo(b, outDims)
	if err != nil {
		return nil, err
	}

	withVariance := !op.Flags.has(NoOutVariance) && (a.HasVariances() || b.HasVariances())
	outDtype := resultFloatDtype(elemDtype(a), elemDtype(b))
	out, err := variable.MakeVariable(outDims, outUnit, outDtype, withVariance)
	if err != nil {
		return nil, err
	}

	if aB.IsBinned() || bB.IsBinned() {
		return binnedBinary(op, aB, bB, out, elem)
	}

	if err := elementLoopBinary(out, aB, bB, elem, op.Parallel); err != nil {
		return nil, err
	}
	return out, nil
}

// BinaryInPlace runs op(a, b) writing into out, applying the aliasing
// check of spec.md §4.4 step 5: if out overlaps b without being
// identical to it, b is copied first.
func BinaryInPlace(op Op, out, a, b *variable.Variable, elem ElemBinary) error {
	if !op.Allows(elemDtype(a), elemDtype(b)) {
		return &errs.TypeError{Op: op.Name, Dtype: fmt.Sprintf("(%s,%s)", elemDtype(a), elemDtype(b))}
	}
	if _, err := op.Unit(a.Unit(), b.Unit()); err != nil {
		return err
	}
	if !out.Dims().Includes(a.Dims()) || !out.Dims().Includes(b.Dims()) {
		return &errs.DimensionError{Op: op.Name, Reason: "out.dims does not include every input's dims"}
	}
	if err := checkVariancePolicyBinary(op, a, b); err != nil {
		return err
	}
	if op.Flags.has(ExpectInVarianceIfOutVariance) && out.HasVariances() {
		if !a.HasVariances() || !b.HasVariances() {
			return &errs.VariancesError{Op: op.Name, Reason: "out carries variances but an input does not"}
		}
	}

	b = aliasGuard(out, b)

	aB, err := broadcastTo(a, out.Dims())
	if err != nil {
		return err
	}
	bB, err := broadcastTo(b, out.Dims())
	if err != nil {
		return err
	}

	if out.IsBinned() || aB.IsBinned() || bB.IsBinned() {
		_, err := binnedBinary(op, aB, bB, out, elem)
		return err
	}
	return elementLoopBinary(out, aB, bB, elem, op.Parallel)
}

// Unary runs a unary op end to end.
func Unary(op Op, a *variable.Variable, elem ElemUnary) (*variable.Variable, error) {
	if !op.Allows(elemDtype(a)) {
		return nil, &errs.TypeError{Op: op.Name, Dtype: elemDtype(a).String()}
	}
	outUnit, err := op.Unit(a.Unit())
	if err != nil {
		return nil, err
	}
	withVariance := !op.Flags.has(NoOutVariance) && a.HasVariances()
	outDtype := elemDtype(a)
	if !outDtype.IsFloat() {
		outDtype = dtype.Float64
	}
	out, err := variable.MakeVariable(a.Dims(), outUnit, outDtype, withVariance)
	if err != nil {
		return nil, err
	}
	if a.IsBinned() {
		return binnedUnary(op, a, out, elem)
	}
	if err := elementLoopUnary(out, a, elem, op.Parallel); err != nil {
		return nil, err
	}
	return out, nil
}

func checkVariancePolicyBinary(op Op, a, b *variable.Variable) error {
	if op.Flags.has(ExpectAllOrNoneHaveVariance) {
		if a.HasVariances() != b.HasVariances() {
			return &errs.VariancesError{Op: op.Name, Reason: "either all operands must carry variances or none may"}
		}
	}
	if op.Flags.has(ExpectVarianceArg0) && !a.HasVariances() {
		return &errs.VariancesError{Op: op.Name, Reason: "argument 0 must carry variances"}
	}
	if op.Flags.has(ExpectVarianceArg1) && !b.HasVariances() {
		return &errs.VariancesError{Op: op.Name, Reason: "argument 1 must carry variances"}
	}
	if op.Flags.has(ExpectNoVarianceArg0) && a.HasVariances() {
		return &errs.VariancesError{Op: op.Name, Reason: "argument 0 must not carry variances"}
	}
	if op.Flags.has(ExpectNoVarianceArg1) && b.HasVariances() {
		return &errs.VariancesError{Op: op.Name, Reason: "argument 1 must not carry variances"}
	}
	if !op.Flags.has(ForceVarianceBroadcast) {
		if a.HasVariances() && isBroadcastOperand(a, b) {
			return &errs.VariancesError{Op: op.Name, Reason: "broadcasting a variance-carrying operand is refused"}
		}
		if b.HasVariances() && isBroadcastOperand(b, a) {
			return &errs.VariancesError{Op: op.Name, Reason: "broadcasting a variance-carrying operand is refused"}
		}
	}
	return nil
}

// isBroadcastOperand reports whether x would need to gain dims (or
// change extents) to match the union of x and other — i.e. whether x
// is the narrower operand being broadcast.
func isBroadcastOperand(x, other *variable.Variable) bool {
	u, err := dimensions.Union(x.Dims(), other.Dims())
	if err != nil {
		return false
	}
	return !x.Dims().Equal(u)
}

func broadcastTo(v *variable.Variable, target dimensions.Dimensions) (*variable.Variable, error) {
	if v.Dims().Equal(target) {
		return v, nil
	}
	return v.Broadcast(target)
}

// aliasGuard detects overlap between out's storage and rhs without
// rhs being out itself, copying rhs first when so (spec.md §4.4 step
// 5 / §5's "overlapping in-place transforms ... copies the rhs
// first").
func aliasGuard(out, rhs *variable.Variable) *variable.Variable {
	if out.Values().Identity() != rhs.Values().Identity() {
		return rhs
	}
	if sameView(out, rhs) {
		return rhs
	}
	n := rhs.Dims().Volume()
	if buffer.Overlaps(out.Values(), rhs.Values(), out.Offset(), out.Offset()+n, rhs.Offset(), rhs.Offset()+n) {
		return rhs.Copy()
	}
	return rhs
}

func sameView(a, b *variable.Variable) bool {
	if a.Offset() != b.Offset() || len(a.Strides()) != len(b.Strides()) {
		return false
	}
	as, bs := a.Strides(), b.Strides()
	for i := range as {
		if as[i] != bs[i] {
			return false
		}
	}
	return true
}

func elementLoopBinary(out, a, b *variable.Variable, elem ElemBinary, parallel bool) error {
	outData, err := out.FloatValues()
	if err != nil {
		return err
	}
	aData, err := a.FloatValues()
	if err != nil {
		return err
	}
	bData, err := b.FloatValues()
	if err != nil {
		return err
	}
	outVar, hasOutVar, err := out.FloatVariances()
	if err != nil {
		return err
	}
	aVar, hasAVar, err := a.FloatVariances()
	if err != nil {
		return err
	}
	bVar, hasBVar, err := b.FloatVariances()
	if err != nil {
		return err
	}

	shape := out.Dims().Shape()
	n := out.Dims().Volume()
	if n == 0 {
		return nil
	}

	apply := func(lo, hi int) {
		idx := indexAt(lo, shape)
		for i := lo; i < hi; i++ {
			of := out.Offset() + flat(out.Strides(), idx)
			af := a.Offset() + flat(a.Strides(), idx)
			bf := b.Offset() + flat(b.Strides(), idx)
			av := ValueAndVariance{Value: aData.Get(af)}
			if hasAVar {
				av.Variance = aVar.Get(af)
			}
			bv := ValueAndVariance{Value: bData.Get(bf)}
			if hasBVar {
				bv.Variance = bVar.Get(bf)
			}
			r := elem(av, bv)
			outData.Set(of, r.Value)
			if hasOutVar {
				outVar.Set(of, r.Variance)
			}
			advance(idx, shape)
		}
	}

	if !parallel || len(shape) == 0 || shape[0] < 2 {
		apply(0, n)
		return nil
	}
	return parallelDispatch(shape, apply)
}

func elementLoopUnary(out, a *variable.Variable, elem ElemUnary, parallel bool) error {
	outData, err := out.FloatValues()
	if err != nil {
		return err
	}
	aData, err := a.FloatValues()
	if err != nil {
		return err
	}
	outVar, hasOutVar, err := out.FloatVariances()
	if err != nil {
		return err
	}
	aVar, hasAVar, err := a.FloatVariances()
	if err != nil {
		return err
	}

	shape := out.Dims().Shape()
	n := out.Dims().Volume()
	if n == 0 {
		return nil
	}

	apply := func(lo, hi int) {
		idx := indexAt(lo, shape)
		for i := lo; i < hi; i++ {
			of := out.Offset() + flat(out.Strides(), idx)
			af := a.Offset() + flat(a.Strides(), idx)
			av := ValueAndVariance{Value: aData.Get(af)}
			if hasAVar {
				av.Variance = aVar.Get(af)
			}
			r := elem(av)
			outData.Set(of, r.Value)
			if hasOutVar {
				outVar.Set(of, r.Variance)
			}
			advance(idx, shape)
		}
	}

	if !parallel || len(shape) == 0 || shape[0] < 2 {
		apply(0, n)
		return nil
	}
	return parallelDispatch(shape, apply)
}

// parallelDispatch partitions [0,n) into contiguous chunks along the
// outermost dim and runs apply on each concurrently, joined by an
// errgroup.Group (spec.md §5's work-stealing-pool description,
// expressed with the stdlib-adjacent x/sync primitive the teacher
// already depends on).
func parallelDispatch(shape []int, apply func(lo, hi int)) error {
	outer := shape[0]
	inner := 1
	for _, e := range shape[1:] {
		inner *= e
	}
	var g errgroup.Group
	for o := 0; o < outer; o++ {
		lo, hi := o*inner, (o+1)*inner
		g.Go(func() error {
			apply(lo, hi)
			return nil
		})
	}
	return g.Wait()
}

func indexAt(flatIdx int, shape []int) []int {
	idx := make([]int, len(shape))
	for i := len(shape) - 1; i >= 0 && flatIdx > 0; i-- {
		idx[i] = flatIdx % shape[i]
		flatIdx /= shape[i]
	}
	return idx
}

func flat(strides []int, idx []int) int {
	off := 0
	for i, s := range strides {
		off += idx[i] * s
	}
	return off
}

func advance(idx, shape []int) {
	for i := len(idx) - 1; i >= 0; i-- {
		idx[i]++
		if idx[i] < shape[i] {
			return
		}
		idx[i] = 0
	}
}
