package vm

import (
	"amlkit/device/acpi/aml/entity"
	"amlkit/device/acpi/aml/parser"
	"amlkit/kernel"
	"bytes"
	"math/bits"
)

// binaryOp evaluates the two operands of st, applies fn, masks the result to
// the integer width and stores it to the optional target at Args[2].
func (ctx *execContext) binaryOp(st *parser.Statement, fn func(a, b uint64) (uint64, *kernel.Error)) *kernel.Error {
	left, right, err := ctx.toIntArgs2(st.Args[0], st.Args[1])
	if err != nil {
		return err
	}

	res, err := fn(left, right)
	if err != nil {
		return err
	}

	st.Result = entity.NewInteger(res & ctx.intMask())
	return ctx.condStore(st.Result, st.Args[2])
}

// Args: left, right, store?
// Returns: left + right
func vmOpAdd(ctx *execContext, st *parser.Statement) *kernel.Error {
	return ctx.binaryOp(st, func(a, b uint64) (uint64, *kernel.Error) { return a + b, nil })
}

// Args: left, right, store?
// Returns: left - right
func vmOpSubtract(ctx *execContext, st *parser.Statement) *kernel.Error {
	return ctx.binaryOp(st, func(a, b uint64) (uint64, *kernel.Error) { return a - b, nil })
}

// Args: left, right, store?
// Returns: left * right
func vmOpMultiply(ctx *execContext, st *parser.Statement) *kernel.Error {
	return ctx.binaryOp(st, func(a, b uint64) (uint64, *kernel.Error) { return a * b, nil })
}

// Args: left, right, remainder_store?
// Returns: left % right; errDivideByZero if right == 0
func vmOpMod(ctx *execContext, st *parser.Statement) *kernel.Error {
	return ctx.binaryOp(st, func(a, b uint64) (uint64, *kernel.Error) {
		if b == 0 {
			return 0, errDivideByZero
		}
		return a % b, nil
	})
}

// Args: left, right, remainder_store?, quotient_store?
// Returns: left / right; errDivideByZero if right == 0
func vmOpDivide(ctx *execContext, st *parser.Statement) *kernel.Error {
	left, right, err := ctx.toIntArgs2(st.Args[0], st.Args[1])
	if err != nil {
		return err
	}

	if right == 0 {
		return errDivideByZero
	}

	st.Result = entity.NewInteger(left / right)
	if err = ctx.condStore(st.Result, st.Args[3]); err != nil {
		return err
	}

	// Divide can also specify a target for storing the remainder
	return ctx.condStore(entity.NewInteger(left%right), st.Args[2])
}

// Args: left, store
// Returns: left + 1
// Stores: left <= left + 1
func vmOpIncrement(ctx *execContext, st *parser.Statement) *kernel.Error {
	left, err := ctx.toInteger(st.Args[0])
	if err != nil {
		return err
	}

	st.Result = entity.NewInteger((left + 1) & ctx.intMask())
	return ctx.store(st.Result, st.Args[0])
}

// Args: left, store
// Returns: left - 1
// Stores: left <= left - 1
func vmOpDecrement(ctx *execContext, st *parser.Statement) *kernel.Error {
	left, err := ctx.toInteger(st.Args[0])
	if err != nil {
		return err
	}

	st.Result = entity.NewInteger((left - 1) & ctx.intMask())
	return ctx.store(st.Result, st.Args[0])
}

// Args: left, right, store?
// Returns: left << right; shifting by the integer width or more yields 0
func vmOpShiftLeft(ctx *execContext, st *parser.Statement) *kernel.Error {
	width := uint64(ctx.intWidth())
	return ctx.binaryOp(st, func(a, b uint64) (uint64, *kernel.Error) {
		if b >= width {
			return 0, nil
		}
		return a << b, nil
	})
}

// Args: left, right, store?
// Returns: left >> right; shifting by the integer width or more yields 0
func vmOpShiftRight(ctx *execContext, st *parser.Statement) *kernel.Error {
	width := uint64(ctx.intWidth())
	return ctx.binaryOp(st, func(a, b uint64) (uint64, *kernel.Error) {
		if b >= width {
			return 0, nil
		}
		return a >> b, nil
	})
}

// Args: left, right, store?
// Returns: left & right
func vmOpBitwiseAnd(ctx *execContext, st *parser.Statement) *kernel.Error {
	return ctx.binaryOp(st, func(a, b uint64) (uint64, *kernel.Error) { return a & b, nil })
}

// Args: left, right, store?
// Returns: left | right
func vmOpBitwiseOr(ctx *execContext, st *parser.Statement) *kernel.Error {
	return ctx.binaryOp(st, func(a, b uint64) (uint64, *kernel.Error) { return a | b, nil })
}

// Args: left, right, store?
// Returns: !(left & right)
func vmOpBitwiseNand(ctx *execContext, st *parser.Statement) *kernel.Error {
	return ctx.binaryOp(st, func(a, b uint64) (uint64, *kernel.Error) { return ^(a & b), nil })
}

// Args: left, right, store?
// Returns: !(left | right)
func vmOpBitwiseNor(ctx *execContext, st *parser.Statement) *kernel.Error {
	return ctx.binaryOp(st, func(a, b uint64) (uint64, *kernel.Error) { return ^(a | b), nil })
}

// Args: left, right, store?
// Returns: left ^ right
func vmOpBitwiseXor(ctx *execContext, st *parser.Statement) *kernel.Error {
	return ctx.binaryOp(st, func(a, b uint64) (uint64, *kernel.Error) { return a ^ b, nil })
}

// unaryOp evaluates the operand of st, applies fn and stores the result to
// the optional target at Args[1].
func (ctx *execContext) unaryOp(st *parser.Statement, fn func(v uint64) uint64) *kernel.Error {
	v, err := ctx.toInteger(st.Args[0])
	if err != nil {
		return err
	}

	st.Result = entity.NewInteger(fn(v) & ctx.intMask())
	return ctx.condStore(st.Result, st.Args[1])
}

// Args: left, store?
// Returns: !left
func vmOpBitwiseNot(ctx *execContext, st *parser.Statement) *kernel.Error {
	return ctx.unaryOp(st, func(v uint64) uint64 { return ^v })
}

// Args: left, store?
// Returns: the one-based index of the most significant set bit or 0
func vmOpFindSetLeftBit(ctx *execContext, st *parser.Statement) *kernel.Error {
	return ctx.unaryOp(st, func(v uint64) uint64 { return uint64(bits.Len64(v)) })
}

// Args: left, store?
// Returns: the one-based index of the least significant set bit or 0
func vmOpFindSetRightBit(ctx *execContext, st *parser.Statement) *kernel.Error {
	return ctx.unaryOp(st, func(v uint64) uint64 {
		if v == 0 {
			return 0
		}
		return uint64(bits.TrailingZeros64(v)) + 1
	})
}

// Args: bcd, store?
// Returns: the binary value of a packed BCD number
func vmOpFromBCD(ctx *execContext, st *parser.Statement) *kernel.Error {
	return ctx.unaryOp(st, func(v uint64) uint64 {
		var res, mul uint64 = 0, 1
		for ; v != 0; v >>= 4 {
			res += (v & 0xf) * mul
			mul *= 10
		}
		return res
	})
}

// Args: value, store?
// Returns: value as a packed BCD number
func vmOpToBCD(ctx *execContext, st *parser.Statement) *kernel.Error {
	return ctx.unaryOp(st, func(v uint64) uint64 {
		var res uint64
		for shift := uint(0); v != 0 && shift < 64; shift += 4 {
			res |= (v % 10) << shift
			v /= 10
		}
		return res
	})
}

// Args: left
// Returns: !left
func vmOpLogicalNot(ctx *execContext, st *parser.Statement) *kernel.Error {
	v, err := ctx.toInteger(st.Args[0])
	if err != nil {
		return err
	}
	st.Result = ctx.boolValue(v == 0)
	return nil
}

// Args: left, right
// Returns: left && right
func vmOpLogicalAnd(ctx *execContext, st *parser.Statement) *kernel.Error {
	left, right, err := ctx.toIntArgs2(st.Args[0], st.Args[1])
	if err != nil {
		return err
	}
	st.Result = ctx.boolValue(left != 0 && right != 0)
	return nil
}

// Args: left, right
// Returns: left || right
func vmOpLogicalOr(ctx *execContext, st *parser.Statement) *kernel.Error {
	left, right, err := ctx.toIntArgs2(st.Args[0], st.Args[1])
	if err != nil {
		return err
	}
	st.Result = ctx.boolValue(left != 0 || right != 0)
	return nil
}

// Args: left, right
// Returns: left == right
func vmOpLogicalEqual(ctx *execContext, st *parser.Statement) *kernel.Error {
	cmp, err := ctx.compare(st.Args[0], st.Args[1])
	if err != nil {
		return err
	}
	st.Result = ctx.boolValue(cmp == 0)
	return nil
}

// Args: left, right
// Returns: left < right
func vmOpLogicalLess(ctx *execContext, st *parser.Statement) *kernel.Error {
	cmp, err := ctx.compare(st.Args[0], st.Args[1])
	if err != nil {
		return err
	}
	st.Result = ctx.boolValue(cmp < 0)
	return nil
}

// Args: left, right
// Returns: left > right
func vmOpLogicalGreater(ctx *execContext, st *parser.Statement) *kernel.Error {
	cmp, err := ctx.compare(st.Args[0], st.Args[1])
	if err != nil {
		return err
	}
	st.Result = ctx.boolValue(cmp > 0)
	return nil
}

// compare orders two operands. The right operand is converted to the type
// of the left one; Strings and Buffers compare byte-wise.
func (ctx *execContext) compare(leftArg, rightArg *entity.Object) (int, *kernel.Error) {
	left, err := ctx.operand(leftArg)
	if err != nil {
		return 0, err
	}

	switch left.Type {
	case entity.TypeInteger, entity.TypeString, entity.TypeBuffer:
	default:
		return 0, errTypeMismatch.WithDetail("cannot compare " + left.Type.String())
	}

	right, err := ctx.toData(rightArg, left.Type)
	if err != nil {
		return 0, err
	}

	if left.Type == entity.TypeInteger {
		switch {
		case left.Int < right.Int:
			return -1, nil
		case left.Int > right.Int:
			return 1, nil
		}
		return 0, nil
	}
	return bytes.Compare(left.Bytes, right.Bytes), nil
}
