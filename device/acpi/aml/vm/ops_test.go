package vm

import (
	"amlkit/device/acpi/aml/entity"
	"amlkit/device/acpi/aml/parser"
	"amlkit/kernel"
	"testing"

	"github.com/google/go-cmp/cmp"
)

// evalBody loads decls plus a method whose body is body and returns the
// method's result.
func evalBody(t *testing.T, decls []parser.Asm, body ...parser.Asm) (*entity.Object, *Error) {
	t.Helper()

	env := newTestEnv(t, Config{})
	env.load(t, append(decls, parser.Method("TEST", 0, body...))...)
	return env.vm.Evaluate(`\TEST`, entity.TypeAny)
}

// value is a comparable rendition of an evaluation result.
type value struct {
	Type  entity.ObjectType
	Int   uint64
	Bytes []byte
}

func valueOf(obj *entity.Object) value {
	v := value{Type: obj.Type, Int: obj.Int}
	if len(obj.Bytes) != 0 {
		v.Bytes = obj.Bytes
	}
	return v
}

func intValue(v uint64) value { return value{Type: entity.TypeInteger, Int: v} }

func strValue(s string) value { return value{Type: entity.TypeString, Bytes: []byte(s)} }

func bufValue(b ...byte) value { return value{Type: entity.TypeBuffer, Bytes: b} }

func ret(expr parser.Asm) parser.Asm { return parser.Return(expr) }

func bin(op entity.AMLOpcode, a, b parser.Asm) parser.Asm {
	return parser.Expr(op, a, b, parser.Int(0))
}

func un(op entity.AMLOpcode, a parser.Asm) parser.Asm {
	return parser.Expr(op, a, parser.Int(0))
}

func TestArithmeticOps(t *testing.T) {
	I := parser.Int

	specs := []struct {
		expr parser.Asm
		exp  uint64
	}{
		{bin(entity.OpAdd, I(40), I(2)), 42},
		{bin(entity.OpAdd, parser.Ones(), I(1)), 0},
		{bin(entity.OpSubtract, I(0), I(1)), ^uint64(0)},
		{bin(entity.OpMultiply, I(6), I(7)), 42},
		{bin(entity.OpMod, I(17), I(5)), 2},
		{parser.Expr(entity.OpDivide, I(17), I(5), I(0), I(0)), 3},
		{bin(entity.OpShiftLeft, I(1), I(4)), 16},
		{bin(entity.OpShiftLeft, I(1), I(64)), 0},
		{bin(entity.OpShiftRight, I(0x80), I(7)), 1},
		{bin(entity.OpShiftRight, parser.Ones(), I(100)), 0},
		{bin(entity.OpAnd, I(0xf0), I(0x3c)), 0x30},
		{bin(entity.OpOr, I(0xf0), I(0x0f)), 0xff},
		{bin(entity.OpXor, I(0xff), I(0x0f)), 0xf0},
		{bin(entity.OpNand, I(0), I(0)), ^uint64(0)},
		{bin(entity.OpNor, parser.Ones(), I(0)), 0},
		{un(entity.OpNot, I(0)), ^uint64(0)},
		{un(entity.OpFindSetLeftBit, I(0x80)), 8},
		{un(entity.OpFindSetLeftBit, I(0)), 0},
		{un(entity.OpFindSetRightBit, I(0x80)), 8},
		{un(entity.OpFindSetRightBit, I(0)), 0},
		{un(entity.OpFromBCD, I(0x1234)), 1234},
		{un(entity.OpToBCD, I(1234)), 0x1234},
		{parser.Expr(entity.OpLand, I(1), I(2)), ^uint64(0)},
		{parser.Expr(entity.OpLor, I(0), I(0)), 0},
		{parser.Expr(entity.OpLnot, I(0)), ^uint64(0)},
		{parser.Expr(entity.OpLEqual, parser.Str("abc"), parser.Str("abc")), ^uint64(0)},
		{parser.Expr(entity.OpLLess, parser.Str("abc"), parser.Str("abd")), ^uint64(0)},
		{parser.Expr(entity.OpLGreater, I(2), parser.Str("1")), ^uint64(0)},
		{parser.Op(entity.OpRevision), interpreterRevision},
	}

	for specIndex, spec := range specs {
		res, err := evalBody(t, nil, ret(spec.expr))
		if err != nil {
			t.Errorf("[spec %d] unexpected error: %v", specIndex, err)
			continue
		}
		if res.Type != entity.TypeInteger || res.Int != spec.exp {
			t.Errorf("[spec %d] expected Integer 0x%x; got %s 0x%x", specIndex, spec.exp, res.Type, res.Int)
		}
	}
}

func TestArithmeticErrors(t *testing.T) {
	specs := []struct {
		expr parser.Asm
		exp  *kernel.Error
	}{
		{bin(entity.OpMod, parser.Int(1), parser.Int(0)), errDivideByZero},
		{parser.Expr(entity.OpDivide, parser.Int(1), parser.Int(0), parser.Int(0), parser.Int(0)), errDivideByZero},
		{bin(entity.OpAdd, parser.Str(""), parser.Int(1)), errEmptyString},
	}

	for specIndex, spec := range specs {
		_, err := evalBody(t, nil, ret(spec.expr))
		if err == nil || err.Err.Root() != spec.exp {
			t.Errorf("[spec %d] expected error %v; got %v", specIndex, spec.exp, err)
		}
	}
}

func TestDivideStoresRemainder(t *testing.T) {
	res, err := evalBody(t, nil,
		parser.Expr(entity.OpDivide, parser.Int(17), parser.Int(5), parser.Local(0), parser.Local(1)),
		ret(bin(entity.OpAdd, bin(entity.OpMultiply, parser.Local(1), parser.Int(100)), parser.Local(0))),
	)
	if err != nil {
		t.Fatal(err)
	}
	if res.Int != 302 {
		t.Fatalf("expected quotient 3 and remainder 2; got %d", res.Int)
	}
}

func TestConversionOps(t *testing.T) {
	I, S := parser.Int, parser.Str

	specs := []struct {
		expr parser.Asm
		exp  value
	}{
		{un(entity.OpToHexString, I(0x1f)), strValue("0x000000000000001f")},
		{un(entity.OpToHexString, parser.Buffer(I(2), 0xab, 0x01)), strValue("0xab,0x01")},
		{un(entity.OpToDecimalString, I(1234)), strValue("1234")},
		{un(entity.OpToDecimalString, parser.Buffer(I(2), 1, 20)), strValue("1,20")},
		{un(entity.OpToInteger, S("0x1F")), intValue(0x1f)},
		{un(entity.OpToInteger, S("42")), intValue(42)},
		{un(entity.OpToInteger, parser.Buffer(I(2), 0x34, 0x12)), intValue(0x1234)},
		{un(entity.OpToBuffer, I(0x0201)), bufValue(1, 2, 0, 0, 0, 0, 0, 0)},
		{un(entity.OpToBuffer, S("AB")), bufValue('A', 'B', 0)},
		{parser.Expr(entity.OpToString, parser.Buffer(I(4), 'a', 'b', 0, 'c'), parser.Ones(), I(0)), strValue("ab")},
		{parser.Expr(entity.OpToString, parser.Buffer(I(3), 'a', 'b', 'c'), I(2), I(0)), strValue("ab")},
		{bin(entity.OpConcat, S("AB"), S("CD")), strValue("ABCD")},
		{bin(entity.OpConcat, S("v"), I(0x1f)), strValue("v1f")},
		{bin(entity.OpConcat, I(1), I(2)), bufValue(1, 0, 0, 0, 0, 0, 0, 0, 2, 0, 0, 0, 0, 0, 0, 0)},
		{bin(entity.OpConcat, parser.Buffer(I(1), 9), S("A")), bufValue(9, 'A', 0)},
		{bin(entity.OpConcatRes, parser.Buffer(I(3), 0x47, 0x79, 0x00), parser.Buffer(I(3), 0x22, 0x79, 0x00)), bufValue(0x47, 0x22, 0x79, 0x00)},
		{parser.Expr(entity.OpMid, S("HELLO"), I(1), I(3), I(0)), strValue("ELL")},
		{parser.Expr(entity.OpMid, parser.Buffer(I(3), 1, 2, 3), I(2), I(10), I(0)), bufValue(3)},
		{parser.Expr(entity.OpMid, S("HI"), I(5), I(1), I(0)), value{Type: entity.TypeString}},
	}

	for specIndex, spec := range specs {
		res, err := evalBody(t, nil, ret(spec.expr))
		if err != nil {
			t.Errorf("[spec %d] unexpected error: %v", specIndex, err)
			continue
		}
		if diff := cmp.Diff(spec.exp, valueOf(res)); diff != "" {
			t.Errorf("[spec %d] result mismatch (-want +got):\n%s", specIndex, diff)
		}
	}
}

func TestStoreToNamedObjects(t *testing.T) {
	decls := []parser.Asm{
		parser.NameObj("INT0", parser.Int(5)),
		parser.NameObj("STR0", parser.Str("xyz")),
		parser.NameObj("BUF0", parser.Buffer(parser.Int(2), 0xaa, 0xbb)),
		parser.NameObj("PKG0", parser.Package(parser.Int(1), parser.Int(2), parser.Int(3))),
	}

	specs := []struct {
		body []parser.Asm
		exp  value
	}{
		// Stores keep the type of the named destination.
		{[]parser.Asm{parser.Store(parser.Str("1F"), parser.Name("INT0")), ret(parser.Name("INT0"))}, intValue(0x1f)},
		{[]parser.Asm{parser.Store(parser.Int(0x2a), parser.Name("STR0")), ret(parser.Name("STR0"))}, strValue("2a")},
		{[]parser.Asm{parser.Store(parser.Int(1), parser.Name("BUF0")), ret(parser.Name("BUF0"))}, bufValue(1, 0, 0, 0, 0, 0, 0, 0)},
		{[]parser.Asm{parser.Store(parser.Buffer(parser.Int(3), 1, 2, 3), parser.Name("BUF0")), ret(parser.Name("BUF0"))}, bufValue(1, 2, 3)},
		// Locals take the type of the source.
		{[]parser.Asm{parser.Store(parser.Str("s"), parser.Local(0)), ret(parser.Local(0))}, strValue("s")},
		// CopyObject replaces the type of the destination.
		{[]parser.Asm{parser.Expr(entity.OpCopyObject, parser.Str("new"), parser.Name("INT0")), ret(parser.Name("INT0"))}, strValue("new")},
		// Stores to constants are ignored.
		{[]parser.Asm{parser.Store(parser.Int(3), parser.Int(4)), ret(parser.Int(4))}, intValue(4)},
		// Package elements.
		{[]parser.Asm{ret(parser.Expr(entity.OpDerefOf, parser.Expr(entity.OpIndex, parser.Name("PKG0"), parser.Int(1), parser.Int(0))))}, intValue(2)},
		{[]parser.Asm{
			parser.Store(parser.Int(9), parser.Expr(entity.OpIndex, parser.Name("PKG0"), parser.Int(0), parser.Int(0))),
			ret(parser.Expr(entity.OpDerefOf, parser.Expr(entity.OpIndex, parser.Name("PKG0"), parser.Int(0), parser.Int(0)))),
		}, intValue(9)},
		{[]parser.Asm{
			parser.Store(parser.Int(0x11), parser.Expr(entity.OpIndex, parser.Name("BUF0"), parser.Int(1), parser.Int(0))),
			ret(parser.Name("BUF0")),
		}, bufValue(0xaa, 0x11)},
		// References.
		{[]parser.Asm{
			parser.Store(parser.Expr(entity.OpRefOf, parser.Name("INT0")), parser.Local(0)),
			ret(parser.Expr(entity.OpDerefOf, parser.Local(0))),
		}, intValue(5)},
		{[]parser.Asm{ret(parser.Expr(entity.OpCondRefOf, parser.Name("MISS"), parser.Int(0)))}, intValue(0)},
		{[]parser.Asm{ret(parser.Expr(entity.OpCondRefOf, parser.Name("INT0"), parser.Local(1)))}, intValue(^uint64(0))},
		{[]parser.Asm{ret(parser.Expr(entity.OpDerefOf, parser.Str(`\INT0`)))}, intValue(5)},
		// Introspection.
		{[]parser.Asm{ret(parser.Expr(entity.OpSizeOf, parser.Name("PKG0")))}, intValue(3)},
		{[]parser.Asm{ret(parser.Expr(entity.OpSizeOf, parser.Name("STR0")))}, intValue(3)},
		{[]parser.Asm{ret(parser.Expr(entity.OpObjectType, parser.Name("BUF0")))}, intValue(uint64(entity.TypeBuffer))},
		{[]parser.Asm{ret(parser.Expr(entity.OpObjectType, parser.Name("TEST")))}, intValue(uint64(entity.TypeMethod))},
		{[]parser.Asm{ret(parser.Expr(entity.OpMatch, parser.Name("PKG0"), parser.Raw(1), parser.Int(3), parser.Raw(0), parser.Int(0), parser.Int(0)))}, intValue(2)},
		{[]parser.Asm{ret(parser.Expr(entity.OpMatch, parser.Name("PKG0"), parser.Raw(5), parser.Int(1), parser.Raw(3), parser.Int(3), parser.Int(0)))}, intValue(1)},
		{[]parser.Asm{ret(parser.Expr(entity.OpMatch, parser.Name("PKG0"), parser.Raw(1), parser.Int(7), parser.Raw(0), parser.Int(0), parser.Int(0)))}, intValue(^uint64(0))},
	}

	for specIndex, spec := range specs {
		res, err := evalBody(t, decls, spec.body...)
		if err != nil {
			t.Errorf("[spec %d] unexpected error: %v", specIndex, err)
			continue
		}
		if diff := cmp.Diff(spec.exp, valueOf(res)); diff != "" {
			t.Errorf("[spec %d] result mismatch (-want +got):\n%s", specIndex, diff)
		}
	}
}

func TestBufferFields(t *testing.T) {
	decls := []parser.Asm{
		parser.NameObj("BUF0", parser.Buffer(parser.Int(8))),
		parser.Expr(entity.OpCreateDWordField, parser.Name("BUF0"), parser.Int(0), parser.Name("DW0_")),
		parser.Expr(entity.OpCreateByteField, parser.Name("BUF0"), parser.Int(4), parser.Name("BY4_")),
		parser.Expr(entity.OpCreateBitField, parser.Name("BUF0"), parser.Int(47), parser.Name("BIT_")),
		parser.Expr(entity.OpCreateField, parser.Name("BUF0"), parser.Int(48), parser.Int(12), parser.Name("F12_")),
	}

	res, err := evalBody(t, decls,
		parser.Store(parser.Int(0x12345678), parser.Name("DW0_")),
		parser.Store(parser.Int(0x1ff), parser.Name("BY4_")),
		parser.Store(parser.Int(1), parser.Name("BIT_")),
		parser.Store(parser.Int(0xabc), parser.Name("F12_")),
		ret(parser.Name("BUF0")),
	)
	if err != nil {
		t.Fatal(err)
	}

	exp := bufValue(0x78, 0x56, 0x34, 0x12, 0xff, 0x80, 0xbc, 0x0a)
	if diff := cmp.Diff(exp, valueOf(res)); diff != "" {
		t.Fatalf("buffer mismatch (-want +got):\n%s", diff)
	}

	res, err = evalBody(t, decls,
		parser.Store(parser.Int(0xabc), parser.Name("F12_")),
		ret(parser.Name("F12_")),
	)
	if err != nil {
		t.Fatal(err)
	}
	if res.Int != 0xabc {
		t.Fatalf("expected to read back 0xabc; got 0x%x", res.Int)
	}

	// Fields that exceed their buffer are rejected.
	env := newTestEnv(t, Config{})
	env.load(t,
		parser.NameObj("SMAL", parser.Buffer(parser.Int(1))),
		parser.Expr(entity.OpCreateWordField, parser.Name("SMAL"), parser.Int(0), parser.Name("OOB_")),
	)
	if env.vm.Namespace().Find(nil, entity.MustParsePath(`\OOB_`), false) != nil {
		t.Fatal("expected the out-of-bounds buffer field to be skipped")
	}
}
