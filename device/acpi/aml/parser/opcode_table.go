package parser

import "amlkit/device/acpi/aml/entity"

const (
	badOpcode   = 0xff
	extOpPrefix = 0x5b
)

// OpFlag specifies a list of OR-able flags that describe the object
// type/attributes generated by a particular opcode.
type OpFlag uint8

// The list of supported OpFlag values.
const (
	// FlagNamed is set for opcodes that declare a named object.
	FlagNamed OpFlag = 1 << iota
	FlagConstant
	FlagReference
	FlagCreate
	FlagExecutable

	// FlagScoped is set for opcodes whose term list is evaluated in the
	// scope of the declared object.
	FlagScoped

	// FlagHasPkgLen is set for opcodes whose encoding starts with a
	// PkgLength.
	FlagHasPkgLen
)

// Is returns true if any of the supplied flags is set.
func (fl OpFlag) Is(flags OpFlag) bool { return fl&flags != 0 }

// ArgType represents the type of an argument expected by a particular opcode.
type ArgType uint8

// The list of supported ArgType values. Inline args are decoded directly from
// the AML stream; evaluated args are produced by executing the AML that
// follows; block args mark the body of a statement which ends at the
// statement's end offset.
const (
	ArgNone ArgType = iota

	// Inline args
	ArgByteData
	ArgWordData
	ArgDWordData
	ArgQWordData
	ArgString
	ArgNameString
	ArgFieldList
	ArgByteList
	ArgMethodBody

	// Evaluated args
	ArgTermArg
	ArgSuperName
	ArgSimpleName
	ArgTarget
	ArgDataRefObj

	// Block args
	ArgTermList
	ArgPackageElements
)

// IsInline returns true if the arg is decoded directly from the stream.
func (t ArgType) IsInline() bool { return t >= ArgByteData && t <= ArgMethodBody }

// IsBlock returns true if the arg is a term list or package element list.
func (t ArgType) IsBlock() bool { return t >= ArgTermList }

// IsReference returns true if the arg position expects an object reference
// rather than a value.
func (t ArgType) IsReference() bool {
	return t == ArgSuperName || t == ArgSimpleName || t == ArgTarget
}

// ArgTypeList encodes up to 7 ArgType values in a uint64 value.
type ArgTypeList uint64

// Count returns the number of encoded args in the given arg type list.
func (fl ArgTypeList) Count() (count uint8) {
	// Each argument is specified using 8 bits with 0x0 indicating the end of the
	// argument list
	for ; fl&0xff != 0; fl, count = fl>>8, count+1 {
	}

	return count
}

// Arg returns the arg type for argument "num" where num is the 0-based index
// of the argument to return.
func (fl ArgTypeList) Arg(num uint8) ArgType {
	return ArgType((fl >> (num * 8)) & 0xff)
}

func makeArg0() ArgTypeList             { return 0 }
func makeArg1(arg0 ArgType) ArgTypeList { return ArgTypeList(arg0) }
func makeArg2(arg0, arg1 ArgType) ArgTypeList {
	return ArgTypeList(arg1)<<8 | ArgTypeList(arg0)
}
func makeArg3(arg0, arg1, arg2 ArgType) ArgTypeList {
	return ArgTypeList(arg2)<<16 | ArgTypeList(arg1)<<8 | ArgTypeList(arg0)
}
func makeArg4(arg0, arg1, arg2, arg3 ArgType) ArgTypeList {
	return ArgTypeList(arg3)<<24 | ArgTypeList(arg2)<<16 | ArgTypeList(arg1)<<8 | ArgTypeList(arg0)
}
func makeArg5(arg0, arg1, arg2, arg3, arg4 ArgType) ArgTypeList {
	return ArgTypeList(arg4)<<32 | ArgTypeList(arg3)<<24 | ArgTypeList(arg2)<<16 | ArgTypeList(arg1)<<8 | ArgTypeList(arg0)
}
func makeArg6(arg0, arg1, arg2, arg3, arg4, arg5 ArgType) ArgTypeList {
	return ArgTypeList(arg5)<<40 | ArgTypeList(arg4)<<32 | ArgTypeList(arg3)<<24 | ArgTypeList(arg2)<<16 | ArgTypeList(arg1)<<8 | ArgTypeList(arg0)
}

// OpcodeInfo contains all known information about an opcode,
// its argument count and types as well as the type of object
// represented by it.
type OpcodeInfo struct {
	Op    entity.AMLOpcode
	Flags OpFlag
	Args  ArgTypeList
}

// ArgCount returns the number of args expected by the opcode.
func (info *OpcodeInfo) ArgCount() uint8 { return info.Args.Count() }

// ArgType returns the type of the argument at index.
func (info *OpcodeInfo) ArgType(index uint8) ArgType { return info.Args.Arg(index) }

// The opcode table contains all opcode-related information that the parser knows.
// This table is modeled after a similar table used in the acpica implementation.
var opcodeTable = []OpcodeInfo{
	/*0x00*/ {entity.OpZero, FlagConstant, makeArg0()},
	/*0x01*/ {entity.OpOne, FlagConstant, makeArg0()},
	/*0x02*/ {entity.OpAlias, FlagNamed, makeArg2(ArgNameString, ArgNameString)},
	/*0x03*/ {entity.OpName, FlagNamed, makeArg2(ArgNameString, ArgDataRefObj)},
	/*0x04*/ {entity.OpBytePrefix, FlagConstant, makeArg1(ArgByteData)},
	/*0x05*/ {entity.OpWordPrefix, FlagConstant, makeArg1(ArgWordData)},
	/*0x06*/ {entity.OpDwordPrefix, FlagConstant, makeArg1(ArgDWordData)},
	/*0x07*/ {entity.OpStringPrefix, FlagConstant, makeArg1(ArgString)},
	/*0x08*/ {entity.OpQwordPrefix, FlagConstant, makeArg1(ArgQWordData)},
	/*0x09*/ {entity.OpScope, FlagScoped | FlagHasPkgLen, makeArg2(ArgNameString, ArgTermList)},
	/*0x0a*/ {entity.OpBuffer, FlagCreate | FlagHasPkgLen, makeArg2(ArgTermArg, ArgByteList)},
	/*0x0b*/ {entity.OpPackage, FlagCreate | FlagHasPkgLen, makeArg2(ArgByteData, ArgPackageElements)},
	/*0x0c*/ {entity.OpVarPackage, FlagCreate | FlagHasPkgLen, makeArg2(ArgTermArg, ArgPackageElements)},
	/*0x0d*/ {entity.OpMethod, FlagNamed | FlagHasPkgLen, makeArg3(ArgNameString, ArgByteData, ArgMethodBody)},
	/*0x0e*/ {entity.OpExternal, FlagNamed, makeArg3(ArgNameString, ArgByteData, ArgByteData)},
	/*0x0f*/ {entity.OpLocal0, FlagExecutable, makeArg0()},
	/*0x10*/ {entity.OpLocal1, FlagExecutable, makeArg0()},
	/*0x11*/ {entity.OpLocal2, FlagExecutable, makeArg0()},
	/*0x12*/ {entity.OpLocal3, FlagExecutable, makeArg0()},
	/*0x13*/ {entity.OpLocal4, FlagExecutable, makeArg0()},
	/*0x14*/ {entity.OpLocal5, FlagExecutable, makeArg0()},
	/*0x15*/ {entity.OpLocal6, FlagExecutable, makeArg0()},
	/*0x16*/ {entity.OpLocal7, FlagExecutable, makeArg0()},
	/*0x17*/ {entity.OpArg0, FlagExecutable, makeArg0()},
	/*0x18*/ {entity.OpArg1, FlagExecutable, makeArg0()},
	/*0x19*/ {entity.OpArg2, FlagExecutable, makeArg0()},
	/*0x1a*/ {entity.OpArg3, FlagExecutable, makeArg0()},
	/*0x1b*/ {entity.OpArg4, FlagExecutable, makeArg0()},
	/*0x1c*/ {entity.OpArg5, FlagExecutable, makeArg0()},
	/*0x1d*/ {entity.OpArg6, FlagExecutable, makeArg0()},
	/*0x1e*/ {entity.OpStore, FlagExecutable, makeArg2(ArgTermArg, ArgSuperName)},
	/*0x1f*/ {entity.OpRefOf, FlagReference | FlagExecutable, makeArg1(ArgSuperName)},
	/*0x20*/ {entity.OpAdd, FlagExecutable, makeArg3(ArgTermArg, ArgTermArg, ArgTarget)},
	/*0x21*/ {entity.OpConcat, FlagExecutable, makeArg3(ArgTermArg, ArgTermArg, ArgTarget)},
	/*0x22*/ {entity.OpSubtract, FlagExecutable, makeArg3(ArgTermArg, ArgTermArg, ArgTarget)},
	/*0x23*/ {entity.OpIncrement, FlagExecutable, makeArg1(ArgSuperName)},
	/*0x24*/ {entity.OpDecrement, FlagExecutable, makeArg1(ArgSuperName)},
	/*0x25*/ {entity.OpMultiply, FlagExecutable, makeArg3(ArgTermArg, ArgTermArg, ArgTarget)},
	/*0x26*/ {entity.OpDivide, FlagExecutable, makeArg4(ArgTermArg, ArgTermArg, ArgTarget, ArgTarget)},
	/*0x27*/ {entity.OpShiftLeft, FlagExecutable, makeArg3(ArgTermArg, ArgTermArg, ArgTarget)},
	/*0x28*/ {entity.OpShiftRight, FlagExecutable, makeArg3(ArgTermArg, ArgTermArg, ArgTarget)},
	/*0x29*/ {entity.OpAnd, FlagExecutable, makeArg3(ArgTermArg, ArgTermArg, ArgTarget)},
	/*0x2a*/ {entity.OpNand, FlagExecutable, makeArg3(ArgTermArg, ArgTermArg, ArgTarget)},
	/*0x2b*/ {entity.OpOr, FlagExecutable, makeArg3(ArgTermArg, ArgTermArg, ArgTarget)},
	/*0x2c*/ {entity.OpNor, FlagExecutable, makeArg3(ArgTermArg, ArgTermArg, ArgTarget)},
	/*0x2d*/ {entity.OpXor, FlagExecutable, makeArg3(ArgTermArg, ArgTermArg, ArgTarget)},
	/*0x2e*/ {entity.OpNot, FlagExecutable, makeArg2(ArgTermArg, ArgTarget)},
	/*0x2f*/ {entity.OpFindSetLeftBit, FlagExecutable, makeArg2(ArgTermArg, ArgTarget)},
	/*0x30*/ {entity.OpFindSetRightBit, FlagExecutable, makeArg2(ArgTermArg, ArgTarget)},
	/*0x31*/ {entity.OpDerefOf, FlagExecutable, makeArg1(ArgTermArg)},
	/*0x32*/ {entity.OpConcatRes, FlagExecutable, makeArg3(ArgTermArg, ArgTermArg, ArgTarget)},
	/*0x33*/ {entity.OpMod, FlagExecutable, makeArg3(ArgTermArg, ArgTermArg, ArgTarget)},
	/*0x34*/ {entity.OpNotify, FlagExecutable, makeArg2(ArgSuperName, ArgTermArg)},
	/*0x35*/ {entity.OpSizeOf, FlagExecutable, makeArg1(ArgSuperName)},
	/*0x36*/ {entity.OpIndex, FlagReference | FlagExecutable, makeArg3(ArgTermArg, ArgTermArg, ArgTarget)},
	/*0x37*/ {entity.OpMatch, FlagExecutable, makeArg6(ArgTermArg, ArgByteData, ArgTermArg, ArgByteData, ArgTermArg, ArgTermArg)},
	/*0x38*/ {entity.OpCreateDWordField, FlagNamed | FlagCreate | FlagExecutable, makeArg3(ArgTermArg, ArgTermArg, ArgNameString)},
	/*0x39*/ {entity.OpCreateWordField, FlagNamed | FlagCreate | FlagExecutable, makeArg3(ArgTermArg, ArgTermArg, ArgNameString)},
	/*0x3a*/ {entity.OpCreateByteField, FlagNamed | FlagCreate | FlagExecutable, makeArg3(ArgTermArg, ArgTermArg, ArgNameString)},
	/*0x3b*/ {entity.OpCreateBitField, FlagNamed | FlagCreate | FlagExecutable, makeArg3(ArgTermArg, ArgTermArg, ArgNameString)},
	/*0x3c*/ {entity.OpObjectType, FlagExecutable, makeArg1(ArgSuperName)},
	/*0x3d*/ {entity.OpCreateQWordField, FlagNamed | FlagCreate | FlagExecutable, makeArg3(ArgTermArg, ArgTermArg, ArgNameString)},
	/*0x3e*/ {entity.OpLand, FlagExecutable, makeArg2(ArgTermArg, ArgTermArg)},
	/*0x3f*/ {entity.OpLor, FlagExecutable, makeArg2(ArgTermArg, ArgTermArg)},
	/*0x40*/ {entity.OpLnot, FlagExecutable, makeArg1(ArgTermArg)},
	/*0x41*/ {entity.OpLEqual, FlagExecutable, makeArg2(ArgTermArg, ArgTermArg)},
	/*0x42*/ {entity.OpLGreater, FlagExecutable, makeArg2(ArgTermArg, ArgTermArg)},
	/*0x43*/ {entity.OpLLess, FlagExecutable, makeArg2(ArgTermArg, ArgTermArg)},
	/*0x44*/ {entity.OpToBuffer, FlagExecutable, makeArg2(ArgTermArg, ArgTarget)},
	/*0x45*/ {entity.OpToDecimalString, FlagExecutable, makeArg2(ArgTermArg, ArgTarget)},
	/*0x46*/ {entity.OpToHexString, FlagExecutable, makeArg2(ArgTermArg, ArgTarget)},
	/*0x47*/ {entity.OpToInteger, FlagExecutable, makeArg2(ArgTermArg, ArgTarget)},
	/*0x48*/ {entity.OpToString, FlagExecutable, makeArg3(ArgTermArg, ArgTermArg, ArgTarget)},
	/*0x49*/ {entity.OpCopyObject, FlagExecutable, makeArg2(ArgTermArg, ArgSimpleName)},
	/*0x4a*/ {entity.OpMid, FlagExecutable, makeArg4(ArgTermArg, ArgTermArg, ArgTermArg, ArgTarget)},
	/*0x4b*/ {entity.OpContinue, FlagExecutable, makeArg0()},
	/*0x4c*/ {entity.OpIf, FlagExecutable | FlagHasPkgLen, makeArg2(ArgTermArg, ArgTermList)},
	/*0x4d*/ {entity.OpElse, FlagExecutable | FlagHasPkgLen, makeArg1(ArgTermList)},
	/*0x4e*/ {entity.OpWhile, FlagExecutable | FlagHasPkgLen, makeArg2(ArgTermArg, ArgTermList)},
	/*0x4f*/ {entity.OpNoop, FlagExecutable, makeArg0()},
	/*0x50*/ {entity.OpReturn, FlagExecutable, makeArg1(ArgTermArg)},
	/*0x51*/ {entity.OpBreak, FlagExecutable, makeArg0()},
	/*0x52*/ {entity.OpBreakPoint, FlagExecutable, makeArg0()},
	/*0x53*/ {entity.OpOnes, FlagConstant, makeArg0()},
	/*0x54*/ {entity.OpMutex, FlagNamed, makeArg2(ArgNameString, ArgByteData)},
	/*0x55*/ {entity.OpEvent, FlagNamed, makeArg1(ArgNameString)},
	/*0x56*/ {entity.OpCondRefOf, FlagReference | FlagExecutable, makeArg2(ArgSuperName, ArgTarget)},
	/*0x57*/ {entity.OpCreateField, FlagNamed | FlagCreate | FlagExecutable, makeArg4(ArgTermArg, ArgTermArg, ArgTermArg, ArgNameString)},
	/*0x58*/ {entity.OpLoadTable, FlagExecutable, makeArg6(ArgTermArg, ArgTermArg, ArgTermArg, ArgTermArg, ArgTermArg, ArgTermArg)},
	/*0x59*/ {entity.OpLoad, FlagExecutable, makeArg2(ArgNameString, ArgTarget)},
	/*0x5a*/ {entity.OpStall, FlagExecutable, makeArg1(ArgTermArg)},
	/*0x5b*/ {entity.OpSleep, FlagExecutable, makeArg1(ArgTermArg)},
	/*0x5c*/ {entity.OpAcquire, FlagExecutable, makeArg2(ArgSuperName, ArgWordData)},
	/*0x5d*/ {entity.OpSignal, FlagExecutable, makeArg1(ArgSuperName)},
	/*0x5e*/ {entity.OpWait, FlagExecutable, makeArg2(ArgSuperName, ArgTermArg)},
	/*0x5f*/ {entity.OpReset, FlagExecutable, makeArg1(ArgSuperName)},
	/*0x60*/ {entity.OpRelease, FlagExecutable, makeArg1(ArgSuperName)},
	/*0x61*/ {entity.OpFromBCD, FlagExecutable, makeArg2(ArgTermArg, ArgTarget)},
	/*0x62*/ {entity.OpToBCD, FlagExecutable, makeArg2(ArgTermArg, ArgTarget)},
	/*0x63*/ {entity.OpUnload, FlagExecutable, makeArg1(ArgSuperName)},
	/*0x64*/ {entity.OpRevision, FlagConstant | FlagExecutable, makeArg0()},
	/*0x65*/ {entity.OpDebug, FlagExecutable, makeArg0()},
	/*0x66*/ {entity.OpFatal, FlagExecutable, makeArg3(ArgByteData, ArgDWordData, ArgTermArg)},
	/*0x67*/ {entity.OpTimer, FlagExecutable, makeArg0()},
	/*0x68*/ {entity.OpOpRegion, FlagNamed, makeArg4(ArgNameString, ArgByteData, ArgTermArg, ArgTermArg)},
	/*0x69*/ {entity.OpField, FlagCreate | FlagHasPkgLen, makeArg3(ArgNameString, ArgByteData, ArgFieldList)},
	/*0x6a*/ {entity.OpDevice, FlagNamed | FlagScoped | FlagHasPkgLen, makeArg2(ArgNameString, ArgTermList)},
	/*0x6b*/ {entity.OpProcessor, FlagNamed | FlagScoped | FlagHasPkgLen, makeArg5(ArgNameString, ArgByteData, ArgDWordData, ArgByteData, ArgTermList)},
	/*0x6c*/ {entity.OpPowerRes, FlagNamed | FlagScoped | FlagHasPkgLen, makeArg4(ArgNameString, ArgByteData, ArgWordData, ArgTermList)},
	/*0x6d*/ {entity.OpThermalZone, FlagNamed | FlagScoped | FlagHasPkgLen, makeArg2(ArgNameString, ArgTermList)},
	/*0x6e*/ {entity.OpIndexField, FlagCreate | FlagHasPkgLen, makeArg4(ArgNameString, ArgNameString, ArgByteData, ArgFieldList)},
	/*0x6f*/ {entity.OpBankField, FlagCreate | FlagHasPkgLen, makeArg5(ArgNameString, ArgNameString, ArgTermArg, ArgByteData, ArgFieldList)},
	/*0x70*/ {entity.OpDataRegion, FlagNamed, makeArg4(ArgNameString, ArgTermArg, ArgTermArg, ArgTermArg)},
	// Internal opcodes
	/*0x71*/ {entity.OpMethodCall, FlagExecutable, makeArg0()},
	/*0x72*/ {entity.OpNamePath, 0, makeArg0()},
	/*0x73*/ {entity.OpExecutingMethod, FlagScoped, makeArg1(ArgTermList)},
	/*0x74*/ {entity.OpDefinitionBlock, FlagScoped, makeArg1(ArgTermList)},
}

// internalOpcodeBase is the opcode table index of the first internal opcode.
const internalOpcodeBase = 0x71

// opcodeMap maps an AML opcode to an entry in the opcode table. Entries with
// the value 0xff indicate an invalid/unsupported opcode.
var opcodeMap = [256]uint8{
	/*              0     1     2     3     4     5     6     7*/
	/*0x00 - 0x07*/ 0x00, 0x01, 0xff, 0xff, 0xff, 0xff, 0x02, 0xff,
	/*0x08 - 0x0f*/ 0x03, 0xff, 0x04, 0x05, 0x06, 0x07, 0x08, 0xff,
	/*0x10 - 0x17*/ 0x09, 0x0a, 0x0b, 0x0c, 0x0d, 0x0e, 0xff, 0xff,
	/*0x18 - 0x1f*/ 0xff, 0xff, 0xff, 0xff, 0xff, 0xff, 0xff, 0xff,
	/*0x20 - 0x27*/ 0xff, 0xff, 0xff, 0xff, 0xff, 0xff, 0xff, 0xff,
	/*0x28 - 0x2f*/ 0xff, 0xff, 0xff, 0xff, 0xff, 0xff, 0xff, 0xff,
	/*0x30 - 0x37*/ 0xff, 0xff, 0xff, 0xff, 0xff, 0xff, 0xff, 0xff,
	/*0x38 - 0x3f*/ 0xff, 0xff, 0xff, 0xff, 0xff, 0xff, 0xff, 0xff,
	/*0x40 - 0x47*/ 0xff, 0xff, 0xff, 0xff, 0xff, 0xff, 0xff, 0xff,
	/*0x48 - 0x4f*/ 0xff, 0xff, 0xff, 0xff, 0xff, 0xff, 0xff, 0xff,
	/*0x50 - 0x57*/ 0xff, 0xff, 0xff, 0xff, 0xff, 0xff, 0xff, 0xff,
	/*0x58 - 0x5f*/ 0xff, 0xff, 0xff, 0xff, 0xff, 0xff, 0xff, 0xff,
	/*0x60 - 0x67*/ 0x0f, 0x10, 0x11, 0x12, 0x13, 0x14, 0x15, 0x16,
	/*0x68 - 0x6f*/ 0x17, 0x18, 0x19, 0x1a, 0x1b, 0x1c, 0x1d, 0xff,
	/*0x70 - 0x77*/ 0x1e, 0x1f, 0x20, 0x21, 0x22, 0x23, 0x24, 0x25,
	/*0x78 - 0x7f*/ 0x26, 0x27, 0x28, 0x29, 0x2a, 0x2b, 0x2c, 0x2d,
	/*0x80 - 0x87*/ 0x2e, 0x2f, 0x30, 0x31, 0x32, 0x33, 0x34, 0x35,
	/*0x88 - 0x8f*/ 0x36, 0x37, 0x38, 0x39, 0x3a, 0x3b, 0x3c, 0x3d,
	/*0x90 - 0x97*/ 0x3e, 0x3f, 0x40, 0x41, 0x42, 0x43, 0x44, 0x45,
	/*0x98 - 0x9f*/ 0x46, 0x47, 0xff, 0xff, 0x48, 0x49, 0x4a, 0x4b,
	/*0xa0 - 0xa7*/ 0x4c, 0x4d, 0x4e, 0x4f, 0x50, 0x51, 0xff, 0xff,
	/*0xa8 - 0xaf*/ 0xff, 0xff, 0xff, 0xff, 0xff, 0xff, 0xff, 0xff,
	/*0xb0 - 0xb7*/ 0xff, 0xff, 0xff, 0xff, 0xff, 0xff, 0xff, 0xff,
	/*0xb8 - 0xbf*/ 0xff, 0xff, 0xff, 0xff, 0xff, 0xff, 0xff, 0xff,
	/*0xc0 - 0xc7*/ 0xff, 0xff, 0xff, 0xff, 0xff, 0xff, 0xff, 0xff,
	/*0xc8 - 0xcf*/ 0xff, 0xff, 0xff, 0xff, 0x52, 0xff, 0xff, 0xff,
	/*0xd0 - 0xd7*/ 0xff, 0xff, 0xff, 0xff, 0xff, 0xff, 0xff, 0xff,
	/*0xd8 - 0xdf*/ 0xff, 0xff, 0xff, 0xff, 0xff, 0xff, 0xff, 0xff,
	/*0xe0 - 0xe7*/ 0xff, 0xff, 0xff, 0xff, 0xff, 0xff, 0xff, 0xff,
	/*0xe8 - 0xef*/ 0xff, 0xff, 0xff, 0xff, 0xff, 0xff, 0xff, 0xff,
	/*0xf0 - 0xf7*/ 0xff, 0xff, 0xff, 0xff, 0xff, 0xff, 0xff, 0xff,
	/*0xf8 - 0xff*/ 0xff, 0xff, 0xff, 0xff, 0xff, 0xff, 0xff, 0x53,
}

// extendedOpcodeMap maps an AML extended opcode (extOpPrefix + code) to an
// entry in the opcode table. Only the sparse ranges {0x01,0x02}, {0x12,0x13},
// {0x1f-0x2a}, {0x30-0x33} and {0x80-0x88} are defined.
var extendedOpcodeMap = [256]uint8{
	/*              0     1     2     3     4     5     6     7*/
	/*0x00 - 0x07*/ 0xff, 0x54, 0x55, 0xff, 0xff, 0xff, 0xff, 0xff,
	/*0x08 - 0x0f*/ 0xff, 0xff, 0xff, 0xff, 0xff, 0xff, 0xff, 0xff,
	/*0x10 - 0x17*/ 0xff, 0xff, 0x56, 0x57, 0xff, 0xff, 0xff, 0xff,
	/*0x18 - 0x1f*/ 0xff, 0xff, 0xff, 0xff, 0xff, 0xff, 0xff, 0x58,
	/*0x20 - 0x27*/ 0x59, 0x5a, 0x5b, 0x5c, 0x5d, 0x5e, 0x5f, 0x60,
	/*0x28 - 0x2f*/ 0x61, 0x62, 0x63, 0xff, 0xff, 0xff, 0xff, 0xff,
	/*0x30 - 0x37*/ 0x64, 0x65, 0x66, 0x67, 0xff, 0xff, 0xff, 0xff,
	/*0x38 - 0x3f*/ 0xff, 0xff, 0xff, 0xff, 0xff, 0xff, 0xff, 0xff,
	/*0x40 - 0x47*/ 0xff, 0xff, 0xff, 0xff, 0xff, 0xff, 0xff, 0xff,
	/*0x48 - 0x4f*/ 0xff, 0xff, 0xff, 0xff, 0xff, 0xff, 0xff, 0xff,
	/*0x50 - 0x57*/ 0xff, 0xff, 0xff, 0xff, 0xff, 0xff, 0xff, 0xff,
	/*0x58 - 0x5f*/ 0xff, 0xff, 0xff, 0xff, 0xff, 0xff, 0xff, 0xff,
	/*0x60 - 0x67*/ 0xff, 0xff, 0xff, 0xff, 0xff, 0xff, 0xff, 0xff,
	/*0x68 - 0x6f*/ 0xff, 0xff, 0xff, 0xff, 0xff, 0xff, 0xff, 0xff,
	/*0x70 - 0x77*/ 0xff, 0xff, 0xff, 0xff, 0xff, 0xff, 0xff, 0xff,
	/*0x78 - 0x7f*/ 0xff, 0xff, 0xff, 0xff, 0xff, 0xff, 0xff, 0xff,
	/*0x80 - 0x87*/ 0x68, 0x69, 0x6a, 0x6b, 0x6c, 0x6d, 0x6e, 0x6f,
	/*0x88 - 0x8f*/ 0x70, 0xff, 0xff, 0xff, 0xff, 0xff, 0xff, 0xff,
	/*0x90 - 0x97*/ 0xff, 0xff, 0xff, 0xff, 0xff, 0xff, 0xff, 0xff,
	/*0x98 - 0x9f*/ 0xff, 0xff, 0xff, 0xff, 0xff, 0xff, 0xff, 0xff,
	/*0xa0 - 0xa7*/ 0xff, 0xff, 0xff, 0xff, 0xff, 0xff, 0xff, 0xff,
	/*0xa8 - 0xaf*/ 0xff, 0xff, 0xff, 0xff, 0xff, 0xff, 0xff, 0xff,
	/*0xb0 - 0xb7*/ 0xff, 0xff, 0xff, 0xff, 0xff, 0xff, 0xff, 0xff,
	/*0xb8 - 0xbf*/ 0xff, 0xff, 0xff, 0xff, 0xff, 0xff, 0xff, 0xff,
	/*0xc0 - 0xc7*/ 0xff, 0xff, 0xff, 0xff, 0xff, 0xff, 0xff, 0xff,
	/*0xc8 - 0xcf*/ 0xff, 0xff, 0xff, 0xff, 0xff, 0xff, 0xff, 0xff,
	/*0xd0 - 0xd7*/ 0xff, 0xff, 0xff, 0xff, 0xff, 0xff, 0xff, 0xff,
	/*0xd8 - 0xdf*/ 0xff, 0xff, 0xff, 0xff, 0xff, 0xff, 0xff, 0xff,
	/*0xe0 - 0xe7*/ 0xff, 0xff, 0xff, 0xff, 0xff, 0xff, 0xff, 0xff,
	/*0xe8 - 0xef*/ 0xff, 0xff, 0xff, 0xff, 0xff, 0xff, 0xff, 0xff,
	/*0xf0 - 0xf7*/ 0xff, 0xff, 0xff, 0xff, 0xff, 0xff, 0xff, 0xff,
	/*0xf8 - 0xff*/ 0xff, 0xff, 0xff, 0xff, 0xff, 0xff, 0xff, 0xff,
}

// Lookup returns the OpcodeInfo entry for op or nil if op is not a known
// opcode.
func Lookup(op entity.AMLOpcode) *OpcodeInfo {
	var index uint8
	switch {
	case op <= 0xff:
		index = opcodeMap[op]
	case op < entity.OpMethodCall:
		index = extendedOpcodeMap[op-0xff]
	case op <= entity.OpDefinitionBlock:
		index = uint8(internalOpcodeBase + op - entity.OpMethodCall)
	default:
		index = badOpcode
	}

	if index == badOpcode {
		return nil
	}
	return &opcodeTable[index]
}
