package vm

import (
	"amlkit/device/acpi/aml/entity"
	"amlkit/device/acpi/aml/parser"
	"amlkit/kernel"
)

// numOpcodes covers the regular, extended and internal opcode values.
const numOpcodes = 0x200

// opHandler is a function that implements an AML opcode.
type opHandler func(*execContext, *parser.Statement) *kernel.Error

// populateJumpTable assigns the functions that implement the various AML
// opcodes to the VM's jump table.
func (vm *VM) populateJumpTable() {
	for i := 0; i < len(vm.jumpTable); i++ {
		vm.jumpTable[i] = opExecNotImplemented
	}

	// Data and name opcodes
	vm.jumpTable[entity.OpZero] = vmOpZero
	vm.jumpTable[entity.OpOne] = vmOpConst
	vm.jumpTable[entity.OpOnes] = vmOpConst
	vm.jumpTable[entity.OpBytePrefix] = vmOpConst
	vm.jumpTable[entity.OpWordPrefix] = vmOpConst
	vm.jumpTable[entity.OpDwordPrefix] = vmOpConst
	vm.jumpTable[entity.OpQwordPrefix] = vmOpConst
	vm.jumpTable[entity.OpStringPrefix] = vmOpConst
	vm.jumpTable[entity.OpRevision] = vmOpConst
	vm.jumpTable[entity.OpBuffer] = vmOpBuffer
	vm.jumpTable[entity.OpPackage] = vmOpPackage
	vm.jumpTable[entity.OpVarPackage] = vmOpPackage
	vm.jumpTable[entity.OpDebug] = vmOpDebug
	vm.jumpTable[entity.OpTimer] = vmOpTimer
	vm.jumpTable[entity.OpNamePath] = vmOpNamePath
	for op := entity.OpLocal0; op <= entity.OpLocal7; op++ {
		vm.jumpTable[op] = vmOpLocalArg
	}
	for op := entity.OpArg0; op <= entity.OpArg6; op++ {
		vm.jumpTable[op] = vmOpLocalArg
	}

	// Namespace modifier and named object opcodes
	vm.jumpTable[entity.OpName] = vmOpName
	vm.jumpTable[entity.OpAlias] = vmOpAlias
	vm.jumpTable[entity.OpScope] = vmOpEndScope
	vm.jumpTable[entity.OpDevice] = vmOpEndScope
	vm.jumpTable[entity.OpProcessor] = vmOpEndScope
	vm.jumpTable[entity.OpPowerRes] = vmOpEndScope
	vm.jumpTable[entity.OpThermalZone] = vmOpEndScope
	vm.jumpTable[entity.OpMethod] = vmOpMethod
	vm.jumpTable[entity.OpMutex] = vmOpMutex
	vm.jumpTable[entity.OpEvent] = vmOpEvent
	vm.jumpTable[entity.OpOpRegion] = vmOpOpRegion
	vm.jumpTable[entity.OpField] = vmOpField
	vm.jumpTable[entity.OpIndexField] = vmOpField
	vm.jumpTable[entity.OpBankField] = vmOpField
	vm.jumpTable[entity.OpCreateBitField] = vmOpCreateFixedField
	vm.jumpTable[entity.OpCreateByteField] = vmOpCreateFixedField
	vm.jumpTable[entity.OpCreateWordField] = vmOpCreateFixedField
	vm.jumpTable[entity.OpCreateDWordField] = vmOpCreateFixedField
	vm.jumpTable[entity.OpCreateQWordField] = vmOpCreateFixedField
	vm.jumpTable[entity.OpCreateField] = vmOpCreateField
	vm.jumpTable[entity.OpExternal] = vmOpExternal
	vm.jumpTable[entity.OpDataRegion] = vmOpUnsupported

	// Control-flow opcodes
	vm.jumpTable[entity.OpIf] = vmOpIf
	vm.jumpTable[entity.OpElse] = vmOpElse
	vm.jumpTable[entity.OpWhile] = vmOpWhile
	vm.jumpTable[entity.OpBreak] = vmOpBreak
	vm.jumpTable[entity.OpContinue] = vmOpContinue
	vm.jumpTable[entity.OpNoop] = vmOpNoop
	vm.jumpTable[entity.OpBreakPoint] = vmOpNoop
	vm.jumpTable[entity.OpReturn] = vmOpReturn
	vm.jumpTable[entity.OpFatal] = vmOpFatal
	vm.jumpTable[entity.OpMethodCall] = vmOpMethodCall
	vm.jumpTable[entity.OpExecutingMethod] = vmOpExecutingMethod
	vm.jumpTable[entity.OpDefinitionBlock] = vmOpDefinitionBlock

	// ALU opcodes
	vm.jumpTable[entity.OpAdd] = vmOpAdd
	vm.jumpTable[entity.OpSubtract] = vmOpSubtract
	vm.jumpTable[entity.OpIncrement] = vmOpIncrement
	vm.jumpTable[entity.OpDecrement] = vmOpDecrement
	vm.jumpTable[entity.OpMultiply] = vmOpMultiply
	vm.jumpTable[entity.OpDivide] = vmOpDivide
	vm.jumpTable[entity.OpMod] = vmOpMod

	vm.jumpTable[entity.OpShiftLeft] = vmOpShiftLeft
	vm.jumpTable[entity.OpShiftRight] = vmOpShiftRight
	vm.jumpTable[entity.OpAnd] = vmOpBitwiseAnd
	vm.jumpTable[entity.OpOr] = vmOpBitwiseOr
	vm.jumpTable[entity.OpNand] = vmOpBitwiseNand
	vm.jumpTable[entity.OpNor] = vmOpBitwiseNor
	vm.jumpTable[entity.OpXor] = vmOpBitwiseXor
	vm.jumpTable[entity.OpNot] = vmOpBitwiseNot
	vm.jumpTable[entity.OpFindSetLeftBit] = vmOpFindSetLeftBit
	vm.jumpTable[entity.OpFindSetRightBit] = vmOpFindSetRightBit
	vm.jumpTable[entity.OpFromBCD] = vmOpFromBCD
	vm.jumpTable[entity.OpToBCD] = vmOpToBCD

	vm.jumpTable[entity.OpLnot] = vmOpLogicalNot
	vm.jumpTable[entity.OpLand] = vmOpLogicalAnd
	vm.jumpTable[entity.OpLor] = vmOpLogicalOr
	vm.jumpTable[entity.OpLEqual] = vmOpLogicalEqual
	vm.jumpTable[entity.OpLLess] = vmOpLogicalLess
	vm.jumpTable[entity.OpLGreater] = vmOpLogicalGreater

	// Store, reference and conversion opcodes
	vm.jumpTable[entity.OpStore] = vmOpStore
	vm.jumpTable[entity.OpCopyObject] = vmOpCopyObject
	vm.jumpTable[entity.OpRefOf] = vmOpRefOf
	vm.jumpTable[entity.OpCondRefOf] = vmOpCondRefOf
	vm.jumpTable[entity.OpDerefOf] = vmOpDerefOf
	vm.jumpTable[entity.OpIndex] = vmOpIndex
	vm.jumpTable[entity.OpSizeOf] = vmOpSizeOf
	vm.jumpTable[entity.OpObjectType] = vmOpObjectType
	vm.jumpTable[entity.OpMatch] = vmOpMatch
	vm.jumpTable[entity.OpMid] = vmOpMid
	vm.jumpTable[entity.OpConcat] = vmOpConcat
	vm.jumpTable[entity.OpConcatRes] = vmOpConcatRes
	vm.jumpTable[entity.OpToBuffer] = vmOpToBuffer
	vm.jumpTable[entity.OpToDecimalString] = vmOpToDecimalString
	vm.jumpTable[entity.OpToHexString] = vmOpToHexString
	vm.jumpTable[entity.OpToInteger] = vmOpToInteger
	vm.jumpTable[entity.OpToString] = vmOpToString

	// Synchronization and host opcodes
	vm.jumpTable[entity.OpAcquire] = vmOpAcquire
	vm.jumpTable[entity.OpRelease] = vmOpRelease
	vm.jumpTable[entity.OpWait] = vmOpWait
	vm.jumpTable[entity.OpSignal] = vmOpSignal
	vm.jumpTable[entity.OpReset] = vmOpReset
	vm.jumpTable[entity.OpSleep] = vmOpSleep
	vm.jumpTable[entity.OpStall] = vmOpStall
	vm.jumpTable[entity.OpNotify] = vmOpNotify

	// Table opcodes
	vm.jumpTable[entity.OpLoad] = vmOpLoad
	vm.jumpTable[entity.OpUnload] = vmOpUnload
	vm.jumpTable[entity.OpLoadTable] = vmOpUnsupported
}

// opExecNotImplemented is a placeholder handler that returns a non-implemented
// opcode error.
func opExecNotImplemented(_ *execContext, st *parser.Statement) *kernel.Error {
	return errNotImplemented.WithDetail(st.Op.String())
}

// vmOpUnsupported reports opcodes that are decoded but whose effect is not
// provided by this interpreter.
func vmOpUnsupported(_ *execContext, st *parser.Statement) *kernel.Error {
	return errUnsupported.WithDetail(st.Op.String())
}
