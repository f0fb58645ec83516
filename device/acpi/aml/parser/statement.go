package parser

import "amlkit/device/acpi/aml/entity"

// MaxArgs is the largest number of args a statement can take. Method
// invocations take up to 7 args.
const MaxArgs = 7

// FieldElement describes a named entry of a Field, IndexField or BankField
// field list together with the access rules that were active when it was
// declared.
type FieldElement struct {
	Name         string
	BitOffset    uint32
	BitLength    uint32
	AccessType   entity.FieldAccessType
	AccessAttrib entity.FieldAccessAttrib
	AccessLength uint8

	// Connection is nil, an UnresolvedName or a Buffer holding a resource
	// descriptor.
	Connection *entity.Object
}

// Statement is a decoded AML construct together with the args that have
// been collected for it so far.
type Statement struct {
	Op   entity.AMLOpcode
	Info *OpcodeInfo

	// Start is the offset of the first opcode byte.
	Start uint32

	Args       [MaxArgs]*entity.Object
	ArgsNeeded uint8
	ArgsHave   uint8

	// Scratch[0] holds the absolute end offset of opcodes that carry a
	// PkgLength. For Method it holds the body offset in Scratch[1]; the
	// interpreter uses Scratch[1] for opcode-specific bookkeeping.
	Scratch [2]uint64

	// Result receives the value produced by the statement.
	Result *entity.Object

	// SavedScope is the scope to restore when a scoped statement ends.
	SavedScope *entity.Object

	// Path is the decoded NameString of OpNamePath statements.
	Path entity.Path

	// Fields lists the elements of a decoded field list.
	Fields []FieldElement

	// Method is the invoked method for OpMethodCall statements.
	Method *entity.Object

	// Elements collects the evaluated package elements.
	Elements []*entity.Object

	// ArgCtx is the type of the parent arg that this statement
	// produces.
	ArgCtx ArgType

	// Counter is available to the interpreter for per-statement counts
	// such as loop iterations.
	Counter uint64

	// Entered is set once the interpreter started processing the
	// statement body.
	Entered bool
}

// NewStatement returns a statement for op. It panics if op is unknown.
func NewStatement(op entity.AMLOpcode, start uint32) *Statement {
	info := Lookup(op)
	if info == nil {
		panic("parser: unknown opcode " + op.String())
	}
	return &Statement{Op: op, Info: info, Start: start, ArgsNeeded: info.ArgCount()}
}

// NeedsArgs returns true while the statement is missing args.
func (st *Statement) NeedsArgs() bool { return st.ArgsHave < st.ArgsNeeded }

// NextArgType returns the type of the next arg the statement expects.
func (st *Statement) NextArgType() ArgType {
	if !st.NeedsArgs() {
		return ArgNone
	}
	if st.Op == entity.OpMethodCall {
		return ArgTermArg
	}
	return st.Info.ArgType(st.ArgsHave)
}

// AddArg stores obj as the next arg.
func (st *Statement) AddArg(obj *entity.Object) {
	st.Args[st.ArgsHave] = obj
	st.ArgsHave++
}

// HasEnd returns true if the statement knows its end offset.
func (st *Statement) HasEnd() bool {
	return st.Info.Flags.Is(FlagHasPkgLen) || st.Op == entity.OpExecutingMethod || st.Op == entity.OpDefinitionBlock
}

// End returns the offset just past the statement.
func (st *Statement) End() uint32 { return uint32(st.Scratch[0]) }

// PathArg returns the path held by the UnresolvedName arg at index.
func (st *Statement) PathArg(index int) entity.Path {
	if obj := st.Args[index]; obj != nil && obj.Type == entity.TypeUnresolvedName {
		return obj.Unresolved.Path
	}
	return entity.Path{}
}

// IntArg returns the integer value of the arg at index.
func (st *Statement) IntArg(index int) uint64 {
	if obj := st.Args[index]; obj != nil {
		return obj.Int
	}
	return 0
}
