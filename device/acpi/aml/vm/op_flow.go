package vm

import (
	"amlkit/device/acpi/aml/parser"
	"amlkit/kernel"
	"amlkit/kernel/kfmt"
)

// Args: predicate, body
// The body has been executed so a following Else must be skipped.
func vmOpIf(ctx *execContext, _ *parser.Statement) *kernel.Error {
	ctx.lastIfResult = true
	return nil
}

// Args: body
func vmOpElse(_ *execContext, _ *parser.Statement) *kernel.Error {
	return nil
}

// Args: predicate, body
// Rewind to the predicate once the body completes.
func vmOpWhile(ctx *execContext, st *parser.Statement) *kernel.Error {
	if err := ctx.rewindLoop(st); err != nil {
		return err
	}
	ctx.ctrlFlow = ctrlFlowTypeLoop
	return nil
}

// Exit the innermost While loop.
func vmOpBreak(ctx *execContext, _ *parser.Statement) *kernel.Error {
	ctx.ctrlFlow = ctrlFlowTypeBreak
	return nil
}

// Jump to the predicate of the innermost While loop.
func vmOpContinue(ctx *execContext, _ *parser.Statement) *kernel.Error {
	ctx.ctrlFlow = ctrlFlowTypeContinue
	return nil
}

// Noop and BreakPoint do nothing.
func vmOpNoop(_ *execContext, _ *parser.Statement) *kernel.Error {
	return nil
}

// Args: type, code, arg
// Hand the fatal condition to the host and abort execution.
func vmOpFatal(ctx *execContext, st *parser.Statement) *kernel.Error {
	arg, err := ctx.toInteger(st.Args[2])
	if err != nil {
		return err
	}

	typ, code := uint8(st.IntArg(0)), uint32(st.IntArg(1))
	ctx.vm.host.Fatal(typ, code, arg)
	return errFatalOpcode.WithDetail(kfmt.Sprintf("type: 0x%x, code: 0x%x, arg: 0x%x", typ, code, arg))
}

// The body of a definition block has been executed.
func vmOpDefinitionBlock(_ *execContext, _ *parser.Statement) *kernel.Error {
	return nil
}
