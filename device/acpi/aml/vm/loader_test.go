package vm

import (
	"amlkit/device/acpi/aml/entity"
	"amlkit/device/acpi/aml/parser"
	"amlkit/device/acpi/table"
	"strings"
	"testing"
)

func (env *testEnv) find(path string) *entity.Object {
	return env.vm.Namespace().Find(nil, entity.MustParsePath(path), false)
}

func TestLoadRecovery(t *testing.T) {
	env := newTestEnv(t, Config{})
	env.load(t,
		parser.NameObj("AAA_", parser.Int(1)),
		parser.NameObj("AAA_", parser.Int(2)),
		parser.Scope(`\NONE`, parser.NameObj("LOST", parser.Int(1))),
		parser.Device("DEV0",
			parser.NameObj("BAD_", parser.Expr(entity.OpAdd, parser.Str(""), parser.Int(1), parser.Int(0))),
			parser.NameObj("GOOD", parser.Int(4)),
		),
		parser.NameObj("BBB_", parser.Int(3)),
	)

	specs := []struct {
		path string
		exp  uint64
	}{
		{`\AAA_`, 1},
		{`\DEV0.GOOD`, 4},
		{`\BBB_`, 3},
	}

	for specIndex, spec := range specs {
		obj := env.find(spec.path)
		if obj == nil || obj.Int != spec.exp {
			t.Errorf("[spec %d] expected %s to be %d", specIndex, spec.path, spec.exp)
		}
	}

	for _, path := range []string{`\NONE.LOST`, `\DEV0.BAD_`} {
		if env.find(path) != nil {
			t.Errorf("expected %s to be skipped", path)
		}
	}

	if log := env.log.String(); !strings.Contains(log, "DSDT") {
		t.Errorf("expected the skipped declarations to be logged; got %q", log)
	}
}

func TestLoadErrors(t *testing.T) {
	t.Run("invalid header", func(t *testing.T) {
		env := newTestEnv(t, Config{})

		data := table.Build("DSDT", 2, "AMLKIT", parser.NameObj("X", parser.Int(1)))
		data[9]++

		if _, err := env.vm.LoadDefinitionBlock(data); err == nil || !table.IsChecksumMismatch(err.Err) {
			t.Fatalf("expected a checksum error; got %v", err)
		}
	})

	t.Run("truncated aml", func(t *testing.T) {
		env := newTestEnv(t, Config{})

		data := table.Build("DSDT", 2, "AMLKIT", parser.Seq(
			parser.NameObj("KEEP", parser.Int(1)),
			parser.Op(entity.OpName),
		))

		_, err := env.vm.LoadDefinitionBlock(data)
		if err == nil || !parser.IsDecodeError(err.Err) {
			t.Fatalf("expected a decode error; got %v", err)
		}
		if env.find(`\KEEP`) != nil {
			t.Fatal("expected the objects of a failed load to be removed")
		}
		if len(env.vm.Handles()) != 0 {
			t.Fatal("expected no handle for a failed load")
		}
	})
}

func TestIntegerWidth(t *testing.T) {
	env := newTestEnv(t, Config{})

	for _, spec := range []struct {
		sig      string
		revision uint8
		method   string
	}{
		{"DSDT", 1, "ON32"},
		{"SSDT", 2, "ON64"},
	} {
		data := table.Build(spec.sig, spec.revision, "AMLKIT", parser.Method(spec.method, 0, parser.Return(parser.Ones())))
		if _, err := env.vm.LoadDefinitionBlock(data); err != nil {
			t.Fatal(err)
		}
	}

	if got := env.eval(t, `\ON32`); got.Int != 0xffffffff {
		t.Errorf("expected Ones to be 32 bits wide in a revision 1 table; got 0x%x", got.Int)
	}
	if got := env.eval(t, `\ON64`); got.Int != ^uint64(0) {
		t.Errorf("expected Ones to be 64 bits wide in a revision 2 table; got 0x%x", got.Int)
	}
	if got := len(env.vm.Handles()); got != 2 {
		t.Errorf("expected 2 loaded blocks; got %d", got)
	}
}

func TestUnloadDefinitionBlock(t *testing.T) {
	env := newTestEnv(t, Config{})
	env.load(t, parser.NameObj("BASE", parser.Int(1)))

	before := env.vm.Namespace().Stats()

	data := table.Build("SSDT", 2, "EXTRA", parser.Seq(
		parser.Scope(`\_SB`,
			parser.Device("DEV0",
				parser.NameObj("VAL0", parser.Int(7)),
				parser.OpRegion("REG0", entity.RegionSpaceSystemMemory, parser.Int(0), parser.Int(1)),
				parser.Field("REG0", 1, parser.NamedField("FLD0", 8)),
			),
		),
		parser.Alias(`\BASE`, `\ALS0`),
	))

	handle, err := env.vm.LoadDefinitionBlock(data)
	if err != nil {
		t.Fatal(err)
	}
	if handle.Type != entity.TypeDdbHandle || handle.Ddb.TableName != "SSDT" {
		t.Fatalf("unexpected handle %v", handle)
	}
	if env.find(`\_SB.DEV0.VAL0`) == nil || env.find(`\ALS0`) == nil {
		t.Fatal("expected the block objects to be attached")
	}

	if err = env.vm.UnloadDefinitionBlock(handle); err != nil {
		t.Fatal(err)
	}

	for _, path := range []string{`\_SB.DEV0`, `\_SB.DEV0.FLD0`, `\ALS0`} {
		if env.find(path) != nil {
			t.Errorf("expected %s to be removed", path)
		}
	}
	if after := env.vm.Namespace().Stats(); after.Total != before.Total {
		t.Errorf("expected %d objects after unload; got %d", before.Total, after.Total)
	}
	if base := env.find(`\BASE`); base == nil || base.Destroyed() {
		t.Error("expected the alias target to survive the unload")
	}

	if err = env.vm.UnloadDefinitionBlock(handle); err == nil || err.Err.Root() != errUnknownDdbHandle {
		t.Fatalf("expected errUnknownDdbHandle; got %v", err)
	}
	if err = env.vm.UnloadDefinitionBlock(entity.NewInteger(1)); err == nil || err.Err.Root() != errNotDdbHandle {
		t.Fatalf("expected errNotDdbHandle; got %v", err)
	}
}

func TestLoadOpcode(t *testing.T) {
	ssdt := table.Build("SSDT", 2, "DYNAMIC", parser.NameObj(`\LDED`, parser.Int(5)))

	env := newTestEnv(t, Config{})
	env.load(t,
		parser.NameObj("TBL_", parser.Buffer(parser.Int(uint64(len(ssdt))), ssdt...)),
		parser.Method("LDUL", 0,
			parser.Expr(entity.OpLoad, parser.Name("TBL_"), parser.Local(0)),
			parser.Store(parser.Name(`\LDED`), parser.Local(1)),
			parser.Expr(entity.OpUnload, parser.Local(0)),
			parser.Return(parser.Local(1)),
		),
		parser.Method("LOAD", 0,
			parser.Expr(entity.OpLoad, parser.Name("TBL_"), parser.Local(0)),
		),
	)

	if got := env.eval(t, `\LDUL`); got.Int != 5 {
		t.Fatalf("expected the loaded object to hold 5; got %d", got.Int)
	}
	if env.find(`\LDED`) != nil {
		t.Fatal("expected Unload to remove the loaded objects")
	}
	if got := len(env.vm.Handles()); got != 1 {
		t.Fatalf("expected only the DSDT to remain loaded; got %d handles", got)
	}

	// Objects created by Load outlive the method that loaded them.
	env.eval(t, `\LOAD`)
	if env.find(`\LDED`) == nil {
		t.Fatal("expected the loaded objects to persist after the method returns")
	}
}

func TestLoadOpcodeFromRegion(t *testing.T) {
	ssdt := table.Build("SSDT", 2, "REGION", parser.NameObj(`\FRMR`, parser.Int(9)))

	env := newTestEnv(t, Config{})
	env.mem.WriteAt(ssdt, 0x8000)
	env.load(t,
		parser.OpRegion("TREG", entity.RegionSpaceSystemMemory, parser.Int(0x8000), parser.Int(uint64(len(ssdt)))),
		parser.Method("LOAD", 0, parser.Expr(entity.OpLoad, parser.Name("TREG"), parser.Int(0))),
	)

	env.eval(t, `\LOAD`)
	if obj := env.find(`\FRMR`); obj == nil || obj.Int != 9 {
		t.Fatal("expected the table stored in the region to be loaded")
	}
}

func TestDeviceInitialization(t *testing.T) {
	incCount := parser.Expr(entity.OpIncrement, parser.Name(`\CNT_`))

	env := newTestEnv(t, Config{})
	env.load(t,
		parser.NameObj("INIT", parser.Int(0)),
		parser.NameObj("CNT_", parser.Int(0)),
		parser.Scope(`\_SB`,
			parser.Method("_INI", 0, incCount),
		),
		parser.Device("DEV1",
			parser.NameObj("_STA", parser.Int(0x0f)),
			parser.Method("_INI", 0, parser.Store(parser.Int(1), parser.Name(`\INIT`))),
			parser.Device("CHLD", parser.Method("_INI", 0, incCount)),
		),
		// Absent and not functional: the whole subtree is skipped.
		parser.Device("DEV2",
			parser.NameObj("_STA", parser.Int(0)),
			parser.Method("_INI", 0, parser.Store(parser.Int(2), parser.Name(`\INIT`))),
			parser.Device("CHLD", parser.Method("_INI", 0, incCount)),
		),
		// Absent but functional: children are still initialized.
		parser.Device("DEV3",
			parser.Method("_STA", 0, parser.Return(parser.Int(0x08))),
			parser.Method("_INI", 0, parser.Store(parser.Int(3), parser.Name(`\INIT`))),
			parser.Device("CHLD", parser.Method("_INI", 0, incCount)),
		),
		// _INI failures are logged and do not stop initialization.
		parser.Device("DEV4",
			parser.Method("_INI", 0, parser.Expr(entity.OpDivide, parser.Int(1), parser.Int(0), parser.Int(0), parser.Int(0))),
		),
	)

	if got := env.find(`\INIT`).Int; got != 1 {
		t.Errorf("expected INIT to be 1; got %d", got)
	}
	if got := env.find(`\CNT_`).Int; got != 3 {
		t.Errorf("expected 3 _INI increments; got %d", got)
	}
	if !strings.Contains(env.log.String(), `\DEV4._INI`) {
		t.Errorf("expected the failing _INI to be logged; got %q", env.log.String())
	}
}
