package vm

import (
	"amlkit/device/acpi/aml/entity"
	"amlkit/device/acpi/aml/parser"
	"amlkit/device/acpi/table"
	"amlkit/kernel"
	"amlkit/kernel/kfmt"
)

// Bits of the value returned by _STA.
const (
	staPresent    = 1 << 0
	staFunctional = 1 << 3
)

// LoadDefinitionBlock executes the DSDT or SSDT in data, which must start
// with a standard ACPI header, and initializes the devices it declares. The
// returned DdbHandle identifies the objects created by the block and can be
// passed to UnloadDefinitionBlock.
//
// Declarations that fail to execute are logged and skipped; errors in the
// table header or the AML encoding abort the load and remove every object
// the block created.
func (vm *VM) LoadDefinitionBlock(data []byte) (*entity.Object, *Error) {
	vm.mu.Lock()
	defer vm.mu.Unlock()

	return vm.loadBlock(data)
}

// UnloadDefinitionBlock removes every object created by the definition block
// identified by handle, in reverse creation order.
func (vm *VM) UnloadDefinitionBlock(handle *entity.Object) *Error {
	vm.mu.Lock()
	defer vm.mu.Unlock()

	if err := vm.unloadBlock(handle); err != nil {
		return newError(err)
	}
	return nil
}

func (vm *VM) loadBlock(data []byte) (*entity.Object, *Error) {
	h, kerr := table.Validate(data)
	if kerr != nil {
		return nil, newError(kerr)
	}

	handle := entity.New(entity.TypeDdbHandle)
	handle.Ddb.TableName = h.SignatureString()
	handle.Ddb.Revision = h.Revision

	ctx := vm.newContext()
	ctx.loading = true
	ctx.is32Bit = h.IntegerWidth() == 32
	ctx.blockTracker = &handle.Ddb.Created
	ctx.dec.Reset(handle.Ddb.TableName, data[table.HeaderSize:h.Length], 0)

	block := parser.NewStatement(entity.OpDefinitionBlock, 0)
	block.Scratch[0] = uint64(h.Length) - table.HeaderSize
	block.Entered = true
	if kerr = ctx.push(block); kerr != nil {
		return nil, newError(kerr)
	}

	if err := ctx.run(); err != nil {
		_ = vm.ns.Teardown(&handle.Ddb.Created)
		return nil, err
	}

	handle.AddRef()
	vm.handles = append(vm.handles, handle)

	vm.initDevices(handle)
	return handle, nil
}

func (vm *VM) unloadBlock(handle *entity.Object) *kernel.Error {
	if handle == nil || handle.Type != entity.TypeDdbHandle {
		return errNotDdbHandle
	}

	index := -1
	for i, h := range vm.handles {
		if h == handle {
			index = i
			break
		}
	}
	if index == -1 {
		return errUnknownDdbHandle.WithDetail(handle.Ddb.TableName)
	}

	vm.handles = append(vm.handles[:index], vm.handles[index+1:]...)
	err := vm.ns.Teardown(&handle.Ddb.Created)
	_ = handle.Release()
	return err
}

// initDevices runs the _INI method of the devices created by a definition
// block. Devices are visited in creation order so parents are initialized
// before their children. The subtree of a device whose _STA reports it as
// neither present nor functional is skipped. Failures are logged.
func (vm *VM) initDevices(handle *entity.Object) {
	created := handle.Ddb.Created.Objects()
	skipped := make(map[*entity.Object]bool)

	if sb := vm.ns.Root().Child("_SB_"); sb != nil {
		if ini := sb.Child("_INI"); ini != nil && ini.Tracker() == &handle.Ddb.Created {
			vm.runInit(ini)
		}
	}

	for _, obj := range created {
		switch obj.Type {
		case entity.TypeDevice, entity.TypeProcessor, entity.TypeThermalZone:
		default:
			continue
		}
		if !obj.Linked() || skipped[obj.Parent()] {
			skipped[obj] = true
			continue
		}

		sta := uint64(staPresent | staFunctional)
		if staObj := obj.Child("_STA"); staObj != nil {
			res, err := vm.executeMethod(staObj, nil, entity.TypeInteger)
			if err != nil {
				kfmt.Fprintf(vm.errWriter, "%s._STA: %s\n", obj.Path(), err.Error())
				skipped[obj] = true
				continue
			}
			sta = res.Int
		}

		if sta&staPresent == 0 {
			if sta&staFunctional == 0 {
				skipped[obj] = true
			}
			continue
		}

		if ini := obj.Child("_INI"); ini != nil {
			vm.runInit(ini)
		}
	}
}

func (vm *VM) runInit(ini *entity.Object) {
	if ini.Type != entity.TypeMethod {
		return
	}
	if _, err := vm.executeMethod(ini, nil, entity.TypeAny); err != nil {
		kfmt.Fprintf(vm.errWriter, "%s: %s\n%s", ini.Path(), err.Error(), err.StackTrace())
	}
}
