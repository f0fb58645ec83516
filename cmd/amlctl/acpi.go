package main

import (
	"amlkit/device/acpi"
	"amlkit/device/acpi/aml/entity"
	"amlkit/device/acpi/table"
	"encoding/hex"
	"errors"
	"flag"
	"fmt"
	"io"
	"sort"
	"strconv"
	"strings"
)

func newFlagSet(name string, e *env) *flag.FlagSet {
	fs := flag.NewFlagSet(name, flag.ContinueOnError)
	fs.SetOutput(e.stderr)
	return fs
}

func parseFlags(fs *flag.FlagSet, args []string) error {
	if err := fs.Parse(args); err != nil {
		return fmt.Errorf("%w: %s", errUsage, err)
	}
	return nil
}

// tableResolver returns the configured tables or, if cached is set, the
// contents of the table cache.
func (e *env) tableResolver(cached bool) (table.Resolver, error) {
	if !cached {
		return e.cfg.resolver()
	}

	s, err := e.openStore()
	if err != nil {
		return nil, err
	}
	defer s.Close()

	r, kerr := s.Resolver()
	if kerr != nil {
		return nil, kerr
	}
	return r, nil
}

// loadDriver loads every definition block into a new interpreter. Load
// progress goes to stderr.
func (e *env) loadDriver(cached bool) (*acpi.Driver, error) {
	r, err := e.tableResolver(cached)
	if err != nil {
		return nil, err
	}
	vmCfg, err := e.cfg.vmConfig(e.stderr, e.stderr)
	if err != nil {
		return nil, err
	}

	drv := acpi.NewDriver(r, vmCfg)
	if kerr := drv.DriverInit(e.stderr); kerr != nil {
		return nil, kerr
	}
	return drv, nil
}

func runTables(e *env, args []string) error {
	fs := newFlagSet("tables", e)
	cached := fs.Bool("cached", false, "list the tables of the cache")
	if err := parseFlags(fs, args); err != nil {
		return err
	}

	r, err := e.tableResolver(*cached)
	if err != nil {
		return err
	}

	names := r.TableNames()
	sort.Strings(names)
	fmt.Fprintf(e.stdout, "%-8s %-4s %8s %3s %-6s %-8s %s\n", "NAME", "SIG", "LENGTH", "REV", "OEM", "TABLE", "STATUS")
	for _, name := range names {
		data := r.LookupTable(name)
		h, kerr := table.ParseHeader(data)
		if kerr != nil {
			fmt.Fprintf(e.stdout, "%-8s %s\n", name, kerr.Message)
			continue
		}

		status := "ok"
		if _, kerr := table.Validate(data); kerr != nil {
			status = kerr.Message
		}
		fmt.Fprintf(e.stdout, "%-8s %-4s %8d %3d %-6s %-8s %s\n",
			name, h.SignatureString(), h.Length, h.Revision,
			strings.TrimRight(string(h.OEMID[:]), " \x00"), h.OEMTableIDString(), status)
	}
	return nil
}

func runDump(e *env, args []string) error {
	fs := newFlagSet("dump", e)
	cached := fs.Bool("cached", false, "load the tables of the cache")
	tree := fs.Bool("tree", isTerminal(e.stdout), "draw the namespace as a tree")
	if err := parseFlags(fs, args); err != nil {
		return err
	}

	drv, err := e.loadDriver(*cached)
	if err != nil {
		return err
	}

	ns := drv.VM().Namespace()
	if *tree {
		entity.PrettyPrint(e.stdout, ns.Root())
	} else {
		ns.Visit(func(_ int, obj *entity.Object) bool {
			if !obj.IsRoot() {
				fmt.Fprintf(e.stdout, "%s\t%s\n", obj.Path(), obj.Type)
			}
			return true
		})
	}

	stats := ns.Stats()
	types := make([]entity.ObjectType, 0, len(stats.ByType))
	for typ := range stats.ByType {
		types = append(types, typ)
	}
	sort.Slice(types, func(i, j int) bool { return types[i] < types[j] })

	fmt.Fprintf(e.stderr, "%d objects:", stats.Total)
	for _, typ := range types {
		fmt.Fprintf(e.stderr, " %s=%d", typ, stats.ByType[typ])
	}
	fmt.Fprintln(e.stderr)
	return nil
}

var resultTypes = map[string]entity.ObjectType{
	"any":     entity.TypeAny,
	"integer": entity.TypeInteger,
	"string":  entity.TypeString,
	"buffer":  entity.TypeBuffer,
}

func runEval(e *env, args []string) error {
	fs := newFlagSet("eval", e)
	cached := fs.Bool("cached", false, "load the tables of the cache")
	want := fs.String("type", "any", "convert the result to integer, string or buffer")
	if err := parseFlags(fs, args); err != nil {
		return err
	}
	if fs.NArg() == 0 {
		return fmt.Errorf("%w: missing object path", errUsage)
	}
	typ, ok := resultTypes[*want]
	if !ok {
		return fmt.Errorf("%w: unknown result type %q", errUsage, *want)
	}

	var methodArgs []*entity.Object
	for _, arg := range fs.Args()[1:] {
		obj, err := parseArg(arg)
		if err != nil {
			return fmt.Errorf("%w: %s", errUsage, err)
		}
		methodArgs = append(methodArgs, obj)
	}

	drv, err := e.loadDriver(*cached)
	if err != nil {
		return err
	}

	res, verr := drv.VM().Evaluate(fs.Arg(0), typ, methodArgs...)
	if verr != nil {
		fmt.Fprint(e.stderr, verr.StackTrace())
		return verr
	}
	writeValue(e.stdout, res)
	fmt.Fprintln(e.stdout)
	return nil
}

// parseArg converts a command line argument into a method argument.
// Numbers become integers, "buf:" prefixes hex encoded buffers and anything
// else is a string; a "str:" prefix forces a string.
func parseArg(arg string) (*entity.Object, error) {
	switch {
	case strings.HasPrefix(arg, "str:"):
		return entity.NewString(arg[4:]), nil
	case strings.HasPrefix(arg, "buf:"):
		data, err := hex.DecodeString(arg[4:])
		if err != nil {
			return nil, fmt.Errorf("bad buffer %q: %s", arg, err)
		}
		return entity.NewBuffer(data), nil
	}

	if v, err := strconv.ParseUint(arg, 0, 64); err == nil {
		return entity.NewInteger(v), nil
	} else if errors.Is(err, strconv.ErrRange) {
		return nil, fmt.Errorf("integer %q out of range", arg)
	}
	return entity.NewString(arg), nil
}

func writeValue(w io.Writer, obj *entity.Object) {
	switch obj.Type {
	case entity.TypeInteger:
		fmt.Fprintf(w, "0x%x", obj.Int)
	case entity.TypeString:
		fmt.Fprintf(w, "%q", obj.Bytes)
	case entity.TypeBuffer:
		fmt.Fprintf(w, "{% x}", obj.Bytes)
	case entity.TypePackage:
		fmt.Fprint(w, "{")
		for i, el := range obj.Elements {
			if i > 0 {
				fmt.Fprint(w, ", ")
			}
			if el == nil {
				fmt.Fprint(w, "<uninitialized>")
				continue
			}
			writeValue(w, el)
		}
		fmt.Fprint(w, "}")
	default:
		if obj.Linked() {
			fmt.Fprintf(w, "[%s %s]", obj.Type, obj.Path())
			return
		}
		fmt.Fprintf(w, "[%s]", obj.Type)
	}
}
