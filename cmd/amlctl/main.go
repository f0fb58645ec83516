// Command amlctl inspects ACPI tables, runs their AML code in a user-space
// interpreter and compresses files in the .lzma format.
//
// Usage:
//
//	amlctl [-config file] <command> [arguments]
//
// The commands are:
//
//	tables                     list the tables of the configured source
//	dump                       load the definition blocks and print the namespace
//	eval <path> [args...]      evaluate a namespace object or method
//	compress [-o out] <file>   compress a file
//	decompress [-o out] <file> decompress a .lzma file
//	cache import|list|get|rm   manage the table cache
package main

import (
	"errors"
	"flag"
	"fmt"
	"io"
	"os"
)

var errUsage = errors.New("invalid usage")

// env holds the streams and the configuration shared by every command.
type env struct {
	stdin          io.Reader
	stdout, stderr io.Writer
	cfg            *config
}

type command struct {
	name    string
	summary string
	run     func(e *env, args []string) error
}

var commands []command

func init() {
	commands = []command{
		{"tables", "list the tables of the configured source", runTables},
		{"dump", "load the definition blocks and print the namespace", runDump},
		{"eval", "evaluate a namespace object or method", runEval},
		{"compress", "compress a file in the .lzma format", runCompress},
		{"decompress", "decompress a .lzma file", runDecompress},
		{"cache", "manage the table cache (import, list, get, rm)", runCache},
	}
}

func usage(w io.Writer, fs *flag.FlagSet) {
	fmt.Fprintf(w, "usage: amlctl [-config file] <command> [arguments]\n\nflags:\n")
	fs.SetOutput(w)
	fs.PrintDefaults()
	fmt.Fprintf(w, "\ncommands:\n")
	for _, c := range commands {
		fmt.Fprintf(w, "  %-11s %s\n", c.name, c.summary)
	}
}

// run executes the command line in args and returns the exit status.
func run(args []string, stdin io.Reader, stdout, stderr io.Writer) int {
	fs := flag.NewFlagSet("amlctl", flag.ContinueOnError)
	fs.SetOutput(io.Discard)
	configPath := fs.String("config", "", "path to the YAML host configuration")
	if err := fs.Parse(args); err != nil || fs.NArg() == 0 {
		usage(stderr, fs)
		return 2
	}

	cfg, err := loadConfig(*configPath)
	if err != nil {
		fmt.Fprintf(stderr, "[amlctl] error: %s\n", err)
		return 1
	}

	e := &env{stdin: stdin, stdout: stdout, stderr: stderr, cfg: cfg}
	name := fs.Arg(0)
	for _, c := range commands {
		if c.name != name {
			continue
		}
		switch err := c.run(e, fs.Args()[1:]); {
		case err == nil:
			return 0
		case errors.Is(err, errUsage):
			fmt.Fprintf(stderr, "[amlctl] %s: %s\n", name, err)
			return 2
		default:
			fmt.Fprintf(stderr, "[amlctl] %s: error: %s\n", name, err)
			return 1
		}
	}

	fmt.Fprintf(stderr, "[amlctl] unknown command %q\n", name)
	usage(stderr, fs)
	return 2
}

func main() {
	os.Exit(run(os.Args[1:], os.Stdin, os.Stdout, os.Stderr))
}
