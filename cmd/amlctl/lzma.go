package main

import (
	"amlkit/compress/lzma"
	"fmt"
	"io"
	"os"
	"strings"
)

const lzmaExt = ".lzma"

// openInput opens path for reading; "-" selects stdin. It returns the input
// size or -1 if it is unknown.
func (e *env) openInput(path string) (io.ReadCloser, int64, error) {
	if path == "-" {
		return io.NopCloser(e.stdin), -1, nil
	}
	f, err := os.Open(path)
	if err != nil {
		return nil, 0, err
	}
	fi, err := f.Stat()
	if err != nil || !fi.Mode().IsRegular() {
		return f, -1, nil
	}
	return f, fi.Size(), nil
}

// createOutput creates path for writing; "-" selects stdout.
func (e *env) createOutput(path string) (io.WriteCloser, error) {
	if path == "-" {
		return nopWriteCloser{e.stdout}, nil
	}
	return os.Create(path)
}

type nopWriteCloser struct{ io.Writer }

func (nopWriteCloser) Close() error { return nil }

// progressFn reports compression progress on stderr when it is a terminal.
func (e *env) progressFn() func(in, out int64) bool {
	if !isTerminal(e.stderr) {
		return nil
	}
	return func(in, out int64) bool {
		fmt.Fprintf(e.stderr, "\r%d -> %d bytes", in, out)
		return true
	}
}

func runCompress(e *env, args []string) error {
	fs := newFlagSet("compress", e)
	out := fs.String("o", "", "output file; defaults to the input with "+lzmaExt+" appended, or stdout")
	footer := fs.Bool("footer", e.cfg.LZMA.Footer, "append the size and checksum footer")
	if err := parseFlags(fs, args); err != nil {
		return err
	}
	if fs.NArg() != 1 {
		return fmt.Errorf("%w: expected one input file", errUsage)
	}

	in := fs.Arg(0)
	if *out == "" {
		*out = "-"
		if in != "-" {
			*out = in + lzmaExt
		}
	}

	opts, err := e.cfg.lzmaOptions()
	if err != nil {
		return err
	}
	opts.Progress = e.progressFn()

	r, size, err := e.openInput(in)
	if err != nil {
		return err
	}
	defer r.Close()

	w, err := e.createOutput(*out)
	if err != nil {
		return err
	}

	zw, err := lzma.NewWriter(w, lzma.WriterOptions{Options: opts, Size: size, Footer: *footer})
	if err != nil {
		w.Close()
		return err
	}
	if _, err := io.Copy(zw, r); err != nil {
		zw.Close()
		w.Close()
		return err
	}
	if err := zw.Close(); err != nil {
		w.Close()
		return err
	}
	if opts.Progress != nil {
		fmt.Fprintln(e.stderr)
	}
	return w.Close()
}

func runDecompress(e *env, args []string) error {
	fs := newFlagSet("decompress", e)
	out := fs.String("o", "", "output file; defaults to the input without "+lzmaExt+", or stdout")
	if err := parseFlags(fs, args); err != nil {
		return err
	}
	if fs.NArg() != 1 {
		return fmt.Errorf("%w: expected one input file", errUsage)
	}

	in := fs.Arg(0)
	if *out == "" {
		*out = "-"
		if strings.HasSuffix(in, lzmaExt) && len(in) > len(lzmaExt) {
			*out = strings.TrimSuffix(in, lzmaExt)
		}
	}

	r, _, err := e.openInput(in)
	if err != nil {
		return err
	}
	defer r.Close()

	zr, err := lzma.NewReader(r)
	if err != nil {
		return err
	}

	w, err := e.createOutput(*out)
	if err != nil {
		return err
	}
	if _, err := io.Copy(w, zr); err != nil {
		w.Close()
		return err
	}
	return w.Close()
}
