package main

import (
	"amlkit/device/acpi/table"
	"errors"
	"fmt"
)

func (e *env) openStore() (*table.Store, error) {
	if e.cfg.Store == "" {
		return nil, errors.New("no table cache configured")
	}
	opts, err := e.cfg.lzmaOptions()
	if err != nil {
		return nil, err
	}

	s, kerr := table.OpenStore(e.cfg.Store, opts)
	if kerr != nil {
		return nil, kerr
	}
	return s, nil
}

func runCache(e *env, args []string) error {
	if len(args) == 0 {
		return fmt.Errorf("%w: expected import, list, get or rm", errUsage)
	}

	fs := newFlagSet("cache "+args[0], e)
	out := fs.String("o", "-", "output file for get")
	if err := parseFlags(fs, args[1:]); err != nil {
		return err
	}

	var (
		needKey bool
		do      func(s *table.Store) error
	)
	switch args[0] {
	case "import":
		do = func(s *table.Store) error {
			r, err := e.cfg.resolver()
			if err != nil {
				return err
			}
			n, kerr := s.Import(r)
			if kerr != nil {
				return kerr
			}
			fmt.Fprintf(e.stderr, "imported %d tables into %s\n", n, e.cfg.Store)
			return nil
		}
	case "list":
		do = func(s *table.Store) error {
			entries, kerr := s.List()
			if kerr != nil {
				return kerr
			}
			fmt.Fprintf(e.stdout, "%-16s %8s %8s\n", "KEY", "SIZE", "STORED")
			for _, entry := range entries {
				fmt.Fprintf(e.stdout, "%-16s %8d %8d\n", entry.Key, entry.Size, entry.CompressedSize)
			}
			return nil
		}
	case "get":
		needKey = true
		do = func(s *table.Store) error {
			data, kerr := s.Get(fs.Arg(0))
			if kerr != nil {
				return kerr
			}
			w, err := e.createOutput(*out)
			if err != nil {
				return err
			}
			if _, err := w.Write(data); err != nil {
				w.Close()
				return err
			}
			return w.Close()
		}
	case "rm":
		needKey = true
		do = func(s *table.Store) error {
			if kerr := s.Delete(fs.Arg(0)); kerr != nil {
				return kerr
			}
			return nil
		}
	default:
		return fmt.Errorf("%w: unknown cache command %q", errUsage, args[0])
	}

	if needKey && fs.NArg() != 1 {
		return fmt.Errorf("%w: expected a table key such as DSDT/AMLKITDS", errUsage)
	}

	s, err := e.openStore()
	if err != nil {
		return err
	}
	if err := do(s); err != nil {
		s.Close()
		return err
	}
	if kerr := s.Close(); kerr != nil {
		return kerr
	}
	return nil
}
