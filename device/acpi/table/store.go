package table

import (
	"amlkit/compress/lzma"
	"amlkit/kernel"
	"time"

	bolt "go.etcd.io/bbolt"
)

const bucketTables = "tables"

var (
	errStoreIO       = &kernel.Error{Module: "acpi_table", Message: "table store access failed", Kind: kernel.KindIoFailure}
	errStoreNotFound = &kernel.Error{Module: "acpi_table", Message: "table not found in store", Kind: kernel.KindNotFound}
	errStoreCorrupt  = &kernel.Error{Module: "acpi_table", Message: "stored table is corrupt", Kind: kernel.KindMalformedData}
)

// Store is a persistent cache of ACPI tables backed by a bbolt database.
// Tables are keyed by "<signature>/<OEM table id>" and kept compressed in
// the .lzma format with an integrity footer.
type Store struct {
	db   *bolt.DB
	opts lzma.Options
}

// StoreEntry describes a stored table.
type StoreEntry struct {
	Key            string
	Size           int
	CompressedSize int
}

// OpenStore opens or creates the store at path. Tables are compressed with
// opts.
func OpenStore(path string, opts lzma.Options) (*Store, *kernel.Error) {
	db, err := bolt.Open(path, 0644, &bolt.Options{Timeout: time.Second})
	if err != nil {
		return nil, errStoreIO.WithDetail(err.Error())
	}

	err = db.Update(func(tx *bolt.Tx) error {
		_, err := tx.CreateBucketIfNotExists([]byte(bucketTables))
		return err
	})
	if err != nil {
		db.Close()
		return nil, errStoreIO.WithDetail(err.Error())
	}

	return &Store{db: db, opts: opts}, nil
}

// Close releases the database.
func (s *Store) Close() *kernel.Error {
	if err := s.db.Close(); err != nil {
		return errStoreIO.WithDetail(err.Error())
	}
	return nil
}

// StoreKey returns the key a table is stored under.
func StoreKey(h *SDTHeader) string {
	return h.SignatureString() + "/" + h.OEMTableIDString()
}

// Put validates data and stores it, replacing any table with the same
// key. It returns the key.
func (s *Store) Put(data []byte) (string, *kernel.Error) {
	h, kerr := Validate(data)
	if kerr != nil {
		return "", kerr
	}

	packed, kerr := lzma.Compress(data[:h.Length], s.opts)
	if kerr != nil {
		return "", kerr
	}

	key := StoreKey(h)
	err := s.db.Update(func(tx *bolt.Tx) error {
		return tx.Bucket([]byte(bucketTables)).Put([]byte(key), packed)
	})
	if err != nil {
		return "", errStoreIO.WithDetail(err.Error())
	}
	return key, nil
}

// Get returns the table stored under key.
func (s *Store) Get(key string) ([]byte, *kernel.Error) {
	var packed []byte
	err := s.db.View(func(tx *bolt.Tx) error {
		if v := tx.Bucket([]byte(bucketTables)).Get([]byte(key)); v != nil {
			packed = append([]byte(nil), v...)
		}
		return nil
	})
	if err != nil {
		return nil, errStoreIO.WithDetail(err.Error())
	}
	if packed == nil {
		return nil, errStoreNotFound.WithDetail(key)
	}
	return unpackTable(key, packed)
}

func unpackTable(key string, packed []byte) ([]byte, *kernel.Error) {
	data, kerr := lzma.Decompress(packed)
	if kerr != nil {
		return nil, errStoreCorrupt.WithDetail(key + ": " + kerr.Error())
	}
	if _, kerr = Validate(data); kerr != nil {
		return nil, errStoreCorrupt.WithDetail(key + ": " + kerr.Error())
	}
	return data, nil
}

// Delete removes the table stored under key.
func (s *Store) Delete(key string) *kernel.Error {
	err := s.db.Update(func(tx *bolt.Tx) error {
		return tx.Bucket([]byte(bucketTables)).Delete([]byte(key))
	})
	if err != nil {
		return errStoreIO.WithDetail(err.Error())
	}
	return nil
}

// List describes every stored table in key order.
func (s *Store) List() ([]StoreEntry, *kernel.Error) {
	var entries []StoreEntry
	err := s.db.View(func(tx *bolt.Tx) error {
		return tx.Bucket([]byte(bucketTables)).ForEach(func(k, v []byte) error {
			e := StoreEntry{Key: string(k), CompressedSize: len(v), Size: -1}
			if h, err := lzma.ParseHeader(v); err == nil {
				e.Size = int(h.Size)
			}
			entries = append(entries, e)
			return nil
		})
	})
	if err != nil {
		return nil, errStoreIO.WithDetail(err.Error())
	}
	return entries, nil
}

// Import stores every table served by r and returns the number of tables
// stored.
func (s *Store) Import(r Resolver) (int, *kernel.Error) {
	count := 0
	for _, name := range r.TableNames() {
		if _, err := s.Put(r.LookupTable(name)); err != nil {
			return count, err.WithDetail(name)
		}
		count++
	}
	return count, nil
}

// Resolver returns a resolver serving every stored table. Repeated
// signatures are named like NewMapResolver does, in key order.
func (s *Store) Resolver() (*MapResolver, *kernel.Error) {
	var tables [][]byte
	err := s.db.View(func(tx *bolt.Tx) error {
		return tx.Bucket([]byte(bucketTables)).ForEach(func(k, v []byte) error {
			data, kerr := unpackTable(string(k), v)
			if kerr != nil {
				return kerr
			}
			tables = append(tables, data)
			return nil
		})
	})
	if kerr, ok := err.(*kernel.Error); ok {
		return nil, kerr
	}
	if err != nil {
		return nil, errStoreIO.WithDetail(err.Error())
	}
	return NewMapResolver(tables...), nil
}
