package cmpl

import (
	"crypto/sha1"
	"database/sql"
	"fmt"

	"github.com/klauspost/compress/zstd"
	_ "github.com/mattn/go-sqlite3"
)

// Cache is a content-addressed store of solver solutions keyed by the run
// program and model data bytes. Identical models resolve without invoking
// the solver again, which matters because a single solve can take the full
// time limit. Solution files compress extremely well, so blobs are stored
// zstd compressed.
type Cache struct {
	db  *sql.DB
	enc *zstd.Encoder
	dec *zstd.Decoder
}

// OpenCache opens or creates the cache database at file.
func OpenCache(file string) (*Cache, error) {
	db, err := sql.Open("sqlite3", fmt.Sprintf("%s?_busy_timeout=5000", file))
	if err != nil {
		return nil, err
	}
	db.SetMaxOpenConns(10)

	if _, err = db.Exec("CREATE TABLE IF NOT EXISTS solution (key TEXT PRIMARY KEY NOT NULL, csv BLOB NOT NULL)"); err != nil {
		return nil, err
	}

	enc, err := zstd.NewWriter(nil,
		zstd.WithEncoderConcurrency(1),
		zstd.WithEncoderLevel(zstd.SpeedBetterCompression),
		zstd.WithLowerEncoderMem(true))
	if err != nil {
		return nil, err
	}
	dec, err := zstd.NewReader(nil,
		zstd.WithDecoderConcurrency(1),
		zstd.WithDecoderLowmem(true))
	if err != nil {
		return nil, err
	}

	return &Cache{
		db:  db,
		enc: enc,
		dec: dec,
	}, nil
}

// Get returns the stored solution for key, or nil when absent.
func (c *Cache) Get(key string) ([]byte, error) {
	var blob []byte
	switch err := c.db.QueryRow("SELECT csv FROM solution WHERE key = ?", key).Scan(&blob); err {
	case sql.ErrNoRows:
		return nil, nil
	case nil:
		return c.dec.DecodeAll(blob, nil)
	default:
		return nil, err
	}
}

// Put stores the solution for key, replacing any previous entry.
func (c *Cache) Put(key string, csv []byte) error {
	_, err := c.db.Exec("INSERT OR REPLACE INTO solution (key, csv) VALUES (?, ?)",
		key, c.enc.EncodeAll(csv, nil))
	return err
}

// Close releases the database and the compressor state.
func (c *Cache) Close() error {
	c.dec.Close()
	if err := c.enc.Close(); err != nil {
		c.db.Close()
		return err
	}
	return c.db.Close()
}

// solveKey derives the cache key for one solve from the exact bytes the
// solver will see.
func solveKey(program, data []byte) string {
	h := sha1.New()
	h.Write(program)
	h.Write([]byte{0})
	h.Write(data)
	return fmt.Sprintf("%X", h.Sum(nil))
}
