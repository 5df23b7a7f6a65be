// Package flat persists a vector index as a single checksummed file under
// a directory guarded by an advisory lock.
package flat

import (
	"bytes"
	"encoding/binary"
	"encoding/gob"
	"errors"
	"fmt"
	"hash/crc32"
	"io/fs"
	"os"
	"path/filepath"

	"github.com/gofrs/flock"

	"github.com/custodia-labs/medingest/internal/adapters/driven/vector"
	"github.com/custodia-labs/medingest/internal/core/domain"
	"github.com/custodia-labs/medingest/internal/core/ports/driven"
)

// Ensure Persister implements the interface.
var _ vector.Persister = (*Persister)(nil)

const (
	// IndexFile is the name of the index inside the directory.
	IndexFile = "index.mvec"

	// LockFile is the advisory lock guarding the directory.
	LockFile = ".lock"

	magic = "MEDVEC01"
)

// Persister saves snapshots to dir/index.mvec. The file is magic, a gob
// encoded snapshot, then a big-endian CRC32 of the snapshot bytes.
type Persister struct {
	dir  string
	lock *flock.Flock
}

// NewPersister creates dir if needed and takes its lock. Another process
// holding the lock yields domain.ErrStoreLocked.
func NewPersister(dir string) (*Persister, error) {
	if err := os.MkdirAll(dir, 0o700); err != nil {
		return nil, fmt.Errorf("create vector dir: %w", err)
	}
	lock := flock.New(filepath.Join(dir, LockFile))
	locked, err := lock.TryLock()
	if err != nil {
		return nil, fmt.Errorf("acquire vector lock: %w", err)
	}
	if !locked {
		return nil, fmt.Errorf("%w: %s", domain.ErrStoreLocked, dir)
	}
	return &Persister{dir: dir, lock: lock}, nil
}

// Open opens the flat vector store rooted at dir.
func Open(dir string, embedder driven.EmbeddingService, metric domain.Metric, opts ...vector.Option) (*vector.Store, error) {
	p, err := NewPersister(dir)
	if err != nil {
		return nil, err
	}
	s, err := vector.New(embedder, metric, append(opts, vector.WithPersister(p))...)
	if err != nil {
		_ = p.Close()
		return nil, err
	}
	return s, nil
}

// Path returns the index file path.
func (p *Persister) Path() string {
	return filepath.Join(p.dir, IndexFile)
}

// Load reads the snapshot. A missing file is an empty index; anything
// unreadable is domain.ErrVectorStoreCorruption.
func (p *Persister) Load() (*vector.Snapshot, error) {
	data, err := os.ReadFile(p.Path())
	if errors.Is(err, fs.ErrNotExist) {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("read vector index: %w", err)
	}

	if len(data) < len(magic)+4 || string(data[:len(magic)]) != magic {
		return nil, fmt.Errorf("%w: bad header in %s", domain.ErrVectorStoreCorruption, p.Path())
	}
	body := data[len(magic) : len(data)-4]
	want := binary.BigEndian.Uint32(data[len(data)-4:])
	if crc32.ChecksumIEEE(body) != want {
		return nil, fmt.Errorf("%w: checksum mismatch in %s", domain.ErrVectorStoreCorruption, p.Path())
	}

	var snap vector.Snapshot
	if err := gob.NewDecoder(bytes.NewReader(body)).Decode(&snap); err != nil {
		return nil, fmt.Errorf("%w: decode %s: %v", domain.ErrVectorStoreCorruption, p.Path(), err)
	}
	return &snap, nil
}

// Save writes the snapshot to a temp file in the same directory, syncs
// it, then renames it over the index.
func (p *Persister) Save(snap *vector.Snapshot) error {
	var body bytes.Buffer
	if err := gob.NewEncoder(&body).Encode(snap); err != nil {
		return fmt.Errorf("encode snapshot: %w", err)
	}
	var sum [4]byte
	binary.BigEndian.PutUint32(sum[:], crc32.ChecksumIEEE(body.Bytes()))

	tempFile, err := os.CreateTemp(p.dir, IndexFile+".tmp.*")
	if err != nil {
		return fmt.Errorf("create temp file: %w", err)
	}
	tempPath := tempFile.Name()
	defer func() {
		_ = tempFile.Close()
		_ = os.Remove(tempPath)
	}()

	for _, chunk := range [][]byte{[]byte(magic), body.Bytes(), sum[:]} {
		if _, err := tempFile.Write(chunk); err != nil {
			return fmt.Errorf("write temp file: %w", err)
		}
	}
	if err := tempFile.Sync(); err != nil {
		return fmt.Errorf("sync temp file: %w", err)
	}
	if err := tempFile.Close(); err != nil {
		return fmt.Errorf("close temp file: %w", err)
	}
	if err := os.Rename(tempPath, p.Path()); err != nil {
		return fmt.Errorf("replace vector index: %w", err)
	}

	// Persist the rename itself. Not supported everywhere, so best effort.
	if d, err := os.Open(p.dir); err == nil {
		_ = d.Sync()
		_ = d.Close()
	}
	return nil
}

// Close releases the directory lock.
func (p *Persister) Close() error {
	return p.lock.Unlock()
}
