package plugin

import (
	"bytes"
	"encoding/binary"
	"encoding/gob"
	"fmt"
	"log/slog"
	"sync"
	"time"

	"github.com/dgraph-io/badger/v4"
	"github.com/dgraph-io/badger/v4/options"
	Ht "github.com/zain-sajid/haptics/types"
)

// BadgerRecorder keeps playback history in BadgerDB.
// Records are buffered and written in batches.
type BadgerRecorder struct {
	MU        sync.Mutex
	DB        *badger.DB
	BatchSize int
	Buffer    []*Ht.PlaybackRecord
}

// NewBadgerRecorder opens the database at path,
// an empty path keeps history in memory only.
func NewBadgerRecorder(path string, batchSize int) (*BadgerRecorder, error) {
	if batchSize < 1 {
		batchSize = 1
	}

	opts := badger.DefaultOptions(path).
		WithCompression(options.ZSTD).
		WithNumVersionsToKeep(1).
		WithLogger(nil)
	if path == "" {
		opts = opts.WithInMemory(true)
	}

	db, err := badger.Open(opts)
	if err != nil {
		slog.Error("BadgerRecorder failed to open database", slog.Any("error", err))
		return nil, fmt.Errorf("database error: %w", err)
	}

	slog.Info("BadgerRecorder opened",
		slog.String("path", path),
		slog.Int("batchSize", batchSize))

	return &BadgerRecorder{
		DB:        db,
		BatchSize: batchSize,
		Buffer:    make([]*Ht.PlaybackRecord, 0, batchSize),
	}, nil
}

// WriteRecord queues up a batch of records,
// when batchsize is reached, it writes the batch
func (br *BadgerRecorder) WriteRecord(r *Ht.PlaybackRecord) error {
	br.MU.Lock()
	defer br.MU.Unlock()

	br.Buffer = append(br.Buffer, r)
	if len(br.Buffer) >= br.BatchSize {
		return br.flushLocked()
	}
	return nil
}

// WriteBatch performs the key/value creation to be stored
// and actually calls BadgerDB to write the data
func (br *BadgerRecorder) WriteBatch(rs []*Ht.PlaybackRecord) error {
	wb := br.DB.NewWriteBatch()
	defer wb.Cancel()

	for _, r := range rs {
		v, err := RecordEncode(r)
		if err != nil {
			return fmt.Errorf("record encode error: %w", err)
		}
		if err := wb.Set(RecordKey(r), v); err != nil {
			slog.Error("BadgerRecorder failed to set key in batch",
				slog.Any("error", err),
				slog.Time("startedAt", r.StartedAt),
				slog.String("pattern", r.Pattern))
			return fmt.Errorf("write batch error: %w", err)
		}
	}

	if err := wb.Flush(); err != nil {
		slog.Error("BadgerRecorder failed to flush batch", slog.Any("error", err))
		return fmt.Errorf("batch flush error: %w", err)
	}

	return nil
}

// Flush is the public method that blocks,
// it sends data to WriteBatch and then clears the buffer
func (br *BadgerRecorder) Flush() error {
	br.MU.Lock()
	defer br.MU.Unlock()

	if len(br.Buffer) == 0 {
		return nil
	}
	return br.flushLocked()
}

// flushLocked mimics Flush without locking
func (br *BadgerRecorder) flushLocked() error {
	err := br.WriteBatch(br.Buffer)
	br.Buffer = br.Buffer[:0]
	return err
}

// Close returns a Flush error but still attempts to close
func (br *BadgerRecorder) Close() error {
	flushErr := br.Flush()
	closeErr := br.DB.Close()

	if flushErr != nil {
		slog.Error("BadgerRecorder failed to flush on close", slog.Any("error", flushErr))
		return fmt.Errorf("flush failed, close may have failed: %w", flushErr)
	}

	if closeErr != nil {
		slog.Error("BadgerRecorder failed to close database", slog.Any("error", closeErr))
		return fmt.Errorf("close failed: %w", closeErr)
	}

	slog.Info("BadgerRecorder closed successfully")
	return nil
}

func (br *BadgerRecorder) Type() string { return "BadgerDB" }

// RecordKey creates a composite key
// start timestamp + first eight bytes of the record ID
func RecordKey(r *Ht.PlaybackRecord) []byte {
	key := make([]byte, 8+8)

	// Using positive BigEndian integer to convert timestamp
	// so keys can be sorted chronologically by BadgerDB
	binary.BigEndian.PutUint64(key[0:8], uint64(r.StartedAt.UnixNano()))

	// Two records started in the same nanosecond still differ
	copy(key[8:], []byte(r.ID))

	return key
}

// RecordEncode serializes the record for data storage
func RecordEncode(r *Ht.PlaybackRecord) ([]byte, error) {
	var buf bytes.Buffer
	if err := gob.NewEncoder(&buf).Encode(r); err != nil {
		return nil, err
	}
	return buf.Bytes(), nil
}

// RecordDecode deserializes the record data
func RecordDecode(data []byte) (*Ht.PlaybackRecord, error) {
	var r Ht.PlaybackRecord
	err := gob.NewDecoder(bytes.NewBuffer(data)).Decode(&r)
	return &r, err
}

// QueryRange retrieves records started within [start, end).
// Keys are time ordered so iteration seeks straight to /start/.
func (br *BadgerRecorder) QueryRange(start, end time.Time) ([]*Ht.PlaybackRecord, error) {
	var records []*Ht.PlaybackRecord

	seek := make([]byte, 8)
	binary.BigEndian.PutUint64(seek, uint64(start.UnixNano()))

	err := br.DB.View(func(txn *badger.Txn) error {
		it := txn.NewIterator(badger.DefaultIteratorOptions)
		defer it.Close()

		for it.Seek(seek); it.Valid(); it.Next() {
			item := it.Item()
			if binary.BigEndian.Uint64(item.Key()[0:8]) >= uint64(end.UnixNano()) {
				break
			}

			err := item.Value(func(val []byte) error {
				r, err := RecordDecode(val)
				if err != nil {
					slog.Error("BadgerRecorder failed to decode record", slog.Any("error", err))
					return fmt.Errorf("record decode error: %w", err)
				}
				records = append(records, r)
				return nil
			})
			if err != nil {
				return fmt.Errorf("item data error: %w", err)
			}
		}
		return nil
	})

	return records, err
}
