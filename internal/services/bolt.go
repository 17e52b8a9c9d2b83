package services

import (
	"context"
	"encoding/json"
	"fmt"
	"slices"
	"time"

	"github.com/MegaGrindStone/mpp-web-ui/internal/models"
	"github.com/google/uuid"
	bolt "go.etcd.io/bbolt"
)

// BoltJournal keeps a diagnostics record of every finished stream session in a BoltDB file.
// It never stores the transcript, which lives only in memory.
type BoltJournal struct {
	db *bolt.DB
}

var recordsBucket = []byte("records")

const openTimeout = time.Second

// NewBoltJournal opens (or creates with 0600 permissions) the journal at path and makes sure
// the records bucket exists. Only one process can hold the file; others fail after a second.
func NewBoltJournal(path string) (BoltJournal, error) {
	db, err := bolt.Open(path, 0600, &bolt.Options{Timeout: openTimeout})
	if err != nil {
		return BoltJournal{}, fmt.Errorf("failed to open bolt db: %w", err)
	}

	err = db.Update(func(tx *bolt.Tx) error {
		_, err := tx.CreateBucketIfNotExists(recordsBucket)
		return err
	})
	if err != nil {
		db.Close()
		return BoltJournal{}, fmt.Errorf("failed to create records bucket: %w", err)
	}

	return BoltJournal{db: db}, nil
}

// Record implements stream.Recorder. Keys are prefixed with the bucket sequence so a cursor
// walks them in insertion order.
func (b BoltJournal) Record(_ context.Context, rec models.StreamRecord) error {
	return b.db.Update(func(tx *bolt.Tx) error {
		bucket := tx.Bucket(recordsBucket)
		if bucket == nil {
			return fmt.Errorf("bucket %s not found", recordsBucket)
		}

		seq, err := bucket.NextSequence()
		if err != nil {
			return fmt.Errorf("failed to get next sequence: %w", err)
		}
		if rec.ID == "" {
			rec.ID = uuid.New().String()
		}

		v, err := json.Marshal(rec)
		if err != nil {
			return fmt.Errorf("failed to marshal record: %w", err)
		}

		return bucket.Put(recordKey(seq, rec.ID), v)
	})
}

// Records returns up to limit of the most recent records, newest first. A limit of zero or
// less returns everything.
func (b BoltJournal) Records(_ context.Context, limit int) ([]models.StreamRecord, error) {
	var records []models.StreamRecord
	err := b.db.View(func(tx *bolt.Tx) error {
		bucket := tx.Bucket(recordsBucket)
		if bucket == nil {
			return nil
		}

		c := bucket.Cursor()
		for k, v := c.Last(); k != nil; k, v = c.Prev() {
			if limit > 0 && len(records) >= limit {
				break
			}
			var rec models.StreamRecord
			if err := json.Unmarshal(v, &rec); err != nil {
				return fmt.Errorf("failed to unmarshal record: %w", err)
			}
			records = append(records, rec)
		}
		return nil
	})
	if err != nil {
		return nil, err
	}
	return records, nil
}

// WidgetRecords returns the records of a single widget in the order they were written.
func (b BoltJournal) WidgetRecords(ctx context.Context, widgetID string) ([]models.StreamRecord, error) {
	all, err := b.Records(ctx, 0)
	if err != nil {
		return nil, err
	}
	var records []models.StreamRecord
	for _, rec := range all {
		if rec.WidgetID == widgetID {
			records = append(records, rec)
		}
	}
	slices.Reverse(records)
	return records, nil
}

// Close releases the database file.
func (b BoltJournal) Close() error {
	return b.db.Close()
}

func recordKey(seq uint64, id string) []byte {
	return []byte(fmt.Sprintf("%020d-%s", seq, id))
}
