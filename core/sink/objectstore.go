package sink

import (
	"bytes"
	"context"
	"encoding/csv"
	"fmt"
	"io"
	"sort"

	"github.com/minio/minio-go/v7"

	"health-sync/core/storage"
	"health-sync/feature/provider/models"
)

// ObjectStore keeps the whole unified table as a single CSV object. Reads
// load the object into memory; mutations stay in memory until SortByDate,
// which writes the object back once. That makes a reconciliation exactly one
// GET and one PUT.
type ObjectStore struct {
	client storage.Client
	bucket string
	object string

	loaded bool
	rows   [][]string
}

// NewObjectStore returns a store over one CSV object in the given bucket.
func NewObjectStore(client storage.Client, bucket, object string) *ObjectStore {
	return &ObjectStore{client: client, bucket: bucket, object: object}
}

func (s *ObjectStore) EnsureHeader(ctx context.Context) error {
	exists, err := s.client.BucketExists(ctx, s.bucket)
	if err != nil {
		return fmt.Errorf("check bucket %s: %w", s.bucket, err)
	}
	if !exists {
		if err := s.client.MakeBucket(ctx, s.bucket, minio.MakeBucketOptions{}); err != nil {
			return fmt.Errorf("create bucket %s: %w", s.bucket, err)
		}
	}

	_, err = s.client.StatObject(ctx, s.bucket, s.object, minio.StatObjectOptions{})
	if err == nil {
		return nil
	}
	if !objectAbsent(err) {
		// A transient stat failure must not be mistaken for an empty
		// table: writing the header here would overwrite live data.
		return fmt.Errorf("stat %s/%s: %w", s.bucket, s.object, err)
	}
	s.rows = nil
	s.loaded = true
	return s.flush(ctx)
}

// objectAbsent reports whether err means the object does not exist, as
// opposed to the store being unreachable.
func objectAbsent(err error) bool {
	resp := minio.ToErrorResponse(err)
	return resp.Code == "NoSuchKey" || resp.StatusCode == 404
}

func (s *ObjectStore) ReadRows(ctx context.Context) ([][]string, error) {
	if err := s.load(ctx); err != nil {
		return nil, err
	}
	out := make([][]string, len(s.rows))
	copy(out, s.rows)
	return out, nil
}

func (s *ObjectStore) UpdateRows(ctx context.Context, updates []RowUpdate) error {
	if err := s.load(ctx); err != nil {
		return err
	}
	for _, u := range updates {
		if u.Position < 0 || u.Position >= len(s.rows) {
			return fmt.Errorf("update position %d out of range (%d rows)", u.Position, len(s.rows))
		}
		s.rows[u.Position] = u.Row
	}
	return nil
}

func (s *ObjectStore) AppendRows(ctx context.Context, rows [][]string) error {
	if err := s.load(ctx); err != nil {
		return err
	}
	s.rows = append(s.rows, rows...)
	return nil
}

func (s *ObjectStore) SortByDate(ctx context.Context) error {
	if err := s.load(ctx); err != nil {
		return err
	}
	sort.SliceStable(s.rows, func(i, j int) bool {
		return s.rows[i][models.ColDate] < s.rows[j][models.ColDate]
	})
	return s.flush(ctx)
}

func (s *ObjectStore) load(ctx context.Context) error {
	if s.loaded {
		return nil
	}
	reader, err := s.client.GetObject(ctx, s.bucket, s.object, minio.GetObjectOptions{})
	if err != nil {
		return fmt.Errorf("get %s/%s: %w", s.bucket, s.object, err)
	}
	defer reader.Close()

	r := csv.NewReader(reader)
	r.FieldsPerRecord = -1

	var rows [][]string
	first := true
	for {
		record, err := r.Read()
		if err == io.EOF {
			break
		}
		if err != nil {
			return fmt.Errorf("parse %s/%s: %w", s.bucket, s.object, err)
		}
		if first {
			first = false
			continue
		}
		rows = append(rows, record)
	}

	s.rows = rows
	s.loaded = true
	return nil
}

func (s *ObjectStore) flush(ctx context.Context) error {
	var buf bytes.Buffer
	w := csv.NewWriter(&buf)
	if err := w.Write(models.Header()); err != nil {
		return fmt.Errorf("encode table: %w", err)
	}
	if err := w.WriteAll(s.rows); err != nil {
		return fmt.Errorf("encode table: %w", err)
	}

	_, err := s.client.PutObject(ctx, s.bucket, s.object,
		bytes.NewReader(buf.Bytes()), int64(buf.Len()),
		minio.PutObjectOptions{ContentType: "text/csv"})
	if err != nil {
		return fmt.Errorf("put %s/%s: %w", s.bucket, s.object, err)
	}
	return nil
}
