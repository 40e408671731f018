// Package storage provides the object storage client used by the object-backed
// sink store. It wraps the Minio S3 client behind a narrow interface so tests
// can substitute a mock, and configures strict connection timeouts so a dead
// endpoint fails fast instead of hanging a sync run.
package storage
