// Package sink reconciles provider rows into the unified table. The upsert
// protocol lives in Sink; the table itself lives behind the Store interface
// with an object-backed CSV implementation and a database implementation.
package sink
