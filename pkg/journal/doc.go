// Package journal records the outcome of every streaming session.
//
// A Record holds identifiers, the terminal state, the end reason, the error
// kind and the chunk counters. It never holds message content.
//
// # Components
//
//   - Store: MemoryStore (bounded ring) or SQLiteStore (modernc.org/sqlite by
//     default, github.com/mattn/go-sqlite3 with driver "sqlite3")
//   - Recorder: a session.Observer that writes records from a background
//     worker and drops them when its buffer is full
//   - Retention: cron-scheduled pruning of records past journal.retention.max_age
//
// # Usage
//
//	store, err := journal.Open(cfg.Journal)
//	if err != nil {
//	    return err
//	}
//	defer store.Close()
//
//	rec := journal.NewRecorder(store, cfg.Journal.BufferSize)
//	defer rec.Close()
//
//	opts := session.Options{Observer: session.Observers(collector, rec)}
package journal
