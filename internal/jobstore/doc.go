// Package jobstore persists video generation jobs in SQLite.
//
// Each job is one row; every update is flushed before the call returns so a
// daemon restart never loses accepted work. The store serializes concurrent
// access through SQLite (WAL + busy timeout); each job has exactly one writer,
// its pipeline orchestrator.
package jobstore
