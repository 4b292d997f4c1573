// Package warehouse provides read access to the MariaDB wiki replicas and
// bulk staging into the tool database.
//
// Replica wraps one replica connection (per-project, central, or meta) and
// exposes the domain queries of the audit pipeline: page and sitelink
// snapshots streamed in bounded chunks, move/delete log history, and the
// central trust signals of acting users. ToolDB mirrors snapshot chunks
// into named staging tables via LOAD DATA LOCAL INFILE.
//
// All queries are read-only except the staging loads. Connections are
// opened per component and closed by the owner; Replica and ToolDB are
// safe for use from a single goroutine each.
package warehouse
