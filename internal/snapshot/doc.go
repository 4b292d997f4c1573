// Package snapshot produces and caches the two per-project tables the
// audit compares: local pages with their locally recorded linked-item id,
// and centrally recorded sitelinks.
//
// Snapshots are streamed from the replicas in bounded chunks and written
// incrementally to per-project parquet cache files. Once a cache file
// exists it is reused unconditionally; only the process-wide reload flag
// forces a re-query. A failure mid-stream invalidates the whole file:
// callers retry the snapshot, never resume it.
//
// The package also hosts the differencer that partitions the two tables
// into the three defect classes of the audit.
package snapshot
