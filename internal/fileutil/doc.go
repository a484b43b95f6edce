// Package fileutil provides directory traversal for extsort.
//
// Walk visits a source tree breadth-first using an explicit FIFO queue of
// pending directories, so tree depth never grows the call stack. Each
// regular file is handed to a Visitor exactly once; every directory is
// announced before its entries are read.
//
// # Failure Isolation
//
// A directory that cannot be enumerated (permission denied, removed while
// the walk is running, not a directory) is reported through
// Visitor.DirError and only that subtree is abandoned. Siblings already
// queued are still visited. Walk itself only fails on invalid options or a
// cancelled context.
//
// # Entry Classification
//
// Entries are classified from the directory listing without following
// links:
//   - directories are queued
//   - regular files are passed to Visitor.VisitFile
//   - symbolic links are resolved with os.Stat and treated as their
//     target; broken links are skipped. There is no cycle detection.
//     WalkOptions.SkipSymlinks skips every link instead.
//   - devices, sockets and pipes are skipped
//
// # Exclusion
//
// WalkOptions.Exclude holds doublestar patterns (e.g. "**/node_modules",
// "*.tmp"). A pattern matches if it matches either the slash-separated
// path relative to the walk root or the entry's base name.
// WalkOptions.SkipDirs lists absolute directories that are never entered,
// used to keep a destination nested inside the source out of the walk.
//
// # Survey
//
// Survey performs a parallel, read-only pass with fastwalk to count files
// and bucket them without copying. Its ordering is nondeterministic and it
// is intended for progress totals and the stats command, not for dispatch.
//
// Example:
//
//	err := fileutil.Walk(ctx, "/data/inbox", fileutil.WalkOptions{
//	    Exclude: []string{"**/.git"},
//	}, visitor)
package fileutil
