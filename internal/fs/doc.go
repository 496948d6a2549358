// Package fs abstracts the file system used by the local blob store, so that
// tests can inject I/O failures.
//
//   - [LocalFS]: production implementation on top of package os
//   - [FaultyFS]: wrapper that fails writes, syncs, renames or removes of
//     files whose name contains a pattern
//
// Production code uses fs.Default:
//
//	f, err := fs.Default.OpenFile(path, os.O_RDWR|os.O_CREATE, 0o644)
//
// Tests inject a FaultyFS:
//
//	ffs := fs.NewFaultyFS(nil)
//	ffs.AddRule("section-", fs.Fault{FailOnSync: true})
//
// Operations take no context.Context: local syscalls cannot be interrupted.
package fs
