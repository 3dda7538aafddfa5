// Package folderops exposes the named workspace mutations as a service over
// the sync engine. Each operation applies optimistically through the shared
// state manager, queues durably in the operation log, and nudges the
// processor; a mutation that cannot queue is rolled back before the caller
// sees the error, so the visible tree never diverges from what will
// eventually reach the remote.
package folderops
