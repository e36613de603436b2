// Package persist writes layout patches back to storage in debounced batches.
//
// # Overview
//
// A drag produces a stream of gesture operations, each with a few patches.
// Writing every one of them would hammer the store with positions that are
// overwritten a few milliseconds later. The [Batcher] collects patches,
// keeps only the latest value of each field per node, and hands the
// coalesced batch to a [Store] once the canvas has been quiet for the
// debounce interval, or when [Batcher.Flush] is called.
//
// # Stores
//
//   - [MemoryStore] keeps the latest fields per node, for tests and previews
//   - [FileStore] applies batches onto a document file
//   - [MongoStore] applies batches to a MongoDB collection with one bulk write
//
// # Failure
//
// A batch whose store write fails with a retryable error is retried with
// backoff. If it still fails, its patches go back into the pending set under
// any newer values, so the next flush writes them again.
package persist
