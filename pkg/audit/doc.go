// Package audit records security-relevant events such as a second factor
// being enabled, disabled or failing verification.
//
// A Logger stamps each event with an ID, time and whatever request details
// the configured context extractors find, strips sensitive metadata, then
// hands the event to a Storage. Storage implementations include
// MemoryStorage (tests, local development) and the OpenSearch indexer in
// pkg/opensearch.
//
// Audit emission must never block or fail the operation being audited. Wrap a
// BatchStorage in an AsyncWriter to get a Store call that only enqueues: a
// background worker batches events and flushes them on size or timeout, and a
// full buffer drops the event with ErrBufferFull instead of blocking.
//
//	sink := audit.NewMemoryStorage()
//	writer := audit.NewAsyncWriter(sink, audit.AsyncOptions{})
//	defer writer.Close(ctx)
//
//	log := audit.NewLogger(writer, audit.WithRequestIDExtractor(requestIDFromCtx))
//	_ = log.Log(ctx, "TWO_FACTOR_ENABLED", audit.WithAccount(accountID))
package audit
