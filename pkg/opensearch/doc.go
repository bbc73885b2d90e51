// Package opensearch connects to an OpenSearch cluster and provides
// AuditIndexer, an audit.BatchStorage that writes two-factor audit events
// with the _bulk API.
//
//	client, err := opensearch.New(ctx, cfg)
//	if err != nil {
//		return err
//	}
//	indexer := opensearch.NewAuditIndexer(client, cfg.AuditIndex)
//	writer := audit.NewAsyncWriter(indexer, audit.AsyncOptions{})
package opensearch
