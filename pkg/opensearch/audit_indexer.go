package opensearch

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"

	"github.com/opensearch-project/opensearch-go/v2"
	"github.com/opensearch-project/opensearch-go/v2/opensearchapi"

	"github.com/dmitrymomot/twofactor/pkg/audit"
)

// AuditIndexer stores audit events as documents keyed by event ID, so a
// retried batch overwrites instead of duplicating.
type AuditIndexer struct {
	client *opensearch.Client
	index  string
}

// NewAuditIndexer writes events to index.
func NewAuditIndexer(client *opensearch.Client, index string) *AuditIndexer {
	if client == nil {
		panic("opensearch: client cannot be nil")
	}
	if index == "" {
		index = "two-factor-audit"
	}
	return &AuditIndexer{client: client, index: index}
}

type bulkAction struct {
	Index bulkMeta `json:"index"`
}

type bulkMeta struct {
	Index string `json:"_index"`
	ID    string `json:"_id,omitempty"`
}

type bulkResponse struct {
	Errors bool `json:"errors"`
	Items  []map[string]struct {
		Status int `json:"status"`
		Error  *struct {
			Type   string `json:"type"`
			Reason string `json:"reason"`
		} `json:"error,omitempty"`
	} `json:"items"`
}

// StoreBatch sends every event in one _bulk request.
func (i *AuditIndexer) StoreBatch(ctx context.Context, events []audit.Event) error {
	if len(events) == 0 {
		return nil
	}

	var body bytes.Buffer
	enc := json.NewEncoder(&body)
	for _, e := range events {
		if err := enc.Encode(bulkAction{Index: bulkMeta{Index: i.index, ID: e.ID}}); err != nil {
			return errors.Join(ErrBulkIndexFailed, err)
		}
		if err := enc.Encode(e); err != nil {
			return errors.Join(ErrBulkIndexFailed, err)
		}
	}

	res, err := opensearchapi.BulkRequest{Body: &body}.Do(ctx, i.client)
	if err != nil {
		return errors.Join(ErrBulkIndexFailed, audit.ErrStorageNotAvailable, err)
	}
	defer res.Body.Close()

	if res.IsError() {
		return errors.Join(ErrBulkIndexFailed, fmt.Errorf("status %s", res.Status()))
	}

	var br bulkResponse
	if err := json.NewDecoder(res.Body).Decode(&br); err != nil {
		return errors.Join(ErrBulkIndexFailed, err)
	}
	if !br.Errors {
		return nil
	}

	var failed int
	var first string
	for _, item := range br.Items {
		for _, r := range item {
			if r.Error != nil {
				failed++
				if first == "" {
					first = r.Error.Type + ": " + r.Error.Reason
				}
			}
		}
	}
	return fmt.Errorf("%w: %d of %d events rejected, first: %s", ErrBulkIndexFailed, failed, len(events), first)
}

// Store indexes a single event.
func (i *AuditIndexer) Store(ctx context.Context, event audit.Event) error {
	return i.StoreBatch(ctx, []audit.Event{event})
}
