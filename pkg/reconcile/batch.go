package reconcile

import (
	"context"
	"log/slog"

	"github.com/Carlavier/ai-cfo-mvp/pkg/qbo"
)

// BatchCapacity is the ledger's ceiling on operations per batch request.
const BatchCapacity = 30

// ItemFault is a per-document failure inside an otherwise successful batch.
type ItemFault struct {
	BID     string
	Code    string
	Message string
}

// BatchOutcome summarizes a posting pass. Success is per-document, not
// per-run: faulted items and failed chunks are counted, never fatal.
type BatchOutcome struct {
	Submitted    int
	Posted       int
	Faulted      int
	FailedChunks int
	Faults       []ItemFault
}

// Poster submits posting documents to the ledger's batch endpoint.
type Poster struct {
	ledger LedgerAPI
	log    *slog.Logger
}

// NewPoster creates a batch poster.
func NewPoster(ledger LedgerAPI, log *slog.Logger) *Poster {
	if log == nil {
		log = slog.Default()
	}
	return &Poster{ledger: ledger, log: log}
}

// Post partitions docs into chunks of at most BatchCapacity and submits
// each chunk as one batch request. A transport failure kills only its own
// chunk; sibling chunks are still attempted. Cancellation is honored
// between chunks but never mid-submission, so a submitted batch always
// completes and cannot leave ambiguous partial state.
func (p *Poster) Post(ctx context.Context, docs []*PostingDocument) *BatchOutcome {
	outcome := &BatchOutcome{}

	for start := 0; start < len(docs); start += BatchCapacity {
		if err := ctx.Err(); err != nil {
			p.log.Warn("posting cancelled", "remaining", len(docs)-start)
			break
		}

		end := start + BatchCapacity
		if end > len(docs) {
			end = len(docs)
		}
		chunk := docs[start:end]

		items := make([]qbo.BatchItem, len(chunk))
		for i, doc := range chunk {
			items[i] = doc.BatchItem()
		}
		outcome.Submitted += len(items)

		resp, err := p.ledger.BatchCreate(context.WithoutCancel(ctx), items)
		if err != nil {
			outcome.FailedChunks++
			p.log.Error("batch submission failed", "size", len(items), "error", err)
			continue
		}

		for _, item := range resp.Items {
			if item.Faulted() {
				outcome.Faulted++
				outcome.Faults = append(outcome.Faults, ItemFault{
					BID:     item.BID,
					Code:    item.Fault.Code(),
					Message: faultMessage(item.Fault),
				})
				continue
			}
			outcome.Posted++
		}
	}

	if outcome.Faulted > 0 {
		p.log.Warn("batch completed with item faults",
			"faults", outcome.Faulted, "items", outcome.Submitted)
	}
	return outcome
}

func faultMessage(f *qbo.Fault) string {
	if f == nil || len(f.Errors) == 0 {
		return ""
	}
	return f.Errors[0].Message
}
