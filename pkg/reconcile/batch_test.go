package reconcile

import (
	"context"
	"errors"
	"fmt"
	"testing"

	"github.com/Carlavier/ai-cfo-mvp/pkg/qbo"
)

func makeDocs(n int) []*PostingDocument {
	docs := make([]*PostingDocument, n)
	for i := range docs {
		docs[i] = &PostingDocument{
			Type:     qbo.DocJournalEntry,
			SourceID: fmt.Sprintf("txn-%d", i),
			Journal:  &qbo.JournalEntry{PrivateNote: Marker(fmt.Sprintf("txn-%d", i))},
		}
	}
	return docs
}

func TestPostChunksAtCapacity(t *testing.T) {
	ledger := newFakeLedger()
	poster := NewPoster(ledger, nil)

	outcome := poster.Post(context.Background(), makeDocs(73))

	if len(ledger.batches) != 3 {
		t.Fatalf("batches = %d, want 3", len(ledger.batches))
	}
	wantSizes := []int{30, 30, 13}
	for i, batch := range ledger.batches {
		if len(batch) != wantSizes[i] {
			t.Errorf("batch %d size = %d, want %d", i, len(batch), wantSizes[i])
		}
	}
	if outcome.Posted != 73 || outcome.Submitted != 73 {
		t.Errorf("posted/submitted = %d/%d, want 73/73", outcome.Posted, outcome.Submitted)
	}
}

func TestPostSingleChunkBelowCapacity(t *testing.T) {
	ledger := newFakeLedger()
	poster := NewPoster(ledger, nil)

	poster.Post(context.Background(), makeDocs(30))
	if len(ledger.batches) != 1 {
		t.Errorf("batches = %d, want 1 for exactly 30 docs", len(ledger.batches))
	}
}

func TestPostCountsItemFaults(t *testing.T) {
	ledger := newFakeLedger()
	ledger.batchFaults = map[string]string{
		"SRC:txn-1": "6240",
		"SRC:txn-3": "2010",
	}
	poster := NewPoster(ledger, nil)

	outcome := poster.Post(context.Background(), makeDocs(5))

	if outcome.Posted != 3 {
		t.Errorf("posted = %d, want 3", outcome.Posted)
	}
	if outcome.Faulted != 2 {
		t.Errorf("faulted = %d, want 2", outcome.Faulted)
	}
	if len(outcome.Faults) != 2 || outcome.Faults[0].BID != "SRC:txn-1" || outcome.Faults[0].Code != "6240" {
		t.Errorf("faults = %+v, want bIds traced back to source markers", outcome.Faults)
	}
}

func TestPostTransportFailureKillsOnlyItsChunk(t *testing.T) {
	ledger := newFakeLedger()
	ledger.failBatches = 1
	poster := NewPoster(ledger, nil)

	outcome := poster.Post(context.Background(), makeDocs(45))

	if outcome.FailedChunks != 1 {
		t.Errorf("failed chunks = %d, want 1", outcome.FailedChunks)
	}
	// The second chunk of 15 still went through.
	if outcome.Posted != 15 {
		t.Errorf("posted = %d, want 15", outcome.Posted)
	}
}

func TestPostAllChunksFail(t *testing.T) {
	ledger := newFakeLedger()
	ledger.batchErr = errors.New("unreachable")
	poster := NewPoster(ledger, nil)

	outcome := poster.Post(context.Background(), makeDocs(35))
	if outcome.FailedChunks != 2 || outcome.Posted != 0 {
		t.Errorf("outcome = %+v, want both chunks failed and nothing posted", outcome)
	}
}

func TestPostHonorsCancellationBetweenChunks(t *testing.T) {
	ledger := newFakeLedger()
	poster := NewPoster(ledger, nil)

	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	outcome := poster.Post(ctx, makeDocs(60))
	if len(ledger.batches) != 0 {
		t.Errorf("batches = %d, want 0 after cancellation", len(ledger.batches))
	}
	if outcome.Submitted != 0 {
		t.Errorf("submitted = %d, want 0", outcome.Submitted)
	}
}

func TestPostEmpty(t *testing.T) {
	poster := NewPoster(newFakeLedger(), nil)
	outcome := poster.Post(context.Background(), nil)
	if outcome.Submitted != 0 || outcome.Posted != 0 {
		t.Errorf("outcome = %+v, want zero", outcome)
	}
}
