package notify

import (
	"testing"

	"github.com/fieldserve/dispatch/core/model"
)

func TestRegistry_PublishReachesSubscriber(t *testing.T) {
	r := NewRegistry()
	sub := mustSubscribe(t, r, "job-1", "tech-1")
	defer sub.Cancel()

	r.Publish(Response{JobID: "job-1", TechnicianID: "tech-1", Kind: model.ResponseAccepted})

	select {
	case resp := <-sub.C():
		if resp.Kind != model.ResponseAccepted {
			t.Fatalf("unexpected response %+v", resp)
		}
	default:
		t.Fatalf("no response delivered")
	}
}

func TestRegistry_PublishIgnoresOtherPairs(t *testing.T) {
	r := NewRegistry()
	sub := mustSubscribe(t, r, "job-1", "tech-1")
	defer sub.Cancel()

	r.Publish(Response{JobID: "job-1", TechnicianID: "tech-2", Kind: model.ResponseAccepted})
	r.Publish(Response{JobID: "job-2", TechnicianID: "tech-1", Kind: model.ResponseAccepted})

	select {
	case resp := <-sub.C():
		t.Fatalf("unexpected delivery %+v", resp)
	default:
	}
}

func TestRegistry_CancelRemovesEntry(t *testing.T) {
	r := NewRegistry()
	a := mustSubscribe(t, r, "job-1", "tech-1")
	b := mustSubscribe(t, r, "job-1", "tech-1")
	if r.Len() != 2 {
		t.Fatalf("expected 2 subscriptions, got %d", r.Len())
	}

	a.Cancel()
	a.Cancel() // idempotent
	if r.Len() != 1 {
		t.Fatalf("expected 1 subscription after cancel, got %d", r.Len())
	}

	// The remaining waiter still receives.
	r.Publish(Response{JobID: "job-1", TechnicianID: "tech-1", Kind: model.ResponseRejected})
	select {
	case <-b.C():
	default:
		t.Fatalf("surviving subscription missed the response")
	}

	b.Cancel()
	if r.Len() != 0 {
		t.Fatalf("expected empty registry, got %d", r.Len())
	}
}

func TestRegistry_PublishDoesNotBlock(t *testing.T) {
	r := NewRegistry()
	sub := mustSubscribe(t, r, "job-1", "tech-1")
	defer sub.Cancel()

	// The channel holds one response; further publishes are dropped, not
	// queued.
	r.Publish(Response{JobID: "job-1", TechnicianID: "tech-1", Kind: model.ResponseAccepted})
	r.Publish(Response{JobID: "job-1", TechnicianID: "tech-1", Kind: model.ResponseRejected})

	resp := <-sub.C()
	if resp.Kind != model.ResponseAccepted {
		t.Fatalf("expected the first response, got %+v", resp)
	}
	select {
	case extra := <-sub.C():
		t.Fatalf("unexpected second delivery %+v", extra)
	default:
	}
}

// mustSubscribe is a test helper asserting the handle is non-nil.
func mustSubscribe(t *testing.T, r *Registry, jobID, techID string) *Subscription {
	t.Helper()
	sub := r.Subscribe(jobID, techID)
	if sub == nil {
		t.Fatalf("nil subscription")
	}
	return sub
}
