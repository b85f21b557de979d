package notify

import (
	"sync"
)

// Subscription is a handle to one pending response wait. The subscriber owns
// the handle and must Cancel it on every exit path, including timeout;
// otherwise entries accumulate in the registry for the life of the process.
type Subscription struct {
	key string
	ch  chan Response
	reg *Registry

	once sync.Once
}

// C receives at most one response for the subscribed job/technician pair.
func (s *Subscription) C() <-chan Response { return s.ch }

// Cancel tears the subscription down. Safe to call more than once.
func (s *Subscription) Cancel() {
	s.once.Do(func() {
		s.reg.remove(s.key, s)
	})
}

// Registry routes technician responses to in-process waiters. It is purely
// local bookkeeping for cancellation and wakeup; the job store transaction
// remains the sole source of truth for assignment.
type Registry struct {
	mu   sync.Mutex
	subs map[string][]*Subscription
}

// NewRegistry creates an empty Registry.
func NewRegistry() *Registry {
	return &Registry{subs: make(map[string][]*Subscription)}
}

func subKey(jobID, technicianID string) string {
	return jobID + "/" + technicianID
}

// Subscribe registers a waiter for one job/technician pair.
func (r *Registry) Subscribe(jobID, technicianID string) *Subscription {
	sub := &Subscription{
		key: subKey(jobID, technicianID),
		ch:  make(chan Response, 1),
		reg: r,
	}
	r.mu.Lock()
	r.subs[sub.key] = append(r.subs[sub.key], sub)
	r.mu.Unlock()
	return sub
}

// Publish delivers a response to every waiter on the pair. Delivery is
// non-blocking; a waiter that already received a response is skipped.
func (r *Registry) Publish(resp Response) {
	key := subKey(resp.JobID, resp.TechnicianID)
	r.mu.Lock()
	waiters := append([]*Subscription(nil), r.subs[key]...)
	r.mu.Unlock()
	for _, sub := range waiters {
		select {
		case sub.ch <- resp:
		default:
		}
	}
}

// Len reports the number of live subscriptions, for leak checks in tests.
func (r *Registry) Len() int {
	r.mu.Lock()
	defer r.mu.Unlock()
	n := 0
	for _, subs := range r.subs {
		n += len(subs)
	}
	return n
}

func (r *Registry) remove(key string, target *Subscription) {
	r.mu.Lock()
	defer r.mu.Unlock()
	subs := r.subs[key]
	for i, sub := range subs {
		if sub == target {
			subs = append(subs[:i], subs[i+1:]...)
			break
		}
	}
	if len(subs) == 0 {
		delete(r.subs, key)
	} else {
		r.subs[key] = subs
	}
}
