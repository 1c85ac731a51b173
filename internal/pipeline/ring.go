package pipeline

import "sync"

// SlotState is the two-state machine a ring slot moves through: Free
// when available for a new submission, InFlight from Submit until the
// drain worker releases it back.
type SlotState int

const (
	SlotFree SlotState = iota
	SlotInFlight
)

// ring is the fixed-size slot ring backing the shared surface pool.
// Submit peeks the next slot, runs the multi-step submission critical
// section against it, and only commits (advancing submitIndex) on full
// success — mirroring spec section 4.3's Submission operation, where
// submit_index/pending_count are mutated solely at the final success
// step, never on any of the earlier rejection paths (mutex timeout,
// copy failure, encode failure). The drain worker releases
// slots in the same order (retrieveIndex), so at any time the set of
// InFlight slots is a contiguous window starting at retrieveIndex —
// this is the ring-ordering property spec section 8 tests.
type ring struct {
	mu            sync.Mutex
	states        []SlotState
	size          int
	submitIndex   int
	retrieveIndex int
	pending       int
}

func newRing(size int) *ring {
	return &ring{
		states: make([]SlotState, size),
		size:   size,
	}
}

// peek reports the slot Submit would use next, without reserving it.
// Returns ok == false when the ring is full (pending == size), the
// pipeline-full backpressure condition. A peeked slot that Submit then
// abandons (any rejection path) needs no undo: peek never mutated ring
// state, so the next peek simply returns the same slot again.
func (r *ring) peek() (slot int, ok bool) {
	r.mu.Lock()
	defer r.mu.Unlock()

	if r.pending >= r.size {
		return 0, false
	}
	return r.submitIndex, true
}

// commit reserves the previously peeked slot for submission. Callers
// must call commit only after the full submission critical section has
// succeeded; it is the sole place submitIndex/pending advance.
func (r *ring) commit(slot int) {
	r.mu.Lock()
	defer r.mu.Unlock()

	r.states[slot] = SlotInFlight
	r.submitIndex = (r.submitIndex + 1) % r.size
	r.pending++
}

// release frees the slot at the current retrieve position. Callers must
// only release slots in submission order (the drain worker's contract);
// release panics if called out of order since that would indicate a
// broken invariant rather than a recoverable error.
func (r *ring) release(slot int) {
	r.mu.Lock()
	defer r.mu.Unlock()

	if slot != r.retrieveIndex {
		panic("pipeline: ring released out of submission order")
	}
	r.states[slot] = SlotFree
	r.retrieveIndex = (r.retrieveIndex + 1) % r.size
	r.pending--
}

func (r *ring) pendingCount() int {
	r.mu.Lock()
	defer r.mu.Unlock()
	return r.pending
}

func (r *ring) nextRetrieve() int {
	r.mu.Lock()
	defer r.mu.Unlock()
	return r.retrieveIndex
}
