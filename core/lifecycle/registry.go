package lifecycle

import (
	"slices"
	"sort"
	"sync"

	"github.com/huangsam/fluentgate/internal/contract"
)

// State is the local monitoring state of one session.
type State string

// Monitoring states. A session that is not tracked is unmonitored.
const (
	StateUnmonitored State = "unmonitored"
	StateJoining     State = "joining"
	StateMonitoring  State = "monitoring"
	StateGrace       State = "grace_period"
	StateEnded       State = "ended"
)

// AnyGeneration matches whichever generation currently tracks a session.
const AnyGeneration uint64 = 0

// transitions lists the legal moves out of each tracked state. Unmonitored to joining
// happens in TryTrack and every state leaves the registry through Untrack.
// Grace to grace restarts the grace period for another disconnect.
var transitions = map[State][]State{
	StateJoining:    {StateMonitoring, StateEnded},
	StateMonitoring: {StateGrace, StateEnded},
	StateGrace:      {StateGrace, StateMonitoring, StateEnded},
}

// CanTransition reports whether a tracked session may move from one state to another.
func CanTransition(from, to State) bool {
	return slices.Contains(transitions[from], to)
}

type entry struct {
	gen    uint64
	state  State
	handle contract.RoomHandle
}

// Registry is the set of sessions this process is monitoring.
// It only prevents duplicate joins within one process; it is not a distributed lock.
//
// Every TryTrack hands out a new generation. Calls carrying a generation only act on
// the entry they were issued for, so callbacks of a room that was dropped and rejoined
// cannot touch the new monitor.
type Registry struct {
	mu      sync.Mutex
	entries map[string]*entry
	nextGen uint64
	pumps   map[string]int
}

// NewRegistry creates an empty Registry.
func NewRegistry() *Registry {
	return &Registry{entries: map[string]*entry{}, pumps: map[string]int{}}
}

// TryTrack marks id as joining and returns its generation.
// It returns false if id is already tracked.
func (r *Registry) TryTrack(id string) (uint64, bool) {
	r.mu.Lock()
	defer r.mu.Unlock()
	if _, ok := r.entries[id]; ok {
		return 0, false
	}
	r.nextGen++
	r.entries[id] = &entry{gen: r.nextGen, state: StateJoining}
	return r.nextGen, true
}

// lookup returns the entry of id when gen matches it. Callers hold r.mu.
func (r *Registry) lookup(id string, gen uint64) (*entry, bool) {
	e, ok := r.entries[id]
	if !ok || (gen != AnyGeneration && e.gen != gen) {
		return nil, false
	}
	return e, true
}

// Attach stores the joined room handle and moves id to monitoring.
// It returns false if id was untracked, retracked or ended while the join was in flight.
func (r *Registry) Attach(id string, gen uint64, h contract.RoomHandle) bool {
	r.mu.Lock()
	defer r.mu.Unlock()
	e, ok := r.lookup(id, gen)
	if !ok || !CanTransition(e.state, StateMonitoring) {
		return false
	}
	e.handle = h
	e.state = StateMonitoring
	return true
}

// SetState moves id to s. It returns false if id is not tracked under gen
// or the move is not a legal transition.
func (r *Registry) SetState(id string, gen uint64, s State) bool {
	r.mu.Lock()
	defer r.mu.Unlock()
	e, ok := r.lookup(id, gen)
	if !ok || !CanTransition(e.state, s) {
		return false
	}
	e.state = s
	return true
}

// State returns the state of id, or StateUnmonitored.
func (r *Registry) State(id string) State {
	r.mu.Lock()
	defer r.mu.Unlock()
	if e, ok := r.entries[id]; ok {
		return e.state
	}
	return StateUnmonitored
}

// Untrack removes id when it is tracked under gen and returns its room handle, if any.
func (r *Registry) Untrack(id string, gen uint64) contract.RoomHandle {
	r.mu.Lock()
	defer r.mu.Unlock()
	e, ok := r.lookup(id, gen)
	if !ok {
		return nil
	}
	delete(r.entries, id)
	return e.handle
}

// IDs returns the tracked session ids in sorted order.
func (r *Registry) IDs() []string {
	r.mu.Lock()
	defer r.mu.Unlock()
	out := make([]string, 0, len(r.entries))
	for id := range r.entries {
		out = append(out, id)
	}
	sort.Strings(out)
	return out
}

// Len returns the number of tracked sessions.
func (r *Registry) Len() int {
	r.mu.Lock()
	defer r.mu.Unlock()
	return len(r.entries)
}

// BeginPump counts an audio pump of id. Pumps outlive the entry of an ended session
// while their transcription stream drains.
func (r *Registry) BeginPump(id string) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.pumps[id]++
}

// EndPump releases a pump counted by BeginPump.
func (r *Registry) EndPump(id string) {
	r.mu.Lock()
	defer r.mu.Unlock()
	if r.pumps[id] <= 1 {
		delete(r.pumps, id)
		return
	}
	r.pumps[id]--
}

// Pumping reports whether any audio pump of id is still running.
func (r *Registry) Pumping(id string) bool {
	r.mu.Lock()
	defer r.mu.Unlock()
	return r.pumps[id] > 0
}
