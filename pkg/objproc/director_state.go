package objproc

import "fmt"

const (
	// MaxSlots is the upper bound of parallel execution slots.
	MaxSlots = 16

	// MaxQueueSize is the upper bound of the instruction queue.
	MaxQueueSize = 8192
)

// slotState is the lifecycle of a job slot; removed slots are absent from the table.
type slotState uint8

const (
	slotIdle slotState = iota
	slotRunning
	slotTerminating // running, exits after the current job
)

func (s slotState) String() string {
	switch s {
	case slotRunning:
		return "running"
	case slotTerminating:
		return "terminating"
	default:
		return "idle"
	}
}

// slot is one entry of the slot table.
type slot struct {
	id    int
	state slotState
}

type actionKind uint8

const (
	actionAssign actionKind = iota
	actionRetire
)

// action is a side effect requested by pump.
type action struct {
	kind actionKind
	slot int
	job  int // queue index, assign only
}

// schedule is the queue pointer plus the slot table. Jobs themselves live in the director.
type schedule struct {
	queued int // jobs accepted so far
	next   int // first unconsumed queue entry
	slots  []slot
}

// newSchedule creates a table of idle slots.
func newSchedule(slots int) schedule {
	s := schedule{slots: make([]slot, slots)}
	for i := range s.slots {
		s.slots[i] = slot{id: i, state: slotIdle}
	}
	return s
}

// reopen restores a full table of idle slots and keeps the queue pointer.
func (s schedule) reopen(slots int) schedule {
	out := newSchedule(slots)
	out.queued = s.queued
	out.next = s.next
	return out
}

// running is true while jobs are unconsumed or any slot remains.
func (s schedule) running() bool {
	return s.next < s.queued || len(s.slots) > 0
}

// pump assigns unconsumed jobs to idle slots in FIFO order and retires idle slots once the
// queue is exhausted. It does not modify s.
func pump(s schedule) (schedule, []action) {
	out := schedule{queued: s.queued, next: s.next, slots: make([]slot, 0, len(s.slots))}
	var actions []action

	for _, sl := range s.slots {
		if sl.state != slotIdle {
			out.slots = append(out.slots, sl)
			continue
		}

		if out.next < out.queued {
			actions = append(actions, action{kind: actionAssign, slot: sl.id, job: out.next})
			out.next++
			sl.state = slotRunning
			out.slots = append(out.slots, sl)
			continue
		}

		actions = append(actions, action{kind: actionRetire, slot: sl.id})
	}

	return out, actions
}

// complete marks a slot idle after its job finished.
func (s schedule) complete(id int) schedule {
	out := s.clone()
	for i := range out.slots {
		if out.slots[i].id == id {
			out.slots[i].state = slotIdle
		}
	}
	return out
}

// teardown consumes the rest of the queue and flags running slots for termination.
func (s schedule) teardown() schedule {
	out := s.clone()
	out.next = out.queued
	for i := range out.slots {
		if out.slots[i].state == slotRunning {
			out.slots[i].state = slotTerminating
		}
	}
	return out
}

// terminate removes a slot immediately. Terminating a slot that is executing a job is a
// programming error and panics.
func (s schedule) terminate(id int) schedule {
	out := schedule{queued: s.queued, next: s.next, slots: make([]slot, 0, len(s.slots))}
	for _, sl := range s.slots {
		if sl.id != id {
			out.slots = append(out.slots, sl)
			continue
		}
		if sl.state != slotIdle {
			panic(fmt.Errorf("slot %d is %s: %w", id, sl.state, ErrIllegalTermination))
		}
	}
	return out
}

// active counts the slots that are executing a job.
func (s schedule) active() int {
	n := 0
	for _, sl := range s.slots {
		if sl.state != slotIdle {
			n++
		}
	}
	return n
}

func (s schedule) clone() schedule {
	out := s
	out.slots = append([]slot(nil), s.slots...)
	return out
}
