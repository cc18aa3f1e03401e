package resource

import "github.com/tileforge/tilesim/clock"

// SyncResult is the outcome of a Synchroniser sync/mjoin step.
type SyncResult int

const (
	SyncContinue SyncResult = iota
	SyncDeschedule
	SyncKill
)

// maxSyncThreads bounds the number of threads a single synchroniser can
// join, matching a core's per-tile thread count.
const maxSyncThreads = 8

// Synchroniser implements SSYNC/MSYNC/MJOIN: a master thread and its
// children block until every member has called in, then all resume
// together at the latest member's time (sync), or the children are freed
// and the master alone continues (mjoin).
type Synchroniser struct {
	Resource

	threads   [maxSyncThreads]Owner
	numThreads int
	numPaused  int
	join       bool
}

// NewSynchroniser returns an unallocated synchroniser.
func NewSynchroniser(id ID) *Synchroniser {
	s := &Synchroniser{}
	s.Init(id)
	return s
}

// Alloc starts a new synchronisation group with master as its sole
// member.
func (s *Synchroniser) Alloc(master Owner) bool {
	s.SetInUse(true)
	s.numThreads = 1
	s.threads[0] = master
	s.numPaused = 0
	s.join = false
	return true
}

// AddChild enrolls an additional thread in the group, e.g. one spawned by
// the master via INIT/START before the matching SSYNC.
func (s *Synchroniser) AddChild(t Owner) {
	s.threads[s.numThreads] = t
	s.numThreads++
	s.numPaused++
}

// Free releases the synchroniser.
func (s *Synchroniser) Free() bool {
	s.SetInUse(false)
	return true
}

// NumThreads returns the number of threads currently enrolled.
func (s *Synchroniser) NumThreads() int { return s.numThreads }

// NumPaused returns the number of enrolled threads that have already
// called in and are waiting for the rest.
func (s *Synchroniser) NumPaused() int { return s.numPaused }

// Master returns the group's master thread (always index 0).
func (s *Synchroniser) Master() Owner { return s.threads[0] }

func (s *Synchroniser) maxThreadTime() clock.Ticks {
	max := s.threads[0].Time()
	for i := 1; i < s.numThreads; i++ {
		if t := s.threads[i].Time(); t > max {
			max = t
		}
	}
	return max
}

// Sync implements SSYNC (isMaster == (thread == master)): the caller
// blocks until every enrolled thread has called in, at which point every
// member is advanced to the group's latest time and resumed.
func (s *Synchroniser) Sync(thread Owner, isMaster bool) SyncResult {
	if s.numPaused+1 < s.numThreads {
		s.numPaused++
		if !isMaster {
			thread.SetSSync(true)
		}
		return SyncDeschedule
	}
	newTime := s.maxThreadTime()
	s.numPaused = 0
	if !s.join {
		for i := 0; i < s.numThreads; i++ {
			s.threads[i].SetTime(newTime)
			if s.threads[i] != thread {
				if i > 0 {
					s.threads[i].SetSSync(false)
				}
				s.threads[i].AdvancePC()
				s.threads[i].Schedule()
			}
		}
		return SyncContinue
	}
	var result SyncResult
	s.threads[0].SetTime(newTime)
	if isMaster {
		result = SyncContinue
		for i := 1; i < s.numThreads; i++ {
			s.threads[i].Free()
		}
	} else {
		s.Master().Schedule()
		result = SyncKill
		for i := 1; i < s.numThreads; i++ {
			if s.threads[i] != thread {
				s.threads[i].Free()
			}
		}
	}
	s.join = false
	s.numThreads = 1
	return result
}

// MJoin implements MJOIN: like Sync, but on completion only the master
// survives; every child is freed and, if the caller was a child, it is
// killed (SyncKill).
func (s *Synchroniser) MJoin(thread Owner) SyncResult {
	s.join = true
	return s.Sync(thread, thread == s.Master())
}

// Cancel implements the synchroniser-side half of a killed thread's
// unwind: it un-pauses without resuming anyone.
func (s *Synchroniser) Cancel() { s.numPaused-- }
