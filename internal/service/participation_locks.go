package service

import "sync"

const lockStripes = 64

// ParticipationLocks serializes all submission/result mutations per
// participation so a push and a build result for the same commit cannot race
// to create two submissions. Different participations map to independent
// stripes and proceed fully concurrently. One instance must be shared between
// the submission ledger and the grading orchestrator.
type ParticipationLocks struct {
	stripes [lockStripes]sync.Mutex
}

// NewParticipationLocks constructs the shared lock table.
func NewParticipationLocks() *ParticipationLocks {
	return &ParticipationLocks{}
}

// Lock acquires the stripe for the given participation.
func (l *ParticipationLocks) Lock(participationID uint) {
	l.stripes[participationID%lockStripes].Lock()
}

// Unlock releases the stripe for the given participation.
func (l *ParticipationLocks) Unlock(participationID uint) {
	l.stripes[participationID%lockStripes].Unlock()
}
