package businessflow

import "sync"

// agentLocks serializes in-process ledger mutations per agent. The row-level
// FOR UPDATE lock inside the transaction is the cross-process guarantee; this
// keeps contending goroutines from piling up on the database.
type agentLocks struct {
	mu    sync.Mutex
	locks map[uint]*sync.Mutex
}

func newAgentLocks() *agentLocks {
	return &agentLocks{locks: make(map[uint]*sync.Mutex)}
}

func (l *agentLocks) lock(agentID uint) {
	l.mu.Lock()
	m, ok := l.locks[agentID]
	if !ok {
		m = &sync.Mutex{}
		l.locks[agentID] = m
	}
	l.mu.Unlock()
	m.Lock()
}

func (l *agentLocks) unlock(agentID uint) {
	l.mu.Lock()
	m := l.locks[agentID]
	l.mu.Unlock()
	if m != nil {
		m.Unlock()
	}
}
