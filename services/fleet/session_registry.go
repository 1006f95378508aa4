package fleet

import (
	"sort"
	"strings"
	"sync"

	"github.com/google/uuid"
	"k8s.io/utils/clock"
)

// SessionRegistry is the append-only, in-memory list of VM sessions. It is
// constructed once per process and shared by the handlers.
type SessionRegistry struct {
	clock clock.PassiveClock
	newID func() string

	mu       sync.Mutex
	sessions []VMSession
}

// NewSessionRegistry returns an empty registry. A nil clock uses wall time.
func NewSessionRegistry(clk clock.PassiveClock) *SessionRegistry {
	if clk == nil {
		clk = clock.RealClock{}
	}
	return &SessionRegistry{
		clock: clk,
		newID: uuid.NewString,
	}
}

// AddVM validates the request fields and appends a new session. Identical
// arguments always produce a new session with a distinct id. Validation
// failures are returned as *ValidationError.
func (r *SessionRegistry) AddVM(ipAddress, machineStatus, ownerSessionID, vmType string) (VMSession, error) {
	ip := strings.TrimSpace(ipAddress)
	if !IsValidIPv4(ip) {
		return VMSession{}, invalid(CodeInvalidIP, "ipAddress %q is not a valid IPv4 address", ipAddress)
	}
	status, err := ParseMachineStatus(machineStatus)
	if err != nil {
		return VMSession{}, err
	}
	kind, err := ParseVMType(vmType)
	if err != nil {
		return VMSession{}, err
	}

	r.mu.Lock()
	defer r.mu.Unlock()

	now := r.clock.Now().UTC()
	session := VMSession{
		SessionID:         r.newID(),
		OwnerSessionID:    ownerSessionID,
		IPAddress:         ip,
		MachineStatus:     status,
		VMType:            kind,
		StartTimestamp:    now,
		LastUsedTimestamp: now,
		ProjectList:       map[string]string{},
	}
	r.sessions = append(r.sessions, session)
	return session.clone(), nil
}

// Sessions returns a copy of every session, most recently started first.
func (r *SessionRegistry) Sessions() []VMSession {
	r.mu.Lock()
	out := make([]VMSession, 0, len(r.sessions))
	for i := len(r.sessions) - 1; i >= 0; i-- {
		out = append(out, r.sessions[i].clone())
	}
	r.mu.Unlock()

	sort.SliceStable(out, func(i, j int) bool {
		return out[i].StartTimestamp.After(out[j].StartTimestamp)
	})
	return out
}

// Len reports the number of registered sessions.
func (r *SessionRegistry) Len() int {
	r.mu.Lock()
	defer r.mu.Unlock()
	return len(r.sessions)
}
