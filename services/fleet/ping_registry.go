package fleet

import (
	"sort"
	"strings"
	"sync"

	"k8s.io/utils/clock"
)

// DefaultPingCapacity bounds the number of nodes tracked at once.
const DefaultPingCapacity = 200

type pingEntry struct {
	ping NodePing
	// seq is the registry-wide upsert counter at this entry's last ping.
	seq uint64
}

// NodePingRegistry keeps the last heartbeat seen from each node IP. Once
// more than capacity IPs are tracked, the least recently pinged are evicted.
type NodePingRegistry struct {
	clock    clock.PassiveClock
	capacity int

	mu      sync.Mutex
	entries map[string]*pingEntry
	seq     uint64
	evicted uint64
}

// NewNodePingRegistry returns an empty registry. capacity <= 0 uses
// DefaultPingCapacity; a nil clock uses wall time.
func NewNodePingRegistry(clk clock.PassiveClock, capacity int) *NodePingRegistry {
	if clk == nil {
		clk = clock.RealClock{}
	}
	if capacity <= 0 {
		capacity = DefaultPingCapacity
	}
	return &NodePingRegistry{
		clock:    clk,
		capacity: capacity,
		entries:  make(map[string]*pingEntry),
	}
}

// RecordNodePing upserts the ping for ipAddress. An empty ipAddress is
// ignored and reported with ok=false. The returned record is a copy of the
// stored entry after the update.
func (r *NodePingRegistry) RecordNodePing(ipAddress string, details PingDetails) (ping NodePing, ok bool) {
	ip := strings.TrimSpace(ipAddress)
	if ip == "" {
		return NodePing{}, false
	}
	hostname := strings.TrimSpace(details.Hostname)
	nodeID := strings.TrimSpace(details.NodeID)

	r.mu.Lock()
	defer r.mu.Unlock()

	now := r.clock.Now().UTC()
	r.seq++

	entry, found := r.entries[ip]
	if !found {
		entry = &pingEntry{ping: NodePing{IPAddress: ip, FirstPingTimestamp: now}}
		r.entries[ip] = entry
	}
	if hostname != "" {
		entry.ping.Hostname = hostname
	}
	if nodeID != "" {
		entry.ping.NodeID = nodeID
	}
	entry.ping.LastPingTimestamp = now
	entry.ping.TotalPings++
	entry.seq = r.seq

	r.evictLocked()
	return entry.ping, true
}

func (r *NodePingRegistry) evictLocked() {
	over := len(r.entries) - r.capacity
	if over <= 0 {
		return
	}
	oldest := make([]*pingEntry, 0, len(r.entries))
	for _, e := range r.entries {
		oldest = append(oldest, e)
	}
	// seq follows ping arrival, so it orders by last ping even when the wall
	// clock steps backward.
	sort.Slice(oldest, func(i, j int) bool {
		return oldest[i].seq < oldest[j].seq
	})
	for _, e := range oldest[:over] {
		delete(r.entries, e.ping.IPAddress)
		r.evicted++
	}
}

// NodePings returns a copy of every tracked ping, most recent first.
func (r *NodePingRegistry) NodePings() []NodePing {
	r.mu.Lock()
	entries := make([]pingEntry, 0, len(r.entries))
	for _, e := range r.entries {
		entries = append(entries, *e)
	}
	r.mu.Unlock()

	sort.Slice(entries, func(i, j int) bool {
		a, b := entries[i], entries[j]
		if !a.ping.LastPingTimestamp.Equal(b.ping.LastPingTimestamp) {
			return a.ping.LastPingTimestamp.After(b.ping.LastPingTimestamp)
		}
		return a.seq > b.seq
	})
	out := make([]NodePing, len(entries))
	for i, e := range entries {
		out[i] = e.ping
	}
	return out
}

// Len reports the number of tracked nodes.
func (r *NodePingRegistry) Len() int {
	r.mu.Lock()
	defer r.mu.Unlock()
	return len(r.entries)
}

// Evicted reports how many entries have been dropped for capacity.
func (r *NodePingRegistry) Evicted() uint64 {
	r.mu.Lock()
	defer r.mu.Unlock()
	return r.evicted
}
