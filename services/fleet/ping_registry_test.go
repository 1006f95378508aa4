package fleet

import (
	"fmt"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	clocktesting "k8s.io/utils/clock/testing"
)

func TestRecordNodePingIgnoresEmptyIP(t *testing.T) {
	reg := NewNodePingRegistry(nil, 0)
	_, ok := reg.RecordNodePing("   ", PingDetails{Hostname: "h"})
	assert.False(t, ok)
	assert.Zero(t, reg.Len())
}

func TestRecordNodePingCountsAndTimestamps(t *testing.T) {
	first := time.Date(2026, 2, 1, 8, 0, 0, 0, time.UTC)
	fc := clocktesting.NewFakePassiveClock(first)
	reg := NewNodePingRegistry(fc, 0)

	const n = 5
	var last time.Time
	for i := 0; i < n; i++ {
		fc.SetTime(first.Add(time.Duration(i) * time.Second))
		last = fc.Now()
		_, ok := reg.RecordNodePing("10.1.1.1", PingDetails{})
		require.True(t, ok)
	}

	pings := reg.NodePings()
	require.Len(t, pings, 1)
	assert.EqualValues(t, n, pings[0].TotalPings)
	assert.Equal(t, first, pings[0].FirstPingTimestamp)
	assert.Equal(t, last, pings[0].LastPingTimestamp)
}

func TestRecordNodePingPreservesIdentity(t *testing.T) {
	reg := NewNodePingRegistry(nil, 0)
	_, _ = reg.RecordNodePing("10.1.1.1", PingDetails{Hostname: "worker-1", NodeID: "n-1"})
	got, ok := reg.RecordNodePing("10.1.1.1", PingDetails{})
	require.True(t, ok)

	assert.Equal(t, "worker-1", got.Hostname)
	assert.Equal(t, "n-1", got.NodeID)
	assert.EqualValues(t, 2, got.TotalPings)

	got, _ = reg.RecordNodePing("10.1.1.1", PingDetails{Hostname: "worker-1b"})
	assert.Equal(t, "worker-1b", got.Hostname)
	assert.Equal(t, "n-1", got.NodeID)
}

func TestRecordNodePingEvictsOldest(t *testing.T) {
	fc := clocktesting.NewFakePassiveClock(time.Date(2026, 2, 1, 0, 0, 0, 0, time.UTC))
	reg := NewNodePingRegistry(fc, DefaultPingCapacity)

	for i := 0; i < 250; i++ {
		fc.SetTime(fc.Now().Add(time.Millisecond))
		_, ok := reg.RecordNodePing(fmt.Sprintf("10.0.%d.%d", i/256, i%256), PingDetails{})
		require.True(t, ok)
	}

	require.Equal(t, DefaultPingCapacity, reg.Len())
	assert.EqualValues(t, 50, reg.Evicted())

	kept := map[string]bool{}
	for _, p := range reg.NodePings() {
		kept[p.IPAddress] = true
	}
	for i := 0; i < 50; i++ {
		assert.False(t, kept[fmt.Sprintf("10.0.%d.%d", i/256, i%256)], "entry %d should be evicted", i)
	}
	for i := 50; i < 250; i++ {
		assert.True(t, kept[fmt.Sprintf("10.0.%d.%d", i/256, i%256)], "entry %d should be kept", i)
	}
}

func TestRecordNodePingRefreshProtectsFromEviction(t *testing.T) {
	fc := clocktesting.NewFakePassiveClock(time.Date(2026, 2, 1, 0, 0, 0, 0, time.UTC))
	reg := NewNodePingRegistry(fc, 2)

	tick := func() { fc.SetTime(fc.Now().Add(time.Second)) }
	tick()
	reg.RecordNodePing("10.0.0.1", PingDetails{})
	tick()
	reg.RecordNodePing("10.0.0.2", PingDetails{})
	tick()
	reg.RecordNodePing("10.0.0.1", PingDetails{})
	tick()
	reg.RecordNodePing("10.0.0.3", PingDetails{})

	pings := reg.NodePings()
	require.Len(t, pings, 2)
	assert.Equal(t, "10.0.0.3", pings[0].IPAddress)
	assert.Equal(t, "10.0.0.1", pings[1].IPAddress)
}

func TestRecordNodePingEvictsBySequenceOnTies(t *testing.T) {
	fc := clocktesting.NewFakePassiveClock(time.Date(2026, 2, 1, 0, 0, 0, 0, time.UTC))
	reg := NewNodePingRegistry(fc, 2)

	reg.RecordNodePing("10.0.0.1", PingDetails{})
	reg.RecordNodePing("10.0.0.2", PingDetails{})
	reg.RecordNodePing("10.0.0.3", PingDetails{})

	pings := reg.NodePings()
	require.Len(t, pings, 2)
	assert.Equal(t, "10.0.0.3", pings[0].IPAddress)
	assert.Equal(t, "10.0.0.2", pings[1].IPAddress)
}

func TestRecordNodePingKeepsNewestWhenClockStepsBack(t *testing.T) {
	start := time.Date(2026, 2, 1, 12, 0, 0, 0, time.UTC)
	fc := clocktesting.NewFakePassiveClock(start)
	reg := NewNodePingRegistry(fc, 2)

	reg.RecordNodePing("10.0.0.1", PingDetails{})
	fc.SetTime(start.Add(time.Second))
	reg.RecordNodePing("10.0.0.2", PingDetails{})

	fc.SetTime(start.Add(-time.Hour))
	ping, ok := reg.RecordNodePing("10.0.0.3", PingDetails{NodeID: "n3"})
	require.True(t, ok)
	assert.EqualValues(t, 1, ping.TotalPings)

	require.Equal(t, 2, reg.Len())
	kept := map[string]bool{}
	for _, p := range reg.NodePings() {
		kept[p.IPAddress] = true
	}
	assert.True(t, kept["10.0.0.3"])
	assert.True(t, kept["10.0.0.2"])
	assert.False(t, kept["10.0.0.1"])
}
