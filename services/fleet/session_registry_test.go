package fleet

import (
	"errors"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	clocktesting "k8s.io/utils/clock/testing"
)

func TestAddVMNormalizesFields(t *testing.T) {
	now := time.Date(2026, 3, 1, 12, 0, 0, 0, time.UTC)
	reg := NewSessionRegistry(clocktesting.NewFakePassiveClock(now))

	s, err := reg.AddVM("10.0.0.5", "running", "sess-1", "demo")
	require.NoError(t, err)

	assert.NotEmpty(t, s.SessionID)
	assert.Equal(t, "sess-1", s.OwnerSessionID)
	assert.Equal(t, "10.0.0.5", s.IPAddress)
	assert.Equal(t, StatusRunning, s.MachineStatus)
	assert.Equal(t, VMTypeDemo, s.VMType)
	assert.Equal(t, now, s.StartTimestamp)
	assert.Equal(t, now, s.LastUsedTimestamp)
	assert.Empty(t, s.ErrorMessage)
	assert.NotNil(t, s.ProjectList)
	assert.Empty(t, s.ProjectList)
}

func TestAddVMDefaultsType(t *testing.T) {
	reg := NewSessionRegistry(nil)
	s, err := reg.AddVM(" 192.168.0.10 ", "Stopped", "", "")
	require.NoError(t, err)
	assert.Equal(t, "192.168.0.10", s.IPAddress)
	assert.Equal(t, StatusStopped, s.MachineStatus)
	assert.Equal(t, VMTypeDefault, s.VMType)
}

func TestAddVMValidation(t *testing.T) {
	tests := []struct {
		name   string
		ip     string
		status string
		vmType string
		code   ErrorCode
	}{
		{name: "bad ip", ip: "999.1.1.1", status: "Running", code: CodeInvalidIP},
		{name: "bad status", ip: "1.1.1.1", status: "booting", code: CodeInvalidStatus},
		{name: "bad type", ip: "1.1.1.1", status: "running", vmType: "huge", code: CodeInvalidType},
		{name: "ip checked first", ip: "x", status: "booting", vmType: "huge", code: CodeInvalidIP},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			reg := NewSessionRegistry(nil)
			_, err := reg.AddVM(tt.ip, tt.status, "", tt.vmType)

			var verr *ValidationError
			require.True(t, errors.As(err, &verr))
			assert.Equal(t, tt.code, verr.Code)
			assert.NotEmpty(t, verr.Message)
			assert.Zero(t, reg.Len())
		})
	}
}

func TestAddVMDoesNotDeduplicate(t *testing.T) {
	reg := NewSessionRegistry(nil)
	a, err := reg.AddVM("10.0.0.5", "running", "sess-1", "demo")
	require.NoError(t, err)
	b, err := reg.AddVM("10.0.0.5", "running", "sess-1", "demo")
	require.NoError(t, err)

	assert.NotEqual(t, a.SessionID, b.SessionID)
	assert.Equal(t, 2, reg.Len())
}

func TestSessionsSortedNewestFirst(t *testing.T) {
	fc := clocktesting.NewFakePassiveClock(time.Date(2026, 1, 1, 0, 0, 0, 0, time.UTC))
	reg := NewSessionRegistry(fc)

	base := fc.Now()
	// Insert out of chronological order.
	for _, offset := range []time.Duration{2 * time.Hour, 0, 3 * time.Hour, time.Hour} {
		fc.SetTime(base.Add(offset))
		_, err := reg.AddVM("10.0.0.1", "running", "", "")
		require.NoError(t, err)
	}

	got := reg.Sessions()
	require.Len(t, got, 4)
	for i := 1; i < len(got); i++ {
		assert.True(t, got[i-1].StartTimestamp.After(got[i].StartTimestamp))
	}
	assert.Equal(t, base.Add(3*time.Hour), got[0].StartTimestamp)
}

func TestSessionsIsDefensiveCopy(t *testing.T) {
	reg := NewSessionRegistry(nil)
	_, err := reg.AddVM("10.0.0.1", "running", "", "")
	require.NoError(t, err)

	got := reg.Sessions()
	got[0].IPAddress = "1.2.3.4"
	got[0].ProjectList["x"] = "y"

	fresh := reg.Sessions()
	require.Len(t, fresh, 1)
	assert.Equal(t, "10.0.0.1", fresh[0].IPAddress)
	assert.Empty(t, fresh[0].ProjectList)
}
