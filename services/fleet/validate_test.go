package fleet

import (
	"errors"
	"fmt"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestIsValidIPv4(t *testing.T) {
	tests := []struct {
		name  string
		input string
		want  bool
	}{
		{name: "simple", input: "10.0.0.5", want: true},
		{name: "bounds", input: "0.0.0.0", want: true},
		{name: "broadcast", input: "255.255.255.255", want: true},
		{name: "surrounding space", input: "  192.168.1.1 ", want: true},
		{name: "out of range octet", input: "999.1.1.1", want: false},
		{name: "256", input: "1.1.1.256", want: false},
		{name: "three segments", input: "1.1.1", want: false},
		{name: "five segments", input: "1.1.1.1.1", want: false},
		{name: "empty segment", input: "1..1.1", want: false},
		{name: "non numeric", input: "a.b.c.d", want: false},
		{name: "signed", input: "+1.1.1.1", want: false},
		{name: "ipv6", input: "::1", want: false},
		{name: "empty", input: "", want: false},
		{name: "too many digits", input: "1.1.1.0001", want: false},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.want, IsValidIPv4(tt.input))
		})
	}
}

func TestIsValidIPv4AcceptsEveryOctet(t *testing.T) {
	for i := 0; i <= 255; i++ {
		ip := fmt.Sprintf("10.20.%d.%d", i, 255-i)
		require.True(t, IsValidIPv4(ip), ip)
	}
}

func TestParseMachineStatus(t *testing.T) {
	for _, in := range []string{"running", "RUNNING", " Running "} {
		got, err := ParseMachineStatus(in)
		require.NoError(t, err)
		assert.Equal(t, StatusRunning, got)
	}
	got, err := ParseMachineStatus("stopped")
	require.NoError(t, err)
	assert.Equal(t, StatusStopped, got)

	_, err = ParseMachineStatus("paused")
	var verr *ValidationError
	require.True(t, errors.As(err, &verr))
	assert.Equal(t, CodeInvalidStatus, verr.Code)
}

func TestParseVMType(t *testing.T) {
	got, err := ParseVMType("")
	require.NoError(t, err)
	assert.Equal(t, VMTypeDefault, got)

	got, err = ParseVMType("DeMo")
	require.NoError(t, err)
	assert.Equal(t, VMTypeDemo, got)

	_, err = ParseVMType("gpu")
	var verr *ValidationError
	require.True(t, errors.As(err, &verr))
	assert.Equal(t, CodeInvalidType, verr.Code)
}
