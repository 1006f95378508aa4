package bus

import (
	"context"
	"testing"

	"github.com/stretchr/testify/require"
)

func TestNewRequiresURL(t *testing.T) {
	_, err := New("")
	require.Error(t, err)
}

func TestNilBus(t *testing.T) {
	var b *Bus
	require.Error(t, b.Publish(context.Background(), SubjectPrefix+"sessions.registered", map[string]string{}))

	_, err := b.Subscribe(context.Background(), SubjectPrefix+">", "", func(context.Context, string, []byte) error { return nil })
	require.Error(t, err)

	b.Close()
}

func TestSubscribeRequiresHandler(t *testing.T) {
	b := &Bus{}
	_, err := b.Subscribe(context.Background(), SubjectPrefix+">", "", nil)
	require.Error(t, err)
}
