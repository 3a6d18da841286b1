package device

import (
	"context"
	"errors"
	"fmt"
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestNotFoundError(t *testing.T) {
	tests := []struct {
		name string
		err  *NotFoundError
		want string
	}{
		{name: "no identifiers", err: &NotFoundError{Resource: "device"}, want: "device not found"},
		{name: "single identifier", err: &NotFoundError{Resource: "characteristic", UUIDs: []string{"2a35"}}, want: `characteristic "2a35" not found`},
		{name: "nested identifiers", err: &NotFoundError{Resource: "characteristic", UUIDs: []string{"180a", "2a29"}}, want: `characteristic "2a29" not found in "180a"`},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.want, tt.err.Error())
		})
	}
}

func TestConnectionError(t *testing.T) {
	wrapped := fmt.Errorf("%w: peer went away", ErrNotConnected)

	assert.ErrorIs(t, wrapped, ErrNotConnected)
	assert.NotErrorIs(t, wrapped, ErrAlreadyConnected)
	assert.True(t, IsConnectionState(wrapped, NotConnected))
	assert.False(t, IsConnectionState(errors.New("other"), NotConnected))

	assert.Equal(t, "bluetooth_off", ErrBluetoothOff.Error())
	assert.Equal(t, "not_connected: gone", (&ConnectionError{State: NotConnected, Msg: "gone"}).Error())

	var nilErr *ConnectionError
	assert.Equal(t, "<nil>", nilErr.Error())
	assert.False(t, nilErr.Is(ErrNotConnected))
}

func TestConnectorFunc(t *testing.T) {
	want := errors.New("dial failed")
	var c Connector = ConnectorFunc(func(ctx context.Context) (Link, error) {
		return nil, want
	})

	link, err := c.Connect(context.Background())
	assert.Nil(t, link)
	assert.ErrorIs(t, err, want)
}
