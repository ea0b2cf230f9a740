package serial

import (
	"bytes"
	"io"
	"testing"

	"github.com/stretchr/testify/require"
)

type bufferPort struct {
	bytes.Buffer
	closed bool
}

func (b *bufferPort) Close() error {
	b.closed = true
	return nil
}

func TestDefaultConfig(t *testing.T) {
	cfg := DefaultConfig("/dev/ttyACM0")
	require.Equal(t, "/dev/ttyACM0", cfg.Device)
	require.Equal(t, 115200, cfg.Baud)
	require.Equal(t, 100, cfg.ReadTimeout)
}

func TestOpenNilConfig(t *testing.T) {
	_, err := Open(nil)
	require.Error(t, err)
}

func TestOpenMissingDevice(t *testing.T) {
	_, err := Open(DefaultConfig("/dev/does-not-exist-3wb"))
	require.ErrorContains(t, err, "open loader port /dev/does-not-exist-3wb")
}

func TestWrapPort(t *testing.T) {
	inner := &bufferPort{}
	p := WrapPort(inner)

	_, err := p.Write([]byte("BOOT3WB\n"))
	require.NoError(t, err)
	require.NoError(t, p.Flush())

	got, err := io.ReadAll(p)
	require.NoError(t, err)
	require.Equal(t, "BOOT3WB\n", string(got))

	require.NoError(t, p.Close())
	require.True(t, inner.closed)

	// Already a Port: returned as is
	require.Equal(t, p, WrapPort(p))
}
