package config

import (
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/require"
)

func TestParseDefaults(t *testing.T) {
	cfg, err := Parse([]byte("{}"))
	require.NoError(t, err)

	require.Equal(t, DefaultDevice, cfg.Serial.Device)
	require.Equal(t, 115200, cfg.Serial.Baud)
	require.Equal(t, 100, cfg.Serial.ReadTimeoutMs)
	require.EqualValues(t, 0xFF, *cfg.Upload.PadByte)
	require.Equal(t, "TRANSFER", cfg.Upload.FirstCommand)
	require.True(t, *cfg.Upload.Boot)
	require.Equal(t, 5*time.Second, cfg.ReplyTimeout())
	require.Equal(t, 5*time.Minute, cfg.BootTimeout())
}

func TestLoadFile(t *testing.T) {
	dir := t.TempDir()
	image := filepath.Join(dir, "image.bin")
	require.NoError(t, os.WriteFile(image, make([]byte, 1024), 0o644))

	path := filepath.Join(dir, "threewire.yaml")
	data := []byte(`
serial:
  device: /dev/ttyUSB1
  baud: 57600
upload:
  image: ` + image + `
  pad_byte: 0
  first_command: BOOT3WB
  boot: false
  boot_timeout_ms: 1000
`)
	require.NoError(t, os.WriteFile(path, data, 0o644))

	cfg, err := Load(path)
	require.NoError(t, err)
	require.Equal(t, "/dev/ttyUSB1", cfg.Serial.Device)
	require.EqualValues(t, 0, *cfg.Upload.PadByte)
	require.False(t, *cfg.Upload.Boot)
	require.Equal(t, time.Second, cfg.BootTimeout())

	sc := cfg.SerialPort()
	require.Equal(t, 57600, sc.Baud)
	require.Equal(t, 100, sc.ReadTimeout)
}

func TestValidateErrors(t *testing.T) {
	dir := t.TempDir()
	big := filepath.Join(dir, "big.bin")
	require.NoError(t, os.WriteFile(big, make([]byte, 65537), 0o644))

	tests := []struct {
		name string
		yaml string
	}{
		{"unknown command", "upload: {first_command: FLASH}"},
		{"negative baud", "serial: {baud: -1}"},
		{"negative timeout", "upload: {reply_timeout_ms: -5}"},
		{"missing image", "upload: {image: " + filepath.Join(dir, "none.bin") + "}"},
		{"image too large", "upload: {image: " + big + "}"},
		{"bad yaml", "serial: ["},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, err := Parse([]byte(tt.yaml))
			require.Error(t, err)
		})
	}
}

func TestLoadMissingFile(t *testing.T) {
	_, err := Load(filepath.Join(t.TempDir(), "missing.yaml"))
	require.ErrorIs(t, err, os.ErrNotExist)
}
