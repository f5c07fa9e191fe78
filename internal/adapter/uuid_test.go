package adapter

import (
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestNormalizeUUID(t *testing.T) {
	cases := []struct {
		in   string
		want string
	}{
		{"180D", "180d"},
		{"2a37", "2a37"},
		{"0000180D-0000-1000-8000-00805F9B34FB", "0000180d00001000800000805f9b34fb"},
		{"0000180d00001000800000805f9b34fb", "0000180d00001000800000805f9b34fb"},
		{"", ""},
	}
	for _, c := range cases {
		assert.Equal(t, c.want, NormalizeUUID(c.in), "input %q", c.in)
	}
}

func TestNormalizeUUIDs(t *testing.T) {
	got := NormalizeUUIDs([]string{"180D", "2A37-"})
	assert.Equal(t, []string{"180d", "2a37"}, got)

	assert.Empty(t, NormalizeUUIDs(nil))
}

func TestNormalizeAddress(t *testing.T) {
	assert.Equal(t, "aa:bb:cc:dd:ee:ff", NormalizeAddress(" AA:BB:CC:DD:EE:FF "))
	assert.Equal(t, "deadbeefcafe", NormalizeAddress("DEADBEEFCAFE"))
}
