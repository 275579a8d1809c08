package netutils

import (
	"net"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestFirstAddress(t *testing.T) {
	ip, err := firstAddress(map[string][]string{
		"wlan0": {"192.168.1.12"},
		"eth0":  {"10.0.0.2", "10.0.0.3"},
	})
	require.NoError(t, err)
	assert.Equal(t, "10.0.0.2", ip)

	_, err = firstAddress(map[string][]string{"error": {"boom"}})
	assert.ErrorIs(t, err, ErrNoAddress)
}

func TestListAllIPs(t *testing.T) {
	for name, ips := range ListAllIPs() {
		if name == "error" {
			continue
		}
		assert.IsIncreasing(t, ips)
		for _, ip := range ips {
			parsed := net.ParseIP(ip)
			require.NotNil(t, parsed, ip)
			assert.False(t, parsed.IsLoopback())
			assert.NotNil(t, parsed.To4())
		}
	}
}

func TestIPv4Addresses(t *testing.T) {
	addrs := []net.Addr{
		&net.IPNet{IP: net.ParseIP("192.168.1.20"), Mask: net.CIDRMask(24, 32)},
		&net.IPNet{IP: net.ParseIP("127.0.0.1"), Mask: net.CIDRMask(8, 32)},
		&net.IPNet{IP: net.ParseIP("fe80::1"), Mask: net.CIDRMask(64, 128)},
		&net.IPAddr{IP: net.ParseIP("10.0.0.7")},
	}

	assert.Equal(t, []string{"10.0.0.7", "192.168.1.20"}, ipv4Addresses(addrs))
	assert.Empty(t, ipv4Addresses(nil))
}

func TestInterfaceNames(t *testing.T) {
	names := InterfaceNames(map[string][]string{
		"wlan0": {"192.168.1.12"},
		"error": {"boom"},
		"eth0":  {"10.0.0.2"},
	})
	assert.Equal(t, []string{"eth0", "wlan0"}, names)
}
