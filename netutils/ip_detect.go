package netutils

import (
	"errors"
	"net"
)

var ErrNoAddress = errors.New("no usable IPv4 address")

// GuessLocalIP returns the address used to reach the outside network, or
// the first non loopback IPv4 address when there is no route.
func GuessLocalIP() (string, error) {
	conn, err := net.Dial("udp", "8.8.8.8:80")
	if err == nil {
		defer conn.Close()
		if addr, ok := conn.LocalAddr().(*net.UDPAddr); ok && !addr.IP.IsUnspecified() {
			return addr.IP.String(), nil
		}
	}

	return firstAddress(ListAllIPs())
}

func firstAddress(ips map[string][]string) (string, error) {
	for _, name := range InterfaceNames(ips) {
		if len(ips[name]) > 0 {
			return ips[name][0], nil
		}
	}
	return "", ErrNoAddress
}
