package netutils

import (
	"net"
	"slices"
)

// ListAllIPs maps the name of every up interface to its non loopback IPv4
// addresses, sorted. Interfaces without such an address are left out. When
// the interfaces cannot be listed, the error text is stored under "error".
func ListAllIPs() map[string][]string {
	ips := make(map[string][]string)

	ifaces, err := net.Interfaces()
	if err != nil {
		ips["error"] = []string{err.Error()}
		return ips
	}

	for _, iface := range ifaces {
		if iface.Flags&net.FlagUp == 0 {
			continue
		}

		addrs, err := iface.Addrs()
		if err != nil {
			continue
		}

		if v4 := ipv4Addresses(addrs); len(v4) > 0 {
			ips[iface.Name] = v4
		}
	}

	return ips
}

func ipv4Addresses(addrs []net.Addr) []string {
	var out []string
	for _, addr := range addrs {
		var ip net.IP
		switch v := addr.(type) {
		case *net.IPNet:
			ip = v.IP
		case *net.IPAddr:
			ip = v.IP
		}

		if ip == nil || ip.To4() == nil || ip.IsLoopback() {
			continue
		}
		out = append(out, ip.String())
	}

	slices.Sort(out)
	return out
}

// InterfaceNames returns the interface names of ips in lexical order,
// without the "error" entry.
func InterfaceNames(ips map[string][]string) []string {
	names := make([]string, 0, len(ips))
	for name := range ips {
		if name != "error" {
			names = append(names, name)
		}
	}
	slices.Sort(names)
	return names
}
