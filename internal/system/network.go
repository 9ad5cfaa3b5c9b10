package system

import (
	"net"
	"strings"
)

// LANAddress returns the first non-loopback IPv4 address of an interface
// that is up, or "" when there is none.
func LANAddress() string {
	ifaces, err := net.Interfaces()
	if err != nil {
		return ""
	}
	for _, iface := range ifaces {
		if iface.Flags&net.FlagUp == 0 || iface.Flags&net.FlagLoopback != 0 {
			continue
		}
		addrs, err := iface.Addrs()
		if err != nil {
			continue
		}
		if ip := firstIPv4(addrs); ip != "" {
			return ip
		}
	}
	return ""
}

func firstIPv4(addrs []net.Addr) string {
	for _, addr := range addrs {
		var ip net.IP
		switch v := addr.(type) {
		case *net.IPNet:
			ip = v.IP
		case *net.IPAddr:
			ip = v.IP
		}
		if ip4 := ip.To4(); ip4 != nil && !ip4.IsLoopback() && !ip4.IsLinkLocalUnicast() {
			return ip4.String()
		}
	}
	return ""
}

// BoardURL turns a listen address into the URL a browser should open.
// Wildcard hosts are replaced by lanIP, or by 127.0.0.1 when lanIP is empty.
func BoardURL(listenAddr, lanIP string) string {
	host, port, err := net.SplitHostPort(listenAddr)
	if err != nil {
		host, port = strings.TrimSpace(listenAddr), "80"
	}
	switch host {
	case "", "0.0.0.0", "::":
		host = lanIP
		if host == "" {
			host = "127.0.0.1"
		}
	}
	url := "http://" + net.JoinHostPort(host, port)
	if port == "80" {
		url = "http://" + host
		if strings.Contains(host, ":") {
			url = "http://[" + host + "]"
		}
	}
	return url + "/"
}
