package registry

import (
	"net"
	"strings"
)

// NetworkType classifies the advertised IP/hostname of a node, feeding the
// count() query's ipv4/ipv6/onion breakdown.
type NetworkType uint8

const (
	NetUnknown NetworkType = iota
	NetIPv4
	NetIPv6
	NetOnion
)

// ClassifyNetwork inspects a node's advertised address string (which may or
// may not carry a ":port" suffix) and reports its network type.
func ClassifyNetwork(addr string) NetworkType {
	host := addr
	if h, _, err := net.SplitHostPort(addr); err == nil {
		host = h
	}

	if strings.HasSuffix(strings.ToLower(host), ".onion") {
		return NetOnion
	}

	ip := net.ParseIP(host)
	if ip == nil {
		return NetUnknown
	}
	if ip.To4() != nil {
		return NetIPv4
	}
	return NetIPv6
}
