package config

import (
	"net"
	"strings"
)

// developmentTags are the environment-tag values treated as a strong
// development indicator (spec.md §4.1).
var developmentTags = map[string]bool{
	"development": true,
	"test":        true,
}

// privateRanges are the weak development indicators: private IPv4 blocks
// that only count as "development" when paired with a development-tagged
// environment (spec.md §4.1).
var privateRanges = []string{
	"10.0.0.0/8",
	"172.16.0.0/12",
	"192.168.0.0/16",
}

// DeriveTrustServerCertificate implements spec.md §4.1's context-aware SSL
// trust policy. It is a pure function: given the same (host, environment)
// pair it always returns the same answer and consults no global state
// (spec.md §8, "Trust derivation purity").
func DeriveTrustServerCertificate(host, environment string) bool {
	env := strings.ToLower(strings.TrimSpace(environment))
	h := strings.ToLower(strings.TrimSpace(host))

	isDevTag := developmentTags[env]

	// Strong indicators: trust regardless of the other signal.
	if isDevTag || h == "localhost" || h == "127.0.0.1" {
		return true
	}

	// Weak indicators: trust only alongside a development-tagged environment.
	if strings.HasSuffix(h, ".local") || isPrivateIPv4(h) {
		return isDevTag
	}

	return false
}

func isPrivateIPv4(host string) bool {
	ip := net.ParseIP(host)
	if ip == nil || ip.To4() == nil {
		return false
	}

	for _, cidr := range privateRanges {
		_, block, err := net.ParseCIDR(cidr)
		if err != nil {
			continue
		}

		if block.Contains(ip) {
			return true
		}
	}

	return false
}
