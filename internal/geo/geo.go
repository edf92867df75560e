// Package geo derives coarse visitor location for visit records.
//
// Trusted edge headers win. Without them the configured locators are tried in
// order and the first non-empty answer is used. Lookup failures never surface:
// the caller gets an empty Location and stores null geo fields.
package geo

import (
	"context"
	"net/netip"
	"strings"

	"go.uber.org/zap"
)

type Location struct {
	Country string
	Region  string
	City    string
}

func (l Location) Empty() bool {
	return l.Country == "" && l.Region == "" && l.City == ""
}

// Locator resolves an IP address to a location.
type Locator interface {
	Locate(ctx context.Context, ip string) (Location, error)
}

// Chain combines edge hints with fallback locators.
type Chain struct {
	locators []Locator
	logger   *zap.Logger
}

func NewChain(logger *zap.Logger, locators ...Locator) *Chain {
	return &Chain{locators: locators, logger: logger}
}

// Resolve never fails; it returns whatever could be determined.
func (c *Chain) Resolve(ctx context.Context, ip string, hints Location) Location {
	hints = clean(hints)
	if hints.Country != "" {
		return hints
	}

	if !IsPublicIP(ip) {
		return hints
	}

	for _, l := range c.locators {
		loc, err := l.Locate(ctx, ip)
		if err != nil {
			c.logger.Debug("Geo lookup failed", zap.String("ip", ip), zap.Error(err))
			continue
		}
		if loc = clean(loc); !loc.Empty() {
			return loc
		}
	}

	return hints
}

// IsPublicIP reports whether ip is worth an external lookup.
func IsPublicIP(ip string) bool {
	addr, err := netip.ParseAddr(strings.TrimSpace(ip))
	if err != nil {
		return false
	}
	return !(addr.IsLoopback() || addr.IsPrivate() || addr.IsUnspecified() ||
		addr.IsLinkLocalUnicast() || addr.IsMulticast())
}

// Edge networks send "XX" or "T1" for unknown/Tor traffic.
func clean(l Location) Location {
	l.Country = strings.TrimSpace(l.Country)
	if strings.EqualFold(l.Country, "XX") || strings.EqualFold(l.Country, "T1") {
		l.Country = ""
	}
	l.Region = strings.TrimSpace(l.Region)
	l.City = strings.TrimSpace(l.City)
	return l
}
