// Package ipgeo maps client addresses to ISO 3166-1 alpha-2 country codes
// using a MaxMind MMDB file, for the submission inbox.
package ipgeo

import (
	"net/netip"

	"github.com/oschwald/maxminddb-golang/v2"
)

// Special codes returned for addresses that have no country.
const (
	Local     = "local"
	Tailscale = "tailscale"
)

// Checker resolves addresses. A nil *Checker classifies local and tailscale
// addresses and returns "" for everything else.
type Checker struct {
	reader *maxminddb.Reader
}

// Open opens an MMDB file. An empty path returns a nil Checker.
func Open(dbPath string) (*Checker, error) {
	if dbPath == "" {
		return nil, nil
	}
	r, err := maxminddb.Open(dbPath)
	if err != nil {
		return nil, err
	}
	return &Checker{reader: r}, nil
}

// Close releases the MMDB reader.
func (c *Checker) Close() error {
	if c == nil {
		return nil
	}
	return c.reader.Close()
}

type countryRecord struct {
	Country struct {
		ISOCode string `maxminddb:"iso_code"`
	} `maxminddb:"country"`
}

// tailscalePrefix is the Tailscale CGNAT range.
var tailscalePrefix = netip.MustParsePrefix("100.64.0.0/10")

// CountryCode returns the country of ip, Local for loopback, private,
// link-local and unspecified addresses, Tailscale for the CGNAT range and ""
// when unknown.
func (c *Checker) CountryCode(ip string) string {
	addr, err := netip.ParseAddr(ip)
	if err != nil {
		return ""
	}
	addr = addr.Unmap()
	switch {
	case addr.IsLoopback(), addr.IsPrivate(), addr.IsUnspecified(), addr.IsLinkLocalUnicast():
		return Local
	case tailscalePrefix.Contains(addr):
		return Tailscale
	case c == nil || c.reader == nil:
		return ""
	}
	var rec countryRecord
	if err := c.reader.Lookup(addr).Decode(&rec); err != nil {
		return ""
	}
	return rec.Country.ISOCode
}
