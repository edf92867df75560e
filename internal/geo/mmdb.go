package geo

import (
	"context"
	"errors"
	"fmt"
	"net"

	"github.com/oschwald/geoip2-golang"
)

var ErrInvalidIP = errors.New("invalid ip address")

// MMDBLocator reads a local MaxMind GeoIP2/GeoLite2 City database.
type MMDBLocator struct {
	reader *geoip2.Reader
}

func OpenMMDB(path string) (*MMDBLocator, error) {
	reader, err := geoip2.Open(path)
	if err != nil {
		return nil, fmt.Errorf("failed to open geoip database: %w", err)
	}
	return &MMDBLocator{reader: reader}, nil
}

func (m *MMDBLocator) Locate(_ context.Context, ip string) (Location, error) {
	parsed := net.ParseIP(ip)
	if parsed == nil {
		return Location{}, ErrInvalidIP
	}

	record, err := m.reader.City(parsed)
	if err != nil {
		return Location{}, err
	}

	loc := Location{
		Country: record.Country.IsoCode,
		City:    record.City.Names["en"],
	}
	if len(record.Subdivisions) > 0 {
		loc.Region = record.Subdivisions[0].Names["en"]
	}
	return loc, nil
}

func (m *MMDBLocator) Close() error {
	return m.reader.Close()
}
