package types

import (
	"encoding/binary"
	"encoding/hex"
	"math"
	"testing"
)

func TestGeographyPointValueIsEWKT(t *testing.T) {
	v, err := GeographyPoint{Lat: 12.5, Lng: 77.25}.Value()
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if v != "SRID=4326;POINT(77.25 12.5)" {
		t.Fatalf("unexpected literal %v", v)
	}
}

func TestGeographyPointScanText(t *testing.T) {
	var p GeographyPoint
	if err := p.Scan("SRID=4326;POINT(77.25 12.5)"); err != nil {
		t.Fatalf("scan failed: %v", err)
	}
	if p.Lat != 12.5 || p.Lng != 77.25 {
		t.Fatalf("unexpected point %+v", p)
	}
}

func TestGeographyPointScanHexEWKB(t *testing.T) {
	buf := make([]byte, 25)
	buf[0] = 1
	binary.LittleEndian.PutUint32(buf[1:5], 1|ewkbSRIDFlag)
	binary.LittleEndian.PutUint32(buf[5:9], 4326)
	binary.LittleEndian.PutUint64(buf[9:17], math.Float64bits(-73.9857))
	binary.LittleEndian.PutUint64(buf[17:25], math.Float64bits(40.7484))

	var p GeographyPoint
	if err := p.Scan(hex.EncodeToString(buf)); err != nil {
		t.Fatalf("scan failed: %v", err)
	}
	if p.Lat != 40.7484 || p.Lng != -73.9857 {
		t.Fatalf("unexpected point %+v", p)
	}

	var raw GeographyPoint
	if err := raw.Scan(buf); err != nil {
		t.Fatalf("binary scan failed: %v", err)
	}
	if raw != p {
		t.Fatalf("binary and hex scans disagree: %+v vs %+v", raw, p)
	}
}

func TestGeographyPointScanRejectsGarbage(t *testing.T) {
	var p GeographyPoint
	if err := p.Scan("LINESTRING(0 0, 1 1)"); err == nil {
		t.Fatalf("expected error for non-point geometry")
	}
	if err := p.Scan(42); err == nil {
		t.Fatalf("expected error for unsupported type")
	}
}
