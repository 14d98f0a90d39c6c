package dataset

import (
	"bytes"
	"encoding/json"
	"fmt"
	"io"
	"regexp"
	"strconv"
	"strings"
)

// periodKey matches bi-annual count columns such as may07_am, sept12_pm, oct19_md.
var periodKey = regexp.MustCompile(`^[a-z]+\d{2}_(am|pm|md)$`)

type featureCollection struct {
	Type     string    `json:"type"`
	Features []feature `json:"features"`
}

type feature struct {
	Properties map[string]interface{} `json:"properties"`
	Geometry   map[string]interface{} `json:"geometry"`
}

// DecodePedestrianCounts decodes a JSON array of observation objects or a
// GeoJSON FeatureCollection. Records without usable coordinates are skipped;
// the number skipped is returned alongside the records.
func DecodePedestrianCounts(r io.Reader) ([]PedestrianCount, int, error) {
	raw, err := decodeRecords(r)
	if err != nil {
		return nil, 0, fmt.Errorf("decode pedestrian counts: %w", err)
	}

	var out []PedestrianCount
	skipped := 0
	for _, rec := range raw {
		lat, lng, ok := coordinates(rec, "latitude", "longitude")
		if !ok {
			skipped++
			continue
		}
		pc := PedestrianCount{
			Name:      firstString(rec, "name", "loc", "street_nam", "street"),
			Region:    firstString(rec, "region", "borough"),
			Latitude:  lat,
			Longitude: lng,
			Readings:  make(map[string]float64),
		}
		if counts, ok := rec["counts"].(map[string]interface{}); ok {
			for k, v := range counts {
				if f, ok := toFloat(v); ok {
					pc.Readings[k] = f
				}
			}
		}
		for k, v := range rec {
			if !periodKey.MatchString(k) {
				continue
			}
			if f, ok := toFloat(v); ok {
				pc.Readings[k] = f
			}
		}
		out = append(out, pc)
	}
	return out, skipped, nil
}

// DecodeTransitStops accepts the MTA station export shape (stop_name,
// gtfs_latitude, gtfs_longitude, daytime_routes) as well as plain
// name/latitude/longitude/routes objects.
func DecodeTransitStops(r io.Reader) ([]TransitStop, int, error) {
	raw, err := decodeRecords(r)
	if err != nil {
		return nil, 0, fmt.Errorf("decode transit stops: %w", err)
	}

	var out []TransitStop
	skipped := 0
	for _, rec := range raw {
		lat, lng, ok := coordinates(rec, "gtfs_latitude", "gtfs_longitude")
		if !ok {
			lat, lng, ok = coordinates(rec, "latitude", "longitude")
		}
		if !ok {
			skipped++
			continue
		}
		out = append(out, TransitStop{
			Name:      firstString(rec, "stop_name", "name"),
			Latitude:  lat,
			Longitude: lng,
			Routes:    firstString(rec, "daytime_routes", "routes"),
		})
	}
	return out, skipped, nil
}

func decodeRecords(r io.Reader) ([]map[string]interface{}, error) {
	data, err := io.ReadAll(r)
	if err != nil {
		return nil, err
	}
	data = bytes.TrimSpace(data)
	if len(data) == 0 {
		return nil, nil
	}

	if data[0] == '[' {
		var items []json.RawMessage
		if err := json.Unmarshal(data, &items); err != nil {
			return nil, err
		}
		out := make([]map[string]interface{}, 0, len(items))
		for _, item := range items {
			var rec map[string]interface{}
			if err := decodeNumbers(item, &rec); err != nil || rec == nil {
				// counted as skipped by the caller
				out = append(out, map[string]interface{}{})
				continue
			}
			out = append(out, rec)
		}
		return out, nil
	}

	var fc featureCollection
	if err := decodeNumbers(data, &fc); err != nil {
		return nil, err
	}
	if fc.Type != "FeatureCollection" {
		return nil, fmt.Errorf("unsupported document type %q", fc.Type)
	}
	out := make([]map[string]interface{}, 0, len(fc.Features))
	for _, f := range fc.Features {
		rec := make(map[string]interface{}, len(f.Properties)+1)
		for k, v := range f.Properties {
			rec[k] = v
		}
		if f.Geometry != nil {
			rec["the_geom"] = f.Geometry
		}
		out = append(out, rec)
	}
	return out, nil
}

// decodeNumbers keeps numeric values as json.Number so counts and
// coordinates are parsed from their original text.
func decodeNumbers(data []byte, v interface{}) error {
	dec := json.NewDecoder(bytes.NewReader(data))
	dec.UseNumber()
	return dec.Decode(v)
}

// coordinates reads a lat/lng pair from the named keys, falling back to a
// GeoJSON point under "the_geom". (0, 0) is treated as missing.
func coordinates(rec map[string]interface{}, latKey, lngKey string) (float64, float64, bool) {
	lat, latOK := toFloat(rec[latKey])
	lng, lngOK := toFloat(rec[lngKey])
	if !latOK || !lngOK {
		lat, lng, latOK = pointCoordinates(rec["the_geom"])
		lngOK = latOK
	}
	if !latOK || !lngOK || (lat == 0 && lng == 0) {
		return 0, 0, false
	}
	if lat < -90 || lat > 90 || lng < -180 || lng > 180 {
		return 0, 0, false
	}
	return lat, lng, true
}

func pointCoordinates(v interface{}) (float64, float64, bool) {
	geom, ok := v.(map[string]interface{})
	if !ok {
		return 0, 0, false
	}
	if t, _ := geom["type"].(string); t != "" && t != "Point" {
		return 0, 0, false
	}
	coords, ok := geom["coordinates"].([]interface{})
	if !ok || len(coords) < 2 {
		return 0, 0, false
	}
	lng, lngOK := toFloat(coords[0])
	lat, latOK := toFloat(coords[1])
	return lat, lng, lngOK && latOK
}

func toFloat(v interface{}) (float64, bool) {
	switch n := v.(type) {
	case float64:
		return n, true
	case json.Number:
		f, err := n.Float64()
		return f, err == nil
	case string:
		s := strings.ReplaceAll(strings.TrimSpace(n), ",", "")
		if s == "" {
			return 0, false
		}
		f, err := strconv.ParseFloat(s, 64)
		return f, err == nil
	default:
		return 0, false
	}
}

func firstString(rec map[string]interface{}, keys ...string) string {
	for _, k := range keys {
		if s, ok := rec[k].(string); ok && strings.TrimSpace(s) != "" {
			return strings.TrimSpace(s)
		}
	}
	return ""
}
