// Package importer parses external stop lists into import payloads.
package importer

import (
    "encoding/csv"
    "fmt"
    "io"
    "strconv"
    "strings"

    "routepilot/internal/model"
)

// ParseCSV reads stops from CSV. The first row is a header; recognized
// columns are address, label, lat, lng, notes (any order, case-insensitive).
// Rows with a lat/lng pair come in pre-geocoded.
func ParseCSV(r io.Reader) ([]model.StopIn, error) {
    cr := csv.NewReader(r)
    cr.TrimLeadingSpace = true
    header, err := cr.Read()
    if err != nil {
        return nil, fmt.Errorf("read header: %w", err)
    }
    col := map[string]int{}
    for i, h := range header {
        col[strings.ToLower(strings.TrimSpace(h))] = i
    }
    if _, ok := col["address"]; !ok {
        return nil, fmt.Errorf("missing address column")
    }
    field := func(rec []string, name string) string {
        i, ok := col[name]
        if !ok || i >= len(rec) { return "" }
        return strings.TrimSpace(rec[i])
    }
    var out []model.StopIn
    line := 1
    for {
        rec, err := cr.Read()
        if err == io.EOF {
            break
        }
        line++
        if err != nil {
            return nil, fmt.Errorf("line %d: %w", line, err)
        }
        in := model.StopIn{
            RawAddress: field(rec, "address"),
            Label:      field(rec, "label"),
            Notes:      field(rec, "notes"),
        }
        latS, lngS := field(rec, "lat"), field(rec, "lng")
        if latS != "" && lngS != "" {
            lat, errLat := strconv.ParseFloat(latS, 64)
            lng, errLng := strconv.ParseFloat(lngS, 64)
            if errLat != nil || errLng != nil {
                return nil, fmt.Errorf("line %d: bad coordinates %q,%q", line, latS, lngS)
            }
            in.Geo = &model.GeoPoint{Lat: lat, Lng: lng}
        }
        if in.RawAddress == "" && in.Geo == nil {
            return nil, fmt.Errorf("line %d: empty row", line)
        }
        out = append(out, in)
    }
    if len(out) == 0 {
        return nil, fmt.Errorf("no stops in file")
    }
    return out, nil
}
