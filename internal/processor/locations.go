// Package processor handles the downloading and processing of map data.
package processor

import (
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"os"
	"path/filepath"

	"github.com/geodeza/mapmeasure/internal/config"
	"github.com/geodeza/mapmeasure/internal/geo"

	"github.com/paulmach/orb/geojson"
	"github.com/rs/zerolog/log"
)

// ProcessLocations handles the logic for fetching and converting location data.
// It supports inline data from config, ready GeoJSON, and plain point lists.
func ProcessLocations(client *http.Client, m config.Map, force bool) error {
	destDir := filepath.Join("maps", m.Name)
	destFile := filepath.Join(destDir, "locations.geojson")

	// Check if file exists
	if _, err := os.Stat(destFile); err == nil {
		if !force {
			log.Debug().Str("map", m.Name).Msg("Locations file exists, skipping")
			return nil
		}
	}

	var fc *geojson.FeatureCollection
	var err error

	// Inline Data Priority
	if len(m.LocationsInline) > 0 {
		log.Info().
			Str("map", m.Name).
			Msg("Using inline locations data from config")
		fc = geo.LocationsCollection(m.LocationsInline)

	} else if m.LocationsURL != "" {
		// Download Data
		log.Info().
			Str("map", m.Name).
			Str("source", m.LocationsURL).
			Msg("Processing locations from URL")

		fc, err = fetchLocations(client, m.LocationsURL)

	} else {
		return nil
	}

	if err != nil {
		return err
	}

	return saveGeoJSON(destDir, destFile, fc)
}

// fetchLocations downloads location data, accepting either a ready GeoJSON
// FeatureCollection or a plain JSON array of {name, lat, lng, type} points.
func fetchLocations(client *http.Client, url string) (*geojson.FeatureCollection, error) {
	resp, err := client.Get(url)
	if err != nil {
		return nil, err
	}
	// Explicitly ignore close error as it's a read-only operation
	defer func() { _ = resp.Body.Close() }()

	if resp.StatusCode != 200 {
		return nil, fmt.Errorf("status %d", resp.StatusCode)
	}

	data, err := io.ReadAll(resp.Body)
	if err != nil {
		return nil, err
	}

	// Plain point list
	var locs []geo.Location
	if err := json.Unmarshal(data, &locs); err == nil {
		return geo.LocationsCollection(locs), nil
	}

	// GeoJSON passthrough
	fc, err := geojson.UnmarshalFeatureCollection(data)
	if err != nil {
		return nil, fmt.Errorf("unsupported locations format: %w", err)
	}

	return fc, nil
}

// saveGeoJSON marshals the feature collection and writes it to disk.
func saveGeoJSON(dir, path string, fc *geojson.FeatureCollection) error {
	if err := os.MkdirAll(dir, 0755); err != nil {
		return err
	}

	f, err := os.Create(path)
	if err != nil {
		return err
	}

	// We care about write errors on close
	defer func() {
		if closeErr := f.Close(); closeErr != nil {
			log.Error().Err(closeErr).Str("path", path).Msg("Failed to close file")
		}
	}()

	return json.NewEncoder(f).Encode(fc)
}
