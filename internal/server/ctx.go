package server

import (
	"os"
	"path/filepath"
	"sort"

	"github.com/rs/zerolog/log"

	"github.com/geodeza/mapmeasure/assets"
	"github.com/geodeza/mapmeasure/internal/config"
	"github.com/geodeza/mapmeasure/internal/measure"
)

// ServerContext holds dependencies for request handlers.
type ServerContext struct {
	Config          *config.Config
	Sessions        *measure.Manager
	MapNameResolver map[string]string
	IndexHTML       []byte
	Favicon         []byte
	BlankTile       []byte
}

// NewServerContext initializes the context and processes the map configuration.
// It filters out maps with missing assets and sets up the name resolver.
func NewServerContext(cfg *config.Config, sessions *measure.Manager) *ServerContext {
	log.Info().Int("config_maps_count", len(cfg.Maps)).Msg("Initializing server context")

	resolver := make(map[string]string)
	validMaps := make([]config.Map, 0, len(cfg.Maps))

	// Normalize and Sort
	for i := range cfg.Maps {
		world := &cfg.Maps[i]

		if world.ZoomLimit <= 0 {
			world.ZoomLimit = cfg.ZoomLimit
		}
		if world.Attribution == "" {
			world.Attribution = cfg.Attribution
		}

		// Check for cache existence
		mapBaseDir := filepath.Join("maps", world.Name)

		// Check Street
		if world.Street == "" {
			world.NoStreet = true
			log.Trace().
				Str("map", world.Name).
				Msg("Street layer skipped: no source in config")
		} else {
			streetDir := filepath.Join(mapBaseDir, "street")
			if _, err := os.Stat(streetDir); os.IsNotExist(err) {
				world.NoStreet = true
				log.Trace().
					Str("map", world.Name).
					Str("path", streetDir).
					Msg("Street layer skipped: directory not found")
			} else {
				log.Trace().
					Str("map", world.Name).
					Msg("Street layer found")
			}
		}

		// Check Satellite
		if world.Satellite == "" {
			world.NoSatellite = true
			log.Trace().
				Str("map", world.Name).
				Msg("Satellite layer skipped: no source in config")
		} else {
			satDir := filepath.Join(mapBaseDir, "satellite")
			if _, err := os.Stat(satDir); os.IsNotExist(err) {
				world.NoSatellite = true
				log.Trace().
					Str("map", world.Name).
					Str("path", satDir).
					Msg("Satellite layer skipped: directory not found")
			} else {
				log.Trace().
					Str("map", world.Name).
					Msg("Satellite layer found")
			}
		}

		if world.NoStreet && world.NoSatellite {
			log.Warn().
				Str("map", world.Name).
				Msg("Skipping map: no valid layers found (neither street nor satellite)")
			continue
		}

		// Setup Resolver
		resolver[world.Name] = world.Name
		for _, alias := range world.Aliases {
			resolver[alias] = world.Name
		}

		log.Debug().
			Str("map", world.Name).
			Bool("street", !world.NoStreet).
			Bool("sat", !world.NoSatellite).
			Msg("Map validated and added to context")

		validMaps = append(validMaps, *world)
	}

	cfg.Maps = validMaps

	sort.Slice(cfg.Maps, func(i, j int) bool {
		idxI, idxJ := 999999, 999999
		if cfg.Maps[i].Index != nil {
			idxI = *cfg.Maps[i].Index
		}
		if cfg.Maps[j].Index != nil {
			idxJ = *cfg.Maps[j].Index
		}
		if idxI != idxJ {
			return idxI < idxJ
		}

		return cfg.Maps[i].Name < cfg.Maps[j].Name
	})

	log.Info().
		Int("valid_maps_count", len(cfg.Maps)).
		Msg("Server context initialized successfully")

	return &ServerContext{
		Config:          cfg,
		Sessions:        sessions,
		IndexHTML:       assets.Index,
		Favicon:         assets.Favicon,
		BlankTile:       assets.BlankTile,
		MapNameResolver: resolver,
	}
}
