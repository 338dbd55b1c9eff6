package main

import (
	"fmt"
	"net/http"
	"os"
	"time"

	"github.com/geodeza/mapmeasure/internal/config"
	"github.com/geodeza/mapmeasure/internal/geo"
	"github.com/geodeza/mapmeasure/internal/logger"
	"github.com/geodeza/mapmeasure/internal/measure"
	"github.com/geodeza/mapmeasure/internal/server"

	"github.com/jessevdk/go-flags"
	"github.com/rs/zerolog/log"
)

type Options struct {
	Logger logger.Logger `group:"Logger options"`

	ConfigFile string        `short:"c" long:"config"      env:"CONFIG_FILE"     description:"Path to configuration file"      default:"config.yaml"`
	Addr       string        `short:"a" long:"addr"        env:"LISTEN_ADDRESS"  description:"Address to listen on"            default:"0.0.0.0"`
	Port       int           `short:"p" long:"port"        env:"LISTEN_PORT"     description:"Port to listen on"               default:"8080"`
	ZoomLimit  int           `short:"z" long:"zoom-limit"  env:"ZOOM_LIMIT"      description:"Tiles zoom limit"                default:"6"`
	SessionTTL time.Duration `short:"t" long:"session-ttl" env:"SESSION_TTL"     description:"Idle measurement session expiry" default:"30m"`
}

func main() {
	var opts Options
	parser := flags.NewParser(&opts, flags.Default)
	if _, err := parser.Parse(); err != nil {
		if flagsErr, ok := err.(*flags.Error); ok && flagsErr.Type == flags.ErrHelp {
			os.Exit(0)
		}
		os.Exit(1)
	}

	// Setup Logging
	opts.Logger.Setup()

	// Load Config
	cfg, err := config.Load(opts.ConfigFile)
	if err != nil {
		log.Fatal().Err(err).Msg("Failed to load configuration")
	}

	if cfg.ZoomLimit <= 0 {
		if opts.ZoomLimit <= 0 {
			cfg.ZoomLimit = 6
		} else {
			cfg.ZoomLimit = opts.ZoomLimit
		}
	}

	sessionTTL := time.Duration(cfg.SessionTTL)
	if sessionTTL <= 0 {
		sessionTTL = opts.SessionTTL
	}

	// Measurement sessions
	sessions := measure.NewManager(measure.NewEngine(geo.Spherical{}))
	if sessionTTL > 0 {
		stop := make(chan struct{})
		defer close(stop)
		go sessions.Janitor(time.Minute, sessionTTL, stop)
	}

	srvCtx := server.NewServerContext(cfg, sessions)

	// Routes
	mux := http.NewServeMux()
	mux.HandleFunc("/api/maps", srvCtx.HandleMapsList)
	mux.HandleFunc("/api/sessions", srvCtx.HandleSessions)
	mux.HandleFunc("/api/sessions/", srvCtx.HandleSessions)
	mux.HandleFunc("/favicon.ico", srvCtx.HandleFavicon)
	mux.HandleFunc("/maps/", srvCtx.HandleTileOrLoc)
	mux.HandleFunc("/", srvCtx.HandleIndex)

	handler := server.RequestLogger(mux)

	listenAddr := fmt.Sprintf("%s:%d", opts.Addr, opts.Port)
	log.Info().
		Str("addr", listenAddr).
		Int("maps_loaded", len(cfg.Maps)).
		Int("default_zoom", cfg.ZoomLimit).
		Dur("session_ttl", sessionTTL).
		Msg("Web server started")

	if err := http.ListenAndServe(listenAddr, handler); err != nil {
		log.Fatal().Err(err).Msg("Server failed")
	}
}
