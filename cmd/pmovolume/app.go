package main

import (
	"fmt"

	"gargoton.petite-maison-orange.fr/eric/pmovolume/config"
	"gargoton.petite-maison-orange.fr/eric/pmovolume/mainvolume"
	"gargoton.petite-maison-orange.fr/eric/pmovolume/pmolog"
	"gargoton.petite-maison-orange.fr/eric/pmovolume/pmometrics"
	"gargoton.petite-maison-orange.fr/eric/pmovolume/pmoupnp"
	"gargoton.petite-maison-orange.fr/eric/pmovolume/profiles"
	"gargoton.petite-maison-orange.fr/eric/pmovolume/ssdp"
	log "github.com/sirupsen/logrus"
	"golang.org/x/time/rate"
)

const deviceName = "mainvolume"

type appOptions struct {
	mode string
	port int

	// serve enables what only matters for a running server: the web logger
	// and the SSDP announcements.
	serve bool
}

type app struct {
	volume     *mainvolume.Service
	controller *profiles.Controller
	service    *pmoupnp.Service
	device     *pmoupnp.Device
	server     *pmoupnp.Server
	metrics    *pmometrics.Recorder
}

func loadProfiles(cfg *config.Config) (*profiles.Table, error) {
	var list []profiles.Profile
	if err := cfg.Decode([]string{"profiles"}, &list); err != nil {
		log.Debugf("⚠️ No profiles configured: %v", err)
	}

	return profiles.NewTable(list...)
}

func newApp(cfg *config.Config, opts appOptions) (*app, error) {
	a := &app{metrics: pmometrics.NewRecorder()}

	table, err := loadProfiles(cfg)
	if err != nil {
		return nil, fmt.Errorf("invalid profiles: %w", err)
	}

	mode := opts.mode
	if mode == "" {
		mode = cfg.GetInitialMode()
	}
	profile, _ := table.Lookup(mode)

	state, err := mainvolume.NewState(profile.Steps(false), cfg.GetInitialStep(), cfg.GetInterfaceRevision())
	if err != nil {
		return nil, fmt.Errorf("invalid initial volume state: %w", err)
	}

	volumeOpts := []mainvolume.Option{
		mainvolume.WithMetrics(a.metrics),
		mainvolume.WithMaxStepCount(cfg.GetMaxStepCount()),
	}
	if r := cfg.GetStepCountRate(); r > 0 {
		volumeOpts = append(volumeOpts, mainvolume.WithStepCountLimiter(
			rate.NewLimiter(rate.Limit(r), cfg.GetStepCountBurst()),
		))
	}
	a.volume = mainvolume.NewService(state, volumeOpts...)

	a.controller, err = profiles.NewController(a.volume, table, mode, nil)
	if err != nil {
		return nil, fmt.Errorf("cannot apply mode %s: %w", mode, err)
	}

	a.service = pmoupnp.NewService(a.volume,
		pmoupnp.WithModeController(a.controller),
		pmoupnp.WithControlMetrics(a.metrics),
		pmoupnp.WithEventingConfig(pmoupnp.EventingConfig{
			DefaultTimeout: cfg.GetEventingTimeout(),
			QueueSize:      cfg.GetEventQueueSize(),
			NotifyTimeout:  cfg.GetNotifyTimeout(),
		}),
	)

	a.device = pmoupnp.NewDevice(cfg.GetDeviceUDN(deviceName), cfg.GetFriendlyName(), a.service)

	port := opts.port
	if port == 0 {
		port = cfg.GetHTTPPort()
	}

	serverOpts := []pmoupnp.ServerOption{
		pmoupnp.WithHTTPPort(port),
		pmoupnp.WithMetricsHandler(a.metrics.Handler()),
	}
	if url := cfg.GetBaseURL(); url != "" {
		serverOpts = append(serverOpts, pmoupnp.WithBaseURL(url))
	}
	if opts.serve && cfg.GetLogWeb() {
		serverOpts = append(serverOpts, pmoupnp.WithWebLogger(pmolog.NewWebLogger(0)))
	}
	if opts.serve && cfg.GetSSDPEnabled() {
		serverOpts = append(serverOpts, pmoupnp.WithSSDP(ssdp.NewSSDPServer(cfg.GetSSDPMaxAge())))
	}

	a.server, err = pmoupnp.NewServer("pmovolume", a.device, serverOpts...)
	if err != nil {
		return nil, err
	}

	return a, nil
}
