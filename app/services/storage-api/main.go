package main

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/ardanlabs/conf/v3"
	"github.com/ardanlabs/simplestorage/app/services/storage-api/handlers"
	"github.com/ardanlabs/simplestorage/app/services/storage-api/handlers/v1/blockchaingrp"
	"github.com/ardanlabs/simplestorage/business/core/value"
	"github.com/ardanlabs/simplestorage/foundation/contract"
	"github.com/ardanlabs/simplestorage/foundation/events"
	"github.com/ardanlabs/simplestorage/foundation/logger"
	"github.com/ardanlabs/simplestorage/foundation/network"
	"github.com/ardanlabs/simplestorage/foundation/ratelimit"
	"github.com/ethereum/go-ethereum/ethclient"
	"go.uber.org/zap"
)

// build is the git version of this program. It is set using build flags in the makefile.
var build = "develop"

func main() {

	// Construct the application logger.
	log, err := logger.New("STORAGE-API")
	if err != nil {
		fmt.Println(err)
		os.Exit(1)
	}
	defer log.Sync()

	// Perform the startup and shutdown sequence.
	if err := run(log); err != nil {
		log.Errorw("startup", "ERROR", err)
		log.Sync()
		os.Exit(1)
	}
}

func run(log *zap.SugaredLogger) error {

	// =========================================================================
	// Configuration

	cfg := struct {
		conf.Version
		Web struct {
			ReadTimeout     time.Duration `conf:"default:5s"`
			WriteTimeout    time.Duration `conf:"default:10s"`
			IdleTimeout     time.Duration `conf:"default:120s"`
			ShutdownTimeout time.Duration `conf:"default:20s"`
			APIHost         string        `conf:"default:0.0.0.0:3000"`
			DebugHost       string        `conf:"default:0.0.0.0:4000"`
			CORSOrigin      string        `conf:"default:*"`
			RateLimitRPS    float64       `conf:"default:10"`
			RateLimitBurst  int           `conf:"default:20"`
		}
		Chain struct {
			Network      string        `conf:"default:fuji"`
			NetworksFile string        `conf:"help:path to a YAML file of additional network presets"`
			RPCURL       string        `conf:"help:overrides the rpc url of the network preset"`
			Contract     string        `conf:"help:overrides the contract address of the network preset"`
			RPCTimeout   time.Duration `conf:"default:10s"`
		}
		Events struct {
			Window       uint64        `conf:"default:2000"`
			MaxRange     uint64        `conf:"default:2048"`
			Stream       bool          `conf:"default:true"`
			PollInterval time.Duration `conf:"default:5s"`
		}
	}{
		Version: conf.Version{
			Build: build,
			Desc:  "SimpleStorage value and history service",
		},
	}

	const prefix = "STORAGE"
	help, err := conf.Parse(prefix, &cfg)
	if err != nil {
		if errors.Is(err, conf.ErrHelpWanted) {
			fmt.Println(help)
			return nil
		}
		return fmt.Errorf("parsing config: %w", err)
	}

	// =========================================================================
	// App Starting

	log.Infow("starting service", "version", build)
	defer log.Infow("shutdown complete")

	out, err := conf.String(&cfg)
	if err != nil {
		return fmt.Errorf("generating config for output: %w", err)
	}
	log.Infow("startup", "config", out)

	// =========================================================================
	// Network Support

	// The network presets provide the rpc url and contract deployment for
	// each known chain. Values set in the configuration take precedence.
	networks, err := network.Load(cfg.Chain.NetworksFile)
	if err != nil {
		return fmt.Errorf("loading network presets: %w", err)
	}

	chain, err := networks.Lookup(cfg.Chain.Network)
	if err != nil {
		return fmt.Errorf("known networks %v: %w", networks.Names(), err)
	}

	if cfg.Chain.RPCURL != "" {
		chain.RPCURL = cfg.Chain.RPCURL
	}

	if cfg.Chain.Contract != "" {
		chain.Contract = cfg.Chain.Contract
	}

	address, err := chain.ContractAddress()
	if err != nil {
		return err
	}

	log.Infow("startup", "status", "network selected", "network", chain.Name, "chainid", chain.ChainID, "rpc", chain.RPCURL)

	// =========================================================================
	// Blockchain Support

	ctx, cancel := context.WithTimeout(context.Background(), cfg.Chain.RPCTimeout)
	defer cancel()

	client, err := ethclient.DialContext(ctx, chain.RPCURL)
	if err != nil {
		return fmt.Errorf("connecting to rpc %s: %w", chain.RPCURL, err)
	}
	defer client.Close()

	ss, err := contract.New(address, client)
	if err != nil {
		return fmt.Errorf("binding contract: %w", err)
	}

	log.Infow("startup", "status", "contract bound", "address", ss.Address(), "deployblock", chain.DeployBlock)

	core := value.NewCore(log, ss, value.Config{
		Window:     cfg.Events.Window,
		MaxRange:   cfg.Events.MaxRange,
		StartBlock: chain.DeployBlock,
		RPCTimeout: cfg.Chain.RPCTimeout,
	})

	// The events value fans new updates out to any websocket client that
	// is connected through the stream endpoint.
	var evts *events.Events
	if cfg.Events.Stream {
		evts = events.New()

		watcher := value.RunWatcher(core, cfg.Events.PollInterval, blockchaingrp.Publisher(log, evts))
		defer watcher.Shutdown()
	}

	// =========================================================================
	// Start Debug Service

	log.Infow("startup", "status", "debug v1 router started", "host", cfg.Web.DebugHost)

	// The Debug function returns a mux to listen and serve on for all the debug
	// related endpoints. This includes the standard library endpoints.

	// Construct the mux for the debug calls.
	debugMux := handlers.DebugMux(build, log, core)

	// Start the service listening for debug requests.
	// Not concerned with shutting this down with load shedding.
	go func() {
		if err := http.ListenAndServe(cfg.Web.DebugHost, debugMux); err != nil {
			log.Errorw("shutdown", "status", "debug v1 router closed", "host", cfg.Web.DebugHost, "ERROR", err)
		}
	}()

	// =========================================================================
	// Start API Service

	log.Infow("startup", "status", "initializing V1 API support")

	// Make a channel to listen for an interrupt or terminate signal from the OS.
	// Use a buffered channel because the signal package requires it.
	shutdown := make(chan os.Signal, 1)
	signal.Notify(shutdown, syscall.SIGINT, syscall.SIGTERM)

	// Construct the mux for the API calls.
	apiMux := handlers.APIMux(handlers.APIMuxConfig{
		Shutdown:   shutdown,
		Log:        log,
		Value:      core,
		Evts:       evts,
		CORSOrigin: cfg.Web.CORSOrigin,
		Limiter:    ratelimit.New(cfg.Web.RateLimitRPS, cfg.Web.RateLimitBurst, 10*time.Minute),
	})

	// Construct a server to service the requests against the mux.
	api := http.Server{
		Addr:         cfg.Web.APIHost,
		Handler:      apiMux,
		ReadTimeout:  cfg.Web.ReadTimeout,
		WriteTimeout: cfg.Web.WriteTimeout,
		IdleTimeout:  cfg.Web.IdleTimeout,
		ErrorLog:     zap.NewStdLog(log.Desugar()),
	}

	// Make a channel to listen for errors coming from the listener. Use a
	// buffered channel so the goroutine can exit if we don't collect this error.
	serverErrors := make(chan error, 1)

	// Start the service listening for api requests.
	go func() {
		log.Infow("startup", "status", "api router started", "host", api.Addr)
		serverErrors <- api.ListenAndServe()
	}()

	// =========================================================================
	// Shutdown

	// Blocking main and waiting for shutdown.
	select {
	case err := <-serverErrors:
		return fmt.Errorf("server error: %w", err)

	case sig := <-shutdown:
		log.Infow("shutdown", "status", "shutdown started", "signal", sig)
		defer log.Infow("shutdown", "status", "shutdown complete", "signal", sig)

		// Release any web sockets that are currently active.
		if evts != nil {
			log.Infow("shutdown", "status", "shutdown web socket channels")
			evts.Shutdown()
		}

		// Give outstanding requests a deadline for completion.
		ctx, cancel := context.WithTimeout(context.Background(), cfg.Web.ShutdownTimeout)
		defer cancel()

		// Asking listener to shut down and shed load.
		if err := api.Shutdown(ctx); err != nil {
			api.Close()
			return fmt.Errorf("could not stop server gracefully: %w", err)
		}
	}

	return nil
}
