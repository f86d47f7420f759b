// Command swapd is the off-chain swap coordinator daemon: it loads
// its configuration, opens the durable trade store, wires the two
// chain adapters and the wallet credential container, rehydrates any
// trades left over from a previous run, and serves the HTTP API of
// spec.md §6 while the progression loop advances trades in the
// background.
package main

import (
	"context"
	"fmt"
	"net/http"
	"os"
	"os/signal"
	"path/filepath"
	"syscall"
	"time"

	flags "github.com/jessevdk/go-flags"

	"github.com/stealthreserve/swapd/chainadapter/monero"
	"github.com/stealthreserve/swapd/chainadapter/solana"
	"github.com/stealthreserve/swapd/config"
	"github.com/stealthreserve/swapd/coordinator"
	"github.com/stealthreserve/swapd/httpapi"
	"github.com/stealthreserve/swapd/metrics"
	"github.com/stealthreserve/swapd/quote"
	"github.com/stealthreserve/swapd/secretbox"
	"github.com/stealthreserve/swapd/store"
)

// options are the command-line flags swapd accepts; everything else
// comes from the YAML config file named by --config or
// config.EnvConfigPath.
type options struct {
	ConfigPath string `short:"c" long:"config" description:"path to the YAML config file"`
	LogDir     string `long:"logdir" description:"directory for the rotating log file" default:"./logs"`
	LogLevel   string `long:"loglevel" description:"trace|debug|info|warn|error|critical" default:"info"`
}

// rpcCacheSize bounds how many swap_ids the chain-A adapter's recency
// cache tracks at once.
const rpcCacheSize = 4096

func main() {
	if err := run(); err != nil {
		fmt.Fprintln(os.Stderr, "swapd:", err)
		os.Exit(1)
	}
}

func run() error {
	var opts options
	if _, err := flags.Parse(&opts); err != nil {
		if flags.WroteHelp(err) {
			return nil
		}
		return err
	}

	if err := os.MkdirAll(opts.LogDir, 0o700); err != nil {
		return fmt.Errorf("create log directory: %w", err)
	}
	rotator, err := initLogRotator(filepath.Join(opts.LogDir, "swapd.log"))
	if err != nil {
		return fmt.Errorf("init logging: %w", err)
	}
	defer rotator.Close()
	setLogLevel(opts.LogLevel)

	log := subsystemLogger("SWPD")

	cfgPath := opts.ConfigPath
	if cfgPath == "" {
		cfgPath = config.PathFromEnv()
	}
	cfg, err := config.Load(cfgPath)
	if err != nil {
		return fmt.Errorf("load config: %w", err)
	}
	log.Infof("loaded config from %s", cfgPath)

	walletPassword, err := cfg.MoneroPassword()
	if err != nil {
		return err
	}
	walletSecret, err := secretbox.New([]byte(walletPassword))
	if err != nil {
		return fmt.Errorf("seal wallet credential: %w", err)
	}
	defer walletSecret.Close()

	st, err := store.Open(cfg.Database.Path)
	if err != nil {
		return fmt.Errorf("open store: %w", err)
	}
	defer st.Close()

	chainA := solana.New(cfg.Solana.RPCURL, rpcCacheSize)
	chainB := monero.New(cfg.Monero.WalletRPCURL, walletSecret)

	amounts := quote.Range{Min: cfg.Quoting.MinUSDC, Max: cfg.Quoting.MaxUSDC}
	quotes := quote.NewManager(amounts)

	reg := metrics.NewRegistry()

	webhookURL := os.Getenv(config.EnvFailWebhookURL)

	co := coordinator.New(coordinator.Config{
		Quotes:     quotes,
		Store:      st,
		ChainA:     chainA,
		ChainB:     chainB,
		Metrics:    reg,
		WebhookURL: webhookURL,
		HTTPClient: &http.Client{Timeout: 10 * time.Second},
		Log:        subsystemLogger("COOR"),
	})
	if err := co.Rehydrate(); err != nil {
		return fmt.Errorf("rehydrate trades: %w", err)
	}

	srv := httpapi.New(httpapi.Config{
		Quotes:       quotes,
		Coordinator:  co,
		ChainB:       chainB,
		ChainAHealth: chainA,
		ChainBHealth: chainB,
		Metrics:      reg,
		Log:          subsystemLogger("HTTP"),
	})

	httpSrv := &http.Server{
		Addr:    cfg.Server.BindAddress,
		Handler: srv,
	}

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	go co.Run(ctx)

	serveErr := make(chan error, 1)
	go func() {
		log.Infof("listening on %s", cfg.Server.BindAddress)
		serveErr <- httpSrv.ListenAndServe()
	}()

	sigCh := make(chan os.Signal, 1)
	signal.Notify(sigCh, os.Interrupt, syscall.SIGTERM)

	select {
	case sig := <-sigCh:
		log.Infof("received %s, shutting down", sig)
	case err := <-serveErr:
		if err != nil && err != http.ErrServerClosed {
			log.Errorf("http server error: %v", err)
		}
	}

	co.Stop()
	cancel()

	shutdownCtx, shutdownCancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer shutdownCancel()
	if err := httpSrv.Shutdown(shutdownCtx); err != nil {
		log.Errorf("http shutdown: %v", err)
	}

	return nil
}
