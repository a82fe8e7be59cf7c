package main

import (
	"context"
	"fmt"
	"log"
	"os"
	"os/signal"
	"path/filepath"
	"syscall"

	"github.com/spf13/cobra"

	"github.com/ZentaChain/zentalk-xchat/pkg/api"
	"github.com/ZentaChain/zentalk-xchat/pkg/metrics"
	"github.com/ZentaChain/zentalk-xchat/pkg/network"
	"github.com/ZentaChain/zentalk-xchat/pkg/storage"
)

var (
	listenAddr string
	noAPI      bool
	dbPath     string
)

var runCmd = &cobra.Command{
	Use:   "run",
	Short: "Run the bridge until interrupted",
	Args:  cobra.NoArgs,
	Run: func(cmd *cobra.Command, args []string) {
		if listenAddr != "" {
			cfg.API.Listen = listenAddr
		}
		if noAPI {
			cfg.API.Enabled = false
		}
		if dbPath != "" {
			cfg.Storage.Path = dbPath
		}
		if pw := os.Getenv("XCHAT_PASSPHRASE"); pw != "" {
			cfg.Storage.Passphrase = pw
		}

		runBridge()
	},
}

func init() {
	runCmd.Flags().StringVar(&listenAddr, "listen", "", "HTTP API listen address")
	runCmd.Flags().BoolVar(&noAPI, "no-api", false, "disable the HTTP API")
	runCmd.Flags().StringVar(&dbPath, "db", "", "history database path, empty string in config disables history")
	rootCmd.AddCommand(runCmd)
}

func runBridge() {
	printBanner()

	backend, err := network.ParseBackend(cfg.Backend)
	if err != nil {
		log.Fatalf("❌ %v", err)
	}

	channel, err := network.Open(backend)
	if err != nil {
		log.Fatalf("❌ %v", err)
	}
	log.Printf("✓ Socket bound on %s, backend %s", channel.LocalAddr(), channel.BackendMultiaddr())

	consumers := network.Consumers{logConsumer()}

	hub := api.NewHub(cfg.API.AllowedOrigins)
	consumers = append(consumers, hub)

	var (
		history  *storage.MessageDB
		recorder *storage.Recorder
	)
	if cfg.Storage.Path != "" {
		if err := os.MkdirAll(filepath.Dir(cfg.Storage.Path), 0700); err != nil {
			log.Fatalf("Failed to create data directory: %v", err)
		}
		history, err = storage.NewMessageDB(cfg.Storage.Path, cfg.Storage.Passphrase)
		if err != nil {
			log.Fatalf("Failed to open history database: %v", err)
		}
		defer history.Close()

		recorder = storage.NewRecorder(history)
		consumers = append(consumers, recorder)
		log.Printf("📚 History database at %s", cfg.Storage.Path)
	} else {
		log.Println("⚠️  History disabled")
	}

	registry := metrics.NewRegistry()

	dispatcher := network.NewDispatcher(channel, consumers)
	dispatcher.AttachObserver(metrics.NewDispatchObserver(registry))

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	if cfg.API.Enabled {
		server := api.NewServer(dispatcher, hub, &api.Config{
			Listen:         cfg.API.Listen,
			AllowedOrigins: cfg.API.AllowedOrigins,
			DefaultHops:    cfg.KeyExchange.DefaultHops,
			SecretLength:   cfg.KeyExchange.SecretLength,
			ReadTimeout:    api.DefaultConfig().ReadTimeout,
			WriteTimeout:   api.DefaultConfig().WriteTimeout,
		})
		if history != nil {
			server.AttachHistory(history, recorder)
		}
		server.AttachMetrics(registry)

		go func() {
			if err := server.Start(ctx); err != nil {
				log.Fatalf("❌ HTTP API failed: %v", err)
			}
		}()
	} else {
		log.Println("⚠️  HTTP API disabled")
	}

	if err := dispatcher.Run(ctx); err != nil {
		log.Fatalf("❌ %v", err)
	}

	log.Println("👋 Bridge stopped")
}

// logConsumer prints every decoded event
func logConsumer() network.Consumer {
	return network.ConsumerFuncs{
		OnMessageReceived: func(peer string, timestampMillis int64, text string) {
			log.Printf("💬 Message from %q (%d bytes)", peer, len(text))
		},
		OnContactCreated: func(peer string) {
			log.Printf("🔑 Key exchange completed with %q", peer)
		},
	}
}

func printBanner() {
	fmt.Println("╔═══════════════════════════════════════════════════╗")
	fmt.Printf("║ %-49s ║\n", "xchat bridge "+version)
	fmt.Println("║ chat user interface <-> xchat daemon              ║")
	fmt.Println("╚═══════════════════════════════════════════════════╝")
	fmt.Println()
}
