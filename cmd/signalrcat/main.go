// Command signalrcat is a minimal demo client: it connects to a single
// SignalR hub URL, prints every inbound message, and optionally sends one
// message given with -send before exiting. It is not a hosting layer — no
// config reload, no TLS termination, no systemd integration — just enough
// wiring to exercise Connection.Start/Send/Stop end to end.
package main

import (
	"context"
	"flag"
	"fmt"
	"io"
	"log"
	"net/http"
	"os"
	"os/signal"
	"syscall"

	"github.com/cenkalti/backoff/v4"
	"gopkg.in/yaml.v3"

	signalr "github.com/signalrgo/client"
)

// fileConfig is the optional YAML sidecar file: flags always take
// precedence over it, it exists for the headers a command line is
// awkward for.
type fileConfig struct {
	URL     string            `yaml:"url"`
	Headers map[string]string `yaml:"headers"`
}

func loadFileConfig(path string) (fileConfig, error) {
	var cfg fileConfig
	if path == "" {
		return cfg, nil
	}
	data, err := os.ReadFile(path)
	if err != nil {
		return cfg, fmt.Errorf("reading config file: %w", err)
	}
	if err := yaml.Unmarshal(data, &cfg); err != nil {
		return cfg, fmt.Errorf("parsing config file: %w", err)
	}
	return cfg, nil
}

func main() {
	var (
		configPath    = flag.String("config", "", "optional YAML config file (url, headers)")
		rawURL        = flag.String("url", "", "hub URL, e.g. https://example.com/chathub")
		send          = flag.String("send", "", "one message to send once connected, then exit")
		logFile       = flag.String("log-file", "", "path to write rotated trace logs (stderr if empty)")
		logMaxSizeMB  = flag.Int("log-max-size-mb", 10, "rotate -log-file once it reaches this size")
		logMaxBackups = flag.Int("log-max-backups", 3, "rotated -log-file copies to keep")
		logMaxAgeDays = flag.Int("log-max-age-days", 28, "days to keep rotated -log-file copies")
		traceAll      = flag.Bool("trace", false, "enable all trace categories instead of just state changes")
	)
	flag.Parse()

	cfg, err := loadFileConfig(*configPath)
	if err != nil {
		log.Fatal(err)
	}
	if *rawURL != "" {
		cfg.URL = *rawURL
	}
	if cfg.URL == "" {
		log.Fatal("no url given: pass -url or set url in -config")
	}

	traceLevel := signalr.TraceStateChanges
	if *traceAll {
		traceLevel = signalr.TraceAll
	}

	headers := http.Header{}
	for k, v := range cfg.Headers {
		headers.Set(k, v)
	}

	opts := []signalr.Option{signalr.WithClientConfig(signalr.ClientConfig{HTTPHeaders: headers})}

	var logCloser io.Closer
	if *logFile != "" {
		fileLogger := signalr.NewRotatingFileLogger(traceLevel, *logFile, *logMaxSizeMB, *logMaxBackups, *logMaxAgeDays)
		opts = append(opts, signalr.WithLogger(fileLogger))
		logCloser = fileLogger
	}

	conn, err := signalr.New(cfg.URL, traceLevel, nil, opts...)
	if err != nil {
		log.Fatalf("constructing connection: %v", err)
	}
	if logCloser != nil {
		defer logCloser.Close()
	}

	disconnected := make(chan struct{}, 1)
	_ = conn.SetOnDisconnected(func() {
		select {
		case disconnected <- struct{}{}:
		default:
		}
	})
	_ = conn.SetOnMessage(func(message string) {
		fmt.Println(message)
	})

	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	if err := connectWithRetry(ctx, conn); err != nil {
		log.Fatalf("giving up connecting: %v", err)
	}
	log.Printf("connected, connection id %s", conn.GetConnectionID())

	if *send != "" {
		if err := conn.Send(ctx, *send); err != nil {
			log.Printf("send failed: %v", err)
		}
		_ = conn.Stop(context.Background())
		return
	}

	select {
	case <-ctx.Done():
	case <-disconnected:
		log.Println("connection dropped")
	}
	_ = conn.Stop(context.Background())
}

// connectWithRetry retries Start with exponential backoff until it
// succeeds or ctx is canceled. The core itself never retries a failed
// Start (see Connection.Start); retry policy belongs to callers like this
// one, not to the connection state machine.
func connectWithRetry(ctx context.Context, conn *signalr.Connection) error {
	b := backoff.NewExponentialBackOff()
	b.MaxElapsedTime = 0

	return backoff.Retry(func() error {
		err := conn.Start(ctx)
		if err != nil {
			log.Printf("connect attempt failed, retrying: %v", err)
		}
		return err
	}, backoff.WithContext(b, ctx))
}
