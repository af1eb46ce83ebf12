package main

import (
	"context"
	"flag"
	"fmt"
	"log"
	"log/slog"
	"os"
	"os/signal"
	"syscall"

	"github.com/joho/godotenv"
	"github.com/mdobak/go-xerrors"

	"vibration-monitor/stream"
	"vibration-monitor/utils"
)

const usage = "Expected 'serve' or 'monitor' subcommand"

func main() {
	if len(os.Args) < 2 {
		fmt.Println(usage)
		os.Exit(1)
	}
	_ = godotenv.Load()

	switch os.Args[1] {
	case "serve":
		serveCmd := flag.NewFlagSet("serve", flag.ExitOnError)
		protocol := serveCmd.String("proto", "http", "Protocol to use (http or https)")
		port := serveCmd.String("p", utils.GetEnv("PORT", "5000"), "Port to use")
		serveCmd.Parse(os.Args[2:])
		serve(*protocol, *port)
	case "monitor":
		cfg, err := loadMonitorConfig()
		if err != nil {
			log.Fatalf("failed to load monitor config: %v", err)
		}

		monitorCmd := flag.NewFlagSet("monitor", flag.ExitOnError)
		streamURL := monitorCmd.String("url", cfg.StreamURL, "Base URL of the stream server")
		mode := monitorCmd.String("mode", cfg.Mode.Name(), "Stream mode (real or random)")
		port := monitorCmd.String("p", cfg.DashboardPort, "Dashboard port")
		export := monitorCmd.String("export", cfg.CSVExportPath, "Write buffered samples to this CSV file on exit")
		monitorCmd.Parse(os.Args[2:])

		cfg.StreamURL = *streamURL
		cfg.DashboardPort = *port
		cfg.CSVExportPath = *export
		if cfg.Mode, err = stream.ParseMode(*mode); err != nil {
			log.Fatalf("invalid -mode: %v", err)
		}

		ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
		defer stop()

		if err := runMonitor(ctx, cfg); err != nil {
			logger := utils.GetLogger()
			logger.ErrorContext(ctx, "monitor stopped", slog.Any("error", xerrors.New(err)))
			stop()
			os.Exit(1)
		}
	default:
		fmt.Println(usage)
		os.Exit(1)
	}
}
