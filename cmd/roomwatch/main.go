package main

import (
	"flag"
	"fmt"
	"os"
	"strings"
	"time"

	tea "github.com/charmbracelet/bubbletea"

	"github.com/roomwatch/roomwatch/internal/apiclient"
	"github.com/roomwatch/roomwatch/internal/clock"
	"github.com/roomwatch/roomwatch/internal/logging"
	"github.com/roomwatch/roomwatch/internal/tui"
)

var (
	version   = "dev"
	commit    = "unknown"
	buildTime = "unknown"
	goVersion = "unknown"
)

func main() {
	var configPath string
	var apiURL string
	var showVersion bool

	flag.StringVar(&configPath, "config", "", "config file (default is $HOME/.config/roomwatch/config.yml)")
	flag.StringVar(&apiURL, "api-url", "", "override the classroom API base URL")
	flag.BoolVar(&showVersion, "version", false, "print version information")
	flag.Parse()

	if showVersion {
		fmt.Printf("roomwatch - empty classroom finder\n")
		fmt.Printf("  Version:    %s\n", version)
		fmt.Printf("  Commit:     %s\n", commit)
		fmt.Printf("  Built:      %s\n", buildTime)
		fmt.Printf("  Go version: %s\n", goVersion)
		return
	}

	cfg, err := loadCLIConfig(configPath)
	if err != nil {
		fmt.Fprintf(os.Stderr, "Error loading config: %v\n", err)
		os.Exit(1)
	}

	if apiURL != "" {
		cfg.APIURL = apiURL
	}

	if err := runTUI(cfg); err != nil {
		fmt.Fprintf(os.Stderr, "Error: %v\n", err)
		os.Exit(1)
	}
}

func runTUI(cfg cliConfig) error {
	logger, cleanup, err := logging.New(logging.Config{
		Level:  cfg.LogLevel,
		Format: cfg.LogFormat,
		File:   cfg.LogFile,
	})
	if err != nil {
		return err
	}
	defer cleanup()

	loc, err := time.LoadLocation(cfg.Timezone)
	if err != nil {
		return err
	}

	client, err := apiclient.New(cfg.APIURL)
	if err != nil {
		return err
	}

	board := tui.NewBoard(tui.BoardConfig{
		API:            client,
		Clock:          clock.RealClock{},
		Logger:         logger,
		Location:       loc,
		TickInterval:   cfg.TickInterval,
		RequestTimeout: cfg.RequestTimeout,
	})
	app := tui.NewApp(board, tui.NewNotesPage())
	defer app.Close()

	logger.Info("starting", "api_url", cfg.APIURL, "version", version)

	p := tea.NewProgram(app, tea.WithAltScreen())
	if _, err := p.Run(); err != nil {
		if strings.Contains(err.Error(), "TTY") || strings.Contains(err.Error(), "/dev/tty") {
			return fmt.Errorf("TUI requires a real terminal")
		}
		return fmt.Errorf("error running TUI: %w", err)
	}

	return nil
}
