package main

import (
	"flag"
	"fmt"
	"io"
	"os"

	tea "github.com/charmbracelet/bubbletea"
	"github.com/rs/zerolog/log"

	"github.com/Sternrassler/catalog-feed/internal/browser"
	"github.com/Sternrassler/catalog-feed/internal/config"
	"github.com/Sternrassler/catalog-feed/pkg/feed"
	"github.com/Sternrassler/catalog-feed/pkg/logging"
)

func main() {
	noAltScreen := flag.Bool("no-alt-screen", false, "disable the alternate screen buffer")
	apiURL := flag.String("api", "", "catalog server base URL (overrides browser.api_url)")
	pageSize := flag.Int("page-size", 0, "items per page (overrides browser.page_size)")
	logPath := flag.String("log", "catalog-browser.log", "log file path, empty to disable logging")
	flag.Parse()

	cfg, err := config.NewConfig()
	if err != nil {
		fmt.Println("failed to load config:", err)
		os.Exit(1)
	}
	if *apiURL != "" {
		cfg.Browser.APIURL = *apiURL
	}
	if *pageSize > 0 {
		cfg.Browser.PageSize = min(*pageSize, 200)
	}

	// The terminal belongs to the UI; logs go to a file.
	logCfg := cfg.Logging("catalog-browser")
	logCfg.Pretty = false
	logCfg.Output = io.Discard
	if *logPath != "" {
		f, err := os.OpenFile(*logPath, os.O_CREATE|os.O_WRONLY|os.O_APPEND, 0o644)
		if err != nil {
			fmt.Println("failed to open log file:", err)
			os.Exit(1)
		}
		defer f.Close()
		logCfg.Output = f
	}
	logging.Setup(logCfg)

	source, err := feed.NewHTTPSource(cfg.Browser.APIURL, cfg.Upstream.Timeout)
	if err != nil {
		fmt.Println("invalid api url:", err)
		os.Exit(1)
	}

	log.Info().
		Str("api_url", cfg.Browser.APIURL).
		Int("page_size", cfg.Browser.PageSize).
		Msg("Starting catalog browser")

	model := browser.New(browser.Config{
		Source:   source,
		PageSize: cfg.Browser.PageSize,
	})
	defer model.Close()

	opts := []tea.ProgramOption{tea.WithMouseCellMotion()}
	if !*noAltScreen {
		opts = append(opts, tea.WithAltScreen())
	}
	program := tea.NewProgram(model, opts...)

	if _, err := program.Run(); err != nil {
		log.Error().Err(err).Msg("Program error")
		fmt.Println("program error:", err)
		os.Exit(1)
	}
}
