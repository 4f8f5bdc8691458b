package main

import (
	"encoding/json"
	"fmt"
	"log/slog"
	"os"
	"os/signal"
	"path/filepath"
	"strings"
	"syscall"

	"github.com/fsnotify/fsnotify"
	"github.com/spf13/cobra"
	"github.com/spf13/viper"

	"github.com/justchokingaround/moodcast/internal/config"
	"github.com/justchokingaround/moodcast/internal/providers/youtube"
	"github.com/justchokingaround/moodcast/internal/resolver"
	"github.com/justchokingaround/moodcast/internal/server"
)

var (
	// Version information (set via ldflags during build)
	version = "dev"
	commit  = "none"
	date    = "unknown"

	// Global flags
	cfgFile   string
	logLevel  string
	debugMode bool

	// Global config and logger
	cfg    *config.Config
	vcfg   *viper.Viper
	logger *slog.Logger
)

func main() {
	if err := rootCmd.Execute(); err != nil {
		fmt.Fprintln(os.Stderr, err)
		os.Exit(1)
	}
}

var rootCmd = &cobra.Command{
	Use:   "moodcast",
	Short: "Turn a mood into songs, podcasts and playable videos",
	Long: `moodcast suggests songs and podcasts for a mood and resolves them into
artwork, podcast listings and playable YouTube links.

Run "moodcast serve" for the HTTP API or use the resolve commands directly.`,
	Version:       fmt.Sprintf("%s (commit: %s, built: %s)", version, commit, date),
	SilenceUsage:  true,
	SilenceErrors: true,
	PersistentPreRunE: func(cmd *cobra.Command, args []string) error {
		// config init must work without a readable config
		if cmd.Name() == "init" && cmd.Parent() != nil && cmd.Parent().Name() == "config" {
			return nil
		}

		var err error
		cfg, vcfg, err = config.Load(cfgFile)
		if err != nil {
			return fmt.Errorf("failed to load config: %w", err)
		}

		if debugMode {
			cfg.Advanced.Debug = true
			if logLevel == "" {
				cfg.Logging.Level = "debug"
			}
		}
		if logLevel != "" {
			cfg.Logging.Level = logLevel
		}

		logger, err = config.InitLogger(&cfg.Logging)
		if err != nil {
			return fmt.Errorf("failed to initialize logger: %w", err)
		}
		return nil
	},
}

var serveCmd = &cobra.Command{
	Use:   "serve",
	Short: "Run the HTTP API",
	RunE: func(cmd *cobra.Command, args []string) error {
		logger.Info("moodcast starting", "version", version)

		// Only the log level is applied live; everything else needs a restart
		if vcfg.ConfigFileUsed() != "" {
			vcfg.OnConfigChange(func(e fsnotify.Event) {
				level := vcfg.GetString("logging.level")
				config.SetLogLevel(level)
				logger.Info("config file changed", "name", e.Name, "log_level", level)
			})
			vcfg.WatchConfig()
		}

		svc := buildService(cfg, logger)
		srv := server.New(svc, server.Options{
			Addr:              cfg.Addr(),
			ReadTimeout:       cfg.Server.ReadTimeout,
			WriteTimeout:      cfg.Server.WriteTimeout,
			ShutdownTimeout:   cfg.Server.ShutdownTimeout,
			AllowedOrigins:    cfg.Server.AllowedOrigins,
			RequestsPerMinute: rateLimit(cfg.Server.RateLimit),
			Burst:             cfg.Server.RateLimit.Burst,
		}, logger)

		ctx, stop := signal.NotifyContext(cmd.Context(), os.Interrupt, syscall.SIGTERM)
		defer stop()

		return srv.Run(ctx)
	},
}

func rateLimit(rl config.RateLimitConfig) int {
	if !rl.Enabled {
		return 0
	}
	return rl.RequestsPerMinute
}

var resolveCmd = &cobra.Command{
	Use:   "resolve",
	Short: "Resolve artwork, podcasts or videos without starting the server",
}

var (
	posterArtist   string
	podcastTerms   []string
	videoSearchURL string
)

var resolvePosterCmd = &cobra.Command{
	Use:   "poster <title>",
	Short: "Print the artwork URL for a song",
	Args:  cobra.MaximumNArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		title := ""
		if len(args) == 1 {
			title = args[0]
		}
		svc := buildService(cfg, logger)
		fmt.Fprintln(cmd.OutOrStdout(), svc.Poster(cmd.Context(), title, posterArtist))
		return nil
	},
}

var resolvePodcastsCmd = &cobra.Command{
	Use:   "podcasts <mood>",
	Short: "List podcasts for a mood",
	Args:  cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		svc := buildService(cfg, logger)

		var list []resolver.PodcastResult
		if len(podcastTerms) > 0 {
			list = svc.PodcastsForTerms(cmd.Context(), args[0], podcastTerms)
		} else {
			list = svc.Podcasts(cmd.Context(), args[0])
		}
		return printJSON(cmd, list)
	},
}

var resolveVideoCmd = &cobra.Command{
	Use:   "video [query]",
	Short: "Resolve a search query to YouTube and YouTube Music links",
	Args:  cobra.MaximumNArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		q := resolver.VideoQuery{SearchURL: strings.TrimSpace(videoSearchURL)}
		if len(args) == 1 {
			q.Query = strings.TrimSpace(args[0])
		}
		if q.Query == "" && q.SearchURL == "" {
			return fmt.Errorf("a query or --url is required")
		}
		if q.SearchURL != "" && !youtube.IsSearchURL(q.SearchURL) {
			return fmt.Errorf("--url must be a YouTube search results URL")
		}

		svc := buildService(cfg, logger)
		return printJSON(cmd, svc.ResolveVideo(cmd.Context(), q))
	},
}

var configCmd = &cobra.Command{
	Use:   "config",
	Short: "Manage the configuration file",
}

var configInitCmd = &cobra.Command{
	Use:   "init",
	Short: "Write a config file with default values",
	RunE: func(cmd *cobra.Command, args []string) error {
		path := cfgFile
		if path == "" {
			path = filepath.Join(config.ConfigDir(), "config.yaml")
		}
		if err := config.WriteDefault(path); err != nil {
			return err
		}
		fmt.Fprintf(cmd.OutOrStdout(), "Config written to %s\n", path)
		return nil
	},
}

var configShowCmd = &cobra.Command{
	Use:   "show",
	Short: "Print the effective configuration",
	RunE: func(cmd *cobra.Command, args []string) error {
		shown := *cfg
		if shown.Gemini.APIKey != "" {
			shown.Gemini.APIKey = "********"
		}
		return printJSON(cmd, shown)
	},
}

func printJSON(cmd *cobra.Command, v any) error {
	enc := json.NewEncoder(cmd.OutOrStdout())
	enc.SetIndent("", "  ")
	return enc.Encode(v)
}

func init() {
	rootCmd.PersistentFlags().StringVar(&cfgFile, "config", "", "config file (default is $XDG_CONFIG_HOME/moodcast/config.yaml)")
	rootCmd.PersistentFlags().StringVar(&logLevel, "log-level", "", "log level (debug, info, warn, error)")
	rootCmd.PersistentFlags().BoolVar(&debugMode, "debug", false, "enable debug logging of outbound requests")

	resolvePosterCmd.Flags().StringVar(&posterArtist, "artist", "", "song artist")
	resolvePodcastsCmd.Flags().StringSliceVar(&podcastTerms, "terms", nil, "search terms to use instead of generated ones")
	resolveVideoCmd.Flags().StringVar(&videoSearchURL, "url", "", "precomputed search results URL")

	resolveCmd.AddCommand(resolvePosterCmd, resolvePodcastsCmd, resolveVideoCmd)
	configCmd.AddCommand(configInitCmd, configShowCmd)
	rootCmd.AddCommand(serveCmd, resolveCmd, configCmd)
}
