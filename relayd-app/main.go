package main

import (
	"fmt"
	"os"
	"runtime"

	"github.com/spf13/cobra"

	"github.com/whalevault/relayd/log"
	"github.com/whalevault/relayd/relayd-app/config"
)

var (
	cfgFile string
	rootCmd = &cobra.Command{
		Use:   "relayd",
		Short: "WhaleVault Relayer",
		Long:  banner + "\n\nProof generation and relay daemon for the WhaleVault shielded pool.",
		RunE:  runApp,
	}

	versionCmd = &cobra.Command{
		Use:   "version",
		Short: "Print version information",
		Run:   runVersion,
	}
)

const banner = `
██╗    ██╗██╗  ██╗ █████╗ ██╗     ███████╗██╗   ██╗ █████╗ ██╗   ██╗██╗  ████████╗
██║    ██║██║  ██║██╔══██╗██║     ██╔════╝██║   ██║██╔══██╗██║   ██║██║  ╚══██╔══╝
██║ █╗ ██║███████║███████║██║     █████╗  ██║   ██║███████║██║   ██║██║     ██║
██║███╗██║██╔══██║██╔══██║██║     ██╔══╝  ╚██╗ ██╔╝██╔══██║██║   ██║██║     ██║
╚███╔███╔╝██║  ██║██║  ██║███████╗███████╗ ╚████╔╝ ██║  ██║╚██████╔╝███████╗██║
 ╚══╝╚══╝ ╚═╝  ╚═╝╚═╝  ╚═╝╚══════╝╚══════╝  ╚═══╝  ╚═╝  ╚═╝ ╚═════╝ ╚══════╝╚═╝

██████╗ ███████╗██╗      █████╗ ██╗   ██╗██████╗
██╔══██╗██╔════╝██║     ██╔══██╗╚██╗ ██╔╝██╔══██╗
██████╔╝█████╗  ██║     ███████║ ╚████╔╝ ██║  ██║
██╔══██╗██╔══╝  ██║     ██╔══██║  ╚██╔╝  ██║  ██║
██║  ██║███████╗███████╗██║  ██║   ██║   ██████╔╝
╚═╝  ╚═╝╚══════╝╚══════╝╚═╝  ╚═╝   ╚═╝   ╚═════╝`

func main() {
	if err := execute(); err != nil {
		fmt.Fprintf(os.Stderr, "Error: %v\n", err)
		os.Exit(1)
	}
}

func execute() error {
	initCommands()
	return rootCmd.Execute()
}

func initCommands() {
	cobra.OnInitialize(initConfig)

	rootCmd.AddCommand(versionCmd)

	// Global flags
	rootCmd.PersistentFlags().StringVar(&cfgFile, "config",
		"relayd-app/configs/config.yaml", "config file path")
	rootCmd.PersistentFlags().String("log-level", "", "log level (trace, debug, info, warn, error)")
	rootCmd.PersistentFlags().Bool("log-pretty", false, "enable pretty logging")

	// API flags
	rootCmd.PersistentFlags().String("listen-addr", "", "HTTP API listen address")

	// Pipeline flags
	rootCmd.PersistentFlags().Int("workers", 0, "proof worker pool size")
	rootCmd.PersistentFlags().Int("queue-size", 0, "proof queue capacity")

	// Relay flags
	rootCmd.PersistentFlags().Bool("relay-enabled", false, "enable the relayer")
	rootCmd.PersistentFlags().String("keypair", "", "relayer keypair file path")
	rootCmd.PersistentFlags().String("rpc-url", "", "Solana RPC endpoint")

	// Metrics flags
	rootCmd.PersistentFlags().Bool("metrics", false, "enable metrics")
}

func initConfig() {
	if cfgFile == "" {
		cfgFile = "relayd-app/configs/config.yaml"
	}
}

func runApp(cmd *cobra.Command, _ []string) error {
	fmt.Println(banner)
	fmt.Println()

	cfg, err := config.Load(cfgFile)
	if err != nil {
		return fmt.Errorf("failed to load config: %w", err)
	}

	applyFlags(cmd, cfg)

	log := log.New(cfg.Log.Level, cfg.Log.Pretty)

	log.Info().
		Str("version", Version).
		Str("build_time", BuildTime).
		Str("git_commit", GitCommit).
		Str("go_version", runtime.Version()).
		Msg("Build information")

	log.Info().
		Str("config_file", cfgFile).
		Str("listen_addr", cfg.API.ListenAddr).
		Str("rpc_url", cfg.Ledger.RPCURL).
		Bool("relay_enabled", cfg.Relay.Enabled).
		Bool("metrics_enabled", cfg.Metrics.Enabled).
		Str("log_level", cfg.Log.Level).
		Msg("Configuration loaded")

	application, err := NewApp(cfg, log.Logger)
	if err != nil {
		return fmt.Errorf("failed to create application: %w", err)
	}

	return application.Run(cmd.Context())
}

func runVersion(*cobra.Command, []string) {
	fmt.Println(banner)
	fmt.Println()
	fmt.Printf("WhaleVault Relayer\n")
	fmt.Printf("Version:    %s\n", Version)
	fmt.Printf("Build Time: %s\n", BuildTime)
	fmt.Printf("Git Commit: %s\n", GitCommit)
	fmt.Printf("Go Version: %s\n", runtime.Version())
	fmt.Printf("OS/Arch:    %s/%s\n", runtime.GOOS, runtime.GOARCH)
}

func applyFlags(cmd *cobra.Command, cfg *config.Config) {
	if cmd.Flag("log-level").Changed {
		cfg.Log.Level, _ = cmd.Flags().GetString("log-level")
	}
	if cmd.Flag("log-pretty").Changed {
		cfg.Log.Pretty, _ = cmd.Flags().GetBool("log-pretty")
	}

	if cmd.Flag("listen-addr").Changed {
		cfg.API.ListenAddr, _ = cmd.Flags().GetString("listen-addr")
	}

	if cmd.Flag("workers").Changed {
		cfg.Proofs.Workers, _ = cmd.Flags().GetInt("workers")
	}
	if cmd.Flag("queue-size").Changed {
		cfg.Proofs.QueueSize, _ = cmd.Flags().GetInt("queue-size")
	}

	if cmd.Flag("relay-enabled").Changed {
		cfg.Relay.Enabled, _ = cmd.Flags().GetBool("relay-enabled")
	}
	if cmd.Flag("keypair").Changed {
		cfg.Ledger.KeypairPath, _ = cmd.Flags().GetString("keypair")
	}
	if cmd.Flag("rpc-url").Changed {
		cfg.Ledger.RPCURL, _ = cmd.Flags().GetString("rpc-url")
	}

	if cmd.Flag("metrics").Changed {
		cfg.Metrics.Enabled, _ = cmd.Flags().GetBool("metrics")
	}
}
