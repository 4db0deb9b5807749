package main

import (
	"fmt"
	"log/slog"
	"os"

	"github.com/spf13/cobra"

	"github.com/aretw0/locus"
	"github.com/aretw0/locus/internal/platform"
)

var (
	verbose    bool
	configPath string
	vaultPath  string
	versioned  bool
)

// rootCmd represents the base command when called without any subcommands
var rootCmd = &cobra.Command{
	Use:   "locus",
	Short: "Reminders for notes tagged with a place, delivered when you get near it",
	Long: `Locus watches a vault of Markdown notes with locations in their frontmatter.
While it runs, it periodically (and whenever you start moving) compares your
position with every note and sends one grouped notification for the notes nearby.`,
	PersistentPreRun: func(cmd *cobra.Command, args []string) {
		level := slog.LevelInfo
		if verbose {
			level = slog.LevelDebug
		}

		opts := &slog.HandlerOptions{
			Level: level,
		}
		logger := slog.New(slog.NewTextHandler(os.Stderr, opts))
		slog.SetDefault(logger)
	},
}

// Execute adds all child commands to the root command and sets flags appropriately.
// This is called by main.main().
func Execute() {
	if err := rootCmd.Execute(); err != nil {
		fmt.Fprintln(os.Stderr, err)
		os.Exit(1)
	}
}

func init() {
	rootCmd.PersistentFlags().BoolVarP(&verbose, "verbose", "v", false, "Enable verbose logging")
	rootCmd.PersistentFlags().StringVarP(&configPath, "config", "c", "", "Config file (default ~/.config/locus/config.yaml)")
	rootCmd.PersistentFlags().StringVar(&vaultPath, "vault", "", "Notes vault directory (overrides vault.path)")
	rootCmd.PersistentFlags().BoolVar(&versioned, "git", false, "Commit every vault change to git (overrides vault.git)")
}

// loadConfig reads the config and applies the global flag overrides. Without an
// explicit vault, the vault enclosing the working directory is used when there is one.
func loadConfig(cmd *cobra.Command) (*locus.Config, error) {
	cfg, err := locus.LoadConfig(configPath)
	if err != nil {
		return nil, err
	}

	switch {
	case cmd.Flags().Changed("vault"):
		cfg.Vault.Path = vaultPath
	case cfg.Vault.Path == ".":
		if root, err := platform.FindVault("."); err == nil {
			cfg.Vault.Path = root
		}
	}
	if cmd.Flags().Changed("git") {
		cfg.Vault.Git = versioned
	}
	return cfg, cfg.Validate()
}

// newRuntime builds a runtime from the config and flags.
func newRuntime(cmd *cobra.Command, opts ...locus.Option) (*locus.Runtime, error) {
	cfg, err := loadConfig(cmd)
	if err != nil {
		return nil, fmt.Errorf("failed to load config: %w", err)
	}
	base := []locus.Option{
		locus.WithConfig(cfg),
		locus.WithLogger(slog.Default()),
	}
	return locus.New(append(base, opts...)...)
}
