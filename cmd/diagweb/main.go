package main

import (
	"fmt"
	"os"

	"github.com/spf13/cobra"

	"github.com/nhdewitt/diagweb/internal/catalog"
	"github.com/nhdewitt/diagweb/internal/config"
	"github.com/nhdewitt/diagweb/internal/platform"
)

type globalFlags struct {
	configPath  string
	catalogPath string
	platform    string
}

func main() {
	if err := newRootCmd().Execute(); err != nil {
		fmt.Fprintln(os.Stderr, "Error:", err)
		os.Exit(1)
	}
}

func newRootCmd() *cobra.Command {
	g := &globalFlags{}

	root := &cobra.Command{
		Use:           "diagweb",
		Short:         "Run network diagnostics from a browser form",
		SilenceUsage:  true,
		SilenceErrors: true,
	}

	root.PersistentFlags().StringVarP(&g.configPath, "config", "c", "", "YAML config file (default $DIAGWEB_CONFIG)")
	root.PersistentFlags().StringVar(&g.catalogPath, "catalog", "", "command catalog JSON (default: embedded)")
	root.PersistentFlags().StringVar(&g.platform, "platform", "", "platform family to target: windows or unix (default: current)")

	root.AddCommand(
		newServeCmd(g),
		newListCmd(g),
		newOptionsCmd(g),
		newBuildCmd(g),
		newRunCmd(g),
		newPlatformCmd(),
		newValidateCmd(),
	)

	return root
}

// load resolves config, applying the --catalog override.
func (g *globalFlags) load() (*config.Config, error) {
	cfg, err := config.Load(g.configPath)
	if err != nil {
		return nil, err
	}
	if g.catalogPath != "" {
		cfg.Catalog.Path = g.catalogPath
	}
	return cfg, nil
}

func (g *globalFlags) catalog() (*catalog.Catalog, error) {
	cfg, err := g.load()
	if err != nil {
		return nil, err
	}
	return catalog.LoadFile(cfg.Catalog.Path)
}

func (g *globalFlags) family() (platform.Family, error) {
	if g.platform == "" {
		return platform.Current(), nil
	}
	return platform.ParseFamily(g.platform)
}
