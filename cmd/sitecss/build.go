package main

import (
	"fmt"
	"os"

	"github.com/spf13/cobra"

	"github.com/yacobolo/sitecss"
)

var buildCmd = &cobra.Command{
	Use:     "build",
	Aliases: []string{"b"},
	Short:   "Build the site",
	Long: `Process every page: expand macros, generate and purge CSS, compress class
names and write the output. Nothing is written unless every page succeeds.`,
	PreRunE: func(cmd *cobra.Command, _ []string) error {
		return loadConfig(cmd)
	},
	RunE: runBuild,
}

func init() {
	addSiteFlags(buildCmd)
	buildCmd.Flags().String("output-format", "", "Report format: summary|full|json")
}

func runBuild(cmd *cobra.Command, _ []string) error {
	config, err := buildSiteConfig()
	if err != nil {
		return err
	}

	report, err := sitecss.Build(cmd.Context(), config)
	if err != nil {
		return fmt.Errorf("build failed: %w", err)
	}

	quiet := getBoolWithFallback("quiet", "quiet", false)
	format := sitecss.DetermineOutputFormat(getStringWithFallback("output-format", "output-format", ""), quiet)
	useColors := sitecss.ShouldUseColors(getBoolWithFallback("color", "color", false))

	return sitecss.WriteOutput(os.Stdout, report, format, useColors)
}
