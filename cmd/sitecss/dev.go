package main

import (
	"github.com/spf13/cobra"

	"github.com/yacobolo/sitecss"
)

var devCmd = &cobra.Command{
	Use:     "dev",
	Aliases: []string{"development", "d"},
	Short:   "Start the development builder and server",
	Long: `Clear the output directory, build the site, rebuild on every change and
serve the result. Browsers reload once a build succeeds and show the error
of a failed one.`,
	PreRunE: func(cmd *cobra.Command, _ []string) error {
		return loadConfig(cmd)
	},
	RunE: func(cmd *cobra.Command, _ []string) error {
		config, err := buildSiteConfig()
		if err != nil {
			return err
		}
		config.Addr, config.CertFile, config.KeyFile = serverAddr(defaultDevIP)
		return sitecss.Dev(cmd.Context(), config)
	},
}

func init() {
	addSiteFlags(devCmd)
	addServerFlags(devCmd, defaultDevIP)
}
