package main

import (
	"github.com/spf13/cobra"

	"github.com/yacobolo/sitecss"
)

var serveCmd = &cobra.Command{
	Use:     "serve",
	Aliases: []string{"server", "s"},
	Short:   "Serve the built site",
	Long:    `Serve the output directory. Missing files get the site's 404.html.`,
	PreRunE: func(cmd *cobra.Command, _ []string) error {
		return loadConfig(cmd)
	},
	RunE: func(cmd *cobra.Command, _ []string) error {
		config, err := buildSiteConfig()
		if err != nil {
			return err
		}
		config.Addr, config.CertFile, config.KeyFile = serverAddr(defaultServeIP)
		return sitecss.Serve(cmd.Context(), config)
	},
}

func init() {
	serveCmd.Flags().String("out", "dist", "Directory to serve")
	addServerFlags(serveCmd, defaultServeIP)
}
