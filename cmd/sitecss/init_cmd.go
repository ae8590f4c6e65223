package main

import (
	"fmt"
	"os"

	"github.com/spf13/cobra"
)

var initCmd = &cobra.Command{
	Use:   "init",
	Short: "Generate a default .sitecss.yaml config file",
	Long:  `Create a .sitecss.yaml configuration file in the current directory with sensible defaults.`,
	RunE: func(cmd *cobra.Command, _ []string) error {
		force, _ := cmd.Flags().GetBool("force")

		if _, err := os.Stat(defaultConfigPath); err == nil && !force {
			return fmt.Errorf("%s already exists (use --force to overwrite)", defaultConfigPath)
		}

		if err := os.WriteFile(defaultConfigPath, []byte(defaultConfig), 0o600); err != nil {
			return fmt.Errorf("writing config file: %w", err)
		}

		fmt.Println("Created " + defaultConfigPath)
		return nil
	},
}

const defaultConfig = `# sitecss configuration
# Docs: https://github.com/yacobolo/sitecss

pages: src/pages
out: dist
patterns:
  - "**/*.html"
macros: src/styles/macros.css
utilities: src/styles/utilities.css
imports:
  - src/styles
purge: true
keep-expanded: false

# Class names that are never purged or renamed
safelist:
  classes: []
  patterns: []        # Go regular expressions, e.g. "^js-"

server:
  port: 4200
  # cert: ssl/cert.pem
  # key: ssl/privkey.pem

log:
  level: info         # debug | info | warn | error
  format: text        # text | json
`

func init() {
	initCmd.Flags().Bool("force", false, "Overwrite existing config file")
}
