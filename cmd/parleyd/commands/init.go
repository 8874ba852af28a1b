package commands

import (
	"fmt"
	"os"

	"github.com/spf13/cobra"
	"golang.org/x/term"

	"github.com/marmos91/parley/internal/cli/prompt"
	"github.com/marmos91/parley/pkg/config"
)

var initForce bool

var initCmd = &cobra.Command{
	Use:   "init",
	Short: "Initialize a sample configuration file",
	Long: `Initialize a sample parley configuration file.

By default, the configuration file is created at $XDG_CONFIG_HOME/parley/config.yaml.
Use --config to specify a custom path.

Examples:
  # Initialize with default location
  parleyd init

  # Initialize with custom path
  parleyd init --config /etc/parley/config.yaml

  # Force overwrite existing config
  parleyd init --force`,
	RunE: runInit,
}

func init() {
	initCmd.Flags().BoolVar(&initForce, "force", false, "Force overwrite existing config file")
}

func runInit(cmd *cobra.Command, args []string) error {
	configFile := GetConfigFile()

	targetPath := configFile
	if targetPath == "" {
		targetPath = config.GetDefaultConfigPath()
	}

	force := initForce
	if !force {
		if _, err := os.Stat(targetPath); err == nil {
			// Interactive sessions get a chance to confirm the overwrite.
			if !term.IsTerminal(int(os.Stdin.Fd())) {
				return fmt.Errorf("configuration file already exists: %s (use --force to overwrite)", targetPath)
			}

			ok, err := prompt.Confirm(fmt.Sprintf("Overwrite existing config at %s?", targetPath), false)
			if err != nil {
				return err
			}
			if !ok {
				fmt.Println("Aborted.")
				return nil
			}
			force = true
		}
	}

	var configPath string
	var err error

	if configFile != "" {
		err = config.InitConfigToPath(configFile, force)
		configPath = configFile
	} else {
		configPath, err = config.InitConfig(force)
	}

	if err != nil {
		return fmt.Errorf("failed to initialize config: %w", err)
	}

	fmt.Printf("Configuration file created at: %s\n", configPath)
	fmt.Println("\nNext steps:")
	fmt.Println("  1. Edit the configuration file to customize your setup")
	fmt.Println("  2. Start the server with: parleyd start")
	fmt.Printf("  3. Or specify custom config: parleyd start --config %s\n", configPath)
	fmt.Println("  4. Connect with: parley connect")

	return nil
}
