package main

import (
	"fmt"
	"io"
	"os"
	"path/filepath"
	"strings"

	"github.com/spf13/cobra"

	"github.com/ShayCichocki/contribgate/internal/config"
)

var configProject bool

var configCmd = &cobra.Command{
	Use:   "config [key] [value]",
	Short: "Manage configuration",
	Long: `View or modify contribgate configuration.

Without arguments, displays current configuration.
With one argument (key), displays the value for that key.
With two arguments (key value), sets the configuration value.

Configuration is stored at ~/.config/contribgate/config.yaml
Project-specific overrides can be placed in .contribgate.yaml`,
	Args: cobra.MaximumNArgs(2),
	RunE: func(cmd *cobra.Command, args []string) error {
		out := cmd.OutOrStdout()
		switch len(args) {
		case 0:
			return displayAllConfig(out)
		case 1:
			return displayConfigKey(out, args[0])
		default:
			return setConfigKey(out, configTarget(), args[0], args[1])
		}
	},
}

func init() {
	configCmd.Flags().BoolVar(&configProject, "project", false, "write to the project config instead of the user config")
}

// configTarget is the file a set writes to.
func configTarget() string {
	if !configProject {
		return config.GetUserConfigPath()
	}
	if p := config.GetProjectConfigPath(); p != "" {
		return p
	}
	return filepath.Join(".", config.ProjectConfigName)
}

// displayAllConfig prints all configuration values.
func displayAllConfig(w io.Writer) error {
	for _, key := range config.Keys() {
		value, err := configValue(key)
		if err != nil {
			return usageErr(err)
		}
		fmt.Fprintf(w, "%s: %s\n", key, value)
	}
	return nil
}

// displayConfigKey prints a single configuration value.
func displayConfigKey(w io.Writer, key string) error {
	value, err := configValue(key)
	if err != nil {
		return usageErr(err)
	}
	fmt.Fprintln(w, value)
	return nil
}

// setConfigKey sets a configuration value and saves it to path. The file
// is restored when the new value does not validate.
func setConfigKey(w io.Writer, path, key, value string) error {
	prev, readErr := os.ReadFile(path)
	if err := config.Set(path, key, value); err != nil {
		return usageErr(err)
	}
	if _, err := config.LoadFromPath(path); err != nil {
		if readErr == nil {
			os.WriteFile(path, prev, 0600)
		} else {
			os.Remove(path)
		}
		return usageErr(fmt.Errorf("invalid value for %s: %w", key, err))
	}
	fmt.Fprintf(w, "Set %s = %s\n", key, displayValue(key, value))
	return nil
}

func configValue(key string) (string, error) {
	v, err := config.Get(key)
	if err != nil {
		return "", err
	}
	return displayValue(key, fmt.Sprint(v)), nil
}

// displayValue masks secrets.
func displayValue(key, value string) string {
	if strings.EqualFold(key, "github.token") {
		return config.MaskToken(value)
	}
	return value
}
