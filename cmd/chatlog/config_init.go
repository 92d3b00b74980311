package main

import (
	"fmt"
	"os"
	"path/filepath"
	"time"

	"github.com/spf13/cobra"
	"gopkg.in/yaml.v3"
)

func newConfigCmd() *cobra.Command {
	configCmd := &cobra.Command{
		Use:   "config",
		Short: "Manage the configuration file",
	}

	var force bool
	initCmd := &cobra.Command{
		Use:   "init",
		Short: "Write a config file with every default",
		RunE: func(cmd *cobra.Command, args []string) error {
			home, err := os.UserHomeDir()
			if err != nil {
				return fmt.Errorf("finding home directory: %w", err)
			}
			path := configPath
			if path == "" {
				path = defaultConfigPath(home)
			}
			if err := writeDefaultConfig(path, home, force); err != nil {
				return err
			}
			fmt.Fprintf(cmd.OutOrStdout(), "wrote %s\n", path)
			return nil
		},
	}
	initCmd.Flags().BoolVarP(&force, "force", "f", false, "overwrite an existing file")

	configCmd.AddCommand(initCmd)
	return configCmd
}

// defaultConfigYAML renders the defaults as an ordered YAML mapping.
func defaultConfigYAML(home string) ([]byte, error) {
	doc := &yaml.Node{Kind: yaml.MappingNode}
	for _, d := range configDefaults(home) {
		value := d.Value
		if dur, ok := value.(time.Duration); ok {
			value = dur.String()
		}

		var k, v yaml.Node
		if err := k.Encode(d.Key); err != nil {
			return nil, err
		}
		if err := v.Encode(value); err != nil {
			return nil, fmt.Errorf("encoding %s: %w", d.Key, err)
		}
		doc.Content = append(doc.Content, &k, &v)
	}
	return yaml.Marshal(doc)
}

func writeDefaultConfig(path, home string, force bool) error {
	if !force {
		if _, err := os.Stat(path); err == nil {
			return fmt.Errorf("%s already exists (use --force to overwrite)", path)
		}
	}
	data, err := defaultConfigYAML(home)
	if err != nil {
		return err
	}
	if err := os.MkdirAll(filepath.Dir(path), 0o755); err != nil {
		return fmt.Errorf("creating config dir: %w", err)
	}
	return os.WriteFile(path, data, 0o644)
}
