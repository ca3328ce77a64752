package cli

import (
	"fmt"
	"io"
	"strconv"
	"strings"
	"time"

	"github.com/spf13/cobra"
	"gopkg.in/yaml.v3"

	"github.com/tgienger/taskdeck/internal/config"
	"github.com/tgienger/taskdeck/internal/ui/styles"
)

func newConfigCmd(app *App) *cobra.Command {
	cmd := &cobra.Command{
		Use:   "config",
		Short: "Show or change settings in config.yaml",
	}
	cmd.AddCommand(newConfigShowCmd(app))
	cmd.AddCommand(newConfigPathCmd(app))
	cmd.AddCommand(newConfigSetCmd(app))
	return cmd
}

func (app *App) configPath() (string, error) {
	if app.ConfigPath != "" {
		return app.ConfigPath, nil
	}
	return config.Path()
}

func newConfigShowCmd(app *App) *cobra.Command {
	return &cobra.Command{
		Use:   "show",
		Short: "Print the effective configuration",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			return writeOut(cmd, app, app.cfg, func(w io.Writer) {
				data, err := yaml.Marshal(app.cfg)
				if err != nil {
					fmt.Fprintln(w, err)
					return
				}
				w.Write(data)
			})
		},
	}
}

func newConfigPathCmd(app *App) *cobra.Command {
	return &cobra.Command{
		Use:   "path",
		Short: "Print where config.yaml is read from",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			path, err := app.configPath()
			if err != nil {
				return err
			}
			return printMessage(cmd, app, path, "")
		},
	}
}

func newConfigSetCmd(app *App) *cobra.Command {
	return &cobra.Command{
		Use:   "set <key> <value>",
		Short: "Set one of api_url, page_size, auto_complete, request_timeout, log_level, theme",
		Args:  cobra.ExactArgs(2),
		RunE: func(cmd *cobra.Command, args []string) error {
			path, err := app.configPath()
			if err != nil {
				return err
			}
			cfg, err := config.LoadFile(path)
			if err != nil {
				return err
			}
			if err := setConfigValue(cfg, args[0], args[1]); err != nil {
				return err
			}
			if err := cfg.Save(path); err != nil {
				return fmt.Errorf("save config: %w", err)
			}
			return printMessage(cmd, app, "", fmt.Sprintf("Set %s in %s", args[0], path))
		},
	}
}

func setConfigValue(cfg *config.Config, key, value string) error {
	value = strings.TrimSpace(value)
	switch key {
	case "api_url":
		cfg.APIURL = value
	case "page_size":
		n, err := strconv.Atoi(value)
		if err != nil || n < 1 {
			return fmt.Errorf("page_size must be a positive number, got %q", value)
		}
		cfg.PageSize = n
	case "auto_complete":
		b, err := strconv.ParseBool(value)
		if err != nil {
			return fmt.Errorf("auto_complete must be true or false, got %q", value)
		}
		cfg.AutoComplete = &b
	case "request_timeout":
		d, err := time.ParseDuration(value)
		if err != nil || d < 0 {
			return fmt.Errorf("request_timeout must be a duration like 30s, got %q", value)
		}
		cfg.RequestTimeout = d
	case "log_level":
		cfg.LogLevel = value
	case "theme":
		if _, ok := styles.Themes[value]; !ok {
			return fmt.Errorf("unknown theme %q (available: %s)", value, strings.Join(styles.ThemeNames(), ", "))
		}
		cfg.Theme = value
	default:
		return fmt.Errorf("unknown config key %q", key)
	}
	return nil
}
