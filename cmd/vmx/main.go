package main

import (
	"fmt"
	"os"
	"time"

	"vmx-go/internal/app"
	"vmx-go/internal/config"
	"vmx-go/internal/export"
	"vmx-go/internal/vmx"

	"github.com/spf13/cobra"
)

func main() {
	if err := rootCmd.Execute(); err != nil {
		if remedy := vmx.Remediation(err); remedy != "" {
			fmt.Fprintf(os.Stderr, "hint: %s\n", remedy)
		}
		os.Exit(1)
	}
}

// newApp reads the config and creates a VMXApp. The caller must defer app.Close().
func newApp() (*app.VMXApp, error) {
	defaults, err := app.GetDefaults()
	if err != nil {
		return nil, fmt.Errorf("getting defaults: %w", err)
	}

	cfg, err := config.ReadFromFile(defaults["config_path"])
	if err != nil {
		return nil, fmt.Errorf("reading config: %w", err)
	}

	a, err := app.NewVMXApp(cfg)
	if err != nil {
		return nil, fmt.Errorf("initializing app: %w", err)
	}
	return a, nil
}

var rootCmd = &cobra.Command{
	Use:   "vmx",
	Short: "Extract voicemails from device backups",
}

// config command
var configCmd = &cobra.Command{
	Use:   "config",
	Short: "Manage configuration",
}

var configInitCmd = &cobra.Command{
	Use:   "init",
	Short: "Initialize configuration",
	RunE: func(cmd *cobra.Command, args []string) error {
		defaults, err := app.GetDefaults()
		if err != nil {
			return fmt.Errorf("failed to get defaults: %w", err)
		}

		cfg := config.NewConfig(defaults["backup_root"], defaults["base_dir"])

		if err := config.Init(defaults["config_path"], cfg); err != nil {
			return fmt.Errorf("failed to initialize config: %w", err)
		}

		fmt.Printf("Configuration initialized at %s\n", defaults["config_path"])
		fmt.Printf("Backup Root: %s\n", cfg.BackupRoot)
		fmt.Printf("Output Dir:  %s\n", cfg.Export.OutputDir)
		return nil
	},
}

var configListCmd = &cobra.Command{
	Use:   "list",
	Short: "View configuration",
	RunE: func(cmd *cobra.Command, args []string) error {
		defaults, err := app.GetDefaults()
		if err != nil {
			return fmt.Errorf("failed to get defaults: %w", err)
		}

		cfg, err := config.ReadFromFile(defaults["config_path"])
		if err != nil {
			return fmt.Errorf("failed to read config: %w", err)
		}

		fmt.Printf("Configuration from %s:\n\n", defaults["config_path"])
		fmt.Printf("Backup Root: %s\n", cfg.BackupRoot)
		fmt.Printf("Work Dir:    %s\n", cfg.WorkDir)
		fmt.Printf("Log Dir:     %s\n", cfg.LogDir)
		fmt.Printf("Export:      %s\n", cfg.Export.Type)
		return nil
	},
}

// list command
var listCmd = &cobra.Command{
	Use:   "list",
	Short: "List candidate backups",
	RunE: func(cmd *cobra.Command, args []string) error {
		a, err := newApp()
		if err != nil {
			return err
		}
		defer a.Close()

		backups, err := a.ListBackups()
		if err != nil {
			return err
		}
		if len(backups) == 0 {
			fmt.Println("No backups found.")
			return nil
		}

		rows := make([][]string, len(backups))
		for i, b := range backups {
			last := "never"
			if !b.LastBackup.IsZero() {
				last = b.LastBackup.UTC().Format("2006-01-02 15:04")
			}
			encrypted := ""
			if b.Encrypted {
				encrypted = "yes"
			}
			rows[i] = []string{b.Identifier, b.DeviceName, b.ProductVersion, last, encrypted}
		}
		renderRows([]string{"Identifier", "Device", "Version", "Last Backup", "Encrypted"}, rows)
		return nil
	},
}

// extract command
var (
	extractBackup         string
	extractIncludeDeleted bool
	extractKeepWork       bool
	extractNoExport       bool
)

var extractCmd = &cobra.Command{
	Use:   "extract",
	Short: "Extract and reconcile voicemails from a backup",
	RunE: func(cmd *cobra.Command, args []string) error {
		a, err := newApp()
		if err != nil {
			return err
		}
		defer a.Close()

		result, err := a.Extract(cmd.Context(), app.ExtractOptions{
			Identifier:     extractBackup,
			IncludeDeleted: extractIncludeDeleted,
			KeepWork:       extractKeepWork,
			SkipExport:     extractNoExport,
		})
		if err != nil {
			return err
		}

		matched := 0
		for _, p := range result.Payloads {
			if p.Record != nil {
				matched++
			}
		}
		fmt.Printf("Extracted %d voicemails from %s (%d matched, %d unmatched, %d surplus records, %d skipped)\n",
			len(result.Payloads), result.Backup.Identifier,
			matched, len(result.Payloads)-matched, len(result.Surplus), len(result.Skipped))
		if !result.AttributesLoaded {
			fmt.Println("Attribute database was absent or unusable; ran in file-only mode.")
		}
		if extractKeepWork || extractNoExport {
			fmt.Printf("Work directory: %s\n", result.WorkDir)
		}
		for _, p := range result.Payloads {
			if p.Record != nil {
				fmt.Printf("  %s  %s  %ds\n",
					p.Record.Received.UTC().Format(time.RFC3339),
					export.FormatNumber(p.Record.Sender),
					p.Record.Duration)
			}
		}
		return nil
	},
}

// history command
var historyLimit int

var historyCmd = &cobra.Command{
	Use:   "history",
	Short: "Show recent extraction runs",
	RunE: func(cmd *cobra.Command, args []string) error {
		a, err := newApp()
		if err != nil {
			return err
		}
		defer a.Close()

		runs, err := a.History(historyLimit)
		if err != nil {
			return err
		}
		if len(runs) == 0 {
			fmt.Println("No runs recorded.")
			return nil
		}

		rows := make([][]string, len(runs))
		for i, r := range runs {
			finished := "-"
			if r.FinishedAt != nil {
				finished = r.FinishedAt.UTC().Format("2006-01-02 15:04")
			}
			rows[i] = []string{
				r.ID,
				r.BackupIdentifier,
				r.StartedAt.UTC().Format("2006-01-02 15:04"),
				finished,
				fmt.Sprintf("%d/%d", r.Matched, r.Extracted),
				r.Status,
			}
		}
		renderRows([]string{"Run", "Backup", "Started", "Finished", "Matched", "Status"}, rows)
		return nil
	},
}

func init() {
	extractCmd.Flags().StringVar(&extractBackup, "backup", "", "backup identifier to extract from")
	extractCmd.Flags().BoolVar(&extractIncludeDeleted, "include-deleted", false, "include voicemails the device had trashed")
	extractCmd.Flags().BoolVar(&extractKeepWork, "keep-work", false, "keep the run's working directory")
	extractCmd.Flags().BoolVar(&extractNoExport, "no-export", false, "skip export, leave payloads in the working directory")
	historyCmd.Flags().IntVar(&historyLimit, "limit", 20, "maximum runs to show")

	configCmd.AddCommand(configInitCmd, configListCmd)
	rootCmd.AddCommand(configCmd, listCmd, extractCmd, historyCmd)
}
