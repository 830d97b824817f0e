package main

import (
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"os"
	"strings"

	"github.com/spf13/cobra"

	"github.com/kalambet/prefkeep/internal/config"
	"github.com/kalambet/prefkeep/internal/form"
	"github.com/kalambet/prefkeep/internal/storage"
)

// errValidation marks a save rejected because an input was blank.
var errValidation = errors.New("validation")

// runAction performs one form action, locally or against the running server.
func runAction(cmd *cobra.Command, action form.Action, in form.Entry) (form.View, error) {
	if remote {
		client, err := newAPIClient()
		if err != nil {
			return form.View{}, err
		}
		return client.submit(cmd.Context(), action, in)
	}

	cfg, err := loadConfig()
	if err != nil {
		return form.View{}, err
	}
	store, err := openStore(cfg)
	if err != nil {
		return form.View{}, err
	}

	v, err := form.NewController(store).Submit(action, in)
	if closeErr := store.Close(); closeErr != nil && err == nil {
		err = fmt.Errorf("persisting preferences: %w", closeErr)
	}
	return v, err
}

// renderView prints the result area to out and the notice to stderr.
func renderView(out io.Writer, v form.View) error {
	if v.Result != "" {
		fmt.Fprintln(out, v.Result)
	}
	switch v.Notice {
	case "":
	case form.MsgEmptyInput:
		return fmt.Errorf("%w: %s", errValidation, v.Notice)
	case form.MsgNoData:
		printWarning("%s", v.Notice)
	default:
		printSuccess("%s", v.Notice)
	}
	return nil
}

// --- save / load / delete ---

var saveCmd = &cobra.Command{
	Use:     "save",
	Aliases: []string{"simpan"},
	Short:   "Save a name and email",
	Long: `Save a name and email, replacing whatever is stored.

Both values are trimmed and must not be empty.

Examples:
  prefkeep save --name "Ana" --email ana@example.com`,
	Args: cobra.NoArgs,
	RunE: func(cmd *cobra.Command, args []string) error {
		name, _ := cmd.Flags().GetString("name")
		email, _ := cmd.Flags().GetString("email")

		v, err := runAction(cmd, form.ActionSave, form.Entry{Name: name, Email: email})
		if err != nil {
			return err
		}
		return renderView(cmd.OutOrStdout(), v)
	},
}

var loadCmd = &cobra.Command{
	Use:     "load",
	Aliases: []string{"muat"},
	Short:   "Show the stored name and email",
	Args:    cobra.NoArgs,
	RunE: func(cmd *cobra.Command, args []string) error {
		v, err := runAction(cmd, form.ActionLoad, form.Entry{})
		if err != nil {
			return err
		}
		return renderView(cmd.OutOrStdout(), v)
	},
}

var deleteCmd = &cobra.Command{
	Use:     "delete",
	Aliases: []string{"hapus"},
	Short:   "Delete the stored name and email",
	Args:    cobra.NoArgs,
	RunE: func(cmd *cobra.Command, args []string) error {
		v, err := runAction(cmd, form.ActionDelete, form.Entry{})
		if err != nil {
			return err
		}
		return renderView(cmd.OutOrStdout(), v)
	},
}

func init() {
	saveCmd.Flags().String("name", "", "name to store")
	saveCmd.Flags().String("email", "", "email address to store")
}

// --- form ---

var formCmd = &cobra.Command{
	Use:   "form",
	Short: "Open the interactive form",
	Long: `Open the interactive form. The stored entry is shown on start.

Commands: save (simpan), load (muat), delete (hapus), quit.`,
	Args: cobra.NoArgs,
	RunE: func(cmd *cobra.Command, args []string) error {
		cfg, err := loadConfig()
		if err != nil {
			return err
		}
		store, err := openStore(cfg)
		if err != nil {
			return err
		}

		runErr := runSession(cmd.InOrStdin(), cmd.OutOrStdout(), form.NewController(store))
		if err := store.Close(); err != nil && runErr == nil {
			runErr = fmt.Errorf("persisting preferences: %w", err)
		}
		return runErr
	},
}

// --- data ---

var dataCmd = &cobra.Command{
	Use:   "data",
	Short: "Export or purge stored data",
}

type exportRecord struct {
	Namespace   string               `json:"namespace"`
	Backend     string               `json:"backend"`
	Entry       form.Entry           `json:"entry"`
	Preferences []storage.Preference `json:"preferences,omitempty"`
}

var dataExportCmd = &cobra.Command{
	Use:   "export",
	Short: "Export the stored entry as JSON",
	RunE: func(cmd *cobra.Command, args []string) error {
		output, _ := cmd.Flags().GetString("output")

		cfg, err := loadConfig()
		if err != nil {
			return err
		}
		store, err := openStore(cfg)
		if err != nil {
			return err
		}
		defer store.Close()

		rec := exportRecord{
			Namespace: cfg.Store.Namespace,
			Backend:   cfg.Store.Backend,
			Entry:     form.ReadEntry(store),
		}
		if store.db != nil {
			prefs, err := store.db.ListPreferences(cfg.Store.Namespace)
			if err != nil {
				return fmt.Errorf("listing preferences: %w", err)
			}
			rec.Preferences = prefs
		}

		var writer io.Writer = cmd.OutOrStdout()
		if output != "" {
			f, err := os.Create(output)
			if err != nil {
				return fmt.Errorf("creating output file: %w", err)
			}
			defer f.Close()
			writer = f
		}

		enc := json.NewEncoder(writer)
		enc.SetIndent("", "  ")
		if err := enc.Encode(rec); err != nil {
			return err
		}

		if output != "" {
			printSuccess("Data exported to %s", output)
		}
		return nil
	},
}

var dataPurgeCmd = &cobra.Command{
	Use:   "purge",
	Short: "Delete every key in the namespace",
	RunE: func(cmd *cobra.Command, args []string) error {
		confirm, _ := cmd.Flags().GetBool("confirm")
		if !confirm {
			printWarning("This will delete ALL keys in the namespace. Use --confirm to proceed.")
			return nil
		}

		cfg, err := loadConfig()
		if err != nil {
			return err
		}
		store, err := openStore(cfg)
		if err != nil {
			return err
		}
		defer store.Close()

		printStep("Purging namespace %s...", cfg.Store.Namespace)
		if store.db != nil {
			n, err := store.db.ClearNamespace(cfg.Store.Namespace)
			if err != nil {
				return fmt.Errorf("purging namespace: %w", err)
			}
			printSuccess("Purged %d keys", n)
			return nil
		}

		// Other backends only know the form's keys.
		_, edit := form.Delete(form.View{}, store)
		if err := store.Commit(edit); err != nil {
			return fmt.Errorf("purging namespace: %w", err)
		}
		printSuccess("All data purged")
		return nil
	},
}

func init() {
	dataExportCmd.Flags().String("output", "", "output file path (default: stdout)")
	dataPurgeCmd.Flags().Bool("confirm", false, "confirm data purge")
	dataCmd.AddCommand(dataExportCmd)
	dataCmd.AddCommand(dataPurgeCmd)
}

// --- config ---

var configCmd = &cobra.Command{
	Use:   "config",
	Short: "Show or update configuration",
}

var configShowCmd = &cobra.Command{
	Use:   "show",
	Short: "Show current configuration",
	RunE: func(cmd *cobra.Command, args []string) error {
		cfg, err := config.Load()
		if err != nil {
			return err
		}

		keys := config.ShowAll(cfg)
		for _, k := range keys {
			fmt.Fprintf(cmd.OutOrStdout(), "  %s = %s\n", colorize(colorBold, k.Key), k.Value)
		}
		return nil
	},
}

var configSetCmd = &cobra.Command{
	Use:   "set <key> <value>",
	Short: "Set a configuration value",
	Long:  "Set a configuration value. Valid keys: " + strings.Join(config.ValidKeys(), ", "),
	Args:  cobra.ExactArgs(2),
	RunE: func(cmd *cobra.Command, args []string) error {
		key, value := args[0], args[1]

		if err := config.SetKey(key, value); err != nil {
			return err
		}

		printSuccess("Set %s = %s", key, value)
		return nil
	},
}

func init() {
	configCmd.AddCommand(configShowCmd)
	configCmd.AddCommand(configSetCmd)
}
