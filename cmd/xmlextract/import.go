package main

import (
	"errors"
	"fmt"
	"io"
	"os"

	"github.com/spf13/cobra"

	"github.com/TheMichaelB/xmlextract/internal/crypto"
	"github.com/TheMichaelB/xmlextract/internal/events"
	"github.com/TheMichaelB/xmlextract/internal/models"
	"github.com/TheMichaelB/xmlextract/internal/services/extract"
	"github.com/TheMichaelB/xmlextract/internal/services/meters"
	"github.com/TheMichaelB/xmlextract/internal/storage"
)

var importCmd = &cobra.Command{
	Use:   "import <kem_file> <password>",
	Short: "Decrypt a KEM file and write wmbusmeters meter files",
	Long: `Decrypt a Kamstrup KEM file (or a zip archive holding one) and import the
meters it lists into a wmbusmeters config tree.

--useconfig has the same meaning as the wmbusmeters daemon option:
--useconfig=/ populates /etc/wmbusmeters.d and --useconfig=. populates
./etc/wmbusmeters.d. Missing folders are created. Existing meter files
are handled according to import.on_conflict (overwrite, skip or error).

The key is built from the uppercased password. Pass --no-uppercase for
files sealed with the password exactly as typed.`,
	Example: `  xmlextract import export.kem CustomerId
  xmlextract import export.zip CustomerId --useconfig / --dryrun`,
	Args: cobra.ExactArgs(2),
	RunE: runImport,
}

var (
	importConfigDir   string
	importDryRun      bool
	importOutput      string
	importNoUppercase bool
)

func init() {
	importCmd.Flags().StringVarP(&importConfigDir, "useconfig", "c", "",
		"Root of the wmbusmeters config tree (default from config, .)")
	importCmd.Flags().BoolVarP(&importDryRun, "dryrun", "n", false,
		"Only print meter information, create no meter files")
	importCmd.Flags().StringVarP(&importOutput, "output", "o", "",
		"Save the decrypted KEM content into this file")
	importCmd.Flags().BoolVar(&importNoUppercase, "no-uppercase", false,
		"Use the password bytes as typed instead of uppercasing them")

	rootCmd.AddCommand(importCmd)
}

func runImport(cmd *cobra.Command, args []string) error {
	kemFile, password := args[0], args[1]

	ctx := events.WithDocument(cmd.Context(), kemFile)
	logger := events.FromContext(ctx)

	configDir := cfg.Import.ConfigDir
	if importConfigDir != "" {
		configDir = importConfigDir
	}
	dryRun := cfg.Import.DryRun || importDryRun

	strategy, err := storage.ParseConflictStrategy(cfg.Import.OnConflict)
	if err != nil {
		return fmt.Errorf("%w: %v", models.ErrInvalidConfig, err)
	}

	decrypter := extract.NewService(crypto.NewProvider(), logger)
	decrypter.SetRawPassword(importNoUppercase)

	result, err := decrypter.DecryptFile(password, kemFile)
	if err != nil {
		return err
	}
	if result.Entry != "" && !jsonOutput {
		printInfo("Detected a zip file on input, extracted %s", result.Entry)
	}

	if importOutput != "" {
		if err := storage.WriteFileAtomic(importOutput, result.Plaintext, 0600); err != nil {
			return fmt.Errorf("save output: %w", err)
		}
		logger.WithField("output", importOutput).Info("Saved decrypted content")
	}

	store, err := storage.NewLocalStore(configDir, logger)
	if err != nil {
		return err
	}
	store.SetConflictStrategy(strategy)

	svc := meters.NewService(store, logger)
	svc.SetDryRun(dryRun)

	if !dryRun {
		dir, created, err := svc.EnsureMeterDir()
		if err != nil {
			warnPermission(err)
			return err
		}
		if created && !jsonOutput {
			printInfo("Creating target folder: %s", dir)
		}
	}

	outcomes, err := svc.Import(result.Plaintext)
	if jsonOutput {
		if err == nil {
			printImportJSON(outcomes, configDir, dryRun)
		}
		return err
	}

	for _, o := range outcomes {
		printMeter(cmd.OutOrStdout(), o, dryRun)
	}

	if err != nil {
		warnPermission(err)
		return err
	}

	if !dryRun {
		printSuccess("Imported %d meter file(s) into %s", written(outcomes), store.BaseDir())
	}
	return nil
}

func warnPermission(err error) {
	if errors.Is(err, os.ErrPermission) && !jsonOutput {
		printWarning("You may need to use 'sudo' to access the target config folder.")
	}
}

func printMeter(w io.Writer, o meters.Outcome, dryRun bool) {
	m := o.Meter
	driver := m.Driver()
	if driver == "" {
		driver = "None"
	}

	fmt.Fprintf(w, "Found meter %s (%s)\n", m.Name, m.Model)
	fmt.Fprintf(w, "    number : %s\n", m.Number)
	fmt.Fprintf(w, "    serial : %s\n", m.Serial)
	fmt.Fprintf(w, "    type   : %s\n", m.ConsumptionType)
	fmt.Fprintf(w, "    driver : %s\n", driver)
	fmt.Fprintf(w, "    config : %s\n", m.Config)
	fmt.Fprintf(w, "    key    : %s\n", m.Key)

	if dryRun {
		return
	}
	switch {
	case o.Skipped:
		fmt.Fprintln(w, "    !! unknown meter type, meter file has not been created")
	case o.Kept:
		fmt.Fprintf(w, "    meter file: %s (existing file kept)\n", o.File)
	default:
		fmt.Fprintf(w, "    meter file: %s\n", o.File)
	}
}

func written(outcomes []meters.Outcome) int {
	n := 0
	for _, o := range outcomes {
		if o.File != "" && !o.Kept {
			n++
		}
	}
	return n
}

func printImportJSON(outcomes []meters.Outcome, configDir string, dryRun bool) {
	type meterJSON struct {
		models.Meter
		Driver  string `json:"driver,omitempty"`
		File    string `json:"file,omitempty"`
		Skipped bool   `json:"skipped,omitempty"`
		Kept    bool   `json:"kept,omitempty"`
	}

	list := make([]meterJSON, 0, len(outcomes))
	for _, o := range outcomes {
		list = append(list, meterJSON{
			Meter:   o.Meter,
			Driver:  o.Meter.Driver(),
			File:    o.File,
			Skipped: o.Skipped,
			Kept:    o.Kept,
		})
	}

	printJSON(map[string]interface{}{
		"success":    true,
		"config_dir": configDir,
		"dry_run":    dryRun,
		"meters":     list,
	})
}
