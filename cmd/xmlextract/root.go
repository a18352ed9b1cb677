package main

import (
	"context"
	"errors"
	"fmt"

	"github.com/fatih/color"
	"github.com/spf13/cobra"

	"github.com/TheMichaelB/xmlextract/internal/config"
	"github.com/TheMichaelB/xmlextract/internal/crypto"
	"github.com/TheMichaelB/xmlextract/internal/events"
	"github.com/TheMichaelB/xmlextract/internal/models"
	"github.com/TheMichaelB/xmlextract/internal/services/extract"
	"github.com/TheMichaelB/xmlextract/internal/storage"
	"github.com/TheMichaelB/xmlextract/internal/transcode"
)

const usageLine = "xmlextract [password] [encrypted_xml_file]"

var rootCmd = &cobra.Command{
	Use:   "xmlextract [--] <password> <encrypted_xml_file>",
	Short: "Decrypt the CipherValue payload of an XML-Encryption file",
	Long: `xmlextract recovers the plaintext embedded in the <CipherValue> element of
an XML-Encryption file such as a Kamstrup KEM export.

The key is the uppercased password, truncated or zero-padded to 16 bytes,
and is used as both AES-128 key and CBC IV. Padding is not removed and a
wrong password produces garbage rather than an error.

Put "--" before the password when it starts with "-" or matches a
subcommand name (import, config, help, completion).`,
	Example: `  xmlextract CustomerId export.kem
  xmlextract secret export.zip --output decrypted.xml
  xmlextract -- -secret- export.kem
  xmlextract -- import export.kem`,
	Args:          cobra.ArbitraryArgs,
	SilenceUsage:  true,
	SilenceErrors: true,
	RunE:          runDecrypt,
}

var (
	configFile string
	logLevel   string
	logFormat  string
	noColor    bool
	jsonOutput bool

	decryptOutput   string
	decryptEncoding string

	cfg    *config.Config
	logger *events.Logger
)

func init() {
	// Assigned here rather than in the literal to avoid an initialization
	// cycle: setup refers back to rootCmd.
	rootCmd.PersistentPreRunE = setup

	pf := rootCmd.PersistentFlags()
	pf.StringVar(&configFile, "config", "",
		"Config file (default: ./xmlextract.yaml or ~/.config/xmlextract/)")
	pf.StringVar(&logLevel, "log-level", "",
		"Log level: debug, info, warn, error")
	pf.StringVar(&logFormat, "log-format", "",
		"Log format: text, json")
	pf.BoolVar(&noColor, "no-color", false,
		"Disable colored output")
	pf.BoolVar(&jsonOutput, "json", false,
		"Emit machine-readable JSON")

	rootCmd.Flags().StringVarP(&decryptOutput, "output", "o", "",
		"Also save the raw decrypted bytes to this file")
	rootCmd.Flags().StringVar(&decryptEncoding, "encoding", "",
		"Text encoding of the plaintext (default from config, utf-8)")
}

// setup loads configuration and the logger for every command.
func setup(cmd *cobra.Command, args []string) error {
	setOutput(cmd.OutOrStdout(), cmd.ErrOrStderr())

	// A bare invocation only prints usage, even with a broken config.
	if cmd == rootCmd && len(args) < 2 {
		return nil
	}

	loaded, err := config.NewLoader(configFile).Load()
	if err != nil {
		return err
	}
	cfg = loaded

	if logLevel != "" {
		cfg.Log.Level = logLevel
	}
	if logFormat != "" {
		cfg.Log.Format = logFormat
	}
	if noColor {
		cfg.Log.Color = false
	}
	color.NoColor = color.NoColor || !cfg.Log.Color

	if err := cfg.Validate(); err != nil {
		return fmt.Errorf("invalid flags: %w", err)
	}
	if err := cfg.EnsureDirectories(); err != nil {
		return err
	}

	logger, err = events.NewLogger(&cfg.Log)
	if err != nil {
		return err
	}
	events.SetDefault(logger)

	ctx := cmd.Context()
	if ctx == nil {
		ctx = context.Background()
	}
	cmd.SetContext(events.WithLogger(ctx, logger))

	return nil
}

func runDecrypt(cmd *cobra.Command, args []string) error {
	if len(args) < 2 {
		fmt.Fprintln(cmd.OutOrStdout(), usageLine)
		return nil
	}
	password, path := args[0], args[1]

	ctx := events.WithDocument(cmd.Context(), path)
	log := events.FromContext(ctx)

	encoding := cfg.Output.Encoding
	if decryptEncoding != "" {
		encoding = decryptEncoding
	}
	// Resolve the encoding before decrypting so a typo fails early.
	if _, err := transcode.Lookup(encoding); err != nil {
		return err
	}

	svc := extract.NewService(crypto.NewProvider(), log)
	result, err := svc.DecryptFile(password, path)
	if errors.Is(err, models.ErrUsage) {
		fmt.Fprintln(cmd.OutOrStdout(), usageLine)
		return nil
	}
	if err != nil {
		log.WithError(err).Debug("Decryption failed")
		return err
	}

	text, err := transcode.Decode(result.Plaintext, encoding)
	if err != nil {
		return err
	}

	if decryptOutput != "" {
		if err := storage.WriteFileAtomic(decryptOutput, result.Plaintext, 0600); err != nil {
			return fmt.Errorf("save output: %w", err)
		}
		log.WithField("output", decryptOutput).Info("Saved decrypted content")
	}

	if jsonOutput {
		printJSON(map[string]interface{}{
			"success":   true,
			"path":      result.Path,
			"entry":     result.Entry,
			"bytes":     len(result.Plaintext),
			"plaintext": text,
		})
		return nil
	}

	fmt.Fprintln(cmd.OutOrStdout(), text)
	return nil
}
