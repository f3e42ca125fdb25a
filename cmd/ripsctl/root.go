package main

import (
	"context"
	"fmt"
	"os"
	"path/filepath"
	"runtime"
	"strings"

	"github.com/google/uuid"
	"github.com/spf13/cobra"
	"go.uber.org/zap"
	"gopkg.in/yaml.v3"

	"ripsnc/internal/config"
	"ripsnc/internal/domain"
	"ripsnc/internal/logger"
	"ripsnc/internal/repository/memory"
	"ripsnc/internal/service"
)

// Version is set at build time with -ldflags "-X main.Version=...".
var Version = "dev"

// app carries what every subcommand needs. Commands run against a private
// in-memory session so they share the server's code paths.
type app struct {
	cfg      *config.Config
	log      *zap.Logger
	sessions service.SessionService
	notes    service.CreditNoteService
	verbose  bool
	output   string
}

func newRootCmd() *cobra.Command {
	a := &app{}
	root := &cobra.Command{
		Use:           "ripsctl",
		Short:         "Build health claims credit notes from local files",
		SilenceUsage:  true,
		SilenceErrors: true,
		PersistentPreRunE: func(cmd *cobra.Command, _ []string) error {
			return a.init()
		},
		PersistentPostRun: func(cmd *cobra.Command, _ []string) {
			if a.log != nil {
				_ = a.log.Sync()
			}
		},
	}
	root.PersistentFlags().BoolVarP(&a.verbose, "verbose", "v", false, "log at debug level")
	root.PersistentFlags().StringVarP(&a.output, "output", "o", "", "output file (default stdout)")

	root.AddCommand(
		newReconcileCmd(a),
		newTemplateCmd(a),
		newXMLCmd(a),
		newEmbedCmd(a),
		newBuildCmd(a),
		newAttachedCmd(a),
		newSubmitCmd(a),
		&cobra.Command{
			Use:   "version",
			Short: "Print the version",
			Run: func(cmd *cobra.Command, _ []string) {
				fmt.Fprintf(cmd.OutOrStdout(), "ripsctl %s (%s)\n", Version, runtime.Version())
			},
		},
	)
	return root
}

func (a *app) init() error {
	cfg, err := config.Load()
	if err != nil {
		return fmt.Errorf("loading config: %w", err)
	}
	logCfg := cfg.Log
	if a.verbose {
		logCfg.Level = "debug"
	} else if os.Getenv("RIPSNC_LOG_LEVEL") == "" {
		logCfg.Level = "warn"
	}
	log, err := logger.NewZapLogger(&logCfg, cfg.Server.Environment)
	if err != nil {
		return fmt.Errorf("initializing logger: %w", err)
	}
	store := memory.NewSessionStore()
	a.cfg = cfg
	a.log = log
	a.sessions = service.NewSessionService(store, nil, &cfg.RIPS, log)
	a.notes = service.NewCreditNoteService(store, log)
	return nil
}

// open loads the note and optional reference into a new session.
func (a *app) open(ctx context.Context, notePath, refPath string) (uuid.UUID, error) {
	input := service.CreateSessionInput{NoteName: filepath.Base(notePath)}
	var err error
	if input.Note, err = os.ReadFile(notePath); err != nil {
		return uuid.Nil, err
	}
	if refPath != "" {
		input.ReferenceName = filepath.Base(refPath)
		if input.Reference, err = os.ReadFile(refPath); err != nil {
			return uuid.Nil, err
		}
	}
	sess, err := a.sessions.Create(ctx, input)
	if err != nil {
		return uuid.Nil, err
	}
	return sess.ID, nil
}

func (a *app) write(cmd *cobra.Command, data []byte) error {
	if a.output == "" {
		_, err := cmd.OutOrStdout().Write(data)
		return err
	}
	if err := os.WriteFile(a.output, data, 0o644); err != nil {
		return err
	}
	a.log.Info("output written", zap.String("path", a.output), zap.Int("bytes", len(data)))
	return nil
}

// readStructured decodes a YAML or JSON file into out. YAML is converted
// through JSON so the json tags and custom decoders of out apply.
func readStructured(path string, out any) error {
	data, err := os.ReadFile(path)
	if err != nil {
		return err
	}
	switch strings.ToLower(filepath.Ext(path)) {
	case ".yaml", ".yml":
		var doc any
		if err := yaml.Unmarshal(data, &doc); err != nil {
			return fmt.Errorf("%s: %w", path, err)
		}
		if data, err = jsonFromYAML(doc); err != nil {
			return fmt.Errorf("%s: %w", path, err)
		}
	case ".json":
	default:
		return fmt.Errorf("%w: %s", domain.ErrUnsupportedFileType, path)
	}
	return decodeJSON(data, out)
}
