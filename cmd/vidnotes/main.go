package main

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"os"

	"github.com/spf13/cobra"
	"github.com/spf13/viper"
	"go.uber.org/zap"

	"github.com/vidnotes/vidnotes/internal/annotations"
	"github.com/vidnotes/vidnotes/internal/config"
	"github.com/vidnotes/vidnotes/internal/logging"
	"github.com/vidnotes/vidnotes/internal/persistence"
)

var (
	cfgFile string
)

func main() {
	rootCmd := &cobra.Command{
		Use:   "vidnotes",
		Short: "Timestamped video annotation store",
		PersistentPreRunE: func(cmd *cobra.Command, args []string) error {
			return initConfig()
		},
	}

	setupFlags(rootCmd)

	rootCmd.AddCommand(newListCommand(), newExportCommand(), newMigrateCommand())

	if err := rootCmd.Execute(); err != nil {
		os.Exit(1)
	}
}

func setupFlags(cmd *cobra.Command) {
	config.ApplyDefaults(viper.GetViper())
	defaults := config.NewViper()
	cmd.PersistentFlags().StringVar(&cfgFile, "config", "", "Path to configuration file")
	cmd.PersistentFlags().String("storage-backend", defaults.GetString("storage.backend"), "Persistence backend (keyvalue, videoscoped)")
	cmd.PersistentFlags().String("database-path", defaults.GetString("storage.database_path"), "SQLite database path for the key-value backend")
	cmd.PersistentFlags().String("notes-dir", defaults.GetString("storage.notes_dir"), "Data directory for the video-scoped backend")
	cmd.PersistentFlags().String("log-level", defaults.GetString("log.level"), "Log level (debug, info, warn, error)")

	bindFlag(cmd, "storage.backend", "storage-backend")
	bindFlag(cmd, "storage.database_path", "database-path")
	bindFlag(cmd, "storage.notes_dir", "notes-dir")
	bindFlag(cmd, "log.level", "log-level")
}

func bindFlag(cmd *cobra.Command, key, flag string) {
	if err := viper.BindPFlag(key, cmd.PersistentFlags().Lookup(flag)); err != nil {
		panic(err)
	}
}

func initConfig() error {
	if cfgFile != "" {
		viper.SetConfigFile(cfgFile)
	}

	if err := viper.ReadInConfig(); err != nil {
		var configNotFound viper.ConfigFileNotFoundError
		if cfgFile != "" && errors.As(err, &configNotFound) {
			return err
		}
	}

	return nil
}

type runtime struct {
	cfg     config.AppConfig
	logger  *zap.Logger
	backend persistence.Backend
	closer  func() error
}

func newRuntime() (*runtime, error) {
	appConfig, err := config.Load(viper.GetViper())
	if err != nil {
		return nil, err
	}

	logger, err := logging.NewLogger(appConfig.LogLevel)
	if err != nil {
		return nil, err
	}

	backend, closer, err := openBackend(appConfig.StorageBackend, appConfig, logger)
	if err != nil {
		return nil, err
	}

	return &runtime{cfg: appConfig, logger: logger, backend: backend, closer: closer}, nil
}

func (r *runtime) close() {
	if r.closer != nil {
		r.closer() //nolint:errcheck
	}
	r.logger.Sync() //nolint:errcheck
}

func openBackend(kind string, appConfig config.AppConfig, logger *zap.Logger) (persistence.Backend, func() error, error) {
	switch kind {
	case config.BackendKeyValue:
		backend, err := persistence.OpenKeyValue(appConfig.DatabasePath, logger)
		if err != nil {
			return nil, nil, err
		}
		return backend, backend.Close, nil
	case config.BackendVideoScoped:
		backend, err := persistence.OpenVideoScoped(appConfig.NotesDir, logger)
		if err != nil {
			return nil, nil, err
		}
		return backend, func() error { return nil }, nil
	default:
		return nil, nil, fmt.Errorf("unknown storage backend %q", kind)
	}
}

func openStore(ctx context.Context, r *runtime) (*annotations.Store, error) {
	store, err := annotations.NewStore(annotations.StoreConfig{Backend: r.backend, Logger: r.logger})
	if err != nil {
		return nil, err
	}
	if err := store.Load(ctx); err != nil {
		// A failed load degrades to an empty, usable store.
		r.logger.Warn("loading annotations failed", zap.Error(err))
	}
	return store, nil
}

func newListCommand() *cobra.Command {
	return &cobra.Command{
		Use:   "list <video-id>",
		Short: "Print a video's notes in display order",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			r, err := newRuntime()
			if err != nil {
				return err
			}
			defer r.close()

			videoID, err := annotations.NewVideoID(args[0])
			if err != nil {
				return err
			}

			store, err := openStore(cmd.Context(), r)
			if err != nil {
				return err
			}

			if title := store.Title(videoID); title != "" {
				fmt.Fprintf(cmd.OutOrStdout(), "# %s\n", title)
			}
			for _, record := range store.NotesByTime(videoID) {
				fmt.Fprintf(cmd.OutOrStdout(), "%s\t%s\t%s\n",
					record.DisplayTime(), record.ID.String(), record.Content)
			}
			return nil
		},
	}
}

func newExportCommand() *cobra.Command {
	return &cobra.Command{
		Use:   "export",
		Short: "Write the full annotation collection as JSON",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			r, err := newRuntime()
			if err != nil {
				return err
			}
			defer r.close()

			store, err := openStore(cmd.Context(), r)
			if err != nil {
				return err
			}

			encoder := json.NewEncoder(cmd.OutOrStdout())
			encoder.SetIndent("", "  ")
			return encoder.Encode(store.Snapshot())
		},
	}
}

func newMigrateCommand() *cobra.Command {
	var target string
	cmd := &cobra.Command{
		Use:   "migrate",
		Short: "Copy the annotation collection into the other backend",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			r, err := newRuntime()
			if err != nil {
				return err
			}
			defer r.close()

			if target == r.cfg.StorageBackend {
				return fmt.Errorf("target backend %q is already active", target)
			}

			destination, closeDestination, err := openBackend(target, r.cfg, r.logger)
			if err != nil {
				return err
			}
			defer closeDestination() //nolint:errcheck

			state, err := r.backend.Load(cmd.Context())
			if err != nil {
				return err
			}
			if err := destination.Save(cmd.Context(), state); err != nil {
				return err
			}

			r.logger.Info("migration complete",
				zap.String("from", r.cfg.StorageBackend),
				zap.String("to", target),
				zap.Int("videos", len(state)))
			return nil
		},
	}
	cmd.Flags().StringVar(&target, "to", "", "Destination backend (keyvalue, videoscoped)")
	cmd.MarkFlagRequired("to") //nolint:errcheck
	return cmd
}
