// Command catalog-import reviews or saves a product spreadsheet from the
// command line, with the same pipeline the web server uses.
package main

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"os"
	"os/signal"
	"path/filepath"
	"syscall"

	"github.com/joho/godotenv"
	"github.com/spf13/cobra"

	"github.com/openfoodfoundation/openfoodnetwork-sub012/internal/config"
	"github.com/openfoodfoundation/openfoodnetwork-sub012/internal/core"
	"github.com/openfoodfoundation/openfoodnetwork-sub012/internal/database"
	"github.com/openfoodfoundation/openfoodnetwork-sub012/internal/logging"
)

var errImportErrors = errors.New("import finished with errors")

type options struct {
	userID       int64
	settingsPath string
	start, end   int
	pretty       bool
}

func main() {
	var opts options

	rootCmd := &cobra.Command{
		Use:           "catalog-import",
		Short:         "Import products and inventories from CSV or XLSX files",
		SilenceUsage:  true,
		SilenceErrors: true,
	}
	rootCmd.PersistentFlags().Int64Var(&opts.userID, "user", 0, "ID of the user the import runs as (required)")
	rootCmd.PersistentFlags().StringVar(&opts.settingsPath, "settings", "", "Path to a JSON settings file")
	rootCmd.PersistentFlags().IntVar(&opts.start, "start", 0, "First line to process")
	rootCmd.PersistentFlags().IntVar(&opts.end, "end", 0, "Last line to process")
	rootCmd.PersistentFlags().BoolVar(&opts.pretty, "pretty", false, "Pretty-print JSON output")
	_ = rootCmd.MarkPersistentFlagRequired("user")

	rootCmd.AddCommand(newReviewCmd(&opts), newSaveCmd(&opts))

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	err := rootCmd.ExecuteContext(ctx)
	stop()
	if err != nil {
		if !errors.Is(err, errImportErrors) {
			fmt.Fprintln(os.Stderr, "error:", err)
		}
		os.Exit(1)
	}
}

func newReviewCmd(opts *options) *cobra.Command {
	var xlsxPath string

	cmd := &cobra.Command{
		Use:   "review FILE",
		Short: "Validate a file and print what each line would do",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			return withImport(cmd.Context(), opts, args[0], func(ctx context.Context, env *importEnv) error {
				if xlsxPath != "" {
					return writeReviewXLSX(ctx, env, xlsxPath)
				}
				res, err := env.service.Review(ctx, env.upload.ID, env.user, env.settings)
				if err != nil {
					return err
				}
				if err := printJSON(cmd.OutOrStdout(), res, opts.pretty); err != nil {
					return err
				}
				if len(res.Errors) > 0 {
					return errImportErrors
				}
				return nil
			})
		},
	}
	cmd.Flags().StringVar(&xlsxPath, "xlsx", "", "Write the review as a workbook to this path instead of printing JSON")
	return cmd
}

func newSaveCmd(opts *options) *cobra.Command {
	var stageSize int

	cmd := &cobra.Command{
		Use:   "save FILE",
		Short: "Save a file, in stages when it is larger than --stage-size",
		Long: `Save creates and updates products or inventory items from FILE.

With --start and --end only those lines are saved and absent items are not
reset. Otherwise the file is saved in stages of --stage-size lines and
absent items are reset at the end.`,
		Args: cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			return withImport(cmd.Context(), opts, args[0], func(ctx context.Context, env *importEnv) error {
				size := stageSize
				if size <= 0 {
					size = env.cfg.Import.StageSize
				}

				var (
					res core.SaveResults
					err error
				)
				if opts.start > 0 || opts.end > 0 {
					res, err = env.service.SaveStage(ctx, env.upload.ID, env.user, env.settings, opts.start, opts.end, core.TouchedIDs{})
				} else {
					res, err = env.service.SaveInStages(ctx, env.upload.ID, env.user, env.settings, size)
				}
				if err != nil {
					return err
				}
				if err := printJSON(cmd.OutOrStdout(), res, opts.pretty); err != nil {
					return err
				}
				if len(res.Errors) > 0 {
					return errImportErrors
				}
				return nil
			})
		},
	}
	cmd.Flags().IntVar(&stageSize, "stage-size", 0, "Lines per stage (default: IMPORT_STAGE_SIZE)")
	return cmd
}

// importEnv is what a subcommand needs once the file is stored.
type importEnv struct {
	cfg      *config.Config
	service  *core.Service
	user     core.User
	settings *core.Settings
	upload   core.Upload
}

// withImport loads configuration, connects, stores path as an upload in a
// private directory and calls fn. The upload is removed afterwards.
func withImport(ctx context.Context, opts *options, path string, fn func(context.Context, *importEnv) error) error {
	_ = godotenv.Load()

	cfg, err := config.Load()
	if err != nil {
		return err
	}
	logging.SetupWriter(os.Stderr, cfg.Logging.Level, cfg.Logging.Format)

	settings, err := readSettings(opts)
	if err != nil {
		return err
	}

	pool, err := database.Connect(ctx, cfg.Database)
	if err != nil {
		return err
	}
	defer pool.Close()

	user, err := core.NewPostgresPermissions(pool).LoadUser(ctx, opts.userID)
	if err != nil {
		return err
	}

	dir, err := os.MkdirTemp("", "catalog-import-*")
	if err != nil {
		return fmt.Errorf("create upload dir: %w", err)
	}
	defer os.RemoveAll(dir)

	service, err := core.NewPostgresService(pool, core.ServiceConfig{
		UploadDir:     dir,
		MaxFileSize:   cfg.Import.MaxFileSize,
		MaxConcurrent: 1,
		MaxWaitTime:   cfg.Import.MaxWaitTime,
		Timeout:       cfg.Import.Timeout,
	})
	if err != nil {
		return err
	}

	f, err := os.Open(path)
	if err != nil {
		return err
	}
	upload, err := service.StoreUpload(ctx, filepath.Base(path), f)
	f.Close()
	if err != nil {
		return err
	}

	return fn(ctx, &importEnv{
		cfg:      cfg,
		service:  service,
		user:     user,
		settings: settings,
		upload:   upload,
	})
}

// readSettings reads --settings and applies --start and --end to it.
func readSettings(opts *options) (*core.Settings, error) {
	settings := &core.Settings{}
	if opts.settingsPath != "" {
		f, err := os.Open(opts.settingsPath)
		if err != nil {
			return nil, err
		}
		defer f.Close()
		if settings, err = core.ReadSettings(f); err != nil {
			return nil, err
		}
	}
	if opts.start > 0 {
		settings.Start = opts.start
	}
	if opts.end > 0 {
		settings.End = opts.end
	}
	return settings, nil
}

func writeReviewXLSX(ctx context.Context, env *importEnv, path string) error {
	out, err := os.Create(path)
	if err != nil {
		return err
	}
	if err := env.service.ExportReview(ctx, env.upload.ID, env.user, env.settings, out); err != nil {
		out.Close()
		os.Remove(path)
		return err
	}
	return out.Close()
}

func printJSON(w io.Writer, v any, pretty bool) error {
	enc := json.NewEncoder(w)
	if pretty {
		enc.SetIndent("", "  ")
	}
	return enc.Encode(v)
}
