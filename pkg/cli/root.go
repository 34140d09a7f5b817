// Package cli implements alpine-admin, the operator CLI that edits the bot
// store directly: admins, entitlements, permission levels and resources.
package cli

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"os"
	"strings"

	_ "github.com/mattn/go-sqlite3"
	"github.com/spf13/cobra"

	"alpine-bot/internal/app"
	"alpine-bot/internal/config"
	internaldb "alpine-bot/internal/db"
	"alpine-bot/internal/domain"
)

var (
	version = "dev"
	commit  = "none"
)

// Execute runs the CLI.
func Execute() int {
	rootCmd, closeEnv := newRootCmd()
	defer closeEnv()
	if err := rootCmd.Execute(); err != nil {
		output, _ := rootCmd.PersistentFlags().GetString("output")
		if output == "json" {
			_ = PrintJSON(os.Stdout, map[string]interface{}{
				"error": err.Error(),
				"kind":  errorKind(err),
			})
		} else {
			fmt.Fprintf(os.Stderr, "Error: %v\n", err)
		}
		return 1
	}
	return 0
}

func errorKind(err error) string {
	var (
		notFound   *domain.NotFoundError
		validation *domain.ValidationError
		conflict   *domain.ConflictError
	)
	switch {
	case errors.As(err, &notFound):
		return "not_found"
	case errors.As(err, &validation):
		return "validation"
	case errors.As(err, &conflict):
		return "conflict"
	default:
		return "internal"
	}
}

// env opens the store and wires the application on first use.
type env struct {
	dbPath       string
	featuresPath string
	envFile      string
	verbose      bool

	app     *app.App
	writeDB *sql.DB
	readDB  *sql.DB
}

func (e *env) open(ctx context.Context, stderr io.Writer) (*app.App, error) {
	if e.app != nil {
		return e.app, nil
	}
	if e.envFile != "" {
		if err := config.LoadDotEnv(e.envFile); err != nil {
			return nil, err
		}
	}
	cfg, err := config.LoadFromEnv()
	if err != nil {
		return nil, err
	}
	if e.dbPath != "" {
		cfg.DBPath = e.dbPath
	}
	if e.featuresPath != "" {
		cfg.FeaturesFile = e.featuresPath
	}

	level := slog.LevelWarn
	if e.verbose {
		level = slog.LevelDebug
	}
	logger := slog.New(slog.NewTextHandler(stderr, &slog.HandlerOptions{Level: level}))

	features, err := config.LoadFeatures(cfg.FeaturesFile)
	if err != nil {
		return nil, err
	}
	e.writeDB, e.readDB, err = internaldb.OpenSQLitePair(cfg.DBPath, 2)
	if err != nil {
		return nil, err
	}
	if err := internaldb.RunMigrations(e.writeDB); err != nil {
		e.close()
		return nil, err
	}

	a, err := app.New(ctx, app.Deps{
		Cfg:      cfg,
		Features: features,
		WriteDB:  e.writeDB,
		ReadDB:   e.readDB,
		Logger:   logger,
	})
	if err != nil {
		e.close()
		return nil, err
	}
	e.app = a
	return a, nil
}

func (e *env) close() {
	if e.app != nil {
		e.app.Stop()
		e.app = nil
	}
	if e.readDB != nil {
		_ = e.readDB.Close()
		e.readDB = nil
	}
	if e.writeDB != nil {
		_ = e.writeDB.Close()
		e.writeDB = nil
	}
}

// appFunc returns the wired application for a command.
type appFunc func(cmd *cobra.Command) (*app.App, error)

// newRootCmd builds the command tree. The returned func closes whatever
// the commands opened.
func newRootCmd() (*cobra.Command, func()) {
	var (
		e       env
		output  string
		profile string
	)

	rootCmd := &cobra.Command{
		Use:           "alpine-admin",
		Short:         "Administer the alpine bot",
		Long:          "Edit admins, entitlements, permission levels and resources of the alpine bot store.",
		SilenceUsage:  true,
		SilenceErrors: true,
		PersistentPreRunE: func(cmd *cobra.Command, _ []string) error {
			cfg, err := LoadUserConfig()
			if err != nil {
				// Config file is optional
				cfg = &UserConfig{Profiles: map[string]Profile{}}
			}
			p, err := cfg.ActiveProfile(profile)
			if err != nil {
				return err
			}

			// Precedence: flag > profile > environment
			if !cmd.Flags().Changed("db") && p.DB != "" {
				e.dbPath = p.DB
			}
			if !cmd.Flags().Changed("features") && p.Features != "" {
				e.featuresPath = p.Features
			}
			if !cmd.Flags().Changed("env-file") && p.EnvFile != "" {
				e.envFile = p.EnvFile
			}
			if !cmd.Flags().Changed("output") && p.Output != "" {
				output = p.Output
				_ = cmd.Root().PersistentFlags().Set("output", output)
			}
			return validateOutputFormat(output)
		},
	}

	flags := rootCmd.PersistentFlags()
	flags.StringVar(&e.dbPath, "db", "", "SQLite store path (default $BOT_DB_PATH)")
	flags.StringVar(&e.featuresPath, "features", "", "Features file (default $BOT_FEATURES_FILE)")
	flags.StringVar(&e.envFile, "env-file", ".env", "Environment file to load first")
	flags.StringVarP(&output, "output", "o", "", "Output format (table, json); defaults to table on a terminal")
	flags.StringVarP(&profile, "profile", "p", "", "Config profile to use")
	flags.BoolVarP(&e.verbose, "verbose", "v", false, "Log debug output to stderr")

	open := func(cmd *cobra.Command) (*app.App, error) {
		return e.open(cmd.Context(), cmd.ErrOrStderr())
	}

	rootCmd.AddCommand(newAdminCmd(open))
	rootCmd.AddCommand(newGrantCmd(open))
	rootCmd.AddCommand(newRevokeCmd(open))
	rootCmd.AddCommand(newPermCmd(open))
	rootCmd.AddCommand(newListCmd(open))
	rootCmd.AddCommand(newStateCmd(open))
	rootCmd.AddCommand(newDeleteCmd(open))
	rootCmd.AddCommand(newVersionCmd())
	rootCmd.AddCommand(newCompletionCmd())

	return rootCmd, e.close
}

// parsePrincipal reads "user:<id>" or "channel:<id>".
func parsePrincipal(s string) (domain.PrincipalRef, error) {
	kind, id, ok := strings.Cut(s, ":")
	if !ok {
		return domain.PrincipalRef{}, domain.ErrValidation("principal must be user:<id> or channel:<id>, got %q", s)
	}
	k, err := domain.ParsePrincipalKind(kind)
	if err != nil {
		return domain.PrincipalRef{}, err
	}
	p := domain.PrincipalRef{Kind: k, ID: id}
	return p, p.Validate()
}

func newCompletionCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "completion [bash|zsh|fish|powershell]",
		Short: "Generate shell completion scripts",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			out := cmd.OutOrStdout()
			switch args[0] {
			case "bash":
				return cmd.Root().GenBashCompletion(out)
			case "zsh":
				return cmd.Root().GenZshCompletion(out)
			case "fish":
				return cmd.Root().GenFishCompletion(out, true)
			case "powershell":
				return cmd.Root().GenPowerShellCompletionWithDesc(out)
			default:
				return fmt.Errorf("unsupported shell: %s", args[0])
			}
		},
	}
}
