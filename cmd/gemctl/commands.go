// cmd/gemctl/commands.go
package main

import (
	"context"
	"fmt"
	"io"
	"os"
	"sort"
	"time"

	"github.com/spf13/cobra"

	"github.com/javajoker/gemstore-backend/internal/bootstrap"
	"github.com/javajoker/gemstore-backend/internal/database"
	"github.com/javajoker/gemstore-backend/internal/services"
)

func newRootCmd() *cobra.Command {
	root := &cobra.Command{
		Use:           "gemctl",
		Short:         "Operational tooling for the gemstore backend",
		SilenceUsage:  true,
		SilenceErrors: true,
	}

	root.AddCommand(
		newMigrateCmd(),
		newSeedCmd(),
		newImportCmd(),
		newExportCmd(),
		newRatesCmd(),
	)
	return root
}

// withApp opens the shared resources for one command run.
func withApp(fn func(app *bootstrap.App) error) error {
	app, err := bootstrap.New()
	if err != nil {
		return err
	}
	defer app.Close()
	return fn(app)
}

func newMigrateCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "migrate",
		Short: "Run database migrations",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			return withApp(func(app *bootstrap.App) error {
				return database.RunMigrations(app.DB)
			})
		},
	}
}

func newSeedCmd() *cobra.Command {
	var email, password string

	cmd := &cobra.Command{
		Use:   "seed",
		Short: "Create the admin account and default settings",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			return withApp(func(app *bootstrap.App) error {
				if email == "" {
					email = app.Config.Seed.AdminEmail
				}
				if password == "" {
					password = app.Config.Seed.AdminPassword
				}
				return database.SeedInitialData(app.DB, email, password)
			})
		},
	}

	cmd.Flags().StringVar(&email, "admin-email", "", "admin account email (defaults to ADMIN_EMAIL)")
	cmd.Flags().StringVar(&password, "admin-password", "", "admin account password (defaults to ADMIN_PASSWORD)")
	return cmd
}

func newImportCmd() *cobra.Command {
	var dryRun bool

	cmd := &cobra.Command{
		Use:   "import <file.csv>",
		Short: "Import gemstones from a CSV file",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			f, err := os.Open(args[0])
			if err != nil {
				return fmt.Errorf("failed to open %s: %w", args[0], err)
			}
			defer f.Close()

			return withApp(func(app *bootstrap.App) error {
				result, err := app.Services.Import.Import(f, services.ImportOptions{DryRun: dryRun})
				if err != nil {
					return err
				}
				printImportResult(cmd.OutOrStdout(), result)
				return nil
			})
		},
	}

	cmd.Flags().BoolVar(&dryRun, "dry-run", false, "validate and count without committing")
	return cmd
}

func printImportResult(w io.Writer, result *services.ImportResult) {
	mode := "committed"
	if result.DryRun {
		mode = "dry run"
	}
	fmt.Fprintf(w, "%s: %d created, %d updated, %d skipped\n", mode, result.Created, result.Updated, result.Skipped)
	for _, rowErr := range result.Errors {
		fmt.Fprintf(w, "  row %d %s: %s\n", rowErr.Row, rowErr.Field, rowErr.Message)
	}
}

func newExportCmd() *cobra.Command {
	var out string
	var includeHidden bool

	cmd := &cobra.Command{
		Use:   "export",
		Short: "Export the gemstone catalog as CSV",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			w := cmd.OutOrStdout()
			if out != "" && out != "-" {
				f, err := os.Create(out)
				if err != nil {
					return fmt.Errorf("failed to create %s: %w", out, err)
				}
				defer f.Close()
				w = f
			}

			return withApp(func(app *bootstrap.App) error {
				count, err := app.Services.Import.Export(w, includeHidden)
				if err != nil {
					return err
				}
				fmt.Fprintf(cmd.ErrOrStderr(), "exported %d gemstones\n", count)
				return nil
			})
		},
	}

	cmd.Flags().StringVarP(&out, "out", "o", "", "output file (stdout when empty)")
	cmd.Flags().BoolVar(&includeHidden, "include-hidden", true, "include draft and archived gemstones")
	return cmd
}

func newRatesCmd() *cobra.Command {
	rates := &cobra.Command{
		Use:   "rates",
		Short: "Exchange rate maintenance",
	}

	var timeout time.Duration
	refresh := &cobra.Command{
		Use:   "refresh",
		Short: "Fetch current exchange rates and store them",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			return withApp(func(app *bootstrap.App) error {
				ctx, cancel := context.WithTimeout(cmd.Context(), timeout)
				defer cancel()

				updated, err := app.Services.Currency.RefreshRates(ctx)
				if err != nil {
					return err
				}

				codes := make([]string, 0, len(updated))
				for code := range updated {
					codes = append(codes, code)
				}
				sort.Strings(codes)
				for _, code := range codes {
					fmt.Fprintf(cmd.OutOrStdout(), "%s %s\n", code, updated[code].String())
				}
				return nil
			})
		},
	}
	refresh.Flags().DurationVar(&timeout, "timeout", 30*time.Second, "request timeout")

	rates.AddCommand(refresh)
	return rates
}
