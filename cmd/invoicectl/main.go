// Package main is the entrypoint for the invoicectl command line tool.
package main

import (
	"context"
	"encoding/json"
	"fmt"
	"io"
	"os"
	"os/signal"
	"runtime"
	"strings"
	"syscall"
	"text/tabwriter"

	invoiceapp "github.com/invoicegen/backend/internal/application/invoice"
	"github.com/invoicegen/backend/internal/bootstrap"
	"github.com/invoicegen/backend/internal/domain/invoice"
	"github.com/invoicegen/backend/internal/infrastructure/config"
	"github.com/invoicegen/backend/internal/infrastructure/logger"
	"github.com/invoicegen/backend/internal/infrastructure/storage"
	"github.com/spf13/cobra"
)

// Build-time variables set via ldflags.
var (
	Version   = "dev"
	Commit    = "unknown"
	BuildDate = "unknown"
)

func main() {
	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	err := newRootCmd(&cli{}).ExecuteContext(ctx)
	stop()
	if err != nil {
		fmt.Fprintln(os.Stderr, "Error:", err)
		os.Exit(1)
	}
}

// cli carries the global flags and what commands need to build the app
type cli struct {
	configPath string
	logLevel   string
	// opts is passed to bootstrap.New; tests swap the renderer here
	opts bootstrap.Options
}

func newRootCmd(c *cli) *cobra.Command {
	rootCmd := &cobra.Command{
		Use:   "invoicectl",
		Short: "Generate and manage invoices",
		Long: `invoicectl fills the invoice template, converts it to PDF and keeps
a record of every invoice by number.

Records, the counter and the converter are read from config.toml or
INVOICE_* environment variables, the same as the server.`,
		SilenceUsage:  true,
		SilenceErrors: true,
	}
	rootCmd.PersistentFlags().StringVar(&c.configPath, "config", "", "path to config file (default: search ./config.toml)")
	rootCmd.PersistentFlags().StringVar(&c.logLevel, "log-level", "warn", "log level (debug, info, warn, error)")

	rootCmd.AddCommand(
		newVersionCmd(),
		newNextNumberCmd(c),
		newGenerateCmd(c),
		newListCmd(c),
		newShowCmd(c),
		newMarkPaidCmd(c),
		newRenderCmd(c),
	)

	return rootCmd
}

// run loads configuration, builds the app and hands it to fn
func (c *cli) run(ctx context.Context, fn func(*bootstrap.App) error) error {
	cfg, err := config.LoadFrom(c.configPath)
	if err != nil {
		return fmt.Errorf("load config: %w", err)
	}

	log, err := logger.New(logger.CLIConfig(c.logLevel))
	if err != nil {
		return fmt.Errorf("init logger: %w", err)
	}
	defer func() {
		_ = log.Sync()
	}()

	opts := c.opts
	opts.LazyRenderer = true
	app, err := bootstrap.New(ctx, cfg, log, opts)
	if err != nil {
		return err
	}
	defer func() {
		_ = app.Close(context.Background())
	}()

	return fn(app)
}

func newVersionCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "version",
		Short: "Print version information",
		Run: func(cmd *cobra.Command, args []string) {
			out := cmd.OutOrStdout()
			fmt.Fprintf(out, "invoicectl %s\n", Version)
			fmt.Fprintf(out, "  Commit:     %s\n", Commit)
			fmt.Fprintf(out, "  Built:      %s\n", BuildDate)
			fmt.Fprintf(out, "  Go version: %s\n", runtime.Version())
		},
	}
}

func newNextNumberCmd(c *cli) *cobra.Command {
	return &cobra.Command{
		Use:   "next-number",
		Short: "Print the number the next invoice will get",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			return c.run(cmd.Context(), func(app *bootstrap.App) error {
				next, err := app.Service.NextNumber(cmd.Context())
				if err != nil {
					return err
				}
				fmt.Fprintln(cmd.OutOrStdout(), next.Number)
				return nil
			})
		},
	}
}

func newGenerateCmd(c *cli) *cobra.Command {
	var (
		file    string
		outDir  string
		replace bool
	)

	cmd := &cobra.Command{
		Use:   "generate",
		Short: "Generate an invoice from a draft file",
		Long: `Generate an invoice from a YAML or JSON draft file.

An empty invoice_number takes the next number in sequence; empty dates
default to today. Both documents are written to --out.`,
		Args: cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			req, err := loadDraft(file)
			if err != nil {
				return err
			}
			if replace {
				req.Replace = true
			}

			return c.run(cmd.Context(), func(app *bootstrap.App) error {
				result, err := app.Service.Generate(cmd.Context(), req)
				if err != nil {
					return err
				}
				out := cmd.OutOrStdout()
				fmt.Fprintf(out, "Invoice %s generated (%s, grand total %s)\n",
					result.Record.InvoiceNumber, result.Record.StatusLabel(), result.Record.Financials.GrandTotal)
				return writeDocuments(cmd.Context(), out, outDir, result)
			})
		},
	}

	cmd.Flags().StringVarP(&file, "file", "f", "", "draft file (.yaml, .yml or .json)")
	cmd.Flags().StringVarP(&outDir, "out", "o", ".", "directory the documents are written to")
	cmd.Flags().BoolVar(&replace, "replace", false, "overwrite an existing invoice with the same number")
	_ = cmd.MarkFlagRequired("file")

	return cmd
}

func newListCmd(c *cli) *cobra.Command {
	var status string

	cmd := &cobra.Command{
		Use:   "list",
		Short: "List stored invoices",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			filter, ok := invoice.ParseStatusFilter(status)
			if !ok {
				return fmt.Errorf("--status must be one of all, paid, unpaid")
			}

			return c.run(cmd.Context(), func(app *bootstrap.App) error {
				summaries, err := app.Service.List(cmd.Context(), filter)
				if err != nil {
					return err
				}
				return printSummaries(cmd.OutOrStdout(), summaries)
			})
		},
	}

	cmd.Flags().StringVar(&status, "status", "all", "filter by status (all, paid, unpaid)")
	return cmd
}

func newShowCmd(c *cli) *cobra.Command {
	return &cobra.Command{
		Use:   "show NUMBER",
		Short: "Print a stored invoice as JSON",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			return c.run(cmd.Context(), func(app *bootstrap.App) error {
				record, err := app.Service.Get(cmd.Context(), strings.TrimSpace(args[0]))
				if err != nil {
					return err
				}
				enc := json.NewEncoder(cmd.OutOrStdout())
				enc.SetIndent("", "  ")
				return enc.Encode(record)
			})
		},
	}
}

func newMarkPaidCmd(c *cli) *cobra.Command {
	return &cobra.Command{
		Use:   "mark-paid NUMBER",
		Short: "Mark a stored invoice as paid",
		Long: `Mark a stored invoice as paid. Documents are not regenerated;
run 'invoicectl render NUMBER' for the paid version.`,
		Args: cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			return c.run(cmd.Context(), func(app *bootstrap.App) error {
				record, err := app.Service.MarkPaid(cmd.Context(), strings.TrimSpace(args[0]))
				if err != nil {
					return err
				}
				fmt.Fprintf(cmd.OutOrStdout(), "Invoice %s marked as paid\n", record.InvoiceNumber)
				return nil
			})
		},
	}
}

func newRenderCmd(c *cli) *cobra.Command {
	var outDir string

	cmd := &cobra.Command{
		Use:   "render NUMBER",
		Short: "Render a stored invoice again",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			return c.run(cmd.Context(), func(app *bootstrap.App) error {
				result, err := app.Service.Render(cmd.Context(), strings.TrimSpace(args[0]))
				if err != nil {
					return err
				}
				return writeDocuments(cmd.Context(), cmd.OutOrStdout(), outDir, result)
			})
		},
	}

	cmd.Flags().StringVarP(&outDir, "out", "o", ".", "directory the documents are written to")
	return cmd
}

// writeDocuments saves both documents of result into dir
func writeDocuments(ctx context.Context, out io.Writer, dir string, result *invoiceapp.GenerateResult) error {
	archive, err := storage.NewFileSystemArchive(dir, nil)
	if err != nil {
		return err
	}
	for _, doc := range result.Documents() {
		location, err := archive.Put(ctx, doc.Name, doc.Data, doc.ContentType)
		if err != nil {
			return err
		}
		fmt.Fprintf(out, "  %s\n", location)
	}
	return nil
}

func printSummaries(out io.Writer, summaries []invoiceapp.Summary) error {
	if len(summaries) == 0 {
		_, err := fmt.Fprintln(out, "No invoices found")
		return err
	}
	w := tabwriter.NewWriter(out, 0, 0, 2, ' ', 0)
	fmt.Fprintln(w, "NUMBER\tCLIENT\tDATE\tDUE\tTOTAL\tSTATUS")
	for _, s := range summaries {
		fmt.Fprintf(w, "%s\t%s\t%s\t%s\t%s\t%s\n",
			s.InvoiceNumber, s.ClientName, s.InvoiceDate, s.DueDate, s.GrandTotal, s.Status)
	}
	return w.Flush()
}
