// Command finreport-cli prints reports and manages ledger imports.
//
// Commands:
//
//	home        Home page summary
//	category    Spending of one category over three months
//	cashback    Increased cashback per category for a month
//	import      Replace the stored ledger with a CSV or XLSX file
//	imports     List recent imports
package main

import (
	"context"
	"encoding/json"
	"errors"
	"flag"
	"fmt"
	"io"
	"os"

	"finreport/internal/amqp"
	"finreport/internal/cli"
	"finreport/internal/config"
	"finreport/internal/log"
	"finreport/internal/storage"
	"finreport/internal/worker"
)

var errUsage = errors.New("usage")

func main() {
	if len(os.Args) < 2 {
		printUsage(os.Stdout)
		os.Exit(0)
	}
	switch os.Args[1] {
	case "help", "-h", "--help":
		printUsage(os.Stdout)
		return
	}

	cfg, logger := cli.Init()
	ctx, cancel := cli.SignalContext(logger)

	a := &app{cfg: cfg, logger: logger, out: os.Stdout}
	err := a.run(ctx, os.Args[1:])
	cancel()
	_ = logger.Close()

	switch {
	case errors.Is(err, errUsage):
		fmt.Fprintf(os.Stderr, "%v\n\n", err)
		printUsage(os.Stderr)
		os.Exit(2)
	case err != nil:
		fmt.Fprintf(os.Stderr, "error: %v\n", err)
		os.Exit(1)
	}
}

func printUsage(w io.Writer) {
	fmt.Fprintln(w, "Usage:")
	fmt.Fprintln(w, "  finreport-cli <command> [options]")
	fmt.Fprintln(w)
	fmt.Fprintln(w, "Commands:")
	fmt.Fprintln(w, "  home      [--datetime \"YYYY-MM-DD HH:MM:SS\"]")
	fmt.Fprintln(w, "  category  --category NAME [--date YYYY-MM-DD]")
	fmt.Fprintln(w, "  cashback  --year YYYY --month M")
	fmt.Fprintln(w, "  import    --path FILE [--direct]")
	fmt.Fprintln(w, "  imports   [--limit N]")
	fmt.Fprintln(w)
	fmt.Fprintln(w, "Reports read the backend named by LEDGER_BACKEND. Imports are queued on")
	fmt.Fprintln(w, "AMQP_URL when set, otherwise written straight to SQLITE_DB_PATH.")
}

type app struct {
	cfg    *config.Config
	logger *log.Logger
	out    io.Writer
}

func (a *app) run(ctx context.Context, args []string) error {
	if len(args) == 0 {
		return fmt.Errorf("%w: missing command", errUsage)
	}
	cmd, rest := args[0], args[1:]
	switch cmd {
	case "home":
		return a.home(ctx, rest)
	case "category":
		return a.category(ctx, rest)
	case "cashback":
		return a.cashback(ctx, rest)
	case "import":
		return a.importLedger(ctx, rest)
	case "imports":
		return a.imports(ctx, rest)
	default:
		return fmt.Errorf("%w: unknown command %q", errUsage, cmd)
	}
}

func newFlagSet(name string) *flag.FlagSet {
	fs := flag.NewFlagSet(name, flag.ContinueOnError)
	fs.SetOutput(io.Discard)
	return fs
}

func parseFlags(fs *flag.FlagSet, args []string) error {
	if err := fs.Parse(args); err != nil {
		return fmt.Errorf("%w: %s: %v", errUsage, fs.Name(), err)
	}
	if fs.NArg() > 0 {
		return fmt.Errorf("%w: %s: unexpected argument %q", errUsage, fs.Name(), fs.Arg(0))
	}
	return nil
}

func (a *app) home(ctx context.Context, args []string) error {
	fs := newFlagSet("home")
	datetime := fs.String("datetime", "", "report time, YYYY-MM-DD HH:MM:SS (default now)")
	if err := parseFlags(fs, args); err != nil {
		return err
	}
	stack, err := cli.NewReportStack(ctx, a.cfg, a.logger)
	if err != nil {
		return err
	}
	defer stack.Close()
	return a.print(stack.Service.Home(ctx, *datetime))
}

func (a *app) category(ctx context.Context, args []string) error {
	fs := newFlagSet("category")
	category := fs.String("category", "", "category name")
	date := fs.String("date", "", "end date, YYYY-MM-DD (default today)")
	if err := parseFlags(fs, args); err != nil {
		return err
	}
	if *category == "" {
		return fmt.Errorf("%w: category: --category is required", errUsage)
	}
	stack, err := cli.NewReportStack(ctx, a.cfg, a.logger)
	if err != nil {
		return err
	}
	defer stack.Close()
	rows, err := stack.Service.SpendingByCategory(ctx, *category, *date)
	if err != nil {
		return err
	}
	return a.print(rows)
}

func (a *app) cashback(ctx context.Context, args []string) error {
	fs := newFlagSet("cashback")
	year := fs.Int("year", 0, "year")
	month := fs.Int("month", 0, "month, 1-12")
	if err := parseFlags(fs, args); err != nil {
		return err
	}
	if *year == 0 || *month == 0 {
		return fmt.Errorf("%w: cashback: --year and --month are required", errUsage)
	}
	stack, err := cli.NewReportStack(ctx, a.cfg, a.logger)
	if err != nil {
		return err
	}
	defer stack.Close()
	result, err := stack.Service.IncreasedCashback(ctx, *year, *month)
	if err != nil {
		return err
	}
	return a.print(result)
}

func (a *app) importLedger(ctx context.Context, args []string) error {
	fs := newFlagSet("import")
	path := fs.String("path", "", "ledger file to import")
	direct := fs.Bool("direct", false, "write to SQLite even when AMQP is configured")
	if err := parseFlags(fs, args); err != nil {
		return err
	}
	if *path == "" {
		return fmt.Errorf("%w: import: --path is required", errUsage)
	}

	if a.cfg.AMQPEnabled() && !*direct {
		client, err := amqp.NewClient(a.cfg.AMQPURL, a.cfg.AMQPExchange, a.cfg.AMQPQueue, a.logger)
		if err != nil {
			return err
		}
		defer client.Close()
		msg := amqp.NewLedgerImportMessage(*path)
		if err := client.PublishLedgerImport(ctx, msg); err != nil {
			return err
		}
		return a.print(map[string]string{"id": msg.ID, "path": msg.Path, "status": "queued"})
	}

	repo, err := storage.NewSQLiteRepository(a.cfg.SQLiteDBPath, a.logger)
	if err != nil {
		return err
	}
	defer repo.Close()
	n, err := worker.NewImportWorker(repo, a.cfg.ImportDir, a.logger).Import(ctx, "", *path)
	if err != nil {
		return err
	}
	return a.print(map[string]any{"path": *path, "rows": n, "status": "completed"})
}

func (a *app) imports(ctx context.Context, args []string) error {
	fs := newFlagSet("imports")
	limit := fs.Int("limit", 10, "number of runs to list")
	if err := parseFlags(fs, args); err != nil {
		return err
	}
	repo, err := storage.NewSQLiteRepository(a.cfg.SQLiteDBPath, a.logger)
	if err != nil {
		return err
	}
	defer repo.Close()
	runs, err := repo.RecentImports(ctx, *limit)
	if err != nil {
		return err
	}
	return a.print(runs)
}

func (a *app) print(v any) error {
	enc := json.NewEncoder(a.out)
	enc.SetEscapeHTML(false)
	enc.SetIndent("", "  ")
	return enc.Encode(v)
}
