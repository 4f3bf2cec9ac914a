package cli

import (
	"context"
	"errors"
	"fmt"
	"io"
	"os"
	"strings"
	"text/tabwriter"
	"time"

	"github.com/spf13/cobra"
	"golang.org/x/term"

	"saloncal/internal/core"
	"saloncal/internal/export"
	"saloncal/internal/services"
	"saloncal/internal/storage"
	"saloncal/internal/worker"
)

// MonthVerifier compares the stored days of a month with the sheet mirror.
type MonthVerifier func(ctx context.Context, m core.Month) ([]worker.Mismatch, error)

// Deps are the collaborators the commands open lazily, so commands that
// need no backend never touch one.
type Deps struct {
	Out io.Writer
	// ReadPIN prompts for a PIN without echoing it.
	ReadPIN func(prompt string) (string, error)
	// Now is the clock used for default months; time.Now when nil.
	Now func() time.Time

	OpenService  func(ctx context.Context) (*services.BookingService, func() error, error)
	OpenVerifier func(ctx context.Context) (MonthVerifier, func() error, error)
	// SchemaVersion reports the SQLite migration version.
	SchemaVersion func() (uint, bool, error)
}

// DefaultDeps builds Deps from the environment configuration.
func DefaultDeps() Deps {
	return Deps{
		Out:     os.Stdout,
		ReadPIN: readPINFromTerminal,
		Now:     time.Now,
		OpenService: func(ctx context.Context) (*services.BookingService, func() error, error) {
			cfg, err := LoadConfig()
			if err != nil {
				return nil, nil, err
			}
			res, err := OpenBackend(ctx, SetupLogger(cfg.LogLevel), cfg)
			if err != nil {
				return nil, nil, err
			}
			svc, err := NewBookingService(cfg, res)
			if err != nil {
				_ = res.Close()
				return nil, nil, err
			}
			return svc, res.Close, nil
		},
		OpenVerifier: func(ctx context.Context) (MonthVerifier, func() error, error) {
			cfg, err := LoadConfig()
			if err != nil {
				return nil, nil, err
			}
			if cfg.GoogleSpreadsheetID == "" {
				return nil, nil, errors.New("GOOGLE_SPREADSHEET_ID is not set")
			}
			res, err := OpenBackend(ctx, SetupLogger(cfg.LogLevel), cfg)
			if err != nil {
				return nil, nil, err
			}
			sheets, err := NewSheetsClient(ctx, cfg)
			if err != nil {
				_ = res.Close()
				return nil, nil, err
			}
			w := worker.NewSyncWorker(res.Store, sheets, cfg.SyncBatchSize)
			verify := func(ctx context.Context, m core.Month) ([]worker.Mismatch, error) {
				return w.VerifyMonth(ctx, m, sheets)
			}
			return verify, res.Close, nil
		},
		SchemaVersion: func() (uint, bool, error) {
			cfg, err := LoadConfig()
			if err != nil {
				return 0, false, err
			}
			if cfg.DataBackend != "sqlite" {
				return 0, false, fmt.Errorf("schema version is only tracked for sqlite, backend is %s", cfg.DataBackend)
			}
			return storage.SchemaVersion(cfg.SQLiteDBPath)
		},
	}
}

// SetupCommands builds the salonctl command tree.
func SetupCommands(d Deps) *cobra.Command {
	if d.Out == nil {
		d.Out = os.Stdout
	}
	if d.Now == nil {
		d.Now = time.Now
	}

	rootCmd := &cobra.Command{
		Use:           "salonctl",
		Short:         "Manage the salon booking calendar",
		SilenceUsage:  true,
		SilenceErrors: true,
	}
	rootCmd.SetOut(d.Out)

	summaryCmd := &cobra.Command{
		Use:   "summary [YYYY-MM]",
		Short: "Print the month KPIs and pace against the goal",
		Args:  cobra.MaximumNArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			return withService(cmd.Context(), d, func(svc *services.BookingService) error {
				m, err := monthArg(args, svc.CurrentMonth())
				if err != nil {
					return err
				}
				s, err := svc.MonthSummary(cmd.Context(), m)
				if err != nil {
					return err
				}
				return printSummary(d.Out, s)
			})
		},
	}

	closedCmd := &cobra.Command{
		Use:   "closed [YYYY-MM]",
		Short: "List the closed days of a month",
		Args:  cobra.MaximumNArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			m, err := monthArg(args, core.DateOf(d.Now(), time.Local).Month())
			if err != nil {
				return err
			}
			for _, day := range core.ClosedDays(m) {
				fmt.Fprintf(d.Out, "%s %s\n", day.Key(), day.Weekday().String()[:3])
			}
			fmt.Fprintf(d.Out, "business days: %d\n", core.BusinessDays(m))
			return nil
		},
	}

	var (
		exportFormat string
		exportOutput string
	)
	exportCmd := &cobra.Command{
		Use:   "export YYYY-MM",
		Short: "Export a month as CSV or XLSX",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			m, err := core.ParseMonthKey(args[0])
			if err != nil {
				return err
			}
			format, ext, err := exportFormatFlag(exportFormat)
			if err != nil {
				return err
			}
			return withService(cmd.Context(), d, func(svc *services.BookingService) error {
				if exportOutput == "-" {
					return svc.WriteExport(cmd.Context(), d.Out, m, format)
				}
				path := exportOutput
				if path == "" {
					path = export.FileName(m, ext)
				}
				f, err := os.Create(path)
				if err != nil {
					return err
				}
				if err := svc.WriteExport(cmd.Context(), f, m, format); err != nil {
					_ = f.Close()
					return err
				}
				if err := f.Close(); err != nil {
					return err
				}
				fmt.Fprintf(d.Out, "wrote %s\n", path)
				return nil
			})
		},
	}
	exportCmd.Flags().StringVarP(&exportFormat, "format", "f", "csv", "csv, staff or xlsx")
	exportCmd.Flags().StringVarP(&exportOutput, "output", "o", "", "output file, - for stdout (default bookings_YYYY-MM.<ext>)")

	staffCmd := &cobra.Command{
		Use:   "staff",
		Short: "List or add staff",
	}
	staffListCmd := &cobra.Command{
		Use:   "list",
		Short: "List staff in display order",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			return withService(cmd.Context(), d, func(svc *services.BookingService) error {
				staff, err := svc.ListStaff(cmd.Context())
				if err != nil {
					return err
				}
				tw := tabwriter.NewWriter(d.Out, 0, 4, 2, ' ', 0)
				fmt.Fprintln(tw, "ID\tNAME\tSORT\tACTIVE")
				for _, st := range staff {
					fmt.Fprintf(tw, "%s\t%s\t%d\t%t\n", st.ID, st.Name, st.Sort, st.Active)
				}
				return tw.Flush()
			})
		},
	}
	staffAddCmd := &cobra.Command{
		Use:   "add NAME",
		Short: "Add an active staff member at the end of the list",
		Args:  cobra.MinimumNArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			name := strings.Join(args, " ")
			return withService(cmd.Context(), d, func(svc *services.BookingService) error {
				st, err := svc.AddStaffDirect(cmd.Context(), name)
				if err != nil {
					return err
				}
				fmt.Fprintf(d.Out, "added %s (%s)\n", st.Name, st.ID)
				return nil
			})
		},
	}
	staffCmd.AddCommand(staffListCmd, staffAddCmd)

	pinCmd := &cobra.Command{
		Use:   "pin",
		Short: "Manage the settings PIN",
	}
	pinSetCmd := &cobra.Command{
		Use:   "set",
		Short: "Set the settings PIN",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			if d.ReadPIN == nil {
				return errors.New("no PIN prompt available")
			}
			p, err := d.ReadPIN("New PIN: ")
			if err != nil {
				return err
			}
			confirm, err := d.ReadPIN("Confirm PIN: ")
			if err != nil {
				return err
			}
			if p != confirm {
				return errors.New("PINs do not match")
			}
			return withService(cmd.Context(), d, func(svc *services.BookingService) error {
				if err := svc.SetPIN(cmd.Context(), p); err != nil {
					return err
				}
				fmt.Fprintln(d.Out, "PIN updated")
				return nil
			})
		},
	}
	pinCmd.AddCommand(pinSetCmd)

	sheetCmd := &cobra.Command{
		Use:   "sheet",
		Short: "Google Sheets mirror tools",
	}
	sheetVerifyCmd := &cobra.Command{
		Use:   "verify YYYY-MM",
		Short: "Compare stored days with the mirrored rows",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			m, err := core.ParseMonthKey(args[0])
			if err != nil {
				return err
			}
			if d.OpenVerifier == nil {
				return errors.New("sheet mirror is not configured")
			}
			verify, closeFn, err := d.OpenVerifier(cmd.Context())
			if err != nil {
				return err
			}
			defer closeFn()
			mismatches, err := verify(cmd.Context(), m)
			if err != nil {
				return err
			}
			if len(mismatches) == 0 {
				fmt.Fprintf(d.Out, "%s: mirror matches\n", m.Key())
				return nil
			}
			for _, mm := range mismatches {
				fmt.Fprintf(d.Out, "%s\t%s\n", mm.DateKey, mm.Reason)
			}
			return fmt.Errorf("%d day(s) differ", len(mismatches))
		},
	}
	sheetCmd.AddCommand(sheetVerifyCmd)

	dbCmd := &cobra.Command{
		Use:   "db",
		Short: "Database tools",
	}
	dbVersionCmd := &cobra.Command{
		Use:   "version",
		Short: "Print the SQLite schema version",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			if d.SchemaVersion == nil {
				return errors.New("schema version unavailable")
			}
			v, dirty, err := d.SchemaVersion()
			if err != nil {
				return err
			}
			fmt.Fprintf(d.Out, "version %d", v)
			if dirty {
				fmt.Fprint(d.Out, " (dirty)")
			}
			fmt.Fprintln(d.Out)
			return nil
		},
	}
	dbCmd.AddCommand(dbVersionCmd)

	rootCmd.AddCommand(summaryCmd, closedCmd, exportCmd, staffCmd, pinCmd, sheetCmd, dbCmd)
	return rootCmd
}

func withService(ctx context.Context, d Deps, fn func(*services.BookingService) error) error {
	if d.OpenService == nil {
		return errors.New("no backend configured")
	}
	if ctx == nil {
		ctx = context.Background()
	}
	svc, closeFn, err := d.OpenService(ctx)
	if err != nil {
		return err
	}
	defer closeFn()
	return fn(svc)
}

func monthArg(args []string, def core.Month) (core.Month, error) {
	if len(args) == 0 {
		return def, nil
	}
	return core.ParseMonthKey(args[0])
}

func exportFormatFlag(s string) (services.ExportFormat, string, error) {
	switch strings.ToLower(strings.TrimSpace(s)) {
	case "csv":
		return services.ExportCSV, "csv", nil
	case "staff":
		return services.ExportStaffCSV, "csv", nil
	case "xlsx":
		return services.ExportXLSX, "xlsx", nil
	}
	return "", "", fmt.Errorf("unknown format %q: want csv, staff or xlsx", s)
}

func printSummary(w io.Writer, s core.MonthSummary) error {
	tw := tabwriter.NewWriter(w, 0, 4, 2, ' ', 0)
	fmt.Fprintf(tw, "Month\t%s\n", s.Month.Key())
	fmt.Fprintf(tw, "Reservations\t%d\n", s.Reservations)
	fmt.Fprintf(tw, "Sales\t%s (service %s, retail %s)\n", s.Sales.Total(), s.Sales.Service, s.Sales.Retail)
	fmt.Fprintf(tw, "Customers\t%d (new %d, repeat %d)\n", s.Customers.Total(), s.Customers.New, s.Customers.Repeat)
	fmt.Fprintf(tw, "Unit price\t%s\n", s.UnitPrice)
	fmt.Fprintf(tw, "Goal\t%s (%d x %s)\n", s.Goal.Sales(), s.Goal.Customers, s.Goal.UnitPrice)
	fmt.Fprintf(tw, "Business days\t%d elapsed, %d remaining, %d total\n",
		s.ElapsedBusinessDays, s.RemainingBusinessDays, s.BusinessDays)
	fmt.Fprintf(tw, "Expected by now\t%s\n", s.ExpectedSales)
	pace := "behind"
	if s.OnPace {
		pace = "on pace"
	}
	fmt.Fprintf(tw, "Pace\t%.0f%% (%s)\n", s.PaceRatio*100, pace)
	if s.RequiredApplicable {
		fmt.Fprintf(tw, "Needed per day\t%s, %d customers\n", s.RequiredDailySales, s.RequiredDailyCustomers)
	} else {
		fmt.Fprintln(tw, "Needed per day\tn/a")
	}
	return tw.Flush()
}

// readPINFromTerminal reads a PIN with echo disabled, falling back to a
// plain line read when stdin is not a terminal.
func readPINFromTerminal(prompt string) (string, error) {
	fd := int(os.Stdin.Fd())
	fmt.Fprint(os.Stderr, prompt)
	if term.IsTerminal(fd) {
		b, err := term.ReadPassword(fd)
		fmt.Fprintln(os.Stderr)
		if err != nil {
			return "", err
		}
		return strings.TrimSpace(string(b)), nil
	}
	var line string
	if _, err := fmt.Fscanln(os.Stdin, &line); err != nil {
		return "", fmt.Errorf("read PIN: %w", err)
	}
	return strings.TrimSpace(line), nil
}
