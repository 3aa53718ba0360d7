// Command spm is the Season Pass Manager client. It keeps season passes in a
// local data directory and syncs them through the sync server.
//
// Usage:
//
//	spm pass create --league nhl --team-id fla --team-name "Florida Panthers" --season 2025-2026
//	spm pair add --section 101 --row 5 --seats 1-2 --cost 4200
//	spm schedule resync --tz America/New_York
//	spm sale add --game espn_nhl_fla_401 --pair <pair-id> --price 240 --status Paid
//	spm stats
//	spm sync key --generate
//	spm sync push
//	spm recovery export > code.txt
package main

import (
	"bufio"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"log/slog"
	"os"
	"os/signal"
	"strings"
	"syscall"
	"text/tabwriter"
	"time"

	"github.com/joho/godotenv"
	"github.com/spf13/cobra"

	"github.com/mrscheiner/Season-Pass-Manager-v2.0-sub000/internal/cloudsync"
	"github.com/mrscheiner/Season-Pass-Manager-v2.0-sub000/internal/config"
	"github.com/mrscheiner/Season-Pass-Manager-v2.0-sub000/internal/model"
	"github.com/mrscheiner/Season-Pass-Manager-v2.0-sub000/internal/passes"
	"github.com/mrscheiner/Season-Pass-Manager-v2.0-sub000/internal/provider"
	"github.com/mrscheiner/Season-Pass-Manager-v2.0-sub000/internal/provider/espn"
	"github.com/mrscheiner/Season-Pass-Manager-v2.0-sub000/internal/provider/ticketmaster"
	"github.com/mrscheiner/Season-Pass-Manager-v2.0-sub000/internal/seats"
	"github.com/mrscheiner/Season-Pass-Manager-v2.0-sub000/internal/stats"
	"github.com/mrscheiner/Season-Pass-Manager-v2.0-sub000/internal/storage"
)

var logger = slog.New(slog.NewTextHandler(os.Stderr, &slog.HandlerOptions{Level: slog.LevelWarn}))

func main() {
	// Load .env if present
	_ = godotenv.Load(".env")

	var verbose bool
	root := &cobra.Command{
		Use:           "spm",
		Short:         "Season Pass Manager client",
		SilenceUsage:  true,
		SilenceErrors: false,
		PersistentPreRun: func(cmd *cobra.Command, args []string) {
			if verbose {
				logger = slog.New(slog.NewTextHandler(os.Stderr, &slog.HandlerOptions{Level: slog.LevelDebug}))
			}
		},
	}
	root.PersistentFlags().BoolVarP(&verbose, "verbose", "v", false, "Debug logging")

	root.AddCommand(seatsCmd())
	root.AddCommand(passCmd())
	root.AddCommand(pairCmd())
	root.AddCommand(saleCmd())
	root.AddCommand(eventCmd())
	root.AddCommand(statsCmd())
	root.AddCommand(scheduleCmd())
	root.AddCommand(recoveryCmd())
	root.AddCommand(syncCmd())

	if err := root.Execute(); err != nil {
		os.Exit(1)
	}
}

// --------------------------------------------------------------------------
// seats command
// --------------------------------------------------------------------------

func seatsCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "seats",
		Short: "Seat description helpers",
	}
	cmd.AddCommand(&cobra.Command{
		Use:   "count <seats>",
		Short: `Count the seats in a description such as "1-4" or "5,6"`,
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			fmt.Fprintln(cmd.OutOrStdout(), seats.ParseCount(args[0]))
			return nil
		},
	})
	return cmd
}

// --------------------------------------------------------------------------
// pass command
// --------------------------------------------------------------------------

func passCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "pass",
		Short: "Manage season passes",
	}
	cmd.AddCommand(passListCmd())
	cmd.AddCommand(passCreateCmd())
	del := &cobra.Command{
		Use:   "delete <pass-id>",
		Short: "Delete a season pass",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			return runClient(func(ctx context.Context, a *app) error {
				if !confirm(cmd, "Delete season pass "+args[0]+" and all its sales?") {
					return nil
				}
				return a.manager.DeletePass(ctx, args[0])
			})
		},
	}
	del.Flags().BoolP("yes", "y", false, "Do not ask for confirmation")
	cmd.AddCommand(del)
	cmd.AddCommand(&cobra.Command{
		Use:   "switch <pass-id>",
		Short: "Make a season pass active",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			return runClient(func(ctx context.Context, a *app) error {
				return a.manager.SwitchPass(ctx, args[0])
			})
		},
	})
	return cmd
}

func passListCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "list",
		Short: "List season passes",
		RunE: func(cmd *cobra.Command, args []string) error {
			return runClient(func(ctx context.Context, a *app) error {
				active := a.manager.ActiveID()
				tw := tabwriter.NewWriter(cmd.OutOrStdout(), 0, 4, 2, ' ', 0)
				fmt.Fprintln(tw, "\tID\tLEAGUE\tTEAM\tSEASON\tPAIRS\tGAMES\tSALES")
				for _, p := range a.manager.Passes() {
					mark := ""
					if p.ID == active {
						mark = "*"
					}
					fmt.Fprintf(tw, "%s\t%s\t%s\t%s\t%s\t%d\t%d\t%d\n",
						mark, p.ID, p.LeagueID, p.TeamName, p.SeasonLabel,
						len(p.SeatPairs), len(p.Games), len(p.Sales()))
				}
				return tw.Flush()
			})
		},
	}
}

func passCreateCmd() *cobra.Command {
	var in passes.PassInput
	cmd := &cobra.Command{
		Use:   "create",
		Short: "Create a season pass and make it active",
		RunE: func(cmd *cobra.Command, args []string) error {
			return runClient(func(ctx context.Context, a *app) error {
				if in.TeamLogoURL == "" && in.TeamAbbreviation != "" {
					in.TeamLogoURL = espn.LogoURL(in.LeagueID, in.TeamAbbreviation)
				}
				p, err := a.manager.CreatePass(ctx, in)
				if err != nil {
					return err
				}
				fmt.Fprintln(cmd.OutOrStdout(), p.ID)
				return nil
			})
		},
	}
	cmd.Flags().StringVar(&in.LeagueID, "league", "", "League id (nhl, nba, nfl, mlb, mls, wnba, epl)")
	cmd.Flags().StringVar(&in.TeamID, "team-id", "", "Team id or abbreviation key")
	cmd.Flags().StringVar(&in.TeamName, "team-name", "", "Team display name")
	cmd.Flags().StringVar(&in.TeamAbbreviation, "abbr", "", "Team abbreviation")
	cmd.Flags().StringVar(&in.TeamLogoURL, "logo", "", "Team logo URL")
	cmd.Flags().StringVar(&in.TeamPrimaryColor, "primary-color", "", "Primary color")
	cmd.Flags().StringVar(&in.TeamSecondaryColor, "secondary-color", "", "Secondary color")
	cmd.Flags().StringVar(&in.SeasonLabel, "season", "", "Season label, e.g. 2025-2026")
	return cmd
}

// --------------------------------------------------------------------------
// pair command
// --------------------------------------------------------------------------

func pairCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "pair",
		Short: "Manage seat pairs on a pass",
	}

	var passID string
	var pair model.SeatPair
	add := &cobra.Command{
		Use:   "add",
		Short: "Add a seat pair",
		RunE: func(cmd *cobra.Command, args []string) error {
			return runClient(func(ctx context.Context, a *app) error {
				sp, err := a.manager.AddSeatPair(ctx, passID, pair)
				if err != nil {
					return err
				}
				for _, w := range sp.Warnings() {
					fmt.Fprintln(cmd.ErrOrStderr(), "warning:", w)
				}
				fmt.Fprintln(cmd.OutOrStdout(), sp.ID)
				return nil
			})
		},
	}
	add.Flags().StringVar(&passID, "pass", "", "Pass id (default: active pass)")
	add.Flags().StringVar(&pair.Section, "section", "", "Section")
	add.Flags().StringVar(&pair.Row, "row", "", "Row")
	add.Flags().StringVar(&pair.Seats, "seats", "", `Seats, e.g. "1-2" or "5,6"`)
	add.Flags().Float64Var(&pair.SeasonCost, "cost", 0, "Season cost for the pair")

	var removePass string
	remove := &cobra.Command{
		Use:   "remove <pair-id>",
		Short: "Remove a seat pair; its sales are kept",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			return runClient(func(ctx context.Context, a *app) error {
				return a.manager.RemoveSeatPair(ctx, removePass, args[0])
			})
		},
	}
	remove.Flags().StringVar(&removePass, "pass", "", "Pass id (default: active pass)")

	cmd.AddCommand(add, remove)
	return cmd
}

// --------------------------------------------------------------------------
// sale command
// --------------------------------------------------------------------------

func saleCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "sale",
		Short: "Record ticket sales",
	}

	var (
		passID string
		status string
		in     passes.SaleInput
	)
	add := &cobra.Command{
		Use:   "add",
		Short: "Record a seat pair sold for a game",
		RunE: func(cmd *cobra.Command, args []string) error {
			in.PaymentStatus = model.PaymentStatus(status)
			return runClient(func(ctx context.Context, a *app) error {
				sale, err := a.manager.AddSale(ctx, passID, in)
				if err != nil {
					return err
				}
				fmt.Fprintln(cmd.OutOrStdout(), sale.ID)
				return nil
			})
		},
	}
	add.Flags().StringVar(&passID, "pass", "", "Pass id (default: active pass)")
	add.Flags().StringVar(&in.GameID, "game", "", "Game id")
	add.Flags().StringVar(&in.PairID, "pair", "", "Seat pair id")
	add.Flags().Float64Var(&in.Price, "price", 0, "Sale price")
	add.Flags().StringVar(&status, "status", string(model.PaymentPending), "Payment status (Pending, Per Seat, Paid)")
	add.Flags().StringVar(&in.SoldDate, "sold-date", "", "Sold date (default: now)")

	var removePass, gameID, pairID string
	remove := &cobra.Command{
		Use:   "remove",
		Short: "Remove a sale",
		RunE: func(cmd *cobra.Command, args []string) error {
			return runClient(func(ctx context.Context, a *app) error {
				return a.manager.RemoveSale(ctx, removePass, gameID, pairID)
			})
		},
	}
	remove.Flags().StringVar(&removePass, "pass", "", "Pass id (default: active pass)")
	remove.Flags().StringVar(&gameID, "game", "", "Game id")
	remove.Flags().StringVar(&pairID, "pair", "", "Seat pair id")

	cmd.AddCommand(add, remove)
	return cmd
}

// --------------------------------------------------------------------------
// event command
// --------------------------------------------------------------------------

func eventCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "event",
		Short: "Track non-game events on a pass",
	}

	var (
		passID string
		ev     model.Event
		sold   float64
	)
	add := &cobra.Command{
		Use:   "add",
		Short: "Add an event",
		RunE: func(cmd *cobra.Command, args []string) error {
			if cmd.Flags().Changed("sold") {
				ev.Sold = &sold
			}
			return runClient(func(ctx context.Context, a *app) error {
				e, err := a.manager.AddEvent(ctx, passID, ev)
				if err != nil {
					return err
				}
				fmt.Fprintln(cmd.OutOrStdout(), e.ID)
				return nil
			})
		},
	}
	add.Flags().StringVar(&passID, "pass", "", "Pass id (default: active pass)")
	add.Flags().StringVar(&ev.Name, "name", "", "Event name")
	add.Flags().StringVar(&ev.Date, "date", "", "Event date")
	add.Flags().Float64Var(&ev.Paid, "paid", 0, "Amount paid")
	add.Flags().Float64Var(&sold, "sold", 0, "Amount sold for")

	var removePass string
	remove := &cobra.Command{
		Use:   "remove <event-id>",
		Short: "Remove an event",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			return runClient(func(ctx context.Context, a *app) error {
				return a.manager.RemoveEvent(ctx, removePass, args[0])
			})
		},
	}
	remove.Flags().StringVar(&removePass, "pass", "", "Pass id (default: active pass)")

	cmd.AddCommand(add, remove)
	return cmd
}

// --------------------------------------------------------------------------
// stats command
// --------------------------------------------------------------------------

func statsCmd() *cobra.Command {
	var passID string
	cmd := &cobra.Command{
		Use:   "stats",
		Short: "Show revenue and sell-through for a pass",
		RunE: func(cmd *cobra.Command, args []string) error {
			return runClient(func(ctx context.Context, a *app) error {
				p, err := a.manager.Pass(passID)
				if err != nil {
					return err
				}
				out := struct {
					Pass     string                 `json:"pass"`
					Stats    stats.Stats            `json:"stats"`
					Monthly  []stats.MonthlyRevenue `json:"monthly"`
					Balances []stats.PairBalance    `json:"balances"`
					Orphans  int                    `json:"orphanSales,omitempty"`
				}{
					Pass:     p.TeamName + " " + p.SeasonLabel,
					Stats:    stats.Calculate(&p),
					Monthly:  stats.Monthly(&p),
					Balances: stats.Balances(&p),
					Orphans:  len(p.OrphanSales()),
				}
				return writeJSON(cmd.OutOrStdout(), out)
			})
		},
	}
	cmd.Flags().StringVar(&passID, "pass", "", "Pass id (default: active pass)")
	return cmd
}

// --------------------------------------------------------------------------
// schedule command
// --------------------------------------------------------------------------

func scheduleCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "schedule",
		Short: "Team schedules",
	}

	var passID, tz string
	resync := &cobra.Command{
		Use:   "resync",
		Short: "Replace a pass's games with the team's home schedule",
		RunE: func(cmd *cobra.Command, args []string) error {
			loc := time.UTC
			if tz != "" {
				var err error
				if loc, err = time.LoadLocation(tz); err != nil {
					return fmt.Errorf("invalid --tz: %w", err)
				}
			}
			return runClient(func(ctx context.Context, a *app) error {
				p, err := a.manager.Pass(passID)
				if err != nil {
					return err
				}
				games, err := a.schedule.FetchSchedule(ctx, provider.Request{
					LeagueID:         p.LeagueID,
					TeamID:           p.TeamID,
					TeamName:         p.TeamName,
					TeamAbbreviation: p.TeamAbbreviation,
					Location:         loc,
				})
				if err != nil {
					return fmt.Errorf("schedule unavailable (%s): %w", provider.CodeOf(err), err)
				}
				if err := a.manager.SetGames(ctx, p.ID, games); err != nil {
					return err
				}
				fmt.Fprintf(cmd.OutOrStdout(), "Updated %s with %d home games\n", p.TeamName, len(games))
				return nil
			})
		},
	}
	resync.Flags().StringVar(&passID, "pass", "", "Pass id (default: active pass)")
	resync.Flags().StringVar(&tz, "tz", "", "IANA time zone for dates and times (default UTC)")

	var listPass string
	list := &cobra.Command{
		Use:   "list",
		Short: "List a pass's games",
		RunE: func(cmd *cobra.Command, args []string) error {
			return runClient(func(ctx context.Context, a *app) error {
				p, err := a.manager.Pass(listPass)
				if err != nil {
					return err
				}
				tw := tabwriter.NewWriter(cmd.OutOrStdout(), 0, 4, 2, ' ', 0)
				fmt.Fprintln(tw, "#\tID\tDATE\tTIME\tOPPONENT\tTYPE\tSOLD")
				for _, g := range p.Games {
					fmt.Fprintf(tw, "%s\t%s\t%s\t%s\t%s\t%s\t%d\n",
						g.GameNumber, g.ID, g.Date, g.Time, g.Opponent, g.Type, len(p.SalesData[g.ID]))
				}
				return tw.Flush()
			})
		},
	}
	list.Flags().StringVar(&listPass, "pass", "", "Pass id (default: active pass)")

	cmd.AddCommand(resync, list)
	return cmd
}

// --------------------------------------------------------------------------
// Shared setup
// --------------------------------------------------------------------------

// app is everything a client command needs, opened from the data dir.
type app struct {
	cfg      *config.Config
	store    *storage.Store
	manager  *passes.Manager
	client   *cloudsync.Client
	schedule provider.Source
}

// syncEngine builds the sync engine. confirm may be nil to pull without
// asking.
func (a *app) syncEngine(confirm cloudsync.ConfirmFunc) *cloudsync.Engine {
	return cloudsync.NewEngine(a.client, a.manager, a.store, cloudsync.Options{
		Confirm:      confirm,
		PushDelay:    a.cfg.AutoPushDelay,
		PullInterval: a.cfg.AutoPullInterval,
	}, logger)
}

// runClient loads config and local data, runs fn, then waits for every
// queued save to land.
func runClient(fn func(ctx context.Context, a *app) error) error {
	ctx, cancel := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer cancel()

	cfg, err := config.Load()
	if err != nil {
		return fmt.Errorf("load config: %w", err)
	}

	kv, err := storage.OpenFileKV(cfg.DataDir)
	if err != nil {
		return err
	}
	store := storage.NewStore(kv, logger)
	defer store.Close()

	manager := passes.NewManager(store, logger)
	if err := manager.Load(ctx); err != nil {
		return err
	}

	if cfg.SyncKey != "" {
		if err := store.SetSyncKey(ctx, cfg.SyncKey); err != nil {
			return err
		}
	}

	sources := []provider.Source{espn.NewClient("", 60, logger)}
	if cfg.TicketmasterAPIKey != "" {
		sources = append(sources, ticketmaster.NewClient("", cfg.TicketmasterAPIKey, 60, logger))
	}

	a := &app{
		cfg:      cfg,
		store:    store,
		manager:  manager,
		client:   cloudsync.NewClient(cfg.SyncServerURL, cfg.SyncMetaTimeout, cfg.SyncTransferTime, logger),
		schedule: provider.NewChain(cfg.ScheduleTimeout, logger, sources...),
	}
	if err := fn(ctx, a); err != nil {
		return err
	}
	return store.Flush(context.WithoutCancel(ctx))
}

// confirm asks a yes/no question on the command's input. --yes answers for
// the user.
func confirm(cmd *cobra.Command, prompt string) bool {
	if yes, _ := cmd.Flags().GetBool("yes"); yes {
		return true
	}
	fmt.Fprintf(cmd.ErrOrStderr(), "%s [y/N] ", prompt)
	line, _ := bufio.NewReader(cmd.InOrStdin()).ReadString('\n')
	answer := strings.ToLower(strings.TrimSpace(line))
	return answer == "y" || answer == "yes"
}

func writeJSON(w io.Writer, v any) error {
	enc := json.NewEncoder(w)
	enc.SetIndent("", "  ")
	return enc.Encode(v)
}
