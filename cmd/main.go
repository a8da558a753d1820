package main

import (
	"context"
	"encoding/json"
	"fmt"
	"os"
	"strconv"
	"text/tabwriter"
	"time"

	"golang-stock-monitor/internal/entity"
	"golang-stock-monitor/internal/monitor/app"
	"golang-stock-monitor/internal/monitor/dto"

	"github.com/spf13/cobra"
)

var (
	configPath string
	monitor    *app.App
)

var rootCmd = &cobra.Command{
	Use:   "stock-monitor",
	Short: "A CLI for managing monitored positions and alerts",
	Long:  `stock-monitor manages the positions watched by the monitor service and the alerts it raises.`,
	PersistentPreRunE: func(cmd *cobra.Command, args []string) error {
		if cmd.Name() == "help" {
			return nil
		}
		var err error
		monitor, err = app.New(cmd.Context(), configPath, app.Options{})
		return err
	},
	PersistentPostRun: func(cmd *cobra.Command, args []string) {
		if monitor != nil {
			monitor.Close()
		}
	},
	SilenceUsage: true,
}

var addReq dto.AddPositionRequest

var addCmd = &cobra.Command{
	Use:   "add SYMBOL",
	Short: "Start monitoring a position or entry candidate",
	Args:  cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		req := addReq
		req.Symbol = args[0]
		req.EntryPrice = floatFlag(cmd, "entry-price")
		req.EntryMin = floatFlag(cmd, "entry-min")
		req.EntryMax = floatFlag(cmd, "entry-max")
		req.TakeProfit = floatFlag(cmd, "take-profit")
		req.StopLoss = floatFlag(cmd, "stop-loss")
		req.NotificationEnabled = boolFlag(cmd, "notify")
		req.TradingHoursOnly = boolFlag(cmd, "trading-hours-only")

		position, err := monitor.PositionService.Add(cmd.Context(), req)
		if err != nil {
			return err
		}
		printPositions([]entity.MonitoredPosition{*position})
		return nil
	},
}

var updateCmd = &cobra.Command{
	Use:   "update POSITION_ID",
	Short: "Edit a holding position; only the flags given are changed",
	Args:  cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		id, err := parseID(args[0])
		if err != nil {
			return err
		}
		req := dto.UpdatePositionRequest{
			EntryPrice:          floatFlag(cmd, "entry-price"),
			EntryMin:            floatFlag(cmd, "entry-min"),
			EntryMax:            floatFlag(cmd, "entry-max"),
			TakeProfit:          floatFlag(cmd, "take-profit"),
			StopLoss:            floatFlag(cmd, "stop-loss"),
			NotificationEnabled: boolFlag(cmd, "notify"),
			TradingHoursOnly:    boolFlag(cmd, "trading-hours-only"),
		}
		if cmd.Flags().Changed("name") {
			name, _ := cmd.Flags().GetString("name")
			req.Name = &name
		}
		if cmd.Flags().Changed("quantity") {
			quantity, _ := cmd.Flags().GetInt("quantity")
			req.Quantity = &quantity
		}
		if cmd.Flags().Changed("buy-date") {
			buyDate, _ := cmd.Flags().GetString("buy-date")
			req.BuyDate = &buyDate
		}

		position, err := monitor.PositionService.Update(cmd.Context(), id, req)
		if err != nil {
			return err
		}
		printPositions([]entity.MonitoredPosition{*position})
		return nil
	},
}

var notifyCmd = &cobra.Command{
	Use:   "notify POSITION_ID on|off",
	Short: "Switch alert delivery for a holding position",
	Args:  cobra.ExactArgs(2),
	RunE: func(cmd *cobra.Command, args []string) error {
		id, err := parseID(args[0])
		if err != nil {
			return err
		}
		var enabled bool
		switch args[1] {
		case "on":
			enabled = true
		case "off":
		default:
			return fmt.Errorf("expected on or off, got %q", args[1])
		}
		position, err := monitor.PositionService.SetNotification(cmd.Context(), id, enabled)
		if err != nil {
			return err
		}
		fmt.Printf("notifications for %s (id %d): %s\n", position.Symbol, position.ID, args[1])
		return nil
	},
}

var importCmd = &cobra.Command{
	Use:   "import FILE",
	Short: "Add or update positions from a JSON file",
	Long:  `import reads a JSON array of positions, or an object with a "positions" array, and adds every symbol not monitored yet while updating the rest.`,
	Args:  cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		reqs, err := readBatchFile(args[0])
		if err != nil {
			return err
		}
		result, err := monitor.PositionService.BatchUpsert(cmd.Context(), reqs)
		if err != nil {
			return err
		}
		w := tabwriter.NewWriter(os.Stdout, 0, 0, 2, ' ', 0)
		fmt.Fprintln(w, "SYMBOL\tRESULT\tID\tERROR")
		for _, item := range result.Items {
			fmt.Fprintf(w, "%s\t%s\t%d\t%s\n", item.Symbol, item.Result, item.ID, item.Error)
		}
		_ = w.Flush()
		fmt.Printf("added %d, updated %d, failed %d of %d\n", result.Added, result.Updated, result.Failed, result.Total)
		return nil
	},
}

var removeCmd = &cobra.Command{
	Use:   "remove SYMBOL [REASON]",
	Short: "Stop monitoring the holding position of a symbol",
	Args:  cobra.RangeArgs(1, 2),
	RunE: func(cmd *cobra.Command, args []string) error {
		reason := ""
		if len(args) > 1 {
			reason = args[1]
		}
		position, err := monitor.PositionService.Remove(cmd.Context(), args[0], reason)
		if err != nil {
			return err
		}
		fmt.Printf("removed %s (id %d)\n", position.Symbol, position.ID)
		return nil
	},
}

var listAll bool

var listCmd = &cobra.Command{
	Use:   "list",
	Short: "List monitored positions",
	RunE: func(cmd *cobra.Command, args []string) error {
		positions, err := monitor.PositionService.List(cmd.Context(), listAll)
		if err != nil {
			return err
		}
		printPositions(positions)
		return nil
	},
}

var pendingCmd = &cobra.Command{
	Use:   "pending",
	Short: "List alerts that have not been delivered",
	RunE: func(cmd *cobra.Command, args []string) error {
		alerts, err := monitor.AlertService.Pending(cmd.Context())
		if err != nil {
			return err
		}
		printAlerts(alerts)
		return nil
	},
}

var markSentCmd = &cobra.Command{
	Use:   "mark-sent ALERT_ID",
	Short: "Mark an alert as sent",
	Args:  cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		id, err := parseID(args[0])
		if err != nil {
			return err
		}
		alert, err := monitor.AlertService.MarkSent(cmd.Context(), id)
		if err != nil {
			return err
		}
		printAlerts([]entity.Alert{*alert})
		return nil
	},
}

var confirmExitCmd = &cobra.Command{
	Use:   "confirm-exit ALERT_ID [REASON]",
	Short: "Acknowledge an exit alert and remove its position",
	Args:  cobra.RangeArgs(1, 2),
	RunE: func(cmd *cobra.Command, args []string) error {
		id, err := parseID(args[0])
		if err != nil {
			return err
		}
		reason := ""
		if len(args) > 1 {
			reason = args[1]
		}
		alert, err := monitor.AlertService.ConfirmExit(cmd.Context(), id, reason)
		if err != nil {
			return err
		}
		printAlerts([]entity.Alert{*alert})
		return nil
	},
}

var historyLimit int

var historyCmd = &cobra.Command{
	Use:   "history",
	Short: "Show the most recent alerts",
	RunE: func(cmd *cobra.Command, args []string) error {
		alerts, err := monitor.AlertService.History(cmd.Context(), historyLimit)
		if err != nil {
			return err
		}
		printAlerts(alerts)
		return nil
	},
}

var purgeDays int

var purgeCmd = &cobra.Command{
	Use:   "purge",
	Short: "Delete sent alerts older than --days",
	RunE: func(cmd *cobra.Command, args []string) error {
		deleted, err := monitor.AlertService.Purge(cmd.Context(), purgeDays)
		if err != nil {
			return err
		}
		fmt.Printf("deleted %d alerts\n", deleted)
		return nil
	},
}

var purgePositionCmd = &cobra.Command{
	Use:   "purge-position POSITION_ID",
	Short: "Physically delete a position and everything recorded for it",
	Args:  cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		id, err := parseID(args[0])
		if err != nil {
			return err
		}
		if err := monitor.PositionService.Purge(cmd.Context(), id); err != nil {
			return err
		}
		fmt.Printf("purged position %d\n", id)
		return nil
	},
}

var sessionAt string

var sessionCmd = &cobra.Command{
	Use:   "session",
	Short: "Show the trading session for now or --at",
	RunE: func(cmd *cobra.Command, args []string) error {
		at := monitor.Clock.Now()
		if sessionAt != "" {
			parsed, err := time.Parse(time.RFC3339, sessionAt)
			if err != nil {
				return fmt.Errorf("invalid --at: %w", err)
			}
			at = parsed
		}
		info := monitor.Schedule.Classify(at)
		fmt.Printf("%s  %s  can_trade=%t\n%s\n%s\n",
			info.At.Format(time.DateTime), info.Session, info.CanTrade, info.Description, info.Recommendation)
		return nil
	},
}

func init() {
	rootCmd.PersistentFlags().StringVarP(&configPath, "config", "c", "configs/config-monitor.yaml", "Path to the configuration file")

	addCmd.Flags().StringVar(&addReq.Name, "name", "", "Display name")
	addCmd.Flags().IntVar(&addReq.Quantity, "quantity", 0, "Shares held")
	addCmd.Flags().StringVar(&addReq.BuyDate, "buy-date", "", "Buy date (YYYY-MM-DD), defaults to today")
	addCmd.Flags().Float64("entry-price", 0, "Entry price of a held position")
	addCmd.Flags().Float64("entry-min", 0, "Lower bound of the entry range of a candidate")
	addCmd.Flags().Float64("entry-max", 0, "Upper bound of the entry range of a candidate")
	addCmd.Flags().Float64("take-profit", 0, "Take profit price")
	addCmd.Flags().Float64("stop-loss", 0, "Stop loss price")
	addCmd.Flags().Bool("notify", true, "Deliver alerts for this position")
	addCmd.Flags().Bool("trading-hours-only", true, "Deliver alerts only during tradable sessions")

	updateCmd.Flags().String("name", "", "Display name")
	updateCmd.Flags().Int("quantity", 0, "Shares held")
	updateCmd.Flags().String("buy-date", "", "Buy date (YYYY-MM-DD)")
	updateCmd.Flags().Float64("entry-price", 0, "Entry price; clears the entry range")
	updateCmd.Flags().Float64("entry-min", 0, "Lower bound of the entry range; clears the entry price")
	updateCmd.Flags().Float64("entry-max", 0, "Upper bound of the entry range; clears the entry price")
	updateCmd.Flags().Float64("take-profit", 0, "Take profit price")
	updateCmd.Flags().Float64("stop-loss", 0, "Stop loss price")
	updateCmd.Flags().Bool("notify", true, "Deliver alerts for this position")
	updateCmd.Flags().Bool("trading-hours-only", true, "Deliver alerts only during tradable sessions")

	listCmd.Flags().BoolVar(&listAll, "all", false, "Include removed positions")
	historyCmd.Flags().IntVar(&historyLimit, "limit", 50, "Maximum number of alerts")
	purgeCmd.Flags().IntVar(&purgeDays, "days", 30, "Retention in days")
	sessionCmd.Flags().StringVar(&sessionAt, "at", "", "RFC3339 timestamp to classify")

	rootCmd.AddCommand(addCmd, updateCmd, notifyCmd, importCmd, removeCmd, listCmd, pendingCmd, markSentCmd, confirmExitCmd,
		historyCmd, purgeCmd, purgePositionCmd, sessionCmd)
}

func floatFlag(cmd *cobra.Command, name string) *float64 {
	if !cmd.Flags().Changed(name) {
		return nil
	}
	v, _ := cmd.Flags().GetFloat64(name)
	return &v
}

func boolFlag(cmd *cobra.Command, name string) *bool {
	if !cmd.Flags().Changed(name) {
		return nil
	}
	v, _ := cmd.Flags().GetBool(name)
	return &v
}

func readBatchFile(path string) ([]dto.AddPositionRequest, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, err
	}
	var reqs []dto.AddPositionRequest
	if err := json.Unmarshal(data, &reqs); err == nil {
		return reqs, nil
	}
	var wrapped dto.BatchUpsertRequest
	if err := json.Unmarshal(data, &wrapped); err != nil {
		return nil, fmt.Errorf("invalid batch file %s: %w", path, err)
	}
	return wrapped.Positions, nil
}

func parseID(raw string) (uint, error) {
	id, err := strconv.ParseUint(raw, 10, 32)
	if err != nil {
		return 0, fmt.Errorf("invalid id %q", raw)
	}
	return uint(id), nil
}

func printPositions(positions []entity.MonitoredPosition) {
	w := tabwriter.NewWriter(os.Stdout, 0, 0, 2, ' ', 0)
	fmt.Fprintln(w, "ID\tSYMBOL\tSTATUS\tENTRY\tTP\tSL\tBUY DATE\tDAYS\tPRICE\tCHECKED")
	for _, p := range positions {
		entry := optional(p.EntryPrice)
		if p.IsCandidate() {
			entry = optional(p.EntryMin) + "-" + optional(p.EntryMax)
		}
		checked := "-"
		if p.LastCheckedAt != nil {
			checked = p.LastCheckedAt.Local().Format(time.DateTime)
		}
		fmt.Fprintf(w, "%d\t%s\t%s\t%s\t%s\t%s\t%s\t%d\t%s\t%s\n",
			p.ID, p.Symbol, p.Status, entry, optional(p.TakeProfit), optional(p.StopLoss),
			p.BuyDate.Format(time.DateOnly), p.HoldingDays, optional(p.CurrentPrice), checked)
	}
	_ = w.Flush()
}

func printAlerts(alerts []entity.Alert) {
	w := tabwriter.NewWriter(os.Stdout, 0, 0, 2, ' ', 0)
	fmt.Fprintln(w, "ID\tSYMBOL\tTYPE\tPRICE\tSENT\tCREATED\tREASON")
	for _, a := range alerts {
		symbol := "-"
		if a.Position != nil {
			symbol = a.Position.Symbol
		}
		fmt.Fprintf(w, "%d\t%s\t%s\t%s\t%t\t%s\t%s\n",
			a.ID, symbol, a.AlertType, optional(a.Price), a.Sent, a.CreatedAt.Local().Format(time.DateTime), a.Reason)
	}
	_ = w.Flush()
}

func optional(v *float64) string {
	if v == nil {
		return "-"
	}
	return strconv.FormatFloat(*v, 'f', 2, 64)
}

func main() {
	if err := rootCmd.ExecuteContext(context.Background()); err != nil {
		fmt.Fprintf(os.Stderr, "Whoops. There was an error while executing your CLI '%s'\n", err)
		os.Exit(1)
	}
}
