package command

import (
	"fmt"
	"strconv"
	"time"

	humanize "github.com/dustin/go-humanize"
	"github.com/spf13/cobra"

	"github.com/MotoAcidic/fluxd/registry"
	"github.com/MotoAcidic/fluxd/store"
)

func init() {
	rootCmd.AddCommand(statusCmd, listCmd, countCmd, rebuildCmd)
}

// openRegistryReadOnly loads the store and replays the fixture into a fresh
// Registry, the same bootstrap path runDaemon takes, for the query
// subcommands that need a populated Registry without running the HTTP
// service.
func openRegistryReadOnly() (*registry.Registry, *store.BadgerStore, error) {
	logger := cliConfig.Config.Logger()

	if err := cliConfig.Config.Validate(); err != nil {
		return nil, nil, err
	}
	if cliConfig.FixturePath == "" {
		return nil, nil, fmt.Errorf("no --fixture configured")
	}
	driver, err := LoadFixtureDriver(cliConfig.FixturePath)
	if err != nil {
		return nil, nil, err
	}
	st, err := store.NewBadgerStore(cliConfig.Config.DatabaseDir, logger)
	if err != nil {
		return nil, nil, err
	}
	reg := registry.New(cliConfig.Config.Params(), st, driver, logger)
	if err := reg.Rebuild(1); err != nil {
		st.Close()
		return nil, nil, err
	}
	return reg, st, nil
}

var statusCmd = &cobra.Command{
	Use:   "status [outpoint]",
	Short: "Report which tracker an outpoint currently occupies",
	Args:  cobra.ExactArgs(1),
	Run: func(cmd *cobra.Command, args []string) {
		reg, st, err := openRegistryReadOnly()
		if err != nil {
			fmt.Println("error:", err)
			return
		}
		defer st.Close()

		o, err := parseFixtureOutpoint(args[0])
		if err != nil {
			fmt.Println("error:", err)
			return
		}
		kind, rec := reg.Status(o)
		paint := colorForTracker(kind)
		if rec == nil {
			fmt.Println(paint("%s: no tracker", args[0]))
			return
		}
		fmt.Println(paint("%s: %s tier=%s added=%d confirmed=%d last_paid=%d",
			args[0], trackerLabel(kind), rec.Tier, rec.AddedHeight, rec.ConfirmedHeight, rec.LastPaidHeight))
	},
}

var listCmd = &cobra.Command{
	Use:   "list [tier]",
	Short: "List confirmed nodes, optionally filtered by tier",
	Args:  cobra.MaximumNArgs(1),
	Run: func(cmd *cobra.Command, args []string) {
		reg, st, err := openRegistryReadOnly()
		if err != nil {
			fmt.Println("error:", err)
			return
		}
		defer st.Close()

		tier := registry.Invalid
		if len(args) == 1 {
			for _, t := range registry.Tiers() {
				if t.String() == args[0] {
					tier = t
				}
			}
		}
		for _, rec := range reg.ConfirmedList(tier) {
			paint := colorForTracker(registry.InConfirmed)
			fmt.Println(paint("%s tier=%s last_paid=%d", rec.CollateralOutpoint.String(), rec.Tier, rec.LastPaidHeight))
		}
	},
}

var countCmd = &cobra.Command{
	Use:   "count",
	Short: "Report node totals by tier and network type",
	Run: func(cmd *cobra.Command, args []string) {
		reg, st, err := openRegistryReadOnly()
		if err != nil {
			fmt.Println("error:", err)
			return
		}
		defer st.Close()

		c := reg.CountNodes()
		fmt.Printf("total: %s\n", humanize.Comma(int64(c.Total)))
		for _, t := range registry.Tiers() {
			fmt.Printf("  %s: %d\n", t, c.PerTier[t])
		}
		fmt.Printf("ipv4=%d ipv6=%d onion=%d\n", c.IPv4, c.IPv6, c.Onion)
	},
}

var rebuildCmd = &cobra.Command{
	Use:   "rebuild [from-height]",
	Short: "Discard derived state and replay the fixture from from-height",
	Args:  cobra.ExactArgs(1),
	Run: func(cmd *cobra.Command, args []string) {
		fromHeight, err := strconv.ParseUint(args[0], 10, 32)
		if err != nil {
			fmt.Println("error:", err)
			return
		}
		start := time.Now()
		reg, st, err := openRegistryReadOnly()
		if err != nil {
			fmt.Println("error:", err)
			return
		}
		defer st.Close()
		if err := reg.Rebuild(uint32(fromHeight)); err != nil {
			fmt.Println("error:", err)
			return
		}
		fmt.Printf("rebuilt to tip %d in %s\n", reg.TipHeight(), humanize.RelTime(start, time.Now(), "", ""))
	},
}

func trackerLabel(k registry.TrackerKind) string {
	switch k {
	case registry.InStart:
		return "start"
	case registry.InDoS:
		return "dos"
	case registry.InConfirmed:
		return "confirmed"
	default:
		return "none"
	}
}
