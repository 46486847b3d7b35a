package main

import (
	"fmt"
	"strconv"
	"text/tabwriter"

	"github.com/mkowalczyk/switchboard/internal/campaign"
	"github.com/mkowalczyk/switchboard/internal/dashboard"
	"github.com/spf13/cobra"
)

func newCampaignCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "campaign",
		Short: "Call-campaign lifecycle commands",
	}

	cmd.AddCommand(newCampaignListCmd())
	cmd.AddCommand(newCampaignCreateCmd())
	cmd.AddCommand(newCampaignStartCmd())
	cmd.AddCommand(newCampaignPauseCmd())
	cmd.AddCommand(newCampaignStopCmd())
	cmd.AddCommand(newCampaignLogCmd())
	return cmd
}

func newCampaignListCmd() *cobra.Command {
	var configPath string

	cmd := &cobra.Command{
		Use:   "list",
		Short: "List campaigns",
		RunE: func(cmd *cobra.Command, args []string) error {
			return runCampaignList(cmd, configPath)
		},
	}

	cmd.Flags().StringVarP(&configPath, "config", "c", "switchboard.yaml", "path to Switchboard config file")
	return cmd
}

func runCampaignList(cmd *cobra.Command, configPath string) error {
	svc, err := buildServices(configPath, cmd.OutOrStdout())
	if err != nil {
		return err
	}

	campaigns, err := svc.campaigns.List()
	if err != nil {
		return err
	}

	out := cmd.OutOrStdout()
	if len(campaigns) == 0 {
		fmt.Fprintln(out, "No campaigns found.")
		return nil
	}

	w := tabwriter.NewWriter(out, 0, 0, 2, ' ', 0)
	fmt.Fprintln(w, "ID\tNAME\tSTATUS\tPROGRESS\tGROUP")
	for _, c := range campaigns {
		group := "-"
		if c.GroupID != nil {
			group = strconv.FormatUint(uint64(*c.GroupID), 10)
		}
		fmt.Fprintf(w, "%d\t%s\t%s\t%d%%\t%s\n",
			c.ID, truncate(c.Name, 40), c.Status, c.Progress, group)
	}
	w.Flush()
	return nil
}

func newCampaignCreateCmd() *cobra.Command {
	var (
		configPath string
		name       string
		groupID    uint
	)

	cmd := &cobra.Command{
		Use:   "create",
		Short: "Create a campaign",
		Long:  "Creates a draft campaign over a client group and announces it to the workflow endpoint.",
		RunE: func(cmd *cobra.Command, args []string) error {
			return runCampaignCreate(cmd, configPath, name, groupID)
		},
	}

	cmd.Flags().StringVarP(&configPath, "config", "c", "switchboard.yaml", "path to Switchboard config file")
	cmd.Flags().StringVar(&name, "name", "", "campaign name (required)")
	cmd.Flags().UintVar(&groupID, "group", 0, "client group id")
	cmd.MarkFlagRequired("name")
	return cmd
}

func runCampaignCreate(cmd *cobra.Command, configPath, name string, groupID uint) error {
	svc, err := buildServices(configPath, cmd.OutOrStdout())
	if err != nil {
		return err
	}

	var gid *uint
	if groupID != 0 {
		gid = &groupID
	}
	result, err := svc.campaigns.Create(cmd.Context(), name, gid)
	if err != nil {
		return err
	}

	out := cmd.OutOrStdout()
	fmt.Fprintf(out, "Created campaign %d (%s)\n", result.Campaign.ID, result.Campaign.Name)
	reportDispatch(cmd, result)
	return nil
}

func newCampaignStartCmd() *cobra.Command {
	return newCampaignActionCmd("start", "Start a campaign",
		"Dispatches start_campaign to the workflow endpoint. The campaign becomes active only when the workflow accepts the dispatch.",
		func(svc *services, cmd *cobra.Command, id uint) (campaign.Result, error) {
			return svc.campaigns.Start(cmd.Context(), id)
		})
}

func newCampaignPauseCmd() *cobra.Command {
	return newCampaignActionCmd("pause", "Pause a campaign",
		"Dispatches pause_campaign with current progress. The campaign is paused locally even when the workflow rejects the dispatch.",
		func(svc *services, cmd *cobra.Command, id uint) (campaign.Result, error) {
			return svc.campaigns.Pause(cmd.Context(), id)
		})
}

func newCampaignStopCmd() *cobra.Command {
	return newCampaignActionCmd("stop", "Stop a campaign",
		"Dispatches stop_campaign. The campaign is stopped locally even when the workflow rejects the dispatch.",
		func(svc *services, cmd *cobra.Command, id uint) (campaign.Result, error) {
			return svc.campaigns.Stop(cmd.Context(), id)
		})
}

func newCampaignActionCmd(verb, short, long string, run func(*services, *cobra.Command, uint) (campaign.Result, error)) *cobra.Command {
	var configPath string

	cmd := &cobra.Command{
		Use:   verb + " <id>",
		Short: short,
		Long:  long,
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			id, err := strconv.ParseUint(args[0], 10, 32)
			if err != nil {
				return fmt.Errorf("invalid campaign id %q", args[0])
			}

			svc, err := buildServices(configPath, cmd.OutOrStdout())
			if err != nil {
				return err
			}

			result, err := run(svc, cmd, uint(id))
			if err != nil {
				return err
			}

			fmt.Fprintf(cmd.OutOrStdout(), "Campaign %d is now %s\n", result.Campaign.ID, result.Campaign.Status)
			reportDispatch(cmd, result)
			return nil
		},
	}

	cmd.Flags().StringVarP(&configPath, "config", "c", "switchboard.yaml", "path to Switchboard config file")
	return cmd
}

func newCampaignLogCmd() *cobra.Command {
	var (
		configPath string
		limit      int
	)

	cmd := &cobra.Command{
		Use:   "log",
		Short: "Show recent dispatch attempts",
		RunE: func(cmd *cobra.Command, args []string) error {
			return runCampaignLog(cmd, configPath, limit)
		},
	}

	cmd.Flags().StringVarP(&configPath, "config", "c", "switchboard.yaml", "path to Switchboard config file")
	cmd.Flags().IntVarP(&limit, "limit", "n", 20, "number of entries to show")
	return cmd
}

func runCampaignLog(cmd *cobra.Command, configPath string, limit int) error {
	_, gormDB, err := connectFromConfig(configPath)
	if err != nil {
		return err
	}

	rows, err := dashboard.RecentDispatches(gormDB, limit)
	if err != nil {
		return err
	}

	out := cmd.OutOrStdout()
	if len(rows) == 0 {
		fmt.Fprintln(out, "No dispatches recorded.")
		return nil
	}

	w := tabwriter.NewWriter(out, 0, 0, 2, ' ', 0)
	fmt.Fprintln(w, "TIME\tACTION\tCAMPAIGN\tASSISTANT\tSOURCE\tRESULT")
	for _, r := range rows {
		cid := "-"
		if r.CampaignID != nil {
			cid = strconv.FormatUint(uint64(*r.CampaignID), 10)
		}
		result := "accepted"
		if !r.Accepted {
			result = "rejected"
		}
		if r.Degraded {
			result += " (degraded)"
		}
		fmt.Fprintf(w, "%s\t%s\t%s\t%s\t%s\t%s\n",
			r.CreatedAt.Format("01-02 15:04:05"), r.Action, cid,
			r.AssistantRemote, r.ResolutionSource, result)
	}
	w.Flush()
	return nil
}

// reportDispatch prints the workflow outcome of a lifecycle action.
func reportDispatch(cmd *cobra.Command, result campaign.Result) {
	out := cmd.OutOrStdout()
	if !result.Dispatch.Accepted {
		fmt.Fprintln(out, "Warning: the workflow endpoint did not accept the dispatch.")
	}
	if result.Dispatch.Resolution.Degraded {
		fmt.Fprintf(out, "Warning: identity resolution fell back to the default assistant %s.\n",
			result.Dispatch.Resolution.RemoteID)
	}
}
