package main

import (
	"fmt"
	"strconv"
	"text/tabwriter"

	"github.com/mkowalczyk/switchboard/internal/catalog"
	"github.com/mkowalczyk/switchboard/internal/dispatch"
	"github.com/mkowalczyk/switchboard/internal/resolver"
	"github.com/spf13/cobra"
)

func newAssistantCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "assistant",
		Short: "Assistant catalog commands",
	}

	cmd.AddCommand(newAssistantListCmd())
	cmd.AddCommand(newAssistantCreateCmd())
	cmd.AddCommand(newAssistantDeleteCmd())
	cmd.AddCommand(newAssistantSelectCmd())
	return cmd
}

func newAssistantListCmd() *cobra.Command {
	var configPath string

	cmd := &cobra.Command{
		Use:   "list",
		Short: "List assistants",
		Long:  "Lists the merged catalog: local records updated from the remote provider, plus remote-only assistants. When the provider is unreachable, shows the local catalog only.",
		RunE: func(cmd *cobra.Command, args []string) error {
			return runAssistantList(cmd, configPath)
		},
	}

	cmd.Flags().StringVarP(&configPath, "config", "c", "switchboard.yaml", "path to Switchboard config file")
	return cmd
}

func runAssistantList(cmd *cobra.Command, configPath string) error {
	svc, err := buildServices(configPath, cmd.OutOrStdout())
	if err != nil {
		return err
	}

	merged, err := svc.catalog.MergedList(cmd.Context(), svc.cfg.Owner)
	if err != nil {
		return err
	}

	out := cmd.OutOrStdout()
	if len(merged) == 0 {
		fmt.Fprintln(out, "No assistants found.")
		return nil
	}

	w := tabwriter.NewWriter(out, 0, 0, 2, ' ', 0)
	fmt.Fprintln(w, "ID\tNAME\tSTATUS\tREMOTE ID\tMODEL")
	for _, a := range merged {
		id := "-"
		if a.ID != 0 {
			id = strconv.FormatUint(uint64(a.ID), 10)
		}
		model := a.Model
		if model == "" {
			model = "-"
		}
		fmt.Fprintf(w, "%s\t%s\t%s\t%s\t%s\n",
			id, truncate(a.Name, 40), a.Status, a.RemoteID, model)
	}
	w.Flush()
	return nil
}

func newAssistantCreateCmd() *cobra.Command {
	var (
		configPath   string
		name         string
		systemPrompt string
		firstMessage string
		model        string
		voice        string
	)

	cmd := &cobra.Command{
		Use:   "create",
		Short: "Create an assistant",
		Long:  "Registers a new assistant with the remote provider and records it locally. The new assistant becomes the session's selection.",
		RunE: func(cmd *cobra.Command, args []string) error {
			return runAssistantCreate(cmd, configPath, catalog.CreateRequest{
				Name:         name,
				SystemPrompt: systemPrompt,
				FirstMessage: firstMessage,
				Model:        model,
				Voice:        voice,
			})
		},
	}

	cmd.Flags().StringVarP(&configPath, "config", "c", "switchboard.yaml", "path to Switchboard config file")
	cmd.Flags().StringVar(&name, "name", "", "assistant name (required)")
	cmd.Flags().StringVar(&systemPrompt, "prompt", "", "system prompt")
	cmd.Flags().StringVar(&firstMessage, "first-message", "", "opening message for calls")
	cmd.Flags().StringVar(&model, "model", "", "model override")
	cmd.Flags().StringVar(&voice, "voice", "", "voice override")
	cmd.MarkFlagRequired("name")
	return cmd
}

func runAssistantCreate(cmd *cobra.Command, configPath string, req catalog.CreateRequest) error {
	svc, err := buildServices(configPath, cmd.OutOrStdout())
	if err != nil {
		return err
	}
	req.OwnerID = svc.cfg.Owner

	a, err := svc.catalog.Create(cmd.Context(), req)
	if err != nil {
		return err
	}

	out := cmd.OutOrStdout()
	fmt.Fprintf(out, "Created assistant %d (%s)\n", a.ID, a.Name)
	if catalog.IsPlaceholder(a.RemoteID) {
		fmt.Fprintf(out, "Remote id pending; the sync loop will confirm it. Placeholder: %s\n", a.RemoteID)
	} else {
		fmt.Fprintf(out, "Remote id: %s\n", a.RemoteID)
	}

	// Announce the creation to the workflow endpoint, best-effort.
	hints := resolver.Hints{Name: a.Name, LocalID: a.ID, OwnerID: svc.cfg.Owner}
	if !catalog.IsPlaceholder(a.RemoteID) {
		hints.RemoteID = a.RemoteID
	}
	result, err := svc.orch.Dispatch(cmd.Context(), dispatch.ActionCreateAssistant, dispatch.Context{
		Name:         a.Name,
		SystemPrompt: req.SystemPrompt,
		FirstMessage: req.FirstMessage,
		OwnerID:      svc.cfg.Owner,
		Hints:        hints,
	})
	if err != nil {
		return err
	}
	if !result.Accepted {
		fmt.Fprintln(out, "Warning: the workflow endpoint did not accept the create_assistant announcement.")
	}
	return nil
}

func newAssistantDeleteCmd() *cobra.Command {
	var configPath string

	cmd := &cobra.Command{
		Use:   "delete <id>",
		Short: "Delete an assistant",
		Long:  "Deletes an assistant remotely (best-effort) and locally. The local record is removed even when the remote deletion fails.",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			return runAssistantDelete(cmd, configPath, args[0])
		},
	}

	cmd.Flags().StringVarP(&configPath, "config", "c", "switchboard.yaml", "path to Switchboard config file")
	return cmd
}

func runAssistantDelete(cmd *cobra.Command, configPath, rawID string) error {
	id, err := strconv.ParseUint(rawID, 10, 32)
	if err != nil {
		return fmt.Errorf("invalid assistant id %q", rawID)
	}

	svc, err := buildServices(configPath, cmd.OutOrStdout())
	if err != nil {
		return err
	}

	if err := svc.catalog.Delete(cmd.Context(), uint(id)); err != nil {
		return err
	}
	fmt.Fprintf(cmd.OutOrStdout(), "Deleted assistant %d\n", id)
	return nil
}

func newAssistantSelectCmd() *cobra.Command {
	var configPath string

	cmd := &cobra.Command{
		Use:   "select <id>",
		Short: "Select an assistant for dispatch",
		Long:  "Caches an assistant as the session's selection; the identity resolver uses it when an action carries no explicit assistant.",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			return runAssistantSelect(cmd, configPath, args[0])
		},
	}

	cmd.Flags().StringVarP(&configPath, "config", "c", "switchboard.yaml", "path to Switchboard config file")
	return cmd
}

func runAssistantSelect(cmd *cobra.Command, configPath, rawID string) error {
	id, err := strconv.ParseUint(rawID, 10, 32)
	if err != nil {
		return fmt.Errorf("invalid assistant id %q", rawID)
	}

	svc, err := buildServices(configPath, cmd.OutOrStdout())
	if err != nil {
		return err
	}

	a, err := svc.catalog.Select(uint(id))
	if err != nil {
		return err
	}
	fmt.Fprintf(cmd.OutOrStdout(), "Selected assistant %d (%s)\n", a.ID, a.Name)
	return nil
}
