package main

import (
	"fmt"

	"github.com/mkowalczyk/switchboard/internal/session"
	"github.com/spf13/cobra"
)

func newCallCmd() *cobra.Command {
	var (
		configPath string
		campaignID uint
		clientID   uint
		model      string
		voice      string
	)

	cmd := &cobra.Command{
		Use:   "call",
		Short: "Initiate a single outbound call",
		Long:  "Dispatches initiate_call for one client of an active campaign. --model and --voice override the configured call defaults for this session.",
		RunE: func(cmd *cobra.Command, args []string) error {
			return runCall(cmd, configPath, campaignID, clientID, model, voice)
		},
	}

	cmd.Flags().StringVarP(&configPath, "config", "c", "switchboard.yaml", "path to Switchboard config file")
	cmd.Flags().UintVar(&campaignID, "campaign", 0, "campaign id (required)")
	cmd.Flags().UintVar(&clientID, "client", 0, "client id (required)")
	cmd.Flags().StringVar(&model, "model", "", "model override for this call")
	cmd.Flags().StringVar(&voice, "voice", "", "voice override for this call")
	cmd.MarkFlagRequired("campaign")
	cmd.MarkFlagRequired("client")
	return cmd
}

func runCall(cmd *cobra.Command, configPath string, campaignID, clientID uint, model, voice string) error {
	svc, err := buildServices(configPath, cmd.OutOrStdout())
	if err != nil {
		return err
	}

	if model != "" || voice != "" {
		if model == "" {
			model = svc.cfg.Dispatch.DefaultModel
		}
		if voice == "" {
			voice = svc.cfg.Dispatch.DefaultVoice
		}
		if err := svc.sessions.SetCallConfig(session.CallConfig{Model: model, Voice: voice}); err != nil {
			return err
		}
	}

	result, err := svc.campaigns.Call(cmd.Context(), campaignID, clientID)
	if err != nil {
		return err
	}

	out := cmd.OutOrStdout()
	if result.Dispatch.Accepted {
		fmt.Fprintf(out, "Call dispatched for client %d (assistant %s, via %s)\n",
			clientID, result.Dispatch.Resolution.RemoteID, result.Dispatch.Resolution.Source)
	} else {
		fmt.Fprintf(out, "Call dispatch for client %d was not accepted by the workflow endpoint\n", clientID)
	}
	if result.Dispatch.Resolution.Degraded {
		fmt.Fprintf(out, "Warning: identity resolution fell back to the default assistant %s.\n",
			result.Dispatch.Resolution.RemoteID)
	}
	return nil
}
