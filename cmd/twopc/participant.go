/*
 * Copyright 2021. Go-Sharding Author All Rights Reserved.
 *
 *  Licensed under the Apache License, Version 2.0 (the "License");
 *  you may not use this file except in compliance with the License.
 *  You may obtain a copy of the License at
 *
 *      http://www.apache.org/licenses/LICENSE-2.0
 *
 *  Unless required by applicable law or agreed to in writing, software
 *  distributed under the License is distributed on an "AS IS" BASIS,
 *  WITHOUT WARRANTIES OR CONDITIONS OF ANY KIND, either express or implied.
 *  See the License for the specific language governing permissions and
 *  limitations under the License.
 *
 *  File author: Anders Xiao
 */

package main

import (
	"context"
	"time"

	"github.com/endink/go-twopc/provider"
	"github.com/endink/go-twopc/server"
	"github.com/endink/go-twopc/transaction"
	"github.com/spf13/cobra"
)

func newParticipantCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "participant",
		Short: "Participant commands.",
	}
	cmd.AddCommand(newParticipantServeCmd())
	return cmd
}

func newParticipantServeCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "serve",
		Short: "Serves the configured participant over HTTP until interrupted.",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			cfg, err := loadConfig(cmd.Flags())
			if err != nil {
				return err
			}
			if listen, _ := cmd.Flags().GetString("listen"); listen != "" {
				cfg.Participant.Listen = listen
			}

			resource, err := provider.OpenBackend(cfg.Participant.Backend, cfg.Participant.DataPath)
			if err != nil {
				return err
			}
			defer func() {
				if err := resource.Close(); err != nil {
					log.Warnf("close backend: %v", err)
				}
			}()

			txLog, err := transaction.NewFileLog(cfg.Node.LogRoot, cfg.Participant.ID)
			if err != nil {
				return err
			}
			participant, err := transaction.NewParticipant(cfg.Participant.ID, nodeConfig(cfg, txLog), resource.Provider, resource.Executor)
			if err != nil {
				return err
			}

			ctx, cancel := signalContext()
			defer cancel()

			if err := participant.RecoverTransactionsFromTransactionLog(ctx); err != nil {
				log.Warnf("Recovery of participant '%s' finished with errors: %v", cfg.Participant.ID, err)
			}
			participant.StartWatchdog(cfg.Node.SweepInterval)

			srv := server.NewParticipantServer(participant)
			serveErr := make(chan error, 1)
			go func() {
				serveErr <- srv.ListenAndServe(cfg.Participant.Listen)
			}()

			select {
			case err = <-serveErr:
			case <-ctx.Done():
			}

			shutdownCtx, done := context.WithTimeout(context.Background(), 10*time.Second)
			defer done()
			if shutdownErr := srv.Shutdown(shutdownCtx); shutdownErr != nil {
				log.Warnf("shutdown server: %v", shutdownErr)
			}
			participant.Close(shutdownCtx)
			return err
		},
	}
	addConfigFlags(cmd.Flags())
	cmd.Flags().String("listen", "", "overrides participant.listen")
	return cmd
}
