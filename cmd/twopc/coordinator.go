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
	"fmt"

	"github.com/endink/go-twopc/config"
	"github.com/endink/go-twopc/server"
	"github.com/endink/go-twopc/transaction"
	"github.com/spf13/cobra"
)

const coordinatorLogOwner = "coordinator"

func newCoordinatorCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "coordinator",
		Short: "Coordinator commands.",
	}
	cmd.AddCommand(newCoordinatorRecoverCmd())
	return cmd
}

func remoteParticipants(cfg *config.Config) ([]transaction.TransactionParticipant, error) {
	endpoints, err := cfg.Coordinator.Endpoints()
	if err != nil {
		return nil, err
	}
	if len(endpoints) == 0 {
		return nil, fmt.Errorf("coordinator.participants is empty")
	}
	participants := make([]transaction.TransactionParticipant, 0, len(endpoints))
	for _, e := range endpoints {
		participants = append(participants, server.NewRemoteParticipant(e.ID, e.URL, server.WithTimeout(cfg.Coordinator.RequestTimeout)))
	}
	return participants, nil
}

func newCoordinatorRecoverCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "recover",
		Short: "Finishes the transactions left in the coordinator log, then exits unless --watch is given.",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			cfg, err := loadConfig(cmd.Flags())
			if err != nil {
				return err
			}
			participants, err := remoteParticipants(cfg)
			if err != nil {
				return err
			}

			ctx, cancel := signalContext()
			defer cancel()

			for _, p := range participants {
				if err := p.(*server.RemoteParticipant).Verify(ctx); err != nil {
					log.Warnf("Participant '%s' check failed: %v", p.ParticipantID(), err)
				}
			}

			txLog, err := transaction.NewFileLog(cfg.Node.LogRoot, coordinatorLogOwner)
			if err != nil {
				return err
			}
			coordinator, err := transaction.NewCoordinator(nodeConfig(cfg, txLog), participants)
			if err != nil {
				return err
			}
			defer coordinator.Close(context.Background())

			if err := coordinator.RecoverTransactionsFromTransactionLog(ctx); err != nil {
				log.Warnf("Recovery finished with errors: %v", err)
			}
			coordinator.FinishFailedOrAbandonedTransactions(ctx)

			if watch, _ := cmd.Flags().GetBool("watch"); watch {
				coordinator.StartWatchdog(cfg.Node.SweepInterval)
				<-ctx.Done()
			}

			left := coordinator.Transactions()
			for _, info := range left {
				cmd.Printf("%s\t%s\t%v\n", info.ID, info.Status, info.ParticipantIDs)
			}
			if len(left) > 0 {
				return fmt.Errorf("%d transactions are still unfinished", len(left))
			}
			return nil
		},
	}
	addConfigFlags(cmd.Flags())
	cmd.Flags().Bool("watch", false, "keep finishing failed or abandoned transactions every node.sweep_interval until interrupted")
	return cmd
}
