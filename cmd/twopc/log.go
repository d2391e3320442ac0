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
	"encoding/json"
	"fmt"
	"sort"
	"strings"
	"time"

	"github.com/endink/go-twopc/transaction"
	"github.com/spf13/cobra"
)

func newLogCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "log",
		Short: "Transaction log commands.",
	}
	cmd.AddCommand(newLogListCmd())
	return cmd
}

func newLogListCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "list OWNER",
		Short: "Prints the entries of the transaction log of OWNER, a participant id or 'coordinator'.",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			root, err := cmd.Flags().GetString("root")
			if err != nil {
				return err
			}
			if root == "" {
				cfg, err := loadConfig(cmd.Flags())
				if err != nil {
					return err
				}
				root = cfg.Node.LogRoot
			}
			asJSON, err := cmd.Flags().GetBool("json")
			if err != nil {
				return err
			}

			txLog, err := transaction.NewFileLog(root, args[0])
			if err != nil {
				return err
			}
			entries, err := txLog.GetTransactions()
			if err != nil {
				return err
			}
			list := make([]*transaction.LogEntry, 0, len(entries))
			for _, e := range entries {
				list = append(list, e)
			}
			sort.Slice(list, func(i, j int) bool {
				return list[i].LastAccessedDate.Before(list[j].LastAccessedDate)
			})

			if asJSON {
				b, err := json.MarshalIndent(list, "", "  ")
				if err != nil {
					return err
				}
				cmd.Println(string(b))
				return nil
			}
			for _, e := range list {
				phase := "1PC"
				if e.TwoPhaseTransaction {
					phase = "2PC"
				}
				cmd.Println(fmt.Sprintf("%s  %s  %-18s %s  [%s]", e.TransactionID, phase, e.TransactionStatus,
					e.LastAccessedDate.Format(time.RFC3339), strings.Join(e.ParticipantIDs, ", ")))
			}
			return nil
		},
	}
	addConfigFlags(cmd.Flags())
	cmd.Flags().String("root", "", "log root folder, overrides node.log_root")
	cmd.Flags().Bool("json", false, "print entries as JSON")
	return cmd
}
