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
	"os"
	"os/signal"
	"syscall"

	"github.com/endink/go-twopc/config"
	"github.com/endink/go-twopc/logging"
	"github.com/endink/go-twopc/provider/session"
	"github.com/endink/go-twopc/transaction"
	"github.com/spf13/cobra"
	"github.com/spf13/pflag"
)

var log = logging.GetLogger("twopc")

func newRootCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:           "twopc",
		Short:         "Two-phase commit participants and coordinator.",
		SilenceUsage:  true,
		SilenceErrors: true,
	}
	cmd.AddCommand(newParticipantCmd())
	cmd.AddCommand(newCoordinatorCmd())
	cmd.AddCommand(newLogCmd())
	return cmd
}

func addConfigFlags(fs *pflag.FlagSet) {
	fs.StringP("config", "c", "", "ini config file, defaults to the first existing of "+
		"./twopc.ini and /etc/twopc/twopc.ini")
	fs.String("log-level", "", "overrides logging.level")
}

// loadConfig reads the config named by --config and applies its logging section.
func loadConfig(fs *pflag.FlagSet) (*config.Config, error) {
	file, err := fs.GetString("config")
	if err != nil {
		return nil, err
	}
	if file == "" {
		file = config.FindConfigFile()
	}

	var cfg *config.Config
	if file == "" {
		cfg = config.DefaultConfig()
	} else if cfg, err = config.ParseConfigFromFile(file); err != nil {
		return nil, err
	}

	if level, _ := fs.GetString("log-level"); level != "" {
		cfg.Logging.Level = level
	}
	if err := logging.Configure(cfg.Logging); err != nil {
		return nil, err
	}
	if file != "" {
		log.Infof("config loaded from %s", file)
	}
	return cfg, nil
}

func nodeConfig(cfg *config.Config, txLog transaction.Log) transaction.Config {
	return transaction.Config{
		CoordinatorKey:        cfg.Node.CoordinatorKey,
		InteractiveSessionKey: cfg.Node.InteractiveSessionKey,
		SessionTokenProvider:  session.NewStaticTokenProvider(cfg.Participant.SessionTokens, cfg.Participant.AdminTokens),
		Log:                   txLog,
		TransactionTimeout:    cfg.Node.TransactionTimeout,
		TransactionCountLimit: cfg.Node.TransactionCountLimit,
	}
}

// signalContext is cancelled on SIGINT, SIGTERM or SIGQUIT.
func signalContext() (context.Context, context.CancelFunc) {
	ctx, cancel := context.WithCancel(context.Background())
	sc := make(chan os.Signal, 1)
	signal.Notify(sc, syscall.SIGINT, syscall.SIGTERM, syscall.SIGQUIT)
	go func() {
		select {
		case sig := <-sc:
			log.Infof("Got signal [%s] to exit.", sig)
			cancel()
		case <-ctx.Done():
		}
		signal.Stop(sc)
	}()
	return ctx, cancel
}
