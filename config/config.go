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
package config

import (
	"fmt"
	"strings"
	"time"

	"github.com/endink/go-twopc/logging"
	"gopkg.in/ini.v1"
)

const (
	BackendBadger = "badger"
	BackendSqlite = "sqlite"
)

// Node holds the settings shared by coordinators and participants.
type Node struct {
	TransactionTimeout    time.Duration `ini:"transaction_timeout"`
	TransactionCountLimit int           `ini:"transaction_count_limit"`
	SweepInterval         time.Duration `ini:"sweep_interval"`
	InteractiveSessionKey string        `ini:"interactive_session_key"`
	CoordinatorKey        string        `ini:"coordinator_key"`
	LogRoot               string        `ini:"log_root"`
}

// Participant describes the local resource served by "twopc participant serve".
type Participant struct {
	ID       string `ini:"id"`
	Backend  string `ini:"backend"`
	DataPath string `ini:"data_path"`
	Listen   string `ini:"listen"`
	// Tokens accepted by the static session provider, admin tokens are also accepted.
	SessionTokens []string `ini:"session_tokens" delim:","`
	AdminTokens   []string `ini:"admin_tokens" delim:","`
}

// Coordinator lists remote participants as "id=url" pairs, in commit order.
type Coordinator struct {
	Participants   []string      `ini:"participants" delim:","`
	RequestTimeout time.Duration `ini:"request_timeout"`
}

type Endpoint struct {
	ID  string
	URL string
}

type Config struct {
	Node        Node           `ini:"node"`
	Participant Participant    `ini:"participant"`
	Coordinator Coordinator    `ini:"coordinator"`
	Logging     logging.Config `ini:"logging"`
}

func DefaultConfig() *Config {
	return &Config{
		Node: Node{
			TransactionTimeout:    10 * time.Minute,
			TransactionCountLimit: 100,
			SweepInterval:         time.Minute,
			LogRoot:               "./data/transaction-log",
		},
		Participant: Participant{
			ID:       "kv",
			Backend:  BackendBadger,
			DataPath: "./data/kv",
			Listen:   "127.0.0.1:8765",
		},
		Coordinator: Coordinator{
			RequestTimeout: 30 * time.Second,
		},
		Logging: logging.DefaultConfig(),
	}
}

// ParseConfigFromFile loads an ini file on top of DefaultConfig.
func ParseConfigFromFile(cfgFile string) (*Config, error) {
	f, err := ini.Load(cfgFile)
	if err != nil {
		return nil, err
	}
	return parse(f)
}

// ParseConfig loads ini content on top of DefaultConfig.
func ParseConfig(content []byte) (*Config, error) {
	f, err := ini.Load(content)
	if err != nil {
		return nil, err
	}
	return parse(f)
}

func parse(f *ini.File) (*Config, error) {
	c := DefaultConfig()
	if err := f.MapTo(c); err != nil {
		return nil, err
	}
	return c, c.Verify()
}

// Verify checks the settings every node needs.
func (c *Config) Verify() error {
	if c.Node.TransactionTimeout <= 0 {
		return fmt.Errorf("node.transaction_timeout must be positive, got '%s'", c.Node.TransactionTimeout)
	}
	if c.Node.TransactionCountLimit <= 0 {
		return fmt.Errorf("node.transaction_count_limit must be positive, got %d", c.Node.TransactionCountLimit)
	}
	if c.Node.SweepInterval <= 0 {
		return fmt.Errorf("node.sweep_interval must be positive, got '%s'", c.Node.SweepInterval)
	}
	if strings.TrimSpace(c.Node.LogRoot) == "" {
		return fmt.Errorf("node.log_root cannot be empty")
	}
	switch c.Participant.Backend {
	case BackendBadger, BackendSqlite:
	default:
		return fmt.Errorf("unknown participant backend '%s', expected '%s' or '%s'", c.Participant.Backend, BackendBadger, BackendSqlite)
	}
	_, err := c.Coordinator.Endpoints()
	return err
}

// Endpoints parses Participants keeping the configured order.
func (c *Coordinator) Endpoints() ([]Endpoint, error) {
	endpoints := make([]Endpoint, 0, len(c.Participants))
	seen := make(map[string]bool, len(c.Participants))
	for _, p := range c.Participants {
		p = strings.TrimSpace(p)
		if p == "" {
			continue
		}
		kv := strings.SplitN(p, "=", 2)
		if len(kv) != 2 || strings.TrimSpace(kv[0]) == "" || strings.TrimSpace(kv[1]) == "" {
			return nil, fmt.Errorf("invalid participant '%s', expected 'id=url'", p)
		}
		id := strings.TrimSpace(kv[0])
		if seen[id] {
			return nil, fmt.Errorf("duplicate participant id '%s'", id)
		}
		seen[id] = true
		endpoints = append(endpoints, Endpoint{ID: id, URL: strings.TrimSpace(kv[1])})
	}
	return endpoints, nil
}
