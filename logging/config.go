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
package logging

import (
	"io"
	"os"
	"strings"

	"go.uber.org/zap/zapcore"
	"gopkg.in/natefinch/lumberjack.v2"
)

// Config selects level, encoding and sink of every logger.
type Config struct {
	Level      string `ini:"level"`
	Format     string `ini:"format"`
	OutputFile string `ini:"output_file"` // stdout, stderr or a file path
	MaxSizeMB  int    `ini:"max_size_mb"`
	MaxBackups int    `ini:"max_backups"`
	MaxAgeDays int    `ini:"max_age_days"`
	Compress   bool   `ini:"compress"`
}

func DefaultConfig() Config {
	return Config{
		Level:      "info",
		Format:     "color",
		OutputFile: "stdout",
		MaxSizeMB:  100,
		MaxBackups: 5,
		MaxAgeDays: 30,
	}
}

var fileSink io.Closer

// Configure swaps the shared core. Loggers obtained earlier keep working and follow the new settings.
func Configure(cfg Config) error {
	format, err := ParseLogFormat(cfg.Format)
	if err != nil {
		return err
	}

	if cfg.Level != "" {
		if err = SetLevel("*", cfg.Level); err != nil {
			return err
		}
	}

	var ws zapcore.WriteSyncer
	var closer io.Closer
	switch strings.ToLower(cfg.OutputFile) {
	case "", "stdout":
		ws = zapcore.AddSync(os.Stdout)
	case "stderr":
		ws = zapcore.AddSync(os.Stderr)
	default:
		if format == ColorizedOutput {
			format = PlaintextOutput
		}
		lj := &lumberjack.Logger{
			Filename:   cfg.OutputFile,
			MaxSize:    cfg.MaxSizeMB,
			MaxBackups: cfg.MaxBackups,
			MaxAge:     cfg.MaxAgeDays,
			Compress:   cfg.Compress,
		}
		ws = zapcore.AddSync(lj)
		closer = lj
	}

	old := logCore.set(newCore(format, ws, zapcore.DebugLevel))
	_ = old.Sync()

	loggerMutex.Lock()
	prev := fileSink
	fileSink = closer
	loggerMutex.Unlock()
	if prev != nil {
		_ = prev.Close()
	}
	return nil
}

// Sync flushes buffered entries of the shared core.
func Sync() error {
	return logCore.Sync()
}
