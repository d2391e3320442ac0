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
	"fmt"
	"os"
	"sync"

	"go.uber.org/zap"
	"go.uber.org/zap/zapcore"
)

// StandardLogger is the subset of *zap.SugaredLogger the rest of the code depends on.
type StandardLogger interface {
	Debug(args ...interface{})
	Info(args ...interface{})
	Warn(args ...interface{})
	Error(args ...interface{})
	Panic(args ...interface{})
	Fatal(args ...interface{})
	Debugf(template string, args ...interface{})
	Infof(template string, args ...interface{})
	Warnf(template string, args ...interface{})
	Errorf(template string, args ...interface{})
	Panicf(template string, args ...interface{})
	Fatalf(template string, args ...interface{})
}

var loggerMutex sync.RWMutex // guards access to global logger state

// loggers is the set of loggers in the system
var loggers = make(map[string]*zap.SugaredLogger)

var levels = make(map[string]zap.AtomicLevel)
var defaultLevel = zapcore.InfoLevel
var output = zapcore.AddSync(os.Stdout)

var logCore = &switchableCore{current: newCore(ColorizedOutput, output, zapcore.DebugLevel)}

var DefaultLogger = GetLogger("twopc")

func GetLogger(name string) *zap.SugaredLogger {
	loggerMutex.Lock()
	defer loggerMutex.Unlock()
	log, ok := loggers[name]
	if !ok {
		levels[name] = zap.NewAtomicLevelAt(defaultLevel)

		log = zap.New(logCore, zap.AddCaller()).
			WithOptions(zap.IncreaseLevel(levels[name])).
			Named(name).
			Sugar()

		loggers[name] = log
	}

	return log
}

// SetLevel changes the level of one named logger, or of every logger when name is "*".
// Loggers created afterwards start at the new level only when name is "*".
func SetLevel(name string, level string) error {
	var lvl zapcore.Level
	if err := lvl.UnmarshalText([]byte(level)); err != nil {
		return fmt.Errorf("invalid log level '%s'", level)
	}

	loggerMutex.Lock()
	defer loggerMutex.Unlock()
	if name == "*" {
		defaultLevel = lvl
		for _, l := range levels {
			l.SetLevel(lvl)
		}
		return nil
	}
	l, ok := levels[name]
	if !ok {
		return fmt.Errorf("logger '%s' does not exist", name)
	}
	l.SetLevel(lvl)
	return nil
}

// GetLevel returns the current level of a named logger.
func GetLevel(name string) (zapcore.Level, bool) {
	loggerMutex.RLock()
	defer loggerMutex.RUnlock()
	l, ok := levels[name]
	if !ok {
		return defaultLevel, false
	}
	return l.Level(), true
}

func newCore(format LogFormat, ws zapcore.WriteSyncer, level zapcore.LevelEnabler) zapcore.Core {
	encCfg := zap.NewProductionEncoderConfig()
	encCfg.EncodeTime = zapcore.ISO8601TimeEncoder

	var encoder zapcore.Encoder
	switch format {
	case JSONOutput:
		encoder = zapcore.NewJSONEncoder(encCfg)
	case PlaintextOutput:
		encCfg.EncodeLevel = zapcore.CapitalLevelEncoder
		encoder = zapcore.NewConsoleEncoder(encCfg)
	default:
		encCfg.EncodeLevel = zapcore.CapitalColorLevelEncoder
		encoder = zapcore.NewConsoleEncoder(encCfg)
	}
	return zapcore.NewCore(encoder, ws, level)
}

// switchableCore lets Configure replace encoder and sink under loggers that were
// already handed out through package level variables.
type switchableCore struct {
	mu      sync.RWMutex
	current zapcore.Core
}

func (c *switchableCore) get() zapcore.Core {
	c.mu.RLock()
	defer c.mu.RUnlock()
	return c.current
}

func (c *switchableCore) set(core zapcore.Core) zapcore.Core {
	c.mu.Lock()
	defer c.mu.Unlock()
	old := c.current
	c.current = core
	return old
}

func (c *switchableCore) Enabled(lvl zapcore.Level) bool {
	return c.get().Enabled(lvl)
}

func (c *switchableCore) With(fields []zapcore.Field) zapcore.Core {
	return c.get().With(fields)
}

func (c *switchableCore) Check(ent zapcore.Entry, ce *zapcore.CheckedEntry) *zapcore.CheckedEntry {
	return c.get().Check(ent, ce)
}

func (c *switchableCore) Write(ent zapcore.Entry, fields []zapcore.Field) error {
	return c.get().Write(ent, fields)
}

func (c *switchableCore) Sync() error {
	return c.get().Sync()
}
