// Copyright (C) 2025 Aleutian AI (jinterlante@aleutian.ai)
// This program is free software: you can redistribute it and/or modify
// it under the terms of the GNU Affero General Public License as published by
// the Free Software Foundation, either version 3 of the License, or
// (at your option) any later version.
// See the LICENSE.txt file for the full license text.
//
// NOTE: This work is subject to additional terms under AGPL v3 Section 7.
// See the NOTICE.txt file for details regarding AI system attribution.

package config

import (
	"errors"
	"fmt"
	"time"

	"github.com/go-playground/validator/v10"

	"github.com/AleutianAI/reactivearray/pkg/logging"
	"github.com/AleutianAI/reactivearray/pkg/reactivearray"
	"github.com/AleutianAI/reactivearray/pkg/telemetry"
	"github.com/AleutianAI/reactivearray/services/opstream"
)

// Config is the on-disk configuration of the reactivearray binary.
type Config struct {
	Server    ServerConfig     `yaml:"server"`
	Logging   LoggingConfig    `yaml:"logging"`
	Telemetry telemetry.Config `yaml:"telemetry"`
	Stream    opstream.Config  `yaml:"stream"`

	// JournalSize is the per-array journal capacity.
	JournalSize int `yaml:"journal_size" validate:"gte=0"`

	// Arrays are created when the server starts.
	Arrays []ArrayConfig `yaml:"arrays" validate:"dive"`
}

// ServerConfig configures the HTTP listener.
type ServerConfig struct {
	Listen          string        `yaml:"listen" validate:"required"`
	MetricsPath     string        `yaml:"metrics_path" validate:"startswith=/"`
	ShutdownTimeout time.Duration `yaml:"shutdown_timeout" validate:"gt=0"`
}

// LoggingConfig maps onto logging.Config.
type LoggingConfig struct {
	Level string `yaml:"level" validate:"loglevel"`
	JSON  bool   `yaml:"json"`
	Dir   string `yaml:"dir"`
}

// ArrayConfig declares an array served at startup.
type ArrayConfig struct {
	Name         string `yaml:"name" validate:"required"`
	InsertPolicy string `yaml:"insert_policy" validate:"insertpolicy"`
	Seed         []any  `yaml:"seed,omitempty"`
}

// DefaultConfig returns the configuration written on first run.
func DefaultConfig() Config {
	return Config{
		Server: ServerConfig{
			Listen:          "127.0.0.1:12300",
			MetricsPath:     "/metrics",
			ShutdownTimeout: 10 * time.Second,
		},
		Logging: LoggingConfig{
			Level: "info",
		},
		Telemetry:   telemetry.DefaultConfig(),
		Stream:      opstream.DefaultConfig(),
		JournalSize: opstream.DefaultJournalSize,
		Arrays: []ArrayConfig{
			{Name: "default", InsertPolicy: reactivearray.InsertReplaces.String()},
		},
	}
}

// LoggerConfig converts the logging section. The level must already have
// passed Validate.
func (c Config) LoggerConfig(service string) logging.Config {
	level, _ := logging.ParseLevel(c.Logging.Level)
	return logging.Config{
		Level:   level,
		JSON:    c.Logging.JSON,
		LogDir:  c.Logging.Dir,
		Service: service,
	}
}

// Validate reports every problem in the configuration.
func (c Config) Validate() error {
	var errs []error
	if err := configValidate.Struct(c); err != nil {
		var fieldErrs validator.ValidationErrors
		if !errors.As(err, &fieldErrs) {
			return err
		}
		for _, fe := range fieldErrs {
			errs = append(errs, fmt.Errorf("%s: failed %q check (value %v)", fe.Namespace(), fe.Tag(), fe.Value()))
		}
	}

	seen := make(map[string]bool, len(c.Arrays))
	for i, arr := range c.Arrays {
		if arr.Name != "" && seen[arr.Name] {
			errs = append(errs, fmt.Errorf("Config.Arrays[%d]: duplicate name %q", i, arr.Name))
		}
		seen[arr.Name] = true
	}
	return errors.Join(errs...)
}

var configValidate = newValidator()

func newValidator() *validator.Validate {
	v := validator.New()
	_ = v.RegisterValidation("loglevel", func(fl validator.FieldLevel) bool {
		_, err := logging.ParseLevel(fl.Field().String())
		return err == nil
	})
	_ = v.RegisterValidation("insertpolicy", func(fl validator.FieldLevel) bool {
		_, err := reactivearray.ParseInsertPolicy(fl.Field().String())
		return err == nil
	})
	return v
}
