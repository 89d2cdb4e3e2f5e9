// Copyright (C) 2025 sage-x-project
//
// This program is free software: you can redistribute it and/or modify
// it under the terms of the GNU Lesser General Public License as
// published by the Free Software Foundation, either version 3 of the
// License, or (at your option) any later version.
//
// This program is distributed in the hope that it will be useful,
// but WITHOUT ANY WARRANTY; without even the implied warranty of
// MERCHANTABILITY or FITNESS FOR A PARTICULAR PURPOSE. See the
// GNU Lesser General Public License for more details.
//
// You should have received a copy of the GNU Lesser General Public License
// along with this program. If not, see <https://www.gnu.org/licenses/>.

// SPDX-License-Identifier: LGPL-3.0-or-later

// Package config loads the relay server's static configuration: listen
// address, optional TLS, invite-token policy, and the ambient
// logging/metrics/health settings.
package config

import "time"

// Config is the relay server's configuration tree.
type Config struct {
	Environment string        `yaml:"environment" json:"environment"`
	Server      ServerConfig  `yaml:"server" json:"server"`
	Invite      InviteConfig  `yaml:"invite" json:"invite"`
	Logging     LoggingConfig `yaml:"logging" json:"logging"`
	Metrics     MetricsConfig `yaml:"metrics" json:"metrics"`
	Health      HealthConfig  `yaml:"health" json:"health"`
}

// ServerConfig controls the WebSocket listener.
type ServerConfig struct {
	Host              string        `yaml:"host" json:"host"` // "local" or "public"
	Port              int           `yaml:"port" json:"port"`
	TLSCertFile       string        `yaml:"tls_cert_file,omitempty" json:"tls_cert_file,omitempty"`
	TLSKeyFile        string        `yaml:"tls_key_file,omitempty" json:"tls_key_file,omitempty"`
	RegistrationTimeout time.Duration `yaml:"registration_timeout" json:"registration_timeout"`
	ValidationTimeout   time.Duration `yaml:"validation_timeout" json:"validation_timeout"`
	MaxRegisterAttempts int           `yaml:"max_register_attempts" json:"max_register_attempts"`
}

// InviteConfig controls invite-token authentication (spec §6).
type InviteConfig struct {
	Enabled    bool     `yaml:"enabled" json:"enabled"`
	Bind       []string `yaml:"bind,omitempty" json:"bind,omitempty"`
	TokenCount int      `yaml:"token_count" json:"token_count"`
	NoExpiry   bool     `yaml:"no_expiry" json:"no_expiry"`
	Expiry     time.Duration `yaml:"expiry" json:"expiry"`
}

// LoggingConfig controls internal/logger's default logger construction.
type LoggingConfig struct {
	Level  string `yaml:"level" json:"level"`
	Format string `yaml:"format" json:"format"` // json, pretty
	Output string `yaml:"output" json:"output"` // stdout, stderr, file path
}

// MetricsConfig controls the optional Prometheus HTTP endpoint.
type MetricsConfig struct {
	Enabled bool   `yaml:"enabled" json:"enabled"`
	Addr    string `yaml:"addr" json:"addr"`
	Path    string `yaml:"path" json:"path"`
}

// HealthConfig controls the optional /healthz endpoint.
type HealthConfig struct {
	Enabled bool   `yaml:"enabled" json:"enabled"`
	Addr    string `yaml:"addr" json:"addr"`
	Path    string `yaml:"path" json:"path"`
}
