// Copyright (c) 2024-2025 Jesse Morgan / Morgan Forge
// SPDX-License-Identifier: AGPL-3.0-or-later

// Package config provides configuration loading and management for chatdeck.
//
// # Key Types
//
//   - Config: Main configuration structure with all settings
//   - BackendConfig: chat backend URL, timeout, rate limit, headers
//   - ExportConfig: deck format, output location, chunk size
//   - ValidateErrors: every out-of-range field found by Validate
//
// # Configuration Precedence
//
// Configuration is loaded from (in order of precedence):
//   - Command-line flags (applied by the cli package)
//   - Environment variables (CHATDECK_*)
//   - ~/.chatdeck/config.toml
//   - ~/.chatdeck/config.json
//   - Built-in defaults
//
// # Usage
//
//	cfg, err := config.Load()
//	if err != nil {
//	    log.Fatal(err)
//	}
//	fmt.Println(cfg.Backend.URL)
//
// Reload on edit:
//
//	err := config.Watch(ctx, func(cfg *config.Config, err error) { ... })
package config
