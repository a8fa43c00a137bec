// Package config handles configuration loading for the ember session core.
//
// # Overview
//
// Configuration is loaded from a YAML file with environment variable
// expansion. Fields left unset fall back to Default values, so a config
// file is optional.
//
// # Environment Variable Expansion
//
// Configuration values can reference environment variables:
//
//	history:
//	  path: "${EMBER_HISTORY_DB}"
//
// Syntax: ${VAR_NAME}
//
// # Duration Parsing
//
// Duration values use Go's time.ParseDuration syntax:
//
//	session:
//	  throttle_window: "50ms"
//
// # Configuration Sections
//
// Session tuning:
//
//	session:
//	  throttle_window: "50ms"  # chunk flush window
//	  history_limit: 100       # in-memory messages kept per conversation
//	  queue_capacity: 256      # per-conversation event queue buffer
//
// Durable history (empty path disables it):
//
//	history:
//	  path: "~/.local/share/ember/history.db"
//
// Logging:
//
//	logging:
//	  level: "info"   # debug, info, warn, error
//	  format: "text"  # text, json
package config
