// Package config loads scoreboard's configuration.
//
// Configuration comes from three layers, later ones winning:
//
//  1. built-in defaults (GetDefaultConfig)
//  2. config.yaml in the configuration directory, ~/.config/scoreboard by
//     default or the directory given with --config-path
//  3. SCOREBOARD_* environment variables, e.g. SCOREBOARD_CLIENT_ID
//
// A missing config.yaml is not an error. LoadConfig does not validate;
// call Config.Validate once the final values are known.
//
// # Example config.yaml
//
//	oauth:
//	  clientId: u-s4t2ud-0123
//	  redirectUri: http://localhost:3000/oauth/callback
//	  refresh: true
//	api:
//	  requestTimeout: 90s
//	storage:
//	  backend: sqlite
//	logging:
//	  level: debug
//
// The client secret is never defaulted. Prefer SCOREBOARD_CLIENT_SECRET
// over writing it to the file.
package config
