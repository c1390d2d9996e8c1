// Package config provides difficulty presets for the Memo pairs game.
//
// The config package handles:
//   - Loading presets from JSON files
//   - Preset validation
//   - Default preset selection
//   - Preset discovery and listing
//
// Preset Format:
//
// Presets are stored as JSON files in the configs directory. The file name
// without extension is the preset id. Each preset defines:
//   - a display name and description
//   - the number of pairs on the board
//   - the countdown used by single-player games
//
// Usage:
//
//	manager, err := config.NewManager("configs")
//	if err != nil {
//		log.Fatal(err)
//	}
//
//	preset, err := manager.LoadPreset("easy")
//	defaultPreset := manager.GetDefault()
//	presets, err := manager.ListPresets()
//
// When the directory holds no valid preset the manager falls back to a
// built-in eight pair preset.
package config
