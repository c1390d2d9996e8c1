// Command presets validates the board preset JSON files of the memo game.
// It checks:
//   - JSON structure and unknown fields
//   - Name, pair count and solo time limit (the same rules the server applies)
//   - Duplicate preset names across files
//   - Presence of the default preset
//
// For valid files it also prints the board size and the solo pace in seconds
// per pair, warning about presets that leave less than two seconds per card.
package main

import (
	"bytes"
	"encoding/json"
	"flag"
	"fmt"
	"os"
	"path/filepath"
	"strings"

	"github.com/wricardo/memo-game/game/config"
)

// minSecondsPerCard is the pace below which a solo game is flagged as unfair
const minSecondsPerCard = 2.0

// ValidationResult captures the outcome of validating a single file.
// If Valid is true, Messages contains informational lines; otherwise it
// accumulates the validation errors that were found.
type ValidationResult struct {
	File     string
	Valid    bool
	Preset   *config.Preset
	Messages []string
}

// validatePreset loads and validates a single preset file
func validatePreset(filePath string) ValidationResult {
	result := ValidationResult{
		File:     filepath.Base(filePath),
		Valid:    true,
		Messages: []string{},
	}

	data, err := os.ReadFile(filePath)
	if err != nil {
		result.Valid = false
		result.Messages = append(result.Messages, fmt.Sprintf("Failed to read file: %v", err))
		return result
	}

	var preset config.Preset
	decoder := json.NewDecoder(bytes.NewReader(data))
	decoder.DisallowUnknownFields()
	if err := decoder.Decode(&preset); err != nil {
		result.Valid = false
		result.Messages = append(result.Messages, fmt.Sprintf("Invalid JSON: %v", err))
		return result
	}

	if err := config.ValidatePreset(&preset); err != nil {
		result.Valid = false
		result.Messages = append(result.Messages, err.Error())
		return result
	}

	result.Preset = &preset
	result.Messages = append(result.Messages, analyzePreset(&preset)...)
	return result
}

// analyzePreset describes board size and solo pace
func analyzePreset(p *config.Preset) []string {
	cards := p.Pairs * 2
	perPair := float64(p.TimeLimitSeconds) / float64(p.Pairs)

	lines := []string{
		fmt.Sprintf("✓ %d pairs, %d cards", p.Pairs, cards),
		fmt.Sprintf("✓ Solo: %ds, %.1fs per pair", p.TimeLimitSeconds, perPair),
	}
	if perPair/2 < minSecondsPerCard {
		lines = append(lines, fmt.Sprintf("Warning: less than %.0fs per card in solo games", minSecondsPerCard))
	}
	return lines
}

// validateDir validates every preset in dir and the set as a whole
func validateDir(dir string) ([]ValidationResult, []string, error) {
	files, err := filepath.Glob(filepath.Join(dir, "*.json"))
	if err != nil {
		return nil, nil, fmt.Errorf("error finding preset files: %w", err)
	}
	if len(files) == 0 {
		return nil, nil, fmt.Errorf("no preset files in %s", dir)
	}

	results := make([]ValidationResult, 0, len(files))
	names := make(map[string]string)
	var problems []string
	hasDefault := false

	for _, file := range files {
		result := validatePreset(file)
		results = append(results, result)
		if !result.Valid {
			continue
		}

		if strings.TrimSuffix(result.File, ".json") == config.DefaultPresetID {
			hasDefault = true
		}
		key := strings.ToLower(strings.TrimSpace(result.Preset.Name))
		if other, ok := names[key]; ok {
			problems = append(problems, fmt.Sprintf("Duplicate preset name %q in %s and %s", result.Preset.Name, other, result.File))
		}
		names[key] = result.File
	}

	if !hasDefault {
		problems = append(problems, fmt.Sprintf("Default preset %s.json is missing or invalid, the server falls back to a built-in preset", config.DefaultPresetID))
	}

	return results, problems, nil
}

func main() {
	dir := flag.String("dir", "configs", "Directory containing preset JSON files")
	flag.Parse()

	results, problems, err := validateDir(*dir)
	if err != nil {
		fmt.Println(err)
		os.Exit(1)
	}

	allValid := true
	for _, result := range results {
		fmt.Printf("\n%s %s\n", strings.Repeat("=", 20), result.File)

		if result.Valid {
			fmt.Println("✅ VALID")
			for _, info := range result.Messages {
				fmt.Println("  " + info)
			}
		} else {
			fmt.Println("❌ INVALID")
			allValid = false
			for _, msg := range result.Messages {
				fmt.Println("  ❌ " + msg)
			}
		}
	}

	if len(problems) > 0 {
		fmt.Printf("\n%s\n", strings.Repeat("=", 40))
		for _, p := range problems {
			fmt.Println("⚠️  " + p)
		}
	}

	fmt.Printf("\n%s\n", strings.Repeat("=", 40))
	if allValid {
		fmt.Println("✅ All presets are valid!")
	} else {
		fmt.Println("❌ Some presets have errors")
		os.Exit(1)
	}
}
