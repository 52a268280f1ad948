// Package defaults ships the class-level defaults used when a user first
// touches the DPP surface without any stored configuration.
package defaults

import (
	_ "embed"
	"fmt"
	"sync"

	"gopkg.in/yaml.v3"
)

//go:embed defaults.yaml
var rawDefaults []byte

type ClassDefaults struct {
	ClassSubjects        map[string][]string `yaml:"class_subjects"`
	DailyLimit           int                 `yaml:"daily_limit"`
	Difficulty           []string            `yaml:"difficulty"`
	QuestionTypes        []string            `yaml:"question_types"`
	NotificationsEnabled bool                `yaml:"notifications_enabled"`
}

var (
	loadOnce sync.Once
	loaded   *ClassDefaults
	loadErr  error
)

// Load parses the embedded defaults once and returns the shared copy.
func Load() (*ClassDefaults, error) {
	loadOnce.Do(func() {
		var d ClassDefaults
		if err := yaml.Unmarshal(rawDefaults, &d); err != nil {
			loadErr = fmt.Errorf("parse embedded defaults: %w", err)
			return
		}
		if d.DailyLimit <= 0 {
			d.DailyLimit = 5
		}
		loaded = &d
	})
	return loaded, loadErr
}

// SubjectsForClass returns the default subject names for a class level.
// Unknown classes fall back to the class-10 mix so brand-new class levels
// still get a usable config.
func (d *ClassDefaults) SubjectsForClass(classLevel string) []string {
	if names, ok := d.ClassSubjects[classLevel]; ok {
		return names
	}
	return d.ClassSubjects["10"]
}
