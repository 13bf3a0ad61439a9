package config

import (
	"fmt"
	"os"
	"strconv"
	"strings"

	"gopkg.in/yaml.v3"

	"github.com/deusflow/newspulse/internal/logger"
)

// ScheduleEntry is one (source, category) publishing slot with its
// times-of-day (24h, UTC).
type ScheduleEntry struct {
	Source   string
	Category string
	Times    []TimeOfDay
}

type TimeOfDay struct {
	Hour   int
	Minute int
}

func (t TimeOfDay) String() string {
	return fmt.Sprintf("%02d:%02d", t.Hour, t.Minute)
}

// scheduleFile is the YAML config structure
// schedule:
//   - source: decrypt
//     category: gaming
//     times: ["09:00", "18:30"]
type scheduleFile struct {
	Schedule []scheduleEntryYAML `yaml:"schedule"`
}

type scheduleEntryYAML struct {
	Source   string   `yaml:"source"`
	Category string   `yaml:"category"`
	Times    []string `yaml:"times"`
}

// LoadSchedule reads the publishing schedule from a YAML file. Entries with
// invalid time strings or missing fields are skipped with a logged error;
// the rest of the schedule still loads.
func LoadSchedule(path string) ([]ScheduleEntry, error) {
	f, err := os.Open(path)
	if err != nil {
		return nil, err
	}
	defer f.Close()

	var file scheduleFile
	dec := yaml.NewDecoder(f)
	if err := dec.Decode(&file); err != nil {
		return nil, fmt.Errorf("failed to parse schedule config: %w", err)
	}

	var entries []ScheduleEntry
	for i, raw := range file.Schedule {
		if raw.Source == "" || raw.Category == "" {
			logger.Error("schedule entry missing source or category, skipping", "index", i)
			continue
		}
		var times []TimeOfDay
		for _, ts := range raw.Times {
			t, err := ParseTimeOfDay(ts)
			if err != nil {
				logger.Error("invalid schedule time, skipping", "source", raw.Source, "category", raw.Category, "time", ts, "error", err)
				continue
			}
			times = append(times, t)
		}
		if len(times) == 0 {
			logger.Error("schedule entry has no valid times, skipping", "source", raw.Source, "category", raw.Category)
			continue
		}
		entries = append(entries, ScheduleEntry{
			Source:   raw.Source,
			Category: strings.ToLower(raw.Category),
			Times:    times,
		})
	}
	return entries, nil
}

// ParseTimeOfDay parses "HH:MM" (24-hour).
func ParseTimeOfDay(s string) (TimeOfDay, error) {
	parts := strings.Split(strings.TrimSpace(s), ":")
	if len(parts) != 2 {
		return TimeOfDay{}, fmt.Errorf("time %q is not in HH:MM form", s)
	}
	hour, err := strconv.Atoi(parts[0])
	if err != nil {
		return TimeOfDay{}, fmt.Errorf("bad hour in %q: %w", s, err)
	}
	minute, err := strconv.Atoi(parts[1])
	if err != nil {
		return TimeOfDay{}, fmt.Errorf("bad minute in %q: %w", s, err)
	}
	if hour < 0 || hour > 23 || minute < 0 || minute > 59 {
		return TimeOfDay{}, fmt.Errorf("time %q out of range", s)
	}
	return TimeOfDay{Hour: hour, Minute: minute}, nil
}
