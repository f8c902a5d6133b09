package config

import (
	"fmt"
	"os"
	"path/filepath"

	"gopkg.in/yaml.v3"

	"github.com/dramaspikes/gpsAlarmApp/module/core/domain"
)

type seedFile struct {
	Alarms []seedAlarm `yaml:"alarms"`
}

type seedAlarm struct {
	Name         string  `yaml:"name"`
	Latitude     float64 `yaml:"latitude"`
	Longitude    float64 `yaml:"longitude"`
	RadiusMeters float64 `yaml:"radius_meters"`
}

// LoadSeedAlarms reads the alarms to create on a fresh database. An empty path
// means no seeds.
func LoadSeedAlarms(path string) ([]domain.AlarmInput, error) {
	if path == "" {
		return nil, nil
	}

	contents, err := os.ReadFile(filepath.Clean(path))
	if err != nil {
		return nil, fmt.Errorf("read seed file: %w", err)
	}

	var f seedFile
	if err := yaml.Unmarshal(contents, &f); err != nil {
		return nil, fmt.Errorf("unmarshal seed file: %w", err)
	}

	seeds := make([]domain.AlarmInput, 0, len(f.Alarms))
	for _, a := range f.Alarms {
		seeds = append(seeds, domain.AlarmInput{
			Name:         a.Name,
			Center:       domain.Coordinate{Lat: a.Latitude, Lon: a.Longitude},
			RadiusMeters: a.RadiusMeters,
		})
	}
	return seeds, nil
}
