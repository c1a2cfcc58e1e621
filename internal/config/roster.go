package config

import (
	"fmt"

	"github.com/spf13/viper"

	"github.com/clinicdesk/clinicdesk/internal/domain/scheduling"
)

// LoadRoster reads the doctor directory from a YAML or JSON file of the form
//
//	doctors:
//	  - id: dr-smith
//	    name: Sarah Smith
//	    department: Cardiology
//
// An empty path yields an empty roster, which accepts any doctor id.
func LoadRoster(path string) (*scheduling.Roster, error) {
	if path == "" {
		return scheduling.NewRoster(nil)
	}

	v := viper.New()
	v.SetConfigFile(path)
	if err := v.ReadInConfig(); err != nil {
		return nil, fmt.Errorf("read roster %s: %w", path, err)
	}

	var doctors []scheduling.Doctor
	if err := v.UnmarshalKey("doctors", &doctors); err != nil {
		return nil, fmt.Errorf("decode roster %s: %w", path, err)
	}
	roster, err := scheduling.NewRoster(doctors)
	if err != nil {
		return nil, fmt.Errorf("roster %s: %w", path, err)
	}
	return roster, nil
}
