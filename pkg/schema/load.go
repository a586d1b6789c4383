package schema

import (
	"fmt"
	"strings"

	"github.com/spf13/viper"
)

// Load reads and validates a plugin definition file. The format (json or
// yaml) is inferred from the file extension.
func Load(path string) (*Plugin, error) {
	v := viper.New()
	v.SetConfigFile(path)

	if err := v.ReadInConfig(); err != nil {
		return nil, fmt.Errorf("reading plugin definition %s: %w", path, err)
	}

	var plugin Plugin
	if err := v.Unmarshal(&plugin); err != nil {
		return nil, fmt.Errorf("decoding plugin definition %s: %w", path, err)
	}

	// viper lower-cases nested map keys while decoding, but display map
	// lookups compare against upper-hex renderings of card bytes. Restore
	// the canonical form so keys like "0F" keep matching.
	canonicalizeDisplayMaps(&plugin)

	if err := plugin.Validate(); err != nil {
		return nil, fmt.Errorf("invalid plugin definition %s: %w", path, err)
	}

	return &plugin, nil
}

func canonicalizeDisplayMaps(p *Plugin) {
	if p.ManagementUI == nil {
		return
	}
	for i := range p.ManagementUI.StateReaders {
		rule := &p.ManagementUI.StateReaders[i].Parse
		if len(rule.DisplayMap) == 0 {
			continue
		}
		canon := make(map[string]string, len(rule.DisplayMap))
		for k, v := range rule.DisplayMap {
			canon[strings.ToUpper(k)] = v
		}
		rule.DisplayMap = canon
	}
}
