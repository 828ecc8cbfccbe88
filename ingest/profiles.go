package ingest

import (
	"bytes"
	"fmt"
	"io"

	"gopkg.in/yaml.v3"

	"github.com/liamcoop/shiftrules/rules"
)

// profileFile is the document form with a top-level profiles key
type profileFile struct {
	Profiles []rules.EmployeeProfile `yaml:"profiles"`
}

// ReadProfiles decodes employee profiles from YAML or JSON. The document is
// either a list of profiles or a mapping with a profiles key. Omitted
// thresholds stay nil.
func ReadProfiles(r io.Reader) ([]rules.EmployeeProfile, error) {
	data, err := io.ReadAll(r)
	if err != nil {
		return nil, fmt.Errorf("failed to read profiles: %w", err)
	}
	if len(bytes.TrimSpace(data)) == 0 {
		return nil, nil
	}

	var node yaml.Node
	if err := yaml.Unmarshal(data, &node); err != nil {
		return nil, fmt.Errorf("invalid profiles document: %w", err)
	}

	var list []rules.EmployeeProfile
	root := &node
	if root.Kind == yaml.DocumentNode && len(root.Content) > 0 {
		root = root.Content[0]
	}

	switch root.Kind {
	case yaml.SequenceNode:
		if err := root.Decode(&list); err != nil {
			return nil, fmt.Errorf("invalid profiles document: %w", err)
		}
	case yaml.MappingNode:
		var doc profileFile
		if err := root.Decode(&doc); err != nil {
			return nil, fmt.Errorf("invalid profiles document: %w", err)
		}
		list = doc.Profiles
	default:
		return nil, fmt.Errorf("invalid profiles document: expected a list or a profiles mapping")
	}

	seen := make(map[int]bool, len(list))
	for i, p := range list {
		if p.EmployeeID <= 0 {
			return nil, fmt.Errorf("profile %d: employeeId must be positive, got %d", i+1, p.EmployeeID)
		}
		if seen[p.EmployeeID] {
			return nil, fmt.Errorf("profile %d: duplicate employeeId %d", i+1, p.EmployeeID)
		}
		seen[p.EmployeeID] = true
	}

	return list, nil
}

// ProfileMap indexes profiles by employee id, the form the validator consumes
func ProfileMap(list []rules.EmployeeProfile) map[int]rules.EmployeeProfile {
	m := make(map[int]rules.EmployeeProfile, len(list))
	for _, p := range list {
		m[p.EmployeeID] = p
	}
	return m
}
