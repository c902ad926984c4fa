// Package domain defines the canonical target schema an import maps into:
// the standard player fields plus an event's active drill definitions.
package domain

// StandardField is one canonical player attribute.
type StandardField struct {
	Key      string `json:"key"`
	Label    string `json:"label"`
	Required bool   `json:"required"`
}

// DrillDefinition describes one measurable drill for an event.
type DrillDefinition struct {
	Key           string  `json:"key"`
	Label         string  `json:"label"`
	Unit          string  `json:"unit"`
	LowerIsBetter bool    `json:"lower_is_better"`
	Min           float64 `json:"min"`
	Max           float64 `json:"max"`
}

// DrillPreset is a named bundle of drills organizers can activate in one step.
type DrillPreset struct {
	Name   string   `json:"name"`
	Sport  string   `json:"sport"`
	Drills []string `json:"drills"`
}

// TargetSchema is the full mapping target for one import session. It is
// fetched fresh at session start so custom drills added mid-flight are never
// stale.
type TargetSchema struct {
	StandardFields []StandardField   `json:"standard_fields"`
	Drills         []DrillDefinition `json:"drills"`
	Presets        []DrillPreset     `json:"presets"`
}

// RequiredFields returns the keys of all required standard fields.
func (s TargetSchema) RequiredFields() []string {
	var keys []string
	for _, f := range s.StandardFields {
		if f.Required {
			keys = append(keys, f.Key)
		}
	}
	return keys
}

// DrillByKey returns the drill definition for key, if active.
func (s TargetSchema) DrillByKey(key string) (DrillDefinition, bool) {
	for _, d := range s.Drills {
		if d.Key == key {
			return d, true
		}
	}
	return DrillDefinition{}, false
}

// IsStandardField reports whether key names a standard player field.
func (s TargetSchema) IsStandardField(key string) bool {
	for _, f := range s.StandardFields {
		if f.Key == key {
			return true
		}
	}
	return false
}

// IsTargetKey reports whether key is a valid mapping target: a standard field
// or an active drill.
func (s TargetSchema) IsTargetKey(key string) bool {
	if s.IsStandardField(key) {
		return true
	}
	_, ok := s.DrillByKey(key)
	return ok
}

// DefaultStandardFields is the canonical player field set. first_name and
// last_name are the only required fields; everything else is optional roster
// metadata.
func DefaultStandardFields() []StandardField {
	return []StandardField{
		{Key: "first_name", Label: "First Name", Required: true},
		{Key: "last_name", Label: "Last Name", Required: true},
		{Key: "jersey_number", Label: "Jersey #"},
		{Key: "position", Label: "Position"},
		{Key: "grad_year", Label: "Grad Year"},
		{Key: "email", Label: "Email"},
		{Key: "phone", Label: "Phone"},
		{Key: "birthdate", Label: "Birthdate"},
	}
}
