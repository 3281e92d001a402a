package models

// CodeOption is one member of a code set
type CodeOption struct {
	Value string `json:"value"`
	Label string `json:"label"`
}

// CodeSet maps raw vendor codes onto known values. Unknown raw values map to
// the Unknown member.
type CodeSet struct {
	options []CodeOption
	unknown string
	labels  map[string]string
}

// NewCodeSet builds a code set whose unknown member is the given value
func NewCodeSet(unknown string, options ...CodeOption) *CodeSet {
	cs := &CodeSet{options: options, unknown: unknown, labels: make(map[string]string, len(options))}
	for _, o := range options {
		cs.labels[o.Value] = o.Label
	}
	return cs
}

// FromRaw normalizes a raw code
func (c *CodeSet) FromRaw(raw *string) string {
	if raw != nil {
		if _, ok := c.labels[*raw]; ok {
			return *raw
		}
	}
	return c.unknown
}

// Label returns the display label of a value
func (c *CodeSet) Label(value string) string {
	if l, ok := c.labels[value]; ok {
		return l
	}
	return c.labels[c.unknown]
}

// Options lists the members in declaration order
func (c *CodeSet) Options() []CodeOption {
	return append([]CodeOption{}, c.options...)
}

// Fault code sets
var (
	FaultStatusCodes = NewCodeSet("U",
		CodeOption{"X", "Grounding"},
		CodeOption{"+", "Circle X"},
		CodeOption{"/", "Diagonal"},
		CodeOption{"-", "Dash"},
		CodeOption{"C", "Completed"},
		CodeOption{"U", "Unknown"},
	)

	MaintenanceLevelCodes = NewCodeSet("U",
		CodeOption{"C", "Crew"},
		CodeOption{"A", "AVUM"},
		CodeOption{"B", "AVIM"},
		CodeOption{"D", "Depot"},
		CodeOption{"U", "Unknown"},
	)

	SystemCodes = NewCodeSet("UNK",
		CodeOption{"AF", "Airframe"},
		CodeOption{"EN", "Engine"},
		CodeOption{"AV", "Avionics"},
		CodeOption{"WS", "Weapon System"},
		CodeOption{"ELE", "Electrical"},
		CodeOption{"UNK", "Unknown"},
	)

	WhenDiscoveredCodes = NewCodeSet("UNK",
		CodeOption{"BF", "Before Flight"},
		CodeOption{"DF", "During Flight"},
		CodeOption{"AF", "After Flight"},
		CodeOption{"PMD", "Preventive Maintenance Daily"},
		CodeOption{"INS", "Inspection"},
		CodeOption{"UNK", "Unknown"},
	)

	HowRecognizedCodes = NewCodeSet("UNK",
		CodeOption{"VIS", "Visual"},
		CodeOption{"IND", "Indicator"},
		CodeOption{"TST", "Test Equipment"},
		CodeOption{"NOI", "Noise"},
		CodeOption{"VIB", "Vibration"},
		CodeOption{"UNK", "Unknown"},
	)

	MalfunctionEffectCodes = NewCodeSet("UNK",
		CodeOption{"ABT", "Aborted Mission"},
		CodeOption{"PRE", "Precautionary Landing"},
		CodeOption{"FRL", "Forced Landing"},
		CodeOption{"NON", "No Effect"},
		CodeOption{"UNK", "Unknown"},
	)

	FailureCodes = NewCodeSet("UNK",
		CodeOption{"BRK", "Broken"},
		CodeOption{"COR", "Corroded"},
		CodeOption{"LEA", "Leaking"},
		CodeOption{"WOR", "Worn"},
		CodeOption{"INO", "Inoperative"},
		CodeOption{"UNK", "Unknown"},
	)

	CorrectiveActionCodes = NewCodeSet("U",
		CodeOption{"R", "Repaired"},
		CodeOption{"A", "Adjusted"},
		CodeOption{"P", "Replaced"},
		CodeOption{"S", "Serviced"},
		CodeOption{"I", "Inspected"},
		CodeOption{"U", "Unknown"},
	)

	ActionCodes = NewCodeSet("U",
		CodeOption{"A", "Adjust"},
		CodeOption{"B", "Repair"},
		CodeOption{"C", "Replace"},
		CodeOption{"D", "Inspect"},
		CodeOption{"E", "Service"},
		CodeOption{"F", "Test"},
		CodeOption{"U", "Unknown"},
	)

	FaultSources = NewCodeSet("Unknown",
		CodeOption{"Vantage", "Vantage"},
		CodeOption{"CAMS", "CAMS"},
		CodeOption{"Unknown", "Unknown"},
	)
)
