package wlan

import (
	"encoding/json"
	"fmt"
	"strings"
)

// Discipline identifies a medium access discipline
type Discipline int

const (
	// Contention is CSMA/CA style access with exponential backoff (WiFi 4)
	Contention Discipline = iota + 1
	// CoordinatedParallel is sounding followed by a parallel window (WiFi 5 MU-MIMO)
	CoordinatedParallel
	// ScheduledSubchannel is round-robin sub-channel allocation (WiFi 6 OFDMA)
	ScheduledSubchannel
)

// Disciplines lists every discipline in reporting order
var Disciplines = []Discipline{Contention, CoordinatedParallel, ScheduledSubchannel}

var disciplineNames = map[Discipline]string{
	Contention:          "contention",
	CoordinatedParallel: "coordinated-parallel",
	ScheduledSubchannel: "scheduled-subchannel",
}

var disciplineLabels = map[Discipline]string{
	Contention:          "WiFi 4 (CSMA/CA)",
	CoordinatedParallel: "WiFi 5 (MU-MIMO)",
	ScheduledSubchannel: "WiFi 6 (OFDMA)",
}

// String returns the canonical name
func (d Discipline) String() string {
	if name, ok := disciplineNames[d]; ok {
		return name
	}
	return fmt.Sprintf("discipline(%d)", int(d))
}

// Label returns the human readable protocol label
func (d Discipline) Label() string {
	if label, ok := disciplineLabels[d]; ok {
		return label
	}
	return d.String()
}

// Valid reports whether d is one of the known disciplines
func (d Discipline) Valid() bool {
	_, ok := disciplineNames[d]
	return ok
}

// ParseDiscipline parses a discipline name. Protocol aliases (wifi4, csma, mu-mimo, ofdma...) are accepted.
func ParseDiscipline(s string) (Discipline, error) {
	switch strings.ToLower(strings.TrimSpace(s)) {
	case "contention", "csma", "csma/ca", "wifi4":
		return Contention, nil
	case "coordinated-parallel", "coordinated", "mu-mimo", "wifi5":
		return CoordinatedParallel, nil
	case "scheduled-subchannel", "scheduled", "ofdma", "wifi6":
		return ScheduledSubchannel, nil
	}
	return 0, fmt.Errorf("unknown discipline %q", s)
}

// MarshalText implements encoding.TextMarshaler
func (d Discipline) MarshalText() ([]byte, error) {
	if !d.Valid() {
		return nil, fmt.Errorf("invalid discipline %d", int(d))
	}
	return []byte(d.String()), nil
}

// UnmarshalText implements encoding.TextUnmarshaler
func (d *Discipline) UnmarshalText(text []byte) error {
	parsed, err := ParseDiscipline(string(text))
	if err != nil {
		return err
	}
	*d = parsed
	return nil
}

// MarshalJSON implements json.Marshaler
func (d Discipline) MarshalJSON() ([]byte, error) {
	return json.Marshal(d.String())
}

// UnmarshalJSON implements json.Unmarshaler
func (d *Discipline) UnmarshalJSON(data []byte) error {
	var s string
	if err := json.Unmarshal(data, &s); err != nil {
		return err
	}
	return d.UnmarshalText([]byte(s))
}
