package settings

import (
	"errors"
	"fmt"
	"strconv"
	"time"

	"github.com/teslashibe/go-access/pkg/modality"
)

// Setting keys under modality.<name>.
const (
	KeyDwell          = "dwell_ms"
	KeyScanInterval   = "scan_interval_ms"
	KeyScanReverse    = "scan_reverse"
	KeyAutoRescan     = "auto_rescan"
	KeyRescanDelay    = "rescan_delay_ms"
	KeyPuffThreshold  = "puff_threshold"
	KeyPuffHold       = "puff_hold_ms"
	KeyTiltDeadZone   = "tilt_dead_zone"
	KeyTiltRange      = "tilt_range"
	KeyMovesPerSecond = "moves_per_second"
	KeyWindow         = "window"
)

// Modality is the tunable configuration of one input method.
type Modality struct {
	Dwell          time.Duration `json:"dwell"`
	ScanInterval   time.Duration `json:"scan_interval"`
	ScanReverse    bool          `json:"scan_reverse"`
	AutoRescan     bool          `json:"auto_rescan"`
	RescanDelay    time.Duration `json:"rescan_delay"`
	PuffThreshold  float64       `json:"puff_threshold"`
	PuffHold       time.Duration `json:"puff_hold"`
	TiltDeadZone   float64       `json:"tilt_dead_zone"`
	TiltRange      float64       `json:"tilt_range"`
	MovesPerSecond float64       `json:"moves_per_second"`
	Window         int           `json:"window"`
}

// DefaultModality returns the defaults shared by every input method.
func DefaultModality() Modality {
	return Modality{
		Dwell:          2000 * time.Millisecond,
		ScanInterval:   1500 * time.Millisecond,
		ScanReverse:    true,
		RescanDelay:    750 * time.Millisecond,
		PuffThreshold:  0.15,
		PuffHold:       150 * time.Millisecond,
		TiltDeadZone:   8,
		TiltRange:      30,
		MovesPerSecond: 4,
		Window:         8,
	}
}

// Validate checks the values are usable.
func (s *Modality) Validate() error {
	if s.Dwell <= 0 || s.ScanInterval <= 0 {
		return errors.New("settings: dwell and scan interval must be positive")
	}
	if s.PuffThreshold <= 0 {
		return errors.New("settings: puff threshold must be positive")
	}
	if s.TiltRange <= s.TiltDeadZone {
		return errors.New("settings: tilt range must exceed the dead zone")
	}
	if s.MovesPerSecond <= 0 {
		return errors.New("settings: moves per second must be positive")
	}
	if s.Window < 1 {
		return errors.New("settings: window must be at least 1")
	}
	return nil
}

// Path returns the store path of key for m.
func Path(m modality.Modality, key string) string {
	return "modality." + string(m) + "." + key
}

type field struct {
	key   string
	apply func(string) error
}

func (s *Modality) fields() []field {
	return []field{
		{KeyDwell, durationField(&s.Dwell)},
		{KeyScanInterval, durationField(&s.ScanInterval)},
		{KeyScanReverse, boolField(&s.ScanReverse)},
		{KeyAutoRescan, boolField(&s.AutoRescan)},
		{KeyRescanDelay, durationField(&s.RescanDelay)},
		{KeyPuffThreshold, floatField(&s.PuffThreshold)},
		{KeyPuffHold, durationField(&s.PuffHold)},
		{KeyTiltDeadZone, floatField(&s.TiltDeadZone)},
		{KeyTiltRange, floatField(&s.TiltRange)},
		{KeyMovesPerSecond, floatField(&s.MovesPerSecond)},
		{KeyWindow, intField(&s.Window)},
	}
}

// LoadModality reads m's settings over defaults. Unset keys keep their
// default; malformed values are an error naming the path.
func LoadModality(store Store, m modality.Modality, defaults Modality) (Modality, error) {
	s := defaults
	for _, f := range s.fields() {
		path := Path(m, f.key)
		v, ok, err := store.Get(path)
		if err != nil {
			return defaults, err
		}
		if !ok {
			continue
		}
		if err := f.apply(v); err != nil {
			return defaults, fmt.Errorf("settings: %s: %w", path, err)
		}
	}
	if err := s.Validate(); err != nil {
		return defaults, err
	}
	return s, nil
}

// SaveModality writes every field of s for m.
func SaveModality(store Store, m modality.Modality, s Modality) error {
	if err := s.Validate(); err != nil {
		return err
	}
	for k, v := range s.Values() {
		if err := store.Set(Path(m, k), v); err != nil {
			return err
		}
	}
	return nil
}

// Values returns s in its stored string form, keyed by setting key.
func (s Modality) Values() map[string]string {
	return map[string]string{
		KeyDwell:          ms(s.Dwell),
		KeyScanInterval:   ms(s.ScanInterval),
		KeyScanReverse:    strconv.FormatBool(s.ScanReverse),
		KeyAutoRescan:     strconv.FormatBool(s.AutoRescan),
		KeyRescanDelay:    ms(s.RescanDelay),
		KeyPuffThreshold:  strconv.FormatFloat(s.PuffThreshold, 'g', -1, 64),
		KeyPuffHold:       ms(s.PuffHold),
		KeyTiltDeadZone:   strconv.FormatFloat(s.TiltDeadZone, 'g', -1, 64),
		KeyTiltRange:      strconv.FormatFloat(s.TiltRange, 'g', -1, 64),
		KeyMovesPerSecond: strconv.FormatFloat(s.MovesPerSecond, 'g', -1, 64),
		KeyWindow:         strconv.Itoa(s.Window),
	}
}

// Apply returns a copy of s with the given stored-form values decoded over
// it. Unknown keys and malformed values are errors; the result is validated.
func (s Modality) Apply(values map[string]string) (Modality, error) {
	out := s
	known := make(map[string]func(string) error)
	for _, f := range out.fields() {
		known[f.key] = f.apply
	}
	for k, v := range values {
		apply, ok := known[k]
		if !ok {
			return s, fmt.Errorf("%w: %q", ErrUnknownKey, k)
		}
		if err := apply(v); err != nil {
			return s, fmt.Errorf("settings: %s: %w", k, err)
		}
	}
	if err := out.Validate(); err != nil {
		return s, err
	}
	return out, nil
}

func ms(d time.Duration) string {
	return strconv.FormatInt(d.Milliseconds(), 10)
}

func durationField(dst *time.Duration) func(string) error {
	return func(v string) error {
		n, err := strconv.ParseInt(v, 10, 64)
		if err != nil {
			return err
		}
		*dst = time.Duration(n) * time.Millisecond
		return nil
	}
}

func boolField(dst *bool) func(string) error {
	return func(v string) error {
		b, err := strconv.ParseBool(v)
		if err != nil {
			return err
		}
		*dst = b
		return nil
	}
}

func floatField(dst *float64) func(string) error {
	return func(v string) error {
		f, err := strconv.ParseFloat(v, 64)
		if err != nil {
			return err
		}
		*dst = f
		return nil
	}
}

func intField(dst *int) func(string) error {
	return func(v string) error {
		n, err := strconv.Atoi(v)
		if err != nil {
			return err
		}
		*dst = n
		return nil
	}
}
