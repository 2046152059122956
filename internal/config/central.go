package config

import (
	"errors"
	"fmt"
	"io/fs"
	"os"
	"sort"
	"strconv"
	"strings"
	"time"

	"github.com/spf13/viper"
)

// Timing controls how often the scheduler runs the monitors.
type Timing struct {
	BaseInterval       int            `mapstructure:"base_interval"`
	TimeBasedIntervals map[string]int `mapstructure:"time_based_intervals"`
	MonitorDelay       int            `mapstructure:"monitor_delay"`
	StartupDelay       int            `mapstructure:"startup_delay"`
}

// RaceBikeCheck configures the language model classification of listings.
type RaceBikeCheck struct {
	Model               string  `mapstructure:"model"`
	Prompt              string  `mapstructure:"prompt"`
	MaxCompletionTokens int     `mapstructure:"max_completion_tokens"`
	Temperature         float32 `mapstructure:"temperature"`
}

// Central is the configuration shared by all monitors.
type Central struct {
	Timing        Timing        `mapstructure:"centralized_timing"`
	RaceBikeCheck RaceBikeCheck `mapstructure:"racebike_check_gpt"`

	// Path is the file the configuration was read from, empty when the
	// defaults are in use.
	Path string `mapstructure:"-"`
}

// DefaultCentral returns the configuration used when no central file exists.
func DefaultCentral() *Central {
	return &Central{
		Timing: Timing{
			BaseInterval: 300,
			MonitorDelay: 10,
			StartupDelay: 5,
		},
		RaceBikeCheck: RaceBikeCheck{
			Model:               "gpt-4o-mini",
			MaxCompletionTokens: 10,
			Temperature:         0.1,
		},
	}
}

// LoadCentral reads the central configuration at path. A missing file
// yields the defaults; a malformed one is an error.
func LoadCentral(path string) (*Central, error) {
	def := DefaultCentral()
	if _, err := os.Stat(path); errors.Is(err, fs.ErrNotExist) {
		return def, nil
	}

	v := viper.New()
	v.SetConfigFile(path)
	v.SetConfigType("json")
	v.SetDefault("centralized_timing.base_interval", def.Timing.BaseInterval)
	v.SetDefault("centralized_timing.monitor_delay", def.Timing.MonitorDelay)
	v.SetDefault("centralized_timing.startup_delay", def.Timing.StartupDelay)
	v.SetDefault("racebike_check_gpt.model", def.RaceBikeCheck.Model)
	v.SetDefault("racebike_check_gpt.max_completion_tokens", def.RaceBikeCheck.MaxCompletionTokens)
	v.SetDefault("racebike_check_gpt.temperature", def.RaceBikeCheck.Temperature)

	if err := v.ReadInConfig(); err != nil {
		return nil, fmt.Errorf("read central config %s: %w", path, err)
	}

	var c Central
	if err := v.Unmarshal(&c); err != nil {
		return nil, fmt.Errorf("decode central config %s: %w", path, err)
	}
	c.Path = path
	if err := c.Validate(); err != nil {
		return nil, fmt.Errorf("central config %s: %w", path, err)
	}
	return &c, nil
}

// Validate checks the timing settings.
func (c *Central) Validate() error {
	if c.Timing.BaseInterval <= 0 {
		return fmt.Errorf("%w: base_interval must be positive", ErrInvalid)
	}
	if c.Timing.MonitorDelay < 0 || c.Timing.StartupDelay < 0 {
		return fmt.Errorf("%w: delays must not be negative", ErrInvalid)
	}
	_, err := c.Timing.Intervals()
	return err
}

// MonitorDelayDuration returns the pause between two monitors of a cycle.
func (t Timing) MonitorDelayDuration() time.Duration {
	return time.Duration(t.MonitorDelay) * time.Second
}

// StartupDelayDuration returns the pause before the first cycle.
func (t Timing) StartupDelayDuration() time.Duration {
	return time.Duration(t.StartupDelay) * time.Second
}

// Intervals builds the time-of-day interval table.
func (t Timing) Intervals() (*IntervalTable, error) {
	table := &IntervalTable{Base: time.Duration(t.BaseInterval) * time.Second}
	for spec, secs := range t.TimeBasedIntervals {
		r, err := parseTimeRange(spec)
		if err != nil {
			return nil, err
		}
		if secs <= 0 {
			return nil, fmt.Errorf("%w: interval for %q must be positive", ErrInvalid, spec)
		}
		r.Interval = time.Duration(secs) * time.Second
		table.Ranges = append(table.Ranges, r)
	}
	sort.Slice(table.Ranges, func(i, j int) bool {
		return table.Ranges[i].Start < table.Ranges[j].Start
	})
	return table, nil
}

// TimeRange is a daily time window, in minutes after midnight. Both ends
// are inclusive; a range whose end precedes its start crosses midnight.
type TimeRange struct {
	Start    int
	End      int
	Interval time.Duration
}

// Contains reports whether the minute of the day falls in the range.
func (r TimeRange) Contains(minute int) bool {
	if r.Start <= r.End {
		return minute >= r.Start && minute <= r.End
	}
	return minute >= r.Start || minute <= r.End
}

// IntervalTable picks the sleep between cycles by time of day.
type IntervalTable struct {
	Base   time.Duration
	Ranges []TimeRange
}

// At returns the interval in effect at now: that of the earliest-starting
// range containing now, or Base.
func (t *IntervalTable) At(now time.Time) time.Duration {
	minute := now.Hour()*60 + now.Minute()
	for _, r := range t.Ranges {
		if r.Contains(minute) {
			return r.Interval
		}
	}
	return t.Base
}

func parseTimeRange(spec string) (TimeRange, error) {
	from, to, ok := strings.Cut(spec, "-")
	if !ok {
		return TimeRange{}, fmt.Errorf("%w: time range %q must look like HH:MM-HH:MM", ErrInvalid, spec)
	}
	start, err := parseClock(from)
	if err != nil {
		return TimeRange{}, fmt.Errorf("%w: time range %q: %w", ErrInvalid, spec, err)
	}
	end, err := parseClock(to)
	if err != nil {
		return TimeRange{}, fmt.Errorf("%w: time range %q: %w", ErrInvalid, spec, err)
	}
	return TimeRange{Start: start, End: end}, nil
}

func parseClock(s string) (int, error) {
	hh, mm, ok := strings.Cut(strings.TrimSpace(s), ":")
	if !ok {
		return 0, fmt.Errorf("clock %q must be HH:MM", s)
	}
	h, err := strconv.Atoi(hh)
	if err != nil || h < 0 || h > 23 {
		return 0, fmt.Errorf("hour in %q out of range", s)
	}
	m, err := strconv.Atoi(mm)
	if err != nil || m < 0 || m > 59 {
		return 0, fmt.Errorf("minute in %q out of range", s)
	}
	return h*60 + m, nil
}
