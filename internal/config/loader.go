package config

import (
	"errors"
	"fmt"
	"net/http"
	"strconv"
	"strings"
	"time"

	"github.com/spf13/pflag"
	"github.com/spf13/viper"
)

// Loader handles loading configuration from files and command-line arguments.
type Loader struct{}

// ErrHelpRequested is returned when the user requests help via --help flag.
var ErrHelpRequested = errors.New("help requested")

// NewLoader creates a new configuration Loader.
func NewLoader() *Loader {
	return &Loader{}
}

// Load parses command-line arguments and configuration files to produce a Config.
func (Loader) Load(args []string) (*Config, error) {
	cmd := newFlagCommand()
	if err := cmd.Flags().Parse(args); err != nil {
		if errors.Is(err, pflag.ErrHelp) {
			displayHelp(cmd)
			return nil, ErrHelpRequested
		}
		return nil, err
	}

	flagSet := cmd.Flags()
	if helpFlag := flagSet.Lookup("help"); helpFlag != nil {
		if wantsHelp, err := strconv.ParseBool(helpFlag.Value.String()); err == nil && wantsHelp {
			displayHelp(cmd)
			return nil, ErrHelpRequested
		}
	}

	configPath := flagSet.Lookup("config").Value.String()
	if len(args) == 0 && configPath == "" {
		displayHelp(cmd)
		return nil, ErrHelpRequested
	}
	cfgViper := viper.New()
	if configPath != "" {
		cfgViper.SetConfigFile(configPath)
		if err := cfgViper.ReadInConfig(); err != nil {
			return nil, err
		}
	}

	settings := cfgViper.AllSettings()

	cfg := &Config{
		Method:      http.MethodGet,
		Headers:     map[string]string{},
		Repetitions: 10,
		Concurrency: 1,
		Timeout:     30 * time.Second,
		Output:      OutputText,
		ConfigFile:  configPath,
		Tracing:     TracingConfig{Protocol: "grpc", SampleRate: 1.0},
	}

	if err := applyConfigSettings(cfg, settings); err != nil {
		return nil, err
	}

	if err := applyFlagOverrides(cfg, flagSet); err != nil {
		return nil, err
	}

	cfg.Method = strings.ToUpper(strings.TrimSpace(cfg.Method))
	cfg.TargetURL = strings.TrimSpace(cfg.TargetURL)
	cfg.BodyFile = strings.TrimSpace(cfg.BodyFile)

	if cfg.Headers == nil {
		cfg.Headers = map[string]string{}
	}

	return cfg, nil
}

// applyConfigSettings applies settings from a config file to the Config struct.
func applyConfigSettings(cfg *Config, raw map[string]any) error {
	if len(raw) == 0 {
		return nil
	}
	s, err := newSettings(raw)
	if err != nil {
		return err
	}

	// body is kept verbatim; every other text setting is trimmed.
	strs := []struct {
		keys []string
		dst  *string
		trim bool
	}{
		{[]string{"target", "url"}, &cfg.TargetURL, true},
		{[]string{"body"}, &cfg.Body, false},
		{[]string{"bodyFile"}, &cfg.BodyFile, true},
		{[]string{"htmlOutput"}, &cfg.HTMLOutput, true},
		{[]string{"historyFile"}, &cfg.HistoryFile, true},
	}
	for _, f := range strs {
		for _, key := range f.keys {
			v, ok := s.get(key)
			if !ok {
				continue
			}
			val, err := stringValue(v)
			if err != nil {
				return fmt.Errorf("%s: %w", key, err)
			}
			if f.trim {
				val = strings.TrimSpace(val)
			}
			*f.dst = val
			break
		}
	}

	if v, ok := s.get("method"); ok {
		val, err := stringValue(v)
		if err != nil {
			return fmt.Errorf("method: %w", err)
		}
		if val != "" {
			cfg.Method = val
		}
	}

	if v, ok := s.get("output"); ok {
		val, err := stringValue(v)
		if err != nil {
			return fmt.Errorf("output: %w", err)
		}
		if val = strings.ToLower(strings.TrimSpace(val)); val != "" {
			cfg.Output = OutputFormat(val)
		}
	}

	if v, ok := s.get("headers"); ok {
		hdrs, err := headerValues(v)
		if err != nil {
			return fmt.Errorf("headers: %w", err)
		}
		if cfg.Headers == nil {
			cfg.Headers = map[string]string{}
		}
		for k, val := range hdrs {
			cfg.Headers[k] = val
		}
	}

	ints := []struct {
		key string
		dst *int
	}{
		{"repetitions", &cfg.Repetitions},
		{"concurrency", &cfg.Concurrency},
		{"rate", &cfg.Rate},
	}
	for _, f := range ints {
		if v, ok := s.get(f.key); ok {
			val, err := intValue(v)
			if err != nil {
				return fmt.Errorf("%s: %w", f.key, err)
			}
			*f.dst = val
		}
	}

	// "delay" and "delayMs" are the same setting; bare numbers are milliseconds.
	for _, key := range []string{"delay", "delayMs"} {
		if v, ok := s.get(key); ok {
			dur, err := durationValue(v, time.Millisecond)
			if err != nil {
				return fmt.Errorf("%s: %w", key, err)
			}
			cfg.Delay = dur
			break
		}
	}

	if v, ok := s.get("timeout"); ok {
		dur, err := durationValue(v, time.Second)
		if err != nil {
			return fmt.Errorf("timeout: %w", err)
		}
		cfg.Timeout = dur
	}

	bools := []struct {
		keys []string
		dst  *bool
	}{
		{[]string{"confirm", "ethicalConfirmation"}, &cfg.Confirmed},
		{[]string{"sameOrigin"}, &cfg.SameOrigin},
		{[]string{"dashboard"}, &cfg.Dashboard},
		{[]string{"logErrors"}, &cfg.LogErrors},
	}
	for _, f := range bools {
		for _, key := range f.keys {
			v, ok := s.get(key)
			if !ok {
				continue
			}
			val, err := boolValue(v)
			if err != nil {
				return fmt.Errorf("%s: %w", key, err)
			}
			*f.dst = val
			break
		}
	}

	if v, ok := s.get("thresholds"); ok {
		thresholds, err := thresholdValues(v)
		if err != nil {
			return fmt.Errorf("thresholds: %w", err)
		}
		cfg.Thresholds = thresholds
	}

	if v, ok := s.get("tracing"); ok {
		if err := applyTracingSettings(&cfg.Tracing, v); err != nil {
			return fmt.Errorf("tracing: %w", err)
		}
	}

	return nil
}

func applyTracingSettings(tc *TracingConfig, value any) error {
	if value == nil {
		return nil
	}
	s, err := newSettings(value)
	if err != nil {
		return err
	}
	for _, f := range []struct {
		key   string
		dst   *string
		lower bool
	}{
		{"endpoint", &tc.Endpoint, false},
		{"protocol", &tc.Protocol, true},
		{"serviceName", &tc.ServiceName, false},
	} {
		if v, ok := s.get(f.key); ok {
			val, err := stringValue(v)
			if err != nil {
				return fmt.Errorf("%s: %w", f.key, err)
			}
			val = strings.TrimSpace(val)
			if f.lower {
				val = strings.ToLower(val)
			}
			*f.dst = val
		}
	}
	if v, ok := s.get("sampleRate"); ok {
		val, err := floatValue(v)
		if err != nil {
			return fmt.Errorf("sampleRate: %w", err)
		}
		tc.SampleRate = val
	}
	if v, ok := s.get("insecure"); ok {
		val, err := boolValue(v)
		if err != nil {
			return fmt.Errorf("insecure: %w", err)
		}
		tc.Insecure = val
	}
	if v, ok := s.get("propagate"); ok {
		val, err := boolValue(v)
		if err != nil {
			return fmt.Errorf("propagate: %w", err)
		}
		tc.Propagate = &val
	}
	return nil
}
