// Package configuration validates the monitor's settings before any task starts.
package configuration

import (
	"errors"
	"fmt"
	"net/url"
	"strconv"
	"strings"
	"time"

	"github.com/clambin/energyua-monitor/internal/parser"
	"github.com/clambin/energyua-monitor/internal/resolver"
	"github.com/clambin/energyua-monitor/internal/schedule"
	"github.com/clambin/go-common/charmer"
	"github.com/spf13/viper"
)

const (
	DefaultBaseURL = "https://energy-ua.info/cherga/"

	MinFetchInterval = time.Minute
	MaxFetchInterval = 1440 * time.Minute

	MinThreshold = 1
	MaxThreshold = 180
)

// Arguments lists the supported settings and their defaults.
var Arguments = charmer.Arguments{
	"debug":                charmer.Argument{Default: false, Help: "Log debug messages"},
	"source.url":           charmer.Argument{Default: "", Help: "URL of the monitored page"},
	"source.baseURL":       charmer.Argument{Default: DefaultBaseURL, Help: "Base URL of the per-group pages"},
	"source.group":         charmer.Argument{Default: "", Help: "Outage group (e.g. 3-1). Used when source.url is not set"},
	"fetch.interval":       charmer.Argument{Default: 5 * time.Minute, Help: "Fetch interval"},
	"fetch.onError":        charmer.Argument{Default: string(resolver.RetainOnError), Help: "What to do when a fetch fails: retain or error"},
	"pretrigger.threshold": charmer.Argument{Default: 10, Help: "Pretrigger threshold in minutes"},
	"pretrigger.mode":      charmer.Argument{Default: string(schedule.ModeEquals), Help: "Pretrigger mode: equals or at_or_below"},
	"timezone":             charmer.Argument{Default: "", Help: "Time zone of the schedule (default: local time zone)"},
	"parser.mode":          charmer.Argument{Default: string(parser.ModeIntervals), Help: "Page layout: intervals or countdown"},
	"dump.dir":             charmer.Argument{Default: "", Help: "Directory for page dumps"},
	"exporter.addr":        charmer.Argument{Default: ":9090", Help: "Address of Prometheus exporter"},
	"api.addr":             charmer.Argument{Default: ":8080", Help: "Address of the health & API endpoints"},
	"slack.token":          charmer.Argument{Default: "", Help: "Slack bot token for outage notifications"},
	"mqtt.broker":          charmer.Argument{Default: "", Help: "MQTT broker URL"},
	"mqtt.topic":           charmer.Argument{Default: "energyua/schedule", Help: "MQTT topic"},
	"nats.url":             charmer.Argument{Default: "", Help: "NATS server URL"},
	"nats.subject":         charmer.Argument{Default: "energyua.schedule", Help: "NATS subject"},
}

// SetDefaults registers the default value of each argument with v.
func SetDefaults(v *viper.Viper) error {
	return charmer.SetDefaults(v, Arguments)
}

var ErrInvalidConfiguration = errors.New("invalid configuration")

// Error reports an invalid configuration value.
type Error struct {
	Field  string
	Reason string
}

func (e *Error) Error() string {
	return "invalid configuration: " + e.Field + ": " + e.Reason
}

func (e *Error) Is(err error) bool {
	return err == ErrInvalidConfiguration
}

type Configuration struct {
	Debug      bool
	Source     SourceConfiguration
	Fetch      FetchConfiguration
	Pretrigger schedule.Pretrigger
	Location   *time.Location
	ParserMode parser.Mode
	DumpDir    string
	Exporter   ListenerConfiguration
	API        ListenerConfiguration
	MQTT       BrokerConfiguration
	NATS       BrokerConfiguration
	Slack      SlackConfiguration
}

type SourceConfiguration struct {
	URL     string
	BaseURL string
	Group   string
}

type FetchConfiguration struct {
	Interval time.Duration
	OnError  resolver.FailureMode
}

type ListenerConfiguration struct {
	Addr string
}

// BrokerConfiguration holds the address of a message broker. An empty URL disables forwarding to it.
type BrokerConfiguration struct {
	URL   string
	Topic string
}

func (b BrokerConfiguration) Enabled() bool {
	return b.URL != ""
}

// SlackConfiguration holds the Slack bot token. An empty token disables notifications.
type SlackConfiguration struct {
	Token string
}

func (s SlackConfiguration) Enabled() bool {
	return s.Token != ""
}

// FromViper reads and validates the configuration.
func FromViper(v *viper.Viper) (Configuration, error) {
	cfg := Configuration{
		Debug: v.GetBool("debug"),
		Source: SourceConfiguration{
			URL:     strings.TrimSpace(v.GetString("source.url")),
			BaseURL: strings.TrimSpace(v.GetString("source.baseURL")),
			Group:   strings.TrimSpace(v.GetString("source.group")),
		},
		Fetch: FetchConfiguration{
			Interval: v.GetDuration("fetch.interval"),
			OnError:  resolver.FailureMode(v.GetString("fetch.onError")),
		},
		ParserMode: parser.Mode(v.GetString("parser.mode")),
		DumpDir:    v.GetString("dump.dir"),
		Exporter:   ListenerConfiguration{Addr: v.GetString("exporter.addr")},
		API:        ListenerConfiguration{Addr: v.GetString("api.addr")},
		MQTT:       BrokerConfiguration{URL: v.GetString("mqtt.broker"), Topic: v.GetString("mqtt.topic")},
		NATS:       BrokerConfiguration{URL: v.GetString("nats.url"), Topic: v.GetString("nats.subject")},
		Slack:      SlackConfiguration{Token: v.GetString("slack.token")},
	}

	var err error
	if cfg.Source.URL, err = sourceURL(cfg.Source); err != nil {
		return Configuration{}, err
	}
	if cfg.Fetch.Interval < MinFetchInterval || cfg.Fetch.Interval > MaxFetchInterval {
		return Configuration{}, &Error{Field: "fetch.interval", Reason: "must be between " + MinFetchInterval.String() + " and " + MaxFetchInterval.String()}
	}
	switch cfg.Fetch.OnError {
	case "":
		cfg.Fetch.OnError = resolver.RetainOnError
	case resolver.RetainOnError, resolver.FailOnError:
	default:
		return Configuration{}, &Error{Field: "fetch.onError", Reason: "unsupported value " + strconv.Quote(string(cfg.Fetch.OnError))}
	}
	if cfg.Pretrigger, err = Pretrigger(v); err != nil {
		return Configuration{}, err
	}
	if cfg.Location, err = Location(v.GetString("timezone")); err != nil {
		return Configuration{}, err
	}
	if _, err = parser.New(cfg.ParserMode); err != nil {
		return Configuration{}, &Error{Field: "parser.mode", Reason: err.Error()}
	}
	if cfg.ParserMode == "" {
		cfg.ParserMode = parser.ModeIntervals
	}
	return cfg, nil
}

func sourceURL(cfg SourceConfiguration) (string, error) {
	target := cfg.URL
	if target == "" {
		if cfg.Group == "" {
			return "", &Error{Field: "source.url", Reason: "either source.url or source.group must be set"}
		}
		base := cfg.BaseURL
		if base == "" {
			base = DefaultBaseURL
		}
		target = strings.TrimSuffix(base, "/") + "/" + url.PathEscape(cfg.Group)
	}
	u, err := url.Parse(target)
	if err != nil {
		return "", &Error{Field: "source.url", Reason: err.Error()}
	}
	if (u.Scheme != "http" && u.Scheme != "https") || u.Host == "" {
		return "", &Error{Field: "source.url", Reason: "not an http(s) URL: " + strconv.Quote(target)}
	}
	return target, nil
}

// Pretrigger reads and validates the pretrigger threshold and mode from v.
func Pretrigger(v *viper.Viper) (schedule.Pretrigger, error) {
	threshold := v.GetInt("pretrigger.threshold")
	if threshold < MinThreshold || threshold > MaxThreshold {
		return schedule.Pretrigger{}, &Error{Field: "pretrigger.threshold", Reason: fmt.Sprintf("must be between %d and %d", MinThreshold, MaxThreshold)}
	}
	mode, err := schedule.ParseMode(v.GetString("pretrigger.mode"))
	if err != nil {
		return schedule.Pretrigger{}, &Error{Field: "pretrigger.mode", Reason: err.Error()}
	}
	return schedule.Pretrigger{Threshold: threshold, Mode: mode}, nil
}

// Location loads the named timezone. An empty name means the local timezone.
func Location(name string) (*time.Location, error) {
	if name == "" {
		return time.Local, nil
	}
	loc, err := time.LoadLocation(name)
	if err != nil {
		return nil, &Error{Field: "timezone", Reason: err.Error()}
	}
	return loc, nil
}
