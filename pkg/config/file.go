// Package config loads the process configuration and decodes the free-form
// settings of individual components.
package config

import (
	"errors"
	"fmt"
	"os"
	"slices"
	"time"

	"gopkg.in/yaml.v3"
)

// Connection and transport types.
const (
	ConnectionRedis  = "redis"
	ConnectionPubSub = "pubsub"

	TransportGoChannel = "gochannel"
	TransportKafka     = "kafka"
)

var (
	ErrDuplicateChannel  = errors.New("duplicate channel id")
	ErrDuplicateWorkflow = errors.New("duplicate workflow id")
	ErrUnknownConnection = errors.New("unknown connection")
)

// File is the root of a YAML configuration file.
type File struct {
	LogLevel    string                `yaml:"log_level" validate:"omitempty,oneof=debug info warn warning error"`
	Management  Management            `yaml:"management"`
	Metrics     Metrics               `yaml:"metrics"`
	Tracing     Tracing               `yaml:"tracing"`
	EventBus    Transport             `yaml:"event_bus"`
	Persistence Persistence           `yaml:"persistence"`
	PluginsPath string                `yaml:"plugins_path"`
	Connections map[string]Connection `yaml:"connections" validate:"dive"`
	Channels    []Channel             `yaml:"channels" validate:"required,min=1,dive"`
}

type Management struct {
	Addr string `yaml:"addr"`
}

type Metrics struct {
	Addr string `yaml:"addr"`
}

type Tracing struct {
	Enabled     bool   `yaml:"enabled"`
	ServiceName string `yaml:"service_name"`
}

// Transport selects the watermill pub/sub behind the event bus or a pubsub
// connection. An empty type is the in-process gochannel.
type Transport struct {
	Type    string   `yaml:"type" validate:"omitempty,oneof=gochannel kafka"`
	Brokers []string `yaml:"brokers" validate:"required_if=Type kafka"`
	Group   string   `yaml:"group"`
}

// Persistence holds the cycle history location: a postgres url, a file://
// url or a plain directory. Empty disables the history.
type Persistence struct {
	URL string `yaml:"url"`
}

type Connection struct {
	Type      string    `yaml:"type" validate:"required,oneof=redis pubsub"`
	Addr      string    `yaml:"addr" validate:"required_if=Type redis"`
	Password  string    `yaml:"password"`
	DB        int       `yaml:"db" validate:"gte=0"`
	Transport Transport `yaml:"transport"`
}

// Component names a registered factory type and its settings.
type Component struct {
	Type     string         `yaml:"type" validate:"required"`
	Settings map[string]any `yaml:"settings"`
}

type Trigger struct {
	Consumer   Component  `yaml:"consumer"`
	Producer   *Component `yaml:"producer"`
	Connection string     `yaml:"connection"`
}

type ErrorHandler struct {
	RetryLimit      int           `yaml:"retry_limit" validate:"gte=0"`
	RetryInterval   time.Duration `yaml:"retry_interval" validate:"gte=0"`
	FailureProducer *Component    `yaml:"failure_producer"`
}

// EventHandler selects where workflow events go. "bus" forwards them to the
// event bus, "none" drops them. Empty uses the host default.
type EventHandler struct {
	Type string `yaml:"type" validate:"omitempty,oneof=bus none"`
}

type Workflow struct {
	ID       string      `yaml:"id" validate:"required"`
	Consumer Component   `yaml:"consumer"`
	Services []Component `yaml:"services" validate:"dive"`
	Producer Component   `yaml:"producer"`
}

type Channel struct {
	ID                string        `yaml:"id" validate:"required"`
	Trigger           Trigger       `yaml:"trigger"`
	ProduceConnection string        `yaml:"produce_connection"`
	ConsumeConnection string        `yaml:"consume_connection"`
	ErrorHandler      ErrorHandler  `yaml:"error_handler"`
	EventHandler      EventHandler  `yaml:"event_handler"`
	ProbeBackoff      time.Duration `yaml:"probe_backoff" validate:"gte=0"`
	Workflows         []Workflow    `yaml:"workflows" validate:"required,min=1,dive"`
}

// Load reads and validates the configuration file at path.
func Load(path string) (*File, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("failed to read config: %w", err)
	}

	return Parse(data)
}

func Parse(data []byte) (*File, error) {
	var f File
	if err := yaml.Unmarshal(data, &f); err != nil {
		return nil, fmt.Errorf("failed to parse config: %w", err)
	}

	if err := f.Validate(); err != nil {
		return nil, err
	}

	return &f, nil
}

// Validate checks field constraints, unique ids and connection references.
func (f *File) Validate() error {
	if err := validate.Struct(f); err != nil {
		return fmt.Errorf("invalid config: %w", err)
	}

	var (
		errs     []error
		channels []string
	)

	for _, ch := range f.Channels {
		if slices.Contains(channels, ch.ID) {
			errs = append(errs, fmt.Errorf("%w: %s", ErrDuplicateChannel, ch.ID))
		}

		channels = append(channels, ch.ID)

		for _, name := range []string{ch.Trigger.Connection, ch.ProduceConnection, ch.ConsumeConnection} {
			if _, ok := f.Connections[name]; name != "" && !ok {
				errs = append(errs, fmt.Errorf("%w: channel %s references %q", ErrUnknownConnection, ch.ID, name))
			}
		}

		var workflows []string

		for _, wf := range ch.Workflows {
			if slices.Contains(workflows, wf.ID) {
				errs = append(errs, fmt.Errorf("%w: %s in channel %s", ErrDuplicateWorkflow, wf.ID, ch.ID))
			}

			workflows = append(workflows, wf.ID)
		}
	}

	return errors.Join(errs...)
}

// Channel returns the channel configuration with the given id.
func (f *File) Channel(id string) (Channel, bool) {
	for _, ch := range f.Channels {
		if ch.ID == id {
			return ch, true
		}
	}

	return Channel{}, false
}
