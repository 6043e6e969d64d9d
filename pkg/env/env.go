// Package env holds the process level configuration of DDSM tools.
package env

import (
	"flag"
	"fmt"
	"os"
	"strconv"
	"strings"
	"time"

	"github.com/golang/glog"

	"github.com/robotalks/ddsm.go/pkg/ddsm"
	"github.com/robotalks/ddsm.go/pkg/ddsm/link"
	"github.com/robotalks/ddsm.go/pkg/ddsm/motor"
	"github.com/robotalks/ddsm.go/pkg/ddsm/report"
)

// DefaultDevice is the device path of the motor driver board on most hosts.
const DefaultDevice = "/dev/ttyACM0"

// ConnectTimeout bounds connecting to the MQTT broker.
const ConnectTimeout = 5 * time.Second

// Config provides options to open a motor bus.
type Config struct {
	Device  string
	Timeout time.Duration
	Backend string

	// MQTTBrokerURL enables event reporting when not empty.
	// e.g. mqtt://host:port/topic-prefix
	MQTTBrokerURL string
	// HostID identifies this host in event topics.
	HostID string
}

var (
	defaultConfig = Config{
		Device:  DefaultDevice,
		Timeout: link.DefaultTimeout,
		Backend: link.DefaultBackend,
	}

	envErr error
)

func init() {
	envErr = defaultConfig.ApplyEnv(os.Getenv)
	if defaultConfig.HostID == "" {
		defaultConfig.HostID = MachineID()
	}
}

// ApplyEnv overrides fields from DDSM_* environment variables.
func (c *Config) ApplyEnv(getenv func(string) string) error {
	if val := getenv("DDSM_DEVICE"); val != "" {
		c.Device = val
	}
	if val := getenv("DDSM_BACKEND"); val != "" {
		c.Backend = val
	}
	if val := getenv("DDSM_MQTT_URL"); val != "" {
		c.MQTTBrokerURL = val
	}
	if val := getenv("DDSM_HOST_ID"); val != "" {
		c.HostID = val
	}
	if val := getenv("DDSM_TIMEOUT"); val != "" {
		timeout, err := ParseTimeout(val)
		if err != nil {
			return fmt.Errorf("DDSM_TIMEOUT: %w", err)
		}
		c.Timeout = timeout
	}
	return nil
}

// ParseTimeout parses a duration, a bare number is in milliseconds.
func ParseTimeout(s string) (time.Duration, error) {
	s = strings.TrimSpace(s)
	if ms, err := strconv.ParseUint(s, 10, 32); err == nil {
		return time.Duration(ms) * time.Millisecond, nil
	}
	d, err := time.ParseDuration(s)
	if err != nil {
		return 0, ddsm.NewError(ddsm.InvalidArgument, "parse timeout", err)
	}
	if d < 0 {
		return 0, ddsm.NewError(ddsm.InvalidArgument, "parse timeout", fmt.Errorf("negative timeout %v", d))
	}
	return d, nil
}

// SetupFlags sets up command line flags.
func SetupFlags() {
	flag.StringVar(&defaultConfig.Device, "device", defaultConfig.Device, "Serial device of the motor bus.")
	flag.DurationVar(&defaultConfig.Timeout, "timeout", defaultConfig.Timeout, "Read timeout.")
	flag.StringVar(&defaultConfig.Backend, "backend", defaultConfig.Backend,
		"Serial backend, one of "+strings.Join(link.BackendNames(), ", ")+".")
	flag.StringVar(&defaultConfig.MQTTBrokerURL, "mqtt", defaultConfig.MQTTBrokerURL, "MQTT broker URL to report events, empty to disable.")
	flag.StringVar(&defaultConfig.HostID, "host-id", defaultConfig.HostID, "Host ID in event topics.")
}

// Default gets the default config.
func Default() *Config {
	return &defaultConfig
}

// NewConfig creates a Config with default configurations.
func NewConfig() *Config {
	conf := defaultConfig
	return &conf
}

// Validate checks the config, including errors from the environment.
func (c *Config) Validate() error {
	var errs ddsm.AggregatedError
	errs.Add(envErr)
	if c.Device == "" {
		errs.Add(ddsm.NewError(ddsm.InvalidArgument, "config", fmt.Errorf("device required")))
	}
	if c.Timeout < 0 {
		errs.Add(ddsm.NewError(ddsm.InvalidArgument, "config", fmt.Errorf("negative timeout %v", c.Timeout)))
	}
	if _, ok := link.Backends[c.Backend]; !ok && c.Backend != "" {
		errs.Add(ddsm.NewError(ddsm.InvalidArgument, "config", fmt.Errorf("unknown backend %q", c.Backend)))
	}
	return errs.Aggregate()
}

// LinkConfig returns the config to open the link.
func (c *Config) LinkConfig() link.Config {
	return link.Config{Path: c.Device, Timeout: c.Timeout, Backend: c.Backend}
}

// OpenLink opens the motor bus.
func (c *Config) OpenLink() (link.Link, error) {
	if err := c.Validate(); err != nil {
		return nil, err
	}
	return link.Open(c.LinkConfig())
}

// MustOpenLink opens the motor bus and exits on error.
func (c *Config) MustOpenLink() link.Link {
	l, err := c.OpenLink()
	if err != nil {
		glog.Exitln(err)
	}
	return l
}

// NewReporter creates the Reporter for controllers. Events are always
// logged, and published when an MQTT broker is configured. The returned
// Publisher is nil without a broker, otherwise it must be closed.
func (c *Config) NewReporter() (ddsm.Reporter, *report.Publisher, error) {
	if c.MQTTBrokerURL == "" {
		return ddsm.LogReporter{}, nil, nil
	}
	pub, err := report.NewPublisher(c.MQTTBrokerURL, c.HostID)
	if err != nil {
		return nil, nil, err
	}
	pub.Device = c.Device
	if err = pub.Connect(ConnectTimeout); err != nil {
		return nil, nil, err
	}
	glog.Infof("reporting events to %s as %s", c.MQTTBrokerURL, report.Topic(c.HostID))
	return ddsm.MultiReporter{ddsm.LogReporter{}, pub}, pub, nil
}

// NewController creates a motor controller on l.
func (c *Config) NewController(l link.Link, r ddsm.Reporter) *motor.Controller {
	ctl := motor.NewController(l)
	if r != nil {
		ctl.Reporter = r
	}
	return ctl
}
