package sh

import (
	"encoding/json"
	"flag"
	"fmt"
	"os"
	"sort"
	"time"

	"github.com/abiosoft/ishell"
	"github.com/golang/glog"

	"github.com/robotalks/ddsm.go/pkg/ddsm"
	"github.com/robotalks/ddsm.go/pkg/ddsm/link"
	"github.com/robotalks/ddsm.go/pkg/ddsm/motor"
	"github.com/robotalks/ddsm.go/pkg/ddsm/report"
	"github.com/robotalks/ddsm.go/pkg/env"
)

// Shell provides ishell backed interactive shell.
type Shell struct {
	Interactive bool
	OutputJSON  bool
	AutoOpen    bool

	Shell      *ishell.Shell
	Config     *env.Config
	Link       link.Link
	Controller *motor.Controller
	Reporter   ddsm.Reporter
	Publisher  *report.Publisher

	failed bool
}

// Status is the state of the shell shown by the status command.
type Status struct {
	Device  string            `json:"device"`
	Backend string            `json:"backend"`
	Open    bool              `json:"open"`
	Timeout string            `json:"timeout"`
	Modes   map[string]string `json:"modes,omitempty"`
	Events  string            `json:"events,omitempty"`
}

// String implements fmt.Stringer.
func (s Status) String() string {
	state := "closed"
	if s.Open {
		state = "open"
	}
	str := fmt.Sprintf("%s (%s) %s, timeout %s", s.Device, s.Backend, state, s.Timeout)
	ids := make([]string, 0, len(s.Modes))
	for id := range s.Modes {
		ids = append(ids, id)
	}
	sort.Strings(ids)
	for _, id := range ids {
		str += fmt.Sprintf("\nmotor %s: %s", id, s.Modes[id])
	}
	if s.Events != "" {
		str += "\nevents: " + s.Events
	}
	return str
}

const (
	shellKey     = "$shell"
	closedPrompt = "[closed] > "
)

var (
	// flags

	evalOnly   bool
	outputJSON bool

	// commands
	commands = []*ishell.Cmd{
		&OpenCmd,
		&CloseCmd,
		&TimeoutCmd,
		&StatusCmd,
	}
)

func init() {
	flag.BoolVar(&evalOnly, "e", evalOnly, "Evaluation only, no interactive shell.")
	flag.BoolVar(&outputJSON, "json", outputJSON, "Print output in JSON.")
}

// AddCmds is used by other commands providers during init func.
func AddCmds(cmds ...*ishell.Cmd) {
	commands = append(commands, cmds...)
}

// New creates a new shell.
func New(conf *env.Config) *Shell {
	s := &Shell{
		Interactive: !evalOnly,
		OutputJSON:  outputJSON,

		Shell:  ishell.New(),
		Config: conf,
	}
	s.Shell.Set(shellKey, s)
	s.Shell.SetPrompt(closedPrompt)
	for _, cmd := range commands {
		s.Shell.AddCmd(cmd)
	}
	return s
}

// ShellFrom gets Shell from ishell context.
func ShellFrom(c *ishell.Context) *Shell {
	return c.Get(shellKey).(*Shell)
}

// MustBeOpen wraps command func requiring an open link. The configured
// device is opened when AutoOpen is set.
func MustBeOpen(fn func(c *ishell.Context)) func(c *ishell.Context) {
	return func(c *ishell.Context) {
		s := ShellFrom(c)
		if s.Link == nil {
			if !s.AutoOpen {
				s.Fail(c, fmt.Errorf("not open"))
				return
			}
			if err := s.Open(""); err != nil {
				s.Fail(c, err)
				return
			}
		}
		fn(c)
	}
}

// Fail prints err and marks the shell failed.
func (s *Shell) Fail(c *ishell.Context, err error) {
	s.failed = true
	c.Err(err)
}

// Print prints v as JSON or as text depending on OutputJSON.
func (s *Shell) Print(c *ishell.Context, v interface{}) {
	if s.OutputJSON {
		out, err := json.Marshal(v)
		if err != nil {
			s.Fail(c, err)
			return
		}
		c.Println(string(out))
		return
	}
	c.Println(v)
}

// WithAutoOpen sets AutoOpen.
func (s *Shell) WithAutoOpen(en bool) *Shell {
	s.AutoOpen = en
	return s
}

// SetupReporter creates the Reporter from config, once.
func (s *Shell) SetupReporter() error {
	if s.Reporter != nil {
		return nil
	}
	r, pub, err := s.Config.NewReporter()
	if err != nil {
		return err
	}
	s.Reporter, s.Publisher = r, pub
	return nil
}

// Open opens the link to device, or the configured device if empty. An
// already open link is closed first, the device is opened exclusively.
// Events are only logged if the reporter can't be set up.
func (s *Shell) Open(device string) error {
	conf := *s.Config
	if device != "" {
		conf.Device = device
	}
	if err := s.SetupReporter(); err != nil {
		glog.Warningf("event reporting disabled: %v", err)
		s.Reporter = ddsm.LogReporter{}
	}
	if err := s.Close(); err != nil {
		glog.Warningf("close %s: %v", s.Config.Device, err)
	}
	l, err := conf.OpenLink()
	if err != nil {
		return err
	}
	s.Config.Device = conf.Device
	s.Link = l
	s.Controller = conf.NewController(l, s.Reporter)
	if s.Shell != nil {
		s.Shell.SetPrompt(fmt.Sprintf("%s > ", conf.Device))
	}
	return nil
}

// Close closes the link if open.
func (s *Shell) Close() error {
	if s.Link == nil {
		return nil
	}
	err := s.Link.Close()
	s.Link, s.Controller = nil, nil
	if s.Shell != nil {
		s.Shell.SetPrompt(closedPrompt)
	}
	return err
}

// SetTimeout changes the read timeout of the open link, and of links opened
// later.
func (s *Shell) SetTimeout(timeout time.Duration) error {
	if timeout <= 0 {
		return ddsm.NewError(ddsm.InvalidArgument, "timeout", fmt.Errorf("must be positive, got %v", timeout))
	}
	if s.Link != nil {
		if err := s.Link.ReconfigureTimeout(timeout); err != nil {
			return err
		}
	}
	s.Config.Timeout = timeout
	return nil
}

// Status returns the current state.
func (s *Shell) Status() Status {
	st := Status{
		Device:  s.Config.Device,
		Backend: s.Config.Backend,
		Open:    s.Link != nil,
		Timeout: s.Config.Timeout.String(),
	}
	if s.Link != nil {
		st.Timeout = s.Link.Timeout().String()
	}
	if s.Controller != nil {
		if modes := s.Controller.Modes(); len(modes) > 0 {
			st.Modes = make(map[string]string, len(modes))
			for id, mode := range modes {
				st.Modes[id.String()] = mode.String()
			}
		}
	}
	if s.Publisher != nil {
		st.Events = s.Publisher.Queue.TopicPrefix + report.Topic(s.Publisher.HostID)
	}
	return st
}

// Shutdown closes the link and the publisher.
func (s *Shell) Shutdown() {
	if err := s.Close(); err != nil {
		glog.Warningf("close: %v", err)
	}
	if s.Publisher != nil {
		s.Publisher.Close()
		s.Publisher = nil
	}
}

// Run runs the shell. It exits with status 1 when a command failed in
// evaluation mode.
func (s *Shell) Run(args ...string) {
	defer s.Shutdown()
	if len(args) > 0 {
		if err := s.Shell.Process(args...); err != nil {
			s.Shutdown()
			glog.Exitln(err)
		}
		if s.failed {
			s.Shutdown()
			glog.Flush()
			os.Exit(1)
		}
		return
	}
	if s.Interactive {
		s.Shell.Run()
		return
	}
	glog.Exitln("command expected")
}

// ParseTimeoutArg parses the timeout command argument.
func ParseTimeoutArg(arg string) (time.Duration, error) {
	timeout, err := env.ParseTimeout(arg)
	if err != nil {
		return 0, err
	}
	if timeout <= 0 {
		return 0, ddsm.NewError(ddsm.InvalidArgument, "timeout", fmt.Errorf("must be positive"))
	}
	return timeout, nil
}

var (
	// OpenCmd opens the motor bus.
	OpenCmd = ishell.Cmd{
		Name:    "open",
		Aliases: []string{"o"},
		Help:    "[DEVICE]",
		Func: func(c *ishell.Context) {
			s := ShellFrom(c)
			var device string
			if len(c.Args) > 0 {
				device = c.Args[0]
			}
			if err := s.Open(device); err != nil {
				s.Fail(c, err)
			}
		},
	}

	// CloseCmd closes the motor bus.
	CloseCmd = ishell.Cmd{
		Name: "close",
		Help: "",
		Func: func(c *ishell.Context) {
			s := ShellFrom(c)
			if err := s.Close(); err != nil {
				s.Fail(c, err)
			}
		},
	}

	// TimeoutCmd shows or changes the read timeout.
	TimeoutCmd = ishell.Cmd{
		Name:    "timeout",
		Aliases: []string{"t"},
		Help:    "[MS]",
		Func: func(c *ishell.Context) {
			s := ShellFrom(c)
			if len(c.Args) > 0 {
				timeout, err := ParseTimeoutArg(c.Args[0])
				if err != nil {
					s.Fail(c, err)
					return
				}
				if err = s.SetTimeout(timeout); err != nil {
					s.Fail(c, err)
					return
				}
			}
			s.Print(c, s.Status().Timeout)
		},
	}

	// StatusCmd shows the link and the assumed motor modes.
	StatusCmd = ishell.Cmd{
		Name:    "status",
		Aliases: []string{"s"},
		Help:    "",
		Func: func(c *ishell.Context) {
			s := ShellFrom(c)
			s.Print(c, s.Status())
		},
	}
)

// Main is a helper to provide a single call in main.
func Main() {
	flag.Parse()
	defer glog.Flush()
	New(env.NewConfig()).WithAutoOpen(true).Run(flag.Args()...)
}
