// Package sh is the interactive shell of rubictl.
package sh

import (
	"context"
	"encoding/json"
	"flag"
	"fmt"
	"log"
	"strings"
	"time"

	"github.com/abiosoft/ishell"

	"github.com/robotalks/rubi.go/pkg/env"
	"github.com/robotalks/rubi.go/pkg/frontend/mqtt"
	pb "github.com/robotalks/rubi.go/pkg/proto/rubi/v1"
)

// Shell provides an ishell backed shell driving boards through a Connector.
type Shell struct {
	Interactive bool
	OutputJSON  bool
	// Timeout bounds waits for values and results.
	Timeout time.Duration

	Shell     *ishell.Shell
	Config    *env.ClientConfig
	Connector *mqtt.Connector
	Board     *mqtt.BoardMeta
}

const (
	shellKey      = "$shell"
	noBoardPrompt = "[none] > "
)

var (
	evalOnly   bool
	outputJSON bool
	timeout    = 2 * time.Second

	commands = []*ishell.Cmd{
		&BoardsCmd,
		&UseCmd,
		&InfoCmd,
		&GetCmd,
		&SetCmd,
		&CallCmd,
		&SleepCmd,
		&WakeCmd,
		&RebootCmd,
		&WatchCmd,
	}
)

func init() {
	flag.BoolVar(&evalOnly, "e", evalOnly, "Evaluation only, no interactive shell.")
	flag.BoolVar(&outputJSON, "json", outputJSON, "Print output in JSON.")
	flag.DurationVar(&timeout, "timeout", timeout, "Timeout waiting for values.")
}

// New creates a shell on a connected Connector.
func New(conf *env.ClientConfig, connector *mqtt.Connector) *Shell {
	s := &Shell{
		Interactive: !evalOnly,
		OutputJSON:  outputJSON,
		Timeout:     timeout,
		Shell:       ishell.New(),
		Config:      conf,
		Connector:   connector,
	}
	s.Shell.Set(shellKey, s)
	s.Shell.SetPrompt(noBoardPrompt)
	for _, cmd := range commands {
		s.Shell.AddCmd(cmd)
	}
	return s
}

// ShellFrom gets Shell from ishell context.
func ShellFrom(c *ishell.Context) *Shell {
	return c.Get(shellKey).(*Shell)
}

// MustUseBoard wraps a command func requiring a selected board.
func MustUseBoard(fn func(c *ishell.Context, s *Shell)) func(c *ishell.Context) {
	return func(c *ishell.Context) {
		s := ShellFrom(c)
		if s.Board == nil {
			c.Err(fmt.Errorf("no board selected, try use"))
			return
		}
		fn(c, s)
	}
}

// FormatMeta prints a board in one line.
func FormatMeta(meta *mqtt.BoardMeta) string {
	line := fmt.Sprintf("%s v%s @%s/%d", meta.InstanceName(), meta.Version, meta.Bus, meta.Node)
	if meta.Description != "" {
		line += ": " + meta.Description
	}
	return line
}

// FormatEntry prints an entry in one line.
func FormatEntry(e *mqtt.EntryMeta) string {
	typ := e.Type
	if len(e.SubNames) > 0 {
		typ += "[" + strings.Join(e.SubNames, ",") + "]"
	}
	if e.Kind == "field" {
		return fmt.Sprintf("%-8s %-16s %-24s %s", e.Kind, e.Name, typ, e.Access)
	}
	return fmt.Sprintf("%-8s %-16s %-24s -> %s", e.Kind, e.Name, typ, e.OutType)
}

// FormatValue prints a value as name = v1, v2.
func FormatValue(v *pb.FieldValue) string {
	return fmt.Sprintf("%s = %s", v.Name, strings.Join(v.Values, ", "))
}

func (s *Shell) context() (context.Context, context.CancelFunc) {
	return context.WithTimeout(context.Background(), s.Timeout)
}

func (s *Shell) print(c *ishell.Context, v interface{}, text string) {
	if s.OutputJSON {
		out, err := json.Marshal(v)
		if err != nil {
			c.Err(err)
			return
		}
		c.Println(string(out))
		return
	}
	c.Println(text)
}

// Discover lists the boards matching a name or name:id filter.
func (s *Shell) Discover(filter string) ([]*mqtt.BoardMeta, error) {
	ctx, cancel := s.context()
	defer cancel()
	metas, err := s.Connector.Discover(ctx)
	if err != nil || filter == "" {
		return metas, err
	}
	var matched []*mqtt.BoardMeta
	for _, meta := range metas {
		if meta.InstanceName() == filter || meta.Name == filter {
			matched = append(matched, meta)
		}
	}
	return matched, nil
}

// Use selects a board, asking when the filter matches several.
func (s *Shell) Use(filter string) error {
	metas, err := s.Discover(filter)
	if err != nil {
		return err
	}
	if len(metas) == 0 {
		return fmt.Errorf("no board %q found", filter)
	}
	var index int
	if len(metas) > 1 {
		if !s.Interactive {
			return fmt.Errorf("%d boards match %q in non-interactive mode", len(metas), filter)
		}
		items := make([]string, len(metas))
		for n, meta := range metas {
			items[n] = FormatMeta(meta)
		}
		index = s.Shell.MultiChoice(items, "Which board to use?")
		if index < 0 {
			return fmt.Errorf("no board selected")
		}
	}
	s.Board = metas[index]
	s.Shell.SetPrompt(s.Board.InstanceName() + " > ")
	return nil
}

// Run runs the shell, evaluating args as one command if given.
func (s *Shell) Run(args ...string) {
	if s.Config.Board != "" {
		if err := s.Use(s.Config.Board); err != nil {
			log.Fatalf("use %q failed: %v", s.Config.Board, err)
		}
	}
	if len(args) > 0 {
		if err := s.Shell.Process(args...); err != nil {
			log.Fatalln(err)
		}
		return
	}
	if s.Interactive {
		s.Shell.Run()
		return
	}
	log.Fatalln("command expected")
}

// Main is a helper to provide a single call in main.
func Main() {
	env.SetupClientFlags()
	flag.Parse()
	conf := env.NewClientConfig()
	ctx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	connector, q := conf.MustConnect(ctx)
	cancel()
	defer q.Close()
	New(conf, connector).Run(flag.Args()...)
}
