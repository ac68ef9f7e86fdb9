package sh

import (
	"fmt"
	"os"
	"os/signal"
	"strconv"
	"time"

	"github.com/abiosoft/ishell"

	pb "github.com/robotalks/rubi.go/pkg/proto/rubi/v1"
)

func powerCmd(kind pb.CommandKind) func(c *ishell.Context) {
	return MustUseBoard(func(c *ishell.Context, s *Shell) {
		if err := s.Connector.Command(s.Board, kind); err != nil {
			c.Err(err)
			return
		}
		c.Println("OK")
	})
}

var (
	// BoardsCmd lists online boards.
	BoardsCmd = ishell.Cmd{
		Name:    "boards",
		Aliases: []string{"list", "l"},
		Help:    "[NAME[:ID]]",
		Func: func(c *ishell.Context) {
			s := ShellFrom(c)
			var filter string
			if len(c.Args) > 0 {
				filter = c.Args[0]
			}
			metas, err := s.Discover(filter)
			if err != nil {
				c.Err(err)
				return
			}
			if s.OutputJSON {
				s.print(c, metas, "")
				return
			}
			if len(metas) == 0 {
				c.Println("No boards found")
				return
			}
			for _, meta := range metas {
				c.Println(FormatMeta(meta))
			}
		},
	}

	// UseCmd selects the board other commands apply to.
	UseCmd = ishell.Cmd{
		Name:    "use",
		Aliases: []string{"u"},
		Help:    "NAME[:ID]",
		Func: func(c *ishell.Context) {
			if len(c.Args) != 1 {
				c.Err(fmt.Errorf("usage: use NAME[:ID]"))
				return
			}
			if err := ShellFrom(c).Use(c.Args[0]); err != nil {
				c.Err(err)
			}
		},
	}

	// InfoCmd prints the descriptor of the board.
	InfoCmd = ishell.Cmd{
		Name:    "info",
		Aliases: []string{"i"},
		Func: MustUseBoard(func(c *ishell.Context, s *Shell) {
			if s.OutputJSON {
				s.print(c, s.Board, "")
				return
			}
			c.Println(FormatMeta(s.Board))
			if s.Board.Driver != "" {
				c.Println("driver:", s.Board.Driver)
			}
			for n := range s.Board.Entries {
				c.Println(FormatEntry(&s.Board.Entries[n]))
			}
		}),
	}

	// GetCmd waits for the next value of a field.
	GetCmd = ishell.Cmd{
		Name: "get",
		Help: "FIELD",
		Func: MustUseBoard(func(c *ishell.Context, s *Shell) {
			if len(c.Args) != 1 {
				c.Err(fmt.Errorf("usage: get FIELD"))
				return
			}
			ctx, cancel := s.context()
			defer cancel()
			value, err := s.Connector.Get(ctx, s.Board, c.Args[0])
			if err != nil {
				c.Err(err)
				return
			}
			s.print(c, value, FormatValue(value))
		}),
	}

	// SetCmd writes a field.
	SetCmd = ishell.Cmd{
		Name: "set",
		Help: "FIELD VALUE...",
		Func: MustUseBoard(func(c *ishell.Context, s *Shell) {
			if len(c.Args) < 2 {
				c.Err(fmt.Errorf("usage: set FIELD VALUE..."))
				return
			}
			if err := s.Connector.Set(s.Board, c.Args[0], c.Args[1:]); err != nil {
				c.Err(err)
				return
			}
			c.Println("OK")
		}),
	}

	// CallCmd invokes a function and prints the result.
	CallCmd = ishell.Cmd{
		Name: "call",
		Help: "FUNCTION ARG...",
		Func: MustUseBoard(func(c *ishell.Context, s *Shell) {
			if len(c.Args) < 1 {
				c.Err(fmt.Errorf("usage: call FUNCTION ARG..."))
				return
			}
			ctx, cancel := s.context()
			defer cancel()
			result, err := s.Connector.Call(ctx, s.Board, c.Args[0], c.Args[1:])
			if err != nil {
				c.Err(err)
				return
			}
			s.print(c, result, FormatValue(result))
		}),
	}

	// SleepCmd puts the board to sleep.
	SleepCmd = ishell.Cmd{Name: "sleep", Func: powerCmd(pb.CommandKind_SLEEP)}
	// WakeCmd wakes the board up.
	WakeCmd = ishell.Cmd{Name: "wake", Func: powerCmd(pb.CommandKind_WAKE)}
	// RebootCmd reboots the board.
	RebootCmd = ishell.Cmd{Name: "reboot", Func: powerCmd(pb.CommandKind_REBOOT)}

	// WatchCmd prints values as they arrive until Ctrl-C or SECONDS elapse.
	WatchCmd = ishell.Cmd{
		Name:    "watch",
		Aliases: []string{"w"},
		Help:    "[SECONDS]",
		Func: MustUseBoard(func(c *ishell.Context, s *Shell) {
			var limit <-chan time.Time
			if len(c.Args) > 0 {
				secs, err := strconv.ParseFloat(c.Args[0], 64)
				if err != nil {
					c.Err(err)
					return
				}
				limit = time.After(time.Duration(secs * float64(time.Second)))
			}
			values := make(chan *pb.FieldValue, 16)
			watcher := s.Connector.Watch(s.Board, func(v *pb.FieldValue) {
				select {
				case values <- v:
				default:
				}
			})
			defer watcher.Close()
			sigCh := make(chan os.Signal, 1)
			signal.Notify(sigCh, os.Interrupt)
			defer signal.Stop(sigCh)
			for {
				select {
				case v := <-values:
					s.print(c, v, FormatValue(v))
				case <-limit:
					return
				case <-sigCh:
					return
				}
			}
		}),
	}
)
