// Package cli is a line-oriented front end for the map experience. Each
// command is forwarded to the orchestrator on its event loop.
package cli

import (
	"bufio"
	"context"
	"fmt"
	"io"
	"os"
	"strings"

	"mapquester/experience"
	"mapquester/utils/errors"

	"github.com/chzyer/readline"
)

// ErrExit is returned by ExecuteCommand when the user asked to leave.
var ErrExit = errors.New("exit requested")

// Runner executes fn on the experience event loop and waits for it.
type Runner interface {
	Do(ctx context.Context, fn func()) error
}

// Accounts signs the user in and out of the backend.
type Accounts interface {
	Login(ctx context.Context, username, password string) error
	Signup(ctx context.Context, username, email, password string) error
	Logout(ctx context.Context)
}

type CLI struct {
	Map      *experience.Orchestrator
	Loop     Runner
	Accounts Accounts
	Address  *AddressBar
	RL       *readline.Instance
	Out      io.Writer

	lastNotice int
}

func NewCLI(m *experience.Orchestrator, loop Runner, accounts Accounts, address *AddressBar, rl *readline.Instance) *CLI {
	c := &CLI{
		Map:      m,
		Loop:     loop,
		Accounts: accounts,
		Address:  address,
		RL:       rl,
		Out:      os.Stdout,
	}
	if rl != nil {
		c.Out = rl.Stdout()
	}
	return c
}

// Run reads and executes one line.
func (c *CLI) Run(ctx context.Context) error {
	line, err := c.RL.Readline()
	if err != nil {
		return err
	}

	line = strings.TrimSpace(line)
	if len(line) == 0 {
		return nil
	}

	return c.ExecuteCommand(ctx, c.ParseArgs(line))
}

// ExecuteScript runs every non-empty, non-comment line of the file at path.
func (c *CLI) ExecuteScript(ctx context.Context, path string) error {
	f, err := os.Open(path)
	if err != nil {
		return fmt.Errorf("open script: %w", err)
	}
	defer f.Close()

	scanner := bufio.NewScanner(f)
	lineNo := 0
	for scanner.Scan() {
		lineNo++
		line := strings.TrimSpace(scanner.Text())
		if line == "" || strings.HasPrefix(line, "#") {
			continue
		}
		fmt.Fprintf(c.Out, "> %s\n", line)
		if err := c.ExecuteCommand(ctx, c.ParseArgs(line)); err != nil {
			if errors.Is(err, ErrExit) {
				return err
			}
			return fmt.Errorf("line %d: %w", lineNo, err)
		}
	}
	return scanner.Err()
}

// ParseArgs splits input on spaces, keeping double-quoted runs together.
func (c *CLI) ParseArgs(input string) []string {
	var args []string
	var currentArg strings.Builder
	inQuotes := false
	quoted := false

	for _, char := range input {
		switch char {
		case '"':
			inQuotes = !inQuotes
			quoted = true
		case ' ', '\t':
			if !inQuotes {
				if currentArg.Len() > 0 || quoted {
					args = append(args, currentArg.String())
					currentArg.Reset()
					quoted = false
				}
			} else {
				currentArg.WriteRune(char)
			}
		default:
			currentArg.WriteRune(char)
		}
	}

	if currentArg.Len() > 0 || quoted {
		args = append(args, currentArg.String())
	}

	return args
}

func (c *CLI) ExecuteCommand(ctx context.Context, args []string) error {
	if len(args) == 0 {
		return fmt.Errorf("no command provided")
	}

	rest := args[1:]
	switch strings.ToLower(args[0]) {
	case "login":
		return c.handleLogin(ctx, rest)
	case "signup":
		return c.handleSignup(ctx, rest)
	case "logout":
		return c.handleLogout(ctx)
	case "tap":
		return c.handleTap(ctx, rest)
	case "add":
		return c.onLoop(ctx, c.Map.AddPointHere)
	case "select", "open":
		return c.handleSelect(ctx, rest)
	case "set":
		return c.handleSet(ctx, rest)
	case "attach":
		return c.handleAttach(ctx, rest)
	case "submit", "save":
		return c.handleSubmit(ctx)
	case "edit":
		return c.onLoop(ctx, c.Map.BeginEdit)
	case "cancel":
		return c.handleCancel(ctx)
	case "delete", "del":
		return c.onLoop(ctx, c.Map.RequestDelete)
	case "yes", "confirm":
		return c.handleConfirm(ctx, true)
	case "no":
		return c.handleConfirm(ctx, false)
	case "close":
		return c.onLoop(ctx, func() error { c.Map.Close(); return nil })
	case "filter":
		return c.handleFilter(ctx, rest)
	case "filters":
		return c.handleFilters(ctx, rest)
	case "mode":
		return c.handleMode(ctx, rest)
	case "more":
		return c.handleMore(ctx)
	case "retry":
		return c.handleRetry(ctx)
	case "refresh", "reload":
		return c.onLoop(ctx, func() error {
			c.Map.Refresh()
			return nil
		})
	case "move":
		return c.handleMove(ctx, rest)
	case "recenter":
		return c.handleRecenter(ctx)
	case "react":
		return c.onLoop(ctx, c.Map.React)
	case "comment":
		return c.handleComment(ctx, rest)
	case "dismiss":
		return c.handleDismiss(ctx, rest)
	case "show":
		return c.handleShow(ctx)
	case "url":
		fmt.Fprintf(c.Out, "?%s\n", c.Address.Query())
		return nil
	case "help":
		c.printHelp(strings.Join(rest, " "))
		return nil
	case "exit", "quit":
		fmt.Fprintln(c.Out, "Exiting...")
		return ErrExit
	default:
		return fmt.Errorf("unknown command: %s", args[0])
	}
}

// onLoop runs fn on the event loop and returns its error.
func (c *CLI) onLoop(ctx context.Context, fn func() error) error {
	var err error
	if loopErr := c.Loop.Do(ctx, func() { err = fn() }); loopErr != nil {
		return loopErr
	}
	return err
}

func (c *CLI) snapshot(ctx context.Context) (experience.Presentation, error) {
	var p experience.Presentation
	err := c.Loop.Do(ctx, func() { p = c.Map.Presentation() })
	return p, err
}

// Changed prints notices raised since the last call. It must run on the
// event loop.
func (c *CLI) Changed() {
	for _, n := range c.Map.Presentation().Notices {
		if n.ID <= c.lastNotice {
			continue
		}
		c.lastNotice = n.ID
		fmt.Fprintf(c.Out, "[%s #%d] %s\n", n.Level, n.ID, n.Message)
	}
}
