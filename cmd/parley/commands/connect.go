package commands

import (
	"bufio"
	"context"
	"fmt"
	"net"
	"os"
	"sort"
	"strconv"
	"strings"
	"sync"
	"time"

	"github.com/spf13/cobra"
	"golang.org/x/term"

	"github.com/marmos91/parley/internal/cli/output"
	"github.com/marmos91/parley/internal/cli/prompt"
	"github.com/marmos91/parley/pkg/client"
)

var (
	connectAddr string
	connectPort int
	connectNick string
)

var connectCmd = &cobra.Command{
	Use:   "connect",
	Short: "Connect to a parley chat server",
	Long: `Connect to a parley chat server and start an interactive session.

Missing values are prompted for interactively. Once connected, plain
lines are broadcast to the room; lines starting with / are commands:

  /nick <name>        change your display name
  /msg <name> <text>  whisper to one participant
  /who                list who is in the room
  /quit               leave

Examples:
  # Connect to a local server
  parley connect

  # Connect to a remote server with a nick
  parley connect --addr chat.example.com --port 8080 --nick alice`,
	RunE: runConnect,
}

func init() {
	connectCmd.Flags().StringVarP(&connectAddr, "addr", "a", "localhost", "Server host to connect to")
	connectCmd.Flags().IntVarP(&connectPort, "port", "p", 8080, "Server port")
	connectCmd.Flags().StringVarP(&connectNick, "nick", "n", "", "Display name (prompted if omitted)")
}

// connectParams are the resolved connection settings for one session.
type connectParams struct {
	host string
	port int
	nick string
}

// resolveConnectParams fills in whatever the flags left unset. On an
// interactive terminal each missing value is prompted for with its
// flag default; otherwise the defaults stand as-is.
func resolveConnectParams(cmd *cobra.Command, interactive bool) (connectParams, error) {
	p := connectParams{host: connectAddr, port: connectPort, nick: connectNick}

	if interactive {
		var err error
		if !cmd.Flags().Changed("addr") {
			if p.host, err = prompt.Input("Server host", connectAddr); err != nil {
				return p, err
			}
		}
		if !cmd.Flags().Changed("port") {
			if p.port, err = prompt.InputPort("Server port", connectPort); err != nil {
				return p, err
			}
		}
		if !cmd.Flags().Changed("nick") {
			if p.nick, err = prompt.Input("Nick", client.DefaultNick); err != nil {
				return p, err
			}
		}
	}

	if p.port < 1 || p.port > 65535 {
		return p, fmt.Errorf("invalid port %d (must be 1-65535)", p.port)
	}

	return p, nil
}

func runConnect(cmd *cobra.Command, args []string) error {
	params, err := resolveConnectParams(cmd, term.IsTerminal(int(os.Stdin.Fd())))
	if err != nil {
		if prompt.IsAborted(err) {
			return nil
		}
		return err
	}

	addr := net.JoinHostPort(params.host, strconv.Itoa(params.port))

	ui := newConsoleUI()

	ctx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	cli, err := client.Connect(ctx, client.Config{Addr: addr, Nick: params.nick}, ui)
	cancel()
	if err != nil {
		return err
	}
	defer func() { _ = cli.Close() }()

	fmt.Printf("Connected to %s\n", addr)

	runErr := make(chan error, 1)
	go func() {
		runErr <- cli.Run()
	}()

	inputDone := make(chan struct{})
	go func() {
		defer close(inputDone)
		readInput(cli, ui)
	}()

	select {
	case err := <-runErr:
		if err != nil {
			return fmt.Errorf("connection lost: %w", err)
		}
		fmt.Println("Disconnected.")
		return nil
	case <-inputDone:
		_ = cli.Close()
		<-runErr
		fmt.Println("Bye.")
		return nil
	}
}

// readInput pumps stdin lines into client operations until EOF or /quit.
func readInput(cli *client.Client, ui *consoleUI) {
	scanner := bufio.NewScanner(os.Stdin)
	for scanner.Scan() {
		line := strings.TrimSpace(scanner.Text())
		if line == "" {
			continue
		}

		if !strings.HasPrefix(line, "/") {
			if err := cli.Say(line); err != nil {
				fmt.Printf("send failed: %v\n", err)
				return
			}
			continue
		}

		cmd, rest, _ := strings.Cut(line, " ")
		rest = strings.TrimSpace(rest)

		switch cmd {
		case "/quit", "/exit":
			return

		case "/nick":
			if rest == "" {
				fmt.Println("usage: /nick <name>")
				continue
			}
			if err := cli.Nick(rest); err != nil {
				fmt.Printf("send failed: %v\n", err)
				return
			}

		case "/msg", "/whisper":
			target, text, _ := strings.Cut(rest, " ")
			text = strings.TrimSpace(text)
			if target == "" || text == "" {
				fmt.Println("usage: /msg <name> <text>")
				continue
			}
			if err := cli.Whisper(target, text); err != nil {
				fmt.Printf("send failed: %v\n", err)
				return
			}

		case "/who":
			ui.printRoster(cli.CurrentNick())

		case "/help":
			fmt.Println("Commands: /nick <name>, /msg <name> <text>, /who, /quit")

		default:
			fmt.Printf("unknown command %s (try /help)\n", cmd)
		}
	}
}

// consoleUI renders server events to stdout and tracks the room roster.
// The roster is fed by the presence signals: the join echo after
// connecting seeds it, one entry per participant.
type consoleUI struct {
	mu     sync.Mutex
	roster map[string]struct{}
}

func newConsoleUI() *consoleUI {
	return &consoleUI{roster: make(map[string]struct{})}
}

func stamp() string {
	return time.Now().Format("15:04")
}

func (ui *consoleUI) Chat(from, text string) {
	fmt.Printf("[%s] %s: %s\n", stamp(), from, text)
}

func (ui *consoleUI) Whisper(from, text string) {
	fmt.Printf("[%s] %s (whisper): %s\n", stamp(), from, text)
}

func (ui *consoleUI) Joined(name string) {
	ui.mu.Lock()
	_, known := ui.roster[name]
	ui.roster[name] = struct{}{}
	ui.mu.Unlock()

	// The roster echo repeats names we already know; stay quiet then.
	if !known {
		fmt.Printf("[%s] * %s joined\n", stamp(), name)
	}
}

func (ui *consoleUI) Left(name string) {
	ui.mu.Lock()
	delete(ui.roster, name)
	ui.mu.Unlock()

	fmt.Printf("[%s] * %s left\n", stamp(), name)
}

func (ui *consoleUI) Renamed(oldName, newName string) {
	ui.mu.Lock()
	delete(ui.roster, oldName)
	ui.roster[newName] = struct{}{}
	ui.mu.Unlock()

	fmt.Printf("[%s] * %s is now known as %s\n", stamp(), oldName, newName)
}

func (ui *consoleUI) WhisperSent(target, text string) {
	fmt.Printf("[%s] -> %s (whisper): %s\n", stamp(), target, text)
}

func (ui *consoleUI) WhisperFailed(target string) {
	fmt.Printf("[%s] * no such participant: %s\n", stamp(), target)
}

func (ui *consoleUI) NickChanged(oldName, newName string) {
	fmt.Printf("[%s] * you are now known as %s\n", stamp(), newName)
}

func (ui *consoleUI) NickRejected(payload string) {
	fmt.Printf("[%s] * nick rejected: %s\n", stamp(), payload)
}

// printRoster renders the current roster as a table.
func (ui *consoleUI) printRoster(self string) {
	ui.mu.Lock()
	names := make([]string, 0, len(ui.roster))
	for name := range ui.roster {
		names = append(names, name)
	}
	ui.mu.Unlock()

	sort.Strings(names)

	table := output.NewTableData("NICK", "")
	for _, name := range names {
		marker := ""
		if name == self {
			marker = "(you)"
		}
		table.AddRow(name, marker)
	}

	fmt.Printf("%d participant(s):\n", len(names))
	_ = output.PrintTable(os.Stdout, table)
}
