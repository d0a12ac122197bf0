// Package cli implements an interactive REPL and scripted command runner
// built on the redwire client library, used by cmd/redwire-cli as a
// development and smoke-test tool.
package cli

import (
	"bufio"
	"context"
	"fmt"
	"io"
	"os"
	"strings"
	"time"

	"golang.org/x/term"

	"redwire"
)

// Config holds the configuration for the CLI.
type Config struct {
	Host     string
	Port     int
	Password string
	Database int
	Timeout  time.Duration
	TLS      bool
	Raw      bool
	Eval     string
	File     string
	Pipe     bool
}

// CommandHistory manages command history for the CLI.
type CommandHistory struct {
	commands []string
	position int
	maxSize  int
}

// NewCommandHistory creates a new command history with specified max size.
func NewCommandHistory(maxSize int) *CommandHistory {
	return &CommandHistory{
		commands: make([]string, 0, maxSize),
		position: 0,
		maxSize:  maxSize,
	}
}

func (h *CommandHistory) Len() int {
	return len(h.commands)
}

// Add adds a command to history.
func (h *CommandHistory) Add(command string) {
	if command == "" || (len(h.commands) > 0 && h.commands[len(h.commands)-1] == command) {
		return
	}

	h.commands = append(h.commands, command)
	if len(h.commands) > h.maxSize {
		h.commands = h.commands[1:]
	}
	h.position = len(h.commands)
}

// Previous returns the previous command in history.
func (h *CommandHistory) Previous() string {
	if len(h.commands) == 0 {
		return ""
	}
	if h.position >= len(h.commands) {
		h.position = len(h.commands) - 1
		return h.commands[h.position]
	}
	if h.position > 0 {
		h.position--
		return h.commands[h.position]
	}
	return ""
}

// Next returns the next command in history.
func (h *CommandHistory) Next() string {
	if len(h.commands) == 0 {
		return ""
	}
	if h.position < len(h.commands)-1 {
		h.position++
		return h.commands[h.position]
	}
	h.position = len(h.commands)
	return ""
}

// ResetPosition resets the position to the end (current input).
func (h *CommandHistory) ResetPosition() {
	h.position = len(h.commands)
}

func connect(config *Config) (*redwire.Client, error) {
	return redwire.Connect(context.Background(), redwire.Options{
		Host:        config.Host,
		Port:        config.Port,
		TLS:         config.TLS,
		Password:    config.Password,
		DB:          config.Database,
		DialTimeout: config.Timeout,
	})
}

func executeCommand(client *redwire.Client, command string, raw bool) {
	name, args := parseCommand(command)
	if name == "" {
		fmt.Fprintf(os.Stderr, "Invalid command: %s\n", command)
		os.Exit(1)
	}

	r, err := client.Exec(context.Background(), name, args...)
	if err != nil {
		fmt.Fprintf(os.Stderr, "Error: %v\n", err)
		os.Exit(1)
	}
	if raw {
		fmt.Print(formatRaw(r))
	} else {
		fmt.Println(formatResponse(r))
	}
}

func executeFile(client *redwire.Client, filename string, raw bool) {
	file, err := os.Open(filename)
	if err != nil {
		fmt.Fprintf(os.Stderr, "Error opening file %s: %v\n", filename, err)
		os.Exit(1)
	}
	defer file.Close()

	scanner := bufio.NewScanner(file)
	lineNum := 0
	for scanner.Scan() {
		lineNum++
		line := strings.TrimSpace(scanner.Text())
		if line == "" || strings.HasPrefix(line, "#") {
			continue
		}

		name, args := parseCommand(line)
		if name == "" {
			fmt.Fprintf(os.Stderr, "Invalid command at line %d: %s\n", lineNum, line)
			continue
		}

		r, err := client.Exec(context.Background(), name, args...)
		if err != nil {
			fmt.Fprintf(os.Stderr, "Error at line %d: %v\n", lineNum, err)
			continue
		}
		if raw {
			fmt.Print(formatRaw(r))
		} else {
			fmt.Printf("Line %d: %s\n", lineNum, formatResponse(r))
		}
	}
	if err := scanner.Err(); err != nil {
		fmt.Fprintf(os.Stderr, "Error reading file: %v\n", err)
		os.Exit(1)
	}
}

func executePipe(client *redwire.Client, raw bool) {
	scanner := bufio.NewScanner(os.Stdin)
	for scanner.Scan() {
		line := strings.TrimSpace(scanner.Text())
		if line == "" {
			continue
		}
		name, args := parseCommand(line)
		if name == "" {
			fmt.Fprintf(os.Stderr, "Invalid command: %s\n", line)
			continue
		}
		r, err := client.Exec(context.Background(), name, args...)
		if err != nil {
			fmt.Fprintf(os.Stderr, "Error: %v\n", err)
			continue
		}
		if raw {
			fmt.Print(formatRaw(r))
		} else {
			fmt.Println(formatResponse(r))
		}
	}
	if err := scanner.Err(); err != nil {
		fmt.Fprintf(os.Stderr, "Error reading stdin: %v\n", err)
		os.Exit(1)
	}
}

func executeInteractive(client *redwire.Client, config *Config) {
	fmt.Printf("redwire-cli\n")
	fmt.Printf("Connected to %s:%d\n", config.Host, config.Port)
	if config.Database != 0 {
		fmt.Printf("Using database %d\n", config.Database)
	}
	fmt.Printf("Type 'help' for commands, 'quit' to exit\n")
	fmt.Printf("Use arrow keys to navigate command history\n\n")

	history := NewCommandHistory(100)

	oldState, err := term.MakeRaw(int(os.Stdin.Fd()))
	if err != nil {
		fmt.Fprintf(os.Stderr, "\r\nWarning: could not set terminal to raw mode, arrow key navigation disabled (%v)\r\n", err)
		executeInteractiveFallback(client, config, history)
		return
	}
	defer term.Restore(int(os.Stdin.Fd()), oldState)

	reader := bufio.NewReader(os.Stdin)
	currentInput := ""

	for {
		input, err := readInputWithHistory(reader, history, &currentInput)
		if err != nil {
			if err == io.EOF {
				fmt.Println()
				break
			}
			fmt.Fprintf(os.Stderr, "Error reading input: %v\n", err)
			continue
		}

		fmt.Print("redwire> ")
		input = strings.TrimSpace(input)
		if input == "" {
			continue
		}
		if input == "quit" || input == "exit" {
			break
		}
		if input == "help" {
			printHelp()
			continue
		}
		if input == "clear" {
			fmt.Print("\033[H\033[2J")
			continue
		}

		history.Add(input)
		name, args := parseCommand(input)
		if name == "" {
			fmt.Fprintf(os.Stderr, "Invalid command: %s\n", input)
			continue
		}

		r, err := client.Exec(context.Background(), name, args...)
		if err != nil {
			fmt.Fprintf(os.Stderr, "Error: %v\n", err)
			continue
		}
		if config.Raw {
			fmt.Print("\r" + formatRaw(r) + "\r")
		} else {
			fmt.Println("\r" + formatResponse(r) + "\r")
		}
	}

	fmt.Print("\rGoodbye!")
}

// executeInteractiveFallback is used when raw mode is not available.
func executeInteractiveFallback(client *redwire.Client, config *Config, history *CommandHistory) {
	reader := bufio.NewReader(os.Stdin)

	for {
		fmt.Print("redwire> ")
		input, err := reader.ReadString('\n')
		if err != nil {
			if err == io.EOF {
				fmt.Println()
				break
			}
			fmt.Fprintf(os.Stderr, "Error reading input: %v\n", err)
			continue
		}

		input = strings.TrimSpace(input)
		if input == "" {
			continue
		}
		if input == "quit" || input == "exit" {
			break
		}
		if input == "help" {
			printHelp()
			continue
		}
		if input == "clear" {
			fmt.Print("\033[H\033[2J")
			continue
		}

		history.Add(input)
		name, args := parseCommand(input)
		if name == "" {
			fmt.Fprintf(os.Stderr, "Invalid command: %s\n", input)
			continue
		}

		r, err := client.Exec(context.Background(), name, args...)
		if err != nil {
			fmt.Fprintf(os.Stderr, "Error: %v\n", err)
			continue
		}
		if config.Raw {
			fmt.Print(formatRaw(r))
		} else {
			fmt.Println(formatResponse(r))
		}
	}

	fmt.Println("Goodbye!")
}

// readInputWithHistory reads input with arrow key support for history
// navigation. Pure terminal-handling logic, unrelated to the wire
// protocol, so it carries over unchanged.
func readInputWithHistory(reader *bufio.Reader, history *CommandHistory, currentInput *string) (string, error) {
	var input strings.Builder
	cursorPos := 0

	for {
		char, err := reader.ReadByte()
		if err != nil {
			return "", err
		}

		if char == 27 { // ESC
			nextChar, err := reader.ReadByte()
			if err != nil {
				return "", err
			}

			if nextChar == 91 { // [
				thirdChar, err := reader.ReadByte()
				if err != nil {
					return "", err
				}

				switch thirdChar {
				case 65: // Up arrow
					if history.Len() == 0 || history.position == 0 {
						continue
					}
					fmt.Print("\r\033[K")
					prevCmd := history.Previous()
					if prevCmd != "" {
						*currentInput = prevCmd
						input.Reset()
						input.WriteString(prevCmd)
						cursorPos = len(prevCmd)
						fmt.Print("redwire> " + prevCmd)
					}
					continue

				case 66: // Down arrow
					fmt.Print("\r\033[K")
					nextCmd := history.Next()
					if nextCmd != "" {
						*currentInput = nextCmd
						input.Reset()
						input.WriteString(nextCmd)
						cursorPos = len(nextCmd)
						fmt.Print("redwire> " + nextCmd)
					} else {
						*currentInput = ""
						input.Reset()
						cursorPos = 0
						fmt.Print("redwire> ")
					}
					continue

				case 67: // Right arrow
					if cursorPos < input.Len() {
						cursorPos++
						fmt.Print("\033[C")
					}
					continue

				case 68: // Left arrow
					if cursorPos > 0 {
						cursorPos--
						fmt.Print("\033[D")
					}
					continue

				case 72: // Home
					fmt.Print("\rredwire> ")
					cursorPos = 0
					continue

				case 70: // End
					fmt.Printf("\033[%dC", input.Len()-cursorPos)
					cursorPos = input.Len()
					continue

				case 51: // Delete
					deleteChar, err := reader.ReadByte()
					if err != nil {
						return "", err
					}
					if deleteChar == 126 && cursorPos < input.Len() { // ~
						current := input.String()
						if cursorPos < len(current) {
							newStr := current[:cursorPos] + current[cursorPos+1:]
							input.Reset()
							input.WriteString(newStr)
							fmt.Print("\033[P")
						}
					}
					continue
				}
			}
		}

		if char == 127 { // Backspace
			if cursorPos > 0 {
				current := input.String()
				newStr := current[:cursorPos-1] + current[cursorPos:]
				input.Reset()
				input.WriteString(newStr)
				cursorPos--
				fmt.Print("\b \b")
			}
			continue
		}

		if char == 3 { // Ctrl+C
			fmt.Print("\r\nUse 'quit' or 'exit' to exit the CLI\n")
			fmt.Print("\rredwire> ")
			input.Reset()
			cursorPos = 0
			continue
		}

		if char == 10 || char == 13 { // Enter
			fmt.Println()
			return input.String(), nil
		}

		if char >= 32 && char <= 126 { // Printable ASCII
			current := input.String()
			newStr := current[:cursorPos] + string(char) + current[cursorPos:]
			input.Reset()
			input.WriteString(newStr)
			cursorPos++
			fmt.Print(string(char))
		}
	}
}

// parseCommand splits a line of input into a command name and its
// arguments, ready to hand to Client.Exec.
func parseCommand(input string) (string, []any) {
	parts := strings.Fields(input)
	if len(parts) == 0 {
		return "", nil
	}
	args := make([]any, len(parts)-1)
	for i, p := range parts[1:] {
		args[i] = p
	}
	return parts[0], args
}

func formatResponse(r redwire.Reply) string {
	switch r.Type {
	case redwire.Status:
		return r.Str
	case redwire.Error:
		return "(error) " + r.Str
	case redwire.Integer:
		return fmt.Sprintf("(integer) %d", r.Int)
	case redwire.Bulk:
		if r.IsNil {
			return "(nil)"
		}
		return r.Str
	case redwire.Array:
		if r.IsNil {
			return "(nil)"
		}
		var b strings.Builder
		for i, el := range r.Elems {
			fmt.Fprintf(&b, "%d) %s\n", i+1, formatResponse(el))
		}
		return strings.TrimSuffix(b.String(), "\n")
	default:
		return ""
	}
}

func formatRaw(r redwire.Reply) string {
	return formatResponse(r) + "\n"
}

func printHelp() {
	fmt.Println("\rredwire-cli commands:\r")
	fmt.Println("\r  help                    - Show this help\r")
	fmt.Println("\r  quit, exit              - Exit the CLI\r")
	fmt.Println("\r  clear                   - Clear the screen\r")
	fmt.Println("\r\r")
	fmt.Println("\rNavigation:\r")
	fmt.Println("\r  arrow keys              - Navigate command history\r")
	fmt.Println("\r  <-/-> arrows            - Move cursor left/right\r")
	fmt.Println("\r  Home/End                - Move to start/end of line\r")
	fmt.Println("\r  Backspace               - Delete character\r")
	fmt.Println("\r\r")
	fmt.Println("\rAny RESP2 command can be typed directly, e.g.:\r")
	fmt.Println("\r  PING\r")
	fmt.Println("\r  SET key value\r")
	fmt.Println("\r  GET key\r")
	fmt.Println("\r  SUBSCRIBE channel\r")
	fmt.Println("\r")
}

// Run connects to the server described by config and dispatches to the
// matching mode: single command, file, piped stdin, or interactive REPL.
func Run(config *Config, args []string) {
	client, err := connect(config)
	if err != nil {
		fmt.Fprintf(os.Stderr, "Error connecting to %s:%d: %v\n", config.Host, config.Port, err)
		os.Exit(1)
	}
	defer client.Close()

	switch {
	case config.Eval != "":
		executeCommand(client, config.Eval, config.Raw)
	case len(args) > 0:
		executeCommand(client, strings.Join(args, " "), config.Raw)
	case config.File != "":
		executeFile(client, config.File, config.Raw)
	case config.Pipe:
		executePipe(client, config.Raw)
	default:
		executeInteractive(client, config)
	}
}
