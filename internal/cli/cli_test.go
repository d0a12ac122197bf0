package cli

import (
	"bufio"
	"io"
	"os"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"

	"redwire"
)

func TestCommandHistory(t *testing.T) {
	history := NewCommandHistory(5)
	assert.NotNil(t, history)
	assert.Equal(t, 0, history.Len())

	history.Add("PING")
	assert.Equal(t, 1, history.Len())

	history.Add("SET key value")
	assert.Equal(t, 2, history.Len())

	history.Add("")
	assert.Equal(t, 2, history.Len())

	history.Add("SET key value")
	assert.Equal(t, 2, history.Len())

	prev := history.Previous()
	assert.Equal(t, "SET key value", prev)

	prev = history.Previous()
	assert.Equal(t, "PING", prev)

	next := history.Next()
	assert.Equal(t, "SET key value", next)

	next = history.Next()
	assert.Equal(t, "", next)

	history.Add("GET key")
	history.Add("DEL key")
	history.Add("EXISTS key")
	history.Add("KEYS *")
	assert.Equal(t, 5, history.Len())
}

func TestCommandHistoryMaxSize(t *testing.T) {
	history := NewCommandHistory(3)

	history.Add("CMD1")
	history.Add("CMD2")
	history.Add("CMD3")
	history.Add("CMD4")
	history.Add("CMD5")

	assert.Equal(t, 3, history.Len())

	history.ResetPosition()
	prev := history.Previous()
	assert.Equal(t, "CMD5", prev)

	prev = history.Previous()
	assert.Equal(t, "CMD4", prev)

	prev = history.Previous()
	assert.Equal(t, "CMD3", prev)
}

func TestCommandHistoryNavigation(t *testing.T) {
	history := NewCommandHistory(10)

	history.Add("PING")
	history.Add("SET key value")
	history.Add("GET key")

	assert.Equal(t, "GET key", history.Previous())
	assert.Equal(t, "SET key value", history.Previous())
	assert.Equal(t, "PING", history.Previous())
	assert.Equal(t, "", history.Previous())

	assert.Equal(t, "SET key value", history.Next())
	assert.Equal(t, "GET key", history.Next())
	assert.Equal(t, "", history.Next())

	history.ResetPosition()
	assert.Equal(t, "", history.Next())
}

func TestArrowKeyInput(t *testing.T) {
	reader := bufio.NewReader(strings.NewReader("test\n"))

	history := NewCommandHistory(10)
	history.Add("PING")
	history.Add("SET key value")

	currentInput := ""

	input, err := readInputWithHistory(reader, history, &currentInput)
	assert.NoError(t, err)
	assert.Equal(t, "test", input)

	assert.Equal(t, 2, len(history.commands))
	assert.Equal(t, "PING", history.commands[0])
	assert.Equal(t, "SET key value", history.commands[1])
}

func TestCtrlCHandling(t *testing.T) {
	reader := bufio.NewReader(strings.NewReader("test\x03\n"))

	history := NewCommandHistory(10)
	currentInput := ""

	input, err := readInputWithHistory(reader, history, &currentInput)
	assert.NoError(t, err)
	assert.Equal(t, "", input)
}

func TestParseCommand(t *testing.T) {
	name, args := parseCommand("PING")
	assert.Equal(t, "PING", name)
	assert.Empty(t, args)

	name, args = parseCommand("SET key value")
	assert.Equal(t, "SET", name)
	assert.Equal(t, []any{"key", "value"}, args)

	name, args = parseCommand("MSET key1 value1 key2 value2")
	assert.Equal(t, "MSET", name)
	assert.Equal(t, []any{"key1", "value1", "key2", "value2"}, args)

	name, args = parseCommand("")
	assert.Equal(t, "", name)
	assert.Nil(t, args)

	name, args = parseCommand("  SET   key   value  ")
	assert.Equal(t, "SET", name)
	assert.Equal(t, []any{"key", "value"}, args)
}

func TestFormatResponse(t *testing.T) {
	assert.Equal(t, "OK", formatResponse(redwire.Reply{Type: redwire.Status, Str: "OK"}))
	assert.Equal(t, "(error) ERR unknown command", formatResponse(redwire.Reply{Type: redwire.Error, Str: "ERR unknown command"}))
	assert.Equal(t, "(integer) 42", formatResponse(redwire.Reply{Type: redwire.Integer, Int: 42}))
	assert.Equal(t, "(nil)", formatResponse(redwire.Reply{Type: redwire.Bulk, IsNil: true}))
	assert.Equal(t, "hello", formatResponse(redwire.Reply{Type: redwire.Bulk, Str: "hello"}))
	assert.Equal(t, "(nil)", formatResponse(redwire.Reply{Type: redwire.Array, IsNil: true}))

	arr := formatResponse(redwire.Reply{Type: redwire.Array, Elems: []redwire.Reply{
		{Type: redwire.Bulk, Str: "foo"},
		{Type: redwire.Bulk, Str: "bar"},
	}})
	assert.Equal(t, "1) foo\n2) bar", arr)
}

func TestPrintHelp(t *testing.T) {
	oldStdout := os.Stdout
	r, w, _ := os.Pipe()
	os.Stdout = w

	printHelp()

	w.Close()
	os.Stdout = oldStdout
	var buf strings.Builder
	io.Copy(&buf, r)
	output := buf.String()

	assert.Contains(t, output, "redwire-cli commands:")
	assert.Contains(t, output, "help")
	assert.Contains(t, output, "quit")
	assert.Contains(t, output, "Navigation:")
	assert.Contains(t, output, "arrow keys")
	assert.Contains(t, output, "PING")
	assert.Contains(t, output, "SET")
	assert.Contains(t, output, "GET")
}
