// Package repl runs an interactive console conversation with a single agent,
// rendering assistant markdown and tool traffic as they stream in.
package repl

import (
	"bufio"
	"context"
	"errors"
	"fmt"
	"os"
	"slices"
	"strings"

	"github.com/charmbracelet/glamour"
	"github.com/fatih/color"

	"github.com/ridewell/waybill"
	"github.com/ridewell/waybill/api"
	"github.com/ridewell/waybill/events"
	"github.com/ridewell/waybill/internal/executor"
	"github.com/ridewell/waybill/internal/shorttermmemory"
	"github.com/ridewell/waybill/messages"
)

type noopPromise struct{}

func (noopPromise) Complete(string) {}
func (noopPromise) Error(error)     {}

var glam *glamour.TermRenderer

func init() {
	var err error
	glam, err = glamour.NewTermRenderer(
		glamour.WithAutoStyle(),
	)
	if err != nil {
		panic(err)
	}
}

// Run reads prompts from stdin until "exit" or EOF, sending each through the
// agent while keeping the conversation history across turns.
func Run(ctx context.Context, agent api.Agent) error {
	scanner := bufio.NewScanner(os.Stdin)
	scanner.Split(bufio.ScanLines)
	history := shorttermmemory.New()

	for {
		fmt.Printf("%s: ", color.CyanString("User"))
		if !scanner.Scan() {
			fmt.Println("Exiting...")
			break
		}

		input := scanner.Text()
		if strings.EqualFold(input, "exit") {
			break
		}

		finished, hook := Console[string]()
		cmd, err := executor.NewRunCommand(agent, history, hook)
		if err != nil {
			return err
		}

		umsg := messages.New().WithSender("User").UserPrompt(input)
		history.AddUserPrompt(umsg)
		hook.OnUserPrompt(ctx, umsg)
		exec := executor.NewLocal()

		go func() {
			defer hook.OnClose(ctx)
			if err := exec.Run(ctx, cmd.WithStream(true), noopPromise{}); err != nil {
				if errors.Is(err, context.Canceled) {
					return
				}
			}
		}()

		Render(finished)
	}
	return nil
}

// Render drains the event channel, printing the conversation as it unfolds.
// It returns when the channel closes.
func Render(finished <-chan events.Event) {
	var content string
	var streaming bool
	var lastSender string

	for msg := range finished {
		switch m := msg.(type) {
		case events.Request[messages.UserMessage]:
			fmt.Fprintln(os.Stdout)
		case events.Chunk[messages.AssistantMessage]:
			if !streaming {
				streaming = true
				fmt.Fprintln(os.Stdout)
			}
			if m.Sender != "" {
				lastSender = m.Sender
			}

			if m.Chunk.Content.Content != "" {
				if content == "" && lastSender != "" {
					fmt.Fprint(os.Stdout, color.MagentaString(lastSender)+": ")
					lastSender = ""
				}

				fmt.Fprint(os.Stdout, m.Chunk.Content.Content)
				content += m.Chunk.Content.Content
			}
		case events.Chunk[messages.ToolCallMessage]:
			if !streaming {
				streaming = true
			}
			if m.Sender != "" {
				lastSender = m.Sender
			}

			for _, tc := range m.Chunk.ToolCalls {
				if tc.Name == "" {
					continue
				}
				args := strings.ReplaceAll(tc.Arguments, ": ", "=")
				fmt.Fprintf(os.Stdout, "%s%s\n", color.YellowString(tc.Name), args)
			}
		case events.Response[messages.ToolCallMessage]:
			if streaming || len(content) > 0 {
				content = ""
				fmt.Fprintln(os.Stdout)
				streaming = false
				continue
			}
			if m.Sender == "" {
				fmt.Fprint(os.Stdout, color.YellowString("Tool")+": ")
			} else {
				fmt.Fprint(os.Stdout, color.YellowString(m.Sender)+": ")
			}
			if len(m.Response.ToolCalls) > 1 {
				fmt.Fprintln(os.Stdout)
			}

			for tc := range slices.Values(m.Response.ToolCalls) {
				args := strings.ReplaceAll(tc.Arguments, ": ", "=")
				fmt.Fprintf(os.Stdout, "%s%s\n", color.YellowString(tc.Name), args)
			}
		case events.Response[messages.AssistantMessage]:
			if streaming || len(content) > 0 {
				content = ""
				fmt.Fprintln(os.Stdout)
				streaming = false
				continue
			}
			if m.Sender == "" {
				fmt.Fprint(os.Stdout, color.MagentaString("Assistant")+": ")
			} else {
				fmt.Fprint(os.Stdout, color.MagentaString(m.Sender)+": ")
			}
			out, _ := glam.Render(m.Response.Content.Content)
			fmt.Fprintln(os.Stdout, out)
		case events.Request[messages.ToolResponse]:
			if m.Sender == "" {
				fmt.Fprint(os.Stdout, color.YellowString("Tool")+": ")
			} else {
				fmt.Fprint(os.Stdout, color.YellowString(m.Sender)+": ")
			}
			fmt.Fprintln(os.Stdout, m.Message.Content)
		case events.Error:
			fmt.Fprintf(os.Stdout, "Error: %v\n", m.Err)
		}
	}
	fmt.Fprintln(os.Stdout)
}

// Console builds a hook that forwards run events onto the returned channel.
// The channel closes when the hook's OnClose fires.
func Console[T any]() (chan events.Event, waybill.Hook[T]) {
	ch := make(chan events.Event, 100)
	return ch, &consoleHook[T]{ch: ch}
}

type consoleHook[T any] struct {
	ch chan<- events.Event
}

func (c *consoleHook[T]) OnUserPrompt(ctx context.Context, msg messages.Message[messages.UserMessage]) {
	c.ch <- events.Request[messages.UserMessage]{
		RunID:     msg.RunID,
		TurnID:    msg.TurnID,
		Message:   msg.Payload,
		Sender:    msg.Sender,
		Timestamp: msg.Timestamp,
	}
}

func (c *consoleHook[T]) OnAssistantChunk(ctx context.Context, msg messages.Message[messages.AssistantMessage]) {
	c.ch <- events.Chunk[messages.AssistantMessage]{
		RunID:     msg.RunID,
		TurnID:    msg.TurnID,
		Chunk:     msg.Payload,
		Sender:    msg.Sender,
		Timestamp: msg.Timestamp,
	}
}

func (c *consoleHook[T]) OnToolCallChunk(ctx context.Context, msg messages.Message[messages.ToolCallMessage]) {
	c.ch <- events.Chunk[messages.ToolCallMessage]{
		RunID:     msg.RunID,
		TurnID:    msg.TurnID,
		Chunk:     msg.Payload,
		Sender:    msg.Sender,
		Timestamp: msg.Timestamp,
	}
}

func (c *consoleHook[T]) OnAssistantMessage(ctx context.Context, msg messages.Message[messages.AssistantMessage]) {
	c.ch <- events.Response[messages.AssistantMessage]{
		RunID:     msg.RunID,
		TurnID:    msg.TurnID,
		Response:  msg.Payload,
		Sender:    msg.Sender,
		Timestamp: msg.Timestamp,
	}
}

func (c *consoleHook[T]) OnToolCallMessage(ctx context.Context, msg messages.Message[messages.ToolCallMessage]) {
	c.ch <- events.Response[messages.ToolCallMessage]{
		RunID:     msg.RunID,
		TurnID:    msg.TurnID,
		Response:  msg.Payload,
		Sender:    msg.Sender,
		Timestamp: msg.Timestamp,
	}
}

func (c *consoleHook[T]) OnToolCallResponse(ctx context.Context, msg messages.Message[messages.ToolResponse]) {
	c.ch <- events.Request[messages.ToolResponse]{
		RunID:     msg.RunID,
		TurnID:    msg.TurnID,
		Message:   msg.Payload,
		Sender:    msg.Sender,
		Timestamp: msg.Timestamp,
	}
}

func (c *consoleHook[T]) OnResult(ctx context.Context, result T) {
	c.ch <- events.Result[T]{Result: result}
}

func (c *consoleHook[T]) OnError(ctx context.Context, err error) {
	c.ch <- events.Error{Err: err}
}

func (c *consoleHook[T]) OnClose(ctx context.Context) {
	close(c.ch)
}
