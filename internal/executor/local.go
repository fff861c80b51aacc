package executor

import (
	"context"
	"encoding"
	"errors"
	"fmt"
	"log/slog"
	"maps"
	"reflect"
	"slices"
	"strconv"
	"strings"
	"time"

	"github.com/go-openapi/strfmt"
	"github.com/goccy/go-json"
	"github.com/google/uuid"
	"github.com/tidwall/gjson"

	"github.com/ridewell/waybill/api"
	"github.com/ridewell/waybill/events"
	"github.com/ridewell/waybill/internal/shorttermmemory"
	"github.com/ridewell/waybill/messages"
	"github.com/ridewell/waybill/pkg/slogx"
	"github.com/ridewell/waybill/provider"
	"github.com/ridewell/waybill/tool"
	"github.com/ridewell/waybill/types"
)

var _ Executor = &Local{}

// breakError signals successful completion of the reactor loop.
type breakError struct{}

func (e *breakError) Error() string {
	return "break"
}

// continueError signals that the loop should request another completion,
// typically after tool responses were appended to the thread.
type continueError struct{}

func (e *continueError) Error() string {
	return "continue"
}

// Local executes runs synchronously on the caller's goroutine.
type Local struct{}

func NewLocal() *Local {
	return &Local{}
}

func wrapErr(runID, turnID uuid.UUID, sender string, err error) (events.Error, bool) {
	if err == nil {
		return events.Error{}, false
	}
	if pErr, ok := err.(events.Error); ok { //nolint: errorlint
		return pErr, true
	}
	return events.Error{
		RunID:     runID,
		TurnID:    turnID,
		Sender:    sender,
		Err:       err,
		Timestamp: strfmt.DateTime(time.Now()),
	}, true
}

type toolCallParams struct {
	runID       uuid.UUID
	agent       api.Agent
	contextVars types.ContextVars
	mem         *shorttermmemory.Aggregator
	hook        events.Hook
	toolCalls   messages.ToolCallMessage
}

func (l *Local) Run(ctx context.Context, command RunCommand, promise Promise) error {
	if err := command.Validate(); err != nil {
		return err
	}

	contextVars := command.initializeContextVars()
	thread := command.Thread.Fork()

	err := l.runReactorLoop(ctx, reactorParams{
		command:     command,
		thread:      thread,
		agent:       command.Agent,
		contextVars: contextVars,
		promise:     promise,
	})
	if err != nil {
		var breakErr *breakError
		if errors.As(err, &breakErr) {
			command.Thread.Join(thread)
			return nil
		}
		return err
	}

	command.Thread.Join(thread)
	return nil
}

type reactorParams struct {
	command     RunCommand
	thread      *shorttermmemory.Aggregator
	agent       api.Agent
	contextVars types.ContextVars
	promise     Promise
}

func (l *Local) runReactorLoop(ctx context.Context, params reactorParams) error {
	for params.thread.TurnLen() < params.command.MaxTurns {
		if err := l.validateAgentAndProvider(ctx, &params); err != nil {
			return err
		}

		stream, err := l.initiateChatCompletion(ctx, &params)
		if err != nil {
			return err
		}

		if err := l.handleStreamEvents(ctx, stream, &params); err != nil {
			var continueErr *continueError
			if errors.As(err, &continueErr) {
				continue
			}
			return err
		}

		return l.handleStreamCompletion(&params)
	}
	return errors.New("max turns exceeded")
}

func (l *Local) validateAgentAndProvider(ctx context.Context, params *reactorParams) error {
	model := params.agent.Model()
	if model == nil {
		err := fmt.Errorf("agent model cannot be nil")
		l.publishError(ctx, params, err)
		return err
	}

	if model.Provider() == nil {
		err := fmt.Errorf("model provider cannot be nil")
		l.publishError(ctx, params, err)
		return err
	}

	return nil
}

func (l *Local) initiateChatCompletion(ctx context.Context, params *reactorParams) (<-chan provider.StreamEvent, error) {
	instructions, err := params.agent.RenderInstructions(params.contextVars)
	if err != nil {
		err = fmt.Errorf("failed to render instructions: %w", err)
		l.publishError(ctx, params, err)
		return nil, err
	}

	stream, err := params.agent.Model().Provider().ChatCompletion(ctx, provider.CompletionParams{
		RunID:          params.command.ID(),
		Instructions:   instructions,
		Thread:         params.thread,
		Stream:         params.command.Stream,
		Model:          params.agent.Model(),
		ResponseSchema: params.command.ResponseSchema,
		Tools:          params.agent.Tools(),
	})
	if err != nil {
		err = fmt.Errorf("failed to get chat completion: %w", err)
		l.publishError(ctx, params, err)
		return nil, err
	}

	return stream, nil
}

func (l *Local) handleStreamEvents(ctx context.Context, stream <-chan provider.StreamEvent, params *reactorParams) error {
	for {
		select {
		case event, hasMore := <-stream:
			if !hasMore {
				return l.handleStreamCompletion(params)
			}

			if err := l.processStreamEvent(ctx, event, params); err != nil {
				return err
			}

		case <-ctx.Done():
			return ctx.Err()
		}
	}
}

func (l *Local) handleStreamCompletion(params *reactorParams) error {
	msgs := params.thread.Messages()
	if len(msgs) == 0 {
		return fmt.Errorf("no messages in thread")
	}

	lastMsg := msgs[len(msgs)-1]
	if lastMsg.Sender != params.agent.Name() {
		return fmt.Errorf("last message is not from agent %s", params.agent.Name())
	}

	// Tool responses mean the model still has work to do with the results.
	if _, ok := lastMsg.Payload.(messages.ToolResponse); ok {
		return &continueError{}
	}

	if assistantMsg, ok := lastMsg.Payload.(messages.AssistantMessage); ok {
		params.promise.Complete(assistantMsg.Content.Content)
		return &breakError{}
	}

	return fmt.Errorf("last message from agent %s was neither assistant message nor tool response", params.agent.Name())
}

func (l *Local) processStreamEvent(ctx context.Context, event provider.StreamEvent, params *reactorParams) error {
	switch event := event.(type) {
	case provider.Delim:
		return nil
	case provider.Error:
		l.publishError(ctx, params, event)
		params.promise.Error(event.Err)
		return event.Err
	case provider.Chunk[messages.AssistantMessage]:
		params.command.Hook.OnAssistantChunk(ctx, messages.Message[messages.AssistantMessage]{
			RunID:     event.RunID,
			TurnID:    event.TurnID,
			Payload:   event.Chunk,
			Sender:    params.agent.Name(),
			Timestamp: event.Timestamp,
		})
		return nil
	case provider.Chunk[messages.ToolCallMessage]:
		params.command.Hook.OnToolCallChunk(ctx, messages.Message[messages.ToolCallMessage]{
			RunID:     event.RunID,
			TurnID:    event.TurnID,
			Payload:   event.Chunk,
			Sender:    params.agent.Name(),
			Timestamp: event.Timestamp,
		})
		return nil
	case provider.Response[messages.ToolCallMessage]:
		return l.handleToolCallResponse(ctx, event, params)
	case provider.Response[messages.AssistantMessage]:
		return l.handleAssistantResponse(ctx, event, params)
	default:
		panic(fmt.Sprintf("unknown event type %T", event))
	}
}

func (l *Local) publishError(ctx context.Context, params *reactorParams, err error) {
	if ee, hasErr := wrapErr(params.command.ID(), params.thread.ID(), params.agent.Name(), err); hasErr {
		params.command.Hook.OnError(ctx, ee)
	}
}

func (l *Local) handleAssistantResponse(ctx context.Context, event provider.Response[messages.AssistantMessage], params *reactorParams) error {
	// The provider guarantees tool calls are delivered before any assistant
	// message, so everything the model needed has been dispatched by now.
	event.Checkpoint.MergeInto(params.thread)

	msg := messages.Message[messages.AssistantMessage]{
		RunID:     event.RunID,
		TurnID:    event.TurnID,
		Payload:   event.Response,
		Sender:    params.agent.Name(),
		Timestamp: event.Timestamp,
	}
	params.thread.AddAssistantMessage(msg)
	params.command.Hook.OnAssistantMessage(ctx, msg)
	return nil
}

func (l *Local) handleToolCallResponse(ctx context.Context, event provider.Response[messages.ToolCallMessage], params *reactorParams) error {
	forked := params.thread.Fork()
	event.Checkpoint.MergeInto(forked)

	toolCallMsg := messages.Message[messages.ToolCallMessage]{
		RunID:     event.RunID,
		TurnID:    event.TurnID,
		Payload:   event.Response,
		Sender:    params.agent.Name(),
		Timestamp: event.Timestamp,
	}
	forked.AddToolCall(toolCallMsg)
	params.command.Hook.OnToolCallMessage(ctx, toolCallMsg)

	toolParams := toolCallParams{
		mem:         forked,
		agent:       params.agent,
		runID:       event.RunID,
		hook:        params.command.Hook,
		toolCalls:   event.Response,
		contextVars: make(types.ContextVars),
	}
	if params.contextVars != nil {
		maps.Copy(toolParams.contextVars, params.contextVars)
	}

	if err := l.handleToolCalls(ctx, toolParams); err != nil {
		l.publishError(ctx, params, err)
		return err
	}

	params.thread.Join(forked)
	maps.Copy(params.contextVars, toolParams.contextVars)
	return nil
}

func (l *Local) handleToolCalls(ctx context.Context, params toolCallParams) error {
	agentTools := make(map[string]tool.Definition, len(params.agent.Tools()))
	for td := range slices.Values(params.agent.Tools()) {
		agentTools[td.Name] = td
	}

	for _, call := range params.toolCalls.ToolCalls {
		td, exists := agentTools[call.Name]
		if !exists {
			return events.Error{
				RunID:     params.runID,
				TurnID:    params.mem.ID(),
				Sender:    params.agent.Name(),
				Err:       fmt.Errorf("unknown tool %s", call.Name),
				Timestamp: strfmt.DateTime(time.Now()),
			}
		}

		slog.Debug("invoking tool", slog.String("tool", call.Name), slog.String("arguments", call.Arguments))

		args := buildArgList(call.Arguments, td.Parameters)
		result, err := callFunction(td.Function, args, params.contextVars)
		if err != nil {
			return err
		}

		msg := messages.New().WithRunID(params.runID).WithSender(params.agent.Name()).ToolResponse(call.ID, call.Name, result.Value)
		msg.TurnID = params.mem.ID()
		params.mem.AddToolResponse(msg)
		params.hook.OnToolCallResponse(ctx, msg)

		if result.ContextVariables != nil {
			if params.contextVars == nil {
				params.contextVars = make(types.ContextVars)
			}
			maps.Copy(params.contextVars, result.ContextVariables)
		}
	}

	return nil
}

// buildArgList extracts the tool call's arguments in the positional order the
// parameter names declare. Missing arguments keep their position so later
// parameters still line up.
func buildArgList(arguments string, parameters map[string]string) []gjson.Result {
	args := gjson.Parse(arguments)
	targs := make([]string, len(parameters))
	for k, v := range parameters {
		ns := strings.TrimPrefix(k, "param")
		i, _ := strconv.Atoi(ns)
		if i < 0 || i >= len(targs) {
			continue
		}
		targs[i] = v
	}

	toolArgs := make([]gjson.Result, len(targs))
	for i, arg := range targs {
		if arg == "" {
			continue
		}
		toolArgs[i] = args.Get(arg)
	}
	return toolArgs
}

type toolResult struct {
	Value            string
	ContextVariables types.ContextVars
}

// decodeArg converts a JSON argument to the given parameter type. Scalars
// convert directly; slices, maps, and structs unmarshal from the raw JSON.
func decodeArg(arg gjson.Result, paramType reflect.Type) (reflect.Value, error) {
	if !arg.Exists() {
		return reflect.Zero(paramType), nil
	}

	switch paramType.Kind() {
	case reflect.Slice, reflect.Array, reflect.Map, reflect.Struct, reflect.Ptr:
		target := reflect.New(paramType)
		if err := json.Unmarshal([]byte(arg.Raw), target.Interface()); err != nil {
			return reflect.Value{}, fmt.Errorf("cannot decode argument %s as %s: %w", arg.Raw, paramType, err)
		}
		return target.Elem(), nil
	default:
		vv := reflect.ValueOf(arg.Value())
		if !vv.IsValid() {
			return reflect.Zero(paramType), nil
		}
		if !vv.Type().ConvertibleTo(paramType) {
			return reflect.Value{}, fmt.Errorf("cannot convert argument %s to %s", arg.Raw, paramType)
		}
		return vv.Convert(paramType), nil
	}
}

func callFunction(fn any, args []gjson.Result, contextVars types.ContextVars) (toolResult, error) {
	val := reflect.ValueOf(fn)
	vtpe := val.Type()

	numIn := vtpe.NumIn()
	callArgs := make([]reflect.Value, numIn)

	argIdx := 0
	for fi := 0; fi < numIn; fi++ {
		paramType := vtpe.In(fi)
		if paramType == reflect.TypeFor[types.ContextVars]() {
			callArgs[fi] = reflect.ValueOf(contextVars)
			continue
		}

		var arg gjson.Result
		if argIdx < len(args) {
			arg = args[argIdx]
		}
		argIdx++

		decoded, err := decodeArg(arg, paramType)
		if err != nil {
			return toolResult{}, err
		}
		callArgs[fi] = decoded
	}

	results := val.Call(callArgs)
	if len(results) == 0 {
		return toolResult{}, nil
	}

	res := results[0]
	if !res.IsValid() {
		return toolResult{}, nil
	}

	switch vtpe := res.Interface().(type) {
	case error:
		return toolResult{}, vtpe
	case types.ContextVars:
		return toolResult{Value: "", ContextVariables: vtpe}, nil
	case string:
		return toolResult{Value: vtpe}, nil
	case time.Time:
		return toolResult{Value: vtpe.Format(time.RFC3339)}, nil
	case int, int8, int16, int32, int64:
		rv := reflect.ValueOf(vtpe)
		return toolResult{Value: strconv.FormatInt(rv.Int(), 10)}, nil
	case uint, uint8, uint16, uint32, uint64:
		rv := reflect.ValueOf(vtpe)
		return toolResult{Value: strconv.FormatUint(rv.Uint(), 10)}, nil
	case float32, float64:
		rv := reflect.ValueOf(vtpe)
		return toolResult{Value: strconv.FormatFloat(rv.Float(), 'f', -1, 64)}, nil
	case encoding.TextMarshaler:
		b, err := vtpe.MarshalText()
		if err != nil {
			slog.Error("Error marshalling function return", slogx.Error(err))
			return toolResult{}, err
		}
		return toolResult{Value: string(b)}, nil
	case fmt.Stringer:
		return toolResult{Value: vtpe.String()}, nil
	default:
		b, err := json.Marshal(vtpe)
		if err != nil {
			slog.Error("Error marshalling function return", slogx.Error(err))
			return toolResult{}, err
		}
		return toolResult{Value: string(b)}, nil
	}
}
