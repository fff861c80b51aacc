package waybill

import (
	"context"
	"reflect"

	"github.com/fogfish/opts"
	"github.com/invopop/jsonschema"
	"github.com/tidwall/gjson"

	"github.com/ridewell/waybill/api"
	"github.com/ridewell/waybill/events"
	"github.com/ridewell/waybill/internal/executor"
	"github.com/ridewell/waybill/internal/shorttermmemory"
	"github.com/ridewell/waybill/provider"
	"github.com/ridewell/waybill/types"
)

// ExecutionContext holds the executor, hook, and promise for one workflow
// run. It is single-use; build a fresh one per Run call.
type ExecutionContext struct {
	executor       executor.Executor
	hook           events.Hook
	promise        executor.Promise
	responseSchema *provider.StructuredOutput
	contextVars    types.ContextVars
	onClose        func(context.Context)
	stream         bool
	maxTurns       int
}

func (e *ExecutionContext) createCommand(agent api.Agent, mem *shorttermmemory.Aggregator) (executor.RunCommand, error) {
	cmd, err := executor.NewRunCommand(agent, mem, e.hook)
	if err != nil {
		return executor.RunCommand{}, err
	}
	if len(e.contextVars) > 0 {
		cmd = cmd.WithContextVariables(e.contextVars)
	}
	if e.responseSchema != nil {
		cmd = cmd.WithStructuredOutput(e.responseSchema)
	}
	if e.stream {
		cmd = cmd.WithStream(e.stream)
	}
	if e.maxTurns > 0 {
		cmd = cmd.WithMaxTurns(e.maxTurns)
	}
	return cmd, nil
}

var (
	// WithContextVars seeds the run with context variables for instruction
	// templates and tool functions.
	WithContextVars = opts.ForName[ExecutionContext, types.ContextVars]("contextVars")

	// Streaming toggles incremental response delivery.
	Streaming = opts.ForName[ExecutionContext, bool]("stream")

	// WithMaxTurns caps the number of completion turns per step.
	WithMaxTurns = opts.ForName[ExecutionContext, int]("maxTurns")
)

// StructuredOutput asks the model to answer in the JSON shape of T. String
// and gjson.Result results skip schema generation.
func StructuredOutput[T any](name, description string) opts.Option[ExecutionContext] {
	return opts.Type[ExecutionContext](func(s *ExecutionContext) error {
		schema := jsonSchema[T]()
		if schema != nil {
			s.responseSchema = &provider.StructuredOutput{
				Name:        name,
				Description: description,
				Schema:      schema,
			}
		}
		return nil
	})
}

func jsonSchema[T any]() *jsonschema.Schema {
	var t T
	if _, isGjsonResult := any(t).(gjson.Result); isGjsonResult {
		return nil
	}
	if reflect.TypeFor[T]().Kind() == reflect.String {
		return nil
	}
	return executor.ToJSONSchema[T]()
}

// Local creates an ExecutionContext backed by the in-process executor. The
// hook receives lifecycle events; the typed result is forwarded to
// hook.OnResult when the final step completes.
func Local[T any](hook Hook[T], options ...opts.Option[ExecutionContext]) ExecutionContext {
	fut := executor.NewFuture(executor.DefaultUnmarshal[T]())
	dp := &deferredPromise[T]{
		promise: fut,
		hook:    hook,
	}

	execCtx := ExecutionContext{
		executor: executor.NewLocal(),
		hook:     hook,
		promise:  dp,
		onClose: func(ctx context.Context) {
			dp.Forward(ctx)
			hook.OnClose(ctx)
		},
	}

	if err := opts.Apply(&execCtx, options); err != nil {
		panic(err)
	}

	return execCtx
}
