package waybill

import (
	"context"
	"fmt"
	"slices"

	"github.com/alphadose/haxmap"
	"github.com/fogfish/opts"

	"github.com/ridewell/waybill/api"
	"github.com/ridewell/waybill/internal/executor"
	"github.com/ridewell/waybill/internal/shorttermmemory"
	"github.com/ridewell/waybill/messages"
	"github.com/ridewell/waybill/provider"
)

type task interface {
	task()
}

type stringTask string

func (s stringTask) task() {}

type messageTask messages.Message[messages.UserMessage]

func (m messageTask) task() {}

// Task constrains the values a step can carry: a plain prompt string or a
// prebuilt user message.
type Task interface {
	~string | messages.Message[messages.UserMessage]
}

// ConversationStep pairs an agent with the task it should handle.
type ConversationStep struct {
	agentName string
	task      task
}

// Step creates a conversation step addressed to the named agent.
func Step[T Task](agentName string, tsk T) ConversationStep {
	var t task
	switch xt := any(tsk).(type) {
	case string:
		t = stringTask(xt)
	case messages.Message[messages.UserMessage]:
		t = messageTask(xt)
	default:
		panic(fmt.Sprintf("invalid task type: %T", xt))
	}
	return ConversationStep{
		agentName: agentName,
		task:      t,
	}
}

// Workflow is an ordered conversation over a set of named agents. The caller
// decides which agent handles which step; agents never invoke each other.
type Workflow struct {
	name   string
	agents *haxmap.Map[string, api.Agent]
	steps  []ConversationStep
}

// Agents registers the agents addressable from steps.
func Agents(agent api.Agent, extraAgents ...api.Agent) opts.Option[Workflow] {
	return opts.Type[Workflow](func(o *Workflow) error {
		o.agents.Set(agent.Name(), agent)
		for elem := range slices.Values(extraAgents) {
			o.agents.Set(elem.Name(), elem)
		}
		return nil
	})
}

// Steps appends conversation steps in execution order.
func Steps(step ConversationStep, extraSteps ...ConversationStep) opts.Option[Workflow] {
	return opts.Type[Workflow](func(o *Workflow) error {
		o.steps = append(o.steps, step)
		o.steps = append(o.steps, extraSteps...)
		return nil
	})
}

// Name sets the sender name recorded on user messages, "User" by default.
var Name = opts.ForName[Workflow, string]("name")

// New assembles a workflow.
func New(options ...opts.Option[Workflow]) *Workflow {
	p := &Workflow{
		name:   "User",
		agents: haxmap.New[string, api.Agent](),
	}
	if err := opts.Apply(p, options); err != nil {
		panic(err)
	}
	return p
}

// Run executes the steps in order. Only the final step completes the
// execution context's promise; earlier steps run for their conversational
// side effects on the shared hook.
func (p *Workflow) Run(ctx context.Context, rc ExecutionContext) error {
	defer rc.onClose(ctx)

	maxItems := len(p.steps) - 1

	for i, step := range p.steps {
		var promise executor.Promise
		var schema *provider.StructuredOutput
		if i < maxItems {
			promise = noopPromise{}
		} else {
			promise = rc.promise
			schema = rc.responseSchema
		}

		if err := p.runStep(ctx, step.agentName, step.task, ExecutionContext{
			executor:       rc.executor,
			hook:           rc.hook,
			promise:        promise,
			contextVars:    rc.contextVars,
			onClose:        rc.onClose,
			responseSchema: schema,
			stream:         rc.stream,
			maxTurns:       rc.maxTurns,
		}); err != nil {
			return err
		}
	}

	return nil
}

func (p *Workflow) runStep(ctx context.Context, agentName string, prompt task, rc ExecutionContext) error {
	agent, found := p.agents.Get(agentName)
	if !found {
		return fmt.Errorf("agent %s not found", agentName)
	}

	state := shorttermmemory.New()

	var message messages.Message[messages.UserMessage]
	switch tsk := prompt.(type) {
	case stringTask:
		message = messages.New().WithSender(p.name).UserPrompt(string(tsk))
	case messageTask:
		message = messages.Message[messages.UserMessage](tsk)
	default:
		return fmt.Errorf("unknown task type %T", tsk)
	}
	state.AddUserPrompt(message)
	rc.hook.OnUserPrompt(ctx, message)

	cmd, err := rc.createCommand(agent, state)
	if err != nil {
		return err
	}

	return rc.executor.Run(ctx, cmd, rc.promise)
}
