package waybill

import (
	"context"
	"fmt"
	"sync"
	"testing"
	"time"

	"github.com/go-openapi/strfmt"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/ridewell/waybill/api"
	"github.com/ridewell/waybill/messages"
	"github.com/ridewell/waybill/provider"
	"github.com/ridewell/waybill/tool"
	"github.com/ridewell/waybill/types"
)

// answeringProvider replies to every completion request with a numbered
// assistant message.
type answeringProvider struct {
	mu    sync.Mutex
	calls int
}

func (p *answeringProvider) ChatCompletion(_ context.Context, params provider.CompletionParams) (<-chan provider.StreamEvent, error) {
	p.mu.Lock()
	p.calls++
	n := p.calls
	p.mu.Unlock()

	ch := make(chan provider.StreamEvent, 1)
	ch <- provider.Response[messages.AssistantMessage]{
		RunID:      params.RunID,
		TurnID:     params.Thread.ID(),
		Checkpoint: params.Thread.Fork().Checkpoint(),
		Response: messages.AssistantMessage{
			Content: messages.AssistantContentOrParts{Content: fmt.Sprintf("answer %d", n)},
		},
		Timestamp: strfmt.DateTime(time.Now()),
	}
	close(ch)
	return ch, nil
}

type staticModel struct {
	prov provider.Provider
}

func (m *staticModel) Name() string                { return "static" }
func (m *staticModel) Provider() provider.Provider { return m.prov }

type staticAgent struct {
	name  string
	model api.Model
}

func (a *staticAgent) Name() string             { return a.name }
func (a *staticAgent) Model() api.Model         { return a.model }
func (a *staticAgent) Tools() []tool.Definition { return nil }
func (a *staticAgent) ParallelToolCalls() bool  { return false }
func (a *staticAgent) RenderInstructions(types.ContextVars) (string, error) {
	return "instructions", nil
}

// collectingHook records the final result and close signal.
type collectingHook struct {
	mu      sync.Mutex
	results []string
	errs    []error
	closed  bool
}

func (h *collectingHook) OnUserPrompt(context.Context, messages.Message[messages.UserMessage]) {}
func (h *collectingHook) OnAssistantChunk(context.Context, messages.Message[messages.AssistantMessage]) {
}
func (h *collectingHook) OnToolCallChunk(context.Context, messages.Message[messages.ToolCallMessage]) {
}
func (h *collectingHook) OnAssistantMessage(context.Context, messages.Message[messages.AssistantMessage]) {
}
func (h *collectingHook) OnToolCallMessage(context.Context, messages.Message[messages.ToolCallMessage]) {
}
func (h *collectingHook) OnToolCallResponse(context.Context, messages.Message[messages.ToolResponse]) {
}

func (h *collectingHook) OnError(_ context.Context, err error) {
	h.mu.Lock()
	defer h.mu.Unlock()
	h.errs = append(h.errs, err)
}

func (h *collectingHook) OnResult(_ context.Context, result string) {
	h.mu.Lock()
	defer h.mu.Unlock()
	h.results = append(h.results, result)
}

func (h *collectingHook) OnClose(context.Context) {
	h.mu.Lock()
	defer h.mu.Unlock()
	h.closed = true
}

func TestStep(t *testing.T) {
	t.Run("string task", func(t *testing.T) {
		step := Step("agent", "find buses")
		assert.Equal(t, "agent", step.agentName)
		assert.Equal(t, stringTask("find buses"), step.task)
	})

	t.Run("message task", func(t *testing.T) {
		msg := messages.New().UserPrompt("find buses")
		step := Step("agent", msg)
		assert.Equal(t, messageTask(msg), step.task)
	})
}

func TestWorkflowRun(t *testing.T) {
	t.Run("single step completes with the final answer", func(t *testing.T) {
		agent := &staticAgent{name: "booking", model: &staticModel{prov: &answeringProvider{}}}
		hook := &collectingHook{}

		p := New(
			Agents(agent),
			Steps(Step(agent.Name(), "find buses from Mumbai to Pune")),
		)

		require.NoError(t, p.Run(context.Background(), Local[string](hook)))
		require.Len(t, hook.results, 1)
		assert.Equal(t, "answer 1", hook.results[0])
		assert.True(t, hook.closed)
		assert.Empty(t, hook.errs)
	})

	t.Run("only the final step resolves the result", func(t *testing.T) {
		prov := &answeringProvider{}
		agent := &staticAgent{name: "booking", model: &staticModel{prov: prov}}
		hook := &collectingHook{}

		p := New(
			Agents(agent),
			Steps(
				Step(agent.Name(), "find buses"),
				Step(agent.Name(), "book 2 seats on BUS789"),
			),
		)

		require.NoError(t, p.Run(context.Background(), Local[string](hook)))
		assert.Equal(t, 2, prov.calls)
		require.Len(t, hook.results, 1)
		assert.Equal(t, "answer 2", hook.results[0])
	})

	t.Run("unknown agent fails the run", func(t *testing.T) {
		agent := &staticAgent{name: "booking", model: &staticModel{prov: &answeringProvider{}}}
		hook := &collectingHook{}

		p := New(
			Agents(agent),
			Steps(Step("missing", "find buses")),
		)

		err := p.Run(context.Background(), Local[string](hook))
		require.Error(t, err)
		assert.Contains(t, err.Error(), "agent missing not found")
	})
}
