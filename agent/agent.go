// Package agent provides the declarative agent definition: a name, a hosted
// model, instructions, and the tools the model may call.
package agent

import (
	"strings"
	"text/template"

	"github.com/fogfish/opts"

	"github.com/ridewell/waybill/api"
	"github.com/ridewell/waybill/provider/openai"
	"github.com/ridewell/waybill/tool"
	"github.com/ridewell/waybill/types"
)

var _ api.Agent = (*defaultAgent)(nil)

type defaultAgent struct {
	name              string
	model             api.Model
	instructions      string
	tools             []tool.Definition
	parallelToolCalls bool
}

func (a *defaultAgent) Name() string {
	return a.name
}

func (a *defaultAgent) Model() api.Model {
	return a.model
}

func (a *defaultAgent) Tools() []tool.Definition {
	return a.tools
}

func (a *defaultAgent) ParallelToolCalls() bool {
	return a.parallelToolCalls
}

// RenderInstructions renders the instructions with the provided context
// variables. Instructions without template markers pass through untouched.
func (a *defaultAgent) RenderInstructions(cv types.ContextVars) (string, error) {
	if !strings.Contains(a.instructions, "{{") {
		return a.instructions, nil
	}
	return renderTemplate("instructions", a.instructions, cv)
}

func renderTemplate(name, templateStr string, cv types.ContextVars) (string, error) {
	tmpl, err := template.New(name).Option("missingkey=error").Parse(templateStr)
	if err != nil {
		return "", err
	}

	var buf strings.Builder
	if err := tmpl.Execute(&buf, cv); err != nil {
		return "", err
	}

	return buf.String(), nil
}

var (
	Name              = opts.ForName[defaultAgent, string]("name")
	Model             = opts.ForName[defaultAgent, api.Model]("model")
	Instructions      = opts.ForName[defaultAgent, string]("instructions")
	ParallelToolCalls = opts.ForName[defaultAgent, bool]("parallelToolCalls")
)

// Tools appends tool definitions to the agent.
func Tools(td tool.Definition, extraTools ...tool.Definition) opts.Option[defaultAgent] {
	return opts.Type[defaultAgent](func(o *defaultAgent) error {
		o.tools = append(o.tools, td)
		o.tools = append(o.tools, extraTools...)
		return nil
	})
}

// New creates an agent. The model defaults to gpt-4o-mini.
func New(options ...opts.Option[defaultAgent]) api.Agent {
	agent := &defaultAgent{
		model:             openai.GPT4oMini(),
		parallelToolCalls: true,
	}
	if err := opts.Apply(agent, options); err != nil {
		panic(err)
	}
	return agent
}
