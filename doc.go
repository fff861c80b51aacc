/*
Package waybill runs tool-calling conversations against a hosted language
model. It was built for the bus ticket booking assistant in cmd/waybill, but
the runtime itself is generic: an agent definition, a set of callable tools,
and a workflow of user tasks.

The package is organized around a few abstractions:

  - Agents: a named model plus instructions and the tools it may call
  - Tools: plain Go functions advertised to the model with reflected schemas
  - Workflows: ordered steps the agent works through
  - Hooks: callbacks that observe the conversation as it unfolds
  - Memory: the per-run message thread, forked around tool dispatch

# Basic Usage

Define an agent, give it tools, and run a workflow:

	bookingAgent := agent.New(
		agent.Name("bus-booking-agent"),
		agent.Model(openai.GPT4oMini()),
		agent.Instructions("You are a helpful assistant for booking bus tickets."),
		agent.Tools(booking.FindAvailableBusesTool),
	)

	p := waybill.New(
		waybill.Agents(bookingAgent),
		waybill.Steps(
			waybill.Step(bookingAgent.Name(), "Find buses from Mumbai to Pune on 2025-07-20"),
		),
	)

	if err := p.Run(ctx, waybill.Local(hook)); err != nil {
		// Handle error
	}

The hook's OnResult receives the final assistant answer once the last step
completes; intermediate tool calls and responses arrive through the other
hook callbacks as they happen.

# Execution

Run builds one executor command per step. The local executor feeds the thread
to the model provider, dispatches the tool calls the model requests, appends
the results to the thread, and repeats until the model answers in plain text.
Tool functions receive their arguments positionally, decoded from the model's
JSON; a types.ContextVars parameter, if declared, is injected by the executor
rather than supplied by the model.
*/
package waybill
