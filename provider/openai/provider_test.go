package openai

import (
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"slices"
	"testing"

	"github.com/google/uuid"
	"github.com/openai/openai-go"
	"github.com/openai/openai-go/option"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/ridewell/waybill/internal/shorttermmemory"
	"github.com/ridewell/waybill/messages"
	"github.com/ridewell/waybill/provider"
	"github.com/ridewell/waybill/tool"
)

func setupTestServer(t *testing.T, handler http.HandlerFunc) *Provider {
	server := httptest.NewServer(handler)
	t.Cleanup(func() {
		server.Close()
	})

	return New(option.WithBaseURL(server.URL + "/v1"))
}

func TestNewProvider(t *testing.T) {
	p := New()
	assert.NotNil(t, p)
	assert.NotNil(t, p.client)
}

func TestBuildRequest(t *testing.T) {
	p := New()
	ctx := context.Background()
	aggregator := shorttermmemory.New()

	aggregator.AddUserPrompt(messages.Message[messages.UserMessage]{
		RunID:  uuid.New(),
		TurnID: aggregator.ID(),
		Sender: "User",
		Payload: messages.UserMessage{
			Content: messages.ContentOrParts{Content: "buses from Mumbai to Pune on 2025-07-20"},
		},
	})

	lookup := tool.Must(func(origin, destination, travelDate string) string { return "" },
		tool.Name("find_available_buses"),
		tool.Description("Find available buses for a route and date."),
		tool.Parameters("origin", "destination", "travel_date"),
	)

	params := &provider.CompletionParams{
		RunID:        uuid.New(),
		Instructions: "You are a helpful assistant for booking bus tickets.",
		Thread:       aggregator,
		Model:        GPT4oMini(),
		Tools:        []tool.Definition{lookup},
	}

	chatParams, err := p.buildRequest(ctx, params)
	require.NoError(t, err)

	assert.Equal(t, GPT4oMini().Name(), string(chatParams.Model.Value))
	assert.Equal(t, int64(1), chatParams.N.Value)
	assert.Equal(t, 0.1, chatParams.Temperature.Value)
	assert.True(t, chatParams.ParallelToolCalls.Value)
	assert.Equal(t, "User", chatParams.User.Value)

	msgs := chatParams.Messages.Value
	require.Len(t, msgs, 2)
	systemMsg := msgs[0].(openai.ChatCompletionSystemMessageParam)
	assert.Equal(t, "You are a helpful assistant for booking bus tickets.", systemMsg.Content.Value[0].Text.Value)

	tools := chatParams.Tools.Value
	require.Len(t, tools, 1)
	assert.Equal(t, openai.ChatCompletionToolTypeFunction, tools[0].Type.Value)
	assert.Equal(t, "find_available_buses", tools[0].Function.Value.Name.Value)
	assert.Equal(t, "Find available buses for a route and date.", tools[0].Function.Value.Description.Value)
	assert.NotNil(t, tools[0].Function.Value.Parameters.Value)
}

func TestBuildRequestNilFunction(t *testing.T) {
	p := New()

	params := &provider.CompletionParams{
		RunID:        uuid.New(),
		Instructions: "x",
		Thread:       shorttermmemory.New(),
		Model:        GPT4oMini(),
		Tools: []tool.Definition{{
			Name: "broken_tool",
		}},
	}

	_, err := p.buildRequest(context.Background(), params)
	require.Error(t, err)
	assert.Contains(t, err.Error(), "tool broken_tool has nil function")
}

func TestChatCompletion(t *testing.T) {
	t.Run("assistant response", func(t *testing.T) {
		mockResp := openai.ChatCompletion{
			ID: "test-id",
			Choices: []openai.ChatCompletionChoice{
				{
					Message: openai.ChatCompletionMessage{
						Content: "I found 2 buses from Mumbai to Pune.",
					},
				},
			},
		}

		p := setupTestServer(t, func(w http.ResponseWriter, r *http.Request) {
			assert.Equal(t, http.MethodPost, r.Method)
			assert.Equal(t, "/chat/completions", r.URL.Path)

			w.Header().Set("Content-Type", "application/json")
			require.NoError(t, json.NewEncoder(w).Encode(mockResp))
		})

		events, err := p.ChatCompletion(context.Background(), provider.CompletionParams{
			RunID:        uuid.New(),
			Instructions: "x",
			Thread:       shorttermmemory.New(),
			Model:        GPT4oMini(),
		})
		require.NoError(t, err)

		event := <-events
		resp, ok := event.(provider.Response[messages.AssistantMessage])
		require.True(t, ok)
		assert.Equal(t, "I found 2 buses from Mumbai to Pune.", resp.Response.Content.Content)

		_, open := <-events
		assert.False(t, open)
	})

	t.Run("tool call response", func(t *testing.T) {
		mockResp := openai.ChatCompletion{
			ID: "test-id",
			Choices: []openai.ChatCompletionChoice{
				{
					Message: openai.ChatCompletionMessage{
						ToolCalls: []openai.ChatCompletionMessageToolCall{
							{
								ID: "call_1",
								Function: openai.ChatCompletionMessageToolCallFunction{
									Name:      "find_available_buses",
									Arguments: `{"origin":"Mumbai","destination":"Pune","travel_date":"2025-07-20"}`,
								},
							},
						},
					},
				},
			},
		}

		p := setupTestServer(t, func(w http.ResponseWriter, r *http.Request) {
			w.Header().Set("Content-Type", "application/json")
			require.NoError(t, json.NewEncoder(w).Encode(mockResp))
		})

		events, err := p.ChatCompletion(context.Background(), provider.CompletionParams{
			RunID:        uuid.New(),
			Instructions: "x",
			Thread:       shorttermmemory.New(),
			Model:        GPT4oMini(),
		})
		require.NoError(t, err)

		event := <-events
		resp, ok := event.(provider.Response[messages.ToolCallMessage])
		require.True(t, ok)
		require.Len(t, resp.Response.ToolCalls, 1)
		assert.Equal(t, "call_1", resp.Response.ToolCalls[0].ID)
		assert.Equal(t, "find_available_buses", resp.Response.ToolCalls[0].Name)
	})

	t.Run("api error", func(t *testing.T) {
		p := setupTestServer(t, func(w http.ResponseWriter, r *http.Request) {
			http.Error(w, `{"error":{"message":"boom"}}`, http.StatusBadRequest)
		})

		events, err := p.ChatCompletion(context.Background(), provider.CompletionParams{
			RunID:        uuid.New(),
			Instructions: "x",
			Thread:       shorttermmemory.New(),
			Model:        GPT4oMini(),
		})
		require.NoError(t, err)

		event := <-events
		errEvent, ok := event.(provider.Error)
		require.True(t, ok)
		assert.Error(t, errEvent.Err)
	})
}

func TestMessagesToOpenAI(t *testing.T) {
	t.Run("empty thread keeps only instructions", func(t *testing.T) {
		result, user := messagesToOpenAI("instructions", slices.Values([]messages.Message[messages.ModelMessage]{}))
		require.Len(t, result, 1)
		systemMsg := result[0].(openai.ChatCompletionSystemMessageParam)
		assert.Equal(t, "instructions", systemMsg.Content.Value[0].Text.Value)
		assert.Empty(t, user)
	})

	t.Run("full booking exchange", func(t *testing.T) {
		thread := []messages.Message[messages.ModelMessage]{
			{
				Sender:  "User",
				Payload: messages.UserMessage{Content: messages.ContentOrParts{Content: "find buses"}},
			},
			{
				Payload: messages.ToolCallMessage{ToolCalls: []messages.ToolCallData{{
					ID:        "call_1",
					Name:      "find_available_buses",
					Arguments: `{"origin":"Mumbai"}`,
				}}},
			},
			{
				Payload: messages.ToolResponse{
					ToolName:   "find_available_buses",
					ToolCallID: "call_1",
					Content:    `{"status":"success"}`,
				},
			},
			{
				Payload: messages.AssistantMessage{Content: messages.AssistantContentOrParts{Content: "Found 2 buses."}},
			},
		}

		result, user := messagesToOpenAI("instructions", slices.Values(thread))
		require.Len(t, result, 5)
		assert.Equal(t, "User", user)

		toolCallMsg := result[2].(openai.ChatCompletionMessageParam)
		assert.Equal(t, openai.ChatCompletionMessageParamRoleAssistant, toolCallMsg.Role.Value)

		toolMsg := result[3].(openai.ChatCompletionToolMessageParam)
		assert.Equal(t, "call_1", toolMsg.ToolCallID.Value)
	})
}

func TestCompletionToStreamEvent(t *testing.T) {
	thread := shorttermmemory.New()
	command := &provider.CompletionParams{
		RunID:  uuid.New(),
		Thread: thread,
	}

	t.Run("no choices yields a delimiter", func(t *testing.T) {
		event := completionToStreamEvent(&openai.ChatCompletion{}, command)
		delim, ok := event.(provider.Delim)
		require.True(t, ok)
		assert.Equal(t, "empty", delim.Delim)
	})

	t.Run("tool calls win over content", func(t *testing.T) {
		chat := &openai.ChatCompletion{
			Choices: []openai.ChatCompletionChoice{{
				Message: openai.ChatCompletionMessage{
					Content: "ignored",
					ToolCalls: []openai.ChatCompletionMessageToolCall{{
						ID: "call_9",
						Function: openai.ChatCompletionMessageToolCallFunction{
							Name:      "select_bus_and_seats",
							Arguments: `{"bus_id":"BUS789","num_seats_to_book":2}`,
						},
					}},
				},
			}},
		}

		event := completionToStreamEvent(chat, command)
		resp, ok := event.(provider.Response[messages.ToolCallMessage])
		require.True(t, ok)
		assert.Equal(t, command.RunID, resp.RunID)
		assert.Equal(t, thread.ID(), resp.TurnID)
		require.Len(t, resp.Response.ToolCalls, 1)
		assert.Equal(t, "select_bus_and_seats", resp.Response.ToolCalls[0].Name)
	})

	t.Run("plain content becomes an assistant response", func(t *testing.T) {
		chat := &openai.ChatCompletion{
			Choices: []openai.ChatCompletionChoice{{
				Message: openai.ChatCompletionMessage{Content: "Booked."},
			}},
		}

		event := completionToStreamEvent(chat, command)
		resp, ok := event.(provider.Response[messages.AssistantMessage])
		require.True(t, ok)
		assert.Equal(t, "Booked.", resp.Response.Content.Content)
	})
}
