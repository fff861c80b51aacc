// Command waybill runs the bus ticket booking agent. Without arguments it
// starts an interactive console session; with arguments it treats them as a
// single prompt and prints the agent's answer.
package main

import (
	"context"
	"log/slog"
	"os"
	"strings"
	"time"

	// Ensure API Key is loaded
	_ "github.com/joho/godotenv/autoload"

	"github.com/phsym/zeroslog"
	"github.com/rs/zerolog"

	"github.com/ridewell/waybill"
	"github.com/ridewell/waybill/agent"
	"github.com/ridewell/waybill/api"
	"github.com/ridewell/waybill/booking"
	"github.com/ridewell/waybill/internal/repl"
	"github.com/ridewell/waybill/provider/openai"
)

var log zerolog.Logger

func init() {
	output := zerolog.ConsoleWriter{Out: os.Stderr, TimeFormat: time.Stamp}
	log = zerolog.New(output).With().Timestamp().Logger()
	slog.SetDefault(slog.New(
		zeroslog.NewHandler(log, &zeroslog.HandlerOptions{Level: slog.LevelInfo}),
	))
}

const instructions = "You are a helpful assistant for booking bus tickets. Your tasks are:\n" +
	"1. Find available buses: When a user wants to find buses, use the 'find_available_buses' tool. You'll need the origin city, destination city, and travel date (YYYY-MM-DD).\n" +
	"2. Select bus and seats: After buses are found and the user chooses one, use the 'select_bus_and_seats' tool. You'll need the bus ID and the number of seats. Seat preferences are optional.\n" +
	"3. Confirm booking: To finalize the booking, use the 'confirm_bus_booking' tool. You'll need the bus ID, primary passenger's name, passenger's contact number, and the list of seats that were selected.\n" +
	"Always ask for any missing information before calling a tool. Provide clear summaries of tool outputs."

func main() {
	if os.Getenv("OPENAI_API_KEY") == "" {
		log.Fatal().Msg("OPENAI_API_KEY not found in environment variables, set it in the environment or a .env file")
	}

	modelName := os.Getenv("MODEL_NAME")
	if modelName == "" {
		modelName = "gpt-4o-mini"
	}

	bookingAgent := agent.New(
		agent.Name("bus-booking-agent"),
		agent.Model(openai.Model(modelName)),
		agent.Instructions(instructions),
		agent.Tools(booking.FindAvailableBusesTool, booking.SelectBusAndSeatsTool, booking.ConfirmBusBookingTool),
	)

	ctx := context.Background()

	if len(os.Args) > 1 {
		runOnce(ctx, bookingAgent, strings.Join(os.Args[1:], " "))
		return
	}

	slog.Info("starting interactive booking session", slog.String("model", modelName))
	if err := repl.Run(ctx, bookingAgent); err != nil {
		log.Fatal().Err(err).Msg("session failed")
	}
}

func runOnce(ctx context.Context, bookingAgent api.Agent, prompt string) {
	events, hook := repl.Console[string]()

	p := waybill.New(
		waybill.Agents(bookingAgent),
		waybill.Steps(
			waybill.Step(bookingAgent.Name(), prompt),
		),
	)

	done := make(chan struct{})
	go func() {
		defer close(done)
		repl.Render(events)
	}()

	if err := p.Run(ctx, waybill.Local(hook)); err != nil {
		log.Fatal().Err(err).Msg("error running agent")
	}
	<-done
}
