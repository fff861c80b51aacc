package booking

import (
	"fmt"
	"strings"

	json "github.com/goccy/go-json"

	"github.com/ridewell/waybill/tool"
)

// Every tool reply is a tagged envelope: status is "success" or "error", and
// error replies carry error_message instead of operation fields. Tools never
// return Go errors to the executor; failures are data for the model to relay.

type errorEnvelope struct {
	Status       string `json:"status"`
	ErrorMessage string `json:"error_message"`
}

type lookupEnvelope struct {
	Status string  `json:"status"`
	Buses  []Offer `json:"buses"`
}

type selectionEnvelope struct {
	Status     string   `json:"status"`
	Seats      []string `json:"provisional_seats"`
	TotalPrice int      `json:"total_price"`
	Message    string   `json:"message"`
}

type confirmationEnvelope struct {
	Status    string `json:"status"`
	Reference string `json:"pnr_number"`
	Message   string `json:"message"`
}

func encode(v any) string {
	b, err := json.Marshal(v)
	if err != nil {
		// The envelope types above cannot fail to marshal.
		panic(err)
	}
	return string(b)
}

func encodeError(err error) string {
	return encode(errorEnvelope{Status: "error", ErrorMessage: err.Error()})
}

func findAvailableBuses(origin, destination, travelDate string) string {
	offers, err := FindBuses(origin, destination, travelDate)
	if err != nil {
		return encodeError(err)
	}
	return encode(lookupEnvelope{Status: "success", Buses: offers})
}

func selectBusAndSeats(busID string, numSeats int, seatPreferences string) string {
	hold, err := SelectSeats(busID, numSeats, seatPreferences)
	if err != nil {
		return encodeError(err)
	}

	prefs := seatPreferences
	if prefs == "" {
		prefs = "none"
	}
	msg := fmt.Sprintf("%d seat(s) (%s) provisionally held on bus %s. Preferences: %s.",
		numSeats, strings.Join(hold.Seats, ", "), busID, prefs)

	return encode(selectionEnvelope{
		Status:     "success",
		Seats:      hold.Seats,
		TotalPrice: hold.TotalPrice,
		Message:    msg,
	})
}

func confirmBusBooking(busID, passengerName, passengerContact string, seatsBooked []string) string {
	conf, err := ConfirmBooking(busID, passengerName, passengerContact, seatsBooked)
	if err != nil {
		return encodeError(err)
	}

	msg := fmt.Sprintf("Booking confirmed for %s on bus %s for seats %s. PNR: %s. Contact: %s",
		conf.PassengerName, conf.BusID, strings.Join(conf.Seats, ", "), conf.Reference, conf.PassengerContact)

	return encode(confirmationEnvelope{
		Status:    "success",
		Reference: conf.Reference,
		Message:   msg,
	})
}

// FindAvailableBusesTool looks up candidate buses for a route and date.
var FindAvailableBusesTool = tool.Must(findAvailableBuses,
	tool.Name("find_available_buses"),
	tool.Description("Find available buses given an origin city, a destination city, and a travel date in YYYY-MM-DD form."),
	tool.Parameters("origin", "destination", "travel_date"),
)

// SelectBusAndSeatsTool provisionally holds seats on a chosen bus.
var SelectBusAndSeatsTool = tool.Must(selectBusAndSeats,
	tool.Name("select_bus_and_seats"),
	tool.Description("Select a bus and provisionally hold a number of seats. Seat preferences (window, aisle, front) are optional."),
	tool.Parameters("bus_id", "num_seats_to_book", "seat_preferences"),
)

// ConfirmBusBookingTool finalizes a booking and issues a PNR.
var ConfirmBusBookingTool = tool.Must(confirmBusBooking,
	tool.Name("confirm_bus_booking"),
	tool.Description("Confirm a bus booking for a passenger given the bus id, passenger name, contact number, and the list of selected seats."),
	tool.Parameters("bus_id", "passenger_name", "passenger_contact", "seats_booked"),
)

// Tools returns the three booking tools in workflow order.
func Tools() []tool.Definition {
	return []tool.Definition{
		FindAvailableBusesTool,
		SelectBusAndSeatsTool,
		ConfirmBusBookingTool,
	}
}
