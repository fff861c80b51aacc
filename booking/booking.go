// Package booking implements the three-stage bus booking workflow exposed to
// the agent: availability lookup, seat selection, and booking confirmation.
//
// All three operations are stateless and read only fixed reference tables;
// they never call each other and share no runtime state. Sequencing is the
// caller's concern. Seat selection holds nothing against an inventory, so
// repeated selections can oversell; that is an accepted property of the
// fixture data, not an allocation algorithm.
package booking

import (
	"fmt"
	"strings"
	"time"
)

// Offer is a candidate vehicle returned by FindBuses. Offers are immutable
// once returned.
type Offer struct {
	BusID          string `json:"bus_id"`
	OperatorName   string `json:"operator_name"`
	DepartureTime  string `json:"departure_time"`
	ArrivalTime    string `json:"arrival_time"`
	PricePerSeat   int    `json:"price_per_seat"`
	AvailableSeats int    `json:"available_seats"`
}

// Hold is a provisional seat assignment returned by SelectSeats. It is not
// tracked against any inventory.
type Hold struct {
	BusID      string   `json:"bus_id"`
	Seats      []string `json:"provisional_seats"`
	TotalPrice int      `json:"total_price"`
}

// Confirmation is the final record asserting a booking completed.
type Confirmation struct {
	Reference        string   `json:"pnr_number"`
	BusID            string   `json:"bus_id"`
	PassengerName    string   `json:"passenger_name"`
	PassengerContact string   `json:"passenger_contact"`
	Seats            []string `json:"seats_booked"`
}

// NotFoundError reports that no route matched a lookup.
type NotFoundError struct {
	Origin      string
	Destination string
	Date        string
}

func (e NotFoundError) Error() string {
	return fmt.Sprintf("No buses found from '%s' to '%s' on '%s'.", e.Origin, e.Destination, e.Date)
}

// UnavailableError reports that a seat selection could not be satisfied,
// either because the bus is unknown or the count exceeds its bound.
type UnavailableError struct {
	BusID     string
	Requested int
}

func (e UnavailableError) Error() string {
	return fmt.Sprintf("Could not select %d seats on bus '%s'. They might be unavailable or the bus ID is invalid.", e.Requested, e.BusID)
}

// MissingDetailsError reports an incomplete confirmation request.
type MissingDetailsError struct{}

func (MissingDetailsError) Error() string {
	return "Booking confirmation failed. Missing passenger details or seats."
}

type routeKey struct {
	origin      string
	destination string
	date        string
}

// routes is the fixed lookup table of known route/date combinations.
var routes = map[routeKey][]Offer{
	{origin: "mumbai", destination: "pune", date: "2025-07-20"}: {
		{BusID: "BUS789", OperatorName: "Red Travels", DepartureTime: "09:00", ArrivalTime: "13:00", PricePerSeat: 500, AvailableSeats: 15},
		{BusID: "BUS123", OperatorName: "BlueLine Express", DepartureTime: "11:30", ArrivalTime: "15:30", PricePerSeat: 550, AvailableSeats: 10},
	},
	{origin: "delhi", destination: "jaipur", date: "2025-08-10"}: {
		{BusID: "BUS456", OperatorName: "Green Ways", DepartureTime: "07:00", ArrivalTime: "12:00", PricePerSeat: 700, AvailableSeats: 20},
	},
}

type seatPlan struct {
	maxSeats     int
	pricePerSeat int
	pool         []string // label pool, allotted in order
}

var seatPlans = map[string]seatPlan{
	"BUS789": {maxSeats: 2, pricePerSeat: 500, pool: []string{"W1", "W2", "A3", "A4"}},
	"BUS456": {maxSeats: 1, pricePerSeat: 700, pool: []string{"F3", "W4"}},
}

// preferencePrefixes maps recognized seat preferences to the label prefix
// they favor. Unrecognized preferences fall back to pool order.
var preferencePrefixes = map[string]string{
	"window": "W",
	"aisle":  "A",
	"front":  "F",
}

// FindBuses returns the offers for a known (origin, destination, date)
// triple. Origin and destination match case-insensitively, the date exactly
// (YYYY-MM-DD). Unknown triples yield a NotFoundError naming all three
// inputs. Pure function: identical inputs return identical offer lists.
func FindBuses(origin, destination, travelDate string) ([]Offer, error) {
	key := routeKey{
		origin:      strings.ToLower(origin),
		destination: strings.ToLower(destination),
		date:        travelDate,
	}
	offers, ok := routes[key]
	if !ok {
		return nil, NotFoundError{Origin: origin, Destination: destination, Date: travelDate}
	}
	out := make([]Offer, len(offers))
	copy(out, offers)
	return out, nil
}

// SelectSeats provisionally holds count seats on the given bus. Labels are
// drawn from the bus's pool, reordered so labels matching a recognized
// preference come first. The hold is not recorded anywhere; no availability
// is decremented.
func SelectSeats(busID string, count int, preference string) (Hold, error) {
	plan, ok := seatPlans[busID]
	if !ok || count < 1 || count > plan.maxSeats {
		return Hold{}, UnavailableError{BusID: busID, Requested: count}
	}

	pool := orderByPreference(plan.pool, preference)
	seats := make([]string, count)
	copy(seats, pool[:count])

	return Hold{
		BusID:      busID,
		Seats:      seats,
		TotalPrice: count * plan.pricePerSeat,
	}, nil
}

// orderByPreference stably partitions the pool so labels with the preferred
// prefix come first. The pool itself is never mutated.
func orderByPreference(pool []string, preference string) []string {
	prefix := matchPreference(preference)
	if prefix == "" {
		return pool
	}

	ordered := make([]string, 0, len(pool))
	for _, label := range pool {
		if strings.HasPrefix(label, prefix) {
			ordered = append(ordered, label)
		}
	}
	for _, label := range pool {
		if !strings.HasPrefix(label, prefix) {
			ordered = append(ordered, label)
		}
	}
	return ordered
}

func matchPreference(preference string) string {
	pref := strings.ToLower(preference)
	for keyword, prefix := range preferencePrefixes {
		if strings.Contains(pref, keyword) {
			return prefix
		}
	}
	return ""
}

// now is swapped out in tests to pin PNR generation.
var now = time.Now

// ConfirmBooking finalizes a booking for the given passenger and seats. All
// four fields must be present; seats must be non-empty. The reference code is
// "PNR" + the bus id with any "BUS" substring stripped + the wall-clock time
// at second precision, so codes are not globally unique. Confirmation never
// consults prior lookups or holds.
func ConfirmBooking(busID, passengerName, passengerContact string, seats []string) (Confirmation, error) {
	if busID == "" || passengerName == "" || passengerContact == "" || len(seats) == 0 {
		return Confirmation{}, MissingDetailsError{}
	}

	reference := fmt.Sprintf("PNR%s%s", strings.ReplaceAll(busID, "BUS", ""), now().Format("150405"))
	booked := make([]string, len(seats))
	copy(booked, seats)

	return Confirmation{
		Reference:        reference,
		BusID:            busID,
		PassengerName:    passengerName,
		PassengerContact: passengerContact,
		Seats:            booked,
	}, nil
}
