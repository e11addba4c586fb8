package model

import "fmt"

// Status is the route state reported by a bus in each location message.
type Status string

const (
	StatusInRoute  Status = "in_route"
	StatusFinished Status = "finished"
)

// ParseStatus converts s into a Status. Only "in_route" and "finished" are accepted.
func ParseStatus(s string) (Status, error) {
	switch Status(s) {
	case StatusInRoute, StatusFinished:
		return Status(s), nil
	default:
		return "", fmt.Errorf("unknown status %q (want %s or %s)", s, StatusInRoute, StatusFinished)
	}
}

func (s Status) String() string { return string(s) }

// Location is a WGS84 coordinate pair.
type Location struct {
	Latitude  float64 `json:"latitude"`
	Longitude float64 `json:"longitude"`
}

// LocationMessage is the payload published for every simulated GPS fix.
// Timestamp is expressed in milliseconds since the Unix epoch.
type LocationMessage struct {
	DriverID       string   `json:"driverId"`
	DriverLocation Location `json:"driverLocation"`
	Timestamp      int64    `json:"timestamp"`
	CurrentRouteID string   `json:"currentRouteId"`
	Status         Status   `json:"status"`
}
