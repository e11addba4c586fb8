package mqtt

// DefaultLocationPrefix is the topic prefix downstream trackers subscribe to.
const DefaultLocationPrefix = "drivers_location/"

// LocationTopic returns the per-vehicle topic for driverID.
func LocationTopic(prefix, driverID string) string {
	return prefix + driverID
}
