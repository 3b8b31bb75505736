package entity

// TimeSlots is the fixed daily consultation slot table, in booking order.
// Appointments always reference one of these values verbatim.
var TimeSlots = []string{
	"09:00 AM",
	"10:00 AM",
	"11:00 AM",
	"12:00 PM",
	"01:00 PM",
	"02:00 PM",
	"03:00 PM",
	"04:00 PM",
	"05:00 PM",
}

// IsValidTimeSlot checks that the given slot belongs to the fixed slot table
func IsValidTimeSlot(slot string) bool {
	return SlotIndex(slot) >= 0
}

// SlotIndex returns the position of a slot in the daily table, -1 if unknown.
// Slot strings do not sort lexically ("01:00 PM" < "09:00 AM"), so ordering
// must always go through this index.
func SlotIndex(slot string) int {
	for i, s := range TimeSlots {
		if s == slot {
			return i
		}
	}
	return -1
}

// FreeSlots returns the slot table minus the booked set, preserving table order
func FreeSlots(booked []string) []string {
	bookedSet := make(map[string]struct{}, len(booked))
	for _, s := range booked {
		bookedSet[s] = struct{}{}
	}

	free := make([]string, 0, len(TimeSlots))
	for _, s := range TimeSlots {
		if _, ok := bookedSet[s]; !ok {
			free = append(free, s)
		}
	}
	return free
}
