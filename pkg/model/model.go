package model

// Activity is the sailing state assigned to a voyage point.
type Activity string

const (
	ActivityAnchored Activity = "anchored"
	ActivityMotoring Activity = "motoring"
	ActivitySailing  Activity = "sailing"
)

// Valid reports whether a is one of the known activities.
func (a Activity) Valid() bool {
	switch a {
	case ActivityAnchored, ActivityMotoring, ActivitySailing:
		return true
	}
	return false
}
