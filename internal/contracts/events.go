package contracts

// EventCategory is a risk-event class detected in news headlines
type EventCategory string

const (
	EventDefault          EventCategory = "default"
	EventBankruptcy       EventCategory = "bankruptcy"
	EventRestructuring    EventCategory = "restructuring"
	EventDowngrade        EventCategory = "downgrade"
	EventUpgrade          EventCategory = "upgrade"
	EventMerger           EventCategory = "merger"
	EventLawsuit          EventCategory = "lawsuit"
	EventManagementChange EventCategory = "management_change"
)
