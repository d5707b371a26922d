package tools

// Calendar tool names.
const (
	CreateEvent = "create_event"
	GetEvent    = "get_event"
	UpdateEvent = "update_event"
	DeleteEvent = "delete_event"
	ListEvents  = "list_events"
)

// EventTime is the start or end of an event.
type EventTime struct {
	DateTime string `json:"dateTime" yaml:"dateTime" validate:"required" jsonschema:"description=The event time in ISO 8601 format for example 2025-03-02T10:00:00"`
	TimeZone string `json:"timeZone,omitempty" yaml:"timeZone,omitempty" jsonschema:"description=The time zone (optional)"`
}

// CreateEventArgs are the arguments of create_event.
type CreateEventArgs struct {
	Summary     string     `json:"summary" yaml:"summary" validate:"required" jsonschema:"description=The title of the event"`
	Start       *EventTime `json:"start" yaml:"start" validate:"required" jsonschema:"description=The event start time"`
	End         *EventTime `json:"end" yaml:"end" validate:"required" jsonschema:"description=The event end time"`
	Description string     `json:"description,omitempty" yaml:"description,omitempty" jsonschema:"description=Description of the event (optional)"`
	Location    string     `json:"location,omitempty" yaml:"location,omitempty" jsonschema:"description=Location of the event (optional)"`
}

// GetEventArgs are the arguments of get_event.
type GetEventArgs struct {
	EventID string `json:"eventId" yaml:"eventId" validate:"required" jsonschema:"description=ID of the event to retrieve"`
}

// UpdateEventArgs are the arguments of update_event.
type UpdateEventArgs struct {
	EventID     string     `json:"eventId" yaml:"eventId" validate:"required" jsonschema:"description=ID of the event to update"`
	Summary     string     `json:"summary,omitempty" yaml:"summary,omitempty" jsonschema:"description=New event title (optional)"`
	Start       *EventTime `json:"start,omitempty" yaml:"start,omitempty" jsonschema:"description=New start time"`
	End         *EventTime `json:"end,omitempty" yaml:"end,omitempty" jsonschema:"description=New end time"`
	Description string     `json:"description,omitempty" yaml:"description,omitempty" jsonschema:"description=New event description (optional)"`
	Location    string     `json:"location,omitempty" yaml:"location,omitempty" jsonschema:"description=New event location (optional)"`
}

// DeleteEventArgs are the arguments of delete_event.
type DeleteEventArgs struct {
	EventID string `json:"eventId" yaml:"eventId" validate:"required" jsonschema:"description=ID of the event to delete"`
}

// ListEventsArgs are the arguments of list_events.
type ListEventsArgs struct {
	TimeMin    string `json:"timeMin" yaml:"timeMin" validate:"required" jsonschema:"description=Start of time range (ISO format)"`
	TimeMax    string `json:"timeMax" yaml:"timeMax" validate:"required" jsonschema:"description=End of time range (ISO format)"`
	MaxResults int    `json:"maxResults,omitempty" yaml:"maxResults,omitempty" validate:"omitempty,min=1,max=2500" jsonschema:"description=Maximum number of events to return (optional)"`
	OrderBy    string `json:"orderBy,omitempty" yaml:"orderBy,omitempty" validate:"omitempty,oneof=startTime updated" jsonschema:"description=Sort order (optional),enum=startTime,enum=updated"`
}

// Calendar returns the registry of the calendar tools.
func Calendar() *Registry {
	r, err := NewRegistry(
		MustNew[CreateEventArgs](CreateEvent, "Create a new event in the user's calendar"),
		MustNew[GetEventArgs](GetEvent, "Retrieves details of a specific event"),
		MustNew[UpdateEventArgs](UpdateEvent, "Updates an existing event"),
		MustNew[DeleteEventArgs](DeleteEvent, "Deletes an event from the calendar"),
		MustNew[ListEventsArgs](ListEvents, "Lists events within a specified time range"),
	)
	if err != nil {
		panic(err)
	}
	return r
}
