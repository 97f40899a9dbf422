package progress

import (
	"mediaflow/internal/analyzer"
	"mediaflow/internal/catalog"
)

// EventType discriminates the three event shapes.
type EventType string

const (
	EventProgress EventType = "progress"
	EventComplete EventType = "complete"
	EventError    EventType = "error"
)

// Event is the payload delivered to subscribers. Which fields are populated
// depends on Type:
//
//	progress: ID, Status, Stage, Progress, Message
//	complete: ID, SensitivityResult
//	error:    ID, Error
type Event struct {
	Type              EventType        `json:"type"`
	ID                string           `json:"id"`
	Status            catalog.Status   `json:"status,omitempty"`
	Stage             catalog.Stage    `json:"stage,omitempty"`
	Progress          *int             `json:"progress,omitempty"`
	Message           string           `json:"message,omitempty"`
	SensitivityResult *analyzer.Result `json:"sensitivityResult,omitempty"`
	Error             string           `json:"error,omitempty"`
}

// ProgressEvent snapshots item's pipeline position.
func ProgressEvent(item *catalog.Item) Event {
	progress := item.Progress
	return Event{
		Type:     EventProgress,
		ID:       item.ID,
		Status:   item.Status,
		Stage:    item.Stage,
		Progress: &progress,
		Message:  item.ProgressMessage,
	}
}

// CompleteEvent reports a finished run and its classification.
func CompleteEvent(item *catalog.Item) Event {
	return Event{Type: EventComplete, ID: item.ID, SensitivityResult: item.Sensitivity}
}

// ErrorEvent reports a fatal run failure.
func ErrorEvent(id, message string) Event {
	return Event{Type: EventError, ID: id, Error: message}
}

// ItemTopic is the topic carrying events for one media item.
func ItemTopic(itemID string) string {
	return "item:" + itemID
}

// UserTopic is the topic carrying events for every item a user owns.
func UserTopic(userID string) string {
	return "user:" + userID
}

// Topics lists the topics an event about item should reach.
func Topics(itemID, ownerID string) []string {
	if ownerID == "" {
		return []string{ItemTopic(itemID)}
	}
	return []string{ItemTopic(itemID), UserTopic(ownerID)}
}
