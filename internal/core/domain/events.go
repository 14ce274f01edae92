package domain

// EventType discriminates question lifecycle events on the bus and on the
// client stream. The values double as the wire `type` field for stream frames.
type EventType string

const (
	EventQuestionCreated EventType = "new-question"
	EventQuestionUpdated EventType = "question-update"
	EventQuestionDeleted EventType = "question-delete"
)

// QuestionEvent is a lifecycle hint delivered to stream subscribers.
// Events are not a log: the same logical change may arrive twice (local bus
// and cross-process replay), and consumers reconcile against store state.
type QuestionEvent struct {
	Type     EventType `json:"type"`
	ID       string    `json:"id"`
	Likes    int64     `json:"likes,omitempty"`
	Question *Question `json:"question,omitempty"`
}

// NewQuestionCreated builds the event published after a successful create.
func NewQuestionCreated(q Question) QuestionEvent {
	return QuestionEvent{Type: EventQuestionCreated, ID: q.ID, Likes: q.Likes, Question: &q}
}

// NewQuestionUpdated builds the event published after a like increments the counter.
func NewQuestionUpdated(id string, likes int64) QuestionEvent {
	return QuestionEvent{Type: EventQuestionUpdated, ID: id, Likes: likes}
}

// NewQuestionDeleted builds the event published after a delete removes the record.
func NewQuestionDeleted(id string) QuestionEvent {
	return QuestionEvent{Type: EventQuestionDeleted, ID: id}
}
