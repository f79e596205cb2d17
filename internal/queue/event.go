// Package queue defines message payloads exchanged over the message broker
// together with the publisher used by the API and the audit consumer.
package queue

// PersonEventsQueue is the durable queue person lifecycle events go to.
const PersonEventsQueue = "persons.events"

// Event types.
const (
	EventPersonCreated = "person.created"
	EventPersonUpdated = "person.updated"
	EventPersonDeleted = "person.deleted"
)

// PersonEvent is published after a person write has been committed.  It
// carries enough information for the audit log without querying the
// primary database.
type PersonEvent struct {
	Type       string   `json:"type"`
	PersonID   uint64   `json:"person_id"`
	FullName   string   `json:"full_name"`
	AddressIDs []uint64 `json:"address_ids"`
	ActorID    uint64   `json:"actor_id,omitempty"`
	OccurredAt string   `json:"occurred_at"`
}
