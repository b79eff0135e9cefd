package storage

import "safeTasks/internal/model"

// Storage defines a sink for history entries.
type Storage interface {
	PutEvents(events []model.EventTx) error
}
