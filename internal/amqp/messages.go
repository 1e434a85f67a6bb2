package amqp

import (
	"encoding/json"
	"time"
)

// RecordExportMessage asks the worker to append one ledger transaction to the
// backup spreadsheet. It carries only the ID; the worker reads the full row
// from the database so the message never goes stale.
type RecordExportMessage struct {
	ID        int64     `json:"id"`
	Timestamp time.Time `json:"timestamp"`
}

func NewRecordExportMessage(id int64) *RecordExportMessage {
	return &RecordExportMessage{
		ID:        id,
		Timestamp: time.Now(),
	}
}

func (m *RecordExportMessage) ToJSON() ([]byte, error) {
	return json.Marshal(m)
}

func RecordExportMessageFromJSON(data []byte) (*RecordExportMessage, error) {
	var msg RecordExportMessage
	if err := json.Unmarshal(data, &msg); err != nil {
		return nil, err
	}
	return &msg, nil
}
