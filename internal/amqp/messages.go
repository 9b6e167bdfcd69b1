package amqp

import (
	"encoding/json"
	"time"

	"github.com/google/uuid"
)

// DatasetRefreshedMessage announces that the mirror holds new upstream data.
// Consumers drop their cached dataset; the payload is informational.
type DatasetRefreshedMessage struct {
	RunID       uuid.UUID `json:"run_id"`
	MirrorRunID int64     `json:"mirror_run_id"`
	LedgerRows  int       `json:"ledger_rows"`
	TargetRows  int       `json:"target_rows"`
	Timestamp   time.Time `json:"timestamp"`
}

// NewDatasetRefreshedMessage creates a message with a fresh run ID.
func NewDatasetRefreshedMessage(mirrorRunID int64, ledgerRows, targetRows int) *DatasetRefreshedMessage {
	return &DatasetRefreshedMessage{
		RunID:       uuid.New(),
		MirrorRunID: mirrorRunID,
		LedgerRows:  ledgerRows,
		TargetRows:  targetRows,
		Timestamp:   time.Now().UTC(),
	}
}

// ToJSON converts the message to JSON bytes
func (m *DatasetRefreshedMessage) ToJSON() ([]byte, error) {
	return json.Marshal(m)
}

// DatasetRefreshedMessageFromJSON creates a message from JSON bytes
func DatasetRefreshedMessageFromJSON(data []byte) (*DatasetRefreshedMessage, error) {
	var msg DatasetRefreshedMessage
	if err := json.Unmarshal(data, &msg); err != nil {
		return nil, err
	}
	return &msg, nil
}
