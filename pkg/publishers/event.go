package publishers

import (
	"encoding/json"
	"fmt"
	"strconv"
	"time"

	"github.com/samvad-hq/sharecount/internal/domain"
)

// Event represents the payload published downstream.
type Event struct {
	TargetID    string          `json:"target_id"`
	TargetName  string          `json:"target_name"`
	Snapshot    domain.Snapshot `json:"snapshot"`
	CollectedAt time.Time       `json:"collected_at"`
}

// NewEvent stamps a snapshot of target with the collection time.
func NewEvent(targetID, targetName string, snapshot domain.Snapshot) Event {
	return Event{
		TargetID:    targetID,
		TargetName:  targetName,
		Snapshot:    snapshot,
		CollectedAt: time.Now().UTC(),
	}
}

// encode returns the JSON body plus the message attributes that let
// subscribers filter without decoding it.
func (e Event) encode() ([]byte, map[string]string, error) {
	payload, err := json.Marshal(e)
	if err != nil {
		return nil, nil, fmt.Errorf("marshal event: %w", err)
	}
	attrs := map[string]string{
		"target_id": e.TargetID,
		"total":     strconv.FormatInt(e.Snapshot.Total, 10),
	}
	return payload, attrs, nil
}
