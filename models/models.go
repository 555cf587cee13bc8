package models

import (
	"fmt"
	"time"
)

// Event is a consumed message value parsed as a JSON object.
type Event map[string]interface{}

type ConsumedMessage struct {
	Topic     string    `json:"topic"`
	Partition int       `json:"partition"`
	Offset    int64     `json:"offset"`
	Key       string    `json:"key,omitempty"`
	Time      time.Time `json:"time"`
	Event     Event     `json:"event"`
}

// RecordMetadata is what the broker acknowledged for a publish.
type RecordMetadata struct {
	Topic          string        `json:"topic"`
	Partition      int           `json:"partition"`
	BaseOffset     int64         `json:"base_offset"`
	LogAppendTime  time.Time     `json:"log_append_time"`
	LogStartOffset int64         `json:"log_start_offset"`
	Throttle       time.Duration `json:"throttle"`
}

// ScratchRow mirrors one row of the database probe's scratch table.
type ScratchRow struct {
	ID   uint8  `json:"id"`
	Name string `json:"name"`
	Cnt  uint8  `json:"cnt"`
}

func (r ScratchRow) String() string { return fmt.Sprintf("%d | %s", r.ID, r.Name) }

type CycleReport struct {
	RunID    string        `json:"run_id"`
	Started  time.Time     `json:"started"`
	Duration time.Duration `json:"duration"`
	Rows     []ScratchRow  `json:"rows"`
}

// Lines renders the rows as "id | name" in row order.
func (c CycleReport) Lines() []string {
	out := make([]string, 0, len(c.Rows))
	for _, r := range c.Rows {
		out = append(out, r.String())
	}
	return out
}
