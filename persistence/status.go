package persistence

import (
	"encoding/json"
	"math"
	"time"
)

// Status is the published state of a service.
type Status string

const (
	Unknown           Status = "Unknown"
	Operational       Status = "Operational"
	PendingResolution Status = "Pending resolution"
	SevereOutage      Status = "Severe outage"
	FullOutage        Status = "Full outage"
	Degraded          Status = "Degraded"
	Maintenance       Status = "Maintenance"
	AutoPublished     Status = "Auto published"
)

// PublishableStatuses are the statuses an operator can pick when publishing.
var PublishableStatuses = []Status{Operational, SevereOutage, FullOutage, Degraded, Maintenance}

var allStatuses = map[Status]bool{
	Unknown: true, Operational: true, PendingResolution: true, SevereOutage: true,
	FullOutage: true, Degraded: true, Maintenance: true, AutoPublished: true,
}

// Valid reports whether s belongs to the status vocabulary.
func (s Status) Valid() bool {
	return allStatuses[s]
}

// Record is a status stamped with the time it was written. It is used both
// for the statistics entry of a service and for each of its history entries.
type Record struct {
	Status    Status
	Timestamp time.Time
}

type recordJSON struct {
	Status    Status  `json:"status"`
	Timestamp float64 `json:"timestamp"`
}

// MarshalJSON writes the timestamp as fractional unix seconds.
func (r Record) MarshalJSON() ([]byte, error) {
	ts := float64(r.Timestamp.Unix()) + float64(r.Timestamp.Nanosecond())/1e9

	return json.Marshal(recordJSON{Status: r.Status, Timestamp: ts})
}

func (r *Record) UnmarshalJSON(b []byte) error {
	var v recordJSON
	if err := json.Unmarshal(b, &v); err != nil {
		return err
	}

	sec, frac := math.Modf(v.Timestamp)

	r.Status = v.Status
	r.Timestamp = time.Unix(int64(sec), int64(math.Round(frac*1e9))).UTC()

	return nil
}
