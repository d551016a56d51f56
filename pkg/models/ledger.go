package models

import "time"

// LedgerEntry is one chronological in/out event reconstructed from
// purchase, usage and mutation records. RunningBalance is a prefix sum
// computed during replay, never stored.
type LedgerEntry struct {
	Date           time.Time `json:"date"`
	Description    string    `json:"description"`
	In             float64   `json:"in"`
	Out            float64   `json:"out"`
	RunningBalance float64   `json:"running_balance"`
}
