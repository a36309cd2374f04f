package entity

// CounterDateLayout is the calendar-day granularity the counter resets on.
const CounterDateLayout = "2006-01-02"

// DailyCounter is the singleton checkpoint behind order code allocation.
// Only the allocator mutates it; the persisted copy is a checkpoint, not the
// concurrency control.
type DailyCounter struct {
	Date    string `json:"date"`
	Counter int    `json:"counter"`
}
