package avr8

// SetCount overwrites the millisecond counter
func (t *TickTimer) SetCount(ms int64) {
	t.millis = ms
}
