package world

// Hour returns the world-clock hour in [0,24).
func (w *World) Hour() int {
	w.timeMu.Lock()
	defer w.timeMu.Unlock()
	return w.hour
}

// SetTime jumps the world clock to an hour (wrapped into [0,24)) and queues
// every visible chunk for a refresh so the new daylight takes effect.
func (w *World) SetTime(h int) {
	w.timeMu.Lock()
	w.hour = ((h % 24) + 24) % 24
	w.timeMu.Unlock()
	w.updateDaylight()
	w.UpdateAllChunks()
}

// advanceHour ticks the clock forward one hour. When the step crosses a
// daylight boundary every visible chunk is queued for a refresh.
func (w *World) advanceHour() {
	w.timeMu.Lock()
	w.hour = (w.hour + 1) % 24
	old := w.daylight
	w.daylight = daylightFor(w.hour)
	changed := w.daylight != old
	w.timeMu.Unlock()
	if changed {
		w.UpdateAllChunks()
	}
}

// IsDaytime reports whether the sun is up.
func (w *World) IsDaytime() bool {
	h := w.Hour()
	return h > 6 && h < 20
}

// IsNighttime is the complement of IsDaytime.
func (w *World) IsNighttime() bool { return !w.IsDaytime() }

// Daylight is the global sunlight intensity for the current hour, in [0,1].
func (w *World) Daylight() float64 {
	w.timeMu.Lock()
	defer w.timeMu.Unlock()
	return w.daylight
}

func (w *World) updateDaylight() {
	w.timeMu.Lock()
	w.daylight = daylightFor(w.hour)
	w.timeMu.Unlock()
}

// daylightFor maps an hour to sunlight intensity: full light through the day,
// stepping down through dusk to a dim night floor and back up through dawn.
func daylightFor(hour int) float64 {
	switch {
	case hour >= 8 && hour <= 17:
		return 1.0
	case hour == 18 || hour == 19:
		return 0.7
	case hour == 20:
		return 0.5
	case hour == 21:
		return 0.3
	case hour == 22 || hour == 23:
		return 0.2
	case hour >= 0 && hour <= 5:
		return 0.1
	case hour == 6:
		return 0.3
	default: // hour == 7
		return 0.7
	}
}
