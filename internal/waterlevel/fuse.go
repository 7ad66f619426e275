package waterlevel

import (
	"time"

	"github.com/soeholm/vandstand/internal/tide"
)

const (
	measuredHours = 48
	forecastHours = 48

	highlightOffset = 6 * time.Hour
	highlightLabel  = "6 timer frem"
)

const disclaimer = "Brug IKKE til navigation eller sikkerhedskritiske beslutninger"

var liveDataLinks = map[string]string{
	"dmi":         "https://www.dmi.dk/hav/vandstand/",
	"esbjergHavn": "https://portesbjerg.dk/havneservice/vejrforhold",
}

// Fuser combines source readings with the tide model into one consistent
// series. It never fails: with no usable reading the result is the pure
// simulated series, clearly labeled as such.
type Fuser struct {
	model *tide.Model
}

func NewFuser(model *tide.Model) *Fuser {
	return &Fuser{model: model}
}

// Fuse picks the best reading by priority (the order of readings), anchors
// the simulated series to it, and assembles the response. The calibration
// offset shifts every point by the same amount, so the model keeps its shape
// but passes through the real value at now.
func (f *Fuser) Fuse(station string, readings []Reading, now time.Time) FusedResponse {
	now = now.UTC().Truncate(time.Second)
	simulatedNow := f.model.Estimate(now, 0)

	var selected *Reading
	for i := range readings {
		if readings[i].Usable() {
			selected = &readings[i]
			break
		}
	}

	calibration := 0.0
	current := TimedLevel{Time: now, Value: simulatedNow}
	if selected != nil {
		current.Value = *selected.ValueCm
		calibration = float64(*selected.ValueCm - simulatedNow)
	}

	measured := make([]TimedLevel, 0, measuredHours+1)
	for i := measuredHours; i >= 0; i-- {
		t := now.Add(-time.Duration(i) * time.Hour)
		measured = append(measured, TimedLevel{Time: t, Value: f.model.Estimate(t, calibration)})
	}

	forecast := make([]TimedLevel, 0, forecastHours)
	for i := 1; i <= forecastHours; i++ {
		t := now.Add(time.Duration(i) * time.Hour)
		forecast = append(forecast, TimedLevel{Time: t, Value: f.model.Estimate(t, calibration)})
	}

	return FusedResponse{
		Station:   station,
		Current:   current,
		Measured:  measured,
		Forecast:  forecast,
		Highlight: highlight(current, forecast, now),
		Metadata:  f.metadata(selected, now),
	}
}

// Simulated builds the pure fallback response without consulting any source.
func (f *Fuser) Simulated(station string, now time.Time) FusedResponse {
	return f.Fuse(station, nil, now)
}

// highlight returns the forecast point nearest six hours out. The forecast
// window is larger than six hours, so the fallback to current only guards
// against a misconfigured window.
func highlight(current TimedLevel, forecast []TimedLevel, now time.Time) Highlight {
	if len(forecast) == 0 {
		return Highlight{Time: current.Time, Value: current.Value, Label: highlightLabel}
	}

	target := now.Add(highlightOffset)
	best := forecast[0]
	for _, p := range forecast[1:] {
		if absDuration(p.Time.Sub(target)) < absDuration(best.Time.Sub(target)) {
			best = p
		}
	}
	return Highlight{Time: best.Time, Value: best.Value, Label: highlightLabel}
}

func (f *Fuser) metadata(selected *Reading, now time.Time) Metadata {
	md := Metadata{
		Unit:       "cm",
		Reference:  "DVR90",
		LastUpdate: now,
		Model:      f.model.Name(),
	}

	if selected == nil {
		md.Source = SourceSimulated
		md.Note = "Dette er simuleret data. For live maalinger se liveDataLinks."
		md.Disclaimer = disclaimer
		md.LiveDataLinks = liveDataLinks
		return md
	}

	md.Source = selected.Source
	md.Wind = selected.Wind
	md.Waves = selected.Waves
	return md
}

func absDuration(d time.Duration) time.Duration {
	if d < 0 {
		return -d
	}
	return d
}
