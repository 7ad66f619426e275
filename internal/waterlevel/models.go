package waterlevel

import (
	"time"
)

// SourceSimulated is the provenance label used when no live source produced
// a usable reading and the response is pure tide model output.
const SourceSimulated = "simulated"

// TimedLevel is a single water-level point: whole cm relative to DVR90 at an
// instant. Sequences of TimedLevel are always strictly ascending in time.
type TimedLevel struct {
	Time  time.Time `json:"time"`
	Value int       `json:"value"`
}

// Wind carries auxiliary wind observations from the harbor authority.
type Wind struct {
	SpeedMS   float64 `json:"speed"`
	Direction string  `json:"direction,omitempty"`
}

// Waves carries the significant wave height in meters.
type Waves struct {
	HeightM float64 `json:"height"`
}

// Reading is a normalized observation from one source. Adapters convert to
// cm DVR90 before a Reading leaves their boundary, so consumers never see
// meters or offset datums. A nil ValueCm means the source answered but no
// water level could be found in it; a failed fetch produces no Reading at
// all, so the two cases stay distinguishable.
type Reading struct {
	Source     string
	ValueCm    *int
	ObservedAt time.Time
	Wind       *Wind
	Waves      *Waves
}

// Usable reports whether the reading carries a water level.
func (r Reading) Usable() bool {
	return r.ValueCm != nil
}

// Highlight is the forecast point the dashboard calls out, six hours ahead.
type Highlight struct {
	Time  time.Time `json:"time"`
	Value int       `json:"value"`
	Label string    `json:"label"`
}

// Metadata describes where a response came from and how to read it.
type Metadata struct {
	Unit          string            `json:"unit"`
	Reference     string            `json:"reference"`
	LastUpdate    time.Time         `json:"lastUpdate"`
	Source        string            `json:"source"`
	Model         string            `json:"model"`
	Note          string            `json:"note,omitempty"`
	Disclaimer    string            `json:"disclaimer,omitempty"`
	LiveDataLinks map[string]string `json:"liveDataLinks,omitempty"`
	Wind          *Wind             `json:"wind,omitempty"`
	Waves         *Waves            `json:"waves,omitempty"`
}

// FusedResponse is the unit of caching and the API payload: the current
// level plus a past and a future hourly series, all in the same unit and
// datum. Cached and CacheAgeSeconds are stamped by the API layer and are the
// only fields that differ between a cached and a fresh response.
type FusedResponse struct {
	Station         string       `json:"station"`
	Current         TimedLevel   `json:"current"`
	Measured        []TimedLevel `json:"measured"`
	Forecast        []TimedLevel `json:"forecast"`
	Highlight       Highlight    `json:"highlightPoint"`
	Metadata        Metadata     `json:"metadata"`
	Cached          bool         `json:"cached"`
	CacheAgeSeconds int          `json:"cacheAgeSeconds,omitempty"`
}
