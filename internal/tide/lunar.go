package tide

import (
	"math"
	"time"

	"github.com/soniakeys/meeus/v3/julian"
)

// SynodicMonth is the mean length of the lunar cycle in days.
const SynodicMonth = 29.530588853

// newMoonJD is the Julian day of the new moon of 2000-01-06, the epoch the
// phase fraction is counted from.
const newMoonJD = 2451550.26

// MoonPhase returns the lunar phase fraction in [0,1): 0 is new moon,
// 0.5 full moon. The Julian-day approximation is accurate to well under a
// day, which is plenty for picking spring versus neap.
func MoonPhase(t time.Time) float64 {
	t = t.UTC()
	day := float64(t.Day()) + float64(t.Hour())/24
	jd := julian.CalendarGregorianToJD(t.Year(), int(t.Month()), day)

	phase := math.Mod((jd-newMoonJD)/SynodicMonth, 1)
	if phase < 0 {
		phase++
	}
	return phase
}
