package sources

import (
	"context"
	"net/http"
	"strings"
	"time"

	"github.com/PuerkitoBio/goquery"
	"github.com/sony/gobreaker"

	"github.com/soeholm/vandstand/internal/common"
	"github.com/soeholm/vandstand/internal/stations"
	"github.com/soeholm/vandstand/internal/waterlevel"
)

// HarborName is the provenance label of the harbor authority reading. It is
// the highest-priority source because the gauge sits in the harbor itself.
const HarborName = "Esbjerg Havn"

// Harbor scrapes the Port Esbjerg weather conditions page. The page is a
// plain label/value table, so the fragile part is matching Danish row labels;
// that is all contained here. The water level row is published in meters
// relative to DVR90 and converted before the Reading leaves this adapter.
type Harbor struct {
	baseURL string
	client  *http.Client
	circuit *gobreaker.CircuitBreaker
	backoff backoff
	bounds  Bounds
}

func NewHarbor(client *http.Client, bounds Bounds) *Harbor {
	return &Harbor{
		baseURL: "https://portesbjerg.dk/havneservice/vejrforhold",
		client:  client,
		circuit: newBreaker("esbjerg-havn"),
		backoff: defaultBackoff(),
		bounds:  bounds,
	}
}

func (h *Harbor) Name() string { return HarborName }

// Fetch pulls the weather table and extracts the water level plus whatever
// wind and wave observations the page carries. A page without a water level
// row still yields a Reading (with a nil value) so the caller can tell
// "reachable but empty" from a failed fetch.
func (h *Harbor) Fetch(ctx context.Context, station stations.Station) (waterlevel.Reading, error) {
	resp, err := fetchWithResilience(ctx, h.client, h.circuit, h.backoff, func() (*http.Request, error) {
		return http.NewRequest(http.MethodGet, h.baseURL, nil)
	})
	if err != nil {
		return waterlevel.Reading{}, err
	}
	defer resp.Body.Close()

	doc, err := goquery.NewDocumentFromReader(resp.Body)
	if err != nil {
		return waterlevel.Reading{}, waterlevel.ErrParse
	}

	reading := waterlevel.Reading{
		Source:     HarborName,
		ObservedAt: time.Now().UTC(),
	}

	var parseErr error
	doc.Find("tr").EachWithBreak(func(_ int, row *goquery.Selection) bool {
		cells := row.Find("td")
		if cells.Length() < 2 {
			return true
		}
		label := strings.ToLower(strings.TrimSpace(cells.Eq(0).Text()))
		value := cells.Eq(1).Text()

		switch {
		case strings.Contains(label, "vandstand") && strings.Contains(label, "havn"):
			meters, err := parseNumber(value)
			if err != nil {
				return true
			}
			cm := metersToCm(meters)
			if err := h.bounds.Check(cm); err != nil {
				parseErr = err
				return false
			}
			reading.ValueCm = &cm
		case strings.Contains(label, "vindhastighed"):
			if speed, err := parseNumber(value); err == nil {
				if reading.Wind == nil {
					reading.Wind = &waterlevel.Wind{}
				}
				reading.Wind.SpeedMS = speed
			}
		case strings.Contains(label, "vindretning"):
			if dir := strings.TrimSpace(value); dir != "" {
				if reading.Wind == nil {
					reading.Wind = &waterlevel.Wind{}
				}
				reading.Wind.Direction = dir
			}
		case common.HasAny(label, "bølge", "boelge") && common.HasAny(label, "højde", "hoejde"):
			if height, err := parseNumber(value); err == nil {
				reading.Waves = &waterlevel.Waves{HeightM: height}
			}
		}
		return true
	})
	if parseErr != nil {
		return waterlevel.Reading{}, parseErr
	}

	return reading, nil
}
