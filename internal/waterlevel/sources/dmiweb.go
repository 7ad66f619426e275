package sources

import (
	"context"
	"math"
	"net/http"
	"strings"
	"time"

	"github.com/PuerkitoBio/goquery"
	"github.com/sony/gobreaker"

	"github.com/soeholm/vandstand/internal/stations"
	"github.com/soeholm/vandstand/internal/waterlevel"
)

// DMIWebName labels readings scraped from the DMI water-level page.
const DMIWebName = "DMI Website"

// DMIWeb scrapes www.dmi.dk's vandstand page for the requested station's
// current value. The page lists all stations; we match on the station name.
// Values there are already cm DVR90.
type DMIWeb struct {
	baseURL string
	client  *http.Client
	circuit *gobreaker.CircuitBreaker
	backoff backoff
	bounds  Bounds
}

func NewDMIWeb(client *http.Client, bounds Bounds) *DMIWeb {
	return &DMIWeb{
		baseURL: "https://www.dmi.dk/hav/vandstand/",
		client:  client,
		circuit: newBreaker("dmi-web"),
		backoff: defaultBackoff(),
		bounds:  bounds,
	}
}

func (d *DMIWeb) Name() string { return DMIWebName }

func (d *DMIWeb) Fetch(ctx context.Context, station stations.Station) (waterlevel.Reading, error) {
	resp, err := fetchWithResilience(ctx, d.client, d.circuit, d.backoff, func() (*http.Request, error) {
		return http.NewRequest(http.MethodGet, d.baseURL, nil)
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
		Source:     DMIWebName,
		ObservedAt: time.Now().UTC(),
	}

	// Match the station row by name; fall back to the first word so
	// "Esbjerg Havn I" also matches a row labeled just "Esbjerg".
	needle := station.Name
	if i := strings.IndexByte(needle, ' '); i > 0 {
		needle = needle[:i]
	}

	var rangeErr error
	doc.Find(".station-row, .vandstand-station").EachWithBreak(func(_ int, row *goquery.Selection) bool {
		name := row.Find(".station-name").Text()
		if !strings.Contains(name, needle) {
			return true
		}

		text := row.Find(".current-value, .vandstand-value").First().Text()
		value, err := parseNumber(text)
		if err != nil {
			return false
		}
		cm := int(math.Round(value))
		if err := d.bounds.Check(cm); err != nil {
			rangeErr = err
			return false
		}
		reading.ValueCm = &cm
		return false
	})
	if rangeErr != nil {
		return waterlevel.Reading{}, rangeErr
	}

	return reading, nil
}
