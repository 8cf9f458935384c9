package core

import (
	"context"
	"encoding/xml"
	"errors"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"strconv"
	"strings"
	"time"
)

// MaxPredictionsPerDirection is how many upcoming arrivals are kept for
// each direction of a route.
const MaxPredictionsPerDirection = 2

// maxFeedBytes caps how much of a feed response is read.
const maxFeedBytes = 1 << 20

// ErrPredictionFeed marks a failure to fetch or decode the arrival feed.
var ErrPredictionFeed = errors.New("prediction feed unavailable")

// Prediction is one upcoming arrival at a stop.
type Prediction struct {
	Direction string `json:"direction,omitempty"`
	Minutes   int    `json:"minutes"`
	Seconds   int    `json:"seconds"`
	Vehicle   string `json:"vehicle,omitempty"`
}

// publicXMLFeed response shapes. Attributes are read as strings so a
// missing value can be told apart from zero.
type feedBody struct {
	XMLName     xml.Name          `xml:"body"`
	Predictions []feedPredictions `xml:"predictions"`
	Errors      []feedError       `xml:"Error"`
}

type feedPredictions struct {
	RouteTag   string          `xml:"routeTag,attr"`
	StopTag    string          `xml:"stopTag,attr"`
	Directions []feedDirection `xml:"direction"`
}

type feedDirection struct {
	Title       string           `xml:"title,attr"`
	Predictions []feedPrediction `xml:"prediction"`
}

type feedPrediction struct {
	Minutes string `xml:"minutes,attr"`
	Seconds string `xml:"seconds,attr"`
	Vehicle string `xml:"vehicle,attr"`
}

type feedError struct {
	ShouldRetry string `xml:"shouldRetry,attr"`
	Message     string `xml:",chardata"`
}

// ParsePredictions decodes a publicXMLFeed predictions document. It keeps
// the first MaxPredictionsPerDirection entries of each direction and skips
// entries without minutes and seconds. A document without predictions
// yields an empty slice. A feed <Error> element or malformed XML is an
// error wrapping ErrPredictionFeed.
func ParsePredictions(r io.Reader) ([]Prediction, error) {
	var body feedBody
	if err := xml.NewDecoder(r).Decode(&body); err != nil {
		return nil, fmt.Errorf("%w: decode: %v", ErrPredictionFeed, err)
	}

	if len(body.Errors) > 0 {
		return nil, fmt.Errorf("%w: %s", ErrPredictionFeed, strings.TrimSpace(body.Errors[0].Message))
	}

	out := []Prediction{}
	for _, p := range body.Predictions {
		for _, dir := range p.Directions {
			kept := 0
			for _, fp := range dir.Predictions {
				if kept == MaxPredictionsPerDirection {
					break
				}
				kept++

				minutes, err := strconv.Atoi(strings.TrimSpace(fp.Minutes))
				if err != nil {
					continue
				}
				seconds, err := strconv.Atoi(strings.TrimSpace(fp.Seconds))
				if err != nil {
					continue
				}
				out = append(out, Prediction{
					Direction: dir.Title,
					Minutes:   minutes,
					Seconds:   seconds,
					Vehicle:   fp.Vehicle,
				})
			}
		}
	}
	return out, nil
}

// FormatPredictionMessage renders the rider-facing sentence for a route.
// Seconds in the feed are the total time to arrival, so the sentence shows
// the remainder past the whole minutes.
func FormatPredictionMessage(routeTag string, preds []Prediction) string {
	switch len(preds) {
	case 0:
		return fmt.Sprintf("No arrival time predictions available for route %s.", routeTag)
	case 1:
		first := preds[0]
		return fmt.Sprintf("Bus %s is arriving in %d minutes and %d seconds.",
			routeTag, first.Minutes, remainderSeconds(first))
	default:
		return fmt.Sprintf("Bus %s is arriving in %d minutes, followed by another bus in %d minutes.",
			routeTag, preds[0].Minutes, preds[1].Minutes)
	}
}

func remainderSeconds(p Prediction) int {
	rem := p.Seconds - p.Minutes*60
	if rem < 0 || rem >= 60 {
		return p.Seconds % 60
	}
	return rem
}

// PredictionClient fetches arrival predictions from a NextBus-style
// publicXMLFeed endpoint.
type PredictionClient struct {
	httpClient *http.Client
	feedURL    string
	agency     string
}

// NewPredictionClient creates a client for agency at feedURL. A zero
// timeout leaves requests bounded only by the caller's context.
func NewPredictionClient(feedURL, agency string, timeout time.Duration) *PredictionClient {
	return &PredictionClient{
		httpClient: &http.Client{Timeout: timeout},
		feedURL:    feedURL,
		agency:     agency,
	}
}

// Predictions fetches the upcoming arrivals of routeTag at stopID.
func (c *PredictionClient) Predictions(ctx context.Context, routeTag, stopID string) ([]Prediction, error) {
	u, err := url.Parse(c.feedURL)
	if err != nil {
		return nil, fmt.Errorf("parse feed url: %w", err)
	}
	q := u.Query()
	q.Set("command", "predictions")
	q.Set("a", c.agency)
	q.Set("r", routeTag)
	q.Set("s", stopID)
	u.RawQuery = q.Encode()

	req, err := http.NewRequestWithContext(ctx, http.MethodGet, u.String(), nil)
	if err != nil {
		return nil, fmt.Errorf("build request: %w", err)
	}

	resp, err := c.httpClient.Do(req)
	if err != nil {
		return nil, fmt.Errorf("%w: fetch: %w", ErrPredictionFeed, err)
	}
	defer func() { _ = resp.Body.Close() }()

	if resp.StatusCode != http.StatusOK {
		return nil, fmt.Errorf("%w: HTTP %d", ErrPredictionFeed, resp.StatusCode)
	}

	return ParsePredictions(io.LimitReader(resp.Body, maxFeedBytes))
}
