// Package detect runs the return-mode watch loop: poll the item
// classifier, debounce noisy detections into a stable identification,
// and trigger the matching return transaction.
package detect

import (
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"sync"
	"time"

	"github.com/officebot/loanarm/pkg/robot"
)

// Sample is one classifier invocation result. OK guarantees the item
// is a catalog member identified at or above the confidence threshold;
// both checks happen at the classifier boundary, never in the
// supervisor.
type Sample struct {
	OK         bool
	Item       robot.Item
	Confidence float64
	Note       string // why the sample did not count, for display
}

// Classifier is the boundary to the vision system.
type Classifier interface {
	Classify(ctx context.Context) (Sample, error)
}

// HTTPClassifier calls an inference sidecar over HTTP. The sidecar
// owns the camera and the model; one POST returns one classification
// of the current frame.
type HTTPClassifier struct {
	URL       string
	Threshold float64
	Client    *http.Client
}

// NewHTTPClassifier creates a classifier boundary against url with the
// given confidence threshold.
func NewHTTPClassifier(url string, threshold float64) *HTTPClassifier {
	return &HTTPClassifier{
		URL:       url,
		Threshold: threshold,
		Client:    &http.Client{Timeout: 10 * time.Second},
	}
}

type classifyResponse struct {
	Success    bool               `json:"success"`
	ClassName  string             `json:"class_name"`
	Confidence float64            `json:"confidence"`
	AllScores  map[string]float64 `json:"all_predictions"`
	Error      string             `json:"error"`
}

// Classify requests one classification. Threshold and catalog checks
// are applied here so a returned OK sample is always actionable.
func (c *HTTPClassifier) Classify(ctx context.Context) (Sample, error) {
	req, err := http.NewRequestWithContext(ctx, http.MethodPost, c.URL, nil)
	if err != nil {
		return Sample{}, fmt.Errorf("build classify request: %w", err)
	}
	resp, err := c.Client.Do(req)
	if err != nil {
		return Sample{}, fmt.Errorf("classify: %w", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		return Sample{}, fmt.Errorf("classify: unexpected status %s", resp.Status)
	}

	var body classifyResponse
	if err := json.NewDecoder(resp.Body).Decode(&body); err != nil {
		return Sample{}, fmt.Errorf("decode classify response: %w", err)
	}

	sample := Sample{
		Item:       robot.Item(body.ClassName),
		Confidence: body.Confidence,
	}
	switch {
	case !body.Success:
		sample.Note = body.Error
		if sample.Note == "" {
			sample.Note = "no item recognized"
		}
	case body.Confidence < c.Threshold:
		sample.Note = fmt.Sprintf("confidence too low: %.0f%% < %.0f%%", body.Confidence*100, c.Threshold*100)
	case !robot.Known(body.ClassName):
		sample.Note = fmt.Sprintf("not a catalog item: %q", body.ClassName)
	default:
		sample.OK = true
	}
	return sample, nil
}

// ScriptedClassifier replays a fixed sequence of samples. Used by the
// simulation mode and tests.
type ScriptedClassifier struct {
	mu      sync.Mutex
	samples []Sample
	next    int
	loop    bool
	calls   int
}

// NewScripted builds a classifier that returns the given samples in
// order, then failed samples once exhausted.
func NewScripted(samples ...Sample) *ScriptedClassifier {
	return &ScriptedClassifier{samples: samples}
}

// NewScriptedLoop builds a classifier that cycles through the samples
// forever.
func NewScriptedLoop(samples ...Sample) *ScriptedClassifier {
	return &ScriptedClassifier{samples: samples, loop: true}
}

func (c *ScriptedClassifier) Classify(ctx context.Context) (Sample, error) {
	if err := ctx.Err(); err != nil {
		return Sample{}, err
	}
	c.mu.Lock()
	defer c.mu.Unlock()
	c.calls++
	if c.next >= len(c.samples) {
		if !c.loop || len(c.samples) == 0 {
			return Sample{Note: "script exhausted"}, nil
		}
		c.next = 0
	}
	s := c.samples[c.next]
	c.next++
	return s, nil
}

// Calls reports how many classifications were requested.
func (c *ScriptedClassifier) Calls() int {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.calls
}
