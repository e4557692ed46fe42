// Copyright Mesh Intelligence Inc., 2026. All rights reserved.

// Package pipeline orchestrates one query end to end: parse the text into
// an intent, fetch the datasets the intent needs, synthesize the answer.
// Every outcome is an AnswerResult envelope; upstream faults and thin data
// become soft failures, never errors at the boundary.
package pipeline

import (
	"context"
	"errors"
	"fmt"
	"io"
	"os"
	"sort"
	"strings"
	"sync"
	"time"

	"github.com/mrmallick07/project-samarth-backend/internal/datagov"
	"github.com/mrmallick07/project-samarth-backend/internal/gazetteer"
	"github.com/mrmallick07/project-samarth-backend/internal/queryparse"
	"github.com/mrmallick07/project-samarth-backend/internal/synthesis"
	"github.com/mrmallick07/project-samarth-backend/pkg/types"
)

// nowFunc stamps answer envelopes. Tests override it.
var nowFunc = time.Now

// Fetcher retrieves one normalized dataset from the portal. *datagov.Client
// satisfies it; tests substitute fakes.
type Fetcher interface {
	Fetch(ctx context.Context, resourceID string, filters map[string]string) (*types.DatasetResult, error)
}

// Coordinator runs the query pipeline against one fetcher and registry.
type Coordinator struct {
	fetcher  Fetcher
	registry *datagov.Registry
	logw     io.Writer
}

// NewCoordinator wires a coordinator. A nil registry falls back to the
// builtin dataset catalog; fetch warnings go to stderr.
func NewCoordinator(fetcher Fetcher, registry *datagov.Registry) *Coordinator {
	if registry == nil {
		registry = datagov.BuiltinRegistry()
	}
	return &Coordinator{fetcher: fetcher, registry: registry, logw: os.Stderr}
}

// Answer processes one raw query and always returns a complete envelope.
func (c *Coordinator) Answer(ctx context.Context, query string) types.AnswerResult {
	intent := queryparse.Parse(query)

	if intent.Type == types.QueryGeneric && len(intent.States) == 0 && len(intent.Crops) == 0 {
		return c.clarification(intent)
	}

	wanted := c.datasetPlan(intent)
	fetched, failures := c.fetchAll(ctx, intent, wanted)

	if len(fetched) == 0 {
		return c.fetchFailure(intent, wanted, failures)
	}

	res, err := synthesis.Synthesize(intent, fetched)
	if err != nil {
		return c.synthesisFailure(intent, res, err)
	}

	md := res.Metadata
	if len(failures) > 0 {
		missing := make([]string, 0, len(failures))
		for id := range failures {
			missing = append(missing, id)
		}
		sort.Strings(missing)
		md["missing_sources"] = missing
	}

	return types.AnswerResult{
		Success:   true,
		Query:     query,
		Answer:    res.Answer,
		Sources:   res.Sources,
		Metadata:  md,
		Timestamp: nowFunc().UTC(),
	}
}

// datasetPlan decides which registry datasets the intent needs, in a
// deterministic order.
func (c *Coordinator) datasetPlan(intent types.Intent) []string {
	want := make(map[string]bool)

	if intent.Type == types.QueryCorrelation {
		want[datagov.DatasetRainfall] = true
		want[datagov.DatasetCropProduction] = true
	}
	if gazetteer.HasClimateTerm(intent.RawQuery) {
		want[datagov.DatasetRainfall] = true
	}
	if len(intent.Crops) > 0 {
		want[datagov.DatasetCropProduction] = true
	}
	if intent.Type == types.QueryComparison && len(intent.States) >= 2 {
		want[datagov.DatasetRainfall] = true
	}
	if len(want) == 0 {
		// An entity with no cue: states read best against rainfall,
		// anything else against production.
		if len(intent.States) > 0 {
			want[datagov.DatasetRainfall] = true
		} else {
			want[datagov.DatasetCropProduction] = true
		}
	}

	plan := make([]string, 0, len(want))
	for _, id := range []string{datagov.DatasetCropProduction, datagov.DatasetRainfall} {
		if want[id] {
			plan = append(plan, id)
		}
	}
	return plan
}

// filtersFor narrows a fetch upstream when the intent pins a single entity.
// The rainfall resource keys rows by meteorological subdivision, so state
// narrowing happens during synthesis instead.
func filtersFor(datasetID string, intent types.Intent) map[string]string {
	if datasetID != datagov.DatasetCropProduction {
		return nil
	}
	filters := make(map[string]string)
	if len(intent.States) == 1 {
		filters["state_name"] = intent.States[0]
	}
	if len(intent.Crops) == 1 {
		filters["crop"] = intent.Crops[0]
	}
	if len(filters) == 0 {
		return nil
	}
	return filters
}

// fetchAll retrieves every planned dataset concurrently and partitions the
// outcomes into successes and failures keyed by dataset id. Registry
// lookups are resolved before any goroutine starts so the failures map is
// only ever written under the mutex once fetches are in flight.
func (c *Coordinator) fetchAll(ctx context.Context, intent types.Intent, wanted []string) (map[string]*types.DatasetResult, map[string]error) {
	fetched := make(map[string]*types.DatasetResult)
	failures := make(map[string]error)

	type plannedFetch struct {
		id         string
		resourceID string
	}
	var fetches []plannedFetch
	for _, id := range wanted {
		ds, ok := c.registry.Lookup(id)
		if !ok {
			failures[id] = fmt.Errorf("dataset %q not in registry", id)
			continue
		}
		fetches = append(fetches, plannedFetch{id: id, resourceID: ds.ResourceID})
	}

	var mu sync.Mutex
	var wg sync.WaitGroup
	for _, pf := range fetches {
		wg.Add(1)
		go func(id, resourceID string) {
			defer wg.Done()
			result, err := c.fetcher.Fetch(ctx, resourceID, filtersFor(id, intent))
			mu.Lock()
			defer mu.Unlock()
			if err != nil {
				fmt.Fprintf(c.logw, "warning: fetch %s (%s): %v\n", id, resourceID, err)
				failures[id] = err
				return
			}
			fetched[id] = result
		}(pf.id, pf.resourceID)
	}
	wg.Wait()

	return fetched, failures
}

func (c *Coordinator) clarification(intent types.Intent) types.AnswerResult {
	return types.AnswerResult{
		Success: false,
		Query:   intent.RawQuery,
		Answer: "I could not find a recognizable state or crop in your question. " +
			"Try naming an Indian state (for example Punjab or Maharashtra), a crop " +
			"(for example Wheat or Rice), and optionally a year range.",
		Sources:   []types.Citation{},
		Metadata:  map[string]any{"query_type": string(intent.Type)},
		Timestamp: nowFunc().UTC(),
		Error:     "clarification_needed",
	}
}

// kindInternal marks failures that never reached the portal, such as a
// dataset id missing from the registry. Keeping it distinct from the
// upstream kinds stops a local configuration problem from reading as a
// portal fault.
const kindInternal = "internal"

// fetchFailure renders a soft failure when no dataset could be retrieved,
// carrying the upstream error kind when one is known.
func (c *Coordinator) fetchFailure(intent types.Intent, wanted []string, failures map[string]error) types.AnswerResult {
	kind := kindInternal
	for _, id := range wanted {
		err, ok := failures[id]
		if !ok {
			continue
		}
		var ue *datagov.UpstreamError
		if errors.As(err, &ue) {
			kind = string(ue.Kind)
			break
		}
	}

	answer := "I could not retrieve the government datasets needed to answer this question. "
	switch kind {
	case string(datagov.KindAuth):
		answer += "The data portal rejected our credentials; this is a configuration problem on our side."
	case string(datagov.KindRateLimit):
		answer += "The data portal is rate limiting requests; please try again in a moment."
	case string(datagov.KindTimeout):
		answer += "The data portal did not respond in time; please try again."
	case kindInternal:
		answer += "The service's dataset catalog does not cover this question; this is a configuration problem on our side."
	default:
		answer += "The data portal returned an unusable response; please try again later."
	}

	return types.AnswerResult{
		Success:   false,
		Query:     intent.RawQuery,
		Answer:    answer,
		Sources:   []types.Citation{},
		Metadata:  map[string]any{"query_type": string(intent.Type)},
		Timestamp: nowFunc().UTC(),
		Error:     kind,
	}
}

func (c *Coordinator) synthesisFailure(intent types.Intent, res synthesis.Result, err error) types.AnswerResult {
	answer := "I fetched the relevant datasets but could not compute the requested statistic."
	if errors.Is(err, synthesis.ErrInsufficientData) {
		answer = "The available records do not cover the states, crops, or years you asked about. " +
			"Try a different year range or a broader question."
	}
	md := res.Metadata
	if md == nil {
		md = map[string]any{"query_type": string(intent.Type)}
	}
	md["detail"] = strings.TrimSpace(err.Error())

	return types.AnswerResult{
		Success:   false,
		Query:     intent.RawQuery,
		Answer:    answer,
		Sources:   []types.Citation{},
		Metadata:  md,
		Timestamp: nowFunc().UTC(),
		Error:     "insufficient_data",
	}
}
