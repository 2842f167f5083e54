// Package scheduler layers test cases by prerequisite with Kahn's
// algorithm and drives a Runner with bounded parallelism per layer.
// Cycle members never reach in-degree zero and are reported Blocked
// without issuing a request.
package scheduler

import (
	"context"

	"github.com/sourcegraph/conc/pool"

	"github.com/devrickard/testcascade/internal/application"
	"github.com/devrickard/testcascade/internal/domain/models"
	"github.com/devrickard/testcascade/internal/infrastructure/logging"
)

// Service implements application.Scheduler.
type Service struct {
	runner         application.Runner
	logger         logging.Logger
	maxParallelism int
}

// Option configures a Service.
type Option func(*Service)

// WithLogger sets a custom logger.
func WithLogger(logger logging.Logger) Option {
	return func(s *Service) { s.logger = logger }
}

// WithMaxParallelism bounds concurrent runs within a single layer (0 or
// negative means unbounded).
func WithMaxParallelism(n int) Option {
	return func(s *Service) { s.maxParallelism = n }
}

// NewService creates a Dependency Scheduler.
func NewService(runner application.Runner, options ...Option) *Service {
	s := &Service{
		runner: runner,
		logger: logging.NewNullLogger(),
	}
	for _, opt := range options {
		opt(s)
	}
	return s
}

// node tracks one test case through layering and execution.
type node struct {
	test   models.TestCase
	layer  int
	index  int // emission order within the original input, for stable ordering
	result models.TestCaseResult
	done   bool
}

// Run layers tests into dependency-respecting waves and executes each
// wave with bounded parallelism, gating every test on its prerequisites'
// outcomes and assembling its variable context from them.
func (s *Service) Run(
	ctx context.Context,
	tests []models.TestCase,
	baseURL string,
	globalHeaders, globalVariables map[string]string,
	opts ...models.RunOptions,
) []models.TestCaseResult {
	var options models.RunOptions
	if len(opts) > 0 {
		options = opts[0]
	}
	nodes := make(map[string]*node, len(tests))
	order := make([]string, 0, len(tests))
	for i, tc := range tests {
		if _, dup := nodes[tc.TestCaseID]; dup {
			s.logger.Warnf("scheduler: duplicate testCaseId %q, keeping first occurrence", tc.TestCaseID)
			continue
		}
		nodes[tc.TestCaseID] = &node{test: tc, index: i}
		order = append(order, tc.TestCaseID)
	}

	deps := make(map[string][]string, len(nodes))
	for id, n := range nodes {
		clean := make([]string, 0, len(n.test.Prerequisites))
		for _, dep := range n.test.Prerequisites {
			if dep == id {
				s.logger.Warnf("scheduler: test %q lists itself as a prerequisite, dropping edge", id)
				continue
			}
			if _, ok := nodes[dep]; !ok {
				s.logger.Warnf("scheduler: test %q references unknown prerequisite %q, dropping edge", id, dep)
				continue
			}
			clean = append(clean, dep)
		}
		deps[id] = clean
	}

	layers, blocked := layerByKahn(order, deps)

	for _, id := range blocked {
		n := nodes[id]
		n.result = models.TestCaseResult{
			TestCaseID:   n.test.TestCaseID,
			Name:         n.test.Name,
			Status:       models.StatusBlocked,
			ErrorMessage: "circular dependency or missing prerequisite",
		}
		n.done = true
	}

	for i, layer := range layers {
		s.runLayer(ctx, nodes, deps, layer, baseURL, globalHeaders, globalVariables)

		if options.FailFast && layerFailed(nodes, layer) {
			s.logger.Warnf("scheduler: fail-fast triggered after layer %d, blocking remaining tests", i)
			blockRemaining(nodes, layers[i+1:])
			break
		}
	}

	// Results are emitted layer index ascending, input order within a
	// layer, with cycle members as a terminal group.
	results := make([]models.TestCaseResult, 0, len(order))
	for _, layer := range layers {
		for _, id := range layer {
			results = append(results, nodes[id].result)
		}
	}
	for _, id := range blocked {
		results = append(results, nodes[id].result)
	}
	return results
}

func (s *Service) runLayer(
	ctx context.Context,
	nodes map[string]*node,
	deps map[string][]string,
	layer []string,
	baseURL string,
	globalHeaders, globalVariables map[string]string,
) {
	p := pool.New().WithMaxGoroutines(effectiveParallelism(s.maxParallelism, len(layer)))

	for _, id := range layer {
		id := id
		n := nodes[id]

		p.Go(func() {
			s.runOne(ctx, n, nodes, deps[id], baseURL, globalHeaders, globalVariables)
		})
	}

	p.Wait()
}

func (s *Service) runOne(
	ctx context.Context,
	n *node,
	nodes map[string]*node,
	prereqIDs []string,
	baseURL string,
	globalHeaders, globalVariables map[string]string,
) {
	if n.test.Skip {
		n.result = models.TestCaseResult{
			TestCaseID: n.test.TestCaseID,
			Name:       n.test.Name,
			Status:     models.StatusSkipped,
		}
		n.done = true
		return
	}

	for _, depID := range prereqIDs {
		dep := nodes[depID]
		if dep.result.Status != models.StatusPassed {
			n.result = models.TestCaseResult{
				TestCaseID:   n.test.TestCaseID,
				Name:         n.test.Name,
				Status:       models.StatusBlocked,
				ErrorMessage: "prerequisite " + depID + " did not pass",
			}
			n.done = true
			return
		}
	}

	variables := make(map[string]string, len(globalVariables))
	for k, v := range globalVariables {
		variables[k] = v
	}
	for _, depID := range prereqIDs {
		for k, v := range nodes[depID].result.ExtractedVariables {
			variables[k] = v
		}
	}
	for k, v := range n.test.Variables {
		variables[k] = v
	}

	n.result = s.runner.Run(ctx, n.test, baseURL, globalHeaders, variables)
	n.done = true
}

// layerByKahn topologically layers ids by dependency depth. Returns the
// layering (each layer independently schedulable) and the subset of ids
// that could not be layered because they sit on or behind a cycle.
func layerByKahn(order []string, deps map[string][]string) (layers [][]string, blocked []string) {
	indegree := make(map[string]int, len(order))
	dependents := make(map[string][]string, len(order))

	for _, id := range order {
		indegree[id] = len(deps[id])
	}
	for id, ds := range deps {
		for _, dep := range ds {
			dependents[dep] = append(dependents[dep], id)
		}
	}

	remaining := len(order)
	resolved := make(map[string]bool, len(order))

	for remaining > 0 {
		var layer []string
		for _, id := range order {
			if resolved[id] {
				continue
			}
			if indegree[id] == 0 {
				layer = append(layer, id)
			}
		}
		if len(layer) == 0 {
			break
		}

		for _, id := range layer {
			resolved[id] = true
			remaining--
		}
		for _, id := range layer {
			for _, dependent := range dependents[id] {
				indegree[dependent]--
			}
		}

		layers = append(layers, layer)
	}

	if remaining > 0 {
		for _, id := range order {
			if !resolved[id] {
				blocked = append(blocked, id)
			}
		}
	}

	return layers, blocked
}

// layerFailed reports whether any test in layer finished Failed or Error,
// the fail-fast trigger condition.
func layerFailed(nodes map[string]*node, layer []string) bool {
	for _, id := range layer {
		switch nodes[id].result.Status {
		case models.StatusFailed, models.StatusError:
			return true
		}
	}
	return false
}

// blockRemaining marks every test in the given (not-yet-run) layers as
// Blocked because the run was stopped by fail-fast.
func blockRemaining(nodes map[string]*node, remainingLayers [][]string) {
	for _, layer := range remainingLayers {
		for _, id := range layer {
			n := nodes[id]
			if n.done {
				continue
			}
			n.result = models.TestCaseResult{
				TestCaseID:   n.test.TestCaseID,
				Name:         n.test.Name,
				Status:       models.StatusBlocked,
				ErrorMessage: "run stopped: fail-fast",
			}
			n.done = true
		}
	}
}

func effectiveParallelism(configured, layerSize int) int {
	if configured <= 0 {
		return layerSize
	}
	if layerSize < configured {
		return layerSize
	}
	return configured
}
