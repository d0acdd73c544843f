// Package memory is an in-process Persistence Port backend for unit tests:
// a map-of-slices-behind-a-mutex store implementing the three repository
// interfaces without any external dependency.
package memory

import (
	"context"
	"sort"
	"sync"
	"time"

	"github.com/flowforge/flowforge/persistence"
	"github.com/flowforge/flowforge/workflow"
)

// store holds all state behind one mutex (mirrors MemStore's single-struct
// shape rather than splitting into three independently-locked types). It is
// unexported: callers interact through the three repository adaptors New
// returns, since DefinitionRepository and InstanceRepository both declare a
// Get/Delete method with different signatures and so cannot be satisfied by
// one exported type.
type store struct {
	mu sync.RWMutex

	definitions map[string][]*workflow.WorkflowDefinition // name -> versions, ascending
	instances   map[string]*workflow.WorkflowInstance
	executions  map[string][]*workflow.ActivityExecution // instanceID -> executions
	execByID    map[string]*workflow.ActivityExecution
}

// New builds an empty Store and wires its three facets into a
// persistence.Port.
func New() persistence.Port {
	s := &store{
		definitions: make(map[string][]*workflow.WorkflowDefinition),
		instances:   make(map[string]*workflow.WorkflowInstance),
		executions:  make(map[string][]*workflow.ActivityExecution),
		execByID:    make(map[string]*workflow.ActivityExecution),
	}
	return persistence.Port{
		Definitions: definitionRepo{s},
		Instances:   instanceRepo{s},
		Executions:  executionRepo{s},
	}
}

// --- DefinitionRepository ---

type definitionRepo struct{ s *store }

func (r definitionRepo) Get(_ context.Context, name string, version *int) (*workflow.WorkflowDefinition, error) {
	s := r.s
	s.mu.RLock()
	defer s.mu.RUnlock()

	versions := s.definitions[name]
	if len(versions) == 0 {
		return nil, persistence.ErrNotFound
	}
	if version == nil {
		for i := len(versions) - 1; i >= 0; i-- {
			if versions[i].IsActive {
				cp := *versions[i]
				return &cp, nil
			}
		}
		return nil, persistence.ErrNotFound
	}
	for _, d := range versions {
		if d.Version == *version {
			cp := *d
			return &cp, nil
		}
	}
	return nil, persistence.ErrNotFound
}

func (r definitionRepo) GetAllVersions(_ context.Context, name string) ([]*workflow.WorkflowDefinition, error) {
	s := r.s
	s.mu.RLock()
	defer s.mu.RUnlock()

	versions := s.definitions[name]
	out := make([]*workflow.WorkflowDefinition, len(versions))
	for i, d := range versions {
		cp := *d
		out[i] = &cp
	}
	return out, nil
}

func (r definitionRepo) List(_ context.Context, includeInactive bool) ([]*workflow.WorkflowDefinition, error) {
	s := r.s
	s.mu.RLock()
	defer s.mu.RUnlock()

	var out []*workflow.WorkflowDefinition
	for _, versions := range s.definitions {
		for _, d := range versions {
			if !includeInactive && !d.IsActive {
				continue
			}
			cp := *d
			out = append(out, &cp)
		}
	}
	sort.Slice(out, func(i, j int) bool { return out[i].Name < out[j].Name })
	return out, nil
}

func (r definitionRepo) Save(_ context.Context, def *workflow.WorkflowDefinition) error {
	s := r.s
	s.mu.Lock()
	defer s.mu.Unlock()

	versions := s.definitions[def.Name]
	nextVersion := 1
	for _, d := range versions {
		d.IsActive = false
		if d.Version >= nextVersion {
			nextVersion = d.Version + 1
		}
	}
	def.Version = nextVersion
	def.IsActive = true
	if def.CreatedAt.IsZero() {
		def.CreatedAt = time.Now().UTC()
	}
	cp := *def
	s.definitions[def.Name] = append(versions, &cp)
	return nil
}

func (r definitionRepo) SetActive(_ context.Context, name string, version int, active bool) error {
	s := r.s
	s.mu.Lock()
	defer s.mu.Unlock()

	for _, d := range s.definitions[name] {
		if d.Version == version {
			d.IsActive = active
			return nil
		}
	}
	return persistence.ErrNotFound
}

func (r definitionRepo) Delete(_ context.Context, name string, version int) error {
	s := r.s
	s.mu.Lock()
	defer s.mu.Unlock()

	versions := s.definitions[name]
	for i, d := range versions {
		if d.Version == version {
			s.definitions[name] = append(versions[:i], versions[i+1:]...)
			return nil
		}
	}
	return persistence.ErrNotFound
}

func (r definitionRepo) Exists(_ context.Context, name string) (bool, error) {
	s := r.s
	s.mu.RLock()
	defer s.mu.RUnlock()
	_, ok := s.definitions[name]
	return ok, nil
}

// --- InstanceRepository ---

type instanceRepo struct{ s *store }

func (r instanceRepo) Get(_ context.Context, id string) (*workflow.WorkflowInstance, error) {
	s := r.s
	s.mu.RLock()
	defer s.mu.RUnlock()
	inst, ok := s.instances[id]
	if !ok {
		return nil, persistence.ErrNotFound
	}
	cp := *inst
	return &cp, nil
}

func (r instanceRepo) GetByCorrelation(_ context.Context, correlationID string) (*workflow.WorkflowInstance, error) {
	s := r.s
	s.mu.RLock()
	defer s.mu.RUnlock()
	for _, inst := range s.instances {
		if inst.CorrelationID == correlationID {
			cp := *inst
			return &cp, nil
		}
	}
	return nil, persistence.ErrNotFound
}

func (r instanceRepo) Query(_ context.Context, filter persistence.InstanceFilter, sortBy persistence.Sort, page persistence.Page) ([]*workflow.WorkflowInstance, error) {
	s := r.s
	s.mu.RLock()
	defer s.mu.RUnlock()

	var matched []*workflow.WorkflowInstance
	for _, inst := range s.instances {
		if filter.WorkflowName != "" && inst.WorkflowName != filter.WorkflowName {
			continue
		}
		if filter.Status != nil && inst.Status != *filter.Status {
			continue
		}
		if filter.CorrelationID != "" && inst.CorrelationID != filter.CorrelationID {
			continue
		}
		if filter.Tag != "" && !containsTag(inst.Tags, filter.Tag) {
			continue
		}
		cp := *inst
		matched = append(matched, &cp)
	}

	sort.Slice(matched, func(i, j int) bool {
		less := instanceLess(matched[i], matched[j], sortBy.Field)
		if sortBy.Descending {
			return !less
		}
		return less
	})

	if page.Limit <= 0 {
		return matched, nil
	}
	start := page.Offset
	if start > len(matched) {
		start = len(matched)
	}
	end := start + page.Limit
	if end > len(matched) {
		end = len(matched)
	}
	return matched[start:end], nil
}

func instanceLess(a, b *workflow.WorkflowInstance, field string) bool {
	switch field {
	case "updated_at":
		return a.UpdatedAt.Before(b.UpdatedAt)
	default:
		return a.CreatedAt.Before(b.CreatedAt)
	}
}

func containsTag(tags []string, tag string) bool {
	for _, t := range tags {
		if t == tag {
			return true
		}
	}
	return false
}

func (r instanceRepo) GetByStatus(_ context.Context, status workflow.InstanceStatus, limit int) ([]*workflow.WorkflowInstance, error) {
	s := r.s
	s.mu.RLock()
	defer s.mu.RUnlock()

	var out []*workflow.WorkflowInstance
	for _, inst := range s.instances {
		if inst.Status != status {
			continue
		}
		cp := *inst
		out = append(out, &cp)
		if limit > 0 && len(out) >= limit {
			break
		}
	}
	return out, nil
}

func (r instanceRepo) Create(_ context.Context, inst *workflow.WorkflowInstance) error {
	s := r.s
	s.mu.Lock()
	defer s.mu.Unlock()
	cp := *inst
	s.instances[inst.ID] = &cp
	return nil
}

func (r instanceRepo) Update(_ context.Context, inst *workflow.WorkflowInstance) error {
	s := r.s
	s.mu.Lock()
	defer s.mu.Unlock()
	if _, ok := s.instances[inst.ID]; !ok {
		return persistence.ErrNotFound
	}
	cp := *inst
	s.instances[inst.ID] = &cp
	return nil
}

func (r instanceRepo) Delete(_ context.Context, id string) error {
	s := r.s
	s.mu.Lock()
	defer s.mu.Unlock()
	if _, ok := s.instances[id]; !ok {
		return persistence.ErrNotFound
	}
	delete(s.instances, id)
	return nil
}

func (r instanceRepo) GetTimedOut(_ context.Context, olderThan time.Duration) ([]*workflow.WorkflowInstance, error) {
	s := r.s
	s.mu.RLock()
	defer s.mu.RUnlock()

	cutoff := time.Now().UTC().Add(-olderThan)
	var out []*workflow.WorkflowInstance
	for _, inst := range s.instances {
		if inst.Status == workflow.Running && inst.UpdatedAt.Before(cutoff) {
			cp := *inst
			out = append(out, &cp)
		}
	}
	return out, nil
}

func (r instanceRepo) Stats(_ context.Context) (persistence.InstanceStats, error) {
	s := r.s
	s.mu.RLock()
	defer s.mu.RUnlock()

	stats := persistence.InstanceStats{TotalByStatus: make(map[workflow.InstanceStatus]int64)}
	for _, inst := range s.instances {
		stats.TotalByStatus[inst.Status]++
	}
	return stats, nil
}

// --- ExecutionRepository ---

type executionRepo struct{ s *store }

func (r executionRepo) GetByInstance(_ context.Context, instanceID string) ([]*workflow.ActivityExecution, error) {
	s := r.s
	s.mu.RLock()
	defer s.mu.RUnlock()

	execs := s.executions[instanceID]
	out := make([]*workflow.ActivityExecution, len(execs))
	for i, e := range execs {
		cp := *e
		out[i] = &cp
	}
	sort.Slice(out, func(i, j int) bool { return out[i].StartedAt.Before(out[j].StartedAt) })
	return out, nil
}

func (r executionRepo) Get(_ context.Context, id string) (*workflow.ActivityExecution, error) {
	s := r.s
	s.mu.RLock()
	defer s.mu.RUnlock()
	e, ok := s.execByID[id]
	if !ok {
		return nil, persistence.ErrNotFound
	}
	cp := *e
	return &cp, nil
}

func (r executionRepo) Create(_ context.Context, exec *workflow.ActivityExecution) error {
	s := r.s
	s.mu.Lock()
	defer s.mu.Unlock()
	cp := *exec
	s.executions[exec.WorkflowInstance] = append(s.executions[exec.WorkflowInstance], &cp)
	s.execByID[exec.ID] = &cp
	return nil
}

func (r executionRepo) Update(_ context.Context, exec *workflow.ActivityExecution) error {
	s := r.s
	s.mu.Lock()
	defer s.mu.Unlock()
	if _, ok := s.execByID[exec.ID]; !ok {
		return persistence.ErrNotFound
	}
	cp := *exec
	s.execByID[exec.ID] = &cp
	for i, e := range s.executions[exec.WorkflowInstance] {
		if e.ID == exec.ID {
			s.executions[exec.WorkflowInstance][i] = &cp
			break
		}
	}
	return nil
}

func (r executionRepo) GetLatest(_ context.Context, instanceID, activityID string) (*workflow.ActivityExecution, error) {
	s := r.s
	s.mu.RLock()
	defer s.mu.RUnlock()

	var latest *workflow.ActivityExecution
	for _, e := range s.executions[instanceID] {
		if e.ActivityID != activityID {
			continue
		}
		if latest == nil || e.Attempt > latest.Attempt {
			latest = e
		}
	}
	if latest == nil {
		return nil, persistence.ErrNotFound
	}
	cp := *latest
	return &cp, nil
}
