package employee

import (
	"context"
	"errors"
	"sort"
	"sync"
	"time"

	"hrflow/internal/domain/apperr"
	"hrflow/internal/domain/auth"
)

// Directory is a read-through cache of the employee table. It is refreshed
// explicitly after every employee mutation and periodically by the jobs
// scheduler; lookups never block on a refresh.
type Directory struct {
	store StoreAPI

	mu       sync.RWMutex
	byCode   map[string]Employee
	loadedAt time.Time
}

func NewDirectory(store StoreAPI) *Directory {
	return &Directory{store: store, byCode: map[string]Employee{}}
}

func (d *Directory) Refresh(ctx context.Context) error {
	list, err := d.store.ListEmployees(ctx, Filter{})
	if err != nil {
		return err
	}
	next := make(map[string]Employee, len(list))
	for _, emp := range list {
		next[emp.Code] = emp
	}
	d.mu.Lock()
	d.byCode = next
	d.loadedAt = time.Now()
	d.mu.Unlock()
	return nil
}

func (d *Directory) LoadedAt() time.Time {
	d.mu.RLock()
	defer d.mu.RUnlock()
	return d.loadedAt
}

func (d *Directory) Lookup(code string) (Employee, bool) {
	d.mu.RLock()
	defer d.mu.RUnlock()
	emp, ok := d.byCode[code]
	return emp, ok
}

// GetEmployee serves from the cache and falls through to the store on a miss.
func (d *Directory) GetEmployee(ctx context.Context, code string) (Employee, error) {
	if emp, ok := d.Lookup(code); ok {
		return emp, nil
	}
	emp, err := d.store.GetEmployee(ctx, code)
	if err != nil {
		return Employee{}, err
	}
	d.mu.Lock()
	d.byCode[emp.Code] = emp
	d.mu.Unlock()
	return emp, nil
}

// ResolveName falls back to the raw code when the employee is unknown.
func (d *Directory) ResolveName(ctx context.Context, code string) string {
	emp, err := d.GetEmployee(ctx, code)
	if err != nil || emp.Name == "" {
		return code
	}
	return emp.Name
}

func (d *Directory) Active(ctx context.Context) ([]Employee, error) {
	if err := d.ensureLoaded(ctx); err != nil {
		return nil, err
	}
	d.mu.RLock()
	out := make([]Employee, 0, len(d.byCode))
	for _, emp := range d.byCode {
		if emp.IsActive() {
			out = append(out, emp)
		}
	}
	d.mu.RUnlock()
	sort.Slice(out, func(i, j int) bool { return out[i].Code < out[j].Code })
	return out, nil
}

func (d *Directory) ActiveByRole(ctx context.Context, role auth.Role) ([]Employee, error) {
	all, err := d.Active(ctx)
	if err != nil {
		return nil, err
	}
	out := all[:0]
	for _, emp := range all {
		if emp.Role == role {
			out = append(out, emp)
		}
	}
	return out, nil
}

func (d *Directory) ensureLoaded(ctx context.Context) error {
	if !d.LoadedAt().IsZero() {
		return nil
	}
	return d.Refresh(ctx)
}

// IsNotFound is a convenience for callers that degrade on unknown codes.
func IsNotFound(err error) bool {
	return errors.Is(err, apperr.ErrNotFound)
}
