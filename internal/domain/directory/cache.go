package directory

import (
	"sort"
	"strings"
	"sync"
)

// Cache is the local read-through cache of directory records. It is
// process-local, synchronous, and never errors on a miss: lookups return nil
// when nothing is cached. Every successful remote fetch repopulates it.
type Cache struct {
	mu      sync.RWMutex
	byID    map[string]Employee
	pending map[string]PendingRegistration
}

func NewCache() *Cache {
	return &Cache{
		byID:    make(map[string]Employee),
		pending: make(map[string]PendingRegistration),
	}
}

func (c *Cache) Upsert(emp Employee) {
	if emp.KGID == "" {
		return
	}
	c.mu.Lock()
	defer c.mu.Unlock()
	c.byID[emp.KGID] = emp
}

func (c *Cache) UpsertAll(emps []Employee) {
	c.mu.Lock()
	defer c.mu.Unlock()
	for _, emp := range emps {
		if emp.KGID == "" {
			continue
		}
		c.byID[emp.KGID] = emp
	}
}

func (c *Cache) GetByID(kgid string) *Employee {
	c.mu.RLock()
	defer c.mu.RUnlock()
	if emp, ok := c.byID[kgid]; ok {
		copied := emp
		return &copied
	}
	return nil
}

func (c *Cache) GetByEmail(email string) *Employee {
	c.mu.RLock()
	defer c.mu.RUnlock()
	for _, emp := range c.byID {
		if strings.EqualFold(emp.Email, email) {
			copied := emp
			return &copied
		}
	}
	return nil
}

// Query returns approved records whose filter field contains the query
// substring, case-insensitively, ordered by name then id.
func (c *Cache) Query(query, filter string) []Employee {
	c.mu.RLock()
	defer c.mu.RUnlock()
	var out []Employee
	for _, emp := range c.byID {
		if !emp.IsApproved {
			continue
		}
		if emp.Matches(query, filter) {
			out = append(out, emp)
		}
	}
	sortEmployees(out)
	return out
}

// All returns every approved cached record, ordered by name then id.
// Unapproved records are only visible through the approval queue.
func (c *Cache) All() []Employee {
	return c.Query("", "")
}

func (c *Cache) DeleteByID(kgid string) {
	c.mu.Lock()
	defer c.mu.Unlock()
	delete(c.byID, kgid)
}

func (c *Cache) Len() int {
	c.mu.RLock()
	defer c.mu.RUnlock()
	return len(c.byID)
}

func (c *Cache) UpsertPending(reg PendingRegistration) {
	if reg.KGID == "" {
		return
	}
	c.mu.Lock()
	defer c.mu.Unlock()
	c.pending[reg.KGID] = reg
}

func (c *Cache) ReplacePending(regs []PendingRegistration) {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.pending = make(map[string]PendingRegistration, len(regs))
	for _, reg := range regs {
		if reg.KGID == "" {
			continue
		}
		c.pending[reg.KGID] = reg
	}
}

func (c *Cache) ListPending() []PendingRegistration {
	c.mu.RLock()
	defer c.mu.RUnlock()
	out := make([]PendingRegistration, 0, len(c.pending))
	for _, reg := range c.pending {
		out = append(out, reg)
	}
	sort.Slice(out, func(i, j int) bool { return out[i].KGID < out[j].KGID })
	return out
}

func (c *Cache) DeletePendingByID(kgid string) {
	c.mu.Lock()
	defer c.mu.Unlock()
	delete(c.pending, kgid)
}

func (c *Cache) ClearAll() {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.byID = make(map[string]Employee)
	c.pending = make(map[string]PendingRegistration)
}

func sortEmployees(emps []Employee) {
	sort.Slice(emps, func(i, j int) bool {
		if emps[i].Name != emps[j].Name {
			return emps[i].Name < emps[j].Name
		}
		return emps[i].KGID < emps[j].KGID
	})
}

func lowerTrim(s string) string {
	return strings.ToLower(strings.TrimSpace(s))
}

func containsFold(haystack, needle string) bool {
	return strings.Contains(strings.ToLower(haystack), needle)
}
