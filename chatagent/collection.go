package chatagent

// Collection is a normalized, insertion-ordered mapping from task id to
// task. It is intentionally the "dumb" layer: membership only, no callbacks,
// no locking. All business rules (and synchronization) live in the Store
// methods that drive it.
type Collection struct {
	order []string
	byID  map[string]*Task
}

// NewCollection returns an empty collection.
func NewCollection() *Collection {
	return &Collection{byID: make(map[string]*Task)}
}

// Insert adds a task. An existing task with the same id is overwritten in
// place, keeping its original position in the iteration order.
func (c *Collection) Insert(t *Task) {
	if _, ok := c.byID[t.ID]; !ok {
		c.order = append(c.order, t.ID)
	}
	c.byID[t.ID] = t
}

// SetAll discards the current contents and replaces them with the given
// ordered sequence.
func (c *Collection) SetAll(tasks []*Task) {
	c.order = c.order[:0]
	c.byID = make(map[string]*Task, len(tasks))
	for _, t := range tasks {
		c.Insert(t)
	}
}

// Patch merges changes into the task with the given id, replacing the stored
// value atomically. It returns the updated task, or nil if the id is absent.
func (c *Collection) Patch(id string, changes TaskPatch) *Task {
	t, ok := c.byID[id]
	if !ok {
		return nil
	}
	updated := changes.Apply(t)
	c.byID[id] = updated
	return updated
}

// Remove deletes the task with the given id. It reports whether a task was
// actually removed.
func (c *Collection) Remove(id string) bool {
	if _, ok := c.byID[id]; !ok {
		return false
	}
	delete(c.byID, id)
	for i, o := range c.order {
		if o == id {
			c.order = append(c.order[:i], c.order[i+1:]...)
			break
		}
	}
	return true
}

// Get returns the task with the given id, or nil.
func (c *Collection) Get(id string) *Task {
	return c.byID[id]
}

// All returns the tasks in insertion order. The slice is a fresh snapshot;
// the tasks themselves must be treated as read-only.
func (c *Collection) All() []*Task {
	out := make([]*Task, 0, len(c.order))
	for _, id := range c.order {
		out = append(out, c.byID[id])
	}
	return out
}

// Len returns the number of tasks.
func (c *Collection) Len() int {
	return len(c.order)
}
