package livecontext

import (
	"sort"
	"sync"
)

// Emitter is the subscription half of a Host. Event sources embed it and
// call the Emit methods; handlers run on the emitting goroutine, outside
// the emitter's lock, in subscription order.
type Emitter struct {
	mu         sync.Mutex
	nextID     int
	changes    map[int]func(ChangeNotification)
	editors    map[int]func(string)
	saves      map[int]func(string)
	selections map[int]func(SelectionNotification)
}

func subscribe[T any](e *Emitter, m *map[int]T, fn T) func() {
	e.mu.Lock()
	defer e.mu.Unlock()
	if *m == nil {
		*m = make(map[int]T)
	}
	e.nextID++
	id := e.nextID
	(*m)[id] = fn

	var once sync.Once
	return func() {
		once.Do(func() {
			e.mu.Lock()
			defer e.mu.Unlock()
			delete(*m, id)
		})
	}
}

func handlers[T any](e *Emitter, field *map[int]T) []T {
	e.mu.Lock()
	defer e.mu.Unlock()
	m := *field
	ids := make([]int, 0, len(m))
	for id := range m {
		ids = append(ids, id)
	}
	sort.Ints(ids)
	out := make([]T, len(ids))
	for i, id := range ids {
		out[i] = m[id]
	}
	return out
}

func (e *Emitter) OnDocumentChanged(fn func(ChangeNotification)) func() {
	return subscribe(e, &e.changes, fn)
}

func (e *Emitter) OnActiveEditorChanged(fn func(string)) func() {
	return subscribe(e, &e.editors, fn)
}

func (e *Emitter) OnDocumentSaved(fn func(string)) func() {
	return subscribe(e, &e.saves, fn)
}

func (e *Emitter) OnSelectionChanged(fn func(SelectionNotification)) func() {
	return subscribe(e, &e.selections, fn)
}

func (e *Emitter) EmitChange(n ChangeNotification) {
	for _, fn := range handlers(e, &e.changes) {
		fn(n)
	}
}

func (e *Emitter) EmitActiveEditor(file string) {
	for _, fn := range handlers(e, &e.editors) {
		fn(file)
	}
}

func (e *Emitter) EmitSave(file string) {
	for _, fn := range handlers(e, &e.saves) {
		fn(file)
	}
}

func (e *Emitter) EmitSelection(n SelectionNotification) {
	for _, fn := range handlers(e, &e.selections) {
		fn(n)
	}
}

// Subscribers returns the number of live subscriptions.
func (e *Emitter) Subscribers() int {
	e.mu.Lock()
	defer e.mu.Unlock()
	return len(e.changes) + len(e.editors) + len(e.saves) + len(e.selections)
}

// Documents tracks the set of open documents for a Host.
type Documents struct {
	mu   sync.Mutex
	docs map[string]string
}

// Open records file as open with language.
func (d *Documents) Open(file, language string) {
	d.mu.Lock()
	defer d.mu.Unlock()
	if d.docs == nil {
		d.docs = make(map[string]string)
	}
	d.docs[file] = language
}

// Close forgets file.
func (d *Documents) Close(file string) {
	d.mu.Lock()
	defer d.mu.Unlock()
	delete(d.docs, file)
}

// OpenDocuments returns the open documents sorted by file.
func (d *Documents) OpenDocuments() []Document {
	d.mu.Lock()
	defer d.mu.Unlock()
	out := make([]Document, 0, len(d.docs))
	for file, lang := range d.docs {
		out = append(out, Document{File: file, Language: lang})
	}
	sort.Slice(out, func(i, j int) bool { return out[i].File < out[j].File })
	return out
}
