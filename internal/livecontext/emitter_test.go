package livecontext

import (
	"sync"
	"sync/atomic"
	"testing"

	"github.com/stretchr/testify/assert"
)

type emitterHost struct {
	Emitter
	Documents
}

func TestEmitterDeliversInSubscriptionOrder(t *testing.T) {
	var e Emitter
	var order []string
	e.OnDocumentSaved(func(f string) { order = append(order, "first:"+f) })
	unsub := e.OnDocumentSaved(func(f string) { order = append(order, "second:"+f) })
	e.OnDocumentSaved(func(f string) { order = append(order, "third:"+f) })

	e.EmitSave("a.go")
	unsub()
	unsub()
	e.EmitSave("b.go")

	assert.Equal(t, []string{"first:a.go", "second:a.go", "third:a.go", "first:b.go", "third:b.go"}, order)
	assert.Equal(t, 2, e.Subscribers())
}

func TestEmitterDrivesBuffer(t *testing.T) {
	host := &emitterHost{}
	host.Open("/w/b.py", "python")
	host.Open("/w/a.go", "go")

	b := NewBuffer(Options{})
	b.Start(host)

	host.EmitChange(ChangeNotification{File: "/w/a.go", Language: "go"})
	host.EmitActiveEditor("/w/a.go")
	host.EmitSelection(SelectionNotification{File: "/w/a.go", Text: "x"})
	host.EmitSave("/w/a.go")

	snap := b.Snapshot(0)
	assert.Len(t, snap.RecentChanges, 1)
	assert.Equal(t, "/w/a.go", snap.CurrentFocusFile)
	assert.Equal(t, []string{"go", "python"}, snap.ActiveLanguages)
	assert.Len(t, b.Selections(), 1)

	b.Stop()
	assert.Equal(t, 0, host.Subscribers())

	host.Close("/w/b.py")
	assert.Equal(t, []Document{{File: "/w/a.go", Language: "go"}}, host.OpenDocuments())
}

func TestEmitterConcurrentFirstSubscription(t *testing.T) {
	var e Emitter
	var delivered atomic.Int32
	var wg sync.WaitGroup

	wg.Add(2)
	go func() {
		defer wg.Done()
		for i := 0; i < 100; i++ {
			e.EmitChange(ChangeNotification{File: "a.go"})
			e.EmitSave("a.go")
			e.EmitActiveEditor("a.go")
			e.EmitSelection(SelectionNotification{File: "a.go"})
		}
	}()
	go func() {
		defer wg.Done()
		e.OnDocumentChanged(func(ChangeNotification) { delivered.Add(1) })
		e.OnDocumentSaved(func(string) {})
		e.OnActiveEditorChanged(func(string) {})
		e.OnSelectionChanged(func(SelectionNotification) {})
	}()
	wg.Wait()

	before := delivered.Load()
	e.EmitChange(ChangeNotification{File: "b.go"})
	assert.Equal(t, before+1, delivered.Load())
	assert.Equal(t, 4, e.Subscribers())
}
