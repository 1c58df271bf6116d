package livecontext

import (
	"sort"

	"github.com/samber/lo"
)

// Join merges several hosts into one. Handlers are registered on every
// host, and OpenDocuments is the union of their documents, the first host
// winning when two report the same file.
func Join(hosts ...Host) Host {
	return joined(hosts)
}

type joined []Host

func (j joined) each(register func(Host) func()) func() {
	unsubs := make([]func(), 0, len(j))
	for _, h := range j {
		unsubs = append(unsubs, register(h))
	}
	return func() {
		for _, u := range unsubs {
			u()
		}
	}
}

func (j joined) OnDocumentChanged(fn func(ChangeNotification)) func() {
	return j.each(func(h Host) func() { return h.OnDocumentChanged(fn) })
}

func (j joined) OnActiveEditorChanged(fn func(string)) func() {
	return j.each(func(h Host) func() { return h.OnActiveEditorChanged(fn) })
}

func (j joined) OnDocumentSaved(fn func(string)) func() {
	return j.each(func(h Host) func() { return h.OnDocumentSaved(fn) })
}

func (j joined) OnSelectionChanged(fn func(SelectionNotification)) func() {
	return j.each(func(h Host) func() { return h.OnSelectionChanged(fn) })
}

func (j joined) OpenDocuments() []Document {
	var docs []Document
	for _, h := range j {
		docs = append(docs, h.OpenDocuments()...)
	}
	docs = lo.UniqBy(docs, func(d Document) string { return d.File })
	sort.Slice(docs, func(a, b int) bool { return docs[a].File < docs[b].File })
	return docs
}
