// Package watcher reports changes to a directory tree as debounced batches.
//
// fsnotify is the primary mechanism; when it cannot be initialized (some
// network mounts and container volumes) the watcher polls instead. Editors
// and git write files in bursts, so events for one path inside the debounce
// window are coalesced before a batch is emitted.
//
// Usage:
//
//	w, err := watcher.New(watcher.Options{Filter: watcher.CatalogFiles})
//	if err != nil {
//	    return err
//	}
//	go func() { _ = w.Start(ctx, catalogRoot) }()
//	defer w.Stop()
//
//	for batch := range w.Events() {
//	    // reload
//	}
package watcher
