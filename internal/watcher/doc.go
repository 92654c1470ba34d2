// Package watcher turns filesystem activity under the documents root into
// rescan signals.
//
// Raw fsnotify events are filtered to document files, coalesced by a
// Debouncer so that an editor's save burst or a bulk copy yields one
// signal, and delivered on Notifier.C. The scan itself stays with the
// caller; a signal only means "something changed, rescan soon".
//
// Usage:
//
//	n, err := watcher.NewNotifier(watcher.Options{Extensions: exts})
//	if err != nil {
//	    return err
//	}
//	if err := n.Start(ctx, root); err != nil {
//	    return err
//	}
//	defer n.Stop()
//
//	pipeline.SetTrigger(n.C())
package watcher
