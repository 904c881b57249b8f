// Package finding holds the records produced by the script pipeline.
//
// A Finding is a positive match of one detection script against one
// response. Findings go into a Store, which is append-only, safe for
// concurrent use and enforces the per-script "once" policy:
//
//	store := finding.NewStore()
//	if store.Add(f, script.Once()) {
//	    logger.Info("finding", "script", f.Script, "url", f.URL)
//	}
package finding
