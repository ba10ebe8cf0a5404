// Package reconciler merges one delta artifact into the speaker store.
//
// Two merge functions exist and are kept distinct on purpose:
//
//   - FieldOverlay copies only the keys present in the delta onto the matched
//     record; everything else survives.
//   - FullReplace substitutes the whole matched record with the delta.
//
// OwnDelta, AdminDelta and BatchDelta bind those functions to the target
// resolution and creation rules of the self-service, admin and batch paths.
//
// Example:
//
//	res := reconciler.BatchDelta(store, patch, reconciler.WithKey(uid))
//	if !res.Accepted() {
//		log.Warn().Err(res.Err).Str("outcome", res.Outcome.String()).Msg("delta not applied")
//	}
package reconciler
