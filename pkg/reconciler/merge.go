package reconciler

import (
	"github.com/agentstation/speakerpool/pkg/errors"
	"github.com/agentstation/speakerpool/pkg/speakers"
)

// FieldOverlay copies the keys present in patch onto the matched record. Keys
// the patch omits keep their current values. The matched record's id and
// uniqueId are never overwritten.
func FieldOverlay(store Store, patch *speakers.Patch, opts ...Option) *Result {
	return merge(store, patch, ModeFieldOverlay, newOptions(opts...))
}

// FullReplace substitutes the matched record with the patch. Fields the patch
// omits are dropped, except id, uniqueId and createdDate which are kept so
// the record stays addressable.
func FullReplace(store Store, patch *speakers.Patch, opts ...Option) *Result {
	return merge(store, patch, ModeFullReplace, newOptions(opts...))
}

// OwnDelta applies a principal's own edit: field overlay by id, no creation.
func OwnDelta(store Store, patch *speakers.Patch, opts ...Option) *Result {
	return FieldOverlay(store, patch, preset(ByID, false, opts)...)
}

// AdminDelta applies a delta in elevated mode: full replace by uniqueId,
// appending when nothing matches.
func AdminDelta(store Store, patch *speakers.Patch, opts ...Option) *Result {
	return FullReplace(store, patch, preset(ByUniqueID, true, opts)...)
}

// BatchDelta applies a delta in the consolidation job: field overlay by
// uniqueId, no creation.
func BatchDelta(store Store, patch *speakers.Patch, opts ...Option) *Result {
	return FieldOverlay(store, patch, preset(ByUniqueID, false, opts)...)
}

func preset(target Target, create bool, opts []Option) []Option {
	return append([]Option{WithTarget(target), WithCreate(create)}, opts...)
}

func merge(store Store, patch *speakers.Patch, mode Mode, o *options) *Result {
	res := &Result{Mode: mode, Target: o.target}

	if patch.IsEmpty() {
		res.Outcome = Skipped
		res.Err = errors.ErrEmptyArtifact
		return res
	}

	res.Key = o.key
	if res.Key == "" {
		res.Key = identityOf(patch, o.target)
	}
	if res.Key == "" {
		return reject(res, o, &errors.ValidationError{
			Field:   o.target.Field(),
			Message: "delta carries no " + o.target.Field(),
			Err:     errors.ErrInvalidArtifact,
		})
	}

	existing, found := lookup(store, o.target, res.Key)
	if !found {
		if !o.create {
			res.Outcome = Missed
			res.Err = errors.NewMergeError(o.artifact, string(mode),
				&errors.IdentityError{Field: o.target.Field(), Value: res.Key})
			return res
		}
		return create(store, patch, res, o)
	}

	var merged *speakers.Speaker
	switch mode {
	case ModeFullReplace:
		merged = patch.Record()
		if merged.CreatedDate == "" {
			merged.CreatedDate = existing.CreatedDate
		}
	default:
		merged = existing.Copy()
		patch.ApplyTo(merged)
	}
	merged.ID = existing.ID
	if existing.UniqueID != "" {
		merged.UniqueID = existing.UniqueID
	}
	merged.Touch(o.now())

	if _, err := store.Upsert(merged); err != nil {
		return reject(res, o, err)
	}
	res.Outcome = Updated
	res.Record = merged
	return res
}

// create appends the patch as a new record, filling in the identity fields
// and timestamps it lacks.
func create(store Store, patch *speakers.Patch, res *Result, o *options) *Result {
	rec := patch.Record()
	switch o.target {
	case ByUniqueID:
		if rec.UniqueID == "" {
			rec.UniqueID = res.Key
		}
	default:
		if rec.ID == "" {
			rec.ID = res.Key
		}
	}

	if rec.ID == "" {
		rec.ID = store.NextID()
	} else if _, taken := store.FindByID(rec.ID); taken {
		rec.ID = store.NextID()
	}
	if _, taken := store.FindByUniqueID(rec.UniqueID); rec.UniqueID == "" || taken {
		uid, err := store.NewUniqueID()
		if err != nil {
			return reject(res, o, err)
		}
		rec.UniqueID = uid
	}

	now := o.now()
	if rec.CreatedDate == "" {
		rec.CreatedDate = speakers.Timestamp(now)
	}
	rec.Touch(now)

	if _, err := store.Upsert(rec); err != nil {
		return reject(res, o, err)
	}
	res.Outcome = Created
	res.Record = rec
	return res
}

func reject(res *Result, o *options, err error) *Result {
	res.Outcome = Rejected
	res.Err = errors.NewMergeError(o.artifact, string(res.Mode), err)
	return res
}

func identityOf(patch *speakers.Patch, target Target) string {
	if target == ByUniqueID {
		return patch.UniqueIDValue()
	}
	return patch.IDValue()
}

func lookup(store Store, target Target, key string) (*speakers.Speaker, bool) {
	if target == ByUniqueID {
		return store.FindByUniqueID(key)
	}
	return store.FindByID(key)
}
