package search

import (
	"context"
	"errors"
	"fmt"

	"github.com/goliatone/go-cms-replace/content"
	"github.com/goliatone/go-cms-replace/pkg/interfaces"
	"github.com/google/uuid"
)

// ResolveTargets turns a filter into the ordered list of records to visit.
// Explicit ids win over the kind and bundle query. A kind that cannot be
// queried is reported as a warning; only context cancellation is an error.
func ResolveTargets(ctx context.Context, store interfaces.RecordStore, filter Filter) ([]content.RecordRef, []Warning, error) {
	if store == nil {
		return nil, nil, ErrStoreRequired
	}
	if len(filter.IDs) > 0 {
		return dedupe(filter.IDs), nil, nil
	}

	kinds := filter.Kinds
	if len(kinds) == 0 {
		kinds = DefaultKinds
	}
	var (
		refs     []content.RecordRef
		warnings []Warning
	)
	for _, kind := range dedupeKinds(kinds) {
		if err := ctx.Err(); err != nil {
			return nil, nil, err
		}
		ids, err := store.QueryIDs(ctx, kind, filter.Bundles)
		if err != nil {
			warnings = append(warnings, Warning{
				Record:  content.RecordRef{Kind: kind},
				Message: fmt.Sprintf("query %s records: %v", kind, err),
			})
			continue
		}
		for _, id := range ids {
			refs = append(refs, content.RecordRef{Kind: kind, ID: id})
		}
	}
	return dedupe(refs), warnings, nil
}

// LoadRecords loads refs grouped by kind and returns them in ref order. When a
// bulk load fails each id is retried alone so one bad row only costs its own
// record. Records that cannot be loaded become warnings.
func LoadRecords(ctx context.Context, store interfaces.RecordStore, refs []content.RecordRef) ([]*content.Record, []Warning) {
	if store == nil || len(refs) == 0 {
		return nil, nil
	}
	byKind := map[content.Kind][]uuid.UUID{}
	var kinds []content.Kind
	for _, ref := range refs {
		if _, ok := byKind[ref.Kind]; !ok {
			kinds = append(kinds, ref.Kind)
		}
		byKind[ref.Kind] = append(byKind[ref.Kind], ref.ID)
	}

	loaded := make(map[content.RecordRef]*content.Record, len(refs))
	failed := map[content.RecordRef]error{}
	for _, kind := range kinds {
		ids := byKind[kind]
		records, err := store.LoadMany(ctx, kind, ids)
		if err != nil {
			for _, id := range ids {
				ref := content.RecordRef{Kind: kind, ID: id}
				rec, loadErr := store.Load(ctx, kind, id)
				if loadErr != nil {
					failed[ref] = loadErr
					continue
				}
				loaded[ref] = rec
			}
			continue
		}
		for _, rec := range records {
			if rec != nil {
				loaded[rec.Ref()] = rec
			}
		}
	}

	out := make([]*content.Record, 0, len(refs))
	var warnings []Warning
	for _, ref := range refs {
		if rec, ok := loaded[ref]; ok && rec != nil {
			out = append(out, rec)
			continue
		}
		err := failed[ref]
		if err == nil {
			err = &content.NotFoundError{Resource: string(ref.Kind), Key: ref.ID.String()}
		}
		warnings = append(warnings, Warning{Record: ref, Message: loadMessage(err)})
	}
	return out, warnings
}

func loadMessage(err error) string {
	if errors.Is(err, content.ErrRecordNotFound) {
		return "record not found"
	}
	return fmt.Sprintf("load failed: %v", err)
}

func dedupe(refs []content.RecordRef) []content.RecordRef {
	seen := make(map[content.RecordRef]struct{}, len(refs))
	out := make([]content.RecordRef, 0, len(refs))
	for _, ref := range refs {
		if ref.ID == uuid.Nil {
			continue
		}
		if ref.Kind == "" {
			ref.Kind = content.KindPrimary
		}
		if _, ok := seen[ref]; ok {
			continue
		}
		seen[ref] = struct{}{}
		out = append(out, ref)
	}
	return out
}

func dedupeKinds(kinds []content.Kind) []content.Kind {
	seen := map[content.Kind]struct{}{}
	out := make([]content.Kind, 0, len(kinds))
	for _, kind := range kinds {
		if kind == "" {
			continue
		}
		if _, ok := seen[kind]; ok {
			continue
		}
		seen[kind] = struct{}{}
		out = append(out, kind)
	}
	return out
}
