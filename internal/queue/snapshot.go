package queue

import "context"

// SnapshotEncoder can serialize itself for storage. This is satisfied by
// *aggregate.Snapshot without requiring a direct import of that package.
type SnapshotEncoder interface {
	Encode() (string, error)
}

// PersistSnapshot encodes snap and writes the result to item via store.Update.
// On success the updated item fields (including any store-generated values)
// are written back through the item pointer. Returns a non-nil error when
// encoding or persistence fails; callers decide how to log the result.
func PersistSnapshot(ctx context.Context, store *Store, item *Item, snap SnapshotEncoder) error {
	encoded, err := snap.Encode()
	if err != nil {
		return err
	}
	copy := *item
	copy.SnapshotJSON = encoded
	if store != nil {
		if err := store.Update(ctx, &copy); err != nil {
			return err
		}
	}
	*item = copy
	return nil
}
