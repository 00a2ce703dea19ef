package types

import "context"

type recordIDKey struct{}

// ContextWithRecordID returns a copy of ctx carrying the id of the record
// being processed, so handlers can correlate actions with their input.
func ContextWithRecordID(ctx context.Context, id RecordID) context.Context {
	return context.WithValue(ctx, recordIDKey{}, id)
}

// RecordIDFromContext returns the record id set by ContextWithRecordID.
func RecordIDFromContext(ctx context.Context) (RecordID, bool) {
	id, ok := ctx.Value(recordIDKey{}).(RecordID)
	return id, ok && id != ""
}
