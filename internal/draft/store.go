package draft

import (
	"context"

	"github.com/SmitUplenchwar2687/Hooksend/internal/schema"
)

// Store remembers the identity fields of the last draft.
type Store struct {
	schema *schema.Schema
}

// NewStore creates a Store over sch.
func NewStore(sch *schema.Schema) *Store {
	return &Store{schema: sch}
}

// Load returns a fresh draft seeded with the remembered profile.
func (s *Store) Load(ctx context.Context) *Draft {
	return FromProfile(s.schema.Profile(ctx))
}

// Profile returns the remembered profile.
func (s *Store) Profile(ctx context.Context) schema.Profile {
	return s.schema.Profile(ctx)
}

// Save remembers d's identity fields. Message content is never written.
func (s *Store) Save(ctx context.Context, d *Draft) error {
	return s.schema.SetProfile(ctx, d.Profile())
}

// NoticeShown reports whether the one-time responsible-use notice was
// acknowledged.
func (s *Store) NoticeShown(ctx context.Context) bool {
	return s.schema.AlertShown(ctx)
}

// SetNoticeShown records acknowledgement of the responsible-use notice.
func (s *Store) SetNoticeShown(ctx context.Context, shown bool) error {
	return s.schema.SetAlertShown(ctx, shown)
}
