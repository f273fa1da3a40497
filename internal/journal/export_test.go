package journal

import "context"

// ExecForTest runs a raw statement against the journal.
func (s *Store) ExecForTest(ctx context.Context, statement string) error {
	_, err := s.db.ExecContext(ctx, statement)
	return err
}
