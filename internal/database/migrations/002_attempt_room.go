package migrations

import "fmt"

func init() {
	Register(Migration{
		Version: 2,
		Name:    "attempt_room",
		Up:      attemptRoom,
	})
}

// attemptRoom records which room a run clicked "Book" on
func attemptRoom(db Execer) error {
	if err := AddColumnIfNotExists(db, "booking_attempts", "room_name", "TEXT"); err != nil {
		return fmt.Errorf("failed to add room_name: %w", err)
	}
	return nil
}
