package migrations

import (
	"github.com/go-gormigrate/gormigrate/v2"
	"gorm.io/gorm"
)

// The trigger fans every notification write out on the notification_changes
// channel so LISTEN-based feed subscribers see changes without polling. The
// payload carries only the operation and recipient; subscribers re-fetch, so
// nothing else needs to ride along.
func addNotificationChangeTrigger() *gormigrate.Migration {
	return &gormigrate.Migration{
		ID: "000003_add_notification_change_trigger",
		Migrate: func(tx *gorm.DB) error {
			statements := []string{
				`CREATE OR REPLACE FUNCTION notify_notification_change() RETURNS trigger AS $$
DECLARE
  affected RECORD;
BEGIN
  IF TG_OP = 'DELETE' THEN
    affected := OLD;
  ELSE
    affected := NEW;
  END IF;
  PERFORM pg_notify(
    'notification_changes',
    json_build_object('kind', TG_OP, 'recipientId', affected.recipient_id)::text
  );
  RETURN affected;
END;
$$ LANGUAGE plpgsql`,
				`DROP TRIGGER IF EXISTS notifications_change_notify ON notifications`,
				`CREATE TRIGGER notifications_change_notify
AFTER INSERT OR UPDATE OR DELETE ON notifications
FOR EACH ROW EXECUTE FUNCTION notify_notification_change()`,
			}
			for _, sql := range statements {
				if err := tx.Exec(sql).Error; err != nil {
					return err
				}
			}
			return nil
		},
		Rollback: func(tx *gorm.DB) error {
			statements := []string{
				`DROP TRIGGER IF EXISTS notifications_change_notify ON notifications`,
				`DROP FUNCTION IF EXISTS notify_notification_change()`,
			}
			for _, sql := range statements {
				if err := tx.Exec(sql).Error; err != nil {
					return err
				}
			}
			return nil
		},
	}
}
