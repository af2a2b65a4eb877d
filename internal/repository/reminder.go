package repository

import (
	"context"
	"errors"
	"time"

	"github.com/jackc/pgx/v5"

	"github.com/hray3182/remind-engine/internal/database"
	"github.com/hray3182/remind-engine/internal/models"
	"github.com/hray3182/remind-engine/internal/scheduler"
)

const reminderColumns = `reminder_id, title, description, tags, priority,
	start_time, original_start_time, recurrence_type, days_of_week, date_in_millis,
	strict_scheduling, nag_mode_enabled, nag_interval_millis, nag_total_repetitions,
	repetition_index, in_snooze_loop, snooze_start_time, snooze_target,
	completed, enabled, armed_token, armed_kind, armed_at, notified_at, created_at`

// ReminderRepository persists reminders in Postgres and satisfies the
// scheduler's Store interface.
type ReminderRepository struct {
	db *database.DB
}

func NewReminderRepository(db *database.DB) *ReminderRepository {
	return &ReminderRepository{db: db}
}

func (r *ReminderRepository) Create(ctx context.Context, reminder *models.Reminder) error {
	return r.db.Pool.QueryRow(ctx,
		`INSERT INTO reminders (title, description, tags, priority,
			start_time, original_start_time, recurrence_type, days_of_week, date_in_millis,
			strict_scheduling, nag_mode_enabled, nag_interval_millis, nag_total_repetitions,
			repetition_index, in_snooze_loop, snooze_start_time, snooze_target,
			completed, enabled, armed_token, armed_kind, armed_at, notified_at)
		 VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10, $11, $12, $13, $14, $15, $16, $17, $18, $19, $20, $21, $22, $23)
		 RETURNING reminder_id, created_at`,
		reminder.Title, reminder.Description, reminder.Tags, reminder.Priority,
		reminder.StartTime, reminder.OriginalStartTime, reminder.RecurrenceType,
		daysToArray(reminder.DaysOfWeek), reminder.DateInMillis,
		reminder.StrictScheduling, reminder.NagModeEnabled, intervalToMillis(reminder.NagInterval),
		reminder.NagTotalRepetitions, reminder.RepetitionIndex,
		reminder.InSnoozeLoop, reminder.SnoozeStartTime, reminder.SnoozeTarget,
		reminder.Completed, reminder.Enabled,
		reminder.ArmedToken, reminder.ArmedKind, reminder.ArmedAt, reminder.NotifiedAt,
	).Scan(&reminder.ID, &reminder.CreatedAt)
}

func (r *ReminderRepository) Load(ctx context.Context, id int64) (*models.Reminder, error) {
	row := r.db.Pool.QueryRow(ctx,
		`SELECT `+reminderColumns+` FROM reminders WHERE reminder_id = $1`, id)
	reminder, err := scanReminder(row)
	if errors.Is(err, pgx.ErrNoRows) {
		return nil, scheduler.ErrNotFound
	}
	return reminder, err
}

func (r *ReminderRepository) Save(ctx context.Context, reminder *models.Reminder) error {
	_, err := r.db.Pool.Exec(ctx,
		`UPDATE reminders SET title = $1, description = $2, tags = $3, priority = $4,
			start_time = $5, original_start_time = $6, recurrence_type = $7,
			days_of_week = $8, date_in_millis = $9, strict_scheduling = $10,
			nag_mode_enabled = $11, nag_interval_millis = $12, nag_total_repetitions = $13,
			repetition_index = $14, in_snooze_loop = $15, snooze_start_time = $16,
			snooze_target = $17, completed = $18, enabled = $19,
			armed_token = $20, armed_kind = $21, armed_at = $22, notified_at = $23
		 WHERE reminder_id = $24`,
		reminder.Title, reminder.Description, reminder.Tags, reminder.Priority,
		reminder.StartTime, reminder.OriginalStartTime, reminder.RecurrenceType,
		daysToArray(reminder.DaysOfWeek), reminder.DateInMillis, reminder.StrictScheduling,
		reminder.NagModeEnabled, intervalToMillis(reminder.NagInterval), reminder.NagTotalRepetitions,
		reminder.RepetitionIndex, reminder.InSnoozeLoop, reminder.SnoozeStartTime,
		reminder.SnoozeTarget, reminder.Completed, reminder.Enabled,
		reminder.ArmedToken, reminder.ArmedKind, reminder.ArmedAt, reminder.NotifiedAt,
		reminder.ID,
	)
	return err
}

func (r *ReminderRepository) Delete(ctx context.Context, id int64) error {
	_, err := r.db.Pool.Exec(ctx, `DELETE FROM reminders WHERE reminder_id = $1`, id)
	return err
}

func (r *ReminderRepository) ListActive(ctx context.Context) ([]*models.Reminder, error) {
	rows, err := r.db.Pool.Query(ctx,
		`SELECT `+reminderColumns+` FROM reminders WHERE enabled = true ORDER BY start_time ASC`)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var reminders []*models.Reminder
	for rows.Next() {
		reminder, err := scanReminder(rows)
		if err != nil {
			return nil, err
		}
		reminders = append(reminders, reminder)
	}
	return reminders, rows.Err()
}

func scanReminder(row pgx.Row) (*models.Reminder, error) {
	reminder := &models.Reminder{}
	var days []int32
	var nagMillis *int64
	err := row.Scan(
		&reminder.ID, &reminder.Title, &reminder.Description, &reminder.Tags, &reminder.Priority,
		&reminder.StartTime, &reminder.OriginalStartTime, &reminder.RecurrenceType,
		&days, &reminder.DateInMillis,
		&reminder.StrictScheduling, &reminder.NagModeEnabled, &nagMillis,
		&reminder.NagTotalRepetitions, &reminder.RepetitionIndex,
		&reminder.InSnoozeLoop, &reminder.SnoozeStartTime, &reminder.SnoozeTarget,
		&reminder.Completed, &reminder.Enabled,
		&reminder.ArmedToken, &reminder.ArmedKind, &reminder.ArmedAt, &reminder.NotifiedAt,
		&reminder.CreatedAt,
	)
	if err != nil {
		return nil, err
	}
	for _, d := range days {
		reminder.DaysOfWeek = append(reminder.DaysOfWeek, int(d))
	}
	if nagMillis != nil {
		d := time.Duration(*nagMillis) * time.Millisecond
		reminder.NagInterval = &d
	}
	return reminder, nil
}

func daysToArray(days []int) []int32 {
	out := make([]int32, 0, len(days))
	for _, d := range days {
		out = append(out, int32(d))
	}
	return out
}

func intervalToMillis(d *time.Duration) *int64 {
	if d == nil {
		return nil
	}
	ms := d.Milliseconds()
	return &ms
}
