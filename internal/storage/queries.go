package storage

import (
	"context"
	"database/sql"
)

type DBTX interface {
	ExecContext(context.Context, string, ...interface{}) (sql.Result, error)
	QueryContext(context.Context, string, ...interface{}) (*sql.Rows, error)
	QueryRowContext(context.Context, string, ...interface{}) *sql.Row
}

func New(db DBTX) *Queries {
	return &Queries{db: db}
}

type Queries struct {
	db DBTX
}

func (q *Queries) WithTx(tx *sql.Tx) *Queries {
	return &Queries{db: tx}
}

// EventRecord is one row of the event_records table.
type EventRecord struct {
	ID          int64
	Date        string
	Type        string
	Description string
	Calories    int64
	Details     string
}

const insertEventRecord = `
INSERT INTO event_records (date, type, description, calories, details)
VALUES (?, ?, ?, ?, ?)
`

type InsertEventRecordParams struct {
	Date        string
	Type        string
	Description string
	Calories    int64
	Details     string
}

func (q *Queries) InsertEventRecord(ctx context.Context, arg InsertEventRecordParams) error {
	_, err := q.db.ExecContext(ctx, insertEventRecord,
		arg.Date,
		arg.Type,
		arg.Description,
		arg.Calories,
		arg.Details,
	)
	return err
}

const getLastEventDate = `
SELECT date FROM event_records ORDER BY id DESC LIMIT 1
`

func (q *Queries) GetLastEventDate(ctx context.Context) (string, error) {
	row := q.db.QueryRowContext(ctx, getLastEventDate)
	var date string
	err := row.Scan(&date)
	return date, err
}

const listEventRecords = `
SELECT id, date, type, description, calories, details
FROM event_records
ORDER BY id
`

func (q *Queries) ListEventRecords(ctx context.Context) ([]EventRecord, error) {
	rows, err := q.db.QueryContext(ctx, listEventRecords)
	if err != nil {
		return nil, err
	}
	defer rows.Close()
	var items []EventRecord
	for rows.Next() {
		var i EventRecord
		if err := rows.Scan(
			&i.ID,
			&i.Date,
			&i.Type,
			&i.Description,
			&i.Calories,
			&i.Details,
		); err != nil {
			return nil, err
		}
		items = append(items, i)
	}
	if err := rows.Close(); err != nil {
		return nil, err
	}
	if err := rows.Err(); err != nil {
		return nil, err
	}
	return items, nil
}

const countEventRecords = `
SELECT COUNT(*) FROM event_records
`

func (q *Queries) CountEventRecords(ctx context.Context) (int64, error) {
	row := q.db.QueryRowContext(ctx, countEventRecords)
	var count int64
	err := row.Scan(&count)
	return count, err
}
