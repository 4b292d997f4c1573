package warehouse

import (
	"context"
	"database/sql"
	"fmt"
	"log/slog"
	"strconv"
	"strings"

	"github.com/go-sql-driver/mysql"

	"github.com/wdauditor/sitelinkaudit/internal/config"
	"github.com/wdauditor/sitelinkaudit/internal/model"
)

// PageRow is one raw row of a project's page query: numeric namespace,
// title with underscores, and the locally recorded item id (empty when the
// page carries none).
type PageRow struct {
	Namespace int
	Title     string
	Item      string
}

// SitelinkRow is one raw row of the central sitelink query for a project.
type SitelinkRow struct {
	Item  string
	Title string
}

// Replica is a read-only connection to one wiki replica. The same type
// serves per-project replicas, the central replica, and the meta replica;
// only the dbname differs.
type Replica struct {
	db     *sql.DB
	dbname string
	logger *slog.Logger
}

// OpenReplica connects to the replica of the given dbname.
func OpenReplica(cfg *config.Config, dbname string, logger *slog.Logger) (*Replica, error) {
	dsn := replicaDSN(cfg, dbname)
	db, err := sql.Open("mysql", dsn)
	if err != nil {
		return nil, fmt.Errorf("open replica %s: %w", dbname, err)
	}

	// Replica work is strictly sequential per connection owner; a second
	// connection only risks hitting the per-user connection quota.
	db.SetMaxOpenConns(1)
	db.SetMaxIdleConns(1)

	logger.Debug("replica connection established", "dbname", dbname)
	return &Replica{db: db, dbname: dbname, logger: logger}, nil
}

// replicaDSN builds the driver DSN for a replica.
func replicaDSN(cfg *config.Config, dbname string) string {
	c := mysql.NewConfig()
	c.User = cfg.DBUser
	c.Passwd = cfg.DBPassword
	c.Net = "tcp"
	c.Addr = fmt.Sprintf(cfg.ReplicaAddr, dbname)
	c.DBName = dbname + cfg.ReplicaDatabaseSuffix
	return c.FormatDSN()
}

// Close closes the replica connection.
func (r *Replica) Close() error {
	r.logger.Debug("replica connection closed", "dbname", r.dbname)
	return r.db.Close()
}

// DBName returns the dbname this replica serves.
func (r *Replica) DBName() string {
	return r.dbname
}

// Projects lists the open projects carrying central links from the meta
// replica's wiki table, ordered by dbname. Only meaningful on the meta
// replica.
func (r *Replica) Projects(ctx context.Context) ([]*model.Project, error) {
	const query = `SELECT
		dbname,
		url
	FROM
		wiki
	WHERE
		is_closed=0
		AND has_wikidata=1
	ORDER BY
		dbname ASC`

	rows, err := r.db.QueryContext(ctx, query)
	if err != nil {
		return nil, fmt.Errorf("query project directory: %w", err)
	}
	defer rows.Close()

	var projects []*model.Project
	for rows.Next() {
		var dbname, url string
		if err := rows.Scan(&dbname, &url); err != nil {
			return nil, fmt.Errorf("scan project row: %w", err)
		}
		projects = append(projects, model.NewProject(dbname, hostnameFromURL(url)))
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("iterate project rows: %w", err)
	}
	return projects, nil
}

// hostnameFromURL strips the scheme from a project url.
func hostnameFromURL(url string) string {
	url = strings.TrimPrefix(url, "https://")
	return strings.TrimPrefix(url, "http://")
}

// PageRows streams the project's page table joined with the linked-item
// page property, invoking flush for every chunk of up to chunkSize rows.
// An error from flush aborts the stream and is returned unchanged.
func (r *Replica) PageRows(ctx context.Context, constraint string, chunkSize int, flush func([]PageRow) error) error {
	query := `SELECT
		page_namespace,
		CONVERT(page_title USING utf8mb4) AS page_title,
		CONVERT(pp_value USING utf8mb4) AS qid
	FROM
		page
			LEFT JOIN page_props
				ON page_id=pp_page
				AND pp_propname='wikibase_item'` + constraint

	rows, err := r.db.QueryContext(ctx, query)
	if err != nil {
		return fmt.Errorf("query pages of %s: %w", r.dbname, err)
	}
	defer rows.Close()

	chunk := make([]PageRow, 0, chunkSize)
	for rows.Next() {
		var row PageRow
		var item sql.NullString
		if err := rows.Scan(&row.Namespace, &row.Title, &item); err != nil {
			return fmt.Errorf("scan page row of %s: %w", r.dbname, err)
		}
		row.Item = item.String

		chunk = append(chunk, row)
		if len(chunk) == chunkSize {
			if err := flush(chunk); err != nil {
				return err
			}
			chunk = chunk[:0]
		}
	}
	if err := rows.Err(); err != nil {
		return fmt.Errorf("stream pages of %s: %w", r.dbname, err)
	}
	if len(chunk) > 0 {
		return flush(chunk)
	}
	return nil
}

// SitelinkRows streams the central sitelink rows of one project, invoking
// flush for every chunk of up to chunkSize rows. Only meaningful on the
// central replica.
func (r *Replica) SitelinkRows(ctx context.Context, siteID string, chunkSize int, flush func([]SitelinkRow) error) error {
	const query = `SELECT
		CONCAT('Q', ips_item_id) AS qid_sitelink,
		CONVERT(ips_site_page USING utf8mb4) AS sitelink
	FROM
		wb_items_per_site
	WHERE
		ips_site_id=?`

	rows, err := r.db.QueryContext(ctx, query, siteID)
	if err != nil {
		return fmt.Errorf("query sitelinks of %s: %w", siteID, err)
	}
	defer rows.Close()

	chunk := make([]SitelinkRow, 0, chunkSize)
	for rows.Next() {
		var row SitelinkRow
		if err := rows.Scan(&row.Item, &row.Title); err != nil {
			return fmt.Errorf("scan sitelink row of %s: %w", siteID, err)
		}
		chunk = append(chunk, row)
		if len(chunk) == chunkSize {
			if err := flush(chunk); err != nil {
				return err
			}
			chunk = chunk[:0]
		}
	}
	if err := rows.Err(); err != nil {
		return fmt.Errorf("stream sitelinks of %s: %w", siteID, err)
	}
	if len(chunk) > 0 {
		return flush(chunk)
	}
	return nil
}

// LogEvents fetches the log entries of one type/action pair for an exact
// historical title and namespace. The title is passed in spaced form and
// underscored here, matching how the logging table stores titles.
func (r *Replica) LogEvents(ctx context.Context, logType, action string, namespace int, title string) ([]model.LogEvent, error) {
	const query = `SELECT
		log_id,
		log_timestamp,
		actor_name,
		log_params
	FROM
		logging_userindex
			JOIN actor_logging ON log_actor=actor_id
	WHERE
		log_type=?
		AND log_action=?
		AND log_title=?
		AND log_namespace=?`

	rows, err := r.db.QueryContext(ctx, query,
		logType, action, strings.ReplaceAll(title, " ", "_"), namespace)
	if err != nil {
		return nil, fmt.Errorf("query %s/%s log of %s: %w", logType, action, r.dbname, err)
	}
	defer rows.Close()

	return scanLogEvents(rows, logType, action)
}

// LogEventsByID fetches full log rows for previously resolved entry ids.
// Used for projects whose logging tables are too large for title scans.
func (r *Replica) LogEventsByID(ctx context.Context, logType, action string, ids []int64) ([]model.LogEvent, error) {
	if len(ids) == 0 {
		return nil, nil
	}

	placeholders := make([]string, len(ids))
	args := make([]any, len(ids))
	for i, id := range ids {
		placeholders[i] = "?"
		args[i] = id
	}

	query := `SELECT
		log_id,
		log_timestamp,
		actor_name,
		log_params
	FROM
		logging_userindex
			JOIN actor_logging ON log_actor=actor_id
	WHERE
		log_id IN (` + strings.Join(placeholders, ", ") + `)`

	rows, err := r.db.QueryContext(ctx, query, args...)
	if err != nil {
		return nil, fmt.Errorf("query log entries by id of %s: %w", r.dbname, err)
	}
	defer rows.Close()

	return scanLogEvents(rows, logType, action)
}

// scanLogEvents converts log rows into model events. Timestamps arrive as
// byte strings in the numeric YYYYMMDDHHMMSS form on all replicas.
func scanLogEvents(rows *sql.Rows, logType, action string) ([]model.LogEvent, error) {
	var events []model.LogEvent
	for rows.Next() {
		var (
			id        int64
			timestamp []byte
			actorName string
			params    []byte
		)
		if err := rows.Scan(&id, &timestamp, &actorName, &params); err != nil {
			return nil, fmt.Errorf("scan log row: %w", err)
		}

		ts, err := parseNumericTimestamp(timestamp)
		if err != nil {
			return nil, fmt.Errorf("parse log timestamp of entry %d: %w", id, err)
		}

		events = append(events, model.LogEvent{
			ID:        id,
			Timestamp: ts,
			Type:      logType,
			Action:    action,
			ActorName: actorName,
			Params:    model.ParseLogParams(params),
		})
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("iterate log rows: %w", err)
	}
	return events, nil
}

// User fetches the central account of a user by name. A user without a
// central account is returned with a nil ID, not an error. Only meaningful
// on the central replica.
func (r *Replica) User(ctx context.Context, name string) (model.User, error) {
	const query = `SELECT
		user_id,
		user_name,
		user_registration,
		user_editcount
	FROM
		user
	WHERE
		user_name=?`

	rows, err := r.db.QueryContext(ctx, query, name)
	if err != nil {
		return model.User{}, fmt.Errorf("query central user %q: %w", name, err)
	}
	defer rows.Close()

	if !rows.Next() {
		if err := rows.Err(); err != nil {
			return model.User{}, fmt.Errorf("iterate user rows: %w", err)
		}
		return model.User{Name: name}, nil
	}

	var (
		id           int64
		userName     string
		registration []byte
		editCount    sql.NullInt64
	)
	if err := rows.Scan(&id, &userName, &registration, &editCount); err != nil {
		return model.User{}, fmt.Errorf("scan user row: %w", err)
	}

	user := model.User{
		ID:        &id,
		Name:      userName,
		EditCount: editCount.Int64,
	}
	if len(registration) > 0 {
		ts, err := parseNumericTimestamp(registration)
		if err != nil {
			return model.User{}, fmt.Errorf("parse registration of %q: %w", name, err)
		}
		user.Registration = &ts
	}

	blocks, err := r.BlockEvents(ctx, userName)
	if err != nil {
		return model.User{}, err
	}
	user.Blocks = blocks
	return user, nil
}

// BlockEvents fetches the block history of a user from the central block
// log. Only meaningful on the central replica.
func (r *Replica) BlockEvents(ctx context.Context, name string) ([]model.BlockEvent, error) {
	const query = `SELECT
		log_id,
		log_timestamp,
		log_params
	FROM
		logging
	WHERE
		log_type='block'
		AND log_action='block'
		AND log_namespace=2
		AND log_title=?`

	rows, err := r.db.QueryContext(ctx, query, strings.ReplaceAll(name, " ", "_"))
	if err != nil {
		return nil, fmt.Errorf("query block log of %q: %w", name, err)
	}
	defer rows.Close()

	var blocks []model.BlockEvent
	for rows.Next() {
		var (
			id        int64
			timestamp []byte
			params    []byte
		)
		if err := rows.Scan(&id, &timestamp, &params); err != nil {
			return nil, fmt.Errorf("scan block row: %w", err)
		}
		ts, err := parseNumericTimestamp(timestamp)
		if err != nil {
			return nil, fmt.Errorf("parse block timestamp of entry %d: %w", id, err)
		}
		blocks = append(blocks, model.BlockEvent{
			LogID:     id,
			Timestamp: ts,
			Params:    string(params),
		})
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("iterate block rows: %w", err)
	}
	return blocks, nil
}

// parseNumericTimestamp parses a YYYYMMDDHHMMSS byte string as an int64.
func parseNumericTimestamp(b []byte) (int64, error) {
	return strconv.ParseInt(string(b), 10, 64)
}
