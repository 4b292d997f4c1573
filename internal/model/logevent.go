package model

import (
	"fmt"
	"strconv"
	"strings"
	"time"
)

// Log event types and actions mined during diagnosis.
const (
	LogTypeDelete = "delete"
	LogTypeMove   = "move"

	LogActionDelete    = "delete"
	LogActionMove      = "move"
	LogActionMoveRedir = "move_redir"
)

// Log parameter keys used by move events. The numeric prefixes are part of
// the historical serialization format on the remote platform.
const (
	paramMoveTarget = "4::target"
	paramNoRedirect = "5::noredir"
)

// LogParams holds the structured action parameters of a log event. Params
// recorded in the legacy pre-serialization format cannot be decoded into
// key/value form; they are preserved verbatim in Raw instead.
type LogParams struct {
	// Values maps parameter keys to their string rendition.
	Values map[string]string

	// Raw is the undecoded legacy payload, set only when decoding failed.
	Raw string
}

// MoveTarget returns the target title of a move event, or empty.
func (p LogParams) MoveTarget() string {
	return p.Values[paramMoveTarget]
}

// MovedWithoutRedirect reports whether a move event suppressed the creation
// of a redirect at the source title. Absent parameter means a redirect was
// left behind.
func (p LogParams) MovedWithoutRedirect() bool {
	return p.Values[paramNoRedirect] == "1"
}

// Legacy reports whether the parameters could not be decoded and only the
// raw payload is available.
func (p LogParams) Legacy() bool {
	return p.Raw != ""
}

// ParseLogParams decodes a PHP-serialized log parameter blob into key/value
// form. The remote platform stores parameters of modern log entries as a
// serialized associative array of scalars; entries written before that
// format existed hold a free-form string. Undecodable input degrades into
// a raw-string record rather than an error, so one malformed historical
// row never fails a whole diagnosis.
func ParseLogParams(data []byte) LogParams {
	if len(data) == 0 {
		return LogParams{Values: map[string]string{}}
	}

	values, rest, err := parsePHPValue(string(data))
	if err != nil || strings.TrimSpace(rest) != "" {
		return LogParams{Values: map[string]string{}, Raw: string(data)}
	}

	m, ok := values.(map[string]string)
	if !ok {
		return LogParams{Values: map[string]string{}, Raw: string(data)}
	}

	return LogParams{Values: m}
}

// parsePHPValue consumes one serialized PHP value from the front of s.
// Arrays are flattened to map[string]string; scalars come back as string.
func parsePHPValue(s string) (any, string, error) {
	if len(s) < 2 {
		return nil, s, fmt.Errorf("truncated value %q", s)
	}

	switch s[0] {
	case 'N':
		if !strings.HasPrefix(s, "N;") {
			return nil, s, fmt.Errorf("malformed null in %q", s)
		}
		return "", s[2:], nil
	case 'i', 'd', 'b':
		end := strings.Index(s, ";")
		if end < 0 || s[1] != ':' {
			return nil, s, fmt.Errorf("malformed scalar in %q", s)
		}
		return s[2:end], s[end+1:], nil
	case 's':
		// s:<byte length>:"<bytes>";
		rest := s[2:]
		colon := strings.Index(rest, ":")
		if s[1] != ':' || colon < 0 {
			return nil, s, fmt.Errorf("malformed string in %q", s)
		}
		length, err := strconv.Atoi(rest[:colon])
		if err != nil {
			return nil, s, err
		}
		body := rest[colon+1:]
		if len(body) < length+3 || body[0] != '"' {
			return nil, s, fmt.Errorf("truncated string in %q", s)
		}
		value := body[1 : 1+length]
		if body[1+length:1+length+2] != `";` {
			return nil, s, fmt.Errorf("unterminated string in %q", s)
		}
		return value, body[1+length+2:], nil
	case 'a':
		// a:<count>:{<key><value>...}
		rest := s[2:]
		colon := strings.Index(rest, ":")
		if s[1] != ':' || colon < 0 {
			return nil, s, fmt.Errorf("malformed array in %q", s)
		}
		count, err := strconv.Atoi(rest[:colon])
		if err != nil {
			return nil, s, err
		}
		body := rest[colon+1:]
		if len(body) == 0 || body[0] != '{' {
			return nil, s, fmt.Errorf("malformed array body in %q", s)
		}
		body = body[1:]

		values := make(map[string]string, count)
		for i := 0; i < count; i++ {
			var key, value any
			key, body, err = parsePHPValue(body)
			if err != nil {
				return nil, s, err
			}
			value, body, err = parsePHPValue(body)
			if err != nil {
				return nil, s, err
			}
			keyStr, _ := key.(string)
			switch v := value.(type) {
			case string:
				values[keyStr] = v
			case map[string]string:
				// Nested arrays are rare in move/delete params;
				// flatten with a key prefix.
				for nk, nv := range v {
					values[keyStr+"."+nk] = nv
				}
			}
		}
		if len(body) == 0 || body[0] != '}' {
			return nil, s, fmt.Errorf("unterminated array in %q", s)
		}
		return values, body[1:], nil
	default:
		return nil, s, fmt.Errorf("unsupported type %q", s[0])
	}
}

// BlockEvent is one block action recorded against a user.
type BlockEvent struct {
	// LogID is the id of the block log entry.
	LogID int64

	// Timestamp is the numeric YYYYMMDDHHMMSS timestamp of the block.
	Timestamp int64

	// Params is the raw parameter payload of the block entry.
	Params string
}

// User carries the trust signals of an acting user relative to the central
// knowledge base. A nil ID means the actor has no central account, which is
// a significant classification signal on its own.
type User struct {
	// ID is the central user id, or nil when no central account exists.
	ID *int64

	// Name is the user name as recorded in the log's actor field.
	Name string

	// Registration is the numeric registration timestamp of the central
	// account, or nil when unknown.
	Registration *int64

	// EditCount is the central edit count.
	EditCount int64

	// Blocks holds the user's block history, oldest first.
	Blocks []BlockEvent
}

// HasAccount reports whether the user exists centrally.
func (u User) HasAccount() bool {
	return u.ID != nil
}

// BlockTimestamps renders the block history as a comma-separated timestamp
// list for narratives and audit payloads.
func (u User) BlockTimestamps() string {
	stamps := make([]string, len(u.Blocks))
	for i, b := range u.Blocks {
		stamps[i] = strconv.FormatInt(b.Timestamp, 10)
	}
	return strings.Join(stamps, ", ")
}

// String describes the user for evaluation narratives.
func (u User) String() string {
	if !u.HasAccount() {
		return "user has no central account"
	}

	registration := "unknown"
	if u.Registration != nil {
		registration = strconv.FormatInt(*u.Registration, 10)
	}

	blocks := fmt.Sprintf("%d blocks", len(u.Blocks))
	if len(u.Blocks) > 0 {
		blocks += " at timestamps " + u.BlockTimestamps()
	}

	return fmt.Sprintf("user %q registered centrally at %s with %d edits (id %d); block history: %s",
		u.Name, registration, u.EditCount, *u.ID, blocks)
}

// PayloadMap renders the user's trust signals for the audit payload.
func (u User) PayloadMap() map[string]any {
	if !u.HasAccount() {
		return map[string]any{
			"user_id":               nil,
			"user_name":             nil,
			"user_registration":     nil,
			"user_editcount":        nil,
			"user_block_count":      nil,
			"user_block_timestamps": nil,
		}
	}

	var registration any
	if u.Registration != nil {
		registration = *u.Registration
	}

	return map[string]any{
		"user_id":               *u.ID,
		"user_name":             u.Name,
		"user_registration":     registration,
		"user_editcount":        u.EditCount,
		"user_block_count":      len(u.Blocks),
		"user_block_timestamps": u.BlockTimestamps(),
	}
}

// LogEvent is one historical move or delete action against a page, with
// the acting user's trust signals resolved.
type LogEvent struct {
	// ID is the log entry id on the project.
	ID int64

	// Timestamp is the numeric YYYYMMDDHHMMSS timestamp. "Latest" among
	// candidate events means maximum Timestamp.
	Timestamp int64

	// Type is the log type (move or delete).
	Type string

	// Action is the log action (move, move_redir, or delete).
	Action string

	// ActorName is the acting user's name on the project.
	ActorName string

	// Params holds the structured action parameters.
	Params LogParams

	// Actor carries the acting user's central trust signals.
	Actor User
}

// Time parses the numeric timestamp into a time.Time in UTC.
func (e *LogEvent) Time() (time.Time, error) {
	return time.Parse("20060102150405", strconv.FormatInt(e.Timestamp, 10))
}

// IsMove reports whether the event is a move or move_redir action.
func (e *LogEvent) IsMove() bool {
	return e.Action == LogActionMove || e.Action == LogActionMoveRedir
}

// IsDelete reports whether the event is a delete action.
func (e *LogEvent) IsDelete() bool {
	return e.Action == LogActionDelete
}

// PayloadMap renders the event for the audit payload.
func (e *LogEvent) PayloadMap() map[string]any {
	params := make(map[string]any, len(e.Params.Values))
	for k, v := range e.Params.Values {
		params[k] = v
	}
	if e.Params.Legacy() {
		params["oldformat"] = e.Params.Raw
	}

	return map[string]any{
		"timestamp":  e.Timestamp,
		"actor_name": e.ActorName,
		"params":     params,
		"type":       e.Type,
		"action":     e.Action,
	}
}

// String describes the event for evaluation narratives.
func (e *LogEvent) String() string {
	return fmt.Sprintf("log %d: %s/%s by %q at %d", e.ID, e.Type, e.Action, e.ActorName, e.Timestamp)
}
