package checker

import (
	"database/sql"
	"fmt"
	"log"
	"strconv"
	"strings"

	_ "github.com/lib/pq"
)

// approxTolerance is the relative slack allowed by "~n" expectations.
// Timing jitter in a live run can drop or add the odd row, so exact counts
// are only demanded when the scenario asks for them.
const approxTolerance = 0.2

// PostgresChecker runs single-value scenario queries against the alert store
type PostgresChecker struct {
	db     *sql.DB
	logger *log.Logger
}

// NewPostgresChecker opens and pings a connection for the run
func NewPostgresChecker(connStr string, logger *log.Logger) (*PostgresChecker, error) {
	if logger == nil {
		logger = log.Default()
	}

	db, err := sql.Open("postgres", connStr)
	if err != nil {
		return nil, fmt.Errorf("failed to open postgres connection: %w", err)
	}
	if err := db.Ping(); err != nil {
		return nil, fmt.Errorf("failed to ping postgres: %w", err)
	}

	return &PostgresChecker{db: db, logger: logger}, nil
}

// CheckQuery runs a query expected to return exactly one value and compares
// it to the expectation: exact match, or "~n" for n within the tolerance
func (p *PostgresChecker) CheckQuery(query string, expected interface{}) error {
	var result interface{}
	if err := p.db.QueryRow(query).Scan(&result); err != nil {
		return fmt.Errorf("query failed: %w", err)
	}

	p.logger.Printf("Query %q returned %v (expected %v)", query, result, expected)

	if s, ok := expected.(string); ok && strings.HasPrefix(s, "~") {
		return compareApprox(result, strings.TrimPrefix(s, "~"))
	}
	if fmt.Sprintf("%v", result) != fmt.Sprintf("%v", expected) {
		return fmt.Errorf("mismatch: expected %v, got %v", expected, result)
	}
	return nil
}

func compareApprox(actual interface{}, targetStr string) error {
	target, err := strconv.ParseFloat(targetStr, 64)
	if err != nil {
		return fmt.Errorf("invalid approximate expectation: ~%s", targetStr)
	}

	value, err := asFloat(actual)
	if err != nil {
		return err
	}

	slack := target * approxTolerance
	if value < target-slack || value > target+slack {
		return fmt.Errorf("value %.2f not within ±%.0f%% of %.0f", value, approxTolerance*100, target)
	}
	return nil
}

func asFloat(v interface{}) (float64, error) {
	switch x := v.(type) {
	case int64:
		return float64(x), nil
	case float64:
		return x, nil
	case []byte:
		return strconv.ParseFloat(string(x), 64)
	case string:
		return strconv.ParseFloat(x, 64)
	default:
		return 0, fmt.Errorf("cannot compare %T approximately", v)
	}
}

// Close releases the connection
func (p *PostgresChecker) Close() error {
	if p.db == nil {
		return nil
	}
	return p.db.Close()
}
