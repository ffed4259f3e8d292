package builder

import (
	"errors"
	"fmt"
)

var (
	// ErrConfiguration is matched by every *ConfigError.
	ErrConfiguration = errors.New("querybuilder: configuration error")

	// ErrExecution is matched by every *ExecError.
	ErrExecution = errors.New("querybuilder: execution error")
)

var (
	ErrMissingTable      = errors.New("table is not set")
	ErrMissingWhere      = errors.New("refusing to run without a WHERE condition")
	ErrInvalidOperator   = errors.New("operator is not allowed")
	ErrInvalidLimit      = errors.New("limit and offset must not be negative")
	ErrEmptyData         = errors.New("no column values given")
	ErrUnboundParameter  = errors.New("placeholder has no bound value")
	ErrInvalidJoin       = errors.New("invalid join")
	ErrNilConnection     = errors.New("builder has no connection")
	ErrUnsupportedClause = errors.New("clause is not supported by this statement")
)

// ConfigError reports a builder that was used incorrectly. It is raised before
// any SQL reaches the connection.
type ConfigError struct {
	Op  string
	Err error
}

func (e *ConfigError) Error() string {
	return fmt.Sprintf("querybuilder: %s: %v", e.Op, e.Err)
}

func (e *ConfigError) Unwrap() error { return e.Err }

// Is makes errors.Is(err, ErrConfiguration) true for any ConfigError.
func (e *ConfigError) Is(target error) bool {
	return target == ErrConfiguration
}

// NewConfigError constructs a ConfigError for the given operation.
func NewConfigError(op string, err error) error {
	return &ConfigError{Op: op, Err: err}
}

// ExecError wraps a failure reported by the connection while running SQL.
type ExecError struct {
	Op  string
	SQL string
	Err error
}

func (e *ExecError) Error() string {
	return fmt.Sprintf("querybuilder: %s failed: %v", e.Op, e.Err)
}

func (e *ExecError) Unwrap() error { return e.Err }

// Is makes errors.Is(err, ErrExecution) true for any ExecError.
func (e *ExecError) Is(target error) bool {
	return target == ErrExecution
}

// NewExecError constructs an ExecError for the given operation and statement.
func NewExecError(op, sql string, err error) error {
	return &ExecError{Op: op, SQL: sql, Err: err}
}
