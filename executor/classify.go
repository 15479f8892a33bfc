package executor

import (
	"database/sql"
	"errors"
	"fmt"
	"slices"
	"strings"

	"github.com/go-sql-driver/mysql"
	"github.com/jackc/pgx/v5/pgconn"
	"github.com/mattn/go-sqlite3"
)

// ErrInvalidErrorType is returned for an unknown error type name.
var ErrInvalidErrorType = errors.New("invalid error type")

// ErrorType is a driver independent class of database error.
type ErrorType string

const (
	ErrorTypeUniqueViolation           ErrorType = "unique violation"
	ErrorTypeForeignKeyViolation       ErrorType = "foreign key violation"
	ErrorTypeNotNullViolation          ErrorType = "not null violation"
	ErrorTypeCheckViolation            ErrorType = "check violation"
	ErrorTypeNotFound                  ErrorType = "not found"
	ErrorTypeDataTooLong               ErrorType = "data too long"
	ErrorTypeNumericOverflow           ErrorType = "numeric overflow"
	ErrorTypeInvalidTextRepresentation ErrorType = "invalid text representation"
)

var errorTypes = []ErrorType{
	ErrorTypeUniqueViolation,
	ErrorTypeForeignKeyViolation,
	ErrorTypeNotNullViolation,
	ErrorTypeCheckViolation,
	ErrorTypeNotFound,
	ErrorTypeDataTooLong,
	ErrorTypeNumericOverflow,
	ErrorTypeInvalidTextRepresentation,
}

// SQLSTATE classes, see the PostgreSQL errcodes appendix.
var postgresCodes = map[string]ErrorType{
	"23505": ErrorTypeUniqueViolation,
	"23503": ErrorTypeForeignKeyViolation,
	"23502": ErrorTypeNotNullViolation,
	"23514": ErrorTypeCheckViolation,
	"22001": ErrorTypeDataTooLong,
	"22003": ErrorTypeNumericOverflow,
	"22P02": ErrorTypeInvalidTextRepresentation,
}

var mysqlCodes = map[uint16]ErrorType{
	1062: ErrorTypeUniqueViolation, // ER_DUP_ENTRY
	1451: ErrorTypeForeignKeyViolation,
	1452: ErrorTypeForeignKeyViolation,
	1048: ErrorTypeNotNullViolation,
	1364: ErrorTypeNotNullViolation,
	3819: ErrorTypeCheckViolation,
	1406: ErrorTypeDataTooLong,
	1264: ErrorTypeNumericOverflow,
	1690: ErrorTypeNumericOverflow,
	1265: ErrorTypeInvalidTextRepresentation,
	1366: ErrorTypeInvalidTextRepresentation,
}

var sqliteConstraints = map[sqlite3.ErrNoExtended]ErrorType{
	sqlite3.ErrConstraintUnique:     ErrorTypeUniqueViolation,
	sqlite3.ErrConstraintPrimaryKey: ErrorTypeUniqueViolation,
	sqlite3.ErrConstraintForeignKey: ErrorTypeForeignKeyViolation,
	sqlite3.ErrConstraintNotNull:    ErrorTypeNotNullViolation,
	sqlite3.ErrConstraintCheck:      ErrorTypeCheckViolation,
}

var sqliteCodes = map[sqlite3.ErrNo]ErrorType{
	sqlite3.ErrMismatch: ErrorTypeInvalidTextRepresentation,
	sqlite3.ErrTooBig:   ErrorTypeDataTooLong,
}

// ParseErrorType accepts spellings such as "Unique_Violation" or "unique-violation".
func ParseErrorType(s string) (ErrorType, error) {
	words := strings.FieldsFunc(strings.ToLower(s), func(r rune) bool {
		return r == '_' || r == '-' || r == ' ' || r == '\t'
	})

	t := ErrorType(strings.Join(words, " "))
	if !slices.Contains(errorTypes, t) {
		return "", fmt.Errorf("%w: %q", ErrInvalidErrorType, s)
	}

	return t, nil
}

// ClassifyError maps a driver error to an ErrorType. It returns "" when
// the error is not recognized.
func ClassifyError(err error) ErrorType {
	if err == nil {
		return ""
	}

	if errors.Is(err, sql.ErrNoRows) {
		return ErrorTypeNotFound
	}

	var pgErr *pgconn.PgError
	if errors.As(err, &pgErr) {
		return postgresCodes[pgErr.Code]
	}

	var myErr *mysql.MySQLError
	if errors.As(err, &myErr) {
		return mysqlCodes[myErr.Number]
	}

	var liteErr sqlite3.Error
	if errors.As(err, &liteErr) {
		if t, found := sqliteConstraints[liteErr.ExtendedCode]; found {
			return t
		}

		return sqliteCodes[liteErr.Code]
	}

	return ""
}
