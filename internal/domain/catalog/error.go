package catalog

import "errors"

var (
	ErrEmptyCatalog   = errors.New("catalog has no tables")
	ErrEmptyTableName = errors.New("table name is empty")
	ErrDuplicateTable = errors.New("duplicate table")
	ErrUnknownTable   = errors.New("unknown table")
	ErrBadStrategy    = errors.New("unsupported field strategy")
)
