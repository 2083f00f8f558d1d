package db

import "errors"

// Sentinel errors shared by the redis and memory stores.
var (
	ErrKeyNotFound   = errors.New("db: key not found")
	ErrIndexNotFound = errors.New("db: index not found")
	ErrIndexExists   = errors.New("db: index already exists")
)

// Op names used in Error. They follow Redis command names.
const (
	OpCreateIndex = "FT.CREATE"
	OpIndexInfo   = "FT.INFO"
	OpSearch      = "FT.SEARCH"
	OpDel         = "DEL"
	OpHGetAll     = "HGETALL"
	OpHSet        = "HSET"
	OpScan        = "SCAN"
	OpGet         = "GET"
	OpMultiGet    = "GET*"
	OpSet         = "SET"
	OpIncr        = "INCR"
	OpIncrBy      = "INCRBY"
	OpExpire      = "EXPIRE"
	OpEval        = "EVAL"
)

// Error carries the failed command name so callers can log it without
// parsing driver errors. errors.Is still reaches the sentinels through Unwrap.
type Error struct {
	Op  string
	Err error
}

func (e *Error) Error() string { return e.Op + ": " + e.Err.Error() }
func (e *Error) Unwrap() error { return e.Err }
