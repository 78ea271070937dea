package influxdb

import "errors"

// Sentinel errors; check with errors.Is. Write failures are delivered
// asynchronously through the SetOnError callback, not as return values.
var (
	ErrNotConnected     = errors.New("influxdb: not connected")
	ErrConnectionFailed = errors.New("influxdb: connection failed")
	ErrDisabled         = errors.New("influxdb: disabled in configuration")
)
