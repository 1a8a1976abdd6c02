package domain

import "errors"

// ErrDeviceNotFound is returned by DeviceRepository lookups when no device
// exists for the given id. The console renders it as a not-found screen
// rather than surfacing a failure.
var ErrDeviceNotFound = errors.New("device not found")
