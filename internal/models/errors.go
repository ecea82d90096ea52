package models

import "errors"

var ErrTrackingEventImmutable = errors.New("tracking events are append-only")
