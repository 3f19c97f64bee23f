package core

import "errors"

var ErrBadNotification = errors.New("malformed status notification")
