// Rivalry - Achievement Leaderboard Aggregator
// Copyright 2026 Tom F. (tomtom215)
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/tomtom215/rivalry

package aggregate

import "errors"

// ErrInvalidArgument wraps caller mistakes such as a non-positive game id or
// a malformed date. The HTTP layer maps it to 400.
var ErrInvalidArgument = errors.New("aggregate: invalid argument")

// ErrNoLedger means a ledger write was requested from an Aggregator built
// without one.
var ErrNoLedger = errors.New("aggregate: no ledger configured")
