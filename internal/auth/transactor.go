// SPDX-License-Identifier: Apache-2.0
// Copyright 2026 Zyric Contributors

package auth

import "context"

// Transactor runs fn in a single read-committed transaction. Repository calls
// made with the context passed to fn join the transaction. It commits when
// fn returns nil and rolls back otherwise.
type Transactor interface {
	InTransaction(ctx context.Context, fn func(ctx context.Context) error) error
}
