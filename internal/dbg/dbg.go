// Package dbg provides build-tag gated invariant assertions, compiled
// out of production builds by default.
/*
 * Copyright (c) 2024, Electronic Theatre Controls, Inc.
 */
package dbg

// Assert panics with msg if cond is false, but only in builds tagged
// "debug" (assert_on.go); assert_off.go provides the default no-op.
