//go:build !debug

package dbg

func Assert(bool, ...any)         {}
func Assertf(bool, string, ...any) {}
