// Package pathutil tokenises the tail of an Eos OSC reply path —
// everything after the `<type>[/<listId>]` prefix — into the target key,
// part, optional property group, and optional list index/size.
/*
 * Copyright (c) 2024, Electronic Theatre Controls, Inc.
 */
package pathutil

import (
	"strings"

	"github.com/etclabs/eossync/decimal"
)

// TargetKey identifies one target within a TargetList: a (possibly
// decimal) number plus a part index.
type TargetKey struct {
	Num  decimal.Number
	Part int32
}

// Valid reports whether k could name a real console target.
func (k TargetKey) Valid() bool {
	return k.Num.Whole >= 1 || (k.Num.Whole >= 0 && k.Num.Decimal > 0)
}

// PathData is the parsed tail of a reply path.
type PathData struct {
	Key       TargetKey
	Group     string
	IsList    bool
	ListIndex uint32
	ListSize  uint32
}

// ExtractPathData tokenises path[offset:] per the grammar in §4.2:
// an id, an optional whole-number part, an optional "list/<index>/<size>"
// tuple, and at most one non-numeric group name, in any order relative
// to each other except that the list tuple must be well formed and a
// number may not appear after part+group without a preceding "list".
func ExtractPathData(path string, offset int) (PathData, bool) {
	if offset > len(path) {
		return PathData{}, false
	}
	tail := path[offset:]

	var (
		pd                                  PathData
		gotID, gotPart, gotGroup            bool
		gotList, gotListIndex, listComplete bool
	)

	toks := strings.Split(tail, "/")
tokens:
	for i, tok := range toks {
		if tok == "" {
			continue
		}

		if tok == "list" {
			if gotList {
				return PathData{}, false // second "list"
			}
			gotList = true
			continue
		}

		if num, ok := decimal.Parse(tok); ok {
			switch {
			case gotList:
				if num.Decimal != 0 {
					return PathData{}, false // decimal list index/size
				}
				if !gotListIndex {
					pd.ListIndex = uint32(num.Whole)
					gotListIndex = true
				} else {
					pd.ListSize = uint32(num.Whole)
					pd.IsList = true
					listComplete = true
					for _, rest := range toks[i+1:] {
						if rest == "list" {
							return PathData{}, false // second "list"
						}
					}
					break tokens // parsing terminates on a complete list tuple
				}
			case !gotID:
				pd.Key.Num = num
				gotID = true
			case !gotPart:
				if num.Decimal != 0 {
					return PathData{}, false // decimal part
				}
				pd.Key.Part = num.Whole
				gotPart = true
			default:
				return PathData{}, false // number after part+group, no preceding "list"
			}
			continue
		}

		// non-numeric token: at most one becomes the group name
		if gotGroup {
			return PathData{}, false
		}
		pd.Group = tok
		gotGroup = true
	}

	if gotList && !listComplete {
		return PathData{}, false // tail ends inside an incomplete "list" tuple
	}
	if !gotID {
		return PathData{}, false
	}
	return pd, true
}
