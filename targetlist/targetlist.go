// Package targetlist implements TargetList, the mid-level aggregate that
// owns every Target of one console target type (and, for cues, one cue
// list), discovers them by count-then-index during initial sync, and
// keeps them current against notify traffic afterward (§4.4).
/*
 * Copyright (c) 2024, Electronic Theatre Controls, Inc.
 */
package targetlist

import (
	"fmt"
	"strconv"

	"github.com/etclabs/eossync/decimal"
	"github.com/etclabs/eossync/elog"
	"github.com/etclabs/eossync/internal/dbg"
	"github.com/etclabs/eossync/oscwire"
	"github.com/etclabs/eossync/pathutil"
	"github.com/etclabs/eossync/target"
)

// entry is one discovered console number: zero or more parts, and
// whether its shape (part set) has been fetched at all yet. A notify
// resets initialized to false to mark the number for re-fetch without
// forgetting that it exists.
type entry struct {
	initialized bool
	parts       map[int32]*target.Target
}

// TargetList owns every Target of one type, indexed by console number
// and part, plus a UID-to-Target lookup for console-assigned identifiers.
type TargetList struct {
	typ    target.Type
	listID int

	targets  map[decimal.Number]*entry
	uidIndex map[string]*target.Target
	numTargets int

	status         target.Status
	internalStatus target.StatusValue

	initialSyncCount    uint32
	initialSyncComplete bool
}

// New constructs an empty TargetList for typ. listID is only meaningful
// for Cue (the cue-list number); every other type ignores it.
func New(typ target.Type, listID int) *TargetList {
	tl := &TargetList{typ: typ, listID: listID}
	tl.reset()
	return tl
}

func (tl *TargetList) reset() {
	tl.targets = make(map[decimal.Number]*entry)
	tl.uidIndex = make(map[string]*target.Target)
	tl.numTargets = 0
	tl.status = target.Status{}
	tl.internalStatus = target.Uninitialized
	tl.initialSyncCount = 0
	tl.initialSyncComplete = false
}

// Clear discards every owned Target and restarts discovery from scratch.
func (tl *TargetList) Clear() { tl.reset() }

// NewDummy constructs a TargetList that is already fully synced with
// zero discovered numbers. SyncData uses this when a notify event
// references a cue list that has no TargetList yet (§4.5), so the
// notify can seed placeholders without first running a count/index
// handshake the console never initiated.
func NewDummy(typ target.Type, listID int) *TargetList {
	tl := New(typ, listID)
	tl.internalStatus = target.Complete
	tl.initialSyncComplete = true
	tl.status.SetValue(target.Complete)
	return tl
}

// Numbers returns every console number currently tracked by this list,
// in no particular order. SyncData uses this to spawn one Cue
// TargetList per discovered cue-list number, and to prune orphans
// (§4.5).
func (tl *TargetList) Numbers() []decimal.Number {
	out := make([]decimal.Number, 0, len(tl.targets))
	for num := range tl.targets {
		out = append(out, num)
	}
	return out
}

func (tl *TargetList) Type() target.Type   { return tl.typ }
func (tl *TargetList) ListID() int         { return tl.listID }
func (tl *TargetList) Status() target.Status { return tl.status }
func (tl *TargetList) NumTargets() int     { return tl.numTargets }

// InitialSyncComplete reports whether this list's count-then-enumerate
// handshake has ever finished. SyncData uses this to fire its
// cue-list-completion hook only on the rising edge, not on every later
// tick the list happens to be Complete on (§4.5: "When a TargetList
// finishes its initial sync" — once, not on every re-completion after
// a live notify demotes and re-promotes status).
func (tl *TargetList) InitialSyncComplete() bool { return tl.initialSyncComplete }

// basePath renders the `<type>[/<listId>]` prefix shared by every
// inbound and outbound path this list cares about.
func (tl *TargetList) basePath() string {
	if tl.typ.IsCue() {
		return tl.typ.String() + "/" + strconv.Itoa(tl.listID)
	}
	return tl.typ.String()
}

// Tick drives discovery: an uninitialized list requests its target
// count; once the count reply has fanned out into per-number requests
// (handled in Recv) and internalStatus reaches Complete, a Running list
// requests info for any placeholder number a notify has left unfetched,
// then promotes to Complete once every owned target is itself Complete.
// send mirrors EosOsc::Send: it returns whether the message was
// accepted onto the wire, and a placeholder is only marked fetched once
// that send actually succeeds.
func (tl *TargetList) Tick(send func(path string) bool) {
	switch tl.internalStatus {
	case target.Uninitialized:
		path := "/eos/get/" + tl.basePath() + "/count"
		if send(path) {
			tl.internalStatus = target.Running
		}

	case target.Complete:
		if tl.status.Value != target.Running {
			return
		}

		allComplete := true
		for num, e := range tl.targets {
			switch {
			case !e.initialized:
				numStr := decimal.Format(num)
				if numStr != "" {
					path := "/eos/get/" + tl.basePath() + "/" + numStr
					if send(path) {
						e.initialized = true
					}
				}
				allComplete = false
			case len(e.parts) == 0:
				allComplete = false
			default:
				for _, tg := range e.parts {
					if tg.Status().Value != target.Complete {
						allComplete = false
					}
				}
			}
		}

		if allComplete {
			if tl.initialSyncComplete {
				tl.status.SetValue(target.Complete)
			} else if uint32(tl.numTargets) >= tl.initialSyncCount {
				tl.initialSyncComplete = true
				tl.status.SetValue(target.Complete)
			}
		}
	}
}

// Recv dispatches one inbound reply. msg.Path must already be known to
// belong to this list (the caller routes by the `<type>[/listId]`
// prefix); send is used only while internalStatus is Running, to fan
// the count reply out into per-number index requests.
func (tl *TargetList) Recv(log *elog.Log, send func(path string) bool, msg oscwire.Message) {
	switch tl.internalStatus {
	case target.Running:
		countPath := "/eos/out/get/" + tl.basePath() + "/count"
		if msg.Path != countPath {
			log.Errorf("ignored reply %q, unhandled command", msg.Path)
			return
		}

		var count uint32
		if len(msg.Args) == 0 || !asUint(msg.Args[0], &count) {
			log.Errorf("ignored reply %q, missing argument", msg.Path)
			count = 0
		}
		tl.initialSyncCount = count

		indexPrefix := "/eos/get/" + tl.basePath() + "/index/"
		for i := uint32(0); i < count; i++ {
			path := indexPrefix + strconv.FormatUint(uint64(i), 10)
			if !send(path) {
				log.Errorf("failed to send command %q", path)
			}
		}

		tl.status.SetValue(target.Running)
		tl.internalStatus = target.Complete

	case target.Complete:
		prefix := "/eos/out/get/" + tl.basePath() + "/"
		if len(msg.Path) <= len(prefix) || msg.Path[:len(prefix)] != prefix {
			log.Errorf("ignored reply %q, unexpected format", msg.Path)
			return
		}

		pd, ok := pathutil.ExtractPathData(msg.Path, len(prefix))
		if !ok {
			log.Errorf("ignored reply %q, could not extract target", msg.Path)
			return
		}
		if !pd.Key.Valid() {
			log.Errorf("ignored reply %q, invalid target", msg.Path)
			return
		}
		tl.processReceivedTarget(log, msg, pd)

	default:
		log.Infof("ignored unsolicited reply %q", msg.Path)
	}
}

func asUint(a oscwire.Arg, out *uint32) bool {
	if !a.IsNumeric() {
		return false
	}
	if a.Type == oscwire.TypeInt32 {
		if a.I < 0 {
			return false
		}
		*out = uint32(a.I)
		return true
	}
	if a.F < 0 {
		return false
	}
	*out = uint32(a.F)
	return true
}

// processReceivedTarget applies the per-type part contract (§4.3) and
// then either deletes, or finds-or-creates and forwards to, the
// addressed Target.
func (tl *TargetList) processReceivedTarget(log *elog.Log, msg oscwire.Message, pd pathutil.PathData) {
	part, ok, warned := target.CoercePart(tl.typ, pd.Key.Part)
	if !ok {
		log.Errorf("invalid part number specified %q", msg.Path)
		return
	}
	if warned {
		log.Warningf("invalid part number specified %q", msg.Path)
	}
	pd.Key.Part = part

	baseTargetInfo := pd.Group == ""

	var uid string
	if baseTargetInfo && len(msg.Args) > 1 {
		uid = msg.Args[1].AsString()
	}

	if baseTargetInfo && uid == "" {
		tl.deleteTarget(pd.Key.Num, part)
		return
	}

	e, ok := tl.targets[pd.Key.Num]
	if !ok {
		e = &entry{initialized: true, parts: map[int32]*target.Target{}}
		tl.targets[pd.Key.Num] = e
	} else {
		e.initialized = true
	}

	tg, existed := e.parts[part]
	added := false
	if !existed {
		tg = target.New(tl.typ)
		e.parts[part] = tg
		added = true
	}

	if added {
		tl.numTargets++
		if uid == "" {
			log.Errorf("target reply missing UID %q", msg.Path)
		} else {
			tl.uidIndex[uid] = tg
		}
		tl.status.SetDirty()
	}

	tg.Recv(log, pd, msg.Args)
	tl.status.UpdateFromChild(tg.Status())
	dbg.Assertf(tl.numTargets == tl.countParts(), "%s: numTargets %d != counted %d", tl, tl.numTargets, tl.countParts())
}

// countParts sums |parts| across every tracked number (§3 invariant:
// "numTargets = Σ |parts.parts| over all entries in targets"), checked
// only in debug builds via internal/dbg.
func (tl *TargetList) countParts() int {
	n := 0
	for _, e := range tl.targets {
		n += len(e.parts)
	}
	return n
}

func (tl *TargetList) deleteTarget(num decimal.Number, part int32) {
	e, ok := tl.targets[num]
	if !ok {
		return
	}
	if tg, ok := e.parts[part]; ok {
		tl.removeFromUIDIndex(tg)
		delete(e.parts, part)
		tl.numTargets--
		tl.status.SetDirty()
	}
	if len(e.parts) == 0 {
		delete(tl.targets, num)
	}
	dbg.Assertf(tl.numTargets == tl.countParts(), "%s: numTargets %d != counted %d", tl, tl.numTargets, tl.countParts())
}

func (tl *TargetList) removeFromUIDIndex(tg *target.Target) {
	for uid, v := range tl.uidIndex {
		if v == tg {
			delete(tl.uidIndex, uid)
		}
	}
}

// Notify applies a console change notification. args is everything
// after the leading sequence-number argument is stripped by the caller
// is NOT assumed here: per the wire format args[0] is that sequence
// number, so Notify itself skips it.
func (tl *TargetList) Notify(log *elog.Log, path string, args []oscwire.Arg) {
	if !tl.initialSyncComplete {
		log.Infof("notified during initial sync %q, restarting", path)
		tl.reset()
		return
	}

	if len(args) <= 1 {
		tl.reset()
		return
	}

	nums, ok := notifyTargetNumbers(args[1:])
	if !ok {
		log.Errorf("invalid arguments in notify %q", path)
		return
	}

	for _, num := range nums {
		e, ok := tl.targets[num]
		if !ok {
			tl.targets[num] = &entry{parts: map[int32]*target.Target{}}
		} else {
			for _, tg := range e.parts {
				tl.removeFromUIDIndex(tg)
				tl.numTargets--
			}
			e.parts = map[int32]*target.Target{}
			e.initialized = false
		}
		tl.status.SetValue(target.Running)
	}
}

// notifyTargetNumbers expands a notify's argument list into the
// distinct console numbers it addresses: each numeric argument, and
// each string argument that parses as a number, names one number
// directly; any other string argument must be an "A-B" integer range.
// Any argument that is none of these makes the whole notify invalid,
// in which case the caller must apply none of it.
func notifyTargetNumbers(args []oscwire.Arg) ([]decimal.Number, bool) {
	seen := map[decimal.Number]bool{}
	var out []decimal.Number
	add := func(n decimal.Number) {
		if !seen[n] {
			seen[n] = true
			out = append(out, n)
		}
	}

	for _, a := range args {
		if a.IsNumeric() {
			if n, ok := decimal.Parse(a.AsString()); ok {
				add(n)
			}
			continue
		}
		if n, ok := decimal.Parse(a.AsString()); ok {
			add(n)
			continue
		}

		start, end, ok := parseIntRange(a.AsString())
		if !ok {
			return nil, false
		}
		for v := start; v <= end; v++ {
			add(decimal.Number{Whole: int32(v)})
		}
	}
	return out, true
}

// parseIntRange parses "A-B" where A and B are plain (non-decimal)
// integers and A<=B. The dash must be interior: not the first or last
// character, matching the console protocol's range-notify grammar.
func parseIntRange(s string) (start, end int, ok bool) {
	if len(s) <= 2 {
		return 0, 0, false
	}
	dash := -1
	for i := 1; i < len(s)-1; i++ {
		if s[i] == '-' {
			dash = i
			break
		}
	}
	if dash < 0 {
		return 0, 0, false
	}
	a, err := strconv.Atoi(s[:dash])
	if err != nil {
		return 0, 0, false
	}
	b, err := strconv.Atoi(s[dash+1:])
	if err != nil {
		return 0, 0, false
	}
	if a > b {
		return 0, 0, false
	}
	return a, b, true
}

// ClearDirty clears the list's own dirty bit and every owned target's,
// but only when the list's bit is actually set, mirroring the original
// implementation's short-circuit.
func (tl *TargetList) ClearDirty() {
	if !tl.status.Dirty {
		return
	}
	for _, e := range tl.targets {
		for _, tg := range e.parts {
			tg.ClearDirty()
		}
	}
	tl.status.ClearDirty()
}

// String renders a short diagnostic identity, e.g. "cue/3" or "patch".
func (tl *TargetList) String() string {
	if tl.typ.IsCue() {
		return fmt.Sprintf("%s/%d", tl.typ, tl.listID)
	}
	return tl.typ.String()
}
