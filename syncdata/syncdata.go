// Package syncdata implements SyncData, the root of the sync tree: it
// owns one TargetList per target type (and, for cues, one per cue-list
// id), routes inbound OSC commands to the right one by path prefix,
// and reacts to the two global events that reset the whole mirror
// (§3, §4.5).
/*
 * Copyright (c) 2024, Electronic Theatre Controls, Inc.
 */
package syncdata

import (
	"strconv"
	"strings"

	"github.com/etclabs/eossync/elog"
	"github.com/etclabs/eossync/oscwire"
	"github.com/etclabs/eossync/target"
	"github.com/etclabs/eossync/targetlist"
)

const (
	getPrefix      = "/eos/out/get/"
	notifyPrefix   = "/eos/out/notify/"
	showLoadedPath = "/eos/out/event/show/loaded"
	showClearPath  = "/eos/out/event/show/cleared"
)

// SyncData owns every TargetList and aggregates their status into one
// three-valued, dirty-tracking status (§3).
type SyncData struct {
	status   target.Status
	showData map[target.Type]map[int]*targetlist.TargetList
}

// New returns an uninitialized SyncData; the first Tick call installs
// one TargetList per non-cue type.
func New() *SyncData { return &SyncData{} }

// Status reports the aggregate sync status.
func (sd *SyncData) Status() target.Status { return sd.status }

// initialize installs one empty TargetList per non-Cue type (§4.5).
// Cue TargetLists are spawned lazily, once the CueList type discovers
// which cue lists the console actually has.
func (sd *SyncData) initialize() {
	sd.showData = make(map[target.Type]map[int]*targetlist.TargetList, len(target.Types()))
	for _, typ := range target.Types() {
		if typ == target.Cue {
			sd.showData[typ] = map[int]*targetlist.TargetList{}
			continue
		}
		sd.showData[typ] = map[int]*targetlist.TargetList{0: targetlist.New(typ, 0)}
	}
	sd.status.SetValue(target.Running)
}

// Clear discards the entire mirror and returns to Uninitialized, for
// disconnect and for the show/loaded and show/cleared events (§4.5).
func (sd *SyncData) Clear() {
	sd.showData = nil
	sd.status = target.Status{}
}

// ClearDirty clears the aggregate dirty bit and every owned
// TargetList's, mirroring TargetList.ClearDirty's short-circuit.
func (sd *SyncData) ClearDirty() {
	if !sd.status.Dirty {
		return
	}
	for _, lists := range sd.showData {
		for _, tl := range lists {
			tl.ClearDirty()
		}
	}
	sd.status.ClearDirty()
}

// TargetList looks up the TargetList for typ/listID. It never returns
// nil: a miss returns a freshly constructed, empty TargetList of the
// requested shape so typed accessors built on top of this never need
// to nil-check (mirrors the original library's shared "invalid target
// list" sentinel, adapted to stay type-correct per lookup rather than
// one shared instance — see SPEC_FULL.md).
func (sd *SyncData) TargetList(typ target.Type, listID int) *targetlist.TargetList {
	if lists, ok := sd.showData[typ]; ok {
		if tl, ok := lists[listID]; ok {
			return tl
		}
	}
	return targetlist.New(typ, listID)
}

// CueListIDs returns every cue-list id currently tracked, in no
// particular order.
func (sd *SyncData) CueListIDs() []int {
	ids := make([]int, 0, len(sd.showData[target.Cue]))
	for id := range sd.showData[target.Cue] {
		ids = append(ids, id)
	}
	return ids
}

// Tick drives discovery for every child TargetList that is not yet
// Complete, reacts to a CueList finishing its initial sync by spawning
// the cue TargetLists it discovered, and then drains this tick's batch
// of inbound commands through the router (§4.5: "Always drain inbound
// commands at the end of tick").
func (sd *SyncData) Tick(log *elog.Log, send func(path string) bool, inbound []oscwire.Message) {
	switch sd.status.Value {
	case target.Uninitialized:
		sd.initialize()
		fallthrough

	case target.Running:
		for typ, lists := range sd.showData {
			for _, tl := range lists {
				if tl.Status().Value == target.Complete {
					continue
				}
				wasInitialSyncComplete := tl.InitialSyncComplete()
				tl.Tick(send)
				sd.status.UpdateFromChild(tl.Status())
				if typ == target.CueList && !wasInitialSyncComplete && tl.InitialSyncComplete() {
					sd.onCueListComplete(log, tl)
				}
			}
		}
		if sd.allComplete() {
			sd.status.SetValue(target.Complete)
		}
	}

	for _, msg := range inbound {
		sd.Route(log, send, msg)
	}
}

func (sd *SyncData) allComplete() bool {
	for _, lists := range sd.showData {
		for _, tl := range lists {
			if tl.Status().Value != target.Complete {
				return false
			}
		}
	}
	return true
}

// onCueListComplete implements the cue-list completion hook (§4.5).
// It fires once, on the rising edge of the CueList type's initial sync
// (never on a later re-completion after a live cue-list notify demotes
// and re-promotes status — see Tick), and allocates one Cue TargetList
// per discovered cue-list number that isn't already tracked, or a
// single dummy Cue[0] if the console has no cue lists at all (so the
// aggregate status can still reach Complete). Already-synced cue lists
// are left untouched; removeOrphanedCues is what prunes stale ones.
func (sd *SyncData) onCueListComplete(log *elog.Log, cueListTL *targetlist.TargetList) {
	cues := sd.showData[target.Cue]
	numbers := cueListTL.Numbers()
	added := 0
	if len(numbers) == 0 {
		if _, ok := cues[0]; !ok {
			cues[0] = targetlist.NewDummy(target.Cue, 0)
			added++
		}
	} else {
		for _, n := range numbers {
			listID := int(n.Whole)
			if _, ok := cues[listID]; ok {
				continue
			}
			cues[listID] = targetlist.New(target.Cue, listID)
			added++
		}
	}
	log.Infof("cue list discovery complete, %d cue list(s), %d new", len(cues), added)
}

// Route classifies one inbound command by path prefix and dispatches
// it (§4.5). It is exported so a caller can route a single pre-parsed
// command directly; Tick calls it once per command in the batch handed
// to it for this tick.
func (sd *SyncData) Route(log *elog.Log, send func(path string) bool, msg oscwire.Message) {
	switch {
	case msg.Path == showLoadedPath || msg.Path == showClearPath:
		sd.Clear()
	case strings.HasPrefix(msg.Path, getPrefix):
		sd.routeGet(log, send, msg)
	case strings.HasPrefix(msg.Path, notifyPrefix):
		sd.routeNotify(log, msg)
	default:
		log.Warningf("unrecognized command %q", msg.Path)
	}
}

func (sd *SyncData) routeGet(log *elog.Log, send func(path string) bool, msg oscwire.Message) {
	if sd.status.Value != target.Running {
		log.Infof("ignored get reply %q, not running", msg.Path)
		return
	}
	typ, listID, ok := classify(msg.Path, len(getPrefix))
	if !ok {
		log.Warningf("unrecognized get reply %q", msg.Path)
		return
	}
	lists, ok := sd.showData[typ]
	if !ok {
		log.Warningf("get reply %q for unknown type", msg.Path)
		return
	}
	tl, ok := lists[listID]
	if !ok {
		log.Warningf("get reply %q for unknown list %d", msg.Path, listID)
		return
	}
	tl.Recv(log, send, msg)
	if typ == target.CueList {
		sd.removeOrphanedCues(log)
	}
}

func (sd *SyncData) routeNotify(log *elog.Log, msg oscwire.Message) {
	if sd.status.Value == target.Uninitialized {
		log.Infof("ignored notify %q, not yet running", msg.Path)
		return
	}
	typ, listID, ok := classify(msg.Path, len(notifyPrefix))
	if !ok {
		log.Warningf("unrecognized notify %q", msg.Path)
		return
	}

	lists, ok := sd.showData[typ]
	if !ok {
		log.Warningf("notify %q for unknown type", msg.Path)
		return
	}
	tl, ok := lists[listID]
	if !ok {
		if typ != target.Cue {
			log.Warningf("notify %q for unknown list %d", msg.Path, listID)
			return
		}
		tl = targetlist.NewDummy(target.Cue, listID)
		lists[listID] = tl
	}

	tl.Notify(log, msg.Path, msg.Args)
	sd.status.UpdateFromChild(tl.Status())
}

// removeOrphanedCues prunes every Cue TargetList whose listId is no
// longer a whole-number key in CueList[0]'s targets; listId 0 (the
// dummy, no-cue-lists placeholder) is always preserved (§4.5, §8.5).
func (sd *SyncData) removeOrphanedCues(log *elog.Log) {
	cueListTL, ok := sd.showData[target.CueList][0]
	if !ok {
		return
	}
	valid := map[int]bool{0: true}
	for _, n := range cueListTL.Numbers() {
		valid[int(n.Whole)] = true
	}
	for listID := range sd.showData[target.Cue] {
		if !valid[listID] {
			delete(sd.showData[target.Cue], listID)
			log.Infof("pruned orphaned cue list %d", listID)
		}
	}
}

// classify splits path[offset:] into its leading `<type>[/<listId>]`
// segment. Only the Cue type carries a listId segment, and it must
// parse as a whole number ≥ 1 (§4.5).
func classify(path string, offset int) (typ target.Type, listID int, ok bool) {
	if offset > len(path) {
		return 0, 0, false
	}
	tail := path[offset:]
	parts := strings.SplitN(tail, "/", 3)
	if len(parts) == 0 || parts[0] == "" {
		return 0, 0, false
	}
	typ, ok = target.ParseType(parts[0])
	if !ok {
		return 0, 0, false
	}
	if typ != target.Cue {
		return typ, 0, true
	}
	if len(parts) < 2 {
		return 0, 0, false
	}
	n, err := strconv.Atoi(parts[1])
	if err != nil || n < 1 {
		return 0, 0, false
	}
	return typ, n, true
}
