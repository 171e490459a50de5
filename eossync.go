// Package eossync is the library's root: Facade owns the transport,
// the OSC codec, the log, and the SyncData mirror, and exposes the
// single periodic Tick a host program drives (§4.6).
/*
 * Copyright (c) 2024, Electronic Theatre Controls, Inc.
 */
package eossync

import (
	"strings"

	"github.com/google/uuid"
	"github.com/pkg/errors"

	"github.com/etclabs/eossync/config"
	"github.com/etclabs/eossync/elog"
	"github.com/etclabs/eossync/oscwire"
	"github.com/etclabs/eossync/syncdata"
	"github.com/etclabs/eossync/syncstats"
	"github.com/etclabs/eossync/target"
	"github.com/etclabs/eossync/targetlist"
	"github.com/etclabs/eossync/transport"
)

const subscribePath = "/eos/subscribe"

// Facade is the library's only required entry point: a host program
// constructs one, calls Initialize once, Tick on whatever cadence it
// likes, and Shutdown when done (§4.6, §5).
type Facade struct {
	cfg   config.Config
	conn  *transport.Conn
	log   *elog.Log
	data  *syncdata.SyncData
	stats *syncstats.Stats

	sessionID      string
	subscribedOnce bool
	everConnected  bool
}

// New constructs an idle Facade. stats may be nil to disable metrics.
func New(cfg config.Config, stats *syncstats.Stats) *Facade {
	return &Facade{
		cfg:   cfg,
		conn:  transport.New(),
		log:   elog.NewLog(cfg.LogCapacity),
		data:  syncdata.New(),
		stats: stats,
	}
}

// Initialize opens a non-blocking connect to host:port and stamps a
// fresh session id used to correlate this session's log records. If
// the transport has Connected at any point in this Facade's lifetime,
// this re-entry into Connecting counts as a reconnect, whether the
// prior connection is still up or was already torn down by a
// transport failure.
func (f *Facade) Initialize(host string, port uint16) bool {
	if f.stats != nil && f.everConnected {
		f.stats.Reconnected()
	}
	f.cfg.Host, f.cfg.Port = host, port
	f.sessionID = uuid.NewString()
	f.subscribedOnce = false
	f.conn.Connect(f.cfg.Addr())
	f.logf(elog.Info, "initializing connection to %s", f.cfg.Addr())
	return true
}

// Shutdown sends /eos/subscribe false immediately, clears the mirror,
// and closes the socket (§4.6). It is safe to call on an already-idle
// Facade.
func (f *Facade) Shutdown() {
	if f.conn.State() == transport.Connected {
		pkt := oscwire.NewMessage(subscribePath, oscwire.BoolArg(false))
		if !f.conn.Send(pkt, true) {
			f.logf(elog.Error, "failed to send shutdown unsubscribe")
		}
	}
	f.data.Clear()
	f.conn.Close()
	f.logf(elog.Info, "shutdown complete")
}

// IsConnected reports whether the transport currently has a live
// socket (§6).
func (f *Facade) IsConnected() bool { return f.conn.State() == transport.Connected }

// IsRunning reports whether the sync mirror has begun discovery (i.e.
// is not sitting Uninitialized).
func (f *Facade) IsRunning() bool { return f.data.Status().Value != target.Uninitialized }

// IsSynchronized reports whether every target type has finished its
// initial sync (§6).
func (f *Facade) IsSynchronized() bool { return f.data.Status().Value == target.Complete }

// IsConnectedAndSynchronized is the common "safe to read the mirror"
// gate used by a tick-loop host (original_source/main.cpp), restored
// from the pre-distillation API per SPEC_FULL.md.
func (f *Facade) IsConnectedAndSynchronized() bool {
	return f.IsConnected() && f.IsSynchronized()
}

// Send queues or immediately sends a raw OSC packet (§4.1). It is
// exposed for callers that need to issue console-safe commands beyond
// the discovery traffic this library generates on its own; the spec's
// Non-goal ("library does not mutate the console") is the caller's
// responsibility to respect, not this method's.
func (f *Facade) Send(packet []byte, immediate bool) bool {
	if f.conn.State() != transport.Connected {
		return false
	}
	return f.conn.Send(packet, immediate)
}

// Tick advances the socket, subscribes on the connecting-to-connected
// edge, drives SyncData's discovery/routing tick, and flushes at most
// one queued outbound packet (§4.6).
func (f *Facade) Tick() {
	if f.stats != nil {
		f.stats.Tick()
	}

	if justConnected := f.conn.Poll(); justConnected {
		f.everConnected = true
		if !f.subscribedOnce {
			pkt := oscwire.NewMessage(subscribePath, oscwire.BoolArg(true))
			f.conn.Send(pkt, false)
			f.subscribedOnce = true
			f.logf(elog.Info, "connected, queued subscribe")
		}
	}

	inbound := f.recvAll()
	beforeTargets := f.totalTargets()

	send := func(path string) bool {
		ok := f.conn.Send(oscwire.NewMessage(path), false)
		if ok {
			f.logf(elog.Send, "%s", path)
		}
		return ok
	}
	f.data.Tick(f.log, send, inbound)

	if f.stats != nil {
		f.stats.SetStatus(int(f.data.Status().Value))
		if after := f.totalTargets(); after > beforeTargets {
			for i := 0; i < after-beforeTargets; i++ {
				f.stats.TargetAdded()
			}
		}
		for _, msg := range inbound {
			if strings.HasPrefix(msg.Path, "/eos/out/notify/") {
				f.stats.NotifyApplied()
			}
		}
	}

	f.conn.DrainOne()
}

// recvAll drains the transport's bounded-wait recv into parsed OSC
// messages for this tick, logging (and dropping) any packet that
// fails to parse (§7: protocol anomalies never propagate
// synchronously).
func (f *Facade) recvAll() []oscwire.Message {
	packets, err := f.conn.Recv(f.cfg.RecvTimeout)
	if err != nil {
		f.logf(elog.Error, "recv: %s", errors.Cause(err))
		return nil
	}
	msgs := make([]oscwire.Message, 0, len(packets))
	for _, p := range packets {
		msg, err := oscwire.Parse(p)
		if err != nil {
			f.logf(elog.Error, "malformed packet: %s", err)
			continue
		}
		f.logf(elog.Recv, "%s", msg.Path)
		msgs = append(msgs, msg)
	}
	return msgs
}

func (f *Facade) totalTargets() int {
	total := 0
	for _, typ := range target.Types() {
		if typ == target.Cue {
			for _, id := range f.data.CueListIDs() {
				total += f.data.TargetList(typ, id).NumTargets()
			}
			continue
		}
		total += f.data.TargetList(typ, 0).NumTargets()
	}
	return total
}

// ClearDirty clears the aggregate dirty bit and every owned
// TargetList's, so a caller's "what changed this tick" check can be
// re-armed (§6).
func (f *Facade) ClearDirty() { f.data.ClearDirty() }

// GetData returns the live SyncData mirror.
func (f *Facade) GetData() *syncdata.SyncData { return f.data }

// GetLog returns the facade's log; callers drain it once per tick (§6).
func (f *Facade) GetLog() *elog.Log { return f.log }

// GetPatch returns the Patch TargetList.
func (f *Facade) GetPatch() *targetlist.TargetList { return f.data.TargetList(target.Patch, 0) }

// GetCueList returns the CueList TargetList (the index of cue lists,
// not any individual cue list's cues).
func (f *Facade) GetCueList() *targetlist.TargetList { return f.data.TargetList(target.CueList, 0) }

// GetCue returns the Cue TargetList for the given cue list id.
func (f *Facade) GetCue(listID int) *targetlist.TargetList {
	return f.data.TargetList(target.Cue, listID)
}

// GetGroups returns the Group TargetList.
func (f *Facade) GetGroups() *targetlist.TargetList { return f.data.TargetList(target.Group, 0) }

// GetMacros returns the Macro TargetList.
func (f *Facade) GetMacros() *targetlist.TargetList { return f.data.TargetList(target.Macro, 0) }

// GetSubs returns the Sub (submaster) TargetList.
func (f *Facade) GetSubs() *targetlist.TargetList { return f.data.TargetList(target.Sub, 0) }

// GetPresets returns the Preset TargetList.
func (f *Facade) GetPresets() *targetlist.TargetList { return f.data.TargetList(target.Preset, 0) }

// GetCurves returns the Curve TargetList.
func (f *Facade) GetCurves() *targetlist.TargetList { return f.data.TargetList(target.Curve, 0) }

// GetEffects returns the FX (effects) TargetList.
func (f *Facade) GetEffects() *targetlist.TargetList { return f.data.TargetList(target.FX, 0) }

// GetSnapshots returns the Snap (snapshot) TargetList.
func (f *Facade) GetSnapshots() *targetlist.TargetList { return f.data.TargetList(target.Snap, 0) }

// GetPixelMaps returns the Pixmap TargetList.
func (f *Facade) GetPixelMaps() *targetlist.TargetList { return f.data.TargetList(target.Pixmap, 0) }

// GetMagicSheets returns the MS (magic sheet) TargetList.
func (f *Facade) GetMagicSheets() *targetlist.TargetList { return f.data.TargetList(target.MS, 0) }

// GetPalette returns the palette TargetList named by kind (IP, FP, CP,
// or BP — intensity/focus/color/beam palettes share one accessor since
// they differ only in which of the four fixed types they address).
func (f *Facade) GetPalette(kind target.Type) *targetlist.TargetList {
	return f.data.TargetList(kind, 0)
}

func (f *Facade) logf(kind elog.Kind, format string, args ...any) {
	prefixed := "[session=" + f.sessionID + "] " + format
	switch kind {
	case elog.Debug:
		f.log.Debugf(prefixed, args...)
	case elog.Info:
		f.log.Infof(prefixed, args...)
	case elog.Warning:
		f.log.Warningf(prefixed, args...)
	case elog.Error:
		f.log.Errorf(prefixed, args...)
	case elog.Recv:
		f.log.Recvf(prefixed, args...)
	case elog.Send:
		f.log.Sendf(prefixed, args...)
	}
}
