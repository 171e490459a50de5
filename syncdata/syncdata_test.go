package syncdata_test

import (
	"github.com/etclabs/eossync/elog"
	"github.com/etclabs/eossync/oscwire"
	"github.com/etclabs/eossync/syncdata"
	"github.com/etclabs/eossync/target"

	. "github.com/onsi/ginkgo"
	. "github.com/onsi/gomega"
)

// alwaysSend returns a send func that records every path and always
// reports success, plus the slice it appends to.
func alwaysSend() (func(string) bool, *[]string) {
	sent := &[]string{}
	return func(path string) bool {
		*sent = append(*sent, path)
		return true
	}, sent
}

var _ = Describe("SyncData", func() {
	var log *elog.Log

	BeforeEach(func() {
		log = elog.NewLog(0)
	})

	It("initializes one TargetList per non-cue type on the first tick", func() {
		sd := syncdata.New()
		send, sent := alwaysSend()
		sd.Tick(log, send, nil)

		Expect(sd.Status().Value).To(Equal(target.Running))
		Expect(*sent).To(ContainElement("/eos/get/group/count"))
		Expect(*sent).To(ContainElement("/eos/get/patch/count"))
		Expect(*sent).NotTo(ContainElement("/eos/get/cue/count"))
	})

	It("cold-syncs a type with zero targets to Complete", func() {
		sd := syncdata.New()
		send, _ := alwaysSend()

		sd.Tick(log, send, nil) // installs + requests count

		sd.Tick(log, send, []oscwire.Message{{
			Path: "/eos/out/get/group/count",
			Args: []oscwire.Arg{oscwire.Int32Arg(0)},
		}})
		sd.Tick(log, send, nil) // promotes internalStatus -> status Complete

		tl := sd.TargetList(target.Group, 0)
		Expect(tl.Status().Value).To(Equal(target.Complete))
		Expect(tl.NumTargets()).To(Equal(0))
	})

	It("discovers a single target and resolves it by UID", func() {
		sd := syncdata.New()
		send, _ := alwaysSend()

		sd.Tick(log, send, nil)
		sd.Tick(log, send, []oscwire.Message{{
			Path: "/eos/out/get/group/count",
			Args: []oscwire.Arg{oscwire.Int32Arg(1)},
		}})
		sd.Tick(log, send, []oscwire.Message{
			{
				Path: "/eos/out/get/group/1",
				Args: []oscwire.Arg{oscwire.Int32Arg(1), oscwire.StringArg("abc"), oscwire.StringArg("cyc")},
			},
			{
				Path: "/eos/out/get/group/1/channels",
				Args: []oscwire.Arg{},
			},
		})
		sd.Tick(log, send, nil) // target + list both settle to Complete

		tl := sd.TargetList(target.Group, 0)
		Expect(tl.NumTargets()).To(Equal(1))
		Expect(tl.Status().Value).To(Equal(target.Complete))
	})

	It("spawns a Cue TargetList once CueList discovery completes", func() {
		sd := syncdata.New()
		send, sent := alwaysSend()

		sd.Tick(log, send, nil)
		sd.Tick(log, send, []oscwire.Message{{
			Path: "/eos/out/get/cuelist/count",
			Args: []oscwire.Arg{oscwire.Int32Arg(1)},
		}})
		*sent = nil
		sd.Tick(log, send, []oscwire.Message{
			{
				Path: "/eos/out/get/cuelist/5",
				Args: []oscwire.Arg{oscwire.Int32Arg(5), oscwire.StringArg("uid-cl5")},
			},
			{
				Path: "/eos/out/get/cuelist/5/links",
				Args: []oscwire.Arg{},
			},
		})
		sd.Tick(log, send, nil) // cuelist target + list settle to Complete, hook fires
		sd.Tick(log, send, nil) // the new Cue TargetList gets its first tick

		Expect(sd.CueListIDs()).To(ConsistOf(5))
		Expect(*sent).To(ContainElement("/eos/get/cue/5/count"))
	})

	It("preserves already-synced cue lists when a live cuelist notify re-completes discovery", func() {
		sd := syncdata.New()
		send, sent := alwaysSend()

		sd.Tick(log, send, nil)
		sd.Tick(log, send, []oscwire.Message{{
			Path: "/eos/out/get/cuelist/count",
			Args: []oscwire.Arg{oscwire.Int32Arg(1)},
		}})
		sd.Tick(log, send, []oscwire.Message{
			{
				Path: "/eos/out/get/cuelist/5",
				Args: []oscwire.Arg{oscwire.Int32Arg(5), oscwire.StringArg("uid-cl5")},
			},
			{
				Path: "/eos/out/get/cuelist/5/links",
				Args: []oscwire.Arg{},
			},
		})
		sd.Tick(log, send, nil) // cuelist settles Complete, spawns Cue[5]
		sd.Tick(log, send, nil) // Cue[5] gets its first tick (count request)
		Expect(sd.CueListIDs()).To(ConsistOf(5))

		// sync Cue[5] to a single real target so it's no longer empty
		sd.Tick(log, send, []oscwire.Message{{
			Path: "/eos/out/get/cue/5/count",
			Args: []oscwire.Arg{oscwire.Int32Arg(1)},
		}})
		sd.Tick(log, send, []oscwire.Message{
			{
				Path: "/eos/out/get/cue/5/1",
				Args: []oscwire.Arg{oscwire.Int32Arg(1), oscwire.StringArg("uid-cue1")},
			},
			{
				Path: "/eos/out/get/cue/5/1/fx",
				Args: []oscwire.Arg{},
			},
		})
		sd.Tick(log, send, nil) // cue target + Cue[5] list settle to Complete

		cue5 := sd.TargetList(target.Cue, 5)
		Expect(cue5.Status().Value).To(Equal(target.Complete))
		Expect(cue5.NumTargets()).To(Equal(1))

		// a live cue list add arrives for cue list 6: this demotes
		// CueList back to Running, and must not wipe Cue[5] when
		// CueList re-completes.
		sd.Tick(log, send, []oscwire.Message{{
			Path: "/eos/out/notify/cuelist",
			Args: []oscwire.Arg{oscwire.Int32Arg(99), oscwire.Int32Arg(6)},
		}})
		Expect(sd.TargetList(target.CueList, 0).Status().Value).To(Equal(target.Running))

		*sent = nil
		sd.Tick(log, send, nil) // CueList re-requests info for placeholder 6
		sd.Tick(log, send, []oscwire.Message{
			{
				Path: "/eos/out/get/cuelist/6",
				Args: []oscwire.Arg{oscwire.Int32Arg(6), oscwire.StringArg("uid-cl6")},
			},
			{
				Path: "/eos/out/get/cuelist/6/links",
				Args: []oscwire.Arg{},
			},
		})
		sd.Tick(log, send, nil) // cuelist re-completes; hook must not wipe Cue[5]

		Expect(sd.CueListIDs()).To(ConsistOf(5, 6))
		cue5Again := sd.TargetList(target.Cue, 5)
		Expect(cue5Again).To(BeIdenticalTo(cue5))
		Expect(cue5Again.Status().Value).To(Equal(target.Complete))
		Expect(cue5Again.NumTargets()).To(Equal(1))
	})

	It("seeds a placeholder via a live add notify and re-requests it", func() {
		sd := syncdata.New()
		send, sent := alwaysSend()

		sd.Tick(log, send, nil)
		sd.Tick(log, send, []oscwire.Message{{
			Path: "/eos/out/get/group/count",
			Args: []oscwire.Arg{oscwire.Int32Arg(0)},
		}})
		sd.Tick(log, send, nil)
		Expect(sd.TargetList(target.Group, 0).Status().Value).To(Equal(target.Complete))

		sd.Tick(log, send, []oscwire.Message{{
			Path: "/eos/out/notify/group",
			Args: []oscwire.Arg{oscwire.Int32Arg(42), oscwire.StringArg("7")},
		}})
		Expect(sd.TargetList(target.Group, 0).Status().Value).To(Equal(target.Running))

		*sent = nil
		sd.Tick(log, send, nil)
		Expect(*sent).To(ContainElement("/eos/get/group/7"))
	})

	It("resets to Uninitialized on show/cleared", func() {
		sd := syncdata.New()
		send, _ := alwaysSend()
		sd.Tick(log, send, nil)
		Expect(sd.Status().Value).To(Equal(target.Running))

		sd.Tick(log, send, []oscwire.Message{{Path: "/eos/out/event/show/cleared"}})
		Expect(sd.Status().Value).To(Equal(target.Uninitialized))
	})

	It("never returns nil from TargetList, even for an unknown list", func() {
		sd := syncdata.New()
		tl := sd.TargetList(target.Cue, 999)
		Expect(tl).NotTo(BeNil())
		Expect(tl.Status().Value).To(Equal(target.Uninitialized))
	})

	It("logs a warning for an unrecognized command", func() {
		sd := syncdata.New()
		send, _ := alwaysSend()
		sd.Tick(log, send, nil)

		sd.Route(log, send, oscwire.Message{Path: "/eos/out/bogus"})
		recs := log.Drain()
		found := false
		for _, r := range recs {
			if r.Kind == elog.Warning {
				found = true
			}
		}
		Expect(found).To(BeTrue())
	})
})
