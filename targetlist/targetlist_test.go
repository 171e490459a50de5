package targetlist_test

import (
	"github.com/etclabs/eossync/elog"
	"github.com/etclabs/eossync/oscwire"
	"github.com/etclabs/eossync/target"
	"github.com/etclabs/eossync/targetlist"

	. "github.com/onsi/ginkgo"
	. "github.com/onsi/gomega"
)

var _ = Describe("TargetList", func() {
	var log *elog.Log

	BeforeEach(func() {
		log = elog.NewLog(0)
	})

	Describe("initial discovery", func() {
		It("requests a count on the first tick", func() {
			tl := targetlist.New(target.Group, 0)
			var sent []string
			tl.Tick(func(path string) bool {
				sent = append(sent, path)
				return true
			})
			Expect(sent).To(Equal([]string{"/eos/get/group/count"}))
		})

		It("fans the count reply out into index requests", func() {
			tl := targetlist.New(target.Group, 0)
			tl.Tick(func(string) bool { return true })

			var sent []string
			tl.Recv(log, func(path string) bool {
				sent = append(sent, path)
				return true
			}, oscwire.Message{
				Path: "/eos/out/get/group/count",
				Args: []oscwire.Arg{oscwire.Int32Arg(2)},
			})

			Expect(sent).To(Equal([]string{
				"/eos/get/group/index/0",
				"/eos/get/group/index/1",
			}))
			Expect(tl.NumTargets()).To(Equal(0))
		})

		It("creates and tracks a target from an index reply, including a cue-list prefix", func() {
			tl := targetlist.New(target.Cue, 3)
			tl.Tick(func(string) bool { return true })
			tl.Recv(log, func(string) bool { return true }, oscwire.Message{
				Path: "/eos/out/get/cue/3/count",
				Args: []oscwire.Arg{oscwire.Int32Arg(1)},
			})

			tl.Recv(log, func(string) bool { return true }, oscwire.Message{
				Path: "/eos/out/get/cue/3/1",
				Args: []oscwire.Arg{oscwire.Int32Arg(1), oscwire.StringArg("uid-1")},
			})

			Expect(tl.NumTargets()).To(Equal(1))
			Expect(tl.Status().Dirty).To(BeTrue())
		})
	})

	Describe("processReceivedTarget part handling", func() {
		It("coerces a stray part to 0 for non-cue, non-patch types and still applies the reply", func() {
			tl := targetlist.New(target.Curve, 0)
			tl.Tick(func(string) bool { return true })
			tl.Recv(log, func(string) bool { return true }, oscwire.Message{
				Path: "/eos/out/get/curve/count",
				Args: []oscwire.Arg{oscwire.Int32Arg(1)},
			})

			tl.Recv(log, func(string) bool { return true }, oscwire.Message{
				Path: "/eos/out/get/curve/5/7",
				Args: []oscwire.Arg{oscwire.Int32Arg(5), oscwire.StringArg("uid-x")},
			})

			Expect(tl.NumTargets()).To(Equal(1))
			recs := log.Drain()
			foundWarn := false
			for _, r := range recs {
				if r.Kind == elog.Warning {
					foundWarn = true
				}
			}
			Expect(foundWarn).To(BeTrue())
		})

		It("rejects a negative cue part outright", func() {
			tl := targetlist.New(target.Cue, 0)
			tl.Tick(func(string) bool { return true })
			tl.Recv(log, func(string) bool { return true }, oscwire.Message{
				Path: "/eos/out/get/cue/0/count",
				Args: []oscwire.Arg{oscwire.Int32Arg(1)},
			})

			tl.Recv(log, func(string) bool { return true }, oscwire.Message{
				Path: "/eos/out/get/cue/0/5/-1",
				Args: []oscwire.Arg{oscwire.Int32Arg(5), oscwire.StringArg("uid-y")},
			})

			Expect(tl.NumTargets()).To(Equal(0))
		})
	})

	Describe("deletion", func() {
		It("removes a target when the base-info reply carries no UID", func() {
			tl := targetlist.New(target.Group, 0)
			tl.Tick(func(string) bool { return true })
			tl.Recv(log, func(string) bool { return true }, oscwire.Message{
				Path: "/eos/out/get/group/count",
				Args: []oscwire.Arg{oscwire.Int32Arg(1)},
			})
			tl.Recv(log, func(string) bool { return true }, oscwire.Message{
				Path: "/eos/out/get/group/4",
				Args: []oscwire.Arg{oscwire.Int32Arg(4), oscwire.StringArg("uid-z")},
			})
			Expect(tl.NumTargets()).To(Equal(1))

			tl.Recv(log, func(string) bool { return true }, oscwire.Message{
				Path: "/eos/out/get/group/4",
				Args: []oscwire.Arg{oscwire.Int32Arg(4)},
			})
			Expect(tl.NumTargets()).To(Equal(0))
		})
	})

	Describe("Notify", func() {
		It("restarts discovery unconditionally while initial sync is incomplete", func() {
			tl := targetlist.New(target.Group, 0)
			tl.Tick(func(string) bool { return true })

			tl.Notify(log, "/eos/out/notify/group", []oscwire.Arg{oscwire.Int32Arg(0), oscwire.Int32Arg(3)})

			recs := log.Drain()
			Expect(recs).To(HaveLen(1))
			Expect(recs[0].Kind).To(Equal(elog.Info))
		})

		It("clears the whole list when called with no target arguments", func() {
			tl := targetlist.New(target.Group, 0)
			markInitialSyncComplete(tl)

			tl.Notify(log, "/eos/out/notify/group", []oscwire.Arg{oscwire.Int32Arg(0)})
			Expect(tl.Status().Value).To(Equal(target.Uninitialized))
		})

		It("expands an integer range into placeholders and marks the list Running", func() {
			tl := targetlist.New(target.Group, 0)
			markInitialSyncComplete(tl)

			tl.Notify(log, "/eos/out/notify/group", []oscwire.Arg{
				oscwire.Int32Arg(0), oscwire.StringArg("2-4"),
			})
			Expect(tl.Status().Value).To(Equal(target.Running))
		})

		It("applies none of the notify when one argument is malformed", func() {
			tl := targetlist.New(target.Group, 0)
			markInitialSyncComplete(tl)

			tl.Notify(log, "/eos/out/notify/group", []oscwire.Arg{
				oscwire.Int32Arg(0), oscwire.StringArg("not-a-range"),
			})
			recs := log.Drain()
			Expect(recs).To(HaveLen(1))
			Expect(recs[0].Kind).To(Equal(elog.Error))
		})
	})
})

// markInitialSyncComplete drives a fresh TargetList through a zero-count
// discovery so initialSyncComplete becomes true without a full target
// population, for tests that only care about post-initial-sync Notify
// semantics.
func markInitialSyncComplete(tl *targetlist.TargetList) {
	tl.Tick(func(string) bool { return true })
	log := elog.NewLog(0)
	path := "/eos/out/get/" + tl.String() + "/count"
	tl.Recv(log, func(string) bool { return true }, oscwire.Message{
		Path: path,
		Args: []oscwire.Arg{oscwire.Int32Arg(0)},
	})
	tl.Tick(func(string) bool { return true })
}
