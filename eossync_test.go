package eossync_test

import (
	"encoding/binary"
	"net"
	"strconv"
	"strings"
	"time"

	"github.com/etclabs/eossync"
	"github.com/etclabs/eossync/config"
	"github.com/etclabs/eossync/oscwire"
	"github.com/etclabs/eossync/syncstats"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/testutil"

	. "github.com/onsi/ginkgo"
	. "github.com/onsi/gomega"
)

// fakeConsole accepts one connection and answers every "/eos/get/.../count"
// request with a count of zero, enough to drive a Facade all the way to
// IsConnectedAndSynchronized() without a real Eos console.
func fakeConsole() string {
	ln, err := net.Listen("tcp", "127.0.0.1:0")
	Expect(err).NotTo(HaveOccurred())
	go func() {
		conn, err := ln.Accept()
		ln.Close()
		if err != nil {
			return
		}
		defer conn.Close()
		var accum []byte
		buf := make([]byte, 4096)
		for {
			n, err := conn.Read(buf)
			if n > 0 {
				accum = append(accum, buf[:n]...)
			}
			if err != nil {
				return
			}
			for {
				if len(accum) < 4 {
					break
				}
				length := int(binary.BigEndian.Uint32(accum[:4]))
				if len(accum) < 4+length {
					break
				}
				packet := accum[4 : 4+length]
				accum = accum[4+length:]

				msg, perr := oscwire.Parse(packet)
				if perr == nil && strings.HasSuffix(msg.Path, "/count") && strings.HasPrefix(msg.Path, "/eos/get/") {
					replyPath := "/eos/out/get/" + strings.TrimPrefix(msg.Path, "/eos/get/")
					reply := oscwire.NewMessage(replyPath, oscwire.Int32Arg(0))
					var hdr [4]byte
					binary.BigEndian.PutUint32(hdr[:], uint32(len(reply)))
					conn.Write(hdr[:])
					conn.Write(reply)
				}
			}
		}
	}()
	return ln.Addr().String()
}

var _ = Describe("Facade", func() {
	It("cold-syncs to Complete against a zero-target fake console", func() {
		addr := fakeConsole()
		host, portStr, err := net.SplitHostPort(addr)
		Expect(err).NotTo(HaveOccurred())
		port, err := strconv.Atoi(portStr)
		Expect(err).NotTo(HaveOccurred())

		cfg := config.Default()
		f := eossync.New(cfg, nil)
		Expect(f.Initialize(host, uint16(port))).To(BeTrue())

		Eventually(func() bool {
			f.Tick()
			return f.IsConnectedAndSynchronized()
		}, 2*time.Second, 5*time.Millisecond).Should(BeTrue())

		Expect(f.GetGroups().NumTargets()).To(Equal(0))
		Expect(f.GetCue(0).Status().Value.String()).To(Equal("complete"))

		f.Shutdown()
		Expect(f.IsConnected()).To(BeFalse())
	})

	It("counts a reconnect only once the transport has connected before", func() {
		stats := syncstats.New(prometheus.NewRegistry())
		cfg := config.Default()
		f := eossync.New(cfg, stats)

		addr1 := fakeConsole()
		host, portStr, err := net.SplitHostPort(addr1)
		Expect(err).NotTo(HaveOccurred())
		port, err := strconv.Atoi(portStr)
		Expect(err).NotTo(HaveOccurred())

		// first-ever Initialize is never a reconnect.
		Expect(f.Initialize(host, uint16(port))).To(BeTrue())
		Expect(testutil.ToFloat64(stats.Reconnects)).To(Equal(0.0))

		Eventually(func() bool {
			f.Tick()
			return f.IsConnectedAndSynchronized()
		}, 2*time.Second, 5*time.Millisecond).Should(BeTrue())
		Expect(testutil.ToFloat64(stats.Reconnects)).To(Equal(0.0))

		f.Shutdown()

		addr2 := fakeConsole()
		host2, portStr2, err := net.SplitHostPort(addr2)
		Expect(err).NotTo(HaveOccurred())
		port2, err := strconv.Atoi(portStr2)
		Expect(err).NotTo(HaveOccurred())

		// re-initializing after a previously-completed connection is a
		// reconnect, even though Shutdown already tore the socket down.
		Expect(f.Initialize(host2, uint16(port2))).To(BeTrue())
		Expect(testutil.ToFloat64(stats.Reconnects)).To(Equal(1.0))
	})
})
