package chansel

import (
	"sync"
	"sync/atomic"
	"testing"
	"time"

	"golang.org/x/sync/errgroup"
)

func TestStress_manyProducersManyConsumers(t *testing.T) {
	const (
		producers   = 4
		consumers   = 4
		perProducer = 500
	)

	c := Make[int](8)

	var send errgroup.Group
	for p := 0; p < producers; p++ {
		p := p
		send.Go(func() error {
			for i := 0; i < perProducer; i++ {
				c.Send(p*perProducer + i)
			}
			return nil
		})
	}

	var (
		recv  errgroup.Group
		total atomic.Int64
		sum   atomic.Int64
	)
	for i := 0; i < consumers; i++ {
		recv.Go(func() error {
			for {
				v, ok := c.Recv()
				if !ok {
					return nil
				}
				total.Add(1)
				sum.Add(int64(v))
			}
		})
	}

	if err := send.Wait(); err != nil {
		t.Fatal(err)
	}
	c.Close()
	if err := recv.Wait(); err != nil {
		t.Fatal(err)
	}

	const n = producers * perProducer
	if total.Load() != n {
		t.Fatalf(`expected %d values, got %d`, n, total.Load())
	}
	if want := int64(n) * (n - 1) / 2; sum.Load() != want {
		t.Fatalf(`expected sum %d, got %d`, want, sum.Load())
	}
}

func TestStress_singleProducerOrderPreserved(t *testing.T) {
	const n = 2000

	c := Make[int](4)

	var g errgroup.Group
	g.Go(func() error {
		for i := 0; i < n; i++ {
			c.Send(i)
		}
		c.Close()
		return nil
	})

	// a single producer paired with a single consumer must observe strict
	// FIFO order, parked-sender rotation included
	for want := 0; ; want++ {
		v, ok := c.Recv()
		if !ok {
			if want != n {
				t.Fatalf(`expected %d values, got %d`, n, want)
			}
			break
		}
		if v != want {
			t.Fatalf(`expected %d, got %d`, want, v)
		}
	}

	if err := g.Wait(); err != nil {
		t.Fatal(err)
	}
}

func TestStress_selectOverTwoChannels(t *testing.T) {
	const perChannel = 1000

	c1 := Make[int](4)
	c2 := Make[int](4)

	var send errgroup.Group
	send.Go(func() error {
		for i := 0; i < perChannel; i++ {
			c1.Send(1)
		}
		c1.Close()
		return nil
	})
	send.Go(func() error {
		for i := 0; i < perChannel; i++ {
			c2.Send(2)
		}
		c2.Close()
		return nil
	})

	var (
		recv errgroup.Group
		got1 atomic.Int64
		got2 atomic.Int64
	)
	for i := 0; i < 3; i++ {
		recv.Go(func() error {
			open1, open2 := true, true
			for open1 && open2 {
				Select(
					RecvCase(c1, func(value int, ok bool) struct{} {
						if !ok {
							open1 = false
						} else {
							got1.Add(1)
						}
						return struct{}{}
					}),
					RecvCase(c2, func(value int, ok bool) struct{} {
						if !ok {
							open2 = false
						} else {
							got2.Add(1)
						}
						return struct{}{}
					}),
				)
			}
			// one channel closed: drain the other without spinning on the
			// closed case
			c := c1
			n := &got1
			if !open1 {
				c = c2
				n = &got2
			}
			for {
				_, ok := c.Recv()
				if !ok {
					return nil
				}
				n.Add(1)
			}
		})
	}

	if err := send.Wait(); err != nil {
		t.Fatal(err)
	}
	if err := recv.Wait(); err != nil {
		t.Fatal(err)
	}

	// closed results race between consumers, so only totals are stable
	if got1.Load() != perChannel || got2.Load() != perChannel {
		t.Fatalf(`expected %d values per channel, got %d and %d`, perChannel, got1.Load(), got2.Load())
	}
}

func TestStress_closeWakesAllParkedReceivers(t *testing.T) {
	const blocked = 20

	c := Make[int](0)

	var (
		wg     sync.WaitGroup
		closed atomic.Int64
	)
	for i := 0; i < blocked; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			if _, ok := c.Recv(); !ok {
				closed.Add(1)
			}
		}()
	}

	awaitParked(t, &c.recvq, blocked)
	c.Close()
	wg.Wait()

	if closed.Load() != blocked {
		t.Fatalf(`expected %d closed results, got %d`, blocked, closed.Load())
	}
}

func TestStress_trySendTryRecvChurn(t *testing.T) {
	c := Make[int](2)

	deadline := time.Now().Add(100 * time.Millisecond)

	var g errgroup.Group
	g.Go(func() error {
		for time.Now().Before(deadline) {
			c.TrySend(1)
		}
		return nil
	})
	g.Go(func() error {
		for time.Now().Before(deadline) {
			c.TryRecv()
		}
		return nil
	})

	if err := g.Wait(); err != nil {
		t.Fatal(err)
	}

	if n := c.Len(); n < 0 || n > c.Cap() {
		t.Fatalf(`invariant violated: qcount %d outside [0, %d]`, n, c.Cap())
	}
}
