package mempool

import (
	"errors"
	"strings"
	"sync"
	"testing"

	"github.com/Klingon-tech/klingnet-ledger/pkg/block"
)

func tx(sender, recipient string, amount float64) block.Transaction {
	return block.Transaction{Sender: sender, Recipient: recipient, Amount: amount}
}

func TestPool_Add_PreservesOrder(t *testing.T) {
	p := New(0)
	for i, want := range []block.Transaction{tx("A", "B", 1), tx("B", "C", 2), tx("A", "B", 1)} {
		n, err := p.Add(want)
		if err != nil {
			t.Fatalf("Add: %v", err)
		}
		if n != i+1 {
			t.Fatalf("Add returned size %d, want %d", n, i+1)
		}
	}

	got := p.Snapshot()
	if len(got) != 3 {
		t.Fatalf("Snapshot len = %d, want 3", len(got))
	}
	if got[0] != tx("A", "B", 1) || got[1] != tx("B", "C", 2) || got[2] != tx("A", "B", 1) {
		t.Fatalf("Snapshot order = %+v", got)
	}
}

func TestPool_Snapshot_IsCopy(t *testing.T) {
	p := New(0)
	p.Add(tx("A", "B", 1))
	snap := p.Snapshot()
	snap[0].Amount = 100
	if p.Snapshot()[0].Amount != 1 {
		t.Fatal("Snapshot must not alias pool storage")
	}
}

func TestPool_Drain(t *testing.T) {
	p := New(0)
	p.Add(tx("A", "B", 1))
	p.Add(tx("B", "C", 2))

	drained := p.Drain()
	if len(drained) != 2 {
		t.Fatalf("Drain len = %d, want 2", len(drained))
	}
	if p.Count() != 0 {
		t.Fatalf("Count after Drain = %d, want 0", p.Count())
	}

	empty := p.Drain()
	if empty == nil || len(empty) != 0 {
		t.Fatalf("Drain on empty pool = %#v, want empty non-nil slice", empty)
	}
}

func TestPool_Add_PoolFull(t *testing.T) {
	p := New(2)
	p.Add(tx("A", "B", 1))
	p.Add(tx("A", "B", 2))
	if _, err := p.Add(tx("A", "B", 3)); !errors.Is(err, ErrPoolFull) {
		t.Fatalf("err = %v, want ErrPoolFull", err)
	}
	if p.Count() != 2 {
		t.Fatalf("Count = %d, want 2", p.Count())
	}
}

func TestPool_Push_IgnoresLimit(t *testing.T) {
	p := New(1)
	p.Push(tx("A", "B", 1))
	if n := p.Push(tx("A", "B", 2)); n != 2 {
		t.Fatalf("Push() size = %d, want 2", n)
	}
	if _, err := p.Add(tx("A", "B", 3)); !errors.Is(err, ErrPoolFull) {
		t.Fatalf("Add() over limit err = %v, want ErrPoolFull", err)
	}
}

func TestNew_NegativeMaxSize(t *testing.T) {
	p := New(-5)
	if p.MaxSize() != 0 {
		t.Fatalf("MaxSize = %d, want 0 (unlimited)", p.MaxSize())
	}
}

func TestPool_Get(t *testing.T) {
	p := New(0)
	want := tx("A", "B", 5)
	p.Add(tx("X", "Y", 1))
	p.Add(want)

	id, err := want.ID()
	if err != nil {
		t.Fatal(err)
	}
	got, ok := p.Get(id)
	if !ok || got != want {
		t.Fatalf("Get = %+v, %v", got, ok)
	}

	other, _ := tx("nobody", "none", 0).ID()
	if _, ok := p.Get(other); ok {
		t.Fatal("Get found a transaction that is not pending")
	}
}

func TestPool_ConcurrentAddAndDrain(t *testing.T) {
	p := New(0)
	const writers, perWriter = 8, 200

	var (
		wg      sync.WaitGroup
		mu      sync.Mutex
		drained int
	)
	for w := 0; w < writers; w++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			for i := 0; i < perWriter; i++ {
				p.Add(tx("A", "B", float64(i)))
				if i%50 == 0 {
					n := len(p.Drain())
					mu.Lock()
					drained += n
					mu.Unlock()
				}
			}
		}()
	}
	wg.Wait()
	drained += len(p.Drain())

	if drained != writers*perWriter {
		t.Fatalf("drained %d transactions, want %d (lost or duplicated)", drained, writers*perWriter)
	}
}

func TestPolicy_Check(t *testing.T) {
	pol := DefaultPolicy()
	if err := pol.Check(tx("A", "B", 5)); err != nil {
		t.Fatalf("valid tx: %v", err)
	}
	if err := pol.Check(tx("", "B", 5)); !errors.Is(err, block.ErrInvalidTransaction) {
		t.Fatalf("empty sender err = %v", err)
	}
	long := strings.Repeat("a", DefaultMaxFieldLen+1)
	if err := pol.Check(tx(long, "B", 5)); !errors.Is(err, block.ErrInvalidTransaction) {
		t.Fatalf("long sender err = %v", err)
	}
	if err := pol.Check(tx("A", long, 5)); !errors.Is(err, block.ErrInvalidTransaction) {
		t.Fatalf("long recipient err = %v", err)
	}

	unlimited := &Policy{}
	if err := unlimited.Check(tx(long, long, 5)); err != nil {
		t.Fatalf("unlimited policy: %v", err)
	}
}
