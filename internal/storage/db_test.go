package storage

import (
	"bytes"
	"errors"
	"fmt"
	"testing"
)

// testDB runs the shared test suite against a DB implementation.
func testDB(t *testing.T, db DB) {
	t.Helper()

	t.Run("PutAndGet", func(t *testing.T) {
		if err := db.Put([]byte("key1"), []byte("value1")); err != nil {
			t.Fatalf("Put() error: %v", err)
		}
		val, err := db.Get([]byte("key1"))
		if err != nil {
			t.Fatalf("Get() error: %v", err)
		}
		if !bytes.Equal(val, []byte("value1")) {
			t.Errorf("Get() = %q, want %q", val, "value1")
		}
	})

	t.Run("GetNonexistent", func(t *testing.T) {
		_, err := db.Get([]byte("nonexistent"))
		if !errors.Is(err, ErrNotFound) {
			t.Errorf("Get() missing key error = %v, want ErrNotFound", err)
		}
	})

	t.Run("ValueIsCopied", func(t *testing.T) {
		v := []byte("orig")
		db.Put([]byte("copy"), v)
		v[0] = 'X'

		got, _ := db.Get([]byte("copy"))
		if string(got) != "orig" {
			t.Errorf("stored value aliased caller slice: %q", got)
		}
		got[0] = 'Y'
		again, _ := db.Get([]byte("copy"))
		if string(again) != "orig" {
			t.Errorf("returned value aliased storage: %q", again)
		}
	})

	t.Run("ForEachOrdered", func(t *testing.T) {
		for _, k := range []string{"idx/c", "idx/a", "idx/b", "other/x"} {
			db.Put([]byte(k), []byte(k))
		}
		var keys []string
		err := db.ForEach([]byte("idx/"), func(key, value []byte) error {
			if !bytes.Equal(key, value) {
				t.Errorf("ForEach value mismatch for %q", key)
			}
			keys = append(keys, string(key))
			return nil
		})
		if err != nil {
			t.Fatalf("ForEach() error: %v", err)
		}
		want := []string{"idx/a", "idx/b", "idx/c"}
		if fmt.Sprint(keys) != fmt.Sprint(want) {
			t.Errorf("ForEach keys = %v, want %v", keys, want)
		}
	})

	t.Run("ForEachStop", func(t *testing.T) {
		stop := errors.New("stop")
		var n int
		err := db.ForEach([]byte("idx/"), func(key, value []byte) error {
			n++
			return stop
		})
		if !errors.Is(err, stop) {
			t.Fatalf("ForEach() error = %v, want stop", err)
		}
		if n != 1 {
			t.Errorf("callback ran %d times after stop", n)
		}
	})

	t.Run("Batch", func(t *testing.T) {
		b, ok := db.(Batcher)
		if !ok {
			t.Skip("DB does not support batches")
		}
		batch := b.NewBatch()
		defer batch.Discard()
		batch.Put([]byte("batch/a"), []byte("1"))
		batch.Put([]byte("batch/b"), []byte("2"))

		if _, err := db.Get([]byte("batch/a")); !errors.Is(err, ErrNotFound) {
			t.Fatal("batch write visible before Commit")
		}
		if err := batch.Commit(); err != nil {
			t.Fatalf("Commit() error: %v", err)
		}
		for _, k := range []string{"batch/a", "batch/b"} {
			if _, err := db.Get([]byte(k)); err != nil {
				t.Errorf("Get(%q) after Commit error: %v", k, err)
			}
		}
	})

	t.Run("BatchDiscard", func(t *testing.T) {
		b, ok := db.(Batcher)
		if !ok {
			t.Skip("DB does not support batches")
		}
		batch := b.NewBatch()
		batch.Put([]byte("dropped/a"), []byte("1"))
		batch.Discard()

		if _, err := db.Get([]byte("dropped/a")); !errors.Is(err, ErrNotFound) {
			t.Errorf("Get() after Discard error = %v, want ErrNotFound", err)
		}
		// Writes continue to work once the batch is released.
		if err := db.Put([]byte("after-discard"), []byte("ok")); err != nil {
			t.Fatalf("Put() after Discard error: %v", err)
		}
	})
}

func TestMemoryDB(t *testing.T) {
	db := NewMemory()
	defer db.Close()
	testDB(t, db)
}

func TestBadgerDB_InMemory(t *testing.T) {
	db, err := NewBadgerInMemory()
	if err != nil {
		t.Fatalf("NewBadgerInMemory() error: %v", err)
	}
	defer db.Close()
	testDB(t, db)
}

func TestBadgerDB_ValueTooLarge(t *testing.T) {
	db, err := NewBadgerInMemory()
	if err != nil {
		t.Fatalf("NewBadgerInMemory() error: %v", err)
	}
	defer db.Close()

	big := bytes.Repeat([]byte{0xab}, MaxBadgerValueSize+1)
	err = db.Put([]byte("big"), big)
	if !errors.Is(err, ErrValueTooLarge) {
		t.Fatalf("Put() error = %v, want ErrValueTooLarge", err)
	}
	if len(err.Error()) > 200 {
		t.Errorf("error message is %d bytes, want a short summary", len(err.Error()))
	}

	batch := db.NewBatch()
	defer batch.Discard()
	if err := batch.Put([]byte("big"), big); !errors.Is(err, ErrValueTooLarge) {
		t.Fatalf("batch Put() error = %v, want ErrValueTooLarge", err)
	}
}

func TestBadgerDB_LargeBatch(t *testing.T) {
	db, err := NewBadgerInMemory()
	if err != nil {
		t.Fatalf("NewBadgerInMemory() error: %v", err)
	}
	defer db.Close()

	// Enough data to overflow a single Badger transaction.
	val := bytes.Repeat([]byte{'v'}, 64<<10)
	const n = 400
	batch := db.NewBatch()
	defer batch.Discard()
	for i := 0; i < n; i++ {
		if err := batch.Put([]byte(fmt.Sprintf("large/%04d", i)), val); err != nil {
			t.Fatalf("Put(%d) error: %v", i, err)
		}
	}
	if err := batch.Commit(); err != nil {
		t.Fatalf("Commit() error: %v", err)
	}

	var count int
	db.ForEach([]byte("large/"), func(key, value []byte) error {
		count++
		return nil
	})
	if count != n {
		t.Errorf("ForEach found %d keys, want %d", count, n)
	}
}

func TestOpen(t *testing.T) {
	for _, backend := range []string{"", BackendMemory, BackendBadger} {
		db, err := Open(backend)
		if err != nil {
			t.Fatalf("Open(%q) error: %v", backend, err)
		}
		if _, ok := db.(Batcher); !ok {
			t.Errorf("Open(%q) returned a DB without batch support", backend)
		}
		db.Close()
	}
	if _, err := Open("leveldb"); err == nil {
		t.Error("Open(leveldb) should fail")
	}
}
