// Package storetest holds the behavioural contract every client store backend
// must satisfy. Backend test suites call Run with their own constructor.
package storetest

import (
	"clientcore/pkg/domain"
	"context"
	"errors"
	"testing"
)

// Opener builds a fresh, empty store for a single subtest.
type Opener func(t *testing.T) domain.PersistentStore

// Run executes the full store contract against stores produced by open.
func Run(t *testing.T, open Opener) {
	t.Helper()
	cases := []struct {
		name string
		fn   func(t *testing.T, store domain.PersistentStore)
	}{
		{"InsertAssignsSequentialIDs", testInsertAssignsSequentialIDs},
		{"InsertAfterDeleteUsesMaxPlusOne", testInsertAfterDeleteUsesMaxPlusOne},
		{"FindUpdateDelete", testFindUpdateDelete},
		{"SearchUsesOrSemantics", testSearchUsesOrSemantics},
		{"FieldExistsIgnoresNulls", testFieldExistsIgnoresNulls},
		{"ListReturnsEveryRecordInOrder", testListReturnsEveryRecordInOrder},
		{"FailedTransactionRollsBack", testFailedTransactionRollsBack},
	}
	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			store := open(t)
			t.Cleanup(func() { _ = store.Close() })
			tc.fn(t, store)
		})
	}
}

// Client builds a fully populated client fixture.
func Client(first, idNumber, mobile string) domain.Client {
	c := domain.Client{
		FirstName: domain.StringPtr(first),
		LastName:  domain.StringPtr("Pretorius"),
		IDNumber:  domain.StringPtr(idNumber),
	}
	if mobile != "" {
		c.MobileNumber = domain.StringPtr(mobile)
	}
	return c
}

func insert(t *testing.T, store domain.PersistentStore, c domain.Client) int64 {
	t.Helper()
	var id int64
	err := store.RunInTransaction(context.Background(), func(tx domain.Transaction) error {
		var err error
		id, err = tx.Insert(c)
		return err
	})
	if err != nil {
		t.Fatalf("insert: %v", err)
	}
	return id
}

func find(t *testing.T, store domain.PersistentStore, id int64) (domain.Client, bool) {
	t.Helper()
	var (
		out domain.Client
		ok  bool
	)
	err := store.View(context.Background(), func(tx domain.Transaction) error {
		var err error
		out, ok, err = tx.FindByID(id)
		return err
	})
	if err != nil {
		t.Fatalf("find: %v", err)
	}
	return out, ok
}

func testInsertAssignsSequentialIDs(t *testing.T, store domain.PersistentStore) {
	for want := int64(1); want <= 3; want++ {
		id := insert(t, store, Client("A", "960710480008"+string(rune('0'+want)), ""))
		if id != want {
			t.Fatalf("expected id %d, got %d", want, id)
		}
	}
	got, ok := find(t, store, 2)
	if !ok || got.ID != 2 || got.FirstName == nil || *got.FirstName != "A" {
		t.Fatalf("unexpected record %+v (ok=%v)", got, ok)
	}
}

func testInsertAfterDeleteUsesMaxPlusOne(t *testing.T, store domain.PersistentStore) {
	insert(t, store, Client("A", "1", ""))
	insert(t, store, Client("B", "2", ""))
	err := store.RunInTransaction(context.Background(), func(tx domain.Transaction) error {
		_, err := tx.Delete(1)
		return err
	})
	if err != nil {
		t.Fatalf("delete: %v", err)
	}
	if id := insert(t, store, Client("C", "3", "")); id != 3 {
		t.Fatalf("expected id 3 after deleting a lower id, got %d", id)
	}
	err = store.RunInTransaction(context.Background(), func(tx domain.Transaction) error {
		_, err := tx.Delete(3)
		return err
	})
	if err != nil {
		t.Fatalf("delete: %v", err)
	}
	if id := insert(t, store, Client("D", "4", "")); id != 3 {
		t.Fatalf("expected id 3 to be reused once it is the max again, got %d", id)
	}
}

func testFindUpdateDelete(t *testing.T, store domain.PersistentStore) {
	id := insert(t, store, Client("A", "1", "0821"))
	if _, ok := find(t, store, id+10); ok {
		t.Fatalf("expected missing record")
	}
	err := store.RunInTransaction(context.Background(), func(tx domain.Transaction) error {
		return tx.Update(id, domain.Client{ID: 99, FirstName: domain.StringPtr("Z"), IDNumber: domain.StringPtr("1")})
	})
	if err != nil {
		t.Fatalf("update: %v", err)
	}
	got, ok := find(t, store, id)
	if !ok || got.ID != id || *got.FirstName != "Z" || got.MobileNumber != nil || got.LastName != nil {
		t.Fatalf("unexpected updated record %+v", got)
	}
	var removed, again bool
	err = store.RunInTransaction(context.Background(), func(tx domain.Transaction) error {
		var err error
		if removed, err = tx.Delete(id); err != nil {
			return err
		}
		again, err = tx.Delete(id)
		return err
	})
	if err != nil {
		t.Fatalf("delete: %v", err)
	}
	if !removed || again {
		t.Fatalf("expected first delete true and second false, got %v %v", removed, again)
	}
}

func testSearchUsesOrSemantics(t *testing.T, store domain.PersistentStore) {
	insert(t, store, Client("Ann", "111", "0821"))
	insert(t, store, Client("Bob", "222", "0822"))
	insert(t, store, Client("Ann", "333", ""))

	search := func(q domain.ClientQuery) []int64 {
		t.Helper()
		var out []domain.Client
		err := store.View(context.Background(), func(tx domain.Transaction) error {
			var err error
			out, err = tx.Search(q)
			return err
		})
		if err != nil {
			t.Fatalf("search: %v", err)
		}
		ids := make([]int64, 0, len(out))
		for _, c := range out {
			ids = append(ids, c.ID)
		}
		return ids
	}

	assertIDs(t, search(domain.ClientQuery{}), nil)
	assertIDs(t, search(domain.ClientQuery{FirstName: domain.StringPtr("Ann")}), []int64{1, 3})
	assertIDs(t, search(domain.ClientQuery{FirstName: domain.StringPtr("Bob"), IDNumber: domain.StringPtr("333")}), []int64{2, 3})
	assertIDs(t, search(domain.ClientQuery{MobileNumber: domain.StringPtr("0821"), IDNumber: domain.StringPtr("222")}), []int64{1, 2})
	assertIDs(t, search(domain.ClientQuery{FirstName: domain.StringPtr("Nobody")}), nil)
}

func assertIDs(t *testing.T, got, want []int64) {
	t.Helper()
	if len(got) != len(want) {
		t.Fatalf("expected ids %v, got %v", want, got)
	}
	for i := range want {
		if got[i] != want[i] {
			t.Fatalf("expected ids %v, got %v", want, got)
		}
	}
}

func testListReturnsEveryRecordInOrder(t *testing.T, store domain.PersistentStore) {
	list := func() []domain.Client {
		t.Helper()
		var out []domain.Client
		err := store.View(context.Background(), func(tx domain.Transaction) error {
			var err error
			out, err = tx.List()
			return err
		})
		if err != nil {
			t.Fatalf("list: %v", err)
		}
		return out
	}
	if got := list(); got == nil || len(got) != 0 {
		t.Fatalf("expected empty non-nil list, got %+v", got)
	}
	insert(t, store, Client("Ann", "111", ""))
	insert(t, store, Client("Bob", "222", "0822"))
	insert(t, store, Client("Cid", "333", ""))
	got := list()
	ids := make([]int64, 0, len(got))
	for _, c := range got {
		ids = append(ids, c.ID)
	}
	assertIDs(t, ids, []int64{1, 2, 3})
	if got[1].MobileNumber == nil || *got[1].MobileNumber != "0822" || got[0].MobileNumber != nil {
		t.Fatalf("unexpected list contents %+v", got)
	}
}

func testFieldExistsIgnoresNulls(t *testing.T, store domain.PersistentStore) {
	insert(t, store, Client("Ann", "111", ""))
	insert(t, store, Client("Bob", "222", "0822"))
	check := func(field domain.Field, value string, want bool) {
		t.Helper()
		var got bool
		err := store.View(context.Background(), func(tx domain.Transaction) error {
			var err error
			got, err = tx.FieldExists(field, value)
			return err
		})
		if err != nil {
			t.Fatalf("field exists: %v", err)
		}
		if got != want {
			t.Fatalf("FieldExists(%s, %q) = %v, want %v", field, value, got, want)
		}
	}
	check(domain.FieldIDNumber, "111", true)
	check(domain.FieldIDNumber, "999", false)
	check(domain.FieldMobileNumber, "0822", true)
	check(domain.FieldMobileNumber, "", false)
}

func testFailedTransactionRollsBack(t *testing.T, store domain.PersistentStore) {
	insert(t, store, Client("Ann", "111", ""))
	sentinel := errors.New("abort")
	err := store.RunInTransaction(context.Background(), func(tx domain.Transaction) error {
		if _, err := tx.Insert(Client("Bob", "222", "")); err != nil {
			return err
		}
		if _, err := tx.Delete(1); err != nil {
			return err
		}
		return sentinel
	})
	if !errors.Is(err, sentinel) {
		t.Fatalf("expected sentinel error, got %v", err)
	}
	if _, ok := find(t, store, 1); !ok {
		t.Fatalf("expected record 1 to survive rolled back delete")
	}
	if _, ok := find(t, store, 2); ok {
		t.Fatalf("expected rolled back insert to be discarded")
	}
}
