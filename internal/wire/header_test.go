package wire

import "testing"

func TestListCaseInsensitiveLookup(t *testing.T) {
	var l List
	l.Add("Content-Type", "text/plain", ResponseHeader)
	v, ok := l.Get("content-type", ResponseHeader)
	if !ok || v != "text/plain" {
		t.Fatalf("Get = %q, %v", v, ok)
	}
}

func TestListPreservesInsertionOrder(t *testing.T) {
	var l List
	l.Add("A", "1", ResponseHeader)
	l.Add("B", "2", ResponseHeader)
	l.Add("C", "3", ResponseHeader)

	var order []string
	l.VisitAll(func(e Entry) bool {
		order = append(order, e.Name)
		return true
	})
	want := []string{"A", "B", "C"}
	for i := range want {
		if order[i] != want[i] {
			t.Fatalf("order = %v, want %v", order, want)
		}
	}
}

func TestListDelRemovesOnlyMatchingKind(t *testing.T) {
	var l List
	l.Add("Set-Cookie", "a=1", ResponseHeader)
	l.Add("a", "1", Cookie)
	l.Del("a", Cookie)
	if l.Has("a", Cookie) {
		t.Fatal("cookie a still present after Del")
	}
	if !l.Has("Set-Cookie", ResponseHeader) {
		t.Fatal("unrelated ResponseHeader entry was removed")
	}
}

func TestListSetPreservesPosition(t *testing.T) {
	var l List
	l.Add("A", "1", ResponseHeader)
	l.Add("B", "2", ResponseHeader)
	l.Add("C", "3", ResponseHeader)
	l.Set("B", "22", ResponseHeader)

	var order []string
	l.VisitAll(func(e Entry) bool {
		order = append(order, e.Name+"="+e.Value)
		return true
	})
	want := []string{"A=1", "B=22", "C=3"}
	for i := range want {
		if order[i] != want[i] {
			t.Fatalf("order = %v, want %v", order, want)
		}
	}
}

func TestListCountByKind(t *testing.T) {
	var l List
	l.Add("a", "1", QueryArgument)
	l.Add("b", "2", QueryArgument)
	l.Add("Host", "x", RequestHeader)
	if got := l.Count(QueryArgument); got != 2 {
		t.Fatalf("Count(QueryArgument) = %d, want 2", got)
	}
}
