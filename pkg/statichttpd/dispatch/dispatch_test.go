package dispatch

import "testing"

func TestLookupMissOnEmptyTable(t *testing.T) {
	tbl := New()
	if _, ok := tbl.Lookup(GET, "/version"); ok {
		t.Fatalf("expected miss on empty table")
	}
}

func TestRegisterAndLookup(t *testing.T) {
	tbl := New()
	called := false
	tbl.Register(GET, "/version", func(method Method, request string, sid SessionID, out *Output) Outcome {
		called = true
		out.Data = []byte("v1")
		out.StatusCode = 200
		return OK
	})

	h, ok := tbl.Lookup(GET, "/version")
	if !ok {
		t.Fatalf("expected registered handler to be found")
	}
	var out Output
	outcome := h(GET, "/version", SessionID{}, &out)
	if !called || outcome != OK || string(out.Data) != "v1" {
		t.Fatalf("handler did not run as expected: called=%v outcome=%v data=%q", called, outcome, out.Data)
	}
}

func TestMethodTablesAreIndependent(t *testing.T) {
	tbl := New()
	tbl.Register(GET, "/x", func(Method, string, SessionID, *Output) Outcome { return OK })

	if _, ok := tbl.Lookup(POST, "/x"); ok {
		t.Fatalf("POST must not see GET's registration")
	}
}

func TestOverwriteRegistration(t *testing.T) {
	tbl := New()
	tbl.Register(GET, "/x", func(Method, string, SessionID, *Output) Outcome { return OK })
	tbl.Register(GET, "/x", func(Method, string, SessionID, *Output) Outcome { return ERROR })

	h, _ := tbl.Lookup(GET, "/x")
	var out Output
	if outcome := h(GET, "/x", SessionID{}, &out); outcome != ERROR {
		t.Fatalf("expected overwritten handler to run, got outcome=%v", outcome)
	}
}
