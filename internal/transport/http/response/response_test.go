package response

import (
	"encoding/json"
	"testing"
)

func TestOKKeepsDataNonNull(t *testing.T) {
	b, err := json.Marshal(OK(nil))
	if err != nil {
		t.Fatalf("marshal: %v", err)
	}
	var got map[string]json.RawMessage
	if err := json.Unmarshal(b, &got); err != nil {
		t.Fatalf("unmarshal: %v", err)
	}
	if string(got["data"]) == "null" {
		t.Fatal("data must never serialize as null")
	}
	if string(got["code"]) != "0" {
		t.Fatalf("code: got %s want 0", got["code"])
	}
}

func TestErrorMessageOverride(t *testing.T) {
	r := Error(CodeConflict, "patrimony unit is not available")
	if r.Msg != "patrimony unit is not available" {
		t.Fatalf("custom msg lost: %q", r.Msg)
	}
	if r.Code != CodeConflict {
		t.Fatalf("code: got %d want %d", r.Code, CodeConflict)
	}

	r = Error(CodeNotFound, "")
	if r.Msg != "Not Found" {
		t.Fatalf("default msg: got %q", r.Msg)
	}
}
