package store

import (
	"errors"
	"path/filepath"
	"reflect"
	"testing"

	ircerr "ircbot/internal/errors"
)

func openMemory(t *testing.T) *Store {
	t.Helper()
	s, err := Open(MemoryPath)
	if err != nil {
		t.Fatal(err)
	}
	t.Cleanup(func() { _ = s.Close() })
	return s
}

func TestChannels(t *testing.T) {
	s := openMemory(t)

	for _, ch := range []string{"#go", "#Ergo", "#go", "&local"} {
		if err := s.AddChannel(ch); err != nil {
			t.Fatalf("AddChannel(%q): %v", ch, err)
		}
	}
	got, err := s.Channels()
	if err != nil {
		t.Fatal(err)
	}
	if want := []string{"#Ergo", "#go", "&local"}; !reflect.DeepEqual(got, want) {
		t.Errorf("Channels() = %q, want %q", got, want)
	}

	if err := s.RemoveChannel("#ERGO"); err != nil {
		t.Fatal(err)
	}
	if err := s.RemoveChannel("#never-joined"); err != nil {
		t.Errorf("removing an unknown channel: %v", err)
	}
	got, _ = s.Channels()
	if want := []string{"#go", "&local"}; !reflect.DeepEqual(got, want) {
		t.Errorf("after remove: %q, want %q", got, want)
	}
}

func TestResponses(t *testing.T) {
	s := openMemory(t)

	if err := s.SetResponse("hello", "hi $nick"); err != nil {
		t.Fatal(err)
	}
	if err := s.SetResponse(" bye ", "see you in $channel"); err != nil {
		t.Fatal(err)
	}
	if err := s.SetResponse("hello", "hey $nick"); err != nil {
		t.Fatal(err)
	}

	table, err := s.Responses()
	if err != nil {
		t.Fatal(err)
	}
	want := map[string]string{"hello": "hey $nick", "bye": "see you in $channel"}
	if !reflect.DeepEqual(table, want) {
		t.Errorf("Responses() = %v, want %v", table, want)
	}

	ok, err := s.DeleteResponse("hello")
	if err != nil || !ok {
		t.Errorf("DeleteResponse = %v, %v; want true, nil", ok, err)
	}
	ok, err = s.DeleteResponse("hello")
	if err != nil || ok {
		t.Errorf("second DeleteResponse = %v, %v; want false, nil", ok, err)
	}
}

// Triggers are regular expressions; case carries meaning in escapes
// such as \S and \D.
func TestResponses_KeepTriggerCase(t *testing.T) {
	s := openMemory(t)

	for _, trigger := range []string{`\S+ bye`, `\D+`, `Hello`} {
		if err := s.SetResponse(trigger, "x"); err != nil {
			t.Fatal(err)
		}
	}
	table, err := s.Responses()
	if err != nil {
		t.Fatal(err)
	}
	want := map[string]string{`\S+ bye`: "x", `\D+`: "x", `Hello`: "x"}
	if !reflect.DeepEqual(table, want) {
		t.Errorf("Responses() = %q, want %q", table, want)
	}

	if ok, _ := s.DeleteResponse(`\s+ bye`); ok {
		t.Error("deleting \\s+ bye removed \\S+ bye")
	}
	if ok, _ := s.DeleteResponse(`\S+ bye`); !ok {
		t.Error("DeleteResponse did not find the trigger as typed")
	}
}

func TestAccess(t *testing.T) {
	s := openMemory(t)

	if err := s.SetAccess("Alice!*@*", "admin"); err != nil {
		t.Fatal(err)
	}
	if err := s.SetAccess("*!*@ops.example", "operator"); err != nil {
		t.Fatal(err)
	}
	if err := s.SetAccess("bad mask", "admin"); !errors.Is(err, ircerr.ErrInvalidParam) {
		t.Errorf("mask with a space = %v", err)
	}

	table, err := s.Access()
	if err != nil {
		t.Fatal(err)
	}
	want := map[string]string{"alice!*@*": "admin", "*!*@ops.example": "operator"}
	if !reflect.DeepEqual(table, want) {
		t.Errorf("Access() = %v, want %v", table, want)
	}

	if ok, err := s.DeleteAccess("ALICE!*@*"); err != nil || !ok {
		t.Errorf("DeleteAccess = %v, %v; want true, nil", ok, err)
	}
	if ok, _ := s.DeleteAccess("nobody"); ok {
		t.Error("DeleteAccess of an unknown mask reported true")
	}
}

func TestSetResponse_EmptyTrigger(t *testing.T) {
	s := openMemory(t)
	if err := s.SetResponse("  ", "x"); !errors.Is(err, ircerr.ErrInvalidParam) {
		t.Errorf("want ErrInvalidParam, got %v", err)
	}
}

func TestPersistence(t *testing.T) {
	path := filepath.Join(t.TempDir(), "bot.db")

	s, err := Open(path)
	if err != nil {
		t.Fatal(err)
	}
	_ = s.AddChannel("#persist")
	_ = s.SetResponse("ping", "pong")
	if err := s.Close(); err != nil {
		t.Fatal(err)
	}

	s, err = Open(path)
	if err != nil {
		t.Fatal(err)
	}
	defer s.Close()

	chans, _ := s.Channels()
	if !reflect.DeepEqual(chans, []string{"#persist"}) {
		t.Errorf("channels after reopen = %q", chans)
	}
	table, _ := s.Responses()
	if table["ping"] != "pong" {
		t.Errorf("responses after reopen = %v", table)
	}
}

func TestClosed(t *testing.T) {
	s, err := Open(MemoryPath)
	if err != nil {
		t.Fatal(err)
	}
	if err := s.Close(); err != nil {
		t.Fatal(err)
	}

	if err := s.AddChannel("#x"); !errors.Is(err, ircerr.ErrStoreClosed) {
		t.Errorf("AddChannel after Close = %v", err)
	}
	if _, err := s.Channels(); !errors.Is(err, ircerr.ErrStoreClosed) {
		t.Errorf("Channels after Close = %v", err)
	}
	if _, err := s.DeleteResponse("x"); !errors.Is(err, ircerr.ErrStoreClosed) {
		t.Errorf("DeleteResponse after Close = %v", err)
	}
	if err := s.Close(); !errors.Is(err, ircerr.ErrStoreClosed) {
		t.Errorf("second Close = %v", err)
	}
}
